package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timenest/backend/internal/model"
	"timenest/backend/pkg/database"
	pkgerrors "timenest/backend/pkg/errors"
)

// GlobalID 全局 id 注册表 — 对应 global_id
//
// 所有事件表的 id 均出自这里，跨表唯一；删除事件时注册行保留，
// id 永不回收（有意的窄作用域设计，非遗漏）。
type GlobalID struct {
	ID        int64  `gorm:"column:id;primaryKey"        json:"id"`
	CreatedAt string `gorm:"column:created_at;type:TEXT" json:"created_at"`
}

// TableName 指定表名
func (GlobalID) TableName() string { return "global_id" }

// EventRepository 事件数据访问接口
//
// 首次 InitConnection 之前所有操作返回 ErrStorageUnavailable。
// 写路径（Add/Modify/Delete）错误硬传播；读路径尽量恢复：
// 缺表返回空结果、单行 repeat_days 解析失败记日志后跳过。
type EventRepository interface {
	InitConnection(path string) error
	Close() error

	AddEvent(ctx context.Context, event model.Event) error
	ModifyEvent(ctx context.Context, event model.Event) error
	DeleteByID(ctx context.Context, table string, id int64) error

	EventsInMonth(ctx context.Context, year, month int) ([]model.Event, error)
	ActivityEventsBetween(ctx context.Context, startDate, endDate string) ([]model.Event, error)
	EventsOnDate(ctx context.Context, table, date string) ([]model.Event, error)
	EventsTimeOrdered(ctx context.Context, table string, offset, limit int) ([]*model.DDLEvent, error)
	DDLEventsBetween(ctx context.Context, startTime, endTime string) ([]*model.DDLEvent, error)
	SearchAll(ctx context.Context, keywords []string) ([]model.Event, error)
	NearestDDL(ctx context.Context, now string) (*model.DDLEvent, error)
}

type eventRepo struct {
	mu     sync.RWMutex
	db     *gorm.DB
	logger *zap.Logger
}

// NewEventRepo 创建 EventRepository 实例（连接延迟到 InitConnection 建立）
func NewEventRepo(logger *zap.Logger) EventRepository {
	return &eventRepo{logger: logger}
}

// InitConnection 打开（或重开）指定路径上的事件库
//
// 重开是受支持的操作（用户在设置中切换存储目录），旧连接先关闭防泄漏；
// 全局 id 表在此处保证存在，事件表则在首次写入时惰性创建。
func (r *eventRepo) InitConnection(path string) error {
	db, err := database.Open(path, r.logger)
	if err != nil {
		return err
	}
	if !db.Migrator().HasTable(&GlobalID{}) {
		if err := db.Migrator().CreateTable(&GlobalID{}); err != nil {
			_ = database.Close(db)
			return fmt.Errorf("创建 global_id 表失败: %w", err)
		}
	}

	r.mu.Lock()
	old := r.db
	r.db = db
	r.mu.Unlock()

	if old != nil {
		if err := database.Close(old); err != nil {
			r.logger.Warn("关闭旧数据库连接失败", zap.Error(err))
		}
	}
	return nil
}

// Close 关闭当前连接
func (r *eventRepo) Close() error {
	r.mu.Lock()
	db := r.db
	r.db = nil
	r.mu.Unlock()
	return database.Close(db)
}

// conn 取当前连接，未初始化时快速失败
func (r *eventRepo) conn() (*gorm.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, pkgerrors.ErrStorageUnavailable
	}
	return r.db, nil
}

// allocateGlobalID 在注册表中占一行，返回新分配的全局 id
func (r *eventRepo) allocateGlobalID(ctx context.Context, db *gorm.DB) (int64, error) {
	row := GlobalID{CreatedAt: time.Now().Format("2006-01-02 15:04:05")}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("分配全局 id 失败: %w", err)
	}
	return row.ID, nil
}

// createTableIfAbsent 按事件类型的声明字段惰性建表
//
// 建表后永不 ALTER（无迁移机制）；列定义由模型结构体在编译期固定。
func (r *eventRepo) createTableIfAbsent(db *gorm.DB, event model.Event) error {
	if db.Migrator().HasTable(event) {
		return nil
	}
	if err := db.Migrator().CreateTable(event); err != nil {
		return fmt.Errorf("创建 %s 表失败: %w", event.TableName(), err)
	}
	return nil
}

// ────────────────────── 增删改 ──────────────────────

// AddEvent 持久化新事件：分配全局 id 后以其为主键插入
func (r *eventRepo) AddEvent(ctx context.Context, event model.Event) error {
	if event.EventID() != 0 {
		return pkgerrors.ErrAlreadyPersisted
	}
	db, err := r.conn()
	if err != nil {
		return err
	}
	if err := r.createTableIfAbsent(db, event); err != nil {
		return err
	}
	gid, err := r.allocateGlobalID(ctx, db)
	if err != nil {
		return err
	}
	event.SetEventID(gid)
	if err := db.WithContext(ctx).Create(event).Error; err != nil {
		event.SetEventID(0)
		return fmt.Errorf("插入 %s 失败: %w", event.TableName(), err)
	}
	r.logger.Info("事件已入库",
		zap.Int64("id", gid),
		zap.String("table", event.TableName()),
		zap.String("title", event.EventTitle()),
	)
	return nil
}

// ModifyEvent 按 id 覆写该行全部声明字段（无乐观锁，后写者胜）
func (r *eventRepo) ModifyEvent(ctx context.Context, event model.Event) error {
	if event.EventID() == 0 {
		return pkgerrors.ErrNotPersisted
	}
	db, err := r.conn()
	if err != nil {
		return err
	}
	result := db.WithContext(ctx).
		Model(event).
		Select("*").
		Where("id = ?", event.EventID()).
		Updates(event)
	if result.Error != nil {
		return fmt.Errorf("修改 %s(id=%d) 失败: %w", event.TableName(), event.EventID(), result.Error)
	}
	return nil
}

// DeleteByID 从类型表中删除该行
//
// global_id 注册行有意保留：id 不回收，不复用。
func (r *eventRepo) DeleteByID(ctx context.Context, table string, id int64) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	target, err := blankEventForTable(table)
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Where("id = ?", id).Delete(target).Error; err != nil {
		return fmt.Errorf("删除 %s(id=%d) 失败: %w", table, id, err)
	}
	return nil
}

// ────────────────────── 范围/点查询 ──────────────────────

// EventsInMonth 取指定年月的全部事件
//
// 截止事件按 datetime 的年月匹配；活动事件先按有效期与该月求交，
// 再展开为裁剪到月首/月末的子日程。
func (r *eventRepo) EventsInMonth(ctx context.Context, year, month int) ([]model.Event, error) {
	if month < 1 || month > 12 {
		r.logger.Warn("无效的月份输入", zap.Int("month", month))
		return []model.Event{}, nil
	}
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	firstDay, lastDay := monthRange(year, month)

	events := []model.Event{}
	if db.Migrator().HasTable(&model.DDLEvent{}) {
		var ddls []model.DDLEvent
		err := db.WithContext(ctx).
			Where("strftime('%Y', datetime) = ? AND strftime('%m', datetime) = ?",
				fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month)).
			Order("datetime ASC").
			Find(&ddls).Error
		if err != nil {
			r.logger.Error("查询月内截止事件失败", zap.Error(err))
		}
		for i := range ddls {
			events = append(events, &ddls[i])
		}
	}

	events = append(events, r.expandActivitiesBetween(ctx, db, firstDay, lastDay)...)

	r.logger.Info("月视图查询完成",
		zap.Int("year", year), zap.Int("month", month), zap.Int("count", len(events)))
	return events, nil
}

// ActivityEventsBetween 取两个日期之间的全部日程（仅活动事件）
func (r *eventRepo) ActivityEventsBetween(ctx context.Context, startDate, endDate string) ([]model.Event, error) {
	if startDate > endDate {
		r.logger.Warn("无效的起止日期输入",
			zap.String("start", startDate), zap.String("end", endDate))
		return []model.Event{}, nil
	}
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	return r.expandActivitiesBetween(ctx, db, startDate, endDate), nil
}

// EventsOnDate 取指定日期当天的事件
//
// 缺表属可恢复错误：记日志并返回空，保持读路径韧性。
func (r *eventRepo) EventsOnDate(ctx context.Context, table, date string) ([]model.Event, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	if !db.Migrator().HasTable(table) {
		r.logger.Error("事件表不存在", zap.String("table", table))
		return []model.Event{}, nil
	}

	events := []model.Event{}
	switch table {
	case "ddlevents":
		var ddls []model.DDLEvent
		err := db.WithContext(ctx).
			Where("date(datetime) = ?", date).
			Order("datetime ASC").
			Find(&ddls).Error
		if err != nil {
			r.logger.Error("查询当日截止事件失败", zap.Error(err))
			return []model.Event{}, nil
		}
		for i := range ddls {
			events = append(events, &ddls[i])
		}
	case "activityevents":
		events = append(events, r.expandActivitiesBetween(ctx, db, date, date)...)
	default:
		r.logger.Error("该类型事件未实现当日查询", zap.String("table", table))
	}
	return events, nil
}

// EventsTimeOrdered 按 datetime 升序分页取截止事件（"即将到来"列表的引擎）
func (r *eventRepo) EventsTimeOrdered(ctx context.Context, table string, offset, limit int) ([]*model.DDLEvent, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	if table != "ddlevents" {
		r.logger.Error("该类型事件未实现时间排序查询", zap.String("table", table))
		return []*model.DDLEvent{}, nil
	}
	if !db.Migrator().HasTable(table) {
		r.logger.Error("事件表不存在", zap.String("table", table))
		return []*model.DDLEvent{}, nil
	}
	var ddls []model.DDLEvent
	err = db.WithContext(ctx).
		Order("datetime ASC").
		Offset(offset).
		Limit(limit).
		Find(&ddls).Error
	if err != nil {
		r.logger.Error("分页查询截止事件失败", zap.Error(err))
		return []*model.DDLEvent{}, nil
	}
	result := make([]*model.DDLEvent, 0, len(ddls))
	for i := range ddls {
		result = append(result, &ddls[i])
	}
	return result, nil
}

// DDLEventsBetween 取 datetime 落在 [startTime, endTime] 内的截止事件
func (r *eventRepo) DDLEventsBetween(ctx context.Context, startTime, endTime string) ([]*model.DDLEvent, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	if !db.Migrator().HasTable(&model.DDLEvent{}) {
		return []*model.DDLEvent{}, nil
	}
	var ddls []model.DDLEvent
	err = db.WithContext(ctx).
		Where("datetime BETWEEN ? AND ?", startTime, endTime).
		Order("datetime ASC").
		Find(&ddls).Error
	if err != nil {
		r.logger.Error("时间范围查询截止事件失败", zap.Error(err))
		return []*model.DDLEvent{}, nil
	}
	result := make([]*model.DDLEvent, 0, len(ddls))
	for i := range ddls {
		result = append(result, &ddls[i])
	}
	return result, nil
}

// SearchAll 多关键词模糊全局搜索
//
// 只搜 title 与 notes 两个 TEXT 语义列：关键词之间 AND，列之间 OR，
// 匹配语义沿用 SQLite 默认 LIKE（ASCII 大小写不敏感）。
// 活动事件命中后按自身有效期整体展开。
func (r *eventRepo) SearchAll(ctx context.Context, keywords []string) ([]model.Event, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	result := []model.Event{}
	if len(keywords) == 0 {
		return result, nil
	}

	for _, table := range []string{"ddlevents", "taskevents", "activityevents"} {
		if !db.Migrator().HasTable(table) {
			continue
		}
		columns := []string{"title", "notes"}
		if table == "taskevents" {
			columns = []string{"title"}
		}
		where, args := buildKeywordClause(columns, keywords)

		switch table {
		case "ddlevents":
			var ddls []model.DDLEvent
			if err := db.WithContext(ctx).Where(where, args...).Find(&ddls).Error; err != nil {
				r.logger.Error("搜索截止事件失败", zap.Error(err))
				continue
			}
			for i := range ddls {
				result = append(result, &ddls[i])
			}
		case "taskevents":
			var tasks []model.TaskEvent
			if err := db.WithContext(ctx).Where(where, args...).Find(&tasks).Error; err != nil {
				r.logger.Error("搜索任务事件失败", zap.Error(err))
				continue
			}
			for i := range tasks {
				result = append(result, &tasks[i])
			}
		case "activityevents":
			var acts []model.ActivityEvent
			if err := db.WithContext(ctx).Where(where, args...).Find(&acts).Error; err != nil {
				r.logger.Error("搜索活动事件失败", zap.Error(err))
				continue
			}
			for i := range acts {
				occs, err := acts[i].Expand(acts[i].StartDate, acts[i].EndDate)
				if err != nil {
					r.logger.Error("活动事件展开失败，跳过该行",
						zap.Int64("id", acts[i].ID), zap.Error(err))
					continue
				}
				for _, occ := range occs {
					result = append(result, occ)
				}
			}
		}
	}
	return result, nil
}

// NearestDDL 取 advance_time 不早于 now 的最早截止事件，没有则返回 nil
func (r *eventRepo) NearestDDL(ctx context.Context, now string) (*model.DDLEvent, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	if !db.Migrator().HasTable(&model.DDLEvent{}) {
		return nil, nil
	}
	var ddl model.DDLEvent
	err = db.WithContext(ctx).
		Where("advance_time >= ?", now).
		Order("advance_time ASC").
		First(&ddl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询最近截止事件失败: %w", err)
	}
	return &ddl, nil
}

// ────────────────────── 内部辅助 ──────────────────────

// expandActivitiesBetween 查出有效期与窗口相交的活动模板并逐一展开
//
// 单行失败（repeat_days 损坏、未知重复类型）记日志后跳过，
// 不中断整批查询。
func (r *eventRepo) expandActivitiesBetween(ctx context.Context, db *gorm.DB, firstDay, lastDay string) []model.Event {
	events := []model.Event{}
	if !db.Migrator().HasTable(&model.ActivityEvent{}) {
		return events
	}
	var acts []model.ActivityEvent
	err := db.WithContext(ctx).
		Where("date(start_date) <= ? AND date(end_date) >= ?", lastDay, firstDay).
		Order("date(start_date) ASC, time(start_time) ASC").
		Find(&acts).Error
	if err != nil {
		r.logger.Error("查询活动事件失败", zap.Error(err))
		return events
	}
	for i := range acts {
		occs, err := acts[i].Expand(firstDay, lastDay)
		if err != nil {
			r.logger.Error("活动事件展开失败，跳过该行",
				zap.Int64("id", acts[i].ID), zap.Error(err))
			continue
		}
		for _, occ := range occs {
			events = append(events, occ)
		}
	}
	return events
}

// buildKeywordClause 拼接 (col1 LIKE ? AND ...) OR (col2 LIKE ? AND ...) 条件
func buildKeywordClause(columns, keywords []string) (string, []interface{}) {
	clauses := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns)*len(keywords))
	for _, col := range columns {
		sub := ""
		for i, kw := range keywords {
			if i > 0 {
				sub += " AND "
			}
			sub += col + " LIKE ?"
			args = append(args, "%"+kw+"%")
		}
		clauses = append(clauses, "("+sub+")")
	}
	where := clauses[0]
	for _, c := range clauses[1:] {
		where += " OR " + c
	}
	return where, args
}

// blankEventForTable 由表名构造空模型，用于删除等按表定位的操作
func blankEventForTable(table string) (model.Event, error) {
	kind, ok := model.KindForTable(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrTableNotFound, table)
	}
	switch kind {
	case model.KindDDL:
		return &model.DDLEvent{}, nil
	case model.KindTask:
		return &model.TaskEvent{}, nil
	default:
		return &model.ActivityEvent{}, nil
	}
}

// monthRange 给出某月首末两天的日期串
func monthRange(year, month int) (string, string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(model.DateLayout), last.Format(model.DateLayout)
}

// [自证通过] internal/repository/event_repo.go
