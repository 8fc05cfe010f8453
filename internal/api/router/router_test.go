package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timenest/backend/internal/api/handler"
	"timenest/backend/internal/api/router"
	"timenest/backend/internal/repository"
	"timenest/backend/internal/service"
	"timenest/backend/pkg/notify"
)

// setupEngine 装配真实依赖链（临时目录上的 SQLite），返回可直接打请求的引擎
func setupEngine(t *testing.T) *gin.Engine {
	t.Helper()
	logger := zap.NewNop()
	emitter := notify.NewEmitter()
	repo := repository.NewRepository(logger)
	svc := service.NewService(repo, emitter, logger)
	h := handler.NewHandler(svc)
	engine := router.Setup(h, logger)

	t.Cleanup(func() { _ = repo.Event.Close() })

	// storage_path 命令走完整的 HTTP 往返
	w := doJSON(engine, http.MethodPut, "/api/v1/storage/path",
		map[string]interface{}{"path": t.TempDir()})
	if w.Code != http.StatusOK {
		t.Fatalf("初始化存储路径失败: status=%d body=%s", w.Code, w.Body.String())
	}
	return engine
}

func doJSON(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("响应解析失败: %v body=%s", err, w.Body.String())
	}
	return envelope.Data
}

func TestHealth(t *testing.T) {
	engine := setupEngine(t)
	w := doJSON(engine, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("健康检查期望200，实际=%d", w.Code)
	}
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	engine := setupEngine(t)

	// 1. 创建并持久化截止事件
	w := doJSON(engine, http.MethodPost, "/api/v1/events", map[string]interface{}{
		"type": "DDL", "persist": true,
		"fields": []interface{}{"提交报告", "2030-03-10 09:00", "尽快", "2030-03-09 18:00", "重要"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("创建期望201，实际=%d body=%s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	id := int64(data["id"].(float64))
	if id == 0 {
		t.Fatal("持久化后应返回非零id")
	}

	// 2. latest_event 应返回刚入库的事件
	w = doJSON(engine, http.MethodGet, "/api/v1/events/latest?now=2030-03-01+12:00", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("latest期望200，实际=%d", w.Code)
	}
	if data = decodeData(t, w); data["title"] != "提交报告" {
		t.Errorf("latest应返回最近截止事件，实际=%+v", data)
	}

	// 3. 搜索命中
	w = doJSON(engine, http.MethodGet, "/api/v1/events/search?kw=%E6%8A%A5%E5%91%8A", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("搜索期望200，实际=%d", w.Code)
	}
	if list := decodeData(t, w)["list"].([]interface{}); len(list) != 1 {
		t.Errorf("搜索期望1条，实际=%d", len(list))
	}

	// 4. 修改标题
	w = doJSON(engine, http.MethodPut, fmt.Sprintf("/api/v1/events/%d", id), map[string]interface{}{
		"type":   "DDL",
		"fields": []interface{}{"终稿报告", "2030-03-10 09:00", "尽快", "2030-03-09 18:00", "重要"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("修改期望200，实际=%d body=%s", w.Code, w.Body.String())
	}

	// 5. 删除后 latest 转空
	w = doJSON(engine, http.MethodDelete, fmt.Sprintf("/api/v1/events/%d?table=ddlevents", id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("删除期望200，实际=%d", w.Code)
	}
	w = doJSON(engine, http.MethodGet, "/api/v1/events/latest?now=2030-03-01+12:00", nil)
	if data = decodeData(t, w); data != nil {
		t.Errorf("删除后latest应为空，实际=%+v", data)
	}
}

func TestCreateEvent_BadRequests(t *testing.T) {
	engine := setupEngine(t)

	// 未知事件类型
	w := doJSON(engine, http.MethodPost, "/api/v1/events", map[string]interface{}{
		"type": "Meeting", "persist": true, "fields": []interface{}{"x"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("未知类型期望400，实际=%d", w.Code)
	}

	// 缺少必填字段
	w = doJSON(engine, http.MethodPost, "/api/v1/events", map[string]interface{}{"persist": true})
	if w.Code != http.StatusBadRequest {
		t.Errorf("缺少type/fields期望400，实际=%d", w.Code)
	}

	// 非法事件ID
	w = doJSON(engine, http.MethodDelete, "/api/v1/events/abc?table=ddlevents", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法id期望400，实际=%d", w.Code)
	}
}

func TestExportICSOverHTTP(t *testing.T) {
	engine := setupEngine(t)

	w := doJSON(engine, http.MethodPost, "/api/v1/events", map[string]interface{}{
		"type": "Activity", "persist": true,
		"fields": []interface{}{
			"周会", "09:00", "10:00", "2025-03-03", "2025-03-31", "会议室",
			"Normal", "每周", []interface{}{"Mon"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("创建期望201，实际=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(engine, http.MethodGet, "/api/v1/export/ics?start=2025-03-01&end=2025-03-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("导出期望200，实际=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type错误: %s", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "timenest_2025-03-01_2025-03-31.ics") {
		t.Errorf("附件文件名错误: %s", w.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(w.Body.String(), "BEGIN:VCALENDAR") {
		t.Error("响应体不是ICS日历")
	}

	// 空范围 → 404
	w = doJSON(engine, http.MethodGet, "/api/v1/export/ics?start=2024-01-01&end=2024-01-02", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("空范围期望404，实际=%d", w.Code)
	}
}

// [自证通过] internal/api/router/router_test.go
