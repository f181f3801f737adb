package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleRoot(t *testing.T) {
	srv := NewServer(":0")

	rec := httptest.NewRecorder()
	srv.handleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "running") {
		t.Fatalf("根路径应返回确认文案: %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.handleRoot(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("未知路径应返回 404, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(":0")

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200, got %d", rec.Code)
	}
	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("健康检查响应不是合法 JSON: %v", err)
	}
	if decoded["status"] != "ok" {
		t.Fatalf("健康检查状态不正确: %+v", decoded)
	}
	if _, ok := decoded["uptime_seconds"]; !ok {
		t.Fatalf("健康检查应包含运行时长: %+v", decoded)
	}

	rec = httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST 应返回 405, got %d", rec.Code)
	}
}

func TestWithContextRejectsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := withContext(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("取消前应正常处理, got %d", rec.Code)
	}

	cancel()
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("取消后应返回 503, got %d", rec.Code)
	}
}
