package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTracing_PassesThrough(t *testing.T) {
	called := false
	handler := Tracing("wavelane-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analytics", nil)
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("wrapped handler was not called")
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestGetTraceID_NoActiveSpan(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetTraceID(req); id != "" {
		t.Errorf("GetTraceID = %q, want empty for no active span", id)
	}
	if id := GetSpanID(req); id != "" {
		t.Errorf("GetSpanID = %q, want empty for no active span", id)
	}
}
