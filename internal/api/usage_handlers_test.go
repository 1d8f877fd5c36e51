package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wavelane/wavelane/internal/analytics"
	"github.com/wavelane/wavelane/internal/event"
)

// newTestHandlers wires a usage handler over an in-memory store with a
// pinned clock so windows are deterministic.
func newTestHandlers(now time.Time) (*UsageHandlers, *event.InMemoryStore) {
	store := event.NewInMemoryStoreWithClock(func() time.Time { return now })
	service := analytics.NewServiceWithClock(store, nil, func() time.Time { return now })
	return NewUsageHandlers(service), store
}

func TestRecordEvent_Success(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	h, store := newTestHandlers(now)

	body := `{"owner_id":"artist-1","name":"track_play","metadata":{"listener_id":"fan-1"}}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	h.RecordEvent(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201. Body: %s", rec.Code, rec.Body.String())
	}

	var stored event.Record
	if err := json.NewDecoder(rec.Body).Decode(&stored); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stored.ID == "" {
		t.Error("expected an assigned event ID")
	}
	if stored.OwnerID != "artist-1" {
		t.Errorf("owner_id = %q, want artist-1", stored.OwnerID)
	}
	if !stored.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", stored.CreatedAt, now)
	}
	if store.Len("artist-1") != 1 {
		t.Errorf("store has %d events for artist-1, want 1", store.Len("artist-1"))
	}
}

func TestRecordEvent_MissingOwnerID(t *testing.T) {
	h, store := newTestHandlers(time.Now().UTC())

	body := `{"name":"track_play"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	h.RecordEvent(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error.Code != ErrCodeValidation {
		t.Errorf("code = %q, want %q", resp.Error.Code, ErrCodeValidation)
	}
	if store.Len("") != 0 {
		t.Error("rejected event must not be appended")
	}
}

func TestRecordEvent_InvalidBody(t *testing.T) {
	h, _ := newTestHandlers(time.Now().UTC())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader("{not json"))
	h.RecordEvent(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("code = %q, want %q", resp.Error.Code, ErrCodeBadRequest)
	}
}

func TestRecordEvent_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandlers(time.Now().UTC())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	h.RecordEvent(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestGetAnalytics_MissingOwnerID(t *testing.T) {
	h, _ := newTestHandlers(time.Now().UTC())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analytics", nil)
	h.GetAnalytics(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error.Code != ErrCodeValidation {
		t.Errorf("code = %q, want %q", resp.Error.Code, ErrCodeValidation)
	}
}

func TestGetAnalytics_InvalidWindow(t *testing.T) {
	h, _ := newTestHandlers(time.Now().UTC())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analytics?owner_id=artist-1&window=14d", nil)
	h.GetAnalytics(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error.Code != ErrCodeInvalidWindow {
		t.Errorf("code = %q, want %q", resp.Error.Code, ErrCodeInvalidWindow)
	}
}

func TestGetAnalytics_EmptyOwner(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	h, _ := newTestHandlers(now)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analytics?owner_id=artist-1", nil)
	h.GetAnalytics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
	}

	var report analytics.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}

	// Window defaults to 7 days, all buckets zero-filled
	if len(report.Series) != 7 {
		t.Fatalf("series length = %d, want 7", len(report.Series))
	}
	if report.Metrics.TotalPlays != 0 {
		t.Errorf("total plays = %d, want 0", report.Metrics.TotalPlays)
	}
	if report.Series[0].Date != "2026-08-23" {
		t.Errorf("oldest bucket = %s, want 2026-08-23", report.Series[0].Date)
	}
	if report.Series[6].Date != "2026-08-29" {
		t.Errorf("newest bucket = %s, want 2026-08-29", report.Series[6].Date)
	}
}

func TestRecordThenQuery_EndToEnd(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	h, _ := newTestHandlers(now)

	post := func(body string) {
		t.Helper()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
		h.RecordEvent(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("event rejected: %d %s", rec.Code, rec.Body.String())
		}
	}

	post(`{"owner_id":"artist-1","name":"track_play","metadata":{"listener_id":"fan-a"}}`)
	post(`{"owner_id":"artist-1","name":"track_play","metadata":{"listener_id":"fan-a"}}`)
	post(`{"owner_id":"artist-1","name":"track_play","metadata":{"listener_id":"fan-b"}}`)
	post(`{"owner_id":"artist-1","name":"like"}`)
	post(`{"owner_id":"artist-1","name":"purchase","value":9.99}`)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analytics?owner_id=artist-1&window=7d", nil)
	h.GetAnalytics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
	}

	var report analytics.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}

	if report.Metrics.TotalPlays != 3 {
		t.Errorf("total plays = %d, want 3", report.Metrics.TotalPlays)
	}
	if report.Metrics.UniqueListeners != 2 {
		t.Errorf("unique listeners = %d, want 2", report.Metrics.UniqueListeners)
	}
	if report.Metrics.TotalLikes != 1 {
		t.Errorf("total likes = %d, want 1", report.Metrics.TotalLikes)
	}
	if report.Metrics.TotalRevenue != 9.99 {
		t.Errorf("total revenue = %v, want 9.99", report.Metrics.TotalRevenue)
	}

	// Everything landed today; the series must account for all of it.
	var seriesPlays int64
	var seriesRevenue float64
	for _, b := range report.Series {
		seriesPlays += b.Plays
		seriesRevenue += b.Revenue
	}
	if seriesPlays != report.Metrics.TotalPlays {
		t.Errorf("series plays sum = %d, snapshot = %d", seriesPlays, report.Metrics.TotalPlays)
	}
	if seriesRevenue != report.Metrics.TotalRevenue {
		t.Errorf("series revenue sum = %v, snapshot = %v", seriesRevenue, report.Metrics.TotalRevenue)
	}
}
