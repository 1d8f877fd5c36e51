package event

import (
	"context"
	"testing"
	"time"
)

func floatPtr(v float64) *float64 { return &v }

func TestInMemoryStore_Append(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	rec, err := store.Append(ctx, Draft{
		OwnerID:  "owner-1",
		Name:     string(KindPurchase),
		Category: "track",
		Value:    floatPtr(9.99),
		Metadata: map[string]any{"track_id": "t-1"},
	})
	if err != nil {
		t.Fatalf("Append() returned error: %v", err)
	}

	if rec.ID == "" {
		t.Error("expected store to assign an ID")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected store to assign CreatedAt")
	}
	if rec.CreatedAt.Location() != time.UTC {
		t.Errorf("expected CreatedAt in UTC, got %v", rec.CreatedAt.Location())
	}
	if rec.OwnerID != "owner-1" || rec.Name != string(KindPurchase) {
		t.Errorf("unexpected record fields: %+v", rec)
	}
	if store.Len("owner-1") != 1 {
		t.Errorf("expected 1 stored record, got %d", store.Len("owner-1"))
	}
}

func TestInMemoryStore_AppendCopiesDraft(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	metadata := map[string]any{MetadataKeyListener: "listener-a"}
	rec, err := store.Append(ctx, Draft{
		OwnerID:  "owner-1",
		Name:     string(KindTrackPlay),
		Metadata: metadata,
	})
	if err != nil {
		t.Fatalf("Append() returned error: %v", err)
	}

	// Mutating the caller's map and the returned record must not
	// change what a later query observes.
	metadata[MetadataKeyListener] = "mutated"
	rec.Metadata[MetadataKeyListener] = "also-mutated"

	got, err := store.QueryRange(ctx, "owner-1", time.Time{})
	if err != nil {
		t.Fatalf("QueryRange() returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].ListenerID() != "listener-a" {
		t.Errorf("stored record was mutated: listener=%q", got[0].ListenerID())
	}
}

func TestInMemoryStore_QueryRangeFiltersBySince(t *testing.T) {
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryStoreWithClock(func() time.Time { return current })
	ctx := context.Background()

	days := []time.Time{
		time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
	}
	for _, d := range days {
		current = d
		if _, err := store.Append(ctx, Draft{OwnerID: "owner-1", Name: string(KindLike)}); err != nil {
			t.Fatalf("Append() returned error: %v", err)
		}
	}

	got, err := store.QueryRange(ctx, "owner-1", time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("QueryRange() returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records on/after Aug 5, got %d", len(got))
	}

	// Newest first, mirroring the production store.
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Errorf("expected descending creation order, got %v then %v", got[0].CreatedAt, got[1].CreatedAt)
	}
}

func TestInMemoryStore_QueryRangeScopedToOwner(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if _, err := store.Append(ctx, Draft{OwnerID: "owner-1", Name: string(KindShare)}); err != nil {
		t.Fatalf("Append() returned error: %v", err)
	}
	if _, err := store.Append(ctx, Draft{OwnerID: "owner-2", Name: string(KindShare)}); err != nil {
		t.Fatalf("Append() returned error: %v", err)
	}

	got, err := store.QueryRange(ctx, "owner-1", time.Time{})
	if err != nil {
		t.Fatalf("QueryRange() returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record for owner-1, got %d", len(got))
	}
	if got[0].OwnerID != "owner-1" {
		t.Errorf("expected owner-1 record, got %q", got[0].OwnerID)
	}
}

func TestInMemoryStore_QueryRangeUnknownOwner(t *testing.T) {
	store := NewInMemoryStore()

	got, err := store.QueryRange(context.Background(), "nobody", time.Time{})
	if err != nil {
		t.Fatalf("QueryRange() returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result for unknown owner, got %d records", len(got))
	}
}

func TestRecord_ListenerID(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		want     string
	}{
		{"nil metadata", nil, ""},
		{"missing key", map[string]any{"track_id": "t-1"}, ""},
		{"present", map[string]any{MetadataKeyListener: "listener-a"}, "listener-a"},
		{"non-string value", map[string]any{MetadataKeyListener: 42}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Record{Metadata: tt.metadata}
			if got := rec.ListenerID(); got != tt.want {
				t.Errorf("ListenerID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecord_DayUsesUTC(t *testing.T) {
	// 23:30 in UTC-5 is 04:30 the next day in UTC. The bucket key must
	// follow UTC, never the record's zone.
	loc := time.FixedZone("UTC-5", -5*60*60)
	rec := &Record{CreatedAt: time.Date(2026, 8, 1, 23, 30, 0, 0, loc)}

	if got := rec.Day(); got != "2026-08-02" {
		t.Errorf("Day() = %q, want %q", got, "2026-08-02")
	}
}

func TestStoreError_Unwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := &StoreError{Op: "append", Err: cause}

	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return the cause")
	}
	if err.Error() == "" {
		t.Error("Error() returned empty string")
	}
}
