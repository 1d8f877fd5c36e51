package event

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StoreError wraps a persistence failure from an event store. The
// engine propagates it to the caller unmodified; retry policy belongs
// to the store, not the engine.
type StoreError struct {
	Op  string // "append" or "query_range"
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("event store %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store is the narrow persistence interface the analytics engine
// consumes. Implementations must serialize individual appends; a query
// only needs to observe a consistent snapshot, not a linearizable-fresh
// one.
type Store interface {
	// Append persists a new record, assigning its ID and CreatedAt.
	// Returns a *StoreError on persistence failure.
	Append(ctx context.Context, draft Draft) (*Record, error)

	// QueryRange returns all records for the owner with
	// CreatedAt >= since. Order is unspecified; callers must not
	// assume any.
	QueryRange(ctx context.Context, ownerID string, since time.Time) ([]*Record, error)
}

// InMemoryStore implements Store with an in-memory map. Used for
// testing and development. Thread-safe via RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]*Record // owner_id -> records
	now     func() time.Time
}

// NewInMemoryStore creates a new in-memory event store.
func NewInMemoryStore() *InMemoryStore {
	return NewInMemoryStoreWithClock(time.Now)
}

// NewInMemoryStoreWithClock creates an in-memory store that stamps
// appended records with the given clock. Tests use this to place
// records on specific calendar days.
func NewInMemoryStoreWithClock(now func() time.Time) *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string][]*Record),
		now:     now,
	}
}

// Append persists a new record, assigning its ID and CreatedAt.
func (s *InMemoryStore) Append(ctx context.Context, draft Draft) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{
		ID:        uuid.New().String(),
		OwnerID:   draft.OwnerID,
		Name:      draft.Name,
		Category:  draft.Category,
		Value:     draft.Value,
		Metadata:  draft.Metadata,
		CreatedAt: s.now().UTC(),
	}

	// Store a copy so later caller mutation cannot reach stored state.
	s.records[rec.OwnerID] = append(s.records[rec.OwnerID], rec.clone())

	return rec.clone(), nil
}

// QueryRange returns all records for the owner with CreatedAt >= since,
// newest first. The descending order mirrors the production store;
// callers must not rely on it.
func (s *InMemoryStore) QueryRange(ctx context.Context, ownerID string, since time.Time) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*Record{}
	for _, rec := range s.records[ownerID] {
		if rec.CreatedAt.Before(since) {
			continue
		}
		out = append(out, rec.clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

// Len returns the total number of records stored for the owner.
func (s *InMemoryStore) Len(ownerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[ownerID])
}
