package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/wavelane/wavelane/internal/event"
	"github.com/wavelane/wavelane/internal/tracing"
)

// ValidationError reports invalid input to Record or Query. It is
// surfaced to the caller and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Service records usage events and answers analytics queries. It holds
// no mutable state of its own; the event store is the only shared
// resource.
type Service struct {
	store   event.Store
	metrics *Metrics
	now     func() time.Time
}

// NewService creates an analytics service backed by the given store.
// metrics may be nil to disable instrumentation.
func NewService(store event.Store, metrics *Metrics) *Service {
	return NewServiceWithClock(store, metrics, time.Now)
}

// NewServiceWithClock creates an analytics service with an injectable
// clock. Tests use this to pin "today".
func NewServiceWithClock(store event.Store, metrics *Metrics, now func() time.Time) *Service {
	return &Service{
		store:   store,
		metrics: metrics,
		now:     now,
	}
}

// Record validates and appends a new usage event. The store assigns the
// ID and creation timestamp. Recording never recomputes aggregates;
// callers that need fresh numbers re-invoke Query, which always
// recomputes from the store.
func (s *Service) Record(ctx context.Context, draft event.Draft) (*event.Record, error) {
	if draft.OwnerID == "" {
		return nil, &ValidationError{Field: "owner_id", Reason: "must not be empty"}
	}
	if draft.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	rec, err := s.store.Append(ctx, draft)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncEventsRecorded(rec.Name)
	}
	return rec, nil
}

// Query computes the cumulative metrics snapshot and the gap-free day
// series for the owner over the requested window ending today. The
// fetched batch is clamped to the exact window once, and that single
// subset feeds both outputs, so every additive series metric sums to
// its snapshot total.
func (s *Service) Query(ctx context.Context, ownerID string, window Window) (report *Report, err error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Reason: "must not be empty"}
	}

	ctx, endSpan := tracing.StartSpan(ctx, "aggregate_usage")
	defer func() { endSpan(err) }()

	started := time.Now()
	today := s.now().UTC()
	start := window.Start(today)

	records, err := s.store.QueryRange(ctx, ownerID, start)
	if err != nil {
		return nil, err
	}

	// Clock skew can hand back events beyond today; drop them so the
	// series and the snapshot see the same set.
	records = FilterRange(records, start, window.End(today))

	snapshot, perDay := Aggregate(records)
	series := BuildSeries(window, today, perDay)

	if s.metrics != nil {
		s.metrics.IncQueries(window.String())
		s.metrics.AddEventsAggregated(len(records))
		s.metrics.ObserveQueryDuration(time.Since(started).Seconds())
	}

	return &Report{Metrics: snapshot, Series: series}, nil
}
