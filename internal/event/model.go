// Package event provides the usage event model and event store
// implementations for the Wavelane analytics service.
package event

import (
	"time"
)

// Kind identifies the type of a usage event.
type Kind string

// Known event kinds. Unknown kinds are accepted for storage but
// contribute nothing to aggregation.
const (
	KindTrackPlay      Kind = "track_play"
	KindPurchase       Kind = "purchase"
	KindServicePayment Kind = "service_payment"
	KindGemGiven       Kind = "gem_given"
	KindGemReceived    Kind = "gem_received"
	KindLike           Kind = "like"
	KindShare          Kind = "share"
)

// Recognized reports whether the kind is one the aggregation engine
// understands. Unrecognized kinds are stored but inert.
func (k Kind) Recognized() bool {
	switch k {
	case KindTrackPlay, KindPurchase, KindServicePayment,
		KindGemGiven, KindGemReceived, KindLike, KindShare:
		return true
	}
	return false
}

// MetadataKeyListener is the metadata key carrying the listener
// identity on track_play events. It is the only metadata key the
// aggregation engine interprets.
const MetadataKeyListener = "listener_id"

// Record is a single immutable usage event. Records are append-only:
// once stored they are never updated or deleted.
type Record struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	// Name is one of the Kind constants, or an unrecognized value
	// that aggregation treats as a no-op.
	Name string `json:"name"`

	// Category is a free-form classification label. Stored but not
	// interpreted; reserved for future filtering.
	Category string `json:"category,omitempty"`

	// Value carries the event magnitude (currency amount for payment
	// events, gem count for gem events). Nil means the caller sent no
	// value, which is distinct from an explicit zero.
	Value *float64 `json:"value,omitempty"`

	// Metadata holds arbitrary key/value pairs attached by the caller.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is assigned by the store at append time, in UTC.
	// Calendar-day truncation of this timestamp determines bucket
	// membership during aggregation.
	CreatedAt time.Time `json:"created_at"`
}

// Draft is the caller-supplied shape of a usage event before the store
// assigns its ID and creation timestamp.
type Draft struct {
	OwnerID  string         `json:"owner_id"`
	Name     string         `json:"name"`
	Category string         `json:"category,omitempty"`
	Value    *float64       `json:"value,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ListenerID returns the listener identity attached to the record, or
// an empty string when none is present. Non-string metadata values are
// ignored.
func (r *Record) ListenerID() string {
	if r.Metadata == nil {
		return ""
	}
	if id, ok := r.Metadata[MetadataKeyListener].(string); ok {
		return id
	}
	return ""
}

// Day returns the record's calendar day in UTC, formatted as
// YYYY-MM-DD. Bucketing must always use this key so results are
// reproducible regardless of the server's local time zone.
func (r *Record) Day() string {
	return r.CreatedAt.UTC().Format(DayLayout)
}

// DayLayout is the time layout for calendar-day bucket keys.
const DayLayout = "2006-01-02"

// clone returns a deep copy of the record so stored state is never
// shared with callers.
func (r *Record) clone() *Record {
	out := *r
	if r.Value != nil {
		v := *r.Value
		out.Value = &v
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
