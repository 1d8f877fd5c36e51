// Package analytics computes usage metrics and chart series from stored
// usage events. Every query is a pure recompute over a snapshot fetched
// from the event store; nothing here holds mutable shared state, so
// concurrent queries never interfere and need no locking.
package analytics

// Snapshot is the cumulative metrics over an entire window. Derived,
// never persisted; it must be byte-for-byte reproducible from the same
// event set.
type Snapshot struct {
	TotalPlays      int64   `json:"total_plays"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalGems       float64 `json:"total_gems"`
	TotalLikes      int64   `json:"total_likes"`
	TotalShares     int64   `json:"total_shares"`
	UniqueListeners int     `json:"unique_listeners"`
}

// DayBucket is the per-calendar-day aggregate within a window. A series
// always contains one bucket per day, zero-filled when the day had no
// events. Unique listeners are counted per day; the sets are not shared
// across days, so the per-day counts are not additive into the
// snapshot's global count.
type DayBucket struct {
	// Date is the bucket's calendar day as a YYYY-MM-DD string in UTC.
	Date string `json:"date"`

	Plays           int64   `json:"plays"`
	Revenue         float64 `json:"revenue"`
	Gems            float64 `json:"gems"`
	Likes           int64   `json:"likes"`
	Shares          int64   `json:"shares"`
	UniqueListeners int     `json:"unique_listeners_count"`
}

// Report is the result of an analytics query: cumulative metrics plus
// the gap-free, oldest-first day series for the requested window. Both
// are computed from the identical event subset, so summing any series
// metric equals the corresponding snapshot total (except unique
// listeners, which are not additive across days).
type Report struct {
	Metrics Snapshot    `json:"metrics"`
	Series  []DayBucket `json:"series"`
}
