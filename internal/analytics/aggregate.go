package analytics

import (
	"log/slog"

	"github.com/wavelane/wavelane/internal/event"
)

// dayAccum accumulates one calendar day's metrics while the per-day
// unique-listener set is still growing. The set is discarded once
// reduced to a cardinality.
type dayAccum struct {
	bucket    DayBucket
	listeners map[string]struct{}
}

// Aggregate folds a slice of events into one cumulative snapshot and a
// map from day key (YYYY-MM-DD, UTC) to that day's bucket. Days with no
// events are absent from the map; BuildSeries fills the gaps.
//
// The fold is a single linear pass and is order independent: two
// retrievals of the same event set produce identical output regardless
// of how the store ordered them. Unrecognized events are logged at
// debug level and skipped; the batch is always processed to the end.
func Aggregate(records []*event.Record) (Snapshot, map[string]DayBucket) {
	var snap Snapshot
	globalListeners := make(map[string]struct{})
	days := make(map[string]*dayAccum)

	for _, rec := range records {
		if !event.Kind(rec.Name).Recognized() {
			slog.Debug("ignoring unrecognized usage event",
				"event_id", rec.ID,
				"name", rec.Name,
			)
			continue
		}

		d := Dispatch(rec)

		snap.TotalPlays += d.Plays
		snap.TotalLikes += d.Likes
		snap.TotalShares += d.Shares
		snap.TotalRevenue += d.Revenue
		snap.TotalGems += d.Gems

		key := rec.Day()
		day, ok := days[key]
		if !ok {
			day = &dayAccum{
				bucket:    DayBucket{Date: key},
				listeners: make(map[string]struct{}),
			}
			days[key] = day
		}
		day.bucket.Plays += d.Plays
		day.bucket.Likes += d.Likes
		day.bucket.Shares += d.Shares
		day.bucket.Revenue += d.Revenue
		day.bucket.Gems += d.Gems

		if d.ListenerID != "" {
			globalListeners[d.ListenerID] = struct{}{}
			day.listeners[d.ListenerID] = struct{}{}
		}
	}

	snap.UniqueListeners = len(globalListeners)

	perDay := make(map[string]DayBucket, len(days))
	for key, day := range days {
		day.bucket.UniqueListeners = len(day.listeners)
		perDay[key] = day.bucket
	}

	return snap, perDay
}
