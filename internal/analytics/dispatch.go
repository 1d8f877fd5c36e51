package analytics

import (
	"github.com/wavelane/wavelane/internal/event"
)

// Delta is the metric contribution of a single usage event. A zero
// Delta means the event had no effect.
type Delta struct {
	Plays   int64
	Likes   int64
	Shares  int64
	Revenue float64
	Gems    float64

	// ListenerID is non-empty when a track_play carried a listener
	// identity; the aggregator adds it to the unique-listener sets.
	ListenerID string
}

// Dispatch maps one event to its metric deltas. It is deterministic,
// total, and side-effect free: malformed or unrecognized events yield a
// zero Delta, never an error, so future event kinds stay inert instead
// of breaking aggregation.
func Dispatch(rec *event.Record) Delta {
	switch event.Kind(rec.Name) {
	case event.KindTrackPlay:
		return Delta{Plays: 1, ListenerID: rec.ListenerID()}

	case event.KindPurchase, event.KindServicePayment:
		// Absent value counts as 0; negative values clamp to 0.
		var revenue float64
		if rec.Value != nil && *rec.Value > 0 {
			revenue = *rec.Value
		}
		return Delta{Revenue: revenue}

	case event.KindGemGiven, event.KindGemReceived:
		// An absent value counts as one gem; a present value only
		// counts when positive. Present-but-zero adds nothing.
		if rec.Value == nil {
			return Delta{Gems: 1}
		}
		if *rec.Value > 0 {
			return Delta{Gems: *rec.Value}
		}
		return Delta{}

	case event.KindLike:
		return Delta{Likes: 1}

	case event.KindShare:
		return Delta{Shares: 1}

	default:
		return Delta{}
	}
}
