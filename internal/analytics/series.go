package analytics

import (
	"errors"
	"strconv"
	"time"

	"github.com/wavelane/wavelane/internal/event"
)

// Window is a trailing aggregation period measured in calendar days,
// ending at "today" inclusive.
type Window int

// Supported window sizes.
const (
	Window7  Window = 7
	Window30 Window = 30
	Window90 Window = 90
)

// ErrInvalidWindow is returned for window values other than 7d, 30d or 90d.
var ErrInvalidWindow = errors.New("window must be one of 7d, 30d, 90d")

// ParseWindow parses the wire form of a window ("7d", "30d", "90d").
// An empty string defaults to 7d.
func ParseWindow(s string) (Window, error) {
	switch s {
	case "", "7d":
		return Window7, nil
	case "30d":
		return Window30, nil
	case "90d":
		return Window90, nil
	default:
		return 0, ErrInvalidWindow
	}
}

// Days returns the window length in days.
func (w Window) Days() int {
	return int(w)
}

// String returns the wire form of the window, e.g. "7d".
func (w Window) String() string {
	return strconv.Itoa(int(w)) + "d"
}

// Start returns the UTC midnight of the window's oldest day. A window
// spans exactly w calendar days ending at today inclusive, so the start
// is (w-1) days before today's UTC midnight.
func (w Window) Start(today time.Time) time.Time {
	t := today.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -(w.Days() - 1))
}

// End returns the exclusive upper bound of the window: the UTC midnight
// after today.
func (w Window) End(today time.Time) time.Time {
	return w.Start(today).AddDate(0, 0, w.Days())
}

// FilterRange returns the records with start <= created_at < end. The
// service clamps a fetched batch to the exact window with this before
// aggregating, so the snapshot and the series always derive from the
// identical subset even when the store returns skewed timestamps.
func FilterRange(records []*event.Record, start, end time.Time) []*event.Record {
	out := make([]*event.Record, 0, len(records))
	for _, rec := range records {
		t := rec.CreatedAt.UTC()
		if t.Before(start) || !t.Before(end) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// BuildSeries produces the gap-free, oldest-first day series for the
// window ending at today. Each day takes its bucket from perDay or a
// zero-filled bucket when the day had no events. Charts depend on this
// ordering; the store itself returns events newest first.
func BuildSeries(w Window, today time.Time, perDay map[string]DayBucket) []DayBucket {
	start := w.Start(today)

	series := make([]DayBucket, 0, w.Days())
	for i := 0; i < w.Days(); i++ {
		key := start.AddDate(0, 0, i).Format(event.DayLayout)
		bucket, ok := perDay[key]
		if !ok {
			bucket = DayBucket{Date: key}
		}
		series = append(series, bucket)
	}
	return series
}
