package engine

import (
	"time"
)

// OffsetScheduler converts signed second offsets from an anchor timestamp
// into concrete UTC fire times.
type OffsetScheduler struct {
	// DedupeFireTimes collapses duplicate fire times produced by
	// overlapping offsets within one rule. Off by default: duplicates
	// have always produced duplicate jobs.
	DedupeFireTimes bool
}

// ComputeFireTimes returns one fire time per offset, in offset order.
// Without atTimeUTC the fire time is anchor+offset. With it, the UTC
// calendar date of anchor+offset keeps only its date and the clock is
// replaced by HH:MM:00 UTC: "on this day, always at this hour", which
// can diverge from a literal sub-day offset and is accepted behavior.
// A malformed atTimeUTC (validated at compile time) is ignored here.
func (s OffsetScheduler) ComputeFireTimes(anchor time.Time, offsetsSeconds []int64, atTimeUTC string) []time.Time {
	anchor = anchor.UTC()

	var atClock *time.Time
	if atTimeUTC != "" {
		if parsed, err := time.Parse("15:04", atTimeUTC); err == nil {
			atClock = &parsed
		}
	}

	fireTimes := make([]time.Time, 0, len(offsetsSeconds))
	for _, offset := range offsetsSeconds {
		fireAt := anchor.Add(time.Duration(offset) * time.Second)
		if atClock != nil {
			y, m, d := fireAt.Date()
			fireAt = time.Date(y, m, d, atClock.Hour(), atClock.Minute(), 0, 0, time.UTC)
		}
		fireTimes = append(fireTimes, fireAt)
	}

	if s.DedupeFireTimes {
		fireTimes = dedupeTimes(fireTimes)
	}
	return fireTimes
}

// dedupeTimes keeps the first occurrence of each fire time, preserving
// order.
func dedupeTimes(times []time.Time) []time.Time {
	seen := make(map[int64]struct{}, len(times))
	out := times[:0]
	for _, t := range times {
		key := t.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
