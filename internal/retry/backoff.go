package retry

import "time"

// schedule is the fixed backoff table indexed by attempt number. The last
// value repeats for attempts beyond the table.
var schedule = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
}

// Backoff returns the delay applied after the given attempt number (1-based).
func Backoff(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	return schedule[idx]
}
