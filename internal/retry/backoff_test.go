package retry

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"attempt 1", 1, 10 * time.Second},
		{"attempt 2", 2, 30 * time.Second},
		{"attempt 3", 3, 2 * time.Minute},
		{"attempt 4", 4, 10 * time.Minute},
		{"attempt 5", 5, 30 * time.Minute},
		{"attempt 6 repeats last entry", 6, 30 * time.Minute},
		{"attempt 20 repeats last entry", 20, 30 * time.Minute},
		{"attempt 0 clamps to first entry", 0, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Backoff(tt.attempt); got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}
