package poll

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name     string
		base     time.Duration
		cap      time.Duration
		failures int
		want     time.Duration
	}{
		{name: "first failure", base: time.Second, cap: 8 * time.Second, failures: 1, want: time.Second},
		{name: "second failure doubles", base: time.Second, cap: 8 * time.Second, failures: 2, want: 2 * time.Second},
		{name: "third failure doubles again", base: time.Second, cap: 8 * time.Second, failures: 3, want: 4 * time.Second},
		{name: "fourth failure hits cap", base: time.Second, cap: 8 * time.Second, failures: 4, want: 8 * time.Second},
		{name: "beyond cap stays capped", base: time.Second, cap: 8 * time.Second, failures: 10, want: 8 * time.Second},
		{name: "zero failures yields base", base: time.Second, cap: 8 * time.Second, failures: 0, want: time.Second},
		{name: "huge streak does not overflow", base: time.Second, cap: time.Minute, failures: 200, want: time.Minute},
		{name: "base above cap clamps", base: 10 * time.Second, cap: 5 * time.Second, failures: 1, want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backoffDelay(tt.base, tt.cap, tt.failures); got != tt.want {
				t.Errorf("backoffDelay(%v, %v, %d) = %v, want %v",
					tt.base, tt.cap, tt.failures, got, tt.want)
			}
		})
	}
}
