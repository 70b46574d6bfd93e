package ratelimit

import (
	"testing"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		key      string
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			key:      "10.0.0.1",
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			key:      "10.0.0.1",
			calls:    5,
			wantPass: 2,
		},
		{
			name:     "single call within burst",
			rps:      1,
			burst:    1,
			key:      "10.0.0.2",
			calls:    1,
			wantPass: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow(tt.key) {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1)

	if !rl.Allow("10.0.0.1") {
		t.Error("first key should be allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("second key should have its own bucket")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("first key should be exhausted")
	}
}
