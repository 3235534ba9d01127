package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request beyond burst allowed")
	}

	// Other clients have their own bucket.
	if !rl.allow("10.0.0.2") {
		t.Error("fresh client denied")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute)

	key := "10.0.0.3"
	for i := 0; i < 60; i++ {
		rl.allow(key)
	}
	if rl.allow(key) {
		t.Fatal("bucket should be empty")
	}

	// Backdate the refill stamp instead of sleeping.
	rl.mu.Lock()
	rl.buckets[key].lastRefill = time.Now().Add(-2 * time.Second)
	rl.mu.Unlock()

	if !rl.allow(key) {
		t.Error("bucket did not refill over time")
	}
}
