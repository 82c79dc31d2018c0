package resilience

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestRateLimiter_AllowWithinBurst(t *testing.T) {
	config := RateLimiterConfig{
		DefaultLimit: 10,
		DefaultBurst: 5,
		PerCommand:   true,
	}
	rl := NewRateLimiter(config)

	for i := 0; i < 5; i++ {
		if !rl.Allow("ls") {
			t.Errorf("Allow() = false on call %d, want burst of 5 allowed", i+1)
		}
	}
	if rl.Allow("ls") {
		t.Error("Allow() = true after burst exhausted")
	}
}

func TestRateLimiter_PerCommandIsolation(t *testing.T) {
	config := RateLimiterConfig{
		DefaultLimit: 1,
		DefaultBurst: 1,
		PerCommand:   true,
	}
	rl := NewRateLimiter(config)

	if !rl.Allow("ls") {
		t.Fatal("first Allow(ls) should succeed")
	}
	if rl.Allow("ls") {
		t.Error("second Allow(ls) should be limited")
	}
	// A different command path has its own bucket.
	if !rl.Allow("cat") {
		t.Error("Allow(cat) should not share ls's bucket")
	}
}

func TestRateLimiter_GlobalMode(t *testing.T) {
	config := RateLimiterConfig{
		DefaultLimit: 1,
		DefaultBurst: 1,
		PerCommand:   false,
	}
	rl := NewRateLimiter(config)

	if !rl.Allow("ls") {
		t.Fatal("first Allow should succeed")
	}
	if rl.Allow("cat") {
		t.Error("global mode should limit across command paths")
	}
}

func TestRateLimiter_CommandLimits(t *testing.T) {
	config := RateLimiterConfig{
		DefaultLimit: 100,
		DefaultBurst: 100,
		PerCommand:   true,
		CommandLimits: map[string]CommandLimit{
			"expensive": {Limit: 1, Burst: 1},
		},
	}
	rl := NewRateLimiter(config)

	if !rl.Allow("expensive") {
		t.Fatal("first Allow should succeed")
	}
	if rl.Allow("expensive") {
		t.Error("configured command limit should apply instead of the default")
	}
}

func TestRateLimiter_SetLimit(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())

	rl.SetLimit("ls", rate.Limit(1), 1)

	if !rl.Allow("ls") {
		t.Fatal("first Allow should succeed")
	}
	if rl.Allow("ls") {
		t.Error("updated limit should apply")
	}
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	config := RateLimiterConfig{
		DefaultLimit: 0.1, // one spawn per 10s
		DefaultBurst: 1,
		PerCommand:   true,
	}
	rl := NewRateLimiter(config)

	if err := rl.Wait(context.Background(), "ls"); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx, "ls"); err == nil {
		t.Error("Wait() should fail when the context expires before a token is available")
	}
}
