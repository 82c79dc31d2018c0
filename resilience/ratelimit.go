// Package resilience provides spawn rate limiting.
package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter controls how fast processes may be spawned.
type RateLimiter interface {
	// Allow checks if a spawn is allowed for the given command path.
	Allow(path string) bool

	// Wait blocks until a spawn is allowed or the context is canceled.
	Wait(ctx context.Context, path string) error

	// SetLimit updates the rate limit for a command path.
	SetLimit(path string, limit rate.Limit, burst int)
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// DefaultLimit is the default spawns per second.
	DefaultLimit float64 `yaml:"default_limit"`

	// DefaultBurst is the default burst size.
	DefaultBurst int `yaml:"default_burst"`

	// PerCommand enables per-command-path rate limiting.
	PerCommand bool `yaml:"per_command"`

	// CommandLimits contains per-command-path rate limits.
	CommandLimits map[string]CommandLimit `yaml:"command_limits"`
}

// CommandLimit defines the rate limit for a specific command path.
type CommandLimit struct {
	Limit float64 `yaml:"limit"`
	Burst int     `yaml:"burst"`
}

// DefaultRateLimiterConfig returns default configuration.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		DefaultLimit:  100,
		DefaultBurst:  150,
		PerCommand:    true,
		CommandLimits: make(map[string]CommandLimit),
	}
}

// rateLimiter implements RateLimiter.
type rateLimiter struct {
	config          RateLimiterConfig
	globalLimiter   *rate.Limiter
	commandLimiters map[string]*rate.Limiter
	mu              sync.RWMutex
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) RateLimiter {
	rl := &rateLimiter{
		config:          config,
		globalLimiter:   rate.NewLimiter(rate.Limit(config.DefaultLimit), config.DefaultBurst),
		commandLimiters: make(map[string]*rate.Limiter),
	}

	for path, limit := range config.CommandLimits {
		rl.commandLimiters[path] = rate.NewLimiter(rate.Limit(limit.Limit), limit.Burst)
	}

	return rl
}

// Allow implements RateLimiter.Allow.
func (rl *rateLimiter) Allow(path string) bool {
	if !rl.config.PerCommand {
		return rl.globalLimiter.Allow()
	}
	return rl.getLimiter(path).Allow()
}

// Wait implements RateLimiter.Wait.
func (rl *rateLimiter) Wait(ctx context.Context, path string) error {
	if !rl.config.PerCommand {
		return rl.globalLimiter.Wait(ctx)
	}
	return rl.getLimiter(path).Wait(ctx)
}

// SetLimit implements RateLimiter.SetLimit.
func (rl *rateLimiter) SetLimit(path string, limit rate.Limit, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.commandLimiters[path]; ok {
		limiter.SetLimit(limit)
		limiter.SetBurst(burst)
	} else {
		rl.commandLimiters[path] = rate.NewLimiter(limit, burst)
	}
}

func (rl *rateLimiter) getLimiter(path string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.commandLimiters[path]
	rl.mu.RUnlock()

	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring the write lock.
	if existing, ok := rl.commandLimiters[path]; ok {
		return existing
	}

	newLimiter := rate.NewLimiter(rate.Limit(rl.config.DefaultLimit), rl.config.DefaultBurst)
	rl.commandLimiters[path] = newLimiter
	return newLimiter
}
