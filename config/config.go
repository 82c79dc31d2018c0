// Package config provides configuration management for goproc.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/victoralfred/goproc/observability"
	"github.com/victoralfred/goproc/resilience"
)

// Config is the main configuration for goproc.
type Config struct {
	RateLimiter resilience.RateLimiterConfig  `yaml:"rate_limiter"`
	Telemetry   observability.TelemetryConfig `yaml:"telemetry"`
	Audit       observability.AuditConfig     `yaml:"audit"`
	Runner      RunnerConfig                  `yaml:"runner"`
}

// RunnerConfig configures the runner.
type RunnerConfig struct {
	// GracePeriod is the delay between the termination signal and the
	// forceful kill of a timed-out child.
	GracePeriod time.Duration

	// DefaultTimeout applies to invocations without their own timeout.
	// Zero means no default: such runs wait forever.
	DefaultTimeout time.Duration

	EnableMetrics   bool
	EnableTracing   bool
	EnableAudit     bool
	EnableRateLimit bool
}

// UnmarshalYAML accepts Go duration strings ("5s", "500ms") for the
// duration fields and only overrides fields present in the document.
func (rc *RunnerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		GracePeriod     *string `yaml:"grace_period"`
		DefaultTimeout  *string `yaml:"default_timeout"`
		EnableMetrics   *bool   `yaml:"enable_metrics"`
		EnableTracing   *bool   `yaml:"enable_tracing"`
		EnableAudit     *bool   `yaml:"enable_audit"`
		EnableRateLimit *bool   `yaml:"enable_rate_limit"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.GracePeriod != nil {
		d, err := time.ParseDuration(*raw.GracePeriod)
		if err != nil {
			return fmt.Errorf("grace_period: %w", err)
		}
		rc.GracePeriod = d
	}
	if raw.DefaultTimeout != nil {
		d, err := time.ParseDuration(*raw.DefaultTimeout)
		if err != nil {
			return fmt.Errorf("default_timeout: %w", err)
		}
		rc.DefaultTimeout = d
	}
	if raw.EnableMetrics != nil {
		rc.EnableMetrics = *raw.EnableMetrics
	}
	if raw.EnableTracing != nil {
		rc.EnableTracing = *raw.EnableTracing
	}
	if raw.EnableAudit != nil {
		rc.EnableAudit = *raw.EnableAudit
	}
	if raw.EnableRateLimit != nil {
		rc.EnableRateLimit = *raw.EnableRateLimit
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Runner: RunnerConfig{
			GracePeriod:     3 * time.Second,
			DefaultTimeout:  0,
			EnableMetrics:   true,
			EnableTracing:   true,
			EnableAudit:     true,
			EnableRateLimit: false,
		},
		RateLimiter: resilience.DefaultRateLimiterConfig(),
		Telemetry:   observability.DefaultTelemetryConfig(),
		Audit:       observability.DefaultAuditConfig(),
	}
}

// DevelopmentConfig returns configuration suitable for development.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Runner.GracePeriod = 1 * time.Second
	cfg.RateLimiter.DefaultLimit = 1000
	cfg.RateLimiter.DefaultBurst = 2000
	cfg.Audit.LogLevel = observability.AuditLogAll
	cfg.Audit.IncludeOutput = true
	return cfg
}

// ProductionConfig returns configuration suitable for production.
func ProductionConfig() Config {
	cfg := DefaultConfig()
	cfg.Runner.GracePeriod = 5 * time.Second
	cfg.Runner.EnableRateLimit = true
	cfg.RateLimiter.DefaultLimit = 100
	cfg.RateLimiter.DefaultBurst = 150
	cfg.Audit.LogLevel = observability.AuditLogAll
	cfg.Audit.IncludeOutput = false
	return cfg
}

// Validate validates the configuration, correcting unusable values.
func (c *Config) Validate() error {
	if c.Runner.GracePeriod <= 0 {
		c.Runner.GracePeriod = 3 * time.Second
	}

	if c.Runner.DefaultTimeout < 0 {
		c.Runner.DefaultTimeout = 0
	}

	if c.RateLimiter.DefaultBurst <= 0 {
		c.RateLimiter.DefaultBurst = 1
	}

	if c.Audit.MaxOutputSize <= 0 {
		c.Audit.MaxOutputSize = 1024
	}

	return nil
}
