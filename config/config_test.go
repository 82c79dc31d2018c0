package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Runner.GracePeriod != 3*time.Second {
		t.Errorf("GracePeriod = %v, want 3s", cfg.Runner.GracePeriod)
	}
	if cfg.Runner.DefaultTimeout != 0 {
		t.Errorf("DefaultTimeout = %v, want 0 (no default timeout)", cfg.Runner.DefaultTimeout)
	}
	if !cfg.Runner.EnableAudit {
		t.Error("audit should be enabled by default")
	}
	if cfg.Runner.EnableRateLimit {
		t.Error("rate limiting should be opt-in")
	}
}

func TestConfig_ValidateCorrectsValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runner.GracePeriod = -1
	cfg.Runner.DefaultTimeout = -1
	cfg.Audit.MaxOutputSize = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Runner.GracePeriod <= 0 {
		t.Error("Validate should restore a usable grace period")
	}
	if cfg.Runner.DefaultTimeout != 0 {
		t.Error("Validate should clamp a negative default timeout to zero")
	}
	if cfg.Audit.MaxOutputSize <= 0 {
		t.Error("Validate should restore a usable audit output size")
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	content := `runner:
  grace_period: 5s
  enable_audit: false
rate_limiter:
  default_limit: 42
`
	if err := os.WriteFile(filepath.Join(dir, "goproc.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	loader, err := NewLoader(dir, "goproc.yaml")
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runner.GracePeriod != 5*time.Second {
		t.Errorf("GracePeriod = %v, want 5s from file", cfg.Runner.GracePeriod)
	}
	if cfg.Runner.EnableAudit {
		t.Error("EnableAudit should be overridden by the file")
	}
	if cfg.RateLimiter.DefaultLimit != 42 {
		t.Errorf("DefaultLimit = %v, want 42 from file", cfg.RateLimiter.DefaultLimit)
	}
	// Values absent from the file keep their defaults.
	if !cfg.Runner.EnableMetrics {
		t.Error("EnableMetrics should keep its default")
	}

	// An unchanged file returns the cached config.
	again, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if again != cfg {
		t.Error("unchanged file should return the cached config")
	}
}

func TestLoader_MissingFile(t *testing.T) {
	loader, err := NewLoader(t.TempDir(), "missing.yaml")
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if _, err := loader.Load(context.Background()); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}
