package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/victoralfred/gowritter/safepath"
	"gopkg.in/yaml.v3"
)

// Loader loads configuration from a YAML file. Repeated loads return the
// cached configuration when the file has not changed.
type Loader struct {
	path     string
	safePath *safepath.SafePath
	config   *Config
	mu       sync.RWMutex
	lastHash []byte
	lastLoad time.Time
	onChange []func(*Config)
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithOnChange adds a callback invoked when a changed file is loaded.
func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) {
		l.onChange = append(l.onChange, fn)
	}
}

// NewLoader creates a new config loader. The basePath is the directory
// containing the config file; configFile is relative to it.
func NewLoader(basePath, configFile string, opts ...LoaderOption) (*Loader, error) {
	sp, err := safepath.New(basePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	l := &Loader{
		path:     configFile,
		safePath: sp,
		onChange: make([]func(*Config), 0),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Load loads the configuration from the file. Values not present in the
// file keep their defaults.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.safePath.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	hash := sha256.Sum256(data)
	if l.config != nil && string(hash[:]) == string(l.lastHash) {
		return l.config, nil
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	l.config = &cfg
	l.lastHash = hash[:]
	l.lastLoad = time.Now()

	for _, fn := range l.onChange {
		fn(&cfg)
	}

	return &cfg, nil
}

// Get returns the current configuration without reloading, or nil if Load
// has never succeeded.
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// LastLoad returns when the configuration was last loaded from disk.
func (l *Loader) LastLoad() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastLoad
}
