package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/victoralfred/gowritter/safepath"

	"github.com/victoralfred/goproc/proc"
)

// AuditLogger provides append-only run audit logging.
type AuditLogger interface {
	// Log logs an audit event.
	Log(ctx context.Context, event *AuditEvent) error

	// Close closes the audit logger.
	Close() error
}

// AuditEvent represents one audit log entry, serialized as a JSON line.
type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	ID        string         `json:"id"`
	Type      AuditEventType `json:"type"`
	Path      string         `json:"path"`
	Args      []string       `json:"args"`
	Dir       string         `json:"dir,omitempty"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Output    string         `json:"output,omitempty"`
	Duration  time.Duration  `json:"duration"`
	ExitCode  int            `json:"exit_code"`
}

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// AuditEventRun is a completed run.
	AuditEventRun AuditEventType = "run"

	// AuditEventTimeout is a run cut short by its timeout.
	AuditEventTimeout AuditEventType = "timeout"

	// AuditEventError is a run that failed with an error.
	AuditEventError AuditEventType = "error"
)

// AuditConfig configures the audit logger.
type AuditConfig struct {
	LogLevel      AuditLogLevel `yaml:"log_level"`
	BasePath      string        `yaml:"base_path"`
	FilePath      string        `yaml:"file_path"`
	MaxOutputSize int           `yaml:"max_output_size"`
	Enabled       bool          `yaml:"enabled"`
	IncludeOutput bool          `yaml:"include_output"`
}

// AuditLogLevel determines what events to log.
type AuditLogLevel string

const (
	// AuditLogAll logs all events.
	AuditLogAll AuditLogLevel = "all"

	// AuditLogFailures logs only failures.
	AuditLogFailures AuditLogLevel = "failures"
)

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		LogLevel:      AuditLogAll,
		IncludeOutput: false,
		MaxOutputSize: 1024,
		BasePath:      "/var/log",
		FilePath:      "goproc/audit.log",
	}
}

// fileAuditLogger implements AuditLogger on gowritter's safe path layer.
type fileAuditLogger struct {
	safePath *safepath.SafePath
	config   AuditConfig
	mu       sync.Mutex
}

// NewFileAuditLogger creates a new file-based audit logger.
func NewFileAuditLogger(config AuditConfig) (AuditLogger, error) {
	sp, err := safepath.New(config.BasePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	return &fileAuditLogger{
		config:   config,
		safePath: sp,
	}, nil
}

// Log implements AuditLogger.Log.
func (l *fileAuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	if !l.config.Enabled {
		return nil
	}

	if !l.shouldLog(event) {
		return nil
	}

	if !l.config.IncludeOutput {
		event.Output = ""
	} else if len(event.Output) > l.config.MaxOutputSize {
		event.Output = event.Output[:l.config.MaxOutputSize] + "...(truncated)"
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.safePath.AppendFile(l.config.FilePath, data, 0o644); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	return nil
}

// Close implements AuditLogger.Close.
func (l *fileAuditLogger) Close() error {
	return nil
}

func (l *fileAuditLogger) shouldLog(event *AuditEvent) bool {
	switch l.config.LogLevel {
	case AuditLogAll:
		return true
	case AuditLogFailures:
		return event.Status != "success"
	default:
		return true
	}
}

// CreateRunEvent creates an audit event from a run outcome.
func CreateRunEvent(inv *proc.Invocation, result *proc.Result, runErr error) *AuditEvent {
	event := &AuditEvent{
		Timestamp: time.Now(),
		Type:      AuditEventRun,
		Path:      inv.Path,
		Args:      inv.Args,
		Dir:       inv.Options.Dir,
		ExitCode:  -1,
	}

	if result != nil {
		event.ID = result.InvocationID
		event.Status = result.Status.String()
		event.ExitCode = result.ExitCode
		event.Duration = result.Duration
		event.Output = result.Stdout
	}

	if runErr != nil {
		event.Error = runErr.Error()
		if errors.Is(runErr, proc.ErrTimeout) {
			event.Type = AuditEventTimeout
			event.Status = "timeout"
		} else {
			event.Type = AuditEventError
			if event.Status == "" {
				event.Status = "error"
			}
		}
	}

	return event
}

// AuditHook records every run outcome through an AuditLogger. It satisfies
// the hooks package's PostRunHook interface, so it can be registered in a
// hooks.Registry or handed to the runner builder directly.
type AuditHook struct {
	logger AuditLogger
}

// NewAuditHook creates a hook that writes run outcomes to logger.
func NewAuditHook(logger AuditLogger) *AuditHook {
	return &AuditHook{logger: logger}
}

func (h *AuditHook) Name() string  { return "audit" }
func (h *AuditHook) Priority() int { return 900 }

// PreRun implements proc.Hook; auditing only observes completed runs.
func (h *AuditHook) PreRun(ctx context.Context, inv *proc.Invocation) (*proc.Invocation, error) {
	return inv, nil
}

// PostRun implements proc.Hook by recording the run outcome.
func (h *AuditHook) PostRun(ctx context.Context, inv *proc.Invocation, result *proc.Result, runErr error) error {
	return h.logger.Log(ctx, CreateRunEvent(inv, result, runErr))
}

// NoopAuditLogger returns a no-op audit logger.
func NoopAuditLogger() AuditLogger {
	return &noopAuditLogger{}
}

type noopAuditLogger struct{}

func (l *noopAuditLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }
func (l *noopAuditLogger) Close() error                                     { return nil }
