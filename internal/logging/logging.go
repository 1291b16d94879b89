// Package logging builds the process zap logger and adapts it to the
// key/value Logger contract used by the service layer.
package logging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"atlas/internal/core"
)

// Config selects level and encoding. Format is "json" or "console".
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New builds a production zap logger honoring cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level))
	if cfg.Level == "" {
		level, err = zapcore.InfoLevel, nil
	}
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "console":
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("log format %q: want json or console", cfg.Format)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Adapter exposes a zap logger through Debug/Info/Warn/Error with alternating
// key/value arguments.
type Adapter struct {
	s *zap.SugaredLogger
}

// NewAdapter wraps l. A nil logger discards everything.
func NewAdapter(l *zap.Logger) Adapter {
	if l == nil {
		l = zap.NewNop()
	}
	return Adapter{s: l.Sugar()}
}

func (a Adapter) Debug(msg string, args ...any) { a.s.Debugw(msg, args...) }
func (a Adapter) Info(msg string, args ...any)  { a.s.Infow(msg, args...) }
func (a Adapter) Warn(msg string, args ...any)  { a.s.Warnw(msg, args...) }
func (a Adapter) Error(msg string, args ...any) { a.s.Errorw(msg, args...) }

// AuditLogger writes service audit entries as structured log lines.
type AuditLogger struct {
	l *zap.Logger
}

// NewAuditLogger returns a recorder logging to l under the "audit" name.
func NewAuditLogger(l *zap.Logger) AuditLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return AuditLogger{l: l.Named("audit")}
}

// Record implements core.AuditRecorder.
func (a AuditLogger) Record(_ context.Context, e core.AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", e.Operation),
		zap.String("status", string(e.Status)),
		zap.Duration("duration", e.Duration),
		zap.Time("timestamp", e.Timestamp),
	}
	if e.Entity != "" {
		fields = append(fields, zap.String("entity", string(e.Entity)))
	}
	if e.EntityID != "" {
		fields = append(fields, zap.String("entity_id", e.EntityID))
	}
	if e.Error != "" {
		a.l.Warn(e.Operation+" failed", append(fields, zap.String("error", e.Error))...)
		return
	}
	a.l.Info(e.Operation, fields...)
}
