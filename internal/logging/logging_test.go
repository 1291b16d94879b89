package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"atlas/internal/core"
)

var (
	_ core.Logger        = Adapter{}
	_ core.AuditRecorder = AuditLogger{}
)

func TestNewHonorsLevel(t *testing.T) {
	logger, err := New(Config{Level: "warn", Format: "console"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info to be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected error to be enabled")
	}

	if _, err := New(Config{}); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Fatalf("expected invalid format error")
	}
}

func TestAdapterWritesFields(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	a := NewAdapter(zap.New(obs))

	a.Debug("operation completed", "operation", "add_supplement")
	a.Error("operation failed", "operation", "analyze", "error", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[0].ContextMap()["operation"] != "add_supplement" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Level != zapcore.ErrorLevel || entries[1].ContextMap()["error"] != "boom" {
		t.Fatalf("unexpected second entry %+v", entries[1].ContextMap())
	}
}

func TestNilAdapterDiscards(t *testing.T) {
	NewAdapter(nil).Info("nothing", "k", "v")
}

func TestAuditLogger(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	a := NewAuditLogger(zap.New(obs))
	ctx := context.Background()

	a.Record(ctx, core.AuditEntry{Operation: "add_supplement", Entity: "supplement", EntityID: "sup_1", Status: core.AuditStatusSuccess, Duration: time.Millisecond})
	a.Record(ctx, core.AuditEntry{Operation: "clear_storage", Status: core.AuditStatusError, Error: "disk full"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.LoggerName != "audit" || first.Message != "add_supplement" || first.ContextMap()["entity_id"] != "sup_1" {
		t.Fatalf("unexpected success entry %+v", first)
	}
	second := entries[1]
	if second.Level != zapcore.WarnLevel || second.Message != "clear_storage failed" || second.ContextMap()["error"] != "disk full" {
		t.Fatalf("unexpected failure entry %+v", second)
	}
	if _, ok := second.ContextMap()["entity"]; ok {
		t.Fatalf("empty entity must be omitted")
	}
}
