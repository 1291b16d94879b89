package core

import (
	"context"
	"time"

	"atlas/pkg/domain"
)

// Logger is the structured logging contract used by the service. Arguments
// after msg are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation's error (nil on success).
type TraceSpan interface {
	End(err error)
}

// AuditStatus is the outcome recorded in an audit entry.
type AuditStatus string

// Audit statuses.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one completed mutating operation.
type AuditEntry struct {
	Operation string            `json:"operation"`
	Entity    domain.EntityType `json:"entity,omitempty"`
	Action    domain.Action     `json:"action,omitempty"`
	EntityID  string            `json:"entityId,omitempty"`
	Status    AuditStatus       `json:"status"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
}

// AuditRecorder persists or forwards audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type operationMeta struct {
	entity domain.EntityType
	action domain.Action
}

// operations lists the audited operations. Reads and refreshes are traced and
// timed but not audited.
var operations = map[string]operationMeta{
	opAddSupplement:    {domain.EntitySupplement, domain.ActionCreate},
	opUpdateSupplement: {domain.EntitySupplement, domain.ActionUpdate},
	opRemoveSupplement: {domain.EntitySupplement, domain.ActionDelete},
	opAddProduct:       {domain.EntityProduct, domain.ActionCreate},
	opUpdateProduct:    {domain.EntityProduct, domain.ActionUpdate},
	opRemoveProduct:    {domain.EntityProduct, domain.ActionDelete},
	opUpdateProfile:    {domain.EntityProfile, domain.ActionUpdate},
	opSetProfile:       {domain.EntityProfile, domain.ActionUpdate},
	opAnalyze:          {domain.EntityAnalysis, domain.ActionCreate},
	opClearAnalysis:    {domain.EntityAnalysis, domain.ActionDelete},
	opClearStorage:     {"", domain.ActionDelete},
}

const (
	opAddSupplement    = "add_supplement"
	opUpdateSupplement = "update_supplement"
	opRemoveSupplement = "remove_supplement"
	opAddProduct       = "add_product"
	opUpdateProduct    = "update_product"
	opRemoveProduct    = "remove_product"
	opUpdateProfile    = "update_profile"
	opSetProfile       = "set_profile"
	opAnalyze          = "analyze"
	opClearAnalysis    = "clear_analysis"
	opClearStorage     = "clear_storage"
	opRefresh          = "refresh"
	opReload           = "reload"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// run wraps an operation with tracing, metrics, logging and audit. fn returns
// the id of the affected entity when there is one.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (string, error)) error {
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	entityID, err := fn(ctx)
	span.End(err)
	duration := s.clock.Now().Sub(started)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
		s.recordAuditError(ctx, op, entityID, duration, err)
		return err
	}
	s.logger.Debug("operation completed", "operation", op, "entity_id", entityID, "duration", duration)
	s.recordAuditSuccess(ctx, op, entityID, duration)
	return nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, duration, nil)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, entityID, duration, err)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	meta, ok := operations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now().UTC(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
