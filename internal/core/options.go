package core

import (
	"time"

	"atlas/pkg/domain"
)

// Option customizes a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	clock    Clock
	logger   Logger
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	engine   *domain.RulesEngine
	analyzer Analyzer
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
}

// WithClock overrides the clock used for analysis timestamps and audit entries.
func WithClock(clock Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithRulesEngine replaces the default rules engine. Pass domain.NewRulesEngine()
// to disable validation entirely.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(o *serviceOptions) {
		if engine != nil {
			o.engine = engine
		}
	}
}

// WithRule appends a rule to the engine in use.
func WithRule(rule domain.Rule) Option {
	return func(o *serviceOptions) {
		if rule == nil {
			return
		}
		if o.engine == nil {
			o.engine = NewDefaultRulesEngine()
		}
		o.engine.Register(rule)
	}
}

// WithAnalyzer sets the AI analyzer used by Analyze.
func WithAnalyzer(analyzer Analyzer) Option {
	return func(o *serviceOptions) {
		if analyzer != nil {
			o.analyzer = analyzer
		}
	}
}
