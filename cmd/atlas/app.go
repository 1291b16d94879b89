package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"atlas/internal/ai"
	"atlas/internal/blob"
	"atlas/internal/config"
	"atlas/internal/core"
	"atlas/internal/labels"
	"atlas/internal/logging"
	"atlas/internal/notify"
	"atlas/internal/persistence"
	"atlas/internal/storage"
	"atlas/pkg/domain"
)

// app is the wired process: configuration, storage, service and the
// optional collaborators each command needs.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	kv       domain.KVStore
	store    *storage.Storage
	svc      *core.Service
	registry *prometheus.Registry
	scanner  *labels.Scanner
	bus      *notify.RedisBus
}

type appOptions struct {
	// metrics registers Prometheus and expvar recorders.
	metrics bool
	// labels opens the blob store and builds the label scanner.
	labels bool
	trace  bool
}

func openApp(ctx context.Context, flags *globalFlags, opts appOptions) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	opts.trace = flags.trace
	if err := a.open(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context, opts appOptions) error {
	kv, err := persistence.Open(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.kv = kv
	a.store = storage.New(kv, storage.WithLogger(a.logger.Named("storage")))

	gen, err := a.generator(ctx)
	if err != nil {
		return err
	}
	aiOpts := []ai.Option{ai.WithTimeout(a.cfg.AI.Timeout)}

	svcOpts := []core.Option{
		core.WithLogger(logging.NewAdapter(a.logger.Named("service"))),
		core.WithAuditRecorder(logging.NewAuditLogger(a.logger)),
		core.WithAnalyzer(ai.NewAnalyzer(gen, append(aiOpts, ai.WithModel(a.cfg.AI.TextModel))...)),
	}
	if opts.trace {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(os.Stderr)))
	}
	if opts.metrics {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, core.WithMetricsRecorder(core.MultiMetricsRecorder{prom, core.NewExpvarMetricsRecorder("atlas_service")}))
	}
	a.svc = core.NewService(a.store, svcOpts...)

	if opts.labels {
		blobs, err := blob.Open(ctx, a.cfg.Blob)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		extractor := ai.NewExtractor(gen, append(aiOpts, ai.WithModel(a.cfg.AI.VisionModel))...)
		a.scanner = labels.NewScanner(blobs, extractor, nil, labels.WithLogger(a.logger.Named("labels")))
	}

	if err := a.svc.Start(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	return nil
}

// generator returns nil without an API key; analysis and label reading then
// fail with the API configuration message.
func (a *app) generator(ctx context.Context) (ai.Generator, error) {
	gen, err := ai.NewGenAIGenerator(ctx, a.cfg.AI.APIKey, a.cfg.AI.TextModel)
	switch {
	case errors.Is(err, ai.ErrAPIKeyMissing):
		a.logger.Warn("no AI API key configured; analysis and label scanning are disabled")
		return nil, nil
	case err != nil:
		return nil, err
	}
	a.logger.Debug("AI generator ready", zap.String("generator", gen.Name()))
	return gen, nil
}

// relay connects to Redis when configured. It returns nil when disabled.
func (a *app) relay(ctx context.Context) (*notify.Relay, error) {
	if !a.cfg.Redis.Enabled() {
		return nil, nil
	}
	bus, err := notify.NewRedisBus(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.bus = bus
	return notify.NewRelay(bus, a.store, a.svc,
		notify.WithChannel(a.cfg.Redis.Channel),
		notify.WithLogger(a.logger.Named("notify"))), nil
}

func (a *app) Close() {
	if a.svc != nil {
		a.svc.Close()
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.logger.Warn("close storage", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
