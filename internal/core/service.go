package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"atlas/internal/infra/persistence/memory"
	"atlas/internal/storage"
	"atlas/pkg/domain"
)

// Analyzer produces a report for a supplement stack.
type Analyzer interface {
	AnalyzeSupplements(ctx context.Context, supplements []domain.Supplement, profile domain.UserProfile) (*domain.SupplementAnalysis, error)
}

var (
	// ErrNoSupplements is returned when analysis is requested for an empty stack.
	ErrNoSupplements = errors.New("add supplements to your stack first")
	// ErrNoAnalyzer is returned by Analyze when no analyzer was configured.
	ErrNoAnalyzer = errors.New("analysis is not configured")
)

// Service keeps an in-memory State in step with storage and exposes the
// mutating operations. Every successful write reaches State through the
// storage notification, so State only tracks storage after Start.
type Service struct {
	store    *storage.Storage
	engine   *domain.RulesEngine
	analyzer Analyzer
	clock    Clock
	logger   Logger
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer

	mu      sync.RWMutex
	state   State
	applied uint64 // sequence of the load State reflects

	loadSeq atomic.Uint64
	// writeMu spans a rules check and the write it guards.
	writeMu sync.Mutex

	lifeMu      sync.Mutex
	unsubscribe func()
	baseCtx     context.Context

	watchMu   sync.Mutex
	watchers  []stateWatcher
	nextWatch uint64
}

type stateWatcher struct {
	id uint64
	fn func(State)
}

// NewService constructs a service backed by the supplied storage.
func NewService(store *storage.Storage, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = NewDefaultRulesEngine()
	}
	return &Service{
		store:    store,
		engine:   o.engine,
		analyzer: o.analyzer,
		clock:    o.clock,
		logger:   o.logger,
		audit:    o.audit,
		metrics:  o.metrics,
		tracer:   o.tracer,
		state:    initialState(),
		baseCtx:  context.Background(),
	}
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(storage.New(memory.NewStore()), opts...)
}

// Storage returns the underlying storage.
func (s *Service) Storage() *storage.Storage { return s.store }

// Start loads every collection and begins following storage changes. Calling
// Start on a running service only reloads.
func (s *Service) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	if s.unsubscribe == nil {
		s.baseCtx = context.WithoutCancel(ctx)
		s.unsubscribe = s.store.Subscribe(s.onStorageChange)
	}
	s.lifeMu.Unlock()
	return s.run(ctx, opReload, func(ctx context.Context) (string, error) {
		return "", s.load(ctx)
	})
}

// Close stops following storage changes.
func (s *Service) Close() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Service) running() (context.Context, bool) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.baseCtx, s.unsubscribe != nil
}

func (s *Service) onStorageChange(change domain.Change) {
	ctx, ok := s.running()
	if !ok {
		return
	}
	s.logger.Debug("storage changed", "key", change.Key, "action", string(change.Action))
	_ = s.run(ctx, opReload, func(ctx context.Context) (string, error) {
		return "", s.load(ctx)
	})
}

// load reads all four collections and replaces State with them. Loads may
// overlap; a load that started before the last applied one is discarded so
// State never moves back to older data.
func (s *Service) load(ctx context.Context) error {
	seq := s.loadSeq.Add(1)
	s.setState(func(st *State) {
		st.IsLoading = true
		st.Error = ""
	})
	var (
		supplements []domain.Supplement
		products    []domain.Product
		profile     domain.UserProfile
		record      domain.AnalysisRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		supplements, err = s.store.Supplements().List(gctx)
		return err
	})
	g.Go(func() (err error) {
		products, err = s.store.Products().List(gctx)
		return err
	})
	g.Go(func() (err error) {
		profile, err = s.store.Profile().Get(gctx)
		return err
	})
	g.Go(func() (err error) {
		record, err = s.store.Analysis().Get(gctx)
		return err
	})
	err := g.Wait()
	s.applyLoad(seq, func(st *State) {
		st.IsLoading = false
		if err != nil {
			st.Error = err.Error()
			return
		}
		st.Supplements = supplements
		st.Products = products
		st.Profile = profile
		st.Analysis = record.Analysis
		st.LastAnalyzedAt = record.LastAnalyzedAt
		st.Error = ""
	})
	return err
}

// applyLoad is setState for the result of load seq. Results older than the
// last applied load are dropped.
func (s *Service) applyLoad(seq uint64, mutate func(*State)) {
	s.mu.Lock()
	if applied := s.applied; seq < applied {
		s.mu.Unlock()
		s.logger.Debug("dropping stale reload", "seq", seq, "applied", applied)
		return
	}
	s.applied = seq
	mutate(&s.state)
	snapshot := s.state.clone()
	s.mu.Unlock()
	s.publish(snapshot)
}

// Refresh reloads State from storage.
func (s *Service) Refresh(ctx context.Context) error {
	return s.run(ctx, opRefresh, func(ctx context.Context) (string, error) {
		return "", s.load(ctx)
	})
}

// State returns a copy of the current state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Supplements returns the supplement view of State.
func (s *Service) Supplements() SupplementsView {
	st := s.State()
	return SupplementsView{Supplements: st.Supplements, IsLoading: st.IsLoading, Error: st.Error}
}

// Products returns the product view of State.
func (s *Service) Products() ProductsView {
	st := s.State()
	return ProductsView{Products: st.Products, IsLoading: st.IsLoading, Error: st.Error}
}

// Profile returns the profile view of State.
func (s *Service) Profile() ProfileView {
	st := s.State()
	return ProfileView{Profile: st.Profile, IsLoading: st.IsLoading, Error: st.Error}
}

// AnalysisView returns the analysis view of State.
func (s *Service) AnalysisView() AnalysisView {
	st := s.State()
	return AnalysisView{Analysis: st.Analysis, LastAnalyzedAt: st.LastAnalyzedAt, IsLoading: st.IsLoading, Error: st.Error}
}

// Dashboard summarizes the current State.
func (s *Service) Dashboard() Dashboard {
	return s.State().Dashboard(s.clock.Now())
}

// Subscribe registers fn to receive a copy of State after every transition. The
// returned function stops delivery. fn runs on the goroutine that changed
// State and must not call the service's mutating methods.
func (s *Service) Subscribe(fn func(State)) (unsubscribe func()) {
	s.watchMu.Lock()
	s.nextWatch++
	id := s.nextWatch
	s.watchers = append(s.watchers, stateWatcher{id: id, fn: fn})
	s.watchMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.watchMu.Lock()
			defer s.watchMu.Unlock()
			for i, w := range s.watchers {
				if w.id == id {
					s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Service) setState(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.state.clone()
	s.mu.Unlock()
	s.publish(snapshot)
}

func (s *Service) publish(snapshot State) {
	s.watchMu.Lock()
	watchers := make([]stateWatcher, len(s.watchers))
	copy(watchers, s.watchers)
	s.watchMu.Unlock()
	for _, w := range watchers {
		w.fn(snapshot.clone())
	}
}

// begin marks the start of an operation. Collection writes and analysis also
// raise IsLoading.
func (s *Service) begin(loading bool) {
	s.setState(func(st *State) {
		st.Error = ""
		if loading {
			st.IsLoading = true
		}
	})
}

// fail records err in State. Collection writes and analysis also drop IsLoading.
func (s *Service) fail(err error, loading bool) {
	s.setState(func(st *State) {
		st.Error = err.Error()
		if loading {
			st.IsLoading = false
		}
	})
}

// guarded runs a rules check and its write under writeMu so no other checked
// write can land in between.
func (s *Service) guarded(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

// evaluate runs the rules engine against a pending mutation.
func (s *Service) evaluate(ctx context.Context, m domain.Mutation) (Result, error) {
	supplements, err := s.store.Supplements().List(ctx)
	if err != nil {
		return Result{}, err
	}
	products, err := s.store.Products().List(ctx)
	if err != nil {
		return Result{}, err
	}
	res, err := s.engine.Evaluate(ctx, ruleView{supplements: supplements, products: products}, []domain.Mutation{m})
	if err != nil {
		return Result{}, err
	}
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("rule warning", "rule", v.Rule, "message", v.Message, "entity_id", v.EntityID)
		}
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}
	return res, nil
}
