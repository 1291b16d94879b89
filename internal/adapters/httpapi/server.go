// Package httpapi serves the tracker over JSON HTTP and streams state changes
// over a WebSocket.
package httpapi

import (
	"bufio"
	"expvar"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"atlas/internal/core"
	"atlas/internal/labels"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScanner enables the label routes.
func WithScanner(sc *labels.Scanner) Option {
	return func(s *Server) { s.scanner = sc }
}

// WithRegistry registers the HTTP collectors with reg and serves reg on
// /metrics. Without it the server uses a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// Server routes API requests to the service.
type Server struct {
	svc      *core.Service
	scanner  *labels.Scanner
	logger   *zap.Logger
	registry *prometheus.Registry
	upgrader websocket.Upgrader

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New builds a server for svc.
func New(svc *core.Service, opts ...Option) (*Server, error) {
	s := &Server{
		svc:      svc,
		logger:   zap.NewNop(),
		registry: prometheus.NewRegistry(),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atlas",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "atlas",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, c := range []prometheus.Collector{s.requests, s.latency} {
		if err := s.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.observe, middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Handle("/debug/vars", expvar.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Get("/dashboard", s.getDashboard)
		r.Get("/events", s.streamEvents)
		r.Post("/refresh", s.refresh)
		r.Delete("/storage", s.clearStorage)

		r.Route("/supplements", func(r chi.Router) {
			r.Get("/", s.listSupplements)
			r.Post("/", s.addSupplement)
			r.Patch("/{id}", s.updateSupplement)
			r.Delete("/{id}", s.removeSupplement)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Post("/", s.addProduct)
			r.Patch("/{id}", s.updateProduct)
			r.Delete("/{id}", s.removeProduct)
		})
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", s.getProfile)
			r.Put("/", s.setProfile)
			r.Patch("/", s.updateProfile)
		})
		r.Route("/analysis", func(r chi.Router) {
			r.Get("/", s.getAnalysis)
			r.Post("/", s.runAnalysis)
			r.Delete("/", s.clearAnalysis)
		})
		r.Route("/labels", func(r chi.Router) {
			r.Post("/scan", s.scanLabel)
			r.Get("/draft", s.getDraft)
			r.Delete("/draft", s.discardDraft)
			r.Post("/commit", s.commitDraft)
		})
		r.Route("/presets", func(r chi.Router) {
			r.Get("/", s.listPresets)
			r.Post("/{index}/load", s.loadPreset)
		})
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Hijack passes the connection through for WebSocket upgrades.
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		s.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		s.latency.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
