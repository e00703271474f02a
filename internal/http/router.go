package httpapi

import (
	"net/http"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/metrics"

	"go.uber.org/zap"
)

// Router wraps http.ServeMux; every route is instrumented by its pattern.
type Router struct {
	mux     *http.ServeMux
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRouter(logger *zap.Logger, m *metrics.Metrics) *Router {
	return &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		metrics: m,
	}
}

// Handle registers h under a "METHOD /path/{wildcard}" pattern.
func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.Handle(pattern, r.instrument(pattern, h))
}

// HandleHandler registers a plain http.Handler without instrumentation (metrics endpoint).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterOps adds the health probe and, when m is set, the prometheus endpoint.
func (r *Router) RegisterOps(metricsPath string) {
	r.Handle("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.metrics != nil && metricsPath != "" {
		r.HandleHandler("GET "+metricsPath, r.metrics.Handler())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (r *Router) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, req)
		r.metrics.HTTPRequest(route, rec.status, time.Since(start))
		r.logger.Debug("http request",
			zap.String("route", route),
			zap.String("path", req.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
