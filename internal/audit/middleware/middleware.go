// Package middleware is the audit pipeline's entry point: an interceptor
// that snapshots each request/response pair, classifies it, and hands the
// assembled record to the emitter. Nothing in here is allowed to fail the
// request it observes.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"taskboard/internal/audit/capture"
	"taskboard/internal/audit/classify"
	"taskboard/internal/audit/emit"
	"taskboard/internal/audit/metrics"
	"taskboard/internal/audit/taxonomy"
)

// skipPrefixes are excluded before any capture work: health checks, metrics
// scrapes and the security status endpoint would otherwise dominate the
// audit trail with noise.
var skipPrefixes = []string{
	"/health",
	"/metrics",
	"/favicon.ico",
	"/api/v1/security/status",
}

// streamingMarkers identify SSE/streaming endpoints whose responses never
// finalize in the usual sense.
var streamingMarkers = []string{
	"/stream",
	"/events",
}

// Config controls interceptor behavior.
type Config struct {
	// LogAllRequests records requests that match no classification rule as
	// generic api.request events instead of dropping them.
	LogAllRequests bool
}

// Interceptor wires the capture, classify and emit stages into a chi-style
// middleware. One invocation owns its snapshots end to end.
type Interceptor struct {
	cfg        Config
	capturer   *capture.Capturer
	classifier *classify.Classifier
	emitter    *emit.Emitter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Interceptor)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Interceptor) {
		i.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Interceptor) {
		i.metrics = m
	}
}

func New(cfg Config, capturer *capture.Capturer, classifier *classify.Classifier, emitter *emit.Emitter, opts ...Option) *Interceptor {
	i := &Interceptor{
		cfg:        cfg,
		capturer:   capturer,
		classifier: classifier,
		emitter:    emitter,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Handler returns the three-phase interceptor: request capture before the
// handler, response capture and deferred emission after, and a panic
// observer in between. The panic is re-raised for the host's recoverer.
func (i *Interceptor) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ShouldSkip(r) {
			i.metrics.IncSkipped()
			next.ServeHTTP(w, r)
			return
		}

		req := i.captureRequest(r)
		if req == nil {
			next.ServeHTTP(w, r)
			return
		}

		rec := capture.NewRecorder(w)

		defer func() {
			if p := recover(); p != nil {
				rec.WriteHeader(http.StatusInternalServerError)
				i.finalize(req, rec)
				panic(p)
			}
		}()

		next.ServeHTTP(rec, r)
		i.finalize(req, rec)
	})
}

// captureRequest runs the request-side capture behind a recover so a capture
// bug degrades to an unaudited request, never a failed one.
func (i *Interceptor) captureRequest(r *http.Request) (snapshot *capture.RequestSnapshot) {
	defer func() {
		if p := recover(); p != nil {
			i.logger.Error("audit request capture panicked", "panic", p, "path", r.URL.Path)
			snapshot = nil
		}
	}()
	return i.capturer.Request(r)
}

// finalize runs the response capture, classification and emission. Same
// containment rule: log and move on, the response is already on the wire.
func (i *Interceptor) finalize(req *capture.RequestSnapshot, rec *capture.Recorder) {
	defer func() {
		if p := recover(); p != nil {
			i.logger.Error("audit finalization panicked", "panic", p, "path", req.Path)
		}
	}()

	resp := i.capturer.Response(rec, req.Timestamp)

	cls := i.classifier.Classify(classify.Input{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: resp.StatusCode,
		Body:       req.Body,
		Query:      req.Query,
	})

	if cls.EventType == "" {
		if !i.cfg.LogAllRequests {
			i.metrics.IncSkipped()
			return
		}
		cls.EventType = taxonomy.EventAPIRequest
	}

	i.emitter.Emit(emit.BuildRecord(req, resp, cls))
}

// ShouldSkip reports whether a request is excluded from auditing entirely.
// Evaluated before any capture work to avoid wasted cost.
func ShouldSkip(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	for _, marker := range streamingMarkers {
		if strings.Contains(r.URL.Path, marker) {
			return true
		}
	}
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	return false
}
