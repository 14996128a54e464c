// Package middleware gates authentication-class endpoints with the brute
// force decision engine: block check first, then progressive delay, then the
// attempt itself. Outcomes feed back into the engine and out through the
// audit emitter.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"taskboard/internal/audit/capture"
	"taskboard/internal/audit/metrics"
	"taskboard/internal/audit/taxonomy"
	"taskboard/internal/bruteforce"
	"taskboard/pkg/platform/privacy"
	"taskboard/pkg/requestcontext"
)

// ViolationRecorder routes engine decisions through the audit emitter.
// A statusCode of 0 records a decision that did not terminate the request
// (delay applied, captcha transition).
type ViolationRecorder interface {
	RecordViolation(r *http.Request, statusCode int, eventType taxonomy.EventType, reason string)
}

type Middleware struct {
	engine  *bruteforce.Service
	auditor ViolationRecorder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Middleware)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mx
	}
}

func WithAuditor(auditor ViolationRecorder) Option {
	return func(m *Middleware) {
		m.auditor = auditor
	}
}

func New(engine *bruteforce.Service, opts ...Option) *Middleware {
	m := &Middleware{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Gate wraps an authentication endpoint. The block check is the first check
// on every gated request; the delay is the single intentional synchronous
// wait in the platform, applied before routing proceeds.
//
// If the counter store is unavailable the gate fails open: the protective
// layer yields to availability of the primary feature, at WARN.
func (m *Middleware) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identifier, _ := bruteforce.Key(requestcontext.UserID(ctx), requestcontext.ClientIP(ctx))

		decision, err := m.engine.Check(ctx, identifier)
		if err != nil {
			m.logger.Warn("brute force check degraded, failing open",
				"error", err,
				"ip_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
			)
			next.ServeHTTP(w, r)
			return
		}

		if !decision.Allowed {
			m.metrics.IncBlocks()
			m.recordViolation(r, http.StatusForbidden, taxonomy.EventSecurityBruteForceBlock, decision.Block.Reason)
			writeBlocked(w, decision)
			return
		}

		if decision.RequiresCaptcha {
			w.Header().Set("X-Captcha-Required", "true")
		}

		if decision.Delay > 0 {
			m.metrics.IncDelays()
			m.recordViolation(r, 0, taxonomy.EventSecurityProgressiveDelay, "progressive delay applied")
			if !m.pause(ctx, decision.Delay) {
				return // client gone
			}
		}

		rec := capture.NewRecorder(w)
		next.ServeHTTP(rec, r)

		m.observeOutcome(r, identifier, rec.Status())
	})
}

// observeOutcome updates counters from the attempt's final status. Failures
// are 401/403 responses; a successful attempt clears the identifier.
func (m *Middleware) observeOutcome(r *http.Request, identifier string, status int) {
	ctx := r.Context()

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		state, err := m.engine.RecordFailure(ctx, identifier)
		if err != nil {
			m.logger.Warn("failed to record auth failure", "error", err)
			return
		}
		m.recordViolation(r, status, taxonomy.EventSecurityAccessDenied, "authentication failed")
		if state.CaptchaTriggered {
			m.recordViolation(r, 0, taxonomy.EventSecurityCaptchaRequired, "failure threshold reached")
		}
		if state.BlockTriggered {
			m.metrics.IncBlocks()
			m.recordViolation(r, 0, taxonomy.EventSecurityBruteForceBlock, state.Block.Reason)
		}
	case status >= 200 && status < 300:
		if err := m.engine.Clear(ctx, identifier); err != nil {
			m.logger.Warn("failed to clear failure counters", "error", err)
		}
	}
}

// pause sleeps for the computed delay, giving up early if the client
// disconnects. Returns false when the request is gone.
func (m *Middleware) pause(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (m *Middleware) recordViolation(r *http.Request, status int, eventType taxonomy.EventType, reason string) {
	if m.auditor != nil {
		m.auditor.RecordViolation(r, status, eventType, reason)
	}
}

func writeBlocked(w http.ResponseWriter, decision *bruteforce.Decision) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":       "temporarily_blocked",
		"reason":      decision.Block.Reason,
		"retry_after": decision.RetryAfter,
	})
}
