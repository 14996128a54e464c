// Package http assembles the middleware chain around the host application's
// routes. The CRUD handlers here are demonstration stubs: the audit core
// wraps whatever the real application mounts in their place.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditmw "taskboard/internal/audit/middleware"
	bruteforcemw "taskboard/internal/bruteforce/middleware"
	"taskboard/pkg/platform/middleware/auth"
	"taskboard/pkg/platform/middleware/metadata"
	"taskboard/pkg/platform/middleware/requesttime"
	"taskboard/pkg/requestcontext"
)

// HealthChecker reports backing-store reachability for the health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs. Nil optional fields disable the
// corresponding surface.
type Deps struct {
	Auth        *auth.Middleware
	Audit       *auditmw.Interceptor
	BruteForce  *bruteforcemw.Middleware
	QueueStats  func() (depth int, dropped int64)
	RedisHealth HealthChecker

	// Admin read surface. ListRecords serves the unfiltered view;
	// ListRecordsByUser serves ?user_id= queries.
	ListRecords       func(ctx context.Context, limit int) (any, error)
	ListRecordsByUser func(ctx context.Context, userID string) (any, error)
}

// NewRouter builds the full chain: request time and client metadata first,
// then identity, then the audit interceptor around everything, with the
// brute force gate only on authentication routes.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(requestIDToContext)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if deps.Auth != nil {
		r.Use(deps.Auth.Handler)
	}
	r.Use(deps.Audit.Handler)

	// Unaudited operational surface (matched by the interceptor skip rules).
	r.Get("/health", healthHandler(deps.RedisHealth))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/v1/security/status", securityStatusHandler(deps.QueueStats))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if deps.BruteForce != nil {
				r.Use(deps.BruteForce.Gate)
			}
			r.Post("/login", stubUnauthorized)
			r.Post("/logout", stubOK)
			r.Post("/register", stubOK)
			r.Post("/refresh", stubOK)
			r.Post("/forgot-password", stubOK)
			r.Post("/reset-password", stubOK)
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Post("/", stubOK)
			r.Patch("/{id}", stubOK)
			r.Delete("/{id}", stubOK)
			r.Post("/{id}/members", stubOK)
			r.Delete("/{id}/members/{memberId}", stubOK)
		})
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", stubOK)
			r.Patch("/{id}", stubOK)
			r.Delete("/{id}", stubOK)
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", stubOK)
			r.Post("/bulk", stubOK)
			r.Get("/export", stubOK)
			r.Patch("/{id}", stubOK)
			r.Delete("/{id}", stubOK)
		})

		if deps.ListRecords != nil {
			r.Get("/audit/records", auditRecordsHandler(deps.ListRecords, deps.ListRecordsByUser))
		}
	})

	return r
}

// requestIDToContext copies chi's request ID into the project context so
// services stay free of chi imports.
func requestIDToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := chimiddleware.GetReqID(r.Context())
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func healthHandler(redis HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if redis != nil {
			if err := redis.Health(r.Context()); err != nil {
				status["redis"] = "degraded"
				code = http.StatusServiceUnavailable
			} else {
				status["redis"] = "ok"
			}
		}
		writeJSON(w, code, status)
	}
}

func securityStatusHandler(stats func() (int, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		depth, dropped := 0, int64(0)
		if stats != nil {
			depth, dropped = stats()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"audit_queue_depth":     depth,
			"audit_records_dropped": dropped,
		})
	}
}

func auditRecordsHandler(list func(ctx context.Context, limit int) (any, error), listByUser func(ctx context.Context, userID string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.Role(r.Context()) != "admin" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
			return
		}
		var records any
		var err error
		if userID := r.URL.Query().Get("user_id"); userID != "" && listByUser != nil {
			records, err = listByUser(r.Context(), userID)
		} else {
			records, err = list(r.Context(), 100)
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list audit records"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": records})
	}
}

func stubOK(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// stubUnauthorized stands in for the host's login handler; the audit core
// never verifies credentials itself.
func stubUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "invalid credentials",
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
