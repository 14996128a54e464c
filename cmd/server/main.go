package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/audit/capture"
	"taskboard/internal/audit/classify"
	"taskboard/internal/audit/emit"
	"taskboard/internal/audit/geo"
	auditmetrics "taskboard/internal/audit/metrics"
	auditmw "taskboard/internal/audit/middleware"
	"taskboard/internal/audit/sanitize"
	auditmemory "taskboard/internal/audit/store/memory"
	auditpostgres "taskboard/internal/audit/store/postgres"
	"taskboard/internal/bruteforce"
	bruteforcemw "taskboard/internal/bruteforce/middleware"
	bfmemory "taskboard/internal/bruteforce/store/memory"
	bfredis "taskboard/internal/bruteforce/store/redis"
	"taskboard/internal/platform/config"
	"taskboard/internal/platform/httpserver"
	"taskboard/internal/platform/logger"
	platformredis "taskboard/internal/platform/redis"
	httptransport "taskboard/internal/transport/http"
	"taskboard/pkg/platform/middleware/auth"
)

// main wires the audit pipeline and brute force engine around the HTTP
// surface. Business logic lives in internal packages; this stays assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	metrics := auditmetrics.New()

	// Audit sink: postgres when configured, else in-memory.
	var sink emit.Sink
	var listRecords func(ctx context.Context, limit int) (any, error)
	var listRecordsByUser func(ctx context.Context, userID string) (any, error)
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store := auditpostgres.New(pool)
		sink = store
		listRecords = func(ctx context.Context, limit int) (any, error) {
			return store.ListRecent(ctx, limit)
		}
		listRecordsByUser = func(ctx context.Context, userID string) (any, error) {
			return store.ListByUser(ctx, userID)
		}
	} else {
		store := auditmemory.New()
		sink = store
		listRecords = func(ctx context.Context, limit int) (any, error) {
			return store.ListRecent(ctx, limit)
		}
		listRecordsByUser = func(ctx context.Context, userID string) (any, error) {
			return store.ListByUser(ctx, userID)
		}
		log.Warn("DATABASE_URL not set, audit records are held in memory only")
	}

	emitter, err := emit.New(sink,
		emit.WithLogger(log),
		emit.WithMetrics(metrics),
		emit.WithQueueSize(cfg.AuditQueueSize),
	)
	if err != nil {
		log.Error("failed to build audit emitter", "error", err)
		os.Exit(1)
	}

	sanitizer := sanitize.New(sanitize.WithLogger(log))
	capturer := capture.New(sanitizer, geo.NopProvider{})
	interceptor := auditmw.New(
		auditmw.Config{LogAllRequests: cfg.LogAllRequests},
		capturer,
		classify.NewDefault(),
		emitter,
		auditmw.WithLogger(log),
		auditmw.WithMetrics(metrics),
	)

	// Brute force counter store: redis when configured, else in-memory
	// (single-process degraded mode).
	var counterStore bruteforce.Store
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, brute force counters degrade to in-memory", "error", err)
	}
	if redisClient != nil {
		counterStore = bfredis.New(redisClient)
		defer redisClient.Close()
	} else {
		counterStore = bfmemory.New()
	}

	engine, err := bruteforce.New(counterStore, bruteforce.WithLogger(log))
	if err != nil {
		log.Error("failed to build brute force engine", "error", err)
		os.Exit(1)
	}
	gate := bruteforcemw.New(engine,
		bruteforcemw.WithLogger(log),
		bruteforcemw.WithMetrics(metrics),
		bruteforcemw.WithAuditor(interceptor),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Auth:       auth.New(cfg.JWTSigningKey),
		Audit:      interceptor,
		BruteForce: gate,
		QueueStats: func() (int, int64) {
			return emitter.QueueLen(), emitter.Dropped()
		},
		RedisHealth:       redisHealth(redisClient),
		ListRecords:       listRecords,
		ListRecordsByUser: listRecordsByUser,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := emitter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting taskboard audit core", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// redisHealth adapts a possibly-nil client to the router's health interface.
func redisHealth(client *platformredis.Client) httptransport.HealthChecker {
	if client == nil {
		return nil
	}
	return client
}
