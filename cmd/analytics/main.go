// Command analytics runs the solve-event aggregator on its own.
//
// It consumes solve events from Kafka, folds them into running totals
// (solve counts, latency percentiles, truncations, popular and unsolvable
// inputs) and serves them at GET /api/v1/analytics. With analytics.persist
// set it snapshots the totals to SQLite or PostgreSQL and serves recent
// snapshots at GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "HTTP port (defaults to server.port + 1)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port == 0 {
		*port = cfg.Server.Port + 1
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", *port, "topic", cfg.Kafka.Topics.SolveEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	var store *aggregator.Store
	if cfg.Analytics.Persist {
		store, err = aggregator.Open(ctx, cfg)
		if err != nil {
			slog.Error("failed to open analytics store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		if last, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("failed to read last snapshot", "error", err)
		} else if last != nil {
			agg.Restore(*last)
			slog.Info("analytics restored from snapshot", "total_solves", last.TotalSolves)
		}
		checker.Register("store", health.Ping(store.Ping))

		saved := make(chan struct{})
		go func() {
			defer close(saved)
			store.RunPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		}()
		defer func() { <-saved }()
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SolveEvents, analytics.HandleEvent(agg))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		lag := consumer.Lag()
		if lag < 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "lag unknown"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Details: map[string]any{"lag": lag}}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	if store != nil {
		mux.HandleFunc("GET /api/v1/analytics/history", historyHandler(store))
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.CORS(middleware.DefaultCORSConfig())),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}

func historyHandler(store *aggregator.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		snapshots, err := store.ListSnapshots(r.Context(), limit)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			logger.FromContext(r.Context()).Error("listing snapshots", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "failed to list snapshots"})
			return
		}
		json.NewEncoder(w).Encode(snapshots)
	}
}
