// Command solver serves anagram decompositions over HTTP (and optionally the
// JSON-over-TCP RPC protocol).
//
// It loads the dictionary once at startup, keeps it hot-reloadable through
// POST /api/v1/dictionary/reload (and a file watch when enabled), runs every
// search on a bounded worker pool and emits one analytics event per request.
//
// Usage:
//
//	go run ./cmd/solver [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/solver"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/solver/handler"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/pool"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/rpc"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting anagram solver",
		"port", cfg.Server.Port,
		"dictionary", cfg.Dictionary.Source,
		"ordering", cfg.Solver.Ordering,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var idx *dictionary.Index
	err = resilience.WithTimeout(ctx, cfg.Dictionary.LoadTimeout, "dictionary-load", func(ctx context.Context) error {
		var err error
		idx, err = dictionary.Load(ctx, cfg.Dictionary.Source)
		return err
	})
	if err != nil {
		slog.Error("failed to load dictionary", "error", err)
		os.Exit(1)
	}
	if path := cfg.Dictionary.SnapshotPath; path != "" {
		if err := dictionary.WriteSnapshot(path, idx); err != nil {
			slog.Warn("failed to write dictionary snapshot", "path", path, "error", err)
		} else {
			slog.Info("dictionary snapshot written", "path", path)
		}
	}
	dict := dictionary.NewHolder(cfg.Dictionary.Source, idx, nil)
	if cfg.Dictionary.Watch {
		go func() {
			err := dict.Watch(ctx, cfg.Dictionary.WatchDebounce)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("dictionary watch stopped", "error", err)
			}
		}()
	}

	norm, err := normalizer.New(cfg.Normalizer.DefaultEncoding)
	if err != nil {
		slog.Error("invalid normalizer config", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	workers := pool.New(cfg.Solver.Workers)
	tracer := tracing.NewTracer(cfg.Tracing.Enabled, cfg.Tracing.SampleRate)
	checker := health.NewChecker()

	opts := []solver.Option{solver.WithMetrics(m), solver.WithTracer(tracer)}
	var stats *analytics.Aggregator
	if cfg.Analytics.Enabled {
		collector, agg, cleanup := startAnalytics(ctx, cfg, m, checker)
		defer cleanup()
		stats = agg
		opts = append(opts, solver.WithTracker(collector))
	}

	svc := solver.New(norm, dict, workers, cfg.Solver, opts...)
	checker.Register("dictionary", svc.DictionaryCheck())
	checker.Register("worker_pool", svc.PoolCheck())

	keys, err := apikey.NewValidator(cfg.Server.AdminKeyHashes)
	if err != nil {
		slog.Error("invalid admin keys", "error", err)
		os.Exit(1)
	}
	if !keys.Enabled() {
		slog.Warn("no admin keys configured, dictionary reload is open")
	}

	mux := http.NewServeMux()
	handler.New(svc, handler.WithAdminGuard(apikey.Require(keys))).Register(mux)
	if stats != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(stats).Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.CORS(corsConfig(cfg.Server.AllowOrigins)),
		middleware.Metrics(m),
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewLimiter(cfg.RateLimit.Window)
		defer limiter.Stop()
		mws = append(mws, middleware.RateLimit(limiter, cfg.RateLimit.Requests))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.RequestTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.RPC.Enabled {
		srv := rpc.NewServer()
		srv.SetTimeout(cfg.Server.RequestTimeout)
		srv.SetObserver(func(method string, _ time.Duration, err error) {
			status := "ok"
			if err != nil {
				status = "error"
			}
			m.RPCRequestsTotal.WithLabelValues(method, status).Inc()
		})
		svc.RegisterRPC(srv)
		if err := srv.Listen(cfg.RPC.Addr); err != nil {
			slog.Error("failed to start rpc listener", "addr", cfg.RPC.Addr, "error", err)
			os.Exit(1)
		}
		go func() {
			if err := srv.Serve(); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
		defer srv.Stop()
		slog.Info("rpc server listening", "addr", srv.Addr().String())
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
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

	slog.Info("anagram solver listening",
		"addr", server.Addr,
		"workers", workers.Size(),
		"words", idx.Len(),
		"health_checks", checker.Names(),
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("anagram solver stopped")
}

// startAnalytics wires the solve-event pipeline. With Kafka enabled events
// go producer -> topic -> consumer -> aggregator; otherwise the collector
// feeds the aggregator directly. The returned cleanup flushes and closes
// everything in reverse order.
func startAnalytics(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checker *health.Checker) (*analytics.Collector, *analytics.Aggregator, func()) {
	agg := analytics.NewAggregator()
	var closers []func()

	breaker := resilience.NewCircuitBreaker("analytics-sink", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	var sink analytics.Sink = agg
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.SolveEvents
		producer := kafka.NewProducer(cfg.Kafka, topic)
		closers = append(closers, func() { producer.Close() })
		sink = analytics.KafkaSink{Producer: producer}
		checker.RegisterOptional("kafka", health.Ping(producer.Ping))

		consumer := kafka.NewConsumer(cfg.Kafka, topic, analytics.HandleEvent(agg))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		slog.Info("analytics routed through kafka", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}

	if cfg.Analytics.Persist {
		store, err := aggregator.Open(ctx, cfg)
		if err != nil {
			slog.Warn("analytics store unavailable, snapshots disabled", "error", err)
		} else {
			if last, err := store.LatestSnapshot(ctx); err != nil {
				slog.Warn("failed to read last analytics snapshot", "error", err)
			} else if last != nil {
				agg.Restore(*last)
			}
			checker.RegisterOptional("analytics_store", health.Ping(store.Ping))

			saveCtx, cancel := context.WithCancel(context.Background())
			saved := make(chan struct{})
			go func() {
				defer close(saved)
				store.RunPeriodicSave(saveCtx, agg, cfg.Analytics.SnapshotInterval)
			}()
			closers = append(closers, func() {
				cancel()
				<-saved
				store.Close()
			})
		}
	}

	collector := analytics.NewCollector(sink, analytics.CollectorConfig{
		BufferSize:    cfg.Analytics.BufferSize,
		BatchSize:     cfg.Analytics.BatchSize,
		FlushInterval: cfg.Analytics.FlushInterval,
		Breaker:       breaker,
		OnDrop:        func(n int) { m.AnalyticsDropped.Add(float64(n)) },
	})
	collector.Start(ctx)

	cleanup := func() {
		collector.Close()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return collector, agg, cleanup
}

func corsConfig(origins []string) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(origins) > 0 {
		c.AllowOrigins = origins
	}
	return c
}
