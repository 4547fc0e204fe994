// Package solver is the boundary every transport calls: it normalizes the
// input, runs one bounded search on a worker slot against the current
// dictionary generation and assembles the outward response.
package solver

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/diagnostics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/pool"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/tracing"
)

// Request is one decomposition request. Text holds the raw bytes as
// received; Encoding names their encoding and may be empty. Zero limits use
// the configured bounds; larger ones are clamped to them.
type Request struct {
	Text       []byte
	Encoding   string
	MaxWords   int
	MaxResults int
}

// Tracker receives one analytics event per request.
type Tracker interface {
	Track(analytics.SolveEvent)
}

// DictionaryInfo describes the generation currently serving requests.
type DictionaryInfo struct {
	dictionary.Stats
	Version  uint64    `json:"version"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithTracer(t *tracing.Tracer) Option { return func(s *Service) { s.tracer = t } }

func WithTracker(t Tracker) Option { return func(s *Service) { s.tracker = t } }

type Service struct {
	normalizer *normalizer.Normalizer
	dict       *dictionary.Holder
	pool       *pool.Pool
	cfg        config.SolverConfig
	metrics    *metrics.Metrics
	tracer     *tracing.Tracer
	tracker    Tracker
	logger     *slog.Logger
}

func New(n *normalizer.Normalizer, dict *dictionary.Holder, p *pool.Pool, cfg config.SolverConfig, opts ...Option) *Service {
	s := &Service{
		normalizer: n,
		dict:       dict,
		pool:       p,
		cfg:        cfg,
		logger:     slog.Default().With("component", "solver"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil {
		s.observeGeneration(dict.Current())
		dict.OnSwap(s.observeGeneration)
	}
	return s
}

// Decompose runs one request. Input that fails validation still yields a
// response, with empty results and the reason in Debug.Error. The only
// error is ctx ending while the request waits for a worker.
func (s *Service) Decompose(ctx context.Context, req Request) (*diagnostics.Response, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "solver")
	ctx, span := s.tracer.StartSpan(ctx, "decompose", logger.RequestID(ctx))
	defer s.tracer.Finish(span)

	_, nspan := tracing.StartChildSpan(ctx, "normalize")
	norm := s.normalizer.Normalize(req.Text, req.Encoding)
	nspan.SetAttr("letters", norm.Letters.Len())
	nspan.End()

	gen := s.dict.Current()
	if norm.Err != nil {
		log.Debug("input rejected", "encoding", norm.Record.Encoding, "error", norm.Err)
		s.countOutcome("invalid_encoding")
		s.track(ctx, analytics.SolveEvent{
			Type:              analytics.EventInvalidEncoding,
			Encoding:          norm.Record.Encoding,
			LatencyUs:         time.Since(start).Microseconds(),
			DictionaryVersion: gen.Version,
		})
		return diagnostics.Empty(norm.Record), nil
	}
	if norm.Letters.IsEmpty() {
		s.countOutcome("no_results")
		return diagnostics.Empty(norm.Record), nil
	}

	cfg := s.engineConfig(req)
	var out engine.Outcome
	_, qspan := tracing.StartChildSpan(ctx, "queue")
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		qspan.End()
		s.observePool()

		if s.cfg.SearchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.SearchTimeout)
			defer cancel()
		}
		ctx, sspan := tracing.StartChildSpan(ctx, "search")
		out = engine.New(gen.Index, cfg).Decompose(ctx, norm.Letters)
		sspan.SetAttr("nodes", out.Stats.Nodes)
		sspan.SetAttr("results", len(out.Results))
		sspan.End()
		return nil
	})
	s.observePool()
	if err != nil {
		qspan.End()
		log.Warn("request not scheduled", "error", err, "waiting", s.pool.Waiting())
		s.countOutcome("rejected")
		return nil, err
	}

	stats := diagnostics.SearchStats{
		Letters:     norm.Letters.Len(),
		Nodes:       out.Stats.Nodes,
		Candidates:  out.Stats.Candidates,
		Scanned:     out.Stats.Scanned,
		MemoHits:    out.Stats.MemoHits,
		MemoEntries: out.Stats.MemoEntries,
		MaxDepth:    out.Stats.MaxDepth,
		ElapsedMs:   float64(out.Stats.Elapsed.Microseconds()) / 1000,
	}
	resp := diagnostics.Build(norm.Record, out.Words(), out.Truncated, string(out.Reason), stats)

	s.observeSearch(out)
	if out.Truncated {
		log.Info("search truncated", "reason", out.Reason, "results", len(out.Results), "nodes", out.Stats.Nodes)
	}
	log.Debug("decompose completed",
		"letters", stats.Letters,
		"results", resp.Count,
		"nodes", stats.Nodes,
		"elapsed_ms", stats.ElapsedMs,
	)
	s.track(ctx, analytics.SolveEvent{
		Type:              analytics.EventSolve,
		Letters:           norm.Canonical,
		LetterCount:       stats.Letters,
		Encoding:          norm.Record.Encoding,
		Results:           resp.Count,
		Truncated:         out.Truncated,
		Reason:            string(out.Reason),
		Nodes:             stats.Nodes,
		MemoHits:          stats.MemoHits,
		LatencyUs:         time.Since(start).Microseconds(),
		DictionaryVersion: gen.Version,
	})
	return resp, nil
}

// Dictionary describes the generation new requests will use.
func (s *Service) Dictionary() DictionaryInfo {
	gen := s.dict.Current()
	return DictionaryInfo{
		Stats:    gen.Index.Stats(),
		Version:  gen.Version,
		Source:   gen.Source,
		LoadedAt: gen.LoadedAt,
	}
}

// Reload rebuilds the dictionary from its source. Requests already running
// finish on the generation they started with.
func (s *Service) Reload(ctx context.Context) (DictionaryInfo, error) {
	_, err := s.dict.Reload(ctx)
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.DictionaryReloads.WithLabelValues(status).Inc()
	}
	if err != nil {
		return DictionaryInfo{}, err
	}
	return s.Dictionary(), nil
}

// DictionaryCheck reports the dictionary as a required health component.
func (s *Service) DictionaryCheck() health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		gen := s.dict.Current()
		if gen == nil || gen.Index == nil || gen.Index.Len() == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no dictionary loaded"}
		}
		return health.ComponentHealth{
			Status: health.StatusUp,
			Details: map[string]any{
				"words":   gen.Index.Len(),
				"version": gen.Version,
			},
		}
	}
}

// PoolCheck degrades while requests are queued behind a full pool.
func (s *Service) PoolCheck() health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		details := map[string]any{
			"size":      s.pool.Size(),
			"in_flight": s.pool.InFlight(),
			"waiting":   s.pool.Waiting(),
		}
		if s.pool.Waiting() > 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "requests queued", Details: details}
		}
		return health.ComponentHealth{Status: health.StatusUp, Details: details}
	}
}

func (s *Service) engineConfig(req Request) engine.Config {
	cfg := engine.Config{
		MaxWords:       s.cfg.MaxWords,
		MaxResults:     s.cfg.MaxResults,
		MaxMemoEntries: s.cfg.MaxMemoEntries,
		MaxSteps:       s.cfg.MaxSteps,
		CheckInterval:  s.cfg.CheckInterval,
		Ordering:       engine.Ordering(s.cfg.Ordering),
	}
	if req.MaxWords > 0 && (cfg.MaxWords == 0 || req.MaxWords < cfg.MaxWords) {
		cfg.MaxWords = req.MaxWords
	}
	if req.MaxResults > 0 && req.MaxResults < cfg.MaxResults {
		cfg.MaxResults = req.MaxResults
	}
	return cfg
}

func (s *Service) track(ctx context.Context, e analytics.SolveEvent) {
	if s.tracker == nil {
		return
	}
	e.RequestID = logger.RequestID(ctx)
	e.Timestamp = time.Now().UTC()
	s.tracker.Track(e)
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.SolveRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) observeSearch(out engine.Outcome) {
	if s.metrics == nil {
		return
	}
	switch {
	case out.Truncated:
		s.countOutcome("truncated")
		s.metrics.TruncationsTotal.WithLabelValues(string(out.Reason)).Inc()
	case len(out.Results) == 0:
		s.countOutcome("no_results")
	default:
		s.countOutcome("ok")
	}
	s.metrics.SolveDuration.Observe(out.Stats.Elapsed.Seconds())
	s.metrics.SolveResultsCount.Observe(float64(len(out.Results)))
	s.metrics.SearchNodes.Observe(float64(out.Stats.Nodes))
	s.metrics.MemoHitsTotal.Add(float64(out.Stats.MemoHits))
}

func (s *Service) observePool() {
	if s.metrics == nil {
		return
	}
	s.metrics.PoolInFlight.Set(float64(s.pool.InFlight()))
	s.metrics.PoolWaiting.Set(float64(s.pool.Waiting()))
}

func (s *Service) observeGeneration(gen *dictionary.Generation) {
	s.metrics.DictionaryWords.Set(float64(gen.Index.Len()))
	s.metrics.DictionaryVersion.Set(float64(gen.Version))
}
