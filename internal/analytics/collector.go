package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/resilience"
)

// Sink receives batches of events.
type Sink interface {
	Publish(ctx context.Context, events []SolveEvent) error
}

// KafkaSink publishes events keyed by their letter string.
type KafkaSink struct {
	Producer *kafka.Producer
}

func (s KafkaSink) Publish(ctx context.Context, events []SolveEvent) error {
	batch := make([]kafka.Event, len(events))
	for i, e := range events {
		batch[i] = kafka.Event{Key: e.Letters, Value: e}
	}
	return s.Producer.PublishBatch(ctx, batch)
}

// CollectorConfig sizes the collector. Zero values take defaults.
type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	Breaker       *resilience.CircuitBreaker
	OnDrop        func(n int)
}

// Collector buffers events from request goroutines and flushes them to the
// sink when a batch fills or the flush interval passes. Track never blocks.
type Collector struct {
	sink          Sink
	breaker       *resilience.CircuitBreaker
	events        chan SolveEvent
	batchSize     int
	flushInterval time.Duration
	onDrop        func(n int)
	dropped       atomic.Int64
	pending       []SolveEvent
	logger        *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewCollector(sink Sink, cfg CollectorConfig) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.Breaker == nil {
		cfg.Breaker = resilience.NewCircuitBreaker("analytics-sink", resilience.CircuitBreakerConfig{})
	}
	return &Collector{
		sink:          sink,
		breaker:       cfg.Breaker,
		events:        make(chan SolveEvent, cfg.BufferSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		onDrop:        cfg.OnDrop,
		logger:        slog.Default().With("component", "analytics-collector"),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. It runs until ctx is done or Close is
// called, then drains the buffer with one last flush.
func (c *Collector) Start(ctx context.Context) {
	go c.loop(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.events),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track enqueues e, dropping it if the buffer is full.
func (c *Collector) Track(e SolveEvent) {
	select {
	case c.events <- e:
	default:
		c.drop(1)
	}
}

// Close stops the loop and waits for the final flush.
func (c *Collector) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

// Dropped counts events lost to a full buffer or a failing sink.
func (c *Collector) Dropped() int64 { return c.dropped.Load() }

func (c *Collector) loop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]SolveEvent, 0, c.batchSize)
	for {
		select {
		case e := <-c.events:
			batch = append(batch, e)
			if len(batch) >= c.batchSize {
				c.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			c.flush(ctx, batch)
			batch = batch[:0]
		case <-ctx.Done():
			c.shutdown(batch)
			return
		case <-c.stop:
			c.shutdown(batch)
			return
		}
	}
}

func (c *Collector) shutdown(batch []SolveEvent) {
drain:
	for {
		select {
		case e := <-c.events:
			batch = append(batch, e)
		default:
			break drain
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx, batch)
	if n := len(c.pending); n > 0 {
		c.drop(n)
		c.logger.Warn("undelivered analytics events discarded", "count", n)
	}
}

// flush sends pending retries plus batch. Failed events are kept for the
// next flush, up to three batches' worth.
func (c *Collector) flush(ctx context.Context, batch []SolveEvent) {
	if len(batch) == 0 && len(c.pending) == 0 {
		return
	}
	out := append(c.pending, batch...)
	c.pending = nil

	err := c.breaker.Execute(func() error {
		return c.sink.Publish(ctx, out)
	})
	if err == nil {
		c.logger.Debug("analytics batch flushed", "events", len(out))
		return
	}

	c.logger.Error("analytics flush failed", "events", len(out), "error", err)
	limit := c.batchSize * 3
	if len(out) > limit {
		c.drop(len(out) - limit)
		out = out[len(out)-limit:]
	}
	c.pending = append([]SolveEvent(nil), out...)
}

func (c *Collector) drop(n int) {
	c.dropped.Add(int64(n))
	if c.onDrop != nil {
		c.onDrop(n)
	}
}
