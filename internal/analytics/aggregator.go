package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/kafka"
)

// latencyWindow bounds the samples kept for percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalSolves       int64            `json:"total_solves"`
	InvalidEncoding   int64            `json:"invalid_encoding"`
	ZeroResults       int64            `json:"zero_results"`
	Truncated         int64            `json:"truncated"`
	TruncatedByReason map[string]int64 `json:"truncated_by_reason"`
	TotalResults      int64            `json:"total_results"`
	AvgResults        float64          `json:"avg_results"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      float64          `json:"p50_latency_ms"`
	P95LatencyMs      float64          `json:"p95_latency_ms"`
	P99LatencyMs      float64          `json:"p99_latency_ms"`
	TopInputs         []InputCount     `json:"top_inputs"`
	ZeroResultInputs  []InputCount     `json:"zero_result_inputs"`
	SolvesPerMinute   float64          `json:"solves_per_minute"`
	DictionaryVersion uint64           `json:"dictionary_version"`
	Since             time.Time        `json:"since"`
}

type InputCount struct {
	Letters string `json:"letters"`
	Count   int64  `json:"count"`
}

// Aggregator folds solve events into running totals. It is both a Sink for
// the in-process pipeline and the target of HandleEvent for Kafka.
type Aggregator struct {
	mu               sync.RWMutex
	totalSolves      int64
	invalidEncoding  int64
	zeroResults      int64
	truncated        int64
	totalResults     int64
	byReason         map[string]int64
	latencies        []int64
	next             int
	inputCounts      map[string]int64
	zeroResultInputs map[string]int64
	dictVersion      uint64
	startTime        time.Time
	now              func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byReason:         make(map[string]int64),
		latencies:        make([]int64, 0, 1024),
		inputCounts:      make(map[string]int64),
		zeroResultInputs: make(map[string]int64),
		startTime:        time.Now(),
		now:              time.Now,
		logger:           slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged and skipped so they are still committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SolveEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Publish implements Sink.
func (a *Aggregator) Publish(_ context.Context, events []SolveEvent) error {
	for _, e := range events {
		a.Record(e)
	}
	return nil
}

func (a *Aggregator) Record(e SolveEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSolves++
	if e.DictionaryVersion > a.dictVersion {
		a.dictVersion = e.DictionaryVersion
	}
	if e.Type == EventInvalidEncoding {
		a.invalidEncoding++
		return
	}

	a.totalResults += int64(e.Results)
	if e.Truncated {
		a.truncated++
		a.byReason[e.Reason]++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, e.LatencyUs)
	} else {
		a.latencies[a.next] = e.LatencyUs
		a.next = (a.next + 1) % latencyWindow
	}
	if e.Letters == "" {
		return
	}
	a.inputCounts[e.Letters]++
	if e.Results == 0 {
		a.zeroResults++
		a.zeroResultInputs[e.Letters]++
	}
}

// Restore seeds the counters from a persisted snapshot so totals survive a
// restart. Latency samples and input rankings start empty.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSolves += s.TotalSolves
	a.invalidEncoding += s.InvalidEncoding
	a.zeroResults += s.ZeroResults
	a.truncated += s.Truncated
	a.totalResults += s.TotalResults
	for r, n := range s.TruncatedByReason {
		a.byReason[r] += n
	}
	if !s.Since.IsZero() && s.Since.Before(a.startTime) {
		a.startTime = s.Since
	}
}

// DefaultTop is how many popular and unsolvable inputs Stats reports.
const DefaultTop = 10

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTop)
}

// StatsTop is Stats with top entries in each input ranking.
func (a *Aggregator) StatsTop(top int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSolves:       a.totalSolves,
		InvalidEncoding:   a.invalidEncoding,
		ZeroResults:       a.zeroResults,
		Truncated:         a.truncated,
		TruncatedByReason: make(map[string]int64, len(a.byReason)),
		TotalResults:      a.totalResults,
		DictionaryVersion: a.dictVersion,
		Since:             a.startTime.UTC(),
	}
	for r, n := range a.byReason {
		stats.TruncatedByReason[r] = n
	}
	if solved := a.totalSolves - a.invalidEncoding; solved > 0 {
		stats.AvgResults = float64(a.totalResults) / float64(solved)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted)) / 1000
		stats.P50LatencyMs = float64(percentile(sorted, 50)) / 1000
		stats.P95LatencyMs = float64(percentile(sorted, 95)) / 1000
		stats.P99LatencyMs = float64(percentile(sorted, 99)) / 1000
	}
	stats.TopInputs = topN(a.inputCounts, top)
	stats.ZeroResultInputs = topN(a.zeroResultInputs, top)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.SolvesPerMinute = float64(stats.TotalSolves) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN ranks by count, ties broken by letters so output is stable.
func topN(counts map[string]int64, n int) []InputCount {
	result := make([]InputCount, 0, len(counts))
	for letters, count := range counts {
		result = append(result, InputCount{Letters: letters, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Letters < result[j].Letters
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
