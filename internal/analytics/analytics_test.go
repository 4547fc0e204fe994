package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/resilience"
)

type memSink struct {
	mu      sync.Mutex
	batches [][]SolveEvent
	fail    bool
}

func (s *memSink) Publish(_ context.Context, events []SolveEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broker down")
	}
	s.batches = append(s.batches, append([]SolveEvent(nil), events...))
	return nil
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesBatches(t *testing.T) {
	sink := &memSink{}
	c := NewCollector(sink, CollectorConfig{BatchSize: 2, FlushInterval: time.Hour})
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.Track(SolveEvent{Type: EventSolve, Letters: "ab"})
	}
	c.Close()

	if got := sink.count(); got != 5 {
		t.Errorf("delivered %d events, want 5", got)
	}
	if c.Dropped() != 0 {
		t.Errorf("dropped = %d", c.Dropped())
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	var dropped int
	c := NewCollector(&memSink{}, CollectorConfig{
		BufferSize: 1,
		OnDrop:     func(n int) { dropped += n },
	})
	c.Track(SolveEvent{})
	c.Track(SolveEvent{})
	if c.Dropped() != 1 || dropped != 1 {
		t.Errorf("dropped = %d, callback saw %d", c.Dropped(), dropped)
	}
}

func TestCollectorFailingSinkOpensBreaker(t *testing.T) {
	sink := &memSink{fail: true}
	breaker := resilience.NewCircuitBreaker("test-sink", resilience.CircuitBreakerConfig{FailureThreshold: 1})
	c := NewCollector(sink, CollectorConfig{BatchSize: 1, FlushInterval: time.Hour, Breaker: breaker})

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(SolveEvent{Letters: "x"})
	deadline := time.Now().Add(2 * time.Second)
	for breaker.GetState() != resilience.StateOpen && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	c.Close()

	if breaker.GetState() != resilience.StateOpen {
		t.Fatal("breaker did not open")
	}
	if c.Dropped() != 1 {
		t.Errorf("undelivered event not counted: dropped = %d", c.Dropped())
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	events := []SolveEvent{
		{Type: EventSolve, Letters: "שלומ", Results: 1, LatencyUs: 1000, DictionaryVersion: 1},
		{Type: EventSolve, Letters: "שלומ", Results: 1, LatencyUs: 3000, DictionaryVersion: 2},
		{Type: EventSolve, Letters: "xyz", Results: 0, LatencyUs: 2000},
		{Type: EventSolve, Letters: "abc", Results: 500, Truncated: true, Reason: "max_results", LatencyUs: 4000},
		{Type: EventInvalidEncoding, Encoding: "utf-8"},
	}
	if err := agg.Publish(context.Background(), events); err != nil {
		t.Fatal(err)
	}

	s := agg.Stats()
	if s.TotalSolves != 5 || s.InvalidEncoding != 1 || s.ZeroResults != 1 || s.Truncated != 1 {
		t.Fatalf("totals = %+v", s)
	}
	if s.TruncatedByReason["max_results"] != 1 {
		t.Errorf("by reason = %v", s.TruncatedByReason)
	}
	if s.AvgLatencyMs != 2.5 {
		t.Errorf("avg latency = %v", s.AvgLatencyMs)
	}
	if s.AvgResults != 502.0/4 {
		t.Errorf("avg results = %v", s.AvgResults)
	}
	if len(s.TopInputs) == 0 || s.TopInputs[0].Letters != "שלומ" || s.TopInputs[0].Count != 2 {
		t.Errorf("top inputs = %v", s.TopInputs)
	}
	if len(s.ZeroResultInputs) != 1 || s.ZeroResultInputs[0].Letters != "xyz" {
		t.Errorf("zero result inputs = %v", s.ZeroResultInputs)
	}
	if s.DictionaryVersion != 2 {
		t.Errorf("dictionary version = %d", s.DictionaryVersion)
	}
}

func TestAggregatorRestore(t *testing.T) {
	agg := NewAggregator()
	agg.Restore(AggregatedStats{TotalSolves: 10, Truncated: 2, TruncatedByReason: map[string]int64{"max_steps": 2}})
	agg.Record(SolveEvent{Type: EventSolve, Letters: "a", Results: 1})
	s := agg.Stats()
	if s.TotalSolves != 11 || s.TruncatedByReason["max_steps"] != 2 {
		t.Errorf("restored = %+v", s)
	}
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	h := HandleEvent(agg)
	raw, _ := json.Marshal(SolveEvent{Type: EventSolve, Letters: "ab", Results: 2})
	if err := h(context.Background(), []byte("ab"), raw); err != nil {
		t.Fatal(err)
	}
	if err := h(context.Background(), nil, []byte("garbage")); err != nil {
		t.Errorf("bad message should be skipped, got %v", err)
	}
	if agg.Stats().TotalSolves != 1 {
		t.Errorf("total = %d", agg.Stats().TotalSolves)
	}
}

func TestHandlerServesStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(SolveEvent{Type: EventSolve, Letters: "ab", Results: 1})
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest("GET", "/api/v1/analytics", nil))

	var got AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.TotalSolves != 1 {
		t.Errorf("total = %d", got.TotalSolves)
	}
}

func TestHandlerTopParam(t *testing.T) {
	agg := NewAggregator()
	for _, l := range []string{"ab", "cd", "ef", "ab"} {
		agg.Record(SolveEvent{Type: EventSolve, Letters: l, Results: 1})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest("GET", "/api/v1/analytics?top=1", nil))
	var got AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.TopInputs) != 1 || got.TopInputs[0].Letters != "ab" || got.TopInputs[0].Count != 2 {
		t.Errorf("top inputs = %+v", got.TopInputs)
	}

	for _, bad := range []string{"0", "x", "101"} {
		rec = httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest("GET", "/api/v1/analytics?top="+bad, nil))
		if rec.Code != 400 {
			t.Errorf("top=%s: status %d", bad, rec.Code)
		}
	}
}
