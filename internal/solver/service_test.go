package solver

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/pool"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/rpc"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/tracing"
)

var hebrew = []string{"של", "לום", "שלום", "ים", "מי"}

type recorder struct {
	mu     sync.Mutex
	events []analytics.SolveEvent
}

func (r *recorder) Track(e analytics.SolveEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type fixture struct {
	svc     *Service
	holder  *dictionary.Holder
	pool    *pool.Pool
	metrics *metrics.Metrics
	events  *recorder
}

func newFixture(t *testing.T, words []string, mutate func(*config.SolverConfig)) *fixture {
	t.Helper()
	idx, err := dictionary.Build(words)
	if err != nil {
		t.Fatal(err)
	}
	holder := dictionary.NewHolder("memory", idx, func(ctx context.Context, _ string) (*dictionary.Index, error) {
		return dictionary.Build(append(words, "חדש"))
	})
	n, err := normalizer.New("utf-8")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default().Solver
	if mutate != nil {
		mutate(&cfg)
	}
	reg := prometheus.NewRegistry()
	f := &fixture{
		holder:  holder,
		pool:    pool.New(2),
		metrics: metrics.NewWithRegistry(reg, reg),
		events:  &recorder{},
	}
	f.svc = New(n, holder, f.pool, cfg,
		WithMetrics(f.metrics),
		WithTracer(tracing.NewTracer(true, 1)),
		WithTracker(f.events),
	)
	return f
}

func joined(results [][]string) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = strings.Join(r, " ")
	}
	return out
}

var sorted = cmpopts.SortSlices(func(a, b string) bool { return a < b })

func TestDecomposeHebrew(t *testing.T) {
	f := newFixture(t, hebrew, nil)
	resp, err := f.svc.Decompose(context.Background(), Request{Text: []byte("של לום")})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"של לום", "לום של"}
	if diff := cmp.Diff(want, joined(resp.Results), sorted); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
	if resp.Count != 2 || resp.Truncated {
		t.Errorf("count %d truncated %v", resp.Count, resp.Truncated)
	}
	if resp.Debug.Error != "" || !resp.Debug.Raw.IsValidEncoding {
		t.Errorf("debug = %+v", resp.Debug)
	}
	if resp.Stats.Letters != 5 {
		t.Errorf("letters = %d", resp.Stats.Letters)
	}
	if got := testutil.ToFloat64(f.metrics.SolveRequestsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok outcomes = %v", got)
	}
	if len(f.events.events) != 1 || f.events.events[0].Results != 2 || f.events.events[0].DictionaryVersion != 1 {
		t.Errorf("events = %+v", f.events.events)
	}
}

func TestDecomposeFinalFormsMatch(t *testing.T) {
	f := newFixture(t, hebrew, nil)
	// The trailing final mem must match the medial mem in "מי".
	resp, err := f.svc.Decompose(context.Background(), Request{Text: []byte("ימים")})
	if err != nil {
		t.Fatal(err)
	}
	got := joined(resp.Results)
	for _, want := range []string{"מי ים", "ים מי", "מי מי"} {
		if !slices.Contains(got, want) {
			t.Errorf("missing %q in %v", want, got)
		}
	}
}

func TestDecomposeInvalidEncodingIsNotAnError(t *testing.T) {
	f := newFixture(t, hebrew, nil)
	resp, err := f.svc.Decompose(context.Background(), Request{Text: []byte{0xd7, 0xa9, 0xff}})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if resp.Count != 0 || len(resp.Results) != 0 {
		t.Errorf("results = %v", resp.Results)
	}
	if resp.Debug.Error == "" || resp.Debug.Raw.IsValidEncoding {
		t.Errorf("debug = %+v", resp.Debug)
	}
	if got := testutil.ToFloat64(f.metrics.SolveRequestsTotal.WithLabelValues("invalid_encoding")); got != 1 {
		t.Errorf("invalid_encoding outcomes = %v", got)
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != analytics.EventInvalidEncoding {
		t.Errorf("events = %+v", f.events.events)
	}
}

func TestDecomposeDeclaredEncoding(t *testing.T) {
	f := newFixture(t, hebrew, nil)
	// שלום in windows-1255.
	resp, err := f.svc.Decompose(context.Background(), Request{Text: []byte{0xf9, 0xec, 0xe5, 0xed}, Encoding: "windows-1255"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"שלום"}, joined(resp.Results)); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
	if resp.Debug.Encoding != "windows-1255" {
		t.Errorf("encoding = %q", resp.Debug.Encoding)
	}
}

func TestDecomposeEmptyInput(t *testing.T) {
	f := newFixture(t, hebrew, nil)
	for _, in := range []string{"", "  ", "123 !?"} {
		resp, err := f.svc.Decompose(context.Background(), Request{Text: []byte(in)})
		if err != nil {
			t.Fatal(err)
		}
		if resp.Count != 0 || resp.Results == nil || resp.Debug.Error != "" {
			t.Errorf("%q: %+v", in, resp)
		}
	}
}

func TestDecomposeRequestLimitsAreClamped(t *testing.T) {
	f := newFixture(t, []string{"a", "b", "ab"}, func(c *config.SolverConfig) {
		c.MaxResults = 2
		c.MaxWords = 2
	})

	resp, err := f.svc.Decompose(context.Background(), Request{Text: []byte("ab"), MaxResults: 100})
	if err != nil {
		t.Fatal(err)
	}
	// ab, a b, b a: three results, capped at the configured two.
	if resp.Count > 2 || !resp.Truncated || resp.TruncatedReason != "max_results" {
		t.Errorf("count %d truncated %v reason %q", resp.Count, resp.Truncated, resp.TruncatedReason)
	}

	resp, err = f.svc.Decompose(context.Background(), Request{Text: []byte("ab"), MaxWords: 1})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ab"}, joined(resp.Results)); diff != "" {
		t.Errorf("max_words 1 (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(f.metrics.TruncationsTotal.WithLabelValues("max_results")); got != 1 {
		t.Errorf("truncations = %v", got)
	}
}

func TestDecomposeQueuedTimeout(t *testing.T) {
	f := newFixture(t, hebrew, nil)
	hold := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < f.pool.Size(); i++ {
		started := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.pool.Run(context.Background(), func(context.Context) error {
				close(started)
				<-hold
				return nil
			})
		}()
		<-started
	}
	defer func() {
		close(hold)
		wg.Wait()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.svc.Decompose(ctx, Request{Text: []byte("שלום")})
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Fatalf("err = %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.SolveRequestsTotal.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected = %v", got)
	}
}

func TestReloadSwapsGeneration(t *testing.T) {
	f := newFixture(t, hebrew, nil)
	before := f.svc.Dictionary()
	info, err := f.svc.Reload(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != before.Version+1 || info.Words != before.Words+1 {
		t.Errorf("before %+v after %+v", before, info)
	}
	if got := testutil.ToFloat64(f.metrics.DictionaryWords); got != float64(info.Words) {
		t.Errorf("dictionary_words gauge = %v", got)
	}
	resp, _ := f.svc.Decompose(context.Background(), Request{Text: []byte("חדש")})
	if resp.Count != 1 {
		t.Errorf("new word not served: %v", resp.Results)
	}
}

func TestHealthChecks(t *testing.T) {
	f := newFixture(t, hebrew, nil)
	if got := f.svc.DictionaryCheck()(context.Background()); got.Status != health.StatusUp || got.Details["words"] != len(hebrew) {
		t.Errorf("dictionary check = %+v", got)
	}
	if got := f.svc.PoolCheck()(context.Background()); got.Status != health.StatusUp {
		t.Errorf("pool check = %+v", got)
	}
}

func TestRPCBinding(t *testing.T) {
	f := newFixture(t, hebrew, nil)
	srv := rpc.NewServer()
	f.svc.RegisterRPC(srv)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	go srv.Serve()
	defer srv.Stop()

	c, err := rpc.Dial(srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	var out proto.DecomposeResponse
	if err := c.Call(ctx, proto.MethodDecompose, proto.DecomposeRequest{Text: "של לום"}, &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 || out.Debug["encoding"] != "utf-8" {
		t.Errorf("decompose = %+v", out)
	}

	var stats proto.DictionaryStatsResponse
	if err := c.Call(ctx, proto.MethodDictionaryStats, proto.DictionaryStatsRequest{}, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Words != len(hebrew) || stats.Version != 1 {
		t.Errorf("stats = %+v", stats)
	}

	var hc proto.HealthCheckResponse
	if err := c.Call(ctx, proto.MethodHealth, nil, &hc); err != nil || hc.Status != "SERVING" {
		t.Errorf("health = %+v, %v", hc, err)
	}

	if err := c.Call(ctx, proto.MethodDecompose, json.RawMessage(`{"text_base64":"!!"}`), nil); err == nil {
		t.Error("bad base64 accepted")
	}
}
