// Package engine finds every sequence of dictionary words whose letters
// exactly exhaust a letter multiset.
//
// The search is a depth-first backtrack driven by an explicit stack of
// frames rather than recursion, so stack depth is bounded by the word limit
// and cancellation can be checked between pops. Each frame collects the
// suffixes that complete its remaining multiset; finished frames fold their
// suffixes into the parent and are memoized by remaining multiset.
package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/letters"
)

// Ordering decides whether permutations of the same words are distinct
// results.
type Ordering string

const (
	// Ordered returns every word order as its own result.
	Ordered Ordering = "ordered"
	// Unordered returns one result per word multiset, words in dictionary
	// order.
	Unordered Ordering = "multiset"
)

// TruncationReason says which bound stopped a search early.
type TruncationReason string

const (
	ReasonNone       TruncationReason = ""
	ReasonMaxResults TruncationReason = "max_results"
	ReasonMaxSteps   TruncationReason = "max_steps"
	ReasonCancelled  TruncationReason = "cancelled"
)

const defaultCheckInterval = 1024

// Config bounds a single search. Zero MaxWords and MaxSteps mean no limit;
// zero MaxMemoEntries disables memoization.
type Config struct {
	MaxWords       int
	MaxResults     int
	MaxMemoEntries int
	MaxSteps       int
	CheckInterval  int
	Ordering       Ordering
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		MaxWords:       4,
		MaxResults:     500,
		MaxMemoEntries: 50000,
		MaxSteps:       2000000,
		CheckInterval:  defaultCheckInterval,
		Ordering:       Ordered,
	}
}

// Stats records how much work one search did.
type Stats struct {
	Nodes       int
	Candidates  int
	Scanned     int
	MemoHits    int
	MemoEntries int
	MaxDepth    int
	Elapsed     time.Duration
}

// Outcome is the result of one search. Results never exceed MaxResults.
type Outcome struct {
	Results   [][]*dictionary.Entry
	Truncated bool
	Reason    TruncationReason
	Stats     Stats
}

// Words renders the results as dictionary surface forms.
func (o Outcome) Words() [][]string {
	out := make([][]string, len(o.Results))
	for i, r := range o.Results {
		ws := make([]string, len(r))
		for j, e := range r {
			ws[j] = e.Word
		}
		out[i] = ws
	}
	return out
}

// Engine runs searches against one dictionary generation. It holds no
// per-search state and is safe for concurrent use.
type Engine struct {
	idx *dictionary.Index
	cfg Config
}

// New returns an engine over idx. Missing bounds fall back to the defaults.
func New(idx *dictionary.Index, cfg Config) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.Ordering != Unordered {
		cfg.Ordering = Ordered
	}
	return &Engine{idx: idx, cfg: cfg}
}

// Config returns the effective bounds.
func (e *Engine) Config() Config { return e.cfg }

// suffix is a shared, immutable word chain. Frames prepend to a child's
// suffixes without copying them. nil is the empty suffix.
type suffix struct {
	entry *dictionary.Entry
	next  *suffix
}

type frame struct {
	remaining letters.Multiset
	key       string
	depthLeft int
	cursor    *dictionary.Cursor
	pending   *dictionary.Entry
	suffixes  []*suffix
}

type search struct {
	ctx    context.Context
	idx    *dictionary.Index
	cfg    Config
	memo   map[string][]*suffix
	stack  []*frame
	steps  int
	stats  Stats
	reason TruncationReason
}

// Decompose searches for every decomposition of target. It never fails:
// undecomposable input gives no results, and a search cut short by a bound
// returns what it found with Truncated set.
func (e *Engine) Decompose(ctx context.Context, target letters.Multiset) Outcome {
	start := time.Now()
	if target.IsEmpty() || !e.idx.Covers(target) {
		return Outcome{Results: [][]*dictionary.Entry{}, Stats: Stats{Elapsed: time.Since(start)}}
	}

	s := &search{
		ctx:  ctx,
		idx:  e.idx,
		cfg:  e.cfg,
		memo: make(map[string][]*suffix),
	}
	depth := -1
	if e.cfg.MaxWords > 0 {
		depth = e.cfg.MaxWords
	}
	root := s.push(target, depth, 0)
	s.run()

	out := Outcome{Reason: s.reason, Truncated: s.reason != ReasonNone}
	n := min(len(root.suffixes), e.cfg.MaxResults)
	out.Results = make([][]*dictionary.Entry, 0, n)
	for _, sf := range root.suffixes[:n] {
		out.Results = append(out.Results, sf.words())
	}
	s.stats.MemoEntries = len(s.memo)
	s.stats.Elapsed = time.Since(start)
	out.Stats = s.stats
	return out
}

func (s *search) push(remaining letters.Multiset, depthLeft, minID int) *frame {
	f := &frame{
		remaining: remaining,
		key:       memoKey(remaining, depthLeft, minID),
		depthLeft: depthLeft,
		cursor:    s.idx.Cursor(remaining, minID),
	}
	s.stack = append(s.stack, f)
	s.stats.Nodes++
	s.stats.MaxDepth = max(s.stats.MaxDepth, len(s.stack))
	return f
}

func (s *search) run() {
	for len(s.stack) > 0 {
		if s.reason != ReasonNone {
			s.unwind()
			return
		}
		top := s.stack[len(s.stack)-1]
		cand, ok := top.cursor.Next()
		if !ok {
			s.finish()
			continue
		}
		if !s.step() {
			continue
		}
		s.stats.Candidates++

		rest, _ := top.remaining.Subtract(cand.Signature)
		if rest.IsEmpty() {
			s.add(top, &suffix{entry: cand})
			continue
		}
		childDepth := -1
		if top.depthLeft > 0 {
			childDepth = top.depthLeft - 1
			if childDepth == 0 {
				continue
			}
		}
		childMin := 0
		if s.cfg.Ordering == Unordered {
			childMin = cand.ID
		}
		if cached, ok := s.memo[memoKey(rest, childDepth, childMin)]; ok {
			s.stats.MemoHits++
			for _, sf := range cached {
				if !s.add(top, &suffix{entry: cand, next: sf}) {
					break
				}
			}
			continue
		}
		top.pending = cand
		s.push(rest, childDepth, childMin)
	}
}

// step counts one candidate and reports whether the search may continue.
func (s *search) step() bool {
	if s.cfg.MaxSteps > 0 && s.steps >= s.cfg.MaxSteps {
		s.reason = ReasonMaxSteps
		return false
	}
	s.steps++
	if s.steps%s.cfg.CheckInterval == 0 && s.ctx.Err() != nil {
		s.reason = ReasonCancelled
		return false
	}
	return true
}

// add appends sf to f and stops the search once f holds more suffixes than
// can be returned. Every ancestor then overflows too, so the root is
// guaranteed to be truncated.
func (s *search) add(f *frame, sf *suffix) bool {
	f.suffixes = append(f.suffixes, sf)
	if len(f.suffixes) > s.cfg.MaxResults {
		if s.reason == ReasonNone {
			s.reason = ReasonMaxResults
		}
		return false
	}
	return true
}

// finish pops a fully explored frame, memoizes it and folds it into its
// parent.
func (s *search) finish() {
	f := s.pop()
	if s.cfg.MaxMemoEntries > 0 && len(s.memo) < s.cfg.MaxMemoEntries {
		s.memo[f.key] = f.suffixes
	}
	s.fold(f)
}

// unwind folds every open frame into its parent without memoizing, since
// none of them finished.
func (s *search) unwind() {
	for len(s.stack) > 1 {
		s.fold(s.pop())
	}
	if len(s.stack) == 1 {
		s.stats.Scanned += s.stack[0].cursor.Scanned()
	}
}

func (s *search) pop() *frame {
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.stats.Scanned += f.cursor.Scanned()
	return f
}

func (s *search) fold(child *frame) {
	if len(s.stack) == 0 {
		return
	}
	parent := s.stack[len(s.stack)-1]
	word := parent.pending
	parent.pending = nil
	for _, sf := range child.suffixes {
		if !s.add(parent, &suffix{entry: word, next: sf}) {
			break
		}
	}
}

func (sf *suffix) words() []*dictionary.Entry {
	var out []*dictionary.Entry
	for p := sf; p != nil; p = p.next {
		out = append(out, p.entry)
	}
	return out
}

func memoKey(m letters.Multiset, depthLeft, minID int) string {
	b := make([]byte, 0, 32)
	b = append(b, m.Key()...)
	b = append(b, '|')
	b = strconv.AppendInt(b, int64(depthLeft), 10)
	b = append(b, '|')
	b = strconv.AppendInt(b, int64(minID), 10)
	return string(b)
}
