// Package dictionary holds the immutable word index the decomposition engine
// searches, and the loaders that build it from a word list, a compiled
// snapshot, Redis or a SQL table.
package dictionary

import (
	"errors"
	"iter"
	"math/bits"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/letters"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/normalizer"
)

// overflowBit is shared by every letter after the first 63 distinct ones.
// Masks are only a prefilter; an exact count check always follows.
const overflowBit = 63

// ErrEmpty is returned when no usable word survives canonicalization.
var ErrEmpty = errors.New("dictionary has no usable words")

// Entry is one dictionary word.
type Entry struct {
	ID        int
	Word      string
	Canonical string
	Signature letters.Multiset
	mask      uint64
}

// Len is the number of canonical letters in the word.
func (e *Entry) Len() int { return e.Signature.Len() }

type bucket struct {
	mask    uint64
	entries []*Entry
}

// Index is built once and never mutated, so any number of goroutines may
// read it without locking.
type Index struct {
	entries  []*Entry
	buckets  []bucket
	alphabet map[rune]uint
	order    []rune
	byWord   map[string]*Entry
	skipped  int
	longest  int
	letters  int
}

// Stats describes the shape of an index.
type Stats struct {
	Words       int     `json:"words"`
	Buckets     int     `json:"buckets"`
	Alphabet    int     `json:"alphabet"`
	Skipped     int     `json:"skipped"`
	LongestWord int     `json:"longest_word"`
	AvgWordLen  float64 `json:"avg_word_len"`
}

type wordForm struct {
	word      string
	canonical string
}

// Build canonicalizes words and indexes them in load order. Words whose
// canonical form is empty and repeated words are skipped.
func Build(words []string) (*Index, error) {
	forms := make([]wordForm, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		forms = append(forms, wordForm{word: w, canonical: normalizer.Canonicalize(w)})
	}
	return newIndex(forms)
}

func newIndex(forms []wordForm) (*Index, error) {
	idx := &Index{
		entries:  make([]*Entry, 0, len(forms)),
		alphabet: make(map[rune]uint),
		byWord:   make(map[string]*Entry, len(forms)),
	}
	slot := make(map[uint64]int)

	for _, f := range forms {
		if f.word == "" || f.canonical == "" {
			idx.skipped++
			continue
		}
		if _, dup := idx.byWord[f.word]; dup {
			idx.skipped++
			continue
		}
		sig := letters.FromString(f.canonical)
		e := &Entry{
			ID:        len(idx.entries),
			Word:      f.word,
			Canonical: f.canonical,
			Signature: sig,
			mask:      idx.assign(sig),
		}
		idx.entries = append(idx.entries, e)
		idx.byWord[f.word] = e
		idx.letters += sig.Len()
		idx.longest = max(idx.longest, sig.Len())

		i, ok := slot[e.mask]
		if !ok {
			i = len(idx.buckets)
			slot[e.mask] = i
			idx.buckets = append(idx.buckets, bucket{mask: e.mask})
		}
		idx.buckets[i].entries = append(idx.buckets[i].entries, e)
	}
	if len(idx.entries) == 0 {
		return nil, ErrEmpty
	}

	for i := range idx.buckets {
		slices.SortStableFunc(idx.buckets[i].entries, func(a, b *Entry) int {
			return a.Len() - b.Len()
		})
	}
	// Fewer distinct letters first: those buckets match the most states.
	slices.SortStableFunc(idx.buckets, func(a, b bucket) int {
		if d := bits.OnesCount64(a.mask) - bits.OnesCount64(b.mask); d != 0 {
			return d
		}
		return a.entries[0].ID - b.entries[0].ID
	})
	return idx, nil
}

func (ix *Index) assign(sig letters.Multiset) uint64 {
	var mask uint64
	sig.Each(func(r rune, _ int) {
		bit, ok := ix.alphabet[r]
		if !ok {
			bit = uint(min(len(ix.order), overflowBit))
			ix.alphabet[r] = bit
			ix.order = append(ix.order, r)
		}
		mask |= 1 << bit
	})
	return mask
}

// maskOf returns the letter mask of m and whether every letter of m occurs
// somewhere in the dictionary.
func (ix *Index) maskOf(m letters.Multiset) (uint64, bool) {
	var mask uint64
	covered := true
	m.Each(func(r rune, _ int) {
		bit, ok := ix.alphabet[r]
		if !ok {
			covered = false
			return
		}
		mask |= 1 << bit
	})
	return mask, covered
}

// Covers reports whether every letter of m occurs in at least one word.
// A multiset that is not covered has no decomposition.
func (ix *Index) Covers(m letters.Multiset) bool {
	_, ok := ix.maskOf(m)
	return ok
}

// Candidates yields every entry whose signature is a subset of remaining.
func (ix *Index) Candidates(remaining letters.Multiset) iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		c := ix.Cursor(remaining, 0)
		for e, ok := c.Next(); ok; e, ok = c.Next() {
			if !yield(e) {
				return
			}
		}
	}
}

// Cursor is a resumable candidate scan. The engine keeps one per open
// search node so that it can suspend a node and come back to it.
type Cursor struct {
	ix        *Index
	remaining letters.Multiset
	mask      uint64
	size      int
	minID     int
	b, i      int
	scanned   int
}

// Cursor starts a scan over entries that fit in remaining and whose ID is
// at least minID.
func (ix *Index) Cursor(remaining letters.Multiset, minID int) *Cursor {
	mask, _ := ix.maskOf(remaining)
	return &Cursor{
		ix:        ix,
		remaining: remaining,
		mask:      mask,
		size:      remaining.Len(),
		minID:     minID,
	}
}

// Next returns the next fitting entry, or false when the scan is done.
func (c *Cursor) Next() (*Entry, bool) {
	for c.b < len(c.ix.buckets) {
		bk := &c.ix.buckets[c.b]
		if bk.mask&^c.mask == 0 {
			for c.i < len(bk.entries) {
				e := bk.entries[c.i]
				c.i++
				if e.Len() > c.size {
					break
				}
				if e.ID < c.minID {
					continue
				}
				c.scanned++
				if c.remaining.Contains(e.Signature) {
					return e, true
				}
			}
		}
		c.b++
		c.i = 0
	}
	return nil, false
}

// Scanned is the number of entries the cursor compared against remaining.
func (c *Cursor) Scanned() int { return c.scanned }

// Len is the number of indexed words.
func (ix *Index) Len() int { return len(ix.entries) }

// Buckets is the number of distinct letter masks.
func (ix *Index) Buckets() int { return len(ix.buckets) }

// Alphabet returns every canonical letter in first-seen order.
func (ix *Index) Alphabet() []rune { return slices.Clone(ix.order) }

// Entries returns the entries in ID order. The slice must not be modified.
func (ix *Index) Entries() []*Entry { return ix.entries }

// Lookup finds an entry by its surface form.
func (ix *Index) Lookup(word string) (*Entry, bool) {
	e, ok := ix.byWord[strings.TrimSpace(word)]
	return e, ok
}

func (ix *Index) Stats() Stats {
	s := Stats{
		Words:       len(ix.entries),
		Buckets:     len(ix.buckets),
		Alphabet:    len(ix.order),
		Skipped:     ix.skipped,
		LongestWord: ix.longest,
	}
	if s.Words > 0 {
		s.AvgWordLen = float64(ix.letters) / float64(s.Words)
	}
	return s
}
