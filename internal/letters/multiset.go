// Package letters implements the immutable letter multiset used as both the
// dictionary signature and the search state of the decomposition engine.
package letters

import (
	"encoding/binary"
	"sort"
	"strings"
	"unicode/utf8"
)

// Multiset maps canonical letters to positive counts. The zero value is the
// empty multiset. Values are never mutated after construction; every
// operation that changes counts returns a new Multiset.
type Multiset struct {
	runes  []rune
	counts []int
	total  int
}

// FromRunes counts the given runes.
func FromRunes(rs []rune) Multiset {
	if len(rs) == 0 {
		return Multiset{}
	}
	sorted := make([]rune, len(rs))
	copy(sorted, rs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	m := Multiset{total: len(sorted)}
	for _, r := range sorted {
		n := len(m.runes)
		if n > 0 && m.runes[n-1] == r {
			m.counts[n-1]++
			continue
		}
		m.runes = append(m.runes, r)
		m.counts = append(m.counts, 1)
	}
	return m
}

// FromString counts every rune of s. Callers are expected to pass text that
// is already canonical.
func FromString(s string) Multiset {
	return FromRunes([]rune(s))
}

// FromMap builds a multiset from explicit counts. Non-positive counts are
// treated as absent.
func FromMap(counts map[rune]int) Multiset {
	m := Multiset{}
	for r, n := range counts {
		if n <= 0 {
			continue
		}
		m.runes = append(m.runes, r)
	}
	sort.Slice(m.runes, func(i, j int) bool { return m.runes[i] < m.runes[j] })
	m.counts = make([]int, len(m.runes))
	for i, r := range m.runes {
		m.counts[i] = counts[r]
		m.total += counts[r]
	}
	return m
}

// Count returns how many times r occurs.
func (m Multiset) Count(r rune) int {
	i := sort.Search(len(m.runes), func(i int) bool { return m.runes[i] >= r })
	if i < len(m.runes) && m.runes[i] == r {
		return m.counts[i]
	}
	return 0
}

// Len is the total number of letters.
func (m Multiset) Len() int { return m.total }

// Distinct is the number of different letters.
func (m Multiset) Distinct() int { return len(m.runes) }

func (m Multiset) IsEmpty() bool { return m.total == 0 }

// Contains reports whether sub is a subset of m: every count in sub is at
// most the corresponding count in m.
func (m Multiset) Contains(sub Multiset) bool {
	if sub.total > m.total || len(sub.runes) > len(m.runes) {
		return false
	}
	j := 0
	for i, r := range sub.runes {
		for j < len(m.runes) && m.runes[j] < r {
			j++
		}
		if j == len(m.runes) || m.runes[j] != r || m.counts[j] < sub.counts[i] {
			return false
		}
	}
	return true
}

// Subtract returns m minus sub. It reports false, and returns m unchanged,
// when sub is not a subset of m.
func (m Multiset) Subtract(sub Multiset) (Multiset, bool) {
	if !m.Contains(sub) {
		return m, false
	}
	out := Multiset{
		runes:  make([]rune, 0, len(m.runes)),
		counts: make([]int, 0, len(m.runes)),
		total:  m.total - sub.total,
	}
	j := 0
	for i, r := range m.runes {
		n := m.counts[i]
		if j < len(sub.runes) && sub.runes[j] == r {
			n -= sub.counts[j]
			j++
		}
		if n > 0 {
			out.runes = append(out.runes, r)
			out.counts = append(out.counts, n)
		}
	}
	return out, true
}

// Add returns the multiset union (sum of counts) of m and other.
func (m Multiset) Add(other Multiset) Multiset {
	out := Multiset{
		runes:  make([]rune, 0, len(m.runes)+len(other.runes)),
		counts: make([]int, 0, len(m.runes)+len(other.runes)),
		total:  m.total + other.total,
	}
	i, j := 0, 0
	for i < len(m.runes) || j < len(other.runes) {
		switch {
		case j == len(other.runes) || (i < len(m.runes) && m.runes[i] < other.runes[j]):
			out.runes = append(out.runes, m.runes[i])
			out.counts = append(out.counts, m.counts[i])
			i++
		case i == len(m.runes) || other.runes[j] < m.runes[i]:
			out.runes = append(out.runes, other.runes[j])
			out.counts = append(out.counts, other.counts[j])
			j++
		default:
			out.runes = append(out.runes, m.runes[i])
			out.counts = append(out.counts, m.counts[i]+other.counts[j])
			i++
			j++
		}
	}
	return out
}

// Equal reports whether both multisets hold the same count for every letter.
func (m Multiset) Equal(other Multiset) bool {
	if m.total != other.total || len(m.runes) != len(other.runes) {
		return false
	}
	for i := range m.runes {
		if m.runes[i] != other.runes[i] || m.counts[i] != other.counts[i] {
			return false
		}
	}
	return true
}

// Key is a canonical encoding of the sorted letter-count vector. Equal
// multisets have equal keys.
func (m Multiset) Key() string {
	buf := make([]byte, 0, len(m.runes)*(utf8.UTFMax+2))
	for i, r := range m.runes {
		buf = utf8.AppendRune(buf, r)
		buf = binary.AppendUvarint(buf, uint64(m.counts[i]))
	}
	return string(buf)
}

// Each calls fn for every letter in ascending rune order.
func (m Multiset) Each(fn func(r rune, n int)) {
	for i, r := range m.runes {
		fn(r, m.counts[i])
	}
}

// Map returns a fresh copy of the counts.
func (m Multiset) Map() map[rune]int {
	out := make(map[rune]int, len(m.runes))
	for i, r := range m.runes {
		out[r] = m.counts[i]
	}
	return out
}

// String renders the letters in sorted order, each repeated by its count.
func (m Multiset) String() string {
	var b strings.Builder
	b.Grow(m.total * 2)
	for i, r := range m.runes {
		for n := 0; n < m.counts[i]; n++ {
			b.WriteRune(r)
		}
	}
	return b.String()
}
