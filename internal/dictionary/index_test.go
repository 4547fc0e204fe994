package dictionary

import (
	"errors"
	"iter"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/letters"
)

func words(seq iter.Seq[*Entry]) []string {
	var out []string
	for e := range seq {
		out = append(out, e.Word)
	}
	return out
}

func TestBuildCanonicalizesAndDedupes(t *testing.T) {
	idx, err := Build([]string{"שלום", "  של ", "", "שלום", "!!!", "לום"})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len = %d, want 3", idx.Len())
	}
	if s := idx.Stats(); s.Skipped != 3 || s.LongestWord != 4 {
		t.Errorf("stats = %+v", s)
	}
	e, ok := idx.Lookup("שלום")
	if !ok {
		t.Fatal("שלום not found")
	}
	if e.ID != 0 || e.Canonical != "שלומ" {
		t.Errorf("entry = %+v", e)
	}
	if e, ok := idx.Lookup("של"); !ok || e.ID != 1 {
		t.Errorf("של = %+v, %v", e, ok)
	}
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build([]string{"", "123", "  "})
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestCandidatesSubsetOnly(t *testing.T) {
	idx, err := Build([]string{"של", "לום", "שלום", "שמש", "ו", "מול"})
	if err != nil {
		t.Fatal(err)
	}
	got := words(idx.Candidates(letters.FromString("שלומ")))
	want := map[string]bool{"של": true, "לום": true, "שלום": true, "ו": true, "מול": true}
	if len(got) != len(want) {
		t.Fatalf("candidates = %v", got)
	}
	for _, w := range got {
		if !want[w] {
			t.Errorf("unexpected candidate %q", w)
		}
	}
}

func TestCandidatesRespectCounts(t *testing.T) {
	idx, err := Build([]string{"aa", "a", "aab"})
	if err != nil {
		t.Fatal(err)
	}
	got := words(idx.Candidates(letters.FromString("ab")))
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestCandidatesUnknownLetter(t *testing.T) {
	idx, err := Build([]string{"ab", "b"})
	if err != nil {
		t.Fatal(err)
	}
	rem := letters.FromString("abz")
	if idx.Covers(rem) {
		t.Error("z is not in the dictionary")
	}
	if got := words(idx.Candidates(rem)); len(got) != 2 {
		t.Errorf("candidates = %v", got)
	}
}

func TestCursorMinID(t *testing.T) {
	idx, err := Build([]string{"a", "b", "ab"})
	if err != nil {
		t.Fatal(err)
	}
	c := idx.Cursor(letters.FromString("ab"), 1)
	var got []int
	for e, ok := c.Next(); ok; e, ok = c.Next() {
		got = append(got, e.ID)
	}
	for _, id := range got {
		if id < 1 {
			t.Errorf("cursor yielded ID %d below minimum", id)
		}
	}
	if len(got) != 2 {
		t.Errorf("got IDs %v, want 1 and 2", got)
	}
}

func TestCandidatesStopEarly(t *testing.T) {
	idx, err := Build([]string{"a", "b", "ab"})
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for range idx.Candidates(letters.FromString("ab")) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iterated %d times", n)
	}
}

func TestAlphabetOverflow(t *testing.T) {
	// 72 distinct letters, more than the 63 mask bits.
	var ws []string
	for r := 'a'; r <= 'z'; r++ {
		ws = append(ws, string(r))
	}
	for r := 'α'; r <= 'ω'; r++ {
		if r == 'ς' {
			continue
		}
		ws = append(ws, string(r))
	}
	for r := 'א'; r <= 'ת'; r++ {
		ws = append(ws, string(r))
	}
	idx, err := Build(ws)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Stats().Alphabet <= 63 {
		t.Fatalf("alphabet = %d, test needs more than 63 letters", idx.Stats().Alphabet)
	}
	// Two overflow letters share a bit; the count check must still tell
	// them apart.
	got := words(idx.Candidates(letters.FromString("ת")))
	if diff := cmp.Diff([]string{"ת"}, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestAlphabetFirstSeenOrder(t *testing.T) {
	idx, err := Build([]string{"ba", "ca"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]rune{'a', 'b', 'c'}, idx.Alphabet()); diff != "" {
		t.Errorf("alphabet mismatch (-want +got):\n%s", diff)
	}
}

func BenchmarkCandidates(b *testing.B) {
	ws := make([]string, 0, 5000)
	base := []rune("אבגדהוזחטיכלמנסעפצקרשת")
	for i := 0; i < 5000; i++ {
		n := 2 + i%5
		w := make([]rune, n)
		for j := range w {
			w[j] = base[(i*7+j*13)%len(base)]
		}
		ws = append(ws, string(w))
	}
	idx, err := Build(ws)
	if err != nil {
		b.Fatal(err)
	}
	rem := letters.FromString("שלומעליכמחברים")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for range idx.Candidates(rem) {
		}
	}
}
