package letters

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromString(t *testing.T) {
	m := FromString("שלומש")
	if m.Len() != 5 {
		t.Errorf("Len = %d, want 5", m.Len())
	}
	if m.Distinct() != 4 {
		t.Errorf("Distinct = %d, want 4", m.Distinct())
	}
	if got := m.Count('ש'); got != 2 {
		t.Errorf("Count(ש) = %d, want 2", got)
	}
	if got := m.Count('x'); got != 0 {
		t.Errorf("Count(x) = %d, want 0", got)
	}
}

func TestEmpty(t *testing.T) {
	var zero Multiset
	if !zero.IsEmpty() || !FromString("").IsEmpty() {
		t.Fatal("expected empty multisets")
	}
	if !zero.Equal(FromMap(map[rune]int{'a': 0})) {
		t.Error("zero counts must be treated as absent")
	}
	if zero.Key() != "" {
		t.Errorf("empty key = %q", zero.Key())
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		m, sub string
		want   bool
	}{
		{"listen", "silent", true},
		{"listen", "tin", true},
		{"listen", "tt", false},
		{"listen", "z", false},
		{"abc", "", true},
		{"", "a", false},
	}
	for _, tt := range tests {
		if got := FromString(tt.m).Contains(FromString(tt.sub)); got != tt.want {
			t.Errorf("%q.Contains(%q) = %v, want %v", tt.m, tt.sub, got, tt.want)
		}
	}
}

func TestSubtract(t *testing.T) {
	m := FromString("banana")
	rest, ok := m.Subtract(FromString("nab"))
	if !ok {
		t.Fatal("Subtract failed")
	}
	if !rest.Equal(FromString("naa")) {
		t.Errorf("rest = %q, want aan", rest.String())
	}
	if m.Len() != 6 {
		t.Error("Subtract must not mutate the receiver")
	}
	if _, ok := m.Subtract(FromString("bb")); ok {
		t.Error("Subtract must fail when the subtrahend exceeds the minuend")
	}
	empty, ok := rest.Subtract(rest)
	if !ok || !empty.IsEmpty() {
		t.Error("x - x must be empty")
	}
}

func TestAddIsInverseOfSubtract(t *testing.T) {
	whole := FromString("anagramsolver")
	part := FromString("gram")
	rest, ok := whole.Subtract(part)
	if !ok {
		t.Fatal("Subtract failed")
	}
	if !rest.Add(part).Equal(whole) {
		t.Errorf("rest+part = %q, want %q", rest.Add(part), whole)
	}
}

func TestKeyCanonical(t *testing.T) {
	a := FromString("שלום")
	b := FromMap(map[rune]int{'ם': 1, 'ו': 1, 'ל': 1, 'ש': 1})
	if a.Key() != b.Key() {
		t.Error("equal multisets must have equal keys")
	}
	if FromString("aab").Key() == FromString("abb").Key() {
		t.Error("different counts must give different keys")
	}
	if FromString("").Key() == FromString("a").Key() {
		t.Error("empty and non-empty keys collide")
	}
}

func TestMapAndEach(t *testing.T) {
	m := FromString("cabbage")
	want := map[rune]int{'a': 2, 'b': 2, 'c': 1, 'e': 1, 'g': 1}
	if diff := cmp.Diff(want, m.Map()); diff != "" {
		t.Errorf("Map mismatch (-want +got):\n%s", diff)
	}
	var order []rune
	m.Each(func(r rune, _ int) { order = append(order, r) })
	if diff := cmp.Diff([]rune("abceg"), order); diff != "" {
		t.Errorf("Each order mismatch (-want +got):\n%s", diff)
	}
	if m.String() != "aabbceg" {
		t.Errorf("String = %q", m.String())
	}
}

func BenchmarkSubtract(b *testing.B) {
	m := FromString("אבגדהוזחטיכלמנסעפצקרשת")
	sub := FromString("שלום")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = m.Subtract(sub)
	}
}
