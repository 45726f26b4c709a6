package similarity

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/minios-linux/tabclean/table"
)

func values(texts ...string) []Value {
	out := make([]Value, len(texts))
	for i, s := range texts {
		out[i] = Value{Text: s, Rows: []int{i}}
	}
	return out
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Bonjour ":        "bonjour",
		"Hello\t  World":    "hello world",
		"":                  "",
		"ÉCOLE   Primaire ": "école primaire",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEditSimilarity(t *testing.T) {
	if got := EditSimilarity("abc", "abc"); got != 1 {
		t.Fatalf("identical = %v, want 1", got)
	}
	// one substitution over ten runes
	got := EditSimilarity("abcdefghij", "abcdefghix")
	if math.Abs(got-0.9) > 1e-9 {
		t.Fatalf("EditSimilarity = %v, want 0.9", got)
	}
	if got := EditSimilarity("été", "ete"); math.Abs(got-1.0/3) > 1e-9 {
		t.Fatalf("rune-based similarity = %v, want 1/3", got)
	}
}

func TestTokenSimilarity(t *testing.T) {
	if got := TokenSimilarity("red apple", "apple red"); got != 1 {
		t.Fatalf("reordered tokens = %v, want 1", got)
	}
	if got := TokenSimilarity("red apple", "green apple"); math.Abs(got-1.0/3) > 1e-9 {
		t.Fatalf("TokenSimilarity = %v, want 1/3", got)
	}
	if got := TokenSimilarity("", "x"); got != 0 {
		t.Fatalf("empty = %v, want 0", got)
	}
}

func TestMetricByName(t *testing.T) {
	for _, name := range []string{"", "levenshtein", "token", "Jaccard", "exact"} {
		if _, err := MetricByName(name); err != nil {
			t.Fatalf("MetricByName(%q): %v", name, err)
		}
	}
	if _, err := MetricByName("cosine"); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
}

func TestGroupZeroThresholdUsesDefault(t *testing.T) {
	in := values("apple", "zebra", "Bonjour", "bonjour!")
	got := (&Grouper{}).Group(in)
	want := NewGrouper().Group(in)
	if len(got) != 4 || len(got) != len(want) {
		t.Fatalf("groups = %v, want %v", got, want)
	}
}

func TestGroupExactMetric(t *testing.T) {
	in := values("Bonjour", "bonjour!", " BONJOUR ", "Bonjour.")
	groups := (&Grouper{Threshold: 0.5, Metric: ExactMatch}).Group(in)
	if len(groups) != 3 {
		t.Fatalf("groups = %v, want 3", groups)
	}
	if !reflect.DeepEqual(groups[0].Members, []int{0, 2}) {
		t.Fatalf("first group = %v, want [0 2]", groups[0].Members)
	}
}

func TestCollect(t *testing.T) {
	cells := []table.Cell{
		table.Text("Bonjour"),
		table.Missing(),
		table.Text("bonjour "),
		table.Text("Bonjour"),
		table.Number(3),
		table.Text("   "),
	}
	got := Collect(cells)
	want := []Value{
		{Text: "Bonjour", Rows: []int{0, 3}},
		{Text: "bonjour ", Rows: []int{2}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Collect() = %#v, want %#v", got, want)
	}
}

func TestGroupMergesNormalizedAndNearDuplicates(t *testing.T) {
	vals := values("Bonjour", "Salut", "bonjour ", "BONJOUR", "Good morning!", "good morning")
	g := NewGrouper()
	groups := g.Group(vals)

	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3: %#v", len(groups), groups)
	}
	if groups[0].Representative != 0 || !reflect.DeepEqual(groups[0].Members, []int{0, 2, 3}) {
		t.Fatalf("group 0 = %#v", groups[0])
	}
	if groups[1].Representative != 1 || !reflect.DeepEqual(groups[1].Members, []int{1}) {
		t.Fatalf("group 1 = %#v", groups[1])
	}
	// "good morning!" vs "good morning": 12/13 similar
	if groups[2].Representative != 4 || !reflect.DeepEqual(groups[2].Members, []int{4, 5}) {
		t.Fatalf("group 2 = %#v", groups[2])
	}
	if rows := groups[0].Rows(vals); !reflect.DeepEqual(rows, []int{0, 2, 3}) {
		t.Fatalf("Rows() = %v", rows)
	}
}

func TestGroupThresholdAboveOneKeepsOnlyExactMatches(t *testing.T) {
	g := &Grouper{Threshold: 1.01}
	groups := g.Group(values("Good morning!", "good morning", "GOOD MORNING!"))
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if !reflect.DeepEqual(groups[0].Members, []int{0, 2}) {
		t.Fatalf("group 0 members = %v", groups[0].Members)
	}
}

func TestGroupSkipsBlankValues(t *testing.T) {
	groups := NewGrouper().Group(values("", "  ", "x"))
	if len(groups) != 1 || groups[0].Representative != 2 {
		t.Fatalf("groups = %#v", groups)
	}
	if got := NewGrouper().Group(nil); len(got) != 0 {
		t.Fatalf("empty input produced %d groups", len(got))
	}
}

// Groups must be pairwise disjoint and cover every non-blank input.
func TestGroupPartitionLaw(t *testing.T) {
	inputs := [][]string{
		{"a", "b", "c"},
		{"apple", "Apple", "apples", "appl", "banana", "bananas", "Banana "},
		{"paris", "parís", "pari", "paris, france", "Paris France"},
	}
	for n := 0; n < 40; n++ {
		var row []string
		for k := 0; k < 12; k++ {
			row = append(row, fmt.Sprintf("item %d", (n*7+k*3)%9))
		}
		inputs = append(inputs, row)
	}

	for _, in := range inputs {
		for _, g := range []*Grouper{NewGrouper(), {Threshold: 0.5, Metric: TokenSimilarity}, {Threshold: 0}} {
			vals := values(in...)
			groups := g.Group(vals)
			seen := make(map[int]int)
			for gi, grp := range groups {
				if grp.Members[0] != grp.Representative {
					t.Fatalf("%v: representative %d is not the first member of %v", in, grp.Representative, grp.Members)
				}
				for _, m := range grp.Members {
					if prev, dup := seen[m]; dup {
						t.Fatalf("%v: value %d in groups %d and %d", in, m, prev, gi)
					}
					seen[m] = gi
				}
			}
			if len(seen) != len(vals) {
				t.Fatalf("%v: groups cover %d of %d values", in, len(seen), len(vals))
			}
		}
	}
}

func TestGroupIsDeterministic(t *testing.T) {
	vals := values("Merci", "merci!", "Merci ", "Danke", "danke")
	first := NewGrouper().Group(vals)
	for i := 0; i < 10; i++ {
		if got := NewGrouper().Group(vals); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %#v vs %#v", i, got, first)
		}
	}
}
