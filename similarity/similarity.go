// Package similarity groups near-identical text values so that one
// representative can stand in for all of them.
//
// Values are compared after normalization (trim, lowercase, collapse
// internal whitespace). Two values that normalize identically always share
// a group; beyond that, a value joins a group when its similarity to the
// group's representative reaches the grouper's threshold.
package similarity

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/minios-linux/tabclean/table"
)

// DefaultThreshold merges values that differ by roughly one character in ten.
const DefaultThreshold = 0.9

// Metric scores the similarity of two normalized strings in [0, 1].
type Metric func(a, b string) float64

// Metric names accepted by MetricByName.
const (
	MetricLevenshtein = "levenshtein"
	MetricToken       = "token"
	MetricExact       = "exact"
)

// Normalize trims s, lowercases it and collapses internal whitespace runs
// to a single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// EditSimilarity is 1 - levenshtein(a, b) / max(len(a), len(b)) in runes.
func EditSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// TokenSimilarity is the Jaccard overlap of the whitespace-separated
// tokens of a and b.
func TokenSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(tb))
	for _, t := range tb {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// ExactMatch scores 1 for identical strings and 0 otherwise, so only
// values that normalize identically share a group.
func ExactMatch(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

// MetricByName resolves a metric name. An empty name selects Levenshtein.
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MetricLevenshtein, "edit":
		return EditSimilarity, nil
	case MetricToken, "jaccard":
		return TokenSimilarity, nil
	case MetricExact:
		return ExactMatch, nil
	}
	return nil, fmt.Errorf("unknown similarity metric %q (valid: %s, %s, %s)", name, MetricLevenshtein, MetricToken, MetricExact)
}

// ---------------------------------------------------------------------------
// Distinct values
// ---------------------------------------------------------------------------

// Value is a distinct non-blank text value of a column with the rows it
// occurs in.
type Value struct {
	Text string
	Rows []int
}

// Collect returns the distinct non-blank text values of a column in
// first-occurrence order. Non-text and blank cells are skipped.
func Collect(cells []table.Cell) []Value {
	var values []Value
	pos := make(map[string]int)
	for row, c := range cells {
		if c.IsBlank() {
			continue
		}
		s, ok := c.TextValue()
		if !ok {
			continue
		}
		if i, ok := pos[s]; ok {
			values[i].Rows = append(values[i].Rows, row)
			continue
		}
		pos[s] = len(values)
		values = append(values, Value{Text: s, Rows: []int{row}})
	}
	return values
}

// ---------------------------------------------------------------------------
// Grouping
// ---------------------------------------------------------------------------

// Group is a set of interchangeable values. Indices refer to the slice
// passed to Grouper.Group.
type Group struct {
	// Representative is the first value that opened the group.
	Representative int
	// Members includes the representative, in input order.
	Members []int
}

// Rows returns every row position covered by the group's members.
func (g Group) Rows(values []Value) []int {
	var rows []int
	for _, m := range g.Members {
		rows = append(rows, values[m].Rows...)
	}
	return rows
}

// Grouper partitions values into similarity groups.
type Grouper struct {
	// Threshold is the minimum similarity to join a group. Zero or less
	// means DefaultThreshold; values > 1 leave only exact normalized
	// matches.
	Threshold float64
	// Metric scores normalized strings. Nil means EditSimilarity.
	Metric Metric
}

// NewGrouper returns a grouper with the default threshold and metric.
func NewGrouper() *Grouper {
	return &Grouper{Threshold: DefaultThreshold, Metric: EditSimilarity}
}

// Group partitions the non-blank values in input order. Each ungrouped
// value opens a new group as its representative and absorbs every later
// ungrouped value that normalizes identically or whose similarity to the
// representative reaches the threshold.
func (g *Grouper) Group(values []Value) []Group {
	metric := g.Metric
	if metric == nil {
		metric = EditSimilarity
	}
	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	norm := make([]string, len(values))
	byNorm := make(map[string][]int)
	for i, v := range values {
		norm[i] = Normalize(v.Text)
		if norm[i] == "" {
			continue
		}
		byNorm[norm[i]] = append(byNorm[norm[i]], i)
	}

	grouped := make([]bool, len(values))
	var groups []Group
	for i := range values {
		if grouped[i] || norm[i] == "" {
			continue
		}
		grouped[i] = true
		grp := Group{Representative: i, Members: []int{i}}

		// Exact normalized matches first; they are always members.
		for _, j := range byNorm[norm[i]] {
			if !grouped[j] {
				grouped[j] = true
				grp.Members = append(grp.Members, j)
			}
		}
		if threshold <= 1 {
			for j := i + 1; j < len(values); j++ {
				if grouped[j] || norm[j] == "" {
					continue
				}
				if metric(norm[i], norm[j]) >= threshold {
					grouped[j] = true
					grp.Members = append(grp.Members, j)
				}
			}
		}
		slices.Sort(grp.Members)
		groups = append(groups, grp)
	}
	return groups
}
