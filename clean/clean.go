// Package clean holds the stateless table transforms that run before
// translation: header normalization, duplicate removal and date metadata.
package clean

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/minios-linux/tabclean/table"
)

// ColumnError reports column names that do not exist in a table.
type ColumnError struct {
	Missing   []string
	Available []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column(s) not found: %s (available: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

// ---------------------------------------------------------------------------
// Headers
// ---------------------------------------------------------------------------

// NormalizeHeader collapses runs of whitespace and title-cases a name.
func NormalizeHeader(name string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(name), " "))
}

// NormalizeHeaders returns a copy of t with every column name normalized.
// Two columns that normalize to the same name are an error.
func NormalizeHeaders(t *table.Table) (*table.Table, error) {
	rename := make(map[string]string)
	seen := make(map[string]string)
	for _, c := range t.Columns() {
		n := NormalizeHeader(c)
		if prev, ok := seen[n]; ok {
			return nil, fmt.Errorf("columns %q and %q both normalize to %q", prev, c, n)
		}
		seen[n] = c
		if n != c {
			rename[c] = n
		}
	}
	if len(rename) == 0 {
		return t.Clone(), nil
	}
	return t.RenameColumns(rename)
}

// ---------------------------------------------------------------------------
// Duplicates
// ---------------------------------------------------------------------------

// MatchColumns resolves names against t's columns ignoring case and
// surrounding whitespace.
func MatchColumns(t *table.Table, names []string) ([]string, error) {
	byLower := make(map[string]string)
	for _, c := range t.Columns() {
		if _, ok := byLower[strings.ToLower(c)]; !ok {
			byLower[strings.ToLower(c)] = c
		}
	}
	var matched, missing []string
	for _, n := range names {
		if t.HasColumn(n) {
			matched = append(matched, n)
		} else if c, ok := byLower[strings.ToLower(strings.TrimSpace(n))]; ok {
			matched = append(matched, c)
		} else {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, &ColumnError{Missing: missing, Available: t.Columns()}
	}
	return matched, nil
}

// RemoveDuplicates drops rows whose values in columns repeat an earlier
// row, keeping the first occurrence. No columns means all columns.
// It returns the new table and the number of rows removed.
func RemoveDuplicates(t *table.Table, columns []string) (*table.Table, int, error) {
	cols := t.Columns()
	if len(columns) > 0 {
		var err error
		if cols, err = MatchColumns(t, columns); err != nil {
			return nil, 0, err
		}
	}

	seen := make(map[string]bool, t.Len())
	out := t.Filter(func(i int) bool {
		k := rowKey(t, i, cols)
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
	return out, t.Len() - out.Len(), nil
}

func rowKey(t *table.Table, i int, cols []string) string {
	var b strings.Builder
	for _, c := range cols {
		cell := t.Cell(i, c)
		b.WriteString(cell.Kind().String())
		b.WriteByte(':')
		if v, ok := cell.NumberValue(); ok {
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		} else {
			b.WriteString(cell.String())
		}
		b.WriteByte(0)
	}
	return b.String()
}
