// Package table holds the in-memory tabular model shared by every
// cleaning step.
//
// A Table is an ordered list of rows over a fixed, ordered set of uniquely
// named columns. Steps never modify a Table they receive: every transform
// returns a new Table, so earlier results stay valid for preview and reuse.
package table

import (
	"fmt"
	"strings"
)

// Table is an ordered sequence of rows sharing one column set.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Cell
}

// New creates an empty table with the given columns.
// Column names must be non-empty and unique.
func New(columns []string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("column #%d has an empty name", i+1)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		index[name] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, index: index}, nil
}

// MustNew is New for fixed column sets known to be valid.
func MustNew(columns ...string) *Table {
	t, err := New(columns)
	if err != nil {
		panic(err)
	}
	return t
}

// AppendRow adds a row. The row must have one cell per column.
func (t *Table) AppendRow(cells []Cell) error {
	if len(cells) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.columns))
	}
	row := make([]Cell, len(cells))
	copy(row, cells)
	t.rows = append(t.rows, row)
	return nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether the table has a column with this exact name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Missing returns the names from the list that are not columns of t,
// in the order given.
func (t *Table) Missing(names []string) []string {
	var missing []string
	for _, name := range names {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Cell returns the cell at a row and column. Unknown columns yield a
// missing cell.
func (t *Table) Cell(row int, column string) Cell {
	i, ok := t.index[column]
	if !ok {
		return Missing()
	}
	return t.rows[row][i]
}

// Row returns a row as a column-name keyed mapping.
func (t *Table) Row(i int) map[string]Cell {
	m := make(map[string]Cell, len(t.columns))
	for j, name := range t.columns {
		m[name] = t.rows[i][j]
	}
	return m
}

// RowCells returns a copy of the cells of row i in column order.
func (t *Table) RowCells(i int) []Cell {
	row := make([]Cell, len(t.rows[i]))
	copy(row, t.rows[i])
	return row
}

// Column returns a copy of one column's cells in row order.
func (t *Table) Column(name string) ([]Cell, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	cells := make([]Cell, len(t.rows))
	for r, row := range t.rows {
		cells[r] = row[i]
	}
	return cells, true
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.index)),
		rows:    make([][]Cell, len(t.rows)),
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for i, row := range t.rows {
		out.rows[i] = make([]Cell, len(row))
		copy(out.rows[i], row)
	}
	return out
}

// WithColumn returns a copy of t with the values of an existing column
// replaced. cells must have one entry per row.
func (t *Table) WithColumn(name string, cells []Cell) (*Table, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	if len(cells) != len(t.rows) {
		return nil, fmt.Errorf("column %q: got %d values for %d rows", name, len(cells), len(t.rows))
	}
	out := t.Clone()
	for r := range out.rows {
		out.rows[r][i] = cells[r]
	}
	return out, nil
}

// InsertColumn returns a copy of t with a new column at position at
// (0 <= at <= number of columns).
func (t *Table) InsertColumn(at int, name string, cells []Cell) (*Table, error) {
	if at < 0 || at > len(t.columns) {
		return nil, fmt.Errorf("insert position %d out of range", at)
	}
	if len(cells) != len(t.rows) {
		return nil, fmt.Errorf("column %q: got %d values for %d rows", name, len(cells), len(t.rows))
	}
	cols := make([]string, 0, len(t.columns)+1)
	cols = append(cols, t.columns[:at]...)
	cols = append(cols, name)
	cols = append(cols, t.columns[at:]...)

	out, err := New(cols)
	if err != nil {
		return nil, err
	}
	for r, row := range t.rows {
		nr := make([]Cell, 0, len(row)+1)
		nr = append(nr, row[:at]...)
		nr = append(nr, cells[r])
		nr = append(nr, row[at:]...)
		out.rows = append(out.rows, nr)
	}
	return out, nil
}

// DropColumns returns a copy of t without the named columns. Unknown
// names are ignored.
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []int
	var cols []string
	for i, c := range t.columns {
		if !drop[c] {
			keep = append(keep, i)
			cols = append(cols, c)
		}
	}
	out, _ := New(cols) // subset of valid names
	for _, row := range t.rows {
		nr := make([]Cell, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		out.rows = append(out.rows, nr)
	}
	return out
}

// RenameColumns returns a copy of t with columns renamed per the mapping.
// The resulting names must still be unique.
func (t *Table) RenameColumns(rename map[string]string) (*Table, error) {
	cols := t.Columns()
	for i, c := range cols {
		if n, ok := rename[c]; ok {
			cols[i] = n
		}
	}
	out, err := New(cols)
	if err != nil {
		return nil, err
	}
	out.rows = t.Clone().rows
	return out, nil
}

// Filter returns a copy of t with only the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := &Table{columns: t.Columns(), index: make(map[string]int, len(t.index))}
	for k, v := range t.index {
		out.index[k] = v
	}
	for i, row := range t.rows {
		if keep(i) {
			nr := make([]Cell, len(row))
			copy(nr, row)
			out.rows = append(out.rows, nr)
		}
	}
	return out
}

// Equal reports whether two tables have the same columns and cells.
func (t *Table) Equal(o *Table) bool {
	if len(t.columns) != len(o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != o.columns[i] {
			return false
		}
	}
	for r := range t.rows {
		for c := range t.rows[r] {
			if !t.rows[r][c].Equal(o.rows[r][c]) {
				return false
			}
		}
	}
	return true
}

// FromStrings builds a table from a header and string records, inferring
// each cell's kind. Records shorter than the header are padded with
// missing cells; longer ones are rejected.
func FromStrings(header []string, records [][]string) (*Table, error) {
	t, err := New(header)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		if len(rec) > len(header) {
			return nil, fmt.Errorf("record %d has %d fields, header has %d", i+1, len(rec), len(header))
		}
		cells := make([]Cell, len(header))
		for j, v := range rec {
			cells[j] = Infer(v)
		}
		t.rows = append(t.rows, cells)
	}
	return t, nil
}
