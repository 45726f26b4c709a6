package clean

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minios-linux/tabclean/table"
)

// ErrNoDateColumn is returned when no column looks like a date column.
var ErrNoDateColumn = errors.New("date column not found")

// MetadataColumns are the columns AddDateMetadata derives, in order.
var MetadataColumns = []string{"Year", "Month", "Day", "Quarter"}

// dateCandidates are tried, ignoring case, before any column whose name
// contains "date".
var dateCandidates = []string{
	"date",
	"date_published",
	"published_date",
	"published",
	"datetime",
	"timestamp",
}

// TwoDigitYearPivot: two-digit years that would land more than this many
// years in the future belong to the previous century.
const TwoDigitYearPivot = 20

// Day-first layouts. Year-first forms are unambiguous and come first.
var (
	fourDigitYearLayouts = []string{
		time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2/1/2006 15:04:05", "02/01/2006 15:04:05", "2/1/2006 15:04", "02/01/2006 15:04",
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
		"2 Jan 2006", "2 January 2006", "Jan 2, 2006", "January 2, 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"2/1/06", "02/01/06", "2-1-06", "02-01-06", "2.1.06", "02.01.06",
	}
)

// DateOptions controls AddDateMetadata.
type DateOptions struct {
	// Column names the date column; empty means detect it.
	Column string
	// Now anchors the two-digit year pivot. Defaults to time.Now.
	Now func() time.Time
}

// FindDateColumn picks the column AddDateMetadata would use.
func FindDateColumn(t *table.Table) (string, error) {
	byLower := make(map[string]string)
	for _, c := range t.Columns() {
		if _, ok := byLower[strings.ToLower(c)]; !ok {
			byLower[strings.ToLower(c)] = c
		}
	}
	for _, cand := range dateCandidates {
		if c, ok := byLower[cand]; ok {
			return c, nil
		}
	}
	for _, c := range t.Columns() {
		if strings.Contains(strings.ToLower(c), "date") {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w (available: %s)", ErrNoDateColumn, strings.Join(t.Columns(), ", "))
}

// ParseDate parses a day-first date. ok is false when no layout matches.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range fourDigitYearLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	pivot := now.Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			if d.Year() > pivot {
				d = d.AddDate(-100, 0, 0)
			}
			return d, true
		}
	}
	return time.Time{}, false
}

// AddDateMetadata parses the date column into date cells and inserts Year,
// Month (short name), Day and Quarter just before it. Existing columns with
// those names are replaced. Values that do not parse become missing.
func AddDateMetadata(t *table.Table, opts DateOptions) (*table.Table, error) {
	col := opts.Column
	if col == "" {
		var err error
		if col, err = FindDateColumn(t); err != nil {
			return nil, err
		}
	} else if matched, err := MatchColumns(t, []string{col}); err != nil {
		return nil, err
	} else {
		col = matched[0]
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	ref := now()

	src, _ := t.Column(col)
	dates := make([]table.Cell, len(src))
	year := make([]table.Cell, len(src))
	month := make([]table.Cell, len(src))
	day := make([]table.Cell, len(src))
	quarter := make([]table.Cell, len(src))
	for i, c := range src {
		d, ok := c.DateValue()
		if !ok {
			d, ok = ParseDate(c.String(), ref)
		}
		if !ok {
			continue
		}
		dates[i] = table.Date(d)
		year[i] = table.Number(float64(d.Year()))
		month[i] = table.Text(d.Format("Jan"))
		day[i] = table.Number(float64(d.Day()))
		quarter[i] = table.Number(float64((int(d.Month())-1)/3 + 1))
	}

	var drop []string
	for _, m := range MetadataColumns {
		if m != col {
			drop = append(drop, m)
		}
	}
	out, err := t.DropColumns(drop...).WithColumn(col, dates)
	if err != nil {
		return nil, err
	}
	at := out.ColumnIndex(col)
	for i, m := range MetadataColumns {
		values := [][]table.Cell{year, month, day, quarter}[i]
		if m == col {
			continue
		}
		if out, err = out.InsertColumn(at, m, values); err != nil {
			return nil, err
		}
		at++
	}
	return out, nil
}
