package table

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Cell holds.
type Kind int

const (
	KindMissing Kind = iota
	KindText
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "missing"
	}
}

// DateLayout is how date cells are rendered on export.
const DateLayout = "2006-01-02"

// Cell is a tagged scalar: text, number, date, or missing.
// The zero value is a missing cell.
type Cell struct {
	kind Kind
	text string // text value, or raw spelling of a number read from a file
	num  float64
	date time.Time
}

// Missing returns an empty cell.
func Missing() Cell { return Cell{} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{kind: KindText, text: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{kind: KindNumber, num: f} }

// NumberRaw returns a numeric cell that keeps its original spelling,
// so "1.50" is exported as "1.50" rather than "1.5".
func NumberRaw(raw string, f float64) Cell {
	return Cell{kind: KindNumber, text: raw, num: f}
}

// Date returns a date cell.
func Date(t time.Time) Cell { return Cell{kind: KindDate, date: t} }

// Infer builds a cell from a raw field as read from a file: blank fields
// are missing, numeric fields become numbers, everything else is text.
func Infer(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Missing()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return NumberRaw(raw, f)
	}
	return Text(raw)
}

// Kind reports the variant held by c.
func (c Cell) Kind() Kind { return c.kind }

// TextValue returns the text of a text cell. Only text cells are
// candidates for translation.
func (c Cell) TextValue() (string, bool) {
	if c.kind != KindText {
		return "", false
	}
	return c.text, true
}

// NumberValue returns the value of a numeric cell.
func (c Cell) NumberValue() (float64, bool) {
	if c.kind != KindNumber {
		return 0, false
	}
	return c.num, true
}

// DateValue returns the value of a date cell.
func (c Cell) DateValue() (time.Time, bool) {
	if c.kind != KindDate {
		return time.Time{}, false
	}
	return c.date, true
}

// IsBlank reports whether c is missing or whitespace-only text.
func (c Cell) IsBlank() bool {
	switch c.kind {
	case KindMissing:
		return true
	case KindText:
		return strings.TrimSpace(c.text) == ""
	}
	return false
}

// String renders the cell for export.
func (c Cell) String() string {
	switch c.kind {
	case KindText:
		return c.text
	case KindNumber:
		if c.text != "" {
			return c.text
		}
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindDate:
		return c.date.Format(DateLayout)
	}
	return ""
}

// Equal reports whether two cells hold the same variant and value.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindText:
		return c.text == o.text
	case KindNumber:
		return c.num == o.num
	case KindDate:
		return c.date.Equal(o.date)
	}
	return true
}
