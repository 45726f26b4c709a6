package tabfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/minios-linux/tabclean/table"
)

// WriteFile writes t to path in the format implied by its extension.
func WriteFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, t, FormatFromPath(path)); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Write writes t to w with a header row. Excel output keeps numbers and
// dates typed; CSV output uses each cell's string form.
func Write(w io.Writer, t *table.Table, format Format) error {
	if format == FormatExcel {
		return writeExcel(w, t)
	}
	return writeCSV(w, t)
}

func writeCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		cells := t.RowCells(i)
		rec := make([]string, len(cells))
		for j, c := range cells {
			rec[j] = c.String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Sheet1"

// dateFormat is the number format of date cells in written workbooks.
const dateFormat = "yyyy-mm-dd"

func writeExcel(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	cols := t.Columns()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	dateStyle := -1
	for i := 0; i < t.Len(); i++ {
		cells := t.RowCells(i)
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			values[j] = excelValue(c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}

		for j, c := range cells {
			if c.Kind() != table.KindDate {
				continue
			}
			if dateStyle < 0 {
				format := dateFormat
				if dateStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &format}); err != nil {
					return fmt.Errorf("creating date style: %w", err)
				}
			}
			name, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheetName, name, name, dateStyle); err != nil {
				return fmt.Errorf("styling %s: %w", name, err)
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func excelValue(c table.Cell) interface{} {
	switch c.Kind() {
	case table.KindNumber:
		v, _ := c.NumberValue()
		return v
	case table.KindDate:
		v, _ := c.DateValue()
		return v
	case table.KindText:
		v, _ := c.TextValue()
		return v
	}
	return nil
}
