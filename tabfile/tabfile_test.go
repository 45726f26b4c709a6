package tabfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/minios-linux/tabclean/table"
)

func readString(t *testing.T, name, data string) (*table.Table, Info) {
	t.Helper()
	tbl, info, err := Read(name, strings.NewReader(data), DefaultReadOptions())
	if err != nil {
		t.Fatalf("Read(%s): %v", name, err)
	}
	return tbl, info
}

func TestRead_CommaUTF8(t *testing.T) {
	tbl, info := readString(t, "a.csv", "Title,Views\nBonjour,12\nSalut,\n")
	if info.Encoding != "utf-8" || info.Delimiter != ',' || info.Format != FormatCSV {
		t.Fatalf("info = %+v", info)
	}
	if got := strings.Join(tbl.Columns(), "|"); got != "Title|Views" {
		t.Fatalf("columns = %q", got)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	if v, ok := tbl.Cell(0, "Views").NumberValue(); !ok || v != 12 {
		t.Fatalf("Views[0] = %v, %v", v, ok)
	}
	if tbl.Cell(1, "Views").Kind() != table.KindMissing {
		t.Fatalf("Views[1] kind = %v, want missing", tbl.Cell(1, "Views").Kind())
	}
}

func TestRead_Latin1Semicolon(t *testing.T) {
	tbl, info := readString(t, "a.csv", "Nom;Ville\nJos\xe9;Montr\xe9al\n")
	if info.Encoding != "latin1" || info.Delimiter != ';' {
		t.Fatalf("info = %+v", info)
	}
	if got := tbl.Cell(0, "Ville").String(); got != "Montréal" {
		t.Fatalf("Ville = %q, want Montréal", got)
	}
}

func TestRead_TabAndBOM(t *testing.T) {
	tbl, info := readString(t, "a.tsv", "\xef\xbb\xbfTitle\tBody\nA, B\tC; D\n")
	if info.Encoding != "utf-8-sig" || info.Delimiter != '\t' {
		t.Fatalf("info = %+v", info)
	}
	if tbl.Columns()[0] != "Title" {
		t.Fatalf("first column = %q, want Title without BOM", tbl.Columns()[0])
	}
	if got := tbl.Cell(0, "Title").String(); got != "A, B" {
		t.Fatalf("Title = %q", got)
	}
}

func TestRead_SkipsMalformedLines(t *testing.T) {
	tbl, info := readString(t, "a.csv", "a,b\n1,2\n1,2,3\n4\n")
	if info.Skipped != 1 {
		t.Fatalf("Skipped = %d, want 1", info.Skipped)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	if !tbl.Cell(1, "b").IsBlank() {
		t.Fatalf("short line not padded: %q", tbl.Cell(1, "b").String())
	}
}

func TestRead_SingleColumnFails(t *testing.T) {
	_, _, err := Read("a.csv", strings.NewReader("only\none\ntwo\n"), DefaultReadOptions())
	if !errors.Is(err, ErrNoParse) {
		t.Fatalf("err = %v, want ErrNoParse", err)
	}
}

func TestCleanHeader(t *testing.T) {
	got := cleanHeader([]string{"a", " a ", "", "a", "b"})
	want := []string{"a", "a.1", "Unnamed: 2", "a.2", "b"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("cleanHeader = %q, want %q", got, want)
	}

	got = cleanHeader([]string{"a", "a.1", "a", "a"})
	want = []string{"a", "a.1", "a.2", "a.3"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("cleanHeader = %q, want %q", got, want)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{
		"x.csv":  FormatCSV,
		"x.tsv":  FormatCSV,
		"x.XLSX": FormatExcel,
		"x.xls":  FormatExcel,
		"x":      FormatCSV,
	}
	for path, want := range cases {
		if got := FormatFromPath(path); got != want {
			t.Fatalf("FormatFromPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func sample(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.MustNew("Title", "Views", "Date")
	rows := [][]table.Cell{
		{table.Text("Hello"), table.Number(3), table.Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
		{table.Text("Bye"), table.Missing(), table.Missing()},
	}
	for _, r := range rows {
		if err := tbl.AppendRow(r); err != nil {
			t.Fatal(err)
		}
	}
	return tbl
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sample(t), FormatCSV); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "Title,Views,Date\nHello,3,2024-03-01\nBye,,\n"
	if buf.String() != want {
		t.Fatalf("csv = %q, want %q", buf.String(), want)
	}
}

func TestExcelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := WriteFile(path, sample(t)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !isZip(data) {
		t.Fatalf("output is not a workbook")
	}

	tbl, info, err := ReadFile(path, DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if info.Format != FormatExcel || info.Sheet != "Sheet1" {
		t.Fatalf("info = %+v", info)
	}
	if got := strings.Join(tbl.Columns(), "|"); got != "Title|Views|Date" {
		t.Fatalf("columns = %q", got)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	if got := tbl.Cell(0, "Title").String(); got != "Hello" {
		t.Fatalf("Title = %q", got)
	}
	if v, ok := tbl.Cell(0, "Views").NumberValue(); !ok || v != 3 {
		t.Fatalf("Views = %v, %v", v, ok)
	}
	if got := tbl.Cell(0, "Date").String(); got != "2024-03-01" {
		t.Fatalf("Date = %q", got)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer wb.Close()
	if typ, err := wb.GetCellType("Sheet1", "C2"); err != nil || typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Fatalf("date cell type = %v, %v; want a serial date", typ, err)
	}
	if raw, err := wb.GetCellValue("Sheet1", "C2", excelize.Options{RawCellValue: true}); err != nil || raw != "45352" {
		t.Fatalf("raw date = %q, %v; want serial 45352", raw, err)
	}
	styleID, err := wb.GetCellStyle("Sheet1", "C2")
	if err != nil {
		t.Fatalf("GetCellStyle: %v", err)
	}
	style, err := wb.GetStyle(styleID)
	if err != nil || style.CustomNumFmt == nil || *style.CustomNumFmt != dateFormat {
		t.Fatalf("date style = %+v, %v", style, err)
	}
}
