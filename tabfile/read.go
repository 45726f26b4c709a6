// Package tabfile reads and writes tables as CSV or Excel files.
//
// CSV input of unknown origin is decoded by trying a list of encodings and
// delimiters in order; the first combination that yields more than one
// column wins. Malformed lines are skipped and counted.
package tabfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/minios-linux/tabclean/table"
)

// Format is a file format.
type Format int

const (
	FormatCSV Format = iota
	FormatExcel
)

func (f Format) String() string {
	if f == FormatExcel {
		return "excel"
	}
	return "csv"
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return FormatExcel
	}
	return FormatCSV
}

// ReadOptions controls how input files are decoded.
type ReadOptions struct {
	// Encodings are tried in order: utf-8, utf-8-sig, latin1 (iso-8859-1),
	// cp1252 (windows-1252), utf-16.
	Encodings []string
	// Delimiters are tried in order for each encoding.
	Delimiters []rune
	// Sheet selects an Excel sheet; empty means the first one.
	Sheet string
}

// DefaultReadOptions returns the encodings and delimiters tried for files
// of unknown origin.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		Encodings:  []string{"utf-8", "utf-8-sig", "latin1", "cp1252"},
		Delimiters: []rune{'\t', ',', ';'},
	}
}

// Info describes how a file was read.
type Info struct {
	Format    Format
	Encoding  string
	Delimiter rune
	Sheet     string
	// Skipped counts malformed lines that were dropped.
	Skipped int
}

// ErrNoParse is returned when no encoding and delimiter combination
// produced a table.
var ErrNoParse = errors.New("could not parse file")

// ReadFile reads a CSV or Excel file.
func ReadFile(path string, opts ReadOptions) (*table.Table, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	t, info, err := Read(filepath.Base(path), f, opts)
	if err != nil {
		return nil, info, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, info, nil
}

// Read reads a table from r. name is used only for its extension.
func Read(name string, r io.Reader, opts ReadOptions) (*table.Table, Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Info{}, err
	}
	if len(opts.Encodings) == 0 || len(opts.Delimiters) == 0 {
		def := DefaultReadOptions()
		if len(opts.Encodings) == 0 {
			opts.Encodings = def.Encodings
		}
		if len(opts.Delimiters) == 0 {
			opts.Delimiters = def.Delimiters
		}
	}

	if isZip(data) {
		return readExcel(data, opts.Sheet)
	}

	var tried []string
	for _, enc := range opts.Encodings {
		text, err := decode(data, enc)
		if err != nil {
			tried = append(tried, fmt.Sprintf("%s (%v)", enc, err))
			continue
		}
		for _, delim := range opts.Delimiters {
			t, skipped, err := parseCSV(text, delim)
			if err == nil && len(t.Columns()) > 1 {
				return t, Info{Format: FormatCSV, Encoding: enc, Delimiter: delim, Skipped: skipped}, nil
			}
			tried = append(tried, fmt.Sprintf("%s/%q", enc, delim))
		}
	}

	if FormatFromPath(name) == FormatExcel {
		t, info, err := readExcel(data, opts.Sheet)
		if err == nil {
			return t, info, nil
		}
		tried = append(tried, fmt.Sprintf("excel (%v)", err))
	}
	return nil, Info{}, fmt.Errorf("%w: tried %s", ErrNoParse, strings.Join(tried, ", "))
}

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode converts data to UTF-8 text from the named encoding.
func decode(data []byte, name string) (string, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "utf-8", "utf8":
		// A BOM is left for utf-8-sig so that the header stays clean.
		if bytes.HasPrefix(data, utf8BOM) {
			return "", errors.New("byte order mark present")
		}
		if !utf8.Valid(data) {
			return "", errors.New("invalid UTF-8")
		}
		return string(data), nil
	case "utf-8-sig", "utf8-sig":
		// The decoder would replace invalid bytes; reject them instead.
		if !utf8.Valid(data) {
			return "", errors.New("invalid UTF-8")
		}
		enc = unicode.UTF8BOM
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		enc = charmap.ISO8859_1
	case "cp1252", "windows-1252":
		enc = charmap.Windows1252
	case "utf-16", "utf16":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	default:
		return "", fmt.Errorf("unsupported encoding %q", name)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", errors.New("invalid text after decoding")
	}
	return string(out), nil
}

// parseCSV parses text with one delimiter. Lines with more fields than the
// header or with broken quoting are skipped; short lines are padded.
func parseCSV(text string, delim rune) (*table.Table, int, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, 0, err
	}

	var records [][]string
	skipped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if len(rec) > len(header) {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	t, err := table.FromStrings(cleanHeader(header), records)
	if err != nil {
		return nil, 0, err
	}
	return t, skipped, nil
}

// cleanHeader names empty header cells "Unnamed: N" and suffixes repeated
// names with ".1", ".2", ...
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	next := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		for base := name; seen[name]; {
			next[base]++
			name = fmt.Sprintf("%s.%d", base, next[base])
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func readExcel(data []byte, sheet string) (*table.Table, Info, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, Info{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, Info{}, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, Info{}, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, Info{}, fmt.Errorf("sheet %q is empty", sheet)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	header := make([]string, width)
	copy(header, rows[0])

	t, err := table.FromStrings(cleanHeader(header), rows[1:])
	if err != nil {
		return nil, Info{}, err
	}
	return t, Info{Format: FormatExcel, Sheet: sheet}, nil
}
