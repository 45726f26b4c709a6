// Package glossary reads and writes PO glossaries: gettext files whose
// msgid is a source text and msgstr its translation. The dictionary
// provider reads the same format, so an exported glossary can drive a
// later run without an AI provider.
package glossary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/minios-linux/tabclean/langmeta"
	"github.com/minios-linux/tabclean/translate"
)

// Header field names.
const (
	FieldLanguage       = "Language"
	FieldSourceLanguage = "X-Source-Language"
	FieldRevisionDate   = "PO-Revision-Date"
)

// Entry is one glossary term.
type Entry struct {
	// Comments are extracted comments ("#.").
	Comments []string
	// References name the columns the term was seen in ("#:").
	References []string
	// Flags are "#," flags such as fuzzy.
	Flags  []string
	MsgID  string
	MsgStr string
}

// IsFuzzy returns true if the entry is marked fuzzy.
func (e *Entry) IsFuzzy() bool {
	return slices.Contains(e.Flags, "fuzzy")
}

func (e *Entry) addReference(ref string) {
	if ref != "" && !slices.Contains(e.References, ref) {
		e.References = append(e.References, ref)
	}
}

// File is a parsed glossary.
type File struct {
	// Header is the raw header msgstr ("Key: value" lines).
	Header  string
	Entries []*Entry
	index   map[string]*Entry
}

// NewFile creates an empty glossary for a language pair. An empty or
// "auto" source leaves the source language open.
func NewFile(source, target string) *File {
	f := &File{index: make(map[string]*Entry)}
	f.Header = "MIME-Version: 1.0\n" +
		"Content-Type: text/plain; charset=UTF-8\n" +
		"Content-Transfer-Encoding: 8bit\n"
	f.SetHeaderField(FieldLanguage, langmeta.Canonicalize(target))
	if src := langmeta.Canonicalize(source); src != "" && !strings.EqualFold(src, translate.AutoDetect) {
		f.SetHeaderField(FieldSourceLanguage, src)
	}
	return f
}

// HeaderField returns a header field value by name.
func (f *File) HeaderField(name string) string {
	for _, line := range strings.Split(f.Header, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			if strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// SetHeaderField sets a header field value.
func (f *File) SetHeaderField(name, value string) {
	lines := strings.Split(f.Header, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, ":"); idx > 0 && strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
			lines[i] = name + ": " + value
			f.Header = strings.Join(lines, "\n")
			return
		}
	}
	// Insert before trailing empty line
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = append(lines[:len(lines)-1], name+": "+value, "")
	} else {
		lines = append(lines, name+": "+value)
	}
	f.Header = strings.Join(lines, "\n")
}

// Target returns the Language header.
func (f *File) Target() string { return f.HeaderField(FieldLanguage) }

// Source returns the X-Source-Language header, empty when open.
func (f *File) Source() string { return f.HeaderField(FieldSourceLanguage) }

// Lookup finds an entry by its msgid.
func (f *File) Lookup(msgid string) *Entry {
	return f.index[msgid]
}

func (f *File) add(e *Entry) {
	if f.index == nil {
		f.index = make(map[string]*Entry)
	}
	if _, ok := f.index[e.MsgID]; ok {
		return
	}
	f.index[e.MsgID] = e
	f.Entries = append(f.Entries, e)
}

// Stats returns entry counts.
func (f *File) Stats() (total, translated, fuzzy int) {
	for _, e := range f.Entries {
		total++
		switch {
		case e.IsFuzzy():
			fuzzy++
		case e.MsgStr != "":
			translated++
		}
	}
	return
}

// ---------------------------------------------------------------------------
// Merging translation reports
// ---------------------------------------------------------------------------

// MergeStats counts what Merge changed.
type MergeStats struct {
	Added   int
	Updated int
	// Skipped counts groups whose language pair the glossary does not cover.
	Skipped int
}

// Merge adds every translated or cached group of the report. Each distinct
// member text of a group becomes its own entry with the group's
// translation; members other than the representative get a comment naming
// it. Entries already present get the new translation. Failed and skipped
// groups are ignored.
func (f *File) Merge(r *translate.Report) (MergeStats, error) {
	var st MergeStats
	if r == nil {
		return st, nil
	}
	if t := f.Target(); t != "" && !langmeta.SameLanguage(t, r.Target) {
		return st, fmt.Errorf("glossary targets %s, report targets %s", t, r.Target)
	}
	src := f.Source()
	for _, col := range r.Columns {
		for _, g := range col.GroupResults {
			if g.Status != translate.StatusTranslated && g.Status != translate.StatusCached {
				continue
			}
			if src != "" && !langmeta.SameLanguage(src, g.Source) {
				st.Skipped++
				continue
			}
			for _, m := range g.Members {
				if m == g.Translation {
					continue
				}
				if e := f.Lookup(m); e != nil {
					if e.MsgStr != g.Translation {
						e.MsgStr = g.Translation
						st.Updated++
					}
					e.addReference(col.Column)
					continue
				}
				e := &Entry{MsgID: m, MsgStr: g.Translation}
				e.addReference(col.Column)
				if m != g.Representative {
					e.Comments = append(e.Comments, "similar to: "+g.Representative)
				}
				f.add(e)
				st.Added++
			}
		}
	}
	if st.Added+st.Updated > 0 {
		f.SetHeaderField(FieldRevisionDate, time.Now().UTC().Format("2006-01-02 15:04+0000"))
	}
	return st, nil
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// Parse reads a glossary. Plural forms, obsolete entries and msgctxt are
// ignored.
func Parse(r io.Reader) (*File, error) {
	f := &File{index: make(map[string]*Entry)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var current *Entry
	var lastField string
	var header bool
	skip := false

	flush := func() {
		if current != nil && !skip {
			if header {
				f.Header = current.MsgStr
			} else {
				f.add(current)
			}
		}
		current, lastField, header, skip = nil, "", false, false
	}

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current == nil {
			current = &Entry{}
		}

		switch {
		case strings.HasPrefix(line, "#~"), strings.HasPrefix(line, "msgid_plural "),
			strings.HasPrefix(line, "msgstr["), strings.HasPrefix(line, "msgctxt "):
			skip = true
			lastField = ""
		case strings.HasPrefix(line, "#:"):
			for _, ref := range strings.Fields(line[2:]) {
				current.addReference(ref)
			}
		case strings.HasPrefix(line, "#,"):
			for _, flag := range strings.Split(line[2:], ",") {
				if flag = strings.TrimSpace(flag); flag != "" {
					current.Flags = append(current.Flags, flag)
				}
			}
		case strings.HasPrefix(line, "#."):
			current.Comments = append(current.Comments, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "#"):
			// translator comments are not kept
		case strings.HasPrefix(line, "msgid "):
			current.MsgID = unquote(strings.TrimPrefix(line, "msgid "))
			header = current.MsgID == ""
			lastField = "msgid"
		case strings.HasPrefix(line, "msgstr "):
			current.MsgStr = unquote(strings.TrimPrefix(line, "msgstr "))
			lastField = "msgstr"
		case strings.HasPrefix(line, `"`):
			switch lastField {
			case "msgid":
				current.MsgID += unquote(line)
				header = current.MsgID == ""
			case "msgstr":
				current.MsgStr += unquote(line)
			}
		default:
			return nil, fmt.Errorf("line %d: unexpected %q", lineNum, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading glossary: %w", err)
	}
	return f, nil
}

// ReadFile reads a glossary from disk.
func ReadFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	f, err := Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Open reads path when it exists, otherwise it returns NewFile(source, target).
func Open(path, source, target string) (*File, error) {
	f, err := ReadFile(path)
	if os.IsNotExist(err) {
		return NewFile(source, target), nil
	}
	return f, err
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Write writes the glossary in PO format.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	writeQuotedField(bw, "msgid", "")
	writeQuotedField(bw, "msgstr", f.Header)

	for _, e := range f.Entries {
		fmt.Fprintln(bw)
		for _, c := range e.Comments {
			fmt.Fprintf(bw, "#. %s\n", c)
		}
		if len(e.References) > 0 {
			fmt.Fprintf(bw, "#: %s\n", strings.Join(e.References, " "))
		}
		if len(e.Flags) > 0 {
			fmt.Fprintf(bw, "#, %s\n", strings.Join(e.Flags, ", "))
		}
		writeQuotedField(bw, "msgid", e.MsgID)
		writeQuotedField(bw, "msgstr", e.MsgStr)
	}
	return bw.Flush()
}

// WriteFile writes the glossary to disk.
func (f *File) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := f.Write(out); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}

// writeQuotedField writes a PO field with multiline quoting.
func writeQuotedField(w *bufio.Writer, field, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", field, quote(value))
		return
	}

	fmt.Fprintf(w, "%s \"\"\n", field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s\n", quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s\n", quote(part))
		}
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\', '"':
			b.WriteByte(s[i+1])
		default:
			b.WriteByte(s[i])
			continue
		}
		i++
	}
	return b.String()
}
