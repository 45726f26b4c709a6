package glossary

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/minios-linux/tabclean/provider"
	"github.com/minios-linux/tabclean/translate"
)

func sampleReport() *translate.Report {
	return &translate.Report{
		Source: translate.AutoDetect,
		Target: "en",
		Columns: []*translate.ColumnReport{{
			Column: "Title",
			GroupResults: []translate.GroupResult{
				{Representative: "Bonjour", Members: []string{"Bonjour", "bonjour!"}, Source: "fr", Status: translate.StatusTranslated, Translation: "Hello"},
				{Representative: "Merci", Members: []string{"Merci"}, Source: "fr", Status: translate.StatusCached, Translation: "Thanks"},
				{Representative: "Hallo", Members: []string{"Hallo"}, Source: "de", Status: translate.StatusTranslated, Translation: "Hello"},
				{Representative: "???", Members: []string{"???"}, Source: "fr", Status: translate.StatusFailed},
				{Representative: "Hello", Members: []string{"Hello"}, Source: "en", Status: translate.StatusSkipped},
			},
		}},
	}
}

func TestMergeAndRoundTrip(t *testing.T) {
	f := NewFile("fr", "en")
	st, err := f.Merge(sampleReport())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if st.Added != 3 || st.Updated != 0 || st.Skipped != 1 {
		t.Fatalf("MergeStats = %+v, want 3 added, 1 skipped", st)
	}
	if e := f.Lookup("bonjour!"); e == nil || e.MsgStr != "Hello" || len(e.Comments) != 1 {
		t.Fatalf("member entry = %#v", e)
	}
	if f.HeaderField(FieldRevisionDate) == "" {
		t.Fatalf("revision date not set")
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	round, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if round.Target() != "en" || round.Source() != "fr" {
		t.Fatalf("pair = %q -> %q", round.Source(), round.Target())
	}
	var ids []string
	for _, e := range round.Entries {
		ids = append(ids, e.MsgID)
	}
	if !reflect.DeepEqual(ids, []string{"Bonjour", "bonjour!", "Merci"}) {
		t.Fatalf("entries = %v", ids)
	}
	if got := round.Lookup("Merci").References; !reflect.DeepEqual(got, []string{"Title"}) {
		t.Fatalf("References = %v", got)
	}
	if total, translated, fuzzy := round.Stats(); total != 3 || translated != 3 || fuzzy != 0 {
		t.Fatalf("Stats = %d %d %d", total, translated, fuzzy)
	}

	dict, err := provider.NewDictionary(buf.Bytes(), "fr", "en")
	if err != nil {
		t.Fatalf("NewDictionary: %v", err)
	}
	if got, err := dict.Translate(context.Background(), "bonjour!", "fr", "en"); err != nil || got != "Hello" {
		t.Fatalf("dictionary lookup = %q, %v", got, err)
	}
}

func TestMergeUpdatesExisting(t *testing.T) {
	f := NewFile("", "en")
	if _, err := f.Merge(sampleReport()); err != nil {
		t.Fatal(err)
	}
	rep := &translate.Report{Target: "en", Columns: []*translate.ColumnReport{{
		Column: "Body",
		GroupResults: []translate.GroupResult{
			{Representative: "Merci", Members: []string{"Merci"}, Source: "fr", Status: translate.StatusTranslated, Translation: "Thank you"},
		},
	}}}
	st, err := f.Merge(rep)
	if err != nil {
		t.Fatal(err)
	}
	if st.Added != 0 || st.Updated != 1 {
		t.Fatalf("MergeStats = %+v", st)
	}
	e := f.Lookup("Merci")
	if e.MsgStr != "Thank you" || !reflect.DeepEqual(e.References, []string{"Title", "Body"}) {
		t.Fatalf("entry = %#v", e)
	}
	if f.Lookup("Hallo") == nil {
		t.Fatalf("open source glossary should accept every source language")
	}

	if _, err := f.Merge(&translate.Report{Target: "de"}); err == nil {
		t.Fatalf("expected error for target mismatch")
	}
}

func TestParseSkipsUnsupportedEntries(t *testing.T) {
	input := `# translator note
msgid ""
msgstr ""
"Language: de\n"

#, fuzzy
msgid "draft"
msgstr "Entwurf"

msgid "count"
msgid_plural "counts"
msgstr[0] "eins"
msgstr[1] "viele"

#~ msgid "old"
#~ msgstr "alt"

msgid ""
"multi "
"line"
msgstr "mehr\tzeilig"
`
	f, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Target() != "de" {
		t.Fatalf("Target() = %q", f.Target())
	}
	if len(f.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(f.Entries))
	}
	if !f.Lookup("draft").IsFuzzy() {
		t.Fatalf("draft should be fuzzy")
	}
	if e := f.Lookup("multi line"); e == nil || e.MsgStr != "mehr\tzeilig" {
		t.Fatalf("multiline entry = %#v", e)
	}
	if _, err := Parse(strings.NewReader("msgid \"a\"\nbogus\n")); err == nil {
		t.Fatalf("expected error for malformed line")
	}
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.po")
	f, err := Open(path, "auto", "pt_br")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.Target() != "pt-BR" || f.Source() != "" {
		t.Fatalf("pair = %q -> %q", f.Source(), f.Target())
	}
	if err := f.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	again, err := Open(path, "fr", "en")
	if err != nil || again.Target() != "pt-BR" {
		t.Fatalf("reopened = %v, %v", again, err)
	}
}
