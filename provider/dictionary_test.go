package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minios-linux/tabclean/translate"
)

const glossary = `msgid ""
msgstr ""
"Content-Type: text/plain; charset=UTF-8\n"
"Language: en\n"

msgid "Bonjour"
msgstr "Hello"

msgid "Au revoir"
msgstr "Goodbye"

msgid "Merci"
msgstr ""
`

func writeGlossary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fr-en.po")
	if err := os.WriteFile(path, []byte(glossary), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDictionaryTranslate(t *testing.T) {
	d, err := LoadDictionary(writeGlossary(t), "fr", "en")
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}

	cases := map[string]string{
		"Bonjour":       "Hello",
		"  Bonjour ":    "Hello",
		"Au   revoir":   "Goodbye",
		"\tAu revoir\n": "Goodbye",
	}
	for in, want := range cases {
		got, err := d.Translate(context.Background(), in, "fr", "en-GB")
		if err != nil || got != want {
			t.Fatalf("Translate(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestDictionaryMisses(t *testing.T) {
	d, err := LoadDictionary(writeGlossary(t), "fr", "en")
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}

	for _, text := range []string{"Inconnu", "Merci"} {
		_, err := d.Translate(context.Background(), text, "fr", "en")
		var pe *translate.ProviderError
		if !errors.As(err, &pe) || !errors.Is(err, ErrNotFound) || pe.Reason != translate.ReasonUnknown {
			t.Fatalf("Translate(%q) err = %v, want not found", text, err)
		}
	}

	_, err = d.Translate(context.Background(), "Bonjour", "fr", "de")
	if !errors.Is(err, translate.ErrUnsupportedPair) {
		t.Fatalf("wrong target err = %v, want ErrUnsupportedPair", err)
	}
	_, err = d.Translate(context.Background(), "Bonjour", "es", "en")
	var pe *translate.ProviderError
	if !errors.As(err, &pe) || pe.Reason != translate.ReasonUnsupportedPair {
		t.Fatalf("wrong source err = %v", err)
	}
}

func TestDictionaryAnySource(t *testing.T) {
	d, err := NewDictionary([]byte(glossary), "", "en")
	if err != nil {
		t.Fatalf("NewDictionary: %v", err)
	}
	if got, err := d.Translate(context.Background(), "Bonjour", "it", "en"); err != nil || got != "Hello" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
	if _, err := NewDictionary([]byte(glossary), "fr", ""); err == nil {
		t.Fatalf("expected error without target language")
	}
	if _, err := LoadDictionary(filepath.Join(t.TempDir(), "missing.po"), "fr", "en"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
