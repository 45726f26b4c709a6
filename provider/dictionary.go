package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"

	"github.com/minios-linux/tabclean/langmeta"
	"github.com/minios-linux/tabclean/translate"
)

// ErrNotFound is wrapped by Dictionary when a text has no entry.
var ErrNotFound = errors.New("no dictionary entry")

// Dictionary translates through a gettext PO glossary: msgid holds the
// source text, msgstr its translation. One file covers one language pair.
//
// A msgstr equal to its msgid is indistinguishable from a missing entry
// and is reported as not found.
type Dictionary struct {
	Source string
	Target string
	po     *gotext.Po
}

// LoadDictionary reads a PO glossary for the given language pair. An empty
// source accepts any source language.
func LoadDictionary(path, source, target string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary %s: %w", path, err)
	}
	return NewDictionary(data, source, target)
}

// NewDictionary parses PO content for the given language pair. An empty
// source is taken from the X-Source-Language header when present.
func NewDictionary(data []byte, source, target string) (*Dictionary, error) {
	if strings.TrimSpace(target) == "" {
		return nil, errors.New("dictionary target language is required")
	}
	if strings.TrimSpace(source) == "" {
		source = headerField(data, "X-Source-Language")
	}
	p := gotext.NewPo()
	p.Parse(data)
	return &Dictionary{
		Source: langmeta.Canonicalize(source),
		Target: langmeta.Canonicalize(target),
		po:     p,
	}, nil
}

// Translate looks text up exactly, then trimmed, then with internal
// whitespace collapsed.
func (d *Dictionary) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !langmeta.SameLanguage(target, d.Target) || (d.Source != "" && !langmeta.SameLanguage(source, d.Source)) {
		return "", &translate.ProviderError{
			Reason: translate.ReasonUnsupportedPair,
			Text:   text,
			Source: source,
			Target: target,
			Err:    fmt.Errorf("dictionary covers %s -> %s: %w", d.sourceName(), d.Target, translate.ErrUnsupportedPair),
		}
	}

	for _, candidate := range lookupKeys(text) {
		if tr := d.po.Get(candidate); tr != "" && tr != candidate {
			return tr, nil
		}
	}
	return "", &translate.ProviderError{
		Reason: translate.ReasonUnknown,
		Text:   text,
		Source: source,
		Target: target,
		Err:    ErrNotFound,
	}
}

func (d *Dictionary) sourceName() string {
	if d.Source == "" {
		return "any"
	}
	return d.Source
}

// headerField reads a field of the PO header entry, which is the first
// entry of the file.
func headerField(data []byte, name string) string {
	prefix := `"` + name + ":"
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "msgid \"") && line != `msgid ""` {
			return ""
		}
		if strings.HasPrefix(line, prefix) {
			v := strings.TrimSuffix(strings.TrimPrefix(line, prefix), `"`)
			return strings.TrimSpace(strings.TrimSuffix(v, `\n`))
		}
	}
	return ""
}

func lookupKeys(text string) []string {
	keys := []string{text}
	if t := strings.TrimSpace(text); t != text {
		keys = append(keys, t)
	}
	if c := strings.Join(strings.Fields(text), " "); c != keys[len(keys)-1] {
		keys = append(keys, c)
	}
	return keys
}
