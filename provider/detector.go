package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"

	"github.com/minios-linux/tabclean/langmeta"
	"github.com/minios-linux/tabclean/translate"
)

// ErrTooShort is wrapped when a text is too short to detect reliably.
var ErrTooShort = errors.New("text too short for detection")

// LocalDetector detects languages offline from trigram statistics.
//
// Table cells are often one or two words, where trigram scores are weak.
// An unreliable result is still returned unless Fallback is set, in which
// case Fallback wins. Only an undetermined language is an error.
type LocalDetector struct {
	// MinLength is the minimum number of letters (default 3).
	MinLength int
	// Languages restricts detection to these codes. Empty means every
	// language of the langmeta registry.
	Languages []string
	// Fallback is returned for short, unreliable or undetermined text.
	Fallback string

	once      sync.Once
	whitelist map[whatlanggo.Lang]bool
}

// NewLocalDetector returns a detector over the given languages, or over
// every known language when none are given. The first language is the
// fallback.
func NewLocalDetector(languages ...string) *LocalDetector {
	d := &LocalDetector{MinLength: 3, Languages: languages}
	if len(languages) > 0 {
		d.Fallback = langmeta.Canonicalize(languages[0])
	}
	return d
}

func (d *LocalDetector) options() whatlanggo.Options {
	d.once.Do(func() {
		d.whitelist = make(map[whatlanggo.Lang]bool)
		for lang := range whatlanggo.Langs {
			code := lang.Iso6391()
			if code == "" {
				continue
			}
			if len(d.Languages) == 0 {
				if langmeta.Known(code) {
					d.whitelist[lang] = true
				}
				continue
			}
			for _, want := range d.Languages {
				if langmeta.SameLanguage(code, want) {
					d.whitelist[lang] = true
				}
			}
		}
	})
	return whatlanggo.Options{Whitelist: d.whitelist}
}

// DetectLanguage returns the ISO 639-1 code of text. Failures are
// *translate.DetectionError.
func (d *LocalDetector) DetectLanguage(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	minLen := d.MinLength
	if minLen <= 0 {
		minLen = 3
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minLen {
		if d.Fallback != "" {
			return d.Fallback, nil
		}
		return "", &translate.DetectionError{Text: text, Err: ErrTooShort}
	}

	info := whatlanggo.DetectWithOptions(text, d.options())
	code := info.Lang.Iso6391()
	if d.Fallback != "" && (code == "" || !info.IsReliable()) {
		return d.Fallback, nil
	}
	if code == "" {
		return "", &translate.DetectionError{Text: text, Err: errors.New("unknown language")}
	}
	return code, nil
}
