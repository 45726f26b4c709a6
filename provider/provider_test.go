package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/minios-linux/tabclean/table"
	"github.com/minios-linux/tabclean/translate"
)

func TestLocalDetector(t *testing.T) {
	d := NewLocalDetector()
	text := "Bonjour à tous, je suis très content de vous voir aujourd'hui"
	if got, err := d.DetectLanguage(context.Background(), text); err != nil || got != "fr" {
		t.Fatalf("DetectLanguage(%q) = %q, %v; want fr", text, got, err)
	}

	_, err := d.DetectLanguage(context.Background(), " ok ")
	var de *translate.DetectionError
	if !errors.As(err, &de) || !errors.Is(err, ErrTooShort) {
		t.Fatalf("short text err = %v, want ErrTooShort", err)
	}
}

func TestLocalDetector_ShortCellValues(t *testing.T) {
	// One- and two-word cells score too low to be reliable; they still
	// get a language instead of an error.
	d := NewLocalDetector()
	for _, text := range []string{"Bonjour", "Guten Morgen", "Hola amigo"} {
		got, err := d.DetectLanguage(context.Background(), text)
		if err != nil || got == "" {
			t.Fatalf("DetectLanguage(%q) = %q, %v; want a language", text, got, err)
		}
	}

	cases := map[string]string{
		"Bonjour":      "fr",
		"Guten Morgen": "de",
		"Hola amigo":   "es",
	}
	for text, fallback := range cases {
		d := &LocalDetector{Fallback: fallback}
		if got, err := d.DetectLanguage(context.Background(), text); err != nil || got != fallback {
			t.Fatalf("DetectLanguage(%q) = %q, %v; want fallback %q", text, got, err, fallback)
		}
	}

	only := NewLocalDetector("fr_FR")
	if got, err := only.DetectLanguage(context.Background(), "ok"); err != nil || got != "fr-FR" {
		t.Fatalf("short text with fallback = %q, %v", got, err)
	}
}

func TestDictionaryProviderDetectsFromHeader(t *testing.T) {
	po := `msgid ""
msgstr ""
"Language: en\n"
"X-Source-Language: fr\n"

msgid "Bonjour"
msgstr "Hello"
`
	path := filepath.Join(t.TempDir(), "fr-en.po")
	if err := os.WriteFile(path, []byte(po), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := New(Config{ID: ProviderDictionary, Dictionary: path, Target: "en"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.(Composite).Detector.(*LocalDetector).Fallback; got != "fr" {
		t.Fatalf("Fallback = %q, want fr", got)
	}

	tbl, err := table.FromStrings([]string{"Title"}, [][]string{{"Bonjour"}, {""}, {"bonjour "}, {"BONJOUR"}})
	if err != nil {
		t.Fatal(err)
	}
	out, report, err := translate.New(p, translate.Options{}).Translate(context.Background(), tbl,
		translate.Selection{Columns: []string{"Title"}, Target: "en", Source: translate.AutoDetect})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if report.HasFailures() {
		t.Fatalf("failures: %v", report.Failures())
	}
	col, _ := out.Column("Title")
	var got []string
	for _, c := range col {
		got = append(got, c.String())
	}
	if want := []string{"Hello", "", "Hello", "Hello"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Title = %q, want %q", got, want)
	}
}

func TestCompositeAndEcho(t *testing.T) {
	p := Composite{Translator: Echo{}}
	if got, err := p.Translate(context.Background(), "Bonjour", "fr", "en"); err != nil || got != "Bonjour" {
		t.Fatalf("Echo Translate = %q, %v", got, err)
	}
	var de *translate.DetectionError
	if _, err := p.DetectLanguage(context.Background(), "Bonjour"); !errors.As(err, &de) {
		t.Fatalf("detect without detector err = %v", err)
	}
	var pe *translate.ProviderError
	if _, err := (Composite{}).Translate(context.Background(), "x", "fr", "en"); !errors.As(err, &pe) {
		t.Fatalf("translate without translator err = %v", err)
	}
}

func TestNew(t *testing.T) {
	t.Run("echo uses local detection", func(t *testing.T) {
		p, err := New(Config{ID: ProviderEcho})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		c, ok := p.(Composite)
		if !ok {
			t.Fatalf("provider = %T, want Composite", p)
		}
		if _, ok := c.Detector.(*LocalDetector); !ok {
			t.Fatalf("detector = %T", c.Detector)
		}
	})

	t.Run("llm detects itself by default", func(t *testing.T) {
		p, err := New(Config{ID: ProviderOllama, Model: "llama3"})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, ok := p.(*LLM); !ok {
			t.Fatalf("provider = %T, want *LLM", p)
		}
	})

	t.Run("llm with local detector", func(t *testing.T) {
		p, err := New(Config{ID: ProviderOllama, Model: "llama3", Detector: DetectorLocal})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if c, ok := p.(Composite); !ok || c.Translator.(*LLM).Endpoint().Model != "llama3" {
			t.Fatalf("provider = %#v", p)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		ep, err := ResolveEndpoint(Config{ID: ProviderGroq, Model: "m", BaseURL: "http://x", APIKey: "k"})
		if err != nil {
			t.Fatalf("ResolveEndpoint: %v", err)
		}
		if ep.Model != "m" || ep.BaseURL != "http://x" || ep.APIKey != "k" || ep.Name != "Groq" {
			t.Fatalf("endpoint = %+v", ep)
		}
	})

	errCases := map[string]Config{
		"unknown id":          {ID: "babelfish"},
		"missing key":         {ID: ProviderOpenAI, Model: "gpt"},
		"missing model":       {ID: ProviderOllama},
		"dictionary no file":  {ID: ProviderDictionary, Target: "en"},
		"echo cannot detect":  {ID: ProviderEcho, Detector: DetectorProvider},
		"bad detector choice": {ID: ProviderEcho, Detector: "magic"},
	}
	for name, cfg := range errCases {
		t.Run(name, func(t *testing.T) {
			if _, err := New(cfg); err == nil {
				t.Fatalf("New(%+v) succeeded, want error", cfg)
			}
		})
	}
}
