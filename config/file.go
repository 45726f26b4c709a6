// Package config loads the optional .tabclean.yaml run configuration.
//
// Every value in the file can be overridden on the command line. Values
// absent from both fall back to the defaults applied by LoadFile.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/tabclean/langmeta"
	"github.com/minios-linux/tabclean/pipeline"
	"github.com/minios-linux/tabclean/provider"
	"github.com/minios-linux/tabclean/similarity"
	"github.com/minios-linux/tabclean/tabfile"
	"github.com/minios-linux/tabclean/translate"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .tabclean.yaml structure.
type File struct {
	// Steps lists the steps to run (default: all, canonical order).
	Steps     []string         `yaml:"steps,omitempty"`
	Input     InputSection     `yaml:"input,omitempty"`
	Dedup     DedupSection     `yaml:"dedup,omitempty"`
	Dates     DatesSection     `yaml:"dates,omitempty"`
	Translate TranslateSection `yaml:"translate,omitempty"`
	Provider  ProviderSection  `yaml:"provider,omitempty"`

	// dir is the directory the file was loaded from.
	dir string
}

// InputSection controls how input files are decoded.
type InputSection struct {
	Encodings  []string `yaml:"encodings,omitempty"`
	Delimiters []string `yaml:"delimiters,omitempty"`
	Sheet      string   `yaml:"sheet,omitempty"`
}

// DedupSection configures duplicate removal.
type DedupSection struct {
	// Columns to compare; empty compares whole rows.
	Columns []string `yaml:"columns,omitempty"`
}

// DatesSection configures date metadata.
type DatesSection struct {
	// Column overrides date column detection.
	Column string `yaml:"column,omitempty"`
}

// TranslateSection configures column translation.
type TranslateSection struct {
	Columns       []string      `yaml:"columns,omitempty"`
	Target        string        `yaml:"target,omitempty"`
	Source        string        `yaml:"source,omitempty"`
	Threshold     float64       `yaml:"threshold,omitempty"`
	Metric        string        `yaml:"metric,omitempty"`
	OutputPrefix  string        `yaml:"output_prefix,omitempty"`
	OnFailure     string        `yaml:"on_failure,omitempty"`
	Placeholder   string        `yaml:"placeholder,omitempty"`
	Parallel      bool          `yaml:"parallel,omitempty"`
	MaxConcurrent int           `yaml:"max_concurrent,omitempty"`
	RequestDelay  time.Duration `yaml:"request_delay,omitempty"`
	CallTimeout   time.Duration `yaml:"call_timeout,omitempty"`
}

// ProviderSection selects the translation backend. API keys are never read
// from this file; use the environment or the credential store.
type ProviderSection struct {
	ID                string        `yaml:"id,omitempty"`
	Model             string        `yaml:"model,omitempty"`
	BaseURL           string        `yaml:"base_url,omitempty"`
	Proxy             string        `yaml:"proxy,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	MaxRetries        int           `yaml:"max_retries,omitempty"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	// Dictionary is a PO glossary path, relative to the config file.
	Dictionary string `yaml:"dictionary,omitempty"`
	// Detector is "local" or "provider".
	Detector string `yaml:"detector,omitempty"`
	// Languages narrows local detection; the first is the fallback for
	// short or unreliable text.
	Languages []string `yaml:"languages,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = ".tabclean.yaml"

// Defaults.
const (
	DefaultTarget     = "en"
	DefaultProviderID = provider.ProviderOllama
	DefaultMaxRetries = 3
)

// LoadFile loads and validates .tabclean.yaml from dir.
// Returns nil if no file exists.
func LoadFile(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.dir = dir
	return f, nil
}

// Parse decodes and validates a configuration document. Unknown keys are
// rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("unsupported key: %w", err)
		}
		return nil, fmt.Errorf("parsing: %w", err)
	}
	f.ApplyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Default returns the configuration used when no file exists.
func Default() *File {
	f := &File{}
	f.ApplyDefaults()
	return f
}

// ApplyDefaults fills unset and zero values. A zero threshold, retry count
// or empty name means the default whether it came from the file or a flag.
func (f *File) ApplyDefaults() {
	if len(f.Steps) == 0 {
		f.Steps = slices.Clone(pipeline.StepNames)
	}
	if f.Translate.Target == "" {
		f.Translate.Target = DefaultTarget
	}
	if f.Translate.Source == "" {
		f.Translate.Source = translate.AutoDetect
	}
	if f.Translate.Threshold == 0 {
		f.Translate.Threshold = similarity.DefaultThreshold
	}
	if f.Translate.OnFailure == "" {
		f.Translate.OnFailure = string(translate.KeepOriginal)
	}
	if f.Provider.ID == "" {
		f.Provider.ID = DefaultProviderID
	}
	if f.Provider.MaxRetries == 0 {
		f.Provider.MaxRetries = DefaultMaxRetries
	}
}

// Validate checks enum values and ranges. LoadFile calls it; callers that
// override fields afterwards should call it again.
func (f *File) Validate() error {
	for _, s := range f.Steps {
		if !slices.Contains(pipeline.StepNames, strings.ToLower(strings.TrimSpace(s))) {
			return fmt.Errorf("unknown step %q (valid: %s)", s, strings.Join(pipeline.StepNames, ", "))
		}
	}
	if _, err := f.ReadOptions(); err != nil {
		return err
	}
	t := f.Translate
	if t.Threshold < 0 || t.Threshold > 1 {
		return fmt.Errorf("translate.threshold %v is outside [0, 1] (use metric %q for exact-only grouping)", t.Threshold, similarity.MetricExact)
	}
	if _, err := similarity.MetricByName(t.Metric); err != nil {
		return fmt.Errorf("translate.metric: %w", err)
	}
	if _, err := translate.ParseFailurePolicy(t.OnFailure); err != nil {
		return fmt.Errorf("translate.on_failure: %w", err)
	}
	if strings.EqualFold(t.Target, translate.AutoDetect) {
		return fmt.Errorf("translate.target cannot be %q", translate.AutoDetect)
	}
	if t.MaxConcurrent < 0 {
		return fmt.Errorf("translate.max_concurrent must not be negative")
	}
	if !slices.Contains(provider.IDs(), f.Provider.ID) {
		return fmt.Errorf("provider.id %q is unknown (valid: %s)", f.Provider.ID, strings.Join(provider.IDs(), ", "))
	}
	switch f.Provider.Detector {
	case "", provider.DetectorLocal, provider.DetectorProvider:
	default:
		return fmt.Errorf("provider.detector %q is unknown (valid: %s, %s)", f.Provider.Detector, provider.DetectorLocal, provider.DetectorProvider)
	}
	for _, lang := range f.Provider.Languages {
		if !langmeta.Known(lang) {
			return fmt.Errorf("provider.languages: unknown language %q", lang)
		}
	}
	if f.Provider.ID == provider.ProviderDictionary && f.Provider.Dictionary == "" {
		return fmt.Errorf("provider %q requires \"dictionary\"", provider.ProviderDictionary)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resolving to package options
// ---------------------------------------------------------------------------

// ParseDelimiter accepts a single character or one of the names tab,
// comma, semicolon, pipe.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r[0], nil
}

// ReadOptions returns the input decoding options, filling unset lists
// from tabfile.DefaultReadOptions.
func (f *File) ReadOptions() (tabfile.ReadOptions, error) {
	opts := tabfile.DefaultReadOptions()
	if len(f.Input.Encodings) > 0 {
		opts.Encodings = slices.Clone(f.Input.Encodings)
	}
	if len(f.Input.Delimiters) > 0 {
		opts.Delimiters = nil
		for _, d := range f.Input.Delimiters {
			r, err := ParseDelimiter(d)
			if err != nil {
				return opts, fmt.Errorf("input.delimiters: %w", err)
			}
			opts.Delimiters = append(opts.Delimiters, r)
		}
	}
	opts.Sheet = f.Input.Sheet
	return opts, nil
}

// DictionaryPath returns the glossary path resolved against the directory
// the file was loaded from.
func (f *File) DictionaryPath() string {
	p := f.Provider.Dictionary
	if p == "" || filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}
