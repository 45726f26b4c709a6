package provider

import (
	"fmt"
	"sort"
	"time"

	"github.com/minios-linux/tabclean/translate"
)

// Non-HTTP provider IDs.
const (
	ProviderDictionary = "dictionary"
	ProviderEcho       = "echo"
)

// Detector choices for Config.Detector.
const (
	DetectorLocal    = "local"
	DetectorProvider = "provider"
)

// Config selects and configures a provider.
type Config struct {
	// ID is an LLM provider ID, "dictionary" or "echo".
	ID string
	// Model, BaseURL, APIKey, Proxy and Timeout override the endpoint
	// defaults when set.
	Model   string
	BaseURL string
	APIKey  string
	Proxy   string
	Timeout time.Duration

	MaxRetries        int
	RequestsPerSecond float64
	Verbose           bool

	// Dictionary is the PO glossary path for the dictionary provider.
	Dictionary string
	// Source and Target are the dictionary's language pair.
	Source string
	Target string

	// Detector is "local" (offline detection) or "provider" (ask the LLM).
	// Empty means provider for LLMs and local otherwise.
	Detector string
	// Languages narrows local detection to these codes; the first one is
	// the fallback for short or unreliable text.
	Languages []string
}

// IDs returns every accepted provider ID, sorted.
func IDs() []string {
	ids := []string{ProviderDictionary, ProviderEcho}
	for id := range DefaultEndpoints() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveEndpoint merges the overrides in cfg into the default endpoint of
// cfg.ID.
func ResolveEndpoint(cfg Config) (Endpoint, error) {
	ep, ok := DefaultEndpoints()[cfg.ID]
	if !ok {
		return Endpoint{}, fmt.Errorf("unknown provider %q (valid: %v)", cfg.ID, IDs())
	}
	if cfg.Model != "" {
		ep.Model = cfg.Model
	}
	if cfg.BaseURL != "" {
		ep.BaseURL = cfg.BaseURL
	}
	if cfg.APIKey != "" {
		ep.APIKey = cfg.APIKey
	}
	if cfg.Proxy != "" {
		ep.Proxy = cfg.Proxy
	}
	if cfg.Timeout > 0 {
		ep.Timeout = cfg.Timeout
	}
	return ep, nil
}

// New builds the provider described by cfg.
func New(cfg Config) (translate.Provider, error) {
	var tr translate.Translator
	var fallback string

	switch cfg.ID {
	case ProviderDictionary:
		if cfg.Dictionary == "" {
			return nil, fmt.Errorf("provider %s: dictionary file is required", cfg.ID)
		}
		d, err := LoadDictionary(cfg.Dictionary, cfg.Source, cfg.Target)
		if err != nil {
			return nil, err
		}
		tr = d
		fallback = d.Source
	case ProviderEcho:
		tr = Echo{}
	default:
		ep, err := ResolveEndpoint(cfg)
		if err != nil {
			return nil, err
		}
		llm, err := NewLLM(ep, LLMOptions{
			MaxRetries:        cfg.MaxRetries,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Verbose:           cfg.Verbose,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Detector == "" || cfg.Detector == DetectorProvider {
			return llm, nil
		}
		tr = llm
	}

	var det *LocalDetector
	switch cfg.Detector {
	case "", DetectorLocal:
		det = NewLocalDetector(cfg.Languages...)
		if det.Fallback == "" {
			det.Fallback = fallback
		}
	case DetectorProvider:
		return nil, fmt.Errorf("provider %s cannot detect languages; use --detector %s", cfg.ID, DetectorLocal)
	default:
		return nil, fmt.Errorf("unknown detector %q (valid: %s, %s)", cfg.Detector, DetectorLocal, DetectorProvider)
	}
	return Composite{Detector: det, Translator: tr}, nil
}
