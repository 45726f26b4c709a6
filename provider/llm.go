// Package provider implements translation providers for the translate
// package: HTTP-based AI services (OpenAI-compatible, Google Gemini,
// Anthropic, Ollama), a gettext PO dictionary, and a local language
// detector.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/minios-linux/tabclean/langmeta"
	"github.com/minios-linux/tabclean/translate"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderOpenAI       = "openai"
	ProviderGroq         = "groq"
	ProviderGoogle       = "google"
	ProviderAnthropic    = "anthropic"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
)

// ---------------------------------------------------------------------------
// System prompts
// ---------------------------------------------------------------------------

const TranslateSystemPrompt = `You are a professional translator working on tabular data exported from spreadsheets and databases. Translate the user's text from {{sourceLang}} to {{targetLang}}.

RULES:
- Reply with the translation only, without quotes, notes or explanations
- Keep numbers, codes, URLs, e-mail addresses and product names unchanged
- Preserve punctuation and the capitalization style of the original
- Short values are often labels or categories: translate them as such
- If the text is already in {{targetLang}}, reply with it unchanged`

const DetectSystemPrompt = `Identify the language of the user's text. Reply with its ISO 639-1 code only, for example: en, fr, pt. If the language cannot be identified, reply with: und`

// ---------------------------------------------------------------------------
// Endpoint configuration
// ---------------------------------------------------------------------------

// Endpoint holds the configuration for an AI translation service.
type Endpoint struct {
	// ID is the provider identifier (openai, groq, google, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
}

// DefaultEndpoints returns the pre-configured endpoint definitions.
func DefaultEndpoints() map[string]Endpoint {
	return map[string]Endpoint{
		ProviderOpenAI: {
			ID:      ProviderOpenAI,
			Name:    "OpenAI",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 60 * time.Second,
		},
		ProviderGroq: {
			ID:      ProviderGroq,
			Name:    "Groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Timeout: 60 * time.Second,
		},
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google AI (Gemini)",
			BaseURL: "https://generativelanguage.googleapis.com",
			Timeout: 120 * time.Second,
		},
		ProviderAnthropic: {
			ID:      ProviderAnthropic,
			Name:    "Anthropic",
			BaseURL: "https://api.anthropic.com/v1",
			Timeout: 120 * time.Second,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Timeout: 120 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
	}
}

// NeedsAPIKey reports whether a provider requires an API key.
func NeedsAPIKey(id string) bool {
	switch id {
	case ProviderOllama, ProviderCustomOpenAI:
		return false
	}
	return true
}

// Validate checks that an endpoint has everything needed to make calls.
func (e Endpoint) Validate() error {
	var missing []string
	if e.BaseURL == "" {
		missing = append(missing, "base URL")
	}
	if e.Model == "" {
		missing = append(missing, "model")
	}
	if e.APIKey == "" && NeedsAPIKey(e.ID) {
		missing = append(missing, "API key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("provider %s: missing %s", e.ID, strings.Join(missing, ", "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Rate limit state (global pause for parallel workers)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return atomic.LoadInt32(&r.paused) == 1
}

func (r *rateLimitState) pause(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseEnd = time.Now().Add(duration)
	atomic.StoreInt32(&r.paused, 1)
}

func (r *rateLimitState) unpause() {
	atomic.StoreInt32(&r.paused, 0)
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.unpause()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(remaining, 100*time.Millisecond)):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Support both --proxy flag and HTTP_PROXY/HTTPS_PROXY env vars
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// API format types
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // OpenAI chat/completions
	formatGeminiNative                  // Google Gemini generateContent
	formatAnthropic                     // Anthropic messages
)

func formatFor(id string) apiFormat {
	switch id {
	case ProviderGoogle:
		return formatGeminiNative
	case ProviderAnthropic:
		return formatAnthropic
	}
	return formatOpenAIChat
}

// ---------------------------------------------------------------------------
// LLM provider
// ---------------------------------------------------------------------------

// LLMOptions tunes an LLM provider.
type LLMOptions struct {
	// MaxRetries is the maximum number of retries on transport errors,
	// 5xx and 429 responses. Default: 3.
	MaxRetries int
	// RequestsPerSecond paces outgoing requests (0 = unlimited).
	RequestsPerSecond float64
	// Verbose enables [DEBUG] request logging.
	Verbose bool
}

// LLM translates and detects languages through a chat-style AI API.
// It is safe for concurrent use; a 429 from any call pauses all callers.
type LLM struct {
	ep         Endpoint
	format     apiFormat
	client     *http.Client
	rl         *rateLimitState
	limiter    *rate.Limiter
	maxRetries int
	verbose    bool

	// backoff and retryAfter are replaced in tests.
	backoff    func(attempt int) time.Duration
	retryAfter func(body []byte) time.Duration
}

// NewLLM returns an LLM provider for a validated endpoint.
func NewLLM(ep Endpoint, opts LLMOptions) (*LLM, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	l := &LLM{
		ep:         ep,
		format:     formatFor(ep.ID),
		client:     makeHTTPClient(ep.Proxy, ep.Timeout),
		rl:         &rateLimitState{},
		maxRetries: maxRetries,
		verbose:    opts.Verbose,
		backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt))) * time.Second
		},
		retryAfter: parseRetryDelay,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(math.Ceil(opts.RequestsPerSecond))
		l.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return l, nil
}

// Endpoint returns the endpoint configuration.
func (l *LLM) Endpoint() Endpoint { return l.ep }

// Translate translates one text. Failures are *translate.ProviderError.
func (l *LLM) Translate(ctx context.Context, text, source, target string) (string, error) {
	prompt := strings.NewReplacer(
		"{{sourceLang}}", langmeta.EnglishName(source),
		"{{targetLang}}", langmeta.EnglishName(target),
	).Replace(TranslateSystemPrompt)

	out, err := l.call(ctx, prompt, text)
	if err != nil {
		return "", &translate.ProviderError{Reason: reasonFor(err), Text: text, Source: source, Target: target, Err: err}
	}
	out = cleanResponse(out)
	if out == "" {
		return "", &translate.ProviderError{Reason: translate.ReasonUnknown, Text: text, Source: source, Target: target, Err: errors.New("empty response")}
	}
	return out, nil
}

var langCodePattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z]{2})?$`)

// DetectLanguage asks the model for the ISO 639-1 code of text. Failures
// are *translate.DetectionError.
func (l *LLM) DetectLanguage(ctx context.Context, text string) (string, error) {
	out, err := l.call(ctx, DetectSystemPrompt, text)
	if err != nil {
		return "", &translate.DetectionError{Text: text, Err: err}
	}
	code := strings.ToLower(strings.Trim(cleanResponse(out), " .\"'`"))
	if fields := strings.Fields(code); len(fields) > 0 {
		code = fields[0]
	}
	code = strings.ReplaceAll(code, "_", "-")
	if code == "" || code == "und" || !langCodePattern.MatchString(code) {
		return "", &translate.DetectionError{Text: text, Err: fmt.Errorf("model returned %q", truncate(out, 40))}
	}
	return langmeta.Canonicalize(code), nil
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// StatusError is a non-200 API response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Code, truncate(e.Body, 500))
}

func reasonFor(err error) translate.Reason {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests:
			return translate.ReasonQuota
		case (se.Code == http.StatusBadRequest || se.Code == http.StatusUnprocessableEntity) &&
			strings.Contains(strings.ToLower(se.Body), "language"):
			return translate.ReasonUnsupportedPair
		}
		return translate.ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return translate.ReasonTimeout
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return translate.ReasonTimeout
	}
	return translate.ReasonUnknown
}

// ---------------------------------------------------------------------------
// HTTP call with retries
// ---------------------------------------------------------------------------

func (l *LLM) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	endpoint, headers, body, err := buildHTTPRequest(l.ep, systemPrompt, userPrompt, l.format)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		// Wait if globally paused (rate limit from another worker)
		if err := l.rl.waitIfPaused(ctx); err != nil {
			return "", err
		}
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		if l.verbose {
			log.Printf("[DEBUG] %s attempt %d: POST %s", l.ep.Name, attempt+1, endpoint)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			if ctx.Err() == nil && attempt < l.maxRetries {
				if err := sleep(ctx, l.backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("API request failed: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt < l.maxRetries {
				retryDelay := l.retryAfter(respBody)
				if l.verbose {
					log.Printf("[WARN] 429 rate limited, waiting %v before retry (attempt %d/%d)", retryDelay, attempt+1, l.maxRetries)
				}
				// Globally pause all workers
				l.rl.pause(retryDelay)
				if err := sleep(ctx, retryDelay); err != nil {
					return "", err
				}
				l.rl.unpause()
				continue
			}
			return "", &StatusError{Code: resp.StatusCode, Body: string(respBody)}
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < l.maxRetries && resp.StatusCode >= 500 {
				if err := sleep(ctx, l.backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", &StatusError{Code: resp.StatusCode, Body: string(respBody)}
		}

		return extractResponseText(respBody)
	}

	return "", fmt.Errorf("exhausted all %d retries", l.maxRetries)
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// buildHTTPRequest constructs the endpoint, headers, and body for a call.
func buildHTTPRequest(ep Endpoint, systemPrompt, userPrompt string, format apiFormat) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	var endpoint string
	var body []byte
	var err error

	switch format {
	case formatGeminiNative:
		// Google AI: POST /v1beta/models/{model}:generateContent
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent",
			strings.TrimRight(ep.BaseURL, "/"), ep.Model)
		if ep.APIKey != "" {
			headers["x-goog-api-key"] = ep.APIKey
		}
		body, err = buildGeminiRequest(systemPrompt, userPrompt, 0.2)

	case formatAnthropic:
		endpoint = strings.TrimRight(ep.BaseURL, "/") + "/messages"
		if ep.APIKey != "" {
			headers["x-api-key"] = ep.APIKey
		}
		headers["anthropic-version"] = "2023-06-01"
		body, err = buildAnthropicRequest(ep.Model, systemPrompt, userPrompt)

	default: // formatOpenAIChat
		baseURL := strings.TrimRight(ep.BaseURL, "/")
		if !strings.HasSuffix(baseURL, "/chat/completions") {
			endpoint = baseURL + "/chat/completions"
		} else {
			endpoint = baseURL
		}
		if ep.APIKey != "" {
			headers["Authorization"] = "Bearer " + ep.APIKey
		}
		body, err = buildOpenAIChatRequest(ep.Model, systemPrompt, userPrompt, 0.2)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

// ---------------------------------------------------------------------------
// Request builders for each API format
// ---------------------------------------------------------------------------

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

func buildAnthropicRequest(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    string `json:"system,omitempty"`
		Messages  []msg  `json:"messages"`
	}{
		Model:     model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages: []msg{
			{Role: "user", Content: userPrompt},
		},
	}
	return json.Marshal(req)
}

// ---------------------------------------------------------------------------
// Response parsers (multi-format)
// ---------------------------------------------------------------------------

// extractResponseText tries all known response formats and returns the text.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	// Check for API error
	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// 1. OpenAI chat format: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// 2. Gemini format: candidates[0].content.parts[0].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]any); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}

	// 3. Anthropic format: content[].type=="text" -> .text
	if contentArr, ok := raw["content"].([]any); ok {
		for _, c := range contentArr {
			if block, ok := c.(map[string]any); ok {
				if block["type"] == "text" {
					if text, ok := block["text"].(string); ok {
						return text, nil
					}
				}
			}
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

var markdownCodeBlock = regexp.MustCompile("(?s)^```[a-z]*\\s*(.*?)\\s*```$")

// cleanResponse strips whitespace, a surrounding code fence and matching
// surrounding quotes from a model reply.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if m := markdownCodeBlock.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	if len(s) >= 2 {
		for _, q := range []string{`"`, "“”", "«»"} {
			left, right := q, q
			if r := []rune(q); len(r) == 2 {
				left, right = string(r[0]), string(r[1])
			}
			if strings.HasPrefix(s, left) && strings.HasSuffix(s, right) && len(s) > len(left)+len(right) {
				s = strings.TrimSpace(s[len(left) : len(s)-len(right)])
				break
			}
		}
	}
	return s
}

// ---------------------------------------------------------------------------
// Rate limit: parse 429 response for retry delay
// ---------------------------------------------------------------------------

// parseRetryDelay extracts the retry delay from a 429 response body.
// Looks for Google's RetryInfo detail with retryDelay field.
// Returns the delay to wait, defaulting to 60s + 5s buffer.
func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second // 60s + 5s buffer

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			// Parse duration like "30s", "45.123s"
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}

	return defaultDelay
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
