package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minios-linux/tabclean/translate"
)

func newTestLLM(t *testing.T, id, baseURL string) *LLM {
	t.Helper()
	l, err := NewLLM(Endpoint{ID: id, Name: id, BaseURL: baseURL, APIKey: "test-key", Model: "test-model", Timeout: 5 * time.Second}, LLMOptions{})
	if err != nil {
		t.Fatalf("NewLLM: %v", err)
	}
	l.backoff = func(int) time.Duration { return time.Millisecond }
	l.retryAfter = func([]byte) time.Duration { return time.Millisecond }
	return l
}

func openAIReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": text}}},
	})
	return string(b)
}

// ---------------------------------------------------------------------------
// Request formats
// ---------------------------------------------------------------------------

func TestLLMTranslate_OpenAIChat(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		io.WriteString(w, openAIReply("  \"Hello\"\n"))
	}))
	defer srv.Close()

	l := newTestLLM(t, ProviderOpenAI, srv.URL+"/v1")
	got, err := l.Translate(context.Background(), "Bonjour", "fr", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Hello" {
		t.Fatalf("Translate = %q, want Hello", got)
	}
	if gotAuth != "Bearer test-key" || gotPath != "/v1/chat/completions" {
		t.Fatalf("auth = %q, path = %q", gotAuth, gotPath)
	}
	if gotBody.Model != "test-model" || len(gotBody.Messages) != 2 {
		t.Fatalf("body = %+v", gotBody)
	}
	sys := gotBody.Messages[0].Content
	if !strings.Contains(sys, "from French to English") {
		t.Fatalf("system prompt does not name the pair: %q", sys)
	}
	if gotBody.Messages[1].Content != "Bonjour" {
		t.Fatalf("user message = %q", gotBody.Messages[1].Content)
	}
}

func TestLLMTranslate_GeminiAndAnthropic(t *testing.T) {
	t.Run("gemini", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1beta/models/test-model:generateContent" || r.Header.Get("x-goog-api-key") != "test-key" {
				t.Errorf("unexpected request %s key=%q", r.URL.Path, r.Header.Get("x-goog-api-key"))
			}
			io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Hallo"}]}}]}`)
		}))
		defer srv.Close()
		got, err := newTestLLM(t, ProviderGoogle, srv.URL).Translate(context.Background(), "Hello", "en", "de")
		if err != nil || got != "Hallo" {
			t.Fatalf("Translate = %q, %v", got, err)
		}
	})

	t.Run("anthropic", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/messages" || r.Header.Get("x-api-key") != "test-key" || r.Header.Get("anthropic-version") == "" {
				t.Errorf("unexpected request %s headers=%v", r.URL.Path, r.Header)
			}
			io.WriteString(w, `{"content":[{"type":"text","text":"Hola"}]}`)
		}))
		defer srv.Close()
		got, err := newTestLLM(t, ProviderAnthropic, srv.URL).Translate(context.Background(), "Hello", "en", "es")
		if err != nil || got != "Hola" {
			t.Fatalf("Translate = %q, %v", got, err)
		}
	})
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestLLMTranslate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		io.WriteString(w, openAIReply("Hello"))
	}))
	defer srv.Close()

	got, err := newTestLLM(t, ProviderGroq, srv.URL).Translate(context.Background(), "Bonjour", "fr", "en")
	if err != nil || got != "Hello" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestLLMTranslate_FailureReasons(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   translate.Reason
	}{
		{name: "quota", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`, want: translate.ReasonQuota},
		{name: "unsupported pair", status: http.StatusBadRequest, body: `{"error":{"message":"target language xx is not supported"}}`, want: translate.ReasonUnsupportedPair},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":{"message":"bad model"}}`, want: translate.ReasonUnknown},
		{name: "api error body", status: http.StatusOK, body: `{"error":{"message":"invalid key"}}`, want: translate.ReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			l := newTestLLM(t, ProviderOpenAI, srv.URL)
			l.maxRetries = 1
			_, err := l.Translate(context.Background(), "Bonjour", "fr", "en")
			var pe *translate.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *translate.ProviderError", err)
			}
			if pe.Reason != tc.want || pe.Text != "Bonjour" || pe.Source != "fr" || pe.Target != "en" {
				t.Fatalf("provider error = %+v", pe)
			}
			if tc.status == http.StatusTooManyRequests && calls.Load() != 2 {
				t.Fatalf("429 calls = %d, want 2 (one retry)", calls.Load())
			}
		})
	}
}

func TestLLMTranslate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestLLM(t, ProviderOpenAI, srv.URL).Translate(ctx, "Bonjour", "fr", "en")
	var pe *translate.ProviderError
	if !errors.As(err, &pe) || pe.Reason != translate.ReasonTimeout {
		t.Fatalf("err = %v, want timeout ProviderError", err)
	}
}

// ---------------------------------------------------------------------------
// Detection
// ---------------------------------------------------------------------------

func TestLLMDetectLanguage(t *testing.T) {
	cases := []struct {
		reply string
		want  string
		fail  bool
	}{
		{reply: "fr", want: "fr"},
		{reply: " FR.\n", want: "fr"},
		{reply: "pt_br", want: "pt-BR"},
		{reply: "und", fail: true},
		{reply: "I think this is French", fail: true},
	}
	for _, tc := range cases {
		t.Run(tc.reply, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, openAIReply(tc.reply))
			}))
			defer srv.Close()

			got, err := newTestLLM(t, ProviderOpenAI, srv.URL).DetectLanguage(context.Background(), "Bonjour")
			if tc.fail {
				var de *translate.DetectionError
				if !errors.As(err, &de) {
					t.Fatalf("err = %v, want *translate.DetectionError", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("DetectLanguage = %q, %v; want %q", got, err, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestEndpointValidate(t *testing.T) {
	if err := (Endpoint{ID: ProviderOpenAI, BaseURL: "x"}).Validate(); err == nil ||
		!strings.Contains(err.Error(), "model") || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("Validate() = %v", err)
	}
	if err := (Endpoint{ID: ProviderOllama, BaseURL: "x", Model: "llama3"}).Validate(); err != nil {
		t.Fatalf("ollama needs no key: %v", err)
	}
}

func TestCleanResponse(t *testing.T) {
	cases := map[string]string{
		"  Hello ":            "Hello",
		"\"Hello\"":           "Hello",
		"“Bonjour”":           "Bonjour",
		"«Salut»":             "Salut",
		"```\nHallo\n```":     "Hallo",
		"```text\nHola\n```":  "Hola",
		"He said \"hi\" then": "He said \"hi\" then",
		"\"":                  "\"",
	}
	for in, want := range cases {
		if got := cleanResponse(in); got != want {
			t.Fatalf("cleanResponse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRetryDelay(t *testing.T) {
	body := []byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"30s"}]}}`)
	if got := parseRetryDelay(body); got != 35*time.Second {
		t.Fatalf("parseRetryDelay = %v, want 35s", got)
	}
	if got := parseRetryDelay([]byte("nope")); got != 65*time.Second {
		t.Fatalf("default delay = %v, want 65s", got)
	}
}
