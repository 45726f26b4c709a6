package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Reason classifies a provider failure.
type Reason string

const (
	ReasonTimeout         Reason = "timeout"
	ReasonQuota           Reason = "quota"
	ReasonUnsupportedPair Reason = "unsupported_pair"
	ReasonUnknown         Reason = "unknown"
)

// ErrUnsupportedPair may be wrapped by providers that cannot translate
// between two languages.
var ErrUnsupportedPair = errors.New("unsupported language pair")

// ErrQuota may be wrapped by providers that ran out of quota.
var ErrQuota = errors.New("quota exceeded")

// ProviderError is a failed translate call for one text.
type ProviderError struct {
	Reason Reason
	Text   string
	Source string
	Target string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("translating %q (%s -> %s): %s: %v", truncate(e.Text, 60), e.Source, e.Target, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// DetectionError is a failed source language detection for one text.
type DetectionError struct {
	Text string
	Err  error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detecting language of %q: %v", truncate(e.Text, 60), e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// ConfigurationError is an invalid translation request. It is returned
// before any provider call is made.
type ConfigurationError struct {
	// Missing lists selected columns that do not exist in the table.
	Missing []string
	// Available lists the table's columns when Missing is set.
	Available []string
	// Msg describes any other problem (bad target language, empty selection).
	Msg string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("column(s) not found: %s (available: %s)",
			strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
	}
	return e.Msg
}

// PartialFailureError summarizes the failed groups of a translation run.
// It is produced by Report.Err; the translated table is still valid.
type PartialFailureError struct {
	Failed []GroupResult
	Total  int
}

func (e *PartialFailureError) Error() string {
	cols := make(map[string]bool)
	var names []string
	for _, g := range e.Failed {
		if !cols[g.Column] {
			cols[g.Column] = true
			names = append(names, g.Column)
		}
	}
	return fmt.Sprintf("%d of %d group(s) failed to translate in %s", len(e.Failed), e.Total, strings.Join(names, ", "))
}

// Unwrap exposes every group's error to errors.Is and errors.As.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, g := range e.Failed {
		if g.Err != nil {
			errs = append(errs, g.Err)
		}
	}
	return errs
}

// classify maps an arbitrary provider error to a Reason.
func classify(err error) Reason {
	var pe *ProviderError
	switch {
	case errors.As(err, &pe):
		return pe.Reason
	case errors.Is(err, ErrUnsupportedPair):
		return ReasonUnsupportedPair
	case errors.Is(err, ErrQuota):
		return ReasonQuota
	case isTimeout(err):
		return ReasonTimeout
	}
	return ReasonUnknown
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
