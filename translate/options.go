package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minios-linux/tabclean/similarity"
)

// AutoDetect as a Selection source asks the provider to detect the
// language of each group.
const AutoDetect = "auto"

// ---------------------------------------------------------------------------
// Provider interfaces
// ---------------------------------------------------------------------------

// Detector detects the language of a text and returns a short code.
type Detector interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Translator translates one text between two languages.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Provider is a translation service able to both detect and translate.
type Provider interface {
	Detector
	Translator
}

// ---------------------------------------------------------------------------
// Parallelization modes
// ---------------------------------------------------------------------------

const (
	ParallelSequential   = "sequential"
	ParallelFullParallel = "full-parallel"
)

// ---------------------------------------------------------------------------
// Failure policies
// ---------------------------------------------------------------------------

// FailurePolicy decides what rows of a failed group receive.
type FailurePolicy string

const (
	// KeepOriginal leaves the original text in failed rows.
	KeepOriginal FailurePolicy = "keep"
	// Placeholder writes Options.Placeholder into failed rows.
	Placeholder FailurePolicy = "placeholder"
	// AbortColumn leaves the whole column untranslated if any group failed.
	AbortColumn FailurePolicy = "abort-column"
)

// DefaultPlaceholder is written into failed rows under the Placeholder policy.
const DefaultPlaceholder = "NA"

// ParseFailurePolicy resolves a policy name. Empty selects KeepOriginal.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeepOriginal, "keep-original":
		return KeepOriginal, nil
	case Placeholder:
		return Placeholder, nil
	case AbortColumn, "abort":
		return AbortColumn, nil
	}
	return "", fmt.Errorf("unknown failure policy %q (valid: %s, %s, %s)", s, KeepOriginal, Placeholder, AbortColumn)
}

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls the column translation behavior.
type Options struct {
	// Grouper merges near-duplicate values. Nil uses similarity.NewGrouper().
	Grouper *similarity.Grouper
	// OutputPrefix, when set, writes translations to new "<prefix><column>"
	// columns next to the source column instead of replacing it.
	OutputPrefix string
	// OnFailure selects the failure policy. Empty means KeepOriginal, so
	// one failed group never discards its siblings' translations; callers
	// that want the whole column left untouched on any failure must ask
	// for AbortColumn.
	OnFailure FailurePolicy
	// Placeholder is the text used by the Placeholder policy. Default "NA".
	Placeholder string
	// ParallelMode controls parallelization (sequential, full-parallel).
	ParallelMode string
	// MaxConcurrent is the maximum number of concurrent group tasks in
	// full-parallel mode.
	MaxConcurrent int
	// RequestDelay is the delay between launching parallel tasks.
	RequestDelay time.Duration
	// CallTimeout bounds each detect and translate call (0 = no bound).
	CallTimeout time.Duration
	// Cache is shared across calls when set. Nil creates a fresh cache per
	// Translate call.
	Cache *Cache
	// OnProgress is called after each group of a column is processed.
	OnProgress func(column string, done, total int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// OnError emits error messages during translation.
	OnError func(format string, args ...any)
	// Verbose enables detailed logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) debug(format string, args ...any) {
	if o.Verbose {
		o.log(format, args...)
	}
}

func (o *Options) effectiveGrouper() *similarity.Grouper {
	if o.Grouper != nil {
		return o.Grouper
	}
	return similarity.NewGrouper()
}

func (o *Options) effectivePolicy() FailurePolicy {
	if o.OnFailure != "" {
		return o.OnFailure
	}
	return KeepOriginal
}

func (o *Options) effectivePlaceholder() string {
	if o.Placeholder != "" {
		return o.Placeholder
	}
	return DefaultPlaceholder
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.ParallelMode != ParallelFullParallel {
		return 1
	}
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return 10
}
