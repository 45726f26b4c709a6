// Package pipeline runs cleaning steps over a table in order.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minios-linux/tabclean/clean"
	"github.com/minios-linux/tabclean/table"
	"github.com/minios-linux/tabclean/translate"
)

// Step is one transform of a run. Apply must not modify its input.
type Step interface {
	Name() string
	Apply(ctx context.Context, t *table.Table) (*table.Table, error)
}

// reportingStep is a step that produces a translation report.
type reportingStep interface {
	applyWithReport(ctx context.Context, t *table.Table) (*table.Table, *translate.Report, error)
}

// Step names as used in configuration, in canonical order.
const (
	StepNormalize = "normalize"
	StepDedup     = "dedup"
	StepDates     = "dates"
	StepTranslate = "translate"
)

// StepNames lists every step name in canonical order.
var StepNames = []string{StepNormalize, StepDedup, StepDates, StepTranslate}

// ---------------------------------------------------------------------------
// Steps
// ---------------------------------------------------------------------------

// NormalizeHeaders trims and title-cases column names.
type NormalizeHeaders struct{}

func (NormalizeHeaders) Name() string { return StepNormalize }

func (NormalizeHeaders) Apply(_ context.Context, t *table.Table) (*table.Table, error) {
	return clean.NormalizeHeaders(t)
}

// RemoveDuplicates drops repeated rows. No columns means all columns.
type RemoveDuplicates struct {
	Columns []string
}

func (RemoveDuplicates) Name() string { return StepDedup }

func (s RemoveDuplicates) Apply(_ context.Context, t *table.Table) (*table.Table, error) {
	out, _, err := clean.RemoveDuplicates(t, s.Columns)
	return out, err
}

// AddDateMetadata derives Year, Month, Day and Quarter from the date column.
type AddDateMetadata struct {
	Options clean.DateOptions
}

func (AddDateMetadata) Name() string { return StepDates }

func (s AddDateMetadata) Apply(_ context.Context, t *table.Table) (*table.Table, error) {
	return clean.AddDateMetadata(t, s.Options)
}

// TranslateColumns translates the selected columns.
type TranslateColumns struct {
	Translator *translate.ColumnTranslator
	Selection  translate.Selection
}

func (TranslateColumns) Name() string { return StepTranslate }

func (s TranslateColumns) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	out, _, err := s.applyWithReport(ctx, t)
	return out, err
}

func (s TranslateColumns) applyWithReport(ctx context.Context, t *table.Table) (*table.Table, *translate.Report, error) {
	if s.Translator == nil {
		return nil, nil, fmt.Errorf("no translator configured")
	}
	return s.Translator.Translate(ctx, t, s.Selection)
}

// ---------------------------------------------------------------------------
// Building steps from names
// ---------------------------------------------------------------------------

// Deps carries what the named steps need.
type Deps struct {
	DedupColumns []string
	Dates        clean.DateOptions
	Translator   *translate.ColumnTranslator
	Selection    translate.Selection
}

// StepsByName builds steps for the given names in canonical order,
// regardless of the order they are listed in. Repeated names run once.
func StepsByName(names []string, deps Deps) ([]Step, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		known := false
		for _, s := range StepNames {
			if s == n {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown step %q (valid: %s)", n, strings.Join(StepNames, ", "))
		}
		want[n] = true
	}

	var steps []Step
	for _, n := range StepNames {
		if !want[n] {
			continue
		}
		switch n {
		case StepNormalize:
			steps = append(steps, NormalizeHeaders{})
		case StepDedup:
			steps = append(steps, RemoveDuplicates{Columns: deps.DedupColumns})
		case StepDates:
			steps = append(steps, AddDateMetadata{Options: deps.Dates})
		case StepTranslate:
			if deps.Translator == nil {
				return nil, fmt.Errorf("step %q needs a translation provider", n)
			}
			steps = append(steps, TranslateColumns{Translator: deps.Translator, Selection: deps.Selection})
		}
	}
	return steps, nil
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// StepResult describes one executed step.
type StepResult struct {
	Name     string
	RowsIn   int
	RowsOut  int
	Duration time.Duration
	// Report is set for translation steps.
	Report *translate.Report
}

// Result is the outcome of a run.
type Result struct {
	RunID string
	Table *table.Table
	Steps []StepResult
}

// Reports returns the translation reports of the run, in step order.
func (r *Result) Reports() []*translate.Report {
	var out []*translate.Report
	for _, s := range r.Steps {
		if s.Report != nil {
			out = append(out, s.Report)
		}
	}
	return out
}

// Runner executes steps in order.
type Runner struct {
	Steps []Step
	// OnStep is called before each step with its 1-based position.
	OnStep func(i, n int, name string)
	// StrictTranslation fails the run when a translation step reports
	// failed groups. The output table is still returned.
	StrictTranslation bool
}

// Run applies every step to t. On error the result holds the steps that
// completed and the last good table.
func (r *Runner) Run(ctx context.Context, t *table.Table) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Table: t}
	for i, step := range r.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if r.OnStep != nil {
			r.OnStep(i+1, len(r.Steps), step.Name())
		}

		start := time.Now()
		var (
			out    *table.Table
			report *translate.Report
			err    error
		)
		if rs, ok := step.(reportingStep); ok {
			out, report, err = rs.applyWithReport(ctx, res.Table)
		} else {
			out, err = step.Apply(ctx, res.Table)
		}
		if err != nil {
			if report != nil {
				res.Steps = append(res.Steps, StepResult{Name: step.Name(), RowsIn: res.Table.Len(), Duration: time.Since(start), Report: report})
			}
			return res, fmt.Errorf("step %s: %w", step.Name(), err)
		}

		res.Steps = append(res.Steps, StepResult{
			Name:     step.Name(),
			RowsIn:   res.Table.Len(),
			RowsOut:  out.Len(),
			Duration: time.Since(start),
			Report:   report,
		})
		res.Table = out

		if r.StrictTranslation && report != nil {
			if err := report.Err(); err != nil {
				return res, fmt.Errorf("step %s: %w", step.Name(), err)
			}
		}
	}
	return res, nil
}
