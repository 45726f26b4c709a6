// Package translate translates selected text columns of a table.
//
// Distinct values of each column are grouped by similarity, one provider
// call is made per group representative, and the result is scattered back
// to every row of every group member. Group failures are isolated: they are
// recorded in the Report and handled by the configured FailurePolicy while
// the rest of the column is still translated.
package translate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minios-linux/tabclean/langmeta"
	"github.com/minios-linux/tabclean/similarity"
	"github.com/minios-linux/tabclean/table"
)

// Selection names the columns to translate and the language pair.
type Selection struct {
	Columns []string
	// Target is the target language code. It cannot be AutoDetect.
	Target string
	// Source is the source language code, or AutoDetect (also the default).
	Source string
}

// ColumnPlan previews the work for one column without calling a provider.
type ColumnPlan struct {
	Column   string
	Rows     int
	Distinct int
	Groups   []PlannedGroup
}

// PlannedGroup is one similarity group of a ColumnPlan.
type PlannedGroup struct {
	Representative string
	Members        []string
	Rows           int
}

// ColumnTranslator translates table columns through a Provider.
type ColumnTranslator struct {
	provider Provider
	opts     Options
}

// New returns a translator backed by p.
func New(p Provider, opts Options) *ColumnTranslator {
	return &ColumnTranslator{provider: p, opts: opts}
}

// ---------------------------------------------------------------------------
// Column jobs
// ---------------------------------------------------------------------------

type columnJob struct {
	name    string
	cells   []table.Cell
	rows    int
	values  []similarity.Value
	groups  []similarity.Group
	results []GroupResult
	done    atomic.Int64
}

func (j *columnJob) members(g similarity.Group) []string {
	texts := make([]string, len(g.Members))
	for i, m := range g.Members {
		texts[i] = j.values[m].Text
	}
	return texts
}

type groupTask struct {
	job   *columnJob
	index int
}

// runState is shared by every group task of one Translate call.
type runState struct {
	sel   Selection
	cache *Cache

	mu       sync.Mutex
	detected map[string]string
}

// ---------------------------------------------------------------------------
// Validation and planning
// ---------------------------------------------------------------------------

func (ct *ColumnTranslator) validate(t *table.Table, sel Selection) (Selection, error) {
	if t == nil {
		return sel, &ConfigurationError{Msg: "no table to translate"}
	}
	target := langmeta.Canonicalize(sel.Target)
	if target == "" {
		return sel, &ConfigurationError{Msg: "target language is required"}
	}
	if strings.EqualFold(target, AutoDetect) {
		return sel, &ConfigurationError{Msg: fmt.Sprintf("target language cannot be %q", AutoDetect)}
	}
	source := langmeta.Canonicalize(sel.Source)
	if source == "" || strings.EqualFold(source, AutoDetect) {
		source = AutoDetect
	}

	var cols []string
	seen := make(map[string]bool)
	for _, c := range sel.Columns {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return sel, &ConfigurationError{Msg: "no columns selected for translation"}
	}
	if missing := t.Missing(cols); len(missing) > 0 {
		return sel, &ConfigurationError{Missing: missing, Available: t.Columns()}
	}
	if ct.provider == nil {
		return sel, &ConfigurationError{Msg: "no translation provider configured"}
	}
	return Selection{Columns: cols, Target: target, Source: source}, nil
}

func (ct *ColumnTranslator) jobs(t *table.Table, sel Selection) []*columnJob {
	grouper := ct.opts.effectiveGrouper()
	jobs := make([]*columnJob, 0, len(sel.Columns))
	for _, name := range sel.Columns {
		cells, _ := t.Column(name)
		values := similarity.Collect(cells)
		rows := 0
		for _, v := range values {
			rows += len(v.Rows)
		}
		jobs = append(jobs, &columnJob{
			name:   name,
			cells:  cells,
			rows:   rows,
			values: values,
			groups: grouper.Group(values),
		})
	}
	return jobs
}

// Plan validates the selection and groups each column's values without
// calling the provider.
func (ct *ColumnTranslator) Plan(t *table.Table, sel Selection) ([]ColumnPlan, error) {
	sel, err := ct.validate(t, sel)
	if err != nil {
		return nil, err
	}
	var plans []ColumnPlan
	for _, job := range ct.jobs(t, sel) {
		p := ColumnPlan{Column: job.name, Rows: job.rows, Distinct: len(job.values)}
		for _, g := range job.groups {
			p.Groups = append(p.Groups, PlannedGroup{
				Representative: job.values[g.Representative].Text,
				Members:        job.members(g),
				Rows:           len(g.Rows(job.values)),
			})
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// ---------------------------------------------------------------------------
// Translation
// ---------------------------------------------------------------------------

// Translate translates the selected columns of t and returns a new table
// together with a per-column report. The input table is not modified.
//
// A *ConfigurationError is returned before any provider call when the
// selection is invalid. Group failures do not produce an error; inspect
// Report.Err. A canceled context returns the context error.
func (ct *ColumnTranslator) Translate(ctx context.Context, t *table.Table, sel Selection) (*table.Table, *Report, error) {
	start := time.Now()
	sel, err := ct.validate(t, sel)
	if err != nil {
		return nil, nil, err
	}
	opts := &ct.opts

	cache := opts.Cache
	if cache == nil {
		cache = NewCache()
	}
	st := &runState{sel: sel, cache: cache, detected: make(map[string]string)}

	jobs := ct.jobs(t, sel)
	var tasks []groupTask
	for _, job := range jobs {
		opts.log("Translating column %s: %d rows, %d distinct, %d groups", job.name, job.rows, len(job.values), len(job.groups))
		job.results = make([]GroupResult, len(job.groups))
		for gi := range job.groups {
			tasks = append(tasks, groupTask{job: job, index: gi})
		}
	}

	fn := func(ctx context.Context, task groupTask) error {
		res := ct.translateGroup(ctx, st, task.job, task.index)
		task.job.results[task.index] = res
		switch {
		case res.Status == StatusFailed && ctx.Err() == nil:
			opts.logError("Column %s: %v", task.job.name, res.Err)
		case res.Status != StatusFailed:
			opts.debug("Column %s: %q -> %q (%s)", task.job.name, truncate(res.Representative, 40), truncate(res.Translation, 40), res.Status)
		}
		done := task.job.done.Add(1)
		if opts.OnProgress != nil {
			opts.OnProgress(task.job.name, int(done), len(task.job.groups))
		}
		return nil
	}

	if n := opts.effectiveMaxConcurrent(); n > 1 {
		err = runParallelGeneric(ctx, tasks, n, opts.RequestDelay, fn)
	} else {
		err = runSequential(ctx, tasks, fn)
	}

	report := &Report{Source: sel.Source, Target: sel.Target}
	for _, job := range jobs {
		cr := &ColumnReport{
			Column:   job.name,
			Rows:     job.rows,
			Distinct: len(job.values),
			Groups:   len(job.groups),
		}
		for _, res := range job.results {
			if res.Status != "" {
				cr.add(res)
			}
		}
		report.Columns = append(report.Columns, cr)
	}
	report.CacheStats = cache.Stats()
	report.Duration = time.Since(start)

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, report, err
	}

	out, err := ct.apply(t, jobs, report)
	if err != nil {
		return nil, report, err
	}
	return out, report, nil
}

func (ct *ColumnTranslator) translateGroup(ctx context.Context, st *runState, job *columnJob, gi int) GroupResult {
	grp := job.groups[gi]
	rep := job.values[grp.Representative].Text
	res := GroupResult{
		Column:         job.name,
		Representative: rep,
		Members:        job.members(grp),
		Rows:           len(grp.Rows(job.values)),
		Source:         st.sel.Source,
	}

	if res.Source == AutoDetect {
		src, err := ct.detect(ctx, st, rep)
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			return res
		}
		res.Source = src
	}

	if langmeta.SameLanguage(res.Source, st.sel.Target) {
		res.Status = StatusSkipped
		return res
	}

	computed := false
	out, err := st.cache.LookupOrCompute(ctx, rep, res.Source, st.sel.Target, func(ctx context.Context) (string, error) {
		computed = true
		return ct.callTranslate(ctx, rep, res.Source, st.sel.Target)
	})
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	res.Translation = out
	res.Status = StatusCached
	if computed {
		res.Status = StatusTranslated
	}
	return res
}

func (ct *ColumnTranslator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ct.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, ct.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// detect returns the source language of text, memoized per normalized text
// for the duration of the run. Failures are not memoized.
func (ct *ColumnTranslator) detect(ctx context.Context, st *runState, text string) (string, error) {
	key := similarity.Normalize(text)
	st.mu.Lock()
	lang, ok := st.detected[key]
	st.mu.Unlock()
	if ok {
		return lang, nil
	}

	callCtx, cancel := ct.callContext(ctx)
	defer cancel()
	lang, err := ct.provider.DetectLanguage(callCtx, text)
	if err != nil {
		var de *DetectionError
		if errors.As(err, &de) {
			return "", err
		}
		return "", &DetectionError{Text: text, Err: err}
	}
	lang = langmeta.Canonicalize(lang)
	if lang == "" || strings.EqualFold(lang, AutoDetect) {
		return "", &DetectionError{Text: text, Err: errors.New("no language returned")}
	}

	st.mu.Lock()
	st.detected[key] = lang
	st.mu.Unlock()
	return lang, nil
}

func (ct *ColumnTranslator) callTranslate(ctx context.Context, text, source, target string) (string, error) {
	callCtx, cancel := ct.callContext(ctx)
	defer cancel()

	out, err := ct.provider.Translate(callCtx, text, source, target)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return "", err
		}
		reason := classify(err)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			reason = ReasonTimeout
		}
		return "", &ProviderError{Reason: reason, Text: text, Source: source, Target: target, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &ProviderError{Reason: ReasonUnknown, Text: text, Source: source, Target: target, Err: errors.New("empty translation")}
	}
	return out, nil
}

// apply writes each job's results back into a copy of t according to the
// failure policy.
func (ct *ColumnTranslator) apply(t *table.Table, jobs []*columnJob, report *Report) (*table.Table, error) {
	policy := ct.opts.effectivePolicy()
	placeholder := ct.opts.effectivePlaceholder()

	out := t
	for i, job := range jobs {
		cr := report.Columns[i]
		cells := slices.Clone(job.cells)

		if cr.Failed > 0 && policy == AbortColumn {
			cr.Aborted = true
			ct.opts.logError("Column %s left untranslated: %d of %d group(s) failed", job.name, cr.Failed, cr.Groups)
		} else {
			for gi, res := range job.results {
				rows := job.groups[gi].Rows(job.values)
				switch res.Status {
				case StatusTranslated, StatusCached:
					for _, r := range rows {
						cells[r] = table.Text(res.Translation)
					}
				case StatusFailed:
					if policy == Placeholder {
						for _, r := range rows {
							cells[r] = table.Text(placeholder)
						}
					}
				}
			}
		}

		var err error
		cr.OutputColumn = job.name
		if ct.opts.OutputPrefix == "" {
			out, err = out.WithColumn(job.name, cells)
		} else {
			name := ct.opts.OutputPrefix + job.name
			cr.OutputColumn = name
			if out.HasColumn(name) {
				out, err = out.WithColumn(name, cells)
			} else {
				out, err = out.InsertColumn(out.ColumnIndex(job.name)+1, name, cells)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("writing column %s: %w", cr.OutputColumn, err)
		}
	}
	return out, nil
}
