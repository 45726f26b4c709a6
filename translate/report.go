package translate

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the outcome of one similarity group.
type Status string

const (
	StatusTranslated Status = "translated"
	StatusCached     Status = "cached"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// GroupResult records what happened to one similarity group.
type GroupResult struct {
	Column         string
	Representative string
	// Members are the distinct texts of the group, representative first.
	Members []string
	// Rows is the number of table rows covered by the group.
	Rows   int
	Source string
	Status Status
	// Translation is set for translated and cached groups.
	Translation string
	// Err is a *DetectionError or *ProviderError for failed groups.
	Err error
}

// ColumnReport summarizes one translated column.
type ColumnReport struct {
	Column string
	// OutputColumn is where the translations were written.
	OutputColumn string
	// Rows counts the non-blank text rows of the column.
	Rows       int
	Distinct   int
	Groups     int
	Translated int
	Cached     int
	Skipped    int
	Failed     int
	// Aborted is set when the AbortColumn policy left the column untouched.
	Aborted      bool
	GroupResults []GroupResult
}

func (c *ColumnReport) add(r GroupResult) {
	c.GroupResults = append(c.GroupResults, r)
	switch r.Status {
	case StatusTranslated:
		c.Translated++
	case StatusCached:
		c.Cached++
	case StatusSkipped:
		c.Skipped++
	case StatusFailed:
		c.Failed++
	}
}

// Report is the outcome of a Translate call. A report with failures still
// accompanies a valid output table.
type Report struct {
	Source     string
	Target     string
	Columns    []*ColumnReport
	CacheStats CacheStats
	Duration   time.Duration
}

// Column returns the report of one column, or nil.
func (r *Report) Column(name string) *ColumnReport {
	for _, c := range r.Columns {
		if c.Column == name {
			return c
		}
	}
	return nil
}

// Failures returns every failed group across all columns.
func (r *Report) Failures() []GroupResult {
	var failed []GroupResult
	for _, c := range r.Columns {
		for _, g := range c.GroupResults {
			if g.Status == StatusFailed {
				failed = append(failed, g)
			}
		}
	}
	return failed
}

// HasFailures reports whether any group failed.
func (r *Report) HasFailures() bool {
	for _, c := range r.Columns {
		if c.Failed > 0 {
			return true
		}
	}
	return false
}

// Groups returns the total number of groups across all columns.
func (r *Report) Groups() int {
	n := 0
	for _, c := range r.Columns {
		n += c.Groups
	}
	return n
}

// Err returns a *PartialFailureError when any group failed, else nil.
func (r *Report) Err() error {
	failed := r.Failures()
	if len(failed) == 0 {
		return nil
	}
	return &PartialFailureError{Failed: failed, Total: r.Groups()}
}

// ---------------------------------------------------------------------------
// YAML summary
// ---------------------------------------------------------------------------

type yamlReport struct {
	Source   string       `yaml:"source"`
	Target   string       `yaml:"target"`
	Duration string       `yaml:"duration"`
	Cache    CacheStats   `yaml:"cache"`
	Columns  []yamlColumn `yaml:"columns"`
}

type yamlColumn struct {
	Column     string        `yaml:"column"`
	Output     string        `yaml:"output,omitempty"`
	Rows       int           `yaml:"rows"`
	Distinct   int           `yaml:"distinct"`
	Groups     int           `yaml:"groups"`
	Translated int           `yaml:"translated"`
	Cached     int           `yaml:"cached"`
	Skipped    int           `yaml:"skipped"`
	Failed     int           `yaml:"failed"`
	Aborted    bool          `yaml:"aborted,omitempty"`
	Failures   []yamlFailure `yaml:"failures,omitempty"`
}

type yamlFailure struct {
	Text   string `yaml:"text"`
	Source string `yaml:"source,omitempty"`
	Rows   int    `yaml:"rows"`
	Error  string `yaml:"error"`
}

// WriteYAML writes a summary of the report. Translations themselves are
// not included, only counts and failures.
func (r *Report) WriteYAML(w io.Writer) error {
	out := yamlReport{
		Source:   r.Source,
		Target:   r.Target,
		Duration: r.Duration.Round(time.Millisecond).String(),
		Cache:    r.CacheStats,
	}
	for _, c := range r.Columns {
		yc := yamlColumn{
			Column:     c.Column,
			Output:     c.OutputColumn,
			Rows:       c.Rows,
			Distinct:   c.Distinct,
			Groups:     c.Groups,
			Translated: c.Translated,
			Cached:     c.Cached,
			Skipped:    c.Skipped,
			Failed:     c.Failed,
			Aborted:    c.Aborted,
		}
		for _, g := range c.GroupResults {
			if g.Status != StatusFailed {
				continue
			}
			msg := "unknown error"
			if g.Err != nil {
				msg = g.Err.Error()
			}
			yc.Failures = append(yc.Failures, yamlFailure{
				Text:   g.Representative,
				Source: g.Source,
				Rows:   g.Rows,
				Error:  msg,
			})
		}
		out.Columns = append(out.Columns, yc)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}
