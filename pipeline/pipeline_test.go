package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/minios-linux/tabclean/table"
	"github.com/minios-linux/tabclean/translate"
)

type frenchProvider struct{}

func (frenchProvider) DetectLanguage(context.Context, string) (string, error) { return "fr", nil }

func (frenchProvider) Translate(_ context.Context, text, _, _ string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "bonjour":
		return "Hello", nil
	case "merci":
		return "Thanks", nil
	}
	return "", errors.New("no translation")
}

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromStrings([]string{" post title", "date"}, [][]string{
		{"Bonjour", "01/02/2024"},
		{"Bonjour", "01/02/2024"},
		{"Merci", "15/11/2023"},
		{"Inconnu", "15/11/2023"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestStepsByName(t *testing.T) {
	ct := translate.New(frenchProvider{}, translate.Options{})
	steps, err := StepsByName([]string{"translate", "Dates", "normalize", "dates"}, Deps{Translator: ct})
	if err != nil {
		t.Fatalf("StepsByName: %v", err)
	}
	var names []string
	for _, s := range steps {
		names = append(names, s.Name())
	}
	if got := strings.Join(names, ","); got != "normalize,dates,translate" {
		t.Fatalf("steps = %q", got)
	}

	if _, err := StepsByName([]string{"shuffle"}, Deps{}); err == nil {
		t.Fatalf("expected error for unknown step")
	}
	if _, err := StepsByName([]string{"translate"}, Deps{}); err == nil {
		t.Fatalf("expected error for translate without translator")
	}
}

func TestRunner_Run(t *testing.T) {
	ct := translate.New(frenchProvider{}, translate.Options{})
	steps, err := StepsByName(StepNames, Deps{
		Translator: ct,
		Selection:  translate.Selection{Columns: []string{"Post Title"}, Target: "en"},
	})
	if err != nil {
		t.Fatalf("StepsByName: %v", err)
	}

	var seen []string
	r := &Runner{Steps: steps, OnStep: func(i, n int, name string) {
		if n != 4 {
			t.Errorf("OnStep n = %d, want 4", n)
		}
		seen = append(seen, name)
	}}
	res, err := r.Run(context.Background(), sampleTable(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := uuid.Parse(res.RunID); err != nil {
		t.Fatalf("RunID %q is not a uuid: %v", res.RunID, err)
	}
	if len(seen) != 4 || len(res.Steps) != 4 {
		t.Fatalf("seen %v, results %d", seen, len(res.Steps))
	}
	if res.Steps[1].RowsIn != 4 || res.Steps[1].RowsOut != 3 {
		t.Fatalf("dedup rows = %d -> %d, want 4 -> 3", res.Steps[1].RowsIn, res.Steps[1].RowsOut)
	}

	out := res.Table
	if got := strings.Join(out.Columns(), "|"); got != "Post Title|Year|Month|Day|Quarter|Date" {
		t.Fatalf("columns = %q", got)
	}
	col, _ := out.Column("Post Title")
	var got []string
	for _, c := range col {
		got = append(got, c.String())
	}
	if strings.Join(got, "|") != "Hello|Thanks|Inconnu" {
		t.Fatalf("Post Title = %q", got)
	}

	reports := res.Reports()
	if len(reports) != 1 || reports[0].Column("Post Title").Failed != 1 {
		t.Fatalf("reports = %+v", reports)
	}
}

func TestRunner_Strict(t *testing.T) {
	ct := translate.New(frenchProvider{}, translate.Options{})
	r := &Runner{
		Steps:             []Step{TranslateColumns{Translator: ct, Selection: translate.Selection{Columns: []string{" post title"}, Target: "en"}}},
		StrictTranslation: true,
	}
	res, err := r.Run(context.Background(), sampleTable(t))
	var pf *translate.PartialFailureError
	if !errors.As(err, &pf) || len(pf.Failed) != 1 {
		t.Fatalf("err = %v, want PartialFailureError", err)
	}
	if res.Table.Cell(0, " post title").String() != "Hello" {
		t.Fatalf("strict run lost the translated table")
	}
}

func TestRunner_StepError(t *testing.T) {
	r := &Runner{Steps: []Step{NormalizeHeaders{}, RemoveDuplicates{Columns: []string{"nope"}}}}
	res, err := r.Run(context.Background(), sampleTable(t))
	if err == nil || !strings.Contains(err.Error(), "step dedup") {
		t.Fatalf("err = %v, want step dedup error", err)
	}
	if len(res.Steps) != 1 || res.Table.Columns()[0] != "Post Title" {
		t.Fatalf("result after failure = %+v", res.Steps)
	}
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Steps: []Step{NormalizeHeaders{}}}
	if _, err := r.Run(ctx, sampleTable(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
