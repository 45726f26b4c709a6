// tabclean: cleans tabular files and translates text columns with AI or
// glossary providers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/minios-linux/tabclean/clean"
	"github.com/minios-linux/tabclean/config"
	"github.com/minios-linux/tabclean/glossary"
	"github.com/minios-linux/tabclean/langmeta"
	"github.com/minios-linux/tabclean/pipeline"
	"github.com/minios-linux/tabclean/provider"
	"github.com/minios-linux/tabclean/settings"
	"github.com/minios-linux/tabclean/similarity"
	"github.com/minios-linux/tabclean/table"
	"github.com/minios-linux/tabclean/tabfile"
	"github.com/minios-linux/tabclean/translate"
	"github.com/spf13/cobra"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

// jsonLog replaces the colored output when --log-format json is set.
var jsonLog *slog.Logger

func logInfo(format string, args ...any) {
	if jsonLog != nil {
		jsonLog.Info(fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	if jsonLog != nil {
		jsonLog.Info(fmt.Sprintf(format, args...), "ok", true)
		return
	}
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	if jsonLog != nil {
		jsonLog.Warn(fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	if jsonLog != nil {
		jsonLog.Error(fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// setupLogging selects colored text or JSON lines on stderr.
func setupLogging(format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		jsonLog = nil
	case "json":
		jsonLog = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return fmt.Errorf("unknown log format %q (valid: text, json)", format)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir   string
	logFormat string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tabclean",
		Short: "Clean CSV/Excel tables and translate text columns",
		Long: `tabclean: cleans CSV and Excel tables and translates text columns.

Steps (run in this order):
  normalize   Trim and title-case column headers
  dedup       Remove duplicate rows (optionally by selected columns)
  dates       Add Year, Month, Day and Quarter from the date column
  translate   Translate selected text columns to a target language

Near-duplicate values in a column are grouped and translated once, and
translations are cached for the whole run.

Commands:
  run       Run the cleaning steps and write the result
  plan      Show the translation groups without calling a provider
  columns   List the columns of a file
  auth      Manage provider API keys

Providers:
  openai         OpenAI (API key)
  groq           Groq (API key)
  google         Google AI / Gemini (API key)
  anthropic      Anthropic (API key)
  ollama         Ollama local server
  custom-openai  Custom OpenAI-compatible endpoint
  dictionary     PO glossary file, no network
  echo           Returns text unchanged (testing)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logFormat)
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Directory containing "+config.FileName)
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log output format: text, json")

	root.AddCommand(
		newRunCmd(),
		newPlanCmd(),
		newColumnsCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tabclean version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// run / plan flags
// ---------------------------------------------------------------------------

type runArgs struct {
	// Output
	output, report string
	glossary       string
	strict, dryRun bool
	verbose        bool

	// Steps
	steps, dedupColumns, dateColumn string

	// Input
	encodings, delimiters, sheet string

	// Translation
	columns, target, source   string
	threshold                 float64
	metric, outputPrefix      string
	onFailure, placeholder    string
	parallel                  bool
	maxConcurrent             int
	requestDelay, callTimeout time.Duration

	// Provider
	provider, model, apiKey, baseURL string
	proxy, dictionary, detector      string
	languages                        string
	timeout                          time.Duration
	maxRetries                       int
	rps                              float64
}

func addPipelineFlags(cmd *cobra.Command, a *runArgs) {
	f := cmd.Flags()

	// Input
	f.StringVar(&a.encodings, "encodings", "", "Encodings to try, in order (default: utf-8,utf-8-sig,latin1,cp1252)")
	f.StringVar(&a.delimiters, "delimiters", "", "Delimiters to try, in order (default: tab,comma,semicolon)")
	f.StringVar(&a.sheet, "sheet", "", "Excel sheet to read (default: first)")

	// Steps
	f.StringVar(&a.steps, "steps", "", "Steps to run (comma-separated): "+strings.Join(pipeline.StepNames, ", "))
	f.StringVar(&a.dedupColumns, "dedup-columns", "", "Columns compared by dedup (default: all)")
	f.StringVar(&a.dateColumn, "date-column", "", "Date column for date metadata (default: detect)")

	// Translation
	f.StringVar(&a.columns, "columns", "", "Columns to translate (comma-separated)")
	f.StringVar(&a.target, "target", "", "Target language (default: en)")
	f.StringVar(&a.source, "source", "", "Source language, or auto to detect per group (default: auto)")
	f.Float64Var(&a.threshold, "threshold", 0, "Similarity threshold for grouping values (0-1, 0 = default 0.9)")
	f.StringVar(&a.metric, "metric", "", "Similarity metric: levenshtein, token, exact")
	f.StringVar(&a.outputPrefix, "output-prefix", "", "Write translations to new columns with this prefix instead of replacing")
	f.StringVar(&a.onFailure, "on-failure", "", "Failed groups: keep, placeholder, abort-column (default: keep)")
	f.StringVar(&a.placeholder, "placeholder", "", "Placeholder for failed groups (default: NA)")
	f.BoolVar(&a.parallel, "parallel", false, "Translate groups in parallel")
	f.IntVar(&a.maxConcurrent, "max-concurrent", 0, "Maximum concurrent provider calls with --parallel (default: 10)")
	f.DurationVar(&a.requestDelay, "request-delay", 0, "Delay between parallel tasks")
	f.DurationVar(&a.callTimeout, "call-timeout", 0, "Timeout for one provider call (0 = none)")

	// Provider
	f.StringVar(&a.provider, "provider", "", "Translation provider: "+strings.Join(provider.IDs(), ", "))
	f.StringVar(&a.model, "model", "", "Model name")
	f.StringVar(&a.apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	f.StringVar(&a.baseURL, "base-url", "", "Custom API base URL")
	f.StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	f.StringVar(&a.dictionary, "dictionary", "", "PO glossary for the dictionary provider")
	f.StringVar(&a.detector, "detector", "", "Language detection: local, provider")
	f.StringVar(&a.languages, "languages", "", "Languages local detection may return (comma-separated, first = fallback)")
	f.DurationVar(&a.timeout, "timeout", 0, "HTTP request timeout (0 = provider default)")
	f.IntVar(&a.maxRetries, "max-retries", 0, "Maximum retries on rate limits and server errors (default: 3)")
	f.Float64Var(&a.rps, "rps", 0, "Maximum provider requests per second (0 = unlimited)")

	f.BoolVar(&a.verbose, "verbose", false, "Enable detailed logging")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return provider.IDs(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("steps", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return pipeline.StepNames, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("on-failure", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			string(translate.KeepOriginal) + "\tKeep the original text",
			string(translate.Placeholder) + "\tWrite a placeholder",
			string(translate.AbortColumn) + "\tLeave the whole column untranslated",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// applyFlags overrides file settings with the flags the user set.
func applyFlags(cfg *config.File, a runArgs, changed func(string) bool) error {
	if changed("steps") {
		cfg.Steps = splitList(a.steps)
	}
	if changed("dedup-columns") {
		cfg.Dedup.Columns = splitList(a.dedupColumns)
	}
	if changed("date-column") {
		cfg.Dates.Column = a.dateColumn
	}
	if changed("encodings") {
		cfg.Input.Encodings = splitList(a.encodings)
	}
	if changed("delimiters") {
		cfg.Input.Delimiters = splitList(a.delimiters)
	}
	if changed("sheet") {
		cfg.Input.Sheet = a.sheet
	}

	t := &cfg.Translate
	if changed("columns") {
		t.Columns = splitList(a.columns)
	}
	if changed("target") {
		t.Target = a.target
	}
	if changed("source") {
		t.Source = a.source
	}
	if changed("threshold") {
		t.Threshold = a.threshold
	}
	if changed("metric") {
		t.Metric = a.metric
	}
	if changed("output-prefix") {
		t.OutputPrefix = a.outputPrefix
	}
	if changed("on-failure") {
		t.OnFailure = a.onFailure
	}
	if changed("placeholder") {
		t.Placeholder = a.placeholder
	}
	if changed("parallel") {
		t.Parallel = a.parallel
	}
	if changed("max-concurrent") {
		t.MaxConcurrent = a.maxConcurrent
	}
	if changed("request-delay") {
		t.RequestDelay = a.requestDelay
	}
	if changed("call-timeout") {
		t.CallTimeout = a.callTimeout
	}

	p := &cfg.Provider
	if changed("provider") {
		p.ID = a.provider
	}
	if changed("model") {
		p.Model = a.model
	}
	if changed("base-url") {
		p.BaseURL = a.baseURL
	}
	if changed("proxy") {
		p.Proxy = a.proxy
	}
	if changed("dictionary") {
		p.Dictionary = a.dictionary
	}
	if changed("detector") {
		p.Detector = a.detector
	}
	if changed("languages") {
		p.Languages = splitList(a.languages)
	}
	if changed("timeout") {
		p.Timeout = a.timeout
	}
	if changed("max-retries") {
		p.MaxRetries = a.maxRetries
	}
	if changed("rps") {
		p.RequestsPerSecond = a.rps
	}

	cfg.ApplyDefaults()
	return cfg.Validate()
}

// loadConfig reads .tabclean.yaml from the root directory, or defaults.
func loadConfig(a runArgs, changed func(string) bool) (*config.File, error) {
	cfg, err := config.LoadFile(rootDir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	} else {
		logInfo("Using %s", filepath.Join(rootDir, config.FileName))
	}
	if err := applyFlags(cfg, a, changed); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Provider and translator
// ---------------------------------------------------------------------------

// providerConfig resolves the provider settings. API keys come from the
// flag, the environment or the credential store, in that order.
func providerConfig(cfg *config.File, apiKeyFlag string, verbose bool) provider.Config {
	p := cfg.Provider
	pc := provider.Config{
		ID:                p.ID,
		Model:             p.Model,
		BaseURL:           p.BaseURL,
		APIKey:            settings.ResolveAPIKey(p.ID, apiKeyFlag),
		Proxy:             p.Proxy,
		Timeout:           p.Timeout,
		MaxRetries:        p.MaxRetries,
		RequestsPerSecond: p.RequestsPerSecond,
		Verbose:           verbose,
		Dictionary:        cfg.DictionaryPath(),
		Target:            cfg.Translate.Target,
		Detector:          p.Detector,
		Languages:         p.Languages,
	}
	if !strings.EqualFold(cfg.Translate.Source, translate.AutoDetect) {
		pc.Source = cfg.Translate.Source
	}
	if pc.BaseURL == "" && p.ID == provider.ProviderCustomOpenAI {
		pc.BaseURL = settings.GetBaseURL(p.ID)
	}
	return pc
}

func buildTranslator(cfg *config.File, prov translate.Provider, verbose bool) (*translate.ColumnTranslator, error) {
	t := cfg.Translate
	metric, err := similarity.MetricByName(t.Metric)
	if err != nil {
		return nil, err
	}
	policy, err := translate.ParseFailurePolicy(t.OnFailure)
	if err != nil {
		return nil, err
	}
	mode := translate.ParallelSequential
	if t.Parallel {
		mode = translate.ParallelFullParallel
	}

	opts := translate.Options{
		Grouper:       &similarity.Grouper{Threshold: t.Threshold, Metric: metric},
		OutputPrefix:  t.OutputPrefix,
		OnFailure:     policy,
		Placeholder:   t.Placeholder,
		ParallelMode:  mode,
		MaxConcurrent: t.MaxConcurrent,
		RequestDelay:  t.RequestDelay,
		CallTimeout:   t.CallTimeout,
		Cache:         translate.NewCache(),
		Verbose:       verbose,
		OnProgress: func(column string, done, total int) {
			if verbose || done == total {
				logInfo("  %s: %s %d/%d", column, progressBar(done*100/max(total, 1), 20), done, total)
			}
		},
		OnLog: func(format string, args ...any) {
			logInfo(format, args...)
		},
		OnError: func(format string, args ...any) {
			logWarning(format, args...)
		},
	}
	return translate.New(prov, opts), nil
}

// progressBar renders a colored bar for percent (clamped to 0-100).
func progressBar(percent, width int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100
	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset + fmt.Sprintf(" %3d%%", percent)
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func newRunCmd() *cobra.Command {
	var a runArgs

	cmd := &cobra.Command{
		Use:   "run INPUT",
		Short: "Run the cleaning steps on a CSV or Excel file",
		Long: `Run the configured steps on INPUT and write the result.

Settings come from flags, then ` + config.FileName + `, then defaults. The output
format follows the output file extension (.csv or .xlsx).

Examples:
  # Normalize, dedup and add date metadata only
  tabclean run posts.csv --steps normalize,dedup,dates

  # Translate two columns to English with a local Ollama model
  tabclean run posts.csv --columns Title,Body --provider ollama --model llama3.2

  # Translate with a glossary, write new T_ columns and a YAML report
  tabclean run posts.xlsx --columns Title --provider dictionary \
      --dictionary fr-en.po --source fr --output-prefix T_ --report report.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args[0], a, cmd.Flags().Changed)
		},
	}

	cmd.Flags().StringVarP(&a.output, "output", "o", "", "Output file (default: INPUT_clean.EXT)")
	cmd.Flags().StringVar(&a.report, "report", "", "Write a YAML translation report to this file")
	cmd.Flags().StringVar(&a.glossary, "export-glossary", "", "Merge the run's translations into this PO glossary")
	cmd.Flags().BoolVar(&a.strict, "strict", false, "Fail when any translation group fails")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show the translation plan without calling the provider")
	addPipelineFlags(cmd, &a)

	return cmd
}

// defaultOutputPath returns INPUT_clean.EXT next to the input.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_clean" + ext
}

// prepared holds everything a run needs after flags and config are merged.
type prepared struct {
	cfg        *config.File
	table      *table.Table
	steps      []pipeline.Step
	translator *translate.ColumnTranslator
	selection  translate.Selection
}

func prepare(input string, a runArgs, changed func(string) bool) (*prepared, error) {
	cfg, err := loadConfig(a, changed)
	if err != nil {
		return nil, err
	}

	ropts, err := cfg.ReadOptions()
	if err != nil {
		return nil, err
	}
	t, info, err := tabfile.ReadFile(input, ropts)
	if err != nil {
		return nil, err
	}
	if info.Format == tabfile.FormatExcel {
		logInfo("Read %s: %d rows, %d columns (sheet %s)", input, t.Len(), len(t.Columns()), info.Sheet)
	} else {
		logInfo("Read %s: %d rows, %d columns (%s, %q)", input, t.Len(), len(t.Columns()), info.Encoding, info.Delimiter)
	}
	if info.Skipped > 0 {
		logWarning("Skipped %d malformed line(s)", info.Skipped)
	}

	names := slices.Clone(cfg.Steps)
	wantTranslate := slices.ContainsFunc(names, func(s string) bool {
		return strings.EqualFold(strings.TrimSpace(s), pipeline.StepTranslate)
	})
	if wantTranslate && len(cfg.Translate.Columns) == 0 {
		logWarning("No columns selected for translation, skipping the translate step (use --columns)")
		names = slices.DeleteFunc(names, func(s string) bool {
			return strings.EqualFold(strings.TrimSpace(s), pipeline.StepTranslate)
		})
		wantTranslate = false
	}

	p := &prepared{cfg: cfg, table: t}
	p.selection = translate.Selection{
		Columns: cfg.Translate.Columns,
		Target:  cfg.Translate.Target,
		Source:  cfg.Translate.Source,
	}
	if wantTranslate {
		// Planning never calls the provider, so it needs no credentials.
		var prov translate.Provider = provider.Composite{Translator: provider.Echo{}}
		if !a.dryRun {
			if prov, err = provider.New(providerConfig(cfg, a.apiKey, a.verbose)); err != nil {
				return nil, err
			}
		}
		if p.translator, err = buildTranslator(cfg, prov, a.verbose); err != nil {
			return nil, err
		}
		logInfo("Provider: %s, target: %s (%s), source: %s",
			cfg.Provider.ID, p.selection.Target, langmeta.EnglishName(p.selection.Target), p.selection.Source)
	}

	p.steps, err = pipeline.StepsByName(names, pipeline.Deps{
		DedupColumns: cfg.Dedup.Columns,
		Dates:        clean.DateOptions{Column: cfg.Dates.Column},
		Translator:   p.translator,
		Selection:    p.selection,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// interruptContext returns a context canceled on SIGINT.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		select {
		case <-sigCh:
			logWarning("Interrupted, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runRun(input string, a runArgs, changed func(string) bool) error {
	p, err := prepare(input, a, changed)
	if err != nil {
		return err
	}
	if a.dryRun {
		return showPlan(p)
	}

	ctx, cancel := interruptContext()
	defer cancel()

	runner := &pipeline.Runner{
		Steps:             p.steps,
		StrictTranslation: a.strict,
		OnStep: func(i, n int, name string) {
			logInfo("[%d/%d] %s", i, n, name)
		},
	}
	res, runErr := runner.Run(ctx, p.table)
	if runErr != nil && ctx.Err() != nil {
		logWarning("Run interrupted, nothing written")
		return nil
	}

	for _, s := range res.Steps {
		if s.RowsIn != s.RowsOut {
			logInfo("%s: %d -> %d rows", s.Name, s.RowsIn, s.RowsOut)
		}
		if s.Report != nil {
			summarizeReport(s.Report)
		}
	}
	if a.report != "" {
		if err := writeReports(a.report, res); err != nil {
			return err
		}
		logInfo("Report written to %s", a.report)
	}
	if a.glossary != "" {
		if err := exportGlossary(a.glossary, p.selection, res); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	out := a.output
	if out == "" {
		out = defaultOutputPath(input)
	}
	if err := tabfile.WriteFile(out, res.Table); err != nil {
		return err
	}
	logSuccess("Wrote %s: %d rows, %d columns (run %s)", out, res.Table.Len(), len(res.Table.Columns()), res.RunID)
	return nil
}

func summarizeReport(r *translate.Report) {
	for _, c := range r.Columns {
		line := fmt.Sprintf("%s: %d groups, %d translated, %d cached, %d skipped, %d failed",
			c.Column, c.Groups, c.Translated, c.Cached, c.Skipped, c.Failed)
		switch {
		case c.Aborted:
			logWarning("%s (column left untranslated)", line)
		case c.Failed > 0:
			logWarning("%s", line)
		default:
			logSuccess("%s", line)
		}
	}
	for _, f := range r.Failures() {
		logWarning("  %s: %q: %v", f.Column, f.Representative, f.Err)
	}
	logInfo("Cache: %d hits, %d misses, %d entries", r.CacheStats.Hits, r.CacheStats.Misses, r.CacheStats.Entries)
}

func writeReports(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	for _, r := range res.Reports() {
		if err := r.WriteYAML(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return f.Close()
}

// exportGlossary merges every report of res into the PO glossary at path,
// creating it for the selection's language pair when missing.
func exportGlossary(path string, sel translate.Selection, res *pipeline.Result) error {
	g, err := glossary.Open(path, sel.Source, sel.Target)
	if err != nil {
		return err
	}
	var total glossary.MergeStats
	for _, r := range res.Reports() {
		st, err := g.Merge(r)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		total.Added += st.Added
		total.Updated += st.Updated
		total.Skipped += st.Skipped
	}
	if err := g.WriteFile(path); err != nil {
		return err
	}
	logInfo("Glossary %s: %d added, %d updated", path, total.Added, total.Updated)
	if total.Skipped > 0 {
		logWarning("Glossary %s covers %s only; %d groups in other languages were left out", path, g.Source(), total.Skipped)
	}
	return nil
}

// ---------------------------------------------------------------------------
// plan
// ---------------------------------------------------------------------------

func newPlanCmd() *cobra.Command {
	var a runArgs

	cmd := &cobra.Command{
		Use:   "plan INPUT",
		Short: "Show how values would be grouped for translation",
		Long: `Run every step except translation, then show the similarity groups
of each selected column. No provider is called.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.dryRun = true
			return runRun(args[0], a, cmd.Flags().Changed)
		},
	}
	addPipelineFlags(cmd, &a)
	return cmd
}

func showPlan(p *prepared) error {
	if p.translator == nil {
		logWarning("Nothing to translate")
		return nil
	}

	var steps []pipeline.Step
	for _, s := range p.steps {
		if s.Name() != pipeline.StepTranslate {
			steps = append(steps, s)
		}
	}
	res, err := (&pipeline.Runner{Steps: steps}).Run(context.Background(), p.table)
	if err != nil {
		return err
	}

	plans, err := p.translator.Plan(res.Table, p.selection)
	if err != nil {
		return err
	}
	for _, cp := range plans {
		fmt.Printf("%s%s%s: %d rows, %d distinct, %d groups\n", colorBlue, cp.Column, colorReset, cp.Rows, cp.Distinct, len(cp.Groups))
		for _, g := range cp.Groups {
			fmt.Printf("  %-40s %4d row(s)", truncateRunes(g.Representative, 40), g.Rows)
			if len(g.Members) > 1 {
				fmt.Printf("  +%d similar", len(g.Members)-1)
			}
			fmt.Println()
		}
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// ---------------------------------------------------------------------------
// columns
// ---------------------------------------------------------------------------

type columnInfo struct {
	Name     string
	NonBlank int
	Distinct int
	Kinds    map[table.Kind]int
}

// dominantKind returns the most frequent non-missing kind, or missing.
func (c columnInfo) dominantKind() table.Kind {
	best, n := table.KindMissing, 0
	for _, k := range []table.Kind{table.KindText, table.KindNumber, table.KindDate} {
		if c.Kinds[k] > n {
			best, n = k, c.Kinds[k]
		}
	}
	return best
}

func describeColumns(t *table.Table) []columnInfo {
	var out []columnInfo
	for _, name := range t.Columns() {
		cells, _ := t.Column(name)
		info := columnInfo{Name: name, Kinds: make(map[table.Kind]int)}
		seen := make(map[string]bool)
		for _, c := range cells {
			info.Kinds[c.Kind()]++
			if c.IsBlank() {
				continue
			}
			info.NonBlank++
			seen[c.Kind().String()+":"+c.String()] = true
		}
		info.Distinct = len(seen)
		out = append(out, info)
	}
	return out
}

func newColumnsCmd() *cobra.Command {
	var encodings, delimiters, sheet string

	cmd := &cobra.Command{
		Use:   "columns INPUT",
		Short: "List the columns of a CSV or Excel file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			cfg.Input = config.InputSection{Encodings: splitList(encodings), Delimiters: splitList(delimiters), Sheet: sheet}
			ropts, err := cfg.ReadOptions()
			if err != nil {
				return err
			}
			t, _, err := tabfile.ReadFile(args[0], ropts)
			if err != nil {
				return err
			}

			fmt.Printf("%s%d rows%s\n", colorBlue, t.Len(), colorReset)
			for _, c := range describeColumns(t) {
				fmt.Printf("  %-30s %-8s %6d non-blank %6d distinct\n", c.Name, c.dominantKind(), c.NonBlank, c.Distinct)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&encodings, "encodings", "", "Encodings to try, in order")
	cmd.Flags().StringVar(&delimiters, "delimiters", "", "Delimiters to try, in order")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Excel sheet to read")
	return cmd
}
