package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/sortbench/chart"
	"github.com/weiihann/sortbench/config"
	"github.com/weiihann/sortbench/harness"
	"github.com/weiihann/sortbench/history"
	"github.com/weiihann/sortbench/report"
	"github.com/weiihann/sortbench/workload"
)

type runConfig struct {
	configPath string
	families   []string

	count     int
	elements  string
	inputPath string
	layout    string
	min       int
	max       int
	seed      int64

	ompThreads   int
	mpiProcesses int
	hybridMPI    int
	hybridOMP    int

	threshold   int
	renderer    []string
	historyPath string
	skipBuild   bool
	noChart     bool
	outputJSON  bool
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every target of the selected sort families",
		Long: `Write the shared input file, build the native programs, run the
sequential, OpenMP, MPI and hybrid targets one after another and report
their timings. Without --count, --elements or --input the element count is
read from standard input.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("count") {
				cfg.count = -1
			}

			return runBenchmark(cmd.Context(), logger, cfg, flags.Changed,
				cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.configPath, "config", "",
		"Suite configuration file (YAML)")
	flags.StringSliceVar(&cfg.families, "family", nil,
		"Sort families to run (default: all configured)")
	flags.IntVar(&cfg.count, "count", 0,
		"Number of elements to generate")
	flags.StringVar(&cfg.elements, "elements", "",
		"Explicit elements, separated by spaces or commas")
	flags.StringVar(&cfg.inputPath, "input", "",
		"Reuse an existing input file instead of writing one")
	flags.StringVar(&cfg.layout, "layout", "",
		"Input layout: lines or spaces (default from config)")
	flags.IntVar(&cfg.min, "min", workload.DefaultMin,
		"Minimum random value")
	flags.IntVar(&cfg.max, "max", workload.DefaultMax,
		"Maximum random value")
	flags.Int64Var(&cfg.seed, "seed", 0,
		"Random seed (0 = use current time)")
	flags.IntVar(&cfg.ompThreads, "omp-threads", 0,
		"Thread count for OpenMP targets")
	flags.IntVar(&cfg.mpiProcesses, "mpi-processes", 0,
		"Process count for MPI targets")
	flags.IntVar(&cfg.hybridMPI, "hybrid-mpi", 0,
		"Process count for hybrid targets")
	flags.IntVar(&cfg.hybridOMP, "hybrid-omp", 0,
		"Threads per process for hybrid targets")
	flags.IntVar(&cfg.threshold, "threshold", 0,
		"Longest sorted sequence printed in full (default from config)")
	flags.StringSliceVar(&cfg.renderer, "renderer", nil,
		"External chart renderer command; the chart spec path is appended")
	flags.StringVar(&cfg.historyPath, "history", "",
		"SQLite file that accumulates run timings")
	flags.BoolVar(&cfg.skipBuild, "skip-build", false,
		"Skip compiling the native programs")
	flags.BoolVar(&cfg.noChart, "no-chart", false,
		"Do not write chart specs or call the renderer")
	flags.BoolVar(&cfg.outputJSON, "json", false,
		"Output results as JSON instead of markdown")

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
	changed func(string) bool,
	stdin io.Reader,
	stdout, stderr io.Writer,
) error {
	suite, err := loadSuite(cfg)
	if err != nil {
		return err
	}

	families, err := selectFamilies(suite, cfg.families)
	if err != nil {
		return err
	}

	plans, err := planFamilies(families, overridesFrom(cfg, changed))
	if err != nil {
		return err
	}

	// Step 1: Write the shared input file (or reuse one).
	inputPath, spec, err := prepareInput(ctx, logger, suite, cfg, stdin, stderr)
	if err != nil {
		return err
	}

	// Step 2: Build native programs (unless --skip-build).
	if !cfg.skipBuild {
		for _, p := range plans {
			for _, t := range p.targets {
				if err := harness.Build(ctx, logger, p.BuildDir, t); err != nil {
					return err
				}
			}
		}
	}

	var store *history.Store
	var run history.Run

	if suite.HistoryPath != "" {
		store, err = history.Open(suite.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()

		run = history.NewRun(spec.Count, time.Now())
		if err := store.RecordRun(ctx, run); err != nil {
			return err
		}
	}

	renderer := &chart.Renderer{Command: suite.Renderer, Logger: logger}
	parser := harness.NewParser(suite.TimingKeywords)
	launch := suite.Launch()

	// Step 3: Run each family's targets sequentially.
	reports := make([]report.FamilyReport, 0, len(plans))
	specs := make([]chart.Spec, 0, len(plans))

	for _, p := range plans {
		f := p.Family

		set, skipped, err := runFamily(ctx, logger, p, launch, parser, inputPath)
		if err != nil {
			return err
		}

		var outcome report.Outcome

		if set.Len() > 0 {
			outcome, err = report.Verify(set)
			if err != nil {
				return err
			}

			if outcome.AllMatch {
				logger.InfoContext(ctx, "all targets agree",
					slog.String("family", f.Name),
					slog.String("reference", outcome.Reference),
				)
			} else {
				logger.WarnContext(ctx, "target produced a different sorted sequence",
					slog.String("family", f.Name),
					slog.String("target", outcome.FirstMismatch),
					slog.String("reference", outcome.Reference),
				)
			}
		}

		reports = append(reports,
			report.Build(f.Name, f.Title, set, outcome, skipped, suite.DisplayThreshold))

		rows := report.TimingTable(set)
		cs := chart.FromTimings(chartTitle(f), f.Chart, rows)
		specs = append(specs, cs)

		if !cfg.noChart && set.Len() > 0 && f.Chart != "" {
			specPath := strings.TrimSuffix(f.Chart, filepath.Ext(f.Chart)) + ".json"

			if err := chart.WriteSpec(specPath, cs); err != nil {
				return err
			}

			if err := renderer.Render(ctx, specPath); err != nil {
				logger.ErrorContext(ctx, "chart rendering failed",
					slog.String("family", f.Name),
					slog.String("error", err.Error()),
				)
			}
		}

		if store != nil && set.Len() > 0 {
			if err := store.RecordFamily(ctx, run.ID, f.Name, rows, outcome); err != nil {
				return err
			}
		}
	}

	// Step 4: Report.
	if cfg.outputJSON {
		if err := report.GenerateJSON(stdout, reports); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		for i, rep := range reports {
			if err := report.Generate(stdout, rep); err != nil {
				return fmt.Errorf("generate report: %w", err)
			}

			fmt.Fprintln(stdout)

			if len(specs[i].Bars) > 0 {
				if err := chart.RenderBars(stdout, specs[i]); err != nil {
					return err
				}

				fmt.Fprintln(stdout)
			}
		}
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}

// familyPlan is a family with its command-line overrides applied.
type familyPlan struct {
	config.Family
	targets []harness.Target
}

// planFamilies applies o to every selected target and validates the
// result, so that a bad override fails before any input is written.
func planFamilies(families []config.Family, o overrides) ([]familyPlan, error) {
	plans := make([]familyPlan, 0, len(families))

	for _, f := range families {
		targets, err := f.HarnessTargets()
		if err != nil {
			return nil, err
		}

		for i, t := range targets {
			t = o.apply(t)
			if err := t.Validate(); err != nil {
				return nil, fmt.Errorf("family %q: %w", f.Name, err)
			}
			targets[i] = t
		}

		plans = append(plans, familyPlan{Family: f, targets: targets})
	}

	return plans, nil
}

// runFamily invokes every target of p once, in order. A target that
// cannot be spawned is skipped; the others still run.
func runFamily(
	ctx context.Context,
	logger *slog.Logger,
	p familyPlan,
	launch harness.Launch,
	parser *harness.Parser,
	inputPath string,
) (*harness.ResultSet, []report.Skipped, error) {
	f := p.Family
	set := harness.NewResultSet()

	var skipped []report.Skipped

	for _, t := range p.targets {
		t.Executable = harness.ResolveBinary(f.BuildDir, t.Executable)

		raw, err := harness.NewRunner(t, launch, logger).Run(ctx, inputPath)
		if err != nil {
			var spawnErr *harness.SpawnError
			if !errors.As(err, &spawnErr) {
				return nil, nil, fmt.Errorf("run %s: %w", t.Label(), err)
			}

			logger.ErrorContext(ctx, "target could not be started",
				slog.String("family", f.Name),
				slog.String("target", spawnErr.Label),
				slog.String("error", spawnErr.Err.Error()),
			)
			skipped = append(skipped, report.Skipped{
				Label:  spawnErr.Label,
				Reason: spawnErr.Err.Error(),
			})

			continue
		}

		parsed := parser.Parse(raw.Stdout)
		logDiagnostics(ctx, logger, f.Name, raw.Label, parsed)

		if err := set.Add(raw.Label, parsed); err != nil {
			return nil, nil, fmt.Errorf("family %s: %w", f.Name, err)
		}
	}

	return set, skipped, nil
}

func logDiagnostics(
	ctx context.Context,
	logger *slog.Logger,
	family, label string,
	r harness.ParsedResult,
) {
	for _, d := range r.Diagnostics {
		attrs := []slog.Attr{
			slog.String("family", family),
			slog.String("target", label),
			slog.String("kind", string(d.Kind)),
		}
		if d.Line > 0 {
			attrs = append(attrs, slog.Int("line", d.Line))
		}

		level := slog.LevelDebug
		if d.Kind == harness.DiagnosticMissingTiming {
			level = slog.LevelWarn
		}

		logger.LogAttrs(ctx, level, d.Message, attrs...)
	}
}

func loadSuite(cfg runConfig) (config.Suite, error) {
	suite := config.Default()

	if cfg.configPath != "" {
		var err error

		suite, err = config.Load(cfg.configPath)
		if err != nil {
			return config.Suite{}, err
		}
	}

	if cfg.layout != "" {
		suite.Layout = cfg.layout
	}
	if cfg.threshold > 0 {
		suite.DisplayThreshold = cfg.threshold
	}
	if len(cfg.renderer) > 0 {
		suite.Renderer = cfg.renderer
	}
	if cfg.historyPath != "" {
		suite.HistoryPath = cfg.historyPath
	}

	if err := suite.Validate(); err != nil {
		return config.Suite{}, err
	}

	return suite, nil
}

func selectFamilies(suite config.Suite, names []string) ([]config.Family, error) {
	if len(names) == 0 {
		return suite.Families, nil
	}

	families := make([]config.Family, 0, len(names))

	for _, name := range names {
		f, ok := suite.Family(name)
		if !ok {
			return nil, fmt.Errorf("unknown family %q", name)
		}
		families = append(families, f)
	}

	return families, nil
}

func prepareInput(
	ctx context.Context,
	logger *slog.Logger,
	suite config.Suite,
	cfg runConfig,
	stdin io.Reader,
	prompt io.Writer,
) (string, workload.InputSpec, error) {
	if cfg.inputPath != "" {
		spec, err := workload.ReadInput(cfg.inputPath)
		if err != nil {
			return "", workload.InputSpec{}, err
		}

		logger.InfoContext(ctx, "reusing input",
			slog.String("path", cfg.inputPath),
			slog.Int("elements", spec.Count),
		)

		return cfg.inputPath, spec, nil
	}

	layout, err := workload.ParseLayout(suite.Layout)
	if err != nil {
		return "", workload.InputSpec{}, err
	}

	var spec workload.InputSpec

	if cfg.elements != "" {
		elements, err := workload.ParseElements(cfg.elements)
		if err != nil {
			return "", workload.InputSpec{}, err
		}

		spec = workload.InputSpec{Count: len(elements), Elements: elements}
		if cfg.count >= 0 {
			spec.Count = cfg.count
		}
	} else {
		count := cfg.count
		if count < 0 {
			count, err = promptCount(stdin, prompt)
			if err != nil {
				return "", workload.InputSpec{}, err
			}
		}

		seed := cfg.seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		var summary workload.Summary

		spec, summary, err = workload.NewGenerator(workload.Config{
			Count: count,
			Min:   cfg.min,
			Max:   cfg.max,
			Seed:  seed,
		}).Generate()
		if err != nil {
			return "", workload.InputSpec{}, err
		}

		logger.InfoContext(ctx, "input generated",
			slog.Int("elements", summary.Count),
			slog.Int("min", summary.Min),
			slog.Int("max", summary.Max),
			slog.Int64("seed", seed),
		)
	}

	if err := workload.WriteInput(suite.InputPath, spec, layout); err != nil {
		return "", workload.InputSpec{}, err
	}

	logger.InfoContext(ctx, "input written",
		slog.String("path", suite.InputPath),
		slog.String("layout", string(layout)),
	)

	return suite.InputPath, spec, nil
}

func promptCount(stdin io.Reader, prompt io.Writer) (int, error) {
	fmt.Fprint(prompt, "Enter number of elements: ")

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return 0, &workload.InputError{Reason: "no element count given"}
	}

	count, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, &workload.InputError{
			Reason: fmt.Sprintf("element count %q is not an integer", strings.TrimSpace(line)),
		}
	}

	return count, nil
}

func chartTitle(f config.Family) string {
	title := f.Title
	if title == "" {
		title = f.Name
	}

	return title + " Performance Comparison"
}

// overrides holds the concurrency flags that were set on the command line.
type overrides struct {
	ompThreads   int
	mpiProcesses int
	hybridMPI    int
	hybridOMP    int
}

func overridesFrom(cfg runConfig, changed func(string) bool) overrides {
	var o overrides

	if changed("omp-threads") {
		o.ompThreads = cfg.ompThreads
	}
	if changed("mpi-processes") {
		o.mpiProcesses = cfg.mpiProcesses
	}
	if changed("hybrid-mpi") {
		o.hybridMPI = cfg.hybridMPI
	}
	if changed("hybrid-omp") {
		o.hybridOMP = cfg.hybridOMP
	}

	return o
}

// apply returns t with any overridden counts. Overridden targets lose a
// configured label so that the label reflects the new counts.
func (o overrides) apply(t harness.Target) harness.Target {
	switch t.Kind {
	case harness.KindShared:
		if o.ompThreads != 0 {
			t.Threads = o.ompThreads
			t.Name = ""
		}
	case harness.KindDistributed:
		if o.mpiProcesses != 0 {
			t.Processes = o.mpiProcesses
			t.Name = ""
		}
	case harness.KindHybrid:
		if o.hybridMPI != 0 {
			t.Processes = o.hybridMPI
			t.Name = ""
		}
		if o.hybridOMP != 0 {
			t.Threads = o.hybridOMP
			t.Name = ""
		}
	}

	return t
}
