// Package config loads the benchmark suite: which sort families exist,
// where their programs live and how each target is launched.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/weiihann/sortbench/harness"
	"github.com/weiihann/sortbench/report"
	"github.com/weiihann/sortbench/workload"
)

// Suite is the top-level configuration file.
type Suite struct {
	// Launcher starts distributed targets, e.g. mpirun.
	Launcher string `yaml:"launcher"`

	// ProcessFlag passes the process count to the launcher.
	ProcessFlag string `yaml:"process_flag"`

	// ThreadEnv is the variable that carries the thread count.
	ThreadEnv string `yaml:"thread_env"`

	InputPath        string   `yaml:"input_path"`
	Layout           string   `yaml:"layout"`
	DisplayThreshold int      `yaml:"display_threshold"`
	TimingKeywords   []string `yaml:"timing_keywords,omitempty"`

	// Renderer is the external chart renderer command. The chart spec
	// path is appended as the last argument.
	Renderer []string `yaml:"renderer,omitempty"`

	HistoryPath string   `yaml:"history_path,omitempty"`
	Families    []Family `yaml:"families"`
}

// Family is one sort algorithm with its four implementations.
type Family struct {
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Chart    string   `yaml:"chart"`
	BuildDir string   `yaml:"build_dir"`
	Targets  []Target `yaml:"targets"`
}

// Target is the file form of harness.Target.
type Target struct {
	Kind       string   `yaml:"kind"`
	Label      string   `yaml:"label,omitempty"`
	Executable string   `yaml:"executable"`
	Args       []string `yaml:"args,omitempty"`
	Source     string   `yaml:"source,omitempty"`
	Threads    int      `yaml:"threads,omitempty"`
	Processes  int      `yaml:"processes,omitempty"`
}

// Default mirrors the layout of the native merge and quick sort programs:
// binaries in the working directory, mpirun for MPI, OMP_NUM_THREADS for
// OpenMP, four threads or processes for the pure parallel variants and
// 2 x 2 for the hybrid.
func Default() Suite {
	launch := harness.DefaultLaunch()

	return Suite{
		Launcher:         launch.Launcher,
		ProcessFlag:      launch.ProcessFlag,
		ThreadEnv:        launch.ThreadEnv,
		InputPath:        "input.txt",
		Layout:           string(workload.LayoutLines),
		DisplayThreshold: report.DefaultThreshold,
		Families: []Family{
			defaultFamily("merge", "Merge Sort", "merge_sort", "hybrid_merge_sort"),
			defaultFamily("quick", "Quick Sort", "quick_sort", "hybrid_quick_sort"),
		},
	}
}

func defaultFamily(name, title, base, hybrid string) Family {
	return Family{
		Name:  name,
		Title: title,
		Chart: base + "_performance.png",
		Targets: []Target{
			{Kind: "sequential", Executable: "./" + base, Source: base + ".c"},
			{Kind: "shared", Executable: "./" + base + "_openmp", Source: base + "_openmp.c", Threads: 4},
			{Kind: "distributed", Executable: "./" + base + "_mpi", Source: base + "_mpi.c", Processes: 4},
			{Kind: "hybrid", Executable: "./" + hybrid, Source: hybrid + ".c", Processes: 2, Threads: 2},
		},
	}
}

// Load reads a suite file and fills unset fields from Default. A family
// in the file replaces the default family of the same name.
func Load(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var file Suite

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&file); err != nil {
		return Suite{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	suite := merge(Default(), file)

	// Relative build directories are relative to the config file.
	base := filepath.Dir(path)
	for i := range suite.Families {
		f := &suite.Families[i]
		if f.BuildDir != "" && !filepath.IsAbs(f.BuildDir) {
			f.BuildDir = filepath.Join(base, f.BuildDir)
		}
	}

	if err := suite.Validate(); err != nil {
		return Suite{}, err
	}

	return suite, nil
}

func merge(def, file Suite) Suite {
	out := def

	if file.Launcher != "" {
		out.Launcher = file.Launcher
	}
	if file.ProcessFlag != "" {
		out.ProcessFlag = file.ProcessFlag
	}
	if file.ThreadEnv != "" {
		out.ThreadEnv = file.ThreadEnv
	}
	if file.InputPath != "" {
		out.InputPath = file.InputPath
	}
	if file.Layout != "" {
		out.Layout = file.Layout
	}
	if file.DisplayThreshold != 0 {
		out.DisplayThreshold = file.DisplayThreshold
	}
	if len(file.TimingKeywords) > 0 {
		out.TimingKeywords = file.TimingKeywords
	}
	if len(file.Renderer) > 0 {
		out.Renderer = file.Renderer
	}
	if file.HistoryPath != "" {
		out.HistoryPath = file.HistoryPath
	}

	families := append([]Family(nil), def.Families...)

	for _, f := range file.Families {
		replaced := false

		for i := range families {
			if families[i].Name == f.Name {
				families[i] = f
				replaced = true

				break
			}
		}

		if !replaced {
			families = append(families, f)
		}
	}

	out.Families = families

	return out
}

// Validate checks the suite for problems that would otherwise surface
// half way through a run.
func (s Suite) Validate() error {
	if _, err := workload.ParseLayout(s.Layout); err != nil {
		return err
	}

	if s.Launcher == "" || s.ThreadEnv == "" {
		return fmt.Errorf("launcher and thread_env must be set")
	}

	names := make(map[string]struct{}, len(s.Families))

	for _, f := range s.Families {
		if f.Name == "" {
			return fmt.Errorf("family without a name")
		}

		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("duplicate family %q", f.Name)
		}
		names[f.Name] = struct{}{}

		if len(f.Targets) == 0 {
			return fmt.Errorf("family %q has no targets", f.Name)
		}

		targets, err := f.HarnessTargets()
		if err != nil {
			return err
		}

		labels := make(map[string]struct{}, len(targets))

		for _, t := range targets {
			if err := t.Validate(); err != nil {
				return fmt.Errorf("family %q: %w", f.Name, err)
			}

			if _, dup := labels[t.Label()]; dup {
				return fmt.Errorf("family %q: duplicate target label %q", f.Name, t.Label())
			}
			labels[t.Label()] = struct{}{}
		}
	}

	return nil
}

// Launch returns the launcher settings for harness runners.
func (s Suite) Launch() harness.Launch {
	return harness.Launch{
		Launcher:    s.Launcher,
		ProcessFlag: s.ProcessFlag,
		ThreadEnv:   s.ThreadEnv,
	}
}

// Family returns the family with the given name.
func (s Suite) Family(name string) (Family, bool) {
	for _, f := range s.Families {
		if f.Name == name {
			return f, true
		}
	}

	return Family{}, false
}

// HarnessTargets converts the family's targets, in file order.
func (f Family) HarnessTargets() ([]harness.Target, error) {
	targets := make([]harness.Target, 0, len(f.Targets))

	for _, t := range f.Targets {
		kind, err := harness.ParseKind(t.Kind)
		if err != nil {
			return nil, fmt.Errorf("family %q: %w", f.Name, err)
		}

		targets = append(targets, harness.Target{
			Kind:       kind,
			Name:       t.Label,
			Executable: t.Executable,
			Args:       t.Args,
			Source:     t.Source,
			Threads:    t.Threads,
			Processes:  t.Processes,
		})
	}

	return targets, nil
}
