package harness

import (
	"fmt"
	"strings"
)

// Kind identifies how a sort implementation is parallelised.
type Kind string

const (
	KindSequential  Kind = "sequential"
	KindShared      Kind = "shared"
	KindDistributed Kind = "distributed"
	KindHybrid      Kind = "hybrid"
)

// ParseKind accepts the canonical kind names plus the technology
// aliases used by the native programs (openmp, mpi).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "serial":
		return KindSequential, nil
	case "shared", "openmp", "omp":
		return KindShared, nil
	case "distributed", "mpi":
		return KindDistributed, nil
	case "hybrid":
		return KindHybrid, nil
	default:
		return "", fmt.Errorf("unknown target kind %q", s)
	}
}

// Target is one execution variant of a sort implementation together with
// everything needed to invoke it.
type Target struct {
	Kind       Kind
	Name       string // overrides the generated label when set
	Executable string
	Args       []string
	Source     string // C source compiled by Build, optional
	Threads    int    // shared and hybrid
	Processes  int    // distributed and hybrid
}

// Sequential returns a target that runs exe directly.
func Sequential(exe string) Target {
	return Target{Kind: KindSequential, Executable: exe}
}

// SharedMemory returns a target that runs exe with a thread count.
func SharedMemory(exe string, threads int) Target {
	return Target{Kind: KindShared, Executable: exe, Threads: threads}
}

// Distributed returns a target that runs exe through the launcher.
func Distributed(exe string, processes int) Target {
	return Target{Kind: KindDistributed, Executable: exe, Processes: processes}
}

// Hybrid returns a target that runs exe through the launcher with a
// per-process thread count.
func Hybrid(exe string, processes, threads int) Target {
	return Target{
		Kind:       KindHybrid,
		Executable: exe,
		Processes:  processes,
		Threads:    threads,
	}
}

// Label returns the display label used to key results.
func (t Target) Label() string {
	if t.Name != "" {
		return t.Name
	}

	switch t.Kind {
	case KindSequential:
		return "Sequential"
	case KindShared:
		return fmt.Sprintf("OpenMP (%d threads)", t.Threads)
	case KindDistributed:
		return fmt.Sprintf("MPI (%d processes)", t.Processes)
	case KindHybrid:
		return fmt.Sprintf("Hybrid (%d MPI × %d OMP)", t.Processes, t.Threads)
	default:
		return string(t.Kind)
	}
}

// Validate checks that the target carries the configuration its kind needs.
func (t Target) Validate() error {
	if t.Executable == "" {
		return fmt.Errorf("target %s: executable is required", t.Label())
	}

	needThreads := t.Kind == KindShared || t.Kind == KindHybrid
	needProcs := t.Kind == KindDistributed || t.Kind == KindHybrid

	switch t.Kind {
	case KindSequential, KindShared, KindDistributed, KindHybrid:
	default:
		return fmt.Errorf("target %s: unknown kind %q", t.Label(), t.Kind)
	}

	if needThreads && t.Threads < 1 {
		return fmt.Errorf("target %s: threads must be positive, got %d",
			t.Label(), t.Threads)
	}

	if needProcs && t.Processes < 1 {
		return fmt.Errorf("target %s: processes must be positive, got %d",
			t.Label(), t.Processes)
	}

	return nil
}
