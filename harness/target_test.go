package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetLabels(t *testing.T) {
	tests := []struct {
		target Target
		want   string
	}{
		{Sequential("./s"), "Sequential"},
		{SharedMemory("./s", 4), "OpenMP (4 threads)"},
		{Distributed("./s", 8), "MPI (8 processes)"},
		{Hybrid("./s", 2, 2), "Hybrid (2 MPI × 2 OMP)"},
		{Target{Kind: KindShared, Name: "omp-wide", Threads: 16}, "omp-wide"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.target.Label())
	}
}

func TestTargetValidate(t *testing.T) {
	valid := []Target{
		Sequential("./s"),
		SharedMemory("./s", 1),
		Distributed("./s", 1),
		Hybrid("./s", 1, 1),
	}
	for _, target := range valid {
		assert.NoError(t, target.Validate(), target.Label())
	}

	invalid := []Target{
		Sequential(""),
		SharedMemory("./s", 0),
		Distributed("./s", 0),
		Hybrid("./s", 2, 0),
		Hybrid("./s", 0, 2),
		{Kind: "gpu", Executable: "./s"},
	}
	for _, target := range invalid {
		assert.Error(t, target.Validate(), target.Label())
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"sequential": KindSequential,
		"OpenMP":     KindShared,
		"shared":     KindShared,
		"mpi":        KindDistributed,
		"hybrid":     KindHybrid,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("cuda")
	assert.Error(t, err)
}

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		target   Target
		compiler string
		args     []string
	}{
		{
			Target{Kind: KindSequential, Executable: "./merge_sort", Source: "merge_sort.c"},
			"gcc", []string{"-O2", "-o", "./merge_sort", "merge_sort.c"},
		},
		{
			Target{Kind: KindShared, Executable: "./omp", Source: "omp.c", Threads: 4},
			"gcc", []string{"-fopenmp", "-O2", "-o", "./omp", "omp.c"},
		},
		{
			Target{Kind: KindDistributed, Executable: "./mpi", Source: "mpi.c", Processes: 4},
			"mpicc", []string{"-O2", "-o", "./mpi", "mpi.c"},
		},
		{
			Target{Kind: KindHybrid, Executable: "./hy", Source: "hy.c", Processes: 2, Threads: 2},
			"mpicc", []string{"-fopenmp", "-O2", "-o", "./hy", "hy.c"},
		},
	}

	for _, tt := range tests {
		compiler, args := BuildCommand(tt.target)

		assert.Equal(t, tt.compiler, compiler, tt.target.Label())
		assert.Equal(t, tt.args, args, tt.target.Label())
	}
}

func TestBuildWithoutSourceIsNoop(t *testing.T) {
	err := Build(context.Background(), discardLogger(), t.TempDir(), Sequential("./prebuilt"))
	assert.NoError(t, err)
}

func TestResolveBinary(t *testing.T) {
	sep := string(filepath.Separator)

	assert.Equal(t, "."+sep+"merge_sort", ResolveBinary("", "./merge_sort"))
	assert.Equal(t, "."+sep+"merge_sort", ResolveBinary("", "merge_sort"))
	assert.Equal(t, filepath.Join("mergeSort", "merge_sort"), ResolveBinary("mergeSort", "./merge_sort"))

	abs := filepath.Join(t.TempDir(), "sort")
	assert.Equal(t, abs, ResolveBinary("mergeSort", abs))
}
