package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/sortbench/harness"
)

func secs(v float64) *float64 {
	return &v
}

func newSet(t *testing.T, entries ...any) *harness.ResultSet {
	t.Helper()

	set := harness.NewResultSet()
	for i := 0; i < len(entries); i += 2 {
		require.NoError(t, set.Add(entries[i].(string), entries[i+1].(harness.ParsedResult)))
	}

	return set
}

func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

func TestGenerateAllMatchGolden(t *testing.T) {
	set := newSet(t,
		"Sequential", harness.ParsedResult{Sequence: []int{1, 2, 3}, ElapsedSeconds: secs(0.5)},
		"OpenMP (4 threads)", harness.ParsedResult{Sequence: []int{1, 2, 3}, ElapsedSeconds: secs(0.25)},
		"MPI (4 processes)", harness.ParsedResult{
			Sequence: []int{1, 2, 3},
			Diagnostics: []harness.Diagnostic{
				{Kind: harness.DiagnosticMissingTiming, Message: "no timing"},
			},
		},
	)

	outcome, err := Verify(set)
	require.NoError(t, err)

	rep := Build("merge", "Merge Sort", set, outcome,
		[]Skipped{{Label: "Hybrid (2 MPI × 2 OMP)", Reason: "mpirun not found"}},
		DefaultThreshold)

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, rep))

	assertGolden(t, "merge_all_match", buf.Bytes())
}

func TestGenerateMismatchGolden(t *testing.T) {
	set := newSet(t,
		"Sequential", harness.ParsedResult{Sequence: []int{1, 2, 3}, ElapsedSeconds: secs(1)},
		"MPI (2 processes)", harness.ParsedResult{Sequence: []int{1, 3, 2}, ElapsedSeconds: secs(0.5)},
	)

	outcome, err := Verify(set)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, Build("quick", "Quick Sort", set, outcome, nil, 0)))

	assertGolden(t, "quick_mismatch", buf.Bytes())
}

func TestGenerateUsesFamilyWhenUntitled(t *testing.T) {
	set := newSet(t, "Sequential", harness.ParsedResult{Sequence: []int{1}})

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, Build("merge", "", set, Outcome{AllMatch: true, Reference: "Sequential"}, nil, 0)))

	assert.True(t, strings.HasPrefix(buf.String(), "## merge\n"))
	assert.Contains(t, buf.String(), "| Sequential | unavailable | - | 1 | 0 |")
}

func TestGenerateOnlySkipped(t *testing.T) {
	rep := FamilyReport{
		Family:  "merge",
		Skipped: []Skipped{{Label: "Sequential", Reason: "missing binary"}},
	}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, rep))

	output := buf.String()
	assert.NotContains(t, output, "Sorted sequences")
	assert.Contains(t, output, "| Sequential | not run |")
	assert.Contains(t, output, "missing binary")
}

func TestGenerateEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := Generate(&buf, FamilyReport{Family: "merge"})
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestGenerateJSON(t *testing.T) {
	set := newSet(t,
		"Sequential", harness.ParsedResult{Sequence: []int{2, 4}, ElapsedSeconds: secs(1.5)},
		"MPI (4 processes)", harness.ParsedResult{Sequence: []int{2, 4}},
	)
	outcome, err := Verify(set)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, GenerateJSON(&buf, []FamilyReport{
		Build("merge", "Merge Sort", set, outcome, nil, 0),
	}))

	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.Len(t, parsed, 1)

	targets := parsed[0]["targets"].([]any)
	require.Len(t, targets, 2)

	first := targets[0].(map[string]any)
	assert.Equal(t, "Sequential", first["label"])
	assert.Equal(t, 1.5, first["elapsed_seconds"])

	second := targets[1].(map[string]any)
	assert.Nil(t, second["elapsed_seconds"], "absent time must be null, not 0")

	verification := parsed[0]["verification"].(map[string]any)
	assert.Equal(t, true, verification["all_match"])
}

func TestTimingTable(t *testing.T) {
	set := newSet(t,
		"Sequential", harness.ParsedResult{ElapsedSeconds: secs(2)},
		"OpenMP (4 threads)", harness.ParsedResult{},
	)

	rows := TimingTable(set)
	require.Len(t, rows, 2)

	assert.Equal(t, "Sequential", rows[0].Label)
	assert.Equal(t, 2.0, *rows[0].Seconds)
	assert.Equal(t, "OpenMP (4 threads)", rows[1].Label)
	assert.Nil(t, rows[1].Seconds)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, Unavailable, FormatSeconds(nil))
	assert.Equal(t, "0.000000 s", FormatSeconds(secs(0)))
	assert.Equal(t, "7.123456 s", FormatSeconds(secs(7.123456)))
}

func TestFormatSpeedup(t *testing.T) {
	tests := []struct {
		ref, secs *float64
		want      string
	}{
		{secs(2), secs(1), "2.00x"},
		{secs(1), secs(4), "0.25x"},
		{nil, secs(1), "-"},
		{secs(1), nil, "-"},
		{secs(1), secs(0), "-"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSpeedup(tt.ref, tt.secs))
	}
}
