package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seconds(v float64) *float64 {
	return &v
}

func TestResultSetPreservesInsertionOrder(t *testing.T) {
	set := NewResultSet()

	for _, label := range []string{"Sequential", "OpenMP (4 threads)", "MPI (4 processes)"} {
		require.NoError(t, set.Add(label, ParsedResult{Sequence: []int{1}}))
	}

	assert.Equal(t, 3, set.Len())
	assert.Equal(t,
		[]string{"Sequential", "OpenMP (4 threads)", "MPI (4 processes)"},
		set.Labels())

	ref, _, ok := set.Reference()
	require.True(t, ok)
	assert.Equal(t, "Sequential", ref)

	var iterated []string
	for label := range set.All() {
		iterated = append(iterated, label)
	}
	assert.Equal(t, set.Labels(), iterated)
}

func TestResultSetRejectsDuplicateLabels(t *testing.T) {
	set := NewResultSet()

	require.NoError(t, set.Add("A", ParsedResult{}))
	assert.Error(t, set.Add("A", ParsedResult{Sequence: []int{2}}))
	assert.Equal(t, 1, set.Len())
}

func TestResultSetCopiesSequences(t *testing.T) {
	set := NewResultSet()
	seq := []int{3, 2, 1}

	require.NoError(t, set.Add("A", ParsedResult{Sequence: seq, ElapsedSeconds: seconds(1)}))
	seq[0] = 99

	got, ok := set.Get("A")
	require.True(t, ok)
	assert.Equal(t, []int{3, 2, 1}, got.Sequence)

	secs, ok := got.Elapsed()
	require.True(t, ok)
	assert.Equal(t, 1.0, secs)
}

func TestResultSetEmpty(t *testing.T) {
	set := NewResultSet()

	_, _, ok := set.Reference()
	assert.False(t, ok)

	_, ok = set.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, set.Labels())
}

func TestResultSetAllStopsEarly(t *testing.T) {
	set := NewResultSet()
	require.NoError(t, set.Add("A", ParsedResult{}))
	require.NoError(t, set.Add("B", ParsedResult{}))

	count := 0
	for range set.All() {
		count++

		break
	}

	assert.Equal(t, 1, count)
}

func TestResultSetReadsDoNotShareStorage(t *testing.T) {
	set := NewResultSet()
	require.NoError(t, set.Add("A", ParsedResult{Sequence: []int{1, 2, 3}, ElapsedSeconds: seconds(2)}))

	got, ok := set.Get("A")
	require.True(t, ok)
	got.Sequence[0] = 99
	*got.ElapsedSeconds = 7

	_, ref, ok := set.Reference()
	require.True(t, ok)
	ref.Sequence[1] = 99

	for _, r := range set.All() {
		r.Sequence[2] = 99
	}

	stored, ok := set.Get("A")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, stored.Sequence)
	assert.Equal(t, 2.0, *stored.ElapsedSeconds)
}
