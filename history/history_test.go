package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/sortbench/report"
)

func secs(v float64) *float64 {
	return &v
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	older := NewRun(100, base)
	newer := NewRun(200, base.Add(time.Hour))

	for _, run := range []Run{older, newer} {
		require.NoError(t, store.RecordRun(ctx, run))
	}

	require.NoError(t, store.RecordFamily(ctx, older.ID, "merge", []report.TimingRow{
		{Label: "Sequential", Seconds: secs(1.0)},
		{Label: "MPI (4 processes)", Seconds: secs(0.4)},
	}, report.Outcome{AllMatch: true, Reference: "Sequential"}))

	require.NoError(t, store.RecordFamily(ctx, newer.ID, "merge", []report.TimingRow{
		{Label: "Sequential", Seconds: secs(2.0)},
		{Label: "MPI (4 processes)"},
	}, report.Outcome{Reference: "Sequential", FirstMismatch: "MPI (4 processes)"}))

	require.NoError(t, store.RecordFamily(ctx, newer.ID, "quick", []report.TimingRow{
		{Label: "Sequential", Seconds: secs(3.0)},
	}, report.Outcome{AllMatch: true, Reference: "Sequential"}))

	entries, err := store.Recent(ctx, "merge", 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, newer.ID, entries[0].RunID)
	assert.Equal(t, 200, entries[0].Elements)
	assert.Equal(t, "Sequential", entries[0].Label)
	assert.Equal(t, 2.0, *entries[0].Seconds)
	assert.False(t, entries[0].AllMatch)
	assert.True(t, entries[0].StartedAt.Equal(newer.StartedAt))

	assert.Equal(t, "MPI (4 processes)", entries[1].Label)
	assert.Nil(t, entries[1].Seconds)

	assert.Equal(t, older.ID, entries[2].RunID)
	assert.True(t, entries[2].AllMatch)

	entries, err = store.Recent(ctx, "merge", 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, newer.ID, entries[0].RunID)

	entries, err = store.Recent(ctx, "quick", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "quick", entries[0].Family)
}

func TestRecordFamilyRequiresRun(t *testing.T) {
	store := openTestStore(t)

	err := store.RecordFamily(context.Background(), NewRun(1, time.Now()).ID, "merge",
		[]report.TimingRow{{Label: "Sequential", Seconds: secs(1)}},
		report.Outcome{AllMatch: true})
	assert.Error(t, err)
}

func TestRecordFamilyRejectsDuplicateLabels(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	run := NewRun(1, time.Now())
	require.NoError(t, store.RecordRun(ctx, run))

	err := store.RecordFamily(ctx, run.ID, "merge", []report.TimingRow{
		{Label: "Sequential"},
		{Label: "Sequential"},
	}, report.Outcome{})
	require.Error(t, err)

	entries, err := store.Recent(ctx, "merge", 10)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed family must roll back")
}

func TestReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)

	run := NewRun(5, time.Now())
	require.NoError(t, store.RecordRun(ctx, run))
	require.NoError(t, store.RecordFamily(ctx, run.ID, "merge",
		[]report.TimingRow{{Label: "Sequential", Seconds: secs(0.1)}},
		report.Outcome{AllMatch: true}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(ctx, "merge", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, run.ID, entries[0].RunID)
}
