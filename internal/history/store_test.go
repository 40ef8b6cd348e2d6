package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openwdl/conformance/internal/compare"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	results := []compare.Result{
		{Path: "tests/a.wdl", Verdict: compare.Pass},
		{Path: "tests/b.wdl", Verdict: compare.Fail, Reason: "failed unexpectedly"},
		{Path: "tests/c.wdl", Verdict: compare.Ignore},
	}
	started := time.Now().Add(-time.Minute)
	finished := time.Now()

	runID, err := store.RecordRun(ctx, "miniwdl", started, finished, results)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "miniwdl", run.Engine)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, 1, run.Summary.Passed)
	assert.Equal(t, 1, run.Summary.Failed)
	assert.Equal(t, 1, run.Summary.Ignored)
	assert.WithinDuration(t, started, run.StartedAt, time.Second)
	assert.WithinDuration(t, finished, run.FinishedAt, time.Second)
}

func TestStore_CaseResultsOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	results := []compare.Result{
		{Path: "tests/z.wdl", Verdict: compare.Pass},
		{Path: "tests/a.wdl", Verdict: compare.Fail, Reason: "1 output mismatch(es)"},
		{Path: "tests/m.wdl", Verdict: compare.Warn, Reason: "check failed for deprecated construct"},
	}
	runID, err := store.RecordRun(ctx, "sprocket", time.Now(), time.Now(), results)
	require.NoError(t, err)

	stored, err := store.CaseResults(ctx, runID)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	// Evaluation order is preserved, not path order.
	assert.Equal(t, "tests/z.wdl", stored[0].Path)
	assert.Equal(t, "tests/a.wdl", stored[1].Path)
	assert.Equal(t, compare.Fail, stored[1].Verdict)
	assert.Equal(t, "1 output mismatch(es)", stored[1].Reason)
	assert.Equal(t, "tests/m.wdl", stored[2].Path)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	first, err := store.RecordRun(ctx, "miniwdl", base, base.Add(time.Minute), nil)
	require.NoError(t, err)
	second, err := store.RecordRun(ctx, "miniwdl", base.Add(30*time.Minute), base.Add(31*time.Minute), nil)
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)

	limited, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second, limited[0].ID)
}

func TestStore_EmptyRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runID, err := store.RecordRun(ctx, "toil", time.Now(), time.Now(), nil)
	require.NoError(t, err)

	stored, err := store.CaseResults(ctx, runID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestStore_OpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.RecordRun(context.Background(), "miniwdl", time.Now(), time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
