//go:build !integration

package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banditArena/business/arena"
	"banditArena/business/bandit"
	"banditArena/domain"
)

func TestResultRepository_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	repo := NewResultRepository(dir)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.TrialResult{ID: "1", Model: "org/m1", Task: "basic", AReward: 10, BReward: 12, Params: []byte(`{"n_arms":3}`)}))
	require.NoError(t, repo.Save(ctx, domain.TrialResult{ID: "2", Model: "org/m1", Task: "basic", Repeat: 1}))
	require.NoError(t, repo.Save(ctx, domain.TrialResult{ID: "3", Model: "org/m1", Task: "sleeping"}))
	require.NoError(t, repo.Save(ctx, domain.TrialResult{ID: "4", Model: "org/m1", Task: "basic", Error: "boom"}))

	assert.FileExists(t, filepath.Join(dir, "org_m1", "basic.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "org_m1", "sleeping.jsonl"))
	assert.FileExists(t, filepath.Join(dir, failedFile))

	rows, err := repo.Results(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byID := map[string]domain.TrialResult{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	assert.Equal(t, 10.0, byID["1"].AReward)
	assert.JSONEq(t, `{"n_arms":3}`, string(byID["1"].Params))
	assert.True(t, byID["4"].Failed())
}

func TestResultRepository_SkipsTruncatedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m1", "basic.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"ok\",\"model\":\"m1\"}\n\n{\"id\":\"cut"), 0o644))

	rows, err := NewResultRepository(dir).Results(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ok", rows[0].ID)
}

func TestResultRepository_MissingDir(t *testing.T) {
	rows, err := NewResultRepository(filepath.Join(t.TempDir(), "none")).Results(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProgressRepository_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	ctx := context.Background()

	repo := NewProgressRepository(path)
	require.NoError(t, repo.Mark(ctx, domain.TaskProgress{TaskUID: "m|basic|0", Status: domain.ProgressCompleted}))
	require.NoError(t, repo.Mark(ctx, domain.TaskProgress{TaskUID: "m|basic|1", Status: domain.ProgressFailed}))
	require.Error(t, repo.Mark(ctx, domain.TaskProgress{TaskUID: "m|basic|2", Status: "paused"}))

	reopened := NewProgressRepository(path)
	done, err := reopened.Completed(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"m|basic|0": true}, done)

	require.NoError(t, reopened.Mark(ctx, domain.TaskProgress{TaskUID: "m|basic|1", Status: domain.ProgressCompleted}))
	done, err = NewProgressRepository(path).Completed(ctx)
	require.NoError(t, err)
	assert.Len(t, done, 2)
}

func TestProgressRepository_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	ctx := context.Background()

	repo := NewProgressRepository(path)
	require.NoError(t, repo.Reset(ctx), "resetting before any run is fine")
	require.NoError(t, repo.Mark(ctx, domain.TaskProgress{TaskUID: "m|basic|0", Status: domain.ProgressCompleted}))
	require.NoError(t, repo.Reset(ctx))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	done, err := repo.Completed(ctx)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestResultsForRun_FiltersWithoutRunQuery(t *testing.T) {
	repo := NewResultRepository(t.TempDir())
	ctx := context.Background()
	for i, run := range []string{"r1", "r2", "r1"} {
		require.NoError(t, repo.Save(ctx, domain.TrialResult{ID: run + string(rune('a'+i)), RunID: run, Model: "m1", Task: "basic", Repeat: i}))
	}

	rows, err := arena.ResultsForRun(ctx, repo, "r1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "r1", r.RunID)
	}

	all, err := arena.ResultsForRun(ctx, repo, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestProgressRepository_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := NewProgressRepository(path).Completed(context.Background())
	require.Error(t, err)
}

func TestTrials_RoundTrip(t *testing.T) {
	trial, err := bandit.Assemble(bandit.Config{Arms: 3, MeanLow: 2, MeanHigh: 9, Sigma: 1, Extra: bandit.Sleeping{Prob: 0.3}}.WithSeed(5), 12, 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "trials", "sleeping.json")
	require.NoError(t, WriteJSON(path, []domain.TrialRecord{trial.Record()}))

	recs, err := ReadTrials(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	back, err := bandit.TrialFromRecord(recs[0])
	require.NoError(t, err)
	assert.Equal(t, trial.Rewards, back.Rewards)
	assert.Equal(t, trial.Availability, back.Availability)
	assert.Equal(t, trial.BestMean, back.BestMean)
}
