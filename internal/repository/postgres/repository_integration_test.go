//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"banditArena/business/arena"
	"banditArena/domain"
	"banditArena/pkg/config"
	"banditArena/pkg/database"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Skipf("no database configured: %v", err)
	}
	db, err := database.InitPostgres(cfg)
	if err != nil {
		t.Skipf("database unreachable: %v", err)
	}
	require.NoError(t, Migrate(db))
	return db
}

func TestTrialResultRepository_SaveAndRead(t *testing.T) {
	db := testDB(t)
	repo := NewTrialResultRepository(db)
	ctx := context.Background()

	runID := uuid.NewString()
	for rep := 0; rep < 2; rep++ {
		require.NoError(t, repo.Save(ctx, domain.TrialResult{
			ID: uuid.NewString(), RunID: runID, Model: "m1", Task: "basic",
			Repeat: rep, Params: []byte(`{"n_arms":3}`), AReward: 10, BReward: 12,
		}))
	}

	rows, err := arena.ResultsForRun(ctx, repo, runID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].Repeat)
	assert.JSONEq(t, `{"n_arms":3}`, string(rows[1].Params))
}

func TestTaskProgressRepository_Upsert(t *testing.T) {
	db := testDB(t)
	repo := NewTaskProgressRepository(db)
	ctx := context.Background()

	uid := "m1|basic|" + uuid.NewString()
	require.NoError(t, repo.Mark(ctx, domain.TaskProgress{TaskUID: uid, RunID: "r1", Status: domain.ProgressFailed}))

	done, err := repo.Completed(ctx)
	require.NoError(t, err)
	assert.False(t, done[uid])

	require.NoError(t, repo.Mark(ctx, domain.TaskProgress{TaskUID: uid, RunID: "r2", Status: domain.ProgressCompleted}))
	done, err = repo.Completed(ctx)
	require.NoError(t, err)
	assert.True(t, done[uid])
}

func TestTaskProgressRepository_Reset(t *testing.T) {
	db := testDB(t)
	repo := NewTaskProgressRepository(db)
	ctx := context.Background()

	uid := "m1|basic|" + uuid.NewString()
	require.NoError(t, repo.Mark(ctx, domain.TaskProgress{TaskUID: uid, RunID: "r1", Status: domain.ProgressCompleted}))
	require.NoError(t, repo.Reset(ctx))

	done, err := repo.Completed(ctx)
	require.NoError(t, err)
	assert.Empty(t, done)
}
