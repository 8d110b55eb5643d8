package postgres

import (
	"context"
	"fmt"

	"banditArena/business/arena"
	"banditArena/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskProgressRepository struct {
	DB *gorm.DB
}

var (
	_ arena.ProgressStore    = (*TaskProgressRepository)(nil)
	_ arena.ProgressResetter = (*TaskProgressRepository)(nil)
)

func NewTaskProgressRepository(db *gorm.DB) *TaskProgressRepository {
	return &TaskProgressRepository{DB: db}
}

func (r *TaskProgressRepository) Completed(ctx context.Context) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var uids []string
	err := r.DB.WithContext(ctx).
		Model(&domain.TaskProgress{}).
		Where("status = ?", domain.ProgressCompleted).
		Pluck("task_uid", &uids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query task_progress: %w", err)
	}

	done := make(map[string]bool, len(uids))
	for _, uid := range uids {
		done[uid] = true
	}
	return done, nil
}

func (r *TaskProgressRepository) Mark(ctx context.Context, progress domain.TaskProgress) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"run_id", "status", "updated_at"}),
		},
	).Create(&progress).Error; err != nil {
		return fmt.Errorf("failed to upsert task_progress: %w", err)
	}

	return nil
}

// Reset forgets every task, so the next run starts from scratch.
func (r *TaskProgressRepository) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Where("1 = 1").Delete(&domain.TaskProgress{}).Error; err != nil {
		return fmt.Errorf("failed to reset task_progress: %w", err)
	}

	return nil
}
