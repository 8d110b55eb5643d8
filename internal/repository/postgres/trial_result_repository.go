package postgres

import (
	"context"
	"fmt"

	"banditArena/business/arena"
	"banditArena/domain"

	"gorm.io/gorm"
)

type TrialResultRepository struct {
	DB *gorm.DB
}

var (
	_ arena.ResultSink      = (*TrialResultRepository)(nil)
	_ arena.ResultSource    = (*TrialResultRepository)(nil)
	_ arena.RunResultSource = (*TrialResultRepository)(nil)
)

func NewTrialResultRepository(db *gorm.DB) *TrialResultRepository {
	return &TrialResultRepository{DB: db}
}

func (r *TrialResultRepository) Save(ctx context.Context, result domain.TrialResult) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&result).Error; err != nil {
		return fmt.Errorf("failed to save trial result: %w", err)
	}

	return nil
}

func (r *TrialResultRepository) Results(ctx context.Context) ([]domain.TrialResult, error) {
	return r.find(ctx, r.DB.WithContext(ctx))
}

// ResultsByRun returns the rows written by a single run.
func (r *TrialResultRepository) ResultsByRun(ctx context.Context, runID string) ([]domain.TrialResult, error) {
	return r.find(ctx, r.DB.WithContext(ctx).Where("run_id = ?", runID))
}

func (r *TrialResultRepository) find(ctx context.Context, q *gorm.DB) ([]domain.TrialResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.TrialResult
	err := q.Order("model, task, group_idx, repeat_idx, created_at").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query trial_results: %w", err)
	}

	return rows, nil
}
