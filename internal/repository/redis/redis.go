package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"banditArena/business/arena"
	"banditArena/domain"

	"github.com/redis/go-redis/v9"
)

// ProgressRepository keeps completed task uids in a set and the latest status
// of every task in a hash, both under the configured key prefix.
type ProgressRepository struct {
	client *redis.Client
	key    string
}

var (
	_ arena.ProgressStore    = (*ProgressRepository)(nil)
	_ arena.ProgressResetter = (*ProgressRepository)(nil)
)

func NewProgressRepository(client *redis.Client, key string) *ProgressRepository {
	return &ProgressRepository{
		client: client,
		key:    key,
	}
}

func (r *ProgressRepository) statusKey() string {
	return r.key + ":status"
}

func (r *ProgressRepository) Completed(ctx context.Context) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	uids, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read completed set from Redis: %w", err)
	}

	done := make(map[string]bool, len(uids))
	for _, uid := range uids {
		done[uid] = true
	}
	return done, nil
}

func (r *ProgressRepository) Mark(ctx context.Context, progress domain.TaskProgress) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = time.Now()
	}
	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	// status and set membership change together
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.statusKey(), progress.TaskUID, raw)
	if progress.Status == domain.ProgressCompleted {
		pipe.SAdd(ctx, r.key, progress.TaskUID)
	} else {
		pipe.SRem(ctx, r.key, progress.TaskUID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store progress in Redis: %w", err)
	}

	return nil
}

// Reset removes every progress key.
func (r *ProgressRepository) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.client.Del(ctx, r.key, r.statusKey()).Err(); err != nil {
		return fmt.Errorf("failed to reset progress in Redis: %w", err)
	}
	return nil
}
