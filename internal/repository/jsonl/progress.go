package jsonl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"banditArena/business/arena"
	"banditArena/domain"
)

// progressFile is the on-disk form of the progress store.
type progressFile struct {
	Completed []string  `json:"completed"`
	Failed    []string  `json:"failed"`
	StartTime time.Time `json:"start_time"`
}

// ProgressRepository keeps the completed and failed task uids in a single JSON
// file, rewritten atomically after every change.
type ProgressRepository struct {
	path string

	mu        sync.Mutex
	loaded    bool
	completed map[string]bool
	failed    map[string]bool
	startTime time.Time
}

var (
	_ arena.ProgressStore    = (*ProgressRepository)(nil)
	_ arena.ProgressResetter = (*ProgressRepository)(nil)
)

func NewProgressRepository(path string) *ProgressRepository {
	return &ProgressRepository{path: path}
}

func (r *ProgressRepository) load() error {
	if r.loaded {
		return nil
	}
	r.completed = map[string]bool{}
	r.failed = map[string]bool{}

	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.startTime = time.Now()
		r.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read progress file: %w", err)
	}

	var pf progressFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("failed to parse progress file: %w", err)
	}
	for _, uid := range pf.Completed {
		r.completed[uid] = true
	}
	for _, uid := range pf.Failed {
		r.failed[uid] = true
	}
	r.startTime = pf.StartTime
	r.loaded = true
	return nil
}

func (r *ProgressRepository) Completed(ctx context.Context) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(r.completed))
	for uid := range r.completed {
		out[uid] = true
	}
	return out, nil
}

func (r *ProgressRepository) Mark(ctx context.Context, progress domain.TaskProgress) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return err
	}

	switch progress.Status {
	case domain.ProgressCompleted:
		r.completed[progress.TaskUID] = true
		delete(r.failed, progress.TaskUID)
	case domain.ProgressFailed:
		r.failed[progress.TaskUID] = true
		delete(r.completed, progress.TaskUID)
	default:
		return fmt.Errorf("unknown progress status %q", progress.Status)
	}
	return r.flush()
}

// Reset removes the progress file.
func (r *ProgressRepository) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove progress file: %w", err)
	}
	r.loaded = false
	return nil
}

func (r *ProgressRepository) flush() error {
	pf := progressFile{
		Completed: sortedKeys(r.completed),
		Failed:    sortedKeys(r.failed),
		StartTime: r.startTime,
	}
	raw, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create progress dir: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace progress file: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
