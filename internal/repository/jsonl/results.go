package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"banditArena/business/arena"
	"banditArena/domain"
)

const failedFile = "failed.jsonl"

// ResultRepository appends results to <dir>/<model>/<task>.jsonl, one JSON
// object per line. Failed repeats go to <dir>/failed.jsonl.
type ResultRepository struct {
	dir string
	mu  sync.Mutex
}

var (
	_ arena.ResultSink   = (*ResultRepository)(nil)
	_ arena.ResultSource = (*ResultRepository)(nil)
)

func NewResultRepository(dir string) *ResultRepository {
	return &ResultRepository{dir: dir}
}

// ModelDir turns a model name into a directory name.
func ModelDir(model string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(model)
}

func (r *ResultRepository) pathFor(res domain.TrialResult) string {
	if res.Failed() {
		return filepath.Join(r.dir, failedFile)
	}
	return filepath.Join(r.dir, ModelDir(res.Model), res.Task+".jsonl")
}

func (r *ResultRepository) Save(ctx context.Context, result domain.TrialResult) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal trial result: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.pathFor(result)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create results dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}

// Results reads every JSONL file under the directory. Blank and malformed
// lines are skipped, so a line cut short by a crash does not break reports.
func (r *ResultRepository) Results(ctx context.Context) ([]domain.TrialResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var paths []string
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".jsonl") {
			paths = append(paths, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	sort.Strings(paths)

	var out []domain.TrialResult
	for _, p := range paths {
		rows, err := readFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func readFile(path string) ([]domain.TrialResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var out []domain.TrialResult
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var res domain.TrialResult
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			continue
		}
		out = append(out, res)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}
