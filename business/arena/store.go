package arena

import (
	"context"

	"banditArena/domain"
)

// ResultSink persists one evaluated repeat. Implementations must be safe for
// concurrent use.
type ResultSink interface {
	Save(ctx context.Context, result domain.TrialResult) error
}

// ResultSource reads back everything a sink stored, for reports.
type ResultSource interface {
	Results(ctx context.Context) ([]domain.TrialResult, error)
}

// ProgressStore remembers finished jobs so an interrupted run can resume.
type ProgressStore interface {
	Completed(ctx context.Context) (map[string]bool, error)
	Mark(ctx context.Context, progress domain.TaskProgress) error
}

// ProgressResetter is implemented by progress stores that can forget every
// task, so the next run starts from scratch.
type ProgressResetter interface {
	Reset(ctx context.Context) error
}

// RunResultSource is implemented by sinks that can select one run's rows
// without reading everything.
type RunResultSource interface {
	ResultsByRun(ctx context.Context, runID string) ([]domain.TrialResult, error)
}

// ResultsForRun returns the rows of runID, or every row when runID is empty.
func ResultsForRun(ctx context.Context, src ResultSource, runID string) ([]domain.TrialResult, error) {
	if runID == "" {
		return src.Results(ctx)
	}
	if byRun, ok := src.(RunResultSource); ok {
		return byRun.ResultsByRun(ctx, runID)
	}

	all, err := src.Results(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}
