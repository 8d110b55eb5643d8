package arena

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"banditArena/business/bandit"
	"banditArena/domain"
	"banditArena/pkg/logger"
)

// OracleFactory builds a fresh oracle for one play of one trial.
type OracleFactory func(model Model, seed int64) bandit.DecisionOracle

// Strategies are the two contenders. Both play the identical trial.
type Strategies struct {
	A OracleFactory
	B OracleFactory
}

type Options struct {
	Rounds     int
	Repeats    int
	MaxWorkers int
	MaxRetries int
	RetryPause time.Duration

	// FallbackBestMean is the reference value of sleeping trials that never
	// had an available option.
	FallbackBestMean float64

	// KeepCurves stores the per-round curves with every result.
	KeepCurves bool

	// Baseline, when set, names a policy from bandit.Baselines that is scored
	// on every trial next to both strategies.
	Baseline string
}

func (o Options) withDefaults() Options {
	if o.Repeats < 1 {
		o.Repeats = 1
	}
	if o.MaxWorkers < 1 {
		o.MaxWorkers = 1
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = 1
	}
	return o
}

// RunStats summarizes one Run call.
type RunStats struct {
	RunID   string
	Jobs    int
	Skipped int
	Repeats int
	Failed  int
}

type Runner struct {
	opts       Options
	strategies Strategies
	sink       ResultSink
	progress   ProgressStore
	runID      string
}

func NewRunner(opts Options, strategies Strategies, sink ResultSink, progress ProgressStore) *Runner {
	return &Runner{
		opts:       opts.withDefaults(),
		strategies: strategies,
		sink:       sink,
		progress:   progress,
		runID:      uuid.NewString(),
	}
}

func (r *Runner) RunID() string { return r.runID }

// Run evaluates every job not already marked completed, with at most
// MaxWorkers jobs in flight. A sink or progress failure aborts the run; a
// strategy failure is retried and then recorded as a failed result.
func (r *Runner) Run(ctx context.Context, jobs []Job) (RunStats, error) {
	stats := RunStats{RunID: r.runID}
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("context error: %w", err)
	}
	if r.opts.Baseline != "" && !slices.Contains(bandit.Baselines, r.opts.Baseline) {
		return stats, fmt.Errorf("%w: unknown baseline %q", bandit.ErrInvalidConfiguration, r.opts.Baseline)
	}

	done, err := r.progress.Completed(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load progress: %w", err)
	}

	var pending []Job
	for _, j := range jobs {
		if done[j.TaskUID()] {
			stats.Skipped++
			continue
		}
		pending = append(pending, j)
	}
	logger.Info("run starting", "run_id", r.runID, "jobs", len(pending), "skipped", stats.Skipped, "workers", r.opts.MaxWorkers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MaxWorkers)

	for _, job := range pending {
		job := job
		g.Go(func() error {
			ok, failed, err := r.runJob(gctx, job)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.TaskUID(), err)
			}

			mu.Lock()
			stats.Jobs++
			stats.Repeats += ok + failed
			stats.Failed += failed
			finished := stats.Jobs
			mu.Unlock()

			logger.Info("job completed", "task", job.TaskUID(), "ok", ok, "failed", failed,
				"progress", fmt.Sprintf("%d/%d", finished, len(pending)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Runner) runJob(ctx context.Context, job Job) (ok, failed int, err error) {
	if job.Config.Seed == nil {
		return 0, 0, fmt.Errorf("%w: job config has no seed", bandit.ErrInvalidConfiguration)
	}
	base := *job.Config.Seed

	for rep := 0; rep < r.opts.Repeats; rep++ {
		cfg := job.Config.WithSeed(base + int64(rep))
		trial, err := bandit.Assemble(cfg, r.opts.Rounds, r.opts.FallbackBestMean)
		if err != nil {
			return ok, failed, err
		}
		if trial.Degenerate {
			DegenerateTrialsTotal.WithLabelValues(string(job.Variant)).Inc()
			logger.Warn("no option was ever available, using fallback best mean",
				"task", job.TaskUID(), "repeat", rep, "best_mean", trial.BestMean)
		}

		res, err := r.evaluateWithRetry(ctx, job, rep, trial)
		if err != nil {
			return ok, failed, err
		}
		if res.Failed() {
			failed++
			TrialsTotal.WithLabelValues(string(job.Variant), "failed").Inc()
		} else {
			ok++
			TrialsTotal.WithLabelValues(string(job.Variant), "ok").Inc()
		}

		if err := r.sink.Save(ctx, res); err != nil {
			return ok, failed, fmt.Errorf("failed to save result: %w", err)
		}
	}

	status := domain.ProgressCompleted
	if ok == 0 {
		status = domain.ProgressFailed
	}
	if err := r.progress.Mark(ctx, domain.TaskProgress{TaskUID: job.TaskUID(), RunID: r.runID, Status: status}); err != nil {
		return ok, failed, fmt.Errorf("failed to mark progress: %w", err)
	}
	return ok, failed, nil
}

// evaluateWithRetry returns a failed result, not an error, once the retries
// are exhausted. Only cancellation is returned as an error.
func (r *Runner) evaluateWithRetry(ctx context.Context, job Job, rep int, trial *bandit.Trial) (domain.TrialResult, error) {
	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		start := time.Now()
		res, err := r.evaluate(ctx, job, rep, trial)
		if err == nil {
			TrialDuration.WithLabelValues(string(job.Variant)).Observe(time.Since(start).Seconds())
			return res, nil
		}
		if ctx.Err() != nil {
			return domain.TrialResult{}, fmt.Errorf("context error: %w", ctx.Err())
		}

		lastErr = err
		logger.Warn("repeat failed", "task", job.TaskUID(), "repeat", rep, "attempt", attempt, "error", err)
		if attempt < r.opts.MaxRetries && r.opts.RetryPause > 0 {
			select {
			case <-ctx.Done():
				return domain.TrialResult{}, fmt.Errorf("context error: %w", ctx.Err())
			case <-time.After(r.opts.RetryPause):
			}
		}
	}

	res := r.newResult(job, rep, trial)
	res.Error = truncate(lastErr.Error(), 200)
	return res, nil
}

type strategyError struct {
	strategy string
	err      error
}

func (e *strategyError) Error() string { return fmt.Sprintf("strategy %s: %v", e.strategy, e.err) }
func (e *strategyError) Unwrap() error { return e.err }

func (r *Runner) evaluate(ctx context.Context, job Job, rep int, trial *bandit.Trial) (domain.TrialResult, error) {
	seed := *trial.Config.Seed
	ctx = bandit.WithTraceID(ctx, fmt.Sprintf("%s#%d", job.TaskUID(), rep))

	curveA, err := playAndScore(ctx, r.strategies.A(job.Model, seed), trial)
	if err != nil {
		OracleFailuresTotal.WithLabelValues("A").Inc()
		return domain.TrialResult{}, &strategyError{strategy: "A", err: err}
	}
	curveB, err := playAndScore(ctx, r.strategies.B(job.Model, seed), trial)
	if err != nil {
		OracleFailuresTotal.WithLabelValues("B").Inc()
		return domain.TrialResult{}, &strategyError{strategy: "B", err: err}
	}

	res := r.newResult(job, rep, trial)
	res.AReward, res.ARegret = curveA.FinalReward(), curveA.FinalRegret()
	res.BReward, res.BRegret = curveB.FinalReward(), curveB.FinalRegret()
	res.Improvement = Improvement(res.AReward, res.BReward)

	if r.opts.Baseline != "" {
		oracle, err := bandit.NewBaseline(r.opts.Baseline, trial, seed)
		if err != nil {
			return domain.TrialResult{}, err
		}
		curve, err := playAndScore(ctx, oracle, trial)
		if err != nil {
			return domain.TrialResult{}, fmt.Errorf("baseline %s: %w", r.opts.Baseline, err)
		}
		res.Baseline = r.opts.Baseline
		res.BaselineReward, res.BaselineRegret = curve.FinalReward(), curve.FinalRegret()
	}

	if r.opts.KeepCurves {
		if res.CurveA, err = json.Marshal(curveA); err != nil {
			return domain.TrialResult{}, fmt.Errorf("failed to marshal curve: %w", err)
		}
		if res.CurveB, err = json.Marshal(curveB); err != nil {
			return domain.TrialResult{}, fmt.Errorf("failed to marshal curve: %w", err)
		}
	}
	return res, nil
}

func playAndScore(ctx context.Context, oracle bandit.DecisionOracle, trial *bandit.Trial) (domain.CurvePair, error) {
	trace, err := bandit.Play(ctx, oracle, trial)
	if err != nil {
		return domain.CurvePair{}, err
	}
	return bandit.Score(trace, trial)
}

func (r *Runner) newResult(job Job, rep int, trial *bandit.Trial) domain.TrialResult {
	params := trial.Config.Params()
	params.GroupID = job.Group
	raw, _ := json.Marshal(params)

	return domain.TrialResult{
		ID:     uuid.NewString(),
		RunID:  r.runID,
		Model:  job.Model.Name,
		Task:   string(job.Variant),
		Group:  job.Group,
		Repeat: rep,
		Params: raw,
	}
}

// Improvement is the relative gain of B over A in percent. A non-positive A
// is treated as 1e-9.
func Improvement(a, b float64) float64 {
	return (b - a) / math.Max(a, 1e-9) * 100
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
