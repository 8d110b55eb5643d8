//go:build !integration

package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banditArena/business/bandit"
	"banditArena/domain"
)

type memorySink struct {
	mu      sync.Mutex
	results []domain.TrialResult
	err     error
}

func (m *memorySink) Save(_ context.Context, r domain.TrialResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.results = append(m.results, r)
	return nil
}

func (m *memorySink) all() []domain.TrialResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TrialResult(nil), m.results...)
}

type memoryProgress struct {
	mu   sync.Mutex
	done map[string]string
}

func newMemoryProgress() *memoryProgress {
	return &memoryProgress{done: map[string]string{}}
}

func (m *memoryProgress) Completed(context.Context) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for uid, status := range m.done {
		if status == domain.ProgressCompleted {
			out[uid] = true
		}
	}
	return out, nil
}

func (m *memoryProgress) Mark(_ context.Context, p domain.TaskProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done[p.TaskUID] = p.Status
	return nil
}

func baseline(o bandit.DecisionOracle) OracleFactory {
	return func(Model, int64) bandit.DecisionOracle { return o }
}

func fixedStrategies() Strategies {
	return Strategies{
		A: func(_ Model, seed int64) bandit.DecisionOracle { return bandit.NewRandom(seed) },
		B: func(Model, int64) bandit.DecisionOracle { return bandit.UCB1{} },
	}
}

func testJobs(t *testing.T, models []Model, variants []bandit.Variant, groups int) []Job {
	t.Helper()
	sampler, err := bandit.NewParamSampler(bandit.DefaultSamplerConfig())
	require.NoError(t, err)
	jobs, err := BuildJobs(models, variants, sampler, groups, 42)
	require.NoError(t, err)
	return jobs
}

func TestTaskUID_RoundTrip(t *testing.T) {
	uid := TaskUID("org|model", "sleeping", 7)
	assert.Equal(t, "org|model|sleeping|7", uid)

	model, task, group, err := ParseTaskUID(uid)
	require.NoError(t, err)
	assert.Equal(t, "org|model", model)
	assert.Equal(t, "sleeping", task)
	assert.Equal(t, 7, group)

	_, _, _, err = ParseTaskUID("nope")
	assert.Error(t, err)
}

func TestBuildJobs_ModelsShareConfigs(t *testing.T) {
	models := []Model{{Name: "m1"}, {Name: "m2"}}
	jobs := testJobs(t, models, []bandit.Variant{bandit.VariantBasic, bandit.VariantSleeping}, 3)
	require.Len(t, jobs, 2*2*3)

	byTask := map[string][]Job{}
	for _, j := range jobs {
		key := string(j.Variant) + "/" + string(rune('0'+j.Group))
		byTask[key] = append(byTask[key], j)
	}
	for key, js := range byTask {
		require.Len(t, js, 2, key)
		assert.Equal(t, js[0].Config, js[1].Config, key)
	}
}

func TestRunner_RunsEveryRepeat(t *testing.T) {
	sink, progress := &memorySink{}, newMemoryProgress()
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantBasic, bandit.VariantDrift}, 2)

	r := NewRunner(Options{Rounds: 40, Repeats: 3, MaxWorkers: 3, KeepCurves: true}, fixedStrategies(), sink, progress)
	stats, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Jobs)
	assert.Equal(t, 12, stats.Repeats)
	assert.Zero(t, stats.Failed)

	results := sink.all()
	require.Len(t, results, 12)
	for _, res := range results {
		assert.Equal(t, r.RunID(), res.RunID)
		assert.NotEmpty(t, res.ID)
		assert.Empty(t, res.Error)
		assert.InDelta(t, Improvement(res.AReward, res.BReward), res.Improvement, 1e-9)

		var curve domain.CurvePair
		require.NoError(t, json.Unmarshal(res.CurveB, &curve))
		assert.Len(t, curve.CumReward, 40)
		assert.InDelta(t, res.BReward, curve.FinalReward(), 1e-9)

		var params domain.BanditParams
		require.NoError(t, json.Unmarshal(res.Params, &params))
		assert.Equal(t, res.Group, params.GroupID)
	}

	done, _ := progress.Completed(context.Background())
	assert.Len(t, done, 4)
}

func TestRunner_RepeatsUseConsecutiveSeeds(t *testing.T) {
	sink := &memorySink{}
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantBasic}, 1)

	var mu sync.Mutex
	var seeds []int64
	strategies := Strategies{
		A: func(_ Model, seed int64) bandit.DecisionOracle {
			mu.Lock()
			seeds = append(seeds, seed)
			mu.Unlock()
			return bandit.Greedy{}
		},
		B: baseline(bandit.UCB1{}),
	}

	_, err := NewRunner(Options{Rounds: 5, Repeats: 3}, strategies, sink, newMemoryProgress()).Run(context.Background(), jobs)
	require.NoError(t, err)

	base := *jobs[0].Config.Seed
	sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })
	assert.Equal(t, []int64{base, base + 1, base + 2}, seeds)
}

func TestRunner_BothStrategiesSeeTheSameTrial(t *testing.T) {
	sink := &memorySink{}
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantSleeping}, 2)

	r := NewRunner(Options{Rounds: 30, Repeats: 2}, Strategies{A: baseline(bandit.UCB1{}), B: baseline(bandit.UCB1{})}, sink, newMemoryProgress())
	_, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)

	for _, res := range sink.all() {
		assert.Equal(t, res.AReward, res.BReward)
		assert.Equal(t, res.ARegret, res.BRegret)
		assert.Zero(t, res.Improvement)
	}
}

func TestRunner_SkipsCompletedJobs(t *testing.T) {
	sink, progress := &memorySink{}, newMemoryProgress()
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantBasic}, 3)
	require.NoError(t, progress.Mark(context.Background(), domain.TaskProgress{TaskUID: jobs[1].TaskUID(), Status: domain.ProgressCompleted}))

	stats, err := NewRunner(Options{Rounds: 10, Repeats: 2}, fixedStrategies(), sink, progress).Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, stats.Jobs)
	for _, res := range sink.all() {
		assert.NotEqual(t, 1, res.Group)
	}
}

type flakyOracle struct {
	fail bool
}

func (f flakyOracle) Name() string { return "flaky" }

func (f flakyOracle) Choose(context.Context, bandit.Observation) (int, error) {
	if f.fail {
		return 0, errors.New("endpoint unavailable")
	}
	return 0, nil
}

func TestRunner_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	strategies := Strategies{
		A: baseline(bandit.Greedy{}),
		B: func(Model, int64) bandit.DecisionOracle {
			return flakyOracle{fail: calls.Add(1) < 3}
		},
	}
	sink := &memorySink{}
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantBasic}, 1)

	stats, err := NewRunner(Options{Rounds: 5, Repeats: 1, MaxRetries: 3}, strategies, sink, newMemoryProgress()).Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Zero(t, stats.Failed)
	assert.EqualValues(t, 3, calls.Load())
	assert.Empty(t, sink.all()[0].Error)
}

func TestRunner_RecordsExhaustedRetries(t *testing.T) {
	strategies := Strategies{A: baseline(flakyOracle{fail: true}), B: baseline(bandit.UCB1{})}
	sink, progress := &memorySink{}, newMemoryProgress()
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantBasic}, 1)

	stats, err := NewRunner(Options{Rounds: 5, Repeats: 2, MaxRetries: 2, RetryPause: time.Millisecond}, strategies, sink, progress).Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Failed)

	for _, res := range sink.all() {
		assert.True(t, res.Failed())
		assert.Contains(t, res.Error, "endpoint unavailable")
	}
	assert.Equal(t, domain.ProgressFailed, progress.done[jobs[0].TaskUID()])

	done, _ := progress.Completed(context.Background())
	assert.Empty(t, done, "failed jobs run again on resume")
}

func TestRunner_SinkErrorAbortsRun(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantBasic}, 2)

	_, err := NewRunner(Options{Rounds: 5}, fixedStrategies(), sink, newMemoryProgress()).Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantBasic}, 1)

	_, err := NewRunner(Options{Rounds: 5}, fixedStrategies(), &memorySink{}, newMemoryProgress()).Run(ctx, jobs)
	require.ErrorIs(t, err, context.Canceled)
}

func TestImprovement(t *testing.T) {
	assert.InDelta(t, 50.0, Improvement(100, 150), 1e-12)
	assert.InDelta(t, -25.0, Improvement(100, 75), 1e-12)
	assert.InDelta(t, 1e11, Improvement(0, 100), 1)
}

func TestAggregate(t *testing.T) {
	results := []domain.TrialResult{
		{Model: "m1", Task: "basic", AReward: 100, BReward: 150},
		{Model: "m1", Task: "basic", AReward: 200, BReward: 250},
		{Model: "m1", Task: "basic", Error: "boom"},
		{Model: "m2", Task: "basic", AReward: 10, BReward: 10},
		{Model: "m1", Task: "adversarial", AReward: 5, BReward: 10},
		{Model: "m1", Task: SmokeTask, AReward: 1, BReward: 1},
	}

	rows := Aggregate(results)
	require.Len(t, rows, 3)
	assert.Equal(t, Row{Task: "adversarial", Model: "m1", N: 1, AMean: 5, BMean: 10, Improvement: 100}, rows[0])

	basic := rows[1]
	assert.Equal(t, "m1", basic.Model)
	assert.Equal(t, 2, basic.N)
	assert.InDelta(t, 150, basic.AMean, 1e-12)
	assert.InDelta(t, 50, basic.AStd, 1e-12)
	assert.InDelta(t, 200, basic.BMean, 1e-12)
	assert.InDelta(t, 100.0/3, basic.Improvement, 1e-9)
	assert.Equal(t, 1, CountFailed(results))
}

func TestWriteMarkdown(t *testing.T) {
	rows := []Row{
		{Task: "basic", Model: "m1", N: 2, AMean: 150, AStd: 50, BMean: 200, BStd: 50, Improvement: 33.33},
		{Task: "sleeping", Model: "m1", N: 1, AMean: 10, BMean: 12, Improvement: 20},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, rows, ReportMeta{RunID: "r1", Models: []string{"m1"}, Failed: 1}))

	out := buf.String()
	assert.Contains(t, out, "### basic")
	assert.Contains(t, out, "### sleeping")
	assert.Contains(t, out, "| m1 | 150.0±50.0 | 200.0±50.0 | 33.3% | 2 |")
	assert.Contains(t, out, "- Failed repeats: 1")
}

func TestRunner_ScoresBaselineOnTheSameTrial(t *testing.T) {
	sink := &memorySink{}
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantSleeping, bandit.VariantContextual}, 2)

	opts := Options{Rounds: 30, Repeats: 2, Baseline: "ucb1"}
	_, err := NewRunner(opts, fixedStrategies(), sink, newMemoryProgress()).Run(context.Background(), jobs)
	require.NoError(t, err)

	results := sink.all()
	require.Len(t, results, 8)
	for _, res := range results {
		assert.Equal(t, "ucb1", res.Baseline)
		assert.Equal(t, res.BReward, res.BaselineReward, "strategy B is ucb1 too")
		assert.Equal(t, res.BRegret, res.BaselineRegret)
	}

	for _, row := range Aggregate(results) {
		assert.Equal(t, "ucb1", row.Baseline)
		assert.InDelta(t, row.BMean, row.BaselineMean, 1e-9)
	}
}

func TestRunner_UnknownBaseline(t *testing.T) {
	jobs := testJobs(t, []Model{{Name: "m1"}}, []bandit.Variant{bandit.VariantBasic}, 1)
	sink := &memorySink{}

	_, err := NewRunner(Options{Rounds: 5, Baseline: "softmax"}, fixedStrategies(), sink, newMemoryProgress()).Run(context.Background(), jobs)
	require.ErrorIs(t, err, bandit.ErrInvalidConfiguration)
	assert.Empty(t, sink.all())
}

func TestWriteMarkdown_BaselineColumn(t *testing.T) {
	rows := []Row{
		{Task: "basic", Model: "m1", N: 2, AMean: 150, AStd: 50, BMean: 200, BStd: 50, Improvement: 33.33, Baseline: "ucb1", BaselineMean: 210, BaselineStd: 5},
		{Task: "basic", Model: "m2", N: 1, AMean: 10, BMean: 12, Improvement: 20},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, rows, ReportMeta{}))

	out := buf.String()
	assert.Contains(t, out, "| Model | Strategy A | Strategy B | Baseline | Improvement (%) | Repeats |")
	assert.Contains(t, out, "| m1 | 150.0±50.0 | 200.0±50.0 | ucb1 210.0±5.0 | 33.3% | 2 |")
	assert.Contains(t, out, "| m2 | 10.0±0.0 | 12.0±0.0 | - | 20.0% | 1 |")
}

func TestSmoke(t *testing.T) {
	sink := &memorySink{}
	res, err := Smoke(context.Background(), fixedStrategies(), Model{Name: "m1"}, sink)
	require.NoError(t, err)
	assert.Equal(t, SmokeTask, res.Task)
	require.Len(t, sink.all(), 1)

	_, err = Smoke(context.Background(), Strategies{A: baseline(flakyOracle{fail: true}), B: baseline(bandit.UCB1{})}, Model{Name: "m1"}, nil)
	require.Error(t, err)
}
