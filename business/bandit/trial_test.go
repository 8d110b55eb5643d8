//go:build !integration

package bandit

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banditArena/domain"
)

func TestAssemble_BestMeanIsMaxOfMeans(t *testing.T) {
	cfg := seeded(Config{Arms: 3, MeanLow: 2, MeanHigh: 9, Sigma: 0}, 42)
	trial, err := Assemble(cfg, 5, 0)
	require.NoError(t, err)

	best := trial.Means[0]
	for _, m := range trial.Means {
		if m > best {
			best = m
		}
	}
	assert.Equal(t, best, trial.BestMean)
	assert.Equal(t, best, trial.Means[trial.BestArm])
	assert.False(t, trial.Degenerate)
}

func TestAssemble_SleepingUsesAvailabilityConditionedMean(t *testing.T) {
	cfg := seeded(Config{Arms: 4, MeanLow: 2, MeanHigh: 9, Sigma: 1, Extra: Sleeping{Prob: 0.5}}, 3)
	trial, err := Assemble(cfg, 300, -1)
	require.NoError(t, err)

	want, wantArm := 0.0, -1
	for i := 0; i < trial.Arms(); i++ {
		sum, n := 0.0, 0
		for tt := 0; tt < trial.Rounds; tt++ {
			if trial.Availability[tt][i] {
				sum += trial.Rewards[tt][i]
				n++
			}
		}
		if n > 0 && (wantArm < 0 || sum/float64(n) > want) {
			want, wantArm = sum/float64(n), i
		}
	}
	assert.Equal(t, wantArm, trial.BestArm)
	assert.InDelta(t, want, trial.BestMean, 1e-12)
}

func TestAssemble_DegenerateSleepingFallsBack(t *testing.T) {
	cfg := seeded(Config{Arms: 3, MeanLow: 2, MeanHigh: 9, Extra: Sleeping{Prob: 0.3}}, 3)
	trial, err := Assemble(cfg, 0, 5.0)
	require.NoError(t, err)
	assert.True(t, trial.Degenerate)
	assert.Equal(t, -1, trial.BestArm)
	assert.Equal(t, 5.0, trial.BestMean)
}

func TestConditionedBest_SkipsNeverAvailable(t *testing.T) {
	rewards := [][]float64{{1, 100, 3}, {1, 100, 5}}
	avail := [][]bool{{true, false, true}, {true, false, true}}
	arm, mean, ok := conditionedBest(rewards, avail, 3)
	require.True(t, ok)
	assert.Equal(t, 2, arm)
	assert.Equal(t, 4.0, mean)
}

func TestAssemble_AuxiliaryFields(t *testing.T) {
	ctxTrial, err := Assemble(seeded(Config{Arms: 3, MeanLow: 2, MeanHigh: 9, Extra: Contextual{Contexts: 3}}, 1), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"context_0", "context_1", "context_2", "context_0", "context_1", "context_2", "context_0"}, ctxTrial.Contexts)

	adv, err := Assemble(seeded(Config{Arms: 3, MeanLow: 2, MeanHigh: 9, Extra: Adversarial{SwitchInterval: 25}}, 1), 7, 0)
	require.NoError(t, err)
	rec := adv.Record()
	assert.True(t, rec.Adversarial)
	assert.Equal(t, 25, rec.SwitchInterval)
	assert.Nil(t, rec.Availability)
	assert.Nil(t, rec.Contexts)
}

func TestTrial_RoundTrip(t *testing.T) {
	s := newSampler(t)
	cases := map[string]Config{
		"explicit means":  seeded(Config{Arms: 3, Means: []float64{3, 8, 5}, Sigma: 1}, 4),
		"per-arm sleep":   seeded(Config{Arms: 3, MeanLow: 2, MeanHigh: 9, Sigma: 1, Extra: Sleeping{Prob: 0.3, PerArm: []float64{0, 0.5, 0.9}}}, 4),
		"means and sleep": seeded(Config{Arms: 2, Means: []float64{4, 6}, Sigma: 0.5, Extra: Sleeping{PerArm: []float64{0.2, 0.7}}}, 8),
	}
	for _, v := range Variants {
		cases[string(v)] = s.Group(v, 42, 1)
	}

	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			trial, err := Assemble(cfg, 40, 0)
			require.NoError(t, err)

			raw, err := json.Marshal(trial.Record())
			require.NoError(t, err)

			var rec domain.TrialRecord
			require.NoError(t, json.Unmarshal(raw, &rec))

			back, err := TrialFromRecord(rec)
			require.NoError(t, err)

			diff := cmp.Diff(trial, back,
				cmpopts.EquateApprox(0, 1e-9),
				cmpopts.EquateEmpty(),
			)
			assert.Empty(t, diff)
			assert.Equal(t, cfg.Means, back.Config.Means)
			if sl, ok := cfg.Extra.(Sleeping); ok {
				assert.Equal(t, sl.PerArm, back.Config.Extra.(Sleeping).PerArm)
			}
		})
	}
}

func TestTrialFromRecord_RejectsInvalidBestArm(t *testing.T) {
	trial, err := Assemble(seeded(Config{Arms: 3, MeanLow: 2, MeanHigh: 9, Sigma: 1}, 2), 4, 0)
	require.NoError(t, err)

	for _, arm := range []int{-2, -1, 3, 10} {
		rec := trial.Record()
		rec.BestArm = arm
		_, err := TrialFromRecord(rec)
		require.ErrorIs(t, err, ErrInvalidConfiguration, "best arm %d", arm)
	}

	rec := trial.Record()
	rec.Degenerate = true
	_, err = TrialFromRecord(rec)
	require.ErrorIs(t, err, ErrInvalidConfiguration, "degenerate trial with a best arm")

	rec = trial.Record()
	rec.BestArm = 2
	_, err = TrialFromRecord(rec)
	require.NoError(t, err)
}

func TestTrialFromRecord_RejectsBrokenShapes(t *testing.T) {
	trial, err := Assemble(seeded(Config{Arms: 3, MeanLow: 2, MeanHigh: 9, Extra: Sleeping{Prob: 0.2}}, 2), 4, 0)
	require.NoError(t, err)

	rec := trial.Record()
	rec.Rewards = rec.Rewards[:2]
	_, err = TrialFromRecord(rec)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	rec = trial.Record()
	rec.Availability = nil
	_, err = TrialFromRecord(rec)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	rec = trial.Record()
	rec.Rewards[1] = rec.Rewards[1][:1]
	_, err = TrialFromRecord(rec)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}
