package bandit

import (
	"fmt"
	"slices"

	"banditArena/domain"
)

// Trial is one realized repetition. It is shared read-only by every strategy
// under comparison and must not be mutated after Assemble.
type Trial struct {
	Config       Config
	Rounds       int
	Means        []float64
	Rewards      [][]float64
	Availability [][]bool

	BestArm  int
	BestMean float64

	// Degenerate is set when no option was ever available and BestMean is the
	// caller's fallback.
	Degenerate bool

	Contexts []string
}

// Assemble realizes cfg and computes the oracle reference. fallbackBestMean
// is used only when a sleeping trial has no available round at all.
func Assemble(cfg Config, nRounds int, fallbackBestMean float64) (*Trial, error) {
	rz, err := Generate(cfg, nRounds)
	if err != nil {
		return nil, err
	}

	t := &Trial{
		Config:       cfg,
		Rounds:       nRounds,
		Means:        rz.Means,
		Rewards:      rz.Rewards,
		Availability: rz.Availability,
	}

	if rz.Availability != nil {
		arm, mean, ok := conditionedBest(rz.Rewards, rz.Availability, len(rz.Means))
		if ok {
			t.BestArm, t.BestMean = arm, mean
		} else {
			t.BestArm, t.BestMean, t.Degenerate = -1, fallbackBestMean, true
		}
	} else {
		t.BestArm = argmax(rz.Means)
		t.BestMean = rz.Means[t.BestArm]
	}

	if c, ok := cfg.Extra.(Contextual); ok {
		t.Contexts = contextLabels(c.Contexts, nRounds)
	}
	return t, nil
}

// conditionedBest averages each option over the rounds it was available and
// returns the best of those averages. Options never available are skipped.
func conditionedBest(rewards [][]float64, avail [][]bool, k int) (int, float64, bool) {
	sums := make([]float64, k)
	counts := make([]int, k)
	for t, row := range rewards {
		for i, r := range row {
			if avail[t][i] {
				sums[i] += r
				counts[i]++
			}
		}
	}

	best, bestMean := -1, 0.0
	for i := range sums {
		if counts[i] == 0 {
			continue
		}
		m := sums[i] / float64(counts[i])
		if best < 0 || m > bestMean {
			best, bestMean = i, m
		}
	}
	return best, bestMean, best >= 0
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

func contextLabels(n, rounds int) []string {
	labels := make([]string, rounds)
	for t := range labels {
		labels[t] = fmt.Sprintf("context_%d", t%n)
	}
	return labels
}

// Arms returns the option count.
func (t *Trial) Arms() int {
	return len(t.Means)
}

// Variant returns the variant tag of the trial's config.
func (t *Trial) Variant() Variant {
	return t.Config.Variant()
}

// Available reports whether option arm can be chosen in round.
func (t *Trial) Available(round, arm int) bool {
	if t.Availability == nil {
		return true
	}
	return t.Availability[round][arm]
}

// AvailableMask returns a copy of the round's availability row, or nil when
// every option is always available.
func (t *Trial) AvailableMask(round int) []bool {
	if t.Availability == nil {
		return nil
	}
	return slices.Clone(t.Availability[round])
}

// Context returns the round's context label, or "" for non-contextual trials.
func (t *Trial) Context(round int) string {
	if t.Contexts == nil {
		return ""
	}
	return t.Contexts[round]
}

// BestAvailableReward is the highest realized reward among the options
// available in round.
func (t *Trial) BestAvailableReward(round int) float64 {
	best, found := 0.0, false
	for i, r := range t.Rewards[round] {
		if !t.Available(round, i) {
			continue
		}
		if !found || r > best {
			best, found = r, true
		}
	}
	return best
}

// Record converts the trial to its exchange form.
func (t *Trial) Record() domain.TrialRecord {
	rec := domain.TrialRecord{
		Params:     t.Config.Params(),
		NRounds:    t.Rounds,
		NArms:      t.Arms(),
		Means:      slices.Clone(t.Means),
		Rewards:    make([][]float64, len(t.Rewards)),
		BestArm:    t.BestArm,
		BestMean:   t.BestMean,
		Degenerate: t.Degenerate,
		Contexts:   slices.Clone(t.Contexts),
	}
	for i, row := range t.Rewards {
		rec.Rewards[i] = slices.Clone(row)
	}
	if t.Availability != nil {
		rec.Availability = make([][]bool, len(t.Availability))
		for i, row := range t.Availability {
			rec.Availability[i] = slices.Clone(row)
		}
	}

	switch x := t.Config.Extra.(type) {
	case Drift:
		rate := x.Rate
		rec.DriftRate = &rate
	case Adversarial:
		rec.Adversarial = true
		rec.SwitchInterval = x.SwitchInterval
	case Sleeping:
		prob := x.Prob
		rec.SleepProb = &prob
	}
	return rec
}

// TrialFromRecord rebuilds a trial from its exchange form, checking that the
// matrices agree with the declared shape.
func TrialFromRecord(rec domain.TrialRecord) (*Trial, error) {
	cfg, err := ConfigFromParams(rec.Params)
	if err != nil {
		return nil, err
	}

	k := rec.NArms
	if k < 1 || len(rec.Means) != k {
		return nil, fmt.Errorf("%w: record has %d arms and %d means", ErrInvalidConfiguration, k, len(rec.Means))
	}
	if len(rec.Rewards) != rec.NRounds {
		return nil, fmt.Errorf("%w: record has %d reward rows for %d rounds", ErrInvalidConfiguration, len(rec.Rewards), rec.NRounds)
	}
	for i, row := range rec.Rewards {
		if len(row) != k {
			return nil, fmt.Errorf("%w: reward row %d has %d entries, want %d", ErrInvalidConfiguration, i, len(row), k)
		}
	}
	// -1 marks a degenerate trial and nothing else
	if rec.BestArm < -1 || rec.BestArm >= k || (rec.BestArm == -1) != rec.Degenerate {
		return nil, fmt.Errorf("%w: best arm %d is invalid for %d arms (degenerate=%t)", ErrInvalidConfiguration, rec.BestArm, k, rec.Degenerate)
	}

	t := &Trial{
		Config:     cfg,
		Rounds:     rec.NRounds,
		Means:      slices.Clone(rec.Means),
		Rewards:    make([][]float64, len(rec.Rewards)),
		BestArm:    rec.BestArm,
		BestMean:   rec.BestMean,
		Degenerate: rec.Degenerate,
	}
	for i, row := range rec.Rewards {
		t.Rewards[i] = slices.Clone(row)
	}

	if cfg.Variant() == VariantSleeping {
		if len(rec.Availability) != rec.NRounds {
			return nil, fmt.Errorf("%w: sleeping record has %d availability rows for %d rounds", ErrInvalidConfiguration, len(rec.Availability), rec.NRounds)
		}
		t.Availability = make([][]bool, len(rec.Availability))
		for i, row := range rec.Availability {
			if len(row) != k {
				return nil, fmt.Errorf("%w: availability row %d has %d entries, want %d", ErrInvalidConfiguration, i, len(row), k)
			}
			t.Availability[i] = slices.Clone(row)
		}
	}

	if cfg.Variant() == VariantContextual {
		if len(rec.Contexts) != rec.NRounds {
			return nil, fmt.Errorf("%w: contextual record has %d labels for %d rounds", ErrInvalidConfiguration, len(rec.Contexts), rec.NRounds)
		}
		t.Contexts = slices.Clone(rec.Contexts)
	}
	return t, nil
}
