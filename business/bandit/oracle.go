package bandit

import (
	"context"
	"fmt"
)

// Observation is what a decision oracle sees before choosing in a round.
type Observation struct {
	Round int
	Arms  []ArmStats

	// Available is nil when every option is available.
	Available []bool

	// Context is the round label of contextual trials, "" otherwise.
	Context string
}

// IsAvailable reports whether option i may be chosen this round.
func (o Observation) IsAvailable(i int) bool {
	return o.Available == nil || o.Available[i]
}

// Candidates lists the options that may be chosen this round.
func (o Observation) Candidates() []int {
	out := make([]int, 0, len(o.Arms))
	for i := range o.Arms {
		if o.IsAvailable(i) {
			out = append(out, i)
		}
	}
	return out
}

// DecisionOracle picks an option index in [0, len(obs.Arms)) for a round.
type DecisionOracle interface {
	Name() string
	Choose(ctx context.Context, obs Observation) (int, error)
}

// Learner is implemented by oracles that need the outcome of their choice.
type Learner interface {
	Observe(obs Observation, action int, reward float64)
}

// Play runs oracle over every round of trial. A choice of a sleeping option
// yields zero reward and leaves the statistics untouched. An index outside
// [0, K) aborts the run with ErrOutOfRangeAction.
func Play(ctx context.Context, oracle DecisionOracle, trial *Trial) (*DecisionTrace, error) {
	k := trial.Arms()
	history := newArmHistory(k)
	trace := NewDecisionTrace(k)
	learner, _ := oracle.(Learner)

	for t := 0; t < trial.Rounds; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context error: %w", err)
		}

		obs := Observation{
			Round:     t,
			Arms:      history.snapshot(),
			Available: trial.AvailableMask(t),
			Context:   trial.Context(t),
		}

		action, err := oracle.Choose(ctx, obs)
		if err != nil {
			return nil, fmt.Errorf("%s failed at round %d: %w", oracle.Name(), t, err)
		}

		reward, counted := trial.realized(t, action)
		if err := trace.Append(action, reward); err != nil {
			return nil, fmt.Errorf("%s: %w", oracle.Name(), err)
		}
		if !counted {
			continue
		}

		history.add(action, reward)
		if learner != nil {
			learner.Observe(obs, action, reward)
		}
	}
	return trace, nil
}

// realized returns the reward received for choosing arm in round, and whether
// the choice was a real observation.
func (t *Trial) realized(round, arm int) (float64, bool) {
	if arm < 0 || arm >= t.Arms() || !t.Available(round, arm) {
		return 0, false
	}
	return t.Rewards[round][arm], true
}
