package bandit

import (
	"fmt"

	"banditArena/domain"
)

// Step is one round of a decision trace.
type Step struct {
	Action int
	Reward float64
}

// DecisionTrace is the append-only record of one oracle playing one trial.
type DecisionTrace struct {
	arms  int
	steps []Step
}

func NewDecisionTrace(arms int) *DecisionTrace {
	return &DecisionTrace{arms: arms}
}

// Append records the next round. Actions outside [0, arms) are rejected.
func (d *DecisionTrace) Append(action int, reward float64) error {
	if action < 0 || action >= d.arms {
		return fmt.Errorf("%w: round %d chose %d, valid range [0, %d)", ErrOutOfRangeAction, len(d.steps), action, d.arms)
	}
	d.steps = append(d.steps, Step{Action: action, Reward: reward})
	return nil
}

func (d *DecisionTrace) Len() int {
	return len(d.steps)
}

func (d *DecisionTrace) Arms() int {
	return d.arms
}

// Steps returns a copy of the recorded rounds.
func (d *DecisionTrace) Steps() []Step {
	out := make([]Step, len(d.steps))
	copy(out, d.steps)
	return out
}

// Curves computes running reward and regret against bestMean. Regret is not
// clamped: a noisy round above bestMean contributes negative regret.
func Curves(trace *DecisionTrace, bestMean float64) domain.CurvePair {
	n := trace.Len()
	out := newCurvePair(n)

	var cumReward, cumRegret float64
	for t, s := range trace.steps {
		cumReward += s.Reward
		cumRegret += bestMean - s.Reward

		out.Actions[t] = s.Action
		out.Rewards[t] = s.Reward
		out.CumReward[t] = cumReward
		out.CumRegret[t] = cumRegret
	}
	return out
}

// AvailabilityCurves scores a trace against a sleeping trial. A round whose
// chosen option was available counts the realized reward with regret measured
// against the best available reward of that round. A round whose chosen
// option was asleep counts zero reward and a flat regret of trial.BestMean.
func AvailabilityCurves(trace *DecisionTrace, trial *Trial) (domain.CurvePair, error) {
	if err := checkTrace(trace, trial); err != nil {
		return domain.CurvePair{}, err
	}

	n := trace.Len()
	out := newCurvePair(n)

	var cumReward, cumRegret float64
	for t, s := range trace.steps {
		reward, regret := 0.0, trial.BestMean
		if trial.Available(t, s.Action) {
			reward = s.Reward
			regret = trial.BestAvailableReward(t) - reward
		}
		cumReward += reward
		cumRegret += regret

		out.Actions[t] = s.Action
		out.Rewards[t] = reward
		out.CumReward[t] = cumReward
		out.CumRegret[t] = cumRegret
	}
	return out, nil
}

// Score picks the curve form matching the trial.
func Score(trace *DecisionTrace, trial *Trial) (domain.CurvePair, error) {
	if trial.Availability != nil {
		return AvailabilityCurves(trace, trial)
	}
	if err := checkTrace(trace, trial); err != nil {
		return domain.CurvePair{}, err
	}
	return Curves(trace, trial.BestMean), nil
}

func checkTrace(trace *DecisionTrace, trial *Trial) error {
	if trace.Arms() != trial.Arms() {
		return fmt.Errorf("%w: trace over %d arms, trial has %d", ErrTraceMismatch, trace.Arms(), trial.Arms())
	}
	if trace.Len() > trial.Rounds {
		return fmt.Errorf("%w: trace has %d rounds, trial has %d", ErrTraceMismatch, trace.Len(), trial.Rounds)
	}
	return nil
}

func newCurvePair(n int) domain.CurvePair {
	return domain.CurvePair{
		Actions:   make([]int, n),
		Rewards:   make([]float64, n),
		CumReward: make([]float64, n),
		CumRegret: make([]float64, n),
	}
}
