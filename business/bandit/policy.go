package bandit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var errNoCandidates = errors.New("no option available")

// Random picks uniformly among the available options.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Choose(_ context.Context, obs Observation) (int, error) {
	cands := obs.Candidates()
	if len(cands) == 0 {
		return 0, errNoCandidates
	}
	return cands[r.rng.Intn(len(cands))], nil
}

// Greedy plays the best running mean; unplayed options are valued at Initial.
type Greedy struct {
	Initial float64
}

func (g Greedy) Name() string { return "greedy" }

func (g Greedy) Choose(_ context.Context, obs Observation) (int, error) {
	a := argmaxOver(obs.Candidates(), func(i int) float64 {
		if obs.Arms[i].Count == 0 {
			return g.Initial
		}
		return obs.Arms[i].Mean
	})
	if a < 0 {
		return 0, errNoCandidates
	}
	return a, nil
}

// EpsilonGreedy explores uniformly with probability Epsilon.
type EpsilonGreedy struct {
	Epsilon float64
	Initial float64
	rng     *rand.Rand
}

func NewEpsilonGreedy(epsilon float64, seed int64) *EpsilonGreedy {
	return &EpsilonGreedy{Epsilon: epsilon, rng: rand.New(rand.NewSource(seed))}
}

func (e *EpsilonGreedy) Name() string {
	return fmt.Sprintf("e-greedy-%.2f", e.Epsilon)
}

func (e *EpsilonGreedy) Choose(ctx context.Context, obs Observation) (int, error) {
	cands := obs.Candidates()
	if len(cands) == 0 {
		return 0, errNoCandidates
	}
	if e.rng.Float64() < e.Epsilon {
		return cands[e.rng.Intn(len(cands))], nil
	}
	return Greedy{Initial: e.Initial}.Choose(ctx, obs)
}

// UCB1 plays every available option once, then the highest upper confidence bound.
type UCB1 struct {
	Exploration float64
}

func (u UCB1) Name() string { return "ucb1" }

func (u UCB1) Choose(_ context.Context, obs Observation) (int, error) {
	c := u.Exploration
	if c <= 0 {
		c = DefaultExploration
	}
	a := argmaxOver(obs.Candidates(), func(i int) float64 {
		return ucb1Score(obs.Arms[i], obs.Round, c)
	})
	if a < 0 {
		return 0, errNoCandidates
	}
	return a, nil
}

// Thompson samples a Gaussian posterior per option.
type Thompson struct {
	Sigma float64
	rng   *rand.Rand
}

func NewThompson(sigma float64, seed int64) *Thompson {
	return &Thompson{Sigma: sigma, rng: rand.New(rand.NewSource(seed))}
}

func (t *Thompson) Name() string { return "thompson" }

func (t *Thompson) Choose(_ context.Context, obs Observation) (int, error) {
	a := argmaxOver(obs.Candidates(), func(i int) float64 {
		return thompsonScore(obs.Arms[i], t.Sigma, t.rng)
	})
	if a < 0 {
		return 0, errNoCandidates
	}
	return a, nil
}

// Baselines lists the policy names accepted by NewBaseline.
var Baselines = []string{"random", "greedy", "epsilon_greedy", "ucb1", "thompson", "linucb"}

const baselineEpsilon = 0.1

// NewBaseline builds a fresh reference policy for one play of trial. Thompson
// uses the trial's noise level and LinUCB sizes its features to the trial's
// context count.
func NewBaseline(name string, trial *Trial, seed int64) (DecisionOracle, error) {
	switch name {
	case "random":
		return NewRandom(seed), nil
	case "greedy":
		return Greedy{Initial: math.Inf(1)}, nil
	case "epsilon_greedy":
		e := NewEpsilonGreedy(baselineEpsilon, seed)
		e.Initial = math.Inf(1)
		return e, nil
	case "ucb1":
		return UCB1{}, nil
	case "thompson":
		sigma := trial.Config.Sigma
		if sigma <= 0 {
			sigma = 1
		}
		return NewThompson(sigma, seed), nil
	case "linucb":
		contexts := 1
		if c, ok := trial.Config.Extra.(Contextual); ok {
			contexts = c.Contexts
		}
		return NewLinUCB(1, contexts), nil
	}
	return nil, fmt.Errorf("%w: unknown baseline %q", ErrInvalidConfiguration, name)
}
