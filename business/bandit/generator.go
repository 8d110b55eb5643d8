package bandit

import (
	"fmt"
	"math/rand"
	"time"
)

// Realization is the drawn outcome of a config over a number of rounds.
// Availability is nil unless the config is a sleeping variant; when set it is
// authoritative and reward cells of unavailable options must not be read.
type Realization struct {
	Means        []float64
	Rewards      [][]float64
	Availability [][]bool
}

// Rounds returns the number of realized rounds.
func (r Realization) Rounds() int {
	return len(r.Rewards)
}

// newRand returns a generator owned by the caller. A nil seed draws fresh entropy.
func newRand(seed *int64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rand.New(rand.NewSource(*seed))
}

// Generate realizes cfg over nRounds rounds. Identical configs with a seed
// produce bit-identical realizations.
func Generate(cfg Config, nRounds int) (Realization, error) {
	if err := cfg.Validate(); err != nil {
		return Realization{}, err
	}
	if nRounds < 0 {
		return Realization{}, fmt.Errorf("%w: round count must be >= 0, got %d", ErrInvalidConfiguration, nRounds)
	}
	return generate(cfg, nRounds, newRand(cfg.Seed)), nil
}

func generate(cfg Config, nRounds int, rng *rand.Rand) Realization {
	k := cfg.NumArms()

	means := make([]float64, k)
	if len(cfg.Means) > 0 {
		copy(means, cfg.Means)
	} else {
		span := cfg.MeanHigh - cfg.MeanLow
		for i := range means {
			means[i] = cfg.MeanLow + span*rng.Float64()
		}
	}

	var (
		driftRate float64
		walk      []float64
		sleeping  Sleeping
		sleeps    bool
	)
	switch x := cfg.Extra.(type) {
	case Drift:
		if x.Rate > 0 {
			driftRate = x.Rate
			walk = make([]float64, k)
		}
	case Sleeping:
		sleeping, sleeps = x, true
	}

	out := Realization{
		Means:   means,
		Rewards: make([][]float64, nRounds),
	}
	if sleeps {
		out.Availability = make([][]bool, nRounds)
	}

	for t := 0; t < nRounds; t++ {
		row := make([]float64, k)
		for i := range row {
			row[i] = means[i] + rng.NormFloat64()*cfg.Sigma
		}

		if walk != nil {
			for i := range row {
				walk[i] += rng.NormFloat64() * driftRate
				row[i] += walk[i]
			}
		}
		out.Rewards[t] = row

		if sleeps {
			out.Availability[t] = drawAvailability(rng, sleeping, k)
		}
	}

	return out
}

// drawAvailability marks each option awake with probability 1-p and forces
// one uniformly random option awake when none is.
func drawAvailability(rng *rand.Rand, s Sleeping, k int) []bool {
	avail := make([]bool, k)
	awake := false
	for i := range avail {
		avail[i] = rng.Float64() >= s.probFor(i)
		awake = awake || avail[i]
	}
	if !awake {
		avail[rng.Intn(k)] = true
	}
	return avail
}
