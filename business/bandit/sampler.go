package bandit

import (
	"fmt"
	"math/rand"
)

// Range is a uniform float range [Min, Max). Min == Max pins the value.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// IntRange is an inclusive integer range.
type IntRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

func (r Range) draw(rng *rand.Rand) float64 {
	return r.Min + (r.Max-r.Min)*rng.Float64()
}

func (r IntRange) draw(rng *rand.Rand) int {
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

// SamplerConfig holds the range of every configuration field.
type SamplerConfig struct {
	Arms     IntRange
	MeanLow  Range
	MeanHigh Range
	Sigma    Range

	DriftRate      Range
	Contexts       IntRange
	SwitchInterval IntRange
	SleepProb      Range
}

// groupSeedStride separates the generator seeds of consecutive groups.
const groupSeedStride = 100

func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Arms:     IntRange{Min: 3, Max: 10},
		MeanLow:  Range{Min: 2.0, Max: 5.0},
		MeanHigh: Range{Min: 7.0, Max: 9.0},
		Sigma:    Range{Min: 0.5, Max: 2.0},

		DriftRate:      Range{Min: 0.03, Max: 0.08},
		Contexts:       IntRange{Min: 2, Max: 5},
		SwitchInterval: IntRange{Min: 20, Max: 40},
		SleepProb:      Range{Min: 0.2, Max: 0.4},
	}
}

func (c SamplerConfig) validate() error {
	floats := []struct {
		name string
		r    Range
	}{
		{"mean_low", c.MeanLow},
		{"mean_high", c.MeanHigh},
		{"sigma", c.Sigma},
		{"drift_rate", c.DriftRate},
		{"sleep_prob", c.SleepProb},
	}
	for _, f := range floats {
		if f.r.Min > f.r.Max {
			return fmt.Errorf("%w: %s range [%v, %v] is inverted", ErrInvalidConfiguration, f.name, f.r.Min, f.r.Max)
		}
	}
	ints := []struct {
		name string
		r    IntRange
		min  int
	}{
		{"n_arms", c.Arms, 1},
		{"n_contexts", c.Contexts, 1},
		{"switch_interval", c.SwitchInterval, 1},
	}
	for _, f := range ints {
		if f.r.Min < f.min || f.r.Min > f.r.Max {
			return fmt.Errorf("%w: %s range [%d, %d] must start at >= %d and not be inverted", ErrInvalidConfiguration, f.name, f.r.Min, f.r.Max, f.min)
		}
	}
	if !(c.MeanLow.Max < c.MeanHigh.Min) {
		return fmt.Errorf("%w: mean_low range must lie below mean_high range", ErrInvalidConfiguration)
	}
	if c.Sigma.Min < 0 || c.DriftRate.Min < 0 {
		return fmt.Errorf("%w: sigma and drift_rate ranges must be non-negative", ErrInvalidConfiguration)
	}
	if c.SleepProb.Min < 0 || c.SleepProb.Max >= 1 {
		return fmt.Errorf("%w: sleep_prob range must lie in [0,1)", ErrInvalidConfiguration)
	}
	return nil
}

// ParamSampler draws reproducible configurations, one per group.
type ParamSampler struct {
	cfg SamplerConfig
}

func NewParamSampler(cfg SamplerConfig) (*ParamSampler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &ParamSampler{cfg: cfg}, nil
}

// GroupSeed is the seed of the generator that draws group g.
func GroupSeed(baseSeed int64, group int) int64 {
	return baseSeed + int64(group)*groupSeedStride
}

// Group draws the configuration of a single group. It depends only on
// (variant, baseSeed, group), so any group can be regenerated on its own.
// Shared fields are drawn before the variant field, which makes them
// identical across variants for the same group.
func (s *ParamSampler) Group(variant Variant, baseSeed int64, group int) Config {
	rng := rand.New(rand.NewSource(GroupSeed(baseSeed, group)))

	cfg := Config{
		Arms:     s.cfg.Arms.draw(rng),
		MeanLow:  s.cfg.MeanLow.draw(rng),
		MeanHigh: s.cfg.MeanHigh.draw(rng),
		Sigma:    s.cfg.Sigma.draw(rng),
	}
	// the trial seed comes from the group stream so reward draws are not
	// correlated with the field draws above
	cfg = cfg.WithSeed(rng.Int63())

	switch variant {
	case VariantDrift:
		cfg.Extra = Drift{Rate: s.cfg.DriftRate.draw(rng)}
	case VariantContextual:
		cfg.Extra = Contextual{Contexts: s.cfg.Contexts.draw(rng)}
	case VariantAdversarial:
		cfg.Extra = Adversarial{SwitchInterval: s.cfg.SwitchInterval.draw(rng)}
	case VariantSleeping:
		cfg.Extra = Sleeping{Prob: s.cfg.SleepProb.draw(rng)}
	default:
		cfg.Extra = Basic{}
	}
	return cfg
}

// Sample returns nGroups configurations ordered by group index.
func (s *ParamSampler) Sample(variant Variant, nGroups int, baseSeed int64) ([]Config, error) {
	v, err := ParseVariant(string(variant))
	if err != nil {
		return nil, err
	}
	if nGroups < 0 {
		return nil, fmt.Errorf("%w: group count must be >= 0, got %d", ErrInvalidConfiguration, nGroups)
	}

	out := make([]Config, nGroups)
	for g := range out {
		out[g] = s.Group(v, baseSeed, g)
	}
	return out, nil
}

// SampleAll samples every variant with the same base seed.
func (s *ParamSampler) SampleAll(nGroups int, baseSeed int64) (map[Variant][]Config, error) {
	all := make(map[Variant][]Config, len(Variants))
	for _, v := range Variants {
		cfgs, err := s.Sample(v, nGroups, baseSeed)
		if err != nil {
			return nil, err
		}
		all[v] = cfgs
	}
	return all, nil
}
