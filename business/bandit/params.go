package bandit

import (
	"fmt"
	"slices"

	"banditArena/domain"
)

// Params flattens the config into its exchange form.
func (c Config) Params() domain.BanditParams {
	p := domain.BanditParams{
		Variant:  string(c.Variant()),
		NArms:    c.NumArms(),
		MeanLow:  c.MeanLow,
		MeanHigh: c.MeanHigh,
		Sigma:    c.Sigma,
		Means:    slices.Clone(c.Means),
	}
	if c.Seed != nil {
		seed := *c.Seed
		p.Seed = &seed
	}

	switch x := c.Extra.(type) {
	case Drift:
		p.DriftRate = x.Rate
	case Contextual:
		p.NContexts = x.Contexts
	case Adversarial:
		p.SwitchInterval = x.SwitchInterval
	case Sleeping:
		p.SleepProb = x.Prob
		p.SleepProbs = slices.Clone(x.PerArm)
	}
	return p
}

// ConfigFromParams rebuilds and validates a config from its exchange form.
func ConfigFromParams(p domain.BanditParams) (Config, error) {
	variant, err := ParseVariant(p.Variant)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Arms:     p.NArms,
		MeanLow:  p.MeanLow,
		MeanHigh: p.MeanHigh,
		Sigma:    p.Sigma,
		Means:    slices.Clone(p.Means),
	}
	if p.Seed != nil {
		cfg = cfg.WithSeed(*p.Seed)
	}

	switch variant {
	case VariantBasic:
		cfg.Extra = Basic{}
	case VariantDrift:
		cfg.Extra = Drift{Rate: p.DriftRate}
	case VariantContextual:
		cfg.Extra = Contextual{Contexts: p.NContexts}
	case VariantAdversarial:
		cfg.Extra = Adversarial{SwitchInterval: p.SwitchInterval}
	case VariantSleeping:
		cfg.Extra = Sleeping{Prob: p.SleepProb, PerArm: slices.Clone(p.SleepProbs)}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("params of group %d: %w", p.GroupID, err)
	}
	return cfg, nil
}
