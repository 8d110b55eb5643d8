package bandit

import (
	"fmt"
	"math"
	"strings"
)

type Variant string

const (
	VariantBasic       Variant = "basic"
	VariantDrift       Variant = "drift"
	VariantContextual  Variant = "contextual"
	VariantAdversarial Variant = "adversarial"
	VariantSleeping    Variant = "sleeping"
)

// Variants lists every task variant in report order.
var Variants = []Variant{
	VariantBasic,
	VariantDrift,
	VariantContextual,
	VariantAdversarial,
	VariantSleeping,
}

// ParseVariant accepts the canonical names plus "restless" for drift.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "basic":
		return VariantBasic, nil
	case "drift", "restless":
		return VariantDrift, nil
	case "contextual":
		return VariantContextual, nil
	case "adversarial":
		return VariantAdversarial, nil
	case "sleeping":
		return VariantSleeping, nil
	}
	return "", fmt.Errorf("%w: unknown variant %q", ErrInvalidConfiguration, s)
}

// VariantParams carries the fields specific to one variant. Only the value
// types Basic, Drift, Contextual, Adversarial and Sleeping pass Validate.
type VariantParams interface {
	Variant() Variant
	validate(arms int) error
}

type Basic struct{}

// Drift adds an independent Gaussian random walk to every option.
type Drift struct {
	Rate float64
}

// Contextual labels rounds round-robin over Contexts labels.
type Contextual struct {
	Contexts int
}

// Adversarial records the interval, in rounds, at which an adversary may switch.
type Adversarial struct {
	SwitchInterval int
}

// Sleeping makes options unavailable with probability Prob each round.
// PerArm, when set, overrides Prob option by option.
type Sleeping struct {
	Prob   float64
	PerArm []float64
}

func (Basic) Variant() Variant       { return VariantBasic }
func (Drift) Variant() Variant       { return VariantDrift }
func (Contextual) Variant() Variant  { return VariantContextual }
func (Adversarial) Variant() Variant { return VariantAdversarial }
func (Sleeping) Variant() Variant    { return VariantSleeping }

func (Basic) validate(int) error { return nil }

func (d Drift) validate(int) error {
	if d.Rate < 0 || math.IsNaN(d.Rate) {
		return fmt.Errorf("%w: drift rate must be >= 0, got %v", ErrInvalidConfiguration, d.Rate)
	}
	return nil
}

func (c Contextual) validate(int) error {
	if c.Contexts < 1 {
		return fmt.Errorf("%w: context count must be >= 1, got %d", ErrInvalidConfiguration, c.Contexts)
	}
	return nil
}

func (a Adversarial) validate(int) error {
	if a.SwitchInterval < 1 {
		return fmt.Errorf("%w: switch interval must be >= 1, got %d", ErrInvalidConfiguration, a.SwitchInterval)
	}
	return nil
}

func (s Sleeping) validate(arms int) error {
	if !(s.Prob >= 0 && s.Prob < 1) {
		return fmt.Errorf("%w: sleep probability must be in [0,1), got %v", ErrInvalidConfiguration, s.Prob)
	}
	if s.PerArm == nil {
		return nil
	}
	if len(s.PerArm) != arms {
		return fmt.Errorf("%w: %d per-arm sleep probabilities for %d arms", ErrInvalidConfiguration, len(s.PerArm), arms)
	}
	for i, p := range s.PerArm {
		if !(p >= 0 && p <= 1) {
			return fmt.Errorf("%w: sleep probability of arm %d must be in [0,1], got %v", ErrInvalidConfiguration, i, p)
		}
	}
	return nil
}

// probFor returns the sleep probability of option i.
func (s Sleeping) probFor(i int) float64 {
	if s.PerArm != nil {
		return s.PerArm[i]
	}
	return s.Prob
}

// Config describes one bandit instance before any reward is drawn.
type Config struct {
	Arms     int
	MeanLow  float64
	MeanHigh float64
	Sigma    float64

	// Seed nil means fresh entropy and no reproducibility.
	Seed *int64

	// Means, when set, are used verbatim and fix Arms.
	Means []float64

	// Extra nil is treated as Basic.
	Extra VariantParams
}

const (
	defaultArms     = 3
	defaultMeanLow  = 2.0
	defaultMeanHigh = 9.0
	defaultSigma    = 1.0
)

func DefaultConfig() Config {
	return Config{
		Arms:     defaultArms,
		MeanLow:  defaultMeanLow,
		MeanHigh: defaultMeanHigh,
		Sigma:    defaultSigma,
		Extra:    Basic{},
	}
}

// Variant returns the variant tag of the config.
func (c Config) Variant() Variant {
	if c.Extra == nil {
		return VariantBasic
	}
	return c.Extra.Variant()
}

// NumArms resolves the option count, letting explicit means win.
func (c Config) NumArms() int {
	if len(c.Means) > 0 {
		return len(c.Means)
	}
	return c.Arms
}

// WithSeed returns a copy of c with the given seed.
func (c Config) WithSeed(seed int64) Config {
	c.Seed = &seed
	return c
}

// Validate checks every invariant of the shared base and of the variant fields.
func (c Config) Validate() error {
	k := c.NumArms()
	if k < 1 {
		return fmt.Errorf("%w: option count must be >= 1, got %d", ErrInvalidConfiguration, k)
	}
	if c.Sigma < 0 || math.IsNaN(c.Sigma) {
		return fmt.Errorf("%w: noise sigma must be >= 0, got %v", ErrInvalidConfiguration, c.Sigma)
	}
	if len(c.Means) > 0 {
		for i, m := range c.Means {
			if m < 0 || math.IsNaN(m) {
				return fmt.Errorf("%w: mean of arm %d is negative (%v)", ErrInvalidConfiguration, i, m)
			}
		}
	} else if !(c.MeanLow < c.MeanHigh) {
		return fmt.Errorf("%w: mean bounds [%v, %v) are empty", ErrInvalidConfiguration, c.MeanLow, c.MeanHigh)
	}
	switch c.Extra.(type) {
	case nil:
		return nil
	case Basic, Drift, Contextual, Adversarial, Sleeping:
	default:
		return fmt.Errorf("%w: unsupported variant parameters %T", ErrInvalidConfiguration, c.Extra)
	}
	return c.Extra.validate(k)
}
