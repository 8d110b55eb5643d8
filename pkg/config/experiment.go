package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"banditArena/business/bandit"
)

// Experiment is the YAML file describing one benchmark run.
type Experiment struct {
	Models     []Model        `yaml:"models" validate:"required,min=1,dive"`
	Experiment ExperimentSpec `yaml:"experiment"`
	Ranges     Ranges         `yaml:"ranges"`
}

type Model struct {
	Name    string `yaml:"name" validate:"required"`
	ModelID string `yaml:"model_id" validate:"required"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled treats a missing enabled flag as true.
func (m Model) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

type ExperimentSpec struct {
	Seed              int64    `yaml:"seed"`
	NParamGroups      int      `yaml:"n_param_groups" validate:"required,min=1"`
	NRepeats          int      `yaml:"n_repeats" validate:"required,min=1"`
	NRounds           int      `yaml:"n_rounds" validate:"required,min=1"`
	MaxWorkers        int      `yaml:"max_workers" validate:"min=0"`
	MaxRetries        int      `yaml:"max_retries" validate:"min=0"`
	RetryPauseSeconds float64  `yaml:"retry_pause_seconds" validate:"min=0"`
	RequestsPerSecond float64  `yaml:"requests_per_second" validate:"min=0"`
	Variants          []string `yaml:"variants" validate:"dive,oneof=basic drift restless contextual adversarial sleeping"`
	FallbackBestMean  float64  `yaml:"fallback_best_mean"`
}

// Ranges overrides the sampler ranges. Omitted ranges keep their defaults.
type Ranges struct {
	Arms           *bandit.IntRange `yaml:"n_arms"`
	MeanLow        *bandit.Range    `yaml:"mean_low"`
	MeanHigh       *bandit.Range    `yaml:"mean_high"`
	Sigma          *bandit.Range    `yaml:"sigma"`
	DriftRate      *bandit.Range    `yaml:"drift_rate"`
	Contexts       *bandit.IntRange `yaml:"n_contexts"`
	SwitchInterval *bandit.IntRange `yaml:"switch_interval"`
	SleepProb      *bandit.Range    `yaml:"sleep_prob"`
}

// SamplerConfig applies the overrides on top of the default ranges.
func (r Ranges) SamplerConfig() bandit.SamplerConfig {
	cfg := bandit.DefaultSamplerConfig()
	if r.Arms != nil {
		cfg.Arms = *r.Arms
	}
	if r.MeanLow != nil {
		cfg.MeanLow = *r.MeanLow
	}
	if r.MeanHigh != nil {
		cfg.MeanHigh = *r.MeanHigh
	}
	if r.Sigma != nil {
		cfg.Sigma = *r.Sigma
	}
	if r.DriftRate != nil {
		cfg.DriftRate = *r.DriftRate
	}
	if r.Contexts != nil {
		cfg.Contexts = *r.Contexts
	}
	if r.SwitchInterval != nil {
		cfg.SwitchInterval = *r.SwitchInterval
	}
	if r.SleepProb != nil {
		cfg.SleepProb = *r.SleepProb
	}
	return cfg
}

// EnabledModels returns the models whose enabled flag is not false.
func (e *Experiment) EnabledModels() []Model {
	var out []Model
	for _, m := range e.Models {
		if m.IsEnabled() {
			out = append(out, m)
		}
	}
	return out
}

// VariantList returns the configured variants, or all of them.
func (e *Experiment) VariantList() ([]bandit.Variant, error) {
	if len(e.Experiment.Variants) == 0 {
		return bandit.Variants, nil
	}
	out := make([]bandit.Variant, 0, len(e.Experiment.Variants))
	for _, s := range e.Experiment.Variants {
		v, err := bandit.ParseVariant(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func LoadExperiment(path string) (*Experiment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment file: %w", err)
	}
	return ParseExperiment(raw)
}

func ParseExperiment(raw []byte) (*Experiment, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	exp := &Experiment{}
	if err := dec.Decode(exp); err != nil {
		return nil, fmt.Errorf("failed to parse experiment file: %w", err)
	}

	if err := validator.New().Struct(exp); err != nil {
		return nil, fmt.Errorf("invalid experiment file: %w", err)
	}

	if len(exp.EnabledModels()) == 0 {
		return nil, fmt.Errorf("invalid experiment file: no enabled model")
	}

	if exp.Experiment.MaxWorkers == 0 {
		exp.Experiment.MaxWorkers = 4
	}
	if exp.Experiment.MaxRetries == 0 {
		exp.Experiment.MaxRetries = 3
	}

	if _, err := bandit.NewParamSampler(exp.Ranges.SamplerConfig()); err != nil {
		return nil, fmt.Errorf("invalid experiment ranges: %w", err)
	}

	return exp, nil
}
