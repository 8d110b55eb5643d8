package arena

import (
	"context"
	"fmt"

	"banditArena/business/bandit"
	"banditArena/domain"
	"banditArena/pkg/logger"
)

const (
	smokeRounds = 30

	// SmokeTask labels smoke results; reports leave them out.
	SmokeTask = "smoke"
)

// SmokeConfig is the small fixed trial played before a full run.
func SmokeConfig() bandit.Config {
	return bandit.Config{Arms: 3, MeanLow: 3.0, MeanHigh: 8.0, Sigma: 1.0, Extra: bandit.Basic{}}.WithSeed(42)
}

// Smoke plays both strategies once on a short trial and stores the result,
// so endpoint, credentials and sink are checked before the real run.
func Smoke(ctx context.Context, strategies Strategies, model Model, sink ResultSink) (domain.TrialResult, error) {
	trial, err := bandit.Assemble(SmokeConfig(), smokeRounds, 0)
	if err != nil {
		return domain.TrialResult{}, err
	}

	r := NewRunner(Options{Rounds: smokeRounds}, strategies, sink, nil)
	job := Job{Model: model, Variant: bandit.VariantBasic, Config: trial.Config}

	res, err := r.evaluate(ctx, job, 0, trial)
	if err != nil {
		return domain.TrialResult{}, fmt.Errorf("smoke run failed: %w", err)
	}
	res.Task = SmokeTask
	logger.Info("smoke run passed", "model", model.Name, "a_reward", res.AReward, "b_reward", res.BReward)

	if sink != nil {
		if err := sink.Save(ctx, res); err != nil {
			return domain.TrialResult{}, fmt.Errorf("smoke run could not save: %w", err)
		}
	}
	return res, nil
}
