package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"banditArena/business/arena"
	"banditArena/business/bandit"
	"banditArena/business/strategy"
	"banditArena/pkg/config"
	"banditArena/pkg/logger"
	"banditArena/pkg/metrics"
)

func newStrategies(cfg *config.Config, exp *config.Experiment) arena.Strategies {
	var limiter *rate.Limiter
	if rps := exp.Experiment.RequestsPerSecond; rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
	}
	client := strategy.WithRateLimit(strategy.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey), limiter)

	return arena.Strategies{
		A: func(m arena.Model, seed int64) bandit.DecisionOracle {
			return strategy.NewTextual(client, m.ID, seed)
		},
		B: func(m arena.Model, seed int64) bandit.DecisionOracle {
			return strategy.NewPlanner(client, m.ID, seed)
		},
	}
}

func arenaModels(exp *config.Experiment) []arena.Model {
	var out []arena.Model
	for _, m := range exp.EnabledModels() {
		out = append(out, arena.Model{Name: m.Name, ID: m.ModelID})
	}
	return out
}

func runExperiment(cmd *cobra.Command, _ []string) error {
	validate, _ := cmd.Flags().GetBool("validate")
	validateOnly, _ := cmd.Flags().GetBool("validate-only")
	keepCurves, _ := cmd.Flags().GetBool("curves")
	baselineName, _ := cmd.Flags().GetString("baseline")
	if baselineName != "" && !slices.Contains(bandit.Baselines, baselineName) {
		return fmt.Errorf("unknown baseline %q, want one of %s", baselineName, strings.Join(bandit.Baselines, ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exp, err := config.LoadExperiment(experimentPath)
	if err != nil {
		return err
	}
	logger.Info("Starting bandit arena", "version", appConfig.App.Version, "experiment", experimentPath)

	st, err := openStores(ctx, appConfig)
	if err != nil {
		return err
	}
	defer st.close()

	strategies := newStrategies(appConfig, exp)
	models := arenaModels(exp)

	if validate || validateOnly {
		res, err := arena.Smoke(ctx, strategies, models[0], st.sink)
		if err != nil {
			fmt.Println(aurora.Red(fmt.Sprintf("validation failed: %v", err)))
			return err
		}
		fmt.Println(aurora.Green(fmt.Sprintf("validation passed: %s A=%.1f B=%.1f", models[0].Name, res.AReward, res.BReward)))
		if validateOnly {
			return nil
		}
	}

	variants, err := exp.VariantList()
	if err != nil {
		return err
	}
	sampler, err := bandit.NewParamSampler(exp.Ranges.SamplerConfig())
	if err != nil {
		return err
	}
	jobs, err := arena.BuildJobs(models, variants, sampler, exp.Experiment.NParamGroups, exp.Experiment.Seed)
	if err != nil {
		return err
	}

	runner := arena.NewRunner(arena.Options{
		Rounds:           exp.Experiment.NRounds,
		Repeats:          exp.Experiment.NRepeats,
		MaxWorkers:       exp.Experiment.MaxWorkers,
		MaxRetries:       exp.Experiment.MaxRetries,
		RetryPause:       time.Duration(exp.Experiment.RetryPauseSeconds * float64(time.Second)),
		FallbackBestMean: exp.Experiment.FallbackBestMean,
		KeepCurves:       keepCurves,
		Baseline:         baselineName,
	}, strategies, st.sink, st.progress)

	start := time.Now()
	stats, runErr := runner.Run(ctx, jobs)
	logger.Info("run finished", "run_id", stats.RunID, "jobs", stats.Jobs, "skipped", stats.Skipped,
		"repeats", stats.Repeats, "failed", stats.Failed, "elapsed", time.Since(start).String())

	if path := appConfig.App.MetricsFile; path != "" {
		if err := metrics.Dump(path); err != nil {
			logger.Error("Failed to dump metrics", "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	results, err := st.source.Results(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	meta := arena.ReportMeta{RunID: stats.RunID, Elapsed: time.Since(start), Models: names, Failed: arena.CountFailed(results)}

	path := filepath.Join(appConfig.Storage.ResultsDir, "final_summary.md")
	if err := writeSummary(path, arena.Aggregate(results), meta); err != nil {
		return err
	}
	fmt.Println(aurora.Green(fmt.Sprintf("summary written to %s", path)))
	return nil
}

func writeSummary(path string, rows []arena.Row, meta arena.ReportMeta) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create summary dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}
	if err := arena.WriteMarkdown(f, rows, meta); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
