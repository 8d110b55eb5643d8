package main

import (
	"fmt"
	"path/filepath"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"banditArena/business/bandit"
	"banditArena/domain"
	"banditArena/internal/repository/jsonl"
	"banditArena/pkg/config"
	"banditArena/pkg/logger"
)

func runGenerate(cmd *cobra.Command, _ []string) error {
	groups, _ := cmd.Flags().GetInt("groups")
	seed, _ := cmd.Flags().GetInt64("seed")
	rounds, _ := cmd.Flags().GetInt("rounds")
	out, _ := cmd.Flags().GetString("out")
	useDefaults, _ := cmd.Flags().GetBool("defaults")

	samplerCfg := bandit.DefaultSamplerConfig()
	variants := bandit.Variants
	fallback := 0.0
	if !useDefaults {
		exp, err := config.LoadExperiment(experimentPath)
		if err != nil {
			return err
		}
		samplerCfg = exp.Ranges.SamplerConfig()
		if variants, err = exp.VariantList(); err != nil {
			return err
		}
		fallback = exp.Experiment.FallbackBestMean
		if !cmd.Flags().Changed("groups") {
			groups = exp.Experiment.NParamGroups
		}
		if !cmd.Flags().Changed("seed") {
			seed = exp.Experiment.Seed
		}
		if !cmd.Flags().Changed("rounds") {
			rounds = exp.Experiment.NRounds
		}
	}

	sampler, err := bandit.NewParamSampler(samplerCfg)
	if err != nil {
		return err
	}

	params := make(map[bandit.Variant][]domain.BanditParams, len(variants))
	for _, v := range variants {
		cfgs, err := sampler.Sample(v, groups, seed)
		if err != nil {
			return err
		}

		records := make([]domain.TrialRecord, 0, len(cfgs))
		for g, cfg := range cfgs {
			p := cfg.Params()
			p.GroupID = g
			params[v] = append(params[v], p)

			trial, err := bandit.Assemble(cfg, rounds, fallback)
			if err != nil {
				return fmt.Errorf("group %d of %s: %w", g, v, err)
			}
			if trial.Degenerate {
				logger.Warn("no option was ever available, using fallback best mean", "variant", v, "group", g)
			}
			rec := trial.Record()
			rec.Params.GroupID = g
			records = append(records, rec)
		}

		path := filepath.Join(out, string(v)+".json")
		if err := jsonl.WriteJSON(path, records); err != nil {
			return err
		}
		fmt.Println(aurora.Green(fmt.Sprintf("wrote %d trials to %s", len(records), path)))
	}

	return jsonl.WriteJSON(filepath.Join(out, "params.json"), params)
}
