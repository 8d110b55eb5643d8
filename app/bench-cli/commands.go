package main

import (
	"log"
	"strings"

	"github.com/spf13/cobra"

	"banditArena/business/bandit"
	"banditArena/pkg/config"
	"banditArena/pkg/logger"
	"banditArena/pkg/metrics"
)

var (
	experimentPath string
	appConfig      *config.Config

	rootCmd = &cobra.Command{
		Use:          "bench-cli",
		Short:        "Benchmark LLM decision strategies on multi-armed bandit tasks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				log.Printf("Failed to load config: %v", err)
				return err
			}
			appConfig = cfg

			logger.Init(cfg.App.Environment)
			metrics.Init()
			if experimentPath == "" {
				experimentPath = cfg.App.ExperimentFile
			}
			return nil
		},
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Sample parameter groups and write configs and realized trials as JSON",
		RunE:  runGenerate, // Defined in cmd_generate.go
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run both strategies for every enabled model, variant and parameter group",
		RunE:  runExperiment, // Defined in cmd_run.go
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Aggregate stored results into a summary",
		RunE:  runReport, // Defined in cmd_report.go
	}

	progressCmd = &cobra.Command{
		Use:   "progress",
		Short: "Manage the resume state",
	}

	progressResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Forget every finished task so the next run starts from scratch",
		RunE:  runProgressReset, // Defined in cmd_progress.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&experimentPath, "experiment", "e", "", "experiment YAML file (default $EXPERIMENT_FILE)")

	generateCmd.Flags().Int("groups", 10, "parameter groups per variant")
	generateCmd.Flags().Int64("seed", 42, "base seed")
	generateCmd.Flags().Int("rounds", 120, "rounds per realized trial")
	generateCmd.Flags().String("out", "trials", "output directory")
	generateCmd.Flags().Bool("defaults", false, "use the default ranges instead of the experiment file")

	runCmd.Flags().Bool("validate", false, "play a short smoke trial against the first enabled model before the run")
	runCmd.Flags().Bool("validate-only", false, "stop after the smoke trial")
	runCmd.Flags().Bool("curves", false, "store per-round curves with every result")
	runCmd.Flags().String("baseline", "", "also score this policy on every trial: "+strings.Join(bandit.Baselines, ", "))

	reportCmd.Flags().String("out", "", "also write the markdown summary to this file")
	reportCmd.Flags().String("run", "", "only report the results of this run ID")

	progressCmd.AddCommand(progressResetCmd)
	rootCmd.AddCommand(generateCmd, runCmd, reportCmd, progressCmd)
}
