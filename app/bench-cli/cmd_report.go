package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"banditArena/business/arena"
)

func runReport(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("out")
	runID, _ := cmd.Flags().GetString("run")
	ctx := context.Background()

	st, err := openStores(ctx, appConfig)
	if err != nil {
		return err
	}
	defer st.close()

	results, err := arena.ResultsForRun(ctx, st.source, runID)
	if err != nil {
		return err
	}
	rows := arena.Aggregate(results)
	printRows(os.Stdout, rows)

	if failed := arena.CountFailed(results); failed > 0 {
		fmt.Println(aurora.Red(fmt.Sprintf("%d repeats failed", failed)))
	}

	if out == "" {
		return nil
	}
	return writeSummary(out, rows, arena.ReportMeta{RunID: runID, Failed: arena.CountFailed(results)})
}

func printRows(w io.Writer, rows []arena.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, aurora.Yellow("no results"))
		return
	}

	withBaseline := arena.HasBaseline(rows)
	task := ""
	for _, r := range rows {
		if r.Task != task {
			task = r.Task
			fmt.Fprintln(w, aurora.Bold(aurora.Cyan(task)))
			fmt.Fprintf(w, "  %-30s %16s %16s %10s %5s", "model", "A", "B", "gain", "n")
			if withBaseline {
				fmt.Fprintf(w, "  %s", "baseline")
			}
			fmt.Fprintln(w)
		}
		gain := fmt.Sprintf("%+.1f%%", r.Improvement)
		var colored aurora.Value = aurora.Green(gain)
		if r.Improvement < 0 {
			colored = aurora.Red(gain)
		}
		fmt.Fprintf(w, "  %-30s %16s %16s %10s %5d",
			r.Model,
			fmt.Sprintf("%.1f±%.1f", r.AMean, r.AStd),
			fmt.Sprintf("%.1f±%.1f", r.BMean, r.BStd),
			colored, r.N)
		if withBaseline && r.Baseline != "" {
			fmt.Fprintf(w, "  %s %.1f±%.1f", r.Baseline, r.BaselineMean, r.BaselineStd)
		}
		fmt.Fprintln(w)
	}
}
