package main

import (
	"context"
	"fmt"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"banditArena/business/arena"
	"banditArena/pkg/logger"
)

func runProgressReset(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	st, err := openStores(ctx, appConfig)
	if err != nil {
		return err
	}
	defer st.close()

	resetter, ok := st.progress.(arena.ProgressResetter)
	if !ok {
		return fmt.Errorf("progress store %q cannot be reset", appConfig.Storage.Progress)
	}
	if err := resetter.Reset(ctx); err != nil {
		return err
	}
	logger.Info("progress reset", "store", appConfig.Storage.Progress)
	fmt.Fprintln(cmd.OutOrStdout(), aurora.Green("progress reset"))
	return nil
}
