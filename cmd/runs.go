package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/survey-geo/linkdata/internal/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded linkage runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rl, err := runlog.Open(cfg.Runlog.Path)
		if err != nil {
			return eris.Wrap(err, "runs: open run history")
		}
		defer rl.Close() //nolint:errcheck

		entries, err := rl.List(runsLimit)
		if err != nil {
			return eris.Wrap(err, "runs: list")
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "no recorded runs")
			return nil
		}
		for _, e := range entries {
			status := "ok"
			if len(e.FailedLags) > 0 {
				status = fmt.Sprintf("failed lags %v", e.FailedLags)
			}
			fmt.Fprintf(out, "%s  %s  rows=%d lags=%d gaps=%d  %s  %s\n",
				e.RunID,
				e.StartedAt.Format("2006-01-02 15:04"),
				e.Rows, len(e.Lags), e.GapTotal,
				status, e.Output,
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(runsCmd)
}
