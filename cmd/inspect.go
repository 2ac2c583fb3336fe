package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/survey-geo/linkdata/internal/residence"
	"github.com/survey-geo/linkdata/internal/tabular"
)

var (
	inspectHistory string
	inspectSamples int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize a residential move-history file",
	Long: `Parses a move-history file and prints a summary: how many persons
and moves were found, what was skipped, and a sample of the resolved
timelines. Useful for checking column mappings before a link run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tbl, err := tabular.Read(inspectHistory)
		if err != nil {
			return eris.Wrap(err, "inspect: read history")
		}

		records, report, err := residence.ParseHistory(tbl, residence.Schema{
			PersonCol:      cfg.History.PersonCol,
			MoveCol:        cfg.History.MoveCol,
			MoveYearCol:    cfg.History.MoveYearCol,
			MoveMonthCol:   cfg.History.MoveMonthCol,
			GeoidCol:       cfg.History.GeoidCol,
			SurveyYearCol:  cfg.History.SurveyYearCol,
			MovedMark:      cfg.History.MovedMark,
			FirstTractMark: cfg.History.FirstTractMark,
			GeoidWidth:     cfg.History.GeoidWidth,
		})
		if err != nil {
			return eris.Wrap(err, "inspect: parse history")
		}
		ix := residence.BuildIndex(records)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "persons:          %d\n", report.Persons)
		fmt.Fprintf(out, "moves:            %d\n", report.Moves)
		fmt.Fprintf(out, "skipped persons:  %d (no first-tract record)\n", report.SkippedPersons)
		fmt.Fprintf(out, "skipped rows:     %d (unusable dates or geoids)\n", report.SkippedRows)
		fmt.Fprintln(out)

		shown := 0
		for _, pid := range ix.PersonIDs() {
			if shown >= inspectSamples {
				break
			}
			tl, _ := ix.Timeline(pid)
			first, last := tl.Span()
			fmt.Fprintf(out, "%s: %d residences, %s (%s) -> %s (%s)\n",
				pid, tl.Len(),
				first.Format("2006-01-02"), tl.FirstGeoid(),
				last.Format("2006-01-02"), tl.LastGeoid(),
			)
			shown++
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectHistory, "history", "", "residential move-history file (required)")
	inspectCmd.Flags().IntVar(&inspectSamples, "samples", 5, "number of sample timelines to print")
	_ = inspectCmd.MarkFlagRequired("history")
	rootCmd.AddCommand(inspectCmd)
}
