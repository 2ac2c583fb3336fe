package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/survey-geo/linkdata/internal/geoid"
	"github.com/survey-geo/linkdata/internal/tabular"
)

var (
	convertInput     string
	convertOutput    string
	convertValueName string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a wide measurement file to long format",
	Long: `Converts a wide-format measurement file (one date column followed by
one column per GEOID) into the long format the link command consumes:
one row per (date, geoid) with a single value column.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		wide, err := tabular.Read(convertInput)
		if err != nil {
			return eris.Wrap(err, "convert: read input")
		}
		if len(wide.Columns) < 2 {
			return eris.New("convert: input has no geoid columns")
		}

		long := tabular.NewTable([]string{cfg.Measures.DateCol, cfg.Measures.GeoidCol, convertValueName})
		dateCol := wide.Columns[0]
		width := cfg.History.GeoidWidth

		for i := 0; i < wide.Len(); i++ {
			d := strings.TrimSpace(wide.Cell(i, dateCol))
			if d == "" {
				continue
			}
			for _, col := range wide.Columns[1:] {
				v := strings.TrimSpace(wide.Cell(i, col))
				if v == "" {
					continue
				}
				long.AppendRow([]string{d, geoid.Pad(col, width), v})
			}
		}

		if err := tabular.Write(long, convertOutput); err != nil {
			return eris.Wrap(err, "convert: write output")
		}
		zap.L().Info("converted to long format",
			zap.String("input", convertInput),
			zap.String("output", convertOutput),
			zap.Int("rows", long.Len()),
		)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertInput, "input", "", "wide-format measurement file (required)")
	convertCmd.Flags().StringVar(&convertOutput, "output", "", "long-format output path (required)")
	convertCmd.Flags().StringVar(&convertValueName, "value-name", "value", "name for the value column")
	_ = convertCmd.MarkFlagRequired("input")
	_ = convertCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(convertCmd)
}
