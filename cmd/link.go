package main

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/survey-geo/linkdata/internal/interview"
	"github.com/survey-geo/linkdata/internal/linker"
	"github.com/survey-geo/linkdata/internal/measure"
	"github.com/survey-geo/linkdata/internal/residence"
	"github.com/survey-geo/linkdata/internal/runlog"
	"github.com/survey-geo/linkdata/internal/tabular"
)

var (
	linkInterview   string
	linkHistory     string
	linkMeasures    string
	linkMeasureType string
	linkMeasureCol  string
	linkLags        string
	linkPrefix      string
	linkGeography   string
	linkConcurrency int
	linkTimeoutSecs int
	linkKeepDates   bool
	linkOutput      string
	linkReport      string
	linkNoRunlog    bool
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Compute lagged contextual columns and merge onto the survey table",
	Long: `Reads a survey table and a directory of yearly measurement files,
computes the measurement value n days before each respondent's interview
date for every requested lag, and writes the merged table.

When a residential move history is supplied, each respondent's census
tract is re-resolved at every lag date, so pre-move lags use the tract
the respondent actually lived in. Without a history, the static snapshot
GEOID column nearest the lag year is used.

Examples:
  # Heat index at 0, 30 and 365 day lags with move-history geography
  linkdata link --interview vbs.csv --history moves.csv \
    --measures data/heat --lags 0,30,365 --prefix heat --output linked.csv

  # PM2.5 over a weekly grid of lags, snapshot geography only
  linkdata link --interview vbs.csv --measures data/pm25 \
    --measure-col pm25 --lags 0:364:7 --prefix pm25 --output linked.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		lags, err := parseLags(linkLags)
		if err != nil {
			return eris.Wrap(err, "link: parse lags")
		}

		srcTbl, err := tabular.Read(linkInterview)
		if err != nil {
			return eris.Wrap(err, "link: read interview table")
		}
		it, err := interview.Parse(srcTbl, interview.Schema{
			PersonCol:      cfg.Survey.PersonCol,
			DateCol:        cfg.Survey.DateCol,
			SnapshotPrefix: strings.TrimRight(cfg.History.GeoidCol, "0123456789"),
			GeoidWidth:     cfg.History.GeoidWidth,
		})
		if err != nil {
			return eris.Wrap(err, "link: parse interview table")
		}

		geo, err := geographySource(it)
		if err != nil {
			return err
		}

		store, err := measure.NewStore(linkMeasures, linkMeasureType, measure.Schema{
			DateCol:    cfg.Measures.DateCol,
			GeoidCol:   cfg.Measures.GeoidCol,
			ValueCol:   linkMeasureCol,
			GeoidWidth: cfg.History.GeoidWidth,
		})
		if err != nil {
			return eris.Wrap(err, "link: open measurement store")
		}

		concurrency := linkConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Link.Concurrency
		}
		timeoutSecs := linkTimeoutSecs
		if timeoutSecs <= 0 {
			timeoutSecs = cfg.Link.TimeoutSecs
		}

		s := &linker.Scheduler{
			Prefix:       linkPrefix,
			Concurrency:  concurrency,
			Timeout:      time.Duration(timeoutSecs) * time.Second,
			KeepLagDates: linkKeepDates,
		}
		out, report, err := s.Run(ctx, lags, it, geo, store)
		if err != nil {
			return eris.Wrap(err, "link: run")
		}

		if err := tabular.Write(out, linkOutput); err != nil {
			return eris.Wrap(err, "link: write output")
		}
		zap.L().Info("linked table written",
			zap.String("output", linkOutput),
			zap.Int("rows", out.Len()),
			zap.Int("columns", len(out.Columns)),
		)

		if linkReport != "" {
			if err := report.WriteYAML(linkReport); err != nil {
				return eris.Wrap(err, "link: write report")
			}
		}
		if !linkNoRunlog {
			if err := recordRun(report, linkOutput); err != nil {
				// Run-history bookkeeping never fails the run itself.
				zap.L().Warn("link: record run", zap.Error(err))
			}
		}
		return nil
	},
}

// geographySource picks the resolution mode: move history when supplied
// (or forced), static snapshots otherwise.
func geographySource(it *interview.Table) (interview.GeographySource, error) {
	mode := linkGeography
	if mode == "auto" {
		if linkHistory != "" {
			mode = "history"
		} else {
			mode = "snapshot"
		}
	}

	switch mode {
	case "history":
		if linkHistory == "" {
			return nil, eris.New("link: --geography history requires --history")
		}
		tbl, err := tabular.Read(linkHistory)
		if err != nil {
			return nil, eris.Wrap(err, "link: read move history")
		}
		records, _, err := residence.ParseHistory(tbl, residence.Schema{
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
			return nil, eris.Wrap(err, "link: parse move history")
		}
		return interview.HistorySource{Index: residence.BuildIndex(records)}, nil

	case "snapshot":
		return interview.SnapshotSource{Table: it}, nil

	default:
		return nil, eris.Errorf("link: unknown geography mode %q", mode)
	}
}

func recordRun(report *linker.Report, output string) error {
	rl, err := runlog.Open(cfg.Runlog.Path)
	if err != nil {
		return err
	}
	defer rl.Close() //nolint:errcheck
	return rl.Record(report, output)
}

// parseLags accepts comma-separated entries, each a single day count or
// a start:end:step range (inclusive). Duplicates collapse.
func parseLags(spec string) ([]int, error) {
	seen := make(map[int]bool)
	var lags []int

	add := func(n int) {
		if n < 0 || seen[n] {
			return
		}
		seen[n] = true
		lags = append(lags, n)
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, ":") {
			fields := strings.Split(part, ":")
			if len(fields) != 3 {
				return nil, eris.Errorf("range %q must be start:end:step", part)
			}
			start, err1 := strconv.Atoi(fields[0])
			end, err2 := strconv.Atoi(fields[1])
			step, err3 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, eris.Errorf("range %q has non-integer fields", part)
			}
			if step <= 0 || end < start {
				return nil, eris.Errorf("range %q is empty", part)
			}
			for n := start; n <= end; n += step {
				add(n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, eris.Errorf("lag %q is not an integer", part)
		}
		add(n)
	}

	if len(lags) == 0 {
		return nil, eris.New("no lags given")
	}
	sort.Ints(lags)
	return lags, nil
}

func init() {
	linkCmd.Flags().StringVar(&linkInterview, "interview", "", "survey table with interview dates (csv or xlsx, required)")
	linkCmd.Flags().StringVar(&linkHistory, "history", "", "residential move-history table (enables tract re-resolution)")
	linkCmd.Flags().StringVar(&linkMeasures, "measures", "", "directory of yearly measurement files (required)")
	linkCmd.Flags().StringVar(&linkMeasureType, "measure-type", "", "only use measurement files containing this substring")
	linkCmd.Flags().StringVar(&linkMeasureCol, "measure-col", "", "measurement value column (default: inferred)")
	linkCmd.Flags().StringVar(&linkLags, "lags", "0", "lags in days: comma list and start:end:step ranges")
	linkCmd.Flags().StringVar(&linkPrefix, "prefix", "value", "output column prefix")
	linkCmd.Flags().StringVar(&linkGeography, "geography", "auto", "geography mode: auto, history or snapshot")
	linkCmd.Flags().IntVar(&linkConcurrency, "concurrency", 0, "max lags computed concurrently (default from config)")
	linkCmd.Flags().IntVar(&linkTimeoutSecs, "timeout", 0, "run timeout in seconds (0 = none)")
	linkCmd.Flags().BoolVar(&linkKeepDates, "keep-lag-dates", false, "also emit <prefix>_<n>day_prior_date columns")
	linkCmd.Flags().StringVar(&linkOutput, "output", "", "merged output path (csv or xlsx, required)")
	linkCmd.Flags().StringVar(&linkReport, "report", "", "write the run report YAML to this path")
	linkCmd.Flags().BoolVar(&linkNoRunlog, "no-runlog", false, "skip recording the run in the local run history")
	_ = linkCmd.MarkFlagRequired("interview")
	_ = linkCmd.MarkFlagRequired("measures")
	_ = linkCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(linkCmd)
}
