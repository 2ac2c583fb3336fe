package linker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/survey-geo/linkdata/internal/interview"
	"github.com/survey-geo/linkdata/internal/measure"
	"github.com/survey-geo/linkdata/internal/tabular"
)

// Scheduler drives per-lag resolution over a bounded worker pool and
// merges the resulting columns onto the interview table.
type Scheduler struct {
	// Prefix names the output columns: <prefix>_<n>day_prior.
	Prefix string
	// Concurrency bounds the worker pool; <=0 means 4.
	Concurrency int
	// Timeout, when >0, cancels dispatch of new lag tasks after it
	// elapses. In-flight tasks finish; undispatched lags are omitted.
	Timeout time.Duration
	// KeepLagDates adds a companion <prefix>_<n>day_prior_date column.
	KeepLagDates bool
}

// RequiredYears returns the inclusive calendar-year range from
// (earliest interview date - largest lag) through the latest interview
// date. It is computed once, before any lag work starts.
func RequiredYears(lags []int, table *interview.Table) ([]int, error) {
	min, max, ok := table.DateRange()
	if !ok {
		return nil, eris.New("linker: interview table has no dated rows")
	}

	maxLag := 0
	for _, n := range lags {
		if n > maxLag {
			maxLag = n
		}
	}

	first := min.AddDate(0, 0, -maxLag).Year()
	last := max.Year()
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years, nil
}

// Run preloads the required measurement years, computes every lag column
// under bounded concurrency and left-joins them onto the interview
// table. Individual lag failures are isolated: the failed lag's column
// is merged as all no-data and recorded in the report while sibling lags
// complete. Output row order always matches the interview table.
func (s *Scheduler) Run(ctx context.Context, lags []int, table *interview.Table, geo interview.GeographySource, store *measure.Store) (*tabular.Table, *Report, error) {
	if len(lags) == 0 {
		return nil, nil, eris.New("linker: no lags requested")
	}
	if table.Len() == 0 {
		return nil, nil, eris.New("linker: interview table is empty")
	}

	log := zap.L().With(zap.String("component", "linker.scheduler"))
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Rows:      table.Len(),
		Lags:      append([]int(nil), lags...),
	}

	years, err := RequiredYears(lags, table)
	if err != nil {
		return nil, nil, err
	}
	report.RequiredYears = years

	unavailable, err := store.Preload(ctx, years)
	if err != nil {
		return nil, nil, eris.Wrap(err, "linker: preload required years")
	}
	report.UnavailableYears = unavailable

	runCtx := ctx
	var cancel context.CancelFunc
	if s.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	type lagResult struct {
		col     *Column
		err     error
		skipped bool
	}
	results := make([]lagResult, len(lags))

	// Plain group, not WithContext: one failing lag must never cancel
	// its siblings. Cancellation is honored at dispatch only, so
	// in-flight lags run to completion.
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, lag := range lags {
		i, lag := i, lag
		g.Go(func() error {
			if runCtx.Err() != nil {
				results[i] = lagResult{skipped: true}
				return nil
			}
			col, err := Resolve(lag, table, geo, store)
			results[i] = lagResult{col: col, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := table.Source.Clone()
	for i, lag := range lags {
		res := results[i]
		colName := fmt.Sprintf("%s_%dday_prior", s.Prefix, lag)
		lr := LagReport{Lag: lag, Column: colName}

		switch {
		case res.skipped:
			// Never dispatched: omitted from the merge, not padded.
			lr.Omitted = true
			lr.Column = ""
			report.OmittedLags = append(report.OmittedLags, lag)
			log.Warn("lag omitted (run cancelled before dispatch)", zap.Int("lag", lag))

		case res.err != nil:
			lr.Failed = true
			lr.Error = res.err.Error()
			report.FailedLags = append(report.FailedLags, lag)
			log.Error("lag failed", zap.Int("lag", lag), zap.Error(res.err))
			// The failed lag still gets its column, entirely no-data.
			if err := out.AddColumn(colName, nil); err != nil {
				return nil, nil, err
			}

		default:
			lr.Gaps = res.col.Gaps
			report.Gaps.add(res.col.Gaps)
			if err := out.AddColumn(colName, formatValues(res.col.Values)); err != nil {
				return nil, nil, err
			}
			if s.KeepLagDates {
				if err := out.AddColumn(colName+"_date", formatDates(res.col.Dates)); err != nil {
					return nil, nil, err
				}
			}
		}
		report.PerLag = append(report.PerLag, lr)
	}

	report.FinishedAt = time.Now().UTC()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	log.Info("lag linkage complete",
		zap.String("run_id", report.RunID),
		zap.Int("lags", len(lags)),
		zap.Int("rows", report.Rows),
		zap.Int("failed_lags", len(report.FailedLags)),
		zap.Int("omitted_lags", len(report.OmittedLags)),
		zap.Int("gaps", report.Gaps.Total()),
		zap.Duration("duration", report.Duration),
	)
	return out, report, nil
}

func formatValues(values []measure.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v.Valid {
			out[i] = strconv.FormatFloat(v.Float, 'f', -1, 64)
		}
	}
	return out
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		if !d.IsZero() {
			out[i] = d.Format("2006-01-02")
		}
	}
	return out
}
