// Package linker computes lagged contextual columns: for each requested
// lag offset it shifts every respondent's interview date back by that
// many days, re-resolves the respondent's GEOID at the shifted date
// (geography is itself time-varying), and looks the (GEOID, date) pair
// up in the yearly measurement store.
package linker

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/survey-geo/linkdata/internal/interview"
	"github.com/survey-geo/linkdata/internal/measure"
	"github.com/survey-geo/linkdata/internal/residence"
)

// GapCounts tallies per-person resolution gaps for one lag. Every gap
// becomes a no-data cell, never an aborted run.
type GapCounts struct {
	Undated         int `yaml:"undated,omitempty"`
	UnknownPerson   int `yaml:"unknown_person,omitempty"`
	NoCoverage      int `yaml:"no_coverage,omitempty"`
	NoGeography     int `yaml:"no_geography,omitempty"`
	YearUnavailable int `yaml:"year_unavailable,omitempty"`
	NoData          int `yaml:"no_data,omitempty"`
}

// Total returns the sum across all gap categories.
func (g GapCounts) Total() int {
	return g.Undated + g.UnknownPerson + g.NoCoverage + g.NoGeography + g.YearUnavailable + g.NoData
}

func (g *GapCounts) add(o GapCounts) {
	g.Undated += o.Undated
	g.UnknownPerson += o.UnknownPerson
	g.NoCoverage += o.NoCoverage
	g.NoGeography += o.NoGeography
	g.YearUnavailable += o.YearUnavailable
	g.NoData += o.NoData
}

// Column is one lag's output: values and lag dates aligned 1:1 with the
// interview table's row order.
type Column struct {
	Lag    int
	Values []measure.Value
	Dates  []time.Time
	Gaps   GapCounts
}

// Resolve computes the column for one lag. Per-person failures are
// localized as no-data; only an unexpected measurement-store failure
// (a year whose file exists but cannot be loaded) fails the lag.
func Resolve(lag int, table *interview.Table, geo interview.GeographySource, store *measure.Store) (*Column, error) {
	col := &Column{
		Lag:    lag,
		Values: make([]measure.Value, table.Len()),
		Dates:  make([]time.Time, table.Len()),
	}

	for i, rec := range table.Records {
		if !rec.HasDate() {
			col.Gaps.Undated++
			continue
		}
		lagDate := rec.InterviewDate.AddDate(0, 0, -lag)
		col.Dates[i] = lagDate

		geoid, err := geo.ResolveGeoid(rec.PersonID, lagDate)
		if err != nil {
			switch {
			case eris.Is(err, residence.ErrUnknownPerson):
				col.Gaps.UnknownPerson++
			case eris.Is(err, residence.ErrNoCoverage), eris.Is(err, residence.ErrEmptyHistory):
				col.Gaps.NoCoverage++
			case eris.Is(err, interview.ErrNoGeography):
				col.Gaps.NoGeography++
			default:
				return nil, eris.Wrapf(err, "linker: lag %d person %s", lag, rec.PersonID)
			}
			continue
		}

		v, err := store.Lookup(geoid, lagDate)
		if err != nil {
			if eris.Is(err, measure.ErrYearUnavailable) {
				col.Gaps.YearUnavailable++
				continue
			}
			return nil, eris.Wrapf(err, "linker: lag %d lookup", lag)
		}
		if !v.Valid {
			col.Gaps.NoData++
			continue
		}
		col.Values[i] = v
	}

	return col, nil
}
