package residence

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/survey-geo/linkdata/internal/geoid"
	"github.com/survey-geo/linkdata/internal/tabular"
)

// Schema names the move-history source columns and markers.
type Schema struct {
	PersonCol      string
	MoveCol        string
	MoveYearCol    string
	MoveMonthCol   string
	GeoidCol       string
	SurveyYearCol  string
	MovedMark      string  // e.g. "1. move"
	FirstTractMark float64 // e.g. 999.0, matched numerically or as text
	GeoidWidth     int
}

// DefaultSchema matches the HRS geocoded reference files.
func DefaultSchema() Schema {
	return Schema{
		PersonCol:      "hhidpn",
		MoveCol:        "trmove_tr",
		MoveYearCol:    "mvyear",
		MoveMonthCol:   "mvmonth",
		GeoidCol:       "LINKCEN2010",
		SurveyYearCol:  "year",
		MovedMark:      "1. move",
		FirstTractMark: 999.0,
		GeoidWidth:     11,
	}
}

// ParseReport summarizes what the history parser kept and dropped.
type ParseReport struct {
	Persons        int
	Moves          int
	SkippedPersons int // persons with no usable first-tract record
	SkippedRows    int // move rows with unusable year/month or geoid
}

// ParseHistory turns a move-history table into move records grouped per
// person. Persons without a first-tract record and rows with unusable
// dates are skipped and counted, not fatal.
func ParseHistory(tbl *tabular.Table, s Schema) ([]MoveRecord, *ParseReport, error) {
	if err := tbl.RequireColumns(s.PersonCol, s.MoveCol, s.GeoidCol); err != nil {
		return nil, nil, eris.Wrap(err, "residence: history source")
	}

	log := zap.L().With(zap.String("component", "residence.parse"))
	report := &ParseReport{}

	type personRows struct {
		firstTract *MoveRecord
		moves      []MoveRecord
	}
	persons := make(map[string]*personRows)
	var order []string

	for i := 0; i < tbl.Len(); i++ {
		pid := strings.TrimSpace(tbl.Cell(i, s.PersonCol))
		if pid == "" {
			report.SkippedRows++
			continue
		}
		pr, ok := persons[pid]
		if !ok {
			pr = &personRows{}
			persons[pid] = pr
			order = append(order, pid)
		}

		mark := strings.TrimSpace(tbl.Cell(i, s.MoveCol))
		tract := geoid.Pad(tbl.Cell(i, s.GeoidCol), s.GeoidWidth)

		switch {
		case isFirstTractMark(mark, s.FirstTractMark):
			from, ok := firstTractDate(tbl, i, s)
			if !ok || tract == "" {
				report.SkippedRows++
				continue
			}
			rec := MoveRecord{
				PersonID:      pid,
				Seq:           i,
				EffectiveFrom: from,
				Geoid:         tract,
				FirstTract:    true,
			}
			// One baseline per person; a repeated sentinel keeps the first.
			if pr.firstTract == nil {
				pr.firstTract = &rec
			}

		case mark == s.MovedMark:
			from, ok := moveDate(tbl, i, s)
			if !ok || tract == "" {
				report.SkippedRows++
				continue
			}
			pr.moves = append(pr.moves, MoveRecord{
				PersonID:      pid,
				Seq:           i,
				EffectiveFrom: from,
				Geoid:         tract,
			})
		}
		// Rows with any other marker value are non-move survey rows.
	}

	var records []MoveRecord
	for _, pid := range order {
		pr := persons[pid]
		if pr.firstTract == nil {
			report.SkippedPersons++
			log.Debug("no first-tract record for person", zap.String("person", pid))
			continue
		}
		report.Persons++
		report.Moves += len(pr.moves)
		records = append(records, *pr.firstTract)
		records = append(records, pr.moves...)
	}

	log.Info("parsed residential move history",
		zap.Int("persons", report.Persons),
		zap.Int("moves", report.Moves),
		zap.Int("skipped_persons", report.SkippedPersons),
		zap.Int("skipped_rows", report.SkippedRows),
	)
	return records, report, nil
}

// isFirstTractMark matches the sentinel both numerically (a float cell
// like "999" or "999.0") and as its literal text form.
func isFirstTractMark(cell string, mark float64) bool {
	if cell == "" {
		return false
	}
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		return v == mark
	}
	return cell == strconv.FormatFloat(mark, 'f', -1, 64)
}

// firstTractDate derives the baseline effective date: the move year if
// recorded (month defaulting to January), otherwise January of the
// survey year.
func firstTractDate(tbl *tabular.Table, row int, s Schema) (time.Time, bool) {
	if year, ok := cellInt(tbl, row, s.MoveYearCol); ok {
		month := 1
		if m, ok := cellInt(tbl, row, s.MoveMonthCol); ok && m >= 1 && m <= 12 {
			month = m
		}
		return monthStart(year, month), true
	}
	if year, ok := cellInt(tbl, row, s.SurveyYearCol); ok {
		return monthStart(year, 1), true
	}
	return time.Time{}, false
}

// moveDate requires a move year; a missing or out-of-range month falls
// back to January.
func moveDate(tbl *tabular.Table, row int, s Schema) (time.Time, bool) {
	year, ok := cellInt(tbl, row, s.MoveYearCol)
	if !ok {
		return time.Time{}, false
	}
	month := 1
	if m, ok := cellInt(tbl, row, s.MoveMonthCol); ok && m >= 1 && m <= 12 {
		month = m
	}
	return monthStart(year, month), true
}

func monthStart(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// cellInt parses a cell as an integer, tolerating float rendering
// ("2015.0") common in exported survey data.
func cellInt(tbl *tabular.Table, row int, col string) (int, bool) {
	raw := strings.TrimSpace(tbl.Cell(row, col))
	if raw == "" || col == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}
