// Package interview wraps the survey table (one row per respondent with
// an interview or specimen-collection date) and provides the geography
// sources used to resolve a respondent's GEOID on an arbitrary date.
package interview

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/survey-geo/linkdata/internal/geoid"
	"github.com/survey-geo/linkdata/internal/tabular"
)

// ErrNoGeography means no static GEOID snapshot exists for the person.
var ErrNoGeography = eris.New("interview: no geography snapshot")

// Record is one respondent row: interview date plus static GEOID
// snapshots keyed by reference year.
type Record struct {
	PersonID      string
	InterviewDate time.Time // zero when the source date was unparseable
	Snapshots     map[int]string
}

// HasDate reports whether the record carries a usable interview date.
func (r Record) HasDate() bool { return !r.InterviewDate.IsZero() }

// Table is the parsed interview table. Records preserve source row
// order; Source keeps the original columns for the final merged output.
// The table is read-only after construction.
type Table struct {
	Records []Record
	Source  *tabular.Table

	byPerson map[string]*Record
}

// Schema names the interview source columns.
type Schema struct {
	PersonCol string
	DateCol   string
	// SnapshotPrefix identifies static GEOID columns: any column named
	// <prefix><4-digit year>, e.g. LINKCEN2010.
	SnapshotPrefix string
	GeoidWidth     int
}

// DefaultSchema matches the HRS-style reference files.
func DefaultSchema() Schema {
	return Schema{
		PersonCol:      "hhidpn",
		DateCol:        "bcdate",
		SnapshotPrefix: "LINKCEN",
		GeoidWidth:     11,
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
}

// Parse builds a Table from a tabular source. A missing person or date
// column is fatal; an empty table is fatal; rows whose date fails to
// parse are kept (so the output row count is preserved) but carry no
// date and resolve to no-data downstream.
func Parse(tbl *tabular.Table, s Schema) (*Table, error) {
	if err := tbl.RequireColumns(s.PersonCol, s.DateCol); err != nil {
		return nil, eris.Wrap(err, "interview: source")
	}
	if tbl.Len() == 0 {
		return nil, eris.New("interview: table has no rows")
	}

	log := zap.L().With(zap.String("component", "interview.parse"))

	snapCols := snapshotColumns(tbl.Columns, s.SnapshotPrefix)
	t := &Table{Source: tbl, byPerson: make(map[string]*Record, tbl.Len())}

	var badDates int
	for i := 0; i < tbl.Len(); i++ {
		rec := Record{
			PersonID:  strings.TrimSpace(tbl.Cell(i, s.PersonCol)),
			Snapshots: make(map[int]string, len(snapCols)),
		}
		if d, ok := parseDate(tbl.Cell(i, s.DateCol)); ok {
			rec.InterviewDate = d
		} else {
			badDates++
		}
		for year, col := range snapCols {
			if g := geoid.Pad(tbl.Cell(i, col), s.GeoidWidth); g != "" {
				rec.Snapshots[year] = g
			}
		}
		t.Records = append(t.Records, rec)
	}
	for i := range t.Records {
		rec := &t.Records[i]
		if rec.PersonID == "" {
			continue
		}
		if _, dup := t.byPerson[rec.PersonID]; !dup {
			t.byPerson[rec.PersonID] = rec
		}
	}

	log.Info("parsed interview table",
		zap.Int("rows", len(t.Records)),
		zap.Int("snapshot_years", len(snapCols)),
		zap.Int("undated_rows", badDates),
	)
	return t, nil
}

// Record returns the first record for a person id.
func (t *Table) Record(personID string) (*Record, bool) {
	r, ok := t.byPerson[personID]
	return r, ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Records) }

// DateRange returns the earliest and latest interview dates among dated
// rows; ok is false when no row has a date.
func (t *Table) DateRange() (min, max time.Time, ok bool) {
	for _, r := range t.Records {
		if !r.HasDate() {
			continue
		}
		if !ok || r.InterviewDate.Before(min) {
			min = r.InterviewDate
		}
		if !ok || r.InterviewDate.After(max) {
			max = r.InterviewDate
		}
		ok = true
	}
	return min, max, ok
}

var yearSuffix = regexp.MustCompile(`(\d{4})$`)

// snapshotColumns maps reference year to column name for every column
// named <prefix><year>.
func snapshotColumns(columns []string, prefix string) map[int]string {
	out := make(map[int]string)
	for _, col := range columns {
		name := strings.TrimSpace(col)
		if prefix == "" || !strings.HasPrefix(name, prefix) {
			continue
		}
		m := yearSuffix.FindString(strings.TrimPrefix(name, prefix))
		if m == "" || prefix+m != name {
			continue
		}
		year, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out[year] = name
	}
	return out
}

// SnapshotYears returns the distinct reference years present, sorted.
func (t *Table) SnapshotYears() []int {
	seen := make(map[int]bool)
	for _, r := range t.Records {
		for y := range r.Snapshots {
			seen[y] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			// Calendar dates only: drop any time-of-day component.
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
