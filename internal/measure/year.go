// Package measure loads yearly contextual measurement files (daily heat
// index, PM2.5, ozone, ...) and serves point lookups keyed by GEOID and
// date. Files may be long format (date, geoid, value) or wide format
// (date rows, one column per geoid); wide files are melted on load.
package measure

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/survey-geo/linkdata/internal/geoid"
	"github.com/survey-geo/linkdata/internal/tabular"
)

// Value is a measurement lookup result. Valid is false for "no data",
// which is a defined outcome, not an error.
type Value struct {
	Float float64
	Valid bool
}

// NoData is the absent-value result.
var NoData = Value{}

// Schema names the measurement source columns.
type Schema struct {
	DateCol  string
	GeoidCol string
	// ValueCol selects the measurement column. Empty means infer: the
	// single column that is neither date nor geoid.
	ValueCol   string
	GeoidWidth int
}

// DefaultSchema matches the reference long-format files.
func DefaultSchema() Schema {
	return Schema{DateCol: "Date", GeoidCol: "GEOID10", GeoidWidth: 11}
}

// Year is one calendar year of measurements, immutable once loaded.
type Year struct {
	Year     int
	ValueCol string
	// Skipped counts source rows dropped for unparseable dates or values.
	Skipped int

	index map[string]float64
}

// LoadYear reads and indexes one yearly file. Malformed rows are skipped
// and counted; only a structurally unusable file (missing columns, no
// rows at all) is an error.
func LoadYear(path string, year int, s Schema) (*Year, error) {
	tbl, err := tabular.Read(path)
	if err != nil {
		return nil, eris.Wrapf(err, "measure: load year %d", year)
	}

	log := zap.L().With(zap.String("component", "measure.year"), zap.Int("year", year))

	var y *Year
	if tbl.HasColumn(s.DateCol) && tbl.HasColumn(s.GeoidCol) {
		y, err = indexLong(tbl, year, s)
	} else {
		y, err = indexWide(tbl, year, s)
	}
	if err != nil {
		return nil, err
	}

	log.Info("measurement year loaded",
		zap.String("file", path),
		zap.String("value_col", y.ValueCol),
		zap.Int("keys", len(y.index)),
		zap.Int("skipped_rows", y.Skipped),
	)
	return y, nil
}

// Lookup returns the measurement for (geoid, date), or NoData.
func (y *Year) Lookup(geoid string, date time.Time) Value {
	v, ok := y.index[key(geoid, date)]
	if !ok {
		return NoData
	}
	return Value{Float: v, Valid: true}
}

// Keys returns the number of indexed (geoid, date) pairs.
func (y *Year) Keys() int { return len(y.index) }

func key(geoid string, date time.Time) string {
	return geoid + "|" + date.Format("2006-01-02")
}

func indexLong(tbl *tabular.Table, year int, s Schema) (*Year, error) {
	valueCol := s.ValueCol
	if valueCol == "" {
		for _, col := range tbl.Columns {
			if col != s.DateCol && col != s.GeoidCol {
				valueCol = col
				break
			}
		}
	}
	if valueCol == "" || !tbl.HasColumn(valueCol) {
		return nil, eris.Errorf("measure: year %d has no value column %q", year, valueCol)
	}

	y := &Year{Year: year, ValueCol: valueCol, index: make(map[string]float64, tbl.Len())}
	for i := 0; i < tbl.Len(); i++ {
		d, ok := parseDate(tbl.Cell(i, s.DateCol))
		if !ok {
			y.Skipped++
			continue
		}
		g := geoid.Pad(tbl.Cell(i, s.GeoidCol), s.GeoidWidth)
		if g == "" {
			y.Skipped++
			continue
		}
		raw := strings.TrimSpace(tbl.Cell(i, valueCol))
		if raw == "" {
			continue // genuinely missing measurement, not malformed
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			y.Skipped++
			continue
		}
		y.index[key(g, d)] = v
	}
	return y, nil
}

// indexWide melts a wide file: the first column holds dates, every other
// column is a GEOID.
func indexWide(tbl *tabular.Table, year int, s Schema) (*Year, error) {
	if len(tbl.Columns) < 2 {
		return nil, eris.Errorf("measure: year %d file is neither long nor wide format", year)
	}

	dateCol := tbl.Columns[0]
	geoids := make([]string, len(tbl.Columns))
	for j := 1; j < len(tbl.Columns); j++ {
		geoids[j] = geoid.Pad(tbl.Columns[j], s.GeoidWidth)
	}

	valueCol := s.ValueCol
	if valueCol == "" {
		valueCol = "value"
	}
	y := &Year{Year: year, ValueCol: valueCol, index: make(map[string]float64, tbl.Len()*(len(tbl.Columns)-1))}

	for i := 0; i < tbl.Len(); i++ {
		d, ok := parseDate(tbl.Cell(i, dateCol))
		if !ok {
			y.Skipped++
			continue
		}
		for j := 1; j < len(tbl.Columns); j++ {
			if geoids[j] == "" {
				continue
			}
			raw := strings.TrimSpace(tbl.Cell(i, tbl.Columns[j]))
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				y.Skipped++
				continue
			}
			y.index[key(geoids[j], d)] = v
		}
	}
	return y, nil
}

var measureDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"20060102",
}

func parseDate(raw string) (time.Time, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range measureDateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
