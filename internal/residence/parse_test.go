package residence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-geo/linkdata/internal/tabular"
)

func historyTable(rows ...[]string) *tabular.Table {
	t := tabular.NewTable([]string{"hhidpn", "trmove_tr", "mvyear", "mvmonth", "LINKCEN2010", "year"})
	for _, r := range rows {
		t.AppendRow(r)
	}
	return t
}

func TestParseHistory_FirstTractAndMoves(t *testing.T) {
	tbl := historyTable(
		[]string{"3010", "999.0", "2010", "", "6083000100", "2010"},
		[]string{"3010", "1. move", "2015", "6", "6083002402", "2016"},
		[]string{"3010", "0. no move", "", "", "6083002402", "2018"},
	)

	records, report, err := ParseHistory(tbl, DefaultSchema())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Persons)
	assert.Equal(t, 1, report.Moves)
	assert.Equal(t, 0, report.SkippedPersons)
	require.Len(t, records, 2)

	first := records[0]
	assert.True(t, first.FirstTract)
	assert.Equal(t, date(2010, 1, 1), first.EffectiveFrom)
	// GEOIDs are zero-padded to 11 characters.
	assert.Equal(t, "06083000100", first.Geoid)

	move := records[1]
	assert.False(t, move.FirstTract)
	assert.Equal(t, date(2015, 6, 1), move.EffectiveFrom)
	assert.Equal(t, "06083002402", move.Geoid)
}

func TestParseHistory_FirstTractFallsBackToSurveyYear(t *testing.T) {
	tbl := historyTable(
		[]string{"5", "999", "", "", "6083000100", "2012"},
	)

	records, report, err := ParseHistory(tbl, DefaultSchema())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, date(2012, 1, 1), records[0].EffectiveFrom)
	assert.Equal(t, 1, report.Persons)
}

func TestParseHistory_PersonWithoutFirstTractSkipped(t *testing.T) {
	tbl := historyTable(
		[]string{"7", "1. move", "2014", "3", "6083000100", "2014"},
	)

	records, report, err := ParseHistory(tbl, DefaultSchema())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, report.SkippedPersons)
}

func TestParseHistory_BadRowsCounted(t *testing.T) {
	tbl := historyTable(
		[]string{"9", "999.0", "2010", "", "6083000100", "2010"},
		[]string{"9", "1. move", "", "", "6083002402", ""},   // no move year
		[]string{"9", "1. move", "2016", "2", ".", "2016"},   // missing geoid
		[]string{"", "999.0", "2010", "", "6083000100", ""},  // blank person id
	)

	records, report, err := ParseHistory(tbl, DefaultSchema())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, report.SkippedRows)
}

func TestParseHistory_FloatRenderedCells(t *testing.T) {
	// Exported survey files often render integers as floats.
	tbl := historyTable(
		[]string{"11", "999.0", "2010.0", "", "6083000100.0", "2010.0"},
		[]string{"11", "1. move", "2015.0", "6.0", "6083002402.0", "2016.0"},
	)

	records, _, err := ParseHistory(tbl, DefaultSchema())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "06083000100", records[0].Geoid)
	assert.Equal(t, date(2015, 6, 1), records[1].EffectiveFrom)
}

func TestParseHistory_MissingRequiredColumn(t *testing.T) {
	tbl := tabular.NewTable([]string{"hhidpn", "mvyear"})
	_, _, err := ParseHistory(tbl, DefaultSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestParseHistory_RepeatedFirstTractKeepsFirst(t *testing.T) {
	tbl := historyTable(
		[]string{"13", "999.0", "2010", "", "6083000100", "2010"},
		[]string{"13", "999.0", "2012", "", "6083999999", "2012"},
	)

	records, _, err := ParseHistory(tbl, DefaultSchema())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "06083000100", records[0].Geoid)
}
