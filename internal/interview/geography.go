package interview

import (
	"time"

	"github.com/survey-geo/linkdata/internal/residence"
)

// GeographySource resolves the GEOID in effect for a person on a date.
// Two implementations exist: move-history backed and static-snapshot
// backed. The lag resolver never branches on which mode is active.
type GeographySource interface {
	ResolveGeoid(personID string, date time.Time) (string, error)
}

// HistorySource resolves geography from a residential move history.
type HistorySource struct {
	Index *residence.HistoryIndex
}

func (s HistorySource) ResolveGeoid(personID string, date time.Time) (string, error) {
	return s.Index.Lookup(personID, date)
}

// SnapshotSource resolves geography from the interview table's static
// reference-year snapshots: the snapshot whose reference year is closest
// to the query date's year wins, ties broken toward the earlier year.
type SnapshotSource struct {
	Table *Table
}

func (s SnapshotSource) ResolveGeoid(personID string, date time.Time) (string, error) {
	rec, ok := s.Table.Record(personID)
	if !ok {
		return "", residence.ErrUnknownPerson
	}
	if len(rec.Snapshots) == 0 {
		return "", ErrNoGeography
	}

	target := date.Year()
	bestYear, bestDist := 0, -1
	for year := range rec.Snapshots {
		dist := target - year
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && year < bestYear) {
			bestYear, bestDist = year, dist
		}
	}
	return rec.Snapshots[bestYear], nil
}
