// Package residence parses respondent-level residential move history and
// resolves the census-tract GEOID in effect for a person on any date.
package residence

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

var (
	// ErrEmptyHistory means a timeline was requested for a person with no
	// usable move records.
	ErrEmptyHistory = eris.New("residence: empty move history")
	// ErrNoCoverage means the queried date precedes the earliest known
	// residence for the person.
	ErrNoCoverage = eris.New("residence: date precedes earliest residence")
	// ErrUnknownPerson means the person does not appear in the history index.
	ErrUnknownPerson = eris.New("residence: unknown person")
)

// MoveRecord is one parsed row of the move-history source: either a
// first-tract baseline record or a dated move.
type MoveRecord struct {
	PersonID      string
	Seq           int // source row order, used as the tie-break
	EffectiveFrom time.Time
	Geoid         string
	FirstTract    bool
}

type entry struct {
	from  time.Time
	geoid string
}

// Timeline is one person's residence history as an immutable step
// function: a sorted slice of (effective-from, geoid) pairs with strictly
// increasing dates. Intervals are closed on the left; the final entry is
// open-ended.
type Timeline struct {
	entries []entry
}

// NewTimeline builds a timeline from a person's move records. Records are
// ordered first-tract first, then by effective date; two records landing
// on the identical effective date collapse to the later-sequenced one.
func NewTimeline(records []MoveRecord) (*Timeline, error) {
	if len(records) == 0 {
		return nil, ErrEmptyHistory
	}

	sorted := make([]MoveRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
			return a.EffectiveFrom.Before(b.EffectiveFrom)
		}
		if a.FirstTract != b.FirstTract {
			return a.FirstTract
		}
		return a.Seq < b.Seq
	})

	t := &Timeline{entries: make([]entry, 0, len(sorted))}
	for _, r := range sorted {
		e := entry{from: r.EffectiveFrom, geoid: r.Geoid}
		n := len(t.entries)
		if n > 0 && t.entries[n-1].from.Equal(e.from) {
			// Same effective date: last-sequenced record wins.
			t.entries[n-1] = e
			continue
		}
		t.entries = append(t.entries, e)
	}

	return t, nil
}

// Resolve returns the GEOID in effect on date: the geoid of the last
// entry whose effective date is <= date. Dates at or after the final
// entry resolve to that entry's geoid indefinitely.
func (t *Timeline) Resolve(date time.Time) (string, error) {
	// First index whose effective date is after the query date.
	idx := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].from.After(date)
	})
	if idx == 0 {
		return "", ErrNoCoverage
	}
	return t.entries[idx-1].geoid, nil
}

// ResolveMany resolves a batch of dates, aligned 1:1 with the input.
// Dates with no coverage yield the empty string rather than an error, so
// callers can vectorize over sparse histories.
func (t *Timeline) ResolveMany(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		g, err := t.Resolve(d)
		if err != nil {
			continue
		}
		out[i] = g
	}
	return out
}

// Len returns the number of distinct residence intervals.
func (t *Timeline) Len() int { return len(t.entries) }

// Span returns the first and last effective dates of the timeline.
func (t *Timeline) Span() (first, last time.Time) {
	return t.entries[0].from, t.entries[len(t.entries)-1].from
}

// FirstGeoid returns the baseline residence geoid.
func (t *Timeline) FirstGeoid() string { return t.entries[0].geoid }

// LastGeoid returns the geoid of the open-ended final residence.
func (t *Timeline) LastGeoid() string { return t.entries[len(t.entries)-1].geoid }
