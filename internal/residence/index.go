package residence

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// HistoryIndex maps person id to residence timeline. It is built once
// from the parsed move records and is read-only afterwards, so concurrent
// lookups from multiple lag workers need no locking.
type HistoryIndex struct {
	timelines map[string]*Timeline
}

// BuildIndex groups move records by person and builds one timeline each.
// Persons whose records cannot form a timeline are skipped and logged,
// never fatal.
func BuildIndex(records []MoveRecord) *HistoryIndex {
	log := zap.L().With(zap.String("component", "residence.index"))

	byPerson := make(map[string][]MoveRecord)
	for _, r := range records {
		byPerson[r.PersonID] = append(byPerson[r.PersonID], r)
	}

	ix := &HistoryIndex{timelines: make(map[string]*Timeline, len(byPerson))}
	for pid, recs := range byPerson {
		tl, err := NewTimeline(recs)
		if err != nil {
			log.Warn("skipping person with unusable history",
				zap.String("person", pid),
				zap.Error(err),
			)
			continue
		}
		ix.timelines[pid] = tl
	}

	log.Info("residence history indexed",
		zap.Int("persons", len(ix.timelines)),
		zap.Int("records", len(records)),
	)
	return ix
}

// Lookup resolves the GEOID for a person on a date.
func (ix *HistoryIndex) Lookup(personID string, date time.Time) (string, error) {
	tl, ok := ix.timelines[personID]
	if !ok {
		return "", ErrUnknownPerson
	}
	return tl.Resolve(date)
}

// Timeline returns the timeline for a person, if present.
func (ix *HistoryIndex) Timeline(personID string) (*Timeline, bool) {
	tl, ok := ix.timelines[personID]
	return tl, ok
}

// Persons returns the number of indexed persons.
func (ix *HistoryIndex) Persons() int { return len(ix.timelines) }

// PersonIDs returns all indexed person ids in sorted order.
func (ix *HistoryIndex) PersonIDs() []string {
	ids := make([]string, 0, len(ix.timelines))
	for id := range ix.timelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
