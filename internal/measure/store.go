package measure

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrYearUnavailable means no source file exists for the requested year.
// Callers recover it as a no-data outcome, not a pipeline abort.
var ErrYearUnavailable = eris.New("measure: year unavailable")

// Store maps calendar years to lazily loaded measurement tables. Loaded
// years are shared read-only across concurrent lag workers; each year's
// load is guarded so it happens at most once even under concurrent
// first access. Entries are never evicted within a run.
type Store struct {
	schema  Schema
	sources map[int]string

	mu    sync.Mutex
	years map[int]*yearEntry
	loads atomic.Int64
}

type yearEntry struct {
	once sync.Once
	year *Year
	err  error
}

var yearToken = regexp.MustCompile(`(19|20)\d{2}`)

// NewStore scans dir for measurement files, one per calendar year. The
// year comes from the leading filename token (e.g. 2012_heat_index.csv)
// or, failing that, the first 4-digit year anywhere in the name. contains
// filters to filenames containing that substring ("" keeps everything).
func NewStore(dir string, contains string, s Schema) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrap(err, "measure: read measurement dir")
	}

	st := &Store{
		schema:  s,
		sources: make(map[int]string),
		years:   make(map[int]*yearEntry),
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		if contains != "" && !strings.Contains(name, contains) {
			continue
		}
		year, ok := fileYear(name)
		if !ok {
			continue
		}
		st.sources[year] = filepath.Join(dir, name)
	}

	if len(st.sources) == 0 {
		return nil, eris.Errorf("measure: no measurement files found in %s", dir)
	}

	zap.L().Info("measurement store initialized",
		zap.String("component", "measure.store"),
		zap.String("dir", dir),
		zap.Int("years", len(st.sources)),
	)
	return st, nil
}

func fileYear(name string) (int, bool) {
	lead, _, _ := strings.Cut(name, "_")
	if y, err := strconv.Atoi(lead); err == nil && y >= 1900 && y <= 2100 {
		return y, true
	}
	if m := yearToken.FindString(name); m != "" {
		y, _ := strconv.Atoi(m)
		return y, true
	}
	return 0, false
}

// Years returns the available years in sorted order.
func (st *Store) Years() []int {
	years := make([]int, 0, len(st.sources))
	for y := range st.sources {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Has reports whether a source exists for the year.
func (st *Store) Has(year int) bool {
	_, ok := st.sources[year]
	return ok
}

// Get returns the measurement table for a year, loading it on first
// access. Concurrent callers for the same uncached year share a single
// load.
func (st *Store) Get(year int) (*Year, error) {
	path, ok := st.sources[year]
	if !ok {
		return nil, eris.Wrapf(ErrYearUnavailable, "year %d", year)
	}

	st.mu.Lock()
	entry, ok := st.years[year]
	if !ok {
		entry = &yearEntry{}
		st.years[year] = entry
	}
	st.mu.Unlock()

	// Load outside the store lock so distinct years load in parallel.
	entry.once.Do(func() {
		st.loads.Add(1)
		entry.year, entry.err = LoadYear(path, year, st.schema)
	})
	return entry.year, entry.err
}

// Preload eagerly loads the given years in parallel. Years without a
// source are returned as unavailable, not errors; Preload fails only
// when not a single requested year could be loaded.
func (st *Store) Preload(ctx context.Context, years []int) (unavailable []int, err error) {
	log := zap.L().With(zap.String("component", "measure.store"))

	var wanted []int
	for _, y := range years {
		if st.Has(y) {
			wanted = append(wanted, y)
		} else {
			unavailable = append(unavailable, y)
		}
	}
	sort.Ints(unavailable)

	if len(wanted) == 0 {
		return unavailable, eris.Errorf("measure: none of the %d required years have a source file", len(years))
	}

	var loaded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, year := range wanted {
		year := year
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if _, err := st.Get(year); err != nil {
				log.Warn("preload failed for year", zap.Int("year", year), zap.Error(err))
				return nil // individual year failures surface per-lookup
			}
			loaded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return unavailable, eris.Wrap(err, "measure: preload")
	}
	if loaded.Load() == 0 {
		return unavailable, eris.New("measure: no required year could be loaded")
	}

	log.Info("measurement years preloaded",
		zap.Int("loaded", int(loaded.Load())),
		zap.Ints("unavailable", unavailable),
	)
	return unavailable, nil
}

// Lookup resolves the year from date, fetches that year's table and
// queries it. ErrYearUnavailable is recoverable by the caller.
func (st *Store) Lookup(geoid string, date time.Time) (Value, error) {
	y, err := st.Get(date.Year())
	if err != nil {
		return NoData, err
	}
	return y.Lookup(geoid, date), nil
}

// LoadCount reports how many year loads actually ran. Test hook for the
// load-at-most-once guarantee.
func (st *Store) LoadCount() int64 { return st.loads.Load() }

// Reset drops all cached years. Callers may clear between batches; it
// must not be called concurrently with lookups.
func (st *Store) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.years = make(map[int]*yearEntry)
}
