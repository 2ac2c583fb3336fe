package measure

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func measureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "2014_heat_index.csv",
		"Date,GEOID10,HeatIndex\n2014-08-01,6083000100,91.2\n")
	writeFile(t, dir, "2015_heat_index.csv",
		"Date,GEOID10,HeatIndex\n2015-01-01,6083000100,55.2\n")
	writeFile(t, dir, "notes.txt", "not a measurement file")
	return dir
}

func TestNewStore_ScansYears(t *testing.T) {
	st, err := NewStore(measureDir(t), "heat_index", DefaultSchema())
	require.NoError(t, err)

	assert.Equal(t, []int{2014, 2015}, st.Years())
	assert.True(t, st.Has(2014))
	assert.False(t, st.Has(2012))
	assert.Zero(t, st.LoadCount())
}

func TestNewStore_EmptyDir(t *testing.T) {
	_, err := NewStore(t.TempDir(), "", DefaultSchema())
	assert.Error(t, err)
}

func TestNewStore_ContainsFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2015_heat_index.csv", "Date,GEOID10,HeatIndex\n2015-01-01,1,2\n")
	writeFile(t, dir, "2015_pm25.csv", "Date,GEOID10,pm25\n2015-01-01,1,2\n")

	st, err := NewStore(dir, "pm25", DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, []int{2015}, st.Years())
}

func TestGet_LoadsOnceAcrossConcurrentCallers(t *testing.T) {
	st, err := NewStore(measureDir(t), "heat_index", DefaultSchema())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			y, err := st.Get(2015)
			assert.NoError(t, err)
			assert.NotNil(t, y)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), st.LoadCount())

	// A repeated explicit preload adds no further load.
	_, err = st.Preload(context.Background(), []int{2015})
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.LoadCount())
}

func TestGet_YearUnavailable(t *testing.T) {
	st, err := NewStore(measureDir(t), "heat_index", DefaultSchema())
	require.NoError(t, err)

	_, err = st.Get(2012)
	assert.True(t, eris.Is(err, ErrYearUnavailable))
}

func TestPreload_ReportsUnavailableYears(t *testing.T) {
	st, err := NewStore(measureDir(t), "heat_index", DefaultSchema())
	require.NoError(t, err)

	unavailable, err := st.Preload(context.Background(), []int{2012, 2014, 2015})
	require.NoError(t, err)
	assert.Equal(t, []int{2012}, unavailable)
	assert.Equal(t, int64(2), st.LoadCount())
}

func TestPreload_AllYearsMissingIsFatal(t *testing.T) {
	st, err := NewStore(measureDir(t), "heat_index", DefaultSchema())
	require.NoError(t, err)

	_, err = st.Preload(context.Background(), []int{2001, 2002})
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	st, err := NewStore(measureDir(t), "heat_index", DefaultSchema())
	require.NoError(t, err)

	v, err := st.Lookup("06083000100", date(2014, 8, 1))
	require.NoError(t, err)
	require.True(t, v.Valid)
	assert.Equal(t, 91.2, v.Float)

	// Loaded year, absent key: NoData without error.
	v, err = st.Lookup("06083000100", date(2014, 8, 2))
	require.NoError(t, err)
	assert.False(t, v.Valid)

	// Unavailable year surfaces the recoverable sentinel.
	_, err = st.Lookup("06083000100", date(2012, 8, 1))
	assert.True(t, eris.Is(err, ErrYearUnavailable))
}

func TestReset(t *testing.T) {
	st, err := NewStore(measureDir(t), "heat_index", DefaultSchema())
	require.NoError(t, err)

	_, err = st.Get(2014)
	require.NoError(t, err)
	st.Reset()
	_, err = st.Get(2014)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.LoadCount())
}

func TestFileYear(t *testing.T) {
	cases := []struct {
		name string
		want int
		ok   bool
	}{
		{"2012_heat_index.csv", 2012, true},
		{"pm25_2018_daily.csv", 2018, true},
		{"heat_index.csv", 0, false},
	}
	for _, c := range cases {
		got, ok := fileYear(c.name)
		assert.Equal(t, c.ok, ok, c.name)
		if ok {
			assert.Equal(t, c.want, got, c.name)
		}
	}
}
