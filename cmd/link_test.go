package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-geo/linkdata/internal/config"
	"github.com/survey-geo/linkdata/internal/tabular"
)

func TestParseLags(t *testing.T) {
	cases := []struct {
		spec    string
		want    []int
		wantErr bool
	}{
		{spec: "0", want: []int{0}},
		{spec: "0,30,365", want: []int{0, 30, 365}},
		{spec: "30,0,30", want: []int{0, 30}},
		{spec: "0:21:7", want: []int{0, 7, 14, 21}},
		{spec: "0:10:7,30", want: []int{0, 7, 30}},
		{spec: "", wantErr: true},
		{spec: "abc", wantErr: true},
		{spec: "5:1:1", wantErr: true},
		{spec: "0:10:0", wantErr: true},
		{spec: "1:2", wantErr: true},
	}
	for _, c := range cases {
		got, err := parseLags(c.spec)
		if c.wantErr {
			assert.Error(t, err, "spec %q", c.spec)
			continue
		}
		require.NoError(t, err, "spec %q", c.spec)
		assert.Equal(t, c.want, got, "spec %q", c.spec)
	}
}

func TestLinkCmd_Flags(t *testing.T) {
	flags := []struct {
		name     string
		defValue string
	}{
		{"interview", ""},
		{"history", ""},
		{"measures", ""},
		{"lags", "0"},
		{"prefix", "value"},
		{"geography", "auto"},
		{"concurrency", "0"},
		{"keep-lag-dates", "false"},
		{"output", ""},
	}
	for _, f := range flags {
		flag := linkCmd.Flags().Lookup(f.name)
		require.NotNil(t, flag, "link should have --%s flag", f.name)
		assert.Equal(t, f.defValue, flag.DefValue, "flag --%s default value mismatch", f.name)
	}
}

func testConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	c, err := config.Load()
	require.NoError(t, err)
	c.Runlog.Path = filepath.Join(t.TempDir(), "runs.db")
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestLinkCmd_EndToEnd(t *testing.T) {
	testConfig(t)
	dir := t.TempDir()

	interviewPath := filepath.Join(dir, "vbs.csv")
	require.NoError(t, os.WriteFile(interviewPath, []byte(
		"hhidpn,bcdate,LINKCEN2010\n"+
			"3010,2017-01-01,6083002402\n"+
			"3020,2017-01-01,6083000100\n"), 0o644))

	historyPath := filepath.Join(dir, "moves.csv")
	require.NoError(t, os.WriteFile(historyPath, []byte(
		"hhidpn,trmove_tr,mvyear,mvmonth,LINKCEN2010,year\n"+
			"3010,999.0,2010,,6083000100,2010\n"+
			"3010,1. move,2015,6,6083002402,2016\n"+
			"3020,999.0,2010,,6083000100,2010\n"), 0o644))

	measureDir := filepath.Join(dir, "heat")
	require.NoError(t, os.Mkdir(measureDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(measureDir, "2015_heat_index.csv"), []byte(
		"Date,GEOID10,HeatIndex\n"+
			"2015-01-02,6083000100,41.5\n"+
			"2015-01-02,6083002402,99.9\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(measureDir, "2017_heat_index.csv"), []byte(
		"Date,GEOID10,HeatIndex\n"+
			"2017-01-01,6083002402,70.5\n"+
			"2017-01-01,6083000100,68.0\n"), 0o644))

	outputPath := filepath.Join(dir, "linked.csv")
	reportPath := filepath.Join(dir, "report.yaml")

	linkInterview = interviewPath
	linkHistory = historyPath
	linkMeasures = measureDir
	linkMeasureType = ""
	linkMeasureCol = ""
	linkLags = "0,730"
	linkPrefix = "heat"
	linkGeography = "auto"
	linkConcurrency = 2
	linkTimeoutSecs = 0
	linkKeepDates = true
	linkOutput = outputPath
	linkReport = reportPath
	linkNoRunlog = false

	linkCmd.SetContext(context.Background())
	require.NoError(t, linkCmd.RunE(linkCmd, nil))

	out, err := tabular.Read(outputPath)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	// Lag 0 uses the post-move tract for the mover.
	assert.Equal(t, "70.5", out.Cell(0, "heat_0day_prior"))
	// Lag 730 lands at 2015-01-02, before the move: pre-move tract.
	assert.Equal(t, "41.5", out.Cell(0, "heat_730day_prior"))
	assert.Equal(t, "2015-01-02", out.Cell(0, "heat_730day_prior_date"))
	// Non-mover resolves to the baseline tract throughout.
	assert.Equal(t, "68", out.Cell(1, "heat_0day_prior"))

	// Report and run history were written.
	_, err = os.Stat(reportPath)
	assert.NoError(t, err)
	_, err = os.Stat(cfg.Runlog.Path)
	assert.NoError(t, err)
}

func TestLinkCmd_GeographyModeValidation(t *testing.T) {
	testConfig(t)
	linkHistory = ""
	linkGeography = "history"
	_, err := geographySource(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --history")

	linkGeography = "bogus"
	_, err = geographySource(nil)
	assert.Error(t, err)
}
