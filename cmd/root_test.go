package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-geo/linkdata/internal/tabular"
)

func TestRootCmd_Metadata(t *testing.T) {
	assert.Equal(t, "linkdata", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSubcommands_Registered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"link", "convert", "inspect", "runs"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestConvertCmd_WideToLong(t *testing.T) {
	testConfig(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "2013_heat_wide.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"Date,6083000100,6083002402\n"+
			"2013-06-01,80.1,82.5\n"+
			"2013-06-02,79.0,\n"), 0o644))
	output := filepath.Join(dir, "2013_heat_long.csv")

	convertInput = input
	convertOutput = output
	convertValueName = "HeatIndex"

	convertCmd.SetContext(context.Background())
	require.NoError(t, convertCmd.RunE(convertCmd, nil))

	long, err := tabular.Read(output)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "GEOID10", "HeatIndex"}, long.Columns)
	// The empty cell is dropped, not emitted as a blank row.
	require.Equal(t, 3, long.Len())
	assert.Equal(t, "06083000100", long.Cell(0, "GEOID10"))
	assert.Equal(t, "82.5", long.Cell(1, "HeatIndex"))
}

func TestInspectCmd_Summary(t *testing.T) {
	testConfig(t)
	dir := t.TempDir()

	history := filepath.Join(dir, "moves.csv")
	require.NoError(t, os.WriteFile(history, []byte(
		"hhidpn,trmove_tr,mvyear,mvmonth,LINKCEN2010,year\n"+
			"3010,999.0,2010,,6083000100,2010\n"+
			"3010,1. move,2015,6,6083002402,2016\n"), 0o644))

	inspectHistory = history
	inspectSamples = 5

	var buf bytes.Buffer
	inspectCmd.SetOut(&buf)
	inspectCmd.SetContext(context.Background())
	require.NoError(t, inspectCmd.RunE(inspectCmd, nil))

	out := buf.String()
	assert.Contains(t, out, "persons:          1")
	assert.Contains(t, out, "moves:            1")
	assert.Contains(t, out, "3010: 2 residences")
	assert.Contains(t, out, "06083000100")
}

func TestRunsCmd_Empty(t *testing.T) {
	testConfig(t)

	runsLimit = 10
	var buf bytes.Buffer
	runsCmd.SetOut(&buf)
	runsCmd.SetContext(context.Background())
	require.NoError(t, runsCmd.RunE(runsCmd, nil))

	assert.Contains(t, buf.String(), "no recorded runs")
}
