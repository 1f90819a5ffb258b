package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRawRecord(t *testing.T, dir, name string, overrides map[string]any) {
	t.Helper()
	record := map[string]any{
		"schema_version": 2,
		"ein":            "13-1837418",
		"name":           "Direct Relief",
		"mission":        "Improve the health of people affected by poverty or emergencies.",
		"website":        "https://www.directrelief.org",
		"causes":         []string{"health"},
		"country":        "US",
		"scores": map[string]any{
			"impact":     8.5,
			"alignment":  7.2,
			"confidence": 0.8,
		},
		"narratives": map[string]any{
			"summary": "Strong track record of medical aid delivery [1].",
		},
		"sources": []map[string]any{
			{"index": 1, "title": "Annual report", "url": "https://www.directrelief.org", "kind": "annual_report"},
		},
	}
	for k, v := range overrides {
		record[k] = v
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"serve", "convert", "checklinks", "validate", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestConvertThenValidate(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	writeRawRecord(t, inDir, "direct-relief.json", nil)
	writeRawRecord(t, inDir, "zakat.json", map[string]any{
		"ein":  "95-4425447",
		"name": "Zakat Foundation",
	})

	convertInput = inDir
	convertOutput = outDir
	convertWorkers = 0
	convertCmd.SetContext(context.Background())
	require.NoError(t, runConvert(convertCmd, nil))

	// The converted output validates against the public profile schema.
	validateRaw = false
	require.NoError(t, runValidate(validateCmd, []string{outDir}))

	// The raw input validates against the raw schema.
	validateRaw = true
	defer func() { validateRaw = false }()
	require.NoError(t, runValidate(validateCmd, []string{inDir}))
}

func TestConvertReportsFailure(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	writeRawRecord(t, inDir, "missing-name.json", map[string]any{"name": ""})

	convertInput = inDir
	convertOutput = outDir

	// Empty names are rejected at validation: skipped, not fatal.
	convertCmd.SetContext(context.Background())
	require.NoError(t, runConvert(convertCmd, nil))

	_, err := os.Stat(filepath.Join(outDir, "charities.json"))
	require.NoError(t, err)
}

func TestValidateFlagsBadProfile(t *testing.T) {
	dataDir := t.TempDir()
	charityDir := filepath.Join(dataDir, "charities")
	require.NoError(t, os.MkdirAll(charityDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(charityDir, "charity-000000000.json"),
		[]byte(`{"ein": "not-an-ein"}`), 0o644))

	validateRaw = false
	err := runValidate(validateCmd, []string{dataDir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed validation")
}
