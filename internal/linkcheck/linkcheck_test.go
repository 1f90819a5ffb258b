package linkcheck

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

func writeProfile(t *testing.T, dataDir string, profile *types.CharityProfile) {
	t.Helper()
	dir := filepath.Join(dataDir, "charities")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal(profile)
	require.NoError(t, err)
	path := filepath.Join(dir, "charity-"+profile.EIN+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// deadEndpoint returns a URL on a port that was just closed, so connecting
// to it fails.
func deadEndpoint(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr + "/gone"
}

func TestRunChecksEveryDistinctURL(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Direct Relief Annual Report</title></head><body><p>report</p></body></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
	})

	dead := deadEndpoint(t)
	dataDir := t.TempDir()
	outDir := t.TempDir()

	writeProfile(t, dataDir, &types.CharityProfile{
		EIN:  "131837418",
		Name: "Direct Relief",
		Evaluation: &types.AmalEvaluation{
			Sources: []types.Citation{
				{Index: 1, URL: server.URL + "/ok"},
				{Index: 2, URL: server.URL + "/missing"},
			},
		},
	})
	writeProfile(t, dataDir, &types.CharityProfile{
		EIN:  "954425447",
		Name: "Zakat Foundation",
		Evaluation: &types.AmalEvaluation{
			Sources: []types.Citation{
				{Index: 1, URL: server.URL + "/ok"},
				{Index: 2, URL: server.URL + "/moved"},
				{Index: 3, URL: dead},
			},
		},
	})

	report, err := Run(context.Background(), Options{DataDir: dataDir, OutputDir: outDir, Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Charities)
	assert.Equal(t, 1, report.OK)
	assert.Equal(t, 1, report.Redirected)
	assert.Equal(t, 1, report.Broken)
	assert.Equal(t, 1, report.Unreachable)
	require.Len(t, report.Results, 4)

	byURL := map[string]Result{}
	for _, r := range report.Results {
		byURL[r.URL] = r
	}

	ok := byURL[server.URL+"/ok"]
	assert.Equal(t, VerdictOK, ok.Verdict)
	assert.Equal(t, http.StatusOK, ok.StatusCode)
	assert.Equal(t, "Direct Relief Annual Report", ok.Title)
	require.Len(t, ok.CitedBy, 2)
	assert.Equal(t, "131837418", ok.CitedBy[0].EIN)
	assert.Equal(t, "954425447", ok.CitedBy[1].EIN)

	moved := byURL[server.URL+"/moved"]
	assert.Equal(t, VerdictRedirected, moved.Verdict)
	assert.Equal(t, server.URL+"/ok", moved.FinalURL)

	missing := byURL[server.URL+"/missing"]
	assert.Equal(t, VerdictBroken, missing.Verdict)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	gone := byURL[dead]
	assert.Equal(t, VerdictUnreachable, gone.Verdict)
	assert.NotEmpty(t, gone.Error)

	// Results are sorted for stable reports.
	for i := 1; i < len(report.Results); i++ {
		assert.Less(t, report.Results[i-1].URL, report.Results[i].URL)
	}
}

func TestRunWritesReports(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dataDir := t.TempDir()
	outDir := t.TempDir()
	writeProfile(t, dataDir, &types.CharityProfile{
		EIN:  "131837418",
		Name: "Direct Relief",
		Evaluation: &types.AmalEvaluation{
			Sources: []types.Citation{{Index: 1, URL: server.URL + "/lost"}},
		},
	})

	_, err := Run(context.Background(), Options{DataDir: dataDir, OutputDir: outDir})
	require.NoError(t, err)

	jsonData, err := os.ReadFile(filepath.Join(outDir, "linkcheck.json"))
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, 1, decoded.Broken)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, VerdictBroken, decoded.Results[0].Verdict)

	mdData, err := os.ReadFile(filepath.Join(outDir, "linkcheck.md"))
	require.NoError(t, err)
	md := string(mdData)
	assert.Contains(t, md, "Citation Link Check")
	assert.Contains(t, md, "Problems")
	assert.Contains(t, md, server.URL+"/lost")
	assert.Contains(t, md, "Direct Relief (13-1837418) [1]")
}

func TestRunEmptyDataDir(t *testing.T) {
	outDir := t.TempDir()

	report, err := Run(context.Background(), Options{DataDir: t.TempDir(), OutputDir: outDir})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Charities)
	assert.Empty(t, report.Results)

	mdData, err := os.ReadFile(filepath.Join(outDir, "linkcheck.md"))
	require.NoError(t, err)
	assert.Contains(t, string(mdData), "All citations resolve.")
}

func TestLoadProfilesSkipsCorruptFiles(t *testing.T) {
	dataDir := t.TempDir()
	writeProfile(t, dataDir, &types.CharityProfile{EIN: "131837418", Name: "Direct Relief"})
	corrupt := filepath.Join(dataDir, "charities", "charity-bad.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{nope"), 0o644))

	report, err := Run(context.Background(), Options{DataDir: dataDir})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Charities)
	assert.Empty(t, report.Results)
}

func TestGatherCitationsDeduplicates(t *testing.T) {
	profiles := []*types.CharityProfile{
		{
			EIN: "111111111", Name: "One",
			Evaluation: &types.AmalEvaluation{Sources: []types.Citation{
				{Index: 1, URL: "https://example.org/a"},
				{Index: 2, URL: "https://example.org/b"},
			}},
		},
		{
			EIN: "222222222", Name: "Two",
			Evaluation: &types.AmalEvaluation{Sources: []types.Citation{
				{Index: 1, URL: "https://example.org/a"},
			}},
		},
		{EIN: "333333333", Name: "Three"},
	}

	urls, citedBy := gatherCitations(profiles)
	assert.Equal(t, []string{"https://example.org/a", "https://example.org/b"}, urls)
	require.Len(t, citedBy["https://example.org/a"], 2)
	assert.Equal(t, "111111111", citedBy["https://example.org/a"][0].EIN)
	assert.Equal(t, "222222222", citedBy["https://example.org/a"][1].EIN)
	require.Len(t, citedBy["https://example.org/b"], 1)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "example.org", hostOf("https://Example.ORG/path"))
	assert.Equal(t, "example.org:8080", hostOf("http://example.org:8080/x"))
}
