// Package linkcheck verifies the citations in converted charity data. Every
// distinct cited URL is fetched once and given a verdict, and the run is
// written out as JSON and Markdown reports.
package linkcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/uabbasi/good-measure-giving/internal/fetch"
	"github.com/uabbasi/good-measure-giving/internal/log"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

const defaultWorkers = 8

// Verdict classifies one checked URL.
type Verdict string

// Verdicts, best first.
const (
	VerdictOK          Verdict = "ok"
	VerdictRedirected  Verdict = "redirected"
	VerdictBroken      Verdict = "broken"
	VerdictUnreachable Verdict = "unreachable"
)

// CitedBy names one citation pointing at a URL.
type CitedBy struct {
	EIN   string `json:"ein"`
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// Result is the verdict for one distinct URL.
type Result struct {
	URL        string    `json:"url"`
	FinalURL   string    `json:"finalUrl,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Title      string    `json:"title,omitempty"`
	Verdict    Verdict   `json:"verdict"`
	Error      string    `json:"error,omitempty"`
	CitedBy    []CitedBy `json:"citedBy"`
}

// Options configure a link check run.
type Options struct {
	// DataDir is the converted data dir holding charities/charity-*.json.
	DataDir string
	// OutputDir receives linkcheck.json and linkcheck.md. Empty skips the
	// report files.
	OutputDir string
	// Workers bounds parallel fetches. Zero means the default.
	Workers int
	// UseBrowser renders pages whose static HTML is effectively empty in a
	// headless browser before judging them.
	UseBrowser bool
	// Timeout is the per-request timeout. Zero means the fetch default.
	Timeout time.Duration
}

// Run checks every citation under opts.DataDir and writes the reports.
// Fetches run in parallel, but never two against the same host at once.
func Run(ctx context.Context, opts Options) (*Report, error) {
	logger := log.WithComponent("linkcheck")

	profiles, err := loadProfiles(opts.DataDir, logger)
	if err != nil {
		return nil, err
	}

	urls, citedBy := gatherCitations(profiles)
	logger.Info().Int("charities", len(profiles)).Int("urls", len(urls)).Msg("checking citations")

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}

	results := make([]Result, len(urls))
	hosts := newHostLocker()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range urls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			unlock := hosts.lock(hostOf(u))
			defer unlock()

			results[i] = checkURL(gctx, u, timeout, opts.UseBrowser, logger)
			results[i].CitedBy = citedBy[u]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })

	report := &Report{
		CheckedAt: time.Now().UTC(),
		Charities: len(profiles),
		Results:   results,
	}
	for _, r := range results {
		switch r.Verdict {
		case VerdictOK:
			report.OK++
		case VerdictRedirected:
			report.Redirected++
		case VerdictBroken:
			report.Broken++
		case VerdictUnreachable:
			report.Unreachable++
		}
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
			return report, fmt.Errorf("failed to create output dir: %w", err)
		}
		if err := report.WriteJSON(filepath.Join(opts.OutputDir, "linkcheck.json")); err != nil {
			return report, err
		}
		if err := report.WriteMarkdown(filepath.Join(opts.OutputDir, "linkcheck.md")); err != nil {
			return report, err
		}
	}

	logger.Info().
		Int("ok", report.OK).
		Int("redirected", report.Redirected).
		Int("broken", report.Broken).
		Int("unreachable", report.Unreachable).
		Msg("link check finished")
	return report, nil
}

// checkURL fetches one URL and classifies the outcome. Transport failures
// are unreachable, non-200 statuses broken, redirect landings redirected.
func checkURL(ctx context.Context, rawURL string, timeout time.Duration, useBrowser bool, logger zerolog.Logger) Result {
	result := Result{URL: rawURL}

	fetched, err := fetch.URL(ctx, rawURL, &fetch.Options{Timeout: timeout, UserAgent: fetch.DefaultUserAgent})
	if fetched == nil {
		result.Verdict = VerdictUnreachable
		if err != nil {
			result.Error = err.Error()
		}
		logger.Warn().Str("url", rawURL).Msg("citation unreachable")
		return result
	}

	result.StatusCode = fetched.StatusCode
	result.FinalURL = fetched.FinalURL
	result.Title, _ = fetch.Title(fetched.HTML)

	if fetched.StatusCode != http.StatusOK {
		result.Verdict = VerdictBroken
		if err != nil {
			result.Error = err.Error()
		}
		logger.Warn().Str("url", rawURL).Int("status", fetched.StatusCode).Msg("citation broken")
		return result
	}

	if useBrowser {
		if text, terr := fetch.VisibleText(fetched.HTML); terr == nil && fetch.ShouldUseBrowser(text) {
			if html, rerr := fetch.Render(ctx, rawURL, timeout); rerr == nil {
				if title, herr := fetch.Title(html); herr == nil && title != "" {
					result.Title = title
				}
			} else {
				logger.Warn().Err(rerr).Str("url", rawURL).Msg("browser render failed, keeping static result")
			}
		}
	}

	if fetched.Redirected() {
		result.Verdict = VerdictRedirected
	} else {
		result.Verdict = VerdictOK
	}
	return result
}

// loadProfiles reads every converted charity profile under dir. Files that
// fail to decode are logged and skipped; a data bug should not stop QA on
// the rest of the catalog.
func loadProfiles(dir string, logger zerolog.Logger) ([]*types.CharityProfile, error) {
	files, err := filepath.Glob(filepath.Join(dir, "charities", "charity-*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list data dir: %w", err)
	}
	sort.Strings(files)

	profiles := make([]*types.CharityProfile, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(file), err)
		}
		var p types.CharityProfile
		if err := json.Unmarshal(data, &p); err != nil {
			logger.Warn().Err(err).Str("file", file).Msg("skipping undecodable profile")
			continue
		}
		profiles = append(profiles, &p)
	}
	return profiles, nil
}

// gatherCitations collects the distinct cited URLs in first-seen order plus
// the citations pointing at each.
func gatherCitations(profiles []*types.CharityProfile) ([]string, map[string][]CitedBy) {
	var urls []string
	citedBy := make(map[string][]CitedBy)
	for _, p := range profiles {
		if p.Evaluation == nil {
			continue
		}
		for _, src := range p.Evaluation.Sources {
			if src.URL == "" {
				continue
			}
			if _, seen := citedBy[src.URL]; !seen {
				urls = append(urls, src.URL)
			}
			citedBy[src.URL] = append(citedBy[src.URL], CitedBy{
				EIN:   p.EIN,
				Name:  p.Name,
				Index: src.Index,
			})
		}
	}
	return urls, citedBy
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.ToLower(u.Host)
}

// hostLocker serializes fetches per host so the checker never hammers one
// site from several workers.
type hostLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newHostLocker() *hostLocker {
	return &hostLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *hostLocker) lock(host string) func() {
	l.mu.Lock()
	m, ok := l.locks[host]
	if !ok {
		m = &sync.Mutex{}
		l.locks[host] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
