// Package catalog keeps the converted charity data in memory and serves
// lookups for the API. The data dir is the source of truth; the catalog
// reloads it on demand or when the watcher sees it change.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/uabbasi/good-measure-giving/internal/log"
	"github.com/uabbasi/good-measure-giving/internal/metrics"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// List paging bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Catalog serves charity lookups from an in-memory snapshot of the data dir.
type Catalog struct {
	dir    string
	logger zerolog.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// snapshot is one immutable load of the data dir. Reloads build a fresh
// snapshot and swap the pointer; readers never see a half-loaded catalog.
type snapshot struct {
	summaries []types.CharitySummary
	profiles  map[string]*types.CharityProfile
}

// New creates a catalog over a converted data dir. Call Load before serving.
func New(dir string) *Catalog {
	return &Catalog{
		dir:    dir,
		logger: log.WithComponent("catalog"),
		snap:   &snapshot{profiles: map[string]*types.CharityProfile{}},
	}
}

// Load reads charities.json and every charity profile under the data dir
// and swaps the in-memory snapshot. Individually corrupt profile files are
// skipped with a warning; a missing index file is an empty catalog, an
// unreadable one fails the load and keeps the previous snapshot.
func (c *Catalog) Load() error {
	snap, err := c.read()
	if err != nil {
		metrics.CatalogReloads.WithLabelValues("error").Inc()
		return err
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	metrics.CatalogReloads.WithLabelValues("success").Inc()
	metrics.CatalogCharities.Set(float64(len(snap.profiles)))
	c.logger.Info().Int("charities", len(snap.profiles)).Str("dir", c.dir).Msg("catalog loaded")
	return nil
}

func (c *Catalog) read() (*snapshot, error) {
	snap := &snapshot{profiles: map[string]*types.CharityProfile{}}

	indexPath := filepath.Join(c.dir, "charities.json")
	indexData, err := os.ReadFile(indexPath)
	switch {
	case os.IsNotExist(err):
		// Nothing converted yet. An empty catalog is a valid state.
		return snap, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read catalog index: %w", err)
	}
	if err := json.Unmarshal(indexData, &snap.summaries); err != nil {
		return nil, fmt.Errorf("failed to decode catalog index: %w", err)
	}

	sort.Slice(snap.summaries, func(i, j int) bool {
		ni, nj := strings.ToLower(snap.summaries[i].Name), strings.ToLower(snap.summaries[j].Name)
		if ni != nj {
			return ni < nj
		}
		return snap.summaries[i].EIN < snap.summaries[j].EIN
	})

	files, err := filepath.Glob(filepath.Join(c.dir, "charities", "charity-*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list charity files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			c.logger.Warn().Err(err).Str("file", file).Msg("skipping unreadable profile")
			continue
		}
		var p types.CharityProfile
		if err := json.Unmarshal(data, &p); err != nil {
			c.logger.Warn().Err(err).Str("file", file).Msg("skipping undecodable profile")
			continue
		}
		ein, err := types.NormalizeEIN(p.EIN)
		if err != nil {
			c.logger.Warn().Err(err).Str("file", file).Msg("skipping profile with bad EIN")
			continue
		}
		if _, dup := snap.profiles[ein]; dup {
			c.logger.Warn().Str("ein", ein).Str("file", file).Msg("duplicate ein, keeping later file")
		}
		p.EIN = ein
		snap.profiles[ein] = &p
	}

	return snap, nil
}

// Len returns the number of loaded charities.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snap.profiles)
}

// Get returns the full profile for an EIN, accepting dashed or spaced input.
func (c *Catalog) Get(ein string) (*types.CharityProfile, bool) {
	canonical, err := types.NormalizeEIN(ein)
	if err != nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.snap.profiles[canonical]
	return p, ok
}

// Filter selects and pages catalog listings.
type Filter struct {
	// Query matches name or mission, case-insensitive substring.
	Query string
	// Cause and Country match exactly, case-insensitive.
	Cause   string
	Country string

	Limit  int
	Offset int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}

// matches reports whether one summary passes the filter.
func (f Filter) matches(s types.CharitySummary) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(s.Name), q) &&
			!strings.Contains(strings.ToLower(s.Mission), q) {
			return false
		}
	}
	if f.Cause != "" {
		found := false
		for _, cause := range s.Causes {
			if strings.EqualFold(cause, f.Cause) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Country != "" && !strings.EqualFold(s.Country, f.Country) {
		return false
	}
	return true
}

// List returns one page of catalog summaries plus the total number of
// matches. Order is stable: name, then EIN.
func (c *Catalog) List(f Filter) ([]types.CharitySummary, int) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	matched := make([]types.CharitySummary, 0, len(snap.summaries))
	for _, s := range snap.summaries {
		if f.matches(s) {
			matched = append(matched, s)
		}
	}

	total := len(matched)
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []types.CharitySummary{}, total
	}
	end := offset + f.limit()
	if end > total {
		end = total
	}
	return matched[offset:end], total
}
