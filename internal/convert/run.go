package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"

	"github.com/uabbasi/good-measure-giving/internal/log"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

const defaultWorkers = 4

// Options configure a conversion run.
type Options struct {
	// InputDir holds the raw pipeline records, one *.json per charity.
	InputDir string
	// OutputDir receives charities.json and the charities/ subdirectory.
	OutputDir string
	// Workers bounds the parallel record conversions. Zero means the default.
	Workers int
}

// Summary reports one conversion run. Skipped counts records rejected at
// decode or validation; Failed counts I/O problems.
type Summary struct {
	Converted int
	Skipped   int
	Failed    int
}

func (s Summary) String() string {
	return fmt.Sprintf("converted %d, skipped %d, failed %d", s.Converted, s.Skipped, s.Failed)
}

// Run converts every *.json record under opts.InputDir and writes the public
// data dir. Bad input files are counted and skipped, never fatal; unreadable
// files count as failures. Output is deterministic: files are processed and
// written in sorted order so a rerun over unchanged input is byte-identical.
func Run(ctx context.Context, opts Options) (Summary, error) {
	logger := log.WithComponent("convert")

	files, err := filepath.Glob(filepath.Join(opts.InputDir, "*.json"))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list input dir: %w", err)
	}
	sort.Strings(files)

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var (
		mu       sync.Mutex
		summary  Summary
		profiles = make([]*types.CharityProfile, len(files))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				logger.Error().Err(err).Str("file", file).Msg("failed to read record")
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}
			profile, err := Convert(data)
			if err != nil {
				logger.Warn().Err(err).Str("file", file).Msg("skipping invalid record")
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil
			}
			profiles[i] = profile
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	// Duplicate EINs keep the record from the last file in sorted order.
	byEIN := map[string]*types.CharityProfile{}
	for i, p := range profiles {
		if p == nil {
			continue
		}
		if _, dup := byEIN[p.EIN]; dup {
			logger.Warn().Str("ein", p.EIN).Str("file", files[i]).Msg("duplicate ein, keeping later record")
			summary.Skipped++
		}
		byEIN[p.EIN] = p
	}

	eins := make([]string, 0, len(byEIN))
	for ein := range byEIN {
		eins = append(eins, ein)
	}
	sort.Strings(eins)

	charityDir := filepath.Join(opts.OutputDir, "charities")
	if err := os.MkdirAll(charityDir, 0750); err != nil {
		return summary, fmt.Errorf("failed to create output dir: %w", err)
	}

	summaries := make([]types.CharitySummary, 0, len(eins))
	for _, ein := range eins {
		profile := byEIN[ein]
		path := filepath.Join(charityDir, "charity-"+ein+".json")
		if err := writeJSON(path, profile); err != nil {
			logger.Error().Err(err).Str("ein", ein).Msg("failed to write profile")
			summary.Failed++
			continue
		}
		summaries = append(summaries, Summarize(profile))
		summary.Converted++
	}

	if err := writeJSON(filepath.Join(opts.OutputDir, "charities.json"), summaries); err != nil {
		return summary, fmt.Errorf("failed to write catalog index: %w", err)
	}

	logger.Info().
		Int("converted", summary.Converted).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("conversion finished")
	return summary, nil
}

// writeJSON writes v as indented JSON through a pending file: fsync, then
// atomic rename, so readers never observe a partial file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("failed to create pending file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
