package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces event bursts. A convert run touches every file in
// the data dir; one reload at the end is enough.
const debounceDelay = 300 * time.Millisecond

// Watch reloads the catalog whenever the data dir changes. The watcher runs
// until ctx is canceled.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", c.dir, err)
	}

	// Profiles live in a subdirectory and fsnotify does not recurse. The
	// subdirectory may not exist before the first convert run; reloads retry
	// the add.
	charityDir := filepath.Join(c.dir, "charities")
	if err := watcher.Add(charityDir); err != nil {
		c.logger.Debug().Err(err).Str("dir", charityDir).Msg("charity dir not watchable yet")
	}

	c.logger.Info().Str("dir", c.dir).Msg("watching data dir")
	go c.watchLoop(ctx, watcher, charityDir)
	return nil
}

func (c *Catalog) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, charityDir string) {
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			_ = watcher.Close()
			c.logger.Info().Msg("catalog watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Atomic writes land as renames; editors differ. Chmod is noise.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				_ = watcher.Add(charityDir)
				if err := c.Load(); err != nil {
					c.logger.Error().Err(err).Msg("catalog reload failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Error().Err(err).Msg("catalog watcher error")
		}
	}
}
