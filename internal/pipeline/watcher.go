package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/corrnet-go/internal/parsers"
)

// DefaultBatchDelay is how long the watcher waits for changes to settle.
const DefaultBatchDelay = 2 * time.Second

// WatchOptions configures Watch.
type WatchOptions struct {
	Common

	// Dir is the directory of network files to watch.
	Dir string

	// StoreRoot holds one badger store per network, named by NetworkEntry.Name.
	StoreRoot string
	CacheSize int

	Filter parsers.Filter

	// Delay is the batch delay. Zero selects DefaultBatchDelay.
	Delay time.Duration

	// OnIndexed, when set, is called after each network is (re)indexed or
	// its store removed (res is nil).
	OnIndexed func(entry NetworkEntry, res *IndexResult)
}

// StoreDir returns the store directory of entry under root.
func StoreDir(root string, entry NetworkEntry) string {
	return filepath.Join(root, entry.Name())
}

// Watch indexes every network under opts.Dir, then re-indexes networks as
// they change and drops the stores of deleted ones. Blocks until the
// context is cancelled.
func Watch(ctx context.Context, opts WatchOptions) error {
	log := opts.logger()

	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultBatchDelay
	}

	matcher, err := newMatcher(opts.Dir)
	if err != nil {
		return fmt.Errorf("loading %s: %w", IgnoreFile, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory tree
	if _, err := opts.addTree(watcher, opts.Dir, matcher); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	entries, err := WalkNetworks(opts.Dir)
	if err != nil {
		return fmt.Errorf("listing networks: %w", err)
	}
	for _, e := range entries {
		opts.reindex(ctx, e)
	}

	// Batch changed files for efficient re-indexing
	changed := make(map[string]NetworkEntry)
	batchTimer := time.NewTimer(delay)
	batchTimer.Stop() // Don't start yet

	log.Info("watching for changes", "dir", opts.Dir, "networks", len(entries))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// Files may land in a new directory before it is watched.
					found, err := opts.addTree(watcher, event.Name, matcher)
					if err != nil {
						log.Error("watching new directory", "dir", event.Name, "err", err)
					}
					for _, e := range found {
						changed[e.RelPath] = e
					}
					if len(found) > 0 {
						batchTimer.Reset(delay)
					}
					continue
				}
			}

			entry, ok := opts.entryFor(event.Name, matcher)
			if !ok {
				continue
			}
			changed[entry.RelPath] = entry
			batchTimer.Reset(delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", "err", err)

		case <-batchTimer.C:
			if len(changed) == 0 {
				continue
			}
			log.Info("re-indexing changed networks", "count", len(changed))
			for _, e := range changed {
				opts.processChange(ctx, e)
			}
			changed = make(map[string]NetworkEntry)
		}
	}
}

// addTree adds root and every directory below it that the matcher does not
// exclude to the watcher. It returns the network files already present.
func (o WatchOptions) addTree(watcher *fsnotify.Watcher, root string, matcher gitignore.Matcher) ([]NetworkEntry, error) {
	var found []NetworkEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(o.Dir, path)
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if e, ok := o.entryFor(path, matcher); ok {
				found = append(found, e)
			}
			return nil
		}
		if rel != "." && matcher.Match(splitPath(rel), true) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	return found, err
}

// entryFor maps an event path to a watched network entry.
func (o WatchOptions) entryFor(path string, matcher gitignore.Matcher) (NetworkEntry, bool) {
	if !isNetworkFile(filepath.Base(path)) {
		return NetworkEntry{}, false
	}
	rel, err := filepath.Rel(o.Dir, path)
	if err != nil {
		return NetworkEntry{}, false
	}
	if matcher != nil && matcher.Match(splitPath(rel), false) {
		return NetworkEntry{}, false
	}
	return NetworkEntry{Path: path, RelPath: rel}, true
}

// processChange re-indexes e, or removes its store if the file is gone.
func (o WatchOptions) processChange(ctx context.Context, e NetworkEntry) {
	log := o.logger()

	info, err := os.Stat(e.Path)
	if errors.Is(err, os.ErrNotExist) {
		dir := StoreDir(o.StoreRoot, e)
		if err := os.RemoveAll(dir); err != nil {
			log.Error("removing store", "network", e.RelPath, "err", err)
			return
		}
		log.Info("removed store of deleted network", "network", e.RelPath)
		if o.OnIndexed != nil {
			o.OnIndexed(e, nil)
		}
		return
	}
	if err != nil || info.IsDir() {
		return
	}

	o.reindex(ctx, e)
}

func (o WatchOptions) reindex(ctx context.Context, e NetworkEntry) {
	res, err := IndexInto(ctx, StoreDir(o.StoreRoot, e), o.CacheSize, e.Path, o.Filter, o.Common)
	if err != nil {
		o.logger().Error("indexing network", "network", e.RelPath, "err", err)
		return
	}
	if o.OnIndexed != nil {
		o.OnIndexed(e, res)
	}
}
