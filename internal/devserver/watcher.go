package devserver

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// skippedDirs are never descended into. They are either large (installed
// packages), owned by other tools (.git, .next) or written by the build
// itself, which would otherwise trigger a reload loop.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".next":        true,
	"build":        true,
}

// fileStamp is what the watcher compares between scans. Size and
// modification time catch every editor save in practice without reading
// file contents.
type fileStamp struct {
	size    int64
	modTime time.Time
}

// equal compares stamps with time.Time.Equal, which ignores location and
// monotonic clock data that == would compare.
func (s fileStamp) equal(o fileStamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

// Watcher polls directory trees and reports changes.
//
// Polling walks every watched tree once per interval. The Catalog source
// and app source directories are small enough for that to be cheap, and it
// behaves the same on every platform and filesystem, including network
// mounts and containers where change notifications are unreliable.
type Watcher struct {
	// dirs are the roots to walk, deduplicated.
	dirs []string

	// interval is the pause between scans.
	interval time.Duration

	// logger receives scan failures at debug level.
	logger *slog.Logger
}

// NewWatcher creates a Watcher over dirs. Duplicate and missing
// directories are tolerated.
//
// For next.js the app source is the project root, which can also contain
// the Catalog source directory; deduplication only removes identical
// entries, and a file seen through both roots is simply stamped twice under
// the same path.
func NewWatcher(dirs []string, interval time.Duration, logger *slog.Logger) *Watcher {
	seen := make(map[string]bool, len(dirs))
	unique := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		unique = append(unique, d)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dirs: unique, interval: interval, logger: logger}
}

// Run polls until ctx is done, calling onChange with one changed path per
// tick that saw a difference.
//
// The first scan happens before the first tick and only establishes the
// baseline; files that already exist never count as changes.
func (w *Watcher) Run(ctx context.Context, onChange func(changed string)) {
	prev := w.scan()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next := w.scan()
			// Several files saved together (a formatter run, a git
			// checkout) produce one callback; a single reload picks all
			// of them up.
			if changed, ok := diff(prev, next); ok {
				onChange(changed)
			}
			prev = next
		}
	}
}

// scan walks every root and stamps each regular file. Errors on individual
// entries are ignored: a file deleted mid-walk just drops out of the
// snapshot and shows up as a removal on the next comparison.
func (w *Watcher) scan() map[string]fileStamp {
	stamps := make(map[string]fileStamp)
	for _, dir := range w.dirs {
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				// A root that does not exist (no src/ in an unknown
				// project) is skipped without noise.
				if p == dir && os.IsNotExist(err) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if p != dir && skippedDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			stamps[p] = fileStamp{size: info.Size(), modTime: info.ModTime()}
			return nil
		})
		if err != nil {
			w.logger.Debug("watch scan failed", "dir", dir, "error", err)
		}
	}
	return stamps
}

// diff returns a path that was added, removed or modified between two
// scans. Which of several changed paths is returned is unspecified.
func diff(prev, next map[string]fileStamp) (string, bool) {
	// Additions and modifications.
	for p, stamp := range next {
		if old, ok := prev[p]; !ok || !old.equal(stamp) {
			return p, true
		}
	}
	// Removals.
	for p := range prev {
		if _, ok := next[p]; !ok {
			return p, true
		}
	}
	return "", false
}
