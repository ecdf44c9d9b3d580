package media

// janitor.go removes staged import files that outlived their request.
//
// The import handler deletes its own file on success and on error, so the
// janitor only finds leftovers from crashes or killed processes. It runs once
// on start and then every interval until the context is cancelled. Failures
// are logged and never stop the loop.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Janitor sweeps old import-* files out of an upload directory.
type Janitor struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewJanitor sweeps dir every interval, removing import files older than maxAge.
func NewJanitor(dir string, maxAge, interval time.Duration) *Janitor {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Janitor{dir: dir, maxAge: maxAge, interval: interval, now: time.Now}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	slog.Info("upload janitor started",
		"dir", j.dir,
		"max_age", j.maxAge.String(),
		"interval", j.interval.String(),
	)

	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("upload janitor stopped")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *Janitor) runOnce(ctx context.Context) {
	start := time.Now()
	removed, err := j.Sweep(ctx)
	if err != nil {
		slog.Error("upload sweep failed", "error", err, "removed", removed)
		return
	}
	if removed > 0 {
		slog.Info("removed stale import files",
			"removed", removed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Sweep removes every import file older than maxAge and reports how many went.
// Files that cannot be removed are collected into the returned error; the
// sweep still visits the rest.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read upload dir: %w", err)
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	var errs []error

	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() || !IsImportName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := removeIfExists(filepath.Join(j.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}
