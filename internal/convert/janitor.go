package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor removes scratch workspaces left behind by a process that died
// mid-conversion. Live calls clean up after themselves; the janitor only
// touches workspaces older than MaxAge.
type Janitor struct {
	root   string
	maxAge time.Duration
	now    func() time.Time
	cron   *cron.Cron
}

// NewJanitor creates a janitor for the workspaces under root.
func NewJanitor(root string, maxAge time.Duration) *Janitor {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Janitor{root: root, maxAge: maxAge, now: time.Now}
}

// Start runs Sweep on the given cron schedule (5-field or descriptors such
// as "@every 10m") until Stop is called.
func (j *Janitor) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if n, err := j.Sweep(); err != nil {
			slog.Warn("janitor: sweep failed", "root", j.root, "err", err)
		} else if n > 0 {
			slog.Info("janitor: removed stale workspaces", "root", j.root, "count", n)
		}
	}); err != nil {
		return fmt.Errorf("janitor schedule %q: %w", schedule, err)
	}
	j.cron = c
	c.Start()
	slog.Info("janitor: started", "root", j.root, "schedule", schedule, "max_age", j.maxAge)
	return nil
}

// Stop halts the schedule; the returned context is done once a running sweep finishes.
func (j *Janitor) Stop() context.Context {
	if j.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return j.cron.Stop()
}

// Sweep removes stale workspaces and reports how many were removed.
func (j *Janitor) Sweep() (int, error) {
	entries, err := os.ReadDir(j.root)
	if err != nil {
		return 0, fmt.Errorf("read scratch dir: %w", err)
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), WorkspacePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(j.root, e.Name())); err != nil {
			slog.Warn("janitor: remove failed", "dir", e.Name(), "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}
