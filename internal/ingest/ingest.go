// Package ingest performs the bulk filesystem walk that seeds the index at
// startup. Paths are discovered by a single walker and registered by a small
// pool of workers; registration failures are logged and counted, never fatal,
// so one unreadable file cannot abort the run.
package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwaghorn2000/oxidex/internal/service"
	"github.com/mwaghorn2000/oxidex/pkg/config"
)

const workerCount = 4

// Result summarises one ingest run.
type Result struct {
	Indexed int64
	Failed  int64
	Took    time.Duration
}

// Runner walks configured roots and registers every regular file found.
type Runner struct {
	svc    *service.Service
	cfg    config.IngestConfig
	logger *slog.Logger
}

// NewRunner creates a Runner for the given service and ingest config.
func NewRunner(svc *service.Service, cfg config.IngestConfig) *Runner {
	return &Runner{
		svc:    svc,
		cfg:    cfg,
		logger: slog.Default().With("component", "ingest"),
	}
}

// Run walks every configured root and indexes the files found. It returns an
// error only when a walk itself fails or ctx is cancelled; per-file
// registration failures are tallied in the Result.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var indexed, failed atomic.Int64

	paths := make(chan string)
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(paths)
		for _, root := range r.cfg.Roots {
			if err := r.walk(ctx, root, paths); err != nil {
				return err
			}
		}
		return nil
	})

	for i := 0; i < workerCount; i++ {
		group.Go(func() error {
			for path := range paths {
				if _, err := r.svc.AddDocument(ctx, path); err != nil {
					failed.Add(1)
					r.logger.Warn("skipping file", "path", path, "error", err)
					continue
				}
				indexed.Add(1)
			}
			return nil
		})
	}

	err := group.Wait()
	result := Result{
		Indexed: indexed.Load(),
		Failed:  failed.Load(),
		Took:    time.Since(start),
	}
	r.logger.Info("ingest complete",
		"indexed", result.Indexed,
		"failed", result.Failed,
		"took_ms", result.Took.Milliseconds(),
	)
	return result, err
}

func (r *Runner) walk(ctx context.Context, root string, paths chan<- string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Warn("walk error", "path", path, "error", err)
			return nil
		}
		if r.cfg.SkipHidden && hidden(d.Name()) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		select {
		case paths <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
