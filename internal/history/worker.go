// Package history trims the replacement log kept by the sqlite backend.
package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Pruner deletes all but the newest keep replacements.
type Pruner interface {
	PruneReplacements(ctx context.Context, keep int) (int64, error)
}

// Worker periodically prunes the replacement log.
type Worker struct {
	store Pruner
	keep  int
	every time.Duration
	log   *zap.Logger
}

// NewWorker creates a Worker. keep <= 0 disables pruning; every <= 0
// defaults to ten minutes.
func NewWorker(store Pruner, keep int, every time.Duration, log *zap.Logger) *Worker {
	if every <= 0 {
		every = 10 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{store: store, keep: keep, every: every, log: log}
}

// Run prunes once immediately and then on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w.keep <= 0 {
		return
	}

	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Error("history prune failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single prune and returns the number of rows removed.
func (w *Worker) RunOnce(ctx context.Context) (int64, error) {
	if w.keep <= 0 {
		return 0, nil
	}
	n, err := w.store.PruneReplacements(ctx, w.keep)
	if err != nil {
		return 0, fmt.Errorf("pruning replacements: %w", err)
	}
	if n > 0 {
		w.log.Debug("history pruned", zap.Int64("removed", n), zap.Int("keep", w.keep))
	}
	return n, nil
}
