// Package persist writes in-memory pronoun state to a storage backend.
package persist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kalambet/pronouns/internal/pronoun"
)

// Backend loads and saves the full set of persona pronoun records.
// SavePronouns replaces whatever was stored before.
type Backend interface {
	LoadPronouns(ctx context.Context) (map[string]pronoun.Record, error)
	SavePronouns(ctx context.Context, records map[string]pronoun.Record) error
}

// Source hands out a copy of the records to save.
type Source interface {
	Snapshot() map[string]pronoun.Record
}

const defaultDelay = time.Second

// Flusher coalesces SchedulePersist signals and saves a snapshot once no new
// signal arrived for the configured delay.
type Flusher struct {
	src     Source
	backend Backend
	delay   time.Duration
	log     *zap.Logger

	signal chan struct{}
}

// NewFlusher creates a Flusher. If delay is <= 0, it defaults to 1s.
func NewFlusher(src Source, backend Backend, delay time.Duration, log *zap.Logger) *Flusher {
	if delay <= 0 {
		delay = defaultDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Flusher{
		src:     src,
		backend: backend,
		delay:   delay,
		log:     log,
		signal:  make(chan struct{}, 1),
	}
}

// SchedulePersist marks state dirty. It never blocks.
func (f *Flusher) SchedulePersist() {
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Run waits for signals until ctx is cancelled. Pending changes are flushed
// before it returns.
func (f *Flusher) Run(ctx context.Context) {
	timer := time.NewTimer(f.delay)
	timer.Stop()
	defer timer.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			if pending {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				f.flushAndLog(flushCtx)
				cancel()
			}
			return
		case <-f.signal:
			pending = true
			timer.Reset(f.delay)
		case <-timer.C:
			if pending {
				pending = false
				f.flushAndLog(ctx)
			}
		}
	}
}

// Flush saves the current snapshot immediately.
func (f *Flusher) Flush(ctx context.Context) error {
	records := f.src.Snapshot()
	if records == nil {
		records = map[string]pronoun.Record{}
	}
	if err := f.backend.SavePronouns(ctx, records); err != nil {
		return fmt.Errorf("saving pronouns: %w", err)
	}
	f.log.Debug("pronouns persisted", zap.Int("personas", len(records)))
	return nil
}

func (f *Flusher) flushAndLog(ctx context.Context) {
	if err := f.Flush(ctx); err != nil {
		f.log.Error("persist failed", zap.Error(err))
	}
}

// Restore loads every stored record into mgr.
func Restore(ctx context.Context, backend Backend, mgr *pronoun.Manager) error {
	records, err := backend.LoadPronouns(ctx)
	if err != nil {
		return fmt.Errorf("loading pronouns: %w", err)
	}
	mgr.Load(records)
	return nil
}
