// Package worker keeps a Google Sheets copy of the ledger in step with the
// primary store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wagebook/internal/amqp"
	"wagebook/internal/core"
	"wagebook/internal/log"
	"wagebook/internal/store"
)

// Source is the primary store being copied.
type Source interface {
	store.RecordLister
	ListWorkers(ctx context.Context) ([]core.Worker, error)
}

// Target receives full snapshots. *sheets.Store implements it.
type Target interface {
	Mirror(ctx context.Context, records []core.WageRecord, workers []core.Worker) error
}

// Events delivers change events until ctx ends. *amqp.Client implements it.
type Events interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.ChangeEvent) error) error
}

// MirrorWorker copies the whole primary store into the target on start,
// after every change event and every interval. A full copy is idempotent,
// so lost or repeated events cost at most one extra pass.
type MirrorWorker struct {
	source   Source
	target   Target
	events   Events
	interval time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	lastSync time.Time
	passes   int
}

// NewMirrorWorker builds a worker. events may be nil for timer-only
// mirroring.
func NewMirrorWorker(source Source, target Target, events Events, interval time.Duration, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		source:   source,
		target:   target,
		events:   events,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Resync copies the current primary state into the target. Passes are
// serialized.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	records, err := w.source.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	workers, err := w.source.ListWorkers(ctx)
	if err != nil {
		return fmt.Errorf("list workers: %w", err)
	}
	if err := w.target.Mirror(ctx, records, workers); err != nil {
		return fmt.Errorf("mirror: %w", err)
	}

	w.lastSync = time.Now()
	w.passes++
	w.logger.InfoContext(ctx, "Mirror pass completed",
		log.FieldOperation, log.OpMirror,
		"records", len(records),
		"workers", len(workers),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// HandleEvent resyncs on any change. An error requeues the event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.ChangeEvent) error {
	w.logger.DebugContext(ctx, "Change event received",
		"type", ev.Type, log.FieldRecordID, ev.RecordID, log.FieldWorkerID, ev.WorkerID)
	return w.Resync(ctx)
}

// Run mirrors once, then follows events and the interval until ctx ends.
// A failed pass is logged and retried on the next trigger.
func (w *MirrorWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Mirror worker starting", "interval", w.interval.String(), "events", w.events != nil)
	if err := w.Resync(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Initial mirror failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if w.events != nil {
		g.Go(func() error {
			return w.events.Consume(gctx, w.HandleEvent)
		})
	}
	if w.interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := w.Resync(gctx); err != nil {
						w.logger.ErrorContext(gctx, "Periodic mirror failed", log.FieldError, err)
					}
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Mirror worker stopped")
		return nil
	}
	return err
}

// Stats reports the time of the last successful pass and how many passes
// have completed.
func (w *MirrorWorker) Stats() (last time.Time, passes int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync, w.passes
}
