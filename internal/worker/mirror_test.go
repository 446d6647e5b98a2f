package worker

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagebook/internal/amqp"
	"wagebook/internal/core"
	"wagebook/internal/log"
	"wagebook/internal/store/memory"
)

type snapshot struct {
	records []core.WageRecord
	workers []core.Worker
}

type fakeTarget struct {
	mu    sync.Mutex
	snaps []snapshot
	err   error
	seen  chan struct{}
}

func newFakeTarget() *fakeTarget { return &fakeTarget{seen: make(chan struct{}, 16)} }

func (f *fakeTarget) Mirror(_ context.Context, records []core.WageRecord, workers []core.Worker) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.snaps = append(f.snaps, snapshot{records, workers})
	select {
	case f.seen <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeTarget) last() snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snaps[len(f.snaps)-1]
}

// chanEvents hands queued events to the handler until ctx ends.
type chanEvents struct {
	ch      chan *amqp.ChangeEvent
	handled chan error
}

func (c *chanEvents) Consume(ctx context.Context, handler func(context.Context, *amqp.ChangeEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.ch:
			c.handled <- handler(ctx, ev)
		}
	}
}

func quietLogger() *log.Logger { return log.New(log.Config{Output: &bytes.Buffer{}}) }

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a mirror pass")
	}
}

func TestResyncCopiesEverything(t *testing.T) {
	src := memory.New("Ram", "Shyam")
	ctx := context.Background()
	_, err := src.InsertRecord(ctx, core.WageRecord{WorkerName: "Ram", WorkDate: core.NewDate(2024, 1, 5), Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)

	target := newFakeTarget()
	w := NewMirrorWorker(src, target, nil, 0, quietLogger())
	require.NoError(t, w.Resync(ctx))

	snap := target.last()
	assert.Len(t, snap.records, 1)
	assert.Len(t, snap.workers, 2)
	last, passes := w.Stats()
	assert.Equal(t, 1, passes)
	assert.False(t, last.IsZero())
}

func TestResyncReportsTargetFailure(t *testing.T) {
	target := newFakeTarget()
	target.err = core.Unavailable("mirror", errors.New("quota"))
	w := NewMirrorWorker(memory.New(), target, nil, 0, quietLogger())

	err := w.Resync(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	_, passes := w.Stats()
	assert.Zero(t, passes)
}

func TestRunFollowsEvents(t *testing.T) {
	src := memory.New()
	target := newFakeTarget()
	events := &chanEvents{ch: make(chan *amqp.ChangeEvent), handled: make(chan error, 1)}
	w := NewMirrorWorker(src, target, events, time.Hour, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, target.seen) // initial pass
	assert.Empty(t, target.last().records)

	id, err := src.InsertRecord(ctx, core.WageRecord{WorkerName: "Gita", WorkDate: core.NewDate(2024, 2, 1), Amount: decimal.NewFromInt(450)})
	require.NoError(t, err)
	events.ch <- amqp.NewRecordEvent(amqp.RecordCreated, id)
	require.NoError(t, <-events.handled)
	waitFor(t, target.seen)

	snap := target.last()
	require.Len(t, snap.records, 1)
	assert.Equal(t, id, snap.records[0].ID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRunMirrorsOnInterval(t *testing.T) {
	target := newFakeTarget()
	w := NewMirrorWorker(memory.New("Ram"), target, nil, 10*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	waitFor(t, target.seen)
	waitFor(t, target.seen)
	waitFor(t, target.seen)
	_, passes := w.Stats()
	assert.GreaterOrEqual(t, passes, 3)
}
