package services

import (
	"context"
	"slices"

	"wagebook/internal/cache"
	"wagebook/internal/core"
	"wagebook/internal/store"
)

const (
	recordsKey = "records"
	workersKey = "workers"
)

// Listings reads full listings through an optional cache. Callers get
// their own copy of every slice.
type Listings struct {
	store   store.RecordStore
	records cache.Cache[[]core.WageRecord]
	workers cache.Cache[[]core.Worker]
}

// NewListings caches nothing when either cache is nil.
func NewListings(s store.RecordStore, records cache.Cache[[]core.WageRecord], workers cache.Cache[[]core.Worker]) *Listings {
	return &Listings{store: s, records: records, workers: workers}
}

func (l *Listings) Records(ctx context.Context) ([]core.WageRecord, error) {
	return cached(ctx, l.records, recordsKey, l.store.ListRecords)
}

func (l *Listings) Workers(ctx context.Context) ([]core.Worker, error) {
	return cached(ctx, l.workers, workersKey, l.store.ListWorkers)
}

// Invalidate drops every cached listing. Writers call it after each
// successful store mutation.
func (l *Listings) Invalidate() {
	if l.records != nil {
		l.records.Clear()
	}
	if l.workers != nil {
		l.workers.Clear()
	}
}

func cached[T any](ctx context.Context, c cache.Cache[[]T], key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if c == nil {
		return load(ctx)
	}
	if v, ok := c.Get(key); ok {
		return slices.Clone(v), nil
	}
	gen := c.Generation()
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.SetAt(gen, key, slices.Clone(v))
	return v, nil
}
