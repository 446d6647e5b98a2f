package store

import (
	"context"

	"wagebook/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordWriter mutates wage records. Every call is synchronous and
	// durable before it returns.
	RecordWriter interface {
		InsertRecord(ctx context.Context, r core.WageRecord) (id int64, err error)
		// UpdateRecord replaces every mutable field of the record with r.ID.
		UpdateRecord(ctx context.Context, r core.WageRecord) error
		DeleteRecord(ctx context.Context, id int64) error
	}

	// RecordLister returns every record ordered by work date descending,
	// ties by ascending id.
	RecordLister interface {
		ListRecords(ctx context.Context) ([]core.WageRecord, error)
	}

	// WorkerRegistry manages the set of registered workers. Names are unique.
	WorkerRegistry interface {
		InsertWorker(ctx context.Context, w core.Worker) (id int64, err error)
		DeleteWorker(ctx context.Context, id int64) error
		// ListWorkers returns workers ordered by name.
		ListWorkers(ctx context.Context) ([]core.Worker, error)
	}

	// RecordStore is the full CRUD surface over both collections.
	RecordStore interface {
		RecordWriter
		RecordLister
		WorkerRegistry
	}
)
