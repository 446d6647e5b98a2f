package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"wagebook/internal/core"
	"wagebook/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.RecordStore = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database file is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.Unavailable("ping sqlite", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertRecord(ctx context.Context, rec core.WageRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateRecord(ctx, CreateRecordParams{
		WorkDate:   rec.WorkDate.String(),
		WorkerName: rec.WorkerName,
		Category:   rec.Category,
		Amount:     rec.Amount.String(),
		Notes:      rec.Note,
	})
	if err != nil {
		return 0, core.Unavailable("create record", err)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"id", id,
		"worker_name", rec.WorkerName,
		"amount", rec.Amount.String(),
		"work_date", rec.WorkDate.String())

	return id, nil
}

func (r *SQLiteRepository) UpdateRecord(ctx context.Context, rec core.WageRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateRecord(ctx, UpdateRecordParams{
		WorkDate:   rec.WorkDate.String(),
		WorkerName: rec.WorkerName,
		Category:   rec.Category,
		Amount:     rec.Amount.String(),
		Notes:      rec.Note,
		ID:         rec.ID,
	})
	if err != nil {
		return core.Unavailable("update record", err)
	}
	if n == 0 {
		return fmt.Errorf("record %d: %w", rec.ID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Record updated in SQLite", "id", rec.ID)
	return nil
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteRecord(ctx, id)
	if err != nil {
		return core.Unavailable("delete record", err)
	}
	if n == 0 {
		return fmt.Errorf("record %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Record deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) ListRecords(ctx context.Context) ([]core.WageRecord, error) {
	rows, err := r.queries.ListRecords(ctx)
	if err != nil {
		return nil, core.Unavailable("list records", err)
	}
	out := make([]core.WageRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toWageRecord(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *SQLiteRepository) InsertWorker(ctx context.Context, w core.Worker) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateWorker(ctx, CreateWorkerParams{
		Name:     w.Name,
		Category: w.Category,
		Contact:  w.Contact,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("worker %q: %w", w.Name, core.ErrDuplicate)
		}
		return 0, core.Unavailable("create worker", err)
	}
	slog.InfoContext(ctx, "Worker registered in SQLite", "id", id, "worker_name", w.Name)
	return id, nil
}

func (r *SQLiteRepository) DeleteWorker(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteWorker(ctx, id)
	if err != nil {
		return core.Unavailable("delete worker", err)
	}
	if n == 0 {
		return fmt.Errorf("worker %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListWorkers(ctx context.Context) ([]core.Worker, error) {
	rows, err := r.queries.ListWorkers(ctx)
	if err != nil {
		return nil, core.Unavailable("list workers", err)
	}
	out := make([]core.Worker, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Worker{
			ID:       row.ID,
			Name:     row.Name,
			Category: row.Category,
			Contact:  row.Contact,
		})
	}
	return out, nil
}

func toWageRecord(row Record) (core.WageRecord, error) {
	date, err := core.ParseDate(row.WorkDate)
	if err != nil {
		return core.WageRecord{}, err
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.WageRecord{}, fmt.Errorf("parse amount %q: %w", row.Amount, err)
	}
	return core.WageRecord{
		ID:         row.ID,
		WorkerName: row.WorkerName,
		Category:   row.Category,
		Amount:     amount,
		WorkDate:   date,
		Note:       row.Notes,
	}, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
