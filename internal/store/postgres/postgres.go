// Package postgres stores the ledger in PostgreSQL (a hosted Supabase
// database in production) through a pgx connection pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"wagebook/internal/core"
	"wagebook/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

var _ store.RecordStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

// Open migrates the database at url and connects a pool to it.
func Open(ctx context.Context, url string, maxConns int32) (*Store, error) {
	if err := Migrate(url); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, core.Unavailable("create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, core.Unavailable("ping database", err)
	}
	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool. The schema must already exist.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the embedded migrations. The golang-migrate pgx driver
// registers the pgx5 scheme, so postgres:// URLs are rewritten.
func Migrate(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(url))
	if err != nil {
		return core.Unavailable("connect for migrations", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func migrateURL(url string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(url, prefix) {
			return "pgx5://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return core.Unavailable("ping database", err)
	}
	return nil
}

func (s *Store) InsertRecord(ctx context.Context, r core.WageRecord) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO records (work_date, worker_name, category, amount, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		r.WorkDate.Time, r.WorkerName, r.Category, r.Amount.String(), r.Note,
	).Scan(&id)
	if err != nil {
		return 0, core.Unavailable("insert record", err)
	}
	slog.InfoContext(ctx, "Record saved to PostgreSQL", "id", id, "worker_name", r.WorkerName)
	return id, nil
}

func (s *Store) UpdateRecord(ctx context.Context, r core.WageRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE records
		SET work_date = $1, worker_name = $2, category = $3, amount = $4, notes = $5, updated_at = now()
		WHERE id = $6`,
		r.WorkDate.Time, r.WorkerName, r.Category, r.Amount.String(), r.Note, r.ID,
	)
	if err != nil {
		return core.Unavailable("update record", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %d: %w", r.ID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return core.Unavailable("delete record", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context) ([]core.WageRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, work_date, worker_name, category, amount::text, notes
		FROM records
		ORDER BY work_date DESC, id ASC`)
	if err != nil {
		return nil, core.Unavailable("list records", err)
	}
	out, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, core.Unavailable("scan records", err)
	}
	if out == nil {
		out = []core.WageRecord{}
	}
	return out, nil
}

func scanRecord(row pgx.CollectableRow) (core.WageRecord, error) {
	var (
		r      core.WageRecord
		day    time.Time
		amount string
	)
	if err := row.Scan(&r.ID, &day, &r.WorkerName, &r.Category, &amount, &r.Note); err != nil {
		return core.WageRecord{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.WageRecord{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	r.Amount = d
	r.WorkDate = core.DateOf(day)
	return r, nil
}

func (s *Store) InsertWorker(ctx context.Context, w core.Worker) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO workers (name, category, contact)
		VALUES ($1, $2, $3)
		RETURNING id`,
		w.Name, w.Category, w.Contact,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, fmt.Errorf("worker %q: %w", w.Name, core.ErrDuplicate)
		}
		return 0, core.Unavailable("insert worker", err)
	}
	return id, nil
}

func (s *Store) DeleteWorker(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM workers WHERE id = $1`, id)
	if err != nil {
		return core.Unavailable("delete worker", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("worker %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListWorkers(ctx context.Context) ([]core.Worker, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, category, contact
		FROM workers
		ORDER BY name COLLATE "C"`)
	if err != nil {
		return nil, core.Unavailable("list workers", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Worker, error) {
		var w core.Worker
		err := row.Scan(&w.ID, &w.Name, &w.Category, &w.Contact)
		return w, err
	})
	if err != nil {
		return nil, core.Unavailable("scan workers", err)
	}
	if out == nil {
		out = []core.Worker{}
	}
	return out, nil
}
