package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Record mirrors a row of the records table.
type Record struct {
	ID         int64
	WorkDate   string
	WorkerName string
	Category   string
	Amount     string
	Notes      string
}

// WorkerRow mirrors a row of the workers table.
type WorkerRow struct {
	ID       int64
	Name     string
	Category string
	Contact  string
}

const createRecord = `-- name: CreateRecord :one
INSERT INTO records (work_date, worker_name, category, amount, notes)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type CreateRecordParams struct {
	WorkDate   string
	WorkerName string
	Category   string
	Amount     string
	Notes      string
}

func (q *Queries) CreateRecord(ctx context.Context, arg CreateRecordParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createRecord,
		arg.WorkDate,
		arg.WorkerName,
		arg.Category,
		arg.Amount,
		arg.Notes,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateRecord = `-- name: UpdateRecord :execrows
UPDATE records
SET work_date = ?, worker_name = ?, category = ?, amount = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type UpdateRecordParams struct {
	WorkDate   string
	WorkerName string
	Category   string
	Amount     string
	Notes      string
	ID         int64
}

func (q *Queries) UpdateRecord(ctx context.Context, arg UpdateRecordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateRecord,
		arg.WorkDate,
		arg.WorkerName,
		arg.Category,
		arg.Amount,
		arg.Notes,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteRecord = `-- name: DeleteRecord :execrows
DELETE FROM records WHERE id = ?
`

func (q *Queries) DeleteRecord(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRecord, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listRecords = `-- name: ListRecords :many
SELECT id, work_date, worker_name, category, amount, notes
FROM records
ORDER BY work_date DESC, id ASC
`

func (q *Queries) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, listRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Record
	for rows.Next() {
		var i Record
		if err := rows.Scan(
			&i.ID,
			&i.WorkDate,
			&i.WorkerName,
			&i.Category,
			&i.Amount,
			&i.Notes,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createWorker = `-- name: CreateWorker :one
INSERT INTO workers (name, category, contact)
VALUES (?, ?, ?)
RETURNING id
`

type CreateWorkerParams struct {
	Name     string
	Category string
	Contact  string
}

func (q *Queries) CreateWorker(ctx context.Context, arg CreateWorkerParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createWorker, arg.Name, arg.Category, arg.Contact)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteWorker = `-- name: DeleteWorker :execrows
DELETE FROM workers WHERE id = ?
`

func (q *Queries) DeleteWorker(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteWorker, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listWorkers = `-- name: ListWorkers :many
SELECT id, name, category, contact
FROM workers
ORDER BY name ASC
`

func (q *Queries) ListWorkers(ctx context.Context) ([]WorkerRow, error) {
	rows, err := q.db.QueryContext(ctx, listWorkers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WorkerRow
	for rows.Next() {
		var i WorkerRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Category, &i.Contact); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
