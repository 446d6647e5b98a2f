// Package sheets keeps the ledger in a Google spreadsheet: one tab of wage
// records and one tab of workers, each with a header row. Columns are found
// by header name so the tabs can be rearranged by hand, and cells under
// headers the store does not know are left alone. A row that cannot be
// parsed fails the whole listing, as in the other stores.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"wagebook/internal/core"
	"wagebook/internal/store"
)

var _ store.RecordStore = (*Store)(nil)

type Store struct {
	mu           sync.Mutex
	grid         grid
	recordsSheet string
	workersSheet string
}

// New connects to the spreadsheet described by cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.RecordsSheet == "" {
		cfg.RecordsSheet = "Records"
	}
	if cfg.WorkersSheet == "" {
		cfg.WorkersSheet = "Workers"
	}
	g, err := newAPIGrid(ctx, cfg)
	if err != nil {
		return nil, core.Unavailable("connect to google sheets", err)
	}
	return newWithGrid(g, cfg.RecordsSheet, cfg.WorkersSheet), nil
}

func newWithGrid(g grid, recordsSheet, workersSheet string) *Store {
	return &Store{grid: g, recordsSheet: recordsSheet, workersSheet: workersSheet}
}

// table is one tab as read from the grid. rows[i] lives on sheet row i+1.
type table struct {
	cols      columns
	rows      [][]string
	hasHeader bool
}

func (s *Store) load(ctx context.Context, sheet string, header []string) (table, error) {
	values, err := s.grid.Read(ctx, sheet)
	if err != nil {
		return table{}, core.Unavailable("read "+sheet, err)
	}
	if len(values) == 0 {
		return table{cols: defaultColumns(header)}, nil
	}
	cols, err := headerColumns(values[0], header)
	if err != nil {
		return table{}, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	t := table{cols: cols, hasHeader: true}
	for _, row := range values[1:] {
		t.rows = append(t.rows, toStrings(row))
	}
	return t, nil
}

// reserveID returns the id for a new row of sheet and moves the stored
// counter past it. The counter only moves forward, so a deleted id is never
// handed out again; rows already present raise it.
func (s *Store) reserveID(ctx context.Context, sheet string, t table) (int64, error) {
	stored, err := s.grid.Counter(ctx, sheet)
	if err != nil {
		return 0, core.Unavailable("read id counter of "+sheet, err)
	}
	id := max(stored, t.nextID())
	if err := s.grid.SetCounter(ctx, sheet, id+1); err != nil {
		return 0, core.Unavailable("store id counter of "+sheet, err)
	}
	return id, nil
}

func (t table) nextID() int64 {
	var maxID int64
	for _, row := range t.rows {
		if id, err := parseID(t.cols.get(row, "id")); err == nil {
			maxID = max(maxID, id)
		}
	}
	return maxID + 1
}

// find returns the sheet row index holding id, or -1.
func (t table) find(id int64) int {
	for i, row := range t.rows {
		if got, err := parseID(t.cols.get(row, "id")); err == nil && got == id {
			return i + 1
		}
	}
	return -1
}

func blank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func (s *Store) appendRow(ctx context.Context, sheet string, t table, header []string, values []any) error {
	if !t.hasHeader {
		if err := s.grid.WriteRow(ctx, sheet, 0, headerRow(header)); err != nil {
			return core.Unavailable("write header of "+sheet, err)
		}
	}
	if err := s.grid.AppendRow(ctx, sheet, values); err != nil {
		return core.Unavailable("append to "+sheet, err)
	}
	return nil
}

func (s *Store) InsertRecord(ctx context.Context, r core.WageRecord) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx, s.recordsSheet, recordHeader)
	if err != nil {
		return 0, err
	}
	if r.ID, err = s.reserveID(ctx, s.recordsSheet, t); err != nil {
		return 0, err
	}
	if err := s.appendRow(ctx, s.recordsSheet, t, recordHeader, recordRow(t.cols, r)); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Record appended to sheet",
		"id", r.ID, "sheet", s.recordsSheet, "worker_name", r.WorkerName)
	return r.ID, nil
}

func (s *Store) UpdateRecord(ctx context.Context, r core.WageRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx, s.recordsSheet, recordHeader)
	if err != nil {
		return err
	}
	row := t.find(r.ID)
	if row < 0 {
		return fmt.Errorf("record %d: %w", r.ID, core.ErrNotFound)
	}
	if err := s.grid.WriteRow(ctx, s.recordsSheet, row, recordRow(t.cols, r)); err != nil {
		return core.Unavailable("update record", err)
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx, s.recordsSheet, recordHeader)
	if err != nil {
		return err
	}
	row := t.find(id)
	if row < 0 {
		return fmt.Errorf("record %d: %w", id, core.ErrNotFound)
	}
	if err := s.grid.DeleteRow(ctx, s.recordsSheet, row); err != nil {
		return core.Unavailable("delete record", err)
	}
	slog.InfoContext(ctx, "Record row deleted from sheet", "id", id, "row", row+1)
	return nil
}

func (s *Store) ListRecords(ctx context.Context) ([]core.WageRecord, error) {
	s.mu.Lock()
	t, err := s.load(ctx, s.recordsSheet, recordHeader)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]core.WageRecord, 0, len(t.rows))
	for i, row := range t.rows {
		if blank(row) {
			continue
		}
		r, err := parseRecord(t.cols, row)
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", s.recordsSheet, i+2, err)
		}
		out = append(out, r)
	}
	core.SortView(out)
	return out, nil
}

func (s *Store) InsertWorker(ctx context.Context, w core.Worker) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx, s.workersSheet, workerHeader)
	if err != nil {
		return 0, err
	}
	for _, row := range t.rows {
		if t.cols.get(row, "worker_name") == w.Name {
			return 0, fmt.Errorf("worker %q: %w", w.Name, core.ErrDuplicate)
		}
	}
	if w.ID, err = s.reserveID(ctx, s.workersSheet, t); err != nil {
		return 0, err
	}
	if err := s.appendRow(ctx, s.workersSheet, t, workerHeader, workerRow(t.cols, w)); err != nil {
		return 0, err
	}
	return w.ID, nil
}

func (s *Store) DeleteWorker(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx, s.workersSheet, workerHeader)
	if err != nil {
		return err
	}
	row := t.find(id)
	if row < 0 {
		return fmt.Errorf("worker %d: %w", id, core.ErrNotFound)
	}
	if err := s.grid.DeleteRow(ctx, s.workersSheet, row); err != nil {
		return core.Unavailable("delete worker", err)
	}
	return nil
}

func (s *Store) ListWorkers(ctx context.Context) ([]core.Worker, error) {
	s.mu.Lock()
	t, err := s.load(ctx, s.workersSheet, workerHeader)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]core.Worker, 0, len(t.rows))
	for i, row := range t.rows {
		if blank(row) {
			continue
		}
		w, err := parseWorker(t.cols, row)
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", s.workersSheet, i+2, err)
		}
		out = append(out, w)
	}
	slices.SortStableFunc(out, func(a, b core.Worker) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Mirror overwrites both tabs with the given records and workers, keeping
// their ids. The tabs are rewritten in the default column layout.
func (s *Store) Mirror(ctx context.Context, records []core.WageRecord, workers []core.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCols := defaultColumns(recordHeader)
	rows := make([][]any, 0, len(records)+1)
	rows = append(rows, headerRow(recordHeader))
	for _, r := range records {
		rows = append(rows, recordRow(recordCols, r))
	}
	if err := s.grid.Replace(ctx, s.recordsSheet, rows); err != nil {
		return core.Unavailable("mirror "+s.recordsSheet, err)
	}

	workerCols := defaultColumns(workerHeader)
	rows = make([][]any, 0, len(workers)+1)
	rows = append(rows, headerRow(workerHeader))
	for _, w := range workers {
		rows = append(rows, workerRow(workerCols, w))
	}
	if err := s.grid.Replace(ctx, s.workersSheet, rows); err != nil {
		return core.Unavailable("mirror "+s.workersSheet, err)
	}

	slog.InfoContext(ctx, "Spreadsheet mirrored",
		"records", len(records), "workers", len(workers))
	return nil
}
