// Package csvfile keeps the ledger as CSV files in a directory:
// records.csv, workers.csv and next_id.csv, which holds the next id of each
// table so a deleted id is never handed out again. A directory that only
// has the older data.csv is read from it until the first record write
// creates records.csv. Every write rewrites the affected file through a
// temporary file and a rename, so a reader never sees a partial file and a
// failed write leaves the previous contents in place.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"wagebook/internal/core"
	"wagebook/internal/store"
)

const (
	RecordsFile       = "records.csv"
	WorkersFile       = "workers.csv"
	CounterFile       = "next_id.csv"
	LegacyRecordsFile = "data.csv"
)

const (
	recordsTable = "records"
	workersTable = "workers"
)

var (
	recordHeader  = []string{"id", "date", "worker_name", "category", "salary", "notes"}
	workerHeader  = []string{"id", "worker_name", "category", "contact"}
	counterHeader = []string{"table", "next_id"}
)

var _ store.RecordStore = (*Store)(nil)

type Store struct {
	mu  sync.Mutex
	dir string
}

// New uses dir, creating it when missing. Existing files are read lazily.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, core.Unavailable("create data directory", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// recordsPath is records.csv, or data.csv when only that one exists.
func (s *Store) recordsPath() string {
	path := s.path(RecordsFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if _, err := os.Stat(s.path(LegacyRecordsFile)); err == nil {
			return s.path(LegacyRecordsFile)
		}
	}
	return path
}

func (s *Store) readRecords() ([]core.WageRecord, error) {
	path := s.recordsPath()
	rows, err := readTable(path, []string{"date", "worker_name", "salary"})
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	out := make([]core.WageRecord, 0, len(rows))
	for i, row := range rows {
		id, err := rowID(row, i)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, i+2, err)
		}
		date, err := core.ParseDate(row["date"])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, i+2, err)
		}
		amount, err := core.ParseAmount(row["salary"])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, i+2, err)
		}
		out = append(out, core.WageRecord{
			ID:         id,
			WorkerName: row["worker_name"],
			Category:   row["category"],
			Amount:     amount,
			WorkDate:   date,
			Note:       row["notes"],
		})
	}
	return out, nil
}

func (s *Store) writeRecords(records []core.WageRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.WorkDate.String(),
			r.WorkerName,
			r.Category,
			core.FormatAmount(r.Amount),
			r.Note,
		})
	}
	return writeTable(s.path(RecordsFile), recordHeader, rows)
}

func (s *Store) readWorkers() ([]core.Worker, error) {
	rows, err := readTable(s.path(WorkersFile), workerHeader[1:2])
	if err != nil {
		return nil, err
	}
	out := make([]core.Worker, 0, len(rows))
	for i, row := range rows {
		id, err := rowID(row, i)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", WorkersFile, i+2, err)
		}
		out = append(out, core.Worker{
			ID:       id,
			Name:     row["worker_name"],
			Category: row["category"],
			Contact:  row["contact"],
		})
	}
	return out, nil
}

func (s *Store) writeWorkers(workers []core.Worker) error {
	rows := make([][]string, 0, len(workers))
	for _, w := range workers {
		rows = append(rows, []string{strconv.FormatInt(w.ID, 10), w.Name, w.Category, w.Contact})
	}
	return writeTable(s.path(WorkersFile), workerHeader, rows)
}

// reserveID hands out the next id of table and persists the one after it.
// The stored counter only moves forward; floor raises it to one past the
// largest id already on disk, which covers files written without a counter.
func (s *Store) reserveID(table string, floor int64) (int64, error) {
	rows, err := readTable(s.path(CounterFile), counterHeader)
	if err != nil {
		return 0, err
	}
	counters := make(map[string]int64, len(rows)+1)
	for _, row := range rows {
		n, err := strconv.ParseInt(row["next_id"], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid next_id %q for %s", CounterFile, row["next_id"], row["table"])
		}
		counters[row["table"]] = n
	}

	id := max(floor, counters[table])
	counters[table] = id + 1

	out := make([][]string, 0, len(counters))
	for _, name := range slices.Sorted(maps.Keys(counters)) {
		out = append(out, []string{name, strconv.FormatInt(counters[name], 10)})
	}
	if err := writeTable(s.path(CounterFile), counterHeader, out); err != nil {
		return 0, err
	}
	return id, nil
}

func nextRecordID(records []core.WageRecord) int64 {
	next := int64(1)
	for _, r := range records {
		next = max(next, r.ID+1)
	}
	return next
}

func (s *Store) InsertRecord(ctx context.Context, r core.WageRecord) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecords()
	if err != nil {
		return 0, err
	}
	if r.ID, err = s.reserveID(recordsTable, nextRecordID(records)); err != nil {
		return 0, err
	}
	if err := s.writeRecords(append(records, r)); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Record written to CSV", "id", r.ID, "dir", s.dir)
	return r.ID, nil
}

func (s *Store) UpdateRecord(ctx context.Context, r core.WageRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecords()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(records, func(x core.WageRecord) bool { return x.ID == r.ID })
	if i < 0 {
		return fmt.Errorf("record %d: %w", r.ID, core.ErrNotFound)
	}
	records[i] = r
	return s.writeRecords(records)
}

func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecords()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(records, func(x core.WageRecord) bool { return x.ID == id })
	if i < 0 {
		return fmt.Errorf("record %d: %w", id, core.ErrNotFound)
	}
	return s.writeRecords(slices.Delete(records, i, i+1))
}

func (s *Store) ListRecords(ctx context.Context) ([]core.WageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecords()
	if err != nil {
		return nil, err
	}
	core.SortView(records)
	return records, nil
}

func (s *Store) InsertWorker(ctx context.Context, w core.Worker) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	workers, err := s.readWorkers()
	if err != nil {
		return 0, err
	}
	floor := int64(1)
	for _, existing := range workers {
		if existing.Name == w.Name {
			return 0, fmt.Errorf("worker %q: %w", w.Name, core.ErrDuplicate)
		}
		floor = max(floor, existing.ID+1)
	}
	if w.ID, err = s.reserveID(workersTable, floor); err != nil {
		return 0, err
	}
	if err := s.writeWorkers(append(workers, w)); err != nil {
		return 0, err
	}
	return w.ID, nil
}

func (s *Store) DeleteWorker(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	workers, err := s.readWorkers()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(workers, func(x core.Worker) bool { return x.ID == id })
	if i < 0 {
		return fmt.Errorf("worker %d: %w", id, core.ErrNotFound)
	}
	return s.writeWorkers(slices.Delete(workers, i, i+1))
}

func (s *Store) ListWorkers(ctx context.Context) ([]core.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	workers, err := s.readWorkers()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(workers, func(a, b core.Worker) int { return strings.Compare(a.Name, b.Name) })
	return workers, nil
}

// rowID reads the id column. Files written before ids existed have no such
// column; their rows are numbered by position and keep that number from the
// next write on.
func rowID(row map[string]string, i int) (int64, error) {
	raw, ok := row["id"]
	if !ok || raw == "" {
		return int64(i + 1), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// readTable returns the rows of path keyed by lower-cased header name. A
// missing file is an empty table.
func readTable(path string, required []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Unavailable("open "+filepath.Base(path), err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	header := make([]string, len(all[0]))
	for i, h := range all[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	}
	for _, name := range required {
		if !slices.Contains(header, name) {
			return nil, fmt.Errorf("%s: missing column %s", filepath.Base(path), name)
		}
	}

	rows := make([]map[string]string, 0, len(all)-1)
	for _, line := range all[1:] {
		if len(line) == 1 && strings.TrimSpace(line[0]) == "" {
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(line) {
				row[name] = strings.TrimSpace(line[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeTable(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return core.Unavailable("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(header); err != nil {
		tmp.Close()
		return core.Unavailable("write "+filepath.Base(path), err)
	}
	if err := cw.WriteAll(rows); err != nil {
		tmp.Close()
		return core.Unavailable("write "+filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return core.Unavailable("sync "+filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return core.Unavailable("close "+filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return core.Unavailable("replace "+filepath.Base(path), err)
	}
	return nil
}
