package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"wagebook/internal/core"
	"wagebook/internal/store"
)

var _ store.RecordStore = (*Store)(nil)

type Store struct {
	mu         sync.Mutex
	records    []core.WageRecord
	workers    []core.Worker
	nextRecord int64
	nextWorker int64
}

// New returns a store pre-populated with the given worker names.
func New(workerNames ...string) *Store {
	s := &Store{}
	for _, name := range dedupe(workerNames) {
		s.nextWorker++
		s.workers = append(s.workers, core.Worker{ID: s.nextWorker, Name: name})
	}
	return s
}

// NewFromFiles seeds workers from base/seed_workers.txt when present.
func NewFromFiles(base string) *Store {
	return New(readLines(filepath.Join(base, "seed_workers.txt"))...)
}

// InsertRecord stores the record under a fresh id.
func (s *Store) InsertRecord(_ context.Context, r core.WageRecord) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRecord++
	r.ID = s.nextRecord
	s.records = append(s.records, r)
	return r.ID, nil
}

func (s *Store) UpdateRecord(_ context.Context, r core.WageRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.recordIndex(r.ID)
	if i < 0 {
		return fmt.Errorf("record %d: %w", r.ID, core.ErrNotFound)
	}
	s.records[i] = r
	return nil
}

func (s *Store) DeleteRecord(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.recordIndex(id)
	if i < 0 {
		return fmt.Errorf("record %d: %w", id, core.ErrNotFound)
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return nil
}

// ListRecords returns a copy in view order.
func (s *Store) ListRecords(_ context.Context) ([]core.WageRecord, error) {
	s.mu.Lock()
	out := append([]core.WageRecord(nil), s.records...)
	s.mu.Unlock()
	core.SortView(out)
	if out == nil {
		out = []core.WageRecord{}
	}
	return out, nil
}

func (s *Store) InsertWorker(_ context.Context, w core.Worker) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.workers {
		if existing.Name == w.Name {
			return 0, fmt.Errorf("worker %q: %w", w.Name, core.ErrDuplicate)
		}
	}
	s.nextWorker++
	w.ID = s.nextWorker
	s.workers = append(s.workers, w)
	return w.ID, nil
}

func (s *Store) DeleteWorker(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.workers {
		if w.ID == id {
			s.workers = append(s.workers[:i], s.workers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("worker %d: %w", id, core.ErrNotFound)
}

func (s *Store) ListWorkers(_ context.Context) ([]core.Worker, error) {
	s.mu.Lock()
	out := append([]core.Worker{}, s.workers...)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) recordIndex(id int64) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
