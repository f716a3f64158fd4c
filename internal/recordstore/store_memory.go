package recordstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"opsbridge/pkg/canonical"
	"opsbridge/pkg/platform/sentinel"
)

// MemoryStore is an in-process Store used for local runs without a record
// store and for tests. Filtering compares the canonical text of a field.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable
	now    func() time.Time
}

type memTable struct {
	order   []string
	records map[string]*Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*memTable),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) table(name string) *memTable {
	t, ok := s.tables[name]
	if !ok {
		t = &memTable{records: make(map[string]*Record)}
		s.tables[name] = t
	}
	return t
}

func (s *MemoryStore) List(_ context.Context, table string, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, nil
	}
	var out []Record
	for _, id := range t.order {
		rec := t.records[id]
		if q.Field != "" && canonical.Coerce(rec.Fields[q.Field]).OrEmpty() != q.Equals {
			continue
		}
		out = append(out, cloneRecord(rec))
		if q.MaxRecords > 0 && len(out) >= q.MaxRecords {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, table, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, notFound("get", table)
	}
	rec, ok := t.records[id]
	if !ok {
		return nil, notFound("get", table)
	}
	c := cloneRecord(rec)
	return &c, nil
}

func (s *MemoryStore) Create(_ context.Context, table string, fields Fields) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.insert(table, fields)
	return &rec, nil
}

func (s *MemoryStore) CreateBatch(_ context.Context, table string, batch []Fields) ([]Record, error) {
	if len(batch) > MaxBatchSize {
		return nil, fmt.Errorf("recordstore batch of %d exceeds limit of %d", len(batch), MaxBatchSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(batch))
	for _, f := range batch {
		out = append(out, s.insert(table, f))
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, table, id string, fields Fields) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, notFound("update", table)
	}
	rec, ok := t.records[id]
	if !ok {
		return nil, notFound("update", table)
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	c := cloneRecord(rec)
	return &c, nil
}

func (s *MemoryStore) Delete(_ context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return notFound("delete", table)
	}
	if _, ok := t.records[id]; !ok {
		return notFound("delete", table)
	}
	delete(t.records, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of records in table.
func (s *MemoryStore) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[table]; ok {
		return len(t.records)
	}
	return 0
}

// insert must be called with the write lock held.
func (s *MemoryStore) insert(table string, fields Fields) Record {
	t := s.table(table)
	id := "rec" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	rec := &Record{ID: id, CreatedTime: s.now(), Fields: make(Fields, len(fields))}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	t.records[id] = rec
	t.order = append(t.order, id)
	return cloneRecord(rec)
}

func cloneRecord(r *Record) Record {
	c := Record{ID: r.ID, CreatedTime: r.CreatedTime, Fields: make(Fields, len(r.Fields))}
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return c
}

func notFound(op, table string) error {
	return &UpstreamError{Op: op, Table: table, Status: 404, Body: sentinel.ErrNotFound.Error()}
}

var _ Store = (*MemoryStore)(nil)
