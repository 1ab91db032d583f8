package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store. Records round-trip through copies so callers
// never share maps with the store.
type Memory struct {
	mu     sync.Mutex
	tables map[string]map[int]Record
	nextID map[string]int
}

// NewMemory creates a store that knows the given tables.
func NewMemory(tables ...string) *Memory {
	m := &Memory{
		tables: make(map[string]map[int]Record),
		nextID: make(map[string]int),
	}
	for _, t := range tables {
		m.tables[strings.ToLower(t)] = make(map[int]Record)
	}
	return m
}

func (m *Memory) table(name string) (map[int]Record, error) {
	t, ok := m.tables[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return t, nil
}

func (m *Memory) List(_ context.Context, table string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyRecord(t[id]))
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, table string, id int) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	rec, ok := t[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
	}
	return copyRecord(rec), nil
}

func (m *Memory) Create(_ context.Context, table string, fields Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(table)
	if err != nil {
		return 0, err
	}
	key := strings.ToLower(table)
	m.nextID[key]++
	id := m.nextID[key]

	rec := copyRecord(fields)
	rec[IDField] = float64(id)
	t[id] = rec
	return id, nil
}

// Put stores a record under an explicit id. Test fixtures use it.
func (m *Memory) Put(table string, id int, fields Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(table)
	t, ok := m.tables[key]
	if !ok {
		t = make(map[int]Record)
		m.tables[key] = t
	}
	rec := copyRecord(fields)
	rec[IDField] = float64(id)
	t[id] = rec
	if id > m.nextID[key] {
		m.nextID[key] = id
	}
}

func (m *Memory) Update(_ context.Context, table string, id int, fields Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(table)
	if err != nil {
		return err
	}
	rec, ok := t[id]
	if !ok {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
	}
	for k, v := range fields {
		if k == IDField {
			continue
		}
		rec[k] = v
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, table string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(table)
	if err != nil {
		return err
	}
	if _, ok := t[id]; !ok {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
	}
	delete(t, id)
	return nil
}
