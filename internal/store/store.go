// Package store is the remote table/record store the rest of the system
// reads and writes. Filtering happens in-process after List.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Logical table names.
const (
	TableTasks     = "tasks"
	TableReminders = "reminders"
	TablePeople    = "people"
)

// IDField is the primary key column of every table.
const IDField = "Id"

var (
	ErrNotFound          = errors.New("record not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrTablesUnavailable = errors.New("table list unavailable")
)

// Record is one row keyed by column title. A nil value clears the column.
type Record map[string]any

// ID returns the record's primary key, or 0.
func (r Record) ID() int {
	switch v := r[IDField].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

type Store interface {
	List(ctx context.Context, table string) ([]Record, error)
	Get(ctx context.Context, table string, id int) (Record, error)
	Create(ctx context.Context, table string, fields Record) (int, error)
	Update(ctx context.Context, table string, id int, fields Record) error
	Delete(ctx context.Context, table string, id int) error
}

// APIError is a non-2xx answer from a remote store.
type APIError struct {
	Status   int
	Endpoint string
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store API error [%s]: status %d: %s", e.Endpoint, e.Status, e.Body)
}

// Is lets a 404 answer match ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
