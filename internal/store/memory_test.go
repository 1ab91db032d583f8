package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCRUD(t *testing.T) {
	m := NewMemory(TableTasks)
	ctx := context.Background()

	id, err := m.Create(ctx, TableTasks, Record{"Title": "water plants"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	rec, err := m.Get(ctx, TableTasks, id)
	require.NoError(t, err)
	assert.Equal(t, "water plants", rec["Title"])
	assert.Equal(t, id, rec.ID())

	// Mutating a returned record must not leak into the store.
	rec["Title"] = "changed"
	again, err := m.Get(ctx, TableTasks, id)
	require.NoError(t, err)
	assert.Equal(t, "water plants", again["Title"])

	require.NoError(t, m.Update(ctx, TableTasks, id, Record{"Status": "done", "Title": nil}))
	updated, err := m.Get(ctx, TableTasks, id)
	require.NoError(t, err)
	assert.Equal(t, "done", updated["Status"])
	assert.Nil(t, updated["Title"])

	list, err := m.List(ctx, TableTasks)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, m.Delete(ctx, TableTasks, id))
	_, err = m.Get(ctx, TableTasks, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUnknownTable(t *testing.T) {
	m := NewMemory(TableTasks)

	_, err := m.List(context.Background(), "projects")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestMemoryPutKeepsIDsMonotonic(t *testing.T) {
	m := NewMemory(TableTasks)
	m.Put(TableTasks, 10, Record{"Title": "fixture"})

	id, err := m.Create(context.Background(), TableTasks, Record{"Title": "next"})
	require.NoError(t, err)
	assert.Equal(t, 11, id)
}
