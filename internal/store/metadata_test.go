package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/imgstore/internal/format"
)

func openTestMetadata(t *testing.T) *Metadata {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestInsertAndLookup(t *testing.T) {
	m := openTestMetadata(t)
	ctx := context.Background()
	id := uuid.New()
	expires := time.Now().UTC().Add(time.Minute)

	require.NoError(t, m.Insert(ctx, id, format.PNG, expires))

	rows, err := m.Lookup(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, format.PNG, rows[0].Format)
	assert.False(t, rows[0].Computed)
	assert.Equal(t, expires.UnixMilli(), rows[0].ExpiresAt.UnixMilli())
}

func TestLookupUnknownIdentifierIsEmpty(t *testing.T) {
	m := openTestMetadata(t)

	rows, err := m.Lookup(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInsertConflict(t *testing.T) {
	m := openTestMetadata(t)
	ctx := context.Background()
	id := uuid.New()
	expires := time.Now().UTC().Add(time.Minute)

	require.NoError(t, m.Insert(ctx, id, format.PNG, expires))
	assert.ErrorIs(t, m.Insert(ctx, id, format.PNG, expires), ErrConflict)

	// A different format under the same identifier is a distinct row.
	require.NoError(t, m.Insert(ctx, id, format.JPG, expires))
}

func TestIdentifierExists(t *testing.T) {
	m := openTestMetadata(t)
	ctx := context.Background()
	id := uuid.New()

	exists, err := m.IdentifierExists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, m.Insert(ctx, id, format.WEBP, time.Now().Add(time.Minute)))

	exists, err = m.IdentifierExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMarkComputedIsIdempotent(t *testing.T) {
	m := openTestMetadata(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, m.Insert(ctx, id, format.PNG, time.Now().Add(time.Minute)))

	require.NoError(t, m.MarkComputed(ctx, id, format.PNG))
	require.NoError(t, m.MarkComputed(ctx, id, format.PNG))

	rows, err := m.Lookup(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Computed)

	// Marking a row that does not exist is a no-op, not an error.
	require.NoError(t, m.MarkComputed(ctx, uuid.New(), format.PNG))
}

func TestDeleteExpired(t *testing.T) {
	m := openTestMetadata(t)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := uuid.New()
	require.NoError(t, m.Insert(ctx, expired, format.PNG, now.Add(-time.Minute)))
	require.NoError(t, m.MarkComputed(ctx, expired, format.PNG))

	// Expired but never computed: left in place for a later sweep.
	pending := uuid.New()
	require.NoError(t, m.Insert(ctx, pending, format.PNG, now.Add(-time.Minute)))

	// Computed but not yet expired: untouched.
	live := uuid.New()
	require.NoError(t, m.Insert(ctx, live, format.PNG, now.Add(time.Hour)))
	require.NoError(t, m.MarkComputed(ctx, live, format.PNG))

	gone, err := m.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, gone, 1)
	assert.Equal(t, expired, gone[0].Identifier)
	assert.Equal(t, format.PNG, gone[0].Format)

	rows, err := m.Lookup(ctx, expired)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = m.Lookup(ctx, live)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = m.Lookup(ctx, pending)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
