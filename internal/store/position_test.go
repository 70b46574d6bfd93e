package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep-server/internal/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSavePosition_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	saved := domain.NewPagePosition("book-123/ch-04", 4, 10, domain.DefaultReaderSettings())
	require.NoError(t, s.SavePosition(ctx, saved))

	got, err := s.GetPosition(ctx, "book-123/ch-04")
	require.NoError(t, err)

	assert.Equal(t, saved.ContentID, got.ContentID)
	assert.Equal(t, saved.Page, got.Page)
	assert.Equal(t, saved.TotalPages, got.TotalPages)
	assert.True(t, saved.Settings.Equal(got.Settings))
	assert.True(t, saved.UpdatedAt.Equal(got.UpdatedAt))
}

func TestSavePosition_OverwritesPriorRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	settings := domain.DefaultReaderSettings()
	require.NoError(t, s.SavePosition(ctx, domain.NewPagePosition("book-1", 2, 10, settings)))
	require.NoError(t, s.SavePosition(ctx, domain.NewPagePosition("book-1", 7, 10, settings)))

	got, err := s.GetPosition(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Page)
}

func TestSavePosition_RejectsInvalidRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.SavePosition(ctx, &domain.PagePosition{ContentID: "book-1", Page: 10, TotalPages: 10})
	assert.Error(t, err)
}

func TestGetPosition_MissingRecord(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetPosition(context.Background(), "never-read")
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestGetPosition_DistinctContentIdentities(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	settings := domain.DefaultReaderSettings()
	require.NoError(t, s.SavePosition(ctx, domain.NewPagePosition("book-1", 3, 10, settings)))
	require.NoError(t, s.SavePosition(ctx, domain.NewPagePosition("book-2", 8, 12, settings)))

	first, err := s.GetPosition(ctx, "book-1")
	require.NoError(t, err)
	second, err := s.GetPosition(ctx, "book-2")
	require.NoError(t, err)

	assert.Equal(t, 3, first.Page)
	assert.Equal(t, 8, second.Page)
}

func TestGetPosition_CorruptRecordTreatedAsAbsent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(positionKey("book-1"), []byte("{not json"))
	})
	require.NoError(t, err)

	_, err = s.GetPosition(ctx, "book-1")
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestGetPosition_InvalidShapeTreatedAsAbsent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Record missing total_pages fails shape validation.
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(positionKey("book-1"), []byte(`{"content_id":"book-1","page":4}`))
	})
	require.NoError(t, err)

	_, err = s.GetPosition(ctx, "book-1")
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestDeletePosition(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePosition(ctx, domain.NewPagePosition("book-1", 1, 5, domain.DefaultReaderSettings())))
	require.NoError(t, s.DeletePosition(ctx, "book-1"))

	_, err := s.GetPosition(ctx, "book-1")
	assert.ErrorIs(t, err, ErrPositionNotFound)
}
