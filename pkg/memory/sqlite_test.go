package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cases.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	id, err := store.Insert(ctx, "Tomato Leaf Blight medium")
	require.NoError(t, err)
	require.Equal(t, int64(1), id, "ids start at 1")

	id, err = store.Insert(ctx, "Potato Late Blight high")
	require.NoError(t, err)
	require.Equal(t, int64(2), id)

	text, ok, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Tomato Leaf Blight medium", text)

	_, ok, err = store.Get(ctx, 99)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	_, err = store.Insert(context.Background(), "persisted case")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	text, ok, err := reopened.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "persisted case", text)
}
