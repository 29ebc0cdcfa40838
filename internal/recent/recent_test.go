package recent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/db"
	"chat-client/internal/mocks"
	"chat-client/internal/repositories"
)

func newStorage(t *testing.T) repositories.LocalStorage {
	t.Helper()
	database, err := db.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return repositories.NewLocalStorageRepo(database)
}

func TestAddIsMostRecentFirstAndBounded(t *testing.T) {
	ctx := context.Background()
	searches, err := Load(ctx, newStorage(t))
	require.NoError(t, err)

	for _, term := range []string{"a1", "a2", "a3", "a4", "a5", "a6"} {
		require.NoError(t, searches.Add(ctx, term))
	}

	assert.Equal(t, []string{"a6", "a5", "a4", "a3", "a2"}, searches.List())
}

func TestRepeatedSearchesAreDeduplicated(t *testing.T) {
	ctx := context.Background()
	searches, err := Load(ctx, newStorage(t))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, searches.Add(ctx, "bob"))
	}
	require.NoError(t, searches.Add(ctx, "alice"))
	require.NoError(t, searches.Add(ctx, " bob "))

	assert.Equal(t, []string{"bob", "alice"}, searches.List())
}

func TestHistoryPersistsAcrossLoads(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	first, err := Load(ctx, storage)
	require.NoError(t, err)
	require.NoError(t, first.Add(ctx, "carol"))
	require.NoError(t, first.Add(ctx, "dave"))

	second, err := Load(ctx, storage)
	require.NoError(t, err)
	assert.Equal(t, []string{"dave", "carol"}, second.List())
}

func TestLoadTrimsOversizedStoredHistory(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)
	require.NoError(t, storage.Set(ctx, StorageKey, `["a","b","a","c","d","e","f","g"]`))

	searches, err := Load(ctx, storage)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, searches.List())
}

func TestLoadCorruptHistoryStartsEmpty(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)
	require.NoError(t, storage.Set(ctx, StorageKey, `{broken`))

	searches, err := Load(ctx, storage)
	require.NoError(t, err)
	assert.Empty(t, searches.List())
}

func TestBlankTermIgnored(t *testing.T) {
	storage := new(mocks.LocalStorageMock)
	storage.On("Get", mock.Anything, StorageKey).Return("", repositories.ErrKeyNotFound).Once()

	searches, err := Load(context.Background(), storage)
	require.NoError(t, err)
	require.NoError(t, searches.Add(context.Background(), "   "))

	assert.Empty(t, searches.List())
	storage.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}
