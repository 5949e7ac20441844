package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-prospect-research/pkg/session"
	"github.com/txn2/mcp-prospect-research/pkg/session/sessiontest"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T) session.Store {
		return openTestStore(t, filepath.Join(t.TempDir(), "session_data.db"))
	})
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "data.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "s", "b", json.RawMessage(`{"v":2}`)))
	require.NoError(t, first.Put(ctx, "s", "a", json.RawMessage(`{"v":1}`)))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	assert.Equal(t, path, second.Path())

	keys, err := second.ListKeys(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, keys)

	got, ok, err := second.Get(ctx, "s", "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":1}`, string(got))
}

func TestStore_KeepsMemberOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "order.db"))

	value := `{"z":1,"a":2,"m":3}`
	require.NoError(t, store.Put(ctx, "s", "doc", json.RawMessage(value)))

	got, _, err := store.Get(ctx, "s", "doc")
	require.NoError(t, err)
	assert.Equal(t, value, string(got))
}

func TestStore_ResearchPersister(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "research.db"))
	p := session.NewResearchPersister(store)

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, store.Put(ctx, session.ResearchNamespace, "r1",
		json.RawMessage(`{"session_id":"r1","filters":null,"last_touched_at":"2025-01-01T00:00:00Z"}`)))
	loaded, err = p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "r1", loaded[0].ID)

	require.NoError(t, p.Save(ctx, nil))
	keys, err := store.ListKeys(ctx, session.ResearchNamespace)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOpen_DefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())
	store := openTestStore(t, "")
	assert.Equal(t, DefaultPath, store.Path())
}
