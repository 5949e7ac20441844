// Package sessiontest holds behavior checks shared by every session.Store
// backend.
package sessiontest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-prospect-research/pkg/session"
)

const (
	testSessA      = "sess-a"
	testSessB      = "sess-b"
	testGoroutines = 8
	testIterations = 25
)

// Run exercises the Store contract against stores built by newStore. Each
// subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Helper()

	t.Run("put and get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, testSessA, "company", json.RawMessage(`{"name":"Acme","tags":["b","a"]}`)))

		got, ok, err := store.Get(ctx, testSessA, "company")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"name":"Acme","tags":["b","a"]}`, string(got))
	})

	t.Run("get absent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		got, ok, err := store.Get(ctx, testSessA, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("put upserts in place", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, testSessA, "first", json.RawMessage(`1`)))
		require.NoError(t, store.Put(ctx, testSessA, "second", json.RawMessage(`2`)))
		require.NoError(t, store.Put(ctx, testSessA, "first", json.RawMessage(`"updated"`)))

		keys, err := store.ListKeys(ctx, testSessA)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, keys)

		got, ok, err := store.Get(ctx, testSessA, "first")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `"updated"`, string(got))
	})

	t.Run("list keys insertion order", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		want := []string{"zeta", "alpha", "mid", "beta"}
		for i, k := range want {
			require.NoError(t, store.Put(ctx, testSessA, k, json.RawMessage(fmt.Sprint(i))))
		}

		keys, err := store.ListKeys(ctx, testSessA)
		require.NoError(t, err)
		assert.Equal(t, want, keys)

		empty, err := store.ListKeys(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("delete one key", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, testSessA, "k1", json.RawMessage(`1`)))
		require.NoError(t, store.Put(ctx, testSessA, "k2", json.RawMessage(`2`)))
		require.NoError(t, store.Delete(ctx, testSessA, "k1"))
		require.NoError(t, store.Delete(ctx, testSessA, "never-stored"))

		keys, err := store.ListKeys(ctx, testSessA)
		require.NoError(t, err)
		assert.Equal(t, []string{"k2"}, keys)

		_, ok, err := store.Get(ctx, testSessA, "k1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete session is scoped", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, testSessA, "k", json.RawMessage(`"a"`)))
		require.NoError(t, store.Put(ctx, testSessA, "k2", json.RawMessage(`"a2"`)))
		require.NoError(t, store.Put(ctx, testSessB, "k", json.RawMessage(`"b"`)))

		require.NoError(t, store.DeleteSession(ctx, testSessA))

		keys, err := store.ListKeys(ctx, testSessA)
		require.NoError(t, err)
		assert.Empty(t, keys)

		got, ok, err := store.Get(ctx, testSessB, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `"b"`, string(got))
	})

	t.Run("rejects empty ids and invalid json", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		assert.ErrorIs(t, store.Put(ctx, "", "k", json.RawMessage(`1`)), session.ErrEmptyID)
		assert.ErrorIs(t, store.Put(ctx, testSessA, "", json.RawMessage(`1`)), session.ErrEmptyID)
		assert.Error(t, store.Put(ctx, testSessA, "k", json.RawMessage(`{nope`)))
	})

	t.Run("new session ids are unique", func(t *testing.T) {
		store := newStore(t)
		a, b := store.NewSessionID(), store.NewSessionID()
		assert.NotEmpty(t, a)
		assert.NotEqual(t, a, b)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})

	t.Run("concurrent puts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for g := range testGoroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range testIterations {
					key := fmt.Sprintf("g%d-%d", g, i)
					assert.NoError(t, store.Put(ctx, testSessA, key, json.RawMessage(`true`)))
				}
			}()
		}
		wg.Wait()

		keys, err := store.ListKeys(ctx, testSessA)
		require.NoError(t, err)
		assert.Len(t, keys, testGoroutines*testIterations)
	})
}
