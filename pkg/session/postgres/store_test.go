package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-prospect-research/pkg/session"
)

const (
	pgTestSessID = "sess-123"
	pgTestKey    = "fetch_businesses_1"
	pgTestValue  = `{"data":[{"business_id":"b1"}]}`
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestPut_Upserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO session_data \(session_id,key,value\) VALUES \(\$1,\$2,\$3\) ON CONFLICT \(session_id, key\) DO UPDATE SET value = EXCLUDED.value`).
		WithArgs(pgTestSessID, pgTestKey, pgTestValue).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), pgTestSessID, pgTestKey, json.RawMessage(pgTestValue))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPut_DBError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO session_data").
		WillReturnError(errors.New("connection refused"))

	err := store.Put(context.Background(), pgTestSessID, pgTestKey, json.RawMessage(pgTestValue))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting session data")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPut_RejectsBeforeQuerying(t *testing.T) {
	store, mock := newMockStore(t)

	assert.ErrorIs(t, store.Put(context.Background(), "", pgTestKey, json.RawMessage(`1`)), session.ErrEmptyID)
	assert.Error(t, store.Put(context.Background(), pgTestSessID, pgTestKey, json.RawMessage(`{`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_Found(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"value"}).AddRow([]byte(pgTestValue))
	mock.ExpectQuery(`SELECT value FROM session_data WHERE session_id = \$1 AND key = \$2`).
		WithArgs(pgTestSessID, pgTestKey).
		WillReturnRows(rows)

	got, ok, err := store.Get(context.Background(), pgTestSessID, pgTestKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, pgTestValue, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM session_data").
		WithArgs(pgTestSessID, pgTestKey).
		WillReturnError(sql.ErrNoRows)

	got, ok, err := store.Get(context.Background(), pgTestSessID, pgTestKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_DBError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM session_data").
		WillReturnError(errors.New("timeout"))

	_, _, err := store.Get(context.Background(), pgTestSessID, pgTestKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying session data")
}

func TestListKeys_OrderedBySeq(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"key"}).AddRow("first").AddRow("second")
	mock.ExpectQuery(`SELECT key FROM session_data WHERE session_id = \$1 ORDER BY seq`).
		WithArgs(pgTestSessID).
		WillReturnRows(rows)

	keys, err := store.ListKeys(context.Background(), pgTestSessID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListKeys_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT key FROM session_data").
		WithArgs(pgTestSessID).
		WillReturnRows(sqlmock.NewRows([]string{"key"}))

	keys, err := store.ListKeys(context.Background(), pgTestSessID)
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestListKeys_RowError(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"key"}).AddRow("first").RowError(0, errors.New("broken row"))
	mock.ExpectQuery("SELECT key FROM session_data").WillReturnRows(rows)

	_, err := store.ListKeys(context.Background(), pgTestSessID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating session keys")
}

func TestListKeys_DBError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT key FROM session_data").
		WillReturnError(errors.New("connection reset"))

	_, err := store.ListKeys(context.Background(), pgTestSessID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing session keys")
}

func TestDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM session_data WHERE session_id = \$1 AND key = \$2`).
		WithArgs(pgTestSessID, pgTestKey).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Delete(context.Background(), pgTestSessID, pgTestKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM session_data WHERE session_id = \$1$`).
		WithArgs(pgTestSessID).
		WillReturnResult(sqlmock.NewResult(0, 4))

	assert.NoError(t, store.DeleteSession(context.Background(), pgTestSessID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSession_DBError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM session_data").
		WillReturnError(errors.New("lock timeout"))

	err := store.DeleteSession(context.Background(), pgTestSessID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deleting session")
}

func TestPingAndClose(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	store := New(db)

	mock.ExpectPing()
	mock.ExpectClose()

	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSessionID(t *testing.T) {
	store, _ := newMockStore(t)
	assert.NotEqual(t, store.NewSessionID(), store.NewSessionID())
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.Error(t, err)
}
