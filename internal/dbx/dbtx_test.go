package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS email_records (id INTEGER PRIMARY KEY, is_verified INTEGER NOT NULL DEFAULT 0);`)
	require.NoError(t, err)
	return db
}

func countVerified(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM email_records WHERE is_verified = 1`).Scan(&n))
	return n
}

func insertRecord(t *testing.T, db DBTX) int64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(), `INSERT INTO email_records (is_verified) VALUES (0)`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func markVerified(ctx context.Context, tx DBTX, id int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE email_records SET is_verified = 1 WHERE id = ?`, id)
	return err
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := setupDB(t)
	id := insertRecord(t, db)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return markVerified(ctx, tx, id)
	})
	require.NoError(t, err)
	require.Equal(t, 1, countVerified(t, db), "must commit on success")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)
	id := insertRecord(t, db)
	boom := errors.New("hash mismatch")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, markVerified(ctx, tx, id))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, countVerified(t, db), "must roll back when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)
	id := insertRecord(t, db)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countVerified(t, db), "must roll back on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, markVerified(ctx, tx, id))
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err, "begin should fail when DB is closed")
	require.False(t, called)
}
