package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db))
}

func TestResetDropsAccountsAndPostsButKeepsEvents(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES ('alice', 'x')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO posts (title, content, author_id) VALUES ('t', 'c', 1)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO events (id, type, level, message) VALUES ('e1', 'x', 'info', 'm')`)
	require.NoError(t, err)

	require.NoError(t, Reset(ctx, db))

	var n int
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`))
	assert.Zero(t, n)
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts`))
	assert.Zero(t, n)
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM events`))
	assert.Equal(t, 1, n)
}

func TestForeignKeysAreEnforced(t *testing.T) {
	db := openTestDB(t)
	_, err := db.ExecContext(context.Background(), `INSERT INTO posts (title, content, author_id) VALUES ('t', 'c', 42)`)
	assert.Error(t, err)
}

func TestNewAcceptsURIWithQuery(t *testing.T) {
	assert.Equal(t, "app.db?_foreign_keys=on&_busy_timeout=5000", withPragmas("app.db"))
	assert.Equal(t, "file:app.db?cache=shared&_foreign_keys=on&_busy_timeout=5000", withPragmas("file:app.db?cache=shared"))

	dsn := "file:" + filepath.Join(t.TempDir(), "uri.db") + "?cache=shared"
	db, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))

	var fk int
	require.NoError(t, db.Get(&fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)
}
