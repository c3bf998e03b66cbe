package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))
	require.NoError(t, Ping(db))

	assert.True(t, db.Migrator().HasTable("whatsapp_sessions"))
	assert.True(t, db.Migrator().HasTable("message_logs"))
	assert.True(t, db.Migrator().HasTable("billing_notifications"))
}

func TestOpenSQLiteCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "relay.db")
	db, err := Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.Error(t, err)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := Open("postgres", "")
	assert.Error(t, err)
}
