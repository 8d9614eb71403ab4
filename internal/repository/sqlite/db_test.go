package repository

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppliesPragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "spriteshop.db"))
	require.NoError(t, err)
	defer db.Close()

	var foreignKeys int64
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&foreignKeys))
	assert.Equal(t, int64(1), foreignKeys)

	var journalMode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&journalMode))
	assert.Equal(t, "wal", strings.ToLower(journalMode))

	var busyTimeout int64
	require.NoError(t, db.QueryRow(`PRAGMA busy_timeout`).Scan(&busyTimeout))
	assert.Equal(t, int64(5000), busyTimeout)
}

func TestOpenRejectsDanglingSellerID(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "spriteshop.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
	INSERT INTO sprites (name, price, short_description, long_description, image_path, seller_id, created_at)
	VALUES ('Hero', 50, 'h', 'hh', 'default-sprite.png', 999, 0)
	`)
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "foreign key")
}

func TestOpenEmptyPath(t *testing.T) {
	db, err := Open("   ")
	assert.Nil(t, db)
	assert.Error(t, err)
}
