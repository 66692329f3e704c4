package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPragmas(t *testing.T, db *DB) {
	t.Helper()

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	ints := map[string]int{
		"busy_timeout": 5000,
		"synchronous":  1, // NORMAL
		"temp_store":   2, // MEMORY
	}
	for name, want := range ints {
		var got int
		require.NoError(t, db.QueryRow("PRAGMA "+name).Scan(&got), name)
		assert.Equal(t, want, got, name)
	}
}

func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)
	assertPragmas(t, db)
}

func TestPragmasAppliedOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	first, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenDB(path)
	require.NoError(t, err)
	defer second.Close()
	assertPragmas(t, second)
}
