package migration

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionManager_DSN(t *testing.T) {
	dsn := NewConnectionManager(DefaultSQLiteConfig("data/office.db")).DSN()

	assert.True(t, strings.HasPrefix(dsn, "file:data/office.db?"))
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "foreign_keys%281%29")
	assert.Contains(t, dsn, "busy_timeout%2810000%29")

	bare := NewConnectionManager(SQLiteConfig{Path: "x.db"}).DSN()
	assert.Equal(t, "file:x.db", bare)
}

func TestConnectionManager_ValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  SQLiteConfig
		wantErr bool
	}{
		{name: "defaults", config: DefaultSQLiteConfig("office.db")},
		{name: "empty path", config: SQLiteConfig{}, wantErr: true},
		{name: "query in path", config: SQLiteConfig{Path: "office.db?mode=ro"}, wantErr: true},
		{name: "negative timeout", config: SQLiteConfig{Path: "x.db", BusyTimeout: -time.Second}, wantErr: true},
		{name: "bad journal mode", config: SQLiteConfig{Path: "x.db", JournalMode: "FAST"}, wantErr: true},
		{name: "bad synchronous mode", config: SQLiteConfig{Path: "x.db", Synchronous: "SOMETIMES"}, wantErr: true},
		{name: "negative pool", config: SQLiteConfig{Path: "x.db", MaxOpenConns: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConnectionManager(tt.config).ValidateConfig()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConnectionManager_GetConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "office.db")
	db, err := NewConnectionManager(TempFileTestSQLiteConfig(path)).GetConnection()
	require.NoError(t, err)
	defer db.Close()

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}
