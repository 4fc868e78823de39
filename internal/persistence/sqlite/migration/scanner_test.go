package migration

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileScanner_ScanMigrations(t *testing.T) {
	t.Run("sorts by numeric version and reads descriptions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/010_tenth.sql":         {Data: []byte("CREATE TABLE ten (id TEXT);")},
			"migrations/002_second.sql":        {Data: []byte("-- Description: Adds the second table\nCREATE TABLE two (id TEXT);")},
			"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE one (id TEXT);")},
			"migrations/README.md":             {Data: []byte("ignored")},
		}

		migrations, err := NewFileScanner(fsys).ScanMigrations("migrations")
		require.NoError(t, err)
		require.Len(t, migrations, 3)

		assert.Equal(t, "001", migrations[0].Version)
		assert.Equal(t, "initial schema", migrations[0].Description)
		assert.Equal(t, "002", migrations[1].Version)
		assert.Equal(t, "Adds the second table", migrations[1].Description)
		assert.Equal(t, "010", migrations[2].Version)
		assert.NotEmpty(t, migrations[0].Checksum)
		assert.Equal(t, "migrations/001_initial_schema.sql", migrations[0].FilePath)
	})

	t.Run("rejects badly named files", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/initial.sql": {Data: []byte("CREATE TABLE x (id TEXT);")}}

		_, err := NewFileScanner(fsys).ScanMigrations("migrations")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidMigrationFile))
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/001_a.sql":  {Data: []byte("CREATE TABLE a (id TEXT);")},
			"migrations/0001_b.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
		}

		_, err := NewFileScanner(fsys).ScanMigrations("migrations")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicateVersion))
	})

	t.Run("rejects comment only files", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/001_empty.sql": {Data: []byte("-- nothing here\n")}}

		_, err := NewFileScanner(fsys).ScanMigrations("migrations")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidMigrationFile))
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewFileScanner(fstest.MapFS{}).ScanMigrations("migrations")
		assert.Error(t, err)
	})
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- Description: demo
CREATE TABLE a (id TEXT);

-- trailing comment
CREATE INDEX idx_a ON a(id);
`
	statements := splitStatements(sql)
	require.Len(t, statements, 2)
	assert.Equal(t, "CREATE TABLE a (id TEXT)", statements[0])
	assert.Equal(t, "CREATE INDEX idx_a ON a(id)", statements[1])
}
