// Package migration applies versioned SQL migrations to SQLite databases.
//
// Migration files are read from an fs.FS (usually an embed.FS compiled into
// the binary) and follow the naming convention {version}_{description}.sql,
// e.g. "001_initial_schema.sql". Each migration runs in its own transaction
// together with its row in the schema_migrations table, so a failed file
// leaves no trace. Versions must be contiguous, and a file whose checksum no
// longer matches the applied one stops the run.
//
// Example usage:
//
//	scanner := NewFileScanner(migrationsFS)
//	manager := NewMigrationManager(scanner, NewSQLiteExecutor(db), "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
