package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/persistence"
	"github.com/example/office-planner/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	migrationsDir = "migrations"
	dateLayout    = "2006-01-02"
)

// timestampLayout has a fixed width, so text ordering of stored timestamps
// matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Storage is the SQLite backed persistence.Store.
type Storage struct {
	repositories
	pool   *ConnectionPool
	retry  *RetryHelper
	logger *zap.Logger
}

var _ persistence.Store = (*Storage)(nil)

// Open connects to the database described by cfg. Call Migrate before use.
func Open(cfg migration.SQLiteConfig, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := NewConnectionPool(cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{
		repositories: newRepositories(pool.DB()),
		pool:         pool,
		retry:        NewRetryHelper(DefaultRetryConfig()),
		logger:       logger,
	}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// DB exposes the raw handle for tooling such as the migrate command.
func (s *Storage) DB() *sql.DB {
	return s.pool.DB()
}

// Migrate applies every embedded migration that has not run yet.
func (s *Storage) Migrate(ctx context.Context) error {
	return s.migrationManager().RunMigrations(ctx)
}

// MigrationStatus reports applied and pending embedded migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.MigrationStatus, error) {
	return s.migrationManager().GetMigrationStatus(ctx)
}

func (s *Storage) migrationManager() migration.MigrationManager {
	return migration.NewMigrationManager(
		migration.NewFileScanner(migrationsFS),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationsDir,
		s.logger,
	)
}

// WithinTx runs fn inside one immediate transaction. A transaction that fails
// because the database is busy is retried from the start.
func (s *Storage) WithinTx(ctx context.Context, fn func(repos persistence.Repositories) error) error {
	attempt := 0
	return s.retry.WithRetry(ctx, func() error {
		attempt++
		if attempt > 1 {
			s.logger.Debug("retrying busy transaction", zap.Int("attempt", attempt))
		}
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return fn(newRepositories(tx))
		})
	})
}

// repositories binds every repository to one queryer.
type repositories struct {
	q queryer
}

func newRepositories(q queryer) repositories {
	return repositories{q: q}
}

func (r repositories) Desks() persistence.DeskRepository { return newDeskRepository(r.q) }

func (r repositories) Employees() persistence.EmployeeRepository {
	return newEmployeeRepository(r.q)
}

func (r repositories) Skills() persistence.SkillRepository { return newSkillRepository(r.q) }

func (r repositories) Images() persistence.ImageRepository { return newImageRepository(r.q) }

func (r repositories) Reservations() persistence.ReservationRepository {
	return newReservationRepository(r.q)
}

func (r repositories) Users() persistence.UserRepository { return newUserRepository(r.q) }

func (r repositories) Groups() persistence.GroupRepository { return newGroupRepository(r.q) }

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value, column string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(value, column string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableString(v *string) sql.NullString {
	if v == nil || *v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}
