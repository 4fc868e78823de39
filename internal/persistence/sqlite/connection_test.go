package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/office-planner/internal/persistence"
)

func TestErrorMapper_MapError(t *testing.T) {
	mapper := NewErrorMapper()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: persistence.ErrNotFound},
		{name: "unique", err: errors.New("constraint failed: UNIQUE constraint failed: desks.number (2067)"), want: persistence.ErrDuplicate},
		{name: "primary key", err: errors.New("PRIMARY KEY constraint failed"), want: persistence.ErrDuplicate},
		{name: "foreign key", err: errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), want: persistence.ErrForeignKeyViolation},
		{name: "check", err: errors.New("CHECK constraint failed: level BETWEEN 1 AND 4"), want: persistence.ErrConstraintViolation},
		{name: "not null", err: errors.New("NOT NULL constraint failed: desks.number"), want: persistence.ErrConstraintViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(mapper.MapError(tt.err), tt.want))
		})
	}

	assert.NoError(t, mapper.MapError(nil))
	other := errors.New("disk I/O error")
	assert.Equal(t, other, mapper.MapError(other))
}

func TestDeskRepository_MapsDriverErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newDeskRepository(db)
	ctx := context.Background()
	desk := persistence.Desk{ID: "desk-1", Number: "A1", CreatedAt: baseTime, UpdatedAt: baseTime}

	mock.ExpectExec("INSERT INTO desks").
		WillReturnError(errors.New("UNIQUE constraint failed: desks.number"))
	assert.True(t, errors.Is(repo.CreateDesk(ctx, desk), persistence.ErrDuplicate))

	mock.ExpectExec("UPDATE desks").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(repo.UpdateDesk(ctx, desk), persistence.ErrNotFound))

	mock.ExpectQuery("SELECT (.+) FROM desks WHERE id").
		WithArgs("desk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.GetDesk(ctx, "desk-1")
	assert.True(t, errors.Is(err, persistence.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryHelper_WithRetry(t *testing.T) {
	helper := NewRetryHelper(RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2})
	ctx := context.Background()

	t.Run("retries busy database", func(t *testing.T) {
		calls := 0
		err := helper.WithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := helper.WithRetry(ctx, func() error {
			calls++
			return errors.New("database is locked")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := helper.WithRetry(ctx, func() error {
			calls++
			return boom
		})
		assert.Equal(t, boom, err)
		assert.Equal(t, 1, calls)
	})
}
