package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/office-planner/internal/persistence"
)

// DeskRepository implements persistence.DeskRepository using SQLite
type DeskRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

func newDeskRepository(q queryer) *DeskRepository {
	return &DeskRepository{
		helper: NewQueryHelper(q),
		mapper: NewErrorMapper(),
	}
}

const deskColumns = `id, number, location, x, y, is_available, created_at, updated_at`

// CreateDesk inserts a new desk
func (r *DeskRepository) CreateDesk(ctx context.Context, desk persistence.Desk) error {
	if desk.ID == "" || desk.Number == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO desks (id, number, location, x, y, is_available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		desk.ID,
		desk.Number,
		desk.Location,
		nullableInt(desk.X),
		nullableInt(desk.Y),
		desk.IsAvailable,
		formatTimestamp(desk.CreatedAt),
		formatTimestamp(desk.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateDesk overwrites the mutable fields of an existing desk
func (r *DeskRepository) UpdateDesk(ctx context.Context, desk persistence.Desk) error {
	if desk.ID == "" || desk.Number == "" {
		return persistence.ErrConstraintViolation
	}

	return r.helper.ExecAffecting(ctx, r.mapper, `
		UPDATE desks
		SET number = ?, location = ?, x = ?, y = ?, is_available = ?, updated_at = ?
		WHERE id = ?
	`,
		desk.Number,
		desk.Location,
		nullableInt(desk.X),
		nullableInt(desk.Y),
		desk.IsAvailable,
		formatTimestamp(desk.UpdatedAt),
		desk.ID,
	)
}

// GetDesk retrieves a desk by ID
func (r *DeskRepository) GetDesk(ctx context.Context, id string) (persistence.Desk, error) {
	if id == "" {
		return persistence.Desk{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+deskColumns+` FROM desks WHERE id = ?`, id)
	return r.scanDesk(row)
}

// GetDeskByNumber retrieves a desk by its unique number
func (r *DeskRepository) GetDeskByNumber(ctx context.Context, number string) (persistence.Desk, error) {
	if number == "" {
		return persistence.Desk{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+deskColumns+` FROM desks WHERE number = ?`, number)
	return r.scanDesk(row)
}

// ListDesks returns desks ordered by number then ID
func (r *DeskRepository) ListDesks(ctx context.Context, filter persistence.DeskFilter) ([]persistence.Desk, error) {
	query := `SELECT ` + deskColumns + ` FROM desks`
	if filter.AvailableOnly {
		query += ` WHERE is_available = 1`
	}
	query += ` ORDER BY number ASC, id ASC`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	desks := make([]persistence.Desk, 0)
	for rows.Next() {
		desk, err := r.scanDesk(rows)
		if err != nil {
			return nil, err
		}
		desks = append(desks, desk)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return desks, nil
}

// DeleteDesk removes a desk. Seated employees are unseated and reservations
// on the desk are removed by the schema.
func (r *DeskRepository) DeleteDesk(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.helper.ExecAffecting(ctx, r.mapper, `DELETE FROM desks WHERE id = ?`, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DeskRepository) scanDesk(row rowScanner) (persistence.Desk, error) {
	var (
		desk                 persistence.Desk
		x, y                 sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&desk.ID, &desk.Number, &desk.Location, &x, &y, &desk.IsAvailable, &createdAt, &updatedAt); err != nil {
		return persistence.Desk{}, r.mapper.MapError(err)
	}
	desk.X = intPtr(x)
	desk.Y = intPtr(y)

	var err error
	if desk.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return persistence.Desk{}, err
	}
	if desk.UpdatedAt, err = parseTimestamp(updatedAt, "updated_at"); err != nil {
		return persistence.Desk{}, err
	}
	return desk, nil
}
