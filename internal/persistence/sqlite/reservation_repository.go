package sqlite

import (
	"context"
	"strings"

	"github.com/example/office-planner/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

func newReservationRepository(q queryer) *ReservationRepository {
	return &ReservationRepository{helper: NewQueryHelper(q), mapper: NewErrorMapper()}
}

const reservationColumns = `id, user_id, desk_id, date, created_at`

// CreateReservation inserts a reservation. A second booking of the same desk
// on the same date fails with persistence.ErrDuplicate.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.UserID == "" || reservation.DeskID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`,
		reservation.ID,
		reservation.UserID,
		reservation.DeskID,
		formatDate(reservation.Date),
		formatTimestamp(reservation.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetReservation retrieves a reservation by ID
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return r.scanReservation(row)
}

// ListReservations returns reservations matching filter ordered by date then creation
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Date != nil {
		conditions = append(conditions, `date = ?`)
		args = append(args, formatDate(*filter.Date))
	}
	if filter.UserID != "" {
		conditions = append(conditions, `user_id = ?`)
		args = append(args, filter.UserID)
	}
	if filter.DeskID != "" {
		conditions = append(conditions, `desk_id = ?`)
		args = append(args, filter.DeskID)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY date ASC, created_at ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		reservation, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return reservations, nil
}

// DeleteReservation removes a reservation
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.helper.ExecAffecting(ctx, r.mapper, `DELETE FROM reservations WHERE id = ?`, id)
}

func (r *ReservationRepository) scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation     persistence.Reservation
		date, createdAt string
	)
	err := row.Scan(&reservation.ID, &reservation.UserID, &reservation.DeskID, &date, &createdAt)
	if err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	if reservation.Date, err = parseDate(date, "date"); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}
