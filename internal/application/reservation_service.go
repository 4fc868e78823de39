package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/persistence"
	"github.com/example/office-planner/internal/placement"
	"github.com/example/office-planner/internal/recurrence"
)

// DefaultMaxSeriesLength caps the number of dates a recurring reservation may produce.
const DefaultMaxSeriesLength = 366

// Locker serializes reservation writes for the same calendar date.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ReservationService books desks for calendar dates.
type ReservationService struct {
	store       persistence.Store
	locker      Locker
	rules       PlacementRules
	engine      *recurrence.Engine
	maxSeries   int
	idGenerator func() string
	now         func() time.Time
	logger      *zap.Logger
}

// NewReservationService constructs a reservation service. A nil locker relies
// on the store's transactions alone.
func NewReservationService(store persistence.Store, locker Locker, rules PlacementRules, engine *recurrence.Engine, maxSeries int, idGenerator func() string, now func() time.Time, logger *zap.Logger) *ReservationService {
	if engine == nil {
		engine = recurrence.NewEngine(time.UTC)
	}
	if maxSeries <= 0 {
		maxSeries = DefaultMaxSeriesLength
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		store:       store,
		locker:      locker,
		rules:       rules.withDefaults(),
		engine:      engine,
		maxSeries:   maxSeries,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, fields...)
}

// CreateReservation books a desk for the principal on one date.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("ReservationService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("desk_id", params.DeskID),
	)
	var warnings []placement.DataIntegrityWarning
	defer func() {
		logIntegrityWarnings(logger, warnings)
		if err != nil {
			logFailure(logger, "failed to create reservation", err)
			return
		}
		logger.Info("reservation created",
			zap.String("reservation_id", reservation.ID),
			zap.String("date", reservation.Date.Format(time.DateOnly)),
		)
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	params.DeskID = strings.TrimSpace(params.DeskID)
	vErr := validateStruct(params)
	date := dateOnly(params.Date)
	if !params.Date.IsZero() && date.Before(dateOnly(s.now())) {
		vErr.add("date", "date must not be in the past")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	release, err := s.lock(ctx, []time.Time{date})
	if err != nil {
		return
	}
	defer release()

	var created []persistence.Reservation
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		records, w, bookErr := s.book(ctx, repos, params.Principal.UserID, params.DeskID, []time.Time{date})
		warnings = w
		created = records
		return bookErr
	})
	if err != nil {
		return
	}

	reservation, err = s.describe(ctx, s.store, created[0])
	return
}

// CreateSeries books a desk on every date the recurrence rule produces. Either
// every date is booked or none is.
func (s *ReservationService) CreateSeries(ctx context.Context, params CreateReservationSeriesParams) (reservations []Reservation, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("ReservationService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateSeries",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("desk_id", params.DeskID),
		zap.String("rule", params.Rule),
	)
	var warnings []placement.DataIntegrityWarning
	defer func() {
		logIntegrityWarnings(logger, warnings)
		if err != nil {
			logFailure(logger, "failed to create reservation series", err)
			return
		}
		logger.Info("reservation series created", zap.Int("count", len(reservations)))
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	params.DeskID = strings.TrimSpace(params.DeskID)
	params.Rule = strings.TrimSpace(params.Rule)
	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}
	if dateOnly(params.Start).Before(dateOnly(s.now())) {
		err = fieldError("start", "start must not be in the past")
		return
	}

	dates, expandErr := s.engine.Expand(params.Rule, params.Start, params.Until, s.maxSeries)
	switch {
	case errors.Is(expandErr, recurrence.ErrInvalidWindow):
		err = fieldError("until", "until must not be before start")
		return
	case errors.Is(expandErr, recurrence.ErrSeriesTooLong):
		err = fieldError("rule", fmt.Sprintf("series must not exceed %d dates", s.maxSeries))
		return
	case expandErr != nil:
		err = fieldError("rule", "rule is not a valid recurrence rule")
		return
	case len(dates) == 0:
		err = fieldError("rule", "rule produces no dates between start and until")
		return
	}

	release, err := s.lock(ctx, dates)
	if err != nil {
		return
	}
	defer release()

	var created []persistence.Reservation
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		records, w, bookErr := s.book(ctx, repos, params.Principal.UserID, params.DeskID, dates)
		warnings = w
		created = records
		return bookErr
	})
	if err != nil {
		return
	}

	reservations, err = s.describeAll(ctx, s.store, created)
	return
}

// GetReservation returns one reservation to any authenticated user.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, reservationID string) (Reservation, error) {
	if s == nil || s.store == nil {
		return Reservation{}, fmt.Errorf("ReservationService is not configured")
	}
	record, err := s.store.Reservations().GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return s.describe(ctx, s.store, record)
}

// ListReservations returns reservations ordered by date.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("ReservationService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListReservations", zap.String("principal_id", params.Principal.UserID))
	defer func() {
		if err != nil {
			logFailure(logger, "failed to list reservations", err)
			return
		}
		logger.Debug("reservations listed", zap.Int("result_count", len(reservations)))
	}()

	filter := persistence.ReservationFilter{
		UserID: strings.TrimSpace(params.UserID),
		DeskID: strings.TrimSpace(params.DeskID),
	}
	if params.Date != nil {
		day := dateOnly(*params.Date)
		filter.Date = &day
	}

	var records []persistence.Reservation
	records, err = s.store.Reservations().ListReservations(ctx, filter)
	if err != nil {
		return
	}
	reservations, err = s.describeAll(ctx, s.store, records)
	return
}

// DeleteReservation cancels a reservation. Only its owner or an administrator may do so.
func (s *ReservationService) DeleteReservation(ctx context.Context, principal Principal, reservationID string) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("ReservationService is not configured")
	}

	logger := s.loggerWith(ctx, "DeleteReservation",
		zap.String("principal_id", principal.UserID),
		zap.String("reservation_id", reservationID),
	)
	defer func() {
		if err != nil {
			logFailure(logger, "failed to delete reservation", err)
			return
		}
		logger.Info("reservation deleted")
	}()

	record, err := s.store.Reservations().GetReservation(ctx, reservationID)
	if err != nil {
		return mapReservationRepoError(err)
	}
	if !principal.IsAdmin && record.UserID != principal.UserID {
		return ErrUnauthorized
	}
	return mapReservationRepoError(s.store.Reservations().DeleteReservation(ctx, record.ID))
}

// lock takes the per-date keys in ascending date order.
func (s *ReservationService) lock(ctx context.Context, dates []time.Time) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	releases := make([]func(), 0, len(dates))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, date := range dates {
		release, err := s.locker.Acquire(ctx, "reservation:"+date.Format(time.DateOnly))
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("failed to lock reservation date: %w", err)
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// book validates and inserts one reservation per date through repos.
func (s *ReservationService) book(ctx context.Context, repos persistence.Repositories, userID, deskID string, dates []time.Time) ([]persistence.Reservation, []placement.DataIntegrityWarning, error) {
	desk, err := repos.Desks().GetDesk(ctx, deskID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil, fieldError("desk_id", "desk does not exist")
		}
		return nil, nil, err
	}
	if !desk.IsAvailable {
		return nil, nil, fieldError("desk_id", fmt.Sprintf("desk %s is not available for reservations", desk.Number))
	}

	user, err := repos.Users().GetUser(ctx, userID)
	if err != nil {
		return nil, nil, mapReservationRepoError(err)
	}
	desks, err := deskIndex(ctx, repos)
	if err != nil {
		return nil, nil, err
	}
	categories := map[string]placement.Category{user.ID: s.rules.Groups.Classify(user.Groups)}

	var (
		created  []persistence.Reservation
		warnings []placement.DataIntegrityWarning
	)
	for _, date := range dates {
		day := date.Format(time.DateOnly)
		sameDate, err := s.bookingsOn(ctx, repos, date, desks, categories)
		if err != nil {
			return nil, warnings, err
		}

		candidate := placement.Booking{
			UserID:   user.ID,
			Username: user.Username,
			Category: categories[user.ID],
			Desk:     toPlacementDesk(desk),
			Date:     date,
		}
		rejection, w := s.rules.Validator.CheckReservation(candidate, sameDate)
		warnings = append(warnings, w...)
		if rejection != nil {
			pErr := newPlacementError(rejection)
			pErr.Date = day
			return nil, warnings, pErr
		}

		record := persistence.Reservation{
			ID:        s.idGenerator(),
			UserID:    user.ID,
			DeskID:    desk.ID,
			Date:      date,
			CreatedAt: s.now(),
		}
		if err := repos.Reservations().CreateReservation(ctx, record); err != nil {
			if errors.Is(err, persistence.ErrDuplicate) {
				return nil, warnings, &PlacementError{
					Kind: PlacementDuplicate,
					Date: day,
					Rejection: &placement.Rejection{
						Kind:          placement.RejectDuplicateBooking,
						CandidateDesk: desk.Number,
						Message:       fmt.Sprintf("desk %s is already reserved for %s", desk.Number, day),
					},
				}
			}
			return nil, warnings, mapReservationRepoError(err)
		}
		created = append(created, record)
	}
	return created, warnings, nil
}

// bookingsOn loads the reservations of date with desks and user categories resolved.
func (s *ReservationService) bookingsOn(ctx context.Context, repos persistence.Repositories, date time.Time, desks map[string]persistence.Desk, categories map[string]placement.Category) ([]placement.Booking, error) {
	records, err := repos.Reservations().ListReservations(ctx, persistence.ReservationFilter{Date: &date})
	if err != nil {
		return nil, err
	}

	bookings := make([]placement.Booking, 0, len(records))
	for _, r := range records {
		category, ok := categories[r.UserID]
		if !ok {
			owner, err := repos.Users().GetUser(ctx, r.UserID)
			if err != nil {
				return nil, err
			}
			category = s.rules.Groups.Classify(owner.Groups)
			categories[r.UserID] = category
		}
		desk, ok := desks[r.DeskID]
		if !ok {
			continue
		}
		bookings = append(bookings, placement.Booking{
			ID:       r.ID,
			UserID:   r.UserID,
			Category: category,
			Desk:     toPlacementDesk(desk),
			Date:     r.Date,
		})
	}
	return bookings, nil
}

func (s *ReservationService) describe(ctx context.Context, repos persistence.Repositories, record persistence.Reservation) (Reservation, error) {
	out, err := s.describeAll(ctx, repos, []persistence.Reservation{record})
	if err != nil {
		return Reservation{}, err
	}
	return out[0], nil
}

func (s *ReservationService) describeAll(ctx context.Context, repos persistence.Repositories, records []persistence.Reservation) ([]Reservation, error) {
	reservations := make([]Reservation, len(records))
	if len(records) == 0 {
		return reservations, nil
	}

	desks, err := deskIndex(ctx, repos)
	if err != nil {
		return nil, err
	}
	users, err := repos.Users().ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	usernames := make(map[string]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	for i, r := range records {
		reservations[i] = Reservation{
			ID:         r.ID,
			UserID:     r.UserID,
			Username:   usernames[r.UserID],
			DeskID:     r.DeskID,
			DeskNumber: desks[r.DeskID].Number,
			Date:       r.Date,
			CreatedAt:  r.CreatedAt,
		}
	}
	return reservations, nil
}

func mapReservationRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	}
	return err
}
