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
)

// DeskService orchestrates validation, authorization, and persistence for desks.
type DeskService struct {
	store       persistence.Store
	rules       PlacementRules
	idGenerator func() string
	now         func() time.Time
	logger      *zap.Logger
}

// NewDeskService constructs a desk service with the provided dependencies.
func NewDeskService(store persistence.Store, rules PlacementRules, idGenerator func() string, now func() time.Time) *DeskService {
	return NewDeskServiceWithLogger(store, rules, idGenerator, now, nil)
}

// NewDeskServiceWithLogger constructs a desk service with a specified logger.
func NewDeskServiceWithLogger(store persistence.Store, rules PlacementRules, idGenerator func() string, now func() time.Time, logger *zap.Logger) *DeskService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DeskService{
		store:       store,
		rules:       rules.withDefaults(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *DeskService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "DeskService", operation, fields...)
}

// CreateDesk validates input and persists a new desk for administrators.
func (s *DeskService) CreateDesk(ctx context.Context, params CreateDeskParams) (desk Desk, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("DeskService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateDesk", zap.String("principal_id", params.Principal.UserID))
	defer func() {
		if err != nil {
			logFailure(logger, "failed to create desk", err)
			return
		}
		logger.Info("desk created", zap.String("desk_id", desk.ID), zap.String("desk_number", desk.Number))
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateDeskInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	record := persistence.Desk{
		ID:          s.idGenerator(),
		Number:      strings.TrimSpace(params.Input.Number),
		Location:    strings.TrimSpace(params.Input.Location),
		X:           params.Input.X,
		Y:           params.Input.Y,
		IsAvailable: params.Input.IsAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err = s.store.Desks().CreateDesk(ctx, record); err != nil {
		err = mapDeskRepoError(err)
		return
	}

	desk = toDesk(record)
	return
}

// UpdateDesk changes a desk and re-checks everyone seated at it against the
// new neighbourhood. Both happen in one transaction.
func (s *DeskService) UpdateDesk(ctx context.Context, params UpdateDeskParams) (desk Desk, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("DeskService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateDesk",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("desk_id", params.DeskID),
	)
	defer func() {
		if err != nil {
			logFailure(logger, "failed to update desk", err)
			return
		}
		logger.Info("desk updated", zap.String("desk_number", desk.Number))
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateDeskInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var (
		updated  persistence.Desk
		warnings []placement.DataIntegrityWarning
	)
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		existing, err := repos.Desks().GetDesk(ctx, params.DeskID)
		if err != nil {
			return mapDeskRepoError(err)
		}

		updated = existing
		updated.Number = strings.TrimSpace(params.Input.Number)
		updated.Location = strings.TrimSpace(params.Input.Location)
		updated.X = params.Input.X
		updated.Y = params.Input.Y
		updated.IsAvailable = params.Input.IsAvailable
		updated.UpdatedAt = s.now()

		if err := repos.Desks().UpdateDesk(ctx, updated); err != nil {
			return mapDeskRepoError(err)
		}

		seated, err := repos.Employees().ListEmployees(ctx, persistence.EmployeeFilter{DeskIDs: []string{updated.ID}})
		if err != nil {
			return err
		}
		if len(seated) == 0 {
			return nil
		}

		snapshot, err := s.rules.loadSeating(ctx, repos)
		if err != nil {
			return err
		}
		for _, employee := range seated {
			rejection, w := s.rules.checkSeat(snapshot, employee)
			warnings = append(warnings, w...)
			if rejection != nil {
				return newPlacementError(rejection)
			}
		}
		return nil
	})
	logIntegrityWarnings(logger, warnings)
	if err != nil {
		return
	}

	desk = toDesk(updated)
	return
}

// GetDesk returns one desk for any authenticated user.
func (s *DeskService) GetDesk(ctx context.Context, principal Principal, deskID string) (Desk, error) {
	if s == nil || s.store == nil {
		return Desk{}, fmt.Errorf("DeskService is not configured")
	}
	record, err := s.store.Desks().GetDesk(ctx, deskID)
	if err != nil {
		err = mapDeskRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			logFailure(s.loggerWith(ctx, "GetDesk", zap.String("desk_id", deskID)), "failed to get desk", err)
		}
		return Desk{}, err
	}
	return toDesk(record), nil
}

// ListDesks returns desks ordered by number, optionally only available ones.
func (s *DeskService) ListDesks(ctx context.Context, principal Principal, availableOnly bool) (desks []Desk, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("DeskService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListDesks", zap.String("principal_id", principal.UserID))
	defer func() {
		if err != nil {
			logFailure(logger, "failed to list desks", err)
			return
		}
		logger.Debug("desks listed", zap.Int("result_count", len(desks)))
	}()

	var records []persistence.Desk
	records, err = s.store.Desks().ListDesks(ctx, persistence.DeskFilter{AvailableOnly: availableOnly})
	if err != nil {
		return
	}

	desks = make([]Desk, len(records))
	for i, record := range records {
		desks[i] = toDesk(record)
	}
	return
}

// DeleteDesk removes a desk. Employees seated there become unseated.
func (s *DeskService) DeleteDesk(ctx context.Context, principal Principal, deskID string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("DeskService is not configured")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DeleteDesk",
		zap.String("principal_id", principal.UserID),
		zap.String("desk_id", deskID),
	)

	if err := s.store.Desks().DeleteDesk(ctx, deskID); err != nil {
		err = mapDeskRepoError(err)
		logFailure(logger, "failed to delete desk", err)
		return err
	}

	logger.Info("desk deleted")
	return nil
}

func validateDeskInput(input DeskInput) *ValidationError {
	vErr := validateStruct(input)
	if strings.TrimSpace(input.Number) == "" {
		vErr.add("number", "number is required")
	}
	if (input.X == nil) != (input.Y == nil) {
		vErr.add("coordinates", "x and y must be given together")
	}
	return vErr
}

func mapDeskRepoError(err error) error {
	if err == nil {
		return nil
	}
	var pErr *PlacementError
	if errors.As(err, &pErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("number", "desk number is invalid")
	}
	return err
}

func toDesk(record persistence.Desk) Desk {
	return Desk{
		ID:          record.ID,
		Number:      record.Number,
		Location:    record.Location,
		X:           record.X,
		Y:           record.Y,
		IsAvailable: record.IsAvailable,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}
