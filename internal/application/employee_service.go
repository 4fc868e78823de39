package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/export"
	"github.com/example/office-planner/internal/persistence"
	"github.com/example/office-planner/internal/placement"
)

// BlobStore keeps the bytes of employee photos.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// EmployeeService manages employees, their skills and their seats.
type EmployeeService struct {
	store       persistence.Store
	blobs       BlobStore
	rules       PlacementRules
	idGenerator func() string
	now         func() time.Time
	logger      *zap.Logger
}

// NewEmployeeService constructs an employee service with the provided dependencies.
func NewEmployeeService(store persistence.Store, blobs BlobStore, rules PlacementRules, idGenerator func() string, now func() time.Time) *EmployeeService {
	return NewEmployeeServiceWithLogger(store, blobs, rules, idGenerator, now, nil)
}

// NewEmployeeServiceWithLogger constructs an employee service with a specified logger.
func NewEmployeeServiceWithLogger(store persistence.Store, blobs BlobStore, rules PlacementRules, idGenerator func() string, now func() time.Time, logger *zap.Logger) *EmployeeService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EmployeeService{
		store:       store,
		blobs:       blobs,
		rules:       rules.withDefaults(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EmployeeService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "EmployeeService", operation, fields...)
}

// CreateEmployee validates input, checks the seating rule and persists a new employee.
func (s *EmployeeService) CreateEmployee(ctx context.Context, params CreateEmployeeParams) (employee Employee, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("EmployeeService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEmployee", zap.String("principal_id", params.Principal.UserID))
	defer func() {
		if err != nil {
			logFailure(logger, "failed to create employee", err)
			return
		}
		logger.Info("employee created", zap.String("employee_id", employee.ID))
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := s.validateEmployeeInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	record := persistence.Employee{
		ID:        s.idGenerator(),
		CreatedAt: now,
	}
	applyEmployeeInput(&record, params.Input, now)

	var warnings []placement.DataIntegrityWarning
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		desk, err := s.resolveDesk(ctx, repos, params.Input.DeskNumber)
		if err != nil {
			return err
		}
		if desk != nil {
			record.DeskID = &desk.ID
			w, err := s.checkSeating(ctx, repos, record)
			warnings = w
			if err != nil {
				return err
			}
		}
		if err := repos.Employees().CreateEmployee(ctx, record); err != nil {
			return mapEmployeeRepoError(err)
		}
		return s.reload(ctx, repos, record.ID, &employee)
	})
	logIntegrityWarnings(logger, warnings)
	return
}

// UpdateEmployee replaces every field of an employee, including the skill set.
func (s *EmployeeService) UpdateEmployee(ctx context.Context, params UpdateEmployeeParams) (employee Employee, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("EmployeeService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEmployee",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("employee_id", params.EmployeeID),
	)
	defer func() {
		if err != nil {
			logFailure(logger, "failed to update employee", err)
			return
		}
		logger.Info("employee updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := s.validateEmployeeInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var warnings []placement.DataIntegrityWarning
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		record, err := repos.Employees().GetEmployee(ctx, params.EmployeeID)
		if err != nil {
			return mapEmployeeRepoError(err)
		}
		applyEmployeeInput(&record, params.Input, s.now())

		desk, err := s.resolveDesk(ctx, repos, params.Input.DeskNumber)
		if err != nil {
			return err
		}
		record.DeskID = nil
		if desk != nil {
			record.DeskID = &desk.ID
			w, err := s.checkSeating(ctx, repos, record)
			warnings = w
			if err != nil {
				return err
			}
		}
		if err := repos.Employees().UpdateEmployee(ctx, record); err != nil {
			return mapEmployeeRepoError(err)
		}
		return s.reload(ctx, repos, record.ID, &employee)
	})
	logIntegrityWarnings(logger, warnings)
	return
}

// MoveEmployee seats an employee at another desk. Keepers and administrators may move.
func (s *EmployeeService) MoveEmployee(ctx context.Context, params MoveEmployeeParams) (employee Employee, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("EmployeeService is not configured")
		return
	}

	target := ""
	if params.DeskNumber != nil {
		target = strings.TrimSpace(*params.DeskNumber)
	}
	logger := s.loggerWith(ctx, "MoveEmployee",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("employee_id", params.EmployeeID),
		zap.String("desk_number", target),
	)
	defer func() {
		if err != nil {
			logFailure(logger, "failed to move employee", err)
			return
		}
		logger.Info("employee moved")
	}()

	if !s.rules.CanMoveEmployees(params.Principal) {
		err = ErrUnauthorized
		return
	}

	var warnings []placement.DataIntegrityWarning
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		record, err := repos.Employees().GetEmployee(ctx, params.EmployeeID)
		if err != nil {
			return mapEmployeeRepoError(err)
		}

		desk, err := s.resolveDesk(ctx, repos, params.DeskNumber)
		if err != nil {
			return err
		}
		record.DeskID = nil
		if desk != nil {
			record.DeskID = &desk.ID
			w, err := s.checkSeating(ctx, repos, record)
			warnings = w
			if err != nil {
				return err
			}
		}
		record.UpdatedAt = s.now()
		if err := repos.Employees().UpdateEmployee(ctx, record); err != nil {
			return mapEmployeeRepoError(err)
		}
		return s.reload(ctx, repos, record.ID, &employee)
	})
	logIntegrityWarnings(logger, warnings)
	return
}

// GetEmployee returns one employee with desk and skills.
func (s *EmployeeService) GetEmployee(ctx context.Context, principal Principal, employeeID string) (Employee, error) {
	if s == nil || s.store == nil {
		return Employee{}, fmt.Errorf("EmployeeService is not configured")
	}
	var employee Employee
	if err := s.reload(ctx, s.store, employeeID, &employee); err != nil {
		if !errors.Is(err, ErrNotFound) {
			logFailure(s.loggerWith(ctx, "GetEmployee", zap.String("employee_id", employeeID)), "failed to get employee", err)
		}
		return Employee{}, err
	}
	return employee, nil
}

// ListEmployees returns employees matching params ordered by name.
func (s *EmployeeService) ListEmployees(ctx context.Context, params ListEmployeesParams) (employees []Employee, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("EmployeeService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListEmployees", zap.String("principal_id", params.Principal.UserID))
	defer func() {
		if err != nil {
			logFailure(logger, "failed to list employees", err)
			return
		}
		logger.Debug("employees listed", zap.Int("result_count", len(employees)))
	}()

	if vErr := validateListEmployeesParams(params); vErr.HasErrors() {
		err = vErr
		return
	}

	filter := persistence.EmployeeFilter{
		Position: strings.TrimSpace(params.Position),
		Gender:   strings.TrimSpace(params.Gender),
		SkillID:  strings.TrimSpace(params.SkillID),
	}
	today := dateOnly(s.now())
	if params.MinExperienceDays != nil {
		latest := today.AddDate(0, 0, -*params.MinExperienceDays)
		filter.HiredOnOrBefore = &latest
	}
	if params.MaxExperienceDays != nil {
		earliest := today.AddDate(0, 0, -*params.MaxExperienceDays)
		filter.HiredOnOrAfter = &earliest
	}
	if number := strings.TrimSpace(params.DeskNumber); number != "" {
		desk, derr := s.store.Desks().GetDeskByNumber(ctx, number)
		if errors.Is(derr, persistence.ErrNotFound) {
			employees = []Employee{}
			return
		}
		if derr != nil {
			err = derr
			return
		}
		filter.DeskIDs = []string{desk.ID}
	}

	var records []persistence.Employee
	records, err = s.store.Employees().ListEmployees(ctx, filter)
	if err != nil {
		return
	}
	var desks map[string]persistence.Desk
	desks, err = deskIndex(ctx, s.store)
	if err != nil {
		return
	}

	employees = make([]Employee, len(records))
	for i, record := range records {
		employees[i] = s.toEmployee(record, desks, today)
	}
	return
}

// DeleteEmployee removes an employee and, after the commit, the stored photos.
func (s *EmployeeService) DeleteEmployee(ctx context.Context, principal Principal, employeeID string) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("EmployeeService is not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEmployee",
		zap.String("principal_id", principal.UserID),
		zap.String("employee_id", employeeID),
	)
	defer func() {
		if err != nil {
			logFailure(logger, "failed to delete employee", err)
			return
		}
		logger.Info("employee deleted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var images []persistence.EmployeeImage
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		var err error
		images, err = repos.Images().ListImages(ctx, employeeID)
		if err != nil {
			return err
		}
		return mapEmployeeRepoError(repos.Employees().DeleteEmployee(ctx, employeeID))
	})
	if err != nil {
		return
	}

	removeBlobs(ctx, s.blobs, logger, images)
	return nil
}

// ExportEmployees writes the employees matching params as an XLSX workbook.
func (s *EmployeeService) ExportEmployees(ctx context.Context, params ListEmployeesParams, w io.Writer) error {
	employees, err := s.ListEmployees(ctx, params)
	if err != nil {
		return err
	}

	rows := make([]export.EmployeeRow, len(employees))
	for i, e := range employees {
		row := export.EmployeeRow{
			LastName:       e.LastName,
			FirstName:      e.FirstName,
			Position:       e.Position,
			Gender:         e.Gender,
			HireDate:       e.HireDate,
			ExperienceDays: e.WorkExperienceDays,
		}
		if e.Desk != nil {
			row.DeskNumber = e.Desk.Number
		}
		skills := make([]string, len(e.Skills))
		for j, skill := range e.Skills {
			skills[j] = fmt.Sprintf("%s (%d)", skill.Name, skill.Level)
		}
		row.Skills = strings.Join(skills, ", ")
		rows[i] = row
	}

	if err := export.WriteEmployees(w, rows); err != nil {
		logFailure(s.loggerWith(ctx, "ExportEmployees"), "failed to write export", err)
		return err
	}
	return nil
}

func (s *EmployeeService) resolveDesk(ctx context.Context, repos persistence.Repositories, number *string) (*persistence.Desk, error) {
	if number == nil || strings.TrimSpace(*number) == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*number)
	desk, err := repos.Desks().GetDeskByNumber(ctx, trimmed)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, fieldError("desk_number", fmt.Sprintf("desk %s does not exist", trimmed))
	}
	if err != nil {
		return nil, err
	}
	return &desk, nil
}

func (s *EmployeeService) checkSeating(ctx context.Context, repos persistence.Repositories, record persistence.Employee) ([]placement.DataIntegrityWarning, error) {
	snapshot, err := s.rules.loadSeating(ctx, repos)
	if err != nil {
		return nil, err
	}
	rejection, warnings := s.rules.checkSeat(snapshot, record)
	if rejection != nil {
		return warnings, newPlacementError(rejection)
	}
	return warnings, nil
}

func (s *EmployeeService) reload(ctx context.Context, repos persistence.Repositories, id string, out *Employee) error {
	record, err := repos.Employees().GetEmployee(ctx, id)
	if err != nil {
		return mapEmployeeRepoError(err)
	}
	desks := map[string]persistence.Desk{}
	if record.DeskID != nil {
		desk, err := repos.Desks().GetDesk(ctx, *record.DeskID)
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return err
		}
		if err == nil {
			desks[desk.ID] = desk
		}
	}
	*out = s.toEmployee(record, desks, dateOnly(s.now()))
	return nil
}

func (s *EmployeeService) toEmployee(record persistence.Employee, desks map[string]persistence.Desk, today time.Time) Employee {
	employee := Employee{
		ID:                 record.ID,
		FirstName:          record.FirstName,
		LastName:           record.LastName,
		Position:           record.Position,
		Category:           string(s.rules.Positions.Classify(record.Position)),
		Gender:             record.Gender,
		HireDate:           record.HireDate,
		WorkExperienceDays: experienceDays(record.HireDate, today),
		Skills:             make([]EmployeeSkill, len(record.Skills)),
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
	for i, skill := range record.Skills {
		employee.Skills[i] = EmployeeSkill{SkillID: skill.SkillID, Name: skill.SkillName, Level: skill.Level}
	}
	if record.DeskID != nil {
		if desk, ok := desks[*record.DeskID]; ok {
			d := toDesk(desk)
			employee.Desk = &d
		}
	}
	return employee
}

func (s *EmployeeService) validateEmployeeInput(input EmployeeInput) *ValidationError {
	vErr := validateStruct(input)
	if strings.TrimSpace(input.FirstName) == "" {
		vErr.add("first_name", "first name is required")
	}
	if strings.TrimSpace(input.LastName) == "" {
		vErr.add("last_name", "last name is required")
	}
	if !input.HireDate.IsZero() && dateOnly(input.HireDate).After(dateOnly(s.now())) {
		vErr.add("hire_date", "hire date cannot be in the future")
	}
	seen := make(map[string]struct{}, len(input.Skills))
	for _, skill := range input.Skills {
		if _, dup := seen[skill.SkillID]; dup {
			vErr.add("skills", fmt.Sprintf("skill %s is listed more than once", skill.SkillID))
			break
		}
		seen[skill.SkillID] = struct{}{}
	}
	return vErr
}

func validateListEmployeesParams(params ListEmployeesParams) *ValidationError {
	vErr := &ValidationError{}
	if params.MinExperienceDays != nil && *params.MinExperienceDays < 0 {
		vErr.add("min_experience_days", "min experience days must not be negative")
	}
	if params.MaxExperienceDays != nil && *params.MaxExperienceDays < 0 {
		vErr.add("max_experience_days", "max experience days must not be negative")
	}
	if params.MinExperienceDays != nil && params.MaxExperienceDays != nil && *params.MinExperienceDays > *params.MaxExperienceDays {
		vErr.add("min_experience_days", "min experience days must not exceed max experience days")
	}
	return vErr
}

func applyEmployeeInput(record *persistence.Employee, input EmployeeInput, now time.Time) {
	record.FirstName = strings.TrimSpace(input.FirstName)
	record.LastName = strings.TrimSpace(input.LastName)
	record.Position = input.Position
	record.Gender = input.Gender
	record.HireDate = dateOnly(input.HireDate)
	record.UpdatedAt = now
	record.Skills = make([]persistence.EmployeeSkill, len(input.Skills))
	for i, skill := range input.Skills {
		record.Skills[i] = persistence.EmployeeSkill{SkillID: skill.SkillID, Level: skill.Level}
	}
}

func mapEmployeeRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fieldError("skills", "one or more skills do not exist")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("employee", "employee violates a data constraint")
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	}
	return err
}

func deskIndex(ctx context.Context, repos persistence.Repositories) (map[string]persistence.Desk, error) {
	desks, err := repos.Desks().ListDesks(ctx, persistence.DeskFilter{})
	if err != nil {
		return nil, err
	}
	index := make(map[string]persistence.Desk, len(desks))
	for _, d := range desks {
		index[d.ID] = d
	}
	return index, nil
}

func removeBlobs(ctx context.Context, blobs BlobStore, logger *zap.Logger, images []persistence.EmployeeImage) {
	if blobs == nil {
		return
	}
	for _, image := range images {
		if err := blobs.Delete(ctx, image.ObjectKey); err != nil {
			logger.Warn("failed to remove image object",
				zap.String("image_id", image.ID),
				zap.String("object_key", image.ObjectKey),
				zap.Error(err),
			)
		}
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func experienceDays(hireDate, today time.Time) int {
	days := int(dateOnly(today).Sub(dateOnly(hireDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
