package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/office-planner/internal/application"
	"github.com/example/office-planner/internal/persistence"
)

var (
	deskCounter        uint64
	employeeCounter    uint64
	skillCounter       uint64
	userCounter        uint64
	reservationCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ----------------------------- Desk fixtures -----------------------------

// DeskFixture is a deterministic desk record.
type DeskFixture struct {
	ID          string
	Number      string
	Location    string
	X           *int
	Y           *int
	IsAvailable bool
	CreatedAt   time.Time
}

// DeskOption configures a generated desk fixture.
type DeskOption func(*DeskFixture)

// NewDeskFixture returns an available desk numbered "<n>A" unless overridden.
func NewDeskFixture(opts ...DeskOption) DeskFixture {
	idx := atomic.AddUint64(&deskCounter, 1)
	fixture := DeskFixture{
		ID:          fmt.Sprintf("desk-%03d", idx),
		Number:      fmt.Sprintf("%dA", idx),
		Location:    "Open space",
		IsAvailable: true,
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithDeskID overrides the generated desk ID.
func WithDeskID(id string) DeskOption {
	return func(f *DeskFixture) { f.ID = id }
}

// WithDeskNumber overrides the desk number.
func WithDeskNumber(number string) DeskOption {
	return func(f *DeskFixture) { f.Number = number }
}

// WithDeskCoordinates places the desk on the floor plan.
func WithDeskCoordinates(x, y int) DeskOption {
	return func(f *DeskFixture) {
		f.X = &x
		f.Y = &y
	}
}

// WithDeskAvailable sets whether the desk can be reserved.
func WithDeskAvailable(available bool) DeskOption {
	return func(f *DeskFixture) { f.IsAvailable = available }
}

// Persistence returns the fixture as a persistence.Desk.
func (f DeskFixture) Persistence() persistence.Desk {
	return persistence.Desk{
		ID:          f.ID,
		Number:      f.Number,
		Location:    f.Location,
		X:           f.X,
		Y:           f.Y,
		IsAvailable: f.IsAvailable,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// ----------------------------- Skill fixtures -----------------------------

// SkillFixture is a deterministic skill record.
type SkillFixture struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// NewSkillFixture returns a skill named name, or "Skill <n>" when empty.
func NewSkillFixture(name string) SkillFixture {
	idx := atomic.AddUint64(&skillCounter, 1)
	if name == "" {
		name = fmt.Sprintf("Skill %03d", idx)
	}
	return SkillFixture{ID: fmt.Sprintf("skill-%03d", idx), Name: name, CreatedAt: referenceTime}
}

// Persistence returns the fixture as a persistence.Skill.
func (f SkillFixture) Persistence() persistence.Skill {
	return persistence.Skill{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt}
}

// --------------------------- Employee fixtures ---------------------------

// EmployeeFixture is a deterministic employee record.
type EmployeeFixture struct {
	ID        string
	FirstName string
	LastName  string
	Position  string
	Gender    string
	DeskID    *string
	HireDate  time.Time
	Skills    []persistence.EmployeeSkill
	CreatedAt time.Time
}

// EmployeeOption configures a generated employee fixture.
type EmployeeOption func(*EmployeeFixture)

// NewEmployeeFixture returns an unseated backend developer hired a year
// before ReferenceTime.
func NewEmployeeFixture(opts ...EmployeeOption) EmployeeFixture {
	idx := atomic.AddUint64(&employeeCounter, 1)
	fixture := EmployeeFixture{
		ID:        fmt.Sprintf("employee-%03d", idx),
		FirstName: fmt.Sprintf("First%03d", idx),
		LastName:  fmt.Sprintf("Last%03d", idx),
		Position:  "backend",
		Gender:    "female",
		HireDate:  Date(2023, time.January, 2),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEmployeeID overrides the generated employee ID.
func WithEmployeeID(id string) EmployeeOption {
	return func(f *EmployeeFixture) { f.ID = id }
}

// WithEmployeeName overrides first and last name.
func WithEmployeeName(first, last string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// WithEmployeePosition sets the position, e.g. "tester".
func WithEmployeePosition(position string) EmployeeOption {
	return func(f *EmployeeFixture) { f.Position = position }
}

// WithEmployeeGender sets the gender.
func WithEmployeeGender(gender string) EmployeeOption {
	return func(f *EmployeeFixture) { f.Gender = gender }
}

// WithEmployeeDesk seats the employee at deskID.
func WithEmployeeDesk(deskID string) EmployeeOption {
	return func(f *EmployeeFixture) { f.DeskID = &deskID }
}

// WithEmployeeHireDate overrides the hire date.
func WithEmployeeHireDate(date time.Time) EmployeeOption {
	return func(f *EmployeeFixture) { f.HireDate = date }
}

// WithEmployeeSkill adds a skill level.
func WithEmployeeSkill(skillID string, level int) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Skills = append(f.Skills, persistence.EmployeeSkill{SkillID: skillID, Level: level})
	}
}

// Persistence returns the fixture as a persistence.Employee.
func (f EmployeeFixture) Persistence() persistence.Employee {
	return persistence.Employee{
		ID:        f.ID,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Position:  f.Position,
		Gender:    f.Gender,
		DeskID:    f.DeskID,
		HireDate:  f.HireDate,
		Skills:    append([]persistence.EmployeeSkill(nil), f.Skills...),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// ----------------------------- User fixtures -----------------------------

// UserFixture is a deterministic account.
type UserFixture struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	Groups       []string
	CreatedAt    time.Time
}

// UserOption configures a generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a regular user without groups.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		ID:           fmt.Sprintf("user-%03d", idx),
		Username:     fmt.Sprintf("user%03d", idx),
		Email:        fmt.Sprintf("user%03d@example.com", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUsername overrides the username.
func WithUsername(username string) UserOption {
	return func(f *UserFixture) { f.Username = username }
}

// WithUserPasswordHash stores hash as the password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// WithUserAdmin sets the admin flag.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) { f.IsAdmin = isAdmin }
}

// WithUserGroups sets group memberships.
func WithUserGroups(groups ...string) UserOption {
	return func(f *UserFixture) { f.Groups = groups }
}

// Persistence returns the fixture as a persistence.User.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Username:     f.Username,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		Groups:       append([]string(nil), f.Groups...),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// Principal returns the identity a request from this user would carry.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{
		UserID:   f.ID,
		Username: f.Username,
		IsAdmin:  f.IsAdmin,
		Groups:   append([]string(nil), f.Groups...),
	}
}

// -------------------------- Reservation fixtures --------------------------

// ReservationFixture is a deterministic booking.
type ReservationFixture struct {
	ID        string
	UserID    string
	DeskID    string
	Date      time.Time
	CreatedAt time.Time
}

// NewReservationFixture books deskID for userID on date.
func NewReservationFixture(userID, deskID string, date time.Time) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	return ReservationFixture{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		UserID:    userID,
		DeskID:    deskID,
		Date:      date,
		CreatedAt: referenceTime,
	}
}

// Persistence returns the fixture as a persistence.Reservation.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:        f.ID,
		UserID:    f.UserID,
		DeskID:    f.DeskID,
		Date:      f.Date,
		CreatedAt: f.CreatedAt,
	}
}

// AdminPrincipal is an administrator identity that exists only in memory.
func AdminPrincipal() application.Principal {
	return application.Principal{UserID: "admin", Username: "admin", IsAdmin: true}
}
