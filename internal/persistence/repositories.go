package persistence

import (
	"context"
	"time"
)

// DeskFilter narrows desk queries.
type DeskFilter struct {
	AvailableOnly bool
}

// DeskRepository exposes CRUD operations for desks.
type DeskRepository interface {
	CreateDesk(ctx context.Context, desk Desk) error
	UpdateDesk(ctx context.Context, desk Desk) error
	GetDesk(ctx context.Context, id string) (Desk, error)
	GetDeskByNumber(ctx context.Context, number string) (Desk, error)
	ListDesks(ctx context.Context, filter DeskFilter) ([]Desk, error)
	DeleteDesk(ctx context.Context, id string) error
}

// EmployeeFilter narrows employee queries. Zero values do not filter.
type EmployeeFilter struct {
	DeskIDs         []string
	Position        string
	Gender          string
	SkillID         string
	HiredOnOrBefore *time.Time
	HiredOnOrAfter  *time.Time
}

// EmployeeRepository stores employees together with their skill levels.
type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, employee Employee) error
	UpdateEmployee(ctx context.Context, employee Employee) error
	GetEmployee(ctx context.Context, id string) (Employee, error)
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
}

// SkillRepository exposes CRUD operations for skills.
type SkillRepository interface {
	CreateSkill(ctx context.Context, skill Skill) error
	GetSkill(ctx context.Context, id string) (Skill, error)
	ListSkills(ctx context.Context) ([]Skill, error)
	DeleteSkill(ctx context.Context, id string) error
}

// ImageRepository stores employee images.
type ImageRepository interface {
	CreateImage(ctx context.Context, image EmployeeImage) error
	UpdateImage(ctx context.Context, image EmployeeImage) error
	UpdateImageOrder(ctx context.Context, id string, order int) error
	GetImage(ctx context.Context, id string) (EmployeeImage, error)
	ListImages(ctx context.Context, employeeID string) ([]EmployeeImage, error)
	DeleteImage(ctx context.Context, id string) error
}

// ReservationFilter narrows reservation queries. Zero values do not filter.
type ReservationFilter struct {
	Date   *time.Time
	UserID string
	DeskID string
}

// ReservationRepository stores desk reservations.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
}

// UserRepository exposes CRUD operations for users and their group memberships.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// GroupRepository stores the known user groups.
type GroupRepository interface {
	EnsureGroup(ctx context.Context, group Group) error
	ListGroups(ctx context.Context) ([]Group, error)
}

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories interface {
	Desks() DeskRepository
	Employees() EmployeeRepository
	Skills() SkillRepository
	Images() ImageRepository
	Reservations() ReservationRepository
	Users() UserRepository
	Groups() GroupRepository
}

// Store is the unit of work boundary. Repositories handed to fn share one
// transaction that is committed when fn returns nil and rolled back otherwise.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
