package application

import (
	"time"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID   string
	Username string
	IsAdmin  bool
	Groups   []string
}

// InGroup reports whether the principal belongs to group.
func (p Principal) InGroup(group string) bool {
	for _, g := range p.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// DeskInput captures caller provided desk fields.
type DeskInput struct {
	Number      string `field:"number" validate:"required,max=20"`
	Location    string `field:"location" validate:"max=200"`
	X           *int   `field:"x" validate:"omitempty,min=0,max=100000"`
	Y           *int   `field:"y" validate:"omitempty,min=0,max=100000"`
	IsAvailable bool   `field:"is_available"`
}

// Desk is a workplace as exposed by the services.
type Desk struct {
	ID          string
	Number      string
	Location    string
	X           *int
	Y           *int
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateDeskParams wraps the data required to create a desk.
type CreateDeskParams struct {
	Principal Principal
	Input     DeskInput
}

// UpdateDeskParams wraps the data required to update a desk.
type UpdateDeskParams struct {
	Principal Principal
	DeskID    string
	Input     DeskInput
}

// SkillInput captures caller provided skill fields.
type SkillInput struct {
	Name string `field:"name" validate:"required,max=100"`
}

// Skill is a competence employees can hold.
type Skill struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// SkillLevelInput assigns a level between 1 and 4 to one skill.
type SkillLevelInput struct {
	SkillID string `field:"skill_id" validate:"required"`
	Level   int    `field:"level" validate:"min=1,max=4"`
}

// EmployeeInput captures caller provided employee fields. DeskNumber nil or
// empty leaves the employee unseated.
type EmployeeInput struct {
	FirstName  string            `field:"first_name" validate:"required,max=100"`
	LastName   string            `field:"last_name" validate:"required,max=100"`
	Position   string            `field:"position" validate:"required,oneof=backend frontend tester manager designer"`
	Gender     string            `field:"gender" validate:"required,oneof=male female"`
	DeskNumber *string           `field:"desk_number" validate:"omitempty,max=20"`
	HireDate   time.Time         `field:"hire_date" validate:"required"`
	Skills     []SkillLevelInput `field:"skills" validate:"dive"`
}

// EmployeeSkill is a skill held by an employee.
type EmployeeSkill struct {
	SkillID string
	Name    string
	Level   int
}

// Employee is a staff member as exposed by the services.
type Employee struct {
	ID                 string
	FirstName          string
	LastName           string
	Position           string
	Category           string
	Gender             string
	Desk               *Desk
	HireDate           time.Time
	WorkExperienceDays int
	Skills             []EmployeeSkill
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName joins first and last name.
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// CreateEmployeeParams wraps the data required to create an employee.
type CreateEmployeeParams struct {
	Principal Principal
	Input     EmployeeInput
}

// UpdateEmployeeParams wraps the data required to update an employee.
type UpdateEmployeeParams struct {
	Principal  Principal
	EmployeeID string
	Input      EmployeeInput
}

// MoveEmployeeParams seats an employee at another desk, or unseats them when
// DeskNumber is nil or empty.
type MoveEmployeeParams struct {
	Principal  Principal
	EmployeeID string
	DeskNumber *string
}

// ListEmployeesParams filters employee listings. Zero values do not filter.
type ListEmployeesParams struct {
	Principal         Principal
	Position          string
	Gender            string
	DeskNumber        string
	SkillID           string
	MinExperienceDays *int
	MaxExperienceDays *int
}

// EmployeeImage is a gallery photo.
type EmployeeImage struct {
	ID          string
	EmployeeID  string
	ObjectKey   string
	Title       string
	ContentType string
	Size        int64
	Order       int
	CreatedAt   time.Time
}

// Gallery splits an employee's photos into the main photo and the rest.
type Gallery struct {
	Main   *EmployeeImage
	Others []EmployeeImage
}

// UploadImageParams carries a new photo. Order 0 appends to the gallery.
type UploadImageParams struct {
	Principal   Principal
	EmployeeID  string
	Title       string `field:"title" validate:"max=200"`
	Order       int    `field:"order" validate:"min=0"`
	ContentType string `field:"content_type" validate:"required,oneof=image/jpeg image/png image/gif image/webp"`
	Size        int64  `field:"size" validate:"min=1"`
}

// UpdateImageParams changes title or order. Nil fields stay untouched. Unlike
// an upload, an update has no append sentinel, so Order starts at 1.
type UpdateImageParams struct {
	Principal  Principal
	EmployeeID string
	ImageID    string
	Title      *string `field:"title" validate:"omitempty,max=200"`
	Order      *int    `field:"order" validate:"omitnil,min=1"`
}

// Reservation books a desk for one date.
type Reservation struct {
	ID         string
	UserID     string
	Username   string
	DeskID     string
	DeskNumber string
	Date       time.Time
	CreatedAt  time.Time
}

// CreateReservationParams books DeskID on Date for the principal.
type CreateReservationParams struct {
	Principal Principal
	DeskID    string    `field:"desk_id" validate:"required"`
	Date      time.Time `field:"date" validate:"required"`
}

// CreateReservationSeriesParams books DeskID on every date produced by Rule
// between Start and Until, all or nothing.
type CreateReservationSeriesParams struct {
	Principal Principal
	DeskID    string    `field:"desk_id" validate:"required"`
	Rule      string    `field:"rule" validate:"required,max=500"`
	Start     time.Time `field:"start" validate:"required"`
	Until     time.Time `field:"until" validate:"required"`
}

// ListReservationsParams filters reservation listings.
type ListReservationsParams struct {
	Principal Principal
	Date      *time.Time
	UserID    string
	DeskID    string
}

// RegisterParams captures a self registration.
type RegisterParams struct {
	Username        string `field:"username" validate:"required,min=3,max=150,printascii"`
	Email           string `field:"email" validate:"omitempty,email,max=254"`
	FirstName       string `field:"first_name" validate:"max=100"`
	LastName        string `field:"last_name" validate:"max=100"`
	Password        string `field:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `field:"password_confirm" validate:"required,eqfield=Password"`
}

// User is an account as exposed by the services.
type User struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
	IsAdmin   bool
	Groups    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateUserParams lets an administrator change profile, admin flag and groups.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Email     string   `field:"email" validate:"omitempty,email,max=254"`
	FirstName string   `field:"first_name" validate:"max=100"`
	LastName  string   `field:"last_name" validate:"max=100"`
	IsAdmin   bool     `field:"is_admin"`
	Groups    []string `field:"groups" validate:"dive,required"`
}

// Group is a named set of users.
type Group struct {
	Name      string
	CreatedAt time.Time
}

// LoginParams captures the data required to authenticate a user.
type LoginParams struct {
	Username string
	Password string
}

// TokenPair is issued on login and refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
