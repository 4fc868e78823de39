package persistence

import "time"

// Desk is a physical workplace in the office.
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

// Skill is a named competence employees can hold.
type Skill struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// EmployeeSkill links an employee to a skill with a level from 1 to 4.
type EmployeeSkill struct {
	SkillID   string
	SkillName string
	Level     int
}

// Employee is a staff member, optionally seated at a desk.
type Employee struct {
	ID        string
	FirstName string
	LastName  string
	Position  string
	Gender    string
	DeskID    *string
	HireDate  time.Time
	Skills    []EmployeeSkill
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmployeeImage is a photo owned by an employee. Order is the display position.
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

// Reservation books a desk for a user on one calendar date.
type Reservation struct {
	ID        string
	UserID    string
	DeskID    string
	Date      time.Time
	CreatedAt time.Time
}

// User is an account able to sign in and reserve desks.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsAdmin      bool
	Groups       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Group is a named set of users used for role lookups and permissions.
type Group struct {
	Name      string
	CreatedAt time.Time
}
