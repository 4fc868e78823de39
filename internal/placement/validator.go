package placement

import (
	"fmt"
	"strings"
	"time"
)

// RejectionKind distinguishes why a placement was refused.
type RejectionKind string

const (
	// RejectAdjacency means a developer and a tester would be neighbours.
	RejectAdjacency RejectionKind = "adjacency"
	// RejectDuplicateBooking means the desk is already reserved for the date.
	RejectDuplicateBooking RejectionKind = "duplicate_booking"
)

// Rejection explains a refused placement. Message is safe to show to users.
type Rejection struct {
	Kind          RejectionKind
	CandidateDesk string
	NeighborDesk  string
	NeighborRole  string
	NeighborName  string
	Message       string
}

func (r *Rejection) Error() string {
	if r == nil {
		return ""
	}
	return r.Message
}

// Occupant is an employee seated (or about to be seated) at a desk.
type Occupant struct {
	ID        string
	FirstName string
	LastName  string
	Position  string
	Category  Category
	Desk      *Desk
}

// FullName joins the name parts.
func (o Occupant) FullName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

// Booking is a reservation of a desk for one calendar date.
type Booking struct {
	ID       string
	UserID   string
	Username string
	Category Category
	Desk     Desk
	Date     time.Time
}

// Validator accepts or rejects placements.
type Validator struct {
	Adjacency Adjacency
}

// NewValidator returns a Validator using adjacency.
func NewValidator(adjacency Adjacency) Validator {
	return Validator{Adjacency: adjacency}
}

// CheckAssignment validates seating candidate given the employees currently
// persisted. Entries sharing the candidate's ID are ignored so an update never
// conflicts with its own previous state.
func (v Validator) CheckAssignment(candidate Occupant, current []Occupant) (*Rejection, []DataIntegrityWarning) {
	if candidate.Desk == nil {
		return nil, nil
	}

	var warnings []DataIntegrityWarning
	for _, other := range current {
		if other.Desk == nil || (candidate.ID != "" && other.ID == candidate.ID) {
			continue
		}
		if other.Desk.ID == candidate.Desk.ID {
			continue
		}
		neighbors, warning := v.Adjacency.Resolve(*candidate.Desk, *other.Desk)
		if warning != nil {
			warnings = append(warnings, *warning)
		}
		if !neighbors || !Conflicting(candidate.Category, other.Category) {
			continue
		}
		return &Rejection{
			Kind:          RejectAdjacency,
			CandidateDesk: candidate.Desk.Number,
			NeighborDesk:  other.Desk.Number,
			NeighborRole:  other.Position,
			NeighborName:  other.FullName(),
			Message: fmt.Sprintf(
				"testers and developers cannot sit at adjacent desks: desk %s is next to desk %s, occupied by %s %s",
				candidate.Desk.Number, other.Desk.Number, other.Position, other.FullName(),
			),
		}, warnings
	}
	return nil, warnings
}

// CheckReservation validates candidate against the other bookings of the same
// date. The one-booking-per-desk-per-day rule is checked before any role rule.
func (v Validator) CheckReservation(candidate Booking, sameDate []Booking) (*Rejection, []DataIntegrityWarning) {
	day := candidate.Date.Format(time.DateOnly)

	for _, other := range sameDate {
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		if other.Desk.ID == candidate.Desk.ID && other.Date.Format(time.DateOnly) == day {
			return &Rejection{
				Kind:          RejectDuplicateBooking,
				CandidateDesk: candidate.Desk.Number,
				NeighborDesk:  other.Desk.Number,
				Message:       fmt.Sprintf("desk %s is already reserved for %s", candidate.Desk.Number, day),
			}, nil
		}
	}

	var warnings []DataIntegrityWarning
	for _, other := range sameDate {
		if (candidate.ID != "" && other.ID == candidate.ID) || other.Date.Format(time.DateOnly) != day {
			continue
		}
		neighbors, warning := v.Adjacency.Resolve(candidate.Desk, other.Desk)
		if warning != nil {
			warnings = append(warnings, *warning)
		}
		if !neighbors || !Conflicting(candidate.Category, other.Category) {
			continue
		}
		return &Rejection{
			Kind:          RejectAdjacency,
			CandidateDesk: candidate.Desk.Number,
			NeighborDesk:  other.Desk.Number,
			NeighborRole:  strings.ToLower(string(other.Category)),
			NeighborName:  other.Username,
			Message: fmt.Sprintf(
				"testers and developers cannot sit at adjacent desks: desk %s is next to desk %s, reserved on %s by %s %s",
				candidate.Desk.Number, other.Desk.Number, day, strings.ToLower(string(other.Category)), other.Username,
			),
		}, warnings
	}
	return nil, warnings
}
