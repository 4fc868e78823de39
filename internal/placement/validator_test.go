package placement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seated(id, first, last, position string, desk Desk) Occupant {
	d := desk
	return Occupant{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Position:  position,
		Category:  DefaultCategoryTable().Classify(position),
		Desk:      &d,
	}
}

func TestCheckAssignment(t *testing.T) {
	v := NewValidator(NewAdjacency(AdjacencySuffix))
	desk1 := Desk{ID: "d1", Number: "1"}
	desk2 := Desk{ID: "d2", Number: "2"}
	desk10 := Desk{ID: "d10", Number: "10"}

	backend := seated("e1", "Ivan", "Petrov", "backend", desk1)

	t.Run("tester next to developer is rejected", func(t *testing.T) {
		rejection, _ := v.CheckAssignment(seated("e2", "Anna", "Smirnova", "tester", desk2), []Occupant{backend})
		require.NotNil(t, rejection)
		assert.Equal(t, RejectAdjacency, rejection.Kind)
		assert.Contains(t, rejection.Message, "desk 2")
		assert.Contains(t, rejection.Message, "desk 1")
		assert.Contains(t, rejection.Message, "backend Ivan Petrov")
		assert.Equal(t, "1", rejection.NeighborDesk)
	})

	t.Run("tester at desk 10 is accepted", func(t *testing.T) {
		rejection, warnings := v.CheckAssignment(seated("e2", "Anna", "Smirnova", "tester", desk10), []Occupant{backend})
		assert.Nil(t, rejection)
		assert.Len(t, warnings, 1)
	})

	t.Run("same category neighbours are accepted", func(t *testing.T) {
		rejection, _ := v.CheckAssignment(seated("e2", "Oleg", "Sidorov", "frontend", desk2), []Occupant{backend})
		assert.Nil(t, rejection)
	})

	t.Run("other category never conflicts", func(t *testing.T) {
		rejection, _ := v.CheckAssignment(seated("e2", "Maria", "Ivanova", "manager", desk2), []Occupant{backend})
		assert.Nil(t, rejection)
	})

	t.Run("update ignores its own previous state", func(t *testing.T) {
		previous := seated("e2", "Anna", "Smirnova", "backend", desk1)
		candidate := seated("e2", "Anna", "Smirnova", "tester", desk2)
		rejection, _ := v.CheckAssignment(candidate, []Occupant{previous})
		assert.Nil(t, rejection)
	})

	t.Run("unassigned candidate passes", func(t *testing.T) {
		candidate := Occupant{ID: "e3", Position: "tester", Category: CategoryTester}
		rejection, _ := v.CheckAssignment(candidate, []Occupant{backend})
		assert.Nil(t, rejection)
	})

	t.Run("far apart coordinates pass", func(t *testing.T) {
		a := Desk{ID: "n", Number: "north", X: intPtr(0), Y: intPtr(0)}
		b := Desk{ID: "s", Number: "south", X: intPtr(2), Y: intPtr(2)}
		rejection, warnings := v.CheckAssignment(seated("e2", "Anna", "Smirnova", "tester", b), []Occupant{seated("e1", "Ivan", "Petrov", "backend", a)})
		assert.Nil(t, rejection)
		assert.Empty(t, warnings)
	})
}

func TestCheckReservation(t *testing.T) {
	v := NewValidator(NewAdjacency(AdjacencySuffix))
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	a1 := Desk{ID: "a1", Number: "A1"}
	a2 := Desk{ID: "a2", Number: "A2"}
	a5 := Desk{ID: "a5", Number: "A5"}

	existing := Booking{ID: "r1", UserID: "u1", Username: "dev", Category: CategoryDeveloper, Desk: a1, Date: day}

	t.Run("same desk and date is rejected regardless of roles", func(t *testing.T) {
		candidate := Booking{UserID: "u2", Username: "manager", Category: CategoryOther, Desk: a1, Date: day}
		rejection, _ := v.CheckReservation(candidate, []Booking{existing})
		require.NotNil(t, rejection)
		assert.Equal(t, RejectDuplicateBooking, rejection.Kind)
		assert.Contains(t, rejection.Message, "2024-01-15")
	})

	t.Run("tester next to developer on the same date is rejected", func(t *testing.T) {
		candidate := Booking{UserID: "u2", Username: "qa", Category: CategoryTester, Desk: a2, Date: day}
		rejection, _ := v.CheckReservation(candidate, []Booking{existing})
		require.NotNil(t, rejection)
		assert.Equal(t, RejectAdjacency, rejection.Kind)
		assert.Contains(t, rejection.Message, "A1")
		assert.Contains(t, rejection.Message, "A2")
	})

	t.Run("tester far away is accepted", func(t *testing.T) {
		candidate := Booking{UserID: "u2", Username: "qa", Category: CategoryTester, Desk: a5, Date: day}
		rejection, _ := v.CheckReservation(candidate, []Booking{existing})
		assert.Nil(t, rejection)
	})

	t.Run("other dates are ignored", func(t *testing.T) {
		candidate := Booking{UserID: "u2", Username: "qa", Category: CategoryTester, Desk: a1, Date: day.AddDate(0, 0, 1)}
		rejection, _ := v.CheckReservation(candidate, []Booking{existing})
		assert.Nil(t, rejection)
	})
}
