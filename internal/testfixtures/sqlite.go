package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/persistence"
	"github.com/example/office-planner/internal/persistence/sqlite"
	"github.com/example/office-planner/internal/persistence/sqlite/migration"
)

// SQLiteHarness is a migrated SQLite store in a temporary file, for
// integration-style service tests.
type SQLiteHarness struct {
	Store *sqlite.Storage

	tb testing.TB
}

// NewSQLiteHarness opens and migrates a fresh database. The store is closed
// through tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "office.db")
	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path), zap.NewNop())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return &SQLiteHarness{Store: storage, tb: tb}
}

// SeedDesk inserts desk and returns it.
func (h *SQLiteHarness) SeedDesk(desk DeskFixture) persistence.Desk {
	h.tb.Helper()
	record := desk.Persistence()
	if err := h.Store.Desks().CreateDesk(context.Background(), record); err != nil {
		h.tb.Fatalf("failed to seed desk %s: %v", desk.Number, err)
	}
	return record
}

// SeedSkill inserts skill and returns it.
func (h *SQLiteHarness) SeedSkill(skill SkillFixture) persistence.Skill {
	h.tb.Helper()
	record := skill.Persistence()
	if err := h.Store.Skills().CreateSkill(context.Background(), record); err != nil {
		h.tb.Fatalf("failed to seed skill %s: %v", skill.Name, err)
	}
	return record
}

// SeedEmployee inserts employee without running placement checks.
func (h *SQLiteHarness) SeedEmployee(employee EmployeeFixture) persistence.Employee {
	h.tb.Helper()
	record := employee.Persistence()
	if err := h.Store.Employees().CreateEmployee(context.Background(), record); err != nil {
		h.tb.Fatalf("failed to seed employee %s: %v", employee.ID, err)
	}
	return record
}

// SeedUser creates the user's groups and then the user.
func (h *SQLiteHarness) SeedUser(user UserFixture) persistence.User {
	h.tb.Helper()
	ctx := context.Background()
	for _, g := range user.Groups {
		if err := h.Store.Groups().EnsureGroup(ctx, persistence.Group{Name: g, CreatedAt: referenceTime}); err != nil {
			h.tb.Fatalf("failed to seed group %s: %v", g, err)
		}
	}
	record := user.Persistence()
	if err := h.Store.Users().CreateUser(ctx, record); err != nil {
		h.tb.Fatalf("failed to seed user %s: %v", user.Username, err)
	}
	return record
}

// SeedReservation inserts a reservation without placement checks.
func (h *SQLiteHarness) SeedReservation(reservation ReservationFixture) persistence.Reservation {
	h.tb.Helper()
	record := reservation.Persistence()
	if err := h.Store.Reservations().CreateReservation(context.Background(), record); err != nil {
		h.tb.Fatalf("failed to seed reservation %s: %v", reservation.ID, err)
	}
	return record
}
