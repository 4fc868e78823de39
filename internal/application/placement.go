package application

import (
	"context"

	"github.com/example/office-planner/internal/persistence"
	"github.com/example/office-planner/internal/placement"
)

// DefaultKeeperGroup is the group whose members may move employees between desks.
const DefaultKeeperGroup = "Keepers"

// PlacementRules bundles the seating policy shared by the services.
type PlacementRules struct {
	Validator   placement.Validator
	Positions   placement.CategoryTable
	Groups      placement.GroupTable
	KeeperGroup string
}

// DefaultPlacementRules uses suffix adjacency and the built-in role tables.
func DefaultPlacementRules() PlacementRules {
	return PlacementRules{
		Validator:   placement.NewValidator(placement.NewAdjacency(placement.AdjacencySuffix)),
		Positions:   placement.DefaultCategoryTable(),
		Groups:      placement.DefaultGroupTable(),
		KeeperGroup: DefaultKeeperGroup,
	}
}

func (r PlacementRules) withDefaults() PlacementRules {
	defaults := DefaultPlacementRules()
	if r.Validator.Adjacency.Mode == "" {
		r.Validator = defaults.Validator
	}
	if r.Positions == nil {
		r.Positions = defaults.Positions
	}
	if r.Groups == nil {
		r.Groups = defaults.Groups
	}
	if r.KeeperGroup == "" {
		r.KeeperGroup = defaults.KeeperGroup
	}
	return r
}

// CanMoveEmployees reports whether p is a keeper or an administrator.
func (r PlacementRules) CanMoveEmployees(p Principal) bool {
	return p.IsAdmin || p.InGroup(r.KeeperGroup)
}

func toPlacementDesk(desk persistence.Desk) placement.Desk {
	return placement.Desk{ID: desk.ID, Number: desk.Number, X: desk.X, Y: desk.Y}
}

// seatingSnapshot is the current desk layout and every seated employee,
// read through the repositories of one transaction.
type seatingSnapshot struct {
	desks     map[string]persistence.Desk
	occupants []placement.Occupant
}

func (r PlacementRules) loadSeating(ctx context.Context, repos persistence.Repositories) (seatingSnapshot, error) {
	desks, err := repos.Desks().ListDesks(ctx, persistence.DeskFilter{})
	if err != nil {
		return seatingSnapshot{}, err
	}
	employees, err := repos.Employees().ListEmployees(ctx, persistence.EmployeeFilter{})
	if err != nil {
		return seatingSnapshot{}, err
	}

	snapshot := seatingSnapshot{desks: make(map[string]persistence.Desk, len(desks))}
	for _, d := range desks {
		snapshot.desks[d.ID] = d
	}
	for _, e := range employees {
		if e.DeskID == nil {
			continue
		}
		snapshot.occupants = append(snapshot.occupants, r.occupant(e, snapshot.desks))
	}
	return snapshot, nil
}

func (r PlacementRules) occupant(e persistence.Employee, desks map[string]persistence.Desk) placement.Occupant {
	occ := placement.Occupant{
		ID:        e.ID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Position:  e.Position,
		Category:  r.Positions.Classify(e.Position),
	}
	if e.DeskID != nil {
		if desk, ok := desks[*e.DeskID]; ok {
			pd := toPlacementDesk(desk)
			occ.Desk = &pd
		}
	}
	return occ
}

// checkSeat validates employee at its (possibly new) desk against everyone
// else currently seated.
func (r PlacementRules) checkSeat(snapshot seatingSnapshot, employee persistence.Employee) (*placement.Rejection, []placement.DataIntegrityWarning) {
	return r.Validator.CheckAssignment(r.occupant(employee, snapshot.desks), snapshot.occupants)
}
