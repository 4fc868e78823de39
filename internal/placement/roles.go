package placement

import (
	"fmt"
	"strings"
)

// Category groups positions for conflict checks.
type Category string

const (
	CategoryDeveloper Category = "DEVELOPER"
	CategoryTester    Category = "TESTER"
	CategoryOther     Category = "OTHER"
)

// ParseCategory accepts the upper or lower case category name.
func ParseCategory(value string) (Category, error) {
	switch Category(strings.ToUpper(strings.TrimSpace(value))) {
	case CategoryDeveloper:
		return CategoryDeveloper, nil
	case CategoryTester:
		return CategoryTester, nil
	case CategoryOther:
		return CategoryOther, nil
	default:
		return "", fmt.Errorf("placement: unknown category %q", value)
	}
}

// Position codes an employee can hold.
const (
	PositionBackend  = "backend"
	PositionFrontend = "frontend"
	PositionTester   = "tester"
	PositionManager  = "manager"
	PositionDesigner = "designer"
)

// Positions lists every accepted position code.
var Positions = []string{PositionBackend, PositionFrontend, PositionTester, PositionManager, PositionDesigner}

// IsPosition reports whether value is one of Positions.
func IsPosition(value string) bool {
	for _, p := range Positions {
		if p == value {
			return true
		}
	}
	return false
}

// CategoryTable maps position codes to categories.
type CategoryTable map[string]Category

// DefaultCategoryTable returns the stock position mapping.
func DefaultCategoryTable() CategoryTable {
	return CategoryTable{
		PositionBackend:  CategoryDeveloper,
		PositionFrontend: CategoryDeveloper,
		PositionTester:   CategoryTester,
		PositionManager:  CategoryOther,
		PositionDesigner: CategoryOther,
	}
}

// WithOverrides returns a copy of t with the given entries replaced. Keys must be
// known positions.
func (t CategoryTable) WithOverrides(overrides map[string]string) (CategoryTable, error) {
	out := make(CategoryTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for position, raw := range overrides {
		if !IsPosition(position) {
			return nil, fmt.Errorf("placement: unknown position %q", position)
		}
		category, err := ParseCategory(raw)
		if err != nil {
			return nil, err
		}
		out[position] = category
	}
	return out, nil
}

// Classify returns the category of a position. Unknown positions are OTHER.
func (t CategoryTable) Classify(position string) Category {
	if category, ok := t[position]; ok {
		return category
	}
	return CategoryOther
}

// GroupTable maps user group names to categories.
type GroupTable map[string]Category

// DefaultGroupTable returns the stock group mapping.
func DefaultGroupTable() GroupTable {
	return GroupTable{
		"Developers": CategoryDeveloper,
		"Testers":    CategoryTester,
	}
}

// WithOverrides returns a copy of t with the given entries replaced.
func (t GroupTable) WithOverrides(overrides map[string]string) (GroupTable, error) {
	out := make(GroupTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for group, raw := range overrides {
		category, err := ParseCategory(raw)
		if err != nil {
			return nil, err
		}
		out[group] = category
	}
	return out, nil
}

// Classify returns the category for a user belonging to groups. Developer
// membership wins over tester membership.
func (t GroupTable) Classify(groups []string) Category {
	found := CategoryOther
	for _, group := range groups {
		switch t[group] {
		case CategoryDeveloper:
			return CategoryDeveloper
		case CategoryTester:
			found = CategoryTester
		}
	}
	return found
}

// Conflicting reports whether a and b are one developer and one tester.
func Conflicting(a, b Category) bool {
	return (a == CategoryDeveloper && b == CategoryTester) || (a == CategoryTester && b == CategoryDeveloper)
}
