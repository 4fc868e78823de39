package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/example/office-planner/internal/placement"
)

// Policy holds the placement rules that differ between offices.
type Policy struct {
	Adjacency   string            `yaml:"adjacency" validate:"omitempty,oneof=suffix numeric"`
	Positions   map[string]string `yaml:"positions" validate:"dive,keys,oneof=backend frontend tester manager designer,endkeys,oneof=DEVELOPER TESTER OTHER"`
	Groups      map[string]string `yaml:"groups" validate:"dive,keys,required,endkeys,oneof=DEVELOPER TESTER OTHER"`
	KeeperGroup string            `yaml:"keeper_group" validate:"required"`
}

// DefaultPolicy is used when no policy file is configured.
func DefaultPolicy() Policy {
	return Policy{
		Adjacency:   string(placement.AdjacencySuffix),
		KeeperGroup: "Keepers",
	}
}

// LoadPolicyFile reads and validates a YAML policy file. Missing fields keep
// their defaults.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}

	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid policy file %s: %w", path, err)
	}
	return policy, nil
}

// Validate checks field values. Category names are compared upper case.
func (p *Policy) Validate() error {
	for key, value := range p.Positions {
		p.Positions[key] = strings.ToUpper(strings.TrimSpace(value))
	}
	for key, value := range p.Groups {
		p.Groups[key] = strings.ToUpper(strings.TrimSpace(value))
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("policy validation failed: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// Rules converts the policy into placement tables.
func (p Policy) Rules() (placement.Adjacency, placement.CategoryTable, placement.GroupTable, error) {
	mode, err := placement.ParseAdjacencyMode(p.Adjacency)
	if err != nil {
		return placement.Adjacency{}, nil, nil, err
	}
	positions, err := placement.DefaultCategoryTable().WithOverrides(p.Positions)
	if err != nil {
		return placement.Adjacency{}, nil, nil, err
	}
	groups, err := placement.DefaultGroupTable().WithOverrides(p.Groups)
	if err != nil {
		return placement.Adjacency{}, nil, nil, err
	}
	return placement.NewAdjacency(mode), positions, groups, nil
}
