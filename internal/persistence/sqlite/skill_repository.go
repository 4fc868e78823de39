package sqlite

import (
	"context"

	"github.com/example/office-planner/internal/persistence"
)

// SkillRepository implements persistence.SkillRepository using SQLite
type SkillRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

func newSkillRepository(q queryer) *SkillRepository {
	return &SkillRepository{helper: NewQueryHelper(q), mapper: NewErrorMapper()}
}

// CreateSkill inserts a skill. Names are unique regardless of case.
func (r *SkillRepository) CreateSkill(ctx context.Context, skill persistence.Skill) error {
	if skill.ID == "" || skill.Name == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx,
		`INSERT INTO skills (id, name, created_at) VALUES (?, ?, ?)`,
		skill.ID, skill.Name, formatTimestamp(skill.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetSkill retrieves a skill by ID
func (r *SkillRepository) GetSkill(ctx context.Context, id string) (persistence.Skill, error) {
	if id == "" {
		return persistence.Skill{}, persistence.ErrNotFound
	}
	var (
		skill     persistence.Skill
		createdAt string
	)
	err := r.helper.QueryRow(ctx, `SELECT id, name, created_at FROM skills WHERE id = ?`, id).
		Scan(&skill.ID, &skill.Name, &createdAt)
	if err != nil {
		return persistence.Skill{}, r.mapper.MapError(err)
	}
	if skill.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return persistence.Skill{}, err
	}
	return skill, nil
}

// ListSkills returns all skills ordered by name
func (r *SkillRepository) ListSkills(ctx context.Context) ([]persistence.Skill, error) {
	rows, err := r.helper.Query(ctx, `SELECT id, name, created_at FROM skills ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	skills := make([]persistence.Skill, 0)
	for rows.Next() {
		var (
			skill     persistence.Skill
			createdAt string
		)
		if err := rows.Scan(&skill.ID, &skill.Name, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if skill.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
			return nil, err
		}
		skills = append(skills, skill)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return skills, nil
}

// DeleteSkill removes a skill and every employee link to it
func (r *SkillRepository) DeleteSkill(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.helper.ExecAffecting(ctx, r.mapper, `DELETE FROM skills WHERE id = ?`, id)
}
