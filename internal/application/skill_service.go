package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/persistence"
)

// SkillService manages the skill catalog.
type SkillService struct {
	skills      persistence.SkillRepository
	idGenerator func() string
	now         func() time.Time
	logger      *zap.Logger
}

// NewSkillService constructs a skill service with a specified logger.
func NewSkillService(skills persistence.SkillRepository, idGenerator func() string, now func() time.Time, logger *zap.Logger) *SkillService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SkillService{skills: skills, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *SkillService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "SkillService", operation, fields...)
}

// CreateSkill adds a skill. Names are unique regardless of case.
func (s *SkillService) CreateSkill(ctx context.Context, principal Principal, input SkillInput) (skill Skill, err error) {
	if s == nil || s.skills == nil {
		err = fmt.Errorf("SkillService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateSkill", zap.String("principal_id", principal.UserID))
	defer func() {
		if err != nil {
			logFailure(logger, "failed to create skill", err)
			return
		}
		logger.Info("skill created", zap.String("skill_id", skill.ID))
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	record := persistence.Skill{ID: s.idGenerator(), Name: input.Name, CreatedAt: s.now()}
	if err = s.skills.CreateSkill(ctx, record); err != nil {
		err = mapSkillRepoError(err)
		return
	}

	skill = Skill{ID: record.ID, Name: record.Name, CreatedAt: record.CreatedAt}
	return
}

// ListSkills returns the catalog ordered by name.
func (s *SkillService) ListSkills(ctx context.Context, principal Principal) ([]Skill, error) {
	if s == nil || s.skills == nil {
		return nil, fmt.Errorf("SkillService is not configured")
	}
	records, err := s.skills.ListSkills(ctx)
	if err != nil {
		logFailure(s.loggerWith(ctx, "ListSkills", zap.String("principal_id", principal.UserID)), "failed to list skills", err)
		return nil, err
	}
	skills := make([]Skill, len(records))
	for i, r := range records {
		skills[i] = Skill{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
	}
	return skills, nil
}

// DeleteSkill removes a skill and every employee's level for it.
func (s *SkillService) DeleteSkill(ctx context.Context, principal Principal, skillID string) error {
	if s == nil || s.skills == nil {
		return fmt.Errorf("SkillService is not configured")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DeleteSkill",
		zap.String("principal_id", principal.UserID),
		zap.String("skill_id", skillID),
	)
	if err := s.skills.DeleteSkill(ctx, skillID); err != nil {
		err = mapSkillRepoError(err)
		logFailure(logger, "failed to delete skill", err)
		return err
	}
	logger.Info("skill deleted")
	return nil
}

func mapSkillRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	}
	return err
}
