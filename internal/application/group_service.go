package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/persistence"
)

// DefaultGroups are created by the setup-groups command.
var DefaultGroups = []string{"Developers", "Testers", DefaultKeeperGroup}

// GroupService provisions and lists user groups.
type GroupService struct {
	groups persistence.GroupRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewGroupService constructs a group service.
func NewGroupService(groups persistence.GroupRepository, now func() time.Time, logger *zap.Logger) *GroupService {
	if now == nil {
		now = time.Now
	}
	return &GroupService{groups: groups, now: now, logger: defaultLogger(logger)}
}

// EnsureGroups creates every named group that does not exist yet. It is idempotent.
func (s *GroupService) EnsureGroups(ctx context.Context, names ...string) error {
	if s == nil || s.groups == nil {
		return fmt.Errorf("GroupService is not configured")
	}
	logger := serviceLogger(ctx, s.logger, "GroupService", "EnsureGroups")
	for _, name := range normalizeGroups(names) {
		if name == "" {
			continue
		}
		if err := s.groups.EnsureGroup(ctx, persistence.Group{Name: name, CreatedAt: s.now()}); err != nil {
			logFailure(logger, "failed to ensure group", err)
			return err
		}
		logger.Debug("group ensured", zap.String("group", name))
	}
	return nil
}

// EnsureDefaultGroups creates DefaultGroups plus keeperGroup when it differs.
func (s *GroupService) EnsureDefaultGroups(ctx context.Context, keeperGroup string) error {
	names := append([]string{}, DefaultGroups...)
	if keeperGroup != "" {
		names = append(names, keeperGroup)
	}
	return s.EnsureGroups(ctx, names...)
}

// ListGroups returns every group ordered by name.
func (s *GroupService) ListGroups(ctx context.Context, principal Principal) ([]Group, error) {
	if s == nil || s.groups == nil {
		return nil, fmt.Errorf("GroupService is not configured")
	}
	records, err := s.groups.ListGroups(ctx)
	if err != nil {
		logFailure(serviceLogger(ctx, s.logger, "GroupService", "ListGroups", zap.String("principal_id", principal.UserID)), "failed to list groups", err)
		return nil, err
	}
	groups := make([]Group, len(records))
	for i, r := range records {
		groups[i] = Group{Name: r.Name, CreatedAt: r.CreatedAt}
	}
	return groups, nil
}
