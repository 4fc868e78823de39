package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/persistence"
)

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	store       persistence.Store
	hasher      PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *zap.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(store persistence.Store, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *zap.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{store: store, hasher: hasher, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, fields...)
}

// Register creates a regular account without group memberships.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (User, error) {
	return s.createUser(ctx, "Register", params, false)
}

// CreateAdministrator creates an account with the admin flag set. It is meant
// for provisioning from the command line and performs no authorization.
func (s *UserService) CreateAdministrator(ctx context.Context, params RegisterParams) (User, error) {
	return s.createUser(ctx, "CreateAdministrator", params, true)
}

func (s *UserService) createUser(ctx context.Context, operation string, params RegisterParams, admin bool) (user User, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("UserService is not configured")
		return
	}

	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.FirstName = strings.TrimSpace(params.FirstName)
	params.LastName = strings.TrimSpace(params.LastName)

	logger := s.loggerWith(ctx, operation, zap.String("username", params.Username))
	defer func() {
		if err != nil {
			logFailure(logger, "failed to create user", err)
			return
		}
		logger.Info("user created", zap.String("user_id", user.ID), zap.Bool("is_admin", user.IsAdmin))
	}()

	vErr := validateStruct(params)
	if strings.IndexFunc(params.Username, unicode.IsSpace) >= 0 {
		vErr.add("username", "username must not contain spaces")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return
	}

	now := s.now()
	record := persistence.User{
		ID:           s.idGenerator(),
		Username:     params.Username,
		Email:        params.Email,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		PasswordHash: hash,
		IsAdmin:      admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = s.store.Users().CreateUser(ctx, record); err != nil {
		err = mapUserRepoError(err)
		return
	}

	record, err = s.store.Users().GetUser(ctx, record.ID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	user = toUser(record)
	return
}

// GetUser returns a user to administrators or to the user themselves.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil || s.store == nil {
		return User{}, fmt.Errorf("UserService is not configured")
	}
	if !principal.IsAdmin && principal.UserID != userID {
		return User{}, ErrUnauthorized
	}
	record, err := s.store.Users().GetUser(ctx, userID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return toUser(record), nil
}

// ListUsers returns every account for administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("UserService is not configured")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	records, err := s.store.Users().ListUsers(ctx)
	if err != nil {
		logFailure(s.loggerWith(ctx, "ListUsers", zap.String("principal_id", principal.UserID)), "failed to list users", err)
		return nil, err
	}
	users := make([]User, len(records))
	for i, r := range records {
		users[i] = toUser(r)
	}
	return users, nil
}

// UpdateUser changes profile fields, the admin flag and group memberships.
// Every group must already exist.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("UserService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("user_id", params.UserID),
	)
	defer func() {
		if err != nil {
			logFailure(logger, "failed to update user", err)
			return
		}
		logger.Info("user updated", zap.Strings("groups", user.Groups))
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.FirstName = strings.TrimSpace(params.FirstName)
	params.LastName = strings.TrimSpace(params.LastName)
	params.Groups = normalizeGroups(params.Groups)
	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}

	var record persistence.User
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		known, err := repos.Groups().ListGroups(ctx)
		if err != nil {
			return err
		}
		names := make(map[string]struct{}, len(known))
		for _, g := range known {
			names[g.Name] = struct{}{}
		}
		for _, g := range params.Groups {
			if _, ok := names[g]; !ok {
				return fieldError("groups", fmt.Sprintf("group %s does not exist", g))
			}
		}

		record, err = repos.Users().GetUser(ctx, params.UserID)
		if err != nil {
			return mapUserRepoError(err)
		}
		record.Email = params.Email
		record.FirstName = params.FirstName
		record.LastName = params.LastName
		record.IsAdmin = params.IsAdmin
		record.Groups = params.Groups
		record.UpdatedAt = s.now()
		return mapUserRepoError(repos.Users().UpdateUser(ctx, record))
	})
	if err != nil {
		return
	}

	user = toUser(record)
	return
}

// DeleteUser removes an account and its reservations. Administrators cannot
// delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("UserService is not configured")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if principal.UserID == userID {
		return fieldError("user_id", "you cannot delete your own account")
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		zap.String("principal_id", principal.UserID),
		zap.String("user_id", userID),
	)
	if err := s.store.Users().DeleteUser(ctx, userID); err != nil {
		err = mapUserRepoError(err)
		logFailure(logger, "failed to delete user", err)
		return err
	}
	logger.Info("user deleted")
	return nil
}

func normalizeGroups(groups []string) []string {
	seen := make(map[string]struct{}, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fieldError("groups", "unknown group")
	}
	return err
}

func toUser(record persistence.User) User {
	groups := record.Groups
	if groups == nil {
		groups = []string{}
	}
	return User{
		ID:        record.ID,
		Username:  record.Username,
		Email:     record.Email,
		FirstName: record.FirstName,
		LastName:  record.LastName,
		IsAdmin:   record.IsAdmin,
		Groups:    groups,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
