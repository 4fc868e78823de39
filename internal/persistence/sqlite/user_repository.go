package sqlite

import (
	"context"
	"strings"

	"github.com/example/office-planner/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

func newUserRepository(q queryer) *UserRepository {
	return &UserRepository{helper: NewQueryHelper(q), mapper: NewErrorMapper()}
}

const userColumns = `id, username, email, first_name, last_name, password_hash, is_admin, created_at, updated_at`

// CreateUser inserts a user and its group memberships
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		normalizeUsername(user.Username),
		strings.TrimSpace(user.Email),
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.IsAdmin,
		formatTimestamp(user.CreatedAt),
		formatTimestamp(user.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return r.insertGroups(ctx, user.ID, user.Groups)
}

// UpdateUser overwrites a user and replaces its group memberships
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	err := r.helper.ExecAffecting(ctx, r.mapper, `
		UPDATE users
		SET username = ?, email = ?, first_name = ?, last_name = ?, password_hash = ?, is_admin = ?, updated_at = ?
		WHERE id = ?
	`,
		normalizeUsername(user.Username),
		strings.TrimSpace(user.Email),
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.IsAdmin,
		formatTimestamp(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return err
	}

	if _, err := r.helper.Exec(ctx, `DELETE FROM user_groups WHERE user_id = ?`, user.ID); err != nil {
		return r.mapper.MapError(err)
	}
	return r.insertGroups(ctx, user.ID, user.Groups)
}

func (r *UserRepository) insertGroups(ctx context.Context, userID string, groups []string) error {
	for _, group := range groups {
		_, err := r.helper.Exec(ctx,
			`INSERT OR IGNORE INTO user_groups (user_id, group_name) VALUES (?, ?)`,
			userID, group,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username, ignoring case
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (persistence.User, error) {
	user, err := r.scanUser(r.helper.QueryRow(ctx, query, arg))
	if err != nil {
		return persistence.User{}, err
	}
	groups, err := r.loadGroups(ctx, []string{user.ID})
	if err != nil {
		return persistence.User{}, err
	}
	user.Groups = groups[user.ID]
	return user, nil
}

// ListUsers returns all users ordered by username
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	users := make([]persistence.User, 0)
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, user)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	if len(users) == 0 {
		return users, nil
	}

	ids := make([]string, len(users))
	for i, user := range users {
		ids[i] = user.ID
	}
	groups, err := r.loadGroups(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Groups = groups[users[i].ID]
	}
	return users, nil
}

func (r *UserRepository) loadGroups(ctx context.Context, userIDs []string) (map[string][]string, error) {
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	rows, err := r.helper.Query(ctx, `
		SELECT user_id, group_name
		FROM user_groups
		WHERE user_id IN (`+placeholders(len(userIDs))+`)
		ORDER BY group_name ASC
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	result := make(map[string][]string, len(userIDs))
	for rows.Next() {
		var userID, group string
		if err := rows.Scan(&userID, &group); err != nil {
			return nil, r.mapper.MapError(err)
		}
		result[userID] = append(result[userID], group)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return result, nil
}

// DeleteUser removes a user; memberships and reservations cascade
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.helper.ExecAffecting(ctx, r.mapper, `DELETE FROM users WHERE id = ?`, id)
}

func (r *UserRepository) scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                 persistence.User
		createdAt, updatedAt string
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.IsAdmin,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	if user.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTimestamp(updatedAt, "updated_at"); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

// normalizeUsername trims whitespace and lowercases usernames for comparison
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// GroupRepository implements persistence.GroupRepository using SQLite
type GroupRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

func newGroupRepository(q queryer) *GroupRepository {
	return &GroupRepository{helper: NewQueryHelper(q), mapper: NewErrorMapper()}
}

// EnsureGroup creates the group when it does not exist yet
func (r *GroupRepository) EnsureGroup(ctx context.Context, group persistence.Group) error {
	if strings.TrimSpace(group.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx,
		`INSERT OR IGNORE INTO access_groups (name, created_at) VALUES (?, ?)`,
		group.Name, formatTimestamp(group.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// ListGroups returns all groups ordered by name
func (r *GroupRepository) ListGroups(ctx context.Context) ([]persistence.Group, error) {
	rows, err := r.helper.Query(ctx, `SELECT name, created_at FROM access_groups ORDER BY name ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	groups := make([]persistence.Group, 0)
	for rows.Next() {
		var (
			group     persistence.Group
			createdAt string
		)
		if err := rows.Scan(&group.Name, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if group.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return groups, nil
}
