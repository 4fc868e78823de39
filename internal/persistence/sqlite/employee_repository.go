package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/office-planner/internal/persistence"
)

// EmployeeRepository implements persistence.EmployeeRepository using SQLite.
// Writes touch two tables, so callers should run them inside Store.WithinTx.
type EmployeeRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

func newEmployeeRepository(q queryer) *EmployeeRepository {
	return &EmployeeRepository{helper: NewQueryHelper(q), mapper: NewErrorMapper()}
}

const employeeColumns = `id, first_name, last_name, position, gender, desk_id, hire_date, created_at, updated_at`

// CreateEmployee inserts an employee and its skill levels
func (r *EmployeeRepository) CreateEmployee(ctx context.Context, employee persistence.Employee) error {
	if employee.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		employee.ID,
		employee.FirstName,
		employee.LastName,
		employee.Position,
		employee.Gender,
		nullableString(employee.DeskID),
		formatDate(employee.HireDate),
		formatTimestamp(employee.CreatedAt),
		formatTimestamp(employee.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return r.insertSkills(ctx, employee.ID, employee.Skills)
}

// UpdateEmployee overwrites an employee and replaces its skill levels
func (r *EmployeeRepository) UpdateEmployee(ctx context.Context, employee persistence.Employee) error {
	if employee.ID == "" {
		return persistence.ErrConstraintViolation
	}

	err := r.helper.ExecAffecting(ctx, r.mapper, `
		UPDATE employees
		SET first_name = ?, last_name = ?, position = ?, gender = ?, desk_id = ?, hire_date = ?, updated_at = ?
		WHERE id = ?
	`,
		employee.FirstName,
		employee.LastName,
		employee.Position,
		employee.Gender,
		nullableString(employee.DeskID),
		formatDate(employee.HireDate),
		formatTimestamp(employee.UpdatedAt),
		employee.ID,
	)
	if err != nil {
		return err
	}

	if _, err := r.helper.Exec(ctx, `DELETE FROM employee_skills WHERE employee_id = ?`, employee.ID); err != nil {
		return r.mapper.MapError(err)
	}
	return r.insertSkills(ctx, employee.ID, employee.Skills)
}

func (r *EmployeeRepository) insertSkills(ctx context.Context, employeeID string, skills []persistence.EmployeeSkill) error {
	for _, skill := range skills {
		_, err := r.helper.Exec(ctx,
			`INSERT INTO employee_skills (employee_id, skill_id, level) VALUES (?, ?, ?)`,
			employeeID, skill.SkillID, skill.Level,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// GetEmployee retrieves an employee with its skills
func (r *EmployeeRepository) GetEmployee(ctx context.Context, id string) (persistence.Employee, error) {
	if id == "" {
		return persistence.Employee{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	employee, err := r.scanEmployee(row)
	if err != nil {
		return persistence.Employee{}, err
	}

	skills, err := r.loadSkills(ctx, []string{id})
	if err != nil {
		return persistence.Employee{}, err
	}
	employee.Skills = skills[id]
	return employee, nil
}

// ListEmployees returns employees matching filter ordered by last name, first name, ID
func (r *EmployeeRepository) ListEmployees(ctx context.Context, filter persistence.EmployeeFilter) ([]persistence.Employee, error) {
	var (
		conditions []string
		args       []any
	)
	if len(filter.DeskIDs) > 0 {
		conditions = append(conditions, `desk_id IN (`+placeholders(len(filter.DeskIDs))+`)`)
		for _, id := range filter.DeskIDs {
			args = append(args, id)
		}
	}
	if filter.Position != "" {
		conditions = append(conditions, `position = ?`)
		args = append(args, filter.Position)
	}
	if filter.Gender != "" {
		conditions = append(conditions, `gender = ?`)
		args = append(args, filter.Gender)
	}
	if filter.SkillID != "" {
		conditions = append(conditions, `EXISTS (SELECT 1 FROM employee_skills es WHERE es.employee_id = employees.id AND es.skill_id = ?)`)
		args = append(args, filter.SkillID)
	}
	if filter.HiredOnOrAfter != nil {
		conditions = append(conditions, `hire_date >= ?`)
		args = append(args, formatDate(*filter.HiredOnOrAfter))
	}
	if filter.HiredOnOrBefore != nil {
		conditions = append(conditions, `hire_date <= ?`)
		args = append(args, formatDate(*filter.HiredOnOrBefore))
	}

	query := `SELECT ` + employeeColumns + ` FROM employees`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY last_name ASC, first_name ASC, id ASC`

	employees, err := r.queryEmployees(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return employees, nil
	}

	ids := make([]string, len(employees))
	for i, employee := range employees {
		ids[i] = employee.ID
	}
	skills, err := r.loadSkills(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range employees {
		employees[i].Skills = skills[employees[i].ID]
	}
	return employees, nil
}

// queryEmployees drains the result set before returning so that follow-up
// queries can reuse a transaction's single connection.
func (r *EmployeeRepository) queryEmployees(ctx context.Context, query string, args ...any) ([]persistence.Employee, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	employees := make([]persistence.Employee, 0)
	for rows.Next() {
		employee, err := r.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return employees, nil
}

func (r *EmployeeRepository) loadSkills(ctx context.Context, employeeIDs []string) (map[string][]persistence.EmployeeSkill, error) {
	args := make([]any, len(employeeIDs))
	for i, id := range employeeIDs {
		args[i] = id
	}

	rows, err := r.helper.Query(ctx, `
		SELECT es.employee_id, es.skill_id, s.name, es.level
		FROM employee_skills es
		JOIN skills s ON s.id = es.skill_id
		WHERE es.employee_id IN (`+placeholders(len(employeeIDs))+`)
		ORDER BY s.name ASC, s.id ASC
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	result := make(map[string][]persistence.EmployeeSkill, len(employeeIDs))
	for rows.Next() {
		var (
			employeeID string
			skill      persistence.EmployeeSkill
		)
		if err := rows.Scan(&employeeID, &skill.SkillID, &skill.SkillName, &skill.Level); err != nil {
			return nil, r.mapper.MapError(err)
		}
		result[employeeID] = append(result[employeeID], skill)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return result, nil
}

// DeleteEmployee removes an employee; skills and images cascade
func (r *EmployeeRepository) DeleteEmployee(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.helper.ExecAffecting(ctx, r.mapper, `DELETE FROM employees WHERE id = ?`, id)
}

func (r *EmployeeRepository) scanEmployee(row rowScanner) (persistence.Employee, error) {
	var (
		employee                       persistence.Employee
		deskID                         sql.NullString
		hireDate, createdAt, updatedAt string
	)
	err := row.Scan(
		&employee.ID,
		&employee.FirstName,
		&employee.LastName,
		&employee.Position,
		&employee.Gender,
		&deskID,
		&hireDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Employee{}, r.mapper.MapError(err)
	}
	employee.DeskID = stringPtr(deskID)

	if employee.HireDate, err = parseDate(hireDate, "hire_date"); err != nil {
		return persistence.Employee{}, err
	}
	if employee.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return persistence.Employee{}, err
	}
	if employee.UpdatedAt, err = parseTimestamp(updatedAt, "updated_at"); err != nil {
		return persistence.Employee{}, err
	}
	return employee, nil
}
