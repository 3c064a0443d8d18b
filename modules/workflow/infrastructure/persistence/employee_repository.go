package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence/models"
	"github.com/proseed/proseed/pkg/composables"
)

const (
	employeeFindQuery   = `SELECT id, first_name, last_name, role_id, department_id, created_at, updated_at FROM employees`
	employeeInsertQuery = `INSERT INTO employees (first_name, last_name, role_id, department_id) VALUES ($1, $2, $3, $4)
		RETURNING id, first_name, last_name, role_id, department_id, created_at, updated_at`
	employeeUpdateQuery = `UPDATE employees
		SET first_name = $1, last_name = $2, role_id = $3, department_id = $4, updated_at = now()
		WHERE id = $5
		RETURNING id, first_name, last_name, role_id, department_id, created_at, updated_at`
)

type EmployeeRepository struct{}

func NewEmployeeRepository() employee.Repository {
	return &EmployeeRepository{}
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (employee.Employee, error) {
	employees, err := r.queryEmployees(ctx, employeeFindQuery+" WHERE id = $1", id)
	if err != nil {
		return employee.Employee{}, err
	}
	if len(employees) == 0 {
		return employee.Employee{}, employee.ErrNotFound
	}
	return employees[0], nil
}

func (r *EmployeeRepository) GetAll(ctx context.Context) ([]employee.Employee, error) {
	return r.queryEmployees(ctx, employeeFindQuery+" ORDER BY id")
}

func (r *EmployeeRepository) GetByIDs(ctx context.Context, ids []int64) ([]employee.Employee, error) {
	return r.queryEmployees(ctx, employeeFindQuery+" WHERE id = ANY($1) ORDER BY id", ids)
}

func (r *EmployeeRepository) Create(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return employee.Employee{}, err
	}
	created, err := scanEmployee(tx.QueryRow(ctx, employeeInsertQuery,
		e.FirstName,
		e.LastName,
		pointerToNull(e.RoleID),
		pointerToNull(e.DepartmentID),
	))
	if err != nil {
		return employee.Employee{}, errors.Wrap(mapPgError(err), "insert employee")
	}
	return created, nil
}

func (r *EmployeeRepository) Update(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return employee.Employee{}, err
	}
	updated, err := scanEmployee(tx.QueryRow(ctx, employeeUpdateQuery,
		e.FirstName,
		e.LastName,
		pointerToNull(e.RoleID),
		pointerToNull(e.DepartmentID),
		e.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrNotFound
		}
		return employee.Employee{}, errors.Wrap(mapPgError(err), "update employee")
	}
	return updated, nil
}

// Delete cascades the employee's skill rows; a remaining task assignment
// fails it with integrity.ErrReferenced.
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(mapPgError(err), "delete employee")
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrNotFound
	}
	return nil
}

func (r *EmployeeRepository) ByRole(ctx context.Context, roleID int64) ([]int64, error) {
	return queryIDs(ctx, `SELECT id FROM employees WHERE role_id = $1 ORDER BY id`, roleID)
}

func (r *EmployeeRepository) BySkill(ctx context.Context, skillID int64) ([]int64, error) {
	return queryIDs(ctx, `SELECT employee_id FROM employee_skills WHERE skill_id = $1 ORDER BY employee_id`, skillID)
}

func (r *EmployeeRepository) SkillIDs(ctx context.Context, id int64) ([]int64, error) {
	return queryIDs(ctx, `SELECT skill_id FROM employee_skills WHERE employee_id = $1 ORDER BY skill_id`, id)
}

func (r *EmployeeRepository) AddSkill(ctx context.Context, id, skillID int64) error {
	return execLink(ctx,
		`INSERT INTO employee_skills (employee_id, skill_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		id, skillID)
}

func (r *EmployeeRepository) RemoveSkill(ctx context.Context, id, skillID int64) error {
	return execLink(ctx, `DELETE FROM employee_skills WHERE employee_id = $1 AND skill_id = $2`, id, skillID)
}

func (r *EmployeeRepository) queryEmployees(ctx context.Context, query string, args ...interface{}) ([]employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query employees")
	}
	defer rows.Close()

	out := []employee.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan employee")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var m models.Employee
	if err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &m.RoleID, &m.DepartmentID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return employee.Employee{}, err
	}
	return toDomainEmployee(&m), nil
}
