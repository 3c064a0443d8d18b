package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence/models"
	"github.com/proseed/proseed/pkg/composables"
)

// treeLockKey is the advisory lock taken by every structural mutation.
const treeLockKey int64 = 0x7461736b73

const (
	taskFindQuery = `SELECT id, process_id, parent_id, name, description, completed, version, created_at, updated_at FROM tasks`

	taskInsertQuery = `INSERT INTO tasks (process_id, parent_id, name, description, completed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, process_id, parent_id, name, description, completed, version, created_at, updated_at`

	taskUpdateQuery = `UPDATE tasks
		SET process_id = $1, parent_id = $2, name = $3, description = $4, completed = $5,
		    version = version + 1, updated_at = now()
		WHERE id = $6 AND version = $7
		RETURNING id, process_id, parent_id, name, description, completed, version, created_at, updated_at`
)

type TaskRepository struct{}

func NewTaskRepository() task.Repository {
	return &TaskRepository{}
}

func (r *TaskRepository) LockTree(ctx context.Context) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, treeLockKey)
	return errors.Wrap(err, "lock task tree")
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (task.Task, error) {
	tasks, err := r.queryTasks(ctx, taskFindQuery+" WHERE id = $1", id)
	if err != nil {
		return task.Task{}, err
	}
	if len(tasks) == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return tasks[0], nil
}

func (r *TaskRepository) GetAll(ctx context.Context, params *task.FindParams) ([]task.Task, error) {
	if params == nil {
		params = &task.FindParams{}
	}
	var where []string
	var args []interface{}
	if params.IDs != nil {
		args = append(args, params.IDs)
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if params.ProcessID != nil {
		args = append(args, *params.ProcessID)
		where = append(where, fmt.Sprintf("process_id = $%d", len(args)))
	}
	if params.ParentID != nil {
		args = append(args, *params.ParentID)
		where = append(where, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	if params.RootsOnly {
		where = append(where, "parent_id IS NULL")
	}
	if params.Completed != nil {
		args = append(args, *params.Completed)
		where = append(where, fmt.Sprintf("completed = $%d", len(args)))
	}

	query := taskFindQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return r.queryTasks(ctx, query+" ORDER BY id", args...)
}

func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM tasks`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count tasks")
	}
	return n, nil
}

func (r *TaskRepository) ParentOf(ctx context.Context, id int64) (*int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var parent *int64
	if err := tx.QueryRow(ctx, `SELECT parent_id FROM tasks WHERE id = $1`, id).Scan(&parent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, task.ErrNotFound
		}
		return nil, errors.Wrap(err, "select task parent")
	}
	return parent, nil
}

func (r *TaskRepository) ChildIDs(ctx context.Context, id int64) ([]int64, error) {
	return queryIDs(ctx, `SELECT id FROM tasks WHERE parent_id = $1 ORDER BY id`, id)
}

func (r *TaskRepository) Create(ctx context.Context, t task.Task) (task.Task, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return task.Task{}, err
	}
	row := tx.QueryRow(ctx, taskInsertQuery,
		t.ProcessID,
		pointerToNull(t.ParentID),
		t.Name,
		t.Description,
		t.Completed,
	)
	created, err := scanTask(row)
	if err != nil {
		return task.Task{}, errors.Wrap(mapPgError(err), "insert task")
	}
	return created, nil
}

func (r *TaskRepository) Update(ctx context.Context, t task.Task) (task.Task, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return task.Task{}, err
	}
	row := tx.QueryRow(ctx, taskUpdateQuery,
		t.ProcessID,
		pointerToNull(t.ParentID),
		t.Name,
		t.Description,
		t.Completed,
		t.ID,
		t.Version,
	)
	updated, err := scanTask(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return task.Task{}, errors.Wrap(mapPgError(err), "update task")
	}
	// No row matched: either the task is gone or someone else bumped it.
	if _, getErr := r.GetByID(ctx, t.ID); getErr != nil {
		return task.Task{}, getErr
	}
	return task.Task{}, task.ErrVersionConflict
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(mapPgError(err), "delete task")
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) EmployeeIDs(ctx context.Context, id int64) ([]int64, error) {
	return queryIDs(ctx, `SELECT employee_id FROM task_employees WHERE task_id = $1 ORDER BY employee_id`, id)
}

func (r *TaskRepository) SkillIDs(ctx context.Context, id int64) ([]int64, error) {
	return queryIDs(ctx, `SELECT skill_id FROM task_skills WHERE task_id = $1 ORDER BY skill_id`, id)
}

func (r *TaskRepository) DepartmentIDs(ctx context.Context, id int64) ([]int64, error) {
	return queryIDs(ctx, `SELECT department_id FROM task_departments WHERE task_id = $1 ORDER BY department_id`, id)
}

func (r *TaskRepository) TaskIDsByEmployee(ctx context.Context, employeeID int64) ([]int64, error) {
	return queryIDs(ctx, `SELECT task_id FROM task_employees WHERE employee_id = $1 ORDER BY task_id`, employeeID)
}

func (r *TaskRepository) AssignEmployee(ctx context.Context, taskID, employeeID int64) error {
	return execLink(ctx,
		`INSERT INTO task_employees (task_id, employee_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		taskID, employeeID)
}

func (r *TaskRepository) UnassignEmployee(ctx context.Context, taskID, employeeID int64) error {
	return execLink(ctx, `DELETE FROM task_employees WHERE task_id = $1 AND employee_id = $2`, taskID, employeeID)
}

func (r *TaskRepository) ReplaceEmployees(ctx context.Context, taskID int64, employeeIDs []int64) error {
	return replaceLinks(ctx, "task_employees", "employee_id", taskID, employeeIDs)
}

func (r *TaskRepository) ReplaceSkills(ctx context.Context, taskID int64, skillIDs []int64) error {
	return replaceLinks(ctx, "task_skills", "skill_id", taskID, skillIDs)
}

func (r *TaskRepository) ReplaceDepartments(ctx context.Context, taskID int64, departmentIDs []int64) error {
	return replaceLinks(ctx, "task_departments", "department_id", taskID, departmentIDs)
}

// replaceLinks rewrites the join rows of one task in a single batch. The
// table and column come from this package only.
func replaceLinks(ctx context.Context, table, column string, taskID int64, ids []int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	batch.Queue(fmt.Sprintf(`DELETE FROM %s WHERE task_id = $1`, table), taskID)
	for _, id := range ids {
		batch.Queue(fmt.Sprintf(`INSERT INTO %s (task_id, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table, column), taskID, id)
	}
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return errors.Wrapf(mapPgError(err), "replace %s", table)
		}
	}
	return results.Close()
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]task.Task, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query tasks")
	}
	defer rows.Close()

	out := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan task")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(row pgx.Row) (task.Task, error) {
	var m models.Task
	if err := row.Scan(
		&m.ID,
		&m.ProcessID,
		&m.ParentID,
		&m.Name,
		&m.Description,
		&m.Completed,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return task.Task{}, err
	}
	return toDomainTask(&m), nil
}

func queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func execLink(ctx context.Context, query string, args ...interface{}) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return mapPgError(err)
}
