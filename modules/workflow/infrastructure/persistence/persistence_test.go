package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/integrity"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence"
	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence/schema"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/composables"
	"github.com/proseed/proseed/pkg/configuration"
)

// setupDB connects to the database from the environment, migrates it and
// empties every table. Tests are skipped when no database is reachable.
func setupDB(t *testing.T) (context.Context, services.Repositories) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	conf, err := configuration.Load()
	require.NoError(t, err)

	ctx := context.Background()
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, schema.Migrate(ctx, conf.Database.DSN(), schema.Up))
	_, err = pool.Exec(ctx, `TRUNCATE task_departments, task_skills, task_employees, employee_skills,
		employees, tasks, departments, skills, roles, processes RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return composables.WithPool(ctx, pool), persistence.NewRepositories(pool)
}

func TestTaskRepository_VersionedUpdate(t *testing.T) {
	ctx, repos := setupDB(t)

	p, err := repos.Processes.Create(ctx, process.Process{Name: "Onboarding"})
	require.NoError(t, err)
	created, err := repos.Tasks.Create(ctx, task.Task{ProcessID: p.ID, Name: "Prepare laptop"})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.Version)

	created.Completed = true
	updated, err := repos.Tasks.Update(ctx, created)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.Version)
	require.True(t, updated.Completed)

	_, err = repos.Tasks.Update(ctx, created)
	require.ErrorIs(t, err, task.ErrVersionConflict)

	created.ID = 9999
	_, err = repos.Tasks.Update(ctx, created)
	require.ErrorIs(t, err, task.ErrNotFound)
}

func TestTaskRepository_ForeignKeys(t *testing.T) {
	ctx, repos := setupDB(t)

	_, err := repos.Tasks.Create(ctx, task.Task{ProcessID: 42, Name: "Orphan"})
	require.ErrorIs(t, err, integrity.ErrReferenced)

	p, err := repos.Processes.Create(ctx, process.Process{Name: "Release"})
	require.NoError(t, err)
	root, err := repos.Tasks.Create(ctx, task.Task{ProcessID: p.ID, Name: "Root"})
	require.NoError(t, err)
	child, err := repos.Tasks.Create(ctx, task.Task{ProcessID: p.ID, ParentID: task.ParentRef(root.ID), Name: "Child"})
	require.NoError(t, err)

	require.ErrorIs(t, repos.Tasks.Delete(ctx, root.ID), integrity.ErrReferenced)

	ids, err := repos.Tasks.ChildIDs(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{child.ID}, ids)

	parent, err := repos.Tasks.ParentOf(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, root.ID, *parent)
}

func TestTaskRepository_LinksAndRollback(t *testing.T) {
	ctx, repos := setupDB(t)

	p, err := repos.Processes.Create(ctx, process.Process{Name: "Audit"})
	require.NoError(t, err)
	tk, err := repos.Tasks.Create(ctx, task.Task{ProcessID: p.ID, Name: "Collect"})
	require.NoError(t, err)
	skill, err := repos.Catalog.Create(ctx, catalog.Entry{Kind: catalog.KindSkill, Name: "Go"})
	require.NoError(t, err)
	emp, err := repos.Employees.Create(ctx, employee.Employee{FirstName: "Ada"})
	require.NoError(t, err)

	require.NoError(t, repos.Tasks.ReplaceSkills(ctx, tk.ID, []int64{skill.ID}))
	require.NoError(t, repos.Tasks.AssignEmployee(ctx, tk.ID, emp.ID))

	err = repos.Tx.InTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, repos.Tasks.LockTree(txCtx))
		require.NoError(t, repos.Tasks.UnassignEmployee(txCtx, tk.ID, emp.ID))
		return repos.Tasks.ReplaceSkills(txCtx, tk.ID, []int64{skill.ID, 777})
	})
	require.ErrorIs(t, err, integrity.ErrReferenced)

	employees, err := repos.Tasks.EmployeeIDs(ctx, tk.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{emp.ID}, employees)
	skills, err := repos.Tasks.SkillIDs(ctx, tk.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{skill.ID}, skills)

	require.ErrorIs(t, repos.Employees.Delete(ctx, emp.ID), integrity.ErrReferenced)
}

func TestCatalogRepository_Constraints(t *testing.T) {
	ctx, repos := setupDB(t)

	role, err := repos.Catalog.Create(ctx, catalog.Entry{Kind: catalog.KindRole, Name: "Engineer"})
	require.NoError(t, err)
	_, err = repos.Catalog.Create(ctx, catalog.Entry{Kind: catalog.KindRole, Name: "engineer"})
	require.ErrorIs(t, err, integrity.ErrDuplicate)

	_, err = repos.Employees.Create(ctx, employee.Employee{FirstName: "Grace", RoleID: &role.ID})
	require.NoError(t, err)
	require.ErrorIs(t, repos.Catalog.Delete(ctx, catalog.KindRole, role.ID), integrity.ErrReferenced)

	missing, err := repos.Catalog.Missing(ctx, catalog.KindRole, []int64{5, role.ID, 3})
	require.NoError(t, err)
	require.Equal(t, []int64{5, 3}, missing)

	_, err = repos.Catalog.GetByID(ctx, catalog.KindSkill, role.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestProcessRepository_DeleteCascades(t *testing.T) {
	ctx, repos := setupDB(t)

	a, err := repos.Processes.Create(ctx, process.Process{Name: "A"})
	require.NoError(t, err)
	b, err := repos.Processes.Create(ctx, process.Process{Name: "B"})
	require.NoError(t, err)
	root, err := repos.Tasks.Create(ctx, task.Task{ProcessID: a.ID, Name: "Root"})
	require.NoError(t, err)
	_, err = repos.Tasks.Create(ctx, task.Task{ProcessID: a.ID, ParentID: task.ParentRef(root.ID), Name: "Leaf"})
	require.NoError(t, err)
	foreign, err := repos.Tasks.Create(ctx, task.Task{ProcessID: b.ID, ParentID: task.ParentRef(root.ID), Name: "Foreign"})
	require.NoError(t, err)

	require.ErrorIs(t, repos.Processes.Delete(ctx, a.ID), integrity.ErrReferenced)

	foreign.ParentID = nil
	_, err = repos.Tasks.Update(ctx, foreign)
	require.NoError(t, err)
	require.NoError(t, repos.Processes.Delete(ctx, a.ID))

	left, err := repos.Tasks.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), left)
	require.ErrorIs(t, repos.Processes.Delete(ctx, a.ID), process.ErrNotFound)
}
