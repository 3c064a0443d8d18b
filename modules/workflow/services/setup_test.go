package services_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/infrastructure/memory"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/eventbus"
)

type fixture struct {
	ctx       context.Context
	bus       eventbus.EventBus
	tasks     *services.TaskService
	employees *services.EmployeeService
	processes *services.ProcessService
	catalog   *services.CatalogService
	check     *services.CheckService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, services.DefaultTaskOptions())
}

func newFixtureWith(t *testing.T, opts services.TaskOptions) *fixture {
	t.Helper()
	repos := memory.New().Repositories()
	bus := eventbus.NewEventPublisher(nil)
	return &fixture{
		ctx:       context.Background(),
		bus:       bus,
		tasks:     services.NewTaskService(repos, bus, opts),
		employees: services.NewEmployeeService(repos, bus),
		processes: services.NewProcessService(repos, bus),
		catalog:   services.NewCatalogService(repos),
		check:     services.NewCheckService(repos),
	}
}

func (f *fixture) process(t *testing.T, name string) int64 {
	t.Helper()
	p, err := f.processes.Create(f.ctx, process.Process{Name: name})
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) task(t *testing.T, processID int64, parentID *int64, name string) int64 {
	t.Helper()
	created, err := f.tasks.Create(f.ctx, processID, parentID, &task.Draft{Name: name})
	require.NoError(t, err)
	return created.ID
}

func (f *fixture) entry(t *testing.T, kind catalog.Kind, name string) int64 {
	t.Helper()
	e, err := f.catalog.Create(f.ctx, kind, name)
	require.NoError(t, err)
	return e.ID
}

func (f *fixture) employee(t *testing.T, first, last string) int64 {
	t.Helper()
	e, err := f.employees.Create(f.ctx, services.EmployeeDraft{FirstName: first, LastName: last})
	require.NoError(t, err)
	return e.ID
}

func (f *fixture) get(t *testing.T, id int64) task.Details {
	t.Helper()
	d, err := f.tasks.GetByID(f.ctx, id)
	require.NoError(t, err)
	return d
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	all, err := f.tasks.GetAll(f.ctx, &task.FindParams{})
	require.NoError(t, err)
	return len(all)
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	se := services.AsServiceError(err)
	require.Equal(t, code, se.Code, se.Error())
	require.Equal(t, status, se.Status)
}

func ref(id int64) *int64 {
	return &id
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
