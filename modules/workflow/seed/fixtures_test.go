package seed_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proseed/proseed/modules/workflow"
	"github.com/proseed/proseed/modules/workflow/infrastructure/memory"
	"github.com/proseed/proseed/modules/workflow/seed"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
	"github.com/proseed/proseed/pkg/eventbus"
)

const fixturesYAML = `
roles: [Developer]
skills: [Go, SQL]
departments: [Engineering]
processes:
  - name: Release
    tasks:
      - name: Build
        skills: [Go]
        subTasks:
          - name: Compile
          - name: Test
            departments: [Engineering]
      - name: Ship
employees:
  - firstName: Ada
    role: Developer
    department: Engineering
    skills: [Go, SQL]
    tasks: [Compile, Ship]
`

func newApp(t *testing.T) application.Application {
	t.Helper()
	app := application.New(&application.ApplicationOptions{EventBus: eventbus.NewEventPublisher(nil)})
	module := workflow.NewModule(&workflow.ModuleOptions{
		Repositories: memory.New().Repositories(),
		Tasks:        services.DefaultTaskOptions(),
		Backend:      "memory",
	})
	require.NoError(t, module.Register(app))
	return app
}

func TestSeed_LoadsFixturesThroughServices(t *testing.T) {
	app := newApp(t)
	ctx := context.Background()

	fixtures, err := seed.Load(strings.NewReader(fixturesYAML))
	require.NoError(t, err)

	seeder := application.NewSeeder()
	report := seed.Register(seeder, fixtures)
	require.NoError(t, seeder.Seed(ctx, app))

	require.Equal(t, seed.Report{Entries: 4, Processes: 1, Tasks: 4, Employees: 1, Assignments: 2}, *report)

	tasks := app.Service(services.TaskService{}).(*services.TaskService)
	roots, err := tasks.Search(ctx, services.SearchParams{RootsOnly: true})
	require.NoError(t, err)
	require.Len(t, roots, 2)

	build, err := tasks.Search(ctx, services.SearchParams{Q: "Build"})
	require.NoError(t, err)
	require.NotEmpty(t, build)
	details, err := tasks.GetByID(ctx, build[0].ID)
	require.NoError(t, err)
	require.Len(t, details.ChildIDs, 2)
	require.Len(t, details.SkillIDs, 1)

	employees := app.Service(services.EmployeeService{}).(*services.EmployeeService)
	all, err := employees.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assigned, err := employees.Tasks(ctx, all[0].ID)
	require.NoError(t, err)
	require.Len(t, assigned, 2)
}

func TestSeed_UnknownReference(t *testing.T) {
	app := newApp(t)
	fixtures, err := seed.Load(strings.NewReader(`
processes:
  - name: P
    tasks:
      - name: T
        skills: [Rust]
`))
	require.NoError(t, err)

	seeder := application.NewSeeder()
	seed.Register(seeder, fixtures)
	err = seeder.Seed(context.Background(), app)
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown skill "Rust"`)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := seed.Load(strings.NewReader("teams: [a]\n"))
	require.Error(t, err)
}
