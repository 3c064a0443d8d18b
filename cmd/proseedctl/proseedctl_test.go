package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/proseed/proseed/modules/workflow"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/infrastructure/memory"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
	"github.com/proseed/proseed/pkg/eventbus"
)

func newTestSession(t *testing.T) *session {
	t.Helper()
	app := application.New(&application.ApplicationOptions{EventBus: eventbus.NewEventPublisher(nil)})
	module := workflow.NewModule(&workflow.ModuleOptions{
		Repositories: memory.New().Repositories(),
		Tasks:        services.DefaultTaskOptions(),
	})
	require.NoError(t, module.Register(app))
	return &session{app: app, ctx: context.Background()}
}

func seedTree(t *testing.T, s *session) {
	t.Helper()
	processes := s.app.Service(services.ProcessService{}).(*services.ProcessService)
	tasks := s.app.Service(services.TaskService{}).(*services.TaskService)
	employees := s.app.Service(services.EmployeeService{}).(*services.EmployeeService)

	p, err := processes.Create(s.ctx, process.Process{Name: "Release"})
	require.NoError(t, err)
	root, err := tasks.Create(s.ctx, p.ID, nil, &task.Draft{
		Name:     "Build",
		SubTasks: []*task.Draft{{Name: "Compile"}},
	})
	require.NoError(t, err)
	e, err := employees.Create(s.ctx, services.EmployeeDraft{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	require.NoError(t, tasks.AssignEmployee(s.ctx, root.ID, e.ID))
}

func TestExitCode(t *testing.T) {
	require.Equal(t, exitOK, exitCode(nil))
	require.Equal(t, exitInternal, exitCode(errors.New("boom")))
	require.Equal(t, exitViolations, exitCode(errors.Wrap(withCode(exitViolations, errors.New("x")), "check")))
	require.Nil(t, withCode(exitInvalid, nil))
}

func TestCollectRows_DepthFirst(t *testing.T) {
	s := newTestSession(t)
	seedTree(t, s)

	rows, err := collectRows(s)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Build", rows[0].name)
	require.Equal(t, 0, rows[0].depth)
	require.Equal(t, []string{"Ada Lovelace"}, rows[0].employees)
	require.Equal(t, "Compile", rows[1].name)
	require.Equal(t, 1, rows[1].depth)
	require.Equal(t, "  Compile", rows[1].cells()[3])
}

func TestWriteCSV(t *testing.T) {
	s := newTestSession(t)
	seedTree(t, s)
	rows, err := collectRows(s)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tasks.csv")
	require.NoError(t, writeCSV(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, exportHeader, records[0])
	require.Equal(t, "Ada Lovelace", records[1][5])
}

func TestWriteXLSX(t *testing.T) {
	s := newTestSession(t)
	seedTree(t, s)
	rows, err := collectRows(s)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tasks.xlsx")
	require.NoError(t, writeXLSX(path, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows("Tasks")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "Release", got[1][0])
	require.Equal(t, "  Compile", got[2][3])
}
