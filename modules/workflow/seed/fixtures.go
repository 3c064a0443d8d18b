// Package seed loads YAML fixtures through the workflow services, so every
// structural rule applies to seeded data too.
package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
)

type Fixtures struct {
	Roles       []string          `yaml:"roles"`
	Skills      []string          `yaml:"skills"`
	Departments []string          `yaml:"departments"`
	Processes   []ProcessFixture  `yaml:"processes"`
	Employees   []EmployeeFixture `yaml:"employees"`
}

type ProcessFixture struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Tasks       []TaskFixture `yaml:"tasks"`
}

type TaskFixture struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Completed   bool          `yaml:"completed"`
	Skills      []string      `yaml:"skills"`
	Departments []string      `yaml:"departments"`
	SubTasks    []TaskFixture `yaml:"subTasks"`
}

// EmployeeFixture references catalog entries and tasks by name. Task names
// are looked up across all seeded processes; the first match wins.
type EmployeeFixture struct {
	FirstName  string   `yaml:"firstName"`
	LastName   string   `yaml:"lastName"`
	Role       string   `yaml:"role"`
	Department string   `yaml:"department"`
	Skills     []string `yaml:"skills"`
	Tasks      []string `yaml:"tasks"`
}

func Load(r io.Reader) (*Fixtures, error) {
	f := &Fixtures{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		return nil, errors.Wrap(err, "decode fixtures")
	}
	return f, nil
}

// UnknownReferenceError reports a fixture naming an entry or task that is
// neither seeded nor already stored.
type UnknownReferenceError struct {
	Kind string
	Name string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

// Report counts what a seeding run created.
type Report struct {
	Entries     int `json:"entries"`
	Processes   int `json:"processes"`
	Tasks       int `json:"tasks"`
	Employees   int `json:"employees"`
	Assignments int `json:"assignments"`
}

type run struct {
	fixtures *Fixtures
	entries  map[catalog.Kind]map[string]int64
	tasks    map[string]int64
	report   Report
}

// Register adds the seeding steps for f to seeder. The returned report is
// filled in as the steps run.
func Register(seeder application.Seeder, f *Fixtures) *Report {
	r := &run{
		fixtures: f,
		entries:  map[catalog.Kind]map[string]int64{},
		tasks:    map[string]int64{},
	}
	seeder.Register(r.seedCatalog, r.seedProcesses, r.seedEmployees)
	return &r.report
}

func (r *run) seedCatalog(ctx context.Context, app application.Application) error {
	svc := app.Service(services.CatalogService{}).(*services.CatalogService)
	names := map[catalog.Kind][]string{
		catalog.KindRole:       r.fixtures.Roles,
		catalog.KindSkill:      r.fixtures.Skills,
		catalog.KindDepartment: r.fixtures.Departments,
	}
	for _, kind := range catalog.Kinds {
		existing, err := svc.GetAll(ctx, kind)
		if err != nil {
			return err
		}
		byName := make(map[string]int64, len(existing))
		for _, e := range existing {
			byName[e.Name] = e.ID
		}
		for _, name := range names[kind] {
			if _, ok := byName[name]; ok {
				continue
			}
			e, err := svc.Create(ctx, kind, name)
			if err != nil {
				return errors.Wrapf(err, "seed %s %q", kind, name)
			}
			byName[name] = e.ID
			r.report.Entries++
		}
		r.entries[kind] = byName
	}
	app.Logger().WithField("entries", r.report.Entries).Info("seeded catalog")
	return nil
}

func (r *run) seedProcesses(ctx context.Context, app application.Application) error {
	processes := app.Service(services.ProcessService{}).(*services.ProcessService)
	tasks := app.Service(services.TaskService{}).(*services.TaskService)
	for _, pf := range r.fixtures.Processes {
		p, err := processes.Create(ctx, process.Process{Name: pf.Name, Description: pf.Description})
		if err != nil {
			return errors.Wrapf(err, "seed process %q", pf.Name)
		}
		r.report.Processes++
		for _, tf := range pf.Tasks {
			if err := r.seedTask(ctx, tasks, p.ID, nil, tf); err != nil {
				return err
			}
		}
	}
	app.Logger().WithField("tasks", r.report.Tasks).Info("seeded processes")
	return nil
}

func (r *run) seedTask(ctx context.Context, svc *services.TaskService, processID int64, parentID *int64, tf TaskFixture) error {
	skills, err := r.lookup(catalog.KindSkill, tf.Skills)
	if err != nil {
		return err
	}
	departments, err := r.lookup(catalog.KindDepartment, tf.Departments)
	if err != nil {
		return err
	}
	completed := tf.Completed
	created, err := svc.Create(ctx, processID, parentID, &task.Draft{
		Name:          tf.Name,
		Description:   tf.Description,
		Completed:     &completed,
		SkillIDs:      skills,
		DepartmentIDs: departments,
	})
	if err != nil {
		return errors.Wrapf(err, "seed task %q", tf.Name)
	}
	r.report.Tasks++
	if _, ok := r.tasks[tf.Name]; !ok {
		r.tasks[tf.Name] = created.ID
	}
	for _, sub := range tf.SubTasks {
		if err := r.seedTask(ctx, svc, processID, &created.ID, sub); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) seedEmployees(ctx context.Context, app application.Application) error {
	employees := app.Service(services.EmployeeService{}).(*services.EmployeeService)
	tasks := app.Service(services.TaskService{}).(*services.TaskService)
	for _, ef := range r.fixtures.Employees {
		skills, err := r.lookup(catalog.KindSkill, ef.Skills)
		if err != nil {
			return err
		}
		role, err := r.lookupOne(catalog.KindRole, ef.Role)
		if err != nil {
			return err
		}
		department, err := r.lookupOne(catalog.KindDepartment, ef.Department)
		if err != nil {
			return err
		}
		e, err := employees.Create(ctx, services.EmployeeDraft{
			FirstName:    ef.FirstName,
			LastName:     ef.LastName,
			RoleID:       role,
			DepartmentID: department,
			SkillIDs:     skills,
		})
		if err != nil {
			return errors.Wrapf(err, "seed employee %q", ef.FirstName)
		}
		r.report.Employees++
		for _, name := range ef.Tasks {
			taskID, ok := r.tasks[name]
			if !ok {
				return errors.Wrapf(&UnknownReferenceError{Kind: "task", Name: name}, "employee %q", ef.FirstName)
			}
			if err := tasks.AssignEmployee(ctx, taskID, e.ID); err != nil {
				return errors.Wrapf(err, "assign %q to %q", ef.FirstName, name)
			}
			r.report.Assignments++
		}
	}
	app.Logger().WithField("employees", r.report.Employees).Info("seeded employees")
	return nil
}

func (r *run) lookup(kind catalog.Kind, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, ok := r.entries[kind][name]
		if !ok {
			return nil, &UnknownReferenceError{Kind: string(kind), Name: name}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *run) lookupOne(kind catalog.Kind, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	ids, err := r.lookup(kind, []string{name})
	if err != nil {
		return nil, err
	}
	return &ids[0], nil
}
