package services_test

import (
	"net/http"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/services"
)

func TestEmployeeService_SetSkillsKeepsBothSides(t *testing.T) {
	f := newFixture(t)
	e := f.employee(t, "Ken", "Thompson")
	s1 := f.entry(t, catalog.KindSkill, "c")
	s2 := f.entry(t, catalog.KindSkill, "unix")

	details, err := f.employees.SetSkills(f.ctx, e, []int64{s1, s1})
	require.NoError(t, err)
	require.Equal(t, []int64{s1}, details.SkillIDs)
	holders, err := f.employees.BySkill(f.ctx, s1)
	require.NoError(t, err)
	require.Len(t, holders, 1)

	details, err = f.employees.SetSkills(f.ctx, e, []int64{})
	require.NoError(t, err)
	require.Empty(t, details.SkillIDs)
	holders, err = f.employees.BySkill(f.ctx, s1)
	require.NoError(t, err)
	require.Empty(t, holders)

	details, err = f.employees.AddSkills(f.ctx, e, []int64{s2})
	require.NoError(t, err)
	details, err = f.employees.AddSkills(f.ctx, e, []int64{s1, s2})
	require.NoError(t, err)
	require.Equal(t, []int64{s1, s2}, details.SkillIDs)
}

func TestEmployeeService_SetSkillsRollsBackOnUnknownSkill(t *testing.T) {
	f := newFixture(t)
	e := f.employee(t, "Rob", "Pike")
	s1 := f.entry(t, catalog.KindSkill, "go")
	_, err := f.employees.SetSkills(f.ctx, e, []int64{s1})
	require.NoError(t, err)

	_, err = f.employees.SetSkills(f.ctx, e, []int64{999})
	requireCode(t, err, http.StatusNotFound, services.CodeSkillNotFound)

	details, err := f.employees.GetByID(f.ctx, e)
	require.NoError(t, err)
	require.Equal(t, []int64{s1}, details.SkillIDs, "the detach before the failure is rolled back")

	_, err = f.employees.SetSkills(f.ctx, 999, []int64{s1})
	requireCode(t, err, http.StatusNotFound, services.CodeEmployeeNotFound)
}

func TestEmployeeService_SetRole(t *testing.T) {
	f := newFixture(t)
	e := f.employee(t, "Margaret", "Hamilton")
	lead := f.entry(t, catalog.KindRole, "lead")
	dev := f.entry(t, catalog.KindRole, "developer")

	var changes []*employee.RoleChangedEvent
	f.bus.Subscribe(func(ev *employee.RoleChangedEvent) { changes = append(changes, ev) })

	_, err := f.employees.SetRole(f.ctx, e, ref(lead))
	require.NoError(t, err)
	details, err := f.employees.SetRole(f.ctx, e, ref(dev))
	require.NoError(t, err)
	require.Equal(t, dev, *details.RoleID)

	leads, err := f.employees.ByRole(f.ctx, lead)
	require.NoError(t, err)
	require.Empty(t, leads, "the old role loses the employee")
	devs, err := f.employees.ByRole(f.ctx, dev)
	require.NoError(t, err)
	require.Len(t, devs, 1)

	details, err = f.employees.SetRole(f.ctx, e, nil)
	require.NoError(t, err)
	require.Nil(t, details.RoleID)
	require.Len(t, changes, 3)

	_, err = f.employees.SetRole(f.ctx, e, ref(999))
	requireCode(t, err, http.StatusNotFound, services.CodeRoleNotFound)
	_, err = f.employees.ByRole(f.ctx, 999)
	requireCode(t, err, http.StatusNotFound, services.CodeRoleNotFound)
}

func TestEmployeeService_DeleteDetachesEverywhere(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	skill := f.entry(t, catalog.KindSkill, "ops")
	e := f.employee(t, "Linus", "Torvalds")
	other := f.employee(t, "Dennis", "Ritchie")
	_, err := f.employees.SetSkills(f.ctx, e, []int64{skill})
	require.NoError(t, err)

	created, err := f.tasks.Create(f.ctx, p, nil, &task.Draft{Name: "T", EmployeeIDs: []int64{e, other}})
	require.NoError(t, err)

	require.NoError(t, f.employees.Delete(f.ctx, e))

	after := f.get(t, created.ID)
	require.Equal(t, []int64{other}, after.EmployeeIDs)
	holders, err := f.employees.BySkill(f.ctx, skill)
	require.NoError(t, err)
	require.Empty(t, holders)
	_, err = f.employees.GetByID(f.ctx, e)
	requireCode(t, err, http.StatusNotFound, services.CodeEmployeeNotFound)

	report, err := f.check.Run(f.ctx)
	require.NoError(t, err)
	require.Empty(t, report.Findings)

	// The skill is free again.
	require.NoError(t, f.catalog.Delete(f.ctx, catalog.KindSkill, skill))
}

func TestEmployeeService_CreateAndPatch(t *testing.T) {
	f := newFixture(t)
	dept := f.entry(t, catalog.KindDepartment, "R&D")
	role := f.entry(t, catalog.KindRole, "engineer")
	skill := f.entry(t, catalog.KindSkill, "rust")

	created, err := f.employees.Create(f.ctx, services.EmployeeDraft{
		FirstName:    "Niklaus",
		LastName:     "Wirth",
		RoleID:       ref(role),
		DepartmentID: ref(dept),
		SkillIDs:     []int64{skill},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{skill}, created.SkillIDs)

	_, err = f.employees.Create(f.ctx, services.EmployeeDraft{FirstName: "x", DepartmentID: ref(999)})
	requireCode(t, err, http.StatusNotFound, services.CodeDepartmentNotFound)

	last := "W."
	patched, err := f.employees.PatchPartial(f.ctx, created.ID, services.EmployeePatch{
		LastName: &last,
		RoleID:   services.SetTo[*int64](nil),
	})
	require.NoError(t, err)
	require.Equal(t, "Niklaus", patched.FirstName)
	require.Equal(t, "W.", patched.LastName)
	require.Nil(t, patched.RoleID)
	require.Equal(t, dept, *patched.DepartmentID)
	require.Equal(t, []int64{skill}, patched.SkillIDs)

	replaced, err := f.employees.Update(f.ctx, created.ID, services.EmployeeDraft{FirstName: "N"})
	require.NoError(t, err)
	require.Equal(t, "N", replaced.FullName())
	require.Nil(t, replaced.DepartmentID)
	require.Equal(t, []int64{skill}, replaced.SkillIDs, "nil skills keep the set")
}

func TestCatalogService_Constraints(t *testing.T) {
	f := newFixture(t)
	role := f.entry(t, catalog.KindRole, "admin")

	_, err := f.catalog.Create(f.ctx, catalog.KindRole, "admin")
	requireCode(t, err, http.StatusConflict, services.CodeConstraint)
	require.Equal(t, services.KindConstraintViolation, services.AsServiceError(err).Kind)

	_, err = f.employees.Create(f.ctx, services.EmployeeDraft{FirstName: "x", RoleID: ref(role)})
	require.NoError(t, err)
	err = f.catalog.Delete(f.ctx, catalog.KindRole, role)
	requireCode(t, err, http.StatusConflict, services.CodeConstraint)

	p := f.process(t, "P")
	skill := f.entry(t, catalog.KindSkill, "design")
	_, err = f.tasks.Create(f.ctx, p, nil, &task.Draft{Name: "T", SkillIDs: []int64{skill}})
	require.NoError(t, err)
	err = f.catalog.Delete(f.ctx, catalog.KindSkill, skill)
	requireCode(t, err, http.StatusConflict, services.CodeConstraint)

	renamed, err := f.catalog.Update(f.ctx, catalog.KindSkill, skill, "ux")
	require.NoError(t, err)
	require.Equal(t, "ux", renamed.Name)

	err = f.catalog.Delete(f.ctx, catalog.KindDepartment, 999)
	requireCode(t, err, http.StatusNotFound, services.CodeDepartmentNotFound)
}

func TestAsServiceError_CatalogNotFound(t *testing.T) {
	se := services.AsServiceError(errors.Wrap(catalog.ErrNotFound, "get entry"))
	require.Equal(t, http.StatusNotFound, se.Status)
	require.Equal(t, services.CodeEntryNotFound, se.Code)
	require.Equal(t, services.KindNotFound, se.Kind)
}

func TestProcessService_DeleteDetachesForeignChildren(t *testing.T) {
	f := newFixture(t)
	p1 := f.process(t, "P1")
	p2 := f.process(t, "P2")
	a := f.task(t, p1, nil, "A")
	f.task(t, p1, ref(a), "A1")
	foreign := f.task(t, p2, nil, "X")
	_, err := f.tasks.Update(f.ctx, foreign, &task.Draft{Name: "X", Parent: task.MoveUnder(a), ProcessID: ref(p2)})
	require.NoError(t, err)

	tree, err := f.processes.GetWithTasks(f.ctx, p1)
	require.NoError(t, err)
	require.Len(t, tree.Tasks, 1)
	require.Len(t, tree.Tasks[0].SubTasks, 1)

	require.NoError(t, f.processes.Delete(f.ctx, p1))

	kept := f.get(t, foreign)
	require.True(t, kept.IsRoot())
	require.Equal(t, p2, kept.ProcessID)
	require.Equal(t, 1, f.count(t))

	_, err = f.processes.GetByID(f.ctx, p1)
	requireCode(t, err, http.StatusNotFound, services.CodeProcessNotFound)
	requireCode(t, f.processes.Delete(f.ctx, p1), http.StatusNotFound, services.CodeProcessNotFound)
}

func TestCheckService_Clean(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	f.task(t, p, ref(a), "B")

	report, err := f.check.Run(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Tasks)
	require.Empty(t, report.Findings)
	require.Zero(t, report.Errors())
}
