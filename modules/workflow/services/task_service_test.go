package services_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/services"
)

func TestTaskService_Scenario(t *testing.T) {
	f := newFixture(t)
	p1 := f.process(t, "P1")
	a := f.task(t, p1, nil, "A")
	b := f.task(t, p1, ref(a), "B")

	_, err := f.tasks.Update(f.ctx, b, &task.Draft{Name: "B", SubTasks: []*task.Draft{{ID: ref(a)}}})
	requireCode(t, err, http.StatusBadRequest, services.CodeTaskCycle)
	require.Equal(t, services.KindStructuralViolation, services.AsServiceError(err).Kind)

	err = f.tasks.Delete(f.ctx, a)
	requireCode(t, err, http.StatusBadRequest, services.CodeHasSubtasks)

	_, err = f.tasks.Update(f.ctx, b, &task.Draft{Name: "B", Parent: task.MoveToRoot()})
	require.NoError(t, err)
	require.True(t, f.get(t, b).IsRoot())

	require.NoError(t, f.tasks.Delete(f.ctx, a))
	_, err = f.tasks.GetByID(f.ctx, a)
	requireCode(t, err, http.StatusNotFound, services.CodeTaskNotFound)
}

func TestTaskService_CreateRejectsSelfReferencingPayload(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")

	root := &task.Draft{Name: "root"}
	child := &task.Draft{Name: "child"}
	grandchild := &task.Draft{Name: "grandchild", SubTasks: []*task.Draft{root}}
	child.SubTasks = []*task.Draft{grandchild}
	root.SubTasks = []*task.Draft{child}

	_, err := f.tasks.Create(f.ctx, p, nil, root)
	requireCode(t, err, http.StatusBadRequest, services.CodeTaskCycle)
	require.Zero(t, f.count(t))
}

func TestTaskService_CreateNested(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	skill := f.entry(t, catalog.KindSkill, "go")
	e := f.employee(t, "Ada", "Lovelace")

	created, err := f.tasks.Create(f.ctx, p, nil, &task.Draft{
		Name: "root",
		SubTasks: []*task.Draft{
			{Name: "left", EmployeeIDs: []int64{e}, SubTasks: []*task.Draft{{Name: "leaf"}}},
			{Name: "right", SkillIDs: []int64{skill}},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.ChildIDs, 2)
	require.Equal(t, 4, f.count(t))

	left := f.get(t, created.ChildIDs[0])
	require.Equal(t, "left", left.Name)
	require.Equal(t, p, left.ProcessID)
	require.Equal(t, []int64{e}, left.EmployeeIDs)
	require.Len(t, left.ChildIDs, 1)
	require.Equal(t, []int64{skill}, f.get(t, created.ChildIDs[1]).SkillIDs)
}

func TestTaskService_CreateErrors(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")

	t.Run("missing process is a bad request", func(t *testing.T) {
		_, err := f.tasks.Create(f.ctx, 999, nil, &task.Draft{Name: "x"})
		requireCode(t, err, http.StatusBadRequest, services.CodeProcessNotFound)
		require.Equal(t, services.KindNotFound, services.AsServiceError(err).Kind)
	})

	t.Run("missing parent", func(t *testing.T) {
		_, err := f.tasks.Create(f.ctx, p, ref(999), &task.Draft{Name: "x"})
		requireCode(t, err, http.StatusNotFound, services.CodeParentNotFound)
	})

	t.Run("parent from payload", func(t *testing.T) {
		created, err := f.tasks.Create(f.ctx, p, nil, &task.Draft{Name: "x", Parent: task.MoveUnder(b)})
		require.NoError(t, err)
		require.True(t, created.HasParent(b))
	})

	t.Run("root with id", func(t *testing.T) {
		_, err := f.tasks.Create(f.ctx, p, nil, &task.Draft{ID: ref(a), Name: "x"})
		requireCode(t, err, http.StatusBadRequest, services.CodeInvalidDraft)
	})

	t.Run("reattaching an ancestor of the parent", func(t *testing.T) {
		before := f.count(t)
		_, err := f.tasks.Create(f.ctx, p, ref(b), &task.Draft{Name: "x", SubTasks: []*task.Draft{{ID: ref(a)}}})
		requireCode(t, err, http.StatusBadRequest, services.CodeTaskCycle)
		require.Equal(t, before, f.count(t))
	})

	t.Run("same existing task twice", func(t *testing.T) {
		_, err := f.tasks.Create(f.ctx, p, nil, &task.Draft{Name: "x", SubTasks: []*task.Draft{{ID: ref(b)}, {ID: ref(b)}}})
		requireCode(t, err, http.StatusBadRequest, services.CodeDuplicateNode)
	})

	t.Run("unknown subtask", func(t *testing.T) {
		_, err := f.tasks.Create(f.ctx, p, nil, &task.Draft{Name: "x", SubTasks: []*task.Draft{{ID: ref(999)}}})
		requireCode(t, err, http.StatusNotFound, services.CodeTaskNotFound)
	})

	t.Run("unknown employee", func(t *testing.T) {
		_, err := f.tasks.Create(f.ctx, p, nil, &task.Draft{Name: "x", EmployeeIDs: []int64{42}})
		requireCode(t, err, http.StatusNotFound, services.CodeEmployeeNotFound)
	})
}

func TestTaskService_CreateReattachesExisting(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	loose := f.task(t, p, nil, "loose")

	created, err := f.tasks.Create(f.ctx, p, nil, &task.Draft{Name: "root", SubTasks: []*task.Draft{{ID: ref(loose)}}})
	require.NoError(t, err)
	require.Equal(t, []int64{loose}, created.ChildIDs)
	require.True(t, f.get(t, loose).HasParent(created.ID))
}

func TestTaskService_UpdateAncestorRejected(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")
	c := f.task(t, p, ref(b), "C")

	t.Run("deep descendant as parent", func(t *testing.T) {
		_, err := f.tasks.Update(f.ctx, a, &task.Draft{Name: "A", Parent: task.MoveUnder(c)})
		requireCode(t, err, http.StatusBadRequest, services.CodeTaskCycle)
	})

	t.Run("self as parent", func(t *testing.T) {
		_, err := f.tasks.Update(f.ctx, a, &task.Draft{Name: "A", Parent: task.MoveUnder(a)})
		requireCode(t, err, http.StatusBadRequest, services.CodeTaskCycle)
	})

	t.Run("self as subtask", func(t *testing.T) {
		_, err := f.tasks.Update(f.ctx, a, &task.Draft{Name: "A", SubTasks: []*task.Draft{{ID: ref(a)}}})
		requireCode(t, err, http.StatusBadRequest, services.CodeTaskCycle)
	})

	require.True(t, f.get(t, a).IsRoot())
	require.True(t, f.get(t, c).HasParent(b))
}

func TestTaskService_UpdateScalarsAndParentStates(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")

	done := true
	updated, err := f.tasks.Update(f.ctx, b, &task.Draft{Name: "B2", Description: "d", Completed: &done})
	require.NoError(t, err)
	require.Equal(t, "B2", updated.Name)
	require.Equal(t, "d", updated.Description)
	require.True(t, updated.Completed)
	require.True(t, updated.HasParent(a), "absent parent keeps the parent")

	updated, err = f.tasks.Update(f.ctx, b, &task.Draft{Name: "B2"})
	require.NoError(t, err)
	require.True(t, updated.Completed, "absent completion keeps the stored value")

	_, err = f.tasks.Update(f.ctx, 999, &task.Draft{Name: "x"})
	requireCode(t, err, http.StatusNotFound, services.CodeTaskNotFound)

	_, err = f.tasks.Update(f.ctx, b, &task.Draft{Name: "x", Parent: task.MoveUnder(999)})
	requireCode(t, err, http.StatusNotFound, services.CodeParentNotFound)
}

func TestTaskService_UpdateDetachesOmittedChildren(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")
	c := f.task(t, p, ref(a), "C")

	updated, err := f.tasks.Update(f.ctx, a, &task.Draft{
		Name:     "A",
		SubTasks: []*task.Draft{{ID: ref(b)}, {Name: "N"}},
	})
	require.NoError(t, err)
	require.Len(t, updated.ChildIDs, 2)
	require.Contains(t, updated.ChildIDs, b)
	require.NotContains(t, updated.ChildIDs, c)

	detached := f.get(t, c)
	require.True(t, detached.IsRoot())
	require.Equal(t, "C", detached.Name)

	for _, id := range updated.ChildIDs {
		if id != b {
			n := f.get(t, id)
			require.Equal(t, "N", n.Name)
			require.Equal(t, p, n.ProcessID)
		}
	}

	updated, err = f.tasks.Update(f.ctx, a, &task.Draft{Name: "A", SubTasks: []*task.Draft{}})
	require.NoError(t, err)
	require.Empty(t, updated.ChildIDs)
	require.Equal(t, 4, f.count(t), "omitted children are never deleted")
}

func TestTaskService_UpdateNilSubtasksKeepsChildren(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")

	updated, err := f.tasks.Update(f.ctx, a, &task.Draft{Name: "A"})
	require.NoError(t, err)
	require.Equal(t, []int64{b}, updated.ChildIDs)
}

func TestTaskService_ReparentCascadesProcess(t *testing.T) {
	f := newFixture(t)
	p1 := f.process(t, "P1")
	p2 := f.process(t, "P2")
	a := f.task(t, p1, nil, "A")
	c := f.task(t, p2, nil, "C")
	d := f.task(t, p2, ref(c), "D")

	moved, err := f.tasks.Update(f.ctx, c, &task.Draft{Name: "C", Parent: task.MoveUnder(a)})
	require.NoError(t, err)
	require.Equal(t, p1, moved.ProcessID)
	require.Equal(t, p1, f.get(t, d).ProcessID)

	// An explicit process wins over the new parent's.
	moved, err = f.tasks.Update(f.ctx, c, &task.Draft{Name: "C", Parent: task.MoveToRoot(), ProcessID: ref(p2)})
	require.NoError(t, err)
	require.Equal(t, p2, moved.ProcessID)
	require.Equal(t, p2, f.get(t, d).ProcessID)
}

func TestTaskService_ReparentWithoutCascade(t *testing.T) {
	opts := services.DefaultTaskOptions()
	opts.CascadeProcessOnReparent = false
	f := newFixtureWith(t, opts)
	p1 := f.process(t, "P1")
	p2 := f.process(t, "P2")
	a := f.task(t, p1, nil, "A")
	c := f.task(t, p2, nil, "C")

	moved, err := f.tasks.Update(f.ctx, c, &task.Draft{Name: "C", Parent: task.MoveUnder(a)})
	require.NoError(t, err)
	require.Equal(t, p2, moved.ProcessID)
	require.True(t, moved.HasParent(a))

	report, err := f.check.Run(f.ctx)
	require.NoError(t, err)
	require.Zero(t, report.Errors())
	require.Len(t, report.Findings, 1, "cross-process parent is a warning")
}

func TestTaskService_CreateUnderForeignParent(t *testing.T) {
	f := newFixture(t)
	p1 := f.process(t, "P1")
	p2 := f.process(t, "P2")
	a := f.task(t, p1, nil, "A")

	created, err := f.tasks.Create(f.ctx, p2, ref(a), &task.Draft{
		Name:     "C",
		SubTasks: []*task.Draft{{Name: "D"}},
	})
	require.NoError(t, err)
	require.Equal(t, p1, created.ProcessID)
	require.Len(t, created.ChildIDs, 1)
	require.Equal(t, p1, f.get(t, created.ChildIDs[0]).ProcessID)

	report, err := f.check.Run(f.ctx)
	require.NoError(t, err)
	require.Empty(t, report.Findings)
}

func TestTaskService_CreateUnderForeignParentWithoutCascade(t *testing.T) {
	opts := services.DefaultTaskOptions()
	opts.CascadeProcessOnReparent = false
	f := newFixtureWith(t, opts)
	p1 := f.process(t, "P1")
	p2 := f.process(t, "P2")
	a := f.task(t, p1, nil, "A")

	_, err := f.tasks.Create(f.ctx, p2, ref(a), &task.Draft{Name: "C"})
	requireCode(t, err, http.StatusBadRequest, services.CodeProcessMismatch)
	require.Equal(t, 1, f.count(t))

	created, err := f.tasks.Create(f.ctx, p1, ref(a), &task.Draft{Name: "C"})
	require.NoError(t, err)
	require.True(t, created.HasParent(a))
}

func TestTaskService_VersionConflict(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")

	stale := f.get(t, a).Version
	_, err := f.tasks.Update(f.ctx, a, &task.Draft{Name: "first", Version: &stale})
	require.NoError(t, err)

	_, err = f.tasks.Update(f.ctx, a, &task.Draft{Name: "second", Version: &stale})
	requireCode(t, err, http.StatusConflict, services.CodeVersionConflict)
	require.Equal(t, "first", f.get(t, a).Name)
}

func TestTaskService_InsertBetween(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")
	sibling := f.task(t, p, ref(a), "S")
	versionBefore := f.get(t, a).Version

	c, err := f.tasks.InsertBetween(f.ctx, a, b, &task.Draft{Name: "C"})
	require.NoError(t, err)
	require.True(t, c.HasParent(a))
	require.Equal(t, p, c.ProcessID)
	require.Equal(t, []int64{b}, c.ChildIDs)
	require.True(t, f.get(t, b).HasParent(c.ID))

	parent := f.get(t, a)
	require.ElementsMatch(t, []int64{sibling, c.ID}, parent.ChildIDs)
	require.Greater(t, parent.Version, versionBefore)
}

func TestTaskService_InsertBetweenRejectsIndirectChild(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")
	c := f.task(t, p, ref(b), "C")
	before := f.get(t, c)

	_, err := f.tasks.InsertBetween(f.ctx, a, c, &task.Draft{Name: "X"})
	requireCode(t, err, http.StatusBadRequest, services.CodeNotDirectChild)
	require.Equal(t, 3, f.count(t))
	require.Equal(t, before, f.get(t, c))

	_, err = f.tasks.InsertBetween(f.ctx, 999, c, &task.Draft{Name: "X"})
	requireCode(t, err, http.StatusNotFound, services.CodeParentNotFound)
	_, err = f.tasks.InsertBetween(f.ctx, a, 999, &task.Draft{Name: "X"})
	requireCode(t, err, http.StatusNotFound, services.CodeChildNotFound)
	_, err = f.tasks.InsertBetween(f.ctx, a, b, &task.Draft{Name: "X", SubTasks: []*task.Draft{{Name: "Y"}}})
	requireCode(t, err, http.StatusBadRequest, services.CodeInvalidDraft)
}

func TestTaskService_DeleteGuard(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	skill := f.entry(t, catalog.KindSkill, "sql")
	e := f.employee(t, "Grace", "Hopper")
	a, err := f.tasks.Create(f.ctx, p, nil, &task.Draft{Name: "A", EmployeeIDs: []int64{e}, SkillIDs: []int64{skill}})
	require.NoError(t, err)
	b := f.task(t, p, ref(a.ID), "B")

	err = f.tasks.Delete(f.ctx, a.ID)
	requireCode(t, err, http.StatusBadRequest, services.CodeHasSubtasks)
	after := f.get(t, a.ID)
	require.Equal(t, []int64{b}, after.ChildIDs)
	require.Equal(t, []int64{e}, after.EmployeeIDs)
	require.Equal(t, []int64{skill}, after.SkillIDs)

	require.NoError(t, f.tasks.Delete(f.ctx, b))
	require.NoError(t, f.tasks.Delete(f.ctx, a.ID))
	requireCode(t, f.tasks.Delete(f.ctx, a.ID), http.StatusNotFound, services.CodeTaskNotFound)

	tasks, err := f.employees.Tasks(f.ctx, e)
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestTaskService_DeleteSubtree(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")
	f.task(t, p, ref(b), "C")
	f.task(t, p, ref(a), "D")
	other := f.task(t, p, nil, "other")

	var order []int64
	f.bus.Subscribe(func(ev *task.DeletedEvent) { order = append(order, ev.Task.ID) })

	n, err := f.tasks.DeleteSubtree(f.ctx, a)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, a, order[len(order)-1], "the root goes last")
	require.Equal(t, 1, f.count(t))
	f.get(t, other)

	_, err = f.tasks.DeleteSubtree(f.ctx, a)
	requireCode(t, err, http.StatusNotFound, services.CodeTaskNotFound)
}

func TestTaskService_Assignments(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	e := f.employee(t, "Alan", "Turing")

	require.NoError(t, f.tasks.AssignEmployee(f.ctx, a, e))
	require.NoError(t, f.tasks.AssignEmployee(f.ctx, a, e))
	require.Equal(t, []int64{e}, f.get(t, a).EmployeeIDs)

	details, err := f.employees.GetByID(f.ctx, e)
	require.NoError(t, err)
	require.Equal(t, []int64{a}, details.TaskIDs)

	require.NoError(t, f.tasks.RemoveEmployee(f.ctx, a, e))
	require.NoError(t, f.tasks.RemoveEmployee(f.ctx, a, e), "removing twice is a no-op")
	require.Empty(t, f.get(t, a).EmployeeIDs)

	requireCode(t, f.tasks.RemoveEmployee(f.ctx, 999, e), http.StatusNotFound, services.CodeTaskNotFound)
	requireCode(t, f.tasks.RemoveEmployee(f.ctx, a, 999), http.StatusNotFound, services.CodeEmployeeNotFound)
}

func TestTaskService_EmployeeTree(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")
	e := f.employee(t, "Edsger", "Dijkstra")
	require.NoError(t, f.tasks.AssignEmployee(f.ctx, b, e))

	tree, err := f.tasks.EmployeeTree(f.ctx, a)
	require.NoError(t, err)
	require.Equal(t, a, tree.TaskID)
	require.Empty(t, tree.AssignedEmployees)
	require.Len(t, tree.SubTasks, 1)
	require.Equal(t, b, tree.SubTasks[0].TaskID)
	require.Len(t, tree.SubTasks[0].AssignedEmployees, 1)
	require.Equal(t, "Edsger Dijkstra", tree.SubTasks[0].AssignedEmployees[0].FullName())
}

func TestTaskService_SetRequirements(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	skill := f.entry(t, catalog.KindSkill, "k8s")
	dept := f.entry(t, catalog.KindDepartment, "ops")

	out, err := f.tasks.SetRequirements(f.ctx, a, []int64{skill, skill}, []int64{dept})
	require.NoError(t, err)
	require.Equal(t, []int64{skill}, out.SkillIDs)
	require.Equal(t, []int64{dept}, out.DepartmentIDs)

	_, err = f.tasks.SetRequirements(f.ctx, a, []int64{999}, nil)
	requireCode(t, err, http.StatusNotFound, services.CodeSkillNotFound)
	_, err = f.tasks.SetRequirements(f.ctx, a, nil, []int64{999})
	requireCode(t, err, http.StatusNotFound, services.CodeDepartmentNotFound)

	out, err = f.tasks.SetRequirements(f.ctx, a, nil, []int64{})
	require.NoError(t, err)
	require.Equal(t, []int64{skill}, out.SkillIDs)
	require.Empty(t, out.DepartmentIDs)
}

func TestTaskService_Search(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	f.task(t, p, nil, "Write release notes")
	f.task(t, p, nil, "Review pull request")
	f.task(t, p, nil, "Release build")

	found, err := f.tasks.Search(f.ctx, services.SearchParams{Q: "release"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "Release build", found[0].Name, "closer matches rank first")

	found, err = f.tasks.Search(f.ctx, services.SearchParams{Q: "release", Limit: 1})
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = f.tasks.Search(f.ctx, services.SearchParams{ProcessID: ref(p), RootsOnly: true})
	require.NoError(t, err)
	require.Len(t, found, 3)
}

func TestTaskService_Patch(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "P")
	a := f.task(t, p, nil, "A")
	b := f.task(t, p, ref(a), "B")
	e := f.employee(t, "Barbara", "Liskov")

	patched, err := f.tasks.Patch(f.ctx, b, []byte(`[
		{"op": "replace", "path": "/name", "value": "B2"},
		{"op": "add", "path": "/employeeIds/-", "value": `+itoa(e)+`},
		{"op": "add", "path": "/parentTaskId", "value": null}
	]`))
	require.NoError(t, err)
	require.Equal(t, "B2", patched.Name)
	require.Equal(t, []int64{e}, patched.EmployeeIDs)
	require.True(t, patched.IsRoot())

	_, err = f.tasks.Patch(f.ctx, b, []byte(`{"op": "nope"}`))
	requireCode(t, err, http.StatusBadRequest, services.CodeInvalidRequest)

	_, err = f.tasks.Patch(f.ctx, b, []byte(`[{"op": "test", "path": "/name", "value": "other"}]`))
	requireCode(t, err, http.StatusBadRequest, services.CodeInvalidRequest)

	_, err = f.tasks.Patch(f.ctx, a, []byte(`[{"op": "add", "path": "/parentTaskId", "value": `+itoa(a)+`}]`))
	requireCode(t, err, http.StatusBadRequest, services.CodeTaskCycle)

	_, err = f.tasks.Patch(f.ctx, 999, []byte(`[]`))
	requireCode(t, err, http.StatusNotFound, services.CodeTaskNotFound)
}
