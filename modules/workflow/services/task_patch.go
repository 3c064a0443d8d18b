package services

import (
	"context"
	"encoding/json"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/pkg/constants"
)

// taskDocument is the JSON view of a task that RFC 6902 patches are applied
// to. Paths follow the API field names.
type taskDocument struct {
	Name          string  `json:"name" validate:"required,max=255"`
	Description   string  `json:"description"`
	Completed     bool    `json:"completed"`
	ProcessID     int64   `json:"processId" validate:"required,gt=0"`
	ParentTaskID  *int64  `json:"parentTaskId"`
	Version       int64   `json:"version"`
	EmployeeIDs   []int64 `json:"employeeIds"`
	SkillIDs      []int64 `json:"skillIds"`
	DepartmentIDs []int64 `json:"departmentIds"`
}

func documentOf(d task.Details) taskDocument {
	doc := taskDocument{
		Name:          d.Name,
		Description:   d.Description,
		Completed:     d.Completed,
		ProcessID:     d.ProcessID,
		ParentTaskID:  d.ParentID,
		Version:       d.Version,
		EmployeeIDs:   d.EmployeeIDs,
		SkillIDs:      d.SkillIDs,
		DepartmentIDs: d.DepartmentIDs,
	}
	for _, ids := range []*[]int64{&doc.EmployeeIDs, &doc.SkillIDs, &doc.DepartmentIDs} {
		if *ids == nil {
			*ids = []int64{}
		}
	}
	return doc
}

// draft turns the patched document back into an update. Only the fields
// that differ from before become structural changes, so an untouched
// processId does not block the process cascade of a reparent.
func (doc taskDocument) draft(before task.Details) *task.Draft {
	d := &task.Draft{
		Name:          doc.Name,
		Description:   doc.Description,
		Completed:     &doc.Completed,
		Version:       &doc.Version,
		EmployeeIDs:   doc.EmployeeIDs,
		SkillIDs:      doc.SkillIDs,
		DepartmentIDs: doc.DepartmentIDs,
	}
	if !task.SameParent(doc.ParentTaskID, before.ParentID) {
		d.Parent = task.ParentChange{Set: true, ID: doc.ParentTaskID}
	}
	if doc.ProcessID != before.ProcessID {
		d.ProcessID = &doc.ProcessID
	}
	return d
}

// Patch applies an RFC 6902 JSON Patch to the task document of id and
// stores the result through the regular update path.
func (s *TaskService) Patch(ctx context.Context, id int64, patch []byte) (task.Details, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Patch")
	defer span.End()
	start := time.Now()

	var ev *task.UpdatedEvent
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (task.Details, error) {
		t, err := s.getTask(txCtx, id, CodeTaskNotFound)
		if err != nil {
			return task.Details{}, err
		}
		before, err := s.details(txCtx, t)
		if err != nil {
			return task.Details{}, err
		}
		doc, err := applyTaskPatch(documentOf(before), patch)
		if err != nil {
			return task.Details{}, err
		}
		if ev, err = s.update(txCtx, id, doc.draft(before)); err != nil {
			return task.Details{}, err
		}
		return ev.Result, nil
	})
	if err = finish("task.patch", start, err); err != nil {
		return task.Details{}, err
	}
	s.publish(ev)
	return out, nil
}

func applyTaskPatch(doc taskDocument, patch []byte) (taskDocument, error) {
	decoded, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return taskDocument{}, invalid("malformed json patch", err)
	}
	original, err := json.Marshal(doc)
	if err != nil {
		return taskDocument{}, err
	}
	patched, err := decoded.Apply(original)
	if err != nil {
		return taskDocument{}, invalid("json patch could not be applied", err)
	}
	var out taskDocument
	if err := json.Unmarshal(patched, &out); err != nil {
		return taskDocument{}, invalid("patched task is not a valid document", err)
	}
	if err := constants.Validate.Struct(out); err != nil {
		return taskDocument{}, invalid("patched task is not a valid document", err)
	}
	return out, nil
}
