package services

import (
	"context"
	"fmt"
	"time"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/engine"
)

const CodeDanglingAssociation = "DANGLING_ASSOCIATION"

type CheckReport struct {
	Tasks    int              `json:"tasks"`
	Findings []engine.Finding `json:"findings"`
}

// Errors counts findings of error severity.
func (r CheckReport) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == engine.SeverityError {
			n++
		}
	}
	return n
}

// CheckService audits a store that may have been written by something other
// than the services, e.g. a restored backup or a manual SQL fix.
type CheckService struct {
	repos Repositories
}

func NewCheckService(repos Repositories) *CheckService {
	return &CheckService{repos: repos}
}

func (s *CheckService) Run(ctx context.Context) (CheckReport, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (CheckReport, error) {
		tasks, err := s.repos.Tasks.GetAll(txCtx, &task.FindParams{})
		if err != nil {
			return CheckReport{}, err
		}
		nodes := make([]engine.Node, len(tasks))
		for i, t := range tasks {
			nodes[i] = engine.Node{ID: t.ID, ProcessID: t.ProcessID, ParentID: t.ParentID}
		}
		findings := engine.Verify(nodes)

		for _, t := range tasks {
			dangling, err := s.danglingLinks(txCtx, t.ID)
			if err != nil {
				return CheckReport{}, err
			}
			findings = append(findings, dangling...)
		}
		if findings == nil {
			findings = []engine.Finding{}
		}
		return CheckReport{Tasks: len(tasks), Findings: findings}, nil
	})
	return out, finish("check.run", start, err)
}

func (s *CheckService) danglingLinks(ctx context.Context, taskID int64) ([]engine.Finding, error) {
	var out []engine.Finding
	report := func(kind string, id int64) {
		out = append(out, engine.Finding{
			TaskID:   taskID,
			Code:     CodeDanglingAssociation,
			Severity: engine.SeverityError,
			Message:  fmt.Sprintf("%s %d does not exist", kind, id),
		})
	}

	employeeIDs, err := s.repos.Tasks.EmployeeIDs(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if len(employeeIDs) > 0 {
		found, err := s.repos.Employees.GetByIDs(ctx, employeeIDs)
		if err != nil {
			return nil, err
		}
		have := make(map[int64]struct{}, len(found))
		for _, e := range found {
			have[e.ID] = struct{}{}
		}
		for _, id := range employeeIDs {
			if _, ok := have[id]; !ok {
				report("employee", id)
			}
		}
	}

	for _, set := range []struct {
		kind catalog.Kind
		ids  func(context.Context, int64) ([]int64, error)
	}{
		{catalog.KindSkill, s.repos.Tasks.SkillIDs},
		{catalog.KindDepartment, s.repos.Tasks.DepartmentIDs},
	} {
		ids, err := set.ids(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}
		missing, err := s.repos.Catalog.Missing(ctx, set.kind, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range missing {
			report(string(set.kind), id)
		}
	}
	return out, nil
}
