package engine

import (
	"fmt"
	"sort"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	CodeCycle           = "TASK_CYCLE"
	CodeDanglingParent  = "DANGLING_PARENT"
	CodeProcessMismatch = "PROCESS_MISMATCH"
)

// Node is the structural projection of a stored task.
type Node struct {
	ID        int64
	ProcessID int64
	ParentID  *int64
}

type Finding struct {
	TaskID   int64    `json:"task_id"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Verify checks that following parent from every node terminates within
// len(nodes) steps and that every parent exists. A child living in another
// process than its parent is reported as a warning since it can only result
// from an explicit reassignment.
func Verify(nodes []Node) []Finding {
	byID := make(map[int64]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	limit := len(nodes)

	var findings []Finding
	for _, n := range nodes {
		if n.ParentID == nil {
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok {
			findings = append(findings, Finding{
				TaskID:   n.ID,
				Code:     CodeDanglingParent,
				Severity: SeverityError,
				Message:  fmt.Sprintf("parent %d does not exist", *n.ParentID),
			})
			continue
		}
		if parent.ProcessID != n.ProcessID {
			findings = append(findings, Finding{
				TaskID:   n.ID,
				Code:     CodeProcessMismatch,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("process %d differs from parent %d process %d", n.ProcessID, parent.ID, parent.ProcessID),
			})
		}

		cur := n
		for steps := 0; cur.ParentID != nil; steps++ {
			if steps >= limit {
				findings = append(findings, Finding{
					TaskID:   n.ID,
					Code:     CodeCycle,
					Severity: SeverityError,
					Message:  fmt.Sprintf("parent chain exceeds %d steps", limit),
				})
				break
			}
			next, ok := byID[*cur.ParentID]
			if !ok {
				break
			}
			cur = next
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].TaskID != findings[j].TaskID {
			return findings[i].TaskID < findings[j].TaskID
		}
		return findings[i].Code < findings[j].Code
	})
	return findings
}
