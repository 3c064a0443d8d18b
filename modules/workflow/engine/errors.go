package engine

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	ErrCycle         = errors.New("task would become its own ancestor")
	ErrDuplicateNode = errors.New("task appears more than once in payload")
	ErrCorruptTree   = errors.New("parent chain does not terminate")
)

// ViolationError names the task at which a structural check failed. TaskID
// is zero when the offending node has not been persisted yet.
type ViolationError struct {
	Err    error
	TaskID int64
}

func (e *ViolationError) Error() string {
	if e.TaskID == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: task %d", e.Err.Error(), e.TaskID)
}

func (e *ViolationError) Unwrap() error {
	return e.Err
}

func violation(err error, id *int64) error {
	v := &ViolationError{Err: err}
	if id != nil {
		v.TaskID = *id
	}
	return v
}
