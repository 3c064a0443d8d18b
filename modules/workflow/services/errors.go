package services

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/integrity"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/engine"
)

type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindStructuralViolation ErrorKind = "structural_violation"
	KindConstraintViolation ErrorKind = "constraint_violation"
	KindInvalid             ErrorKind = "invalid"
	KindInternal            ErrorKind = "internal"
)

const (
	CodeTaskNotFound       = "TASK_NOT_FOUND"
	CodeParentNotFound     = "PARENT_NOT_FOUND"
	CodeChildNotFound      = "CHILD_NOT_FOUND"
	CodeProcessNotFound    = "PROCESS_NOT_FOUND"
	CodeEmployeeNotFound   = "EMPLOYEE_NOT_FOUND"
	CodeSkillNotFound      = "SKILL_NOT_FOUND"
	CodeRoleNotFound       = "ROLE_NOT_FOUND"
	CodeDepartmentNotFound = "DEPARTMENT_NOT_FOUND"
	CodeEntryNotFound      = "ENTRY_NOT_FOUND"

	CodeTaskCycle       = "TASK_CYCLE"
	CodeNotDirectChild  = "NOT_DIRECT_CHILD"
	CodeHasSubtasks     = "HAS_SUBTASKS"
	CodeDuplicateNode   = "DUPLICATE_NODE"
	CodeInvalidDraft    = "INVALID_DRAFT"
	CodeProcessMismatch = "PROCESS_MISMATCH"

	CodeConstraint      = "CONSTRAINT_VIOLATION"
	CodeVersionConflict = "VERSION_CONFLICT"

	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternal       = "INTERNAL"
)

type ServiceError struct {
	Status  int
	Kind    ErrorKind
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Kind: kindOf(status), Code: code, Message: message, Cause: cause}
}

func kindOf(status int) ErrorKind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConstraintViolation
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindInvalid
	}
	return KindInternal
}

func notFound(code, format string, args ...any) *ServiceError {
	return newServiceError(http.StatusNotFound, code, fmt.Sprintf(format, args...), nil)
}

func structural(code, message string, cause error) *ServiceError {
	e := newServiceError(http.StatusBadRequest, code, message, cause)
	e.Kind = KindStructuralViolation
	return e
}

func invalid(message string, cause error) *ServiceError {
	return newServiceError(http.StatusBadRequest, CodeInvalidRequest, message, cause)
}

// AsServiceError returns err as a *ServiceError, classifying repository
// sentinels and engine violations on the way. Anything unknown becomes an
// internal error.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return classify(err)
}

func classify(err error) *ServiceError {
	switch {
	case errors.Is(err, engine.ErrCycle):
		return structural(CodeTaskCycle, err.Error(), err)
	case errors.Is(err, engine.ErrDuplicateNode):
		return structural(CodeDuplicateNode, err.Error(), err)
	case errors.Is(err, engine.ErrCorruptTree):
		return newServiceError(http.StatusInternalServerError, CodeInternal, "stored task tree is corrupt", err)
	case errors.Is(err, task.ErrVersionConflict):
		return newServiceError(http.StatusConflict, CodeVersionConflict, "task was modified concurrently", err)
	case errors.Is(err, integrity.ErrReferenced):
		return newServiceError(http.StatusConflict, CodeConstraint, "row is still referenced", err)
	case errors.Is(err, integrity.ErrDuplicate):
		return newServiceError(http.StatusConflict, CodeConstraint, "name already exists", err)
	case errors.Is(err, task.ErrNotFound):
		return newServiceError(http.StatusNotFound, CodeTaskNotFound, "task not found", err)
	case errors.Is(err, process.ErrNotFound):
		return newServiceError(http.StatusNotFound, CodeProcessNotFound, "process not found", err)
	case errors.Is(err, employee.ErrNotFound):
		return newServiceError(http.StatusNotFound, CodeEmployeeNotFound, "employee not found", err)
	case errors.Is(err, catalog.ErrNotFound):
		return newServiceError(http.StatusNotFound, CodeEntryNotFound, "entry not found", err)
	}
	return newServiceError(http.StatusInternalServerError, CodeInternal, "internal error", err)
}

func catalogNotFound(kind catalog.Kind, id int64) *ServiceError {
	code := map[catalog.Kind]string{
		catalog.KindRole:       CodeRoleNotFound,
		catalog.KindSkill:      CodeSkillNotFound,
		catalog.KindDepartment: CodeDepartmentNotFound,
	}[kind]
	return notFound(code, "%s %d not found", kind, id)
}

// finish is the single exit point of every service operation: it classifies
// err, records metrics once and returns the classified error.
func finish(operation string, start time.Time, err error) error {
	if err == nil {
		observe(operation, start, "ok")
		return nil
	}
	se := AsServiceError(err)
	switch {
	case se.Kind == KindStructuralViolation:
		recordTreeViolation(se.Code)
	case se.Code == CodeVersionConflict:
		recordWriteConflict("version")
	case se.Kind == KindConstraintViolation:
		recordWriteConflict(constraintKind(se.Cause))
	}
	observe(operation, start, string(se.Kind))
	return se
}

func constraintKind(err error) string {
	switch {
	case errors.Is(err, integrity.ErrReferenced):
		return "foreign_key"
	case errors.Is(err, integrity.ErrDuplicate):
		return "unique"
	}
	return ""
}
