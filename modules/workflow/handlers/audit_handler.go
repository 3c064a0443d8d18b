package handlers

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"

	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/presentation/controllers/dtos"
	"github.com/proseed/proseed/pkg/application"
)

// AuditHandler logs every task update as the JSON Patch that turns the
// previous representation into the new one.
type AuditHandler struct {
	logger *logrus.Logger
}

func RegisterAuditHandler(app application.Application) *AuditHandler {
	h := &AuditHandler{logger: app.Logger()}
	app.EventPublisher().Subscribe(h.onTaskUpdated)
	app.EventPublisher().Subscribe(h.onTaskDeleted)
	return h
}

func (h *AuditHandler) onTaskUpdated(event *task.UpdatedEvent) {
	patch, err := Diff(event.Before, event.Result)
	if err != nil {
		h.logger.WithError(err).WithField("task_id", event.Result.ID).Warn("audit: diff task")
		return
	}
	if len(patch) == 0 && len(event.Moved) == 0 {
		return
	}
	h.logger.WithFields(logrus.Fields{
		"task_id": event.Result.ID,
		"version": event.Result.Version,
		"moved":   event.Moved,
		"patch":   patch.String(),
	}).Info("task updated")
}

func (h *AuditHandler) onTaskDeleted(event *task.DeletedEvent) {
	h.logger.WithFields(logrus.Fields{
		"task_id":    event.Task.ID,
		"process_id": event.Task.ProcessID,
	}).Info("task deleted")
}

// Diff compares the API representations of two task states. Timestamps and
// the version stamp are left out.
func Diff(before, after task.Details) (jsondiff.Patch, error) {
	src, err := json.Marshal(dtos.TaskToResponse(before))
	if err != nil {
		return nil, err
	}
	dst, err := json.Marshal(dtos.TaskToResponse(after))
	if err != nil {
		return nil, err
	}
	return jsondiff.CompareJSON(src, dst, jsondiff.Ignores("/createdAt", "/updatedAt", "/version"))
}
