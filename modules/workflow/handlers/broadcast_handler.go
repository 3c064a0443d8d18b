package handlers

import (
	"fmt"

	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/presentation/controllers/dtos"
	"github.com/proseed/proseed/pkg/application"
)

// Message is the frame written to websocket subscribers.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ProcessChannel is the channel carrying the events of one process.
func ProcessChannel(id int64) string {
	return fmt.Sprintf("process/%d", id)
}

// BroadcastHandler forwards domain events to websocket clients. Every event
// goes to the "all" channel; task and process events also go to the channel
// of their process.
type BroadcastHandler struct {
	hub application.Huber
}

func RegisterBroadcastHandler(app application.Application) *BroadcastHandler {
	h := &BroadcastHandler{hub: app.Websocket()}
	if h.hub == nil {
		return h
	}
	bus := app.EventPublisher()
	bus.Subscribe(h.onTaskCreated)
	bus.Subscribe(h.onTaskUpdated)
	bus.Subscribe(h.onTaskDeleted)
	bus.Subscribe(h.onTaskSpliced)
	bus.Subscribe(h.onAssignment)
	bus.Subscribe(h.onProcessCreated)
	bus.Subscribe(h.onProcessDeleted)
	bus.Subscribe(h.onEmployeeDeleted)
	return h
}

func (h *BroadcastHandler) send(processID int64, msg Message) {
	h.hub.Broadcast(application.ChannelAll, msg)
	if processID > 0 {
		h.hub.Broadcast(ProcessChannel(processID), msg)
	}
}

func (h *BroadcastHandler) onTaskCreated(event *task.CreatedEvent) {
	h.send(event.Result.ProcessID, Message{Type: "task.created", Payload: dtos.TaskToResponse(event.Result)})
}

func (h *BroadcastHandler) onTaskUpdated(event *task.UpdatedEvent) {
	h.send(event.Result.ProcessID, Message{Type: "task.updated", Payload: map[string]interface{}{
		"task":  dtos.TaskToResponse(event.Result),
		"moved": event.Moved,
	}})
	if event.Before.ProcessID != event.Result.ProcessID {
		h.hub.Broadcast(ProcessChannel(event.Before.ProcessID), Message{
			Type:    "task.moved",
			Payload: dtos.TaskToSummary(event.Result.Task),
		})
	}
}

func (h *BroadcastHandler) onTaskDeleted(event *task.DeletedEvent) {
	h.send(event.Task.ProcessID, Message{Type: "task.deleted", Payload: dtos.TaskToSummary(event.Task)})
}

func (h *BroadcastHandler) onTaskSpliced(event *task.SplicedEvent) {
	h.send(event.Result.ProcessID, Message{Type: "task.spliced", Payload: map[string]interface{}{
		"parentId": event.ParentID,
		"childId":  event.ChildID,
		"task":     dtos.TaskToResponse(event.Result),
	}})
}

func (h *BroadcastHandler) onAssignment(event *task.AssignmentEvent) {
	kind := "task.unassigned"
	if event.Assigned {
		kind = "task.assigned"
	}
	h.send(0, Message{Type: kind, Payload: map[string]int64{
		"taskId":     event.TaskID,
		"employeeId": event.EmployeeID,
	}})
}

func (h *BroadcastHandler) onProcessCreated(event *process.CreatedEvent) {
	h.send(event.Result.ID, Message{Type: "process.created", Payload: dtos.ProcessToResponse(event.Result)})
}

func (h *BroadcastHandler) onProcessDeleted(event *process.DeletedEvent) {
	h.send(event.Result.ID, Message{Type: "process.deleted", Payload: map[string]interface{}{
		"process":      dtos.ProcessToResponse(event.Result),
		"deletedTasks": event.DeletedTasks,
	}})
}

func (h *BroadcastHandler) onEmployeeDeleted(event *employee.DeletedEvent) {
	h.send(0, Message{Type: "employee.deleted", Payload: map[string]interface{}{
		"employee":     dtos.EmployeeToSummary(event.Result),
		"detachedFrom": event.DetachedFrom,
	}})
}
