package task

type CreatedEvent struct {
	Result Details
}

type UpdatedEvent struct {
	Before Details
	Result Details
	// Moved lists the tasks other than Result whose parent or process changed.
	Moved []int64
}

type DeletedEvent struct {
	Task Task
}

type SplicedEvent struct {
	ParentID int64
	ChildID  int64
	Result   Details
}

type AssignmentEvent struct {
	TaskID     int64
	EmployeeID int64
	Assigned   bool
}
