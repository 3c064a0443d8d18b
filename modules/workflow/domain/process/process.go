package process

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var ErrNotFound = errors.New("process not found")

type Process struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (Process, error)
	GetAll(ctx context.Context) ([]Process, error)
	Create(ctx context.Context, p Process) (Process, error)
	Update(ctx context.Context, p Process) (Process, error)
	// Delete removes the process and every task it owns.
	Delete(ctx context.Context, id int64) error
}

type CreatedEvent struct {
	Result Process
}

type DeletedEvent struct {
	Result       Process
	DeletedTasks int
}
