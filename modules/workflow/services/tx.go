package services

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
)

var tracer = otel.Tracer("proseed/workflow")

// Transactor runs fn atomically. Implementations join a transaction already
// bound to ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories is one backend's set of stores. All of them must observe the
// transaction opened by Tx.
type Repositories struct {
	Tx        Transactor
	Tasks     task.Repository
	Processes process.Repository
	Employees employee.Repository
	Catalog   catalog.Repository
}

func inTx[T any](ctx context.Context, tx Transactor, fn func(txCtx context.Context) (T, error)) (T, error) {
	var out T
	err := tx.InTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
