// Package persistence implements the workflow repositories on Postgres. Every
// query runs on the transaction bound to the context, or on the pool when
// there is none.
package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proseed/proseed/pkg/composables"
)

type Transactor struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := composables.UsePool(ctx); err != nil {
		ctx = composables.WithPool(ctx, t.pool)
	}
	return composables.InTx(ctx, fn)
}
