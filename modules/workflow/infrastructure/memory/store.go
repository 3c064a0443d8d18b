// Package memory implements the workflow repositories over a transactional
// in-memory state. Foreign keys and unique names are enforced the way the
// Postgres schema enforces them, with the same integrity errors.
package memory

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/memdb"
	"github.com/proseed/proseed/pkg/snapshot"
)

const snapshotKey = "workflow/state"

type Store struct {
	db  *memdb.DB[*State]
	now func() time.Time
}

func New(opts ...memdb.Option[*State]) *Store {
	return &Store{
		db:  memdb.New(NewState(), opts...),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// NewPersistent restores the last committed state from snap and saves every
// commit back to it before the commit becomes visible.
func NewPersistent(ctx context.Context, snap *snapshot.Store) (*Store, error) {
	state := NewState()
	if err := snap.Load(ctx, snapshotKey, state); err != nil && !errors.Is(err, snapshot.ErrNotFound) {
		return nil, errors.Wrap(err, "load workflow snapshot")
	}
	state.normalize()

	s := New(memdb.WithCommitHook[*State](func(ctx context.Context, st *State) error {
		return snap.Save(ctx, snapshotKey, st)
	}))
	s.db.Replace(state)
	return s, nil
}

// InTx runs fn in a write transaction; nested calls join it.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.Update(ctx, fn)
}

func (s *Store) Tasks() task.Repository {
	return &TaskRepository{store: s}
}

func (s *Store) Processes() process.Repository {
	return &ProcessRepository{store: s}
}

func (s *Store) Employees() employee.Repository {
	return &EmployeeRepository{store: s}
}

func (s *Store) Catalog() catalog.Repository {
	return &CatalogRepository{store: s}
}

// Repositories exposes the store to the service layer.
func (s *Store) Repositories() services.Repositories {
	return services.Repositories{
		Tx:        s,
		Tasks:     s.Tasks(),
		Processes: s.Processes(),
		Employees: s.Employees(),
		Catalog:   s.Catalog(),
	}
}

func (s *Store) read(ctx context.Context, fn func(*State) error) error {
	return s.db.Read(ctx, fn)
}

func (s *Store) write(ctx context.Context, fn func(*State) error) error {
	return s.db.Write(ctx, fn)
}
