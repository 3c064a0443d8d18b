// Package memdb is a transactional in-memory database over a user supplied
// state value. Writers are serialized; each write transaction works on a clone
// of the committed state and publishes it on commit, so readers always see a
// consistent snapshot and a failed transaction leaves no trace.
package memdb

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

var ErrReadOnly = errors.New("memdb: write inside a read-only transaction")

// State is cloned at the start of every write transaction. Committed states
// are never mutated again.
type State[S any] interface {
	Clone() S
}

// CommitHook runs after fn succeeds and before the new state is published.
// An error aborts the commit.
type CommitHook[S any] func(ctx context.Context, state S) error

type Option[S State[S]] func(*DB[S])

func WithCommitHook[S State[S]](hook CommitHook[S]) Option[S] {
	return func(db *DB[S]) {
		db.hooks = append(db.hooks, hook)
	}
}

type DB[S State[S]] struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   S
	hooks   []CommitHook[S]
}

type txKey struct {
	db any
}

type tx[S any] struct {
	state    S
	writable bool
}

func New[S State[S]](initial S, opts ...Option[S]) *DB[S] {
	db := &DB[S]{state: initial}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *DB[S]) current(ctx context.Context) (*tx[S], bool) {
	t, ok := ctx.Value(txKey{db: db}).(*tx[S])
	return t, ok
}

// Update runs fn in a write transaction. Nested calls join the outer one.
func (db *DB[S]) Update(ctx context.Context, fn func(ctx context.Context) error) error {
	if t, ok := db.current(ctx); ok {
		if !t.writable {
			return ErrReadOnly
		}
		return fn(ctx)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	db.mu.RLock()
	t := &tx[S]{state: db.state.Clone(), writable: true}
	db.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{db: db}, t)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, hook := range db.hooks {
		if err := hook(ctx, t.state); err != nil {
			return errors.Wrap(err, "memdb: commit hook")
		}
	}

	db.mu.Lock()
	db.state = t.state
	db.mu.Unlock()
	return nil
}

// View runs fn against the committed state without cloning it.
func (db *DB[S]) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := db.current(ctx); ok {
		return fn(ctx)
	}
	db.mu.RLock()
	t := &tx[S]{state: db.state}
	db.mu.RUnlock()
	return fn(context.WithValue(ctx, txKey{db: db}, t))
}

// Read hands fn the state visible to ctx, opening a view when ctx has none.
func (db *DB[S]) Read(ctx context.Context, fn func(S) error) error {
	return db.View(ctx, func(ctx context.Context) error {
		t, _ := db.current(ctx)
		return fn(t.state)
	})
}

// Write hands fn the mutable state of the transaction bound to ctx, opening
// a single-statement transaction when ctx has none.
func (db *DB[S]) Write(ctx context.Context, fn func(S) error) error {
	return db.Update(ctx, func(ctx context.Context) error {
		t, _ := db.current(ctx)
		return fn(t.state)
	})
}

// Snapshot returns the committed state. Callers must not mutate it.
func (db *DB[S]) Snapshot() S {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.state
}

// Replace swaps the committed state, e.g. after loading it from disk.
func (db *DB[S]) Replace(state S) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	db.mu.Lock()
	db.state = state
	db.mu.Unlock()
}
