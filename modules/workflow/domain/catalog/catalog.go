// Package catalog holds the single-field reference entities: roles, skills
// and departments.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
)

type Kind string

const (
	KindRole       Kind = "role"
	KindSkill      Kind = "skill"
	KindDepartment Kind = "department"
)

var Kinds = []Kind{KindRole, KindSkill, KindDepartment}

var ErrNotFound = errors.New("catalog entry not found")

type Entry struct {
	ID   int64
	Kind Kind
	Name string
}

type Repository interface {
	GetByID(ctx context.Context, kind Kind, id int64) (Entry, error)
	GetAll(ctx context.Context, kind Kind) ([]Entry, error)
	// Missing returns the ids of kind that do not exist, in input order.
	Missing(ctx context.Context, kind Kind, ids []int64) ([]int64, error)
	Create(ctx context.Context, e Entry) (Entry, error)
	Update(ctx context.Context, e Entry) (Entry, error)
	Delete(ctx context.Context, kind Kind, id int64) error
}
