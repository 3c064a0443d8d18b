// Package integrity holds the store-level constraint errors shared by every
// workflow repository.
package integrity

import "github.com/go-faster/errors"

var (
	// ErrReferenced is returned when a delete or write breaks a foreign key.
	ErrReferenced = errors.New("row is referenced by another row")
	// ErrDuplicate is returned when a write breaks a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate value")
)
