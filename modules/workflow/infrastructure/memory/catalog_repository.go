package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/integrity"
)

type CatalogRepository struct {
	store *Store
}

func (r *CatalogRepository) GetByID(ctx context.Context, kind catalog.Kind, id int64) (catalog.Entry, error) {
	var out catalog.Entry
	err := r.store.read(ctx, func(s *State) error {
		e, ok := s.Catalog[kind][id]
		if !ok {
			return catalog.ErrNotFound
		}
		out = e
		return nil
	})
	return out, err
}

func (r *CatalogRepository) GetAll(ctx context.Context, kind catalog.Kind) ([]catalog.Entry, error) {
	out := []catalog.Entry{}
	err := r.store.read(ctx, func(s *State) error {
		for _, e := range s.Catalog[kind] {
			out = append(out, e)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b catalog.Entry) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func (r *CatalogRepository) Missing(ctx context.Context, kind catalog.Kind, ids []int64) ([]int64, error) {
	var out []int64
	err := r.store.read(ctx, func(s *State) error {
		exists := entryExists(s, kind)
		for _, id := range ids {
			if !exists(id) {
				out = append(out, id)
			}
		}
		return nil
	})
	return out, err
}

func (r *CatalogRepository) Create(ctx context.Context, e catalog.Entry) (catalog.Entry, error) {
	err := r.store.write(ctx, func(s *State) error {
		if err := checkUniqueName(s, e); err != nil {
			return err
		}
		e.ID = s.nextID(string(e.Kind))
		s.Catalog[e.Kind][e.ID] = e
		return nil
	})
	return e, err
}

func (r *CatalogRepository) Update(ctx context.Context, e catalog.Entry) (catalog.Entry, error) {
	err := r.store.write(ctx, func(s *State) error {
		if _, ok := s.Catalog[e.Kind][e.ID]; !ok {
			return catalog.ErrNotFound
		}
		if err := checkUniqueName(s, e); err != nil {
			return err
		}
		s.Catalog[e.Kind][e.ID] = e
		return nil
	})
	return e, err
}

// Delete refuses to remove an entry that an employee or task still points
// at.
func (r *CatalogRepository) Delete(ctx context.Context, kind catalog.Kind, id int64) error {
	return r.store.write(ctx, func(s *State) error {
		if _, ok := s.Catalog[kind][id]; !ok {
			return catalog.ErrNotFound
		}
		if referenced(s, kind, id) {
			return errors.Wrapf(integrity.ErrReferenced, "%s %d is in use", kind, id)
		}
		delete(s.Catalog[kind], id)
		return nil
	})
}

func referenced(s *State, kind catalog.Kind, id int64) bool {
	switch kind {
	case catalog.KindSkill:
		return s.EmployeeSkills.Referenced(id) || s.TaskSkills.Referenced(id)
	case catalog.KindDepartment:
		if s.TaskDepartments.Referenced(id) {
			return true
		}
		for _, e := range s.Employees {
			if e.DepartmentID != nil && *e.DepartmentID == id {
				return true
			}
		}
	case catalog.KindRole:
		for _, e := range s.Employees {
			if e.RoleID != nil && *e.RoleID == id {
				return true
			}
		}
	}
	return false
}

func checkUniqueName(s *State, e catalog.Entry) error {
	entries, ok := s.Catalog[e.Kind]
	if !ok {
		return errors.Errorf("unknown catalog kind %q", e.Kind)
	}
	for _, other := range entries {
		if other.ID != e.ID && strings.EqualFold(other.Name, e.Name) {
			return errors.Wrapf(integrity.ErrDuplicate, "%s %q already exists", e.Kind, e.Name)
		}
	}
	return nil
}

func entryExists(s *State, kind catalog.Kind) func(int64) bool {
	return func(id int64) bool {
		_, ok := s.Catalog[kind][id]
		return ok
	}
}
