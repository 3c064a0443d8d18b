package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
)

// CatalogService handles roles, skills and departments. Deleting an entry
// still referenced by an employee or task is a constraint violation.
type CatalogService struct {
	repos Repositories
}

func NewCatalogService(repos Repositories) *CatalogService {
	return &CatalogService{repos: repos}
}

func (s *CatalogService) GetAll(ctx context.Context, kind catalog.Kind) ([]catalog.Entry, error) {
	start := time.Now()
	out, err := s.repos.Catalog.GetAll(ctx, kind)
	return out, finish(string(kind)+".list", start, err)
}

func (s *CatalogService) GetByID(ctx context.Context, kind catalog.Kind, id int64) (catalog.Entry, error) {
	start := time.Now()
	out, err := s.get(ctx, kind, id)
	return out, finish(string(kind)+".get", start, err)
}

func (s *CatalogService) Create(ctx context.Context, kind catalog.Kind, name string) (catalog.Entry, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (catalog.Entry, error) {
		return s.repos.Catalog.Create(txCtx, catalog.Entry{Kind: kind, Name: name})
	})
	return out, finish(string(kind)+".create", start, err)
}

func (s *CatalogService) Update(ctx context.Context, kind catalog.Kind, id int64, name string) (catalog.Entry, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (catalog.Entry, error) {
		e, err := s.get(txCtx, kind, id)
		if err != nil {
			return catalog.Entry{}, err
		}
		e.Name = name
		return s.repos.Catalog.Update(txCtx, e)
	})
	return out, finish(string(kind)+".update", start, err)
}

func (s *CatalogService) Delete(ctx context.Context, kind catalog.Kind, id int64) error {
	start := time.Now()
	_, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (struct{}, error) {
		if _, err := s.get(txCtx, kind, id); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.repos.Catalog.Delete(txCtx, kind, id)
	})
	return finish(string(kind)+".delete", start, err)
}

func (s *CatalogService) get(ctx context.Context, kind catalog.Kind, id int64) (catalog.Entry, error) {
	e, err := s.repos.Catalog.GetByID(ctx, kind, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return catalog.Entry{}, catalogNotFound(kind, id)
	}
	return e, err
}
