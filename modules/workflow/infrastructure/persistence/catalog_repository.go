package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence/models"
	"github.com/proseed/proseed/pkg/composables"
)

var catalogTables = map[catalog.Kind]string{
	catalog.KindRole:       "roles",
	catalog.KindSkill:      "skills",
	catalog.KindDepartment: "departments",
}

type CatalogRepository struct{}

func NewCatalogRepository() catalog.Repository {
	return &CatalogRepository{}
}

func tableOf(kind catalog.Kind) (string, error) {
	table, ok := catalogTables[kind]
	if !ok {
		return "", errors.Errorf("unknown catalog kind %q", kind)
	}
	return table, nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, kind catalog.Kind, id int64) (catalog.Entry, error) {
	table, err := tableOf(kind)
	if err != nil {
		return catalog.Entry{}, err
	}
	entries, err := r.queryEntries(ctx, kind, fmt.Sprintf(`SELECT id, name FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return catalog.Entry{}, err
	}
	if len(entries) == 0 {
		return catalog.Entry{}, catalog.ErrNotFound
	}
	return entries[0], nil
}

func (r *CatalogRepository) GetAll(ctx context.Context, kind catalog.Kind) ([]catalog.Entry, error) {
	table, err := tableOf(kind)
	if err != nil {
		return nil, err
	}
	return r.queryEntries(ctx, kind, fmt.Sprintf(`SELECT id, name FROM %s ORDER BY id`, table))
}

func (r *CatalogRepository) Missing(ctx context.Context, kind catalog.Kind, ids []int64) ([]int64, error) {
	table, err := tableOf(kind)
	if err != nil {
		return nil, err
	}
	found, err := queryIDs(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE id = ANY($1)`, table), ids)
	if err != nil {
		return nil, err
	}
	exists := make(map[int64]struct{}, len(found))
	for _, id := range found {
		exists[id] = struct{}{}
	}
	missing := []int64{}
	for _, id := range ids {
		if _, ok := exists[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *CatalogRepository) Create(ctx context.Context, e catalog.Entry) (catalog.Entry, error) {
	table, err := tableOf(e.Kind)
	if err != nil {
		return catalog.Entry{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return catalog.Entry{}, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) RETURNING id, name`, table)
	var m models.CatalogEntry
	if err := tx.QueryRow(ctx, query, e.Name).Scan(&m.ID, &m.Name); err != nil {
		return catalog.Entry{}, errors.Wrapf(mapPgError(err), "insert %s", e.Kind)
	}
	return toDomainEntry(e.Kind, &m), nil
}

func (r *CatalogRepository) Update(ctx context.Context, e catalog.Entry) (catalog.Entry, error) {
	table, err := tableOf(e.Kind)
	if err != nil {
		return catalog.Entry{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return catalog.Entry{}, err
	}
	query := fmt.Sprintf(`UPDATE %s SET name = $1 WHERE id = $2 RETURNING id, name`, table)
	var m models.CatalogEntry
	if err := tx.QueryRow(ctx, query, e.Name, e.ID).Scan(&m.ID, &m.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Entry{}, catalog.ErrNotFound
		}
		return catalog.Entry{}, errors.Wrapf(mapPgError(err), "update %s", e.Kind)
	}
	return toDomainEntry(e.Kind, &m), nil
}

func (r *CatalogRepository) Delete(ctx context.Context, kind catalog.Kind, id int64) error {
	table, err := tableOf(kind)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return errors.Wrapf(mapPgError(err), "delete %s", kind)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *CatalogRepository) queryEntries(ctx context.Context, kind catalog.Kind, query string, args ...interface{}) ([]catalog.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", kind)
	}
	defer rows.Close()

	out := []catalog.Entry{}
	for rows.Next() {
		var m models.CatalogEntry
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, errors.Wrapf(err, "scan %s", kind)
		}
		out = append(out, toDomainEntry(kind, &m))
	}
	return out, rows.Err()
}
