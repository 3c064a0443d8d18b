package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence/models"
	"github.com/proseed/proseed/pkg/composables"
)

const (
	processFindQuery   = `SELECT id, name, description, created_at, updated_at FROM processes`
	processInsertQuery = `INSERT INTO processes (name, description) VALUES ($1, $2)
		RETURNING id, name, description, created_at, updated_at`
	processUpdateQuery = `UPDATE processes SET name = $1, description = $2, updated_at = now() WHERE id = $3
		RETURNING id, name, description, created_at, updated_at`
)

type ProcessRepository struct{}

func NewProcessRepository() process.Repository {
	return &ProcessRepository{}
}

func (r *ProcessRepository) GetByID(ctx context.Context, id int64) (process.Process, error) {
	processes, err := r.queryProcesses(ctx, processFindQuery+" WHERE id = $1", id)
	if err != nil {
		return process.Process{}, err
	}
	if len(processes) == 0 {
		return process.Process{}, process.ErrNotFound
	}
	return processes[0], nil
}

func (r *ProcessRepository) GetAll(ctx context.Context) ([]process.Process, error) {
	return r.queryProcesses(ctx, processFindQuery+" ORDER BY id")
}

func (r *ProcessRepository) Create(ctx context.Context, p process.Process) (process.Process, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return process.Process{}, err
	}
	created, err := scanProcess(tx.QueryRow(ctx, processInsertQuery, p.Name, p.Description))
	if err != nil {
		return process.Process{}, errors.Wrap(err, "insert process")
	}
	return created, nil
}

func (r *ProcessRepository) Update(ctx context.Context, p process.Process) (process.Process, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return process.Process{}, err
	}
	updated, err := scanProcess(tx.QueryRow(ctx, processUpdateQuery, p.Name, p.Description, p.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return process.Process{}, process.ErrNotFound
		}
		return process.Process{}, errors.Wrap(err, "update process")
	}
	return updated, nil
}

// Delete relies on ON DELETE CASCADE for the owned tasks. The parent_id
// foreign key still fails the statement when a task of another process
// hangs under one of them.
func (r *ProcessRepository) Delete(ctx context.Context, id int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM processes WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(mapPgError(err), "delete process")
	}
	if tag.RowsAffected() == 0 {
		return process.ErrNotFound
	}
	return nil
}

func (r *ProcessRepository) queryProcesses(ctx context.Context, query string, args ...interface{}) ([]process.Process, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query processes")
	}
	defer rows.Close()

	out := []process.Process{}
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan process")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProcess(row pgx.Row) (process.Process, error) {
	var m models.Process
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return process.Process{}, err
	}
	return toDomainProcess(&m), nil
}
