package persistence

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proseed/proseed/modules/workflow/services"
)

// NewRepositories wires the Postgres backend behind the service layer.
func NewRepositories(pool *pgxpool.Pool) services.Repositories {
	return services.Repositories{
		Tx:        NewTransactor(pool),
		Tasks:     NewTaskRepository(),
		Processes: NewProcessRepository(),
		Employees: NewEmployeeRepository(),
		Catalog:   NewCatalogRepository(),
	}
}
