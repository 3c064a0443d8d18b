// Package schema embeds the workflow migrations and applies them with goose.
package schema

import (
	"context"
	"database/sql"
	"embed"

	"github.com/go-faster/errors"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const dir = "migrations"

type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Status Direction = "status"
)

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs the embedded migrations against dsn. Down rolls back a single
// version.
func Migrate(ctx context.Context, dsn string, direction Direction) error {
	db, err := open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case Up:
		err = goose.UpContext(ctx, db, dir)
	case Down:
		err = goose.DownContext(ctx, db, dir)
	case Status:
		err = goose.StatusContext(ctx, db, dir)
	default:
		return errors.Errorf("unknown migration direction %q", direction)
	}
	return errors.Wrapf(err, "migrate %s", direction)
}

// Version reports the current schema version of dsn.
func Version(ctx context.Context, dsn string) (int64, error) {
	db, err := open(dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return goose.GetDBVersionContext(ctx, db)
}
