package config

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Open connects to the database described by d through pgx's
// database/sql driver and wraps it as a *bun.DB using the Postgres
// dialect. The caller must call sql.InitDB before using the result,
// and Close when finished.
func (d Database) Open() (*bun.DB, error) {
	sqldb, err := sql.Open("pgx", d.DSN())
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}
