// Package repository holds the data-access layer.
//
// Repositories own the SQL for one aggregate each and run it through a
// database.Executor, so every method call is a single transaction scope.
// They return plain domain sentinels; mapping to HTTP happens in sqlerr.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
