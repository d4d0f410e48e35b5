package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

const rollbackTimeout = 5 * time.Second

// Scope runs statements inside one transaction. It is only valid inside the
// function passed to WithTx.
type Scope struct {
	tx               pgx.Tx
	statementTimeout time.Duration
}

// WithTx leases a connection, begins a transaction and runs fn with a Scope
// bound to it.
//
//   - fn returns nil: commit
//   - fn returns an error or panics: rollback, then the error is returned
//     unchanged (or the panic re-raised)
//   - in every case the lease is released before WithTx returns
//
// Statements that must be atomic together belong in a single WithTx call.
func (p *Pool) WithTx(ctx context.Context, fn func(s *Scope) error) error {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	tx, err := lease.Conn().Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrTransactionFailure, err)
	}

	defer func() {
		if r := recover(); r != nil {
			p.rollback(ctx, tx)
			panic(r)
		}
	}()

	if err := fn(&Scope{tx: tx, statementTimeout: p.opts.StatementTimeout}); err != nil {
		p.rollback(ctx, tx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrTransactionFailure, err)
	}

	return nil
}

// rollback runs on a context detached from the caller so a cancelled request
// still leaves the connection clean.
func (p *Pool) rollback(ctx context.Context, tx pgx.Tx) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if err := tx.Rollback(rbCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		p.log.Error().Err(err).Msg("failed to rollback transaction")
	}
}

// FetchOne scans a single row into dst. ErrNotFound when there is none.
func (s *Scope) FetchOne(ctx context.Context, dst any, sql string, args ...any) error {
	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	if err := pgxscan.Get(ctx, s.tx, dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ErrNotFound
		}
		return statementError(err)
	}
	return nil
}

// FetchAll scans every row into dst, which must point to a slice.
func (s *Scope) FetchAll(ctx context.Context, dst any, sql string, args ...any) error {
	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	if err := pgxscan.Select(ctx, s.tx, dst, sql, args...); err != nil {
		return statementError(err)
	}
	return nil
}

// Execute runs a statement and returns the number of affected rows.
func (s *Scope) Execute(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	tag, err := s.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, statementError(err)
	}
	return tag.RowsAffected(), nil
}

// ExecuteReturning runs a mutating statement with a RETURNING clause and
// scans the produced row into dst.
func (s *Scope) ExecuteReturning(ctx context.Context, dst any, sql string, args ...any) error {
	return s.FetchOne(ctx, dst, sql, args...)
}

// FetchMapped returns each row as column name -> value, using the result's
// field descriptions for the keys.
func (s *Scope) FetchMapped(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	rows, err := s.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, statementError(err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, statementError(err)
	}
	return records, nil
}

func (s *Scope) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.statementTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.statementTimeout)
}

// statementError keeps the driver error in the chain so callers can still
// inspect *pgconn.PgError.
func statementError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
}
