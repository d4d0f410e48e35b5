package database

import "context"

// Executor exposes the query primitives repositories use. Every call opens
// and closes exactly one transaction scope; compose several statements with
// WithTx instead of issuing several Executor calls.
//
// Statements must use positional placeholders ($1, $2, ...). Values are
// never interpolated into SQL text.
type Executor struct {
	pool *Pool
}

// NewExecutor wires an Executor to pool.
func NewExecutor(pool *Pool) *Executor {
	return &Executor{pool: pool}
}

// WithTx runs fn inside a single transaction scope.
func (e *Executor) WithTx(ctx context.Context, fn func(s *Scope) error) error {
	return e.pool.WithTx(ctx, fn)
}

// FetchOne returns ErrNotFound when the statement yields no row.
func (e *Executor) FetchOne(ctx context.Context, dst any, sql string, args ...any) error {
	return e.pool.WithTx(ctx, func(s *Scope) error {
		return s.FetchOne(ctx, dst, sql, args...)
	})
}

// FetchAll scans all rows into dst (pointer to slice).
func (e *Executor) FetchAll(ctx context.Context, dst any, sql string, args ...any) error {
	return e.pool.WithTx(ctx, func(s *Scope) error {
		return s.FetchAll(ctx, dst, sql, args...)
	})
}

// Execute returns the affected row count.
func (e *Executor) Execute(ctx context.Context, sql string, args ...any) (int64, error) {
	var affected int64
	err := e.pool.WithTx(ctx, func(s *Scope) error {
		var err error
		affected, err = s.Execute(ctx, sql, args...)
		return err
	})
	return affected, err
}

// ExecuteReturning scans the row produced by a mutating statement.
func (e *Executor) ExecuteReturning(ctx context.Context, dst any, sql string, args ...any) error {
	return e.pool.WithTx(ctx, func(s *Scope) error {
		return s.ExecuteReturning(ctx, dst, sql, args...)
	})
}

// FetchMapped returns self-describing records keyed by column name.
func (e *Executor) FetchMapped(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	var records []map[string]any
	err := e.pool.WithTx(ctx, func(s *Scope) error {
		var err error
		records, err = s.FetchMapped(ctx, sql, args...)
		return err
	})
	return records, err
}
