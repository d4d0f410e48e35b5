package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/deppfellow/stockroom/internal/database"
	"github.com/deppfellow/stockroom/internal/database/dbtest"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_WithTx(t *testing.T) {
	t.Run("Should commit when the body succeeds", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())
		ctx := context.Background()

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectExec("INSERT INTO categories").
			WithArgs("Tools").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		connector.Mock.ExpectCommit()

		err := pool.WithTx(ctx, func(s *database.Scope) error {
			_, err := s.Execute(ctx, "INSERT INTO categories (name) VALUES ($1)", "Tools")
			return err
		})

		require.NoError(t, err)
		assert.Equal(t, int32(0), connector.Outstanding())
	})

	t.Run("Should roll back and reuse the connection after a failing body", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, database.PoolOptions{MaxConns: 1, Policy: database.PolicyFailFast})
		ctx := context.Background()
		errBody := errors.New("stock would go negative")

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectExec("UPDATE products").
			WithArgs(int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		connector.Mock.ExpectRollback()

		err := pool.WithTx(ctx, func(s *database.Scope) error {
			if _, err := s.Execute(ctx, "UPDATE products SET min_stock = min_stock - 1 WHERE id = $1", int64(7)); err != nil {
				return err
			}
			return errBody
		})
		assert.ErrorIs(t, err, errBody)
		assert.Equal(t, int32(0), connector.Outstanding())

		// The single connection is immediately usable again.
		connector.Mock.ExpectBegin()
		connector.Mock.ExpectExec("UPDATE products").
			WithArgs(int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		connector.Mock.ExpectCommit()

		err = pool.WithTx(ctx, func(s *database.Scope) error {
			_, err := s.Execute(ctx, "UPDATE products SET min_stock = min_stock - 1 WHERE id = $1", int64(7))
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, int32(2), connector.Released())
	})

	t.Run("Should wrap statement errors and keep the driver error reachable", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())
		ctx := context.Background()

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectExec("INSERT INTO users").
			WithArgs("alice").
			WillReturnError(&pgconn.PgError{Code: "23505", TableName: "users"})
		connector.Mock.ExpectRollback()

		err := pool.WithTx(ctx, func(s *database.Scope) error {
			_, err := s.Execute(ctx, "INSERT INTO users (username) VALUES ($1)", "alice")
			return err
		})

		assert.ErrorIs(t, err, database.ErrTransactionFailure)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "23505", pgErr.Code)
		assert.Equal(t, int32(0), connector.Outstanding())
	})

	t.Run("Should release the connection when commit fails", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())
		ctx := context.Background()

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

		err := pool.WithTx(ctx, func(*database.Scope) error { return nil })

		assert.ErrorIs(t, err, database.ErrTransactionFailure)
		assert.Equal(t, int32(0), connector.Outstanding())
	})

	t.Run("Should release the connection when begin fails", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())
		called := false

		connector.Mock.ExpectBegin().WillReturnError(errors.New("server closed the connection"))

		err := pool.WithTx(context.Background(), func(*database.Scope) error {
			called = true
			return nil
		})

		assert.ErrorIs(t, err, database.ErrTransactionFailure)
		assert.False(t, called)
		assert.Equal(t, int32(0), connector.Outstanding())
	})

	t.Run("Should roll back and release before re-raising a panic", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, dbtest.Options())

		connector.Mock.ExpectBegin()
		connector.Mock.ExpectRollback()

		assert.PanicsWithValue(t, "boom", func() {
			_ = pool.WithTx(context.Background(), func(*database.Scope) error {
				panic("boom")
			})
		})
		assert.Equal(t, int32(0), connector.Outstanding())
		assert.Equal(t, int32(0), pool.Stat().Leased)
	})

	t.Run("Should not begin when the pool is exhausted", func(t *testing.T) {
		pool, connector := dbtest.NewPool(t, database.PoolOptions{MaxConns: 1, Policy: database.PolicyFailFast})
		ctx := context.Background()

		held, err := pool.Acquire(ctx)
		require.NoError(t, err)
		defer held.Release()

		err = pool.WithTx(ctx, func(*database.Scope) error { return nil })
		assert.ErrorIs(t, err, database.ErrPoolExhausted)
		assert.Equal(t, int32(1), connector.Acquired())
	})
}
