// Package dbtest builds database.Pool instances backed by pgxmock so
// repositories can be tested without PostgreSQL.
package dbtest

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/deppfellow/stockroom/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Connector hands out leases that all share one mocked connection.
type Connector struct {
	Mock pgxmock.PgxConnIface

	acquired atomic.Int32
	released atomic.Int32
	closed   atomic.Bool
}

type conn struct {
	connector *Connector
}

func (c *conn) Begin(ctx context.Context) (pgx.Tx, error) {
	return c.connector.Mock.Begin(ctx)
}

// Ping answers with the connector's ping so health checks need no mock
// expectations.
func (c *conn) Ping(ctx context.Context) error {
	return c.connector.Ping(ctx)
}

func (c *conn) Release() {
	c.connector.released.Add(1)
}

// Acquire implements database.Connector.
func (c *Connector) Acquire(context.Context) (database.Conn, error) {
	c.acquired.Add(1)
	return &conn{connector: c}, nil
}

// Ping implements database.Connector.
func (c *Connector) Ping(context.Context) error { return nil }

// Close implements database.Connector.
func (c *Connector) Close() { c.closed.Store(true) }

// Acquired reports how many connections were handed out.
func (c *Connector) Acquired() int32 { return c.acquired.Load() }

// Released reports how many connections came back.
func (c *Connector) Released() int32 { return c.released.Load() }

// Closed reports whether the pool closed the connector.
func (c *Connector) Closed() bool { return c.closed.Load() }

// Outstanding is the number of leases not yet released.
func (c *Connector) Outstanding() int32 { return c.Acquired() - c.Released() }

// Options returns small fail-fast pool options suited to tests.
func Options() database.PoolOptions {
	return database.PoolOptions{
		MinConns: 1,
		MaxConns: 4,
		Policy:   database.PolicyFailFast,
	}
}

// NewPool returns an initialized pool over a fresh pgxmock connection.
// Expectations are verified when the test ends.
func NewPool(t *testing.T, opts database.PoolOptions) (*database.Pool, *Connector) {
	t.Helper()

	mock, err := pgxmock.NewConn()
	require.NoError(t, err)

	connector := &Connector{Mock: mock}
	logger := zerolog.Nop()

	pool := database.NewPool(opts, func(context.Context) (database.Connector, error) {
		return connector, nil
	}, &logger)
	require.NoError(t, pool.Initialize(context.Background()))

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		pool.Close()
	})

	return pool, connector
}
