package database

import (
	"context"
	"fmt"

	"github.com/deppfellow/stockroom/internal/config"
	loggerConfig "github.com/deppfellow/stockroom/internal/logger"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"
)

// Conn is a leased connection. *pgxpool.Conn satisfies it.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Release()
}

// Connector is the physical connection source behind a Pool.
type Connector interface {
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Close()
}

// Dialer opens a Connector. Pool.Initialize calls it exactly once.
type Dialer func(ctx context.Context) (Connector, error)

// pgxConnector adapts *pgxpool.Pool to Connector.
type pgxConnector struct {
	pool *pgxpool.Pool
}

func (c *pgxConnector) Acquire(ctx context.Context) (Conn, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *pgxConnector) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *pgxConnector) Close() {
	c.pool.Close()
}

// multiTracer allows chaining multiple tracers.
//
// pgx supports a single Tracer in ConnConfig, so this adapter fans out to:
//   - the New Relic tracer (APM)
//   - tracelog.TraceLog (local SQL logging)
type multiTracer struct {
	tracers []any
}

// TraceQueryStart threads the context through every tracer that implements it.
func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(pgx.QueryTracer); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}
	return ctx
}

// TraceQueryEnd implements pgx.QueryTracer.
func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(pgx.QueryTracer); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

// NewPgxDialer returns the production Dialer backed by pgxpool.
//
// Behavior:
//   - Build DSN (escaped password, sslmode, application_name, connect_timeout)
//   - Apply pool bounds: pgxpool MaxConns mirrors the lease bound, MinConns stays warm
//   - Attach New Relic tracer if available
//   - In local env: attach SQL tracelogger (chained with New Relic when both exist)
func NewPgxDialer(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) Dialer {
	return func(ctx context.Context) (Connector, error) {
		pgxPoolConfig, err := pgxpool.ParseConfig(BuildDSN(cfg.Database))
		if err != nil {
			return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
		}

		pgxPoolConfig.MaxConns = int32(cfg.Database.MaxConns)
		pgxPoolConfig.MinConns = int32(cfg.Database.MinConns)
		if cfg.Database.ConnectTimeout > 0 {
			pgxPoolConfig.ConnConfig.ConnectTimeout = cfg.Database.ConnectTimeout
		}

		if loggerService.GetApplication() != nil {
			pgxPoolConfig.ConnConfig.Tracer = nrpgx5.NewTracer()
		}

		// Very noisy, which is why it's only in local.
		if cfg.Primary.Env == "local" {
			globalLevel := logger.GetLevel()
			pgxLogger := loggerConfig.NewPgxLogger(globalLevel)

			localTracer := &tracelog.TraceLog{
				Logger:   pgxzero.NewLogger(pgxLogger),
				LogLevel: loggerConfig.GetPgxTraceLogLevel(globalLevel),
			}

			if pgxPoolConfig.ConnConfig.Tracer != nil {
				pgxPoolConfig.ConnConfig.Tracer = &multiTracer{
					tracers: []any{pgxPoolConfig.ConnConfig.Tracer, localTracer},
				}
			} else {
				pgxPoolConfig.ConnConfig.Tracer = localTracer
			}
		}

		pool, err := pgxpool.NewWithConfig(ctx, pgxPoolConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}

		return &pgxConnector{pool: pool}, nil
	}
}
