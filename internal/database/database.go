// Package database owns every connection to PostgreSQL.
//
// It handles:
//   - a bounded pool of connections (Pool) with an explicit exhaustion policy
//   - transaction scopes with commit-on-success / rollback-on-failure (Pool.WithTx)
//   - the query primitives used by repositories (Executor, Scope)
//   - schema migrations (Migrate)
//
// No other package holds a connection: callers receive a *Scope inside WithTx
// and the connection goes back to the pool before WithTx returns.
package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/deppfellow/stockroom/internal/config"
)

var (
	// ErrPoolExhausted is returned when no connection could be leased, either
	// immediately (fail-fast policy) or within the acquire timeout.
	ErrPoolExhausted = errors.New("database: pool exhausted")

	// ErrPoolClosed is returned by Acquire once Close has been called.
	ErrPoolClosed = errors.New("database: pool closed")

	// ErrPoolNotInitialized is returned by Acquire before Initialize succeeded.
	ErrPoolNotInitialized = errors.New("database: pool not initialized")

	// ErrConnectFailure wraps failures to reach the backing store.
	ErrConnectFailure = errors.New("database: connect failure")

	// ErrTransactionFailure wraps driver errors raised while a transaction
	// was running (begin, statement, commit).
	ErrTransactionFailure = errors.New("database: transaction failure")

	// ErrNotFound is returned by FetchOne and ExecuteReturning when the
	// statement produced no row.
	ErrNotFound = errors.New("database: no rows")
)

// ExhaustionPolicy decides what Acquire does when every connection is leased.
type ExhaustionPolicy int

const (
	// PolicyBlock waits for a release, bounded by PoolOptions.AcquireTimeout.
	PolicyBlock ExhaustionPolicy = iota
	// PolicyFailFast returns ErrPoolExhausted immediately.
	PolicyFailFast
)

func (p ExhaustionPolicy) String() string {
	switch p {
	case PolicyBlock:
		return config.ExhaustionPolicyBlock
	case PolicyFailFast:
		return config.ExhaustionPolicyFailFast
	default:
		return "unknown"
	}
}

// ParseExhaustionPolicy converts the config value into an ExhaustionPolicy.
func ParseExhaustionPolicy(s string) (ExhaustionPolicy, error) {
	switch s {
	case config.ExhaustionPolicyBlock:
		return PolicyBlock, nil
	case config.ExhaustionPolicyFailFast:
		return PolicyFailFast, nil
	default:
		return PolicyBlock, fmt.Errorf("unknown exhaustion policy %q", s)
	}
}

// PoolOptions configures a Pool.
type PoolOptions struct {
	MinConns int32
	MaxConns int32

	// ConnectTimeout bounds Initialize (dial + ping).
	ConnectTimeout time.Duration

	// AcquireTimeout bounds how long PolicyBlock waits; zero waits until the
	// caller's context is done.
	AcquireTimeout time.Duration

	// StatementTimeout bounds every statement run through a Scope; zero disables it.
	StatementTimeout time.Duration

	Policy ExhaustionPolicy
}

// OptionsFromConfig maps DatabaseConfig onto PoolOptions.
func OptionsFromConfig(cfg config.DatabaseConfig) (PoolOptions, error) {
	policy, err := ParseExhaustionPolicy(cfg.ExhaustionPolicy)
	if err != nil {
		return PoolOptions{}, err
	}

	return PoolOptions{
		MinConns:         int32(cfg.MinConns),
		MaxConns:         int32(cfg.MaxConns),
		ConnectTimeout:   cfg.ConnectTimeout,
		AcquireTimeout:   cfg.AcquireTimeout,
		StatementTimeout: cfg.StatementTimeout,
		Policy:           policy,
	}, nil
}

// BuildDSN returns a postgres URL for cfg.
//
// The password is URL-escaped so characters like ':' or '@' don't break the
// URL structure. connect_timeout is rounded up to whole seconds because that
// is the unit libpq-style DSNs use.
func BuildDSN(cfg config.DatabaseConfig) string {
	hostPort := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	query := url.Values{}
	query.Set("sslmode", cfg.SSLMode)
	if cfg.ApplicationName != "" {
		query.Set("application_name", cfg.ApplicationName)
	}
	if cfg.ConnectTimeout > 0 {
		seconds := int((cfg.ConnectTimeout + time.Second - 1) / time.Second)
		query.Set("connect_timeout", strconv.Itoa(seconds))
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     hostPort,
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}
