package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Pool lends at most MaxConns connections at a time.
//
// The bound is a weighted semaphore in front of the Connector, so the
// exhaustion policy is decided here rather than inside pgxpool:
//   - PolicyBlock waits on the semaphore (caller context + AcquireTimeout)
//   - PolicyFailFast uses TryAcquire and returns ErrPoolExhausted
//
// A Pool is created once at startup and passed to every collaborator.
type Pool struct {
	opts PoolOptions
	dial Dialer
	log  *zerolog.Logger

	sem *semaphore.Weighted

	mu        sync.Mutex
	connector Connector
	leased    int32
	peak      int32
	closed    bool
}

// PoolStat is a point-in-time snapshot of lease bookkeeping.
type PoolStat struct {
	MaxConns int32  `json:"max_conns"`
	Leased   int32  `json:"leased"`
	Peak     int32  `json:"peak"`
	Policy   string `json:"policy"`
	Closed   bool   `json:"closed"`
}

// Lease is a connection on loan from a Pool. Release is idempotent.
type Lease struct {
	pool *Pool
	conn Conn
	once sync.Once
}

// NewPool builds an uninitialized pool. Call Initialize before Acquire.
func NewPool(opts PoolOptions, dial Dialer, logger *zerolog.Logger) *Pool {
	if opts.MaxConns < 1 {
		opts.MaxConns = 1
	}
	if opts.MinConns < 0 {
		opts.MinConns = 0
	}
	if opts.MinConns > opts.MaxConns {
		opts.MinConns = opts.MaxConns
	}

	logger.Info().
		Int32("min_conns", opts.MinConns).
		Int32("max_conns", opts.MaxConns).
		Str("exhaustion_policy", opts.Policy.String()).
		Dur("acquire_timeout", opts.AcquireTimeout).
		Dur("statement_timeout", opts.StatementTimeout).
		Msg("database pool configured")

	return &Pool{
		opts: opts,
		dial: dial,
		log:  logger,
		sem:  semaphore.NewWeighted(int64(opts.MaxConns)),
	}
}

// Initialize dials the backing store and pings it within ConnectTimeout.
//
// A second call after success is a no-op. Failures wrap ErrConnectFailure
// and are not retried here: the caller (startup) decides what to do.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.connector != nil {
		return nil
	}

	connectCtx := ctx
	if p.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, p.opts.ConnectTimeout)
		defer cancel()
	}

	connector, err := p.dial(connectCtx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailure, err)
	}

	if err := connector.Ping(connectCtx); err != nil {
		connector.Close()
		return fmt.Errorf("%w: failed to ping database: %w", ErrConnectFailure, err)
	}

	p.connector = connector
	p.log.Info().Msg("connected to the database")

	return nil
}

// Acquire leases a connection according to the exhaustion policy.
//
// The wait for a slot and the wait for the physical connection share one
// budget: the caller's context bounded by AcquireTimeout.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	connector, err := p.current()
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := p.waitContext(ctx)
	defer cancel()

	if err := p.reserve(ctx, waitCtx); err != nil {
		return nil, err
	}

	// Close may have run while we were waiting for a slot.
	if _, err := p.current(); err != nil {
		p.unreserve()
		return nil, err
	}

	conn, err := connector.Acquire(waitCtx)
	if err != nil {
		p.unreserve()

		// Close may also have run while the connector was dialing.
		if _, closedErr := p.current(); closedErr != nil {
			return nil, closedErr
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if waitCtx.Err() != nil {
			return nil, fmt.Errorf("%w: no connection available within %s", ErrPoolExhausted, p.opts.AcquireTimeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectFailure, err)
	}

	return &Lease{pool: p, conn: conn}, nil
}

// Conn returns the leased connection.
func (l *Lease) Conn() Conn {
	return l.conn
}

// Release hands the connection back. Calling it more than once is harmless,
// and it is safe after a failed statement: the connector discards broken
// connections on release.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.conn.Release()
		l.pool.unreserve()
	})
}

// Ping checks the backing store on a leased connection, so a health check
// counts against MaxConns like any other caller and obeys the exhaustion
// policy.
func (p *Pool) Ping(ctx context.Context) error {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	return lease.Conn().Ping(ctx)
}

// Stat returns the current lease bookkeeping.
func (p *Pool) Stat() PoolStat {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStat{
		MaxConns: p.opts.MaxConns,
		Leased:   p.leased,
		Peak:     p.peak,
		Policy:   p.opts.Policy.String(),
		Closed:   p.closed,
	}
}

// Close terminates all connections. Further Acquire calls fail with
// ErrPoolClosed. The pgx connector waits for outstanding leases to be
// released before it returns.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	connector := p.connector
	p.mu.Unlock()

	p.log.Info().Msg("closing database connection pool")

	if connector != nil {
		connector.Close()
	}
}

func (p *Pool) current() (Connector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.connector == nil {
		return nil, ErrPoolNotInitialized
	}
	return p.connector, nil
}

// waitContext bounds ctx by AcquireTimeout when one is configured.
func (p *Pool) waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.AcquireTimeout > 0 {
		return context.WithTimeout(ctx, p.opts.AcquireTimeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pool) reserve(ctx, waitCtx context.Context) error {
	switch p.opts.Policy {
	case PolicyFailFast:
		if !p.sem.TryAcquire(1) {
			return ErrPoolExhausted
		}
	default:
		if err := p.sem.Acquire(waitCtx, 1); err != nil {
			// The caller gave up: report its reason, not exhaustion.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: no connection released within %s", ErrPoolExhausted, p.opts.AcquireTimeout)
		}
	}

	p.mu.Lock()
	p.leased++
	if p.leased > p.peak {
		p.peak = p.leased
	}
	p.mu.Unlock()

	return nil
}

func (p *Pool) unreserve() {
	p.mu.Lock()
	p.leased--
	p.mu.Unlock()

	p.sem.Release(1)
}
