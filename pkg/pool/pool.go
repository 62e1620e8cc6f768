// Package pool owns the shared database connection pool. The pool is created lazily on
// first use, exactly once, and every request handler and scheduled task goes through it.
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
)

// Mode selects what Execute returns
type Mode int

// execution modes
const (
	ModeExec  Mode = iota // return the number of affected rows
	ModeFetch             // return all result rows
)

// Row is a single result row, column name to value
type Row map[string]any

// Result of a single statement. On statement failure Rows and Affected are empty
// and Err holds a *QueryError, so "nothing matched" and "query failed" can be told apart.
type Result struct {
	Rows     []Row
	Affected int64
	Err      error
}

// Config defines pool settings
type Config struct {
	URL             string        // connection url, mysql://, postgres:// or sqlite://
	CAPath          string        // CA bundle for the encrypted transport
	MinConns        int           // connections opened and kept idle on start
	MaxConns        int           // upper bound of open connections
	ConnMaxLifetime time.Duration // zero means connections are reused forever
	ConnectRetries  int           // ping attempts before giving up
	RetryDelay      time.Duration // delay between ping attempts
}

// Pool is the single owner of the database connections. Create it with New and share the pointer.
type Pool struct {
	cfg Config

	mu      sync.Mutex
	db      *sqlx.DB
	dialect string
	created int // number of pools created, for diagnostics
}

// New makes a pool handle. Nothing is opened until Initialize or the first Execute.
func New(cfg Config) *Pool {
	if cfg.MinConns <= 0 {
		cfg.MinConns = 1
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	if cfg.MaxConns < cfg.MinConns {
		cfg.MaxConns = cfg.MinConns
	}
	if cfg.ConnectRetries <= 0 {
		cfg.ConnectRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Pool{cfg: cfg}
}

// Initialize creates the pool if it doesn't exist yet. Safe for concurrent use,
// callers racing on the first use wait for the one doing the work and share its pool.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.initLocked(ctx)
	return err
}

func (p *Pool) initLocked(ctx context.Context) (*sqlx.DB, error) {
	if p.db != nil {
		return p.db, nil
	}

	op, err := resolve(p.cfg.URL, p.cfg.CAPath)
	if err != nil {
		lgr.Printf("[ERROR] can't initialize database pool: %v", err)
		return nil, err
	}

	db, err := op.open()
	if err != nil {
		return nil, &ConnectionError{Op: "open " + op.redacted, Err: err}
	}
	db.SetMaxOpenConns(p.cfg.MaxConns)
	db.SetMaxIdleConns(p.cfg.MinConns)
	if p.cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.cfg.ConnMaxLifetime)
	}

	// ping with retries, the store may still be starting
	rpt := repeater.NewFixed(p.cfg.ConnectRetries, p.cfg.RetryDelay)
	attempt := 0
	err = rpt.Do(ctx, func() error {
		attempt++
		if e := db.PingContext(ctx); e != nil {
			lgr.Printf("[WARN] database ping attempt %d failed: %v", attempt, e)
			return e
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Op: "connect to " + op.redacted, Err: err}
	}

	if err := warmUp(ctx, db, p.cfg.MinConns); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Op: "open minimal connections", Err: err}
	}

	p.db, p.dialect = db, op.dialect
	p.created++
	lgr.Printf("[INFO] database pool initialized, %s dialect, %d-%d connections", op.dialect, p.cfg.MinConns, p.cfg.MaxConns)
	return db, nil
}

// warmUp opens n connections at once and returns them to the idle set
func warmUp(ctx context.Context, db *sqlx.DB, n int) error {
	conns := make([]*sql.Conn, 0, n)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for range n {
		c, err := db.Conn(ctx)
		if err != nil {
			return err
		}
		conns = append(conns, c)
	}
	return nil
}

// handle returns the live pool, creating it on first use
func (p *Pool) handle(ctx context.Context) (*sqlx.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initLocked(ctx)
}

// Execute runs a parametrized statement on a connection taken from the pool.
// Placeholders are written as "?" and rebound for the dialect.
// A returned error means the pool itself is unusable (configuration or connection problem).
// A failed statement is logged and reported via Result.Err with an empty result.
func (p *Pool) Execute(ctx context.Context, query string, args []any, mode Mode) (Result, error) {
	db, err := p.handle(ctx)
	if err != nil {
		return emptyResult(mode, nil), err
	}

	conn, err := db.Connx(ctx)
	if err != nil {
		return emptyResult(mode, nil), &ConnectionError{Op: "acquire connection", Err: err}
	}
	defer conn.Close() // returns the connection to the pool on every path

	query = db.Rebind(query)
	if mode == ModeFetch {
		return p.fetch(ctx, conn, query, args), nil
	}
	return p.exec(ctx, conn, query, args), nil
}

// Fetch is Execute in ModeFetch
func (p *Pool) Fetch(ctx context.Context, query string, args ...any) (Result, error) {
	return p.Execute(ctx, query, args, ModeFetch)
}

// Exec is Execute in ModeExec
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return p.Execute(ctx, query, args, ModeExec)
}

func (p *Pool) fetch(ctx context.Context, conn *sqlx.Conn, query string, args []any) Result {
	rows, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return failed(ModeFetch, query, args, err)
	}
	defer rows.Close()

	res := Result{Rows: []Row{}}
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return failed(ModeFetch, query, args, err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return failed(ModeFetch, query, args, err)
	}
	lgr.Printf("[DEBUG] query executed: %s, rows=%d", compact(query), len(res.Rows))
	return res
}

func (p *Pool) exec(ctx context.Context, conn *sqlx.Conn, query string, args []any) Result {
	r, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return failed(ModeExec, query, args, err)
	}
	affected, err := r.RowsAffected()
	if err != nil {
		return failed(ModeExec, query, args, err)
	}
	lgr.Printf("[DEBUG] query executed: %s, affected=%d", compact(query), affected)
	return Result{Affected: affected}
}

func failed(mode Mode, query string, args []any, err error) Result {
	qe := &QueryError{Query: compact(query), Err: err}
	lgr.Printf("[ERROR] error executing query: %s, params=%v, %v", qe.Query, args, err)
	return emptyResult(mode, qe)
}

func emptyResult(mode Mode, err error) Result {
	if mode == ModeFetch {
		return Result{Rows: []Row{}, Err: err}
	}
	return Result{Err: err}
}

// Shutdown closes all connections and drops the handle, a later Initialize starts over.
// Calling it on a closed or never opened pool does nothing.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	db := p.db
	p.db, p.dialect = nil, ""
	if err := db.Close(); err != nil {
		lgr.Printf("[WARN] error while closing database pool: %v", err)
		return fmt.Errorf("close pool: %w", err)
	}
	lgr.Printf("[INFO] database pool closed")
	return nil
}

// Dialect returns the dialect of the live pool, empty if not initialized
func (p *Pool) Dialect() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialect
}

// Stats returns connection statistics of the live pool
func (p *Pool) Stats() sql.DBStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// compact squeezes whitespace of multi-line queries for logging
func compact(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
