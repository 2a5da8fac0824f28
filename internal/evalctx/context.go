// Package evalctx provides handlers access to external knowledge through a
// single, parameterized, scalar-returning database query.
package evalctx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultQueryTimeout bounds a single database_query invocation. The
// original implementation used 150ms; a handler whose external knowledge
// cannot be fetched within this window evaluates without it.
const DefaultQueryTimeout = 150 * time.Millisecond

// ScalarType is the set of Go types Query may return. It is the scalar
// subset of fluent.ValueType (without PlanePt and time.Time), so a query
// result can be lifted directly into a Value.
type ScalarType interface {
	string | int32 | int64 | float64 | bool
}

// Context gives a handler's eval function access to a prepared,
// parameterized query against an external knowledge store. A handler
// definition without a DatabaseQuery has a Context with no database
// attached; Query then always reports ok=false.
type Context struct {
	pool      *pgxpool.Pool
	statement string
	timeout   time.Duration
}

// New builds a Context around pool and statement. statement must be a
// valid PostgreSQL query string using $1, $2, ... placeholders; it is not
// prepared eagerly since pgxpool already caches prepared statements per
// connection.
func New(pool *pgxpool.Pool, statement string) *Context {
	return &Context{pool: pool, statement: statement, timeout: DefaultQueryTimeout}
}

// WithTimeout returns a copy of c using the given timeout instead of
// DefaultQueryTimeout.
func (c *Context) WithTimeout(d time.Duration) *Context {
	return &Context{pool: c.pool, statement: c.statement, timeout: d}
}

// Query runs the context's statement with args and scans exactly one row
// of exactly one column into T. On any failure - timeout, connection
// error, wrong row or column count, type mismatch - it returns the zero
// value and ok=false rather than an error, matching the original
// implementation's database_query, which treats "no answer" and "answer
// unavailable" identically from the handler's perspective.
func Query[T ScalarType](ctx context.Context, c *Context, args ...any) (T, bool) {
	var zero T
	if c == nil || c.pool == nil {
		return zero, false
	}

	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.pool.Query(qctx, c.statement, args...)
	if err != nil {
		return zero, false
	}
	defer rows.Close()

	if !rows.Next() {
		return zero, false
	}
	fields := rows.FieldDescriptions()
	if len(fields) != 1 {
		return zero, false
	}

	var result T
	if err := rows.Scan(&result); err != nil {
		return zero, false
	}

	// a second row present means the query was not the 1x1 scalar shape
	// the context contract requires.
	if rows.Next() {
		return zero, false
	}
	if err := rows.Err(); err != nil {
		return zero, false
	}

	return result, true
}

// ErrNoDatabase describes a Context with no pool attached. No function in
// this package returns it: Query reports that case as ok=false.
var ErrNoDatabase = errors.New("evalctx: context has no database attached")

// Close releases c's connection pool. Contexts sharing a pool across
// handlers should only be closed once, by whichever owns the pool.
func (c *Context) Close() {
	if c != nil && c.pool != nil {
		c.pool.Close()
	}
}

func (c *Context) String() string {
	if c == nil || c.pool == nil {
		return "evalctx.Context(no database)"
	}
	return fmt.Sprintf("evalctx.Context(timeout=%s)", c.timeout)
}
