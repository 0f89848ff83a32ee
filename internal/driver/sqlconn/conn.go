// Package sqlconn implements driver.Conn on top of one pinned database/sql
// connection. Adapters whose backend ships a database/sql driver supply a
// Dialect describing error mapping, value normalization and column labels.
package sqlconn

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Dialect customizes Conn for one backend. Every hook is optional.
type Dialect struct {
	// Classify maps a backend error onto a contract error kind. Returning
	// nil falls back to a QueryError without code.
	Classify func(err error) error

	// Normalize converts one scanned value. The default is value.FromAny.
	Normalize func(raw any, col *sql.ColumnType) (value.Value, error)

	// ColumnType labels a result column. first is the column's value in the
	// first row, ok is false when no row has been read.
	ColumnType func(col *sql.ColumnType, first value.Value, ok bool) string

	// LastInsertID enables sql.Result.LastInsertId reporting.
	LastInsertID bool
}

// Conn is a driver.Conn over a dedicated *sql.DB holding exactly one
// physical connection.
type Conn struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
	guard   driver.Guard
	closed  atomic.Bool
}

// Open dials one connection through database/sql and verifies it.
//
// Parameters:
//   - ctx: bounds the dial and the initial ping
//   - driverName: the registered database/sql driver name
//   - dsn: backend-specific data source name
//   - dialect: backend hooks
//
// Returns:
//   - *Conn: ready connection
//   - error: ErrAuth for rejected credentials, ErrConnection otherwise
func Open(ctx context.Context, driverName, dsn string, dialect Dialect) (*Conn, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", driver.ErrConnection, driverName, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, dialect.connectError(err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		db.Close()   //nolint:errcheck // Best effort cleanup on error path
		return nil, dialect.connectError(err)
	}
	return &Conn{db: db, conn: conn, dialect: dialect}, nil
}

// Raw runs f against the underlying driver connection.
func (c *Conn) Raw(f func(driverConn any) error) error {
	return c.conn.Raw(f)
}

// Execute implements driver.Conn.
func (c *Conn) Execute(ctx context.Context, query string, params ...value.Value) (driver.ExecResult, error) {
	if err := c.begin("execute"); err != nil {
		return driver.ExecResult{}, err
	}
	defer c.guard.Release()

	res, err := c.conn.ExecContext(ctx, query, value.Args(params)...)
	if err != nil {
		return driver.ExecResult{}, c.fail(ctx, err)
	}
	out := driver.ExecResult{LastInsertID: value.Null()}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if c.dialect.LastInsertID {
		if id, err := res.LastInsertId(); err == nil {
			out.LastInsertID = value.Int(id)
		}
	}
	return out, nil
}

// Query implements driver.Conn.
func (c *Conn) Query(ctx context.Context, query string, params ...value.Value) (driver.Rows, error) {
	if err := c.begin("query"); err != nil {
		return nil, err
	}
	rows, err := c.conn.QueryContext(ctx, query, value.Args(params)...)
	if err != nil {
		c.guard.Release()
		return nil, c.fail(ctx, err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close() //nolint:errcheck // Best effort cleanup on error path
		c.guard.Release()
		return nil, c.fail(ctx, err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		types = nil
	}
	return &Rows{ctx: ctx, c: c, rows: rows, cols: cols, types: types}, nil
}

// Ping implements driver.Conn.
func (c *Conn) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return fmt.Errorf("%w: connection closed", driver.ErrConnection)
	}
	if c.guard.Broken() {
		return fmt.Errorf("%w: connection left in unknown state", driver.ErrConnection)
	}
	if err := c.begin("ping"); err != nil {
		return err
	}
	defer c.guard.Release()
	if err := c.conn.PingContext(ctx); err != nil {
		c.guard.MarkBroken()
		return fmt.Errorf("%w: ping: %w", driver.ErrConnection, err)
	}
	return nil
}

// Close implements driver.Conn.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(c.conn.Close(), c.db.Close())
}

func (c *Conn) begin(op string) error {
	if c.closed.Load() {
		return fmt.Errorf("%w: %s on closed connection", driver.ErrConnection, op)
	}
	return c.guard.Acquire(op)
}

// fail classifies an operation error. Interrupted operations and transport
// failures mark the connection broken so the pool discards it.
func (c *Conn) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.guard.MarkBroken()
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	if errors.Is(err, sqldriver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		c.guard.MarkBroken()
		return fmt.Errorf("%w: %w", driver.ErrConnection, err)
	}
	if c.dialect.Classify != nil {
		if mapped := c.dialect.Classify(err); mapped != nil {
			if errors.Is(mapped, driver.ErrConnection) {
				c.guard.MarkBroken()
			}
			return mapped
		}
	}
	return driver.NewQueryError("", err)
}

func (d Dialect) connectError(err error) error {
	if d.Classify != nil {
		if mapped := d.Classify(err); mapped != nil && errors.Is(mapped, driver.ErrAuth) {
			return mapped
		}
	}
	return fmt.Errorf("%w: %w", driver.ErrConnection, err)
}
