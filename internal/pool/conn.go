package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Conn is a checked-out connection. It implements driver.Conn so callers
// use the same contract whether or not they go through the pool.
//
// Exactly one of Release or Discard must be called when done; further
// calls are no-ops and any other method then fails with ErrReleased.
type Conn struct {
	p        *Pool
	e        *entry
	released atomic.Bool

	mu   sync.Mutex
	rows driver.Rows
}

var _ driver.Conn = (*Conn)(nil)

// ID identifies the underlying physical connection.
func (c *Conn) ID() uint64 { return c.e.id }

// Execute implements driver.Conn.
func (c *Conn) Execute(ctx context.Context, sql string, params ...value.Value) (driver.ExecResult, error) {
	if c.released.Load() {
		return driver.ExecResult{}, driver.ErrReleased
	}
	return c.e.conn.Execute(ctx, sql, params...)
}

// Query implements driver.Conn. Rows left open at Release are closed.
func (c *Conn) Query(ctx context.Context, sql string, params ...value.Value) (driver.Rows, error) {
	if c.released.Load() {
		return nil, driver.ErrReleased
	}
	rows, err := c.e.conn.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.rows = rows
	c.mu.Unlock()
	return rows, nil
}

// Ping implements driver.Conn.
func (c *Conn) Ping(ctx context.Context) error {
	if c.released.Load() {
		return driver.ErrReleased
	}
	return c.e.conn.Ping(ctx)
}

// Close releases the connection back to the pool. It exists so a pooled
// connection satisfies driver.Conn; it never closes the physical link
// directly.
func (c *Conn) Close() error {
	c.Release()
	return nil
}

// Release returns the connection. It is pinged first; a connection that
// fails the check is discarded instead of reused.
func (c *Conn) Release() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	c.closeRows()
	c.p.release(c.e)
}

// Discard closes the physical connection and frees its slot.
func (c *Conn) Discard() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	c.closeRows()
	c.p.discard(c.e)
}

func (c *Conn) closeRows() {
	c.mu.Lock()
	rows := c.rows
	c.rows = nil
	c.mu.Unlock()
	if rows != nil {
		if err := rows.Close(); err != nil {
			c.p.log.Debug("closing rows left open at release", "conn_id", c.e.id, "error", err)
		}
	}
}

// String identifies the connection in logs.
func (c *Conn) String() string {
	return fmt.Sprintf("%s#%d", c.p.mgr.DriverName(), c.e.id)
}
