// Package drivertest provides an in-memory adapter for exercising code that
// depends on the driver contract, plus a conformance battery every real
// adapter runs in its own tests.
package drivertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Result is what a Responder returns for one statement.
type Result struct {
	Columns      []string
	Types        []string
	Rows         [][]value.Value
	RowsAffected int64
	LastInsertID value.Value
}

// Responder answers statements sent to a fake connection.
type Responder func(sql string, params []value.Value) (*Result, error)

// Driver is a scriptable in-memory adapter. Its scheme equals its name.
type Driver struct {
	name    string
	style   driver.Placeholder
	respond Responder

	dialDelay atomic.Int64
	dialErr   atomic.Pointer[error]
	nextID    atomic.Int64
	dialed    atomic.Int64
	closed    atomic.Int64

	mu    sync.Mutex
	conns []*Conn
}

// New returns a fake driver answering every statement with an empty result.
func New(name string) *Driver {
	return &Driver{
		name:  name,
		style: driver.Positional,
		respond: func(string, []value.Value) (*Result, error) {
			return &Result{}, nil
		},
	}
}

// WithResponder replaces the statement handler.
func (d *Driver) WithResponder(r Responder) *Driver {
	d.respond = r
	return d
}

// WithPlaceholder sets the advertised bind marker style.
func (d *Driver) WithPlaceholder(p driver.Placeholder) *Driver {
	d.style = p
	return d
}

// FailDial makes subsequent Connect calls fail with err. Pass nil to recover.
func (d *Driver) FailDial(err error) {
	if err == nil {
		d.dialErr.Store(nil)
		return
	}
	d.dialErr.Store(&err)
}

// SetDialDelay slows down Connect.
func (d *Driver) SetDialDelay(delay time.Duration) { d.dialDelay.Store(int64(delay)) }

// Dialed returns how many connections were opened.
func (d *Driver) Dialed() int64 { return d.dialed.Load() }

// Closed returns how many connections were closed.
func (d *Driver) Closed() int64 { return d.closed.Load() }

// Conns returns every connection opened so far.
func (d *Driver) Conns() []*Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Conn, len(d.conns))
	copy(out, d.conns)
	return out
}

func (d *Driver) Name() string                    { return d.name }
func (d *Driver) Placeholder() driver.Placeholder { return d.style }

// ParseOptions accepts name://anything with the shared pool hints.
func (d *Driver) ParseOptions(uri string) (driver.ConnectOptions, error) {
	scheme, err := driver.Scheme(uri)
	if err != nil {
		return nil, err
	}
	if scheme != d.name {
		return nil, fmt.Errorf("%w: %s cannot handle scheme %q", driver.ErrConfig, d.name, scheme)
	}
	u, err := driver.ParseURL(uri)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	hints, err := driver.TakePoolHints(q)
	if err != nil {
		return nil, err
	}
	if len(q) > 0 {
		return nil, fmt.Errorf("%w: unknown query parameters %q", driver.ErrConfig, keyList(q))
	}
	return Options{scheme: scheme, hints: hints, uri: driver.RedactURL(u)}, nil
}

// Connect opens a fake connection.
func (d *Driver) Connect(ctx context.Context, opts driver.ConnectOptions) (driver.Conn, error) {
	if _, ok := opts.(Options); !ok {
		return nil, fmt.Errorf("%w: options of type %T", driver.ErrConfig, opts)
	}
	if delay := time.Duration(d.dialDelay.Load()); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", driver.ErrConnection, ctx.Err())
		}
	}
	if p := d.dialErr.Load(); p != nil {
		return nil, *p
	}
	c := &Conn{ID: d.nextID.Add(1), d: d}
	d.dialed.Add(1)
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

// Options are the parsed options of a fake URI.
type Options struct {
	scheme string
	hints  driver.PoolHints
	uri    string
}

func (o Options) Scheme() string              { return o.scheme }
func (o Options) PoolHints() driver.PoolHints { return o.hints }
func (o Options) Redacted() string            { return o.uri }

// Conn is a fake connection.
type Conn struct {
	ID int64

	d       *Driver
	guard   driver.Guard
	closed  atomic.Bool
	pingErr atomic.Pointer[error]
	pings   atomic.Int64
}

// FailPing makes subsequent Ping calls fail with err. Pass nil to recover.
func (c *Conn) FailPing(err error) {
	if err == nil {
		c.pingErr.Store(nil)
		return
	}
	c.pingErr.Store(&err)
}

// IsClosed reports whether Close was called.
func (c *Conn) IsClosed() bool { return c.closed.Load() }

// Pings returns how many times Ping was called.
func (c *Conn) Pings() int64 { return c.pings.Load() }

func (c *Conn) Execute(ctx context.Context, sql string, params ...value.Value) (driver.ExecResult, error) {
	if err := c.begin("execute"); err != nil {
		return driver.ExecResult{}, err
	}
	defer c.guard.Release()
	if err := ctx.Err(); err != nil {
		return driver.ExecResult{}, err
	}
	res, err := c.d.respond(sql, params)
	if err != nil {
		return driver.ExecResult{}, err
	}
	return driver.ExecResult{RowsAffected: res.RowsAffected, LastInsertID: res.LastInsertID}, nil
}

func (c *Conn) Query(ctx context.Context, sql string, params ...value.Value) (driver.Rows, error) {
	if err := c.begin("query"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		c.guard.Release()
		return nil, err
	}
	res, err := c.d.respond(sql, params)
	if err != nil {
		c.guard.Release()
		return nil, err
	}
	return NewRows(res, c.guard.Release), nil
}

func (c *Conn) Ping(ctx context.Context) error {
	c.pings.Add(1)
	if c.closed.Load() {
		return fmt.Errorf("%w: connection closed", driver.ErrConnection)
	}
	if c.guard.Busy() {
		return fmt.Errorf("%w: ping while another operation is in flight", driver.ErrBusy)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p := c.pingErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (c *Conn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.d.closed.Add(1)
	}
	return nil
}

func (c *Conn) begin(op string) error {
	if c.closed.Load() {
		return fmt.Errorf("%w: %s on closed connection", driver.ErrConnection, op)
	}
	return c.guard.Acquire(op)
}

func keyList(q map[string][]string) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	return strings.Join(keys, ",")
}
