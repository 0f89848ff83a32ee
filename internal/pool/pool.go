package pool

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/nerrad567/gray-logic-db/internal/driver"
)

// Logger is the logging surface the pool needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// State is the lifecycle position of a pooled connection.
type State int32

// Connection states.
const (
	StateIdle State = iota
	StateInUse
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInUse:
		return "in_use"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

type entry struct {
	id        uint64
	conn      driver.Conn
	createdAt time.Time
	state     atomic.Int32
	idleSince atomic.Int64
}

func (e *entry) setState(s State) { e.state.Store(int32(s)) }
func (e *entry) getState() State  { return State(e.state.Load()) }

// grant is what a waiter receives: a connection, permission to dial one,
// or a terminal error.
type grant struct {
	e    *entry
	dial bool
	err  error
}

type waiter struct {
	ch   chan grant
	elem *list.Element
}

// Pool is a bounded set of connections produced by one Manager.
//
// Thread Safety:
//   - All methods are safe for concurrent use
//   - A connection is owned by at most one caller at any instant
//   - Waiters are served strictly first-in, first-out
type Pool struct {
	mgr *Manager
	cfg Config
	log Logger

	mu      sync.Mutex
	idle    []*entry
	waiters *list.List
	open    int
	dialing int
	closed  bool

	drained     chan struct{}
	drainedOnce sync.Once

	conns   *xsync.MapOf[uint64, *entry]
	nextID  atomic.Uint64
	metrics *poolMetrics
}

// Option customizes a Pool.
type Option func(*Pool)

// WithLogger sets the pool's logger.
func WithLogger(l Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a pool. Sizing hints carried in the Manager's URI
// (max_open, idle_timeout) override the matching cfg fields.
//
// No connection is opened until the first Get.
func New(mgr *Manager, cfg Config, opts ...Option) (*Pool, error) {
	hints := mgr.Options().PoolHints()
	if hints.MaxOpen > 0 {
		cfg.MaxOpen = hints.MaxOpen
	}
	if hints.IdleTimeout > 0 {
		cfg.IdleTimeout = hints.IdleTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		mgr:     mgr,
		cfg:     cfg,
		log:     nopLogger{},
		waiters: list.New(),
		drained: make(chan struct{}),
		conns:   xsync.NewMapOf[uint64, *entry](),
	}
	for _, o := range opts {
		o(p)
	}
	p.metrics = newPoolMetrics(p)
	return p, nil
}

// Config returns the effective configuration.
func (p *Pool) Config() Config { return p.cfg }

// Manager returns the bound Manager.
func (p *Pool) Manager() *Manager { return p.mgr }

// Get checks out a connection, waiting up to the configured checkout
// timeout.
func (p *Pool) Get(ctx context.Context) (*Conn, error) {
	return p.GetTimeout(ctx, p.cfg.CheckoutTimeout)
}

// GetTimeout checks out a connection, waiting at most timeout.
//
// An idle connection is returned without waiting. Below MaxOpen a new
// connection is dialed; dial failures are returned as-is and not retried.
// At MaxOpen the caller queues behind earlier waiters.
//
// Returns:
//   - *Conn: exclusively owned connection; call Release when done
//   - error: ErrPoolTimeout, ErrPoolClosed, a dial error, or ctx.Err()
func (p *Pool) GetTimeout(ctx context.Context, timeout time.Duration) (*Conn, error) {
	if timeout <= 0 {
		timeout = p.cfg.CheckoutTimeout
	}
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, driver.ErrPoolClosed
	}

	e, expired := p.popIdleLocked()
	if e != nil {
		p.mu.Unlock()
		p.closeAll(expired)
		return p.checkout(e, start), nil
	}

	if p.open < p.cfg.MaxOpen {
		p.open++
		p.dialing++
		p.mu.Unlock()
		p.closeAll(expired)
		return p.dial(waitCtx, start)
	}

	w := &waiter{ch: make(chan grant, 1)}
	w.elem = p.waiters.PushBack(w)
	p.mu.Unlock()
	p.closeAll(expired)

	select {
	case g := <-w.ch:
		return p.accept(waitCtx, g, start)
	case <-waitCtx.Done():
	}

	p.mu.Lock()
	if w.elem != nil {
		p.waiters.Remove(w.elem)
		w.elem = nil
		p.mu.Unlock()
	} else {
		// A grant was issued concurrently with the timeout. Hand it back.
		p.mu.Unlock()
		p.giveBack(<-w.ch)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.metrics.timeouts.Inc()
	return nil, fmt.Errorf("%w: no connection available after %s (max_open=%d)", driver.ErrPoolTimeout, timeout, p.cfg.MaxOpen)
}

func (p *Pool) accept(ctx context.Context, g grant, start time.Time) (*Conn, error) {
	switch {
	case g.err != nil:
		return nil, g.err
	case g.e != nil:
		return p.checkout(g.e, start), nil
	default:
		return p.dial(ctx, start)
	}
}

// dial opens a connection for a slot already reserved in p.open.
func (p *Pool) dial(ctx context.Context, start time.Time) (*Conn, error) {
	conn, err := p.mgr.Connect(ctx)

	p.mu.Lock()
	p.dialing--
	if err != nil {
		p.open--
		p.passPermitLocked()
		p.signalIfDrainedLocked()
		p.mu.Unlock()
		p.metrics.dialErrors.Inc()
		return nil, err
	}
	if p.closed {
		p.open--
		p.signalIfDrainedLocked()
		p.mu.Unlock()
		conn.Close() //nolint:errcheck // Best effort cleanup on shutdown path
		return nil, driver.ErrPoolClosed
	}
	p.mu.Unlock()

	e := &entry{id: p.nextID.Add(1), conn: conn, createdAt: time.Now()}
	p.conns.Store(e.id, e)
	p.log.Debug("pool connection opened", "driver", p.mgr.DriverName(), "conn_id", e.id)
	return p.checkout(e, start), nil
}

func (p *Pool) checkout(e *entry, start time.Time) *Conn {
	e.setState(StateInUse)
	p.metrics.checkouts.Inc()
	p.metrics.wait.UpdateDuration(start)
	return &Conn{p: p, e: e}
}

// popIdleLocked returns the most recently used idle connection, first
// evicting any that exceeded the idle timeout.
func (p *Pool) popIdleLocked() (*entry, []*entry) {
	var expired []*entry
	if p.cfg.IdleTimeout > 0 {
		cutoff := time.Now().Add(-p.cfg.IdleTimeout).UnixNano()
		keep := p.idle[:0]
		for _, e := range p.idle {
			if e.idleSince.Load() < cutoff {
				expired = append(expired, e)
				continue
			}
			keep = append(keep, e)
		}
		p.idle = keep
		p.open -= len(expired)
	}
	if len(p.idle) == 0 {
		return nil, expired
	}
	e := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return e, expired
}

// popWaiterLocked dequeues the longest-waiting caller.
func (p *Pool) popWaiterLocked() *waiter {
	front := p.waiters.Front()
	if front == nil {
		return nil
	}
	w := p.waiters.Remove(front).(*waiter)
	w.elem = nil
	return w
}

// passPermitLocked lets the head waiter dial into a freed slot.
func (p *Pool) passPermitLocked() {
	if p.closed || p.open >= p.cfg.MaxOpen {
		return
	}
	if w := p.popWaiterLocked(); w != nil {
		p.open++
		p.dialing++
		w.ch <- grant{dial: true}
	}
}

func (p *Pool) signalIfDrainedLocked() {
	if p.closed && p.open == 0 {
		p.drainedOnce.Do(func() { close(p.drained) })
	}
}

// release returns a healthy-looking connection after a liveness check.
func (p *Pool) release(e *entry) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PingTimeout)
	err := p.mgr.Check(ctx, e.conn)
	cancel()
	if err != nil {
		p.log.Warn("pool connection failed liveness check", "driver", p.mgr.DriverName(), "conn_id", e.id, "error", err)
		p.discard(e)
		return
	}
	p.putBack(e)
}

// putBack hands e to the head waiter or parks it idle.
func (p *Pool) putBack(e *entry) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.discard(e)
		return
	}
	if w := p.popWaiterLocked(); w != nil {
		p.mu.Unlock()
		w.ch <- grant{e: e}
		p.metrics.handoffs.Inc()
		return
	}
	e.setState(StateIdle)
	e.idleSince.Store(time.Now().UnixNano())
	p.idle = append(p.idle, e)
	p.mu.Unlock()
}

// discard closes e and frees its slot. A waiter, if any, may dial a
// replacement; nothing is reconnected eagerly.
func (p *Pool) discard(e *entry) {
	e.setState(StateClosing)
	p.conns.Delete(e.id)
	if err := e.conn.Close(); err != nil {
		p.log.Debug("closing discarded connection", "conn_id", e.id, "error", err)
	}
	p.metrics.discards.Inc()

	p.mu.Lock()
	p.open--
	p.passPermitLocked()
	p.signalIfDrainedLocked()
	p.mu.Unlock()
}

// giveBack returns a grant that arrived after its waiter gave up.
func (p *Pool) giveBack(g grant) {
	switch {
	case g.e != nil:
		p.putBack(g.e)
	case g.dial:
		p.mu.Lock()
		p.open--
		p.dialing--
		p.passPermitLocked()
		p.signalIfDrainedLocked()
		p.mu.Unlock()
	}
}

func (p *Pool) closeAll(es []*entry) {
	for _, e := range es {
		e.setState(StateClosing)
		p.conns.Delete(e.id)
		e.conn.Close() //nolint:errcheck // Expired idle connection
		p.metrics.discards.Inc()
	}
}

// Close stops new checkouts, fails queued waiters with ErrPoolClosed,
// closes idle connections, and waits until every checked-out connection
// has been released or ctx is done.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.wait(ctx)
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.open -= len(idle)
	for w := p.popWaiterLocked(); w != nil; w = p.popWaiterLocked() {
		w.ch <- grant{err: driver.ErrPoolClosed}
	}
	p.signalIfDrainedLocked()
	p.mu.Unlock()

	p.closeAll(idle)
	p.log.Info("pool closing", "driver", p.mgr.DriverName(), "closed_idle", len(idle))
	return p.wait(ctx)
}

func (p *Pool) wait(ctx context.Context) error {
	select {
	case <-p.drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pool: waiting for checked-out connections: %w", ctx.Err())
	}
}

// Ping checks out a connection, pings it, and returns it.
func (p *Pool) Ping(ctx context.Context) error {
	c, err := p.Get(ctx)
	if err != nil {
		return err
	}
	if err := c.Ping(ctx); err != nil {
		c.Discard()
		return err
	}
	c.Release()
	return nil
}

// IsClosed reports whether Close has been called.
func (p *Pool) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
