package driver

import (
	"fmt"
	"sync/atomic"
)

// Guard enforces the single-operation rule on a connection and remembers
// whether the connection was left in an unknown state.
//
// The zero Guard is ready for use.
type Guard struct {
	busy   atomic.Bool
	broken atomic.Bool
}

// Acquire claims the connection for op, failing fast with ErrBusy.
func (g *Guard) Acquire(op string) error {
	if !g.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s while another operation is in flight", ErrBusy, op)
	}
	return nil
}

// Release ends the current operation.
func (g *Guard) Release() { g.busy.Store(false) }

// Busy reports whether an operation is in flight.
func (g *Guard) Busy() bool { return g.busy.Load() }

// MarkBroken records that the connection must not be reused. It is called
// when an operation was interrupted mid-protocol, e.g. by cancellation.
func (g *Guard) MarkBroken() { g.broken.Store(true) }

// Broken reports whether MarkBroken was called.
func (g *Guard) Broken() bool { return g.broken.Load() }
