// Package pool provides a bounded, first-in-first-out connection pool over
// any adapter in the driver catalog.
//
// This package manages:
//   - Manager: a fixed binding of one adapter to one set of options
//   - Pool: checkout, release, discard, and shutdown of connections
//   - Stats, per-connection info, and Prometheus metrics
//
// Ownership:
//
// A checked-out Conn belongs to exactly one caller until Release or
// Discard. Release pings the connection first and discards it when the
// check fails. Rows left open at release are closed.
//
// Waiting:
//   - At MaxOpen callers queue and are served strictly in arrival order
//   - A returned connection goes straight to the longest waiter
//   - A freed slot lets the longest waiter dial a replacement
//   - A caller that times out leaves the queue and gets ErrPoolTimeout
//
// Dial failures are returned to the caller that triggered them and are
// never retried by the pool.
//
// Usage:
//
//	mgr, err := pool.NewManager(adapters.Catalog(), "postgres://app@db/app?max_open=8")
//	if err != nil {
//	    return err
//	}
//	p, err := pool.New(mgr, pool.DefaultConfig(), pool.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer p.Close(ctx)
//
//	conn, err := p.Get(ctx)
//	if err != nil {
//	    return err
//	}
//	defer conn.Release()
package pool
