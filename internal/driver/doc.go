// Package driver defines the capability contract every database adapter
// implements, and the catalog that selects one adapter per connection URI.
//
// This package manages:
//   - Driver, ConnectOptions, Conn, Rows and MetaData interfaces
//   - Placeholder styles and ? marker rewriting
//   - Shared error kinds (ErrConfig, ErrConnection, ErrAuth, ErrQuery, ...)
//   - URI helpers shared by adapters (scheme, pool hints, redaction)
//
// Backend Selection:
//
// A Catalog is built once at startup from every compiled-in adapter.
// Resolve picks exactly one adapter by URI scheme; an unknown scheme is a
// configuration error. There is no fallback to another backend when
// connecting fails, and a bound adapter is never swapped at runtime.
//
// Connection Discipline:
//   - One operation at a time per Conn; a second concurrent call fails fast
//     with ErrBusy instead of queueing
//   - A Rows holds the connection busy until drained or closed
//   - A failed statement (ErrQuery) leaves the connection usable
//
// Usage:
//
//	d, opts, err := catalog.Resolve("sqlite://:memory:")
//	if err != nil {
//	    return err
//	}
//	conn, err := d.Connect(ctx, opts)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	rows, err := conn.Query(ctx, d.Placeholder().Exchange("SELECT name FROM t WHERE id = ?"), value.Int(7))
package driver
