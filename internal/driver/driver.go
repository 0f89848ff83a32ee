package driver

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Driver is the entry point of one backend adapter.
//
// A Driver is stateless and safe for concurrent use.
type Driver interface {
	// Name returns the fixed adapter name, e.g. "sqlite".
	Name() string

	// ParseOptions validates uri and returns immutable connection options.
	// It never touches the network. Malformed or unsupported URIs fail
	// with an error matching ErrConfig.
	ParseOptions(uri string) (ConnectOptions, error)

	// Connect opens one physical connection. Transport failures match
	// ErrConnection and rejected credentials match ErrAuth.
	Connect(ctx context.Context, opts ConnectOptions) (Conn, error)

	// Placeholder returns the bind marker style the backend expects.
	Placeholder() Placeholder
}

// ConnectOptions is the validated, immutable result of ParseOptions.
type ConnectOptions interface {
	// Scheme returns the URI scheme the options were parsed from.
	Scheme() string

	// PoolHints returns sizing hints carried in the URI.
	PoolHints() PoolHints

	// Redacted returns the URI with secrets masked, for logs.
	Redacted() string
}

// PoolHints are optional pool settings embedded in a connection URI.
// Zero values mean "use the pool's configured default".
type PoolHints struct {
	MaxOpen     int
	IdleTimeout time.Duration
}

// ExecResult reports the effect of a non-row-returning statement.
type ExecResult struct {
	RowsAffected int64

	// LastInsertID is Null when the backend has no such concept.
	LastInsertID value.Value
}

// Conn is one live connection to a backend.
//
// Thread Safety:
//   - A Conn serves a single operation at a time. While an operation is in
//     flight, or a Rows is open, further calls fail with ErrBusy.
type Conn interface {
	// Execute runs a statement that does not return rows.
	Execute(ctx context.Context, sql string, params ...value.Value) (ExecResult, error)

	// Query runs a statement and returns a lazy, forward-only row sequence.
	// The connection stays busy until the sequence is drained or closed.
	Query(ctx context.Context, sql string, params ...value.Value) (Rows, error)

	// Ping checks liveness.
	Ping(ctx context.Context) error

	// Close releases the physical connection.
	Close() error
}

// Rows is a lazy, forward-only, non-restartable row sequence.
//
//	for rows.Next() {
//	    row := rows.Row()
//	}
//	if err := rows.Err(); err != nil { ... }
type Rows interface {
	// Next advances to the next row. It returns false when the sequence is
	// exhausted or failed; Err distinguishes the two.
	Next() bool

	// Row returns the current row.
	Row() value.Row

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the sequence. It is safe to call more than once.
	Close() error

	// MetaData describes the result columns.
	MetaData() MetaData
}

// MetaData describes the columns of a result.
type MetaData interface {
	ColumnLen() int
	ColumnName(i int) string

	// ColumnType returns a best-effort, adapter-specific type label.
	ColumnType(i int) string
}

// Collect drains rows into a slice and closes it.
func Collect(rows Rows) ([]value.Row, error) {
	defer rows.Close() //nolint:errcheck // Close error superseded by iteration error
	var out []value.Row
	for rows.Next() {
		out = append(out, rows.Row())
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	return out, rows.Close()
}
