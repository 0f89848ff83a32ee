// Package turso is the candidate adapter for libSQL databases.
//
// Local files and :memory: are served in-process by modernc.org/sqlite.
// Remote endpoints (libsql://, https://, http://) go through
// github.com/tursodatabase/libsql-client-go and always need a token.
//
// Column types are the runtime storage class of the first row's value
// (INTEGER, REAL, TEXT, BLOB). NULL values and empty results fall back to
// the affinity of the declared type.
//
// There is no fallback: when a remote endpoint is unreachable Connect
// fails with driver.ErrConnection.
package turso

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // registers "libsql"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/driver/sqlconn"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Name is the fixed adapter name.
const Name = "turso"

// Scheme is the URI scheme this adapter serves.
const Scheme = "turso"

const localBusyTimeoutMS = 5000

// Driver implements driver.Driver.
type Driver struct{}

// New returns the turso adapter.
func New() *Driver { return &Driver{} }

func (*Driver) Name() string                    { return Name }
func (*Driver) Placeholder() driver.Placeholder { return driver.Positional }

// ParseOptions implements driver.Driver.
func (*Driver) ParseOptions(uri string) (driver.ConnectOptions, error) {
	return parseOptions(uri)
}

// Connect implements driver.Driver.
func (*Driver) Connect(ctx context.Context, opts driver.ConnectOptions) (driver.Conn, error) {
	o, ok := opts.(*Options)
	if !ok {
		return nil, fmt.Errorf("%w: turso cannot use %T", driver.ErrConfig, opts)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	d := sqlconn.Dialect{
		Classify:     classify,
		ColumnType:   columnType,
		LastInsertID: true,
	}
	if o.JSONDetect {
		d.Normalize = normalizeJSON
	}

	if o.Remote() {
		return sqlconn.Open(ctx, "libsql", remoteDSN(o), d)
	}
	return sqlconn.Open(ctx, "sqlite", localDSN(o), d)
}

func remoteDSN(o *Options) string {
	sep := "?"
	if strings.Contains(o.URL, "?") {
		sep = "&"
	}
	return o.URL + sep + "authToken=" + url.QueryEscape(o.Token)
}

func localDSN(o *Options) string {
	if o.InMemory() {
		return memoryURL
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", o.URL, localBusyTimeoutMS)
}

func classify(err error) error {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		if strings.Contains(err.Error(), "401") || strings.Contains(strings.ToLower(err.Error()), "unauthorized") {
			return fmt.Errorf("%w: %w", driver.ErrAuth, err)
		}
		return nil
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR:
		return fmt.Errorf("%w: %w", driver.ErrConnection, err)
	case sqlite3.SQLITE_AUTH, sqlite3.SQLITE_PERM:
		return fmt.Errorf("%w: %w", driver.ErrAuth, err)
	}
	return driver.NewQueryError(strconv.Itoa(se.Code()), err)
}

func columnType(col *sql.ColumnType, first value.Value, ok bool) string {
	if ok && !first.IsNull() {
		return sqlconn.StorageClass(first)
	}
	if col == nil {
		return "NULL"
	}
	return affinity(col.DatabaseTypeName())
}

// affinity applies SQLite's type affinity rules to a declared type.
func affinity(declared string) string {
	t := strings.ToUpper(declared)
	switch {
	case t == "":
		return "NULL"
	case strings.Contains(t, "INT"):
		return "INTEGER"
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return "TEXT"
	case strings.Contains(t, "BLOB"):
		return "BLOB"
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return "REAL"
	}
	return "NUMERIC"
}
