// Package sqlite is the embedded reference adapter, backed by
// github.com/mattn/go-sqlite3.
//
// URI forms:
//
//	sqlite://:memory:
//	sqlite://data/app.db?busy_timeout=5000&journal_mode=wal
//	sqlite:///var/lib/graydb/app.db?foreign_keys=off
//
// Every connection to :memory: is its own private database.
//
// Column types are the declared types from the table schema. Expressions
// without a declared type are labelled with the storage class of their
// first value.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/driver/sqlconn"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Name is the fixed adapter name.
const Name = "sqlite"

// Scheme is the URI scheme this adapter serves.
const Scheme = "sqlite"

const (
	defaultBusyTimeoutMS = 5000
	memoryPath           = ":memory:"
)

// Driver implements driver.Driver.
type Driver struct{}

// New returns the sqlite adapter.
func New() *Driver { return &Driver{} }

func (*Driver) Name() string                    { return Name }
func (*Driver) Placeholder() driver.Placeholder { return driver.Positional }

// Options are parsed sqlite connection options.
type Options struct {
	Path        string
	BusyTimeout int
	JournalMode string
	ForeignKeys bool

	hints driver.PoolHints
}

func (o *Options) Scheme() string              { return Scheme }
func (o *Options) PoolHints() driver.PoolHints { return o.hints }
func (o *Options) Redacted() string            { return Scheme + "://" + o.Path }

// InMemory reports whether the options target a private in-memory database.
func (o *Options) InMemory() bool { return o.Path == memoryPath }

// DSN builds the go-sqlite3 data source name.
func (o *Options) DSN() string {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", o.Path, o.BusyTimeout)
	if o.ForeignKeys {
		dsn += "&_foreign_keys=on"
	}
	if o.JournalMode != "" && !o.InMemory() {
		dsn += "&_journal_mode=" + strings.ToUpper(o.JournalMode)
		if strings.EqualFold(o.JournalMode, "wal") {
			dsn += "&_synchronous=NORMAL"
		}
	}
	return dsn
}

var journalModes = map[string]bool{"delete": true, "truncate": true, "persist": true, "memory": true, "wal": true, "off": true}

// ParseOptions implements driver.Driver.
func (*Driver) ParseOptions(uri string) (driver.ConnectOptions, error) {
	rest, ok := strings.CutPrefix(uri, Scheme+"://")
	if !ok {
		return nil, fmt.Errorf("%w: sqlite URI must start with %s://", driver.ErrConfig, Scheme)
	}
	path, rawQuery, _ := strings.Cut(rest, "?")
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite URI has no database path", driver.ErrConfig)
	}

	u, err := driver.ParseURL("x://h?" + rawQuery)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	hints, err := driver.TakePoolHints(q)
	if err != nil {
		return nil, err
	}

	opts := &Options{Path: path, BusyTimeout: defaultBusyTimeoutMS, JournalMode: "wal", ForeignKeys: true, hints: hints}
	for key := range q {
		v := q.Get(key)
		switch key {
		case "busy_timeout":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: busy_timeout must be milliseconds, got %q", driver.ErrConfig, v)
			}
			opts.BusyTimeout = n
		case "journal_mode":
			if !journalModes[strings.ToLower(v)] {
				return nil, fmt.Errorf("%w: unsupported journal_mode %q", driver.ErrConfig, v)
			}
			opts.JournalMode = strings.ToLower(v)
		case "foreign_keys":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%w: foreign_keys must be a boolean, got %q", driver.ErrConfig, v)
			}
			opts.ForeignKeys = b
		default:
			return nil, fmt.Errorf("%w: unknown query parameter %q", driver.ErrConfig, key)
		}
	}
	return opts, nil
}

// Connect implements driver.Driver.
func (*Driver) Connect(ctx context.Context, opts driver.ConnectOptions) (driver.Conn, error) {
	o, ok := opts.(*Options)
	if !ok {
		return nil, fmt.Errorf("%w: sqlite cannot use %T", driver.ErrConfig, opts)
	}
	return sqlconn.Open(ctx, "sqlite3", o.DSN(), dialect)
}

var dialect = sqlconn.Dialect{
	Classify:     classify,
	ColumnType:   columnType,
	LastInsertID: true,
}

func classify(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return nil
	}
	switch se.Code {
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrIoErr:
		return fmt.Errorf("%w: %w", driver.ErrConnection, err)
	case sqlite3.ErrAuth, sqlite3.ErrPerm:
		return fmt.Errorf("%w: %w", driver.ErrAuth, err)
	}
	return driver.NewQueryError(strconv.Itoa(int(se.ExtendedCode)), err)
}

func columnType(col *sql.ColumnType, first value.Value, ok bool) string {
	if col != nil {
		if declared := strings.ToUpper(col.DatabaseTypeName()); declared != "" {
			return declared
		}
	}
	if !ok {
		return ""
	}
	return sqlconn.StorageClass(first)
}
