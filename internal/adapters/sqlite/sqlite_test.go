package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/driver/drivertest"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
		check   func(t *testing.T, o *Options)
	}{
		{
			name: "memory",
			uri:  "sqlite://:memory:",
			check: func(t *testing.T, o *Options) {
				if !o.InMemory() {
					t.Error("expected in-memory")
				}
				if strings.Contains(o.DSN(), "_journal_mode") {
					t.Errorf("DSN() = %s, journal mode should be skipped in memory", o.DSN())
				}
			},
		},
		{
			name: "file with options",
			uri:  "sqlite://data/app.db?busy_timeout=250&journal_mode=delete&foreign_keys=false&max_open=2",
			check: func(t *testing.T, o *Options) {
				if o.Path != "data/app.db" || o.BusyTimeout != 250 || o.JournalMode != "delete" || o.ForeignKeys {
					t.Errorf("options = %+v", o)
				}
				if o.PoolHints().MaxOpen != 2 {
					t.Errorf("MaxOpen hint = %d", o.PoolHints().MaxOpen)
				}
				if o.DSN() != "file:data/app.db?_busy_timeout=250&_journal_mode=DELETE" {
					t.Errorf("DSN() = %s", o.DSN())
				}
			},
		},
		{
			name: "absolute path defaults to wal",
			uri:  "sqlite:///var/lib/app.db",
			check: func(t *testing.T, o *Options) {
				want := "file:/var/lib/app.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL"
				if o.DSN() != want {
					t.Errorf("DSN() = %s, want %s", o.DSN(), want)
				}
			},
		},
		{name: "wrong scheme", uri: "postgres://x", wantErr: true},
		{name: "missing slashes", uri: "sqlite:app.db", wantErr: true},
		{name: "empty path", uri: "sqlite://", wantErr: true},
		{name: "unknown key", uri: "sqlite://a.db?cache=shared", wantErr: true},
		{name: "bad busy timeout", uri: "sqlite://a.db?busy_timeout=-1", wantErr: true},
		{name: "bad journal mode", uri: "sqlite://a.db?journal_mode=fast", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := New().ParseOptions(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, driver.ErrConfig) {
					t.Fatalf("ParseOptions(%q) error = %v, want ErrConfig", tt.uri, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOptions(%q) error = %v", tt.uri, err)
			}
			tt.check(t, opts.(*Options))
		})
	}
}

func TestConformance(t *testing.T) {
	drivertest.RunConformance(t, drivertest.Target{Driver: New(), URI: "sqlite://:memory:"})
}

func TestFileDatabaseSharedAcrossConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	d := New()
	opts, err := d.ParseOptions("sqlite://" + path)
	if err != nil {
		t.Fatalf("ParseOptions() error = %v", err)
	}
	ctx := context.Background()

	a, err := d.Connect(ctx, opts)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer a.Close() //nolint:errcheck // Test cleanup
	b, err := d.Connect(ctx, opts)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer b.Close() //nolint:errcheck // Test cleanup

	if _, err := a.Execute(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, label TEXT)"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	res, err := a.Execute(ctx, "INSERT INTO t (label) VALUES (?)", value.String("hall"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.LastInsertID.Equal(value.Int(1)) {
		t.Errorf("LastInsertID = %s, want int(1)", res.LastInsertID.Describe())
	}

	rows, err := b.Query(ctx, "SELECT label FROM t")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	got, err := driver.Collect(rows)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
}

func TestColumnTypesAreDeclared(t *testing.T) {
	d := New()
	opts, _ := d.ParseOptions("sqlite://:memory:")
	ctx := context.Background()
	conn, err := d.Connect(ctx, opts)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	if _, err := conn.Execute(ctx, "CREATE TABLE t (name VARCHAR(64), n INTEGER)"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := conn.Execute(ctx, "INSERT INTO t VALUES ('x', NULL)"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	rows, err := conn.Query(ctx, "SELECT name, n, 1.5 AS f FROM t")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	md := rows.MetaData()
	for i, want := range []string{"VARCHAR(64)", "INTEGER", "REAL"} {
		if got := md.ColumnType(i); got != want {
			t.Errorf("ColumnType(%d) = %q, want %q", i, got, want)
		}
	}
	got, err := driver.Collect(rows)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("peeked row lost: got %d rows, want 1", len(got))
	}
}
