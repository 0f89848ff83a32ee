package turso

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/driver/drivertest"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantURL    string
		wantMemory bool
		wantRemote bool
	}{
		{"scheme memory", "turso://:memory:", ":memory:", true, false},
		{"scheme empty", "turso://", ":memory:", true, false},
		{"bare memory", ":memory:", ":memory:", true, false},
		{"bare file", "/tmp/test.db", "/tmp/test.db", false, false},
		{"host path", "turso://myhost:8080", "myhost:8080", false, false},
		{"explicit remote", "turso://?url=libsql://mydb.turso.io&token=secret", "libsql://mydb.turso.io", false, true},
		{"https remote", "turso://?url=https://mydb.turso.io&token=t&json_detect=1", "https://mydb.turso.io", false, true},
		{"file with hints", "turso://data/app.db?max_open=2", "data/app.db", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOptions(tt.uri)
			if err != nil {
				t.Fatalf("parseOptions(%q) error = %v", tt.uri, err)
			}
			if got.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", got.URL, tt.wantURL)
			}
			if got.InMemory() != tt.wantMemory {
				t.Errorf("InMemory() = %v, want %v", got.InMemory(), tt.wantMemory)
			}
			if got.Remote() != tt.wantRemote {
				t.Errorf("Remote() = %v, want %v", got.Remote(), tt.wantRemote)
			}
		})
	}
}

func TestParseOptionsRejects(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantMsg string
	}{
		{"colon without slashes", "turso:some/path", "invalid URI scheme"},
		{"colon memory", "turso::memory:", "invalid URI scheme"},
		{"unknown parameter", "turso://?url=libsql://host&bogus=value", "unknown query parameter"},
		{"token without url", "turso://?token=secret", "no database URL"},
		{"remote without token", "turso://?url=libsql://mydb.turso.io", "token is required"},
		{"remote with blank token", "turso://?url=https://mydb.turso.io&token=%20", "token is required"},
		{"bad pool hint", "turso://a.db?max_open=zero", "max_open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().ParseOptions(tt.uri)
			if !errors.Is(err, driver.ErrConfig) {
				t.Fatalf("ParseOptions(%q) error = %v, want ErrConfig", tt.uri, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestJSONDetectFlag(t *testing.T) {
	for uri, want := range map[string]bool{
		"turso://a.db?json_detect=true":  true,
		"turso://a.db?json_detect=1":     true,
		"turso://a.db?json_detect=yes":   false,
		"turso://a.db":                   false,
		"turso://a.db?json_detect=false": false,
	} {
		o, err := parseOptions(uri)
		if err != nil {
			t.Fatalf("parseOptions(%q) error = %v", uri, err)
		}
		if o.JSONDetect != want {
			t.Errorf("parseOptions(%q).JSONDetect = %v, want %v", uri, o.JSONDetect, want)
		}
	}
}

func TestRedactedHidesToken(t *testing.T) {
	o, err := parseOptions("turso://?url=libsql://mydb.turso.io&token=secret")
	if err != nil {
		t.Fatalf("parseOptions() error = %v", err)
	}
	if strings.Contains(o.Redacted(), "secret") {
		t.Errorf("Redacted() = %s leaks token", o.Redacted())
	}
	if got := remoteDSN(o); got != "libsql://mydb.turso.io?authToken=secret" {
		t.Errorf("remoteDSN() = %s", got)
	}
}

func TestConformance(t *testing.T) {
	drivertest.RunConformance(t, drivertest.Target{Driver: New(), URI: "turso://:memory:"})
}

func TestColumnTypeIsRuntimeClass(t *testing.T) {
	d := New()
	opts, _ := d.ParseOptions("turso://:memory:")
	ctx := context.Background()
	conn, err := d.Connect(ctx, opts)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	if _, err := conn.Execute(ctx, "CREATE TABLE t (name VARCHAR(64), n INTEGER)"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := conn.Execute(ctx, "INSERT INTO t VALUES (?, ?)", value.String("x"), value.Null()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	rows, err := conn.Query(ctx, "SELECT name, n FROM t")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	md := rows.MetaData()
	if got := md.ColumnType(0); got != "TEXT" {
		t.Errorf("ColumnType(0) = %q, want TEXT", got)
	}
	if got := md.ColumnType(1); got != "INTEGER" {
		t.Errorf("ColumnType(1) = %q, want INTEGER (declared fallback for null)", got)
	}
	if _, err := driver.Collect(rows); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
}

func TestColumnTypeEmptyResultUsesDeclaredAffinity(t *testing.T) {
	d := New()
	opts, _ := d.ParseOptions("turso://:memory:")
	ctx := context.Background()
	conn, err := d.Connect(ctx, opts)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	if _, err := conn.Execute(ctx, "CREATE TABLE t (d DOUBLE, b BLOB, x DECIMAL(10,2), n BIGINT)"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	rows, err := conn.Query(ctx, "SELECT d, b, x, n FROM t")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	md := rows.MetaData()
	for i, want := range []string{"REAL", "BLOB", "NUMERIC", "INTEGER"} {
		if got := md.ColumnType(i); got != want {
			t.Errorf("ColumnType(%d) = %q, want %q", i, got, want)
		}
	}
	got, err := driver.Collect(rows)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("rows = %d, want 0", len(got))
	}
}

func TestBoolReadsBackAsInteger(t *testing.T) {
	d := New()
	opts, _ := d.ParseOptions("turso://")
	ctx := context.Background()
	conn, err := d.Connect(ctx, opts)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	rows, err := conn.Query(ctx, "SELECT ?", value.Bool(true))
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	got, err := driver.Collect(rows)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	v, _ := got[0].Get(0)
	if !v.Equal(value.Int(1)) {
		t.Errorf("bool bind read back as %s, want int(1)", v.Describe())
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		in   string
		want value.Value
	}{
		{"null", value.Null()},
		{"[1, 2.5, \"a\", true, null]", value.Array(value.Int(1), value.Float(2.5), value.String("a"), value.Bool(true), value.Null())},
		{`{"a":1}`, value.String(`{"a":1}`)},
		{"[not json]", value.String("[not json]")},
		{"[1] [2]", value.String("[1] [2]")},
		{"plain", value.String("plain")},
		{`[{"k":"v"}]`, value.Array(value.String(`{"k":"v"}`))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := decodeText(tt.in); !got.Equal(tt.want) {
				t.Errorf("decodeText(%q) = %s, want %s", tt.in, got.Describe(), tt.want.Describe())
			}
		})
	}
}

func TestAffinity(t *testing.T) {
	for in, want := range map[string]string{
		"":            "NULL",
		"BIGINT":      "INTEGER",
		"varchar(10)": "TEXT",
		"BLOB":        "BLOB",
		"DOUBLE":      "REAL",
		"DECIMAL":     "NUMERIC",
	} {
		if got := affinity(in); got != want {
			t.Errorf("affinity(%q) = %q, want %q", in, got, want)
		}
	}
}
