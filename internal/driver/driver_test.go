package driver_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/driver/drivertest"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

func TestPlaceholderExchange(t *testing.T) {
	tests := []struct {
		name  string
		style driver.Placeholder
		in    string
		want  string
	}{
		{"positional untouched", driver.Positional, "SELECT ? , ?", "SELECT ? , ?"},
		{"positional escape", driver.Positional, `SELECT '\?' , ?`, "SELECT '?' , ?"},
		{"numbered", driver.Numbered, "SELECT ? , ?", "SELECT $1 , $2"},
		{"named", driver.Named, "INSERT INTO t VALUES (?, ?, ?)", "INSERT INTO t VALUES (@p1, @p2, @p3)"},
		{"escaped marker not counted", driver.Numbered, `SELECT \?, ?`, "SELECT ?, $1"},
		{"other backslash kept", driver.Numbered, `SELECT '\n', ?`, `SELECT '\n', $1`},
		{"trailing backslash", driver.Numbered, `SELECT ?\`, `SELECT $1\`},
		{"no markers", driver.Named, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.style.Exchange(tt.in); got != tt.want {
				t.Errorf("Exchange(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPlaceholderMarker(t *testing.T) {
	if got := driver.Numbered.Marker(12); got != "$12" {
		t.Errorf("Numbered.Marker(12) = %q", got)
	}
	if got := driver.Named.Marker(1); got != "@p1" {
		t.Errorf("Named.Marker(1) = %q", got)
	}
	if got := driver.Positional.Marker(5); got != "?" {
		t.Errorf("Positional.Marker(5) = %q", got)
	}
}

func TestScheme(t *testing.T) {
	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{"sqlite://:memory:", "sqlite", false},
		{"Postgres://u@h/db", "postgres", false},
		{"turso:memory", "", true},
		{"://nothing", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := driver.Scheme(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scheme(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, driver.ErrConfig) {
				t.Errorf("Scheme(%q) error = %v, want ErrConfig", tt.uri, err)
			}
			if got != tt.want {
				t.Errorf("Scheme(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestTakePoolHints(t *testing.T) {
	q := url.Values{"max_open": {"4"}, "idle_timeout": {"90s"}, "sslmode": {"disable"}}
	h, err := driver.TakePoolHints(q)
	if err != nil {
		t.Fatalf("TakePoolHints() error = %v", err)
	}
	if h.MaxOpen != 4 || h.IdleTimeout != 90*time.Second {
		t.Errorf("TakePoolHints() = %+v", h)
	}
	if q.Has("max_open") || q.Has("idle_timeout") || !q.Has("sslmode") {
		t.Errorf("hint keys not removed cleanly: %v", q)
	}

	for _, bad := range []url.Values{{"max_open": {"0"}}, {"max_open": {"x"}}, {"idle_timeout": {"soon"}}} {
		if _, err := driver.TakePoolHints(bad); !errors.Is(err, driver.ErrConfig) {
			t.Errorf("TakePoolHints(%v) error = %v, want ErrConfig", bad, err)
		}
	}
}

func TestRedact(t *testing.T) {
	got := driver.Redact("postgres://app:hunter2@db:5432/main?sslmode=disable")
	if strings.Contains(got, "hunter2") {
		t.Errorf("Redact() leaked password: %s", got)
	}
	got = driver.Redact("turso://?url=libsql://x.turso.io&token=secret")
	if strings.Contains(got, "secret") {
		t.Errorf("Redact() leaked token: %s", got)
	}
}

func TestCatalogResolve(t *testing.T) {
	alpha := drivertest.New("alpha")
	beta := drivertest.New("beta")
	cat := driver.NewCatalog(
		driver.Entry{Driver: alpha, Schemes: []string{"alpha"}},
		driver.Entry{Driver: beta, Schemes: []string{"beta"}},
	)

	t.Run("selects exactly one adapter", func(t *testing.T) {
		d, opts, err := cat.Resolve("beta://db?max_open=3")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if d.Name() != "beta" {
			t.Errorf("Resolve() driver = %s, want beta", d.Name())
		}
		if opts.PoolHints().MaxOpen != 3 {
			t.Errorf("MaxOpen hint = %d, want 3", opts.PoolHints().MaxOpen)
		}
	})

	t.Run("unknown scheme", func(t *testing.T) {
		_, _, err := cat.Resolve("gamma://db")
		if !errors.Is(err, driver.ErrConfig) {
			t.Errorf("Resolve() error = %v, want ErrConfig", err)
		}
	})

	t.Run("malformed options", func(t *testing.T) {
		_, _, err := cat.Resolve("alpha://db?bogus=1")
		if !errors.Is(err, driver.ErrConfig) {
			t.Errorf("Resolve() error = %v, want ErrConfig", err)
		}
	})

	t.Run("duplicate scheme panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("NewCatalog() with duplicate scheme did not panic")
			}
		}()
		driver.NewCatalog(
			driver.Entry{Driver: alpha, Schemes: []string{"x"}},
			driver.Entry{Driver: beta, Schemes: []string{"x"}},
		)
	})

	if got := cat.Schemes(); len(got) != 2 || got[0] != "alpha" {
		t.Errorf("Schemes() = %v", got)
	}
}

func TestErrorKinds(t *testing.T) {
	qe := driver.NewQueryError("42P01", errors.New(`relation "x" does not exist`))
	if !errors.Is(qe, driver.ErrQuery) {
		t.Error("QueryError should match ErrQuery")
	}
	if !strings.Contains(qe.Error(), "42P01") {
		t.Errorf("QueryError.Error() = %q, want code", qe.Error())
	}

	tests := []struct {
		err       error
		retryable bool
		kind      error
	}{
		{fmt.Errorf("%w: refused", driver.ErrConnection), true, driver.ErrConnection},
		{fmt.Errorf("%w: waited 1s", driver.ErrPoolTimeout), true, driver.ErrPoolTimeout},
		{qe, false, driver.ErrQuery},
		{fmt.Errorf("%w: bad uri", driver.ErrConfig), false, driver.ErrConfig},
		{fmt.Errorf("%w: denied", driver.ErrAuth), false, driver.ErrAuth},
		{fmt.Errorf("%w: query", driver.ErrBusy), false, driver.ErrBusy},
		{context.Canceled, false, context.Canceled},
	}
	for _, tt := range tests {
		if got := driver.Retryable(tt.err); got != tt.retryable {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.retryable)
		}
		if got := driver.Kind(tt.err); got != tt.kind {
			t.Errorf("Kind(%v) = %v, want %v", tt.err, got, tt.kind)
		}
	}
}

func TestFakeConnBusyRule(t *testing.T) {
	d := drivertest.New("fake").WithResponder(func(string, []value.Value) (*drivertest.Result, error) {
		return &drivertest.Result{
			Columns: []string{"n"},
			Rows:    [][]value.Value{{value.Int(1)}, {value.Int(2)}},
		}, nil
	})
	opts, err := d.ParseOptions("fake://x")
	if err != nil {
		t.Fatalf("ParseOptions() error = %v", err)
	}
	conn, err := d.Connect(context.Background(), opts)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	rows, err := conn.Query(context.Background(), "SELECT n")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if _, err := conn.Query(context.Background(), "SELECT n"); !errors.Is(err, driver.ErrBusy) {
		t.Errorf("second Query() error = %v, want ErrBusy", err)
	}
	got, err := driver.Collect(rows)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Collect() returned %d rows, want 2", len(got))
	}
	if err := conn.Ping(context.Background()); err != nil {
		t.Errorf("Ping() after drain error = %v", err)
	}
}
