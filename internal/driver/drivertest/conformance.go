package drivertest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Target names a real adapter and a URI it can reach.
type Target struct {
	Driver driver.Driver
	URI    string
}

// RunConformance exercises the capability contract against a real backend.
// Every adapter package calls it from its own tests.
func RunConformance(t *testing.T, target Target) {
	t.Helper()
	ph := target.Driver.Placeholder()

	open := func(t *testing.T) driver.Conn {
		t.Helper()
		opts, err := target.Driver.ParseOptions(target.URI)
		if err != nil {
			t.Fatalf("ParseOptions() error = %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		conn, err := target.Driver.Connect(ctx, opts)
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		t.Cleanup(func() { conn.Close() }) //nolint:errcheck // Test cleanup
		return conn
	}

	exec := func(t *testing.T, conn driver.Conn, sql string, params ...value.Value) driver.ExecResult {
		t.Helper()
		res, err := conn.Execute(context.Background(), ph.Exchange(sql), params...)
		if err != nil {
			t.Fatalf("Execute(%q) error = %v", sql, err)
		}
		return res
	}

	setup := func(t *testing.T, conn driver.Conn) {
		t.Helper()
		exec(t, conn, "DROP TABLE IF EXISTS conformance_items")
		exec(t, conn, "CREATE TABLE conformance_items (id INTEGER PRIMARY KEY, name VARCHAR(64), qty INTEGER)")
	}

	t.Run("parse then ping", func(t *testing.T) {
		conn := open(t)
		if err := conn.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("execute reports rows affected", func(t *testing.T) {
		conn := open(t)
		setup(t, conn)
		res := exec(t, conn, "INSERT INTO conformance_items (id, name, qty) VALUES (?, ?, ?)",
			value.Int(1), value.String("valve"), value.Int(3))
		if res.RowsAffected != 1 {
			t.Errorf("RowsAffected = %d, want 1", res.RowsAffected)
		}
		res = exec(t, conn, "UPDATE conformance_items SET qty = qty + 1 WHERE id > ?", value.Int(100))
		if res.RowsAffected != 0 {
			t.Errorf("RowsAffected = %d, want 0", res.RowsAffected)
		}
	})

	t.Run("query preserves order and metadata", func(t *testing.T) {
		conn := open(t)
		setup(t, conn)
		for i, name := range []string{"a", "b", "c"} {
			exec(t, conn, "INSERT INTO conformance_items (id, name, qty) VALUES (?, ?, ?)",
				value.Int(int64(i+1)), value.String(name), value.Null())
		}

		rows, err := conn.Query(context.Background(), ph.Exchange("SELECT id, name, qty FROM conformance_items ORDER BY id"))
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		md := rows.MetaData()
		if md.ColumnLen() != 3 {
			t.Fatalf("ColumnLen() = %d, want 3", md.ColumnLen())
		}
		for i, want := range []string{"id", "name", "qty"} {
			if got := md.ColumnName(i); got != want {
				t.Errorf("ColumnName(%d) = %q, want %q", i, got, want)
			}
		}

		got, err := driver.Collect(rows)
		if err != nil {
			t.Fatalf("Collect() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d rows, want 3", len(got))
		}
		for i, name := range []string{"a", "b", "c"} {
			v, _ := got[i].Get(1)
			if !v.Equal(value.String(name)) {
				t.Errorf("row %d name = %s, want %q", i, v.Describe(), name)
			}
			q, _ := got[i].Get(2)
			if !q.IsNull() {
				t.Errorf("row %d qty = %s, want null", i, q.Describe())
			}
		}
	})

	t.Run("open rows make connection busy", func(t *testing.T) {
		conn := open(t)
		setup(t, conn)
		exec(t, conn, "INSERT INTO conformance_items (id, name, qty) VALUES (1, 'x', 1)")
		exec(t, conn, "INSERT INTO conformance_items (id, name, qty) VALUES (2, 'y', 2)")

		rows, err := conn.Query(context.Background(), "SELECT id FROM conformance_items")
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if !rows.Next() {
			t.Fatalf("Next() = false, err = %v", rows.Err())
		}
		if _, err := conn.Execute(context.Background(), "DELETE FROM conformance_items"); !errors.Is(err, driver.ErrBusy) {
			t.Errorf("Execute() with open rows error = %v, want ErrBusy", err)
		}
		if err := rows.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := conn.Execute(context.Background(), "DELETE FROM conformance_items"); err != nil {
			t.Errorf("Execute() after Close error = %v", err)
		}
	})

	t.Run("query error leaves connection usable", func(t *testing.T) {
		conn := open(t)
		_, err := conn.Query(context.Background(), "SELECT * FROM conformance_missing_table")
		if !errors.Is(err, driver.ErrQuery) {
			t.Fatalf("Query() error = %v, want ErrQuery", err)
		}
		if driver.Retryable(err) {
			t.Error("query error should not be retryable")
		}
		if err := conn.Ping(context.Background()); err != nil {
			t.Errorf("Ping() after query error = %v", err)
		}
	})

	t.Run("closed connection refuses work", func(t *testing.T) {
		conn := open(t)
		if err := conn.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := conn.Ping(context.Background()); err == nil {
			t.Error("Ping() after Close expected error")
		}
	})
}
