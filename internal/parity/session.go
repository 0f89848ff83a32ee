package parity

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Session is one scenario's view of one adapter: a fresh connection plus
// the adapter's placeholder style. Scenarios write SQL with ? markers.
type Session struct {
	adapter string
	conn    driver.Conn
	ph      driver.Placeholder
}

// NewSession wraps conn for a scenario run.
func NewSession(adapter string, conn driver.Conn, ph driver.Placeholder) *Session {
	return &Session{adapter: adapter, conn: conn, ph: ph}
}

// Adapter names the adapter behind the session.
func (s *Session) Adapter() string { return s.adapter }

// Exec runs a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, sql string, params ...value.Value) (driver.ExecResult, error) {
	return s.conn.Execute(ctx, s.ph.Exchange(sql), params...)
}

// MustExec runs setup statements, stopping at the first failure.
func (s *Session) MustExec(ctx context.Context, stmts ...string) error {
	for _, q := range stmts {
		if _, err := s.Exec(ctx, q); err != nil {
			return fmt.Errorf("setup %q: %w", q, err)
		}
	}
	return nil
}

// Result is a fully read query result.
type Result struct {
	Columns []string
	Types   []string
	Rows    []value.Row
}

// Query runs a statement and reads every row. Column metadata is captured
// before the rows are consumed.
func (s *Session) Query(ctx context.Context, sql string, params ...value.Value) (*Result, error) {
	rows, err := s.conn.Query(ctx, s.ph.Exchange(sql), params...)
	if err != nil {
		return nil, err
	}

	md := rows.MetaData()
	res := &Result{
		Columns: make([]string, md.ColumnLen()),
		Types:   make([]string, md.ColumnLen()),
	}
	for i := range res.Columns {
		res.Columns[i] = md.ColumnName(i)
		res.Types[i] = md.ColumnType(i)
	}

	res.Rows, err = driver.Collect(rows)
	if err != nil {
		return nil, err
	}
	return res, nil
}
