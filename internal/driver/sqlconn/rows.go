package sqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Rows is a driver.Rows over *sql.Rows. The owning Conn stays busy until
// the sequence is drained, fails, or is closed.
type Rows struct {
	ctx   context.Context
	c     *Conn
	rows  *sql.Rows
	cols  []string
	types []*sql.ColumnType

	cur    value.Row
	first  []value.Value
	peeked bool
	err    error
	done   bool
}

// Next implements driver.Rows.
func (r *Rows) Next() bool {
	if r.peeked {
		r.peeked = false
		return true
	}
	return r.advance()
}

func (r *Rows) advance() bool {
	if r.done {
		return false
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			r.err = r.c.fail(r.ctx, err)
		}
		r.finish()
		return false
	}

	raw := make([]any, len(r.cols))
	dest := make([]any, len(r.cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		r.err = r.c.fail(r.ctx, err)
		r.finish()
		return false
	}

	vals := make([]value.Value, len(raw))
	for i, x := range raw {
		v, err := r.normalize(i, x)
		if err != nil {
			r.err = fmt.Errorf("%w: column %q: %w", driver.ErrQuery, r.cols[i], err)
			r.finish()
			return false
		}
		vals[i] = v
	}
	if r.first == nil {
		r.first = vals
	}
	r.cur = value.NewRow(r.cols, vals)
	return true
}

func (r *Rows) normalize(i int, raw any) (value.Value, error) {
	if r.c.dialect.Normalize != nil {
		var col *sql.ColumnType
		if i < len(r.types) {
			col = r.types[i]
		}
		return r.c.dialect.Normalize(raw, col)
	}
	return value.FromAny(raw)
}

// peek reads the first row ahead of the caller so column labels can use it.
func (r *Rows) peek() {
	if r.first != nil || r.done {
		return
	}
	r.peeked = r.advance()
}

// Row implements driver.Rows.
func (r *Rows) Row() value.Row { return r.cur }

// Err implements driver.Rows.
func (r *Rows) Err() error { return r.err }

// Close implements driver.Rows.
func (r *Rows) Close() error {
	if r.done {
		return nil
	}
	err := r.rows.Close()
	r.finish()
	if err != nil {
		return r.c.fail(r.ctx, err)
	}
	return nil
}

func (r *Rows) finish() {
	if r.done {
		return
	}
	r.done = true
	r.peeked = false
	r.rows.Close() //nolint:errcheck // Already reported via Err or Close
	r.c.guard.Release()
}

// MetaData implements driver.Rows.
func (r *Rows) MetaData() driver.MetaData { return meta{r} }

type meta struct{ r *Rows }

func (m meta) ColumnLen() int { return len(m.r.cols) }

func (m meta) ColumnName(i int) string {
	if i < 0 || i >= len(m.r.cols) {
		return ""
	}
	return m.r.cols[i]
}

func (m meta) ColumnType(i int) string {
	if i < 0 || i >= len(m.r.cols) {
		return ""
	}
	var col *sql.ColumnType
	if i < len(m.r.types) {
		col = m.r.types[i]
	}
	if m.r.c.dialect.ColumnType == nil {
		if col == nil {
			return ""
		}
		return strings.ToUpper(col.DatabaseTypeName())
	}
	m.r.peek()
	if m.r.first == nil {
		return m.r.c.dialect.ColumnType(col, value.Null(), false)
	}
	return m.r.c.dialect.ColumnType(col, m.r.first[i], true)
}
