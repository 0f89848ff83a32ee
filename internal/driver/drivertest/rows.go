package drivertest

import (
	"sync"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Rows serves a precomputed Result as a driver.Rows.
type Rows struct {
	res     *Result
	pos     int
	cur     value.Row
	once    sync.Once
	release func()
}

// NewRows wraps res. release runs once, when the sequence is drained or closed.
func NewRows(res *Result, release func()) *Rows {
	if release == nil {
		release = func() {}
	}
	return &Rows{res: res, pos: -1, release: release}
}

func (r *Rows) Next() bool {
	if r.pos+1 >= len(r.res.Rows) {
		r.Close() //nolint:errcheck // Never fails
		return false
	}
	r.pos++
	r.cur = value.NewRow(r.res.Columns, r.res.Rows[r.pos])
	return true
}

func (r *Rows) Row() value.Row { return r.cur }
func (r *Rows) Err() error     { return nil }

func (r *Rows) Close() error {
	r.once.Do(r.release)
	return nil
}

func (r *Rows) MetaData() driver.MetaData { return meta{r.res} }

type meta struct{ res *Result }

func (m meta) ColumnLen() int { return len(m.res.Columns) }

func (m meta) ColumnName(i int) string {
	if i < 0 || i >= len(m.res.Columns) {
		return ""
	}
	return m.res.Columns[i]
}

func (m meta) ColumnType(i int) string {
	if i < 0 || i >= len(m.res.Types) {
		return ""
	}
	return m.res.Types[i]
}
