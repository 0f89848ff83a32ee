package postgres

import (
	"context"
	sqldriver "database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Conn is a driver.Conn over one *pgx.Conn.
type Conn struct {
	conn   *pgx.Conn
	guard  driver.Guard
	closed atomic.Bool
}

// Execute implements driver.Conn.
func (c *Conn) Execute(ctx context.Context, sql string, params ...value.Value) (driver.ExecResult, error) {
	if err := c.begin("execute"); err != nil {
		return driver.ExecResult{}, err
	}
	defer c.guard.Release()

	tag, err := c.conn.Exec(ctx, sql, value.Args(params)...)
	if err != nil {
		return driver.ExecResult{}, c.fail(ctx, err)
	}
	return driver.ExecResult{RowsAffected: tag.RowsAffected(), LastInsertID: value.Null()}, nil
}

// Query implements driver.Conn.
func (c *Conn) Query(ctx context.Context, sql string, params ...value.Value) (driver.Rows, error) {
	if err := c.begin("query"); err != nil {
		return nil, err
	}
	rows, err := c.conn.Query(ctx, sql, value.Args(params)...)
	if err != nil {
		c.guard.Release()
		return nil, c.fail(ctx, err)
	}

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	types := make([]string, len(fields))
	tm := c.conn.TypeMap()
	for i, f := range fields {
		cols[i] = f.Name
		if t, ok := tm.TypeForOID(f.DataTypeOID); ok {
			types[i] = strings.ToUpper(t.Name)
		} else {
			types[i] = "OID" + strconv.FormatUint(uint64(f.DataTypeOID), 10)
		}
	}
	return &Rows{ctx: ctx, c: c, rows: rows, cols: cols, types: types}, nil
}

// Ping implements driver.Conn.
func (c *Conn) Ping(ctx context.Context) error {
	if c.closed.Load() || c.conn.IsClosed() {
		return fmt.Errorf("%w: connection closed", driver.ErrConnection)
	}
	if c.guard.Broken() {
		return fmt.Errorf("%w: connection left in unknown state", driver.ErrConnection)
	}
	if err := c.begin("ping"); err != nil {
		return err
	}
	defer c.guard.Release()
	if err := c.conn.Ping(ctx); err != nil {
		c.guard.MarkBroken()
		return fmt.Errorf("%w: ping: %w", driver.ErrConnection, err)
	}
	return nil
}

// Close implements driver.Conn.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return c.conn.Close(ctx)
}

func (c *Conn) begin(op string) error {
	if c.closed.Load() {
		return fmt.Errorf("%w: %s on closed connection", driver.ErrConnection, op)
	}
	return c.guard.Acquire(op)
}

func (c *Conn) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.guard.MarkBroken()
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	if mapped := classify(err); mapped != nil {
		if errors.Is(mapped, driver.ErrConnection) {
			c.guard.MarkBroken()
		}
		return mapped
	}
	if c.conn.IsClosed() {
		c.guard.MarkBroken()
		return fmt.Errorf("%w: %w", driver.ErrConnection, err)
	}
	return driver.NewQueryError("", err)
}

// Rows is a driver.Rows over pgx.Rows.
type Rows struct {
	ctx   context.Context
	c     *Conn
	rows  pgx.Rows
	cols  []string
	types []string
	cur   value.Row
	err   error
	done  bool
}

// Next implements driver.Rows.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	if !r.rows.Next() {
		r.finish()
		return false
	}
	raw, err := r.rows.Values()
	if err != nil {
		r.err = r.c.fail(r.ctx, err)
		r.finish()
		return false
	}
	vals := make([]value.Value, len(raw))
	for i, x := range raw {
		v, err := normalize(x)
		if err != nil {
			r.err = fmt.Errorf("%w: column %q: %w", driver.ErrQuery, r.cols[i], err)
			r.finish()
			return false
		}
		vals[i] = v
	}
	r.cur = value.NewRow(r.cols, vals)
	return true
}

func (r *Rows) Row() value.Row { return r.cur }
func (r *Rows) Err() error     { return r.err }

// Close implements driver.Rows.
func (r *Rows) Close() error {
	r.finish()
	return r.err
}

func (r *Rows) finish() {
	if r.done {
		return
	}
	r.done = true
	r.rows.Close()
	if err := r.rows.Err(); err != nil && r.err == nil {
		r.err = r.c.fail(r.ctx, err)
	}
	r.c.guard.Release()
}

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
	if i < 0 || i >= len(m.r.types) {
		return ""
	}
	return m.r.types[i]
}

// normalize maps pgx's decoded Go values onto value.Value.
func normalize(raw any) (value.Value, error) {
	switch x := raw.(type) {
	case pgtype.Numeric:
		return numeric(x)
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return value.Null(), err
		}
		return value.String(string(b)), nil
	case sqldriver.Valuer:
		v, err := x.Value()
		if err != nil {
			return value.Null(), err
		}
		return value.FromAny(v)
	}
	return value.FromAny(raw)
}

func numeric(n pgtype.Numeric) (value.Value, error) {
	if !n.Valid {
		return value.Null(), nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		f, err := n.Float64Value()
		if err != nil {
			return value.Null(), err
		}
		return value.Float(f.Float64), nil
	}
	return value.Decimal(decimal.NewFromBigInt(n.Int, n.Exp)), nil
}
