package parity

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/nerrad567/gray-logic-db/internal/value"
)

// BatteryVersion identifies the scenario set returned by DefaultBattery.
const BatteryVersion = "2025.1"

// Scenario is a deterministic sequence of contract operations. It must
// leave nothing behind that a later scenario could observe.
type Scenario struct {
	ID    string
	Title string
	Run   func(ctx context.Context, s *Session) (Observation, error)
	// Expect, when set, is evaluated against each adapter's observation.
	Expect Expectation
}

// Battery is a versioned, ordered scenario set.
type Battery struct {
	Version   string
	Scenarios []Scenario
}

// Find returns the scenario with the given id.
func (b Battery) Find(id string) (Scenario, bool) {
	for _, sc := range b.Scenarios {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Only returns a battery restricted to ids, keeping battery order.
func (b Battery) Only(ids ...string) Battery {
	if len(ids) == 0 {
		return b
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := Battery{Version: b.Version}
	for _, sc := range b.Scenarios {
		if want[sc.ID] {
			out.Scenarios = append(out.Scenarios, sc)
		}
	}
	return out
}

// DefaultBattery returns the value, row and metadata scenarios for
// SQLite-dialect adapters. Every table is TEMP so it vanishes with the
// scenario's connection.
func DefaultBattery() Battery {
	return Battery{
		Version: BatteryVersion,
		Scenarios: []Scenario{
			{ID: "PAR-001", Title: "null values", Run: nullValues,
				Expect: expectValues(value.Null(), value.Null(), value.Null())},
			{ID: "PAR-002", Title: "integer values", Run: integerValues, Expect: expectValues(integerInputs...)},
			{ID: "PAR-003", Title: "real values", Run: realValues, Expect: expectValues(realInputs...)},
			{ID: "PAR-004", Title: "text values", Run: textValues, Expect: expectValues(textInputs...)},
			{ID: "PAR-005", Title: "blob values", Run: blobValues, Expect: expectValues(blobInputs()...)},
			{ID: "PAR-006", Title: "JSON-looking text", Run: jsonText},
			{ID: "PAR-007", Title: "boolean binds read back as integers", Run: boolValues,
				Expect: expectValues(value.Int(1), value.Int(0))},
			{ID: "PAR-008", Title: "column count, names and types", Run: columnMetadata,
				Expect: allOf(expectEntry("meta.columns", value.Int(4)), expectEntry("meta.name[3]", value.String("name")))},
			{ID: "PAR-009", Title: "row access bounds", Run: rowBounds,
				Expect: expectValues(value.Int(2), value.Int(1), value.String("two"),
					value.Bool(true), value.Bool(true), value.Bool(false))},
			{ID: "PAR-010", Title: "insert rows affected and last insert id", Run: insertResult,
				Expect: allOf(expectEntry("insert[0].rows_affected", value.Int(1)), expectEntry("insert[1].rows_affected", value.Int(1)))},
			{ID: "PAR-011", Title: "update and delete rows affected", Run: updateDeleteResult,
				Expect: expectValues(value.Int(2), value.Int(0), value.Int(2), value.Int(2))},
			{ID: "PAR-012", Title: "mixed types in one row", Run: mixedRow},
			{ID: "PAR-013", Title: "collect all rows", Run: collectRows,
				Expect: expectValues(value.Int(3),
					value.String("a"), value.Int(1), value.String("b"), value.Int(2), value.String("c"), value.Int(3))},
			{ID: "PAR-014", Title: "empty result set metadata", Run: emptyResult,
				Expect: allOf(expectEntry("count", value.Int(0)), expectEntry("meta.columns", value.Int(3)))},
			{ID: "PAR-015", Title: "aliased column names", Run: aliasedColumns,
				Expect: allOf(expectEntry("name[0]", value.String("one")), expectEntry("name[1]", value.String("Two Words")))},
			{ID: "PAR-016", Title: "multi-row iteration order", Run: rowOrder,
				Expect: expectValues(value.Int(50), value.Int(1275), value.Bool(true))},
			{ID: "PAR-017", Title: "query on a missing table", Run: missingTable, Expect: expectError("query")},
			{ID: "PAR-018", Title: "duplicate column names", Run: duplicateColumns},
		},
	}
}

var (
	integerInputs = []value.Value{
		value.Int(0), value.Int(1), value.Int(-1), value.Int(42),
		value.Int(math.MaxInt64), value.Int(math.MinInt64),
	}
	realInputs = []value.Value{
		value.Float(0.5), value.Float(-1.25), value.Float(math.Pi),
		value.Float(1e300), value.Float(-2.5e-300),
	}
	textInputs = []value.Value{
		value.String(""), value.String("hello"), value.String("héllo wörld ✓"),
		value.String(`it's "quoted"`), value.String(strings.Repeat("x", 4096)),
	}
)

func blobInputs() []value.Value {
	pattern := make([]byte, 1024)
	for i := range pattern {
		pattern[i] = byte(i % 251)
	}
	return []value.Value{value.Bytes([]byte{0x00, 0x01, 0x02, 0xff}), value.Bytes(pattern)}
}

// roundTrip stores each value in a one-column TEMP table of the given type
// and reads them back in insertion order.
func roundTrip(ctx context.Context, s *Session, table, colType string, vals ...value.Value) (*Result, error) {
	if err := s.MustExec(ctx, fmt.Sprintf("CREATE TEMP TABLE %s (v %s)", table, colType)); err != nil {
		return nil, err
	}
	for _, v := range vals {
		if _, err := s.Exec(ctx, fmt.Sprintf("INSERT INTO %s (v) VALUES (?)", table), v); err != nil {
			return nil, err
		}
	}
	return s.Query(ctx, fmt.Sprintf("SELECT v FROM %s ORDER BY rowid", table))
}

func observeRoundTrip(ctx context.Context, s *Session, table, colType string, vals ...value.Value) (Observation, error) {
	res, err := roundTrip(ctx, s, table, colType, vals...)
	if err != nil {
		return Observation{}, err
	}
	var o Observation
	o.AddRows("row", res.Rows)
	return o, nil
}

func nullValues(ctx context.Context, s *Session) (Observation, error) {
	var o Observation
	res, err := s.Query(ctx, "SELECT NULL AS literal, ? AS bound", value.Null())
	if err != nil {
		return o, err
	}
	o.AddRows("select", res.Rows)

	res, err = roundTrip(ctx, s, "par_null", "TEXT", value.Null())
	if err != nil {
		return o, err
	}
	o.AddRows("stored", res.Rows)
	return o, nil
}

func integerValues(ctx context.Context, s *Session) (Observation, error) {
	return observeRoundTrip(ctx, s, "par_int", "INTEGER", integerInputs...)
}

func realValues(ctx context.Context, s *Session) (Observation, error) {
	return observeRoundTrip(ctx, s, "par_real", "REAL", realInputs...)
}

func textValues(ctx context.Context, s *Session) (Observation, error) {
	return observeRoundTrip(ctx, s, "par_text", "TEXT", textInputs...)
}

func blobValues(ctx context.Context, s *Session) (Observation, error) {
	return observeRoundTrip(ctx, s, "par_blob", "BLOB", blobInputs()...)
}

func jsonText(ctx context.Context, s *Session) (Observation, error) {
	return observeRoundTrip(ctx, s, "par_json", "TEXT",
		value.String(`{"a":1}`), value.String(`[1,2,3]`), value.String("null"),
		value.String("plain text"), value.String("12345"))
}

func boolValues(ctx context.Context, s *Session) (Observation, error) {
	return observeRoundTrip(ctx, s, "par_bool", "INTEGER", value.Bool(true), value.Bool(false))
}

func columnMetadata(ctx context.Context, s *Session) (Observation, error) {
	if err := s.MustExec(ctx,
		"CREATE TEMP TABLE par_meta (id INTEGER, flag BOOLEAN, created DATETIME, name TEXT)",
		"INSERT INTO par_meta VALUES (1, 1, '2024-01-01 00:00:00', 'a')",
	); err != nil {
		return Observation{}, err
	}
	res, err := s.Query(ctx, "SELECT id, flag, created, name FROM par_meta")
	if err != nil {
		return Observation{}, err
	}
	var o Observation
	o.AddMeta("meta", res)
	return o, nil
}

func rowBounds(ctx context.Context, s *Session) (Observation, error) {
	res, err := s.Query(ctx, "SELECT 1 AS a, 'two' AS b")
	if err != nil {
		return Observation{}, err
	}
	if len(res.Rows) != 1 {
		return Observation{}, fmt.Errorf("expected one row, got %d", len(res.Rows))
	}
	row := res.Rows[0]

	var o Observation
	o.Add("len", value.Int(int64(row.Len())))
	for _, i := range []int{0, 1, 2, -1} {
		v, err := row.Get(i)
		if err != nil {
			o.Add(fmt.Sprintf("get[%d].error", i), value.Bool(true))
			continue
		}
		o.Add(fmt.Sprintf("get[%d]", i), v)
	}
	_, found := row.Lookup("missing")
	o.Add("lookup.missing", value.Bool(found))
	return o, nil
}

func insertResult(ctx context.Context, s *Session) (Observation, error) {
	if err := s.MustExec(ctx, "CREATE TEMP TABLE par_insert (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		return Observation{}, err
	}
	var o Observation
	for i, name := range []string{"a", "b"} {
		res, err := s.Exec(ctx, "INSERT INTO par_insert (name) VALUES (?)", value.String(name))
		if err != nil {
			return o, err
		}
		o.Add(fmt.Sprintf("insert[%d].rows_affected", i), value.Int(res.RowsAffected))
		o.Add(fmt.Sprintf("insert[%d].last_insert_id", i), res.LastInsertID)
	}
	return o, nil
}

func updateDeleteResult(ctx context.Context, s *Session) (Observation, error) {
	if err := s.MustExec(ctx,
		"CREATE TEMP TABLE par_update (id INTEGER PRIMARY KEY, n INTEGER)",
		"INSERT INTO par_update (n) VALUES (1), (2), (3), (4)",
	); err != nil {
		return Observation{}, err
	}
	var o Observation
	for _, st := range []struct {
		label string
		sql   string
		arg   value.Value
	}{
		{"update.some", "UPDATE par_update SET n = n * 10 WHERE n > ?", value.Int(2)},
		{"update.none", "UPDATE par_update SET n = 0 WHERE n < ?", value.Int(0)},
		{"delete.some", "DELETE FROM par_update WHERE n >= ?", value.Int(30)},
		{"delete.rest", "DELETE FROM par_update WHERE n > ?", value.Int(-1)},
	} {
		res, err := s.Exec(ctx, st.sql, st.arg)
		if err != nil {
			return o, err
		}
		o.Add(st.label+".rows_affected", value.Int(res.RowsAffected))
	}
	return o, nil
}

func mixedRow(ctx context.Context, s *Session) (Observation, error) {
	res, err := s.Query(ctx, "SELECT 7 AS i, 2.5 AS f, 'x' AS t, X'0102' AS b, NULL AS n, ? AS p", value.String("bound"))
	if err != nil {
		return Observation{}, err
	}
	var o Observation
	o.AddRows("row", res.Rows)
	return o, nil
}

func collectRows(ctx context.Context, s *Session) (Observation, error) {
	if err := s.MustExec(ctx,
		"CREATE TEMP TABLE par_collect (k TEXT, v INTEGER)",
		"INSERT INTO par_collect VALUES ('a', 1), ('b', 2), ('c', 3)",
	); err != nil {
		return Observation{}, err
	}
	res, err := s.Query(ctx, "SELECT k, v FROM par_collect ORDER BY k")
	if err != nil {
		return Observation{}, err
	}
	var o Observation
	o.Add("count", value.Int(int64(len(res.Rows))))
	o.AddRows("row", res.Rows)
	return o, nil
}

func emptyResult(ctx context.Context, s *Session) (Observation, error) {
	if err := s.MustExec(ctx, "CREATE TEMP TABLE par_empty (id INTEGER, flag BOOLEAN, label VARCHAR(20))"); err != nil {
		return Observation{}, err
	}
	res, err := s.Query(ctx, "SELECT id, flag, label FROM par_empty")
	if err != nil {
		return Observation{}, err
	}
	var o Observation
	o.Add("count", value.Int(int64(len(res.Rows))))
	o.AddMeta("meta", res)
	return o, nil
}

func aliasedColumns(ctx context.Context, s *Session) (Observation, error) {
	res, err := s.Query(ctx, `SELECT 1 AS one, 'a' AS "Two Words", 3 + 4`)
	if err != nil {
		return Observation{}, err
	}
	var o Observation
	o.Add("columns", value.Int(int64(len(res.Columns))))
	for i, c := range res.Columns {
		o.Add(fmt.Sprintf("name[%d]", i), value.String(c))
	}
	return o, nil
}

func rowOrder(ctx context.Context, s *Session) (Observation, error) {
	if err := s.MustExec(ctx, "CREATE TEMP TABLE par_order (n INTEGER)"); err != nil {
		return Observation{}, err
	}
	for i := range 50 {
		if _, err := s.Exec(ctx, "INSERT INTO par_order (n) VALUES (?)", value.Int(int64(50-i))); err != nil {
			return Observation{}, err
		}
	}
	res, err := s.Query(ctx, "SELECT n FROM par_order ORDER BY n")
	if err != nil {
		return Observation{}, err
	}

	var o Observation
	o.Add("count", value.Int(int64(len(res.Rows))))
	var sum int64
	ordered := true
	prev := int64(math.MinInt64)
	for _, r := range res.Rows {
		v, err := r.Get(0)
		if err != nil {
			return o, err
		}
		n, ok := v.AsInt()
		if !ok {
			return o, fmt.Errorf("n is %s, not an integer", v.Describe())
		}
		ordered = ordered && n > prev
		prev = n
		sum += n
	}
	o.Add("sum", value.Int(sum))
	o.Add("ascending", value.Bool(ordered))
	return o, nil
}

func missingTable(ctx context.Context, s *Session) (Observation, error) {
	_, err := s.Query(ctx, "SELECT * FROM par_no_such_table")
	if err == nil {
		return Observation{}, nil
	}
	// The connection must stay usable after a failed statement.
	o := failed(err)
	if _, perr := s.Query(ctx, "SELECT 1"); perr != nil {
		o.Detail += "; follow-up query failed: " + perr.Error()
		o.Error += "+unusable"
	}
	return o, nil
}

func duplicateColumns(ctx context.Context, s *Session) (Observation, error) {
	res, err := s.Query(ctx, "SELECT 1 AS a, 2 AS a")
	if err != nil {
		return Observation{}, err
	}
	var o Observation
	o.AddRows("row", res.Rows)
	if len(res.Rows) == 1 {
		v, _ := res.Rows[0].Lookup("a")
		o.Add("lookup.a", v)
	}
	return o, nil
}
