package turso

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/nerrad567/gray-logic-db/internal/value"
)

// normalizeJSON decodes TEXT values that hold JSON arrays into Array
// values and the literal "null" into Null. Objects have no Value
// equivalent and stay text. Invalid JSON is returned unchanged.
func normalizeJSON(raw any, _ *sql.ColumnType) (value.Value, error) {
	s, ok := raw.(string)
	if !ok {
		return value.FromAny(raw)
	}
	return decodeText(s), nil
}

func decodeText(s string) value.Value {
	t := strings.TrimSpace(s)
	if t == "null" {
		return value.Null()
	}
	if len(t) < 2 || t[0] != '[' || t[len(t)-1] != ']' {
		return value.String(s)
	}

	dec := json.NewDecoder(strings.NewReader(t))
	dec.UseNumber()
	var x []any
	if err := dec.Decode(&x); err != nil || dec.More() {
		return value.String(s)
	}
	return fromJSON(x)
}

func fromJSON(x any) value.Value {
	switch v := x.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return value.Int(i)
		}
		f, _ := v.Float64()
		return value.Float(f)
	case string:
		return value.String(v)
	case []any:
		out := make([]value.Value, len(v))
		for i, e := range v {
			out[i] = fromJSON(e)
		}
		return value.Array(out...)
	}
	b, err := json.Marshal(x)
	if err != nil {
		return value.Null()
	}
	return value.String(string(b))
}
