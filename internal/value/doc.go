// Package value defines the backend-neutral representation of data exchanged
// with every database adapter.
//
// This package manages:
//   - Value: a tagged union over null, bool, int, float, decimal, string,
//     bytes, time and array payloads
//   - Row: an ordered sequence of (column name, Value) pairs
//   - Normalization of native driver values into Value (FromAny) and back
//     into bind parameters (Any)
//
// Adapters must never hand callers a driver-specific type. A native value
// that has no Value equivalent is reported as an error by FromAny rather than
// passed through.
//
// # Duplicate Columns
//
// A Row may carry several columns with the same name (SELECT 1 AS a, 2 AS a).
// Positional access always works; Lookup returns the first match.
//
// # Usage
//
//	row := value.NewRow([]string{"id", "name"}, []value.Value{value.Int(1), value.String("door")})
//	v, err := row.Get(1)
//	if err != nil {
//	    return err
//	}
//	name, _ := v.AsString()
package value
