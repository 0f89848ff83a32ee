package sqlconn

import "github.com/nerrad567/gray-logic-db/internal/value"

// StorageClass returns the SQLite storage class a value is held in.
func StorageClass(v value.Value) string {
	switch v.Kind() {
	case value.KindInt, value.KindBool:
		return "INTEGER"
	case value.KindFloat:
		return "REAL"
	case value.KindString, value.KindTime, value.KindDecimal:
		return "TEXT"
	case value.KindBytes:
		return "BLOB"
	}
	return "NULL"
}
