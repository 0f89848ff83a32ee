package value

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnsupported is returned when a native value has no Value equivalent.
var ErrUnsupported = errors.New("value: unsupported native type")

// FromAny normalizes a value produced by a database driver.
//
// Unsigned integers above math.MaxInt64 become Decimal so they are never
// wrapped or truncated.
// Fixed 16-byte arrays are treated as UUIDs and rendered in canonical text
// form. Any other slice becomes an Array.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint:
		return fromUint(uint64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case decimal.Decimal:
		return Decimal(x), nil
	case *decimal.Decimal:
		if x == nil {
			return Null(), nil
		}
		return Decimal(*x), nil
	case string:
		return String(x), nil
	case []byte:
		if x == nil {
			return Null(), nil
		}
		return Bytes(x), nil
	case time.Time:
		return Time(x), nil
	case [16]byte:
		return String(uuid.UUID(x).String()), nil
	case uuid.UUID:
		return String(x.String()), nil
	case []any:
		return fromSlice(len(x), func(i int) any { return x[i] })
	case fmt.Stringer:
		return String(x.String()), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		return fromSlice(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	}
	return Null(), fmt.Errorf("%w: %T", ErrUnsupported, v)
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Decimal(decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)), nil
	}
	return Int(int64(u)), nil
}

func fromSlice(n int, at func(int) any) (Value, error) {
	out := make([]Value, n)
	for i := range out {
		e, err := FromAny(at(i))
		if err != nil {
			return Null(), fmt.Errorf("array element %d: %w", i, err)
		}
		out[i] = e
	}
	return Value{kind: KindArray, arr: out}, nil
}

// Any returns the payload as a plain Go value suitable for binding as a
// statement parameter. Null becomes nil and decimals become their string
// form, which every supported driver accepts.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d.String()
	case KindString:
		return v.s
	case KindBytes:
		return v.raw
	case KindTime:
		return v.t
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Any()
		}
		return out
	}
	return nil
}

// Args converts a parameter list for a driver call.
func Args(params []Value) []any {
	if len(params) == 0 {
		return nil
	}
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = p.Any()
	}
	return out
}
