package value

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestFromAny(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"bool", true, Bool(true)},
		{"int32", int32(-7), Int(-7)},
		{"uint16", uint16(9), Int(9)},
		{"uint64 small", uint64(42), Int(42)},
		{"uint64 max int", uint64(math.MaxInt64), Int(math.MaxInt64)},
		{"uint64 above int64", uint64(math.MaxUint64), Decimal(decimal.RequireFromString("18446744073709551615"))},
		{"float32", float32(1.5), Float(1.5)},
		{"string", "hello", String("hello")},
		{"bytes", []byte{0xde, 0xad}, Bytes([]byte{0xde, 0xad})},
		{"nil bytes", []byte(nil), Null()},
		{"time", ts, Time(ts)},
		{"decimal", decimal.RequireFromString("12.50"), Decimal(decimal.RequireFromString("12.5"))},
		{"uuid array", [16]byte(id), String(id.String())},
		{"slice", []any{int64(1), "a", nil}, Array(Int(1), String("a"), Null())},
		{"typed slice", []int32{1, 2}, Array(Int(1), Int(2))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			if err != nil {
				t.Fatalf("FromAny(%v) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("FromAny(%v) = %s, want %s", tt.in, got.Describe(), tt.want.Describe())
			}
		})
	}
}

func TestFromAnyRejectsUnmappable(t *testing.T) {
	if _, err := FromAny(map[string]int{"a": 1}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("FromAny(map) error = %v, want ErrUnsupported", err)
	}
	if _, err := FromAny(struct{}{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("FromAny(struct) error = %v, want ErrUnsupported", err)
	}
}

func TestEqualDistinguishesKinds(t *testing.T) {
	if Int(1).Equal(Bool(true)) {
		t.Error("Int(1) should not equal Bool(true)")
	}
	if Int(1).Equal(Float(1)) {
		t.Error("Int(1) should not equal Float(1)")
	}
	if !Null().Equal(Value{}) {
		t.Error("zero Value should be null")
	}
	if Array(Int(1)).Equal(Array(Int(1), Int(2))) {
		t.Error("arrays of different length should differ")
	}
}

func TestBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	v := Bytes(src)
	src[0] = 9

	got, ok := v.AsBytes()
	if !ok {
		t.Fatal("AsBytes() not ok")
	}
	if got[0] != 1 {
		t.Errorf("Bytes did not copy input, got %v", got)
	}
}

func TestAny(t *testing.T) {
	if Null().Any() != nil {
		t.Error("Null().Any() should be nil")
	}
	if got := Decimal(decimal.RequireFromString("3.14")).Any(); got != "3.14" {
		t.Errorf("Decimal.Any() = %v, want 3.14", got)
	}
	args := Args([]Value{Int(1), String("x")})
	if len(args) != 2 || args[0] != int64(1) || args[1] != "x" {
		t.Errorf("Args() = %v", args)
	}
}

func TestKindString(t *testing.T) {
	if KindDecimal.String() != "decimal" {
		t.Errorf("KindDecimal.String() = %q", KindDecimal.String())
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("Kind(99).String() = %q", Kind(99).String())
	}
}

func TestRow(t *testing.T) {
	row := NewRow([]string{"a", "a", "b"}, []Value{Int(1), Int(2), String("x")})

	t.Run("positional access", func(t *testing.T) {
		v, err := row.Get(1)
		if err != nil {
			t.Fatalf("Get(1) error = %v", err)
		}
		if !v.Equal(Int(2)) {
			t.Errorf("Get(1) = %s, want int(2)", v.Describe())
		}
	})

	t.Run("lookup returns first duplicate", func(t *testing.T) {
		v, ok := row.Lookup("a")
		if !ok || !v.Equal(Int(1)) {
			t.Errorf("Lookup(a) = %s, %v", v.Describe(), ok)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		if _, err := row.Get(3); err == nil {
			t.Error("Get(3) expected error")
		}
		if _, err := row.Get(-1); err == nil {
			t.Error("Get(-1) expected error")
		}
	})

	t.Run("string", func(t *testing.T) {
		want := `{a: int(1), a: int(2), b: string("x")}`
		if row.String() != want {
			t.Errorf("String() = %s, want %s", row.String(), want)
		}
	})
}
