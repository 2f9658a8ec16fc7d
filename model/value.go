package model

import (
	"cmp"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unique"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindTime represents a point in time (UTC, nanosecond precision).
	KindTime
	// KindArray represents an array value.
	KindArray
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// Value is a small typed value used for element properties and index keys.
//
// No reflection and no fmt-based stringification: comparisons and hashing
// work directly on the typed fields.
//
// NOTE: This is also used for persistence; keep it stable.
type Value struct {
	Kind Kind                  `json:"k"`
	I64  int64                 `json:"i,omitempty"`
	F64  float64               `json:"f,omitempty"`
	s    unique.Handle[string] `json:"-"` // interned string
	B    bool                  `json:"b,omitempty"`
	A    []Value               `json:"a,omitempty"`
}

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, s: unique.Make(v)} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Time returns a time Value. The location is dropped.
func Time(v time.Time) Value { return Value{Kind: KindTime, I64: v.UnixNano()} }

// Array returns an array Value.
func Array(v ...Value) Value { return Value{Kind: KindArray, A: v} }

// Floats returns an array Value of floats, used for spatial points.
func Floats(v ...float64) Value {
	a := make([]Value, len(v))
	for i, f := range v {
		a[i] = Float(f)
	}
	return Value{Kind: KindArray, A: a}
}

// ValueOf coerces a Go value into a Value.
//
// Supported inputs are the Go integer and float types, string, bool,
// time.Time, nil, Value itself and slices of any supported type.
// ok is false for anything else.
func ValueOf(v any) (Value, bool) {
	switch x := v.(type) {
	case nil:
		return Null(), true
	case Value:
		return x, x.Kind != KindInvalid
	case int:
		return Int(int64(x)), true
	case int8:
		return Int(int64(x)), true
	case int16:
		return Int(int64(x)), true
	case int32:
		return Int(int64(x)), true
	case int64:
		return Int(x), true
	case uint8:
		return Int(int64(x)), true
	case uint16:
		return Int(int64(x)), true
	case uint32:
		return Int(int64(x)), true
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, false
		}
		return Int(int64(x)), true
	case float32:
		return Float(float64(x)), true
	case float64:
		return Float(x), true
	case string:
		return String(x), true
	case bool:
		return Bool(x), true
	case time.Time:
		return Time(x), true
	case []float64:
		return Floats(x...), true
	case []string:
		a := make([]Value, len(x))
		for i := range x {
			a[i] = String(x[i])
		}
		return Array(a...), true
	case []any:
		a := make([]Value, len(x))
		for i := range x {
			item, ok := ValueOf(x[i])
			if !ok {
				return Value{}, false
			}
			a[i] = item
		}
		return Array(a...), true
	default:
		return Value{}, false
	}
}

// StringValue returns the string value if Kind is KindString, otherwise empty string.
func (v Value) StringValue() string {
	if v.Kind == KindString {
		return v.s.Value()
	}
	return ""
}

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat64 returns the numeric value of an int or float Value.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I64), true
	case KindFloat:
		return v.F64, true
	default:
		return 0, false
	}
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.s.Value(), true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsTime returns the time value if Kind is KindTime.
func (v Value) AsTime() (time.Time, bool) {
	if v.Kind != KindTime {
		return time.Time{}, false
	}
	return time.Unix(0, v.I64).UTC(), true
}

// AsArray returns the array value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.A, true
}

// AsPoint returns the coordinates of a numeric array Value.
func (v Value) AsPoint() ([]float64, bool) {
	if v.Kind != KindArray || len(v.A) == 0 {
		return nil, false
	}
	p := make([]float64, len(v.A))
	for i := range v.A {
		f, ok := v.A[i].AsFloat64()
		if !ok {
			return nil, false
		}
		p[i] = f
	}
	return p, true
}

func (v Value) isNumber() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// Comparable reports whether the value has a natural ordering and can be
// used as an index key.
func (v Value) Comparable() bool {
	switch v.Kind {
	case KindInt, KindString, KindBool, KindTime:
		return true
	case KindFloat:
		return !math.IsNaN(v.F64)
	default:
		return false
	}
}

// Compare orders v against other.
//
// Ints and floats compare numerically with each other, strings
// lexicographically, bools false before true and times chronologically.
// ok is false when the two values have no common ordering.
func (v Value) Compare(other Value) (c int, ok bool) {
	if !v.Comparable() || !other.Comparable() {
		return 0, false
	}
	if v.isNumber() && other.isNumber() {
		switch {
		case v.Kind == KindInt && other.Kind == KindInt:
			return cmp.Compare(v.I64, other.I64), true
		case v.Kind == KindInt:
			return compareIntFloat(v.I64, other.F64), true
		case other.Kind == KindInt:
			return -compareIntFloat(other.I64, v.F64), true
		default:
			return cmp.Compare(v.F64, other.F64), true
		}
	}
	if v.Kind != other.Kind {
		return 0, false
	}
	switch v.Kind {
	case KindString:
		return strings.Compare(v.s.Value(), other.s.Value()), true
	case KindBool:
		switch {
		case v.B == other.B:
			return 0, true
		case other.B:
			return -1, true
		default:
			return 1, true
		}
	case KindTime:
		return cmp.Compare(v.I64, other.I64), true
	}
	return 0, false
}

// int64 bounds as floats; maxInt64Float itself is out of range.
const (
	minInt64Float = -(1 << 63)
	maxInt64Float = 1 << 63
)

// floatToInt returns f as an int64 when f is integral and in range.
func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < minInt64Float || f >= maxInt64Float {
		return 0, false
	}
	return int64(f), true
}

// compareIntFloat compares without rounding i to a float64. f is not NaN.
func compareIntFloat(i int64, f float64) int {
	switch {
	case f >= maxInt64Float:
		return -1
	case f < minInt64Float:
		return 1
	}
	t := math.Trunc(f)
	if c := cmp.Compare(i, int64(t)); c != 0 {
		return c
	}
	// i equals the integral part of f.
	return cmp.Compare(t, f)
}

// Equal reports whether both values are equal. Arrays compare element-wise.
func (v Value) Equal(other Value) bool {
	if v.Kind == KindArray || other.Kind == KindArray {
		if v.Kind != other.Kind || len(v.A) != len(other.A) {
			return false
		}
		for i := range v.A {
			if !v.A[i].Equal(other.A[i]) {
				return false
			}
		}
		return true
	}
	if v.Kind == KindNull || other.Kind == KindNull {
		return v.Kind == other.Kind
	}
	c, ok := v.Compare(other)
	return ok && c == 0
}

// Key returns a stable string representation for use in maps.
//
// Numerically equal ints and floats share a key so that hash lookups agree
// with Compare.
func (v Value) Key() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return "n:" + strconv.FormatInt(v.I64, 10)
	case KindFloat:
		if i, ok := floatToInt(v.F64); ok {
			return "n:" + strconv.FormatInt(i, 10)
		}
		return "f:" + strconv.FormatUint(math.Float64bits(v.F64), 16)
	case KindString:
		return "s:" + v.s.Value()
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case KindTime:
		return "t:" + strconv.FormatInt(v.I64, 10)
	case KindArray:
		if len(v.A) == 0 {
			return "a:"
		}
		parts := make([]string, len(v.A))
		for i := range v.A {
			parts[i] = v.A[i].Key()
		}
		return "a:" + strings.Join(parts, "\x1f")
	default:
		return "invalid"
	}
}

// String renders the value for logs and CLI output.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return v.s.Value()
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindTime:
		t, _ := v.AsTime()
		return t.Format(time.RFC3339Nano)
	case KindArray:
		parts := make([]string, len(v.A))
		for i := range v.A {
			parts[i] = v.A[i].String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

// ParseValue interprets text the way a CLI user would type a literal:
// integers, floats, true/false, null and RFC 3339 timestamps are typed,
// everything else is a string.
func ParseValue(text string) Value {
	if text == "null" {
		return Null()
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return Float(f)
	}
	if b, err := strconv.ParseBool(text); err == nil && (text == "true" || text == "false") {
		return Bool(b)
	}
	if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return Time(t)
	}
	return String(text)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	type Alias Value
	aux := &struct {
		S string `json:"s,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(&v),
	}
	if v.Kind == KindString {
		aux.S = v.s.Value()
	}
	return json.Marshal(aux)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	type Alias Value
	aux := &struct {
		S string `json:"s,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(v),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if v.Kind == KindString {
		v.s = unique.Make(aux.S)
	}
	return nil
}
