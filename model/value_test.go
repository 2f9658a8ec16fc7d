package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
		ok   bool
	}{
		{"int<int", Int(1), Int(2), -1, true},
		{"int=float", Int(2), Float(2.0), 0, true},
		{"float>int", Float(2.5), Int(2), 1, true},
		{"strings", String("a"), String("b"), -1, true},
		{"bools", Bool(true), Bool(false), 1, true},
		{"times", Time(time.Unix(10, 0)), Time(time.Unix(5, 0)), 1, true},
		{"string vs int", String("1"), Int(1), 0, false},
		{"null", Null(), Null(), 0, false},
		{"array", Array(Int(1)), Array(Int(1)), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := tt.a.Compare(tt.b)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, c)
			}
		})
	}
}

func TestValue_KeyAgreesWithEqual(t *testing.T) {
	assert.Equal(t, Int(3).Key(), Float(3).Key())
	assert.NotEqual(t, Int(3).Key(), Float(3.5).Key())
	assert.NotEqual(t, Int(1).Key(), String("1").Key())
	assert.True(t, Int(3).Equal(Float(3)))
	assert.True(t, Array(Int(1), String("x")).Equal(Array(Int(1), String("x"))))
	assert.False(t, Null().Equal(Int(0)))

	// Beyond 2^53 not every int is a float, so equality must stay exact.
	big := int64(1) << 60
	assert.True(t, Int(big).Equal(Float(float64(big))))
	assert.Equal(t, Int(big).Key(), Float(float64(big)).Key())

	c, ok := Int(1<<53 + 1).Compare(Float(1 << 53))
	require.True(t, ok)
	assert.Equal(t, 1, c)
	c, ok = Float(1 << 53).Compare(Int(1<<53 + 1))
	require.True(t, ok)
	assert.Equal(t, -1, c)
	assert.False(t, Int(1<<53+1).Equal(Float(1<<53)))
	assert.NotEqual(t, Int(1<<53+1).Key(), Float(1<<53).Key())

	// Out of int64 range and fractional floats order around ints.
	c, _ = Int(math.MaxInt64).Compare(Float(math.Ldexp(1, 63)))
	assert.Equal(t, -1, c)
	c, _ = Int(math.MinInt64).Compare(Float(math.Ldexp(-1, 63)))
	assert.Equal(t, 0, c)
	c, _ = Int(math.MinInt64).Compare(Float(math.Inf(-1)))
	assert.Equal(t, 1, c)
	c, _ = Int(-2).Compare(Float(-2.5))
	assert.Equal(t, 1, c)
	c, _ = Int(2).Compare(Float(2.5))
	assert.Equal(t, -1, c)
	assert.Equal(t, Int(0).Key(), Float(math.Copysign(0, -1)).Key())

	for _, pair := range [][2]Value{
		{Int(math.MinInt64), Float(math.Ldexp(-1, 63))},
		{Int(1 << 62), Float(math.Ldexp(1, 62))},
		{Int(1<<62 + 1), Float(math.Ldexp(1, 62))},
		{Int(7), Float(7.000000001)},
	} {
		assert.Equal(t, pair[0].Equal(pair[1]), pair[0].Key() == pair[1].Key(), "%v %v", pair[0], pair[1])
	}
}

func TestValueOf(t *testing.T) {
	v, ok := ValueOf(int32(7))
	require.True(t, ok)
	assert.Equal(t, KindInt, v.Kind)

	v, ok = ValueOf([]any{1, "a", true})
	require.True(t, ok)
	assert.Equal(t, KindArray, v.Kind)
	assert.Len(t, v.A, 3)

	_, ok = ValueOf(struct{}{})
	assert.False(t, ok)

	_, ok = ValueOf([]any{1, struct{}{}})
	assert.False(t, ok)
}

func TestValue_JSON(t *testing.T) {
	in := Array(String("hello"), Int(4), Float(1.5), Bool(true), Time(time.Unix(100, 5)))
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Value
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Equal(out))
	assert.Equal(t, "hello", out.A[0].StringValue())
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, KindInt, ParseValue("42").Kind)
	assert.Equal(t, KindFloat, ParseValue("4.2").Kind)
	assert.Equal(t, KindBool, ParseValue("true").Kind)
	assert.Equal(t, KindNull, ParseValue("null").Kind)
	assert.Equal(t, KindTime, ParseValue("2024-01-02T03:04:05Z").Kind)
	assert.Equal(t, KindString, ParseValue("fallen").Kind)
}

func TestOperator_Apply(t *testing.T) {
	assert.True(t, OpEqual.Apply(Int(1), Float(1)))
	assert.True(t, OpLessThan.Apply(String("a"), String("b")))
	assert.True(t, OpGreaterEqual.Apply(Int(2), Int(2)))
	assert.False(t, OpLessThan.Apply(String("a"), Int(2)))
	assert.True(t, OpNotEqual.Apply(String("a"), Int(2)))

	op, err := ParseOperator("<=")
	require.NoError(t, err)
	assert.Equal(t, OpLessEqual, op)
	_, err = ParseOperator("~")
	assert.Error(t, err)
}
