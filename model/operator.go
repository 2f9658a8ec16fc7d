package model

import "fmt"

// Operator is a comparison operator used by graph and index scans.
type Operator string

const (
	// OpEqual represents the equality operator.
	OpEqual Operator = "eq"
	// OpNotEqual represents the inequality operator.
	OpNotEqual Operator = "ne"
	// OpLessThan represents the less than operator.
	OpLessThan Operator = "lt"
	// OpLessEqual represents the less than or equal operator.
	OpLessEqual Operator = "lte"
	// OpGreaterThan represents the greater than operator.
	OpGreaterThan Operator = "gt"
	// OpGreaterEqual represents the greater than or equal operator.
	OpGreaterEqual Operator = "gte"
)

// ParseOperator accepts both the short names and the symbols
// (=, ==, !=, <>, <, <=, >, >=).
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "eq", "=", "==":
		return OpEqual, nil
	case "ne", "!=", "<>":
		return OpNotEqual, nil
	case "lt", "<":
		return OpLessThan, nil
	case "lte", "le", "<=":
		return OpLessEqual, nil
	case "gt", ">":
		return OpGreaterThan, nil
	case "gte", "ge", ">=":
		return OpGreaterEqual, nil
	default:
		return "", fmt.Errorf("unknown operator %q", s)
	}
}

// Valid reports whether op is one of the six supported operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		return true
	}
	return false
}

// Apply evaluates "value op literal".
//
// Values without a common ordering are only ever "not equal"; every other
// operator rejects them.
func (op Operator) Apply(value, literal Value) bool {
	c, ok := value.Compare(literal)
	if !ok {
		return op == OpNotEqual && !value.Equal(literal)
	}
	return op.Matches(c)
}

// Matches interprets the result of a three-way comparison.
func (op Operator) Matches(c int) bool {
	switch op {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpLessThan:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreaterThan:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	default:
		return false
	}
}
