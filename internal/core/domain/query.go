package domain

import "strconv"

// Expr is a typed predicate over entity attribute maps. Expressions are a
// restricted relational filter: equality, set membership, ranges and boolean
// combinators. A missing attribute or a type mismatch makes the comparison
// false rather than an error, so predicates exclude rather than abort.
type Expr interface {
	Eval(attrs map[string]any) bool
}

// CompareOp enumerates the supported comparison operators.
type CompareOp string

const (
	// OpEq matches attributes equal to the value.
	OpEq CompareOp = "eq"
	// OpNe matches attributes not equal to the value.
	OpNe CompareOp = "ne"
	// OpIn matches attributes contained in the value set.
	OpIn CompareOp = "in"
	// OpLt matches attributes strictly less than the value.
	OpLt CompareOp = "lt"
	// OpLe matches attributes less than or equal to the value.
	OpLe CompareOp = "le"
	// OpGt matches attributes strictly greater than the value.
	OpGt CompareOp = "gt"
	// OpGe matches attributes greater than or equal to the value.
	OpGe CompareOp = "ge"
)

// Compare is a leaf comparison of one attribute against a literal.
// For OpIn the literal set is Values; all other operators use Value.
type Compare struct {
	Field  string
	Op     CompareOp
	Value  any
	Values []any
}

// Eval implements Expr.
func (c Compare) Eval(attrs map[string]any) bool {
	attr, ok := attrs[c.Field]
	if !ok {
		return false
	}

	switch c.Op {
	case OpEq:
		return equal(attr, c.Value)
	case OpNe:
		return !equal(attr, c.Value)
	case OpIn:
		for _, v := range c.Values {
			if equal(attr, v) {
				return true
			}
		}
		return false
	case OpLt, OpLe, OpGt, OpGe:
		a, aok := toFloat(attr)
		b, bok := toFloat(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Op {
		case OpLt:
			return a < b
		case OpLe:
			return a <= b
		case OpGt:
			return a > b
		default:
			return a >= b
		}
	default:
		return false
	}
}

// And matches when every sub-expression matches. An empty And matches
// everything, which makes it the natural "select all" query.
type And struct {
	Exprs []Expr
}

// Eval implements Expr.
func (a And) Eval(attrs map[string]any) bool {
	for _, e := range a.Exprs {
		if !e.Eval(attrs) {
			return false
		}
	}
	return true
}

// Or matches when at least one sub-expression matches.
type Or struct {
	Exprs []Expr
}

// Eval implements Expr.
func (o Or) Eval(attrs map[string]any) bool {
	for _, e := range o.Exprs {
		if e.Eval(attrs) {
			return true
		}
	}
	return false
}

// Not inverts its sub-expression.
type Not struct {
	Expr Expr
}

// Eval implements Expr.
func (n Not) Eval(attrs map[string]any) bool {
	return !n.Expr.Eval(attrs)
}

// All returns the predicate that matches every entity.
func All() Expr {
	return And{}
}

func equal(attr, value any) bool {
	if attr == value {
		return true
	}
	// Numeric attributes may be declared as any integer width while query
	// literals arrive as int or float; compare numerically when both coerce.
	a, aok := toFloat(attr)
	b, bok := toFloat(value)
	if aok && bok {
		return a == b
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
