// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package value

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// ErrIllegalOp is raised when a numeric-only operator is applied to a
// non-numeric operand, or a division/modulo is ill-defined.
var ErrIllegalOp = errors.New("ILLEGAL OP")

// Value is a tagged union holding one of invalid, i32, f64 or string.
type Value struct {
	typ Type
	i   int32
	f   float64
	s   string
}

// Invalid is the zero Value; its Type is Undefined.
var Invalid = Value{}

// NewInt returns an Int value.
func NewInt(n int32) Value { return Value{typ: Int, i: n} }

// NewFloat returns a Float value.
func NewFloat(f float64) Value { return Value{typ: Float, f: f} }

// NewString returns a String value.
func NewString(s string) Value { return Value{typ: String, s: s} }

// Zero returns the T-zero value for a scalar type: 0, 0.0 or "".
func Zero(t Type) Value {
	switch t {
	case Int:
		return NewInt(0)
	case Float:
		return NewFloat(0)
	case String:
		return NewString("")
	default:
		return Invalid
	}
}

// Type returns the value's tag.
func (v Value) Type() Type { return v.typ }

// Int returns the value coerced to int32. Strings parse via strconv;
// unparsable strings yield 0, matching Applesoft's VAL() semantics.
func (v Value) Int() int32 {
	switch v.typ {
	case Int:
		return v.i
	case Float:
		return int32(v.f)
	case String:
		n, _ := strconv.ParseFloat(trimNumeric(v.s), 64)
		return int32(n)
	default:
		return 0
	}
}

// Float returns the value coerced to float64.
func (v Value) Float() float64 {
	switch v.typ {
	case Int:
		return float64(v.i)
	case Float:
		return v.f
	case String:
		n, _ := strconv.ParseFloat(trimNumeric(v.s), 64)
		return n
	default:
		return 0
	}
}

// String returns the value's textual representation.
func (v Value) String() string {
	switch v.typ {
	case Int:
		return strconv.Itoa(int(v.i))
	case Float:
		return formatFloat(v.f)
	case String:
		return v.s
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) && f < 1e9 && f > -1e9 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func trimNumeric(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ') {
		i++
	}
	j := i
	for j < len(s) {
		c := s[j]
		if c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E' || (c >= '0' && c <= '9') {
			j++
			continue
		}
		break
	}
	return s[i:j]
}

// Cast coerces v to type t, following BASIC numeric/string conversion rules.
func (v Value) Cast(t Type) Value {
	switch t {
	case Int:
		return NewInt(v.Int())
	case Float:
		return NewFloat(v.Float())
	case String:
		return NewString(v.String())
	default:
		return Invalid
	}
}

// Add implements the binary `+` operator: numeric addition, or string
// concatenation when either operand is a string.
func Add(a, b Value) (Value, error) {
	if a.typ == String || b.typ == String {
		return NewString(a.String() + b.String()), nil
	}
	return arith(a, b, func(x, y int32) int32 { return x + y }, func(x, y float64) float64 { return x + y })
}

// Sub implements the binary `-` operator.
func Sub(a, b Value) (Value, error) {
	return arith(a, b, func(x, y int32) int32 { return x - y }, func(x, y float64) float64 { return x - y })
}

// Mul implements the binary `*` operator.
func Mul(a, b Value) (Value, error) {
	return arith(a, b, func(x, y int32) int32 { return x * y }, func(x, y float64) float64 { return x * y })
}

// Div implements the binary `/` operator. Division by zero raises
// ErrIllegalOp (§8: "Division by zero raises at ARIDIV").
func Div(a, b Value) (Value, error) {
	if !a.typ.Numeric() || !b.typ.Numeric() {
		return Invalid, errors.Wrap(ErrIllegalOp, "non-numeric operand to /")
	}
	if Widen(a.typ, b.typ) == Int {
		if b.Int() == 0 {
			return Invalid, errors.Wrap(ErrIllegalOp, "division by zero")
		}
		return NewInt(a.Int() / b.Int()), nil
	}
	if b.Float() == 0 {
		return Invalid, errors.Wrap(ErrIllegalOp, "division by zero")
	}
	return NewFloat(a.Float() / b.Float()), nil
}

// Mod implements the binary `%` operator. Only defined on integers: modulo
// of a non-integer operand raises ErrIllegalOp.
func Mod(a, b Value) (Value, error) {
	if a.typ == Float || b.typ == Float {
		return Invalid, errors.Wrap(ErrIllegalOp, "modulo of non-integer operand")
	}
	if !a.typ.Numeric() || !b.typ.Numeric() {
		return Invalid, errors.Wrap(ErrIllegalOp, "non-numeric operand to %")
	}
	if b.Int() == 0 {
		return Invalid, errors.Wrap(ErrIllegalOp, "modulo by zero")
	}
	return NewInt(a.Int() % b.Int()), nil
}

// And implements the bitwise `&` operator on the integer coercion of both
// operands.
func And(a, b Value) (Value, error) {
	if !a.typ.Numeric() || !b.typ.Numeric() {
		return Invalid, errors.Wrap(ErrIllegalOp, "non-numeric operand to AND")
	}
	return NewInt(a.Int() & b.Int()), nil
}

// Or implements the bitwise `|` operator on the integer coercion of both
// operands.
func Or(a, b Value) (Value, error) {
	if !a.typ.Numeric() || !b.typ.Numeric() {
		return Invalid, errors.Wrap(ErrIllegalOp, "non-numeric operand to OR")
	}
	return NewInt(a.Int() | b.Int()), nil
}

// Neg negates a numeric value.
func Neg(a Value) (Value, error) {
	switch a.typ {
	case Int:
		return NewInt(-a.i), nil
	case Float:
		return NewFloat(-a.f), nil
	default:
		return Invalid, errors.Wrap(ErrIllegalOp, "negate non-numeric operand")
	}
}

// Not implements logical NOT: zero becomes 1 (true), non-zero becomes 0.
func Not(a Value) Value {
	if a.Int() == 0 {
		return NewInt(1)
	}
	return NewInt(0)
}

func arith(a, b Value, fi func(x, y int32) int32, ff func(x, y float64) float64) (Value, error) {
	if !a.typ.Numeric() || !b.typ.Numeric() {
		return Invalid, errors.Wrap(ErrIllegalOp, "non-numeric operand")
	}
	if Widen(a.typ, b.typ) == Int {
		return NewInt(fi(a.Int(), b.Int())), nil
	}
	return NewFloat(ff(a.Float(), b.Float())), nil
}

// Compare implements the relational operators. Numeric pairs compare
// numerically; anything else compares lexicographically on String().
// Returns -1, 0 or 1.
func Compare(a, b Value) int {
	if a.typ.Numeric() && b.typ.Numeric() {
		af, bf := a.Float(), b.Float()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

// GoString implements fmt.GoStringer for debugging.
func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s %s}", v.typ, v.String())
}
