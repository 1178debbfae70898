// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package value implements the BASIC runtime's scalar Type and Value
// representations, and their coercion and comparison rules.
package value

import "fmt"

// Type is a closed enumeration of the BASIC runtime's value kinds.
type Type uint8

const (
	Undefined Type = iota
	Void
	Int
	Float
	String
	IntArray
	FloatArray
	StringArray
)

func (t Type) String() string {
	switch t {
	case Undefined:
		return "undefined"
	case Void:
		return "void"
	case Int:
		return "i32"
	case Float:
		return "f64"
	case String:
		return "string"
	case IntArray:
		return "i32[]"
	case FloatArray:
		return "f64[]"
	case StringArray:
		return "string[]"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Numeric reports whether t is Int or Float.
func (t Type) Numeric() bool {
	return t == Int || t == Float
}

// Array reports whether t is one of the array types.
func (t Type) Array() bool {
	return t == IntArray || t == FloatArray || t == StringArray
}

// Elem returns the scalar element type of an array type. Panics if t is not
// an array type.
func (t Type) Elem() Type {
	switch t {
	case IntArray:
		return Int
	case FloatArray:
		return Float
	case StringArray:
		return String
	default:
		panic("value: Elem of non-array type " + t.String())
	}
}

// ArrayOf returns the array type whose elements are of scalar type t.
func ArrayOf(t Type) Type {
	switch t {
	case Int:
		return IntArray
	case Float:
		return FloatArray
	case String:
		return StringArray
	default:
		panic("value: ArrayOf non-scalar type " + t.String())
	}
}

// Assignable reports whether a value of type src may be assigned, with
// coercion, to a slot of type dst: both numeric, or both non-numeric with
// matching array-ness.
func Assignable(dst, src Type) bool {
	if dst.Numeric() && src.Numeric() {
		return true
	}
	return !dst.Numeric() && !src.Numeric() && dst.Array() == src.Array()
}

// Widen returns the wider of two numeric types, per BASIC promotion rules
// (i32 < f64).
func Widen(a, b Type) Type {
	if a == Float || b == Float {
		return Float
	}
	return Int
}
