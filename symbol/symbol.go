// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package symbol implements the fixed-width Symbol record and the three
// symbol tables (function, constant, variable) written into an executable
// image.
//
// Grounded on the teacher's (db47h/ngaro) asm.label/labelSite bookkeeping:
// where the assembler tracks a name, a definition site and every use site,
// this generalizes "where a label is defined" into a permanent, typed,
// kinded Symbol record serialized alongside the image.
package symbol

import (
	"github.com/braeun/eamon-interpreter/address"
	"github.com/braeun/eamon-interpreter/value"
)

// MaxNameLen is the longest identifier a fixed-width Symbol record stores
// with its terminating NUL; saving cuts longer names short. The compiler
// gives no warning for long identifiers.
const MaxNameLen = 31

// Kind distinguishes the three symbol tables.
type Kind uint8

const (
	KindVariable Kind = iota
	KindConstant
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindConstant:
		return "constant"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Symbol is a fixed-width (name, address, type, kind) record.
type Symbol struct {
	Name    string
	Address address.Address
	Type    value.Type
	Kind    Kind
}

// Table is an ordered, name-indexed collection of Symbols of a single Kind.
type Table struct {
	Kind    Kind
	order   []*Symbol
	byName  map[string]*Symbol
}

// NewTable returns an empty Table for the given Kind.
func NewTable(k Kind) *Table {
	return &Table{Kind: k, byName: make(map[string]*Symbol)}
}

// Find returns the symbol with the given name, or nil.
func (t *Table) Find(name string) *Symbol {
	return t.byName[name]
}

// Add inserts a new symbol. It panics if the name is already present —
// callers (the compiler) are expected to check Find first and raise a
// proper diagnostic instead.
func (t *Table) Add(s Symbol) *Symbol {
	if _, ok := t.byName[s.Name]; ok {
		panic("symbol: duplicate definition of " + s.Name)
	}
	s.Kind = t.Kind
	sp := &s
	t.byName[s.Name] = sp
	t.order = append(t.order, sp)
	return sp
}

// All returns the table's symbols in declaration order.
func (t *Table) All() []*Symbol {
	return t.order
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int { return len(t.order) }
