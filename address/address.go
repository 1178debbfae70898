// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package address implements the 32-bit Address encoding shared by the
// compiler, assembler and VM: bit 31 tags an address as a constant-pool
// entry or a global-memory slot, bits 30..0 hold the slot index.
//
// Grounded on the teacher's (db47h/ngaro) flat integer addressing directly
// into Image/Memory; this generalizes that single address space into two,
// distinguished by a tag bit, per the spec's constant/global split.
package address

// Address is a 32-bit word: bit 31 set means Constant, clear means Global.
type Address uint32

const constantBit = uint32(1) << 31

// Global returns the Address of global slot idx.
func Global(idx int) Address {
	return Address(uint32(idx) & (constantBit - 1))
}

// Constant returns the Address of constant-pool entry idx.
func Constant(idx int) Address {
	return Address(uint32(idx) | constantBit)
}

// IsConstant reports whether a addresses the constant pool.
func (a Address) IsConstant() bool {
	return uint32(a)&constantBit != 0
}

// IsGlobal reports whether a addresses global Memory.
func (a Address) IsGlobal() bool {
	return !a.IsConstant()
}

// Index returns the slot index encoded in a, with the tag bit stripped.
func (a Address) Index() int {
	return int(uint32(a) &^ constantBit)
}
