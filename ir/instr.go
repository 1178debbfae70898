// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package ir

import "github.com/braeun/eamon-interpreter/value"

// Ref is an unresolved reference used by an instruction's operand before
// assembly: either a branch-target Label, a named Var (a compiler-assigned
// global slot name) or a ConstName (a text-segment constant name, e.g.
// "DATA_3" or a de-duplicated string literal key).
type Ref struct {
	Label     string
	Var       string
	ConstName string
}

// Instr is one pre-assembly IR instruction: a tagged-variant, analogous to
// the on-image packed 32-bit word but carrying symbolic (unresolved)
// operands instead of absolute offsets.
type Instr struct {
	Op   Opcode
	Type value.Type // valid when Op.HasType()
	Addr Ref        // valid when Op.HasAddr(): Addr.Var names the global slot
	Ref  Ref        // valid when Op.HasLabel(): Ref.Label names the branch target
	Imm  value.Value // valid for OpPush of a scalar immediate (Int/Float/String)
	Call uint8       // valid for OpCall: the library function ID
	Line int         // valid for OpLine: source line number
}

// Label returns a bare OpNop instruction that serves only as a jump-target
// anchor at the current emission position — the assembler records
// "name -> offset" when it encounters one.
func Label(name string) Instr {
	return Instr{Op: OpNop, Ref: Ref{Label: name}}
}

// Builder accumulates a flat instruction stream, generalizing the teacher's
// (db47h/ngaro) asm.parser write-as-you-go approach to a pre-assembly IR
// slice instead of a packed Cell buffer.
type Builder struct {
	instrs []Instr
	labels int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Emit appends an instruction and returns its index.
func (b *Builder) Emit(i Instr) int {
	b.instrs = append(b.instrs, i)
	return len(b.instrs) - 1
}

// NewLabel allocates a fresh, unique internal label name for compiler-
// generated branch targets (loop/if/on-goto scaffolding), offset into the
// label namespace above any line-number label so it can never collide with
// a user-visible BASIC line number (spec §4.2: "internal labels (>= 0x10000)
// are allocated by the compiler for branch targets").
func (b *Builder) NewLabel() string {
	b.labels++
	return labelName(b.labels)
}

func labelName(n int) string {
	const base = 0x10000
	return "L" + itoa(base+n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Bind emits a label anchor at the current position.
func (b *Builder) Bind(name string) {
	b.Emit(Label(name))
}

// Instrs returns the accumulated instruction stream.
func (b *Builder) Instrs() []Instr {
	return b.instrs
}
