// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package assembler implements the linker step (§4.5): it takes the
// compiler's pre-assembly IR plus its symbol tables and produces the
// immutable executable image the VM loads. Constant placement, label
// resolution and symbol-table packing all happen here.
//
// Grounded on the teacher's (db47h/ngaro) asm/parser.go: its two-pass label
// resolution (a sentinel "not yet defined" address, rewritten by a final
// backpatch loop once every label's definition site is known) is the same
// shape as this package's Assemble, generalized from one flat Cell buffer
// to the six-segment Image of image.Image and from raw mnemonics to the
// typed ir.Instr stream compiler.Compile produces.
package assembler

import (
	"fmt"

	"github.com/braeun/eamon-interpreter/address"
	"github.com/braeun/eamon-interpreter/compiler"
	"github.com/braeun/eamon-interpreter/image"
	"github.com/braeun/eamon-interpreter/ir"
	"github.com/braeun/eamon-interpreter/symbol"
	"github.com/braeun/eamon-interpreter/value"
)

// Error reports a single link-time diagnostic (an operand referring to a
// symbol or label the compiler never defined — always a bug in the
// compiler or in Assemble itself, never a user-facing BASIC error).
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func errf(format string, args ...interface{}) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Assemble links a compiler.Result into an executable Image, per §4.5:
//  1. an ENTRY/CLR init epilogue is synthesized ahead of the compiled code
//     (§4.4 "Initialization epilogue" — every scalar starts zeroed);
//  2. string and float literals are interned into the text segment,
//     de-duplicated by value, and DATA items are appended as named
//     DATA_<n> constants;
//  3. every label is resolved to an absolute code-segment index and every
//     variable reference to its global slot.
func Assemble(res *compiler.Result) (*image.Image, error) {
	numGlobals := res.Variables.Len()
	img := image.New(numGlobals)
	img.Variables = res.Variables
	img.Functions = res.Functions

	as := &assembling{img: img, res: res, labels: make(map[string]int)}
	as.buildConstants()
	instrs := as.prelude()
	instrs = append(instrs, res.Builder.Instrs()...)

	// Pass 1: lay out instructions, recording each label's absolute index.
	// One ir.Instr always becomes exactly one image.Instr, so its index in
	// instrs is already its final code-segment position.
	for i, in := range instrs {
		if in.Op == ir.OpNop && in.Ref.Label != "" {
			as.labels[in.Ref.Label] = i
		}
	}

	// Pass 2: resolve every operand.
	for _, in := range instrs {
		enc, err := as.encode(in)
		if err != nil {
			return nil, err
		}
		img.Code = append(img.Code, enc)
	}

	img.VTable = as.buildVTable()
	return img, nil
}

type assembling struct {
	img      *image.Image
	res      *compiler.Result
	labels   map[string]int
	constIdx map[string]int
}

// prelude synthesizes the init block: ENTRY declares the chunk count, then
// one CLR per declared scalar variable zeroes it before the program's own
// first instruction runs. Arrays are left alone here — they are cleared by
// the RSZ that the compiler already emits inline at their first DIM/use.
func (as *assembling) prelude() []ir.Instr {
	out := []ir.Instr{{Op: ir.OpEntry, Imm: value.NewInt(int32(as.img.NumGlobals))}}
	for _, sym := range as.res.Variables.All() {
		if sym.Type.Array() {
			continue
		}
		out = append(out, ir.Instr{Op: ir.OpClr, Type: sym.Type, Addr: ir.Ref{Var: sym.Name}})
	}
	return out
}

// buildConstants seeds the text segment with one named constant per DATA
// item (DATA_<n>, per §3), ahead of any string/float literal interned while
// encoding PUSH operands below.
func (as *assembling) buildConstants() {
	as.constIdx = make(map[string]int)
	for i, v := range as.res.Data {
		as.internConstant(fmt.Sprintf("DATA_%d", i), []value.Value{v})
	}
}

// internConstant appends a new constant, or returns the index of an
// identical anonymous one already seen (string/float literal de-dup by
// value, per §3 "Anonymous duplicate string literals are de-duplicated by
// value"). Named constants (DATA_<n>) are never de-duplicated against one
// another.
func (as *assembling) internConstant(name string, vals []value.Value) int {
	key := constKey(name, vals)
	if idx, ok := as.constIdx[key]; ok {
		return idx
	}
	idx := len(as.img.Constants)
	as.img.Constants = append(as.img.Constants, image.Constant{Name: name, Values: vals})
	as.constIdx[key] = idx
	sname := name
	if sname == "" {
		sname = fmt.Sprintf("C_%d", idx)
	}
	if as.img.Consts.Find(sname) == nil {
		typ := value.Undefined
		if len(vals) > 0 {
			typ = vals[0].Type()
			if len(vals) > 1 {
				typ = value.ArrayOf(typ)
			}
		}
		as.img.Consts.Add(symbol.Symbol{Name: sname, Address: address.Constant(idx), Type: typ})
	}
	return idx
}

// constKey builds the de-dup key: named constants (DATA_<n>) always key on
// their own name so same-valued DATA items stay distinct entries; anonymous
// literals (name == "") key purely on value so repeats collapse.
func constKey(name string, vals []value.Value) string {
	if name != "" {
		return "n:" + name
	}
	k := "v:"
	for _, v := range vals {
		k += fmt.Sprintf("%d|%s;", v.Type(), v.String())
	}
	return k
}

// internLiteral interns an anonymous scalar literal (a float or string PUSH
// operand) and returns its constant address.
func (as *assembling) internLiteral(v value.Value) address.Address {
	idx := as.internConstant("", []value.Value{v})
	return address.Constant(idx)
}

func (as *assembling) buildVTable() []uint32 {
	vt := make([]uint32, as.img.Functions.Len())
	for i, sym := range as.img.Functions.All() {
		label, ok := as.res.FuncEntry[sym.Name]
		if !ok {
			continue
		}
		off, ok := as.labels[label]
		if !ok {
			continue
		}
		vt[i] = uint32(off)
	}
	return vt
}

func (as *assembling) resolveVar(name string) (address.Address, error) {
	sym := as.res.Variables.Find(name)
	if sym == nil {
		return 0, errf("assembler: undefined variable %q", name)
	}
	return sym.Address, nil
}

func (as *assembling) resolveLabel(name string) (int, error) {
	off, ok := as.labels[name]
	if !ok {
		return 0, errf("assembler: undefined label %q", name)
	}
	return off, nil
}

// encode resolves in's symbolic operands into the final packed Instr.
func (as *assembling) encode(in ir.Instr) (image.Instr, error) {
	out := image.Instr{Op: uint8(in.Op), Type: uint8(in.Type), NOps: uint8(in.Op.OperandWords())}
	switch {
	case in.Op == ir.OpNop:
		// label anchor only, or a bare NOP; no operand.
	case in.Op == ir.OpLine:
		out.Operand[0] = uint32(in.Line)
	case in.Op == ir.OpEntry:
		out.Operand[0] = uint32(in.Imm.Int())
	case in.Op == ir.OpCall:
		out.Operand[0] = uint32(in.Call)
	case in.Op == ir.OpPush:
		switch in.Type {
		case value.Int:
			out.Operand[0] = uint32(in.Imm.Int())
		case value.Float:
			out.Operand[0] = uint32(as.internLiteral(in.Imm))
		case value.String:
			out.Operand[0] = uint32(as.internLiteral(in.Imm))
		default:
			return out, errf("assembler: PUSH of unsupported type %s", in.Type)
		}
	case in.Op.HasLabel():
		off, err := as.resolveLabel(in.Ref.Label)
		if err != nil {
			return out, err
		}
		out.Operand[0] = uint32(off)
	case in.Op.HasAddr():
		addr, err := as.resolveVar(in.Addr.Var)
		if err != nil {
			return out, err
		}
		out.Operand[0] = uint32(addr)
	}
	return out, nil
}
