// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package vm implements the cooperative, single-threaded fetch/decode/
// execute loop (§4.7): it loads an executable image, owns the value stack,
// the global Memory, the current error handler and the pause/resume flag,
// and dispatches CALL opcodes into the Library.
//
// Grounded on the teacher's (db47h/ngaro) vm.VM and its Run() loop: the same
// "load once, Run/pause/resume from a persistent instruction pointer" shape,
// generalized from Ngaro's single untyped Cell stack and port-driven I/O
// wait to a typed value.Value stack, a named global Memory and the
// onerr-handler re-entry-at-depth-1 policy of spec §7, which Ngaro has no
// analogue for. The panic-at-fault/recover-at-step discipline is grounded on
// the teacher's vm/core.go Run, which recovers any panic raised deep inside
// opcode execution rather than threading an error return through every
// helper.
package vm

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/braeun/eamon-interpreter/address"
	"github.com/braeun/eamon-interpreter/image"
	"github.com/braeun/eamon-interpreter/ir"
	"github.com/braeun/eamon-interpreter/library"
	"github.com/braeun/eamon-interpreter/memory"
	"github.com/braeun/eamon-interpreter/rterr"
	"github.com/braeun/eamon-interpreter/symbol"
	"github.com/braeun/eamon-interpreter/value"
)

// forFrame is the VM's own runtime bookkeeping for one open FOR/NEXT loop —
// never exposed on the image. Per the FOR/NEXT stack-contract decision
// (DESIGN.md): TO and STEP live on the value stack itself, pushed once by
// FOR and left there until the loop's last iteration; this frame only
// remembers the loop variable's address and the body's re-entry offset.
type forFrame struct {
	varAddr address.Address
	bodyPC  int
}

// VM is one loaded program's execution state. A fresh VM (or a fresh call
// to Load) is required per run() per §3's "VM's value stack, error-handler
// pointer and code pointer are recreated per run()".
type VM struct {
	Image *image.Image
	Mem   *memory.Memory
	Lib   *library.Library

	// Slowdown approximates Apple ][ pacing: if non-zero, the loop sleeps
	// this long after every instruction (§1 "optional per-instruction
	// delay to approximate pacing").
	Slowdown time.Duration

	stack []value.Value
	calls []int // JSR/RET return-address stack, kept separate from the
	// BASIC value stack so GOSUB inside an expression never perturbs the
	// §8 "stack balance" invariant the value stack must hold between
	// statements.
	forStack []forFrame

	cptr        int
	currentLine int

	requestPause atomic.Bool
	halted       bool

	errHandler int // absolute code offset, 0 disables (§7)

	// justEnteredHandler guards the onerr "recursion depth < 1" re-entry
	// rule (§7): set the instant the handler is dispatched, cleared after
	// the next instruction executes without fault. An exception raised
	// while it is still set is the "second exception while inside a
	// handler" case and is fatal.
	justEnteredHandler bool
}

// Load creates a VM ready to run img, with a fresh Memory sized to the
// image's declared global count and lib wired as the CALL target. lib
// should already have its DATA pool seeded (library.SetData), typically
// from image.DataPool() when running a saved image with no compiler.Result
// at hand.
func Load(img *image.Image, lib *library.Library) *VM {
	return &VM{
		Image: img,
		Mem:   memory.New(img.NumGlobals),
		Lib:   lib,
	}
}

// CurrentLine returns the BASIC line number the VM was last executing —
// meaningful even after Run returns an error, for diagnostics.
func (vm *VM) CurrentLine() int { return vm.currentLine }

// Halted reports whether the program reached END or a DOS RUN chain
// request, as opposed to being suspended mid-program by Pause.
func (vm *VM) Halted() bool { return vm.halted }

// Pause requests the running loop exit at the next instruction boundary
// (§5: "observed at the top of every fetch"). Safe to call from another
// goroutine; the VM itself never spawns one.
func (vm *VM) Pause() { vm.requestPause.Store(true) }

// Resume clears the pause flag and re-enters the loop from the current
// instruction pointer — the caller calls Run again afterwards.
func (vm *VM) Resume() { vm.requestPause.Store(false) }

// Stack returns the current value stack, bottom to top — for diagnostics
// only (§5's read-while-paused restriction applies to GetValue, not this).
func (vm *VM) Stack() []value.Value { return vm.stack }

// Calls returns the current JSR/RET return-address stack.
func (vm *VM) Calls() []int { return vm.calls }

// GetValue returns the current value of global variable name — intended for
// a paused host to inspect program state (§5: "outside threads may only
// read via getValue(name) while paused").
func (vm *VM) GetValue(name string) (value.Value, bool) {
	sym := vm.Image.FindSymbol(name, symbol.KindVariable)
	if sym == nil || sym.Address.IsConstant() {
		return value.Invalid, false
	}
	idx := sym.Address.Index()
	if idx >= vm.Mem.Len() {
		return value.Invalid, false
	}
	return vm.Mem.Get(idx, 0), true
}

// Run drives the fetch/decode/execute loop until the program pauses, halts
// (END or a DOS RUN chain request) or a runtime exception escapes every
// onerr handler.
func (vm *VM) Run() error {
	for {
		if vm.requestPause.Load() {
			return nil
		}
		pc := vm.cptr
		err := vm.step()
		if err != nil {
			re := toRuntimeErr(err)
			if vm.errHandler != 0 && !vm.justEnteredHandler {
				vm.Lib.SetOnerrCode(int(re.Code))
				vm.cptr = vm.errHandler
				vm.justEnteredHandler = true
				continue
			}
			return errors.Wrapf(re, "line %d, offset %d", vm.currentLine, pc)
		}
		vm.justEnteredHandler = false
		if vm.halted {
			return nil
		}
		if term, _ := vm.Lib.Terminated(); term {
			vm.halted = true
			return nil
		}
		if vm.Slowdown > 0 {
			time.Sleep(vm.Slowdown)
		}
	}
}

// toRuntimeErr normalizes any error escaping a Library call or a value
// package arithmetic op into the closed rterr taxonomy, so PEEK(222) and the
// onerr dispatch always see one of the named codes.
func toRuntimeErr(err error) *rterr.RuntimeError {
	if re, ok := errors.Cause(err).(*rterr.RuntimeError); ok {
		return re
	}
	return rterr.IllegalOp(err.Error())
}

// step executes exactly one instruction, recovering any panic raised by the
// stack/memory helpers below into a returned error — the single point where
// the fault taxonomy of rterr meets ordinary Go control flow.
func (vm *VM) step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(*rterr.RuntimeError)
			if !ok {
				panic(r)
			}
			err = re
		}
	}()

	if vm.cptr < 0 || vm.cptr >= vm.Image.CodeLen() {
		panic(rterr.UnknownOpcode(0))
	}
	ins := vm.Image.CodeWords()[vm.cptr]
	vm.cptr++
	vm.execute(ins)
	return nil
}

// execute dispatches one decoded instruction. Faults are reported by
// panicking an *rterr.RuntimeError, recovered by step.
func (vm *VM) execute(ins image.Instr) {
	op := ir.Opcode(ins.Op)
	typ := value.Type(ins.Type)
	addr := address.Address(ins.Operand[0])

	switch op {
	case ir.OpEntry, ir.OpNop:
		// init-epilogue marker / label anchor; no runtime effect.

	case ir.OpLine:
		vm.currentLine = int(ins.Operand[0])

	case ir.OpPush:
		vm.push(vm.literal(typ, ins.Operand[0]))

	case ir.OpPop:
		vm.pop()

	case ir.OpDup:
		v := vm.peek()
		vm.push(v)

	case ir.OpSwap:
		n := len(vm.stack)
		if n < 2 {
			panic(rterr.StackUnderflow())
		}
		vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]

	case ir.OpSto:
		v := vm.pop()
		if addr.IsGlobal() {
			vm.Mem.Set(addr.Index(), 0, typ, v)
		}

	case ir.OpStoi:
		offset := int(vm.pop().Int())
		v := vm.pop()
		if addr.IsGlobal() {
			vm.Mem.Set(addr.Index(), offset, typ, v)
		}

	case ir.OpRcl:
		vm.execRcl(addr, typ)

	case ir.OpRcli:
		offset := int(vm.pop().Int())
		vm.execRcli(addr, typ, offset)

	case ir.OpClr:
		if addr.IsGlobal() {
			vm.Mem.Clear(addr.Index(), typ)
		}

	case ir.OpRsz:
		n := int(vm.pop().Int())
		if addr.IsGlobal() {
			vm.Mem.Resize(addr.Index(), typ, n)
		}

	case ir.OpInc:
		vm.bump(addr, 1)

	case ir.OpDec:
		vm.bump(addr, -1)

	case ir.OpAdd:
		vm.binOp(value.Add)
	case ir.OpSub:
		vm.binOp(value.Sub)
	case ir.OpMul:
		vm.binOp(value.Mul)
	case ir.OpDiv:
		vm.binOp(value.Div)
	case ir.OpMod:
		vm.binOp(value.Mod)
	case ir.OpBitAnd:
		vm.binOp(value.And)
	case ir.OpBitOr:
		vm.binOp(value.Or)
	case ir.OpAnd:
		vm.binOp(value.And)
	case ir.OpOr:
		vm.binOp(value.Or)

	case ir.OpEq:
		vm.cmpOp(func(c int) bool { return c == 0 })
	case ir.OpNe:
		vm.cmpOp(func(c int) bool { return c != 0 })
	case ir.OpGe:
		vm.cmpOp(func(c int) bool { return c >= 0 })
	case ir.OpLe:
		vm.cmpOp(func(c int) bool { return c <= 0 })
	case ir.OpGt:
		vm.cmpOp(func(c int) bool { return c > 0 })
	case ir.OpLt:
		vm.cmpOp(func(c int) bool { return c < 0 })

	case ir.OpNot:
		vm.push(value.Not(vm.pop()))

	case ir.OpNeg:
		v, err := value.Neg(vm.pop())
		if err != nil {
			panic(toRuntimeErr(err))
		}
		vm.push(v)

	case ir.OpCast:
		vm.push(vm.pop().Cast(typ))

	case ir.OpJump:
		vm.cptr = int(ins.Operand[0])

	case ir.OpJz:
		if vm.pop().Int() == 0 {
			vm.cptr = int(ins.Operand[0])
		}

	case ir.OpJnz:
		if vm.pop().Int() != 0 {
			vm.cptr = int(ins.Operand[0])
		}

	case ir.OpJsr:
		vm.calls = append(vm.calls, vm.cptr)
		vm.cptr = int(ins.Operand[0])

	case ir.OpRet:
		if len(vm.calls) == 0 {
			panic(rterr.StackUnderflow())
		}
		vm.cptr = vm.calls[len(vm.calls)-1]
		vm.calls = vm.calls[:len(vm.calls)-1]

	case ir.OpCall:
		vm.execCall(library.FuncID(ins.Operand[0]))

	case ir.OpErrHdl:
		vm.errHandler = int(ins.Operand[0])

	case ir.OpFor:
		vm.forStack = append(vm.forStack, forFrame{varAddr: addr, bodyPC: vm.cptr})

	case ir.OpNext:
		vm.execNext()

	case ir.OpEnd:
		vm.halted = true

	default:
		panic(rterr.UnknownOpcode(ins.Op))
	}
}

// literal decodes an OpPush operand: an Int carries its value inline, Float
// and String are interned in the constant pool (a float64 cannot fit a
// single 32-bit operand word).
func (vm *VM) literal(typ value.Type, operand uint32) value.Value {
	switch typ {
	case value.Int:
		return value.NewInt(int32(operand))
	case value.Float, value.String:
		return vm.Image.ConstantValue(address.Address(operand), 0)
	default:
		panic(rterr.IllegalOp("push of unsupported type"))
	}
}

func (vm *VM) execRcl(addr address.Address, typ value.Type) {
	if typ.Array() {
		vals := vm.arrayValues(addr)
		for _, v := range vals {
			vm.push(v)
		}
		vm.push(value.NewInt(int32(len(vals))))
		return
	}
	if addr.IsConstant() {
		vm.push(vm.Image.ConstantValue(addr, 0))
		return
	}
	vm.push(vm.Mem.Get(addr.Index(), 0))
}

func (vm *VM) execRcli(addr address.Address, typ value.Type, offset int) {
	if addr.IsConstant() {
		vals := vm.Image.ConstantArray(addr)
		if offset < 0 || offset >= len(vals) {
			panic(rterr.IllegalQuantity("constant index out of range"))
		}
		vm.push(vals[offset])
		return
	}
	vm.push(vm.Mem.Get(addr.Index(), offset))
}

func (vm *VM) arrayValues(addr address.Address) []value.Value {
	if addr.IsConstant() {
		return vm.Image.ConstantArray(addr)
	}
	return vm.Mem.Chunk(addr.Index())
}

func (vm *VM) bump(addr address.Address, delta int32) {
	if addr.IsConstant() {
		return
	}
	idx := addr.Index()
	cur := vm.Mem.Get(idx, 0)
	nv, err := value.Add(cur, value.NewInt(delta))
	if err != nil {
		panic(toRuntimeErr(err))
	}
	vm.Mem.Set(idx, 0, cur.Type(), nv)
}

func (vm *VM) binOp(f func(a, b value.Value) (value.Value, error)) {
	b := vm.pop()
	a := vm.pop()
	v, err := f(a, b)
	if err != nil {
		panic(toRuntimeErr(err))
	}
	vm.push(v)
}

func (vm *VM) cmpOp(pred func(int) bool) {
	b := vm.pop()
	a := vm.pop()
	if pred(value.Compare(a, b)) {
		vm.push(value.NewInt(1))
	} else {
		vm.push(value.NewInt(0))
	}
}

// execCall pops the CALL argument-count immediate, then that many arguments
// (pushed left to right, so the pop order is reversed), and dispatches to
// the Library (§4.6).
func (vm *VM) execCall(id library.FuncID) {
	argc := int(vm.pop().Int())
	if len(vm.stack) < argc {
		panic(rterr.StackUnderflow())
	}
	args := make([]value.Value, argc)
	copy(args, vm.stack[len(vm.stack)-argc:])
	vm.stack = vm.stack[:len(vm.stack)-argc]

	results, err := vm.Lib.Call(id, args)
	if err != nil {
		panic(toRuntimeErr(err))
	}
	for _, r := range results {
		vm.push(r)
	}
}

// execNext implements the NEXT half of the FOR/NEXT stack contract
// (DESIGN.md): TO and STEP are only ever peeked from the value stack while
// the loop keeps iterating, and popped together exactly once, on the
// iteration that ends the loop.
func (vm *VM) execNext() {
	if len(vm.forStack) == 0 {
		panic(rterr.IllegalOp("NEXT without FOR"))
	}
	frame := vm.forStack[len(vm.forStack)-1]
	if len(vm.stack) < 2 {
		panic(rterr.StackUnderflow())
	}
	to := vm.stack[len(vm.stack)-2]
	step := vm.stack[len(vm.stack)-1]

	idx := frame.varAddr.Index()
	cur := vm.Mem.Get(idx, 0)
	next, err := value.Add(cur, step)
	if err != nil {
		panic(toRuntimeErr(err))
	}
	vm.Mem.Set(idx, 0, cur.Type(), next)

	cont := step.Float() >= 0 && next.Float() <= to.Float() ||
		step.Float() < 0 && next.Float() >= to.Float()
	if cont {
		vm.cptr = frame.bodyPC
		return
	}
	vm.forStack = vm.forStack[:len(vm.forStack)-1]
	vm.stack = vm.stack[:len(vm.stack)-2]
}

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() value.Value {
	n := len(vm.stack)
	if n == 0 {
		panic(rterr.StackUnderflow())
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) peek() value.Value {
	n := len(vm.stack)
	if n == 0 {
		panic(rterr.StackUnderflow())
	}
	return vm.stack[n-1]
}
