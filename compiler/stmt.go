// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package compiler

import (
	"strings"

	"github.com/braeun/eamon-interpreter/ir"
	"github.com/braeun/eamon-interpreter/library"
	"github.com/braeun/eamon-interpreter/parser"
	"github.com/braeun/eamon-interpreter/value"
)

// compileStmt lowers one parsed statement to IR, per §4.4.
func (c *compiler) compileStmt(s parser.Stmt) {
	switch st := s.(type) {
	case *parser.LetStmt:
		c.compileLet(st.Target, st.Value)

	case *parser.PrintStmt:
		c.compilePrint(st)

	case *parser.InputStmt:
		c.compileInput(st)

	case *parser.IfStmt:
		c.compileIf(st)

	case *parser.ForStmt:
		c.compileFor(st)

	case *parser.NextStmt:
		c.compileNext(st)

	case *parser.GotoStmt:
		c.emitJumpToLine(ir.OpJump, st.Line)

	case *parser.GosubStmt:
		c.emitJumpToLine(ir.OpJsr, st.Line)

	case *parser.ReturnStmt:
		c.b.Emit(ir.Instr{Op: ir.OpRet})

	case *parser.OnStmt:
		c.compileOn(st)

	case *parser.DataStmt:
		// Collected at compile start by collectData; nothing to emit here.

	case *parser.ReadStmt:
		c.compileRead(st)

	case *parser.RestoreStmt:
		c.emitCall(library.FnRestore, 0)

	case *parser.DimStmt:
		for _, dv := range st.Vars {
			c.declareArrayExplicit(dv.Name, dv.Dims)
		}

	case *parser.DefFnStmt:
		// Declared by collectDefFns; the line itself does nothing at runtime.

	case *parser.OnerrStmt:
		label, ok := c.lineLabel[st.Line]
		if !ok {
			c.error("ONERR GOTO to undefined line")
			return
		}
		c.b.Emit(ir.Instr{Op: ir.OpErrHdl, Ref: ir.Ref{Label: label}})

	case *parser.EndStmt:
		c.b.Emit(ir.Instr{Op: ir.OpEnd})

	case *parser.CallStmt:
		c.compileCallStmt(st)

	default:
		c.error("unsupported statement")
	}
}

func (c *compiler) emitJumpToLine(op ir.Opcode, line int) {
	label, ok := c.lineLabel[line]
	if !ok {
		c.error("reference to undefined line")
		return
	}
	c.b.Emit(ir.Instr{Op: op, Ref: ir.Ref{Label: label}})
}

// emitCall pushes argc as an Int immediate (the uniform CALL protocol: the
// VM pops the count, then that many already-pushed arguments) and emits the
// CALL itself. Arguments must already be on the stack, left to right.
func (c *compiler) emitCall(id library.FuncID, argc int) {
	c.b.Emit(ir.Instr{Op: ir.OpPush, Type: value.Int, Imm: value.NewInt(int32(argc))})
	c.b.Emit(ir.Instr{Op: ir.OpCall, Call: uint8(id)})
}

// compilePrint lowers one PRINT statement. Each item becomes its own CALL
// print (stringified via CAST to String, so numbers go through Applesoft's
// numeric-to-string formatting); a comma separator calls the print-zone tab
// built-in; the statement closes with a CALL printend that carries whether
// the trailing separator was ';' (suppress the newline).
func (c *compiler) compilePrint(st *parser.PrintStmt) {
	if st.Using != nil {
		c.compilePrintUsing(st)
		return
	}
	suppress := false
	for _, item := range st.Items {
		t := c.emitExpr(item.Value)
		c.castTo(t, value.String)
		c.emitCall(library.FnPrint, 1)
		switch item.Sep {
		case ',':
			c.emitCall(library.FnTabZone, 0)
			suppress = false
		case ';':
			suppress = true
		default:
			suppress = false
		}
	}
	c.b.Emit(ir.Instr{Op: ir.OpPush, Type: value.Int, Imm: value.NewInt(boolInt(suppress))})
	c.emitCall(library.FnPrintEnd, 1)
}

func (c *compiler) compilePrintUsing(st *parser.PrintStmt) {
	t := c.emitExpr(st.Using)
	c.castTo(t, value.String)
	suppress := false
	for _, item := range st.Items {
		c.emitExpr(item.Value) // FnPrintf formats via Float() regardless of pushed type
		suppress = item.Sep == ';'
	}
	c.emitCall(library.FnPrintf, 1+len(st.Items))
	c.b.Emit(ir.Instr{Op: ir.OpPush, Type: value.Int, Imm: value.NewInt(boolInt(suppress))})
	c.emitCall(library.FnPrintEnd, 1)
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// compileInput lowers INPUT ["prompt";] v1, v2, ...: the prompt and one
// placeholder zero-Value per destination (communicating that variable's
// type to the library) are pushed, then CALL input returns len(Vars) parsed
// values in left-to-right order. Results are stored back in reverse, since
// the VM pushes them in order and the last one ends up on top of the stack.
func (c *compiler) compileInput(st *parser.InputStmt) {
	c.b.Emit(ir.Instr{Op: ir.OpPush, Type: value.String, Imm: value.NewString(st.Prompt)})
	types := make([]value.Type, len(st.Vars))
	for i, v := range st.Vars {
		types[i] = c.targetType(v)
		c.b.Emit(ir.Instr{Op: ir.OpPush, Type: types[i], Imm: value.Zero(types[i])})
	}
	c.emitCall(library.FnInput, 1+len(st.Vars))
	for i := len(st.Vars) - 1; i >= 0; i-- {
		c.compileAssignValue(st.Vars[i], types[i])
	}
}

// compileRead lowers READ v1, v2, ...: each variable pulls the next DATA
// pool entry, which carries its own literal type rather than the target's,
// so an explicit CAST (not the conditional castTo) reconciles it.
func (c *compiler) compileRead(st *parser.ReadStmt) {
	for _, v := range st.Vars {
		c.emitCall(library.FnRead, 0)
		t := c.targetType(v)
		c.b.Emit(ir.Instr{Op: ir.OpCast, Type: t})
		c.compileAssignValue(v, t)
	}
}

// compileIf lowers IF cond THEN ... [ELSE ...], with THEN/ELSE being either
// a bare line number (GOTO) or an inline statement list.
func (c *compiler) compileIf(st *parser.IfStmt) {
	t := c.emitExpr(st.Cond)
	c.castTo(t, value.Int)
	elseLabel := c.newLabel()
	c.b.Emit(ir.Instr{Op: ir.OpJz, Ref: ir.Ref{Label: elseLabel}})
	if st.ThenGoto > 0 {
		c.emitJumpToLine(ir.OpJump, st.ThenGoto)
	} else {
		for _, s := range st.Then {
			c.compileStmt(s)
		}
	}
	endLabel := c.newLabel()
	c.b.Emit(ir.Instr{Op: ir.OpJump, Ref: ir.Ref{Label: endLabel}})
	c.b.Bind(elseLabel)
	if st.ElseGoto > 0 {
		c.emitJumpToLine(ir.OpJump, st.ElseGoto)
	} else {
		for _, s := range st.Else {
			c.compileStmt(s)
		}
	}
	c.b.Bind(endLabel)
}

// compileFor lowers FOR v = from TO to [STEP step]: v is initialized, then
// TO and STEP are pushed and left on the value stack for the loop's whole
// lifetime — peeked (never popped) by every iteration's NEXT, popped only on
// the exit iteration. FOR itself never branches (classic BASIC always runs
// the loop body at least once); it only registers the loop context NEXT
// needs (the variable's address and the body's entry offset) so a bare
// NEXT, with no operand of its own, knows where to jump back to.
func (c *compiler) compileFor(st *parser.ForStmt) {
	sym := c.resolveVar(st.Var)
	ft := c.emitExpr(st.From)
	c.castTo(ft, sym.Type)
	c.b.Emit(ir.Instr{Op: ir.OpSto, Type: sym.Type, Addr: ir.Ref{Var: sym.Name}})

	tt := c.emitExpr(st.To)
	c.castTo(tt, sym.Type)
	if st.Step != nil {
		st2 := c.emitExpr(st.Step)
		c.castTo(st2, sym.Type)
	} else {
		c.b.Emit(ir.Instr{Op: ir.OpPush, Type: sym.Type, Imm: c.one(sym.Type)})
	}

	// FOR carries the loop variable's address; that's the only operand this
	// opcode has room for (§4.3), so the body's re-entry point and the
	// TO/STEP values are tracked entirely by the VM's own runtime loop
	// context, pushed here and popped/peeked by NEXT below.
	c.b.Emit(ir.Instr{Op: ir.OpFor, Addr: ir.Ref{Var: sym.Name}})
	c.forStack = append(c.forStack, forFrame{varName: sym.Name})
}

// one returns the numeric literal 1 in Type t's representation (Int or
// Float), for STEP's implicit default.
func (c *compiler) one(t value.Type) value.Value {
	if t == value.Int {
		return value.NewInt(1)
	}
	return value.NewFloat(1)
}

// compileNext lowers NEXT [v1, v2, ...]: each name (or a single bare NEXT)
// closes one innermost open loop, regardless of whether the name matches —
// matching is implicit via the runtime for-stack's LIFO order, per §4.4's
// note that the compiler does not enforce FOR/NEXT nesting.
func (c *compiler) compileNext(st *parser.NextStmt) {
	n := len(st.Vars)
	if n == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if len(c.forStack) == 0 {
			c.error("NEXT without FOR")
			return
		}
		frame := c.forStack[len(c.forStack)-1]
		c.forStack = c.forStack[:len(c.forStack)-1]
		c.b.Emit(ir.Instr{Op: ir.OpNext, Addr: ir.Ref{Var: frame.varName, Label: frame.bodyLabel}})
	}
}

// compileOn lowers ON expr GOTO/GOSUB n1, n2, ...: the selector is compared
// against each 1-based alternative in turn; GOTO alternatives transfer
// control directly, GOSUB alternatives call and then jump past the trailing
// discard (which only runs when no alternative matched).
func (c *compiler) compileOn(st *parser.OnStmt) {
	t := c.emitExpr(st.Expr)
	c.castTo(t, value.Int)
	endLabel := c.newLabel()
	for i, target := range st.Targets {
		label, ok := c.lineLabel[target]
		if !ok {
			c.error("ON GOTO/GOSUB to undefined line")
			continue
		}
		nextLabel := c.newLabel()
		c.b.Emit(ir.Instr{Op: ir.OpDup})
		c.b.Emit(ir.Instr{Op: ir.OpPush, Type: value.Int, Imm: value.NewInt(int32(i + 1))})
		c.b.Emit(ir.Instr{Op: ir.OpEq})
		c.b.Emit(ir.Instr{Op: ir.OpJz, Ref: ir.Ref{Label: nextLabel}})
		c.b.Emit(ir.Instr{Op: ir.OpPop})
		if st.IsGosub {
			c.b.Emit(ir.Instr{Op: ir.OpJsr, Ref: ir.Ref{Label: label}})
			c.b.Emit(ir.Instr{Op: ir.OpJump, Ref: ir.Ref{Label: endLabel}})
		} else {
			c.b.Emit(ir.Instr{Op: ir.OpJump, Ref: ir.Ref{Label: label}})
		}
		c.b.Bind(nextLabel)
	}
	c.b.Emit(ir.Instr{Op: ir.OpPop}) // selector matched nothing: discard it
	c.b.Bind(endLabel)
}

// compileCallStmt lowers a built-in invoked in statement position. HOME,
// TEXT, FLASH, NORMAL, INVERSE take no arguments; VTAB/HTAB/POKE/GET take
// the parsed args through the ordinary CALL protocol. CALL (an arbitrary
// machine-code address call in real Applesoft) has no analog on this VM and
// is accepted as a no-op: its address argument is still evaluated (for any
// side effects in the expression) and discarded.
func (c *compiler) compileCallStmt(st *parser.CallStmt) {
	name := strings.ToLower(st.Name)
	if name == "call" {
		for _, a := range st.Args {
			c.emitExpr(a)
			c.b.Emit(ir.Instr{Op: ir.OpPop})
		}
		return
	}
	if name == "get" && len(st.Args) == 1 {
		c.emitCall(library.FnGet, 0)
		c.compileAssignValue(st.Args[0], value.String)
		return
	}
	id, ok := library.Lookup(name)
	if !ok {
		c.error("unknown built-in statement " + st.Name)
		return
	}
	for _, a := range st.Args {
		t := c.emitExpr(a)
		c.castTo(t, value.Float)
	}
	c.emitCall(id, len(st.Args))
}
