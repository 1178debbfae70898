// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package compiler

import (
	"strings"

	"github.com/braeun/eamon-interpreter/ir"
	"github.com/braeun/eamon-interpreter/library"
	"github.com/braeun/eamon-interpreter/parser"
	"github.com/braeun/eamon-interpreter/symbol"
	"github.com/braeun/eamon-interpreter/value"
)

// emitExpr lowers e, leaving exactly one value of the returned Type on the
// stack. It drives the shadow type stack implicitly: every call site that
// needs a particular type calls castTo after emitExpr.
func (c *compiler) emitExpr(e parser.Expr) value.Type {
	switch ex := e.(type) {
	case *parser.NumberLit:
		v := numberLitValue(ex)
		c.b.Emit(ir.Instr{Op: ir.OpPush, Type: v.Type(), Imm: v})
		return v.Type()

	case *parser.StringLit:
		c.b.Emit(ir.Instr{Op: ir.OpPush, Type: value.String, Imm: value.NewString(ex.Value)})
		return value.String

	case *parser.VarExpr:
		sym := c.resolveVar(ex.Name)
		if sym.Type.Array() {
			c.error("array " + sym.Name + " used without subscript")
			return sym.Type.Elem()
		}
		c.b.Emit(ir.Instr{Op: ir.OpRcl, Type: sym.Type, Addr: ir.Ref{Var: sym.Name}})
		return sym.Type

	case *parser.IndexExpr:
		return c.emitIndexExpr(ex)

	case *parser.UnaryExpr:
		return c.emitUnary(ex)

	case *parser.BinaryExpr:
		return c.emitBinary(ex)
	}
	c.error("unsupported expression")
	return value.Float
}

// emitIndexExpr dispatches an IndexExpr to a library built-in, a user DEF FN,
// or an array element access, in that precedence order — built-in and
// function names are reserved and shadow any array of the same name.
func (c *compiler) emitIndexExpr(ex *parser.IndexExpr) value.Type {
	lower := strings.ToLower(ex.Name)
	if id, ok := library.Lookup(lower); ok {
		return c.emitBuiltinCall(id, ex.Args)
	}
	upper := strings.ToUpper(ex.Name)
	if uf, ok := c.userFuncs[upper]; ok {
		return c.emitUserCall(uf, ex.Args)
	}
	sym := c.resolveArray(ex.Name, len(ex.Args))
	return c.emitArrayAccess(sym, ex.Args)
}

func (c *compiler) emitBuiltinCall(id library.FuncID, args []parser.Expr) value.Type {
	for _, a := range args {
		t := c.emitExpr(a)
		c.castTo(t, builtinArgType(id))
	}
	c.emitCall(id, len(args))
	return builtinResultType(id)
}

// builtinArgType and builtinResultType give the compiler enough of each
// built-in's signature to insert the right CASTs; the library itself is
// liberal about what it accepts (everything coerces through value.Value),
// but the compiler still needs a concrete pushed type per stack slot.
func builtinArgType(id library.FuncID) value.Type {
	switch id {
	case library.FnLeft, library.FnRight, library.FnMid, library.FnMid1,
		library.FnLen, library.FnAsc, library.FnVal, library.FnPrint, library.FnPrintf:
		return value.String
	default:
		return value.Float
	}
}

func builtinResultType(id library.FuncID) value.Type {
	switch id {
	case library.FnLeft, library.FnRight, library.FnMid, library.FnMid1,
		library.FnChr, library.FnStr, library.FnInput, library.FnGet:
		return value.String
	case library.FnInt, library.FnAsc, library.FnSgn, library.FnPeek, library.FnFre:
		return value.Int
	default:
		return value.Float
	}
}

func (c *compiler) emitUserCall(uf *userFunc, args []parser.Expr) value.Type {
	if len(args) != 1 {
		c.error("DEF FN call requires exactly one argument")
	} else {
		t := c.emitExpr(args[0])
		c.castTo(t, uf.paramVar.Type)
		c.b.Emit(ir.Instr{Op: ir.OpSto, Type: uf.paramVar.Type, Addr: ir.Ref{Var: uf.paramVar.Name}})
	}
	c.b.Emit(ir.Instr{Op: ir.OpJsr, Ref: ir.Ref{Label: uf.label}})
	c.b.Emit(ir.Instr{Op: ir.OpRcl, Type: uf.resultVar.Type, Addr: ir.Ref{Var: uf.resultVar.Name}})
	return uf.resultVar.Type
}

func (c *compiler) emitArrayAccess(sym *symbol.Symbol, args []parser.Expr) value.Type {
	c.emitArrayIndex(sym, args)
	elem := sym.Type.Elem()
	c.b.Emit(ir.Instr{Op: ir.OpRcli, Type: elem, Addr: ir.Ref{Var: sym.Name}})
	return elem
}

// emitArrayIndex pushes the flattened offset for a (possibly
// multi-dimensional) array reference: the first index plus each later index
// times the first dimension's size, read at runtime from "<name>dim1".
func (c *compiler) emitArrayIndex(sym *symbol.Symbol, args []parser.Expr) {
	for i, a := range args {
		t := c.emitExpr(a)
		c.castTo(t, value.Int)
		if i > 0 {
			dim1 := c.declareDimVar(dimVarNames(sym.Name)[0])
			c.b.Emit(ir.Instr{Op: ir.OpRcl, Type: value.Int, Addr: ir.Ref{Var: dim1.Name}})
			c.b.Emit(ir.Instr{Op: ir.OpMul})
			c.b.Emit(ir.Instr{Op: ir.OpAdd})
		}
	}
}

func (c *compiler) emitUnary(ex *parser.UnaryExpr) value.Type {
	t := c.emitExpr(ex.X)
	switch ex.Op {
	case "-":
		c.b.Emit(ir.Instr{Op: ir.OpNeg})
		return t
	case "NOT":
		c.castTo(t, value.Int)
		c.b.Emit(ir.Instr{Op: ir.OpNot})
		return value.Int
	}
	return t
}

func (c *compiler) emitBinary(ex *parser.BinaryExpr) value.Type {
	switch ex.Op {
	case "AND", "OR":
		lt := c.emitExpr(ex.L)
		c.castTo(lt, value.Int)
		rt := c.emitExpr(ex.R)
		c.castTo(rt, value.Int)
		if ex.Op == "AND" {
			c.b.Emit(ir.Instr{Op: ir.OpAnd})
		} else {
			c.b.Emit(ir.Instr{Op: ir.OpOr})
		}
		return value.Int
	case "^":
		lt := c.emitExpr(ex.L)
		c.castTo(lt, value.Float)
		rt := c.emitExpr(ex.R)
		c.castTo(rt, value.Float)
		c.emitCall(library.FnPow, 2)
		return value.Float
	}

	lt := c.emitExpr(ex.L)
	rt := c.emitExpr(ex.R)
	// CAST operates on the top of the value stack, i.e. whatever was pushed
	// last (R) — it can't reach back down to L. value.Value's own arithmetic
	// (Add/Sub/.../Compare) already widens its two operands dynamically from
	// their own type tags, so no CAST is needed here at all: the computed
	// wide type is only used below to report this expression's static type
	// to the caller's shadow type stack.
	wide := widenForOp(ex.Op, lt, rt)
	switch ex.Op {
	case "+":
		c.b.Emit(ir.Instr{Op: ir.OpAdd})
	case "-":
		c.b.Emit(ir.Instr{Op: ir.OpSub})
	case "*":
		c.b.Emit(ir.Instr{Op: ir.OpMul})
	case "/":
		c.b.Emit(ir.Instr{Op: ir.OpDiv})
	case "=":
		c.b.Emit(ir.Instr{Op: ir.OpEq})
	case "<>":
		c.b.Emit(ir.Instr{Op: ir.OpNe})
	case "<":
		c.b.Emit(ir.Instr{Op: ir.OpLt})
	case "<=":
		c.b.Emit(ir.Instr{Op: ir.OpLe})
	case ">":
		c.b.Emit(ir.Instr{Op: ir.OpGt})
	case ">=":
		c.b.Emit(ir.Instr{Op: ir.OpGe})
	default:
		c.error("unknown operator " + ex.Op)
	}
	switch ex.Op {
	case "=", "<>", "<", "<=", ">", ">=":
		return value.Int
	default:
		return wide
	}
}

func widenForOp(op string, l, r value.Type) value.Type {
	if l == value.String || r == value.String {
		return value.String
	}
	return value.Widen(l, r)
}

// castTo emits a CAST if from != to, per the shadow type stack's job of
// reconciling an expression's natural type with where it is about to be
// consumed (an assignment target, a built-in parameter, a binary operand).
func (c *compiler) castTo(from, to value.Type) {
	if from == to {
		return
	}
	c.b.Emit(ir.Instr{Op: ir.OpCast, Type: to})
}
