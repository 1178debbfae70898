// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package compiler implements the two-pass BASIC-to-IR compiler (§4.4): it
// walks the parsed AST, resolves every identifier to a Symbol with a global
// address, maintains the compile-time shadow type stack that drives
// implicit CAST insertion, and lowers every statement to the IR opcode set.
//
// Grounded on the teacher's (db47h/ngaro) asm/parser.go single left-to-right
// emission pass (its `p.write`/`p.makeLabelRef` pair generalizes directly
// into this package's `emit`/label-reference helpers), generalized from a
// flat assembly mnemonic stream to a full BASIC statement and expression
// grammar.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/braeun/eamon-interpreter/address"
	"github.com/braeun/eamon-interpreter/ir"
	"github.com/braeun/eamon-interpreter/parser"
	"github.com/braeun/eamon-interpreter/symbol"
	"github.com/braeun/eamon-interpreter/value"
)

// ErrList aggregates compile diagnostics, capped at maxErrors — mirrors the
// teacher's asm.ErrAsm.
type ErrList []string

const maxErrors = 10

func (e ErrList) Error() string { return strings.Join(e, "\n") }

// defaultArraySize is the implicit dimension of an array referenced without
// a preceding DIM, per Applesoft's DIM-less array convention (11 slots,
// indices 0 through 10).
const defaultArraySize = 11

type forFrame struct {
	varName   string
	bodyLabel string
}

// userFunc is a compiled DEF FN: its single parameter and result each get a
// hidden global slot (bypassing the normal 2-char name folding, since these
// names are compiler-generated and never typed by the program), and its body
// is emitted once, after the main program, as a JSR/RET subroutine.
type userFunc struct {
	name      string
	param     string // original BASIC parameter name, upper-cased
	paramVar  *symbol.Symbol
	resultVar *symbol.Symbol
	label     string
	body      parser.Expr
}

// Result is everything the assembler needs to link an executable image.
type Result struct {
	Builder   *ir.Builder
	Variables *symbol.Table
	Constants *symbol.Table
	Functions *symbol.Table
	Data      []value.Value

	// FuncEntry maps each DEF FN's upper-cased name to the internal label of
	// its compiled subroutine body, so the assembler can populate the
	// VTBL segment (§3's "function ordinal -> instruction offset").
	FuncEntry map[string]string
}

type compiler struct {
	b         *ir.Builder
	vars      *symbol.Table
	consts    *symbol.Table
	funcs     *symbol.Table
	errs      ErrList
	lineLabel map[int]string
	forStack  []forFrame
	data      []value.Value
	constSeq  int
	curLine   int
	defFnVar  map[string]string // FN param name -> mangled global name, while compiling a DEF FN body

	userFuncs map[string]*userFunc // FN name (upper) -> compiled definition
	funcOrder []string             // declaration order, for deterministic subroutine emission
}

// Compile lowers a parsed program into IR plus its symbol tables and DATA
// pool. If the returned error is non-nil it can be type-asserted to ErrList.
func Compile(prog *parser.Program) (*Result, error) {
	c := &compiler{
		b:         ir.NewBuilder(),
		vars:      symbol.NewTable(symbol.KindVariable),
		consts:    symbol.NewTable(symbol.KindConstant),
		funcs:     symbol.NewTable(symbol.KindFunction),
		lineLabel: make(map[int]string),
	}
	c.collectData(prog)
	c.collectLineLabels(prog)
	c.collectDefFns(prog)
	for _, line := range prog.Lines {
		if c.abort() {
			break
		}
		c.curLine = line.Num
		c.b.Bind(c.lineLabel[line.Num])
		c.b.Emit(ir.Instr{Op: ir.OpLine, Line: line.Num})
		for _, s := range line.Stmts {
			c.compileStmt(s)
		}
	}
	c.b.Emit(ir.Instr{Op: ir.OpEnd})
	c.emitUserFuncBodies()
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	entry := make(map[string]string, len(c.userFuncs))
	for name, uf := range c.userFuncs {
		entry[name] = uf.label
	}
	return &Result{
		Builder: c.b, Variables: c.vars, Constants: c.consts, Functions: c.funcs,
		Data: c.data, FuncEntry: entry,
	}, nil
}

// collectDefFns pre-declares every DEF FN in the program (name, hidden
// parameter/result slots, subroutine label) before any statement is
// compiled, so a call site lexically earlier than its definition still
// resolves — matching Applesoft, where DEF FN is processed independent of
// execution order.
func (c *compiler) collectDefFns(prog *parser.Program) {
	c.userFuncs = make(map[string]*userFunc)
	for _, line := range prog.Lines {
		for _, s := range line.Stmts {
			d, ok := s.(*parser.DefFnStmt)
			if !ok {
				continue
			}
			c.curLine = line.Num
			upper := strings.ToUpper(d.Name)
			if _, dup := c.userFuncs[upper]; dup {
				c.error("duplicate DEF FN " + d.Name)
				continue
			}
			uf := &userFunc{
				name:      upper,
				param:     strings.ToUpper(d.Param),
				paramVar:  c.declareHidden("__"+upper+"_"+strings.ToUpper(d.Param), typeOfName(d.Param)),
				resultVar: c.declareHidden("__"+upper+"_RESULT", typeOfName(d.Name)),
				label:     c.newLabel(),
				body:      d.Body,
			}
			c.userFuncs[upper] = uf
			c.funcOrder = append(c.funcOrder, upper)
			c.funcs.Add(symbol.Symbol{Name: upper, Address: address.Global(len(c.funcOrder) - 1), Type: uf.resultVar.Type, Kind: symbol.KindFunction})
		}
	}
}

// emitUserFuncBodies emits every DEF FN body as a subroutine, in declaration
// order, after the main program's OpEnd: JSR transfers in with the argument
// already stored into paramVar by the call site (see emitUserCall), the body
// expression is evaluated and stashed in resultVar, and RET returns.
func (c *compiler) emitUserFuncBodies() {
	for _, name := range c.funcOrder {
		uf := c.userFuncs[name]
		c.b.Bind(uf.label)
		old := c.defFnVar
		c.defFnVar = map[string]string{uf.param: uf.paramVar.Name}
		t := c.emitExpr(uf.body)
		c.castTo(t, uf.resultVar.Type)
		c.b.Emit(ir.Instr{Op: ir.OpSto, Type: uf.resultVar.Type, Addr: ir.Ref{Var: uf.resultVar.Name}})
		c.defFnVar = old
		c.b.Emit(ir.Instr{Op: ir.OpRet})
	}
}

// declareHidden adds a compiler-generated global slot under its full,
// un-folded name — used for DEF FN parameter/result binding, which must not
// collide with the 2-char Applesoft identifier rule applied to ordinary
// variables.
func (c *compiler) declareHidden(name string, t value.Type) *symbol.Symbol {
	if sym := c.vars.Find(name); sym != nil {
		return sym
	}
	idx := c.vars.Len()
	return c.vars.Add(symbol.Symbol{Name: name, Address: address.Global(idx), Type: t})
}

func (c *compiler) abort() bool { return len(c.errs) >= maxErrors }

func (c *compiler) error(msg string) {
	if c.abort() {
		return
	}
	c.errs = append(c.errs, fmt.Sprintf("line %d: %s", c.curLine, msg))
}

func (c *compiler) collectLineLabels(prog *parser.Program) {
	for _, line := range prog.Lines {
		if _, dup := c.lineLabel[line.Num]; dup {
			c.curLine = line.Num
			c.error("duplicate line number")
			continue
		}
		c.lineLabel[line.Num] = fmt.Sprintf("LINE_%d", line.Num)
	}
}

// collectData walks every DATA statement in program order (regardless of
// control flow) to build the static DATA pool READ draws from — matching
// classic BASIC semantics where DATA is a compile-time constant stream.
func (c *compiler) collectData(prog *parser.Program) {
	for _, line := range prog.Lines {
		for _, s := range line.Stmts {
			d, ok := s.(*parser.DataStmt)
			if !ok {
				continue
			}
			for _, e := range d.Values {
				switch v := e.(type) {
				case *parser.StringLit:
					c.data = append(c.data, value.NewString(v.Value))
				case *parser.NumberLit:
					c.data = append(c.data, numberLitValue(v))
				}
			}
		}
	}
}

func numberLitValue(n *parser.NumberLit) value.Value {
	if !strings.ContainsAny(n.Text, ".eE") {
		if i, err := strconv.ParseInt(n.Text, 10, 32); err == nil {
			return value.NewInt(int32(i))
		}
	}
	f, _ := strconv.ParseFloat(n.Text, 64)
	return value.NewFloat(f)
}

// canonicalName implements Applesoft's identifier-folding rule: only the
// first two characters are significant, with the type suffix ('$' or '%')
// always preserved, so AA1 and AARDVARK collide on purpose.
func canonicalName(name string) string {
	suffix := ""
	base := name
	if strings.HasSuffix(name, "$") || strings.HasSuffix(name, "%") {
		suffix = name[len(name)-1:]
		base = name[:len(name)-1]
	}
	if len(base) > 2 {
		base = base[:2]
	}
	return strings.ToUpper(base) + suffix
}

func typeOfName(name string) value.Type {
	switch {
	case strings.HasSuffix(name, "$"):
		return value.String
	case strings.HasSuffix(name, "%"):
		return value.Int
	default:
		return value.Float
	}
}

// resolveVar resolves name (after canonicalization and any active DEF FN
// parameter rename) to its Symbol, declaring a new scalar if never seen.
func (c *compiler) resolveVar(name string) *symbol.Symbol {
	if mangled, ok := c.defFnVar[strings.ToUpper(name)]; ok {
		if sym := c.vars.Find(mangled); sym != nil {
			return sym
		}
	}
	cn := canonicalName(name)
	if sym := c.vars.Find(cn); sym != nil {
		return sym
	}
	idx := c.vars.Len()
	return c.vars.Add(symbol.Symbol{
		Name:    cn,
		Address: address.Global(idx),
		Type:    typeOfName(cn),
	})
}

// dimVarNames returns the names of the (up to 2) scalar siblings that hold
// an array's declared dimensions, per spec §4.4's variable naming rule:
// "<name>dim1" and optionally "<name>dim2".
func dimVarNames(cn string) [2]string { return [2]string{cn + "dim1", cn + "dim2"} }

// declareDimVar declares (or finds) an Int scalar sibling used to hold one
// of an array's dimensions.
func (c *compiler) declareDimVar(name string) *symbol.Symbol {
	if sym := c.vars.Find(name); sym != nil {
		return sym
	}
	idx := c.vars.Len()
	return c.vars.Add(symbol.Symbol{Name: name, Address: address.Global(idx), Type: value.Int})
}

// resolveArray resolves an array reference, declaring it with the implicit
// dimension if this is its first mention. Each dimension's size is also
// stored into its "<name>dimN" sibling (spec §4.4), so a program that reads
// one back sees the same count used to size the array.
func (c *compiler) resolveArray(name string, dims int) *symbol.Symbol {
	cn := canonicalName(name)
	if sym := c.vars.Find(cn); sym != nil {
		return sym
	}
	scalarType := typeOfName(cn)
	idx := c.vars.Len()
	sym := c.vars.Add(symbol.Symbol{
		Name:    cn,
		Address: address.Global(idx),
		Type:    value.ArrayOf(scalarType),
	})
	dimNames := dimVarNames(cn)
	for i := 0; i < dims; i++ {
		c.b.Emit(ir.Instr{Op: ir.OpPush, Type: value.Int, Imm: value.NewInt(defaultArraySize)})
		if i < len(dimNames) {
			dimVar := c.declareDimVar(dimNames[i])
			c.b.Emit(ir.Instr{Op: ir.OpDup})
			c.b.Emit(ir.Instr{Op: ir.OpSto, Type: value.Int, Addr: ir.Ref{Var: dimVar.Name}})
		}
		if i > 0 {
			c.b.Emit(ir.Instr{Op: ir.OpMul})
		}
	}
	c.b.Emit(ir.Instr{Op: ir.OpRsz, Type: scalarType, Addr: ir.Ref{Var: sym.Name}})
	return sym
}

// declareArrayExplicit handles a DIM statement's array declarations: each
// dimension expression is evaluated at runtime (Applesoft DIM bounds need
// not be compile-time constants) and sized dim+1 (DIM A(10) holds indices 0
// through 10), with multi-dimensional arrays flattened so the first index
// varies fastest (see emitArrayIndex). Each
// dim+1 value is also stored into its "<name>dimN" sibling (spec §4.4).
func (c *compiler) declareArrayExplicit(name string, dimExprs []parser.Expr) *symbol.Symbol {
	cn := canonicalName(name)
	if sym := c.vars.Find(cn); sym != nil {
		c.error("redimensioned array " + cn)
		return sym
	}
	scalarType := typeOfName(cn)
	idx := c.vars.Len()
	sym := c.vars.Add(symbol.Symbol{
		Name:    cn,
		Address: address.Global(idx),
		Type:    value.ArrayOf(scalarType),
	})
	dimNames := dimVarNames(cn)
	if len(dimExprs) == 0 {
		c.b.Emit(ir.Instr{Op: ir.OpPush, Type: value.Int, Imm: value.NewInt(defaultArraySize)})
		dimVar := c.declareDimVar(dimNames[0])
		c.b.Emit(ir.Instr{Op: ir.OpDup})
		c.b.Emit(ir.Instr{Op: ir.OpSto, Type: value.Int, Addr: ir.Ref{Var: dimVar.Name}})
	} else {
		for i, d := range dimExprs {
			t := c.emitExpr(d)
			c.castTo(t, value.Int)
			c.b.Emit(ir.Instr{Op: ir.OpPush, Type: value.Int, Imm: value.NewInt(1)})
			c.b.Emit(ir.Instr{Op: ir.OpAdd})
			if i < len(dimNames) {
				dimVar := c.declareDimVar(dimNames[i])
				c.b.Emit(ir.Instr{Op: ir.OpDup})
				c.b.Emit(ir.Instr{Op: ir.OpSto, Type: value.Int, Addr: ir.Ref{Var: dimVar.Name}})
			}
			if i > 0 {
				c.b.Emit(ir.Instr{Op: ir.OpMul})
			}
		}
	}
	c.b.Emit(ir.Instr{Op: ir.OpRsz, Type: scalarType, Addr: ir.Ref{Var: sym.Name}})
	return sym
}

// targetType resolves e (declaring it if necessary) and reports its Type,
// without emitting an access — used by READ/INPUT to know what to cast CALL
// results to before storing.
func (c *compiler) targetType(e parser.Expr) value.Type {
	switch t := e.(type) {
	case *parser.VarExpr:
		return c.resolveVar(t.Name).Type
	case *parser.IndexExpr:
		return c.resolveArray(t.Name, len(t.Args)).Type.Elem()
	default:
		c.error("invalid assignment target")
		return value.Float
	}
}

// compileAssignValue stores a value of type vt, already sitting on top of
// the value stack, into target — a scalar STO or an indexed STOI. Shared by
// LET, READ and INPUT so each has exactly one place that knows the STO/STOI
// operand convention (value pushed first, any array index pushed after).
func (c *compiler) compileAssignValue(target parser.Expr, vt value.Type) {
	switch t := target.(type) {
	case *parser.VarExpr:
		sym := c.resolveVar(t.Name)
		c.castTo(vt, sym.Type)
		c.b.Emit(ir.Instr{Op: ir.OpSto, Type: sym.Type, Addr: ir.Ref{Var: sym.Name}})
	case *parser.IndexExpr:
		sym := c.resolveArray(t.Name, len(t.Args))
		elem := sym.Type.Elem()
		c.castTo(vt, elem)
		c.emitArrayIndex(sym, t.Args)
		c.b.Emit(ir.Instr{Op: ir.OpStoi, Type: elem, Addr: ir.Ref{Var: sym.Name}})
	default:
		c.error("invalid assignment target")
	}
}

// compileLet evaluates value and stores it into target, per compileAssignValue's
// stack convention.
func (c *compiler) compileLet(target, valueExpr parser.Expr) {
	vt := c.emitExpr(valueExpr)
	c.compileAssignValue(target, vt)
}

func (c *compiler) newLabel() string { return c.b.NewLabel() }
