// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package library

// FuncID is an 8-bit library function identifier, the operand of the IR's
// CALL opcode. Grounded on the teacher's (db47h/ngaro) asm.opcodes /
// vm.opcodes dense name tables: one ordered array of names doubles as the
// compiler's name->ID map and, reversed, as the ID->name table behind Name.
type FuncID uint8

const (
	FnPrint FuncID = iota
	FnInput
	FnRead
	FnSin
	FnCos
	FnTan
	FnAsin
	FnAcos
	FnAtan
	FnAtan2
	FnSqrt
	FnExp
	FnLog
	FnLog10
	FnLog2
	FnAbs
	FnTab
	FnSgn
	FnRnd
	FnInt
	FnPrintf
	FnLeft
	FnMid
	FnMid1
	FnRight
	FnLen
	FnAsc
	FnChr
	FnVal
	FnStr
	FnPow
	FnPeek
	FnPoke
	FnGet
	FnInverse
	FnNormal
	FnVtab
	FnHtab
	FnSpc
	FnHome
	FnFlash
	FnText
	FnFre
	FnRestore
	FnTabZone
	FnPrintEnd

	fnCount
)

var names = [...]string{
	FnPrint:   "print",
	FnInput:   "input",
	FnRead:    "read",
	FnSin:     "sin",
	FnCos:     "cos",
	FnTan:     "tan",
	FnAsin:    "asin",
	FnAcos:    "acos",
	FnAtan:    "atan",
	FnAtan2:   "atan2",
	FnSqrt:    "sqrt",
	FnExp:     "exp",
	FnLog:     "log",
	FnLog10:   "log10",
	FnLog2:    "log2",
	FnAbs:     "abs",
	FnTab:     "tab",
	FnSgn:     "sgn",
	FnRnd:     "rnd",
	FnInt:     "int",
	FnPrintf:  "printf",
	FnLeft:    "left$",
	FnMid:     "mid$",
	FnMid1:    "mid1$",
	FnRight:   "right$",
	FnLen:     "len",
	FnAsc:     "asc",
	FnChr:     "chr$",
	FnVal:     "val",
	FnStr:     "str$",
	FnPow:     "pow",
	FnPeek:    "peek",
	FnPoke:    "poke",
	FnGet:     "get",
	FnInverse: "inverse",
	FnNormal:  "normal",
	FnVtab:    "vtab",
	FnHtab:    "htab",
	FnSpc:     "spc",
	FnHome:    "home",
	FnFlash:   "flash",
	FnText:    "text",
	FnFre:     "fre",
	FnRestore: "restore",
	FnTabZone: "tabzone",
	FnPrintEnd: "printend",
}

var nameIndex = func() map[string]FuncID {
	m := make(map[string]FuncID, len(names))
	for id, n := range names {
		m[n] = FuncID(id)
	}
	return m
}()

// Name returns the BASIC-visible function name for id.
func (id FuncID) Name() string {
	if int(id) < len(names) {
		return names[id]
	}
	return "?"
}

// Lookup returns the FuncID for a BASIC built-in name, and whether it was
// found.
func Lookup(name string) (FuncID, bool) {
	id, ok := nameIndex[name]
	return id, ok
}
