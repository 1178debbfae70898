// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package rterr implements the runtime exception taxonomy shared by the VM
// and the Library (§7): a small tagged error carrying a BASIC-visible error
// code, the kind of condition that triggered it, surfaced to BASIC code via
// PEEK(222) and to the host as a wrapped Go error.
//
// Grounded on the teacher's (db47h/ngaro) use of panic/recover around its
// fetch loop for out-of-range stack/memory accesses (vm/core.go's Run
// recovers any panic and wraps it with github.com/pkg/errors); this
// generalizes that same panic-for-opcode-level-faults/recover-at-loop-top
// discipline into a closed set of named runtime exceptions.
package rterr

import "fmt"

// Code is the BASIC-visible error code surfaced by PEEK(222).
type Code int

const (
	CodeStackUnderflow Code = 1
	CodeIllegalQuantity Code = 2
	CodeIllegalOp       Code = 3
	CodeOutOfData       Code = 5
	CodeFileNotFound    Code = 6
	CodeUnknownOpcode   Code = 7
)

// RuntimeError is a VM-level exception: a panic value recovered by the VM's
// fetch/decode/execute loop and either dispatched to the BASIC-level
// `onerr` handler or wrapped and returned to the host.
type RuntimeError struct {
	Code Code
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Msg, e.Code)
}

// New constructs a RuntimeError.
func New(code Code, msg string) *RuntimeError {
	return &RuntimeError{Code: code, Msg: msg}
}

// StackUnderflow raises the STACK UNDERFLOW runtime exception.
func StackUnderflow() *RuntimeError { return New(CodeStackUnderflow, "STACK UNDERFLOW") }

// IllegalQuantity raises the ILLEGAL QUANTITY runtime exception.
func IllegalQuantity(detail string) *RuntimeError {
	return New(CodeIllegalQuantity, "ILLEGAL QUANTITY: "+detail)
}

// IllegalOp raises the ILLEGAL OP runtime exception.
func IllegalOp(detail string) *RuntimeError {
	return New(CodeIllegalOp, "ILLEGAL OP: "+detail)
}

// OutOfData raises the OUT OF DATA runtime exception.
func OutOfData() *RuntimeError { return New(CodeOutOfData, "OUT OF DATA") }

// FileNotFound raises the FILE NOT FOUND runtime exception.
func FileNotFound(name string) *RuntimeError {
	return New(CodeFileNotFound, "FILE NOT FOUND: "+name)
}

// UnknownOpcode raises the UNKNOWN OPCODE runtime exception (malformed
// image).
func UnknownOpcode(op uint8) *RuntimeError {
	return New(CodeUnknownOpcode, fmt.Sprintf("UNKNOWN OPCODE: %d", op))
}
