// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package main

import (
	"fmt"
	"io"

	"github.com/braeun/eamon-interpreter/internal/errwriter"
	"github.com/braeun/eamon-interpreter/value"
	"github.com/braeun/eamon-interpreter/vm"
)

// dumpVM prints a best-effort trace of machine's state on a fatal runtime
// error: current line, the value stack and call stack, adapted from the
// teacher's (db47h/ngaro) cmd/retro/dump.go dumpVM/dumpSlice, which does the
// same for the Ngaro core's data/address stacks. Errors while writing are
// swallowed via internal/errwriter — a dump that fails partway through is
// still better than none.
func dumpVM(w io.Writer, machine *vm.VM) {
	ew := errwriter.New(w)
	fmt.Fprintf(ew, "--- trace: line %d ---\n", machine.CurrentLine())
	dumpValueSlice(ew, "stack", machine.Stack())
	dumpIntSlice(ew, "calls", machine.Calls())
}

func dumpValueSlice(w *errwriter.ErrWriter, label string, s []value.Value) {
	fmt.Fprintf(w, "%s (%d):\n", label, len(s))
	for i, v := range s {
		fmt.Fprintf(w, "  [%d] %s\n", i, v.GoString())
	}
}

func dumpIntSlice(w *errwriter.ErrWriter, label string, s []int) {
	fmt.Fprintf(w, "%s (%d):\n", label, len(s))
	for i, v := range s {
		fmt.Fprintf(w, "  [%d] %d\n", i, v)
	}
}
