// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package library implements the BASIC built-in function table (§4.6) and
// the DOS-command-over-PRINT protocol, plus the two small interfaces the VM
// talks to the host through: InputSource and OutputSink (§6).
//
// Grounded on the teacher's (db47h/ngaro) injected io.Reader/io.Writer
// options (vm.Input/vm.Output) and its vt100Terminal default OutputSink
// implementation in vm/io_helpers.go; this generalizes that single
// Reader/Writer pair into the richer BASIC-level InputSource/OutputSink
// contract (prompts, cursor position, text/graphics mode, hires pages) the
// spec requires, and the port-driven ioWait() state machine in vm/io.go
// into the DOS command buffer in dos.go.
package library

// InputSource is the host-provided blocking input source.
type InputSource interface {
	ReadLine() (string, error)
	ReadChar() (byte, error)
	LastKey() byte
	LastEntry() string
	EchoInput() bool
}

// OutputSink is the host-provided, fire-and-forget output sink. All methods
// may be called from the VM's execution thread and must tolerate being
// invoked repeatedly without blocking it.
type OutputSink interface {
	Write(s string)
	GotoColumn(col int)
	GotoRow(row int)
	Home()
	Inverse(on bool)
	Normal()
	SetMode(graphics bool)
	NotifyHiresLoaded(page int, data []byte)
	Flush()
	CursorRow() int
	CursorColumn() int
}
