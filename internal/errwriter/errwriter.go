// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package errwriter implements a "sticky first error" io.Writer wrapper:
// once a write fails, every subsequent Write is a no-op that keeps
// returning the same error, so a long chain of unconditional dump writes
// (cmd/eamonvm's debug-dump output) can skip per-call error checks
// and only look at Err once, at the end.
//
// Grounded on the teacher's (db47h/ngaro) internal/ngi.ErrWriter, used the
// same way by its cmd/retro dump.go.
package errwriter

import (
	"io"

	"github.com/pkg/errors"
)

// ErrWriter wraps an io.Writer, recording the first write error and
// refusing to write again afterwards.
type ErrWriter struct {
	w   io.Writer
	Err error
}

// New returns an ErrWriter wrapping w.
func New(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}

// Write implements io.Writer. Once Err is set, Write is a no-op that
// returns (0, Err).
func (w *ErrWriter) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	if err != nil {
		w.Err = errors.Wrap(err, "write failed")
	}
	return n, w.Err
}

// WriteString is a convenience wrapper over Write.
func (w *ErrWriter) WriteString(s string) {
	io.WriteString(w, s)
}
