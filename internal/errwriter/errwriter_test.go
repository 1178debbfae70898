// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package errwriter_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/braeun/eamon-interpreter/internal/errwriter"
)

type failAfter struct {
	n int
}

func (f *failAfter) Write(p []byte) (int, error) {
	if f.n <= 0 {
		return 0, errors.New("boom")
	}
	f.n--
	return len(p), nil
}

func TestWritesPassThroughUntilFirstError(t *testing.T) {
	w := errwriter.New(&failAfter{n: 1})
	w.WriteString("ok")
	if w.Err != nil {
		t.Fatalf("unexpected error after first write: %v", w.Err)
	}
	w.WriteString("boom now")
	if w.Err == nil {
		t.Fatal("expected Err to be set after the failing write")
	}
}

func TestStaysStickyAfterFirstError(t *testing.T) {
	w := errwriter.New(&failAfter{n: 0})
	w.WriteString("first")
	first := w.Err
	if first == nil {
		t.Fatal("expected an error")
	}
	w.WriteString("second")
	if w.Err != first {
		t.Error("Err should not change on subsequent writes")
	}
}

func TestWritesReachUnderlyingWriter(t *testing.T) {
	var buf bytes.Buffer
	w := errwriter.New(&buf)
	w.WriteString("hello")
	if buf.String() != "hello" {
		t.Errorf("got %q, want %q", buf.String(), "hello")
	}
}
