// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package library_test

import (
	"strings"
	"testing"

	"github.com/braeun/eamon-interpreter/diskfile"
	"github.com/braeun/eamon-interpreter/library"
	"github.com/braeun/eamon-interpreter/rterr"
	"github.com/braeun/eamon-interpreter/value"
)

// lineInput feeds a fixed sequence of lines to INPUT, one per call.
type lineInput struct {
	lines []string
	pos   int
}

func (l *lineInput) ReadLine() (string, error) {
	if l.pos >= len(l.lines) {
		return "", rterr.OutOfData()
	}
	line := l.lines[l.pos]
	l.pos++
	return line, nil
}
func (l *lineInput) ReadChar() (byte, error) { return 0, nil }
func (l *lineInput) LastKey() byte           { return 0 }
func (l *lineInput) LastEntry() string       { return "" }
func (l *lineInput) EchoInput() bool         { return false }

// bufOutput captures everything written to it.
type bufOutput struct {
	strings.Builder
}

func (b *bufOutput) Write(s string)                { b.Builder.WriteString(s) }
func (b *bufOutput) GotoColumn(int)                {}
func (b *bufOutput) GotoRow(int)                   {}
func (b *bufOutput) Home()                         {}
func (b *bufOutput) Inverse(bool)                  {}
func (b *bufOutput) Normal()                       {}
func (b *bufOutput) SetMode(bool)                  {}
func (b *bufOutput) NotifyHiresLoaded(int, []byte) {}
func (b *bufOutput) Flush()                        {}
func (b *bufOutput) CursorRow() int                { return 0 }
func (b *bufOutput) CursorColumn() int             { return b.Builder.Len() }

func newLib(t *testing.T, in *lineInput) (*library.Library, *bufOutput) {
	t.Helper()
	out := &bufOutput{}
	if in == nil {
		in = &lineInput{}
	}
	return library.New(in, out, diskfile.NewDir(t.TempDir())), out
}

func illegalQuantity(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an ILLEGAL QUANTITY error, got nil")
	}
	if !strings.Contains(err.Error(), "ILLEGAL QUANTITY") {
		t.Fatalf("err = %v, want ILLEGAL QUANTITY", err)
	}
}

func TestRndZeroReturnsLastDrawnValue(t *testing.T) {
	lib, _ := newLib(t, nil)
	drawn, err := lib.Call(library.FnRnd, []value.Value{value.NewFloat(1)})
	if err != nil {
		t.Fatalf("rnd(1): %+v", err)
	}
	again, err := lib.Call(library.FnRnd, []value.Value{value.NewFloat(0)})
	if err != nil {
		t.Fatalf("rnd(0): %+v", err)
	}
	if again[0].Float() != drawn[0].Float() {
		t.Errorf("rnd(0) = %v, want the last-drawn value %v", again[0].Float(), drawn[0].Float())
	}
}

func TestRndNegativeReseedsWithoutDrawing(t *testing.T) {
	lib, _ := newLib(t, nil)
	drawn, err := lib.Call(library.FnRnd, []value.Value{value.NewFloat(1)})
	if err != nil {
		t.Fatalf("rnd(1): %+v", err)
	}
	reseeded, err := lib.Call(library.FnRnd, []value.Value{value.NewFloat(-5)})
	if err != nil {
		t.Fatalf("rnd(-5): %+v", err)
	}
	if reseeded[0].Float() != drawn[0].Float() {
		t.Errorf("rnd(-5) = %v, want the last-drawn value %v unchanged", reseeded[0].Float(), drawn[0].Float())
	}
}

func TestLeftRightMidRejectZeroLength(t *testing.T) {
	lib, _ := newLib(t, nil)

	_, err := lib.Call(library.FnLeft, []value.Value{value.NewString("HELLO"), value.NewInt(0)})
	illegalQuantity(t, err)

	_, err = lib.Call(library.FnRight, []value.Value{value.NewString("HELLO"), value.NewInt(0)})
	illegalQuantity(t, err)

	_, err = lib.Call(library.FnMid, []value.Value{value.NewString("HELLO"), value.NewInt(1), value.NewInt(0)})
	illegalQuantity(t, err)
}

func TestLeftRightMidAcceptPositiveLength(t *testing.T) {
	lib, _ := newLib(t, nil)

	got, err := lib.Call(library.FnLeft, []value.Value{value.NewString("HELLO"), value.NewInt(2)})
	if err != nil || got[0].String() != "HE" {
		t.Fatalf("left$ = %v, %v, want \"HE\"", got, err)
	}
	got, err = lib.Call(library.FnRight, []value.Value{value.NewString("HELLO"), value.NewInt(2)})
	if err != nil || got[0].String() != "LO" {
		t.Fatalf("right$ = %v, %v, want \"LO\"", got, err)
	}
	got, err = lib.Call(library.FnMid, []value.Value{value.NewString("HELLO"), value.NewInt(2), value.NewInt(3)})
	if err != nil || got[0].String() != "ELL" {
		t.Fatalf("mid$ = %v, %v, want \"ELL\"", got, err)
	}
}

func TestInputSplitIsQuoteAware(t *testing.T) {
	in := &lineInput{lines: []string{`"A,B",C`}}
	lib, _ := newLib(t, in)

	got, err := lib.Call(library.FnInput, []value.Value{
		value.NewString(""),
		value.NewString(""),
		value.NewString(""),
	})
	if err != nil {
		t.Fatalf("input: %+v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d fields, want 2", len(got))
	}
	if got[0].String() != `"A,B"` {
		t.Errorf("field 0 = %q, want the comma inside quotes kept intact", got[0].String())
	}
	if got[1].String() != "C" {
		t.Errorf("field 1 = %q, want \"C\"", got[1].String())
	}
}

func TestDosWriteRedirectsPrintToFile(t *testing.T) {
	lib, out := newLib(t, nil)

	print := func(cmd string) {
		t.Helper()
		if _, err := lib.Call(library.FnPrint, []value.Value{value.NewString(cmd)}); err != nil {
			t.Fatalf("print %q: %+v", cmd, err)
		}
		if _, err := lib.Call(library.FnPrintEnd, []value.Value{value.NewInt(0)}); err != nil {
			t.Fatalf("endprint: %+v", err)
		}
	}

	print("\x04OPEN DATA.TXT")
	print("\x04WRITE DATA.TXT")
	print("HELLO FROM FILE")
	print("\x04CLOSE DATA.TXT")

	if out.String() != "" {
		t.Errorf("console output = %q, want nothing: WRITE should have redirected PRINT to the file", out.String())
	}

	print("\x04OPEN DATA.TXT")
	print("\x04READ DATA.TXT")
	got, err := lib.Call(library.FnInput, []value.Value{value.NewString(""), value.NewString("")})
	if err != nil {
		t.Fatalf("input from file: %+v", err)
	}
	if got[0].String() != "HELLO FROM FILE" {
		t.Errorf("read back %q, want %q", got[0].String(), "HELLO FROM FILE")
	}
}
