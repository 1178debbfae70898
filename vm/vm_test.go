// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package vm_test

import (
	"strings"
	"testing"

	"github.com/braeun/eamon-interpreter/assembler"
	"github.com/braeun/eamon-interpreter/compiler"
	"github.com/braeun/eamon-interpreter/diskfile"
	"github.com/braeun/eamon-interpreter/library"
	"github.com/braeun/eamon-interpreter/parser"
	"github.com/braeun/eamon-interpreter/value"
	"github.com/braeun/eamon-interpreter/vm"
)

// nullInput never yields anything; the programs below never read from it.
type nullInput struct{}

func (nullInput) ReadLine() (string, error) { return "", nil }
func (nullInput) ReadChar() (byte, error)   { return 0, nil }
func (nullInput) LastKey() byte             { return 0 }
func (nullInput) LastEntry() string         { return "" }
func (nullInput) EchoInput() bool           { return false }

// bufOutput captures everything written to it, for asserting on PRINT output.
type bufOutput struct {
	strings.Builder
}

func (b *bufOutput) Write(s string)                     { b.Builder.WriteString(s) }
func (b *bufOutput) GotoColumn(int)                      {}
func (b *bufOutput) GotoRow(int)                         {}
func (b *bufOutput) Home()                               {}
func (b *bufOutput) Inverse(bool)                        {}
func (b *bufOutput) Normal()                             {}
func (b *bufOutput) SetMode(bool)                        {}
func (b *bufOutput) NotifyHiresLoaded(int, []byte)       {}
func (b *bufOutput) Flush()                              {}
func (b *bufOutput) CursorRow() int                      { return 0 }
func (b *bufOutput) CursorColumn() int                   { return 0 }

func build(t *testing.T, src string) *vm.VM {
	t.Helper()
	prog, err := parser.Parse(t.Name(), src)
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}
	res, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile: %+v", err)
	}
	img, err := assembler.Assemble(res)
	if err != nil {
		t.Fatalf("assemble: %+v", err)
	}
	lib := library.New(nullInput{}, &bufOutput{}, diskfile.NewDir(t.TempDir()))
	lib.SetData(res.Data)
	return vm.Load(img, lib)
}

func TestForNextSumsAndLeavesVarOneStepPast(t *testing.T) {
	m := build(t, "10 FOR I = 1 TO 5\n20 LET S = S + I\n30 NEXT I\n40 END\n")
	if err := m.Run(); err != nil {
		t.Fatalf("run: %+v", err)
	}
	s, ok := m.GetValue("S")
	if !ok {
		t.Fatal("S not found")
	}
	if s.Float() != 15 {
		t.Errorf("S = %v, want 15", s.Float())
	}
	i, ok := m.GetValue("I")
	if !ok {
		t.Fatal("I not found")
	}
	if i.Float() != 6 {
		t.Errorf("I = %v, want 6 (one step past the limit)", i.Float())
	}
}

func TestArithmeticAndCast(t *testing.T) {
	m := build(t, "10 LET A = 7\n20 LET B% = A / 2\n30 END\n")
	if err := m.Run(); err != nil {
		t.Fatalf("run: %+v", err)
	}
	b, ok := m.GetValue("B%")
	if !ok {
		t.Fatal("B% not found")
	}
	if b.Type() != value.Int || b.Int() != 3 {
		t.Errorf("B%% = %v (%v), want Int 3", b.GoString(), b.Type())
	}
}

func TestDivisionByZeroFaults(t *testing.T) {
	m := build(t, "10 LET A = 1 / 0\n20 END\n")
	err := m.Run()
	if err == nil {
		t.Fatal("expected a division-by-zero error")
	}
}

func TestOnerrHandlerCatchesFaultAndResumes(t *testing.T) {
	m := build(t, "10 ONERR GOTO 100\n20 LET A = 1 / 0\n30 LET B = 1\n40 END\n100 LET C = PEEK(222)\n110 END\n")
	if err := m.Run(); err != nil {
		t.Fatalf("run: %+v", err)
	}
	c, ok := m.GetValue("C")
	if !ok || c.Float() == 0 {
		t.Errorf("C = %v, want the nonzero ILLEGAL OP code", c)
	}
}
