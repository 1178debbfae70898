// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package parser_test

import (
	"testing"

	"github.com/braeun/eamon-interpreter/parser"
)

func TestParsesLineNumbersAndMultipleStatements(t *testing.T) {
	prog, err := parser.Parse(t.Name(), "10 LET A = 1 : LET B = 2\n20 END\n")
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}
	if len(prog.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(prog.Lines))
	}
	if prog.Lines[0].Num != 10 || len(prog.Lines[0].Stmts) != 2 {
		t.Fatalf("line 0 = %+v, want Num=10 with 2 statements", prog.Lines[0])
	}
	if _, ok := prog.Lines[0].Stmts[0].(*parser.LetStmt); !ok {
		t.Errorf("stmt 0 = %T, want *LetStmt", prog.Lines[0].Stmts[0])
	}
	if _, ok := prog.Lines[1].Stmts[0].(*parser.EndStmt); !ok {
		t.Errorf("line 1 stmt 0 = %T, want *EndStmt", prog.Lines[1].Stmts[0])
	}
}

func TestLetKeywordIsOptional(t *testing.T) {
	prog, err := parser.Parse(t.Name(), "10 A = 1\n20 END\n")
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}
	let, ok := prog.Lines[0].Stmts[0].(*parser.LetStmt)
	if !ok {
		t.Fatalf("stmt = %T, want *LetStmt", prog.Lines[0].Stmts[0])
	}
	v, ok := let.Target.(*parser.VarExpr)
	if !ok || v.Name != "A" {
		t.Errorf("target = %+v, want VarExpr{Name: \"A\"}", let.Target)
	}
}

func TestArrayIndexParsesAsIndexExpr(t *testing.T) {
	prog, err := parser.Parse(t.Name(), "10 LET A(1,2) = 3\n20 END\n")
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}
	let := prog.Lines[0].Stmts[0].(*parser.LetStmt)
	idx, ok := let.Target.(*parser.IndexExpr)
	if !ok {
		t.Fatalf("target = %T, want *IndexExpr", let.Target)
	}
	if idx.Name != "A" || len(idx.Args) != 2 {
		t.Errorf("index = %+v, want Name=\"A\" with 2 args", idx)
	}
}

func TestForNextParsesExplicitStepAndNextVar(t *testing.T) {
	prog, err := parser.Parse(t.Name(), "10 FOR I = 1 TO 10 STEP 2\n20 NEXT I\n")
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}
	f, ok := prog.Lines[0].Stmts[0].(*parser.ForStmt)
	if !ok {
		t.Fatalf("stmt = %T, want *ForStmt", prog.Lines[0].Stmts[0])
	}
	if f.Var != "I" || f.Step == nil {
		t.Errorf("for = %+v, want Var=\"I\" with an explicit STEP", f)
	}
	n, ok := prog.Lines[1].Stmts[0].(*parser.NextStmt)
	if !ok || len(n.Vars) != 1 || n.Vars[0] != "I" {
		t.Errorf("next = %+v, want NextStmt{Vars: [\"I\"]}", prog.Lines[1].Stmts[0])
	}
}

func TestMissingEqualsIsAParseError(t *testing.T) {
	_, err := parser.Parse(t.Name(), "10 LET A 5\n")
	if err == nil {
		t.Fatal("expected a parse error for LET with no '='")
	}
}
