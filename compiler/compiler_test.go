// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package compiler_test

import (
	"testing"

	"github.com/braeun/eamon-interpreter/compiler"
	"github.com/braeun/eamon-interpreter/parser"
)

func compile(t *testing.T, src string) *compiler.Result {
	t.Helper()
	prog, err := parser.Parse(t.Name(), src)
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}
	res, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile: %+v", err)
	}
	return res
}

// TestImplicitArrayDeclaresDimSibling exercises the spec's naming rule that
// an array's declared size is mirrored into a "<name>dim1" scalar, created
// the first time the array is referenced with no prior DIM.
func TestImplicitArrayDeclaresDimSibling(t *testing.T) {
	res := compile(t, "10 LET A(3) = 1\n20 END\n")
	if res.Variables.Find("A") == nil {
		t.Fatal("array A was not declared")
	}
	if res.Variables.Find("Adim1") == nil {
		t.Error("Adim1 sibling scalar was not declared for implicit array A")
	}
}

// TestExplicitDimDeclaresDimSiblings covers the two-dimensional DIM form:
// both Adim1 and Adim2 must exist.
func TestExplicitDimDeclaresDimSiblings(t *testing.T) {
	res := compile(t, "10 DIM A(5,7)\n20 END\n")
	if res.Variables.Find("Adim1") == nil {
		t.Error("Adim1 sibling scalar was not declared")
	}
	if res.Variables.Find("Adim2") == nil {
		t.Error("Adim2 sibling scalar was not declared")
	}
}

// TestOneDimensionalDimDeclaresOnlyDim1 checks that a single-dimension DIM
// does not fabricate an unused second sibling.
func TestOneDimensionalDimDeclaresOnlyDim1(t *testing.T) {
	res := compile(t, "10 DIM A(5)\n20 END\n")
	if res.Variables.Find("Adim1") == nil {
		t.Error("Adim1 sibling scalar was not declared")
	}
	if res.Variables.Find("Adim2") != nil {
		t.Error("Adim2 sibling scalar should not exist for a 1-D array")
	}
}

func TestRedimensionedArrayIsAnError(t *testing.T) {
	prog, err := parser.Parse(t.Name(), "10 DIM A(5)\n20 DIM A(7)\n30 END\n")
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}
	_, err = compiler.Compile(prog)
	if err == nil {
		t.Fatal("expected an error for redimensioning A")
	}
}
