// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package assembler_test

import (
	"reflect"
	"testing"

	"github.com/braeun/eamon-interpreter/assembler"
	"github.com/braeun/eamon-interpreter/compiler"
	"github.com/braeun/eamon-interpreter/image"
	"github.com/braeun/eamon-interpreter/parser"
)

func buildImage(t *testing.T, src string) *image.Image {
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
	return img
}

func TestAssembleIsDeterministic(t *testing.T) {
	const src = "10 LET A = 1\n20 LET B$ = \"HI\"\n30 GOTO 10\n40 END\n"
	a := buildImage(t, src)
	b := buildImage(t, src)
	if !reflect.DeepEqual(a.Code, b.Code) {
		t.Fatal("two Assemble runs over identical input produced different code")
	}
}

// TestNumGlobalsCountsEveryDeclaredScalar checks the ENTRY prelude sizing
// matches the number of distinct variables the compiler declared.
func TestNumGlobalsCountsEveryDeclaredScalar(t *testing.T) {
	img := buildImage(t, "10 LET A = 1\n20 LET B = 2\n30 END\n")
	if img.NumGlobals != 2 {
		t.Errorf("NumGlobals = %d, want 2", img.NumGlobals)
	}
}

// TestDuplicateStringLiteralsAreDeduplicated covers §3's "anonymous
// duplicate string literals are de-duplicated by value" rule.
func TestDuplicateStringLiteralsAreDeduplicated(t *testing.T) {
	img := buildImage(t, "10 PRINT \"HI\"\n20 PRINT \"HI\"\n30 END\n")
	seen := 0
	for _, c := range img.Constants {
		if c.Name == "" && len(c.Values) == 1 && c.Values[0].String() == "HI" {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("found %d anonymous \"HI\" constants, want exactly 1 (deduplicated)", seen)
	}
}

// TestDataItemsAreNeverDeduplicated checks DATA_<n> constants stay distinct
// entries even when two DATA statements carry the same literal value.
func TestDataItemsAreNeverDeduplicated(t *testing.T) {
	img := buildImage(t, "10 DATA 5\n20 DATA 5\n30 READ A\n40 READ B\n50 END\n")
	names := map[string]bool{}
	for _, c := range img.Constants {
		if c.Name != "" {
			names[c.Name] = true
		}
	}
	if !names["DATA_0"] || !names["DATA_1"] {
		t.Errorf("constants = %+v, want distinct DATA_0 and DATA_1 entries", img.Constants)
	}
}
