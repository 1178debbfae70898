// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package image_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/braeun/eamon-interpreter/assembler"
	"github.com/braeun/eamon-interpreter/compiler"
	"github.com/braeun/eamon-interpreter/image"
	"github.com/braeun/eamon-interpreter/parser"
	"github.com/braeun/eamon-interpreter/symbol"
)

// TestSaveLoadRoundTrips exercises §8 invariant 1: Save followed by Load
// reproduces an image with the same global count, code and variable symbols.
func TestSaveLoadRoundTrips(t *testing.T) {
	prog, err := parser.Parse("t", "10 LET A$ = \"HI\"\n20 LET B = A + 1\n30 END\n")
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

	var buf bytes.Buffer
	if err := img.Save(&buf); err != nil {
		t.Fatalf("save: %+v", err)
	}
	var buf2 bytes.Buffer
	if err := img.Save(&buf2); err != nil {
		t.Fatalf("second save: %+v", err)
	}
	if !bytes.Equal(buf.Bytes(), buf2.Bytes()) {
		t.Fatal("Save is not deterministic across identical calls")
	}

	loaded, err := image.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %+v", err)
	}
	if loaded.NumGlobals != img.NumGlobals {
		t.Errorf("NumGlobals = %d, want %d", loaded.NumGlobals, img.NumGlobals)
	}
	if !reflect.DeepEqual(loaded.Code, img.Code) {
		t.Errorf("Code mismatch after round trip:\n got  %+v\n want %+v", loaded.Code, img.Code)
	}
	wantVars := img.SymbolTable(symbol.KindVariable)
	gotVars := loaded.SymbolTable(symbol.KindVariable)
	if len(wantVars) != len(gotVars) {
		t.Fatalf("variable count = %d, want %d", len(gotVars), len(wantVars))
	}
	for i, w := range wantVars {
		g := gotVars[i]
		if g.Name != w.Name || g.Address != w.Address || g.Type != w.Type {
			t.Errorf("variable %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	if _, err := image.Decode([]byte("not an image at all")); err == nil {
		t.Fatal("expected a malformed-image error")
	}
}
