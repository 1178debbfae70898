// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package main

import (
	"os"

	"github.com/pkg/errors"

	"github.com/braeun/eamon-interpreter/assembler"
	"github.com/braeun/eamon-interpreter/compiler"
	"github.com/braeun/eamon-interpreter/image"
	"github.com/braeun/eamon-interpreter/parser"
	"github.com/braeun/eamon-interpreter/value"
)

// loaded is the result of either compiling a .bas source or loading a saved
// .img: everything run needs to start a VM, plus the DATA pool that source
// compiles and saved images carry by two different routes (the compiler's
// Result.Data vs the text segment's DATA_<n> constants, read back through
// Image.DataPool).
type loaded struct {
	img  *image.Image
	data []value.Value
}

// compileOrLoad sniffs path for the image.Magic header and either loads it
// directly or runs it through the scan/parse/compile/assemble pipeline,
// mirroring the teacher's (db47h/ngaro) retro, which accepts both Ngaro
// images and Forth/Lua source on the same command line.
func compileOrLoad(path string) (*loaded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if len(raw) >= 4 && raw[0] == image.Magic[0] && raw[1] == image.Magic[1] &&
		raw[2] == image.Magic[2] && raw[3] == image.Magic[3] {
		img, err := image.Decode(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s", path)
		}
		return &loaded{img: img, data: img.DataPool()}, nil
	}
	return compileSource(path, string(raw))
}

func compileSource(name, src string) (*loaded, error) {
	prog, err := parser.Parse(name, src)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", name)
	}
	res, err := compiler.Compile(prog)
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s", name)
	}
	img, err := assembler.Assemble(res)
	if err != nil {
		return nil, errors.Wrapf(err, "assemble %s", name)
	}
	return &loaded{img: img, data: res.Data}, nil
}
