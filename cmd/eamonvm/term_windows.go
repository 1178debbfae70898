// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package main

import (
	"os"

	"github.com/pkg/errors"
)

// setRawIO is unsupported on Windows; run falls back to buffered line input.
func setRawIO() (func(), error) {
	return nil, errors.New("raw IO not supported")
}

func consoleSize(f *os.File) (int, int) {
	return 0, 0
}
