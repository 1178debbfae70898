// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Command eamonvm compiles and runs Applesoft-dialect BASIC programs
// against the package's VM: run a .bas source or a saved .img directly,
// assemble a .bas to a standalone .img, or disassemble a .img back to
// mnemonics.
//
// Grounded on the teacher's (db47h/ngaro) cmd/retro: the same "one binary,
// VM state plus a host terminal and file system wired in" shape, restructured
// from retro's single flag.Parse()'d main onto cobra subcommands the way
// _examples/ajroetker-goat/main.go wires its own root command, since this
// package has three genuinely distinct entry points (run/asm/disasm) where
// retro only ever had one.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eamonvm",
	Short: "Compile and run Applesoft-dialect BASIC programs",
}

var (
	noRawIO    bool
	debug      bool
	diskDir    string
	slowdownUs int64
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&noRawIO, "noraw", false, "disable raw terminal IO, use buffered line input")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print a stack/memory trace on a fatal runtime error")
	rootCmd.PersistentFlags().StringVar(&diskDir, "diskdir", ".", "directory DOS OPEN/BLOAD/BSAVE resolve file names against")
	rootCmd.PersistentFlags().Int64Var(&slowdownUs, "slowdown", 0, "microseconds to sleep after every instruction, approximating Apple ][ pacing")

	rootCmd.AddCommand(runCmd, asmCmd, disasmCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
