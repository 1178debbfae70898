// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/braeun/eamon-interpreter/diskfile"
	"github.com/braeun/eamon-interpreter/library"
	"github.com/braeun/eamon-interpreter/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <file.bas|file.img>",
	Short: "Compile (if needed) and run a program to completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]

	var restore func()
	if !noRawIO {
		stop, err := setRawIO()
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning: raw IO unavailable, falling back to line input:", err)
		} else {
			restore = stop
		}
	}
	if restore != nil {
		defer restore()
	}

	out := newConsole(os.Stdout)
	in := newKeyboard(os.Stdin, out, restore != nil)
	disk := diskfile.NewDir(diskDir)

	next := path
	for next != "" {
		current := next
		next = ""

		ld, err := compileOrLoad(current)
		if err != nil {
			out.Flush()
			return err
		}

		lib := library.New(in, out, disk)
		lib.SetData(ld.data)

		machine := vm.Load(ld.img, lib)
		machine.Slowdown = time.Duration(slowdownUs) * time.Microsecond

		runErr := machine.Run()
		out.Flush()

		if runErr != nil {
			if debug {
				dumpVM(os.Stderr, machine)
			}
			return runErr
		}

		if terminated, name := lib.Terminated(); terminated && name != "" {
			next = name
		}
	}
	return nil
}
