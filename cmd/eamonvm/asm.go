// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var asmOut string

var asmCmd = &cobra.Command{
	Use:   "asm <file.bas>",
	Short: "Compile a BASIC source file to a standalone .img",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsm,
}

func init() {
	asmCmd.Flags().StringVarP(&asmOut, "out", "o", "", "output image path (default: input path with .img)")
}

func runAsm(cmd *cobra.Command, args []string) error {
	path := args[0]
	ld, err := compileOrLoad(path)
	if err != nil {
		return err
	}
	out := asmOut
	if out == "" {
		out = strings.TrimSuffix(path, ".bas") + ".img"
	}
	if err := ld.img.SaveFile(out); err != nil {
		return errors.Wrapf(err, "save %s", out)
	}
	return nil
}
