// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/braeun/eamon-interpreter/image"
	"github.com/braeun/eamon-interpreter/ir"
	"github.com/braeun/eamon-interpreter/symbol"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <file.img>",
	Short: "Print a mnemonic listing of a saved image",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisasm,
}

func runDisasm(cmd *cobra.Command, args []string) error {
	img, err := image.LoadFile(args[0])
	if err != nil {
		return err
	}
	listing(os.Stdout, img)
	return nil
}

// listing adapts the teacher's (db47h/ngaro) cmd/retro/dump.go instruction
// dump: one line per image.Instr, resolving HasAddr operands back to a
// variable name when the image's variable symbol table carries one.
func listing(w *os.File, img *image.Image) {
	for pc, in := range img.Code {
		op := ir.Opcode(in.Op)
		line := fmt.Sprintf("%6d  %-8s", pc, op.String())
		switch {
		case op == ir.OpPush:
			line += fmt.Sprintf(" type=%d %d", in.Type, in.Operand[0])
		case op == ir.OpCall:
			line += fmt.Sprintf(" #%d", in.Operand[0])
		case op == ir.OpLine:
			line += fmt.Sprintf(" %d", in.Operand[0])
		case op.HasAddr():
			line += fmt.Sprintf(" %s", resolveAddr(img, in.Operand[0]))
			if op.HasType() {
				line += fmt.Sprintf(" type=%d", in.Type)
			}
		case op.HasLabel():
			line += fmt.Sprintf(" ->%d", in.Operand[0])
		case op.HasType():
			line += fmt.Sprintf(" type=%d", in.Type)
		default:
			if in.NOps > 0 {
				line += fmt.Sprintf(" %d", in.Operand[0])
			}
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "--- variables ---")
	for _, s := range img.SymbolTable(symbol.KindVariable) {
		fmt.Fprintf(w, "  %-20s %s\n", s.Name, s.Type)
	}
	fmt.Fprintln(w, "--- functions ---")
	for _, s := range img.SymbolTable(symbol.KindFunction) {
		fmt.Fprintf(w, "  %-20s\n", s.Name)
	}
}

func resolveAddr(img *image.Image, addr uint32) string {
	for _, s := range img.SymbolTable(symbol.KindVariable) {
		if uint32(s.Address) == addr {
			return s.Name
		}
	}
	return fmt.Sprintf("0x%x", addr)
}
