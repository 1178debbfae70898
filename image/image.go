// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package image implements the executable image: the immutable, on-disk or
// in-memory binary produced by the assembler and consumed by the VM.
//
// Grounded on the teacher's (db47h/ngaro) vm/image.go and vm/mem.go: saved
// and loaded with encoding/binary in little-endian byte order, with NUL-terminated string encode/decode helpers. In memory an
// Image keeps its code, constants and symbol tables as separate slices; Save
// writes them as six named, tagged, length-prefixed segments
// (CODE/TEXT/VTBL/FSYM/CSYM/VSYM) into one byte stream, per spec §3's
// "Executable image" layout.
package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/braeun/eamon-interpreter/address"
	"github.com/braeun/eamon-interpreter/symbol"
	"github.com/braeun/eamon-interpreter/value"
)

// Magic is the fixed 4-byte header tag.
var Magic = [4]byte{'H', 'S', 'C', 'R'}

// Version is the current image format version.
const Version = 1

// segment tags, in required on-image order.
var segTags = [...][4]byte{
	{'C', 'O', 'D', 'E'},
	{'T', 'E', 'X', 'T'},
	{'V', 'T', 'B', 'L'},
	{'F', 'S', 'Y', 'M'},
	{'C', 'S', 'Y', 'M'},
	{'V', 'S', 'Y', 'M'},
}

// Instr is one packed 32-bit code-segment word set: opcode, type tag and up
// to two inline operand words, exactly as laid out on the image.
type Instr struct {
	Op      uint8
	Type    uint8
	Operand [2]uint32
	NOps    uint8
}

// Constant is a named, immutable sequence of typed values serialized into
// the text segment.
type Constant struct {
	Name   string
	Values []value.Value
}

// Image is the immutable executable produced by the assembler.
type Image struct {
	NumGlobals int
	Code       []Instr
	Constants  []Constant
	VTable     []uint32
	Functions  *symbol.Table
	Consts     *symbol.Table
	Variables  *symbol.Table
}

// New returns an empty Image with the three symbol tables initialized.
func New(numGlobals int) *Image {
	return &Image{
		NumGlobals: numGlobals,
		Functions:  symbol.NewTable(symbol.KindFunction),
		Consts:     symbol.NewTable(symbol.KindConstant),
		Variables:  symbol.NewTable(symbol.KindVariable),
	}
}

// CodeLen returns the number of instructions in the code segment.
func (img *Image) CodeLen() int { return len(img.Code) }

// CodeWords returns the code segment.
func (img *Image) CodeWords() []Instr { return img.Code }

// ConstantValue returns the idx'th value of the constant at address addr.
// addr must be a constant address.
func (img *Image) ConstantValue(addr address.Address, idx int) value.Value {
	return img.Constants[addr.Index()].Values[idx]
}

// ConstantArray returns the full value slice of the constant at addr.
func (img *Image) ConstantArray(addr address.Address) []value.Value {
	return img.Constants[addr.Index()].Values
}

// DataPool reconstructs the BASIC program's DATA pool (in READ order) from
// the text segment's DATA_<n> constants, so a host that only has a saved
// Image (no compiler.Result) can still seed the Library's READ cursor.
func (img *Image) DataPool() []value.Value {
	var out []value.Value
	for i := 0; ; i++ {
		sym := img.Consts.Find(fmt.Sprintf("DATA_%d", i))
		if sym == nil {
			break
		}
		vals := img.ConstantArray(sym.Address)
		if len(vals) == 0 {
			break
		}
		out = append(out, vals[0])
	}
	return out
}

// FindSymbol looks up name in the table for the given kind.
func (img *Image) FindSymbol(name string, kind symbol.Kind) *symbol.Symbol {
	return img.tableFor(kind).Find(name)
}

// SymbolTable returns the full table for the given kind, in declaration order.
func (img *Image) SymbolTable(kind symbol.Kind) []*symbol.Symbol {
	return img.tableFor(kind).All()
}

func (img *Image) tableFor(kind symbol.Kind) *symbol.Table {
	switch kind {
	case symbol.KindFunction:
		return img.Functions
	case symbol.KindConstant:
		return img.Consts
	default:
		return img.Variables
	}
}

// Save serializes the image to w in the §3/§4.1 byte layout.
func (img *Image) Save(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	writeU32(&buf, Version)

	var code bytes.Buffer
	for _, ins := range img.Code {
		writeU32(&code, uint32(ins.Op)|uint32(ins.Type)<<8)
		for i := uint8(0); i < ins.NOps; i++ {
			writeU32(&code, ins.Operand[i])
		}
	}
	var text bytes.Buffer
	for _, c := range img.Constants {
		writeU32(&text, uint32(len(c.Values)))
		for _, v := range c.Values {
			writeValue(&text, v)
		}
	}
	var vtbl bytes.Buffer
	for _, off := range img.VTable {
		writeU32(&vtbl, off)
	}
	fsym := encodeSymbols(img.Functions)
	csym := encodeSymbols(img.Consts)
	vsym := encodeSymbols(img.Variables)

	segments := [][]byte{code.Bytes(), text.Bytes(), vtbl.Bytes(), fsym, csym, vsym}
	writeU32(&buf, uint32(img.NumGlobals))
	for i, seg := range segments {
		buf.Write(segTags[i][:])
		writeU32(&buf, uint32(len(seg)))
		buf.Write(seg)
	}

	total := uint32(buf.Len() + 4)
	var out bytes.Buffer
	out.Write(Magic[:])
	writeU32(&out, total)
	out.Write(buf.Bytes()[len(Magic):])

	_, err := w.Write(out.Bytes())
	return errors.Wrap(err, "image save failed")
}

// SaveFile saves the image to the named file.
func (img *Image) SaveFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "create failed")
	}
	defer f.Close()
	return img.Save(f)
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeValue(w *bytes.Buffer, v value.Value) {
	writeU32(w, uint32(v.Type()))
	switch v.Type() {
	case value.Int:
		writeU32(w, uint32(v.Int()))
	case value.Float:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.Float()))
		w.Write(b[:])
	default:
		w.WriteString(v.String())
		w.WriteByte(0)
	}
}

func encodeSymbols(t *symbol.Table) []byte {
	var buf bytes.Buffer
	for _, s := range t.All() {
		var name [symbol.MaxNameLen + 1]byte
		copy(name[:], s.Name)
		buf.Write(name[:])
		writeU32(&buf, uint32(s.Address))
		writeU32(&buf, uint32(s.Type))
		writeU32(&buf, uint32(s.Kind))
	}
	return buf.Bytes()
}
