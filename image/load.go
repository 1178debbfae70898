// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package image

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/braeun/eamon-interpreter/address"
	"github.com/braeun/eamon-interpreter/ir"
	"github.com/braeun/eamon-interpreter/symbol"
	"github.com/braeun/eamon-interpreter/value"
)

// ErrMalformed is returned when an image's header or segment lengths do not
// describe a buffer the loader can safely execute.
var ErrMalformed = errors.New("malformed image")

// Load decodes an Image previously written by Save. It refuses to load
// (returning a wrapped ErrMalformed) an image with an unrecognized version
// or with segment lengths that do not fit the supplied bytes, per §4.1's
// "loader must ... not execute an image whose segment lengths do not fit
// the buffer".
func Load(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "image read failed")
	}
	return Decode(data)
}

// LoadFile loads an image from the named file.
func LoadFile(name string) (*Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}
	defer f.Close()
	return Load(f)
}

// Decode parses a byte slice previously produced by (*Image).Save.
func Decode(data []byte) (*Image, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], Magic[:]) {
		return nil, errors.Wrap(ErrMalformed, "bad magic")
	}
	total := binary.LittleEndian.Uint32(data[4:8])
	if int(total) != len(data) {
		return nil, errors.Wrapf(ErrMalformed, "declared size %d does not match buffer size %d", total, len(data))
	}
	if len(data) < 16 {
		return nil, errors.Wrap(ErrMalformed, "truncated header")
	}
	version := binary.LittleEndian.Uint32(data[8:12])
	if version != Version {
		return nil, errors.Wrapf(ErrMalformed, "unsupported image version %d", version)
	}
	pos := 12
	numGlobals := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4

	img := New(numGlobals)

	segs := make(map[[4]byte][]byte, len(segTags))
	for range segTags {
		if pos+8 > len(data) {
			return nil, errors.Wrap(ErrMalformed, "truncated segment header")
		}
		var tag [4]byte
		copy(tag[:], data[pos:pos+4])
		pos += 4
		length := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if length < 0 || pos+length > len(data) {
			return nil, errors.Wrapf(ErrMalformed, "segment %s length %d does not fit image", tag, length)
		}
		segs[tag] = data[pos : pos+length]
		pos += length
	}

	if err := decodeCode(img, segs[segTags[0]]); err != nil {
		return nil, err
	}
	if err := decodeText(img, segs[segTags[1]]); err != nil {
		return nil, err
	}
	decodeVTable(img, segs[segTags[2]])
	if err := decodeSymbols(img.Functions, segs[segTags[3]]); err != nil {
		return nil, err
	}
	if err := decodeSymbols(img.Consts, segs[segTags[4]]); err != nil {
		return nil, err
	}
	if err := decodeSymbols(img.Variables, segs[segTags[5]]); err != nil {
		return nil, err
	}
	return img, nil
}

func decodeCode(img *Image, b []byte) error {
	pos := 0
	for pos < len(b) {
		if pos+4 > len(b) {
			return errors.Wrap(ErrMalformed, "truncated instruction")
		}
		word := binary.LittleEndian.Uint32(b[pos : pos+4])
		pos += 4
		op := ir.Opcode(word & 0xff)
		typ := uint8(word >> 8)
		n := op.OperandWords()
		ins := Instr{Op: uint8(op), Type: typ, NOps: uint8(n)}
		for i := 0; i < n; i++ {
			if pos+4 > len(b) {
				return errors.Wrap(ErrMalformed, "truncated operand")
			}
			ins.Operand[i] = binary.LittleEndian.Uint32(b[pos : pos+4])
			pos += 4
		}
		img.Code = append(img.Code, ins)
	}
	return nil
}

func decodeText(img *Image, b []byte) error {
	pos := 0
	for pos < len(b) {
		if pos+4 > len(b) {
			return errors.Wrap(ErrMalformed, "truncated constant count")
		}
		count := int(binary.LittleEndian.Uint32(b[pos : pos+4]))
		pos += 4
		vals := make([]value.Value, count)
		for i := 0; i < count; i++ {
			v, next, err := readValue(b, pos)
			if err != nil {
				return err
			}
			vals[i] = v
			pos = next
		}
		img.Constants = append(img.Constants, Constant{Values: vals})
	}
	return nil
}

func readValue(b []byte, pos int) (value.Value, int, error) {
	if pos+4 > len(b) {
		return value.Invalid, 0, errors.Wrap(ErrMalformed, "truncated value tag")
	}
	typ := value.Type(binary.LittleEndian.Uint32(b[pos : pos+4]))
	pos += 4
	switch typ {
	case value.Int:
		if pos+4 > len(b) {
			return value.Invalid, 0, errors.Wrap(ErrMalformed, "truncated int value")
		}
		n := int32(binary.LittleEndian.Uint32(b[pos : pos+4]))
		return value.NewInt(n), pos + 4, nil
	case value.Float:
		if pos+8 > len(b) {
			return value.Invalid, 0, errors.Wrap(ErrMalformed, "truncated float value")
		}
		bits := binary.LittleEndian.Uint64(b[pos : pos+8])
		return value.NewFloat(math.Float64frombits(bits)), pos + 8, nil
	default:
		end := bytes.IndexByte(b[pos:], 0)
		if end < 0 {
			return value.Invalid, 0, errors.Wrap(ErrMalformed, "unterminated string value")
		}
		s := string(b[pos : pos+end])
		return value.NewString(s), pos + end + 1, nil
	}
}

func decodeVTable(img *Image, b []byte) {
	for pos := 0; pos+4 <= len(b); pos += 4 {
		img.VTable = append(img.VTable, binary.LittleEndian.Uint32(b[pos:pos+4]))
	}
}

const symRecLen = symbol.MaxNameLen + 1 + 4 + 4 + 4

func decodeSymbols(t *symbol.Table, b []byte) error {
	if len(b)%symRecLen != 0 {
		return errors.Wrap(ErrMalformed, "symbol table length not a multiple of record size")
	}
	for pos := 0; pos < len(b); pos += symRecLen {
		rec := b[pos : pos+symRecLen]
		end := bytes.IndexByte(rec[:symbol.MaxNameLen+1], 0)
		if end < 0 {
			end = symbol.MaxNameLen + 1
		}
		name := string(rec[:end])
		addr := binary.LittleEndian.Uint32(rec[symbol.MaxNameLen+1:])
		typ := binary.LittleEndian.Uint32(rec[symbol.MaxNameLen+5:])
		t.Add(symbol.Symbol{
			Name:    name,
			Address: address.Address(addr),
			Type:    value.Type(typ),
		})
	}
	return nil
}
