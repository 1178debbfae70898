// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package library

import (
	"github.com/braeun/eamon-interpreter/rterr"
	"github.com/braeun/eamon-interpreter/value"
)

// Apple ][ soft-switch and zero-page addresses the Library exposes through
// PEEK/POKE, per §6's memory-mapped I/O table.
const (
	addrCursorCol = 36
	addrCursorRow = 37
	addrTimeLo    = 78
	addrTimeHi    = 79
	addrOnerrCode = 222

	addrLastKey = -16384 & 0xffff // $C000, masked into the PEEK address space

	addrGraphicsOff = 0xC050
	addrGraphicsOn  = 0xC051
	addrTextOff     = 0xC050
	addrTextOn      = 0xC051
	addrMixedOff    = 0xC052
	addrMixedOn     = 0xC053
	addrPage1       = 0xC054
	addrPage2       = 0xC055
	addrLoresOff    = 0xC056
	addrHiresOn     = 0xC057
)

// callPeek implements PEEK(addr): memory-mapped zero-page registers read
// through the OutputSink/InputSource; anything else reads back whatever was
// last POKEd there (or 0).
func (l *Library) callPeek(args []value.Value) (value.Value, error) {
	addr := int(args[0].Int())
	if addr < 0 {
		addr += 0x10000 // negative aliases, e.g. -16384 reads $C000
	}
	switch addr {
	case addrCursorCol:
		return value.NewInt(int32(l.Out.CursorColumn())), nil
	case addrCursorRow:
		return value.NewInt(int32(l.Out.CursorRow())), nil
	case addrOnerrCode:
		return value.NewInt(int32(l.onerrCode)), nil
	case addrLastKey:
		return value.NewInt(int32(l.In.LastKey())), nil
	}
	if addr < 0 || addr > 0xffff {
		return value.Invalid, rterr.IllegalQuantity("PEEK address out of range")
	}
	return value.NewInt(int32(l.softSwitches[addr])), nil
}

// callPoke implements POKE addr, val: soft switches that flip text/graphics
// mode dispatch into the OutputSink; every address, page-selection switches
// included, is recorded for later PEEK.
func (l *Library) callPoke(args []value.Value) (value.Value, error) {
	addr := int(args[0].Int())
	val := byte(args[1].Int())
	switch addr {
	case addrTextOff:
		l.Out.SetMode(true)
	case addrTextOn:
		l.Out.SetMode(false)
	case addrHiresOn:
		l.Out.SetMode(true)
	}
	if addr < 0 || addr > 0xffff {
		return value.Invalid, rterr.IllegalQuantity("POKE address out of range")
	}
	l.softSwitches[addr] = val
	return value.Invalid, nil
}
