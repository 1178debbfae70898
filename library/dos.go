// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package library

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/braeun/eamon-interpreter/diskfile"
	"github.com/braeun/eamon-interpreter/rterr"
	"github.com/braeun/eamon-interpreter/value"
)

// ctrlD is CHR$(4), the DOS command marker: any text printed after it, up to
// the next carriage return, is a DOS command rather than program output.
const ctrlD = 4

// dosState tracks the currently open sequential/random file, any pending RUN
// chain request, and an in-flight DOS command line (seen a CHR$(4) marker,
// still accumulating text up to a terminator) — mirroring the teacher's
// ioWait port-driven state machine (vm/io.go) generalized from terminal port
// I/O to the DOS command-over-PRINT protocol of §6.
type dosState struct {
	seq   *diskfile.Sequential
	rnd   *diskfile.Random
	seqOn bool
	rndOn bool

	active bool // a ctrlD marker was seen; buffer holds the command so far
	buffer string

	writing   bool   // WRITE redirect armed: PRINT output goes to seq, not Out
	writeLine string // accumulates characters of the current output line

	hires []byte // last hires page BLOAD loaded, saved back by BSAVE

	Terminate bool
	ChainFile string
}

// printText feeds one more chunk of PRINT output through the DOS command
// filter, maintaining dos.active/dos.buffer across calls so that a command
// can span multiple PRINT items (e.g. PRINT CHR$(4);"RUN X") or run clean to
// the end of the statement with no CR at all. Text seen while a command is
// being accumulated never reaches the OutputSink.
func (l *Library) printText(s string) error {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !l.dos.active {
			if ch == ctrlD {
				l.dos.active = true
				l.dos.buffer = ""
				continue
			}
			if ch == '\n' {
				if err := l.flushWriteLine(); err != nil {
					return err
				}
				continue
			}
			l.dos.writeLine += string(ch)
			continue
		}
		if ch == '\r' || ch == '\n' {
			cmd := l.dos.buffer
			l.dos.active, l.dos.buffer = false, ""
			if err := l.handleCommand(cmd); err != nil {
				return err
			}
			continue
		}
		l.dos.buffer += string(ch)
	}
	return nil
}

// flushWriteLine writes the output line accumulated since the last newline
// to the open file when a WRITE redirect is armed, otherwise straight to the
// OutputSink. The newline itself is not part of the flushed text — it is
// either appended by WriteLine or re-emitted onto Out below.
func (l *Library) flushWriteLine() error {
	line := l.dos.writeLine
	l.dos.writeLine = ""
	if l.dos.writing {
		return l.WriteFileLine(line)
	}
	l.Out.Write(line)
	l.Out.Write("\n")
	return nil
}

// endPrint closes out a PRINT statement. A DOS command still accumulating
// (no CR reached within the statement) fires now regardless of suppress;
// otherwise any text accumulated since the last newline is flushed — to the
// open file if a WRITE redirect is armed, to the OutputSink otherwise — and
// the statement's own trailing newline follows unless the final separator
// was ';'.
func (l *Library) endPrint(suppress bool) error {
	if l.dos.active {
		cmd := l.dos.buffer
		l.dos.active, l.dos.buffer = false, ""
		return l.handleCommand(cmd)
	}
	if l.dos.writing {
		if suppress {
			return nil
		}
		return l.flushWriteLine()
	}
	if l.dos.writeLine != "" {
		l.Out.Write(l.dos.writeLine)
		l.dos.writeLine = ""
	}
	if !suppress {
		l.Out.Write("\n")
	}
	return nil
}

// handleCommand executes a single DOS command line (the text following
// CHR$(4) up to the terminating carriage return).
func (l *Library) handleCommand(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd := strings.ToUpper(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case "RUN":
		l.dos.Terminate = true
		l.dos.ChainFile = arg
		return nil
	case "OPEN":
		return l.dosOpen(arg)
	case "CLOSE":
		return l.dosClose(arg)
	case "READ":
		return l.dosRead(arg)
	case "WRITE":
		return l.dosWrite(arg)
	case "DELETE":
		return errors.Wrap(l.disk.Remove(arg), "delete failed")
	case "VERIFY":
		if !l.disk.Exists(arg) {
			return rterr.FileNotFound(arg)
		}
		return nil
	case "BLOAD":
		return l.dosBload(arg)
	case "BSAVE":
		return l.dosBsave(arg)
	default:
		return errors.Wrapf(rterr.IllegalOp("unknown DOS command"), "%s", cmd)
	}
}

// dosOpen parses `OPEN name[,Lreclen]`. A record length switches the file to
// fixed-record random access; its absence opens a sequential text file.
func (l *Library) dosOpen(arg string) error {
	l.dos.writing = false
	name := arg
	recLen := 0
	if i := strings.IndexByte(arg, ','); i >= 0 {
		name = strings.TrimSpace(arg[:i])
		opt := strings.TrimSpace(arg[i+1:])
		if strings.HasPrefix(strings.ToUpper(opt), "L") {
			n, err := strconv.Atoi(strings.TrimSpace(opt[1:]))
			if err == nil {
				recLen = n
			}
		}
	}
	if recLen > 0 {
		r, err := l.disk.OpenRandom(name, recLen)
		if err != nil {
			return err
		}
		l.dos.rnd = r
		l.dos.rndOn = true
		return nil
	}
	s, err := l.disk.OpenSequential(name)
	if err != nil {
		return err
	}
	l.dos.seq = s
	l.dos.seqOn = true
	return nil
}

func (l *Library) dosClose(arg string) error {
	if l.dos.writing && l.dos.writeLine != "" {
		if err := l.flushWriteLine(); err != nil {
			return err
		}
	}
	l.dos.writing = false
	if l.dos.seqOn {
		err := l.dos.seq.Close()
		l.dos.seq, l.dos.seqOn = nil, false
		return err
	}
	if l.dos.rndOn {
		err := l.dos.rnd.Close()
		l.dos.rnd, l.dos.rndOn = nil, false
		return err
	}
	return nil
}

// dosRead switches subsequent INPUT calls to draw from the open sequential
// file — the actual line-redirection happens in callInput, which consults
// IsFileInputActive. An optional `,R<n>` positions the open random file's
// current record before the read, mirroring dosOpen's `,L<n>` parsing.
func (l *Library) dosRead(arg string) error {
	if !l.dos.seqOn && !l.dos.rndOn {
		return rterr.FileNotFound(arg)
	}
	l.dos.writing = false
	if i := strings.IndexByte(arg, ','); i >= 0 && l.dos.rndOn {
		opt := strings.TrimSpace(arg[i+1:])
		if strings.HasPrefix(strings.ToUpper(opt), "R") {
			n, err := strconv.Atoi(strings.TrimSpace(opt[1:]))
			if err != nil {
				return errors.Wrap(rterr.IllegalQuantity("bad record number"), "read")
			}
			l.dos.rnd.SetIndex(n)
		}
	}
	return nil
}

// dosWrite requires a file be open and, for a sequential file, arms the
// WRITE redirect: every PRINT issued until the matching CLOSE (or the next
// OPEN/WRITE/READ) goes to the file instead of the OutputSink. An optional
// `,R<n>` on a random file positions its current record first, same as
// dosRead — random files have no line-oriented WriteFileLine counterpart, so
// WRITE on one only repositions the record; it does not redirect PRINT.
func (l *Library) dosWrite(arg string) error {
	if !l.dos.seqOn && !l.dos.rndOn {
		return rterr.FileNotFound(arg)
	}
	if i := strings.IndexByte(arg, ','); i >= 0 && l.dos.rndOn {
		opt := strings.TrimSpace(arg[i+1:])
		if strings.HasPrefix(strings.ToUpper(opt), "R") {
			n, err := strconv.Atoi(strings.TrimSpace(opt[1:]))
			if err != nil {
				return errors.Wrap(rterr.IllegalQuantity("bad record number"), "write")
			}
			l.dos.rnd.SetIndex(n)
		}
	}
	l.dos.writing = l.dos.seqOn
	return nil
}

// Terminated reports whether a DOS RUN command requested the VM stop, and
// if so, the name of the program to chain to.
func (l *Library) Terminated() (bool, string) {
	return l.dos.Terminate, l.dos.ChainFile
}

// IsFileInputActive reports whether a DOS READ redirection is in effect —
// consulted by callInput to decide whether to draw from the open disk file
// or from the InputSource.
func (l *Library) IsFileInputActive() bool { return l.dos.seqOn }

// ReadFileLine reads the next line from the currently open sequential file.
func (l *Library) ReadFileLine() (string, error) {
	if !l.dos.seqOn {
		return "", rterr.FileNotFound("")
	}
	line, err := l.dos.seq.ReadLine()
	if err == diskfile.ErrEOF {
		return "", rterr.OutOfData()
	}
	return line, err
}

// WriteFileLine writes a line to the currently open sequential file.
func (l *Library) WriteFileLine(s string) error {
	if !l.dos.seqOn {
		return rterr.FileNotFound("")
	}
	return l.dos.seq.WriteLine(s)
}

// hiresSnapshot is the BSAVE/BLOAD on-disk payload for a hires page: a JSON
// encoding of the raw memory chunk, matching the format the DOMAIN STACK
// section of the expanded spec settles on (no teacher/pack library offers
// anything over encoding/json for a single hand-specified struct).
type hiresSnapshot struct {
	Mem []hiresChunk `json:"mem"`
}

type hiresChunk struct {
	Values []hiresValue `json:"values"`
}

type hiresValue struct {
	Type int      `json:"type"`
	I    *int32   `json:"i,omitempty"`
	D    *float64 `json:"d,omitempty"`
	S    *string  `json:"s,omitempty"`
}

const bsaveMagicAddr = 0x69

func (l *Library) dosBsave(arg string) error {
	name, addr, length := parseBsaveArgs(arg)
	data := make([]byte, length)
	page := l.hiresPage(addr)
	copy(data, page)

	var buf strings.Builder
	writeU32(&buf, bsaveMagicAddr)
	writeU32(&buf, uint32(length))
	snap := hiresSnapshot{Mem: []hiresChunk{{Values: bytesToValues(data)}}}
	js, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "bsave encode failed")
	}
	buf.Write(js)
	return l.disk.WriteBytes(name, []byte(buf.String()))
}

func (l *Library) dosBload(arg string) error {
	name, _, _ := parseBsaveArgs(arg)
	raw, err := l.disk.ReadBytes(name)
	if err != nil {
		return err
	}
	if len(raw) < 8 {
		return errors.Wrap(rterr.IllegalQuantity("truncated BSAVE file"), "bload")
	}
	var snap hiresSnapshot
	if err := json.Unmarshal(raw[8:], &snap); err != nil {
		return errors.Wrap(err, "bload decode failed")
	}
	if len(snap.Mem) == 0 {
		return nil
	}
	data := valuesToBytes(snap.Mem[0].Values)
	l.dos.hires = data
	l.Out.NotifyHiresLoaded(1, data)
	return nil
}

func parseBsaveArgs(arg string) (name string, addr, length int) {
	parts := strings.Split(arg, ",")
	name = strings.TrimSpace(parts[0])
	length = diskfile.HiresPageSize
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		up := strings.ToUpper(p)
		switch {
		case strings.HasPrefix(up, "A"):
			addr, _ = strconv.Atoi(strings.TrimSpace(p[1:]))
		case strings.HasPrefix(up, "L"):
			length, _ = strconv.Atoi(strings.TrimSpace(p[1:]))
		}
	}
	return name, addr, length
}

// hiresPage returns the hires page BSAVE writes out. The Library keeps only
// the last page BLOAD loaded — drawing lives on the OutputSink side of the
// host boundary — so BSAVE of a freshly-drawn page that was never
// round-tripped through BLOAD saves zeros. Games that BLOAD a page, draw
// nothing new, then BSAVE it back out round-trip correctly.
func (l *Library) hiresPage(addr int) []byte {
	if l.dos.hires != nil {
		return l.dos.hires
	}
	return make([]byte, diskfile.HiresPageSize)
}

func bytesToValues(b []byte) []hiresValue {
	out := make([]hiresValue, len(b))
	for i, c := range b {
		n := int32(c)
		out[i] = hiresValue{Type: int(value.Int), I: &n}
	}
	return out
}

func valuesToBytes(vs []hiresValue) []byte {
	out := make([]byte, len(vs))
	for i, v := range vs {
		if v.I != nil {
			out[i] = byte(*v.I)
		}
	}
	return out
}

func writeU32(b *strings.Builder, n uint32) {
	b.WriteByte(byte(n))
	b.WriteByte(byte(n >> 8))
	b.WriteByte(byte(n >> 16))
	b.WriteByte(byte(n >> 24))
}
