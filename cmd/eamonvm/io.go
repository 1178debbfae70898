// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/braeun/eamon-interpreter/library"
)

// console is the default library.OutputSink: a plain 40-column-ish text
// terminal written through a buffered writer, with just enough cursor
// bookkeeping for TAB/PRINT zone tabbing and PEEK(36)/PEEK(37) to work.
//
// Grounded on the teacher's (db47h/ngaro) vm.NewVT100Terminal default
// Output adapter: both exist purely to give the host a working terminal
// without forcing every caller to supply one, and both track only the
// state their own built-ins need rather than emulating a full screen
// buffer.
type console struct {
	w        *bufio.Writer
	row, col int
	graphics bool
}

func newConsole(w io.Writer) *console {
	return &console{w: bufio.NewWriter(w)}
}

func (c *console) Write(s string) {
	for _, ch := range s {
		switch ch {
		case '\n':
			c.row++
			c.col = 0
		case '\r':
			c.col = 0
		default:
			c.col++
		}
	}
	io.WriteString(c.w, s)
}

func (c *console) GotoColumn(col int) { c.col = col; fmt.Fprintf(c.w, "\x1b[%dG", col+1) }
func (c *console) GotoRow(row int)    { c.row = row; fmt.Fprintf(c.w, "\x1b[%d;%dH", row+1, c.col+1) }
func (c *console) Home()              { c.row, c.col = 0, 0; io.WriteString(c.w, "\x1b[2J\x1b[H") }
func (c *console) Inverse(on bool) {
	if on {
		io.WriteString(c.w, "\x1b[7m")
	} else {
		io.WriteString(c.w, "\x1b[27m")
	}
}
func (c *console) Normal()                                { io.WriteString(c.w, "\x1b[0m") }
func (c *console) SetMode(graphics bool)                   { c.graphics = graphics }
func (c *console) NotifyHiresLoaded(page int, data []byte) {}
func (c *console) Flush()                                  { c.w.Flush() }
func (c *console) CursorRow() int                           { return c.row }
func (c *console) CursorColumn() int                        { return c.col }

var _ library.OutputSink = (*console)(nil)

// keyboard is the default library.InputSource: line input drawn from a
// buffered reader, with single-character reads available for GET. In raw
// mode (see term_unix.go) the terminal driver hands us unbuffered bytes, so
// ReadLine assembles its own line out of single-byte reads and echoes as it
// goes, mirroring what a cooked tty would otherwise do for us.
type keyboard struct {
	r       *bufio.Reader
	out     *console
	raw     bool
	lastKey byte
	lastLn  string
}

func newKeyboard(r io.Reader, out *console, raw bool) *keyboard {
	return &keyboard{r: bufio.NewReader(r), out: out, raw: raw}
}

func (k *keyboard) ReadLine() (string, error) {
	if !k.raw {
		line, err := k.r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		k.lastLn = line
		return line, err
	}
	var sb strings.Builder
	for {
		c, err := k.r.ReadByte()
		if err != nil {
			return sb.String(), err
		}
		k.lastKey = c
		switch c {
		case '\r', '\n':
			k.out.Write("\n")
			k.lastLn = sb.String()
			return sb.String(), nil
		case 8, 127: // backspace / DEL
			if sb.Len() > 0 {
				s := sb.String()
				sb.Reset()
				sb.WriteString(s[:len(s)-1])
				k.out.Write("\b \b")
			}
		default:
			sb.WriteByte(c)
			k.out.Write(string(c))
		}
	}
}

func (k *keyboard) ReadChar() (byte, error) {
	c, err := k.r.ReadByte()
	if err == nil {
		k.lastKey = c
	}
	return c, err
}

func (k *keyboard) LastKey() byte     { return k.lastKey }
func (k *keyboard) LastEntry() string { return k.lastLn }
func (k *keyboard) EchoInput() bool   { return !k.raw }

var _ library.InputSource = (*keyboard)(nil)
