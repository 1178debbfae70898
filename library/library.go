// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

package library

import (
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/braeun/eamon-interpreter/diskfile"
	"github.com/braeun/eamon-interpreter/rterr"
	"github.com/braeun/eamon-interpreter/value"
)

// Library is the closed built-in function table (§4.6): the BASIC runtime's
// numeric, string, I/O and memory-mapped built-ins, plus the DATA/READ/RESTORE
// cursor and the DOS command state machine (dos.go).
//
// Grounded on the teacher's (db47h/ngaro) vm.VM struct, which bundles its
// injected Input/Output together with interpreter state (stacks, memory);
// Library plays the analogous role for everything the BASIC CALL opcode can
// reach, kept separate from vm.VM itself so vm can import library without a
// cycle.
type Library struct {
	In  InputSource
	Out OutputSink

	disk Disk

	rng *rand.Rand

	data    []value.Value
	dataPos int

	lastRnd value.Value

	onerrCode int

	softSwitches map[int]byte

	dos dosState
}

// Disk is the subset of *diskfile.Dir the Library needs.
type Disk interface {
	Exists(name string) bool
	Remove(name string) error
	OpenSequential(name string) (*diskfile.Sequential, error)
	OpenRandom(name string, recLen int) (*diskfile.Random, error)
	ReadBytes(name string) ([]byte, error)
	WriteBytes(name string, b []byte) error
}

// New returns a Library wired to the given host adapters, with RND's
// generator seeded deterministically and its last-drawn value starting at 0,
// matching the original runtime's lastRnd(0) initializer.
func New(in InputSource, out OutputSink, disk Disk) *Library {
	return &Library{
		In:           in,
		Out:          out,
		disk:         disk,
		rng:          rand.New(rand.NewSource(1)),
		softSwitches: make(map[int]byte),
		lastRnd:      value.NewFloat(0),
	}
}

// SetData installs the DATA pool compiled from the program's DATA statements,
// and resets the READ cursor to its start — called once at load time.
func (l *Library) SetData(data []value.Value) {
	l.data = data
	l.dataPos = 0
}

// Restore resets the READ cursor to the beginning of the DATA pool, per the
// BASIC RESTORE statement.
func (l *Library) Restore() {
	l.dataPos = 0
}

// OnerrCode returns the last runtime error code, surfaced to BASIC via
// PEEK(222).
func (l *Library) OnerrCode() int { return l.onerrCode }

// SetOnerrCode records the code of the error that triggered the current
// ONERR GOTO handler.
func (l *Library) SetOnerrCode(code int) { l.onerrCode = code }

// Call dispatches a CALL opcode to the built-in named by id, with args
// already evaluated left to right by the VM. Every built-in returns a slice
// (rather than a single Value) so that the handful of variable-result calls
// — INPUT chiefly, one parsed field per destination variable — fit the same
// protocol as an ordinary scalar-returning function: the VM pushes whatever
// comes back, in order.
func (l *Library) Call(id FuncID, args []value.Value) ([]value.Value, error) {
	switch id {
	case FnPrint:
		return none(l.callPrint(args))
	case FnPrintf:
		return none(l.callPrintf(args))
	case FnPrintEnd:
		return none(l.callPrintEnd(args))
	case FnTabZone:
		return nil, l.callTabZone()
	case FnInput:
		return l.callInput(args)
	case FnRead:
		return one(l.callRead())
	case FnRestore:
		l.Restore()
		return nil, nil
	case FnGet:
		return one(l.callGet())

	case FnSin:
		return one(l.unaryMath(args, math.Sin))
	case FnCos:
		return one(l.unaryMath(args, math.Cos))
	case FnTan:
		return one(l.unaryMath(args, math.Tan))
	case FnAsin:
		return one(l.unaryMath(args, math.Asin))
	case FnAcos:
		return one(l.unaryMath(args, math.Acos))
	case FnAtan:
		return one(l.unaryMath(args, math.Atan))
	case FnAtan2:
		return one(value.NewFloat(math.Atan2(args[0].Float(), args[1].Float())), nil)
	case FnSqrt:
		return one(l.callSqrt(args))
	case FnExp:
		return one(l.unaryMath(args, math.Exp))
	case FnLog:
		return one(l.callLog(args, math.Log))
	case FnLog10:
		return one(l.callLog(args, math.Log10))
	case FnLog2:
		return one(l.callLog(args, math.Log2))
	case FnAbs:
		return one(value.NewFloat(math.Abs(args[0].Float())), nil)
	case FnSgn:
		return one(l.callSgn(args))
	case FnRnd:
		return one(l.callRnd(args))
	case FnInt:
		return one(value.NewInt(int32(math.Floor(args[0].Float()))), nil)
	case FnPow:
		return one(value.NewFloat(math.Pow(args[0].Float(), args[1].Float())), nil)

	case FnLeft:
		return one(l.callLeft(args))
	case FnRight:
		return one(l.callRight(args))
	case FnMid:
		return one(l.callMid(args))
	case FnMid1:
		return one(l.callMid1(args))
	case FnLen:
		return one(value.NewInt(int32(len(args[0].String()))), nil)
	case FnAsc:
		return one(l.callAsc(args))
	case FnChr:
		return one(l.callChr(args))
	case FnVal:
		return one(value.NewFloat(args[0].Float()), nil)
	case FnStr:
		return one(value.NewString(args[0].String()), nil)

	case FnPeek:
		return one(l.callPeek(args))
	case FnPoke:
		_, err := l.callPoke(args)
		return nil, err

	case FnTab:
		_, err := l.callTab(args)
		return nil, err
	case FnSpc:
		_, err := l.callSpc(args)
		return nil, err
	case FnVtab:
		l.Out.GotoRow(int(args[0].Int()))
		return nil, nil
	case FnHtab:
		l.Out.GotoColumn(int(args[0].Int()))
		return nil, nil
	case FnHome:
		l.Out.Home()
		return nil, nil
	case FnInverse:
		l.Out.Inverse(true)
		return nil, nil
	case FnNormal:
		l.Out.Normal()
		return nil, nil
	case FnFlash:
		l.Out.Inverse(true)
		return nil, nil
	case FnText:
		l.Out.SetMode(false)
		return nil, nil
	case FnFre:
		return one(value.NewInt(0), nil)
	}
	return nil, errors.Wrap(rterr.IllegalOp("unknown built-in"), id.Name())
}

// one and none adapt a single-Value built-in's result to Call's []Value
// protocol.
func one(v value.Value, err error) ([]value.Value, error) {
	if err != nil {
		return nil, err
	}
	return []value.Value{v}, nil
}

func none(err error) ([]value.Value, error) { return nil, err }

func (l *Library) unaryMath(args []value.Value, f func(float64) float64) (value.Value, error) {
	return value.NewFloat(f(args[0].Float())), nil
}

func (l *Library) callSqrt(args []value.Value) (value.Value, error) {
	x := args[0].Float()
	if x < 0 {
		return value.Invalid, errors.Wrap(rterr.IllegalQuantity("SQR of negative number"), "sqr")
	}
	return value.NewFloat(math.Sqrt(x)), nil
}

func (l *Library) callLog(args []value.Value, f func(float64) float64) (value.Value, error) {
	x := args[0].Float()
	if x <= 0 {
		return value.Invalid, errors.Wrap(rterr.IllegalQuantity("LOG of non-positive number"), "log")
	}
	return value.NewFloat(f(x)), nil
}

func (l *Library) callSgn(args []value.Value) (value.Value, error) {
	x := args[0].Float()
	switch {
	case x > 0:
		return value.NewInt(1), nil
	case x < 0:
		return value.NewInt(-1), nil
	default:
		return value.NewInt(0), nil
	}
}

// callRnd implements Applesoft's RND(x): x>0 draws a new uniform value in
// [0,1) and remembers it; x=0 returns that last-drawn value unchanged; x<0
// reseeds the generator from |x| without drawing, also returning the
// last-drawn value unchanged.
func (l *Library) callRnd(args []value.Value) (value.Value, error) {
	x := args[0].Float()
	switch {
	case x < 0:
		l.rng = rand.New(rand.NewSource(int64(math.Abs(x))))
	case x > 0:
		l.lastRnd = value.NewFloat(l.rng.Float64())
	}
	return l.lastRnd, nil
}

func (l *Library) callLeft(args []value.Value) (value.Value, error) {
	s := args[0].String()
	n, err := clampLen(args[1].Int(), len(s))
	if err != nil {
		return value.Invalid, err
	}
	return value.NewString(s[:n]), nil
}

func (l *Library) callRight(args []value.Value) (value.Value, error) {
	s := args[0].String()
	n, err := clampLen(args[1].Int(), len(s))
	if err != nil {
		return value.Invalid, err
	}
	return value.NewString(s[len(s)-n:]), nil
}

// callMid implements MID$(s$, start, len), 1-based start.
func (l *Library) callMid(args []value.Value) (value.Value, error) {
	s := args[0].String()
	start := int(args[1].Int())
	n := int(args[2].Int())
	if start < 1 || start > 255 {
		return value.Invalid, errors.Wrap(rterr.IllegalQuantity("MID$ start out of range"), "mid$")
	}
	if n <= 0 || n > 255 {
		return value.Invalid, errors.Wrap(rterr.IllegalQuantity("MID$ length out of range"), "mid$")
	}
	start--
	if start >= len(s) {
		return value.NewString(""), nil
	}
	end := start + n
	if end > len(s) {
		end = len(s)
	}
	return value.NewString(s[start:end]), nil
}

// callMid1 implements the 2-argument MID$(s$, start) form (to end of string).
func (l *Library) callMid1(args []value.Value) (value.Value, error) {
	s := args[0].String()
	start := int(args[1].Int())
	if start < 1 || start > 255 {
		return value.Invalid, errors.Wrap(rterr.IllegalQuantity("MID$ start out of range"), "mid$")
	}
	start--
	if start >= len(s) {
		return value.NewString(""), nil
	}
	return value.NewString(s[start:]), nil
}

func clampLen(n int32, slen int) (int, error) {
	if n <= 0 || n > 255 {
		return 0, errors.Wrap(rterr.IllegalQuantity("string length out of range"), "left$/right$")
	}
	if int(n) > slen {
		return slen, nil
	}
	return int(n), nil
}

func (l *Library) callAsc(args []value.Value) (value.Value, error) {
	s := args[0].String()
	if s == "" {
		return value.Invalid, errors.Wrap(rterr.IllegalQuantity("ASC of empty string"), "asc")
	}
	return value.NewInt(int32(s[0])), nil
}

func (l *Library) callChr(args []value.Value) (value.Value, error) {
	n := args[0].Int()
	if n < 0 || n > 255 {
		return value.Invalid, errors.Wrap(rterr.IllegalQuantity("CHR$ out of range"), "chr$")
	}
	return value.NewString(string([]byte{byte(n)})), nil
}

// column reports the current print column: the OutputSink's own cursor
// column normally, or the length of the line buffered-but-not-yet-flushed to
// an open WRITE file, since a file redirect never touches the OutputSink.
func (l *Library) column() int {
	if l.dos.writing {
		return len(l.dos.writeLine)
	}
	return l.Out.CursorColumn()
}

func (l *Library) callTab(args []value.Value) (value.Value, error) {
	col := int(args[0].Int())
	for l.column() < col {
		if err := l.printText(" "); err != nil {
			return value.Invalid, err
		}
	}
	return value.Invalid, nil
}

func (l *Library) callSpc(args []value.Value) (value.Value, error) {
	n := int(args[0].Int())
	if n > 0 {
		return value.Invalid, l.printText(strings.Repeat(" ", n))
	}
	return value.Invalid, nil
}

// callPrint writes one PRINT-statement item. The compiler issues one CALL
// per item (rather than batching the whole statement into one call) so that
// the CHR$(4)-triggered DOS command state in dos.go can span item and
// PRINT-statement boundaries — required for a bare "PRINT CHR$(4);cmd$" to
// produce no visible output at all.
func (l *Library) callPrint(args []value.Value) error {
	if len(args) == 0 {
		return nil
	}
	return l.printText(args[0].String())
}

// callPrintEnd closes out a PRINT statement: args[0] is 1 if the statement's
// final separator was ';' (suppress the trailing newline), 0 otherwise. A
// DOS command left pending (CHR$(4) seen, no terminator yet) always fires
// here, since Applesoft never requires an explicit CR after a DOS command
// that runs to the end of the PRINT statement.
func (l *Library) callPrintEnd(args []value.Value) error {
	suppress := len(args) > 0 && args[0].Int() != 0
	return l.endPrint(suppress)
}

// callPrintf implements PRINT USING: args[0] is the format string, the rest
// are the values to format — a small subset of Applesoft's PRINT USING
// numeric picture codes (# digit, . decimal point, everything else literal).
func (l *Library) callPrintf(args []value.Value) error {
	if len(args) == 0 {
		return nil
	}
	format := args[0].String()
	vals := args[1:]
	return l.printText(applyPicture(format, vals))
}

// callTabZone implements PRINT's comma separator: advance to the next
// 16-column print zone, per Applesoft's COMMA tabbing convention.
func (l *Library) callTabZone() error {
	const zone = 16
	col := l.column()
	next := ((col / zone) + 1) * zone
	for l.column() < next {
		if err := l.printText(" "); err != nil {
			return err
		}
	}
	return nil
}

func applyPicture(format string, vals []value.Value) string {
	var out strings.Builder
	vi := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '#' || c == '.' {
			j := i
			for j < len(format) && (format[j] == '#' || format[j] == '.') {
				j++
			}
			picture := format[i:j]
			if vi < len(vals) {
				out.WriteString(formatPicture(picture, vals[vi].Float()))
				vi++
			}
			i = j - 1
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}

func formatPicture(picture string, v float64) string {
	dot := strings.IndexByte(picture, '.')
	if dot < 0 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	decimals := len(picture) - dot - 1
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// callInput implements INPUT: args[0] is the prompt string (possibly
// empty); args[1:] are placeholder zero-Values, one per destination
// variable, whose Type alone tells callInput how to parse that comma-
// separated field of the input line. It returns exactly len(args)-1 parsed
// values, in the same left-to-right order as the destination variables —
// the compiler stores them back in reverse, since the VM pushes results in
// order and the last one ends up on top of the stack.
func (l *Library) callInput(args []value.Value) ([]value.Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if !l.IsFileInputActive() {
		l.Out.Write(args[0].String())
	}
	placeholders := args[1:]
	var line string
	var err error
	if l.IsFileInputActive() {
		line, err = l.ReadFileLine()
	} else {
		line, err = l.In.ReadLine()
	}
	if err != nil {
		return nil, errors.Wrap(err, "input failed")
	}
	fields := splitQuoted(line, ',')
	out := make([]value.Value, len(placeholders))
	for i, ph := range placeholders {
		field := ""
		if i < len(fields) {
			field = strings.TrimSpace(fields[i])
		}
		switch ph.Type() {
		case value.String:
			out[i] = value.NewString(field)
		case value.Int:
			n, _ := strconv.ParseInt(field, 10, 32)
			out[i] = value.NewInt(int32(n))
		default:
			f, _ := strconv.ParseFloat(field, 64)
			out[i] = value.NewFloat(f)
		}
	}
	return out, nil
}

// splitQuoted splits s on delim, treating a double quote as toggling a
// "quoted" state so a delimiter inside quotes does not split the field.
// Grounded on the original runtime's Library::split (library.cpp:1146-1180).
func splitQuoted(s string, delim byte) []string {
	var fields []string
	start := 0
	quote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case delim:
			if !quote {
				fields = append(fields, s[start:i])
				start = i + 1
			}
		case '"':
			quote = !quote
		}
	}
	fields = append(fields, s[start:])
	return fields
}

func (l *Library) callGet() (value.Value, error) {
	c, err := l.In.ReadChar()
	if err != nil {
		return value.Invalid, errors.Wrap(err, "get failed")
	}
	return value.NewString(string([]byte{c})), nil
}

// callRead implements the BASIC READ statement's built-in: pull the next
// value from the compiled DATA pool. Raises OUT OF DATA past the end.
func (l *Library) callRead() (value.Value, error) {
	if l.dataPos >= len(l.data) {
		return value.Invalid, rterr.OutOfData()
	}
	v := l.data[l.dataPos]
	l.dataPos++
	return v, nil
}
