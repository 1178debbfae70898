// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package diskfile implements the disk file protocol the Library's DOS
// command state machine requires from the host file system: sequential text
// files, fixed-record-length random-access files, and raw byte-level files
// (used only for BLOAD/BSAVE of hires pages).
//
// Grounded on the teacher's (db47h/ngaro) vm.Input/vm.Output options, which
// take plain io.Reader/io.Writer and let the VM treat the host file system
// as an injected dependency; this generalizes that same injection point to
// the three disk file shapes of spec §6, backed by the OS file system by
// default but always reached through the File interface so it can be
// swapped out in tests.
package diskfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrEOF is raised by Sequential.ReadLine past the last line, and by
// Random.ReadRecord past the last record — spec's runtime error 5
// "OUT OF DATA" / end of file.
var ErrEOF = errors.New("END OF DATA")

// Dir is a directory of named disk files, rooted at a host directory.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root. An empty root defaults to the
// current working directory.
func NewDir(root string) *Dir {
	if root == "" {
		root = "."
	}
	return &Dir{root: root}
}

func (d *Dir) path(name string) string {
	return filepath.Join(d.root, name)
}

// Exists reports whether name exists in the directory — used by the DOS
// VERIFY command.
func (d *Dir) Exists(name string) bool {
	_, err := os.Stat(d.path(name))
	return err == nil
}

// Remove deletes name from the directory — used by the DOS DELETE command.
func (d *Dir) Remove(name string) error {
	return errors.Wrap(os.Remove(d.path(name)), "delete failed")
}

// OpenSequential opens name as a sequential text file, creating it if
// necessary.
func (d *Dir) OpenSequential(name string) (*Sequential, error) {
	f, err := os.OpenFile(d.path(name), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open sequential failed")
	}
	return &Sequential{f: f, r: bufio.NewReader(f)}, nil
}

// OpenRandom opens name as a fixed-record-length random-access file of
// record length recLen, creating it if necessary.
func (d *Dir) OpenRandom(name string, recLen int) (*Random, error) {
	f, err := os.OpenFile(d.path(name), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open random failed")
	}
	return &Random{f: f, recLen: recLen}, nil
}

// ReadBytes reads the full raw contents of name — used by BLOAD of a hires
// page.
func (d *Dir) ReadBytes(name string) ([]byte, error) {
	b, err := os.ReadFile(d.path(name))
	return b, errors.Wrap(err, "read failed")
}

// WriteBytes overwrites name with the raw bytes b — used by BSAVE.
func (d *Dir) WriteBytes(name string, b []byte) error {
	return errors.Wrap(os.WriteFile(d.path(name), b, 0644), "write failed")
}

// Sequential is an ordered list of text lines: writes append until a '\n'
// appears in a line; reads produce one line per ReadLine call.
type Sequential struct {
	f       *os.File
	r       *bufio.Reader
	writing bool
}

// ReadLine returns the next line, without its trailing newline. Returns
// ErrEOF at end of file.
func (s *Sequential) ReadLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line != "" {
				return strings.TrimRight(line, "\r\n"), nil
			}
			return "", ErrEOF
		}
		return "", errors.Wrap(err, "read failed")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriteLine appends s + "\n" to the file.
func (s *Sequential) WriteLine(text string) error {
	_, err := s.f.WriteString(text + "\n")
	return errors.Wrap(err, "write failed")
}

// Close closes the underlying file.
func (s *Sequential) Close() error {
	return s.f.Close()
}

// Random is a fixed-record-length random-access file. Record layout is
// NUL-padded bytes.
type Random struct {
	f      *os.File
	recLen int
	index  int
}

// SetIndex positions the file at the i'th record (0-based).
func (r *Random) SetIndex(i int) {
	r.index = i
}

// ReadRecord reads the current record's bytes, NUL-padded to the record
// length. Returns ErrEOF if the record lies past the end of file.
func (r *Random) ReadRecord() ([]byte, error) {
	buf := make([]byte, r.recLen)
	n, err := r.f.ReadAt(buf, int64(r.index)*int64(r.recLen))
	if n == 0 && (err == io.EOF || err != nil) {
		return nil, ErrEOF
	}
	return buf, nil
}

// WriteRecord writes b (truncated or NUL-padded to the record length) at
// the current record index.
func (r *Random) WriteRecord(b []byte) error {
	buf := make([]byte, r.recLen)
	copy(buf, b)
	_, err := r.f.WriteAt(buf, int64(r.index)*int64(r.recLen))
	return errors.Wrap(err, "write failed")
}

// Erase zeroes the current record.
func (r *Random) Erase() error {
	return r.WriteRecord(nil)
}

// Close closes the underlying file.
func (r *Random) Close() error {
	return r.f.Close()
}
