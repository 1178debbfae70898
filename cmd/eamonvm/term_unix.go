// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

//go:build !windows

package main

import (
	"os"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// setRawIO switches stdin to raw mode (no line buffering, no local echo) so
// the VM can see every keystroke as it happens, per §6's GET built-in.
// Grounded on the teacher's (db47h/ngaro) cmd/retro/term.go and
// term_linux.go, which the teacher defines once per-platform and once
// unconditionally for everything-but-Windows — a combination that
// double-defines setRawIO on linux. This collapses both into the single
// build-tag-gated definition the teacher evidently intended.
func setRawIO() (func(), error) {
	var tios unix.Termios
	if err := termios.Tcgetattr(0, &tios); err != nil {
		return nil, errors.Wrap(err, "Tcgetattr failed")
	}
	raw := tios
	raw.Iflag &^= unix.IGNBRK | unix.ISTRIP | unix.IXON | unix.IXOFF
	raw.Iflag |= unix.BRKINT | unix.IGNPAR
	raw.Lflag &^= unix.ICANON | unix.IEXTEN | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := termios.Tcsetattr(0, termios.TCSANOW, &raw); err != nil {
		termios.Tcsetattr(0, termios.TCSANOW, &tios)
		return nil, errors.Wrap(err, "Tcsetattr failed")
	}
	return func() {
		termios.Tcsetattr(0, termios.TCSANOW, &tios)
	}, nil
}

type winsize struct {
	row, col, xpixel, ypixel uint16
}

func consoleSize(f *os.File) (int, int) {
	var w winsize
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), syscall.TIOCGWINSZ, uintptr(unsafe.Pointer(&w)))
	if errno != 0 {
		return 0, 0
	}
	return int(w.col), int(w.row)
}
