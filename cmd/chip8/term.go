//go:build !windows

package main

import (
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Terminal switches a tty between canonical and raw mode.
type Terminal struct {
	input  *os.File
	output *os.File

	canAttr unix.Termios
	rawAttr unix.Termios
}

// Open saves the current attributes and enters raw mode.
func (pt *Terminal) Open(input, output *os.File) (err error) {
	pt.input = input
	pt.output = output

	err = termios.Tcgetattr(pt.input.Fd(), &pt.canAttr)
	if err != nil {
		return
	}

	pt.rawAttr = pt.canAttr
	termios.Cfmakeraw(&pt.rawAttr)

	err = termios.Tcsetattr(pt.input.Fd(), termios.TCSANOW, &pt.rawAttr)
	return
}

// Close restores the saved attributes.
func (pt *Terminal) Close() (err error) {
	if pt.input == nil {
		return
	}

	err = termios.Tcsetattr(pt.input.Fd(), termios.TCSANOW, &pt.canAttr)
	return
}

// Fits returns false if the output terminal is known to be smaller
// than cols x rows characters.
func (pt *Terminal) Fits(cols, rows int) bool {
	ws, err := unix.IoctlGetWinsize(int(pt.output.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return true
	}

	return int(ws.Col) >= cols && int(ws.Row) >= rows
}
