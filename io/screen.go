package io

import (
	"bytes"
	"io"
)

// Screen renders Display snapshots as text onto a terminal.
// Two pixel rows share one text row using half block glyphs.
type Screen struct {
	Output io.Writer
	Border bool // Frame the picture with a line border.

	buffer bytes.Buffer
}

const (
	ansiHome     = "\033[H"
	ansiHideCurs = "\033[?25l"
	ansiShowCurs = "\033[?25h"
	ansiClear    = "\033[2J"
)

var halfBlock = [4]string{
	" ", // neither
	"▀", // top
	"▄", // bottom
	"█", // both
}

// Begin clears the terminal and hides the cursor.
func (sc *Screen) Begin() (err error) {
	_, err = io.WriteString(sc.Output, ansiClear+ansiHideCurs)
	return
}

// End restores the cursor.
func (sc *Screen) End() (err error) {
	_, err = io.WriteString(sc.Output, ansiShowCurs+"\r\n")
	return
}

// Render draws a full grid, homing the cursor first.
func (sc *Screen) Render(grid *Grid) (err error) {
	buf := &sc.buffer
	buf.Reset()

	buf.WriteString(ansiHome)

	if sc.Border {
		sc.line("┌", "┐")
	}
	for y := 0; y < SCREEN_HEIGHT; y += 2 {
		if sc.Border {
			buf.WriteString("│")
		}
		for x := range SCREEN_WIDTH {
			var glyph int
			if grid[y][x] {
				glyph |= 1
			}
			if y+1 < SCREEN_HEIGHT && grid[y+1][x] {
				glyph |= 2
			}
			buf.WriteString(halfBlock[glyph])
		}
		if sc.Border {
			buf.WriteString("│")
		}
		buf.WriteString("\r\n")
	}
	if sc.Border {
		sc.line("└", "┘")
	}

	_, err = sc.Output.Write(buf.Bytes())
	return
}

func (sc *Screen) line(left, right string) {
	sc.buffer.WriteString(left)
	for range SCREEN_WIDTH {
		sc.buffer.WriteString("─")
	}
	sc.buffer.WriteString(right)
	sc.buffer.WriteString("\r\n")
}

// Bell rings the terminal bell.
func (sc *Screen) Bell() (err error) {
	_, err = io.WriteString(sc.Output, "\a")
	return
}
