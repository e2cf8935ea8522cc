// Package io provides the peripherals owned by the host runtime of the
// CHIP-8 interpreter: the monochrome Display, the 16 key Keyboard latch,
// the Random byte source, ROM image reading, and a text Screen renderer.
package io

import (
	"fmt"
	"iter"
	"maps"
)

const (
	SCREEN_WIDTH  = 64 // Display width in pixels.
	SCREEN_HEIGHT = 32 // Display height in pixels.
)

// Grid is a full snapshot of the display, indexed [y][x].
type Grid [SCREEN_HEIGHT][SCREEN_WIDTH]bool

// Display is a 64x32 monochrome surface mutated only by XOR plotting.
type Display struct {
	Dirty bool // Set on every mutation, cleared by the renderer.

	pixel Grid
}

// Defines returns an iter of defines for the display.
func (dp *Display) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"SCREEN_WIDTH":  fmt.Sprintf("%d", SCREEN_WIDTH),
		"SCREEN_HEIGHT": fmt.Sprintf("%d", SCREEN_HEIGHT),
	})
}

// Clear turns every pixel off.
func (dp *Display) Clear() {
	dp.pixel = Grid{}
	dp.Dirty = true
}

// wrap folds a coordinate into [0, size).
func wrap(v int, size int) int {
	v %= size
	if v < 0 {
		v += size
	}
	return v
}

// Plot XORs bit into the pixel at (x, y), with both coordinates wrapped
// independently. Returns true when a lit pixel was turned off.
func (dp *Display) Plot(x, y int, bit bool) (collision bool) {
	x = wrap(x, SCREEN_WIDTH)
	y = wrap(y, SCREEN_HEIGHT)

	cur := dp.pixel[y][x]
	collision = cur && bit
	dp.pixel[y][x] = cur != bit
	if bit {
		dp.Dirty = true
	}

	return
}

// PixelAt returns the state of the pixel at (x, y), wrapped.
func (dp *Display) PixelAt(x, y int) bool {
	return dp.pixel[wrap(y, SCREEN_HEIGHT)][wrap(x, SCREEN_WIDTH)]
}

// PixelGrid returns a copy of the whole surface.
func (dp *Display) PixelGrid() Grid {
	return dp.pixel
}

// Lit returns the number of pixels that are on.
func (dp *Display) Lit() (count int) {
	for _, row := range dp.pixel {
		for _, on := range row {
			if on {
				count++
			}
		}
	}
	return
}
