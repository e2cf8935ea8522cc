package io

import (
	"fmt"
	"iter"
	"maps"
)

const KEY_COUNT = 16 // Keys 0x0 through 0xF.

// Keyboard is the latched state of the 16 key hex pad.
// Out of range key indexes are ignored on write and read as released.
type Keyboard struct {
	key [KEY_COUNT]bool
}

// Defines returns an iter of defines for the keyboard.
func (kb *Keyboard) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"KEY_COUNT": fmt.Sprintf("%d", KEY_COUNT),
	})
}

// Reset releases all keys.
func (kb *Keyboard) Reset() {
	clear(kb.key[:])
}

// SetKey latches the state of a key.
func (kb *Keyboard) SetKey(key uint8, pressed bool) {
	if int(key) >= len(kb.key) {
		return
	}
	kb.key[key] = pressed
}

// IsPressed returns true if the key is currently held.
func (kb *Keyboard) IsPressed(key uint8) bool {
	if int(key) >= len(kb.key) {
		return false
	}
	return kb.key[key]
}

// LowestPressed returns the lowest numbered key currently held.
func (kb *Keyboard) LowestPressed() (key uint8, ok bool) {
	for n, pressed := range kb.key {
		if pressed {
			key = uint8(n)
			ok = true
			return
		}
	}
	return
}

// Pressed iterates over the held keys in ascending order.
func (kb *Keyboard) Pressed() iter.Seq[uint8] {
	return func(yield func(key uint8) bool) {
		for n, pressed := range kb.key {
			if pressed && !yield(uint8(n)) {
				return
			}
		}
	}
}
