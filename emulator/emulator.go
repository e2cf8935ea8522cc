// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator is the host runtime around the interpreter core: it owns
// the CPU, the display, and the keyboard, and drives the 60Hz timers.
package emulator

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
	"github.com/ezrec/chip8/io"
)

const (
	TIMER_HZ         = 60 // Timer decrement rate.
	CYCLES_PER_FRAME = 10 // Default instructions per timer tick.
)

var _emulator_defines = map[string]string{
	"TIMER_HZ": fmt.Sprintf("%v", TIMER_HZ),
}

// Emulator state. CPU + display + keyboard.
type Emulator struct {
	Verbose        bool         // If set, enables verbose logging.
	*cpu.Cpu                    // Reference to the CPU simulation.
	Program        *cpu.Program // Listing of the loaded program, if assembled.
	CyclesPerFrame int          // Steps executed per Frame.

	Display  io.Display
	Keyboard io.Keyboard
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:            cpu.NewCpu(),
		Program:        &cpu.Program{},
		CyclesPerFrame: CYCLES_PER_FRAME,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Display.Defines(),
		emu.Keyboard.Defines(),
	)
}

// Reset the emulator state, and load the Program listing if it has any code.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()
	emu.Display.Clear()
	emu.Keyboard.Reset()

	if emu.Program != nil && len(emu.Program.Opcodes) != 0 {
		err = emu.Cpu.Load(emu.Program.Binary())
		if err != nil {
			return
		}
	}

	return
}

// Load resets the emulator and loads a raw ROM image.
func (emu *Emulator) Load(rom []byte) (err error) {
	emu.Program = &cpu.Program{}

	err = emu.Reset()
	if err != nil {
		return
	}

	err = emu.Cpu.Load(rom)
	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Pc returns the current program counter.
func (emu *Emulator) Pc() int {
	return int(emu.Cpu.Pc)
}

// Code returns the instruction at the program counter.
func (emu *Emulator) Code() cpu.Code {
	pc := int(emu.Cpu.Pc)
	if pc+1 >= len(emu.Cpu.Memory) {
		return cpu.Code(0)
	}
	return cpu.Code(uint16(emu.Cpu.Memory[pc])<<8 | uint16(emu.Cpu.Memory[pc+1]))
}

// LineNo returns the source line number for the instruction at the program counter.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}
	return emu.Program.LineNo(emu.Cpu.Pc)
}

// Tick performs a single step of the emulator.
func (emu *Emulator) Tick() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Pc()
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Address: pc, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Step(&emu.Display, &emu.Keyboard)
	return
}

// TickTimers decrements the delay and sound timers once.
// Returns true while the sound timer is active.
func (emu *Emulator) TickTimers() (sound bool) {
	if dt := emu.Cpu.DelayTimer(); dt > 0 {
		emu.Cpu.SetDelayTimer(dt - 1)
	}
	if st := emu.Cpu.SoundTimer(); st > 0 {
		emu.Cpu.SetSoundTimer(st - 1)
	}

	sound = emu.Cpu.SoundTimer() > 0
	return
}

// Frame performs CyclesPerFrame ticks followed by one timer tick.
func (emu *Emulator) Frame() (sound bool, err error) {
	cycles := emu.CyclesPerFrame
	if cycles <= 0 {
		cycles = CYCLES_PER_FRAME
	}

	for range cycles {
		err = emu.Tick()
		if err != nil {
			return
		}
	}

	sound = emu.TickTimers()
	return
}
