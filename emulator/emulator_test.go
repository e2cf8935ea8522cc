package emulator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8/cpu"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.NotNil(emu.Program)
	assert.Equal(CYCLES_PER_FRAME, emu.CyclesPerFrame)
	assert.Equal(cpu.PROGRAM_START, emu.Pc())
	assert.Equal(0, emu.Ticks())
}

func TestEmulator_Defines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}

	assert.Equal("60", defines["TIMER_HZ"])
	assert.Equal("0x200", defines["PROGRAM_START"])
	assert.Equal("64", defines["SCREEN_WIDTH"])
	assert.Equal("32", defines["SCREEN_HEIGHT"])
	assert.Equal("16", defines["KEY_COUNT"])
}

func assemble(t *testing.T, emu *Emulator, program ...string) {
	asm := &cpu.Assembler{}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	emu.Program = prog
	err = emu.Reset()
	if err != nil {
		t.Fatal(err)
	}
}

func TestEmulator_Program(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	program := []string{
		"ld v0, 1",
		"ld v1, $(SCREEN_WIDTH - 1)",
		"ld i, sprite",
		"drw v1, v0, 1",
		"done: jp done",
		"sprite: .byte 0xC0",
	}
	assemble(t, emu, program...)

	for _, op := range emu.Program.Opcodes[:4] {
		assert.Equal(op.LineNo, emu.LineNo())
		assert.Equal(op.Address, emu.Pc())
		assert.Equal(cpu.Code(uint16(op.Data[0])<<8|uint16(op.Data[1])), emu.Code())
		assert.NoError(emu.Tick(), program[op.LineNo-1])
	}

	assert.Equal(4, emu.Ticks())
	assert.True(emu.Display.Dirty)
	assert.True(emu.Display.PixelAt(63, 1))
	assert.True(emu.Display.PixelAt(0, 1))
	assert.Equal(2, emu.Display.Lit())

	// Spinning in place.
	assert.NoError(emu.Tick())
	assert.Equal(5, emu.LineNo())
	assert.Equal(0x208, emu.Pc())
}

func TestEmulator_Reset(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(t, emu, "ld v3, 7", "cls")

	emu.Display.Plot(3, 3, true)
	emu.Keyboard.SetKey(5, true)
	assert.NoError(emu.Tick())
	assert.Equal(uint8(7), emu.Register[3])

	assert.NoError(emu.Reset())
	assert.Equal(uint8(0), emu.Register[3])
	assert.Equal(0, emu.Display.Lit())
	_, ok := emu.Keyboard.LowestPressed()
	assert.False(ok)
	assert.Equal(cpu.PROGRAM_START, emu.Pc())
	// The listing is reloaded.
	assert.Equal(uint8(0x63), emu.Memory[cpu.PROGRAM_START])
}

func TestEmulator_Load(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(t, emu, "ld v3, 7")

	err := emu.Load([]byte{0x60, 0x01, 0x70, 0x02, 0xA2, 0x34})
	assert.NoError(err)
	assert.Empty(emu.Program.Opcodes)

	for range 3 {
		assert.NoError(emu.Tick())
	}
	assert.Equal(uint8(3), emu.Register[0])
	assert.Equal(uint16(0x234), emu.Index)
	assert.Equal(0x206, emu.Pc())
	assert.Equal(0, emu.LineNo())

	err = emu.Load(make([]byte, cpu.PROGRAM_LIMIT+1))
	assert.ErrorIs(err, cpu.ErrLoad)
}

func TestEmulator_RuntimeError(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(t, emu,
		"ld v0, 1",
		"",
		"ret",
	)

	assert.NoError(emu.Tick())
	err := emu.Tick()
	assert.ErrorIs(err, cpu.ErrStackUnderflow)

	var rerr *ErrRuntime
	if assert.True(errors.As(err, &rerr)) {
		assert.Equal(3, rerr.LineNo)
		assert.Equal(0x202, rerr.Address)
		assert.Contains(rerr.Error(), "line 3 (0x202)")
	}

	// Raw images have no listing.
	err = emu.Load([]byte{0x00, 0xEE})
	assert.NoError(err)
	err = emu.Tick()
	if assert.True(errors.As(err, &rerr)) {
		assert.Equal(0, rerr.LineNo)
		assert.True(strings.HasPrefix(rerr.Error(), "0x200: "), rerr.Error())
	}
}

func TestEmulator_Strict(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Strict = true
	err := emu.Load([]byte{0x01, 0x23})
	assert.NoError(err)

	err = emu.Tick()
	assert.ErrorIs(err, cpu.ErrOpcodeUnknown)
}

func TestEmulator_TickTimers(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.SetDelayTimer(2)
	emu.SetSoundTimer(2)

	assert.True(emu.TickTimers())
	assert.Equal(uint8(1), emu.DelayTimer())
	assert.Equal(uint8(1), emu.SoundTimer())

	assert.False(emu.TickTimers())
	assert.Equal(uint8(0), emu.DelayTimer())
	assert.Equal(uint8(0), emu.SoundTimer())

	// Timers stop at zero.
	assert.False(emu.TickTimers())
	assert.Equal(uint8(0), emu.DelayTimer())
	assert.Equal(uint8(0), emu.SoundTimer())
}

func TestEmulator_Frame(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.CyclesPerFrame = 4
	assemble(t, emu,
		"ld v0, 3",
		"ld st, v0",
		"ld dt, v0",
		"loop: add v1, 1",
		"jp loop",
	)

	sound, err := emu.Frame()
	assert.NoError(err)
	assert.True(sound)
	assert.Equal(4, emu.Ticks())
	assert.Equal(uint8(2), emu.DelayTimer())
	assert.Equal(uint8(1), emu.Register[1])

	sound, err = emu.Frame()
	assert.NoError(err)
	assert.True(sound)
	assert.Equal(8, emu.Ticks())

	sound, err = emu.Frame()
	assert.NoError(err)
	assert.False(sound)
	assert.Equal(uint8(0), emu.DelayTimer())

	// A zero rate uses the default.
	emu.CyclesPerFrame = 0
	_, err = emu.Frame()
	assert.NoError(err)
	assert.Equal(12+CYCLES_PER_FRAME, emu.Ticks())
}

func TestEmulator_Frame_Error(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.CyclesPerFrame = 10
	assemble(t, emu,
		"ld st, v0",
		"ret",
	)
	emu.Register[0] = 5

	_, err := emu.Frame()
	assert.ErrorIs(err, cpu.ErrStackUnderflow)
	assert.Equal(1, emu.Ticks())
	// Timers are not advanced by a failed frame.
	assert.Equal(uint8(5), emu.SoundTimer())
}

func TestEmulator_AwaitKey(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(t, emu,
		"ld v0, 2",
		"ld st, v0",
		"ld v5, k",
		"ld v6, 1",
	)

	_, err := emu.Frame()
	assert.NoError(err)
	reg, ok := emu.AwaitingKey()
	assert.True(ok)
	assert.Equal(uint8(5), reg)
	assert.Equal(3, emu.Ticks())
	assert.Equal(uint8(1), emu.SoundTimer())

	// Timers keep running while waiting.
	sound, err := emu.Frame()
	assert.NoError(err)
	assert.False(sound)
	assert.Equal(3, emu.Ticks())

	emu.Keyboard.SetKey(0xC, true)
	_, err = emu.Frame()
	assert.NoError(err)
	assert.Equal(uint8(0xC), emu.Register[5])
	assert.Equal(uint8(1), emu.Register[6])
	_, ok = emu.AwaitingKey()
	assert.False(ok)
}
