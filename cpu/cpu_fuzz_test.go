package cpu

import (
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	chipio "github.com/ezrec/chip8/io"
)

func FuzzCpu(f *testing.F) {
	for rv := range 0x10 {
		f.Add(uint16(rv<<12), uint16(0x300), uint8(rv), false)
		f.Add(uint16(rv<<12|0xfff), uint16(0xffe), uint8(0xff), true)
	}

	f.Fuzz(func(t *testing.T, opcode uint16, index uint16, value uint8, stacked bool) {
		assert := assert.New(t)

		code := Code(opcode)

		cpu := NewCpu()
		cpu.Logger = log.New(io.Discard, "", 0)
		cpu.Random = &chipio.Sequence{Data: []uint8{0x5A}}
		cpu.Strict = true
		cpu.Index = index
		for n := range cpu.Register {
			cpu.Register[n] = value + uint8(n)
		}
		if stacked {
			cpu.Stack.Push(0x234)
		}

		display := &chipio.Display{}
		keyboard := &chipio.Keyboard{}
		keyboard.SetKey(value&0xf, true)

		word := code.Bytes()
		copy(cpu.Memory[PROGRAM_START:], word[:])

		pre := *cpu
		err := cpu.Step(display, keyboard)

		code_str := fmt.Sprintf("0x%04x (%v) index:0x%03x value:0x%02x stacked:%v\ncpu:%v",
			opcode, code, index, value, stacked, cpu.String())

		if err != nil {
			assert.ErrorIs(err, ErrOpcode(0), code_str)
			switch {
			case errors.Is(err, ErrOpcodeUnknown):
				assert.False(code.Valid(), code_str)
			case errors.Is(err, ErrStackUnderflow):
				assert.Equal(CODE_RET, code, code_str)
				assert.False(stacked, code_str)
			case errors.Is(err, ErrMemoryAccess):
				switch code.Class() {
				case OP_DRW, OP_MISC:
					// expected error
				default:
					assert.NoError(err, code_str)
				}
				assert.Equal(pre.Register, cpu.Register, code_str)
				assert.Equal(pre.Memory, cpu.Memory, code_str)
			default:
				assert.NoError(err, code_str)
			}
			assert.Equal(pre.Ticks, cpu.Ticks, code_str)
			return
		}

		assert.True(code.Valid(), code_str)
		assert.Equal(pre.Ticks+1, cpu.Ticks, code_str)

		x, y := code.X(), code.Y()
		nn, nnn := code.NN(), code.NNN()
		next := uint16(PROGRAM_START + 2)

		switch code.Class() {
		case OP_SYS:
			if code == CODE_RET {
				next = 0x234
			}
		case OP_JP:
			next = nnn
		case OP_CALL:
			next = nnn
			top, _ := cpu.Stack.Peek()
			assert.Equal(uint16(PROGRAM_START+2), top, code_str)
		case OP_SE_IMM:
			if pre.Register[x] == nn {
				next += 2
			}
		case OP_SNE_IMM:
			if pre.Register[x] != nn {
				next += 2
			}
		case OP_SE_REG:
			if pre.Register[x] == pre.Register[y] {
				next += 2
			}
		case OP_SNE_REG:
			if pre.Register[x] != pre.Register[y] {
				next += 2
			}
		case OP_LD_IMM:
			assert.Equal(nn, cpu.Register[x], code_str)
		case OP_ADD_IMM:
			assert.Equal(pre.Register[x]+nn, cpu.Register[x], code_str)
			if x != REG_VF {
				assert.Equal(pre.Register[REG_VF], cpu.Register[REG_VF], code_str)
			}
		case OP_LD_I:
			assert.Equal(nnn, cpu.Index, code_str)
		case OP_JP_V0:
			next = nnn + uint16(pre.Register[0])
		case OP_RND:
			assert.Equal(0x5A&nn, cpu.Register[x], code_str)
		case OP_DRW:
			assert.LessOrEqual(cpu.Register[REG_VF], uint8(1), code_str)
		case OP_KEY:
			pressed := (pre.Register[x] & 0xf) == (value & 0xf)
			if CodeKeyOp(nn) == KEY_OP_SKNP {
				pressed = !pressed
			}
			if pressed {
				next += 2
			}
		case OP_MISC:
			switch CodeMiscOp(nn) {
			case MISC_OP_LD_VX_K:
				reg, ok := cpu.AwaitingKey()
				assert.True(ok, code_str)
				assert.Equal(x, reg, code_str)
			case MISC_OP_LD_MEM_VX, MISC_OP_LD_VX_MEM, MISC_OP_LD_B_VX:
				assert.Equal(pre.Index, cpu.Index, code_str)
			}
		}

		assert.Equal(next, cpu.Pc, code_str)
	})
}
