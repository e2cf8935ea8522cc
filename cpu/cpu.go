package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/chip8/io"
)

// Address space layout.
const (
	MEMORY_SIZE    = 4096                        // Addressable bytes.
	PROGRAM_START  = 0x200                       // Load address of programs.
	PROGRAM_LIMIT  = MEMORY_SIZE - PROGRAM_START // Largest loadable program.
	REGISTER_COUNT = 16                          // General purpose registers.
	REG_VF         = 0xf                         // Flag register.
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":     fmt.Sprintf("0x%03x", MEMORY_SIZE),
	"PROGRAM_START":   fmt.Sprintf("0x%03x", PROGRAM_START),
	"FONT_BASE":       fmt.Sprintf("0x%03x", FONT_BASE),
	"FONT_GLYPH_SIZE": fmt.Sprintf("%d", FONT_GLYPH_SIZE),
}

// State is the execution state of the CPU.
type State int

const (
	STATE_RUNNING   = State(0) // running
	STATE_AWAIT_KEY = State(1) // await key
)

func (st State) String() string {
	switch st {
	case STATE_RUNNING:
		return "running"
	case STATE_AWAIT_KEY:
		return "await key"
	}
	return fmt.Sprintf("State(%d)", int(st))
}

// Display is the drawing surface the CPU renders sprites onto.
type Display interface {
	// Clear turns every pixel off.
	Clear()
	// Plot XORs a pixel, wrapping the coordinates, and reports if a lit
	// pixel was turned off.
	Plot(x, y int, bit bool) (collision bool)
}

// Keyboard is the key latch the CPU polls.
type Keyboard interface {
	// IsPressed returns true if the key is held.
	IsPressed(key uint8) bool
	// LowestPressed returns the lowest held key.
	LowestPressed() (key uint8, ok bool)
}

// Random is the random byte source.
type Random io.Random

// Cpu is the simulation context of the interpreter.
type Cpu struct {
	Verbose bool        // Set to enable verbose logging.
	Strict  bool        // Set to fail on unknown instructions.
	Logger  *log.Logger // Diagnostics destination, or nil for the default logger.
	Random  Random      // Source for the rnd instruction.

	Memory   [MEMORY_SIZE]byte     // Address space.
	Register [REGISTER_COUNT]uint8 // Register bank v0-vf.
	Index    uint16                // Index register.
	Pc       uint16                // Program counter.
	Stack    Stack                 // Return address stack.

	State State // Execution state.
	Await uint8 // Register receiving the key while in STATE_AWAIT_KEY.

	Ticks int // Executed instruction counter.

	delay uint8
	sound uint8
}

// NewCpu creates a reset CPU with a time-seeded random source.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Random: io.NewRandom(time.Now().UnixNano()),
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

func (cpu *Cpu) logf(format string, args ...any) {
	logger := cpu.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}

// Reset the CPU state.
// - Clears memory, registers, stack, and timers.
// - Installs the font at FONT_BASE.
// - Sets the program counter to PROGRAM_START.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		cpu.logf("cpu: reset")
	}

	clear(cpu.Memory[:])
	copy(cpu.Memory[FONT_BASE:], Font[:])
	clear(cpu.Register[:])
	cpu.Index = 0
	cpu.Pc = PROGRAM_START
	cpu.Stack.Reset()
	cpu.State = STATE_RUNNING
	cpu.Await = 0
	cpu.Ticks = 0
	cpu.delay = 0
	cpu.sound = 0
}

// Load copies a program image into memory at PROGRAM_START.
// Memory is untouched if the image does not fit.
func (cpu *Cpu) Load(rom []byte) (err error) {
	if len(rom) > PROGRAM_LIMIT {
		err = ErrProgramSize{Size: len(rom)}
		return
	}

	copy(cpu.Memory[PROGRAM_START:], rom)

	if cpu.Verbose {
		cpu.logf("cpu: loaded %d bytes", len(rom))
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("   pc: %03X\n", cpu.Pc)
	text += fmt.Sprintf("    i: %03X\n", cpu.Index)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("   v%X: %02X\n", n, val)
	}
	strval := "---"
	top, ok := cpu.Stack.Peek()
	if ok {
		strval = fmt.Sprintf("%03X", top)
	}
	text += fmt.Sprintf("stack: %v (%d)\n", strval, len(cpu.Stack.Data))
	text += fmt.Sprintf("   dt: %02X\n", cpu.delay)
	text += fmt.Sprintf("   st: %02X\n", cpu.sound)
	text += fmt.Sprintf("state: %v\n", cpu.State)

	return
}

// DelayTimer returns the delay timer.
func (cpu *Cpu) DelayTimer() uint8 {
	return cpu.delay
}

// SetDelayTimer sets the delay timer.
func (cpu *Cpu) SetDelayTimer(value uint8) {
	cpu.delay = value
}

// SoundTimer returns the sound timer.
func (cpu *Cpu) SoundTimer() uint8 {
	return cpu.sound
}

// SetSoundTimer sets the sound timer.
func (cpu *Cpu) SetSoundTimer(value uint8) {
	cpu.sound = value
}

// AwaitingKey returns the register waiting for a key press, if any.
func (cpu *Cpu) AwaitingKey() (register uint8, ok bool) {
	if cpu.State != STATE_AWAIT_KEY {
		return
	}
	return cpu.Await, true
}

// span returns length bytes of memory starting at addr.
func (cpu *Cpu) span(addr uint16, length int) (mem []byte, err error) {
	end := int(addr) + length
	if end > len(cpu.Memory) {
		err = ErrAddress{Address: int(addr), Length: length}
		return
	}

	mem = cpu.Memory[addr:end]
	return
}

// Fetch reads the instruction word at the program counter and advances it.
func (cpu *Cpu) Fetch() (code Code, err error) {
	word, err := cpu.span(cpu.Pc, 2)
	if err != nil {
		return
	}

	code = Code(uint16(word[0])<<8 | uint16(word[1]))
	cpu.Pc += 2

	return
}

// Step performs one fetch and execute cycle.
// While awaiting a key, the step only polls the keyboard.
func (cpu *Cpu) Step(display Display, keyboard Keyboard) (err error) {
	if cpu.State == STATE_AWAIT_KEY {
		key, ok := keyboard.LowestPressed()
		if !ok {
			return
		}
		cpu.Register[cpu.Await] = key
		cpu.State = STATE_RUNNING
		if cpu.Verbose {
			cpu.logf("%03x: key %x -> v%x", cpu.Pc, key, cpu.Await)
		}
		return
	}

	code, err := cpu.Fetch()
	if err != nil {
		return
	}

	err = cpu.Execute(code, display, keyboard)
	if err != nil {
		return
	}

	cpu.Ticks++

	return
}

// skip advances past the next instruction.
func (cpu *Cpu) skip(cond bool) {
	if cond {
		cpu.Pc += 2
	}
}

// unknown reports an undecodable instruction.
func (cpu *Cpu) unknown(code Code) (err error) {
	cpu.logf("cpu: unknown opcode 0x%04x at 0x%03x", uint16(code), cpu.Pc-2)
	if cpu.Strict {
		err = ErrOpcodeUnknown
	}
	return
}

// Execute executes a single decoded instruction.
// The program counter must already point past the instruction.
func (cpu *Cpu) Execute(code Code, display Display, keyboard Keyboard) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()

	if cpu.State == STATE_AWAIT_KEY {
		return
	}

	if cpu.Verbose {
		cpu.logf("%03x: %04x %v", cpu.Pc-2, uint16(code), code)
	}

	x, y, n := code.X(), code.Y(), code.N()
	nn, nnn := code.NN(), code.NNN()

	switch code.Class() {
	case OP_SYS:
		switch code {
		case CODE_CLS:
			display.Clear()
		case CODE_RET:
			pc, ok := cpu.Stack.Pop()
			if !ok {
				err = ErrStackUnderflow
				return
			}
			cpu.Pc = pc
		default:
			err = cpu.unknown(code)
		}
	case OP_JP:
		cpu.Pc = nnn
	case OP_CALL:
		if cpu.Stack.Full() {
			err = ErrStackOverflow
			return
		}
		cpu.Stack.Push(cpu.Pc)
		cpu.Pc = nnn
	case OP_SE_IMM:
		cpu.skip(cpu.Register[x] == nn)
	case OP_SNE_IMM:
		cpu.skip(cpu.Register[x] != nn)
	case OP_SE_REG:
		if n != 0 {
			err = cpu.unknown(code)
			return
		}
		cpu.skip(cpu.Register[x] == cpu.Register[y])
	case OP_SNE_REG:
		if n != 0 {
			err = cpu.unknown(code)
			return
		}
		cpu.skip(cpu.Register[x] != cpu.Register[y])
	case OP_LD_IMM:
		cpu.Register[x] = nn
	case OP_ADD_IMM:
		cpu.Register[x] += nn
	case OP_ALU:
		output, flag, flagged, ok := cpu.doAlu(CodeAluOp(n), cpu.Register[x], cpu.Register[y])
		if !ok {
			err = cpu.unknown(code)
			return
		}
		cpu.Register[x] = output
		if flagged {
			cpu.Register[REG_VF] = flag
		}
	case OP_LD_I:
		cpu.Index = nnn
	case OP_JP_V0:
		cpu.Pc = nnn + uint16(cpu.Register[0])
	case OP_RND:
		if cpu.Random == nil {
			cpu.Random = io.NewRandom(time.Now().UnixNano())
		}
		cpu.Register[x] = cpu.Random.Byte() & nn
	case OP_DRW:
		err = cpu.draw(display, x, y, n)
	case OP_KEY:
		key := cpu.Register[x] & 0xf
		switch CodeKeyOp(nn) {
		case KEY_OP_SKP:
			cpu.skip(keyboard.IsPressed(key))
		case KEY_OP_SKNP:
			cpu.skip(!keyboard.IsPressed(key))
		default:
			err = cpu.unknown(code)
		}
	case OP_MISC:
		err = cpu.doMisc(code, CodeMiscOp(nn), x)
	}

	return
}

// doAlu performs an 8xyN operation, returning the new vx and,
// when flagged is set, the new vf.
func (cpu *Cpu) doAlu(op CodeAluOp, vx, vy uint8) (output uint8, flag uint8, flagged bool, ok bool) {
	ok = true

	switch op {
	case ALU_OP_LD:
		output = vy
	case ALU_OP_OR:
		output = vx | vy
	case ALU_OP_AND:
		output = vx & vy
	case ALU_OP_XOR:
		output = vx ^ vy
	case ALU_OP_ADD:
		sum := uint16(vx) + uint16(vy)
		output = uint8(sum)
		flag = uint8(sum >> 8)
		flagged = true
	case ALU_OP_SUB:
		output = vx - vy
		flag = bit(vx >= vy)
		flagged = true
	case ALU_OP_SHR:
		output = vx >> 1
		flag = vx & 1
		flagged = true
	case ALU_OP_SUBN:
		output = vy - vx
		flag = bit(vy >= vx)
		flagged = true
	case ALU_OP_SHL:
		output = vx << 1
		flag = vx >> 7
		flagged = true
	default:
		ok = false
	}

	return
}

func bit(cond bool) uint8 {
	if cond {
		return 1
	}
	return 0
}

// draw composites an n row sprite from memory at I onto the display at
// (vx, vy). Each pixel wraps independently.
func (cpu *Cpu) draw(display Display, x, y, rows uint8) (err error) {
	if rows == 0 {
		cpu.Register[REG_VF] = 0
		return
	}

	sprite, err := cpu.span(cpu.Index, int(rows))
	if err != nil {
		return
	}

	ox := int(cpu.Register[x])
	oy := int(cpu.Register[y])

	var collision bool
	for row, bits := range sprite {
		for col := range 8 {
			if bits&(0x80>>col) == 0 {
				continue
			}
			if display.Plot(ox+col, oy+row, true) {
				collision = true
			}
		}
	}

	cpu.Register[REG_VF] = bit(collision)

	return
}

// doMisc performs an Fxnn operation.
func (cpu *Cpu) doMisc(code Code, op CodeMiscOp, x uint8) (err error) {
	vx := cpu.Register[x]

	switch op {
	case MISC_OP_LD_VX_DT:
		cpu.Register[x] = cpu.delay
	case MISC_OP_LD_VX_K:
		cpu.State = STATE_AWAIT_KEY
		cpu.Await = x
	case MISC_OP_LD_DT_VX:
		cpu.delay = vx
	case MISC_OP_LD_ST_VX:
		cpu.sound = vx
	case MISC_OP_ADD_I_VX:
		cpu.Index += uint16(vx)
	case MISC_OP_LD_F_VX:
		cpu.Index = FONT_BASE + uint16(vx)*FONT_GLYPH_SIZE
	case MISC_OP_LD_B_VX:
		var mem []byte
		mem, err = cpu.span(cpu.Index, 3)
		if err != nil {
			return
		}
		mem[0] = vx / 100
		mem[1] = (vx / 10) % 10
		mem[2] = vx % 10
	case MISC_OP_LD_MEM_VX:
		var mem []byte
		mem, err = cpu.span(cpu.Index, int(x)+1)
		if err != nil {
			return
		}
		copy(mem, cpu.Register[:x+1])
	case MISC_OP_LD_VX_MEM:
		var mem []byte
		mem, err = cpu.span(cpu.Index, int(x)+1)
		if err != nil {
			return
		}
		copy(cpu.Register[:x+1], mem)
	default:
		err = cpu.unknown(code)
	}

	return
}
