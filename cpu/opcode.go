package cpu

import (
	"fmt"
)

// CodeClass is the top nibble of an instruction word.
type CodeClass int

const (
	OP_SYS     = CodeClass(0x0) // 00E0, 00EE
	OP_JP      = CodeClass(0x1) // 1nnn
	OP_CALL    = CodeClass(0x2) // 2nnn
	OP_SE_IMM  = CodeClass(0x3) // 3xnn
	OP_SNE_IMM = CodeClass(0x4) // 4xnn
	OP_SE_REG  = CodeClass(0x5) // 5xy0
	OP_LD_IMM  = CodeClass(0x6) // 6xnn
	OP_ADD_IMM = CodeClass(0x7) // 7xnn
	OP_ALU     = CodeClass(0x8) // 8xyN
	OP_SNE_REG = CodeClass(0x9) // 9xy0
	OP_LD_I    = CodeClass(0xA) // Annn
	OP_JP_V0   = CodeClass(0xB) // Bnnn
	OP_RND     = CodeClass(0xC) // Cxnn
	OP_DRW     = CodeClass(0xD) // Dxyn
	OP_KEY     = CodeClass(0xE) // Ex9E, ExA1
	OP_MISC    = CodeClass(0xF) // Fxnn
)

// CodeAluOp is the low nibble of an 8xyN instruction.
type CodeAluOp int

const (
	ALU_OP_LD   = CodeAluOp(0x0) // ld
	ALU_OP_OR   = CodeAluOp(0x1) // or
	ALU_OP_AND  = CodeAluOp(0x2) // and
	ALU_OP_XOR  = CodeAluOp(0x3) // xor
	ALU_OP_ADD  = CodeAluOp(0x4) // add
	ALU_OP_SUB  = CodeAluOp(0x5) // sub
	ALU_OP_SHR  = CodeAluOp(0x6) // shr
	ALU_OP_SUBN = CodeAluOp(0x7) // subn
	ALU_OP_SHL  = CodeAluOp(0xE) // shl
)

var aluName = map[CodeAluOp]string{
	ALU_OP_LD:   "ld",
	ALU_OP_OR:   "or",
	ALU_OP_AND:  "and",
	ALU_OP_XOR:  "xor",
	ALU_OP_ADD:  "add",
	ALU_OP_SUB:  "sub",
	ALU_OP_SHR:  "shr",
	ALU_OP_SUBN: "subn",
	ALU_OP_SHL:  "shl",
}

func (op CodeAluOp) String() string {
	name, ok := aluName[op]
	if !ok {
		name = fmt.Sprintf("alu%x", int(op))
	}
	return name
}

// CodeKeyOp is the low byte of an Exnn instruction.
type CodeKeyOp int

const (
	KEY_OP_SKP  = CodeKeyOp(0x9E) // skp
	KEY_OP_SKNP = CodeKeyOp(0xA1) // sknp
)

// CodeMiscOp is the low byte of an Fxnn instruction.
type CodeMiscOp int

const (
	MISC_OP_LD_VX_DT  = CodeMiscOp(0x07) // ld vx, dt
	MISC_OP_LD_VX_K   = CodeMiscOp(0x0A) // ld vx, k
	MISC_OP_LD_DT_VX  = CodeMiscOp(0x15) // ld dt, vx
	MISC_OP_LD_ST_VX  = CodeMiscOp(0x18) // ld st, vx
	MISC_OP_ADD_I_VX  = CodeMiscOp(0x1E) // add i, vx
	MISC_OP_LD_F_VX   = CodeMiscOp(0x29) // ld f, vx
	MISC_OP_LD_B_VX   = CodeMiscOp(0x33) // ld b, vx
	MISC_OP_LD_MEM_VX = CodeMiscOp(0x55) // ld [i], vx
	MISC_OP_LD_VX_MEM = CodeMiscOp(0x65) // ld vx, [i]
)

// Fixed instruction words.
const (
	CODE_CLS = Code(0x00E0)
	CODE_RET = Code(0x00EE)
)

// Code is a single big-endian instruction word.
type Code uint16

// MakeCodeNNN creates an instruction with a 12-bit address operand.
func MakeCodeNNN(class CodeClass, nnn uint16) Code {
	return Code((uint16(class) << 12) | (nnn & 0xfff))
}

// MakeCodeXNN creates an instruction with a register and byte operand.
func MakeCodeXNN(class CodeClass, x uint8, nn uint8) Code {
	return Code((uint16(class) << 12) | (uint16(x&0xf) << 8) | uint16(nn))
}

// MakeCodeXYN creates an instruction with two registers and a nibble operand.
func MakeCodeXYN(class CodeClass, x, y, n uint8) Code {
	return Code((uint16(class) << 12) | (uint16(x&0xf) << 8) | (uint16(y&0xf) << 4) | uint16(n&0xf))
}

// Class returns the top nibble.
func (code Code) Class() CodeClass {
	return CodeClass((code >> 12) & 0xf)
}

// X returns bits 8-11.
func (code Code) X() uint8 {
	return uint8((code >> 8) & 0xf)
}

// Y returns bits 4-7.
func (code Code) Y() uint8 {
	return uint8((code >> 4) & 0xf)
}

// N returns bits 0-3.
func (code Code) N() uint8 {
	return uint8(code & 0xf)
}

// NN returns bits 0-7.
func (code Code) NN() uint8 {
	return uint8(code & 0xff)
}

// NNN returns bits 0-11.
func (code Code) NNN() uint16 {
	return uint16(code & 0xfff)
}

// Bytes returns the big-endian encoding.
func (code Code) Bytes() [2]byte {
	return [2]byte{byte(code >> 8), byte(code)}
}

// Valid returns true if the word decodes to a known instruction.
func (code Code) Valid() bool {
	switch code.Class() {
	case OP_SYS:
		return code == CODE_CLS || code == CODE_RET
	case OP_SE_REG, OP_SNE_REG:
		return code.N() == 0
	case OP_ALU:
		_, ok := aluName[CodeAluOp(code.N())]
		return ok
	case OP_KEY:
		op := CodeKeyOp(code.NN())
		return op == KEY_OP_SKP || op == KEY_OP_SKNP
	case OP_MISC:
		switch CodeMiscOp(code.NN()) {
		case MISC_OP_LD_VX_DT, MISC_OP_LD_VX_K, MISC_OP_LD_DT_VX,
			MISC_OP_LD_ST_VX, MISC_OP_ADD_I_VX, MISC_OP_LD_F_VX,
			MISC_OP_LD_B_VX, MISC_OP_LD_MEM_VX, MISC_OP_LD_VX_MEM:
			return true
		}
		return false
	}
	return true
}

// String returns the assembly language representation of this instruction.
// Unknown words render as a .word directive.
func (code Code) String() (out string) {
	if !code.Valid() {
		out = fmt.Sprintf(".word 0x%04x", uint16(code))
		return
	}

	x, y, n := code.X(), code.Y(), code.N()
	nn, nnn := code.NN(), code.NNN()

	switch code.Class() {
	case OP_SYS:
		if code == CODE_CLS {
			out = "cls"
		} else {
			out = "ret"
		}
	case OP_JP:
		out = fmt.Sprintf("jp 0x%03x", nnn)
	case OP_CALL:
		out = fmt.Sprintf("call 0x%03x", nnn)
	case OP_SE_IMM:
		out = fmt.Sprintf("se v%x, 0x%02x", x, nn)
	case OP_SNE_IMM:
		out = fmt.Sprintf("sne v%x, 0x%02x", x, nn)
	case OP_SE_REG:
		out = fmt.Sprintf("se v%x, v%x", x, y)
	case OP_LD_IMM:
		out = fmt.Sprintf("ld v%x, 0x%02x", x, nn)
	case OP_ADD_IMM:
		out = fmt.Sprintf("add v%x, 0x%02x", x, nn)
	case OP_ALU:
		out = fmt.Sprintf("%v v%x, v%x", CodeAluOp(n), x, y)
	case OP_SNE_REG:
		out = fmt.Sprintf("sne v%x, v%x", x, y)
	case OP_LD_I:
		out = fmt.Sprintf("ld i, 0x%03x", nnn)
	case OP_JP_V0:
		out = fmt.Sprintf("jp v0, 0x%03x", nnn)
	case OP_RND:
		out = fmt.Sprintf("rnd v%x, 0x%02x", x, nn)
	case OP_DRW:
		out = fmt.Sprintf("drw v%x, v%x, %d", x, y, n)
	case OP_KEY:
		if CodeKeyOp(nn) == KEY_OP_SKP {
			out = fmt.Sprintf("skp v%x", x)
		} else {
			out = fmt.Sprintf("sknp v%x", x)
		}
	case OP_MISC:
		switch CodeMiscOp(nn) {
		case MISC_OP_LD_VX_DT:
			out = fmt.Sprintf("ld v%x, dt", x)
		case MISC_OP_LD_VX_K:
			out = fmt.Sprintf("ld v%x, k", x)
		case MISC_OP_LD_DT_VX:
			out = fmt.Sprintf("ld dt, v%x", x)
		case MISC_OP_LD_ST_VX:
			out = fmt.Sprintf("ld st, v%x", x)
		case MISC_OP_ADD_I_VX:
			out = fmt.Sprintf("add i, v%x", x)
		case MISC_OP_LD_F_VX:
			out = fmt.Sprintf("ld f, v%x", x)
		case MISC_OP_LD_B_VX:
			out = fmt.Sprintf("ld b, v%x", x)
		case MISC_OP_LD_MEM_VX:
			out = fmt.Sprintf("ld [i], v%x", x)
		case MISC_OP_LD_VX_MEM:
			out = fmt.Sprintf("ld v%x, [i]", x)
		}
	}

	return
}
