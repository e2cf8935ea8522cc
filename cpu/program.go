package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and
// generated bytes.
type Opcode struct {
	LineNo      int
	Address     int
	Words       []string
	Data        []byte
	LinkLabel   string
	Instruction bool // Data holds instruction words rather than raw bytes.
}

type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the opcode covering an address.
func (prog *Program) Debug(address uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(address) >= op.Address && int(address) < op.Address+len(op.Data) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(address) - op.Address,
			}
			break
		}
	}

	return
}

// LineNo returns the source line for an address, or zero if unknown.
func (prog *Program) LineNo(address uint16) int {
	dbg := prog.Debug(address)
	if dbg.Opcode == nil {
		return 0
	}
	return dbg.LineNo
}

// Binary returns the ROM image to load at PROGRAM_START.
func (prog *Program) Binary() (rom []byte) {
	var size int
	for _, op := range prog.Opcodes {
		size = max(size, op.Address+len(op.Data)-PROGRAM_START)
	}

	rom = make([]byte, size)
	for _, op := range prog.Opcodes {
		copy(rom[op.Address-PROGRAM_START:], op.Data)
	}

	return
}

// Codes iterates over the instruction words and their addresses.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(address uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			if !op.Instruction {
				continue
			}
			for n := 0; n+1 < len(op.Data); n += 2 {
				code := Code(uint16(op.Data[n])<<8 | uint16(op.Data[n+1]))
				if !yield(uint16(op.Address+n), code) {
					return
				}
			}
		}
	}
}
