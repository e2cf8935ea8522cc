package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_Fields(t *testing.T) {
	assert := assert.New(t)

	code := Code(0xD12F)
	assert.Equal(OP_DRW, code.Class())
	assert.Equal(uint8(0x1), code.X())
	assert.Equal(uint8(0x2), code.Y())
	assert.Equal(uint8(0xF), code.N())
	assert.Equal(uint8(0x2F), code.NN())
	assert.Equal(uint16(0x12F), code.NNN())
	assert.Equal([2]byte{0xD1, 0x2F}, code.Bytes())
}

func TestCode_Make(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Code(0x1ABC), MakeCodeNNN(OP_JP, 0xABC))
	assert.Equal(Code(0x1ABC), MakeCodeNNN(OP_JP, 0xFABC))
	assert.Equal(Code(0x6A42), MakeCodeXNN(OP_LD_IMM, 0xA, 0x42))
	assert.Equal(Code(0x6A42), MakeCodeXNN(OP_LD_IMM, 0x1A, 0x42))
	assert.Equal(Code(0x8124), MakeCodeXYN(OP_ALU, 1, 2, uint8(ALU_OP_ADD)))
}

func TestCode_String(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code Code
		text string
	}){
		{0x00E0, "cls"},
		{0x00EE, "ret"},
		{0x0123, ".word 0x0123"},
		{0x1345, "jp 0x345"},
		{0x2345, "call 0x345"},
		{0x3142, "se v1, 0x42"},
		{0x4142, "sne v1, 0x42"},
		{0x5120, "se v1, v2"},
		{0x5121, ".word 0x5121"},
		{0x6A42, "ld va, 0x42"},
		{0x7142, "add v1, 0x42"},
		{0x8120, "ld v1, v2"},
		{0x8124, "add v1, v2"},
		{0x812E, "shl v1, v2"},
		{0x8128, ".word 0x8128"},
		{0x9120, "sne v1, v2"},
		{0xA345, "ld i, 0x345"},
		{0xB345, "jp v0, 0x345"},
		{0xC10F, "rnd v1, 0x0f"},
		{0xD125, "drw v1, v2, 5"},
		{0xE39E, "skp v3"},
		{0xE3A1, "sknp v3"},
		{0xE3FF, ".word 0xe3ff"},
		{0xF30A, "ld v3, k"},
		{0xF333, "ld b, v3"},
		{0xF355, "ld [i], v3"},
		{0xF365, "ld v3, [i]"},
		{0xF3FF, ".word 0xf3ff"},
	}

	for _, entry := range table {
		assert.Equal(entry.text, entry.code.String(), "0x%04x", uint16(entry.code))
		assert.Equal(entry.text[0] != '.', entry.code.Valid(), entry.text)
	}
}

func TestCodeAluOp_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("subn", ALU_OP_SUBN.String())
	assert.Equal("alu8", CodeAluOp(8).String())
}
