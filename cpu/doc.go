// Package cpu implements the interpreter core and assembler for a CHIP-8
// style virtual machine.
//
// The CPU consists of 4096 bytes of memory with programs loaded at 0x200,
// sixteen 8-bit registers (v0-vf, with vf doubling as the flag register),
// a 16-bit index register, a program counter, a call stack of return
// addresses, and the delay and sound timers. Each Step fetches one
// big-endian instruction word and executes it against a Display and a
// Keyboard supplied by the caller for that step only.
//
// The wait-for-key instruction does not block: it parks the CPU in
// STATE_AWAIT_KEY, and subsequent steps do nothing until a key is held.
//
// The assembler provides a Cowgod-style mnemonic syntax for the
// instruction set, supporting macros, labels, equates, and compile-time
// expression evaluation.
package cpu
