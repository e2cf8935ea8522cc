// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = func() (equ map[string]string) {
	equ = maps.Clone(_cpu_defines)
	equ["LINENO"] = "0"
	return
}()

// Assembler is a single pass macro assembler for the CHIP-8 instruction set.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expansion int // Macro expansion counter, for @ local labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reIdentifier = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// fields splits a line on whitespace and commas.
func fields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// registerOf decodes a v0-vf register name.
func registerOf(word string) (reg uint8, ok bool) {
	word = strings.ToLower(word)
	if len(word) != 2 || word[0] != 'v' {
		return
	}
	v, err := strconv.ParseUint(word[1:], 16, 8)
	if err != nil {
		return
	}
	return uint8(v), true
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	invert := false
	if len(word) > 1 && word[0] == '~' {
		invert = true
		word = word[1:]
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 < 0 {
		value = uint32(0xffffffff + (v64 + 1))
	} else {
		value = uint32(v64)
	}

	if invert {
		value = ^value
	}

	return
}

// limitOf constrains a value to an unsigned field, also accepting the
// negative values that fit the field as two's complement.
func (asm *Assembler) limitOf(word string, limit uint32) (value uint32, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}

	if value > limit {
		neg := ^value + 1
		if int32(value) < 0 && neg <= (limit+1)/2 {
			value &= limit
			return
		}
		err = ErrOperandRange{Value: value, Limit: limit}
		return
	}

	return
}

// byteOf returns an 8-bit operand.
func (asm *Assembler) byteOf(word string) (value uint8, err error) {
	v, err := asm.limitOf(word, 0xff)
	value = uint8(v)
	return
}

// addressOf returns a 12-bit operand, or the label to link it to.
func (asm *Assembler) addressOf(word string) (nnn uint16, label string, err error) {
	if reIdentifier.MatchString(word) {
		label = word
		return
	}

	v, err := asm.limitOf(word, 0xfff)
	nnn = uint16(v)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(int64(value32))
	}
	err = nil
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parseLine parses a single line into words, handling equates, labels,
// and macro expansion.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#x", value)
	})
	if err != nil {
		return
	}

	words = fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddress()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansion++
		local := fmt.Sprintf("%v_%v_", name, asm.expansion)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}
		words = nil
		return
	}

	return
}

// currentAddress gets the address of the next generated byte.
func (asm *Assembler) currentAddress() int {
	if len(asm.Opcode) == 0 {
		return PROGRAM_START
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Address + len(last.Data)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.expansion = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of address labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		address, ok := asm.Label[label]
		if !ok {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		if address > 0xfff {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrOperandRange{Value: uint32(address), Limit: 0xfff}
			return
		}
		op.Data[0] |= byte(address>>8) & 0xf
		op.Data[1] |= byte(address)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// aluMap maps register to register ALU mnemonics.
var aluMap = map[string]CodeAluOp{
	"or":   ALU_OP_OR,
	"and":  ALU_OP_AND,
	"xor":  ALU_OP_XOR,
	"sub":  ALU_OP_SUB,
	"subn": ALU_OP_SUBN,
}

// miscSrcMap maps 'ld <dst>, vx' destinations.
var miscSrcMap = map[string]CodeMiscOp{
	"dt":  MISC_OP_LD_DT_VX,
	"st":  MISC_OP_LD_ST_VX,
	"f":   MISC_OP_LD_F_VX,
	"b":   MISC_OP_LD_B_VX,
	"[i]": MISC_OP_LD_MEM_VX,
}

// miscDstMap maps 'ld vx, <src>' sources.
var miscDstMap = map[string]CodeMiscOp{
	"dt":  MISC_OP_LD_VX_DT,
	"k":   MISC_OP_LD_VX_K,
	"[i]": MISC_OP_LD_VX_MEM,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var data []byte
	var label string
	instruction := true

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(data) == 0 {
			return
		}
		address := asm.currentAddress()
		if address+len(data) > MEMORY_SIZE {
			err = ErrProgramOverflow
			return
		}
		opcode := Opcode{LineNo: lineno, Address: address, Words: initial_words, Data: data, LinkLabel: label, Instruction: instruction}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	emit := func(code Code) {
		word := code.Bytes()
		data = word[:]
	}

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	want := func(min, max int) error {
		if len(args) < min {
			return ErrOpcodeValueMissing
		}
		if len(args) > max {
			return ErrOpcodeExtraArgs
		}
		return nil
	}

	// vxOnly handles the single register forms.
	vxOnly := func(class CodeClass, op uint8) (err error) {
		err = want(1, 1)
		if err != nil {
			return
		}
		vx, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		emit(MakeCodeXNN(class, vx, op))
		return
	}

	switch mnemonic {
	case ".byte":
		instruction = false
		if err = want(1, len(args)); err != nil {
			return
		}
		for _, word := range args {
			var value uint8
			value, err = asm.byteOf(word)
			if err != nil {
				return
			}
			data = append(data, value)
		}
	case ".word":
		instruction = false
		if err = want(1, len(args)); err != nil {
			return
		}
		for _, word := range args {
			var value uint32
			value, err = asm.limitOf(word, 0xffff)
			if err != nil {
				return
			}
			data = append(data, byte(value>>8), byte(value))
		}
	case "cls":
		if err = want(0, 0); err != nil {
			return
		}
		emit(CODE_CLS)
	case "ret":
		if err = want(0, 0); err != nil {
			return
		}
		emit(CODE_RET)
	case "jp", "call":
		if err = want(1, 2); err != nil {
			return
		}
		class := OP_JP
		if mnemonic == "call" {
			class = OP_CALL
		}
		target := args[0]
		if len(args) == 2 {
			reg, ok := registerOf(args[0])
			if mnemonic != "jp" || !ok || reg != 0 {
				err = ErrRegisterInvalid
				return
			}
			class = OP_JP_V0
			target = args[1]
		}
		var nnn uint16
		nnn, label, err = asm.addressOf(target)
		if err != nil {
			return
		}
		emit(MakeCodeNNN(class, nnn))
	case "se", "sne":
		if err = want(2, 2); err != nil {
			return
		}
		vx, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		vy, ok := registerOf(args[1])
		if ok {
			class := OP_SE_REG
			if mnemonic == "sne" {
				class = OP_SNE_REG
			}
			emit(MakeCodeXYN(class, vx, vy, 0))
			return
		}
		var nn uint8
		nn, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		class := OP_SE_IMM
		if mnemonic == "sne" {
			class = OP_SNE_IMM
		}
		emit(MakeCodeXNN(class, vx, nn))
	case "ld":
		if err = want(2, 2); err != nil {
			return
		}
		dst, src := strings.ToLower(args[0]), strings.ToLower(args[1])
		vx, dstIsReg := registerOf(dst)
		vy, srcIsReg := registerOf(src)
		srcOp, srcIsMisc := miscSrcMap[dst]
		dstOp, dstIsMisc := miscDstMap[src]
		switch {
		case dst == "i":
			var nnn uint16
			nnn, label, err = asm.addressOf(args[1])
			if err != nil {
				return
			}
			emit(MakeCodeNNN(OP_LD_I, nnn))
		case srcIsMisc && srcIsReg:
			emit(MakeCodeXNN(OP_MISC, vy, uint8(srcOp)))
		case dstIsReg && dstIsMisc:
			emit(MakeCodeXNN(OP_MISC, vx, uint8(dstOp)))
		case dstIsReg && srcIsReg:
			emit(MakeCodeXYN(OP_ALU, vx, vy, uint8(ALU_OP_LD)))
		case dstIsReg:
			var nn uint8
			nn, err = asm.byteOf(args[1])
			if err != nil {
				return
			}
			emit(MakeCodeXNN(OP_LD_IMM, vx, nn))
		default:
			err = ErrRegisterInvalid
		}
	case "add":
		if err = want(2, 2); err != nil {
			return
		}
		vy, srcIsReg := registerOf(args[1])
		if strings.ToLower(args[0]) == "i" {
			if !srcIsReg {
				err = ErrRegisterInvalid
				return
			}
			emit(MakeCodeXNN(OP_MISC, vy, uint8(MISC_OP_ADD_I_VX)))
			return
		}
		vx, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		if srcIsReg {
			emit(MakeCodeXYN(OP_ALU, vx, vy, uint8(ALU_OP_ADD)))
			return
		}
		var nn uint8
		nn, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		emit(MakeCodeXNN(OP_ADD_IMM, vx, nn))
	case "or", "and", "xor", "sub", "subn":
		if err = want(2, 2); err != nil {
			return
		}
		vx, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		vy, ok := registerOf(args[1])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		emit(MakeCodeXYN(OP_ALU, vx, vy, uint8(aluMap[mnemonic])))
	case "shr", "shl":
		if err = want(1, 2); err != nil {
			return
		}
		vx, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		var vy uint8
		if len(args) == 2 {
			vy, ok = registerOf(args[1])
			if !ok {
				err = ErrRegisterInvalid
				return
			}
		}
		op := ALU_OP_SHR
		if mnemonic == "shl" {
			op = ALU_OP_SHL
		}
		emit(MakeCodeXYN(OP_ALU, vx, vy, uint8(op)))
	case "rnd":
		if err = want(2, 2); err != nil {
			return
		}
		vx, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		var nn uint8
		nn, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		emit(MakeCodeXNN(OP_RND, vx, nn))
	case "drw":
		if err = want(3, 3); err != nil {
			return
		}
		vx, ok := registerOf(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		vy, ok := registerOf(args[1])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		var n uint32
		n, err = asm.limitOf(args[2], 0xf)
		if err != nil {
			return
		}
		emit(MakeCodeXYN(OP_DRW, vx, vy, uint8(n)))
	case "skp":
		err = vxOnly(OP_KEY, uint8(KEY_OP_SKP))
	case "sknp":
		err = vxOnly(OP_KEY, uint8(KEY_OP_SKNP))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
