package bytecode

import "fmt"

type Opcode int32

// List of opcodes understood by the interpreter
const (
	OpNop      Opcode = 0x0
	OpNopAlt   Opcode = 0x1
	OpPush     Opcode = 0x2
	OpJmp      Opcode = 0x3
	OpJmpEq    Opcode = 0x4
	OpAdd      Opcode = 0x5
	OpSub      Opcode = 0x6
	OpMul      Opcode = 0x7
	OpDiv      Opcode = 0x8
	OpFunc     Opcode = 0x9
	OpPrint    Opcode = 0x10
	OpCall     Opcode = 0x11
	OpConstant Opcode = 0x15
)

// Print modes for OpPrint
const (
	PrintRegister int32 = 0x0
	PrintConstant int32 = 0x1
)

var mnemonics = map[Opcode]string{
	OpNop:      "nop",
	OpNopAlt:   "nop",
	OpPush:     "push",
	OpJmp:      "jmp",
	OpJmpEq:    "jmpeq",
	OpAdd:      "add",
	OpSub:      "sub",
	OpMul:      "mul",
	OpDiv:      "div",
	OpFunc:     "func",
	OpPrint:    "print",
	OpCall:     "call",
	OpConstant: "const",
}

// operands holds the number of fixed operand words following each opcode.
// Block opcodes (OpFunc, OpConstant) report only their fixed prefix.
var operands = map[Opcode]int{
	OpNop:      0,
	OpNopAlt:   0,
	OpPush:     2,
	OpJmp:      1,
	OpJmpEq:    3,
	OpAdd:      2,
	OpSub:      2,
	OpMul:      2,
	OpDiv:      2,
	OpFunc:     1,
	OpPrint:    2,
	OpCall:     1,
	OpConstant: 0,
}

// String returns the mnemonic of the opcode, or its hex value if unknown
func (o Opcode) String() string {
	if m, ok := mnemonics[o]; ok {
		return m
	}

	return fmt.Sprintf("0x%x", int32(o))
}

// Valid reports whether the opcode is part of the instruction set
func (o Opcode) Valid() bool {
	_, ok := mnemonics[o]
	return ok
}

// Operands returns the number of fixed operand words of the opcode.
// Unknown opcodes have none.
func (o Opcode) Operands() int {
	return operands[o]
}

// IsBlock reports whether the opcode introduces a delimited block
func (o Opcode) IsBlock() bool {
	return o == OpFunc || o == OpConstant
}

// IsArithmetic reports whether the opcode is one of add, sub, mul, div
func (o Opcode) IsArithmetic() bool {
	switch o {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	}

	return false
}

// DecodeText turns a run of character words into a string.
// Each word contributes its low 8 bits as one Latin-1 character.
func DecodeText(words []int32) string {
	runes := make([]rune, len(words))
	for i, w := range words {
		runes[i] = rune(uint8(w))
	}

	return string(runes)
}

// EncodeText is the inverse of DecodeText for Latin-1 input.
// Characters outside Latin-1 are truncated to their low 8 bits.
func EncodeText(s string) []int32 {
	words := make([]int32, 0, len(s))
	for _, r := range s {
		words = append(words, int32(uint8(r)))
	}

	return words
}
