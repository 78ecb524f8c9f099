package bytecode

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"regvm/pkg/color"
)

// Disassemble writes a listing of the image, one instruction per line.
// Trailing zero words collapse into a single summary line.
func Disassemble(w io.Writer, image []int32) error {
	last := len(image) - 1
	for last >= 0 && image[last] == 0 {
		last--
	}
	code := image[:last+1]
	ix := BuildIndex(code)

	pc := 0
	for pc < len(code) {
		op := Opcode(code[pc])

		var line string
		next := pc + 1 + op.Operands()
		if r, ok := ix.At(pc); ok {
			line = formatRegion(r)
			next = r.End
		} else {
			line = formatInstruction(op, image, pc)
		}

		if _, err := fmt.Fprintf(w, "%s  %s\n", address(pc), line); err != nil {
			return err
		}
		pc = next
	}

	if pad := len(image) - pc; pad > 0 {
		if _, err := fmt.Fprintf(w, "%s  ... %d nop\n", address(pc), pad); err != nil {
			return err
		}
	}

	return nil
}

func address(pc int) string {
	return color.GrayText(fmt.Sprintf("%04x", pc))
}

func formatRegion(r Region) string {
	var b strings.Builder

	switch r.Kind {
	case RegionConstant:
		b.WriteString("const ")
		b.WriteString(strconv.Quote(DecodeText(r.Payload)))
	case RegionFunction:
		fmt.Fprintf(&b, "func c%d {%d words}", r.Name, len(r.Payload))
	}

	if !r.Closed {
		b.WriteString(" ; unterminated")
	}

	return b.String()
}

func formatInstruction(op Opcode, image []int32, pc int) string {
	arg := func(n int) string {
		addr := pc + n
		if addr >= len(image) {
			return "?"
		}
		return strconv.Itoa(int(image[addr]))
	}
	reg := func(n int) string {
		return "r" + arg(n)
	}
	addr := func(n int) string {
		a := pc + n
		if a >= len(image) {
			return "?"
		}
		return fmt.Sprintf("0x%x", image[a])
	}

	switch op {
	case OpNop, OpNopAlt:
		return op.String()
	case OpPush:
		return fmt.Sprintf("push %s, %s", arg(1), reg(2))
	case OpJmp:
		return fmt.Sprintf("jmp %s", addr(1))
	case OpJmpEq:
		return fmt.Sprintf("jmpeq %s, %s, %s", addr(1), reg(2), arg(3))
	case OpAdd, OpSub, OpMul, OpDiv:
		return fmt.Sprintf("%s %s, %s", op, reg(1), reg(2))
	case OpPrint:
		mode := "mode(" + arg(1) + ")"
		if pc+1 < len(image) {
			switch image[pc+1] {
			case PrintRegister:
				mode = "reg"
			case PrintConstant:
				mode = "const"
			}
		}
		return fmt.Sprintf("print %s %s", mode, reg(2))
	case OpCall:
		return fmt.Sprintf("call c%s", arg(1))
	default:
		return fmt.Sprintf(".word 0x%x", int32(op))
	}
}
