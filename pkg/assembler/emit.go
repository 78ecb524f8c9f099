package assembler

import (
	"fmt"
	"slices"

	"regvm/pkg/bytecode"
	"regvm/pkg/lexer"
)

type stmtKind int

const (
	kindOp stmtKind = iota
	kindLabel
	kindWords
	kindConstant
	kindFunction
)

type operand struct {
	value int32
	label string // resolved against the enclosing scope when set
	pos   lexer.Position
}

type statement struct {
	kind  stmtKind
	op    bytecode.Opcode
	args  []operand
	label string
	text  string
	body  *scope
	pos   lexer.Position
}

// scope is the top-level program or one function body
type scope struct {
	stmts []statement
}

// size is the number of words st occupies
func (st statement) size() int {
	switch st.kind {
	case kindLabel:
		return 0
	case kindWords:
		return len(st.args)
	case kindConstant:
		return 2 + len(bytecode.EncodeText(st.text))
	case kindFunction:
		return 3 + st.body.size()
	}

	return 1 + st.op.Operands()
}

func (s *scope) size() int {
	n := 0
	for _, st := range s.stmts {
		n += st.size()
	}

	return n
}

// emit lays out s from address 0, resolving its labels first
func (a *Assembler) emit(s *scope) []int32 {
	labels := map[string]int32{}
	addr := 0
	for _, st := range s.stmts {
		if st.kind == kindLabel {
			if _, dup := labels[st.label]; dup {
				a.addErrorAt(fmt.Sprintf("Label %s already defined", st.label), st.pos)
			}
			labels[st.label] = int32(addr)
		}
		addr += st.size()
	}

	words := make([]int32, 0, addr)
	for _, st := range s.stmts {
		switch st.kind {
		case kindLabel:

		case kindWords:
			for _, arg := range st.args {
				words = append(words, arg.value)
			}

		case kindConstant:
			text := bytecode.EncodeText(st.text)
			if slices.Contains(text, int32(bytecode.OpConstant)) {
				a.addErrorAt("Constant text contains the block delimiter 0x15", st.pos)
			}
			words = append(words, int32(bytecode.OpConstant))
			words = append(words, text...)
			words = append(words, int32(bytecode.OpConstant))

		case kindFunction:
			body := a.emit(st.body)
			if slices.Contains(body, int32(bytecode.OpFunc)) {
				a.addErrorAt("Function body contains the block delimiter 0x9", st.pos)
			}
			words = append(words, int32(bytecode.OpFunc), st.args[0].value)
			words = append(words, body...)
			words = append(words, int32(bytecode.OpFunc))

		default:
			words = append(words, int32(st.op))
			for _, arg := range st.args {
				words = append(words, a.resolve(arg, labels))
			}
		}
	}

	return words
}

func (a *Assembler) resolve(arg operand, labels map[string]int32) int32 {
	if arg.label == "" {
		return arg.value
	}

	addr, ok := labels[arg.label]
	if !ok {
		a.addErrorAt(fmt.Sprintf("Undefined label %s", arg.label), arg.pos)
	}

	return addr
}
