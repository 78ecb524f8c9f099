// Package assembler turns the textual instruction listing into a word image.
//
// One statement per line:
//
//	const "hello"          ; constant block
//	push 7, r0
//	loop:                  ; label, resolved to its word address
//	jmpeq done, r0, 0
//	sub r0, r1
//	jmp loop
//	done:
//	print reg r0           ; or: print const r0
//	func c0 {              ; function block named by constant 0
//	    print reg r1
//	}
//	call c0
//	.word 0x42, 7          ; raw words
//
// Labels inside a function body resolve relative to the body, which is the
// callee frame's memory.
package assembler

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"regvm/pkg/bytecode"
	"regvm/pkg/lexer"
)

var ErrAssembly = errors.New("assembly failed")

type Assembler struct {
	lexer        *lexer.Lexer
	currentToken lexer.Token
	errors       []string
	depth        int // function nesting while parsing
}

// NewAssembler creates an assembler over src
func NewAssembler(src string) *Assembler {
	a := &Assembler{
		lexer:  lexer.NewLexer(src),
		errors: []string{},
	}

	// Initialize current token
	a.nextToken()

	return a
}

// Assemble parses the whole input and emits its words. The result is only
// meaningful when Errors is empty.
func (a *Assembler) Assemble() []int32 {
	program := a.parseScope()
	return a.emit(program)
}

// Assemble is a convenience wrapper reporting the first error
func Assemble(src string) ([]int32, error) {
	a := NewAssembler(src)
	words := a.Assemble()

	if errs := a.Errors(); len(errs) > 0 {
		if len(errs) == 1 {
			return nil, fmt.Errorf("%w: %s", ErrAssembly, errs[0])
		}
		return nil, fmt.Errorf("%w: %s (and %d more)", ErrAssembly, errs[0], len(errs)-1)
	}

	return words, nil
}

func (a *Assembler) nextToken() {
	a.currentToken = a.lexer.NextToken()
}

// expect consumes the current token when it has type t
func (a *Assembler) expect(t lexer.TokenType) (lexer.Token, bool) {
	tok := a.currentToken
	if tok.Type != t {
		a.addError(fmt.Sprintf("Expected %s, found %s", t, tok))
		return tok, false
	}

	a.nextToken()
	return tok, true
}

// parseScope reads statements until EOF or, inside a function, the
// closing brace
func (a *Assembler) parseScope() *scope {
	s := &scope{}

	for {
		switch a.currentToken.Type {
		case lexer.NEWLINE:
			a.nextToken()
			continue

		case lexer.EOF:
			if a.depth > 0 {
				a.addError("Missing closing brace")
			}
			return s

		case lexer.RBRACE:
			if a.depth > 0 {
				a.nextToken()
				return s
			}
			a.addError("Unexpected closing brace")
			a.nextToken()
			continue
		}

		st, ok := a.parseStatement()
		if !ok {
			a.recover()
			continue
		}
		s.stmts = append(s.stmts, st)

		// a statement ends at a line break; a closing brace may follow
		// on the same line
		switch a.currentToken.Type {
		case lexer.NEWLINE, lexer.EOF, lexer.RBRACE:
		default:
			if st.kind != kindLabel {
				a.addError(fmt.Sprintf("Unexpected %s after statement", a.currentToken))
				a.recover()
			}
		}
	}
}

// recover skips to the end of the current line
func (a *Assembler) recover() {
	for a.currentToken.Type != lexer.NEWLINE && a.currentToken.Type != lexer.EOF {
		a.nextToken()
	}
}

func (a *Assembler) parseStatement() (statement, bool) {
	tok := a.currentToken
	st := statement{pos: tok.Pos}

	switch tok.Type {
	case lexer.DIRECTIVE:
		if tok.Lexeme != ".word" {
			a.addError(fmt.Sprintf("Unknown directive %s", tok.Lexeme))
			return st, false
		}
		a.nextToken()
		st.kind = kindWords
		for {
			n, ok := a.number()
			if !ok {
				return st, false
			}
			st.args = append(st.args, operand{value: n})
			if a.currentToken.Type != lexer.COMMA {
				return st, true
			}
			a.nextToken()
		}

	case lexer.IDENT:
		if a.lexer.Peek().Type == lexer.COLON {
			a.nextToken()
			a.nextToken()
			st.kind = kindLabel
			st.label = tok.Lexeme
			return st, true
		}
		a.nextToken()
		return a.parseInstruction(tok, st)
	}

	a.addError(fmt.Sprintf("Expected instruction, found %s", tok))
	return st, false
}

func (a *Assembler) parseInstruction(mnemonic lexer.Token, st statement) (statement, bool) {
	st.kind = kindOp

	var ok bool
	switch mnemonic.Lexeme {
	case "nop":
		st.op = bytecode.OpNop
		return st, true

	case "push":
		st.op = bytecode.OpPush
		return st, a.operands(&st, a.numberOperand, a.comma, a.registerOperand)

	case "jmp":
		st.op = bytecode.OpJmp
		return st, a.operands(&st, a.targetOperand)

	case "jmpeq":
		st.op = bytecode.OpJmpEq
		return st, a.operands(&st, a.targetOperand, a.comma, a.registerOperand, a.comma, a.numberOperand)

	case "add", "sub", "mul", "div":
		st.op = arithmetic[mnemonic.Lexeme]
		return st, a.operands(&st, a.registerOperand, a.comma, a.registerOperand)

	case "print":
		st.op = bytecode.OpPrint
		if ok = a.operands(&st, a.printMode); !ok {
			return st, false
		}
		// the listing separates mode and register by a space
		if a.currentToken.Type == lexer.COMMA {
			a.nextToken()
		}
		return st, a.operands(&st, a.registerOperand)

	case "call":
		st.op = bytecode.OpCall
		return st, a.operands(&st, a.constantOperand)

	case "const":
		tok, ok := a.expect(lexer.STRING)
		if !ok {
			return st, false
		}
		st.kind = kindConstant
		text, bad := latin1(tok.Literal)
		if bad != 0 {
			a.addErrorAt(fmt.Sprintf("Character %q is outside Latin-1", bad), tok.Pos)
			return st, false
		}
		st.text = text
		return st, true

	case "func":
		if a.depth > 0 {
			a.addError("Nested function blocks are not supported")
			return st, false
		}
		st.kind = kindFunction
		if ok = a.operands(&st, a.constantOperand); !ok {
			return st, false
		}
		if _, ok = a.expect(lexer.LBRACE); !ok {
			return st, false
		}
		a.depth++
		st.body = a.parseScope()
		a.depth--
		return st, true
	}

	a.addErrorAt(fmt.Sprintf("Unknown instruction %s", mnemonic.Lexeme), mnemonic.Pos)
	return st, false
}

var arithmetic = map[string]bytecode.Opcode{
	"add": bytecode.OpAdd,
	"sub": bytecode.OpSub,
	"mul": bytecode.OpMul,
	"div": bytecode.OpDiv,
}

// operands runs the operand parsers in order, stopping at the first failure
func (a *Assembler) operands(st *statement, parsers ...func(*statement) bool) bool {
	for _, parse := range parsers {
		if !parse(st) {
			return false
		}
	}

	return true
}

func (a *Assembler) comma(*statement) bool {
	_, ok := a.expect(lexer.COMMA)
	return ok
}

func (a *Assembler) numberOperand(st *statement) bool {
	n, ok := a.number()
	st.args = append(st.args, operand{value: n})
	return ok
}

// registerOperand accepts r<N>
func (a *Assembler) registerOperand(st *statement) bool {
	tok, ok := a.expect(lexer.REG)
	if !ok {
		return false
	}

	n, ok := a.parseInt(tok.Lexeme[1:], tok.Pos)
	st.args = append(st.args, operand{value: n})
	return ok
}

// constantOperand accepts c<N> or a plain number
func (a *Assembler) constantOperand(st *statement) bool {
	tok := a.currentToken
	if tok.Type == lexer.NUM {
		return a.numberOperand(st)
	}

	if _, ok := a.expect(lexer.CONST); !ok {
		return false
	}

	n, ok := a.parseInt(tok.Lexeme[1:], tok.Pos)
	st.args = append(st.args, operand{value: n})
	return ok
}

// targetOperand accepts an absolute address or a label
func (a *Assembler) targetOperand(st *statement) bool {
	tok := a.currentToken
	if tok.Type == lexer.IDENT {
		a.nextToken()
		st.args = append(st.args, operand{label: tok.Lexeme, pos: tok.Pos})
		return true
	}

	return a.numberOperand(st)
}

// printMode accepts reg, const or a numeric mode
func (a *Assembler) printMode(st *statement) bool {
	tok := a.currentToken
	if tok.Type == lexer.IDENT {
		a.nextToken()
		switch tok.Lexeme {
		case "reg":
			st.args = append(st.args, operand{value: bytecode.PrintRegister})
			return true
		case "const":
			st.args = append(st.args, operand{value: bytecode.PrintConstant})
			return true
		}
		a.addErrorAt(fmt.Sprintf("Unknown print mode %s", tok.Lexeme), tok.Pos)
		return false
	}

	return a.numberOperand(st)
}

func (a *Assembler) number() (int32, bool) {
	tok, ok := a.expect(lexer.NUM)
	if !ok {
		return 0, false
	}

	return a.parseInt(tok.Lexeme, tok.Pos)
}

func (a *Assembler) parseInt(s string, pos lexer.Position) (int32, bool) {
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		a.addErrorAt(fmt.Sprintf("Number %s does not fit in a word", s), pos)
		return 0, false
	}

	return int32(n), true
}

// latin1 maps s onto Latin-1 characters. Bytes that are not part of a valid
// UTF-8 sequence, such as those written with \x escapes, stand for
// themselves. The first character above 0xff is returned as bad.
func latin1(s string) (text string, bad rune) {
	runes := make([]rune, 0, len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			r = rune(s[0])
		} else if r > 0xff {
			return "", r
		}
		runes = append(runes, r)
		s = s[size:]
	}

	return string(runes), 0
}
