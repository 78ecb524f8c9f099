package lexer

import (
	"fmt"
)

type TokenType int

type Token struct {
	Type    TokenType // Type of the token
	Lexeme  string    // Actual string from source code
	Literal string    // Literal value (if applicable), empty string if not
	Pos     Position  // Position in source code
}

// NewToken creates a new Token instance
func NewToken(tokenType TokenType, lexeme string, literal string, Pos Position) Token {
	return Token{
		Type:    tokenType,
		Lexeme:  lexeme,
		Literal: literal,
		Pos:     Pos,
	}
}

const (
	EOF TokenType = iota // End of file
	ILLEGAL

	NEWLINE   // statement separator
	IDENT     // mnemonic or label
	DIRECTIVE // .word
	REG       // r0
	CONST     // c0 (constant-pool index)
	NUM       // 42, -1, 0x15
	STRING    // "text"

	COMMA  // ,
	COLON  // :
	LBRACE // {
	RBRACE // }
)

var tokenNames = map[TokenType]string{
	EOF:       "EOF",
	ILLEGAL:   "ILLEGAL",
	NEWLINE:   "newline",
	IDENT:     "identifier",
	DIRECTIVE: "directive",
	REG:       "register",
	CONST:     "constant",
	NUM:       "number",
	STRING:    "string",
	COMMA:     ",",
	COLON:     ":",
	LBRACE:    "{",
	RBRACE:    "}",
}

// String returns a readable name of the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}

	return fmt.Sprintf("TokenType(%d)", int(t))
}

// String returns a representation of the token for error messages
func (t Token) String() string {
	if t.Lexeme == "" || t.Type == NEWLINE {
		return t.Type.String()
	}

	return fmt.Sprintf("%s %q", t.Type, t.Lexeme)
}
