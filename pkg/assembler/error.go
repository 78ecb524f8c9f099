package assembler

import (
	"fmt"

	"regvm/pkg/color"
	"regvm/pkg/lexer"
)

// addError records an error at the current token
func (a *Assembler) addError(msg string) {
	a.addErrorAt(msg, a.currentToken.Pos)
}

// addErrorAt records an error with location
func (a *Assembler) addErrorAt(msg string, pos lexer.Position) {
	formatted := color.RedText(msg) + " at " + color.YellowText(fmt.Sprintf("Line: %d, Column %d", pos.Line, pos.Column))
	a.errors = append(a.errors, formatted)
}

// Errors returns the list of assembly errors
func (a *Assembler) Errors() []string {
	return a.errors
}
