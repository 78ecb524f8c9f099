package lexer

import (
	"regexp"
)

// Token regex patterns
var tokenRegexes = map[TokenType]*regexp.Regexp{
	NEWLINE:   regexp.MustCompile(`^\n`),
	STRING:    regexp.MustCompile(`^"([^"\\\n]|\\.)*"`),
	NUM:       regexp.MustCompile(`^-?(0[xX][0-9a-fA-F]+|[0-9]+)\b`),
	REG:       regexp.MustCompile(`^r[0-9]+\b`),
	CONST:     regexp.MustCompile(`^c[0-9]+\b`),
	DIRECTIVE: regexp.MustCompile(`^\.[a-z]+\b`),
	IDENT:     regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`),
	COMMA:     regexp.MustCompile(`^,`),
	COLON:     regexp.MustCompile(`^:`),
	LBRACE:    regexp.MustCompile(`^\{`),
	RBRACE:    regexp.MustCompile(`^\}`),
}

var (
	whitespaceRegex = regexp.MustCompile(`^[ \t\r]+`)
	commentRegex    = regexp.MustCompile(`^(;|//)[^\n]*`)
)

// Token precedence order for matching (specific patterns first)
var tokenPrecedenceOrder = []TokenType{
	NEWLINE, STRING, NUM, REG, CONST, DIRECTIVE, IDENT,
	COMMA, COLON, LBRACE, RBRACE,
}

// MatchToken matches the token at the start of the string.
// Whitespace and comments match as EOF with a non-empty lexeme.
func MatchToken(s string) (TokenType, string, bool) {
	if s == "" {
		return EOF, "", false
	} else if match := whitespaceRegex.FindString(s); match != "" {
		return EOF, match, true
	} else if match := commentRegex.FindString(s); match != "" {
		return EOF, match, true
	}

	for _, tokenType := range tokenPrecedenceOrder {
		if match := tokenRegexes[tokenType].FindString(s); match != "" {
			return tokenType, match, true
		}
	}

	return ILLEGAL, string(s[0]), false
}
