package sexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenType defines the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLParen
	TokenRParen
	TokenAtom
	TokenString
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenLParen:
		return "LParen"
	case TokenRParen:
		return "RParen"
	case TokenAtom:
		return "Atom"
	case TokenString:
		return "String"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

// Lex performs lexical analysis on the input string
// and returns a sequence of tokens terminated by TokenEOF.
// A ';' starts a comment that runs to the end of the line.
func Lex(input string) ([]Token, error) {
	var tokens []Token

	line, col := 1, 1
	i := 0

	advance := func(c byte) {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i++
	}

	for i < len(input) {
		c := input[i]

		switch {
		case isWhitespace(c):
			advance(c)

		case c == ';':
			for i < len(input) && input[i] != '\n' {
				advance(input[i])
			}

		case c == '(':
			tokens = append(tokens, Token{Type: TokenLParen, Value: "(", Line: line, Col: col})
			advance(c)

		case c == ')':
			tokens = append(tokens, Token{Type: TokenRParen, Value: ")", Line: line, Col: col})
			advance(c)

		case c == '"':
			startLine, startCol := line, col
			var raw strings.Builder
			raw.WriteByte(c)
			advance(c)
			closed := false
			for i < len(input) {
				ch := input[i]
				raw.WriteByte(ch)
				if ch == '\\' {
					if i+1 >= len(input) {
						return nil, fmt.Errorf("line %d col %d: '\\' escape is at the end of input", line, col)
					}
					advance(ch)
					raw.WriteByte(input[i])
					advance(input[i])
					continue
				}
				advance(ch)
				if ch == '"' {
					closed = true
					break
				}
			}
			if !closed {
				return nil, fmt.Errorf("line %d col %d: string literal is not terminated", startLine, startCol)
			}
			value, err := strconv.Unquote(raw.String())
			if err != nil {
				return nil, fmt.Errorf("line %d col %d: invalid string literal: %v", startLine, startCol, err)
			}
			tokens = append(tokens, Token{Type: TokenString, Value: value, Line: startLine, Col: startCol})

		default:
			startCol := col
			var atom strings.Builder
			for i < len(input) && !isDelimiter(input[i]) {
				atom.WriteByte(input[i])
				advance(input[i])
			}
			tokens = append(tokens, Token{Type: TokenAtom, Value: atom.String(), Line: line, Col: startCol})
		}
	}

	tokens = append(tokens, Token{Type: TokenEOF, Line: line, Col: col})
	return tokens, nil
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelimiter(c byte) bool {
	return isWhitespace(c) || c == '(' || c == ')' || c == '"' || c == ';'
}
