package sexpr

import (
	"fmt"
	"strings"
)

// Node is a parsed s-expression: an Atom or a List.
type Node interface {
	String() string
	Pos() (line, col int)
}

// Atom is a bare word or a string literal.
type Atom struct {
	Value  string
	Quoted bool
	Line   int
	Col    int
}

// List is a parenthesized sequence of nodes.
type List struct {
	Items []Node
	Line  int
	Col   int
}

func (a Atom) String() string {
	if a.Quoted {
		return fmt.Sprintf("%q", a.Value)
	}
	return a.Value
}

func (a Atom) Pos() (int, int) { return a.Line, a.Col }

func (l List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (l List) Pos() (int, int) { return l.Line, l.Col }

// Head returns the leading bare atom of l, if any.
func (l List) Head() (string, bool) {
	if len(l.Items) == 0 {
		return "", false
	}
	a, ok := l.Items[0].(Atom)
	if !ok || a.Quoted {
		return "", false
	}
	return a.Value, true
}

// Parse converts a sequence of tokens into top-level nodes.
func Parse(tokens []Token) ([]Node, error) {
	p := &parser{tokens: tokens}
	var nodes []Node
	for p.peek().Type != TokenEOF {
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// ParseOne lexes and parses input that must contain exactly one node.
func ParseOne(input string) (Node, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	nodes, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("empty input")
	case 1:
		return nodes[0], nil
	default:
		line, col := nodes[1].Pos()
		return nil, fmt.Errorf("line %d col %d: unexpected trailing expression", line, col)
	}
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) parseNode() (Node, error) {
	tok := p.next()
	switch tok.Type {
	case TokenAtom:
		return Atom{Value: tok.Value, Line: tok.Line, Col: tok.Col}, nil
	case TokenString:
		return Atom{Value: tok.Value, Quoted: true, Line: tok.Line, Col: tok.Col}, nil
	case TokenLParen:
		list := List{Line: tok.Line, Col: tok.Col}
		for {
			switch p.peek().Type {
			case TokenRParen:
				p.next()
				return list, nil
			case TokenEOF:
				return nil, fmt.Errorf("line %d col %d: unclosed '('", tok.Line, tok.Col)
			}
			item, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, item)
		}
	case TokenRParen:
		return nil, fmt.Errorf("line %d col %d: unexpected ')'", tok.Line, tok.Col)
	default:
		return nil, fmt.Errorf("line %d col %d: unexpected token type: %v", tok.Line, tok.Col, tok.Type)
	}
}
