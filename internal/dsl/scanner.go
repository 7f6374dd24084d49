package dsl

import (
	"strings"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

// scanner walks the input one rune at a time and accumulates tokens.
type scanner struct {
	input  []rune
	pos    int
	line   int
	col    int
	tokens []Token
}

// Tokenize converts DSL text into its token sequence. It never fails:
// characters that start no token are skipped.
func Tokenize(input string) []Token {
	s := &scanner{
		input: []rune(input),
		line:  1,
		col:   1,
	}
	s.scan()
	return s.tokens
}

// scan tries each rule in priority order at the current position.
func (s *scanner) scan() {
	for s.pos < len(s.input) {
		ch := s.input[s.pos]
		line, col := s.line, s.col

		switch {
		case ch == ' ' || ch == '\t':
			s.advance()

		case ch == '\n':
			s.emit(Token{Kind: TokenNewline, Value: "\n"}, line, col)
			s.advance()

		case ch == '#':
			s.skipComment()

		case ch == '@':
			s.scanDirective(line, col)

		case ch == '[' && s.peek(1) == '[':
			s.scanDatabase(line, col)

		case ch == '[':
			s.scanNested('[', ']', flowchart.ShapeRectangle, line, col)

		case ch == '{':
			s.scanNested('{', '}', flowchart.ShapeDiamond, line, col)

		case ch == '(':
			s.scanNested('(', ')', flowchart.ShapeEllipse, line, col)

		case ch == '-' && s.peek(1) == '-' && s.peek(2) == '>':
			s.emit(Token{Kind: TokenArrow, Value: "-->", Dashed: true}, line, col)
			s.skip(3)

		case ch == '-' && s.peek(1) == '>':
			s.emit(Token{Kind: TokenArrow, Value: "->"}, line, col)
			s.skip(2)

		case ch == '"':
			s.scanQuoted(line, col)

		default:
			s.advance()
		}
	}
}

// peek returns the rune n positions ahead, or 0 past the end of input.
func (s *scanner) peek(n int) rune {
	if s.pos+n < len(s.input) {
		return s.input[s.pos+n]
	}
	return 0
}

// advance moves the position forward by one rune, tracking line and column.
func (s *scanner) advance() {
	if s.pos >= len(s.input) {
		return
	}
	if s.input[s.pos] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.pos++
}

func (s *scanner) skip(n int) {
	for i := 0; i < n; i++ {
		s.advance()
	}
}

func (s *scanner) emit(tok Token, line, col int) {
	tok.Line, tok.Col = line, col
	s.tokens = append(s.tokens, tok)
}

// skipComment discards everything up to, not including, the next newline.
func (s *scanner) skipComment() {
	for s.pos < len(s.input) && s.input[s.pos] != '\n' {
		s.advance()
	}
}

// scanDirective reads "@name value". The name is a run of ASCII letters and
// digits; the value runs to the next newline or comment and is trimmed.
func (s *scanner) scanDirective(line, col int) {
	s.advance() // @

	start := s.pos
	for s.pos < len(s.input) && isASCIIAlnum(s.input[s.pos]) {
		s.advance()
	}
	name := string(s.input[start:s.pos])

	for s.pos < len(s.input) && (s.input[s.pos] == ' ' || s.input[s.pos] == '\t') {
		s.advance()
	}

	start = s.pos
	for s.pos < len(s.input) && s.input[s.pos] != '\n' && s.input[s.pos] != '#' {
		s.advance()
	}
	value := strings.TrimSpace(string(s.input[start:s.pos]))

	s.emit(Token{Kind: TokenDirective, Value: name + " " + value}, line, col)
}

// scanDatabase reads "[[label]]". The label ends at the first "]]" with no
// nesting, so a label cannot itself contain "]]".
func (s *scanner) scanDatabase(line, col int) {
	s.skip(2)

	start := s.pos
	for s.pos < len(s.input) && !(s.input[s.pos] == ']' && s.peek(1) == ']') {
		s.advance()
	}
	label := string(s.input[start:s.pos])
	s.skip(2)

	s.emit(Token{Kind: TokenNode, Value: strings.TrimSpace(label), Shape: flowchart.ShapeDatabase}, line, col)
}

// scanNested reads a node whose label may contain balanced open/close pairs.
// An unterminated node consumes the rest of the input as its label.
func (s *scanner) scanNested(opening, closing rune, shape flowchart.ShapeKind, line, col int) {
	s.advance() // opening delimiter

	var sb strings.Builder
	depth := 1
	for s.pos < len(s.input) && depth > 0 {
		ch := s.input[s.pos]
		switch ch {
		case opening:
			depth++
		case closing:
			depth--
		}
		if depth > 0 {
			sb.WriteRune(ch)
		}
		s.advance()
	}

	s.emit(Token{Kind: TokenNode, Value: strings.TrimSpace(sb.String()), Shape: shape}, line, col)
}

// scanQuoted reads a double-quoted edge label. A backslash takes the next
// rune literally; an unterminated label runs to the end of input.
func (s *scanner) scanQuoted(line, col int) {
	s.advance() // opening quote

	var sb strings.Builder
	for s.pos < len(s.input) && s.input[s.pos] != '"' {
		if s.input[s.pos] == '\\' && s.pos+1 < len(s.input) {
			s.advance()
		}
		sb.WriteRune(s.input[s.pos])
		s.advance()
	}
	s.advance() // closing quote, if any

	s.emit(Token{Kind: TokenLabel, Value: sb.String()}, line, col)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
