package dsl

import (
	"fmt"
	"strings"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

// TokenKind is the tag of a scanned token.
type TokenKind int

const (
	TokenNode      TokenKind = iota // [..] {..} (..) [[..]]
	TokenArrow                      // -> or -->
	TokenLabel                      // "quoted"
	TokenDirective                  // @name value
	TokenNewline                    // \n
)

// String returns a human-readable name for the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenNode:
		return "NODE"
	case TokenArrow:
		return "ARROW"
	case TokenLabel:
		return "LABEL"
	case TokenDirective:
		return "DIRECTIVE"
	case TokenNewline:
		return "NEWLINE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// Token is a single scanned unit. Shape is set for node tokens, Dashed for
// arrow tokens. Line and Col locate the first character of the token and
// are informational only: the builder relies on token order alone.
type Token struct {
	Kind   TokenKind
	Value  string
	Shape  flowchart.ShapeKind
	Dashed bool
	Line   int
	Col    int
}

// Directive splits a directive token value into its name and value parts.
func (t Token) Directive() (name, value string) {
	name, value, _ = strings.Cut(t.Value, " ")
	return name, value
}

func (t Token) String() string {
	switch t.Kind {
	case TokenNode:
		return fmt.Sprintf("%s(%s %q)", t.Kind, t.Shape, t.Value)
	case TokenArrow:
		if t.Dashed {
			return "ARROW(-->)"
		}
		return "ARROW(->)"
	case TokenNewline:
		return t.Kind.String()
	default:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Value)
	}
}
