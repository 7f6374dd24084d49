// Package markdown finds flowchart DSL sources embedded in Markdown fenced
// code blocks.
package markdown

import (
	"bytes"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Languages are the fence info strings recognised as DSL blocks.
var Languages = []string{"flowchart", "flowdsl"}

// Block is one DSL fenced code block.
type Block struct {
	// Index is the position of the block among DSL blocks, starting at 0.
	Index int `json:"index"`
	// Line is the 1-based line of the opening fence.
	Line   int    `json:"line"`
	Source string `json:"source"`

	langStart, langStop       int
	contentStart, contentStop int
}

// ExtractBlocks returns the DSL blocks of source in document order.
func ExtractBlocks(source []byte) []Block {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []Block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok || fcb.Info == nil {
			return ast.WalkContinue, nil
		}
		lang := string(fcb.Language(source))
		if !isDSLLanguage(lang) {
			return ast.WalkSkipChildren, nil
		}

		info := fcb.Info.Segment
		b := Block{
			Index:     len(blocks),
			Line:      bytes.Count(source[:info.Start], []byte("\n")) + 1,
			langStart: info.Start,
			langStop:  info.Start + len(lang),
		}

		var body strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(source))
		}
		b.Source = body.String()
		if lines.Len() > 0 {
			b.contentStart = lines.At(0).Start
			b.contentStop = lines.At(lines.Len() - 1).Stop
		} else {
			b.contentStart, b.contentStop = -1, -1
		}

		blocks = append(blocks, b)
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// Rewrite replaces every DSL block of source with a block of language lang
// whose body is produced by render. Everything outside DSL blocks is kept
// byte for byte. Empty DSL blocks only have their language replaced.
// Rendered bodies are written without container prefixes, so blocks nested
// in blockquotes or list items are only rewritten correctly for one line.
func Rewrite(source []byte, lang string, render func(Block) string) []byte {
	blocks := ExtractBlocks(source)
	if len(blocks) == 0 {
		return slices.Clone(source)
	}

	var out bytes.Buffer
	out.Grow(len(source))
	last := 0
	for _, b := range blocks {
		out.Write(source[last:b.langStart])
		out.WriteString(lang)
		last = b.langStop

		if b.contentStart < 0 {
			continue
		}
		out.Write(source[last:b.contentStart])
		body := render(b)
		if body != "" && !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		out.WriteString(body)
		last = b.contentStop
	}
	out.Write(source[last:])
	return out.Bytes()
}

func isDSLLanguage(lang string) bool {
	for _, l := range Languages {
		if strings.EqualFold(lang, l) {
			return true
		}
	}
	return false
}
