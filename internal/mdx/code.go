package mdx

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// codeLT stands in for '<' inside Markdown code while the body is
// tokenized, so component markup quoted in code stays text.
const codeLT = "\uE000"

// markdown reads block structure the way MDX does: without HTML blocks or
// indented code, so components can wrap Markdown and be indented freely.
var markdown = gmparser.NewParser(
	gmparser.WithBlockParsers(
		util.Prioritized(gmparser.NewSetextHeadingParser(), 100),
		util.Prioritized(gmparser.NewThematicBreakParser(), 200),
		util.Prioritized(gmparser.NewListParser(), 300),
		util.Prioritized(gmparser.NewListItemParser(), 400),
		util.Prioritized(gmparser.NewATXHeadingParser(), 600),
		util.Prioritized(gmparser.NewFencedCodeBlockParser(), 700),
		util.Prioritized(gmparser.NewBlockquoteParser(), 800),
		util.Prioritized(gmparser.NewParagraphParser(), 1000),
	),
	gmparser.WithInlineParsers(gmparser.DefaultInlineParsers()...),
	gmparser.WithParagraphTransformers(gmparser.DefaultParagraphTransformers()...),
)

// maskCode returns body with every '<' inside a code span or fenced code
// block replaced by codeLT.
func maskCode(body []byte) []byte {
	if bytes.IndexByte(body, '`') < 0 && bytes.IndexByte(body, '~') < 0 {
		return body
	}

	src := append([]byte(nil), body...)
	inCode := make([]bool, len(src))
	mark := func(s text.Segment) {
		for i := s.Start; i < s.Stop && i < len(inCode); i++ {
			inCode[i] = true
		}
	}

	root := markdown.Parse(text.NewReader(src))
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.CodeSpan:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					mark(t.Segment)
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				mark(lines.At(i))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	var out bytes.Buffer
	out.Grow(len(body))
	for i, b := range body {
		if b == '<' && inCode[i] {
			out.WriteString(codeLT)
			continue
		}
		out.WriteByte(b)
	}
	return out.Bytes()
}
