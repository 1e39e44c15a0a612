package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownText reduces markdown to plain text, one block per line.
type MarkdownText struct {
	parser goldmark.Markdown
}

// NewMarkdownText creates a markdown reducer with GFM tables enabled.
func NewMarkdownText() *MarkdownText {
	return &MarkdownText{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// PlainText parses content and returns its text without markup. Headings,
// paragraphs and list items become lines, code blocks keep their lines, and
// table rows are rendered as "a | b | c".
func (m *MarkdownText) PlainText(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	doc := m.parser.Parser().Parse(text.NewReader(content))

	var lines []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			if s := inlineText(node, content); s != "" {
				lines = append(lines, s)
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			l := node.Lines()
			for i := 0; i < l.Len(); i++ {
				seg := l.At(i)
				lines = append(lines, strings.TrimRight(string(seg.Value(content)), "\r\n"))
			}
			return ast.WalkSkipChildren, nil
		case *extast.TableHeader, *extast.TableRow:
			lines = append(lines, tableRowText(node, content))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(lines, "\n")
}

// inlineText collects the text of a node's inline descendants.
func inlineText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, inlineText(c, content))
	}
	return strings.Join(cells, " | ")
}
