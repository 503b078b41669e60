package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// ExtractText reads a source file and returns its plain text content.
// fileType selects the extraction strategy: "text" returns the raw bytes,
// "markdown" strips markup via AST parsing so headings and emphasis do not
// leak into chunk content.
func ExtractText(path, fileType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}

	switch fileType {
	case "text":
		return string(data), nil
	case "markdown":
		return extractMarkdown(data)
	default:
		return "", fmt.Errorf("unsupported file type %q", fileType)
	}
}

// extractMarkdown parses markdown content and flattens it to plain text,
// one paragraph-ish block per AST block node.
func extractMarkdown(content []byte) (string, error) {
	parser := goldmark.New(
		goldmark.WithExtensions(extension.Table),
	)
	doc := parser.Parser().Parse(text.NewReader(content))

	var blocks []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem, *ast.CodeBlock, *ast.FencedCodeBlock, *ast.Blockquote:
			block := extractTextFromNode(n, content)
			if block != "" {
				blocks = append(blocks, block)
			}
			// Children already covered by extractTextFromNode.
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk markdown AST: %w", err)
	}

	return strings.Join(blocks, "\n\n"), nil
}

// extractTextFromNode extracts all text content from a node and its children.
func extractTextFromNode(node ast.Node, content []byte) string {
	var sb strings.Builder

	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(content))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(content))
			}
		}

		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(sb.String())
}
