package content

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseMarkdown builds a content tree from Markdown using the goldmark AST.
// Headings open tree levels; other blocks accumulate as text on the nearest
// open section.
func parseMarkdown(r io.Reader, name string) (*Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	root := &Node{Title: titleFromName(name)}

	type stackEntry struct {
		node  *Node
		level int
	}
	// Root is level 0 so every heading nests under it.
	stack := []stackEntry{{node: root, level: 0}}

	var pending bytes.Buffer
	flush := func() {
		t := strings.TrimSpace(pending.String())
		if t != "" {
			top := stack[len(stack)-1].node
			if top.Text != "" {
				top.Text += "\n\n" + t
			} else {
				top.Text = t
			}
		}
		pending.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			flush()
			section := &Node{Title: string(node.Text(src))}

			// Pop until the parent has a strictly lower level.
			for len(stack) > 1 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, section)
			stack = append(stack, stackEntry{node: section, level: node.Level})

		default:
			if t := blockText(n, src); t != "" {
				if pending.Len() > 0 {
					pending.WriteString("\n\n")
				}
				pending.WriteString(t)
			}
		}
	}
	flush()

	// A document without headings still yields one leaf.
	if len(root.Children) == 0 {
		if root.Text == "" {
			return nil, errEmptyDocument
		}
		root.Children = []*Node{{Text: root.Text}}
		root.Text = ""
	} else if root.Text != "" {
		// Preamble before the first heading becomes a leading leaf.
		root.Children = append([]*Node{{Text: root.Text}}, root.Children...)
		root.Text = ""
	}

	return root, nil
}

// blockText extracts the text content of a goldmark block node, including
// nested inlines.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	// Leaf blocks carry their raw source lines; container blocks (lists,
	// quotes) only have children.
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			// Segment.Value has a pointer receiver; At returns a value.
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(t)
		}
	}
	return strings.TrimSpace(buf.String())
}
