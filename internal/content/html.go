package content

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// parseHTML builds a content tree from an HTML document. Heading tags open
// tree levels; paragraph-like elements accumulate as text on the nearest
// open section. Script, style and chrome elements are skipped.
func parseHTML(r io.Reader, name string) (*Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	root := &Node{Title: titleFromName(name)}
	if title := findTitle(doc); title != "" {
		root.Title = title
	}

	type stackEntry struct {
		node  *Node
		level int
	}
	stack := []stackEntry{{node: root, level: 0}}

	var pending strings.Builder
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

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				flush()
				section := &Node{Title: textContent(n)}
				for len(stack) > 1 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				parent := stack[len(stack)-1].node
				parent.Children = append(parent.Children, section)
				stack = append(stack, stackEntry{node: section, level: level})
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "li", "td", "pre", "blockquote":
				if t := textContent(n); t != "" {
					if pending.Len() > 0 {
						pending.WriteString("\n\n")
					}
					pending.WriteString(t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	flush()

	if len(root.Children) == 0 {
		if root.Text == "" {
			return nil, errEmptyDocument
		}
		root.Children = []*Node{{Text: root.Text}}
		root.Text = ""
	} else if root.Text != "" {
		root.Children = append([]*Node{{Text: root.Text}}, root.Children...)
		root.Text = ""
	}

	return root, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
