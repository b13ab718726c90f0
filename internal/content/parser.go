package content

import (
	"errors"
	"io"
	"path"
	"strings"
)

// defaultExtensions are the file types parsed by default.
var defaultExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".txt":      true,
	".adoc":     true,
}

// Parser turns raw documents into content trees. The zero value is not
// usable; construct with NewParser.
type Parser struct {
	extensions map[string]bool
}

// NewParser creates a Parser. extensions optionally restricts the supported
// file types (e.g. []string{".md", ".txt"}); empty means the defaults.
func NewParser(extensions []string) *Parser {
	extMap := make(map[string]bool, len(defaultExtensions))
	if len(extensions) > 0 {
		for _, ext := range extensions {
			extMap[strings.ToLower(ext)] = true
		}
	} else {
		for k, v := range defaultExtensions {
			extMap[k] = v
		}
	}
	return &Parser{extensions: extMap}
}

// Supported reports whether the parser handles files with the given name.
func (p *Parser) Supported(name string) bool {
	return p.extensions[strings.ToLower(path.Ext(name))]
}

// Parse reads a document and builds its content tree. The format is chosen
// from the file extension of name; uri identifies the source in the
// resulting tree. Unreadable or unrecognized input yields a *ParseError.
func (p *Parser) Parse(r io.Reader, name, uri string) (*Node, error) {
	ext := strings.ToLower(path.Ext(name))
	if !p.extensions[ext] {
		return nil, &ParseError{Source: uri, Err: errors.New("unsupported file type " + ext)}
	}

	var (
		root *Node
		err  error
	)
	switch ext {
	case ".md", ".markdown":
		root, err = parseMarkdown(r, name)
	case ".html", ".htm":
		root, err = parseHTML(r, name)
	default:
		root, err = parseText(r, name)
	}
	if err != nil {
		return nil, &ParseError{Source: uri, Err: err}
	}

	assignIdentity(root, uri)
	return root, nil
}

// titleFromName strips the extension to form a fallback document title.
func titleFromName(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

// parseText builds a single-section tree from plain text.
func parseText(r io.Reader, name string) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, errEmptyDocument
	}
	return &Node{
		Title:    titleFromName(name),
		Children: []*Node{{Text: text}},
	}, nil
}
