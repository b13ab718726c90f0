package reference

import (
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/doc"
	"go/parser"
	"go/printer"
	"go/token"
	"strings"
)

const maxRetrieveBytes = 16 * 1024

// apiReference exposes the exported surface of a Go package directory,
// extracted once at assembly time.
type apiReference struct {
	name        string
	description string
	surface     string
}

func newAPIReference(e entry) (*apiReference, error) {
	surface, err := extractSurface(e.PackageDir)
	if err != nil {
		return nil, fmt.Errorf("extract API surface from %q: %w", e.PackageDir, err)
	}
	return &apiReference{
		name:        e.Name,
		description: e.Description,
		surface:     surface,
	}, nil
}

func (a *apiReference) Name() string        { return a.name }
func (a *apiReference) Description() string { return a.description }

// Retrieve returns the declaration blocks matching the query, or the whole
// surface (capped) for a blank query.
func (a *apiReference) Retrieve(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return truncate(a.surface, maxRetrieveBytes), nil
	}

	needle := strings.ToLower(query)
	var matched []string
	for _, block := range strings.Split(a.surface, "\n\n") {
		if strings.Contains(strings.ToLower(block), needle) {
			matched = append(matched, block)
		}
	}
	return truncate(strings.Join(matched, "\n\n"), maxRetrieveBytes), nil
}

// extractSurface parses a package directory and renders its exported
// declarations: types with methods, functions, constants and variables.
func extractSurface(dir string) (string, error) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, nil, parser.ParseComments)
	if err != nil {
		return "", err
	}
	if len(pkgs) == 0 {
		return "", fmt.Errorf("no Go packages in %s", dir)
	}

	var sb strings.Builder
	for _, pkg := range pkgs {
		if strings.HasSuffix(pkg.Name, "_test") {
			continue
		}
		p := doc.New(pkg, dir, 0)

		fmt.Fprintf(&sb, "package %s\n\n", p.Name)
		if s := doc.Synopsis(p.Doc); s != "" {
			fmt.Fprintf(&sb, "%s\n\n", s)
		}

		for _, t := range p.Types {
			writeDecl(&sb, fset, t.Decl, t.Doc)
			for _, fn := range t.Funcs {
				writeFunc(&sb, fset, fn)
			}
			for _, m := range t.Methods {
				writeFunc(&sb, fset, m)
			}
		}
		for _, fn := range p.Funcs {
			writeFunc(&sb, fset, fn)
		}
		for _, v := range append(p.Consts, p.Vars...) {
			writeDecl(&sb, fset, v.Decl, v.Doc)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func writeFunc(sb *strings.Builder, fset *token.FileSet, fn *doc.Func) {
	// Render the signature only.
	decl := *fn.Decl
	decl.Body = nil
	decl.Doc = nil
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, &decl); err != nil {
		return
	}
	if s := doc.Synopsis(fn.Doc); s != "" {
		fmt.Fprintf(sb, "// %s\n", s)
	}
	fmt.Fprintf(sb, "%s\n\n", buf.String())
}

func writeDecl(sb *strings.Builder, fset *token.FileSet, decl *ast.GenDecl, docText string) {
	d := *decl
	d.Doc = nil
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, &d); err != nil {
		return
	}
	if s := doc.Synopsis(docText); s != "" {
		fmt.Fprintf(sb, "// %s\n", s)
	}
	fmt.Fprintf(sb, "%s\n\n", buf.String())
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut + "\n… (truncated)"
}
