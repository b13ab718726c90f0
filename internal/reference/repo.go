package reference

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	cloneTimeout  = 2 * time.Minute
	maxRepoHits   = 40
	maxLineLength = 300
)

var repoSearchExtensions = map[string]bool{
	".go": true, ".md": true, ".txt": true, ".java": true, ".kt": true,
	".py": true, ".ts": true, ".js": true, ".yaml": true, ".yml": true,
}

// repoReference serves example lookups over a shallow-cloned repository.
type repoReference struct {
	name        string
	description string
	dir         string
}

// newRepoReference clones the repository if it is not already cached. A
// clone failure is returned to the catalog, which degrades it to a warning.
func newRepoReference(ctx context.Context, e entry, cloneDir string) (*repoReference, error) {
	dest := filepath.Join(cloneDir, slug(e.Name))

	if _, err := os.Stat(filepath.Join(dest, ".git")); err != nil {
		if err := os.MkdirAll(cloneDir, 0o750); err != nil {
			return nil, fmt.Errorf("create clone dir: %w", err)
		}
		cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
		defer cancel()

		cmd := exec.CommandContext(cloneCtx, "git", "clone", "--depth", "1", e.Repository, dest)
		if out, err := cmd.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("clone %s: %v: %s", e.Repository, err, strings.TrimSpace(string(out)))
		}
	}

	return &repoReference{name: e.Name, description: e.Description, dir: dest}, nil
}

func (r *repoReference) Name() string        { return r.name }
func (r *repoReference) Description() string { return r.description }

// Retrieve greps the checkout for lines containing the query and returns
// them with file attribution, capped to keep prompts bounded.
func (r *repoReference) Retrieve(ctx context.Context, query string) (string, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return "", nil
	}

	var sb strings.Builder
	hits := 0

	err := filepath.Walk(r.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || hits >= maxRepoHits {
			return filepath.SkipAll
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !repoSearchExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(r.dir, path)
		if relErr != nil {
			return nil
		}
		matchFile(path, rel, needle, &sb, &hits)
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return "", fmt.Errorf("search repository %q: %w", r.name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func matchFile(path, rel, needle string, sb *strings.Builder, hits *int) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	lineNo := 0
	for scanner.Scan() && *hits < maxRepoHits {
		lineNo++
		line := scanner.Text()
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "…"
		}
		fmt.Fprintf(sb, "%s:%d: %s\n", rel, lineNo, strings.TrimSpace(line))
		*hits++
	}
}

// slug turns a reference name into a directory-safe identifier.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
