package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// MaxFileSize caps the size of a single document. Larger files are skipped
// rather than failed: they are almost always generated artifacts, not docs.
const MaxFileSize = 4 * 1024 * 1024

// FileFailure records a single file that could not be parsed during a
// directory walk.
type FileFailure struct {
	Path string
	Err  error
}

// DirectoryResult is the outcome of parsing a directory tree. A failed file
// lands in Failures and never aborts the walk.
type DirectoryResult struct {
	Roots    []*Node
	Failures []FileFailure
	Skipped  int
}

// ParseDirectory recursively parses every supported file under dir into a
// content tree. Entries matched by a .gitignore at the directory root are
// skipped, as are unsupported and oversized files. Individual parse failures
// are collected per file; only an unreadable directory fails the call.
func (p *Parser) ParseDirectory(dir string) (*DirectoryResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve directory path: %w", err)
	}

	// os.Root confines reads to the directory, so symlinks cannot escape it.
	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	var gitIgnore *ignore.GitIgnore
	gitignorePath := filepath.Join(absDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		// A malformed .gitignore never fails the walk.
		gitIgnore, _ = ignore.CompileIgnoreFile(gitignorePath)
	}

	result := &DirectoryResult{}

	err = filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.Failures = append(result.Failures, FileFailure{Path: path, Err: err})
			return nil
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.Failures = append(result.Failures, FileFailure{Path: path, Err: err})
			return nil
		}

		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			result.Skipped++
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && relPath != "." {
				return filepath.SkipDir
			}
			return nil
		}

		if !p.Supported(info.Name()) {
			result.Skipped++
			return nil
		}
		if info.Size() > MaxFileSize {
			result.Skipped++
			return nil
		}

		f, err := root.Open(relPath)
		if err != nil {
			result.Failures = append(result.Failures, FileFailure{Path: path, Err: err})
			return nil
		}
		node, err := p.Parse(f, info.Name(), path)
		_ = f.Close()
		if err != nil {
			result.Failures = append(result.Failures, FileFailure{Path: path, Err: err})
			return nil
		}

		result.Roots = append(result.Roots, node)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	return result, nil
}
