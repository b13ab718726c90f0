package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath resolves a configured path value to an absolute path.
//
// Rules:
//   - blank input is returned unchanged
//   - "~" and "~/..." expand against home
//   - absolute paths pass through (cleaned)
//   - relative paths resolve against cwd
func ResolvePath(path, home, cwd string) string {
	if strings.TrimSpace(path) == "" {
		return path
	}
	switch {
	case path == "~":
		return filepath.Clean(home)
	case strings.HasPrefix(path, "~/"):
		return filepath.Clean(filepath.Join(home, path[2:]))
	case filepath.IsAbs(path):
		return filepath.Clean(path)
	default:
		return filepath.Clean(filepath.Join(cwd, path))
	}
}

// ResolvedDirectories returns the configured ingestion directories resolved
// against the current user's home directory and working directory.
func (c *Config) ResolvedDirectories() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	resolved := make([]string, 0, len(c.Directories))
	for _, d := range c.Directories {
		resolved = append(resolved, ResolvePath(d, home, cwd))
	}
	return resolved, nil
}
