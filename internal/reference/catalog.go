// Package reference assembles the catalog of consultable references: YAML-
// declared documentation sets, extracted Go API surfaces and cloned example
// repositories.
//
// Assembly is one-time and best-effort: a reference that cannot be built
// becomes an InitWarning and is omitted, never an error. The service must
// come up offline with whatever references are available.
package reference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/docent-ai/docent/internal/identity"
	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/store"
)

// Reference is one consultable knowledge source.
type Reference interface {
	Name() string
	Description() string
	// Retrieve returns material relevant to the query, formatted for
	// inclusion in a model prompt.
	Retrieve(ctx context.Context, query string) (string, error)
}

// InitWarning records a reference that could not be assembled.
type InitWarning struct {
	Source string
	Reason string
}

// Searcher is the slice of the chunk store document references search over.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...store.SearchOption) ([]store.Result, error)
}

// entry is one item in the references YAML file. Exactly one of URLs,
// PackageDir or Repository selects the reference kind.
type entry struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	URLs        []string `yaml:"urls,omitempty"`
	PackageDir  string   `yaml:"package_dir,omitempty"`
	Repository  string   `yaml:"repository,omitempty"`
}

type referencesFile struct {
	References []entry `yaml:"references"`
}

// Config locates the references file and the clone cache.
type Config struct {
	ReferencesFile string
	// CloneDir is where repository references are checked out.
	CloneDir string
	// PackageDirs and Repositories declare additional references beyond
	// those in the file, typically from app configuration.
	PackageDirs  []string
	Repositories []string
}

// Catalog holds the assembled, immutable reference set.
type Catalog struct {
	refs   []Reference
	logger log.Logger
}

// NewCatalog reads the references file and assembles every declared
// reference. Individual failures become warnings; only an unreadable or
// malformed references file is fatal.
func NewCatalog(ctx context.Context, cfg Config, searcher Searcher, logger log.Logger) (*Catalog, []InitWarning, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	var file referencesFile
	if cfg.ReferencesFile != "" {
		data, err := os.ReadFile(cfg.ReferencesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read references file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, nil, fmt.Errorf("parse references file %q: %w", cfg.ReferencesFile, err)
		}
	}

	entries := file.References
	for _, dir := range cfg.PackageDirs {
		entries = append(entries, entry{
			Name:        filepath.Base(dir) + "-api",
			Description: fmt.Sprintf("Exported Go API surface of %s", dir),
			PackageDir:  dir,
		})
	}
	for _, repo := range cfg.Repositories {
		entries = append(entries, entry{
			Name:        slug(filepath.Base(repo)) + "-source",
			Description: fmt.Sprintf("Source code of %s", repo),
			Repository:  repo,
		})
	}

	catalog := &Catalog{logger: logger}
	var warnings []InitWarning

	for _, e := range entries {
		ref, err := buildReference(ctx, e, cfg, searcher)
		if err != nil {
			logger.Warn("reference skipped", "name", e.Name, "error", err)
			warnings = append(warnings, InitWarning{Source: e.Name, Reason: err.Error()})
			continue
		}
		catalog.refs = append(catalog.refs, ref)
	}

	logger.Info("reference catalog assembled",
		"references", len(catalog.refs), "warnings", len(warnings))
	return catalog, warnings, nil
}

func buildReference(ctx context.Context, e entry, cfg Config, searcher Searcher) (Reference, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("reference without a name")
	}
	switch {
	case len(e.URLs) > 0:
		return newDocsReference(e, searcher), nil
	case e.PackageDir != "":
		return newAPIReference(e)
	case e.Repository != "":
		return newRepoReference(ctx, e, cfg.CloneDir)
	default:
		return nil, fmt.Errorf("reference %q declares no urls, package_dir or repository", e.Name)
	}
}

// All returns the full reference set. The returned slice is a copy.
func (c *Catalog) All() []Reference {
	out := make([]Reference, len(c.refs))
	copy(out, c.refs)
	return out
}

// ForUser returns the references visible to a user. There is currently no
// per-user filtering; every user sees the full set. The parameter is the
// extension seam.
func (c *Catalog) ForUser(user *identity.User) []Reference {
	return c.All()
}
