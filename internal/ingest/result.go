// Package ingest orchestrates bulk loading of configured references into
// the chunk store.
package ingest

import (
	"fmt"
	"time"
)

// Failure records one failed item with a human-readable reason, so an
// operator can diagnose a run from the summary alone.
type Failure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// FailureFromError builds a Failure, falling back to the error's type name
// when its message is blank.
func FailureFromError(source string, err error) Failure {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	if reason == "" {
		reason = fmt.Sprintf("%T", err)
	}
	return Failure{Source: source, Reason: reason}
}

// Result is the structured outcome of a full ingestion run.
// FailedDocuments holds per-document failures that occurred inside
// otherwise-successful directories.
type Result struct {
	LoadedURLs          []string
	FailedURLs          []Failure
	IngestedDirectories []string
	FailedDirectories   []Failure
	FailedDocuments     []Failure
	Elapsed             time.Duration
}

// TotalURLs is the number of URLs attempted.
func (r *Result) TotalURLs() int {
	return len(r.LoadedURLs) + len(r.FailedURLs)
}

// TotalDirectories is the number of directories attempted.
func (r *Result) TotalDirectories() int {
	return len(r.IngestedDirectories) + len(r.FailedDirectories)
}

// HasFailures reports whether anything at all failed.
func (r *Result) HasFailures() bool {
	return len(r.FailedURLs) > 0 || len(r.FailedDirectories) > 0 || len(r.FailedDocuments) > 0
}

// TotalFailures counts failures across all three levels.
func (r *Result) TotalFailures() int {
	return len(r.FailedURLs) + len(r.FailedDirectories) + len(r.FailedDocuments)
}
