package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type blankError struct{}

func (blankError) Error() string { return "" }

func TestFailureFromError(t *testing.T) {
	f := FailureFromError("https://example.com/doc", errors.New("connection refused"))
	assert.Equal(t, "https://example.com/doc", f.Source)
	assert.Equal(t, "connection refused", f.Reason)
}

func TestFailureFromErrorBlankMessage(t *testing.T) {
	f := FailureFromError("doc", blankError{})
	assert.Contains(t, f.Reason, "blankError", "blank message falls back to the error type")
}

func TestResultArithmetic(t *testing.T) {
	r := &Result{
		LoadedURLs:          []string{"a", "b"},
		FailedURLs:          []Failure{{Source: "c", Reason: "x"}},
		IngestedDirectories: []string{"/docs"},
		FailedDirectories:   []Failure{{Source: "/bad", Reason: "y"}},
		FailedDocuments:     []Failure{{Source: "/docs/broken.md", Reason: "z"}},
		Elapsed:             3 * time.Second,
	}

	assert.Equal(t, 3, r.TotalURLs())
	assert.Equal(t, 2, r.TotalDirectories())
	assert.Equal(t, 3, r.TotalFailures())
	assert.True(t, r.HasFailures())
}

func TestResultEmpty(t *testing.T) {
	r := &Result{}
	assert.Equal(t, 0, r.TotalURLs())
	assert.Equal(t, 0, r.TotalDirectories())
	assert.Equal(t, 0, r.TotalFailures())
	assert.False(t, r.HasFailures())
}

func TestResultDocumentFailuresDoNotFailDirectory(t *testing.T) {
	r := &Result{
		IngestedDirectories: []string{"/docs"},
		FailedDocuments:     []Failure{{Source: "/docs/broken.md", Reason: "empty document"}},
	}
	assert.Equal(t, 1, r.TotalDirectories())
	assert.True(t, r.HasFailures())
	assert.Equal(t, 1, r.TotalFailures())
}
