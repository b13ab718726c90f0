package content

import (
	"errors"
	"fmt"
)

// errEmptyDocument marks input with no extractable text. Surfaced to
// callers wrapped in a ParseError.
var errEmptyDocument = errors.New("empty document")

// ParseError reports that a single document could not be parsed. It is
// recovered locally during batch ingestion: the document is skipped and the
// batch continues.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FetchError reports a network retrieval failure for a URL. Recovery policy
// matches ParseError.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
