package store

import "time"

// SearchOption configures a single Search call using the functional options
// pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK       int
	threshold  float32
	maxLatency time.Duration
	documents  []string
}

// WithTopK sets the maximum number of results to return.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithSimilarityThreshold drops results below the given cosine similarity.
func WithSimilarityThreshold(threshold float32) SearchOption {
	return func(c *searchConfig) {
		c.threshold = threshold
	}
}

// WithMaxLatency bounds the whole search (embedding plus query). On expiry
// the call returns whatever it has rather than blocking.
func WithMaxLatency(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.maxLatency = d
		}
	}
}

// WithDocumentFilter restricts results to chunks of the given document URIs.
// Multiple calls accumulate.
func WithDocumentFilter(uris ...string) SearchOption {
	return func(c *searchConfig) {
		c.documents = append(c.documents, uris...)
	}
}
