// Package store persists chunked documents with vector embeddings and
// serves similarity search over them.
//
// Writes are document-atomic: re-ingesting a URI replaces every chunk of
// that document in one transaction, so readers never observe a half-written
// document. The Store is safe for concurrent use.
package store

import "time"

// Chunk is one retrievable unit of a document. IDs are store-assigned and
// stable within a document generation; re-ingesting a document produces a
// new generation with new IDs.
type Chunk struct {
	ID          string
	DocumentURI string
	// Section is the heading breadcrumb ("Guide > Setup > Requirements").
	Section string
	// Ordinal is the chunk's position within its document.
	Ordinal int
	Text    string
}

// Result is a search hit.
type Result struct {
	Chunk      Chunk
	Similarity float32
}

// DocumentRecord is the per-document bookkeeping row kept alongside chunks.
type DocumentRecord struct {
	URI          string
	Title        string
	ElementCount int
	IngestedAt   time.Time
}

// Info summarizes store contents. Values are read-consistent with the
// latest committed write.
type Info struct {
	DocumentCount       int
	ChunkCount          int
	ContentElementCount int
}
