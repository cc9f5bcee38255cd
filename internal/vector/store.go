package vector

import (
	"context"
	"errors"
)

// ErrInvalidTopK is returned when a query asks for fewer than one match.
var ErrInvalidTopK = errors.New("top_k must be at least 1")

// ErrUnavailable marks the index as unreachable for the current operation.
// The caller decides whether the surrounding batch continues.
var ErrUnavailable = errors.New("vector store unavailable")

// Metadata keys persisted with every record.
const (
	MetaSource  = "source"
	MetaDocID   = "doc_id"
	MetaChunkID = "chunk_id"
	MetaText    = "text"
)

// Record is the persisted unit in the vector store. ID is a deterministic
// string ("{doc_id}_chunk_{index}"), so re-upserting the same record
// overwrites rather than duplicates.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is a single result from a similarity query, ranked by Score.
type Match struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]string
}

// Source returns the match's originating document name, if recorded.
func (m Match) Source() string {
	if s, ok := m.Metadata[MetaSource]; ok {
		return s
	}
	return "unknown"
}

// Store provides vector persistence and similarity search over a managed
// index. Implementations hold no local state between calls.
type Store interface {
	// Upsert writes records, overwriting on ID collision, and returns the
	// number of records written.
	Upsert(ctx context.Context, records []Record) (int, error)
	// Query finds the topK most similar records, sorted by descending score.
	Query(ctx context.Context, vec []float32, topK int) ([]Match, error)
	// Close releases resources.
	Close() error
}
