package ingest

import (
	"errors"
	"fmt"
)

// ErrInvalidChunking is returned for chunk parameters that can never
// terminate or produce bounded windows.
var ErrInvalidChunking = errors.New("invalid chunking configuration")

// Default chunking parameters, matched to the corpus the index was sized
// for (text-embedding-3-small, 1536 dims).
const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 300
)

// Chunk splits text into overlapping fixed-size windows. Every chunk except
// the last has exactly size characters, and adjacent chunks share exactly
// overlap characters. Chunk order is document order; the slice index becomes
// the chunk_id downstream. Empty text yields an empty slice.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d must be positive", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunking, overlap, size)
	}
	if text == "" {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]string, 0, len(text)/step+1)
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks, nil
}
