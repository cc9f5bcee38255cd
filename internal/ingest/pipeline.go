// Package ingest populates the vector index: it extracts text from source
// documents, splits it into overlapping chunks, embeds the chunks, and
// upserts one record per chunk.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/themxgroup/launchpad/internal/llm"
	"github.com/themxgroup/launchpad/internal/observability"
	"github.com/themxgroup/launchpad/internal/vector"
)

// PreviewChars bounds the text stored in record metadata. Vector store
// payloads have size limits; the full chunk is recoverable from the source.
const PreviewChars = 1000

// Config holds the pipeline's chunking and batching knobs.
type Config struct {
	ChunkSize    int // characters per chunk
	ChunkOverlap int // characters shared by adjacent chunks
	EmbedBatch   int // texts per embedding request
}

// DefaultConfig returns the chunking parameters the corpus was built with.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		EmbedBatch:   100,
	}
}

// Result summarises one document's ingestion.
type Result struct {
	DocID  string
	Source string
	Chunks int
}

// BatchResult summarises a directory ingestion. Failures are counted, not
// fatal: one bad document never stops the batch.
type BatchResult struct {
	Ingested []Result
	Failed   int
}

// Pipeline orchestrates chunk → embed → upsert for source documents.
type Pipeline struct {
	provider llm.Provider
	store    vector.Store
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a Pipeline with injected provider and store.
func New(provider llm.Provider, store vector.Store, cfg Config, log zerolog.Logger) *Pipeline {
	if cfg.ChunkSize == 0 {
		cfg = DefaultConfig()
	}
	if cfg.EmbedBatch <= 0 {
		cfg.EmbedBatch = 100
	}
	return &Pipeline{
		provider: provider,
		store:    store,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// IngestText runs the full pipeline over already-extracted text. When docID
// is empty it is derived from the source name and the current timestamp.
// Returns the resolved docID and the number of chunks written.
func (p *Pipeline) IngestText(ctx context.Context, source, text, docID string) (Result, error) {
	ctx, span := observability.StartSpan(ctx, "ingest.document")
	defer span.End()

	if docID == "" {
		docID = p.resolveDocID(source)
	}

	chunks, err := Chunk(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return Result{}, err
	}
	if len(chunks) == 0 {
		p.log.Warn().Str("source", source).Msg("document has no text, nothing to ingest")
		return Result{DocID: docID, Source: source}, nil
	}

	embeddings, err := p.embedAll(ctx, chunks)
	if err != nil {
		return Result{}, fmt.Errorf("embedding %s: %w", source, err)
	}
	if len(embeddings) != len(chunks) {
		return Result{}, fmt.Errorf("embedding count mismatch for %s: got %d, want %d", source, len(embeddings), len(chunks))
	}

	records := make([]vector.Record, len(chunks))
	for i, chunk := range chunks {
		preview := chunk
		if len(preview) > PreviewChars {
			preview = preview[:PreviewChars]
		}
		records[i] = vector.Record{
			ID:     fmt.Sprintf("%s_chunk_%d", docID, i),
			Vector: embeddings[i],
			Metadata: map[string]string{
				vector.MetaSource:  source,
				vector.MetaDocID:   docID,
				vector.MetaChunkID: fmt.Sprintf("%d", i),
				vector.MetaText:    preview,
			},
		}
	}

	written, err := p.store.Upsert(ctx, records)
	if err != nil {
		return Result{}, fmt.Errorf("upserting %s: %w", source, err)
	}

	observability.Default().DocumentsIngested.Inc()
	observability.Default().ChunksIngested.Add(float64(written))
	p.log.Info().
		Str("doc_id", docID).
		Str("source", source).
		Int("chunks", written).
		Msg("document ingested")

	return Result{DocID: docID, Source: source, Chunks: written}, nil
}

// IngestFile extracts a file and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, path, docID string) (Result, error) {
	text, err := ExtractFile(path)
	if err != nil {
		return Result{}, err
	}
	return p.IngestText(ctx, filepath.Base(path), text, docID)
}

// IngestDir ingests every supported file in dir. A failing document is
// logged and skipped; the batch continues and reports the failure count.
// This is a best-effort batch job, not a transaction: documents already
// committed stay committed.
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (BatchResult, error) {
	files, err := ListSupported(dir)
	if err != nil {
		return BatchResult{}, err
	}

	var batch BatchResult
	for _, path := range files {
		res, err := p.IngestFile(ctx, path, "")
		if err != nil {
			batch.Failed++
			observability.Default().IngestFailures.Inc()
			p.log.Error().Err(err).Str("path", path).Msg("skipping document")
			continue
		}
		batch.Ingested = append(batch.Ingested, res)
	}

	p.log.Info().
		Int("ingested", len(batch.Ingested)).
		Int("failed", batch.Failed).
		Str("dir", dir).
		Msg("batch ingestion complete")
	return batch, nil
}

// ListSupported returns the ingestable files in dir, sorted by name.
func ListSupported(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdf", ".txt", ".md", ".html", ".htm":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// embedAll batches embedding requests so one oversized document doesn't
// become one oversized API call.
func (p *Pipeline) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	ctx, span := observability.StartSpan(ctx, "ingest.embed")
	defer span.End()

	all := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.cfg.EmbedBatch {
		end := start + p.cfg.EmbedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		vecs, err := p.provider.Embed(ctx, chunks[start:end])
		if err != nil {
			return nil, err
		}
		observability.Default().EmbeddingCalls.Inc()
		all = append(all, vecs...)
	}
	return all, nil
}

func (p *Pipeline) resolveDocID(source string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return fmt.Sprintf("%s_%s", base, p.now().Format("20060102_150405"))
}
