package temporal

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/themxgroup/launchpad/internal/ingest"
	"github.com/themxgroup/launchpad/internal/llm"
)

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Pipeline *ingest.Pipeline
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// ListDocumentsActivity returns the ingestable files under dir.
func ListDocumentsActivity(_ context.Context, dir string) ([]string, error) {
	return ingest.ListSupported(dir)
}

// IngestDocumentActivity ingests a single file. Invalid input is flagged
// non-retryable so the workflow's retry policy skips straight to recording
// the failure.
func IngestDocumentActivity(ctx context.Context, path string) (ingest.Result, error) {
	res, err := deps.Pipeline.IngestFile(ctx, path, "")
	if err != nil {
		if errors.Is(err, llm.ErrInvalidInput) || errors.Is(err, ingest.ErrInvalidChunking) {
			return ingest.Result{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
		}
		return ingest.Result{}, err
	}
	return res, nil
}
