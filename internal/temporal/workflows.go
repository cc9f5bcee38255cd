// Package temporal runs batch ingestion under a workflow engine. Each
// document is its own activity, so retries and failures are scoped to one
// document and a crashed worker resumes mid-batch instead of restarting it.
package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/themxgroup/launchpad/internal/ingest"
)

// DirectoryIngestInput holds the workflow parameters.
type DirectoryIngestInput struct {
	Dir string
}

// DocumentFailure records one document the batch gave up on.
type DocumentFailure struct {
	Path  string
	Error string
}

// DirectoryIngestOutput is the batch summary.
type DirectoryIngestOutput struct {
	Ingested []ingest.Result
	Failed   []DocumentFailure
}

// DirectoryIngestWorkflow ingests every supported file in a directory. A
// document that still fails after activity retries is recorded and the
// batch continues; the workflow itself only fails when the directory
// cannot be listed.
func DirectoryIngestWorkflow(ctx workflow.Context, input DirectoryIngestInput) (*DirectoryIngestOutput, error) {
	listOpts := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
	}
	var files []string
	if err := workflow.ExecuteActivity(
		workflow.WithActivityOptions(ctx, listOpts),
		ListDocumentsActivity, input.Dir,
	).Get(ctx, &files); err != nil {
		return nil, err
	}

	docOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
			// Bad input does not get better on retry.
			NonRetryableErrorTypes: []string{"InvalidInput"},
		},
	}
	docCtx := workflow.WithActivityOptions(ctx, docOpts)

	out := &DirectoryIngestOutput{}
	for _, path := range files {
		var res ingest.Result
		if err := workflow.ExecuteActivity(docCtx, IngestDocumentActivity, path).Get(ctx, &res); err != nil {
			out.Failed = append(out.Failed, DocumentFailure{Path: path, Error: err.Error()})
			continue
		}
		out.Ingested = append(out.Ingested, res)
	}

	workflow.GetLogger(ctx).Info("directory ingestion complete",
		"dir", input.Dir,
		"ingested", len(out.Ingested),
		"failed", len(out.Failed))
	return out, nil
}
