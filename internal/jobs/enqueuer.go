package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// Enqueuer inserts jobs through the River client. It satisfies the service
// layer's enqueuer interfaces so services never import River directly.
type Enqueuer struct {
	client *river.Client[pgx.Tx]
}

// NewEnqueuer creates an Enqueuer over an initialized River client.
func NewEnqueuer(client *river.Client[pgx.Tx]) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueEOIImport inserts a bulk import job for the given batch.
func (e *Enqueuer) EnqueueEOIImport(ctx context.Context, batchID uint) error {
	if e == nil || e.client == nil {
		return fmt.Errorf("river client is not initialized")
	}
	_, err := e.client.Insert(ctx, EOIImportArgs{BatchID: batchID}, nil)
	if err != nil {
		return fmt.Errorf("insert eoi import job for batch %d: %w", batchID, err)
	}
	return nil
}
