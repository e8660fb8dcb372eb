// Package jobs contains the River queue workers: bulk EOI import and
// periodic session cleanup.
package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"tutorplan.io/tutorplan/internal/pkg/logger"
	"tutorplan.io/tutorplan/internal/service"
)

// EOIImportArgs carries only the batch ID; the full payload stays on the
// default database as a claim check.
type EOIImportArgs struct {
	BatchID uint `json:"batch_id"`
}

// Kind returns the job kind identifier for bulk EOI imports.
func (EOIImportArgs) Kind() string { return "eoi_import" }

// InsertOpts deduplicates by batch so a retried HTTP request cannot enqueue
// the same batch twice.
func (EOIImportArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByQueue: true,
		},
	}
}

// EOIImportWorker replays a stored import batch through the EOI service,
// row by row, against the semester current at processing time.
type EOIImportWorker struct {
	river.WorkerDefaults[EOIImportArgs]
	eoiService *service.EOIService
}

// NewEOIImportWorker creates an import worker.
func NewEOIImportWorker(eoiService *service.EOIService) *EOIImportWorker {
	return &EOIImportWorker{eoiService: eoiService}
}

// Work processes one import batch.
func (w *EOIImportWorker) Work(ctx context.Context, job *river.Job[EOIImportArgs]) error {
	if w == nil || w.eoiService == nil {
		return fmt.Errorf("eoi import worker is not initialized")
	}

	logger.Info("Processing EOI import batch",
		zap.Uint("batch_id", job.Args.BatchID),
		zap.Int("attempt", job.Attempt),
	)
	if err := w.eoiService.RunImport(ctx, job.Args.BatchID); err != nil {
		return fmt.Errorf("run eoi import batch %d: %w", job.Args.BatchID, err)
	}
	return nil
}
