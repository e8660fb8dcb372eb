package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"tutorplan.io/tutorplan/internal/pkg/logger"
	"tutorplan.io/tutorplan/internal/service"
)

// SessionCleanupArgs is the periodic job that prunes expired sessions.
type SessionCleanupArgs struct{}

// Kind returns the job kind identifier for session cleanup.
func (SessionCleanupArgs) Kind() string { return "session_cleanup" }

// InsertOpts ensures at most one cleanup job per period.
func (SessionCleanupArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// SessionCleanupWorker removes sessions past their expiry.
type SessionCleanupWorker struct {
	river.WorkerDefaults[SessionCleanupArgs]
	sessions *service.SessionService
}

// NewSessionCleanupWorker creates a cleanup worker.
func NewSessionCleanupWorker(sessions *service.SessionService) *SessionCleanupWorker {
	return &SessionCleanupWorker{sessions: sessions}
}

// Work prunes expired session rows.
func (w *SessionCleanupWorker) Work(ctx context.Context, _ *river.Job[SessionCleanupArgs]) error {
	if w == nil || w.sessions == nil {
		return fmt.Errorf("session cleanup worker is not initialized")
	}

	pruned, err := w.sessions.PruneExpired(ctx)
	if err != nil {
		return fmt.Errorf("prune expired sessions: %w", err)
	}
	logger.Info("Session cleanup completed", zap.Int64("pruned", pruned))
	return nil
}

// PeriodicJobs returns the recurring job schedule registered with River.
func PeriodicJobs() []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return SessionCleanupArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
