package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"community-ledger/internal/logging"
)

// ActivityCleaner purges activities older than a given age
type ActivityCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RetentionJob periodically purges old feed activities
type RetentionJob struct {
	cleaner   ActivityCleaner
	retention time.Duration
	log       zerolog.Logger
}

// NewRetentionJob creates a new retention job
func NewRetentionJob(cleaner ActivityCleaner, retention time.Duration) *RetentionJob {
	return &RetentionJob{
		cleaner:   cleaner,
		retention: retention,
		log:       logging.WithComponent("retention"),
	}
}

// Run purges once. Errors are logged; the next run retries.
func (j *RetentionJob) Run(ctx context.Context) {
	deleted, err := j.cleaner.Cleanup(ctx, j.retention)
	if err != nil {
		j.log.Error().Err(err).Dur("retention", j.retention).Msg("Retention cleanup failed")
		return
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Purged expired activities")
	}
}

// Schedule registers the job on s
func (j *RetentionJob) Schedule(s *Scheduler, interval time.Duration) error {
	return s.Every(interval, "activity-retention", j.Run)
}
