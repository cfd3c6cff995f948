package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// RetentionJobName is the scheduler key of this job
const RetentionJobName = "evaluation_retention"

// Purger deletes stored results older than a cutoff
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob removes evaluations past their retention window
type RetentionJob struct {
	purger    Purger
	schedule  string
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

// NewRetentionJob creates a new retention job
func NewRetentionJob(purger Purger, schedule string, retention time.Duration, log *logger.Logger) *RetentionJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RetentionJob{
		purger:    purger,
		schedule:  schedule,
		retention: retention,
		now:       time.Now,
		logger:    log.WithJob(RetentionJobName),
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return RetentionJobName
}

// Schedule returns the configured cron schedule
func (j *RetentionJob) Schedule() string {
	return j.schedule
}

// Run purges everything older than now - retention
func (j *RetentionJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", j.retention)
	}

	cutoff := j.now().Add(-j.retention)
	removed, err := j.purger.Purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"cutoff":  cutoff,
		}).Info("Old evaluations purged")
	}

	return nil
}
