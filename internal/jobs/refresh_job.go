package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"stock-monitor-service/internal/engine"
)

// RefreshJob keeps the recommendation cache warm by recomputing the batch
// on a fixed interval, so reads after TTL expiry rarely pay the full
// recompute cost.
type RefreshJob struct {
	recs     *engine.RecommendationEngine
	logger   *logrus.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewRefreshJob creates a new recommendation refresh job
func NewRefreshJob(recs *engine.RecommendationEngine, interval time.Duration, logger *logrus.Logger) *RefreshJob {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RefreshJob{
		recs:     recs,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the refresh job
func (j *RefreshJob) Start(ctx context.Context) {
	j.logger.Info("Recommendation refresh job started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			recs := j.recs.Refresh()
			j.logger.WithField("count", len(recs)).Debug("Recommendation cache refreshed")
		case <-j.stopCh:
			j.logger.Info("Recommendation refresh job stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Recommendation refresh job context cancelled")
			return
		}
	}
}

// Stop signals the job to stop
func (j *RefreshJob) Stop() {
	close(j.stopCh)
}
