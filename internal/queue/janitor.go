package queue

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor periodically expires stale terminal queue items on a cron
// schedule.
type Janitor struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewJanitor schedules ExpireStale(maxAge) on the given cron schedule,
// e.g. "@every 1m".
func NewJanitor(q *Queue, spec string, maxAge time.Duration, logger *zap.Logger) (*Janitor, error) {
	j := &Janitor{
		cron:   cron.New(),
		logger: logger.Named("janitor"),
	}
	_, err := j.cron.AddFunc(spec, func() {
		if expired := q.ExpireStale(maxAge); expired > 0 {
			j.logger.Info("expired stale queue items", zap.Int("count", expired))
		}
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins the schedule on its own goroutine.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for any running sweep.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
