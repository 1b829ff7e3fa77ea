package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	sessionPurgeTimeout     = 30 * time.Second
	defaultSessionRetention = 24 * time.Hour
)

type SessionPurger interface {
	PurgeSessions(ctx context.Context, before time.Time) (int64, error)
}

// SessionJob deletes sessions that expired more than retention ago.
type SessionJob struct {
	purger    SessionPurger
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewSessionJob(purger SessionPurger, retention time.Duration, logger *zap.Logger) *SessionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = defaultSessionRetention
	}
	return &SessionJob{
		purger:    purger,
		retention: retention,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (j *SessionJob) PurgeExpired() {
	if j.purger == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionPurgeTimeout)
	defer cancel()

	removed, err := j.purger.PurgeSessions(ctx, j.now().Add(-j.retention))
	if err != nil {
		j.logger.Warn("purge expired sessions failed", zap.Error(err))
		return
	}
	if removed > 0 {
		j.logger.Info("expired sessions purged", zap.Int64("count", removed))
	}
}
