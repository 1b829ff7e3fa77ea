package scheduler

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultGaugeSpec        = "0 */1 * * * *"
	DefaultSessionPurgeSpec = "0 0 3 * * *"
)

type GaugeTask interface {
	RefreshGauges()
}

type SessionTask interface {
	PurgeExpired()
}

type Deps struct {
	GaugeJob   GaugeTask
	SessionJob SessionTask
}

// Specs use the six-field (seconds) cron format. Empty fields take the
// defaults above.
type Specs struct {
	Gauges       string
	SessionPurge string
}

func NewScheduler(deps Deps, specs Specs, logger *zap.Logger) *cron.Cron {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	if deps.GaugeJob != nil {
		addFunc(c, specOrDefault(specs.Gauges, DefaultGaugeSpec), "metrics.refresh_gauges", logger, deps.GaugeJob.RefreshGauges)
	}
	if deps.SessionJob != nil {
		addFunc(c, specOrDefault(specs.SessionPurge, DefaultSessionPurgeSpec), "sessions.purge_expired", logger, deps.SessionJob.PurgeExpired)
	}

	return c
}

func specOrDefault(spec, fallback string) string {
	if trimmed := strings.TrimSpace(spec); trimmed != "" {
		return trimmed
	}
	return fallback
}

func addFunc(c *cron.Cron, spec string, name string, logger *zap.Logger, fn func()) {
	if c == nil || fn == nil {
		return
	}

	if _, err := c.AddFunc(spec, func() {
		defer recoverJobPanic(name, logger)
		start := time.Now()
		fn()
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}); err != nil {
		logger.Error("register scheduler job failed",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if recovered := recover(); recovered != nil && logger != nil {
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
