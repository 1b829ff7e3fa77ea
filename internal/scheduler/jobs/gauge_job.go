package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"noticeboard/internal/metrics"
)

const gaugeQueryTimeout = 5 * time.Second

type NoticeCounter interface {
	Count(ctx context.Context) (int64, error)
}

type OnlineCounter interface {
	CountOnline(ctx context.Context) (int64, error)
}

type FeedCounter interface {
	ConnectedCount() int
}

// GaugeJob refreshes the aggregate gauges that are not updated inline.
type GaugeJob struct {
	notices NoticeCounter
	online  OnlineCounter
	feed    FeedCounter
	logger  *zap.Logger
}

func NewGaugeJob(notices NoticeCounter, online OnlineCounter, feed FeedCounter, logger *zap.Logger) *GaugeJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GaugeJob{notices: notices, online: online, feed: feed, logger: logger}
}

func (j *GaugeJob) RefreshGauges() {
	ctx, cancel := context.WithTimeout(context.Background(), gaugeQueryTimeout)
	defer cancel()

	if j.notices != nil {
		total, err := j.notices.Count(ctx)
		if err != nil {
			j.logger.Warn("collect notice count failed", zap.Error(err))
		} else {
			metrics.SetNoticesStored(total)
		}
	}
	if j.online != nil {
		total, err := j.online.CountOnline(ctx)
		if err != nil {
			j.logger.Warn("collect online profiles failed", zap.Error(err))
		} else {
			metrics.SetProfilesOnline(total)
		}
	}
	if j.feed != nil {
		metrics.SetFeedClients(j.feed.ConnectedCount())
	}
}
