package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"noticeboard/internal/metrics"
)

type fakeCounts struct {
	notices int64
	online  int64
	feed    int
	err     error
}

func (f fakeCounts) Count(context.Context) (int64, error)       { return f.notices, f.err }
func (f fakeCounts) CountOnline(context.Context) (int64, error) { return f.online, f.err }
func (f fakeCounts) ConnectedCount() int                        { return f.feed }

func TestGaugeJobRefreshesGauges(t *testing.T) {
	counts := fakeCounts{notices: 7, online: 3, feed: 2}
	NewGaugeJob(counts, counts, counts, nil).RefreshGauges()

	if got := testutil.ToFloat64(metrics.NoticesStored); got != 7 {
		t.Fatalf("notices stored = %v, want 7", got)
	}
	if got := testutil.ToFloat64(metrics.ProfilesOnline); got != 3 {
		t.Fatalf("profiles online = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.FeedClients); got != 2 {
		t.Fatalf("feed clients = %v, want 2", got)
	}

	// Query failures leave the previous values in place.
	failing := fakeCounts{err: errors.New("db down"), feed: 2}
	NewGaugeJob(failing, failing, failing, nil).RefreshGauges()
	if got := testutil.ToFloat64(metrics.NoticesStored); got != 7 {
		t.Fatalf("notices stored changed on failure: %v", got)
	}
}

type recordingPurger struct {
	before time.Time
	err    error
}

func (r *recordingPurger) PurgeSessions(_ context.Context, before time.Time) (int64, error) {
	r.before = before
	return 2, r.err
}

func TestSessionJobUsesRetention(t *testing.T) {
	t.Parallel()

	purger := &recordingPurger{}
	job := NewSessionJob(purger, time.Hour, nil)
	fixed := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	job.PurgeExpired()

	if want := fixed.Add(-time.Hour); !purger.before.Equal(want) {
		t.Fatalf("purge cutoff = %s, want %s", purger.before, want)
	}
}
