package controller

import (
	"context"

	"noticeboard/internal/analyzer"
	"noticeboard/internal/feed"
	"noticeboard/internal/model"
)

// IdentityService manages accounts and the current session.
type IdentityService interface {
	CreateAccount(ctx context.Context, email, password string) (model.Identity, error)
	Authenticate(ctx context.Context, email, password string) (model.Identity, error)
	// CurrentSession returns nil when nobody is signed in.
	CurrentSession(ctx context.Context) (*model.Identity, error)
	EndSession(ctx context.Context) error
}

// SessionNotifier is implemented by identity services that report session
// changes made outside the controller, such as an expired token.
type SessionNotifier interface {
	OnSessionChange(listener func(identity *model.Identity))
}

type ProfileStore interface {
	// Get returns nil, nil when the profile does not exist.
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Set(ctx context.Context, userID string, fields model.ProfileFields) error
	Update(ctx context.Context, userID string, update model.ProfileUpdate) error
}

type NoticeStore interface {
	Add(ctx context.Context, notice model.Notice) error
	// Subscribe delivers the whole collection, newest first, now and after
	// every change until the subscription is closed.
	Subscribe(ctx context.Context) (Subscription, error)
}

// Snapshot is one full copy of the collection. Err reports a broken feed; the
// subscription keeps trying and later snapshots may succeed.
type Snapshot struct {
	Notices []model.Notice
	Err     error
}

type Subscription interface {
	Snapshots() <-chan Snapshot
	Close() error
}

type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (model.Analysis, error)
}

// View is everything the controller shows. Calls may arrive from the feed
// goroutine concurrently with operation callbacks.
type View interface {
	ShowAuth()
	ShowApp(identity model.Identity, role model.Role)
	Alert(message string)
	SetLoading(on bool)
	ShowAnalysis(preview feed.Preview)
	HideAnalysis()
	ClearNoticeForm()
	RenderFeed(f feed.Feed)
}
