// Package controller mediates between the user and the notice board services.
// It owns the session and the two-state view machine; everything it talks to
// is reached through the interfaces in capabilities.go.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"noticeboard/internal/analyzer"
	"noticeboard/internal/feed"
	"noticeboard/internal/model"
)

type ViewState int

const (
	Unauthenticated ViewState = iota
	Authenticated
)

func (s ViewState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

type Deps struct {
	Identity IdentityService
	Profiles ProfileStore
	Notices  NoticeStore
	Analyzer Analyzer
	View     View
}

type Options struct {
	Faculty FacultyAllowList
	Feed    feed.Options
	Logger  *zap.Logger
}

// Controller methods are safe for concurrent use. Each operation reports the
// outcome to the View and also returns the error.
type Controller struct {
	identity IdentityService
	profiles ProfileStore
	notices  NoticeStore
	analyzer Analyzer
	view     View
	faculty  FacultyAllowList
	feedOpts feed.Options
	logger   *zap.Logger

	session Session

	// baseCtx outlives individual operations; the feed runs under it.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu         sync.Mutex
	state      ViewState
	feedCancel context.CancelFunc
	feedDone   chan struct{}
}

func New(deps Deps, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		identity:   deps.Identity,
		profiles:   deps.Profiles,
		notices:    deps.Notices,
		analyzer:   deps.Analyzer,
		view:       deps.View,
		faculty:    opts.Faculty,
		feedOpts:   opts.Feed,
		logger:     opts.Logger,
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	if notifier, ok := deps.Identity.(SessionNotifier); ok {
		notifier.OnSessionChange(c.handleSessionChange)
	}
	return c
}

func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Session() *Session {
	return &c.session
}

// Close stops the live feed. The remote session is left open so a later
// Restore can pick it up.
func (c *Controller) Close() {
	c.stopFeed()
	c.cancelBase()
}

func (c *Controller) enterAuthenticated(identity model.Identity, role model.Role) {
	c.session.populate(identity, role)

	c.mu.Lock()
	c.state = Authenticated
	c.mu.Unlock()

	c.view.ShowApp(identity, role)
	c.startFeed()
}

// exitAuthenticated is idempotent; only the first caller clears the session
// and switches the view.
func (c *Controller) exitAuthenticated() {
	c.mu.Lock()
	if c.state != Authenticated {
		c.mu.Unlock()
		c.stopFeed()
		return
	}
	c.state = Unauthenticated
	c.mu.Unlock()

	c.stopFeed()
	c.session.clear()
	c.view.ShowAuth()
}

func (c *Controller) handleSessionChange(identity *model.Identity) {
	if identity != nil {
		return
	}
	if c.State() == Authenticated {
		c.logger.Info("session ended outside the client")
	}
	c.exitAuthenticated()
}

// abandonSession ends a remote session the controller decided not to keep.
func (c *Controller) abandonSession(ctx context.Context) {
	if err := c.identity.EndSession(ctx); err != nil {
		c.logger.Warn("end session failed", zap.Error(err))
	}
}

func (c *Controller) startFeed() {
	c.stopFeed()

	ctx, cancel := context.WithCancel(c.baseCtx)
	sub, err := c.notices.Subscribe(ctx)
	if err != nil {
		cancel()
		c.logger.Error("subscribe notices failed", zap.Error(err))
		c.view.RenderFeed(feed.Failed())
		return
	}

	done := make(chan struct{})
	c.mu.Lock()
	if c.state != Authenticated {
		c.mu.Unlock()
		cancel()
		_ = sub.Close()
		return
	}
	prevCancel, prevDone := c.feedCancel, c.feedDone
	c.feedCancel, c.feedDone = cancel, done
	c.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}
	go c.runFeed(ctx, sub, done)
}

func (c *Controller) runFeed(ctx context.Context, sub Subscription, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := sub.Close(); err != nil {
			c.logger.Debug("close notice subscription failed", zap.Error(err))
		}
	}()

	snapshots := sub.Snapshots()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			// A cancel may race with a pending snapshot; never render after
			// leaving the authenticated view.
			if ctx.Err() != nil {
				return
			}
			if snapshot.Err != nil {
				c.logger.Error("load notices failed", zap.Error(snapshot.Err))
				c.view.RenderFeed(feed.Failed())
				continue
			}
			c.view.RenderFeed(feed.Build(snapshot.Notices, c.feedOpts))
		}
	}
}

// stopFeed cancels the subscription and waits for the feed goroutine.
func (c *Controller) stopFeed() {
	c.mu.Lock()
	cancel, done := c.feedCancel, c.feedDone
	c.feedCancel, c.feedDone = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func errorMessage(err error) string {
	return msgErrorPrefix + err.Error()
}

func analyzerRequest(title, content string, identity model.Identity) analyzer.Request {
	return analyzer.Request{Title: title, Content: content, UserID: identity.UID.String()}
}

func blank(values ...string) bool {
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			return true
		}
	}
	return false
}

func roleMismatchMessage(stored, selected model.Role) string {
	return fmt.Sprintf(msgRoleMismatchFormat, stored, selected)
}

func isAnalyzerFailure(err error) (*analyzer.FailureError, bool) {
	var failure *analyzer.FailureError
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// CurrentUser reports the signed-in identity and role.
func (c *Controller) CurrentUser() (model.Identity, model.Role, bool) {
	return c.session.Current()
}
