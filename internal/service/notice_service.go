package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"noticeboard/internal/changefeed"
	"noticeboard/internal/metrics"
	"noticeboard/internal/model"
	"noticeboard/internal/repository"
	"noticeboard/internal/sse"
)

const (
	noticeSearchDefaultSize = 20
	noticeSearchMaxSize     = 200
	snapshotLoadTimeout     = 10 * time.Second
)

type NoticeOptions struct {
	// EnforceFacultyRole rejects posts from non-faculty accounts. Off by
	// default; clients only offer posting to faculty.
	EnforceFacultyRole bool
	// Origin identifies this hub replica in published changes.
	Origin string
}

type NoticeService struct {
	notices  repository.NoticeRepository
	profiles repository.ProfileRepository
	audit    auditWriter
	feed     changefeed.Feed
	hub      *sse.SSEHub
	opts     NoticeOptions
	logger   *zap.Logger
	now      func() time.Time

	// snapshotMu orders snapshot deliveries so a new connection never
	// receives an older snapshot after a newer broadcast.
	snapshotMu sync.Mutex
}

func NewNoticeService(
	notices repository.NoticeRepository,
	profiles repository.ProfileRepository,
	auditRepo repository.AuditRepository,
	feed changefeed.Feed,
	hub *sse.SSEHub,
	opts NoticeOptions,
	logger *zap.Logger,
) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &NoticeService{
		notices:  notices,
		profiles: profiles,
		audit:    auditWriter{repo: auditRepo, logger: logger},
		feed:     feed,
		hub:      hub,
		opts:     opts,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if feed != nil {
		feed.Subscribe(s.onChange)
	}
	return s
}

// Create persists a notice for author. The draft must carry the analyzer's
// verdict; the store assigns the timestamps.
func (s *NoticeService) Create(ctx context.Context, author model.Identity, draft model.NoticeDraft) (*model.Notice, error) {
	notice, err := buildNotice(author, draft, s.now())
	if err != nil {
		return nil, err
	}

	if s.opts.EnforceFacultyRole {
		if err := s.requireFaculty(ctx, author); err != nil {
			return nil, err
		}
	}

	if err := s.notices.Create(ctx, notice); err != nil {
		return nil, err
	}
	metrics.IncNoticesCreated()

	s.audit.write(ctx, &author.UID, model.AuditNoticeCreate, "notice", notice.ID.String(), map[string]interface{}{
		"title":      notice.Title,
		"category":   notice.Category,
		"importance": notice.Importance,
		"tags":       notice.Tags,
	})
	s.publish(ctx, notice)

	return notice, nil
}

// Snapshot returns every notice, newest first.
func (s *NoticeService) Snapshot(ctx context.Context) ([]*model.Notice, error) {
	return s.notices.ListAll(ctx)
}

func (s *NoticeService) Search(ctx context.Context, query string, page repository.Pagination) ([]*model.Notice, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidNoticeQuery
	}
	if page.Limit <= 0 {
		page.Limit = noticeSearchDefaultSize
	}
	if page.Limit > noticeSearchMaxSize {
		page.Limit = noticeSearchMaxSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return s.notices.Search(ctx, query, page)
}

func (s *NoticeService) Count(ctx context.Context) (int64, error) {
	return s.notices.Count(ctx)
}

// Subscribe registers a live feed connection and queues the current snapshot
// for it. Every later change delivers a fresh full snapshot.
func (s *NoticeService) Subscribe(ctx context.Context, userID string) (*sse.SSEClient, error) {
	if s.hub == nil {
		return nil, errors.New("feed hub is nil")
	}

	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()

	client := sse.NewClient(userID)
	s.hub.Register(client)

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		s.hub.Unregister(client.ID)
		return nil, err
	}
	s.hub.SendToClient(client.ID, snapshotEvent(snapshot))

	return client, nil
}

// FeedConnections counts live feed connections on this replica.
func (s *NoticeService) FeedConnections() int {
	return s.hub.ConnectedCount()
}

func (s *NoticeService) Unsubscribe(client *sse.SSEClient) {
	if s.hub == nil || client == nil {
		return
	}
	s.hub.Unregister(client.ID)
}

// BroadcastSnapshot loads the collection once and pushes it to every
// connection on this replica.
func (s *NoticeService) BroadcastSnapshot(ctx context.Context) error {
	if s.hub == nil {
		return nil
	}

	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()

	startedAt := time.Now()
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	s.hub.Broadcast(snapshotEvent(snapshot))
	metrics.ObserveSnapshotBuild(time.Since(startedAt))
	return nil
}

func (s *NoticeService) publish(ctx context.Context, notice *model.Notice) {
	if s.feed == nil {
		if err := s.BroadcastSnapshot(ctx); err != nil {
			s.logger.Warn("broadcast notice snapshot failed", zap.Error(err))
		}
		return
	}

	change := changefeed.Change{
		NoticeID: notice.ID.String(),
		Action:   "create",
		Origin:   s.opts.Origin,
		At:       notice.CreatedAt,
	}
	if err := s.feed.Publish(ctx, change); err != nil {
		s.logger.Warn("publish notice change failed",
			zap.String("notice_id", change.NoticeID),
			zap.Error(err),
		)
		// Local connections still get the update.
		if err := s.BroadcastSnapshot(ctx); err != nil {
			s.logger.Warn("broadcast notice snapshot failed", zap.Error(err))
		}
	}
}

func (s *NoticeService) onChange(change changefeed.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotLoadTimeout)
	defer cancel()

	if err := s.BroadcastSnapshot(ctx); err != nil {
		s.logger.Warn("broadcast notice snapshot failed",
			zap.String("notice_id", change.NoticeID),
			zap.Error(err),
		)
	}
}

func (s *NoticeService) requireFaculty(ctx context.Context, author model.Identity) error {
	if s.profiles == nil {
		return ErrNoticeForbidden
	}
	profile, err := s.profiles.FindByUserID(ctx, author.UID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoticeForbidden
		}
		return err
	}
	if profile.Role != model.RoleFaculty {
		return ErrNoticeForbidden
	}
	return nil
}

func buildNotice(author model.Identity, draft model.NoticeDraft, now time.Time) (*model.Notice, error) {
	if author.UID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	for _, field := range []string{draft.Title, draft.Content, draft.Category, draft.Importance} {
		if strings.TrimSpace(field) == "" {
			return nil, ErrInvalidNotice
		}
	}
	if draft.Tags == nil {
		return nil, ErrInvalidNotice
	}

	// Text is stored as posted. The analysis was computed over these exact
	// strings, and readers escape for their own output.
	ts := now
	return &model.Notice{
		Title:          draft.Title,
		Content:        draft.Content,
		IsEvent:        draft.IsEvent,
		Category:       draft.Category,
		Importance:     draft.Importance,
		Tags:           append([]string{}, draft.Tags...),
		CreatedBy:      author.UID,
		CreatedByEmail: author.Email,
		CreatedAt:      now,
		Timestamp:      &ts,
	}, nil
}

func snapshotEvent(snapshot []*model.Notice) sse.SSEEvent {
	return sse.SnapshotEvent(snapshot)
}
