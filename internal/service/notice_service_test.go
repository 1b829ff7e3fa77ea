package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"noticeboard/internal/changefeed"
	"noticeboard/internal/model"
	"noticeboard/internal/repository"
	"noticeboard/internal/repository/memory"
	"noticeboard/internal/sse"
)

func newTestNoticeService(t *testing.T, opts NoticeOptions) (*NoticeService, *memory.Store, *sse.SSEHub) {
	t.Helper()

	store := memory.NewStore()
	hub := sse.NewHub(nil)
	t.Cleanup(hub.Close)

	svc := NewNoticeService(store.Notices, store.Profiles, store.Audit, changefeed.NewLocal(nil), hub, opts, nil)
	return svc, store, hub
}

func validDraft() model.NoticeDraft {
	return model.NoticeDraft{
		Title:      "Midterm",
		Content:    "Room 204",
		Category:   "Academic",
		Importance: "high",
		Tags:       []string{"exam", "cs101"},
	}
}

func TestNoticeCreate_RequiresAnalysis(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestNoticeService(t, NoticeOptions{})
	author := model.Identity{UID: uuid.New(), Email: "rao@example.com"}

	draft := validDraft()
	draft.Category = ""
	if _, err := svc.Create(context.Background(), author, draft); !errors.Is(err, ErrInvalidNotice) {
		t.Fatalf("expected ErrInvalidNotice, got %v", err)
	}

	draft = validDraft()
	draft.Tags = nil
	if _, err := svc.Create(context.Background(), author, draft); !errors.Is(err, ErrInvalidNotice) {
		t.Fatalf("expected ErrInvalidNotice for nil tags, got %v", err)
	}

	draft = validDraft()
	draft.Title = "  "
	if _, err := svc.Create(context.Background(), author, draft); !errors.Is(err, ErrInvalidNotice) {
		t.Fatalf("expected ErrInvalidNotice for blank title, got %v", err)
	}
}

func TestNoticeCreate_StampsAuthorAndTimestamp(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestNoticeService(t, NoticeOptions{})
	author := model.Identity{UID: uuid.New(), Email: "rao@example.com"}

	notice, err := svc.Create(context.Background(), author, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if notice.CreatedBy != author.UID || notice.CreatedByEmail != author.Email {
		t.Fatalf("author not recorded: %+v", notice)
	}
	if notice.Timestamp == nil || notice.CreatedAt.IsZero() {
		t.Fatalf("timestamps not assigned: %+v", notice)
	}
}

func TestNoticeCreate_KeepsTextAsPosted(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestNoticeService(t, NoticeOptions{})
	author := model.Identity{UID: uuid.New(), Email: "rao@example.com"}
	ctx := context.Background()

	draft := model.NoticeDraft{
		Title:      "Bring <laptop> to lab",
		Content:    "Marks: x<y and a>b, use <stdio.h> & R&D notes",
		Category:   "Academic",
		Importance: "medium",
		Tags:       []string{"C++", "<tag>"},
	}
	if _, err := svc.Create(ctx, author, draft); err != nil {
		t.Fatalf("Create: %v", err)
	}
	markupOnly := validDraft()
	markupOnly.Title = "<b>"
	if _, err := svc.Create(ctx, author, markupOnly); err != nil {
		t.Fatalf("expected markup-only title to be accepted, got %v", err)
	}

	snapshot, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	var stored *model.Notice
	for _, notice := range snapshot {
		if notice.Category == "Academic" && notice.Importance == "medium" {
			stored = notice
		}
	}
	if stored == nil {
		t.Fatal("posted notice missing from snapshot")
	}
	if stored.Title != draft.Title || stored.Content != draft.Content {
		t.Fatalf("text changed on store: title=%q content=%q", stored.Title, stored.Content)
	}
	if len(stored.Tags) != 2 || stored.Tags[0] != "C++" || stored.Tags[1] != "<tag>" {
		t.Fatalf("tags changed on store: %v", stored.Tags)
	}
}

func TestNoticeSubscribe_InitialAndChangeSnapshots(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestNoticeService(t, NoticeOptions{})
	ctx := context.Background()

	client, err := svc.Subscribe(ctx, "viewer")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer svc.Unsubscribe(client)

	if got := readSnapshot(t, client); len(got) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d notices", len(got))
	}

	author := model.Identity{UID: uuid.New(), Email: "rao@example.com"}
	if _, err := svc.Create(ctx, author, validDraft()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got := readSnapshot(t, client)
	if len(got) != 1 || got[0].Title != "Midterm" {
		t.Fatalf("unexpected snapshot after create: %+v", got)
	}
}

func TestNoticeCreate_EnforcesFacultyRoleWhenEnabled(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestNoticeService(t, NoticeOptions{EnforceFacultyRole: true})
	ctx := context.Background()

	author := model.Identity{UID: uuid.New(), Email: "asha@example.com"}
	if err := store.Profiles.Create(ctx, &model.Profile{
		UserID: author.UID,
		Name:   "Asha",
		Email:  author.Email,
		Role:   model.RoleStudent,
		Status: model.StatusOnline,
	}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	if _, err := svc.Create(ctx, author, validDraft()); !errors.Is(err, ErrNoticeForbidden) {
		t.Fatalf("expected ErrNoticeForbidden, got %v", err)
	}
}

func TestNoticeSearch(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestNoticeService(t, NoticeOptions{})
	ctx := context.Background()
	author := model.Identity{UID: uuid.New(), Email: "rao@example.com"}

	if _, err := svc.Create(ctx, author, validDraft()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	other := validDraft()
	other.Title = "Hackathon"
	other.Content = "Register by Friday"
	other.Tags = []string{"event"}
	if _, err := svc.Create(ctx, author, other); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := svc.Search(ctx, "cs101", repository.Pagination{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Midterm" {
		t.Fatalf("unexpected search result: %+v", found)
	}

	if _, err := svc.Search(ctx, " ", repository.Pagination{}); !errors.Is(err, ErrInvalidNoticeQuery) {
		t.Fatalf("expected ErrInvalidNoticeQuery, got %v", err)
	}
}

func readSnapshot(t *testing.T, client *sse.SSEClient) []model.Notice {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-client.Ch:
			if event.Type != sse.EventNoticeSnapshot {
				continue
			}
			var notices []model.Notice
			if err := json.Unmarshal(event.Data, &notices); err != nil {
				t.Fatalf("decode snapshot: %v", err)
			}
			return notices
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}
