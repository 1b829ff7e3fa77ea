package controller

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"noticeboard/internal/analyzer"
	"noticeboard/internal/feed"
	"noticeboard/internal/model"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(prefix string) int {
	n := 0
	for _, call := range l.snapshot() {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func (l *callLog) index(call string) int {
	for i, c := range l.snapshot() {
		if c == call {
			return i
		}
	}
	return -1
}

type fakeIdentity struct {
	log       *callLog
	accounts  map[string]model.Identity
	current   *model.Identity
	listeners []func(*model.Identity)
	endErr    error
}

func newFakeIdentity(log *callLog) *fakeIdentity {
	return &fakeIdentity{log: log, accounts: map[string]model.Identity{}}
}

func (f *fakeIdentity) CreateAccount(_ context.Context, email, _ string) (model.Identity, error) {
	f.log.add("identity.create %s", email)
	if _, exists := f.accounts[email]; exists {
		return model.Identity{}, errors.New("email already registered")
	}
	identity := model.Identity{UID: uuid.New(), Email: email}
	f.accounts[email] = identity
	f.current = &identity
	return identity, nil
}

func (f *fakeIdentity) Authenticate(_ context.Context, email, password string) (model.Identity, error) {
	f.log.add("identity.authenticate %s", email)
	identity, ok := f.accounts[email]
	if !ok || password == "wrong" {
		return model.Identity{}, errors.New("invalid credentials")
	}
	f.current = &identity
	return identity, nil
}

func (f *fakeIdentity) CurrentSession(context.Context) (*model.Identity, error) {
	f.log.add("identity.current")
	return f.current, nil
}

func (f *fakeIdentity) EndSession(context.Context) error {
	f.log.add("identity.end")
	if f.endErr != nil {
		return f.endErr
	}
	f.current = nil
	for _, listener := range f.listeners {
		listener(nil)
	}
	return nil
}

func (f *fakeIdentity) OnSessionChange(listener func(*model.Identity)) {
	f.listeners = append(f.listeners, listener)
}

type fakeProfiles struct {
	log       *callLog
	profiles  map[string]*model.Profile
	updateErr error
}

func newFakeProfiles(log *callLog) *fakeProfiles {
	return &fakeProfiles{log: log, profiles: map[string]*model.Profile{}}
}

func (f *fakeProfiles) Get(_ context.Context, userID string) (*model.Profile, error) {
	f.log.add("profiles.get")
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeProfiles) Set(_ context.Context, userID string, fields model.ProfileFields) error {
	f.log.add("profiles.set %s", fields.Role)
	f.profiles[userID] = &model.Profile{
		UserID:    uuid.MustParse(userID),
		Name:      fields.Name,
		Email:     fields.Email,
		Role:      fields.Role,
		FacultyID: fields.FacultyID,
		Status:    fields.Status,
	}
	return nil
}

func (f *fakeProfiles) Update(_ context.Context, userID string, update model.ProfileUpdate) error {
	f.log.add("profiles.update %s", *update.Status)
	if f.updateErr != nil {
		return f.updateErr
	}
	if profile, ok := f.profiles[userID]; ok {
		profile.Status = *update.Status
	}
	return nil
}

type fakeSubscription struct {
	ch     chan Snapshot
	closed chan struct{}
	once   sync.Once
}

func (s *fakeSubscription) Snapshots() <-chan Snapshot { return s.ch }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeNotices struct {
	log   *callLog
	mu    sync.Mutex
	added []model.Notice
	subs  []*fakeSubscription
	err   error
}

func (f *fakeNotices) Add(_ context.Context, notice model.Notice) error {
	f.log.add("notices.add %s", notice.Title)
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, notice)
	return nil
}

func (f *fakeNotices) Subscribe(context.Context) (Subscription, error) {
	f.log.add("notices.subscribe")
	sub := &fakeSubscription{ch: make(chan Snapshot, 4), closed: make(chan struct{})}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *fakeNotices) lastSub(t *testing.T) *fakeSubscription {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		t.Fatal("expected a notice subscription")
	}
	return f.subs[len(f.subs)-1]
}

type fakeAnalyzer struct {
	log      *callLog
	analysis model.Analysis
	err      error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analyzer.Request) (model.Analysis, error) {
	f.log.add("analyzer.analyze %s", req.Title)
	return f.analysis, f.err
}

type fakeView struct {
	log      *callLog
	mu       sync.Mutex
	alerts   []string
	previews []feed.Preview
	feeds    chan feed.Feed
}

func newFakeView(log *callLog) *fakeView {
	return &fakeView{log: log, feeds: make(chan feed.Feed, 16)}
}

func (v *fakeView) ShowAuth() { v.log.add("view.auth") }

func (v *fakeView) ShowApp(_ model.Identity, role model.Role) { v.log.add("view.app %s", role) }

func (v *fakeView) Alert(message string) {
	v.log.add("view.alert %s", message)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
}

func (v *fakeView) SetLoading(on bool) { v.log.add("view.loading %t", on) }

func (v *fakeView) ShowAnalysis(preview feed.Preview) {
	v.log.add("view.analysis")
	v.mu.Lock()
	defer v.mu.Unlock()
	v.previews = append(v.previews, preview)
}

func (v *fakeView) HideAnalysis() { v.log.add("view.hide_analysis") }

func (v *fakeView) ClearNoticeForm() { v.log.add("view.clear_form") }

func (v *fakeView) RenderFeed(f feed.Feed) { v.feeds <- f }

func (v *fakeView) lastAlert() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.alerts) == 0 {
		return ""
	}
	return v.alerts[len(v.alerts)-1]
}

func (v *fakeView) nextFeed(t *testing.T) feed.Feed {
	t.Helper()
	select {
	case f := <-v.feeds:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a feed render")
		return feed.Feed{}
	}
}

type fixture struct {
	log      *callLog
	identity *fakeIdentity
	profiles *fakeProfiles
	notices  *fakeNotices
	analyzer *fakeAnalyzer
	view     *fakeView
	ctrl     *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := &callLog{}
	f := &fixture{
		log:      log,
		identity: newFakeIdentity(log),
		profiles: newFakeProfiles(log),
		notices:  &fakeNotices{log: log},
		analyzer: &fakeAnalyzer{log: log},
		view:     newFakeView(log),
	}
	f.ctrl = New(Deps{
		Identity: f.identity,
		Profiles: f.profiles,
		Notices:  f.notices,
		Analyzer: f.analyzer,
		View:     f.view,
	}, Options{
		Faculty: NewFacultyAllowList([]string{"FAC001", "FAC002"}),
		Feed:    feed.Options{Location: time.UTC},
	})
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) signup(t *testing.T, email string, role model.Role) {
	t.Helper()
	in := SignupInput{Name: "Test User", Email: email, Password: "secret123", Role: role}
	if role == model.RoleFaculty {
		in.FacultyID = "FAC001"
	}
	if err := f.ctrl.Signup(context.Background(), in); err != nil {
		t.Fatalf("signup: %v", err)
	}
}

func TestSignupRejectsFacultyWithoutAllowListedID(t *testing.T) {
	tests := []struct {
		name      string
		facultyID string
		wantErr   error
		wantAlert string
	}{
		{name: "missing", facultyID: "  ", wantErr: ErrFacultyIDRequired, wantAlert: "Faculty ID is required"},
		{name: "unknown", facultyID: "FAC999", wantErr: ErrFacultyIDInvalid, wantAlert: "Invalid Faculty ID. Please contact your administrator."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.ctrl.Signup(context.Background(), SignupInput{
				Name:      "Prof",
				Email:     "prof@example.com",
				Password:  "secret123",
				Role:      model.RoleFaculty,
				FacultyID: tc.facultyID,
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if got := f.view.lastAlert(); got != tc.wantAlert {
				t.Fatalf("expected alert %q, got %q", tc.wantAlert, got)
			}
			if n := f.log.count("identity."); n != 0 {
				t.Fatalf("expected no identity calls, got %d", n)
			}
		})
	}
}

func TestSignupRequiresAllFields(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Signup(context.Background(), SignupInput{Email: "a@example.com", Password: "x", Role: model.RoleStudent})
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if got := f.view.lastAlert(); got != "Fill all fields" {
		t.Fatalf("unexpected alert %q", got)
	}
	if f.ctrl.State() != Unauthenticated {
		t.Fatal("expected to stay unauthenticated")
	}
}

func TestSignupStoresProfileAndEntersApp(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "prof@example.com", model.RoleFaculty)

	identity, role, ok := f.ctrl.Session().Current()
	if !ok || role != model.RoleFaculty {
		t.Fatalf("expected faculty session, got ok=%v role=%q", ok, role)
	}
	profile := f.profiles.profiles[identity.UID.String()]
	if profile == nil || profile.FacultyID == nil || *profile.FacultyID != "FAC001" {
		t.Fatalf("expected stored faculty id, got %+v", profile)
	}
	if profile.Status != model.StatusOnline {
		t.Fatalf("expected online status, got %q", profile.Status)
	}
	if f.log.index("view.alert Signup successful!") > f.log.index("view.app faculty") {
		t.Fatalf("expected success alert before the app view: %v", f.log.snapshot())
	}
}

func TestSignupSurfacesIdentityError(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "dup@example.com", model.RoleStudent)

	err := f.ctrl.Signup(context.Background(), SignupInput{Name: "Again", Email: "dup@example.com", Password: "secret123", Role: model.RoleStudent})
	if err == nil {
		t.Fatal("expected duplicate signup to fail")
	}
	if got := f.view.lastAlert(); got != "Error: email already registered" {
		t.Fatalf("unexpected alert %q", got)
	}
}

func TestLoginRoleMismatchEndsSession(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "student@example.com", model.RoleStudent)
	if err := f.ctrl.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	appViews := f.log.count("view.app")

	err := f.ctrl.Login(context.Background(), "student@example.com", "secret123", model.RoleFaculty)
	if !errors.Is(err, ErrRoleMismatch) {
		t.Fatalf("expected ErrRoleMismatch, got %v", err)
	}
	if got := f.view.lastAlert(); got != "You signed up as student, not faculty" {
		t.Fatalf("unexpected alert %q", got)
	}
	if f.identity.current != nil {
		t.Fatal("expected the remote session to be ended")
	}
	if f.log.count("view.app") != appViews {
		t.Fatal("app view must not be shown on role mismatch")
	}
	if f.ctrl.State() != Unauthenticated {
		t.Fatal("expected unauthenticated state")
	}
}

func TestLoginMissingProfile(t *testing.T) {
	f := newFixture(t)
	f.identity.accounts["ghost@example.com"] = model.Identity{UID: uuid.New(), Email: "ghost@example.com"}

	err := f.ctrl.Login(context.Background(), "ghost@example.com", "secret123", model.RoleStudent)
	if !errors.Is(err, ErrProfileMissing) {
		t.Fatalf("expected ErrProfileMissing, got %v", err)
	}
	if got := f.view.lastAlert(); got != "User data not found" {
		t.Fatalf("unexpected alert %q", got)
	}
	if f.identity.current != nil {
		t.Fatal("expected the remote session to be ended")
	}
}

func TestLoginMarksOnline(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "student@example.com", model.RoleStudent)
	if err := f.ctrl.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if err := f.ctrl.Login(context.Background(), "student@example.com", "secret123", model.RoleStudent); err != nil {
		t.Fatalf("login: %v", err)
	}
	identity, _, _ := f.ctrl.Session().Current()
	if status := f.profiles.profiles[identity.UID.String()].Status; status != model.StatusOnline {
		t.Fatalf("expected online, got %q", status)
	}

	if err := f.ctrl.Login(context.Background(), "student@example.com", "wrong", model.RoleStudent); err == nil {
		t.Fatal("expected bad password to fail")
	}
	if got := f.view.lastAlert(); got != "Error: invalid credentials" {
		t.Fatalf("unexpected alert %q", got)
	}
}

func TestPostNoticePersistsOnlyAfterAnalysis(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "prof@example.com", model.RoleFaculty)
	f.analyzer.err = &analyzer.FailureError{StatusCode: 500, Message: "model offline"}

	err := f.ctrl.PostNotice(context.Background(), "Exam", "CS101 exam moved", false)
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if got := f.view.lastAlert(); got != "Error: model offline" {
		t.Fatalf("unexpected alert %q", got)
	}

	f.analyzer.err = &analyzer.FailureError{StatusCode: 200}
	if err := f.ctrl.PostNotice(context.Background(), "Exam", "CS101 exam moved", false); !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if got := f.view.lastAlert(); got != "Error: analyzer failed with status 200" {
		t.Fatalf("expected status fallback when the analyzer gives no reason, got %q", got)
	}
	if n := f.log.count("notices.add"); n != 0 {
		t.Fatalf("expected no store write, got %d", n)
	}
	if n := f.log.count("view.analysis"); n != 0 {
		t.Fatal("analysis panel must stay hidden on failure")
	}

	f.analyzer.err = errors.New("connection refused")
	if err := f.ctrl.PostNotice(context.Background(), "Exam", "CS101 exam moved", false); err == nil {
		t.Fatal("expected network failure")
	}
	if got := f.view.lastAlert(); got != "Error posting notice: connection refused" {
		t.Fatalf("unexpected alert %q", got)
	}

	calls := f.log.snapshot()
	var loading []string
	for _, call := range calls {
		if strings.HasPrefix(call, "view.loading") {
			loading = append(loading, call)
		}
	}
	want := []string{"view.loading true", "view.loading false", "view.loading true", "view.loading false"}
	if !reflect.DeepEqual(loading, want) {
		t.Fatalf("expected loading toggled around each post, got %v", loading)
	}
}

func TestPostNoticeShowsPreviewBeforeWrite(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "prof@example.com", model.RoleFaculty)
	f.analyzer.analysis = model.Analysis{Category: "Academic", Importance: "high", Tags: []string{"exam", "cs101"}}

	if err := f.ctrl.PostNotice(context.Background(), "Exam", "CS101 exam moved", true); err != nil {
		t.Fatalf("post notice: %v", err)
	}

	want := feed.Preview{Category: "Academic", Importance: "high", Tags: "exam, cs101"}
	if len(f.view.previews) != 1 || f.view.previews[0] != want {
		t.Fatalf("unexpected previews %+v", f.view.previews)
	}
	if f.log.index("view.analysis") > f.log.index("notices.add Exam") {
		t.Fatalf("expected preview before the store write: %v", f.log.snapshot())
	}
	if got := f.view.lastAlert(); got != "Notice posted successfully!" {
		t.Fatalf("unexpected alert %q", got)
	}

	identity, _, _ := f.ctrl.Session().Current()
	stored := f.notices.added[0]
	if stored.CreatedBy != identity.UID || stored.CreatedByEmail != "prof@example.com" || !stored.IsEvent {
		t.Fatalf("unexpected stored notice %+v", stored)
	}
	if stored.Category != "Academic" || stored.Importance != "high" {
		t.Fatalf("expected analysis on stored notice, got %+v", stored)
	}
}

func TestPostNoticeStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "prof@example.com", model.RoleFaculty)
	f.analyzer.analysis = model.Analysis{Category: "Other", Importance: "low", Tags: []string{}}
	f.notices.err = errors.New("permission denied")

	if err := f.ctrl.PostNotice(context.Background(), "Hi", "Hello", false); err == nil {
		t.Fatal("expected store failure")
	}
	if got := f.view.lastAlert(); got != "Error posting notice: permission denied" {
		t.Fatalf("unexpected alert %q", got)
	}
	if f.log.count("view.clear_form") != 0 {
		t.Fatal("form must be kept when the write fails")
	}
}

func TestPostNoticeRequiresSession(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.PostNotice(context.Background(), "t", "c", false); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if f.log.count("analyzer.") != 0 {
		t.Fatal("analyzer must not be called without a session")
	}
}

func TestFeedRendersPlaceholderForEmptySnapshot(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "student@example.com", model.RoleStudent)

	f.notices.lastSub(t).ch <- Snapshot{}
	rendered := f.view.nextFeed(t)
	if rendered.Placeholder != feed.PlaceholderEmpty || !rendered.Empty() {
		t.Fatalf("expected empty placeholder only, got %+v", rendered)
	}

	f.notices.lastSub(t).ch <- Snapshot{Err: errors.New("denied")}
	if rendered := f.view.nextFeed(t); rendered.Placeholder != feed.PlaceholderError {
		t.Fatalf("expected error placeholder, got %+v", rendered)
	}
}

func TestFeedRendersNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "student@example.com", model.RoleStudent)

	older := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	f.notices.lastSub(t).ch <- Snapshot{Notices: []model.Notice{
		{Title: "old", Timestamp: &older, Tags: []string{}},
		{Title: "new", Timestamp: &newer, Tags: []string{}},
	}}

	rendered := f.view.nextFeed(t)
	if len(rendered.Cards) != 2 || rendered.Cards[0].Title != "new" || rendered.Cards[1].Title != "old" {
		t.Fatalf("expected newest first, got %+v", rendered.Cards)
	}
	if rendered.Placeholder != "" {
		t.Fatalf("expected no placeholder, got %q", rendered.Placeholder)
	}
}

func TestLogoutOrder(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "student@example.com", model.RoleStudent)
	sub := f.notices.lastSub(t)
	start := len(f.log.snapshot())

	if err := f.ctrl.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	got := f.log.snapshot()[start:]
	want := []string{
		"profiles.update offline",
		"identity.end",
		"view.auth",
		"view.alert Logged out successfully",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if _, _, ok := f.ctrl.Session().Current(); ok {
		t.Fatal("expected session cleared")
	}
	select {
	case <-sub.closed:
	default:
		t.Fatal("expected the feed subscription to be closed")
	}
}

func TestLogoutStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "student@example.com", model.RoleStudent)
	f.profiles.updateErr = errors.New("unavailable")

	if err := f.ctrl.Logout(context.Background()); err == nil {
		t.Fatal("expected logout to fail")
	}
	if f.log.count("identity.end") != 0 {
		t.Fatal("session must not be ended after a failed status write")
	}
	if f.ctrl.State() != Authenticated {
		t.Fatal("expected to stay authenticated")
	}
}

func TestRestore(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		f := newFixture(t)
		if err := f.ctrl.Restore(context.Background()); err != nil {
			t.Fatalf("restore: %v", err)
		}
		if f.log.count("view.auth") != 1 || f.ctrl.State() != Unauthenticated {
			t.Fatalf("expected auth view, got %v", f.log.snapshot())
		}
	})

	t.Run("missing profile", func(t *testing.T) {
		f := newFixture(t)
		identity := model.Identity{UID: uuid.New(), Email: "ghost@example.com"}
		f.identity.current = &identity

		if err := f.ctrl.Restore(context.Background()); !errors.Is(err, ErrProfileMissing) {
			t.Fatalf("expected ErrProfileMissing, got %v", err)
		}
		if f.identity.current != nil || f.log.count("identity.end") != 1 {
			t.Fatal("expected the dangling session to be ended")
		}
		if f.log.count("view.app") != 0 {
			t.Fatal("app view must not be shown")
		}
	})

	t.Run("existing session", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "prof@example.com", model.RoleFaculty)
		f.ctrl.Close()

		restored := New(Deps{
			Identity: f.identity,
			Profiles: f.profiles,
			Notices:  f.notices,
			Analyzer: f.analyzer,
			View:     f.view,
		}, Options{})
		defer restored.Close()

		if err := restored.Restore(context.Background()); err != nil {
			t.Fatalf("restore: %v", err)
		}
		if _, role, ok := restored.Session().Current(); !ok || role != model.RoleFaculty {
			t.Fatalf("expected restored faculty session, got ok=%v role=%q", ok, role)
		}
		if f.log.count("profiles.update") != 0 {
			t.Fatal("restore must not touch the status")
		}
	})
}

func TestExternalSignOutStopsFeed(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "student@example.com", model.RoleStudent)
	sub := f.notices.lastSub(t)

	for _, listener := range f.identity.listeners {
		listener(nil)
	}

	if f.ctrl.State() != Unauthenticated {
		t.Fatal("expected unauthenticated state")
	}
	select {
	case <-sub.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the feed subscription to be closed")
	}

	// A late snapshot must not be rendered after sign-out.
	sub.ch <- Snapshot{}
	select {
	case rendered := <-f.view.feeds:
		t.Fatalf("unexpected render after sign-out: %+v", rendered)
	case <-time.After(50 * time.Millisecond):
	}
}
