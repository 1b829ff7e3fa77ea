package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"noticeboard/internal/controller"
	"noticeboard/internal/feed"
	"noticeboard/internal/model"
)

type fakeController struct {
	identity *model.Identity
	role     model.Role

	signups []controller.SignupInput
	logins  []string
	posts   []string
	logouts int
}

func (f *fakeController) Signup(_ context.Context, in controller.SignupInput) error {
	f.signups = append(f.signups, in)
	f.identity = &model.Identity{UID: uuid.New(), Email: in.Email}
	f.role = in.Role
	return nil
}

func (f *fakeController) Login(_ context.Context, email, password string, role model.Role) error {
	f.logins = append(f.logins, email+"/"+password+"/"+string(role))
	f.identity = &model.Identity{UID: uuid.New(), Email: email}
	f.role = role
	return nil
}

func (f *fakeController) Logout(context.Context) error {
	f.logouts++
	f.identity = nil
	return nil
}

func (f *fakeController) PostNotice(_ context.Context, title, content string, isEvent bool) error {
	post := title + "/" + content
	if isEvent {
		post += "/event"
	}
	f.posts = append(f.posts, post)
	return nil
}

func (f *fakeController) CurrentUser() (model.Identity, model.Role, bool) {
	if f.identity == nil {
		return model.Identity{}, "", false
	}
	return *f.identity, f.role, true
}

type fakeBoard struct {
	queries []string
	results []model.Notice
	listed  []model.Notice
	listErr error
}

func (f *fakeBoard) List(context.Context) ([]model.Notice, error) {
	return f.listed, f.listErr
}

func (f *fakeBoard) Search(_ context.Context, query string, _, _ int) ([]model.Notice, error) {
	f.queries = append(f.queries, query)
	return f.results, nil
}

func runShell(t *testing.T, ctrl *fakeController, board *fakeBoard, input string) string {
	t.Helper()

	var out bytes.Buffer
	shell := NewShell(ctrl, board, NewView(&out, ViewOptions{}), ShellOptions{
		In:  strings.NewReader(input),
		Out: &out,
	})
	if err := shell.Run(context.Background()); err != nil {
		t.Fatalf("run shell: %v", err)
	}
	return out.String()
}

func TestShellSignupCollectsFacultyID(t *testing.T) {
	ctrl := &fakeController{}
	runShell(t, ctrl, &fakeBoard{}, "signup\nProf X\nprof@x.edu\nsecret123\nfaculty\nFAC001\nquit\n")

	if len(ctrl.signups) != 1 {
		t.Fatalf("expected one signup, got %d", len(ctrl.signups))
	}
	want := controller.SignupInput{Name: "Prof X", Email: "prof@x.edu", Password: "secret123", Role: model.RoleFaculty, FacultyID: "FAC001"}
	if ctrl.signups[0] != want {
		t.Fatalf("expected %+v, got %+v", want, ctrl.signups[0])
	}
}

func TestShellLoginRepromptsForBadRole(t *testing.T) {
	ctrl := &fakeController{}
	out := runShell(t, ctrl, &fakeBoard{}, "login\ns@x.edu\npw\nadmin\nStudent\nwhoami\n")

	if len(ctrl.logins) != 1 || ctrl.logins[0] != "s@x.edu/pw/student" {
		t.Fatalf("unexpected logins %v", ctrl.logins)
	}
	if !strings.Contains(out, "Role must be student or faculty.") {
		t.Fatalf("expected role re-prompt, got %q", out)
	}
	if !strings.Contains(out, "s@x.edu (student)") {
		t.Fatalf("expected whoami output, got %q", out)
	}
}

func TestShellPostIsFacultyOnly(t *testing.T) {
	student := &fakeController{identity: &model.Identity{Email: "s@x.edu"}, role: model.RoleStudent}
	out := runShell(t, student, &fakeBoard{}, "post\n")
	if len(student.posts) != 0 || !strings.Contains(out, msgFacultyOnly) {
		t.Fatalf("expected post refused for student, got posts=%v out=%q", student.posts, out)
	}

	faculty := &fakeController{identity: &model.Identity{Email: "f@x.edu"}, role: model.RoleFaculty}
	runShell(t, faculty, &fakeBoard{}, "post\nFair\nCareer fair on Monday\ny\n")
	if len(faculty.posts) != 1 || faculty.posts[0] != "Fair/Career fair on Monday/event" {
		t.Fatalf("unexpected posts %v", faculty.posts)
	}
}

func TestShellSearchRendersResults(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ctrl := &fakeController{identity: &model.Identity{Email: "s@x.edu"}, role: model.RoleStudent}
	board := &fakeBoard{results: []model.Notice{{Title: "Hackathon", Content: "Join us", Category: "Event", Importance: "medium", Tags: []string{}, Timestamp: &ts}}}

	out := runShell(t, ctrl, board, "search hack\nsearch\n")
	if len(board.queries) != 1 || board.queries[0] != "hack" {
		t.Fatalf("unexpected queries %v", board.queries)
	}
	if !strings.Contains(out, "Hackathon") || !strings.Contains(out, "Usage: search <text>") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestShellMisc(t *testing.T) {
	ctrl := &fakeController{}
	out := runShell(t, ctrl, &fakeBoard{}, "\nfrobnicate\nlogout\nhelp\nexit\nwhoami\n")

	if ctrl.logouts != 0 {
		t.Fatal("logout must not reach the controller without a session")
	}
	if !strings.Contains(out, msgUnknownPrefix+"frobnicate") {
		t.Fatalf("expected unknown command message, got %q", out)
	}
	if !strings.Contains(out, "search <text>") {
		t.Fatalf("expected help listing, got %q", out)
	}
	if strings.Count(out, msgNotSignedIn) != 1 {
		t.Fatalf("expected the shell to stop at exit, got %q", out)
	}
}

func TestShellRefreshRendersBoard(t *testing.T) {
	ctrl := &fakeController{identity: &model.Identity{UID: uuid.New(), Email: "s@x.edu"}, role: model.RoleStudent}
	ts := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	board := &fakeBoard{listed: []model.Notice{{Title: "Library hours", Content: "Open till 10", Category: "General", Importance: "low", Tags: []string{}, Timestamp: &ts}}}

	out := runShell(t, ctrl, board, "refresh\n")
	if !strings.Contains(out, "Library hours") {
		t.Fatalf("expected listed notice in output:\n%s", out)
	}

	board = &fakeBoard{listErr: errors.New("hub unreachable")}
	out = runShell(t, ctrl, board, "refresh\n")
	if !strings.Contains(out, feed.PlaceholderError) {
		t.Fatalf("expected error placeholder, got:\n%s", out)
	}
}

func TestShellStopsOnCancelWhileWaitingForInput(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	var out bytes.Buffer
	shell := NewShell(&fakeController{}, &fakeBoard{}, NewView(&out, ViewOptions{}), ShellOptions{
		In:  reader,
		Out: &out,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- shell.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shell kept waiting for input after cancel")
	}
}
