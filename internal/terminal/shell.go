package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"noticeboard/internal/controller"
	"noticeboard/internal/feed"
	"noticeboard/internal/model"
)

const (
	prompt           = "noticeboard> "
	searchPageSize   = 20
	msgFacultyOnly   = "Only faculty can post notices."
	msgNotSignedIn   = "Not signed in."
	msgAlreadyIn     = "Already signed in. Use 'logout' first."
	msgUnknownPrefix = "Unknown command: "
)

// Controller is the part of the controller the shell drives.
type Controller interface {
	Signup(ctx context.Context, in controller.SignupInput) error
	Login(ctx context.Context, email, password string, role model.Role) error
	Logout(ctx context.Context) error
	PostNotice(ctx context.Context, title, content string, isEvent bool) error
	CurrentUser() (model.Identity, model.Role, bool)
}

// Board reads notices from the hub outside the live feed.
type Board interface {
	List(ctx context.Context) ([]model.Notice, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]model.Notice, error)
}

type ShellOptions struct {
	In     io.Reader
	Out    io.Writer
	Feed   feed.Options
	Logger *zap.Logger
}

type Shell struct {
	ctrl     Controller
	board    Board
	view     *View
	feedOpts feed.Options
	logger   *zap.Logger

	in       *bufio.Scanner
	out      io.Writer
	secretFD int
	// pending holds the scan in flight. Only one runs at a time, and one left
	// over from a cancelled prompt is picked up by the next.
	pending chan scanResult
}

type scanResult struct {
	text string
	ok   bool
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, args string) error
}

var errQuit = errors.New("quit")

func NewShell(ctrl Controller, board Board, view *View, opts ShellOptions) *Shell {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	secretFD := -1
	if file, ok := opts.In.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		secretFD = int(file.Fd())
	}

	return &Shell{
		ctrl:     ctrl,
		board:    board,
		view:     view,
		feedOpts: opts.Feed,
		logger:   opts.Logger,
		in:       bufio.NewScanner(opts.In),
		out:      opts.Out,
		secretFD: secretFD,
	}
}

// Run reads commands until quit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	commands := s.commands()
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, ok := s.readLine(ctx, prompt)
		if !ok {
			if ctx.Err() != nil {
				s.println("")
				return nil
			}
			return s.in.Err()
		}
		name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
		if name == "" {
			continue
		}

		cmd, found := lookup(commands, strings.ToLower(name))
		if !found {
			s.printf("%s%s (try 'help')\n", msgUnknownPrefix, name)
			continue
		}

		err := cmd.run(ctx, strings.TrimSpace(args))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			// The controller has already shown the failure.
			s.logger.Debug("command failed", zap.String("command", cmd.name), zap.Error(err))
		}
	}
}

func (s *Shell) commands() []command {
	return []command{
		{name: "signup", summary: "create an account", run: s.signup},
		{name: "login", summary: "sign in", run: s.login},
		{name: "logout", summary: "sign out", run: s.logout},
		{name: "post", summary: "publish a notice (faculty)", run: s.post},
		{name: "search", usage: "search <text>", summary: "find notices", run: s.search},
		{name: "refresh", summary: "reload the whole board", run: s.refresh},
		{name: "whoami", summary: "show the signed-in user", run: s.whoami},
		{name: "help", summary: "list commands", run: s.help},
		{name: "quit", summary: "leave the shell", run: func(context.Context, string) error { return errQuit }},
	}
}

func lookup(commands []command, name string) (command, bool) {
	if name == "exit" {
		name = "quit"
	}
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func (s *Shell) signup(ctx context.Context, _ string) error {
	if _, _, ok := s.ctrl.CurrentUser(); ok {
		s.println(msgAlreadyIn)
		return nil
	}

	var in controller.SignupInput
	fields := []struct {
		prompt string
		dest   *string
		secret bool
	}{
		{prompt: "Name: ", dest: &in.Name},
		{prompt: "Email: ", dest: &in.Email},
		{prompt: "Password: ", dest: &in.Password, secret: true},
	}
	for _, field := range fields {
		value, ok := s.ask(ctx, field.prompt, field.secret)
		if !ok {
			return io.EOF
		}
		*field.dest = value
	}

	role, ok := s.askRole(ctx)
	if !ok {
		return io.EOF
	}
	in.Role = role
	if role == model.RoleFaculty {
		if in.FacultyID, ok = s.ask(ctx, "Faculty ID: ", false); !ok {
			return io.EOF
		}
	}
	return s.ctrl.Signup(ctx, in)
}

func (s *Shell) login(ctx context.Context, _ string) error {
	if _, _, ok := s.ctrl.CurrentUser(); ok {
		s.println(msgAlreadyIn)
		return nil
	}

	email, ok := s.ask(ctx, "Email: ", false)
	if !ok {
		return io.EOF
	}
	password, ok := s.ask(ctx, "Password: ", true)
	if !ok {
		return io.EOF
	}
	role, ok := s.askRole(ctx)
	if !ok {
		return io.EOF
	}
	return s.ctrl.Login(ctx, email, password, role)
}

func (s *Shell) logout(ctx context.Context, _ string) error {
	if _, _, ok := s.ctrl.CurrentUser(); !ok {
		s.println(msgNotSignedIn)
		return nil
	}
	return s.ctrl.Logout(ctx)
}

func (s *Shell) post(ctx context.Context, _ string) error {
	_, role, ok := s.ctrl.CurrentUser()
	if !ok {
		s.println(msgNotSignedIn)
		return nil
	}
	if role != model.RoleFaculty {
		s.println(msgFacultyOnly)
		return nil
	}

	title, ok := s.ask(ctx, "Title: ", false)
	if !ok {
		return io.EOF
	}
	content, ok := s.ask(ctx, "Content: ", false)
	if !ok {
		return io.EOF
	}
	event, ok := s.ask(ctx, "Event? [y/N]: ", false)
	if !ok {
		return io.EOF
	}
	return s.ctrl.PostNotice(ctx, title, content, isYes(event))
}

func (s *Shell) search(ctx context.Context, query string) error {
	if _, _, ok := s.ctrl.CurrentUser(); !ok {
		s.println(msgNotSignedIn)
		return nil
	}
	if query == "" {
		s.println("Usage: search <text>")
		return nil
	}

	notices, err := s.board.Search(ctx, query, 1, searchPageSize)
	if err != nil {
		s.view.Alert("Error: " + err.Error())
		return err
	}
	s.view.RenderResults(query, feed.Build(notices, s.feedOpts))
	return nil
}

// refresh fetches the board directly, for when the live feed has fallen
// behind or reported an error.
func (s *Shell) refresh(ctx context.Context, _ string) error {
	if _, _, ok := s.ctrl.CurrentUser(); !ok {
		s.println(msgNotSignedIn)
		return nil
	}

	notices, err := s.board.List(ctx)
	if err != nil {
		s.view.RenderFeed(feed.Failed())
		return err
	}
	s.view.RenderFeed(feed.Build(notices, s.feedOpts))
	return nil
}

func (s *Shell) whoami(context.Context, string) error {
	identity, role, ok := s.ctrl.CurrentUser()
	if !ok {
		s.println(msgNotSignedIn)
		return nil
	}
	s.printf("%s (%s)\n", identity.Email, role)
	return nil
}

func (s *Shell) help(context.Context, string) error {
	for _, cmd := range s.commands() {
		usage := cmd.usage
		if usage == "" {
			usage = cmd.name
		}
		s.printf("  %-16s %s\n", usage, cmd.summary)
	}
	return nil
}

func (s *Shell) askRole(ctx context.Context) (model.Role, bool) {
	for {
		value, ok := s.ask(ctx, "Role [student/faculty]: ", false)
		if !ok {
			return "", false
		}
		role := model.Role(strings.ToLower(value))
		if value == "" || role.Valid() {
			return role, true
		}
		s.println("Role must be student or faculty.")
	}
}

// ask reads one answer. Secrets are read without echo when the input is a
// terminal.
func (s *Shell) ask(ctx context.Context, label string, secret bool) (string, bool) {
	if secret && s.secretFD >= 0 {
		return s.readSecret(ctx, label)
	}

	line, ok := s.readLine(ctx, label)
	if !ok {
		return "", false
	}
	if secret {
		return line, true
	}
	return strings.TrimSpace(line), true
}

// readLine waits for the next line or for ctx, so Ctrl-C at a prompt ends the
// shell without waiting for Enter.
func (s *Shell) readLine(ctx context.Context, label string) (string, bool) {
	s.printf("%s", label)
	if s.pending == nil {
		pending := make(chan scanResult, 1)
		go func() {
			ok := s.in.Scan()
			pending <- scanResult{text: s.in.Text(), ok: ok}
		}()
		s.pending = pending
	}

	select {
	case <-ctx.Done():
		return "", false
	case res := <-s.pending:
		s.pending = nil
		if !res.ok {
			return "", false
		}
		return strings.TrimRight(res.text, "\r"), true
	}
}

// readSecret reads a password with echo off. Cancelling restores the
// terminal before returning.
func (s *Shell) readSecret(ctx context.Context, label string) (string, bool) {
	state, err := term.GetState(s.secretFD)
	if err != nil {
		s.logger.Warn("read terminal state failed", zap.Error(err))
		return "", false
	}

	s.printf("%s", label)
	done := make(chan scanResult, 1)
	go func() {
		raw, err := term.ReadPassword(s.secretFD)
		if err != nil {
			s.logger.Warn("read password failed", zap.Error(err))
		}
		done <- scanResult{text: string(raw), ok: err == nil}
	}()

	select {
	case <-ctx.Done():
		if err := term.Restore(s.secretFD, state); err != nil {
			s.logger.Warn("restore terminal failed", zap.Error(err))
		}
		s.println("")
		return "", false
	case res := <-done:
		s.println("")
		return res.text, res.ok
	}
}

func (s *Shell) println(text string) {
	_, _ = fmt.Fprintln(s.out, text)
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
