package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateAccount_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t).identity
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "not-an-email", "secret1"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "a@example.com", "12345"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t).identity
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "a@example.com", "secret1"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "A@Example.com", "secret2"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t).identity
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "a@example.com", "secret1"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "a@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "missing@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown account, got %v", err)
	}
}

func TestEndSession_RevokesToken(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t).identity
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, "a@example.com", "secret1")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	login, err := svc.Authenticate(ctx, "a@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	claims, err := svc.ResolveToken(ctx, login.Token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if claims.UserID != created.Identity.UID.String() {
		t.Fatalf("expected uid %s, got %s", created.Identity.UID, claims.UserID)
	}

	if err := svc.EndSession(ctx, claims); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, login.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid after end, got %v", err)
	}
	if err := svc.EndSession(ctx, claims); err != nil {
		t.Fatalf("second EndSession should be a no-op, got %v", err)
	}

	// The signup session is independent of the login session.
	if _, err := svc.ResolveToken(ctx, created.Token); err != nil {
		t.Fatalf("signup session should still resolve: %v", err)
	}
}

func TestPurgeSessions_RemovesEnded(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t).identity
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, "a@example.com", "secret1")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	claims, err := svc.ResolveToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if err := svc.EndSession(ctx, claims); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	removed, err := svc.PurgeSessions(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeSessions: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged session, got %d", removed)
	}
}
