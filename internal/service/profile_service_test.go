package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"noticeboard/internal/model"
)

func TestProfileSet_OnlyOnce(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t).profiles
	ctx := context.Background()
	uid := uuid.NewString()

	fields := model.ProfileFields{Name: "Asha", Email: "asha@example.com", Role: model.RoleStudent}
	profile, err := svc.Set(ctx, uid, uid, fields)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if profile.Status != model.StatusOnline || profile.LastLogin == nil {
		t.Fatalf("expected online profile with last_login, got %+v", profile)
	}

	fields.Role = model.RoleFaculty
	faculty := "FAC001"
	fields.FacultyID = &faculty
	if _, err := svc.Set(ctx, uid, uid, fields); !errors.Is(err, ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}

	got, err := svc.Get(ctx, uid, uid)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Role != model.RoleStudent {
		t.Fatalf("role must not change, got %s", got.Role)
	}
}

func TestProfileSet_ValidatesFacultyID(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t).profiles
	ctx := context.Background()
	uid := uuid.NewString()

	_, err := svc.Set(ctx, uid, uid, model.ProfileFields{Name: "Dr. Rao", Email: "rao@example.com", Role: model.RoleFaculty})
	if !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}

	faculty := "FAC002"
	student, err := svc.Set(ctx, uid, uid, model.ProfileFields{
		Name:      "Asha",
		Email:     "asha@example.com",
		Role:      model.RoleStudent,
		FacultyID: &faculty,
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if student.FacultyID != nil {
		t.Fatalf("student faculty_id must be null, got %v", *student.FacultyID)
	}
}

func TestProfileAccess_OtherAccountForbidden(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t).profiles
	ctx := context.Background()

	if _, err := svc.Get(ctx, uuid.NewString(), uuid.NewString()); !errors.Is(err, ErrProfileForbidden) {
		t.Fatalf("expected ErrProfileForbidden, got %v", err)
	}
}

func TestProfileUpdate_StampsLogout(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t).profiles
	ctx := context.Background()
	uid := uuid.NewString()

	if _, err := svc.Get(ctx, uid, uid); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if _, err := svc.Set(ctx, uid, uid, model.ProfileFields{Name: "Asha", Email: "asha@example.com", Role: model.RoleStudent}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	offline := model.StatusOffline
	profile, err := svc.Update(ctx, uid, uid, model.ProfileUpdate{Status: &offline})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if profile.Status != model.StatusOffline || profile.LastLogout == nil {
		t.Fatalf("expected offline with last_logout, got %+v", profile)
	}

	if _, err := svc.Update(ctx, uid, uid, model.ProfileUpdate{}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile for empty update, got %v", err)
	}

	online, err := svc.CountOnline(ctx)
	if err != nil {
		t.Fatalf("CountOnline: %v", err)
	}
	if online != 0 {
		t.Fatalf("expected 0 online, got %d", online)
	}
}
