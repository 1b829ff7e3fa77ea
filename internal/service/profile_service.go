package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"noticeboard/internal/event"
	"noticeboard/internal/model"
	"noticeboard/internal/repository"
)

type ProfileService struct {
	profiles repository.ProfileRepository
	audit    auditWriter
	bus      *event.Bus
	logger   *zap.Logger
	now      func() time.Time
}

func NewProfileService(
	profiles repository.ProfileRepository,
	auditRepo repository.AuditRepository,
	bus *event.Bus,
	logger *zap.Logger,
) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProfileService{
		profiles: profiles,
		audit:    auditWriter{repo: auditRepo, logger: logger},
		bus:      bus,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the caller's own profile.
func (s *ProfileService) Get(ctx context.Context, actorID, userID string) (*model.Profile, error) {
	uid, err := s.authorize(actorID, userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.FindByUserID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// Set creates the profile. Profiles are written once, which keeps the role
// immutable; later changes go through Update.
func (s *ProfileService) Set(ctx context.Context, actorID, userID string, fields model.ProfileFields) (*model.Profile, error) {
	uid, err := s.authorize(actorID, userID)
	if err != nil {
		return nil, err
	}

	profile, err := buildProfile(uid, fields, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrProfileExists
		}
		return nil, err
	}

	s.audit.write(ctx, &uid, model.AuditProfileCreate, "profile", uid.String(), map[string]interface{}{
		"role":   string(profile.Role),
		"status": string(profile.Status),
	})
	s.publishStatus(profile)

	return profile, nil
}

// Update applies a partial write. Only status may change.
func (s *ProfileService) Update(ctx context.Context, actorID, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	uid, err := s.authorize(actorID, userID)
	if err != nil {
		return nil, err
	}
	if update.Status == nil || !update.Status.Valid() {
		return nil, ErrInvalidProfile
	}

	profile, err := s.profiles.UpdateStatus(ctx, uid, *update.Status, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	s.audit.write(ctx, &uid, model.AuditProfileStatus, "profile", uid.String(), map[string]interface{}{
		"status": string(profile.Status),
	})
	s.publishStatus(profile)

	return profile, nil
}

// Role reports the stored role for an account.
func (s *ProfileService) Role(ctx context.Context, userID uuid.UUID) (model.Role, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", err
	}
	return profile.Role, nil
}

func (s *ProfileService) CountOnline(ctx context.Context) (int64, error) {
	return s.profiles.CountByStatus(ctx, model.StatusOnline)
}

func (s *ProfileService) authorize(actorID, userID string) (uuid.UUID, error) {
	actor, err := parseUserID(actorID)
	if err != nil {
		return uuid.Nil, err
	}
	target, err := parseUserID(userID)
	if err != nil {
		return uuid.Nil, err
	}
	if actor != target {
		return uuid.Nil, ErrProfileForbidden
	}
	return target, nil
}

func (s *ProfileService) publishStatus(profile *model.Profile) {
	if s.bus == nil || profile == nil {
		return
	}
	s.bus.Publish(event.EventProfileStatus, event.ProfileStatusPayload{
		UserID: profile.UserID.String(),
		Status: string(profile.Status),
	})
}

func buildProfile(userID uuid.UUID, fields model.ProfileFields, now time.Time) (*model.Profile, error) {
	name := strings.TrimSpace(fields.Name)
	email := strings.ToLower(strings.TrimSpace(fields.Email))
	if name == "" || email == "" || !fields.Role.Valid() {
		return nil, ErrInvalidProfile
	}

	var facultyID *string
	if fields.FacultyID != nil {
		trimmed := strings.TrimSpace(*fields.FacultyID)
		facultyID = &trimmed
	}
	switch fields.Role {
	case model.RoleFaculty:
		if facultyID == nil || *facultyID == "" {
			return nil, ErrInvalidProfile
		}
	case model.RoleStudent:
		facultyID = nil
	}

	status := fields.Status
	if status == "" {
		status = model.StatusOnline
	}
	if !status.Valid() {
		return nil, ErrInvalidProfile
	}

	profile := &model.Profile{
		UserID:    userID,
		Name:      name,
		Email:     email,
		Role:      fields.Role,
		FacultyID: facultyID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == model.StatusOnline {
		profile.LastLogin = &now
	}
	return profile, nil
}
