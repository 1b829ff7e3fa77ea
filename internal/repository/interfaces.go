package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"noticeboard/internal/model"
)

type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	// Create returns ErrConflict when the email is already registered.
	Create(ctx context.Context, account *model.Account) error
}

type SessionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Create(ctx context.Context, session *model.Session) error
	End(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	// Create returns ErrConflict when a profile already exists for the user.
	Create(ctx context.Context, profile *model.Profile) error
	UpdateStatus(ctx context.Context, userID uuid.UUID, status model.Status, at time.Time) (*model.Profile, error)
	CountByStatus(ctx context.Context, status model.Status) (int64, error)
}

type NoticeRepository interface {
	Create(ctx context.Context, notice *model.Notice) error
	// ListAll returns every notice, newest timestamp first.
	ListAll(ctx context.Context) ([]*model.Notice, error)
	Search(ctx context.Context, query string, page Pagination) ([]*model.Notice, error)
	Count(ctx context.Context) (int64, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
}
