package model

import (
	"time"

	"github.com/google/uuid"
)

// Account is a credential record owned by the identity service. Its ID is the
// opaque identity token every other record is keyed by.
type Account struct {
	ID           uuid.UUID `db:"id" json:"uid"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Identity is the caller-visible half of an account.
type Identity struct {
	UID   uuid.UUID `json:"uid"`
	Email string    `json:"email"`
}

func (a *Account) Identity() Identity {
	return Identity{UID: a.ID, Email: a.Email}
}

type Session struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	AccountID uuid.UUID  `db:"account_id" json:"account_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

func (s *Session) Active(now time.Time) bool {
	return s != nil && s.EndedAt == nil && now.Before(s.ExpiresAt)
}
