package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

type Status string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleFaculty
}

func (s Status) Valid() bool {
	return s == StatusOnline || s == StatusOffline
}

// Profile is the directory record stored per account. Role never changes once
// the profile exists.
type Profile struct {
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email"`
	Role       Role       `db:"role" json:"role"`
	FacultyID  *string    `db:"faculty_id" json:"faculty_id"`
	Status     Status     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	LastLogin  *time.Time `db:"last_login" json:"last_login,omitempty"`
	LastLogout *time.Time `db:"last_logout" json:"last_logout,omitempty"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// ProfileFields is the client-supplied part of a new profile. Timestamps are
// always assigned by the server.
type ProfileFields struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      Role    `json:"role"`
	FacultyID *string `json:"faculty_id"`
	Status    Status  `json:"status"`
}

// ProfileUpdate is a partial write. Moving to online stamps last_login and
// moving to offline stamps last_logout.
type ProfileUpdate struct {
	Status *Status `json:"status,omitempty"`
}
