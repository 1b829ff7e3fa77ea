package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditAccountCreate = "account.create"
	AuditSessionCreate = "session.create"
	AuditSessionEnd    = "session.end"
	AuditProfileCreate = "profile.create"
	AuditProfileStatus = "profile.status"
	AuditNoticeCreate  = "notice.create"
)

type AuditLog struct {
	ID           int64                  `db:"id" json:"id"`
	UserID       *uuid.UUID             `db:"user_id" json:"user_id,omitempty"`
	Action       string                 `db:"action" json:"action"`
	ResourceType *string                `db:"resource_type" json:"resource_type,omitempty"`
	ResourceID   *string                `db:"resource_id" json:"resource_id,omitempty"`
	NewValue     map[string]interface{} `db:"new_value" json:"new_value,omitempty"`
	IPAddress    *string                `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
}
