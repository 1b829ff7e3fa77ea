package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"noticeboard/internal/model"
	"noticeboard/internal/repository"
)

type auditWriter struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

func (w auditWriter) write(
	ctx context.Context,
	userID *uuid.UUID,
	action string,
	resourceType string,
	resourceID string,
	newValue map[string]interface{},
) {
	if w.repo == nil {
		return
	}

	err := w.repo.Create(ctx, &model.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: strPtr(resourceType),
		ResourceID:   strPtr(resourceID),
		NewValue:     newValue,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil && w.logger != nil {
		w.logger.Warn("write audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidUserID
	}
	return id, nil
}
