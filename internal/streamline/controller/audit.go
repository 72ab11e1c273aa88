package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gartstein/streamline/internal/streamline/events"
	"github.com/gartstein/streamline/internal/streamline/models"
	"go.uber.org/zap"
)

// AuditService persists consumed events and serves the audit log.
type AuditService struct {
	store  Store[models.AuditLog]
	logger *zap.Logger
}

// NewAuditService creates the audit log service.
func NewAuditService(store Store[models.AuditLog], logger *zap.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger.Named("audit_service"),
	}
}

// Record stores one event. It is registered as the consumer handler.
func (s *AuditService) Record(ctx context.Context, event events.Event) error {
	payload := ""
	if event.Data != nil {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to encode audit payload: %w", err)
		}
		payload = string(data)
	}

	entry := &models.AuditLog{
		Action:     string(event.Type),
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		Actor:      event.Actor,
		Payload:    payload,
		OccurredAt: event.OccurredAt,
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return wrap(err, "failed to record audit entry")
	}
	s.logger.Debug("recorded audit entry",
		zap.String("action", entry.Action),
		zap.String("resource", entry.Resource),
		zap.String("resource_id", entry.ResourceID.String()),
	)
	return nil
}

func (s *AuditService) List(ctx context.Context, opts models.ListOptions) ([]models.AuditLog, error) {
	entries, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, wrap(err, "failed to list audit log")
	}
	return entries, nil
}
