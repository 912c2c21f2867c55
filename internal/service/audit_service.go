package service

import (
	"context"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

const defaultAuditLimit = 100

// AuditService exposes the append-only audit trail for reading. Entries are
// written by the other services as part of their mutations.
type AuditService struct {
	store storage.Store
}

// NewAuditService creates an AuditService.
func NewAuditService(store storage.Store) *AuditService {
	return &AuditService{store: store}
}

// List returns a trip's most recent audit entries, newest first.
func (s *AuditService) List(ctx context.Context, actor *models.User, tripID string, limit int) ([]*models.AuditLog, error) {
	if _, err := memberOf(ctx, s.store, tripID, actor.ID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultAuditLimit
	}
	return s.store.ListAudit(ctx, tripID, limit)
}
