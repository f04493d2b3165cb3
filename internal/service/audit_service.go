package service

import (
	"context"
	"log/slog"
	"time"

	"go-mod-console/internal/model"
)

// AuditStore is the persistence behind the audit trail.
type AuditStore interface {
	Insert(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Log appends one entry. Auditing is best effort: a storage failure is logged
// and swallowed so it never turns a successful operation into an error.
func (s *AuditService) Log(ctx context.Context, action string, actor model.AuditActor, status string, resource string, before any, after any, errText string) {
	if s == nil || s.store == nil {
		return
	}

	entry := model.AuditEntry{
		Action:     action,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Actor:      actor,
		Status:     status,
		Resource:   resource,
		Before:     before,
		After:      after,
		Error:      errText,
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		slog.Error("failed to write audit entry", "action", action, "resource", resource, "error", err)
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	return s.store.Query(ctx, query)
}
