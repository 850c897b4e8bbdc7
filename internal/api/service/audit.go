package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/lawdesk/lawdesk/pkg/idx"
	"github.com/lawdesk/lawdesk/pkg/slogx"
)

// AuditService appends security-relevant events to the audit trail.
//
// Recording is best-effort: a failed append is logged and swallowed so the
// audit trail can never block or fail the flow it observes. Listing is the
// read side used by the partner-facing audit endpoint.
type AuditService struct {
	Store store.Store
}

// Record appends one event. Missing ID and CreatedAt are filled in.
func (s *AuditService) Record(ctx context.Context, ev domain.AuditEvent) {
	if ev.ID == "" {
		ev.ID = idx.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	if err := s.Store.AuditEvents().CreateAuditEvent(ctx, ev); err != nil {
		slogx.FromContext(ctx).Error("failed to record audit event",
			slog.Any("error", err),
			slog.String("action", ev.Action),
			slog.String("entity", ev.Entity),
		)
	}
}

// List returns audit events newest-first, optionally filtered.
func (s *AuditService) List(ctx context.Context, f store.AuditFilter) ([]domain.AuditEvent, error) {
	return s.Store.AuditEvents().ListAuditEvents(ctx, f)
}
