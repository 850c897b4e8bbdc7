package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/store"
)

type auditEventsRepo struct {
	db dbtx
}

func (r *auditEventsRepo) CreateAuditEvent(ctx context.Context, ev domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, action, entity, entity_id, user_id, ip_address, user_agent, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Action, ev.Entity,
		mapOptionalString(ev.EntityID), mapOptionalString(ev.UserID),
		mapOptionalString(ev.IPAddress), mapOptionalString(ev.UserAgent),
		mapOptionalString(ev.Details), ev.CreatedAt)
	return err
}

func (r *auditEventsRepo) ListAuditEvents(
	ctx context.Context,
	f store.AuditFilter,
) ([]domain.AuditEvent, error) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, f.Action)
	}

	query := `SELECT id, action, entity, entity_id, user_id, ip_address, user_agent, details, created_at
		FROM audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		ev, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanAuditEvent(rows *sql.Rows) (domain.AuditEvent, error) {
	var (
		ev       domain.AuditEvent
		entityID sql.NullString
		userID   sql.NullString
		ip       sql.NullString
		ua       sql.NullString
		details  sql.NullString
	)
	err := rows.Scan(&ev.ID, &ev.Action, &ev.Entity,
		&entityID, &userID, &ip, &ua, &details, &ev.CreatedAt)
	if err != nil {
		return domain.AuditEvent{}, err
	}

	ev.EntityID = mapNullStringPtr(entityID)
	ev.UserID = mapNullStringPtr(userID)
	ev.IPAddress = mapNullStringPtr(ip)
	ev.UserAgent = mapNullStringPtr(ua)
	ev.Details = mapNullStringPtr(details)
	return ev, nil
}
