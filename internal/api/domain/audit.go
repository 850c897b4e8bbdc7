package domain

import "time"

// Audit action kinds recorded by the security-relevant flows.
const (
	AuditActionCreate     = "CREATE"
	AuditActionLogin      = "LOGIN"
	AuditActionLogout     = "LOGOUT"
	AuditActionEnable2FA  = "ENABLE_2FA"
	AuditActionDisable2FA = "DISABLE_2FA"
	AuditActionPassword   = "CHANGE_PASSWORD"
)

// AuditEvent is an append-only record of a security-relevant action.
// Events are immutable once written and are never updated.
type AuditEvent struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  *string   `json:"entityId,omitempty"`
	UserID    *string   `json:"userId,omitempty"`
	IPAddress *string   `json:"ipAddress,omitempty"`
	UserAgent *string   `json:"userAgent,omitempty"`
	Details   *string   `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RequestInfo carries the origin of a request into audit records.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}
