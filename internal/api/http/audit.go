package http

import (
	"net/http"
	"strconv"

	"github.com/lawdesk/lawdesk/internal/api/service"
	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/lawdesk/lawdesk/pkg/httpx"
	"github.com/lawdesk/lawdesk/pkg/slogx"
)

// audit listing defaults; the limit is capped so one request cannot drag
// the whole table over the wire.
const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditHandler serves the audit trail to partners and lawyers.
type AuditHandler struct {
	AuditService *service.AuditService
}

// ServeHTTP handles GET /v1/audit with optional userId, action, and limit
// query parameters.
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	filter := store.AuditFilter{
		UserID: r.URL.Query().Get("userId"),
		Action: r.URL.Query().Get("action"),
		Limit:  defaultAuditLimit,
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxAuditLimit {
			n = maxAuditLimit
		}
		filter.Limit = n
	}

	events, err := h.AuditService.List(ctx, filter)
	if err != nil {
		log.Error("list audit events failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, events)
}
