package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lawdesk/lawdesk/internal/api/service"
	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/lawdesk/lawdesk/pkg/httpx"
	"github.com/lawdesk/lawdesk/pkg/slogx"
)

// TwoFactorHandler handles TOTP enrollment endpoints.
type TwoFactorHandler struct {
	TwoFactorService *service.TwoFactorService
}

type twoFactorCodeRequest struct {
	Code string `json:"code"`
}

// HandleEnable handles POST /v1/auth/2fa/enable. It returns the secret and
// a QR code; the factor stays off until the code is verified.
func (h *TwoFactorHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	enrollment, err := h.TwoFactorService.Enroll(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
			httpx.WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusUnauthorized, "unknown user")
		default:
			log.Error("2fa enroll failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, enrollment)
}

// HandleVerify handles POST /v1/auth/2fa/verify. A valid code confirms the
// pending enrollment and turns the factor on.
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req twoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "verification code is required")
		return
	}

	err := h.TwoFactorService.Confirm(ctx, httpx.UserIDFromCtx(ctx), req.Code, requestInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSecondFactor):
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTwoFactorNotEnrolled):
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
			httpx.WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusUnauthorized, "unknown user")
		default:
			log.Error("2fa confirm failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "two-factor authentication enabled")
}

// HandleDisable handles POST /v1/auth/2fa/disable. Requires a valid current
// code.
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req twoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "verification code is required")
		return
	}

	err := h.TwoFactorService.Disable(ctx, httpx.UserIDFromCtx(ctx), req.Code, requestInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSecondFactor):
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTwoFactorNotEnabled):
			httpx.WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusUnauthorized, "unknown user")
		default:
			log.Error("2fa disable failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "two-factor authentication disabled")
}
