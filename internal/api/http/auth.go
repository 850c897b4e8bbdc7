package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/service"
	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/lawdesk/lawdesk/pkg/httpx"
	"github.com/lawdesk/lawdesk/pkg/slogx"
)

// AuthHandler handles the credential and session lifecycle endpoints.
type AuthHandler struct {
	SessionService *service.SessionService
	UserService    *service.UserService
}

type registerRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	CPF      *string `json:"cpf"`
	OAB      *string `json:"oab"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
}

type loginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"twoFactorCode"` // TOTP code, only when the factor is on
}

type loginResponse struct {
	User         domain.Profile `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// secondFactorResponse is the one envelope that carries an extra top-level
// flag: HTTP 200, not an error, and no tokens yet.
type secondFactorResponse struct {
	Status     string `json:"status"`
	Require2FA bool   `json:"require2FA"`
	Message    string `json:"message,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleRegister handles POST /v1/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	profile, err := h.SessionService.Register(ctx, service.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		CPF:      req.CPF,
		OAB:      req.OAB,
		Phone:    req.Phone,
		Role:     domain.Role(req.Role),
	}, requestInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidRole):
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error("register failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, profile)
}

// HandleLogin handles POST /v1/auth/login.
//
// A correct password on an account with a confirmed second factor returns
// 200 with {require2FA: true} instead of tokens; the client retries with
// the code in the same request shape.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.SessionService.Login(ctx, req.Email, req.Password, req.TwoFactorCode, requestInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, service.ErrInvalidSecondFactor):
			httpx.WriteError(w, http.StatusUnauthorized, err.Error())
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	if res.SecondFactorRequired {
		httpx.WriteJSON(w, http.StatusOK, secondFactorResponse{
			Status:     "success",
			Require2FA: true,
			Message:    "second factor required",
		})
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, loginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

// HandleRefresh handles POST /v1/auth/refresh.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "refresh token not provided")
		return
	}

	pair, err := h.SessionService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefreshExpired),
			errors.Is(err, service.ErrInvalidRefresh):
			httpx.WriteError(w, http.StatusUnauthorized, err.Error())
		default:
			log.Error("refresh failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, pair)
}

// HandleLogout handles POST /v1/auth/logout. Always succeeds, with or
// without a refresh token in the body.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req logoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // an empty or malformed body still logs out

	userID := httpx.UserIDFromCtx(ctx)
	h.SessionService.Logout(ctx, userID, req.RefreshToken, requestInfo(r))

	httpx.WriteMessage(w, http.StatusOK, "logged out")
}

// HandleMe handles GET /v1/auth/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	u, err := h.UserService.GetUserByID(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		log.Error("load profile failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, u.Profile())
}

// HandleChangePassword handles POST /v1/auth/password. A successful change
// revokes every outstanding session.
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "current and new password are required")
		return
	}

	err := h.SessionService.ChangePassword(ctx,
		httpx.UserIDFromCtx(ctx), req.CurrentPassword, req.NewPassword, requestInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusUnauthorized, "unknown user")
		default:
			log.Error("change password failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "password changed")
}

// requestInfo extracts the caller's address and user agent for the audit
// trail, honoring proxy headers the same way the rate limiter does.
func requestInfo(r *http.Request) domain.RequestInfo {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}

	return domain.RequestInfo{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}
