package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/lawdesk/lawdesk/pkg/cryptox"
	"github.com/lawdesk/lawdesk/pkg/idx"
	"github.com/lawdesk/lawdesk/pkg/jwtx"
	"github.com/lawdesk/lawdesk/pkg/metricsx"
	"github.com/lawdesk/lawdesk/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// deactivated accounts alike. The caller never learns which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidSecondFactor = errors.New("invalid verification code")
	ErrInvalidRefresh      = errors.New("invalid refresh token")
	ErrRefreshExpired      = errors.New("refresh token expired")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidRole         = errors.New("invalid role")
)

// Login metric outcomes.
const (
	loginOutcomeSuccess          = "success"
	loginOutcomeFailure          = "failure"
	loginOutcomeSecondFactorAsk  = "second_factor_required"
	loginOutcomeSecondFactorFail = "second_factor_failure"
)

// SessionService owns the login, refresh, and logout lifecycle. It issues
// the access/refresh pair and keeps the refresh token store consistent.
type SessionService struct {
	Store       store.Store
	AccessKeys  *jwtx.HS256Keypair // keyed with the access secret
	RefreshKeys *jwtx.HS256Keypair // keyed with the refresh secret
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	Audit       *AuditService
}

// LoginResult is the outcome of a credential check. When the account has a
// confirmed second factor and no code was supplied, SecondFactorRequired is
// set and Tokens is nil; the caller must retry with a code.
type LoginResult struct {
	User                 domain.Profile
	Tokens               *domain.TokenPair
	SecondFactorRequired bool
}

// RegisterParams carries the fields of a new account.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
	CPF      *string
	OAB      *string
	Phone    *string
	Role     domain.Role
}

// Register creates a new user account with a bcrypt password hash.
func (s *SessionService) Register(
	ctx context.Context,
	p RegisterParams,
	info domain.RequestInfo,
) (domain.Profile, error) {
	if !p.Role.Valid() {
		return domain.Profile{}, ErrInvalidRole
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Name:         p.Name,
		Email:        strings.ToLower(strings.TrimSpace(p.Email)),
		PasswordHash: hash,
		CPF:          p.CPF,
		OAB:          p.OAB,
		Phone:        p.Phone,
		Role:         p.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Profile{}, ErrEmailTaken
		}
		return domain.Profile{}, err
	}

	s.Audit.Record(ctx, auditEvent(domain.AuditActionCreate, u.ID, &u.ID, info, nil))

	return u.Profile(), nil
}

// Login verifies the credentials and, when the account has a confirmed
// second factor, the TOTP code. A missing code on a protected account is
// not an error: the result carries SecondFactorRequired instead.
func (s *SessionService) Login(
	ctx context.Context,
	email, password, totpCode string,
	info domain.RequestInfo,
) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison so unknown emails cost the same as
			// wrong passwords.
			_ = cryptox.VerifyPassword(password, cryptox.DummyHash)
			metricsx.ObserveLogin(loginOutcomeFailure)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !u.Active {
		metricsx.ObserveLogin(loginOutcomeFailure)
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Info("login password mismatch", slog.String("user_id", u.ID))
			metricsx.ObserveLogin(loginOutcomeFailure)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if u.TwoFactorEnabled {
		if totpCode == "" {
			metricsx.ObserveLogin(loginOutcomeSecondFactorAsk)
			return LoginResult{User: u.Profile(), SecondFactorRequired: true}, nil
		}
		if u.TwoFactorSecret == nil || !totp.Validate(totpCode, *u.TwoFactorSecret) {
			l.Info("login second factor rejected", slog.String("user_id", u.ID))
			metricsx.ObserveLogin(loginOutcomeSecondFactorFail)
			return LoginResult{}, ErrInvalidSecondFactor
		}
	}

	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return LoginResult{}, err
	}

	s.Audit.Record(ctx, auditEvent(domain.AuditActionLogin, u.ID, &u.ID, info, nil))
	metricsx.ObserveLogin(loginOutcomeSuccess)

	return LoginResult{User: u.Profile(), Tokens: pair}, nil
}

// Refresh rotates a refresh token: the presented token dies and a fresh
// pair is issued. Exactly one concurrent caller can win the rotation; the
// losers see ErrInvalidRefresh.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := time.Now()

	// 1. Lookup the persisted row by token fingerprint.
	fp := cryptox.FingerprintToken(refreshToken)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	// 2. An expired row is reaped on sight rather than waiting for the
	// sweep, then rejected.
	if rt.Expired(now) {
		_, _ = s.Store.RefreshTokens().DeleteRefreshTokenByHash(ctx, fp)
		return nil, ErrRefreshExpired
	}

	// 3. The token must also verify as a JWT under the refresh secret.
	// Store presence alone is not enough: a row surviving past a secret
	// rotation must not keep working.
	claims, err := s.RefreshKeys.Verify(refreshToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			_, _ = s.Store.RefreshTokens().DeleteRefreshTokenByHash(ctx, fp)
			return nil, ErrRefreshExpired
		}
		return nil, ErrInvalidRefresh
	}
	if claims.Subject != rt.UserID {
		return nil, ErrInvalidRefresh
	}

	u, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if !u.Active {
		return nil, ErrInvalidRefresh
	}

	accessToken, err := s.signAccess(u, now)
	if err != nil {
		return nil, err
	}

	newRefresh, newRow, err := s.newRefreshToken(u, now)
	if err != nil {
		return nil, err
	}

	// 4. Atomically retire the old token and store the new one. The delete
	// count is the single-use guard: whoever deletes the row rotates, every
	// other holder of the same token loses.
	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.RefreshTokens().DeleteRefreshTokenByHash(ctx, fp)
		if err != nil {
			return err
		}
		if n != 1 {
			return ErrInvalidRefresh
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, newRow)
	}); err != nil {
		return nil, err
	}

	return &domain.TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout revokes the presented refresh token. It never fails: revoking an
// unknown or already-revoked token is still a successful logout, and a
// store error must not strand the client in a logged-in UI state. The
// acting identity comes from the access token, not the refresh token.
func (s *SessionService) Logout(ctx context.Context, userID, refreshToken string, info domain.RequestInfo) {
	if refreshToken != "" {
		fp := cryptox.FingerprintToken(refreshToken)
		if _, err := s.Store.RefreshTokens().DeleteRefreshTokenByHash(ctx, fp); err != nil {
			slogx.FromContext(ctx).Error("failed to revoke refresh token on logout",
				slog.Any("error", err),
				slog.String("user_id", userID),
			)
		}
	}

	s.Audit.Record(ctx, auditEvent(domain.AuditActionLogout, userID, &userID, info, nil))
}

// ChangePassword verifies the current password, installs the new hash, and
// revokes every outstanding session.
func (s *SessionService) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
	info domain.RequestInfo,
) error {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().DeleteAllForUser(ctx, userID)
	}); err != nil {
		return err
	}

	s.Audit.Record(ctx, auditEvent(domain.AuditActionPassword, userID, &userID, info, nil))
	return nil
}

// issuePair signs a fresh access/refresh pair and persists the refresh row.
func (s *SessionService) issuePair(ctx context.Context, u domain.User) (*domain.TokenPair, error) {
	now := time.Now()

	accessToken, err := s.signAccess(u, now)
	if err != nil {
		return nil, err
	}

	refreshToken, row, err := s.newRefreshToken(u, now)
	if err != nil {
		return nil, err
	}

	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, row); err != nil {
		return nil, err
	}

	return &domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *SessionService) signAccess(u domain.User, now time.Time) (string, error) {
	claims := jwtx.NewClaims(u.ID, u.Email, string(u.Role), s.AccessTTL, s.Issuer, now)
	return s.AccessKeys.Sign(claims)
}

// newRefreshToken signs a refresh JWT and builds its store row. Only the
// fingerprint of the signed token is persisted.
func (s *SessionService) newRefreshToken(
	u domain.User,
	now time.Time,
) (string, domain.RefreshToken, error) {
	claims := jwtx.NewClaims(u.ID, u.Email, string(u.Role), s.RefreshTTL, s.Issuer, now)
	token, err := s.RefreshKeys.Sign(claims)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}

	row := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now.UTC(),
	}
	return token, row, nil
}

func auditEvent(
	action, entityID string,
	userID *string,
	info domain.RequestInfo,
	details *string,
) domain.AuditEvent {
	ev := domain.AuditEvent{
		Action:   action,
		Entity:   "user",
		EntityID: &entityID,
		UserID:   userID,
		Details:  details,
	}
	if info.IPAddress != "" {
		ev.IPAddress = &info.IPAddress
	}
	if info.UserAgent != "" {
		ev.UserAgent = &info.UserAgent
	}
	return ev
}
