package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func newTestTwoFactorService(t *testing.T) (*TwoFactorService, *SessionService) {
	t.Helper()

	sessions, st := newTestSessionService(t)
	return &TwoFactorService{
		Store:  st,
		Issuer: "LawDesk",
		Audit:  &AuditService{Store: st},
	}, sessions
}

func TestTwoFactorEnrollment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tfa, sessions := newTestTwoFactorService(t)

	t.Run("enroll stores a pending secret", func(t *testing.T) {
		profile := registerUser(t, sessions, "top secret")

		enrollment, err := tfa.Enroll(ctx, profile.ID)
		require.NoError(t, err)
		require.NotEmpty(t, enrollment.Secret)
		require.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))

		u, err := tfa.Store.Users().GetUserByID(ctx, profile.ID)
		require.NoError(t, err)
		require.Equal(t, domain.TwoFactorPendingEnrollment, u.TwoFactorState())
	})

	t.Run("re-enroll replaces the pending secret", func(t *testing.T) {
		profile := registerUser(t, sessions, "top secret")

		first, err := tfa.Enroll(ctx, profile.ID)
		require.NoError(t, err)
		second, err := tfa.Enroll(ctx, profile.ID)
		require.NoError(t, err)
		require.NotEqual(t, first.Secret, second.Secret)

		// Only the latest secret confirms.
		code, err := totp.GenerateCode(second.Secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, tfa.Confirm(ctx, profile.ID, code, domain.RequestInfo{}))
	})

	t.Run("confirm requires a valid code", func(t *testing.T) {
		profile := registerUser(t, sessions, "top secret")

		_, err := tfa.Enroll(ctx, profile.ID)
		require.NoError(t, err)

		err = tfa.Confirm(ctx, profile.ID, "000000", domain.RequestInfo{})
		require.ErrorIs(t, err, ErrInvalidSecondFactor)

		u, err := tfa.Store.Users().GetUserByID(ctx, profile.ID)
		require.NoError(t, err)
		require.False(t, u.TwoFactorEnabled)
	})

	t.Run("confirm without enrollment", func(t *testing.T) {
		profile := registerUser(t, sessions, "top secret")

		err := tfa.Confirm(ctx, profile.ID, "000000", domain.RequestInfo{})
		require.ErrorIs(t, err, ErrTwoFactorNotEnrolled)
	})

	t.Run("enroll after enable is rejected", func(t *testing.T) {
		profile := registerUser(t, sessions, "top secret")

		enrollment, err := tfa.Enroll(ctx, profile.ID)
		require.NoError(t, err)
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, tfa.Confirm(ctx, profile.ID, code, domain.RequestInfo{}))

		_, err = tfa.Enroll(ctx, profile.ID)
		require.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := tfa.Enroll(ctx, "nonexistent")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTwoFactorDisable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tfa, sessions := newTestTwoFactorService(t)

	enable := func(t *testing.T) (domain.Profile, string) {
		profile := registerUser(t, sessions, "top secret")

		enrollment, err := tfa.Enroll(ctx, profile.ID)
		require.NoError(t, err)
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, tfa.Confirm(ctx, profile.ID, code, domain.RequestInfo{}))
		return profile, enrollment.Secret
	}

	t.Run("valid code disables and clears the secret", func(t *testing.T) {
		profile, secret := enable(t)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, tfa.Disable(ctx, profile.ID, code, domain.RequestInfo{}))

		u, err := tfa.Store.Users().GetUserByID(ctx, profile.ID)
		require.NoError(t, err)
		require.Equal(t, domain.TwoFactorNotConfigured, u.TwoFactorState())
		require.Nil(t, u.TwoFactorSecret)
	})

	t.Run("bad code keeps the factor on", func(t *testing.T) {
		profile, _ := enable(t)

		err := tfa.Disable(ctx, profile.ID, "000000", domain.RequestInfo{})
		require.ErrorIs(t, err, ErrInvalidSecondFactor)

		u, err := tfa.Store.Users().GetUserByID(ctx, profile.ID)
		require.NoError(t, err)
		require.True(t, u.TwoFactorEnabled)
	})

	t.Run("disable without the factor", func(t *testing.T) {
		profile := registerUser(t, sessions, "top secret")

		err := tfa.Disable(ctx, profile.ID, "000000", domain.RequestInfo{})
		require.ErrorIs(t, err, ErrTwoFactorNotEnabled)
	})

	t.Run("login gate follows the lifecycle", func(t *testing.T) {
		profile, secret := enable(t)

		res, err := sessions.Login(ctx, profile.Email, "top secret", "", domain.RequestInfo{})
		require.NoError(t, err)
		require.True(t, res.SecondFactorRequired)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, tfa.Disable(ctx, profile.ID, code, domain.RequestInfo{}))

		res, err = sessions.Login(ctx, profile.Email, "top secret", "", domain.RequestInfo{})
		require.NoError(t, err)
		require.False(t, res.SecondFactorRequired)
		require.NotNil(t, res.Tokens)
	})
}
