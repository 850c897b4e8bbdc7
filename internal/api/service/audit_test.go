package service

import (
	"context"
	"testing"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/stretchr/testify/require"
)

func TestAuditTrail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestSessionService(t)
	audit := svc.Audit

	t.Run("login and logout leave a trail", func(t *testing.T) {
		profile := registerUser(t, svc, "top secret")

		res, err := svc.Login(ctx, profile.Email, "top secret", "", domain.RequestInfo{
			IPAddress: "203.0.113.7",
			UserAgent: "test-client/1.0",
		})
		require.NoError(t, err)
		svc.Logout(ctx, profile.ID, res.Tokens.RefreshToken, domain.RequestInfo{})

		events, err := audit.List(ctx, store.AuditFilter{UserID: profile.ID})
		require.NoError(t, err)
		require.Len(t, events, 3) // CREATE, LOGIN, LOGOUT

		require.Equal(t, domain.AuditActionLogout, events[0].Action)
		require.Equal(t, domain.AuditActionLogin, events[1].Action)
		require.Equal(t, domain.AuditActionCreate, events[2].Action)

		require.NotNil(t, events[1].IPAddress)
		require.Equal(t, "203.0.113.7", *events[1].IPAddress)
	})

	t.Run("record fills id and timestamp", func(t *testing.T) {
		audit.Record(ctx, domain.AuditEvent{
			Action: domain.AuditActionPassword,
			Entity: "user",
		})

		events, err := audit.List(ctx, store.AuditFilter{Action: domain.AuditActionPassword})
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.NotEmpty(t, events[0].ID)
		require.False(t, events[0].CreatedAt.IsZero())
	})

	t.Run("failed login leaves no trail", func(t *testing.T) {
		profile := registerUser(t, svc, "top secret")

		_, err := svc.Login(ctx, profile.Email, "wrong", "", domain.RequestInfo{})
		require.ErrorIs(t, err, ErrInvalidCredentials)

		events, err := audit.List(ctx, store.AuditFilter{
			UserID: profile.ID,
			Action: domain.AuditActionLogin,
		})
		require.NoError(t, err)
		require.Empty(t, events)
	})
}
