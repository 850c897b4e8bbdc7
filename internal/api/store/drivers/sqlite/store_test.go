package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/lawdesk/lawdesk/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestUser() domain.User {
	now := time.Now().UTC()
	return domain.User{
		ID:           idx.New().String(),
		Name:         "Alice Pereira",
		Email:        idx.New().String() + "@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleAdvogado,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUsersRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	t.Run("create and fetch", func(t *testing.T) {
		u := newTestUser()
		oab := "SP123456"
		u.OAB = &oab
		require.NoError(t, s.Users().CreateUser(ctx, u))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, got.Email)
		require.Equal(t, domain.RoleAdvogado, got.Role)
		require.NotNil(t, got.OAB)
		require.Equal(t, "SP123456", *got.OAB)
		require.Nil(t, got.CPF)
		require.True(t, got.Active)

		byEmail, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		u := newTestUser()
		require.NoError(t, s.Users().CreateUser(ctx, u))

		dup := newTestUser()
		dup.Email = u.Email
		err := s.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := s.Users().GetUserByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)

		err = s.Users().UpdatePasswordHash(ctx, idx.New().String(), "newhash")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("deactivate", func(t *testing.T) {
		u := newTestUser()
		require.NoError(t, s.Users().CreateUser(ctx, u))
		require.NoError(t, s.Users().SetActive(ctx, u.ID, false))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.Active)
	})
}

func TestUsersRepoTwoFactor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	t.Run("enable requires a stored secret", func(t *testing.T) {
		u := newTestUser()
		require.NoError(t, s.Users().CreateUser(ctx, u))

		err := s.Users().EnableTwoFactor(ctx, u.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.Users().UpdateTwoFactorSecret(ctx, u.ID, "JBSWY3DPEHPK3PXP"))
		require.NoError(t, s.Users().EnableTwoFactor(ctx, u.ID))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.TwoFactorEnabled)
		require.Equal(t, domain.TwoFactorEnabled, got.TwoFactorState())
	})

	t.Run("pending state before enable", func(t *testing.T) {
		u := newTestUser()
		require.NoError(t, s.Users().CreateUser(ctx, u))
		require.NoError(t, s.Users().UpdateTwoFactorSecret(ctx, u.ID, "JBSWY3DPEHPK3PXP"))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.TwoFactorEnabled)
		require.Equal(t, domain.TwoFactorPendingEnrollment, got.TwoFactorState())
	})

	t.Run("disable clears secret and flag", func(t *testing.T) {
		u := newTestUser()
		require.NoError(t, s.Users().CreateUser(ctx, u))
		require.NoError(t, s.Users().UpdateTwoFactorSecret(ctx, u.ID, "JBSWY3DPEHPK3PXP"))
		require.NoError(t, s.Users().EnableTwoFactor(ctx, u.ID))
		require.NoError(t, s.Users().DisableTwoFactor(ctx, u.ID))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.TwoFactorEnabled)
		require.Nil(t, got.TwoFactorSecret)
		require.Equal(t, domain.TwoFactorNotConfigured, got.TwoFactorState())
	})
}

func TestRefreshTokensRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	u := newTestUser()
	require.NoError(t, s.Users().CreateUser(ctx, u))

	newToken := func(hash string, expiresAt time.Time) domain.RefreshToken {
		return domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: hash,
			ExpiresAt: expiresAt,
			CreatedAt: time.Now().UTC(),
		}
	}

	t.Run("create and fetch by hash", func(t *testing.T) {
		tok := newToken("hash-a", time.Now().Add(time.Hour))
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, tok))

		got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-a")
		require.NoError(t, err)
		require.Equal(t, tok.ID, got.ID)
		require.Equal(t, u.ID, got.UserID)
		require.False(t, got.Expired(time.Now()))
	})

	t.Run("hash collision", func(t *testing.T) {
		tok := newToken("hash-b", time.Now().Add(time.Hour))
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, tok))

		err := s.RefreshTokens().CreateRefreshToken(ctx, newToken("hash-b", time.Now().Add(time.Hour)))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("delete by hash reports row count", func(t *testing.T) {
		tok := newToken("hash-c", time.Now().Add(time.Hour))
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, tok))

		n, err := s.RefreshTokens().DeleteRefreshTokenByHash(ctx, "hash-c")
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		// Second delete sees nothing. Exactly one caller wins the rotation.
		n, err = s.RefreshTokens().DeleteRefreshTokenByHash(ctx, "hash-c")
		require.NoError(t, err)
		require.EqualValues(t, 0, n)

		_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-c")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete all for user", func(t *testing.T) {
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, newToken("hash-d", time.Now().Add(time.Hour))))
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, newToken("hash-e", time.Now().Add(time.Hour))))

		require.NoError(t, s.RefreshTokens().DeleteAllForUser(ctx, u.ID))

		_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-d")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-e")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("sweep expired", func(t *testing.T) {
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, newToken("hash-old", time.Now().Add(-time.Hour))))
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, newToken("hash-live", time.Now().Add(time.Hour))))

		require.NoError(t, s.RefreshTokens().DeleteExpiredRefreshTokens(ctx))

		_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-old")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-live")
		require.NoError(t, err)
	})
}

func TestAuditEventsRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	u := newTestUser()
	require.NoError(t, s.Users().CreateUser(ctx, u))

	base := time.Now().UTC().Add(-time.Minute)
	record := func(action string, at time.Time) {
		ev := domain.AuditEvent{
			ID:        idx.NewAt(at).String(),
			Action:    action,
			Entity:    "user",
			UserID:    &u.ID,
			CreatedAt: at,
		}
		require.NoError(t, s.AuditEvents().CreateAuditEvent(ctx, ev))
	}

	record(domain.AuditActionLogin, base)
	record(domain.AuditActionLogout, base.Add(time.Second))
	record(domain.AuditActionLogin, base.Add(2*time.Second))

	t.Run("newest first", func(t *testing.T) {
		events, err := s.AuditEvents().ListAuditEvents(ctx, store.AuditFilter{})
		require.NoError(t, err)
		require.Len(t, events, 3)
		require.Equal(t, domain.AuditActionLogin, events[0].Action)
		require.True(t, events[0].CreatedAt.After(events[2].CreatedAt))
	})

	t.Run("filter by action", func(t *testing.T) {
		events, err := s.AuditEvents().ListAuditEvents(ctx, store.AuditFilter{Action: domain.AuditActionLogout})
		require.NoError(t, err)
		require.Len(t, events, 1)
	})

	t.Run("limit", func(t *testing.T) {
		events, err := s.AuditEvents().ListAuditEvents(ctx, store.AuditFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, events, 2)
	})
}

func TestWithTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	u := newTestUser()
	require.NoError(t, s.Users().CreateUser(ctx, u))

	t.Run("commit on success", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx store.Tx) error {
			return tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
				ID:        idx.New().String(),
				UserID:    u.ID,
				TokenHash: "tx-hash",
				ExpiresAt: time.Now().Add(time.Hour),
				CreatedAt: time.Now().UTC(),
			})
		})
		require.NoError(t, err)

		_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "tx-hash")
		require.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		sentinel := store.ErrNotFound
		err := s.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
				ID:        idx.New().String(),
				UserID:    u.ID,
				TokenHash: "rollback-hash",
				ExpiresAt: time.Now().Add(time.Hour),
				CreatedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "rollback-hash")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
