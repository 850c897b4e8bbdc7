package store

import (
	"context"
	"errors"

	"github.com/lawdesk/lawdesk/internal/api/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback() on the result.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error, the transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (bcrypt) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetActive toggles the active flag. Users are deactivated, never deleted.
	SetActive(ctx context.Context, userID string, active bool) error

	// UpdateTwoFactorSecret stores a provisional TOTP secret without
	// flipping the enabled flag.
	UpdateTwoFactorSecret(ctx context.Context, userID string, secret string) error

	// EnableTwoFactor flips the enabled flag. Fails with ErrNotFound when
	// the user has no stored secret, keeping the enabled-without-secret
	// combination unrepresentable.
	EnableTwoFactor(ctx context.Context, userID string) error

	// DisableTwoFactor clears both the secret and the enabled flag.
	DisableTwoFactor(ctx context.Context, userID string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record. A fingerprint
	// collision surfaces as ErrAlreadyExists; the token generator is
	// expected to make that unreachable.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token record by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshTokenByHash removes the record and reports how many rows
	// died. Idempotent: deleting a missing token returns 0, nil. The count
	// is the rotation guard: a refresh proceeds only when exactly one row
	// was deleted, so two concurrent refreshes of one token cannot both win.
	DeleteRefreshTokenByHash(ctx context.Context, hash string) (int64, error)

	// DeleteAllForUser revokes every session of a user (password change,
	// deactivation).
	DeleteAllForUser(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping for rows past expiry.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

// AuditFilter narrows audit queries. Zero values mean "no constraint".
type AuditFilter struct {
	UserID string
	Action string
	Limit  int
}

type AuditEvents interface {
	// CreateAuditEvent appends one immutable event. There is no update or
	// single-row delete; the log is append-only.
	CreateAuditEvent(ctx context.Context, ev domain.AuditEvent) error

	// ListAuditEvents returns events newest-first, optionally filtered.
	ListAuditEvents(ctx context.Context, f AuditFilter) ([]domain.AuditEvent, error)
}
