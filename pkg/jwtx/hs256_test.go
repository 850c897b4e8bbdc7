package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testIssuer = "lawdesk-test"

func newTestKeypair(t *testing.T, secret string) *HS256Keypair {
	t.Helper()
	kp, err := NewHS256([]byte(secret), testIssuer)
	require.NoError(t, err)
	return kp
}

func TestNewHS256_RejectsEmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewHS256(nil, testIssuer)
	require.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	kp := newTestKeypair(t, "access-secret")
	claims := NewClaims("user-1", "u@x.com", "ADVOGADO", time.Minute, testIssuer, time.Now())

	raw, err := kp.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := kp.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "u@x.com", got.Email)
	require.Equal(t, "ADVOGADO", got.Role)
	require.NoError(t, got.ValidateExpiry())
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	access := newTestKeypair(t, "access-secret")
	refresh := newTestKeypair(t, "refresh-secret")

	claims := NewClaims("user-1", "u@x.com", "SOCIO", time.Minute, testIssuer, time.Now())
	raw, err := access.Sign(claims)
	require.NoError(t, err)

	// A token signed with the access secret must not verify against the
	// refresh secret; the two token kinds are not interchangeable.
	_, err = refresh.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	kp := newTestKeypair(t, "secret")
	claims := NewClaims("user-1", "u@x.com", "SOCIO", time.Minute, testIssuer, time.Now().Add(-time.Hour))

	raw, err := kp.Sign(claims)
	require.NoError(t, err)

	_, err = kp.Verify(raw)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	kp := newTestKeypair(t, "secret")
	_, err := kp.Verify("definitely.not.a.jwt")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestVerify_IssuerMismatch(t *testing.T) {
	t.Parallel()

	kp := newTestKeypair(t, "secret")
	other, err := NewHS256([]byte("secret"), "some-other-issuer")
	require.NoError(t, err)

	claims := NewClaims("user-1", "u@x.com", "SOCIO", time.Minute, "some-other-issuer", time.Now())
	raw, err := other.Sign(claims)
	require.NoError(t, err)

	_, err = kp.Verify(raw)
	require.ErrorIs(t, err, ErrIssuer)
}
