package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrCodeSize = 256 // px, rendered into the enrollment data URL

var (
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication already enabled")
	ErrTwoFactorNotEnrolled    = errors.New("two-factor authentication not enrolled")
	ErrTwoFactorNotEnabled     = errors.New("two-factor authentication not enabled")
)

// TwoFactorService manages TOTP enrollment. Enrollment is a two-step
// handshake: Enroll stores a provisional secret, Confirm proves the
// authenticator actually holds it before the factor starts gating login.
type TwoFactorService struct {
	Store  store.Store
	Issuer string // issuer label shown in authenticator apps
	Audit  *AuditService
}

// Enroll generates a TOTP secret for the user and stores it provisionally.
// The factor does not gate login until Confirm succeeds, so abandoning
// enrollment mid-way never locks the user out.
func (s *TwoFactorService) Enroll(ctx context.Context, userID string) (domain.TwoFactorEnrollment, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.TwoFactorEnrollment{}, err
	}
	if u.TwoFactorEnabled {
		return domain.TwoFactorEnrollment{}, ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: u.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.TwoFactorEnrollment{}, fmt.Errorf("generate TOTP key: %w", err)
	}

	qr, err := renderQRCode(key)
	if err != nil {
		return domain.TwoFactorEnrollment{}, err
	}

	// Re-enrolling before confirmation simply replaces the pending secret.
	if err := s.Store.Users().UpdateTwoFactorSecret(ctx, userID, key.Secret()); err != nil {
		return domain.TwoFactorEnrollment{}, fmt.Errorf("store TOTP secret: %w", err)
	}

	return domain.TwoFactorEnrollment{
		Secret: key.Secret(),
		QRCode: qr,
	}, nil
}

// Confirm verifies a code against the pending secret and flips the factor
// on. From here on, login requires a valid code.
func (s *TwoFactorService) Confirm(
	ctx context.Context,
	userID, code string,
	info domain.RequestInfo,
) error {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.TwoFactorEnabled {
		return ErrTwoFactorAlreadyEnabled
	}
	if u.TwoFactorSecret == nil || *u.TwoFactorSecret == "" {
		return ErrTwoFactorNotEnrolled
	}

	if !totp.Validate(code, *u.TwoFactorSecret) {
		return ErrInvalidSecondFactor
	}

	if err := s.Store.Users().EnableTwoFactor(ctx, userID); err != nil {
		return err
	}

	s.Audit.Record(ctx, auditEvent(domain.AuditActionEnable2FA, userID, &userID, info, nil))
	return nil
}

// Disable turns the factor off and discards the secret. A valid current
// code is required so a hijacked session cannot silently weaken the
// account.
func (s *TwoFactorService) Disable(
	ctx context.Context,
	userID, code string,
	info domain.RequestInfo,
) error {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	if u.TwoFactorSecret == nil || !totp.Validate(code, *u.TwoFactorSecret) {
		return ErrInvalidSecondFactor
	}

	if err := s.Store.Users().DisableTwoFactor(ctx, userID); err != nil {
		return err
	}

	s.Audit.Record(ctx, auditEvent(domain.AuditActionDisable2FA, userID, &userID, info, nil))
	return nil
}

// renderQRCode rasterizes the otpauth:// URI into a PNG data URL that the
// client can drop straight into an <img> tag.
func renderQRCode(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
