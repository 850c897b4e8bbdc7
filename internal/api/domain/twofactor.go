package domain

// TwoFactorState is the second-factor enrollment state machine. A secret is
// stored at enrollment but the factor only gates login once confirmed, so
// an abandoned enrollment never locks anyone out.
type TwoFactorState int

const (
	TwoFactorNotConfigured TwoFactorState = iota
	TwoFactorPendingEnrollment
	TwoFactorEnabled
)

func (s TwoFactorState) String() string {
	switch s {
	case TwoFactorPendingEnrollment:
		return "pending_enrollment"
	case TwoFactorEnabled:
		return "enabled"
	default:
		return "not_configured"
	}
}

// TwoFactorEnrollment is returned when a user begins enrollment.
type TwoFactorEnrollment struct {
	Secret string `json:"secret"` // base32 TOTP secret, shown once
	QRCode string `json:"qrCode"` // PNG data URL of the otpauth:// URI
}
