package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor used for every stored password.
// Cost 12 keeps a single verification slow enough to resist offline brute
// force while staying tolerable for interactive login.
const PasswordHashCost = 12

var ErrPasswordMismatch = errors.New("cryptox: password does not match")

// DummyHash is a syntactically valid bcrypt hash that matches no real
// password. Verifying against it makes a lookup miss cost the same as a
// wrong password, so response timing does not reveal which emails exist.
const DummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// HashPassword produces a salted bcrypt hash of the plaintext password.
// bcrypt embeds a fresh random salt in every hash, so hashing the same
// password twice yields different strings that both verify.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a stored bcrypt hash.
// Returns ErrPasswordMismatch when the password is wrong; other errors mean
// the stored hash itself is malformed.
func VerifyPassword(password, encodedHash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return fmt.Errorf("cryptox: verify password: %w", err)
}
