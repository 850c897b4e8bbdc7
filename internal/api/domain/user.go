package domain

import "time"

// Role is the fixed set of office roles. The role travels inside access
// tokens and gates the admin-only surfaces.
type Role string

const (
	RoleSocio          Role = "SOCIO"
	RoleAdvogado       Role = "ADVOGADO"
	RoleEstagiario     Role = "ESTAGIARIO"
	RoleAdministrativo Role = "ADMINISTRATIVO"
)

// Valid reports whether r is one of the known office roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSocio, RoleAdvogado, RoleEstagiario, RoleAdministrativo:
		return true
	}
	return false
}

type User struct {
	ID           string
	Name         string
	Email        string // unique
	PasswordHash string // bcrypt encoded
	CPF          *string
	OAB          *string // bar association registration number
	Phone        *string
	Role         Role
	Active       bool

	// TwoFactorSecret is set at enrollment, before TwoFactorEnabled flips.
	// Invariant: TwoFactorEnabled implies a non-empty secret.
	TwoFactorSecret  *string
	TwoFactorEnabled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TwoFactorState derives the enrollment state from the user record.
func (u User) TwoFactorState() TwoFactorState {
	switch {
	case u.TwoFactorEnabled:
		return TwoFactorEnabled
	case u.TwoFactorSecret != nil && *u.TwoFactorSecret != "":
		return TwoFactorPendingEnrollment
	default:
		return TwoFactorNotConfigured
	}
}

// Profile is the public view of a user returned by login and /me.
// It never carries the password hash or the second-factor secret.
type Profile struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	CPF              *string   `json:"cpf,omitempty"`
	OAB              *string   `json:"oab,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	Role             Role      `json:"role"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Profile projects the user onto its public view.
func (u User) Profile() Profile {
	return Profile{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		CPF:              u.CPF,
		OAB:              u.OAB,
		Phone:            u.Phone,
		Role:             u.Role,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
	}
}
