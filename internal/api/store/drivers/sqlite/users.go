package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, name, email, password_hash, cpf, oab, phone, role,
	active, two_factor_secret, two_factor_enabled, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, password_hash, cpf, oab, phone, role,
			active, two_factor_secret, two_factor_enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash,
		mapOptionalString(u.CPF), mapOptionalString(u.OAB), mapOptionalString(u.Phone),
		string(u.Role), u.Active,
		mapOptionalString(u.TwoFactorSecret), u.TwoFactorEnabled,
		u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateTwoFactorSecret(ctx context.Context, userID string, secret string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET two_factor_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) EnableTwoFactor(ctx context.Context, userID string) error {
	// The WHERE clause keeps enabled-without-secret unrepresentable.
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET two_factor_enabled = 1, updated_at = ?
		WHERE id = ? AND two_factor_secret IS NOT NULL AND two_factor_secret <> ''`,
		time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) DisableTwoFactor(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET two_factor_enabled = 0, two_factor_secret = NULL, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow turns a zero-row update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u         domain.User
		cpf       sql.NullString
		oab       sql.NullString
		phone     sql.NullString
		role      string
		tfaSecret sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&cpf, &oab, &phone, &role,
		&u.Active, &tfaSecret, &u.TwoFactorEnabled,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.CPF = mapNullStringPtr(cpf)
	u.OAB = mapNullStringPtr(oab)
	u.Phone = mapNullStringPtr(phone)
	u.Role = domain.Role(role)
	u.TwoFactorSecret = mapNullStringPtr(tfaSecret)
	return u, nil
}
