package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"markethub/internal/models"
)

type UserRepository struct {
	DB *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `u.id, u.username, u.password_hash, u.email, u.role_id, r.name AS role,
	u.is_company, u.is_verified_company, u.company_name, u.created_at, u.updated_at`

// Create inserts a user with the named role resolved through the roles table.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, email, role_id, is_company, company_name)
		VALUES ($1, $2, $3, (SELECT id FROM roles WHERE name = $4), $5, $6)
		RETURNING id, created_at, updated_at
	`
	row := r.DB.QueryRowxContext(ctx, query,
		u.Username, u.PasswordHash, u.Email, u.Role, u.IsCompany, u.CompanyName)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("UserRepository.Create: %w", err)
	}
	return nil
}

// GetByUsername is a case-sensitive exact match; the caller trims input.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	query := fmt.Sprintf(`SELECT %s FROM users u JOIN roles r ON r.id = u.role_id WHERE u.username = $1`, userColumns)
	if err := r.DB.GetContext(ctx, &u, query, username); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	query := fmt.Sprintf(`SELECT %s FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, userColumns)
	if err := r.DB.GetContext(ctx, &u, query, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetIdentity fetches the session-snapshot subset of a user row. Used by the
// per-request session refresh.
func (r *UserRepository) GetIdentity(ctx context.Context, id int64) (*models.Identity, error) {
	row := r.DB.QueryRowxContext(ctx, `
		SELECT u.id, u.username, u.email, r.name, u.is_company, u.is_verified_company
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`, id)

	var ident models.Identity
	if err := row.Scan(&ident.ID, &ident.Username, &ident.Email, &ident.Role,
		&ident.IsCompany, &ident.IsVerifiedCompany); err != nil {
		return nil, err
	}
	return &ident, nil
}

// Delete removes the user; owned listings, files and applications go with it
// via ON DELETE CASCADE. Returns the number of rows deleted.
func (r *UserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("UserRepository.Delete: %w", err)
	}
	return res.RowsAffected()
}

// SetVerifiedCompany flips the verified-company flag inside an existing
// transaction; paired with the request-status update on approval.
func SetVerifiedCompany(ctx context.Context, tx *sqlx.Tx, userID int64, verified bool) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET is_verified_company = $1, updated_at = now() WHERE id = $2`,
		verified, userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
