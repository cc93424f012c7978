package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"markethub/internal/models"
)

type VerificationRepository struct {
	DB *sqlx.DB
}

func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{DB: db}
}

const verificationColumns = `id, user_id, company_name, business_license_number,
	contact_email, contact_phone, status, rejection_reason, created_at, updated_at`

func (r *VerificationRepository) Create(ctx context.Context, req *models.CompanyVerificationRequest) error {
	query := `
		INSERT INTO company_verification_requests
			(user_id, company_name, business_license_number, contact_email, contact_phone, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	row := r.DB.QueryRowxContext(ctx, query,
		req.UserID, req.CompanyName, req.BusinessLicenseNumber,
		req.ContactEmail, req.ContactPhone, models.VerificationPending)
	if err := row.Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return fmt.Errorf("VerificationRepository.Create: %w", err)
	}
	req.Status = models.VerificationPending
	return nil
}

func (r *VerificationRepository) GetByID(ctx context.Context, id int64) (*models.CompanyVerificationRequest, error) {
	var req models.CompanyVerificationRequest
	query := fmt.Sprintf(`SELECT %s FROM company_verification_requests WHERE id = $1`, verificationColumns)
	if err := r.DB.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// HasPending reports whether the user already has an active pending request.
// The one-pending-per-user invariant is enforced here at the service layer,
// not by a DB constraint.
func (r *VerificationRepository) HasPending(ctx context.Context, userID int64) (bool, error) {
	var count int
	const q = `SELECT COUNT(1) FROM company_verification_requests WHERE user_id = $1 AND status = $2`
	if err := r.DB.GetContext(ctx, &count, q, userID, models.VerificationPending); err != nil {
		return false, fmt.Errorf("VerificationRepository.HasPending: %w", err)
	}
	return count > 0, nil
}

// ListPending returns pending requests for admin review, oldest first.
func (r *VerificationRepository) ListPending(ctx context.Context, limit, offset int) ([]models.CompanyVerificationRequest, error) {
	var reqs []models.CompanyVerificationRequest
	query := fmt.Sprintf(
		`SELECT %s FROM company_verification_requests WHERE status = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		verificationColumns,
	)
	if err := r.DB.SelectContext(ctx, &reqs, query, models.VerificationPending, limit, offset); err != nil {
		return nil, err
	}
	return reqs, nil
}

// SetStatus transitions a request inside an existing transaction; only
// pending requests can move. Returns rows affected.
func SetStatus(ctx context.Context, tx *sqlx.Tx, id int64, status string, rejectionReason *string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE company_verification_requests
		SET status = $1, rejection_reason = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, status, rejectionReason, id, models.VerificationPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
