package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	"markethub/internal/auth"
	"markethub/internal/db"
	"markethub/internal/models"
	"markethub/internal/repository"
)

// DefaultRejectionReason fills in when an admin rejects without explaining.
const DefaultRejectionReason = "no reason provided"

type VerificationService struct {
	conn *sqlx.DB
	reqs *repository.VerificationRepository
}

func NewVerificationService(conn *sqlx.DB, reqs *repository.VerificationRepository) *VerificationService {
	return &VerificationService{conn: conn, reqs: reqs}
}

type VerificationInput struct {
	CompanyName           string `json:"company_name"`
	BusinessLicenseNumber string `json:"business_license_number"`
	ContactEmail          string `json:"contact_email"`
	ContactPhone          string `json:"contact_phone"`
}

// Submit registers a verification request. One pending request per user: a
// second submission while one is open is a Conflict. A rejected user may
// resubmit.
func (s *VerificationService) Submit(ctx context.Context, identity *models.Identity, in VerificationInput) (*models.CompanyVerificationRequest, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	if strings.TrimSpace(in.CompanyName) == "" {
		return nil, Validation("company_name", "company_name is required")
	}
	if strings.TrimSpace(in.BusinessLicenseNumber) == "" {
		return nil, Validation("business_license_number", "business_license_number is required")
	}

	var pending bool
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		pending, err = s.reqs.HasPending(ctx, identity.ID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "verification request")
	}
	if pending {
		return nil, Conflict("pending_request_exists", "a pending verification request already exists")
	}

	req := &models.CompanyVerificationRequest{
		UserID:                identity.ID,
		CompanyName:           strings.TrimSpace(in.CompanyName),
		BusinessLicenseNumber: strings.TrimSpace(in.BusinessLicenseNumber),
		ContactEmail:          strings.TrimSpace(in.ContactEmail),
		ContactPhone:          strings.TrimSpace(in.ContactPhone),
	}
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return s.reqs.Create(ctx, req)
	})
	if err != nil {
		return nil, storageErr(err, "verification request")
	}
	return req, nil
}

// ListPending returns the admin review queue.
func (s *VerificationService) ListPending(ctx context.Context, identity *models.Identity, limit, offset int) ([]models.CompanyVerificationRequest, error) {
	if d := auth.IsAdmin(identity); !d.Allowed {
		return nil, Forbidden(d.Reason)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var reqs []models.CompanyVerificationRequest
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		reqs, err = s.reqs.ListPending(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "verification requests")
	}
	if reqs == nil {
		reqs = []models.CompanyVerificationRequest{}
	}
	return reqs, nil
}

// Approve moves a pending request to approved and flips the user's
// verified-company flag in the same transaction: either both writes land or
// neither does.
func (s *VerificationService) Approve(ctx context.Context, identity *models.Identity, requestID int64) error {
	if d := auth.IsAdmin(identity); !d.Allowed {
		return Forbidden(d.Reason)
	}

	req, err := s.fetch(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != models.VerificationPending {
		return Conflict("not_pending", "request has already been reviewed")
	}

	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
			rows, err := repository.SetStatus(ctx, tx, requestID, models.VerificationApproved, nil)
			if err != nil {
				return err
			}
			if rows == 0 {
				// Raced with another reviewer.
				return sql.ErrNoRows
			}
			rows, err = repository.SetVerifiedCompany(ctx, tx, req.UserID, true)
			if err != nil {
				return err
			}
			if rows == 0 {
				return sql.ErrNoRows
			}
			return nil
		})
	})
	return storageErr(err, "verification request")
}

// Reject moves a pending request to rejected with a mandatory reason,
// defaulted when omitted. The user's verification flag is untouched.
func (s *VerificationService) Reject(ctx context.Context, identity *models.Identity, requestID int64, reason string) error {
	if d := auth.IsAdmin(identity); !d.Allowed {
		return Forbidden(d.Reason)
	}

	req, err := s.fetch(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != models.VerificationPending {
		return Conflict("not_pending", "request has already been reviewed")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
			rows, err := repository.SetStatus(ctx, tx, requestID, models.VerificationRejected, &reason)
			if err != nil {
				return err
			}
			if rows == 0 {
				return sql.ErrNoRows
			}
			return nil
		})
	})
	return storageErr(err, "verification request")
}

func (s *VerificationService) fetch(ctx context.Context, id int64) (*models.CompanyVerificationRequest, error) {
	var req *models.CompanyVerificationRequest
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.reqs.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "verification request")
	}
	return req, nil
}
