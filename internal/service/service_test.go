package service

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"markethub/internal/models"
)

func newMockConn(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

func plainUser(id int64) *models.Identity {
	return &models.Identity{ID: id, Username: "user", Role: models.RoleUser}
}

func adminUser(id int64) *models.Identity {
	return &models.Identity{ID: id, Username: "admin", Role: models.RoleAdmin}
}

func verifiedCompany(id int64) *models.Identity {
	return &models.Identity{ID: id, Username: "acme", Role: models.RoleUser, IsCompany: true, IsVerifiedCompany: true}
}

func strPtr(s string) *string { return &s }

func testTime() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

func errNoRows() error { return sql.ErrNoRows }

func intPtr(v int64) *int64 { return &v }

// nullable flattens pointer fields into driver-friendly values for mock rows.
func nullable(v interface{}) interface{} {
	switch p := v.(type) {
	case *int64:
		if p == nil {
			return nil
		}
		return *p
	case *string:
		if p == nil {
			return nil
		}
		return *p
	case *models.EntityType:
		if p == nil {
			return nil
		}
		return string(*p)
	case *models.Category:
		if p == nil {
			return nil
		}
		return string(*p)
	}
	return v
}

var listingCommonCols = []string{
	"id", "owner_user_id", "title", "description", "price", "location",
	"is_published", "primary_image_id", "created_at", "updated_at",
}

// houseRows builds a single-row result in houses column order.
func houseRows(l models.Listing) *sqlmock.Rows {
	cols := append(append([]string{}, listingCommonCols...), "bedrooms", "bathrooms", "square_feet")
	now := time.Now()
	return sqlmock.NewRows(cols).AddRow(
		l.ID, l.OwnerUserID, l.Title, l.Description, l.Price, l.Location,
		l.IsPublished, nullable(l.PrimaryImageID), now, now,
		nullable(l.Bedrooms), nullable(l.Bathrooms), nullable(l.SquareFeet),
	)
}

// carRows builds a single-row result in cars column order.
func carRows(l models.Listing) *sqlmock.Rows {
	cols := append(append([]string{}, listingCommonCols...), "make", "model", "year", "mileage")
	now := time.Now()
	return sqlmock.NewRows(cols).AddRow(
		l.ID, l.OwnerUserID, l.Title, l.Description, l.Price, l.Location,
		l.IsPublished, nullable(l.PrimaryImageID), now, now,
		nullable(l.Make), nullable(l.Model), nullable(l.Year), nullable(l.Mileage),
	)
}

// jobRows builds a single-row result in jobs column order.
func jobRows(l models.Listing) *sqlmock.Rows {
	cols := append(append([]string{}, listingCommonCols...),
		"company_name", "salary_range", "application_type", "external_application_url")
	now := time.Now()
	return sqlmock.NewRows(cols).AddRow(
		l.ID, l.OwnerUserID, l.Title, l.Description, l.Price, l.Location,
		l.IsPublished, nullable(l.PrimaryImageID), now, now,
		nullable(l.CompanyName), nullable(l.SalaryRange), nullable(l.ApplicationType), nullable(l.ExternalApplicationURL),
	)
}

func fileRows(f models.File) *sqlmock.Rows {
	cols := []string{
		"id", "original_name", "storage_path", "mime_type", "size",
		"owner_user_id", "entity_type", "entity_id", "is_public", "created_at",
	}
	return sqlmock.NewRows(cols).AddRow(
		f.ID, f.OriginalName, f.StoragePath, f.MimeType, f.Size,
		f.OwnerUserID, nullable(f.EntityType), nullable(f.EntityID), f.IsPublic, time.Now(),
	)
}

func verificationRows(r models.CompanyVerificationRequest) *sqlmock.Rows {
	cols := []string{
		"id", "user_id", "company_name", "business_license_number",
		"contact_email", "contact_phone", "status", "rejection_reason", "created_at", "updated_at",
	}
	now := time.Now()
	return sqlmock.NewRows(cols).AddRow(
		r.ID, r.UserID, r.CompanyName, r.BusinessLicenseNumber,
		r.ContactEmail, r.ContactPhone, r.Status, nullable(r.RejectionReason), now, now,
	)
}

func conversationRows(c models.Conversation) *sqlmock.Rows {
	cols := []string{
		"id", "participant_a", "participant_b", "listing_type", "listing_id",
		"subject", "listing_details", "created_at", "updated_at",
	}
	now := time.Now()
	return sqlmock.NewRows(cols).AddRow(
		c.ID, c.ParticipantA, c.ParticipantB, nullable(c.ListingType), nullable(c.ListingID),
		c.Subject, []byte(c.ListingDetails), now, now,
	)
}
