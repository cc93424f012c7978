package models

import (
	"encoding/json"
	"time"
)

// Category enumerates the listing categories. The set is closed: table and
// column names are always resolved through code-level maps, never from
// caller input.
type Category string

const (
	CategoryHouse Category = "house"
	CategoryCar   Category = "car"
	CategoryItem  Category = "item"
	CategoryJob   Category = "job"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryHouse, CategoryCar, CategoryItem, CategoryJob:
		return true
	}
	return false
}

// Categories lists all valid categories in a stable order.
func Categories() []Category {
	return []Category{CategoryHouse, CategoryCar, CategoryItem, CategoryJob}
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                int64     `db:"id" json:"id"`
	Username          string    `db:"username" json:"username"`
	PasswordHash      string    `db:"password_hash" json:"-"`
	Email             string    `db:"email" json:"email"`
	RoleID            int64     `db:"role_id" json:"-"`
	Role              string    `db:"role" json:"role"`
	IsCompany         bool      `db:"is_company" json:"is_company"`
	IsVerifiedCompany bool      `db:"is_verified_company" json:"is_verified_company"`
	CompanyName       *string   `db:"company_name" json:"company_name,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Identity is the session snapshot of a user: the subset of User fields the
// authorization predicates need. A nil *Identity means anonymous.
type Identity struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	IsCompany         bool   `json:"is_company"`
	IsVerifiedCompany bool   `json:"is_verified_company"`
}

// Listing is the union of the four category shapes. Common fields are always
// populated; category-specific fields are nil outside their category and map
// to columns that exist only in that category's table.
type Listing struct {
	ID             int64    `db:"id" json:"id"`
	OwnerUserID    int64    `db:"owner_user_id" json:"owner_user_id"`
	Title          string   `db:"title" json:"title"`
	Description    string   `db:"description" json:"description"`
	Price          int64    `db:"price" json:"price"`
	Location       string   `db:"location" json:"location"`
	IsPublished    bool     `db:"is_published" json:"is_published"`
	PrimaryImageID *int64   `db:"primary_image_id" json:"primary_image_id,omitempty"`
	Category       Category `db:"-" json:"category"`

	// houses
	Bedrooms   *int64 `db:"bedrooms" json:"bedrooms,omitempty"`
	Bathrooms  *int64 `db:"bathrooms" json:"bathrooms,omitempty"`
	SquareFeet *int64 `db:"square_feet" json:"square_feet,omitempty"`

	// cars
	Make    *string `db:"make" json:"make,omitempty"`
	Model   *string `db:"model" json:"model,omitempty"`
	Year    *int64  `db:"year" json:"year,omitempty"`
	Mileage *int64  `db:"mileage" json:"mileage,omitempty"`

	// items
	Condition *string `db:"condition" json:"condition,omitempty"`

	// jobs
	CompanyName            *string `db:"company_name" json:"company_name,omitempty"`
	SalaryRange            *string `db:"salary_range" json:"salary_range,omitempty"`
	ApplicationType        *string `db:"application_type" json:"application_type,omitempty"`
	ExternalApplicationURL *string `db:"external_application_url" json:"external_application_url,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	ApplicationTypeInternal = "internal"
	ApplicationTypeExternal = "external"
)

// EntityType names the kinds of rows a File may be linked to.
type EntityType string

const (
	EntityHouse EntityType = "house"
	EntityCar   EntityType = "car"
	EntityItem  EntityType = "item"
	EntityJob   EntityType = "job"
	EntityUser  EntityType = "user"
)

func (e EntityType) Valid() bool {
	switch e {
	case EntityHouse, EntityCar, EntityItem, EntityJob, EntityUser:
		return true
	}
	return false
}

// ListingCategory returns the listing category for entity types that are
// listings, and false for user-type entities.
func (e EntityType) ListingCategory() (Category, bool) {
	switch e {
	case EntityHouse:
		return CategoryHouse, true
	case EntityCar:
		return CategoryCar, true
	case EntityItem:
		return CategoryItem, true
	case EntityJob:
		return CategoryJob, true
	}
	return "", false
}

type File struct {
	ID           int64       `db:"id" json:"id"`
	OriginalName string      `db:"original_name" json:"original_name"`
	StoragePath  string      `db:"storage_path" json:"-"`
	MimeType     string      `db:"mime_type" json:"mime_type"`
	Size         int64       `db:"size" json:"size"`
	OwnerUserID  int64       `db:"owner_user_id" json:"owner_user_id"`
	EntityType   *EntityType `db:"entity_type" json:"entity_type,omitempty"`
	EntityID     *int64      `db:"entity_id" json:"entity_id,omitempty"`
	IsPublic     bool        `db:"is_public" json:"is_public"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

type CompanyVerificationRequest struct {
	ID                    int64     `db:"id" json:"id"`
	UserID                int64     `db:"user_id" json:"user_id"`
	CompanyName           string    `db:"company_name" json:"company_name"`
	BusinessLicenseNumber string    `db:"business_license_number" json:"business_license_number"`
	ContactEmail          string    `db:"contact_email" json:"contact_email"`
	ContactPhone          string    `db:"contact_phone" json:"contact_phone"`
	Status                string    `db:"status" json:"status"`
	RejectionReason       *string   `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

type Conversation struct {
	ID             int64           `db:"id" json:"id"`
	ParticipantA   int64           `db:"participant_a" json:"participant_a"`
	ParticipantB   int64           `db:"participant_b" json:"participant_b"`
	ListingType    *Category       `db:"listing_type" json:"listing_type,omitempty"`
	ListingID      *int64          `db:"listing_id" json:"listing_id,omitempty"`
	Subject        string          `db:"subject" json:"subject"`
	ListingDetails json.RawMessage `db:"listing_details" json:"listing_details,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Participant reports whether userID is one of the conversation's two sides.
func (c *Conversation) Participant(userID int64) bool {
	return userID == c.ParticipantA || userID == c.ParticipantB
}

// Other returns the counterpart of userID in the conversation.
func (c *Conversation) Other(userID int64) int64 {
	if userID == c.ParticipantA {
		return c.ParticipantB
	}
	return c.ParticipantA
}

type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	RecipientID    int64     `db:"recipient_id" json:"recipient_id"`
	Content        string    `db:"content" json:"content"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type JobApplication struct {
	ID          int64     `db:"id" json:"id"`
	JobID       int64     `db:"job_id" json:"job_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	CoverLetter string    `db:"cover_letter" json:"cover_letter"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type CustomQuestion struct {
	ID       int64  `db:"id" json:"id"`
	JobID    int64  `db:"job_id" json:"job_id"`
	Question string `db:"question" json:"question"`
	Required bool   `db:"required" json:"required"`
	Position int    `db:"position" json:"position"`
}

type CustomAnswer struct {
	ID            int64  `db:"id" json:"id"`
	ApplicationID int64  `db:"application_id" json:"application_id"`
	QuestionID    int64  `db:"question_id" json:"question_id"`
	Answer        string `db:"answer" json:"answer"`
}

// GalleryImage is one row of a per-category *_images join table. The join
// table is authoritative for gallery ordering.
type GalleryImage struct {
	ID        int64 `db:"id" json:"id"`
	ListingID int64 `db:"listing_id" json:"listing_id"`
	FileID    int64 `db:"file_id" json:"file_id"`
	Position  int   `db:"position" json:"position"`
}
