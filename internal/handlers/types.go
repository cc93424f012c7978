package handlers

import (
	"fmt"
	"time"

	"markethub/internal/models"
)

// ListingView is the wire shape of a listing: the model plus derived URLs
// the frontend needs.
type ListingView struct {
	ID              int64           `json:"id"`
	Category        models.Category `json:"category"`
	OwnerUserID     int64           `json:"owner_user_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Price           int64           `json:"price"`
	Location        string          `json:"location"`
	IsPublished     bool            `json:"is_published"`
	PrimaryImageURL string          `json:"primary_image_url,omitempty"`

	Bedrooms   *int64 `json:"bedrooms,omitempty"`
	Bathrooms  *int64 `json:"bathrooms,omitempty"`
	SquareFeet *int64 `json:"square_feet,omitempty"`

	Make    *string `json:"make,omitempty"`
	Model   *string `json:"model,omitempty"`
	Year    *int64  `json:"year,omitempty"`
	Mileage *int64  `json:"mileage,omitempty"`

	Condition *string `json:"condition,omitempty"`

	CompanyName            *string `json:"company_name,omitempty"`
	SalaryRange            *string `json:"salary_range,omitempty"`
	ApplicationType        *string `json:"application_type,omitempty"`
	ExternalApplicationURL *string `json:"external_application_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func buildListingView(l models.Listing) ListingView {
	view := ListingView{
		ID:          l.ID,
		Category:    l.Category,
		OwnerUserID: l.OwnerUserID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Location:    l.Location,
		IsPublished: l.IsPublished,

		Bedrooms:   l.Bedrooms,
		Bathrooms:  l.Bathrooms,
		SquareFeet: l.SquareFeet,

		Make:    l.Make,
		Model:   l.Model,
		Year:    l.Year,
		Mileage: l.Mileage,

		Condition: l.Condition,

		CompanyName:            l.CompanyName,
		SalaryRange:            l.SalaryRange,
		ApplicationType:        l.ApplicationType,
		ExternalApplicationURL: l.ExternalApplicationURL,

		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}

	if l.PrimaryImageID != nil {
		view.PrimaryImageURL = fmt.Sprintf("/api/files/%d/download", *l.PrimaryImageID)
	}

	return view
}

func buildListingViews(list []models.Listing) []ListingView {
	views := make([]ListingView, 0, len(list))
	for _, l := range list {
		views = append(views, buildListingView(l))
	}
	return views
}

// FileView hides the storage path and exposes a download URL instead.
type FileView struct {
	ID           int64              `json:"id"`
	OriginalName string             `json:"original_name"`
	MimeType     string             `json:"mime_type"`
	Size         int64              `json:"size"`
	OwnerUserID  int64              `json:"owner_user_id"`
	EntityType   *models.EntityType `json:"entity_type,omitempty"`
	EntityID     *int64             `json:"entity_id,omitempty"`
	IsPublic     bool               `json:"is_public"`
	DownloadURL  string             `json:"download_url"`
	CreatedAt    time.Time          `json:"created_at"`
}

func buildFileView(f models.File) FileView {
	return FileView{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		Size:         f.Size,
		OwnerUserID:  f.OwnerUserID,
		EntityType:   f.EntityType,
		EntityID:     f.EntityID,
		IsPublic:     f.IsPublic,
		DownloadURL:  fmt.Sprintf("/api/files/%d/download", f.ID),
		CreatedAt:    f.CreatedAt,
	}
}

func buildFileViews(files []models.File) []FileView {
	views := make([]FileView, 0, len(files))
	for _, f := range files {
		views = append(views, buildFileView(f))
	}
	return views
}
