package service

import (
	"context"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"markethub/internal/auth"
	"markethub/internal/db"
	"markethub/internal/models"
	"markethub/internal/repository"
)

type ListingService struct {
	conn     *sqlx.DB
	listings *repository.ListingRepository
	files    *repository.FileRepository
	users    *repository.UserRepository
}

func NewListingService(conn *sqlx.DB, listings *repository.ListingRepository, files *repository.FileRepository, users *repository.UserRepository) *ListingService {
	return &ListingService{conn: conn, listings: listings, files: files, users: users}
}

// Create validates the attributes, applies the posting predicate and persists
// the listing with the caller as owner. Ownership always comes from the
// identity, never from the payload.
func (s *ListingService) Create(ctx context.Context, identity *models.Identity, cat models.Category, l *models.Listing) (*models.Listing, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	if !cat.Valid() {
		return nil, Validation("category", "unknown category")
	}
	if d := auth.CanPostListing(identity, cat); !d.Allowed {
		return nil, Forbidden(d.Reason)
	}
	if err := validateListing(cat, l); err != nil {
		return nil, err
	}

	l.OwnerUserID = identity.ID
	l.PrimaryImageID = nil

	err := db.WithRetry(ctx, func(ctx context.Context) error {
		return s.listings.Create(ctx, cat, l)
	})
	if err != nil {
		return nil, storageErr(err, "listing")
	}
	return l, nil
}

func validateListing(cat models.Category, l *models.Listing) error {
	l.Title = strings.TrimSpace(l.Title)
	l.Location = strings.TrimSpace(l.Location)

	if l.Title == "" {
		return Validation("title", "title is required")
	}
	if l.Price < 0 {
		return Validation("price", "price must not be negative")
	}

	switch cat {
	case models.CategoryJob:
		if l.Location == "" {
			return Validation("location", "location is required")
		}
		appType := models.ApplicationTypeInternal
		if l.ApplicationType != nil {
			appType = *l.ApplicationType
		} else {
			l.ApplicationType = &appType
		}
		switch appType {
		case models.ApplicationTypeInternal:
		case models.ApplicationTypeExternal:
			if l.ExternalApplicationURL == nil || strings.TrimSpace(*l.ExternalApplicationURL) == "" {
				return Validation("external_application_url", "external_application_url required")
			}
		default:
			return Validation("application_type", "application_type must be internal or external")
		}
	case models.CategoryCar:
		if l.Make == nil || strings.TrimSpace(*l.Make) == "" {
			return Validation("make", "make is required")
		}
		if l.Model == nil || strings.TrimSpace(*l.Model) == "" {
			return Validation("model", "model is required")
		}
	}
	return nil
}

// Get applies the publish filter: unpublished listings exist only for their
// owner and admins, everyone else gets NotFound rather than Forbidden so
// private listings are indistinguishable from absent ones.
func (s *ListingService) Get(ctx context.Context, identity *models.Identity, cat models.Category, id int64) (*models.Listing, error) {
	if !cat.Valid() {
		return nil, NotFound("listing")
	}

	var l *models.Listing
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		l, err = s.listings.GetByID(ctx, cat, id)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "listing")
	}

	if !l.IsPublished {
		if d := auth.CanMutateListing(identity, l.OwnerUserID); !d.Allowed {
			return nil, NotFound("listing")
		}
	}
	return l, nil
}

// Search lists published listings with optional filters.
func (s *ListingService) Search(ctx context.Context, cat models.Category, f repository.SearchFilters, limit, offset int) ([]models.Listing, error) {
	if !cat.Valid() {
		return nil, Validation("category", "unknown category")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var list []models.Listing
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		list, err = s.listings.Search(ctx, cat, f, limit, offset)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "listings")
	}
	if list == nil {
		list = []models.Listing{}
	}
	return list, nil
}

// Mine returns the caller's own listings in a category, unpublished included.
func (s *ListingService) Mine(ctx context.Context, identity *models.Identity, cat models.Category) ([]models.Listing, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	if !cat.Valid() {
		return nil, Validation("category", "unknown category")
	}

	var list []models.Listing
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		list, err = s.listings.ListByOwner(ctx, cat, identity.ID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "listings")
	}
	if list == nil {
		list = []models.Listing{}
	}
	return list, nil
}

// Dashboard fans out one owner query per category concurrently; the reads
// are independent, so ordering between them does not matter.
func (s *ListingService) Dashboard(ctx context.Context, identity *models.Identity) (map[models.Category][]models.Listing, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	out := make(map[models.Category][]models.Listing, 4)

	for _, cat := range models.Categories() {
		cat := cat
		wg.Add(1)
		go func() {
			defer wg.Done()
			var list []models.Listing
			err := db.WithRetry(ctx, func(ctx context.Context) error {
				var err error
				list, err = s.listings.ListByOwner(ctx, cat, identity.ID)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = storageErr(err, "listings")
				}
				return
			}
			if list == nil {
				list = []models.Listing{}
			}
			out[cat] = list
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// PublicProfile returns another user's published listings across every
// category. Unpublished listings never leak here, not even to admins.
func (s *ListingService) PublicProfile(ctx context.Context, username string) (map[models.Category][]models.Listing, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, Validation("username", "username is required")
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, storageErr(err, "user")
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	out := make(map[models.Category][]models.Listing, 4)

	for _, cat := range models.Categories() {
		cat := cat
		wg.Add(1)
		go func() {
			defer wg.Done()
			var list []models.Listing
			err := db.WithRetry(ctx, func(ctx context.Context) error {
				var err error
				list, err = s.listings.ListByOwner(ctx, cat, u.ID)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = storageErr(err, "listings")
				}
				return
			}
			published := make([]models.Listing, 0, len(list))
			for _, l := range list {
				if l.IsPublished {
					published = append(published, l)
				}
			}
			out[cat] = published
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Update re-fetches the current owner, applies the mutation predicate and
// then writes only the supplied fields. Absent fields stay untouched; an
// explicit null clears a field only where the column is nullable.
func (s *ListingService) Update(ctx context.Context, identity *models.Identity, cat models.Category, id int64, attrs map[string]interface{}) (*models.Listing, error) {
	if !cat.Valid() {
		return nil, NotFound("listing")
	}
	if len(attrs) == 0 {
		return nil, Validation("", "no fields to update")
	}

	current, err := s.fetchForMutation(ctx, identity, cat, id)
	if err != nil {
		return nil, err
	}

	if err := validatePartial(cat, current, attrs); err != nil {
		return nil, err
	}

	var rows int64
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.listings.Update(ctx, cat, id, attrs)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "listing")
	}
	if rows == 0 {
		return nil, NotFound("listing")
	}

	var updated *models.Listing
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.listings.GetByID(ctx, cat, id)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "listing")
	}
	return updated, nil
}

func validatePartial(cat models.Category, current *models.Listing, attrs map[string]interface{}) error {
	for col, val := range attrs {
		if !repository.UpdatableColumn(cat, col) {
			return Validation(col, "unknown or immutable field")
		}
		if val == nil && !repository.NullableColumn(cat, col) {
			return Validation(col, "field is not nullable")
		}
	}

	if v, ok := attrs["title"]; ok {
		title, _ := v.(string)
		if strings.TrimSpace(title) == "" {
			return Validation("title", "title is required")
		}
	}

	if v, ok := attrs["price"]; ok {
		switch p := v.(type) {
		case float64:
			if p < 0 {
				return Validation("price", "price must not be negative")
			}
		case int64:
			if p < 0 {
				return Validation("price", "price must not be negative")
			}
		}
	}

	if cat != models.CategoryJob {
		return nil
	}

	// The post-update state must still satisfy the external-URL rule.
	appType := models.ApplicationTypeInternal
	if current.ApplicationType != nil {
		appType = *current.ApplicationType
	}
	if v, ok := attrs["application_type"]; ok {
		s, _ := v.(string)
		appType = s
	}
	if appType != models.ApplicationTypeInternal && appType != models.ApplicationTypeExternal {
		return Validation("application_type", "application_type must be internal or external")
	}

	if appType == models.ApplicationTypeExternal {
		var url string
		if current.ExternalApplicationURL != nil {
			url = *current.ExternalApplicationURL
		}
		if v, ok := attrs["external_application_url"]; ok {
			url, _ = v.(string)
		}
		if strings.TrimSpace(url) == "" {
			return Validation("external_application_url", "external_application_url required")
		}
	}
	return nil
}

// Delete removes the listing after the same ownership gate as Update. A
// second delete of the same id reports NotFound, not an error.
func (s *ListingService) Delete(ctx context.Context, identity *models.Identity, cat models.Category, id int64) error {
	if !cat.Valid() {
		return NotFound("listing")
	}

	if _, err := s.fetchForMutation(ctx, identity, cat, id); err != nil {
		return err
	}

	var rows int64
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.listings.Delete(ctx, cat, id)
		return err
	})
	if err != nil {
		return storageErr(err, "listing")
	}
	if rows == 0 {
		return NotFound("listing")
	}
	return nil
}

// fetchForMutation is the fresh ownership read every mutation starts from:
// the row as stored decides ownership, never the client's claim.
func (s *ListingService) fetchForMutation(ctx context.Context, identity *models.Identity, cat models.Category, id int64) (*models.Listing, error) {
	var l *models.Listing
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		l, err = s.listings.GetByID(ctx, cat, id)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "listing")
	}
	if d := auth.CanMutateListing(identity, l.OwnerUserID); !d.Allowed {
		return nil, Forbidden(d.Reason)
	}
	return l, nil
}

// Gallery returns the listing's gallery rows; visibility follows Get.
func (s *ListingService) Gallery(ctx context.Context, identity *models.Identity, cat models.Category, id int64) ([]models.GalleryImage, error) {
	if _, err := s.Get(ctx, identity, cat, id); err != nil {
		return nil, err
	}

	var images []models.GalleryImage
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		images, err = s.listings.ListGallery(ctx, cat, id)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "gallery")
	}
	if images == nil {
		images = []models.GalleryImage{}
	}
	return images, nil
}

// AddGalleryImage appends a file already linked to the listing to its
// gallery.
func (s *ListingService) AddGalleryImage(ctx context.Context, identity *models.Identity, cat models.Category, id, fileID int64, position int) error {
	if !cat.Valid() {
		return NotFound("listing")
	}
	if _, err := s.fetchForMutation(ctx, identity, cat, id); err != nil {
		return err
	}

	var f *models.File
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		f, err = s.files.GetByID(ctx, fileID)
		return err
	})
	if err != nil {
		return storageErr(err, "file")
	}

	var (
		linkedCat models.Category
		ok        bool
	)
	if f.EntityType != nil {
		linkedCat, ok = f.EntityType.ListingCategory()
	}
	if !ok || linkedCat != cat || f.EntityID == nil || *f.EntityID != id {
		return Validation("file_id", "file is not linked to this listing")
	}

	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return s.listings.AddGalleryImage(ctx, cat, id, fileID, position)
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return Conflict("already_in_gallery", "file is already in the gallery")
		}
		return storageErr(err, "gallery")
	}
	return nil
}

// RemoveGalleryImage detaches a file from the gallery.
func (s *ListingService) RemoveGalleryImage(ctx context.Context, identity *models.Identity, cat models.Category, id, fileID int64) error {
	if !cat.Valid() {
		return NotFound("listing")
	}
	if _, err := s.fetchForMutation(ctx, identity, cat, id); err != nil {
		return err
	}

	var rows int64
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.listings.RemoveGalleryImage(ctx, cat, id, fileID)
		return err
	})
	if err != nil {
		return storageErr(err, "gallery")
	}
	if rows == 0 {
		return NotFound("gallery image")
	}
	return nil
}
