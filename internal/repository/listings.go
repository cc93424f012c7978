package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"markethub/internal/models"
)

// listingTables is the closed category-to-table mapping. Table names are
// never interpolated from caller input; anything not in this map is rejected
// before a query is built.
var listingTables = map[models.Category]string{
	models.CategoryHouse: "houses",
	models.CategoryCar:   "cars",
	models.CategoryItem:  "items",
	models.CategoryJob:   "jobs",
}

// galleryTables maps categories to their *_images join tables. Jobs carry a
// primary image only, no gallery.
var galleryTables = map[models.Category]string{
	models.CategoryHouse: "house_images",
	models.CategoryCar:   "car_images",
	models.CategoryItem:  "item_images",
}

var commonColumns = []string{
	"id", "owner_user_id", "title", "description", "price", "location",
	"is_published", "primary_image_id", "created_at", "updated_at",
}

var categoryColumns = map[models.Category][]string{
	models.CategoryHouse: {"bedrooms", "bathrooms", "square_feet"},
	models.CategoryCar:   {"make", "model", "year", "mileage"},
	models.CategoryItem:  {"condition"},
	models.CategoryJob:   {"company_name", "salary_range", "application_type", "external_application_url"},
}

// commonUpdatable are the shared columns a partial update may touch.
var commonUpdatable = map[string]bool{
	"title":            true,
	"description":      true,
	"price":            true,
	"location":         true,
	"is_published":     true,
	"primary_image_id": true,
}

// nullableColumns may be cleared with an explicit null. All category-specific
// columns are nullable since they live in per-category tables as optional
// attributes; of the common columns only primary_image_id is.
var nullableCommon = map[string]bool{
	"primary_image_id": true,
}

type ListingRepository struct {
	DB *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{DB: db}
}

// TableFor resolves the category's table through the closed map.
func TableFor(cat models.Category) (string, error) {
	t, ok := listingTables[cat]
	if !ok {
		return "", fmt.Errorf("unknown listing category %q", cat)
	}
	return t, nil
}

// UpdatableColumn reports whether a partial update may touch col for the
// given category.
func UpdatableColumn(cat models.Category, col string) bool {
	if commonUpdatable[col] {
		return true
	}
	for _, c := range categoryColumns[cat] {
		if c == col {
			return true
		}
	}
	return false
}

// NullableColumn reports whether col accepts an explicit null.
func NullableColumn(cat models.Category, col string) bool {
	if nullableCommon[col] {
		return true
	}
	for _, c := range categoryColumns[cat] {
		if c == col {
			return true
		}
	}
	return false
}

func selectColumns(cat models.Category) string {
	cols := append([]string{}, commonColumns...)
	cols = append(cols, categoryColumns[cat]...)
	return strings.Join(cols, ", ")
}

func (r *ListingRepository) Create(ctx context.Context, cat models.Category, l *models.Listing) error {
	table, err := TableFor(cat)
	if err != nil {
		return err
	}

	cols := []string{"owner_user_id", "title", "description", "price", "location", "is_published"}
	cols = append(cols, categoryColumns[cat]...)
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = ":" + c
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id, created_at, updated_at",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)

	rows, err := r.DB.NamedQueryContext(ctx, query, l)
	if err != nil {
		return fmt.Errorf("ListingRepository.Create: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("ListingRepository.Create: no row returned")
	}
	if err := rows.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return fmt.Errorf("ListingRepository.Create: %w", err)
	}
	l.Category = cat
	return rows.Err()
}

func (r *ListingRepository) GetByID(ctx context.Context, cat models.Category, id int64) (*models.Listing, error) {
	table, err := TableFor(cat)
	if err != nil {
		return nil, err
	}

	var l models.Listing
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectColumns(cat), table)
	if err := r.DB.GetContext(ctx, &l, query, id); err != nil {
		return nil, err
	}
	l.Category = cat
	return &l, nil
}

// SearchFilters narrows a published-listings search. Zero values are skipped.
type SearchFilters struct {
	Location string
	MinPrice int64
	MaxPrice int64
}

// Search returns published listings, newest first.
func (r *ListingRepository) Search(ctx context.Context, cat models.Category, f SearchFilters, limit, offset int) ([]models.Listing, error) {
	table, err := TableFor(cat)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE is_published = true", selectColumns(cat), table)
	args := []interface{}{}
	idx := 1

	if f.Location != "" {
		query += fmt.Sprintf(" AND location ILIKE $%d", idx)
		args = append(args, "%"+f.Location+"%")
		idx++
	}
	if f.MinPrice > 0 {
		query += fmt.Sprintf(" AND price >= $%d", idx)
		args = append(args, f.MinPrice)
		idx++
	}
	if f.MaxPrice > 0 {
		query += fmt.Sprintf(" AND price <= $%d", idx)
		args = append(args, f.MaxPrice)
		idx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	var list []models.Listing
	if err := r.DB.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Category = cat
	}
	return list, nil
}

// ListByOwner returns all of a user's listings in the category, published or
// not. This backs the "my listings" path that bypasses the publish filter.
func (r *ListingRepository) ListByOwner(ctx context.Context, cat models.Category, ownerID int64) ([]models.Listing, error) {
	table, err := TableFor(cat)
	if err != nil {
		return nil, err
	}

	var list []models.Listing
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE owner_user_id = $1 ORDER BY updated_at DESC",
		selectColumns(cat), table,
	)
	if err := r.DB.SelectContext(ctx, &list, query, ownerID); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Category = cat
	}
	return list, nil
}

// Update applies a partial update: only the given columns change, and
// updated_at always advances. Column names must already be validated with
// UpdatableColumn. Returns the number of rows touched.
func (r *ListingRepository) Update(ctx context.Context, cat models.Category, id int64, attrs map[string]interface{}) (int64, error) {
	table, err := TableFor(cat)
	if err != nil {
		return 0, err
	}

	sets := make([]string, 0, len(attrs)+1)
	args := make([]interface{}, 0, len(attrs)+1)
	idx := 1
	for col, val := range attrs {
		if !UpdatableColumn(cat, col) {
			return 0, fmt.Errorf("column %q is not updatable in %s", col, table)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(sets, ", "), idx)
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ListingRepository.Update: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes the listing; dependent image and application rows go with it
// via ON DELETE CASCADE. Returns the number of rows deleted.
func (r *ListingRepository) Delete(ctx context.Context, cat models.Category, id int64) (int64, error) {
	table, err := TableFor(cat)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return 0, fmt.Errorf("ListingRepository.Delete: %w", err)
	}
	return res.RowsAffected()
}

// SetPrimaryImage points the listing at its representative file inside an
// existing transaction; the caller pairs it with the file-side update.
func SetPrimaryImage(ctx context.Context, tx *sqlx.Tx, cat models.Category, listingID, fileID int64) (int64, error) {
	table, err := TableFor(cat)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET primary_image_id = $1, updated_at = now() WHERE id = $2", table),
		fileID, listingID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AddGalleryImage appends a file to the listing's gallery at the given
// position.
func (r *ListingRepository) AddGalleryImage(ctx context.Context, cat models.Category, listingID, fileID int64, position int) error {
	table, ok := galleryTables[cat]
	if !ok {
		return fmt.Errorf("category %q has no image gallery", cat)
	}
	_, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (listing_id, file_id, position) VALUES ($1, $2, $3)", table),
		listingID, fileID, position,
	)
	if err != nil {
		return fmt.Errorf("ListingRepository.AddGalleryImage: %w", err)
	}
	return nil
}

// ListGallery returns the listing's gallery rows ordered by position; the
// join table is authoritative for ordering.
func (r *ListingRepository) ListGallery(ctx context.Context, cat models.Category, listingID int64) ([]models.GalleryImage, error) {
	table, ok := galleryTables[cat]
	if !ok {
		return nil, fmt.Errorf("category %q has no image gallery", cat)
	}
	var images []models.GalleryImage
	query := fmt.Sprintf(
		"SELECT id, listing_id, file_id, position FROM %s WHERE listing_id = $1 ORDER BY position ASC",
		table,
	)
	if err := r.DB.SelectContext(ctx, &images, query, listingID); err != nil {
		return nil, err
	}
	return images, nil
}

// RemoveGalleryImage detaches a file from the listing's gallery.
func (r *ListingRepository) RemoveGalleryImage(ctx context.Context, cat models.Category, listingID, fileID int64) (int64, error) {
	table, ok := galleryTables[cat]
	if !ok {
		return 0, fmt.Errorf("category %q has no image gallery", cat)
	}
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE listing_id = $1 AND file_id = $2", table),
		listingID, fileID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
