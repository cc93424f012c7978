package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"

	"markethub/internal/auth"
	"markethub/internal/blob"
	"markethub/internal/db"
	"markethub/internal/models"
	"markethub/internal/repository"
)

type FileService struct {
	conn     *sqlx.DB
	files    *repository.FileRepository
	listings *repository.ListingRepository
	store    blob.Store
}

func NewFileService(conn *sqlx.DB, files *repository.FileRepository, listings *repository.ListingRepository, store blob.Store) *FileService {
	return &FileService{conn: conn, files: files, listings: listings, store: store}
}

// UploadInput carries an already-received blob; size and type filtering
// happened at the route layer.
type UploadInput struct {
	OriginalName string
	MimeType     string
	Size         int64
	Content      io.Reader
	EntityType   *models.EntityType
	EntityID     *int64
	IsPublic     bool
}

// Upload stores the blob and registers its metadata with the caller as
// owner. Files may start orphaned (no entity link) and be linked later.
func (s *FileService) Upload(ctx context.Context, identity *models.Identity, in UploadInput) (*models.File, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	if strings.TrimSpace(in.OriginalName) == "" {
		return nil, Validation("original_name", "file name is required")
	}
	if in.EntityType != nil && !in.EntityType.Valid() {
		return nil, Validation("entity_type", "unknown entity type")
	}
	if (in.EntityType == nil) != (in.EntityID == nil) {
		return nil, Validation("entity_id", "entity_type and entity_id must be set together")
	}

	path, err := s.store.Save(in.OriginalName, in.Content)
	if err != nil {
		return nil, Unavailable(err)
	}

	f := &models.File{
		OriginalName: in.OriginalName,
		StoragePath:  path,
		MimeType:     in.MimeType,
		Size:         in.Size,
		OwnerUserID:  identity.ID,
		EntityType:   in.EntityType,
		EntityID:     in.EntityID,
		IsPublic:     in.IsPublic,
	}

	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return s.files.Create(ctx, f)
	})
	if err != nil {
		// The metadata row is authoritative; without it the object is garbage.
		if delErr := s.store.Delete(path); delErr != nil && !errors.Is(delErr, blob.ErrNotFound) {
			log.Printf("orphaned blob %s after failed registration: %v", path, delErr)
		}
		return nil, storageErr(err, "file")
	}
	return f, nil
}

// Get returns the metadata if the identity may access the file; denials come
// back as NotFound so private files look absent.
func (s *FileService) Get(ctx context.Context, identity *models.Identity, id int64) (*models.File, error) {
	f, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	published, err := s.linkedPublished(ctx, f)
	if err != nil {
		return nil, err
	}
	if d := auth.CanAccessFile(f, identity, published); !d.Allowed {
		return nil, NotFound("file")
	}
	return f, nil
}

// Open returns the metadata plus a reader over the contents, under the same
// access rule as Get.
func (s *FileService) Open(ctx context.Context, identity *models.Identity, id int64) (*models.File, io.ReadCloser, error) {
	f, err := s.Get(ctx, identity, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.store.Open(f.StoragePath)
	if errors.Is(err, blob.ErrNotFound) {
		log.Printf("storage drift: file %d metadata present but object %s missing", f.ID, f.StoragePath)
		return nil, nil, NotFound("file")
	}
	if err != nil {
		return nil, nil, Unavailable(err)
	}
	return f, rc, nil
}

// Mine lists the caller's files.
func (s *FileService) Mine(ctx context.Context, identity *models.Identity) ([]models.File, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	var files []models.File
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		files, err = s.files.ListByOwner(ctx, identity.ID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "files")
	}
	if files == nil {
		files = []models.File{}
	}
	return files, nil
}

// LinkToEntity points the file at an entity. When isPrimary is set the
// target listing's primary_image_id is updated in the same transaction, so
// the file never points at an entity that does not point back.
func (s *FileService) LinkToEntity(ctx context.Context, identity *models.Identity, fileID int64, entityType models.EntityType, entityID int64, isPrimary bool) error {
	if identity == nil {
		return Forbidden(auth.ReasonAnonymous)
	}
	if !entityType.Valid() {
		return Validation("entity_type", "unknown entity type")
	}

	f, err := s.fetch(ctx, fileID)
	if err != nil {
		return err
	}
	if d := auth.CanMutateListing(identity, f.OwnerUserID); !d.Allowed {
		return Forbidden(d.Reason)
	}

	cat, isListing := entityType.ListingCategory()
	if isListing {
		// Fresh read of the target: it must exist and be mutable by the caller.
		var target *models.Listing
		err := db.WithRetry(ctx, func(ctx context.Context) error {
			var err error
			target, err = s.listings.GetByID(ctx, cat, entityID)
			return err
		})
		if err != nil {
			return storageErr(err, "listing")
		}
		if d := auth.CanMutateListing(identity, target.OwnerUserID); !d.Allowed {
			return Forbidden(d.Reason)
		}
	} else if entityID != identity.ID {
		if d := auth.IsAdmin(identity); !d.Allowed {
			return Forbidden(d.Reason)
		}
	}

	if isPrimary && !isListing {
		return Validation("is_primary", "only listings have a primary image")
	}

	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
			rows, err := repository.LinkToEntity(ctx, tx, fileID, entityType, entityID)
			if err != nil {
				return err
			}
			if rows == 0 {
				return sql.ErrNoRows
			}
			if isPrimary {
				rows, err := repository.SetPrimaryImage(ctx, tx, cat, entityID, fileID)
				if err != nil {
					return err
				}
				if rows == 0 {
					return sql.ErrNoRows
				}
			}
			return nil
		})
	})
	return storageErr(err, "file link")
}

// Delete removes the object and the metadata row. A missing object is
// storage drift: logged, then the metadata delete proceeds anyway.
func (s *FileService) Delete(ctx context.Context, identity *models.Identity, id int64) error {
	f, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if identity == nil {
		return Forbidden(auth.ReasonAnonymous)
	}
	if d := auth.CanMutateListing(identity, f.OwnerUserID); !d.Allowed {
		return Forbidden(d.Reason)
	}

	if err := s.store.Delete(f.StoragePath); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			log.Printf("storage drift: object %s already gone, deleting metadata for file %d", f.StoragePath, f.ID)
		} else {
			return Unavailable(err)
		}
	}

	var rows int64
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.files.Delete(ctx, id)
		return err
	})
	if err != nil {
		return storageErr(err, "file")
	}
	if rows == 0 {
		return NotFound("file")
	}
	return nil
}

func (s *FileService) fetch(ctx context.Context, id int64) (*models.File, error) {
	var f *models.File
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		f, err = s.files.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "file")
	}
	return f, nil
}

// linkedPublished resolves the published flag of the listing a file is
// linked to, with a fresh read. Files linked to user entities or to nothing
// report false; the predicate does not use the flag in those cases.
func (s *FileService) linkedPublished(ctx context.Context, f *models.File) (bool, error) {
	if f.EntityType == nil || f.EntityID == nil {
		return false, nil
	}
	cat, ok := f.EntityType.ListingCategory()
	if !ok {
		return false, nil
	}

	var l *models.Listing
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		l, err = s.listings.GetByID(ctx, cat, *f.EntityID)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		// Dangling link; treat as unpublished.
		return false, nil
	}
	if err != nil {
		return false, storageErr(err, "listing")
	}
	return l.IsPublished, nil
}
