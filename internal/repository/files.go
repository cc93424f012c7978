package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"markethub/internal/models"
)

type FileRepository struct {
	DB *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{DB: db}
}

const fileColumns = `id, original_name, storage_path, mime_type, size,
	owner_user_id, entity_type, entity_id, is_public, created_at`

func (r *FileRepository) Create(ctx context.Context, f *models.File) error {
	query := `
		INSERT INTO files (original_name, storage_path, mime_type, size, owner_user_id, entity_type, entity_id, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	row := r.DB.QueryRowxContext(ctx, query,
		f.OriginalName, f.StoragePath, f.MimeType, f.Size,
		f.OwnerUserID, f.EntityType, f.EntityID, f.IsPublic)
	if err := row.Scan(&f.ID, &f.CreatedAt); err != nil {
		return fmt.Errorf("FileRepository.Create: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	var f models.File
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)
	if err := r.DB.GetContext(ctx, &f, query, id); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByOwner returns a user's files, newest first.
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.File, error) {
	var files []models.File
	query := fmt.Sprintf(`SELECT %s FROM files WHERE owner_user_id = $1 ORDER BY created_at DESC`, fileColumns)
	if err := r.DB.SelectContext(ctx, &files, query, ownerID); err != nil {
		return nil, err
	}
	return files, nil
}

// LinkToEntity updates the file's entity association inside an existing
// transaction, so the caller can pair it with the primary-image back-pointer.
func LinkToEntity(ctx context.Context, tx *sqlx.Tx, fileID int64, entityType models.EntityType, entityID int64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE files SET entity_type = $1, entity_id = $2 WHERE id = $3`,
		entityType, entityID, fileID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *FileRepository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("FileRepository.Delete: %w", err)
	}
	return res.RowsAffected()
}
