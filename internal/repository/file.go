package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nzoschke/studyvault/internal/model"
)

var (
	ErrFileNotFound        = errors.New("file not found")
	ErrDuplicateStoredName = errors.New("stored filename already exists")
)

type FileRepository interface {
	Create(ctx context.Context, file *model.File) error
	ByID(ctx context.Context, id string) (*model.File, error)
	ByOwner(ctx context.Context, ownerID string) ([]*model.File, error)
	ByStoredName(ctx context.Context, storedName string) (*model.File, error)
	Update(ctx context.Context, file *model.File) error
	Delete(ctx context.Context, id string) error
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepository{db: db}
}

// Create inserts a new record. A stored name collision is fatal and never overwrites.
func (r *fileRepository) Create(ctx context.Context, file *model.File) error {
	query := `INSERT INTO files (id, owner_id, original_filename, stored_filename, file_size, upload_time, file_path, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		file.ID,
		file.OwnerID,
		file.OriginalName,
		file.StoredName,
		file.SizeBytes,
		file.UploadedAt,
		file.StoragePath,
		file.CreatedAt,
		file.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateStoredName, file.StoredName)
		}
		return fmt.Errorf("failed to insert file record: %w", err)
	}

	return nil
}

func (r *fileRepository) ByID(ctx context.Context, id string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE id = $1`

	err := r.db.GetContext(ctx, file, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file by id: %w", err)
	}

	return file, nil
}

// ByOwner returns all records of an owner, newest first
func (r *fileRepository) ByOwner(ctx context.Context, ownerID string) ([]*model.File, error) {
	files := []*model.File{}
	query := `SELECT * FROM files WHERE owner_id = $1 ORDER BY upload_time DESC, id`

	err := r.db.SelectContext(ctx, &files, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (r *fileRepository) ByStoredName(ctx context.Context, storedName string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE stored_filename = $1`

	err := r.db.GetContext(ctx, file, query, storedName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file by stored name: %w", err)
	}

	return file, nil
}

// Update rewrites the content fields of a record and bumps UpdatedAt.
// Owner and creation time are immutable.
func (r *fileRepository) Update(ctx context.Context, file *model.File) error {
	file.UpdatedAt = time.Now().UTC()

	query := `UPDATE files SET original_filename = $1, stored_filename = $2, file_size = $3, file_path = $4, updated_at = $5
	          WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		file.OriginalName,
		file.StoredName,
		file.SizeBytes,
		file.StoragePath,
		file.UpdatedAt,
		file.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateStoredName, file.StoredName)
		}
		return fmt.Errorf("failed to update file record: %w", err)
	}

	return expectOneRow(result, ErrFileNotFound)
}

func (r *fileRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	return expectOneRow(result, ErrFileNotFound)
}

func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return notFound
	}

	return nil
}
