package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nzoschke/studyvault/internal/metrics"
	"github.com/nzoschke/studyvault/internal/model"
	"github.com/nzoschke/studyvault/internal/repository"
	"github.com/nzoschke/studyvault/internal/storage"
	"github.com/nzoschke/studyvault/internal/validation"
	"golang.org/x/text/unicode/norm"
)

// FileService sequences validation, ownership resolution, blob I/O and metadata writes.
// Blobs are always written before metadata, so a failure leaves at worst an orphan blob.
type FileService struct {
	fileRepo    repository.FileRepository
	storage     storage.BlobStore
	owners      *OwnerResolver
	constraints validation.FileConstraints
}

func NewFileService(fileRepo repository.FileRepository, storage storage.BlobStore, owners *OwnerResolver) *FileService {
	return &FileService{
		fileRepo:    fileRepo,
		storage:     storage,
		owners:      owners,
		constraints: validation.DocumentConstraints,
	}
}

// Store validates and persists an upload, then records its metadata.
// size is the declared length and must match the bytes actually read from content.
func (s *FileService) Store(ctx context.Context, identity, originalName string, content io.Reader, size int64) (_ *model.File, err error) {
	defer observe("store", &err)

	// Nothing below may run for a rejected upload
	err = s.constraints.Validate(originalName, size)
	if err != nil {
		return nil, err
	}

	ownerID, err := s.owners.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	storedName := storage.NewStoredName(originalName)
	written, err := s.writeBlob(ctx, "store", ownerID, storedName, content, size)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	file := &model.File{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		OriginalName: norm.NFC.String(originalName),
		StoredName:   storedName,
		SizeBytes:    written,
		UploadedAt:   now,
		StoragePath:  s.storage.Location(ownerID, storedName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.fileRepo.Create(ctx, file)
	if err != nil {
		slog.Error("failed to create file record, removing blob",
			"op", "store", "owner_id", ownerID, "stored_name", storedName, "error", err)
		s.discardBlob(ctx, "store", ownerID, storedName)
		return nil, fmt.Errorf("%w: %w", ErrStorageInconsistency, err)
	}

	metrics.StoredBytesTotal.Add(float64(written))
	slog.Info("file stored",
		"op", "store", "owner_id", ownerID, "stored_name", storedName, "file_id", file.ID, "size", written)

	return file, nil
}

// List returns all records of the caller. Metadata is authoritative; the blob store is not consulted.
func (s *FileService) List(ctx context.Context, identity string) (_ []*model.File, err error) {
	defer observe("list", &err)

	ownerID, err := s.owners.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	files, err := s.fileRepo.ByOwner(ctx, ownerID)
	if err != nil {
		slog.Error("failed to list files", "op", "list", "owner_id", ownerID, "error", err)
		return nil, storageFailure("failed to list files", err)
	}

	return files, nil
}

// Get returns the caller's record for storedName without opening the blob.
func (s *FileService) Get(ctx context.Context, identity, storedName string) (_ *model.File, err error) {
	defer observe("get", &err)

	ownerID, err := s.owners.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	return s.owned(ctx, "get", ownerID, storedName)
}

// Open returns the caller's record and a reader over its content. The caller closes the reader.
func (s *FileService) Open(ctx context.Context, identity, storedName string) (_ *model.File, _ io.ReadCloser, err error) {
	defer observe("read", &err)

	ownerID, err := s.owners.Resolve(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.owned(ctx, "read", ownerID, storedName)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.storage.Read(ctx, file.OwnerID, file.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			slog.Error("file record has no blob",
				"op", "read", "owner_id", ownerID, "stored_name", storedName, "file_id", file.ID)
			return nil, nil, ErrNotFound
		}
		slog.Error("failed to open blob", "op", "read", "owner_id", ownerID, "stored_name", storedName, "error", err)
		return nil, nil, storageFailure("failed to open blob", err)
	}

	return file, rc, nil
}

// Delete removes the blob, then the record. A missing blob is tolerated so a retry can finish
// a delete that previously failed between the two steps.
func (s *FileService) Delete(ctx context.Context, identity, storedName string) (err error) {
	defer observe("delete", &err)

	ownerID, err := s.owners.Resolve(ctx, identity)
	if err != nil {
		return err
	}

	file, err := s.owned(ctx, "delete", ownerID, storedName)
	if err != nil {
		return err
	}

	err = s.storage.Delete(ctx, ownerID, file.StoredName)
	if err != nil {
		if !errors.Is(err, storage.ErrBlobNotFound) {
			slog.Error("failed to delete blob", "op", "delete", "owner_id", ownerID, "stored_name", storedName, "error", err)
			return storageFailure("failed to delete blob", err)
		}
		slog.Warn("blob already absent", "op", "delete", "owner_id", ownerID, "stored_name", storedName)
	}

	err = s.fileRepo.Delete(ctx, file.ID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			// A concurrent delete finished first
			return ErrNotFound
		}
		slog.Error("blob deleted but file record remains",
			"op", "delete", "owner_id", ownerID, "stored_name", storedName, "file_id", file.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrStorageInconsistency, err)
	}

	slog.Info("file deleted", "op", "delete", "owner_id", ownerID, "stored_name", storedName, "file_id", file.ID)
	return nil
}

// Replace swaps the content of an existing record. The new content gets a fresh stored name,
// the record keeps its ID, and the previous blob is removed once the record points at the new one.
func (s *FileService) Replace(ctx context.Context, identity, storedName string, content io.Reader, size int64) (_ *model.File, err error) {
	defer observe("replace", &err)

	// The stored name carries the validated extension of the original upload
	err = s.constraints.Validate(storedName, size)
	if err != nil {
		return nil, err
	}

	ownerID, err := s.owners.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	file, err := s.owned(ctx, "replace", ownerID, storedName)
	if err != nil {
		return nil, err
	}

	newName := storage.NewStoredName(file.StoredName)
	written, err := s.writeBlob(ctx, "replace", ownerID, newName, content, size)
	if err != nil {
		return nil, err
	}

	updated := *file
	updated.StoredName = newName
	updated.SizeBytes = written
	updated.StoragePath = s.storage.Location(ownerID, newName)

	err = s.fileRepo.Update(ctx, &updated)
	if err != nil {
		s.discardBlob(ctx, "replace", ownerID, newName)
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		slog.Error("failed to update file record, removed new blob",
			"op", "replace", "owner_id", ownerID, "stored_name", storedName, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageInconsistency, err)
	}

	s.discardBlob(ctx, "replace", ownerID, file.StoredName)

	metrics.StoredBytesTotal.Add(float64(written))
	slog.Info("file replaced",
		"op", "replace", "owner_id", ownerID, "stored_name", newName, "previous", storedName, "file_id", file.ID, "size", written)

	return &updated, nil
}

// owned looks up storedName and hides records of other owners behind ErrNotFound.
func (s *FileService) owned(ctx context.Context, op, ownerID, storedName string) (*model.File, error) {
	file, err := s.fileRepo.ByStoredName(ctx, storedName)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		slog.Error("failed to look up file", "op", op, "owner_id", ownerID, "stored_name", storedName, "error", err)
		return nil, storageFailure("failed to look up file", err)
	}

	if !file.OwnedBy(ownerID) {
		slog.Warn("file requested by non-owner", "op", op, "owner_id", ownerID, "stored_name", storedName)
		return nil, ErrNotFound
	}

	return file, nil
}

// writeBlob provisions the owner directory and writes content under storedName.
// Content longer than the size limit or different from the declared size is discarded.
func (s *FileService) writeBlob(ctx context.Context, op, ownerID, storedName string, content io.Reader, size int64) (int64, error) {
	_, err := s.storage.EnsureOwnerDir(ctx, ownerID)
	if err != nil {
		slog.Error("failed to provision owner directory", "op", op, "owner_id", ownerID, "error", err)
		return 0, storageFailure("failed to provision owner directory", err)
	}

	written, err := s.storage.Write(ctx, ownerID, storedName, io.LimitReader(content, s.constraints.MaxSize+1))
	if err != nil {
		slog.Error("failed to write blob", "op", op, "owner_id", ownerID, "stored_name", storedName, "error", err)
		return 0, storageFailure("failed to write blob", err)
	}

	if written > s.constraints.MaxSize || written != size {
		slog.Warn("upload size mismatch",
			"op", op, "owner_id", ownerID, "stored_name", storedName, "declared", size, "written", written)
		s.discardBlob(ctx, op, ownerID, storedName)
		if written > s.constraints.MaxSize {
			return 0, &validation.Error{Field: "size", Reason: fmt.Sprintf("file size exceeds maximum allowed size of %d bytes", s.constraints.MaxSize)}
		}
		return 0, &validation.Error{Field: "size", Reason: fmt.Sprintf("declared size %d does not match received %d bytes", size, written)}
	}

	return written, nil
}

// discardBlob is the best-effort compensation for a blob without metadata.
// Failing to remove it leaves an unreachable orphan, which is logged and counted.
func (s *FileService) discardBlob(ctx context.Context, op, ownerID, storedName string) {
	err := s.storage.Delete(context.WithoutCancel(ctx), ownerID, storedName)
	if err == nil || errors.Is(err, storage.ErrBlobNotFound) {
		return
	}

	metrics.OrphanBlobsTotal.Inc()
	slog.Error("failed to remove blob, orphan left behind",
		"op", op, "owner_id", ownerID, "stored_name", storedName, "orphan", true, "error", err)
}

func observe(op string, err *error) {
	metrics.FileOperationsTotal.WithLabelValues(op, result(*err)).Inc()
}
