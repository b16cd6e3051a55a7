package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nzoschke/studyvault/internal/metrics"
	"github.com/nzoschke/studyvault/internal/repository"
	"github.com/nzoschke/studyvault/internal/storage"
)

// OrphanReport summarizes one sweep over the blob store.
type OrphanReport struct {
	Scanned int
	Skipped int // Younger than the grace period
	Orphans []storage.BlobInfo
	Removed int
}

// OrphanSweeper finds blobs that no metadata record points at.
// Such blobs are left behind when a compensating delete fails.
type OrphanSweeper struct {
	fileRepo repository.FileRepository
	lister   storage.BlobLister
	storage  storage.BlobStore
	grace    time.Duration
}

// NewOrphanSweeper ignores blobs modified within grace, which may belong to uploads still in flight.
func NewOrphanSweeper(fileRepo repository.FileRepository, blobs storage.WalkableStore, grace time.Duration) *OrphanSweeper {
	return &OrphanSweeper{
		fileRepo: fileRepo,
		lister:   blobs,
		storage:  blobs,
		grace:    grace,
	}
}

// Sweep reports orphan blobs and deletes them when remove is set.
func (s *OrphanSweeper) Sweep(ctx context.Context, remove bool) (*OrphanReport, error) {
	report := &OrphanReport{}
	cutoff := time.Now().Add(-s.grace)

	err := s.lister.Walk(ctx, func(blob storage.BlobInfo) error {
		report.Scanned++
		if blob.ModTime.After(cutoff) {
			report.Skipped++
			return nil
		}

		file, err := s.fileRepo.ByStoredName(ctx, blob.StoredName)
		if err == nil && file.OwnedBy(blob.OwnerID) {
			return nil
		}
		if err != nil && !errors.Is(err, repository.ErrFileNotFound) {
			return storageFailure("failed to look up blob record", err)
		}

		report.Orphans = append(report.Orphans, blob)
		slog.Warn("orphan blob found", "owner_id", blob.OwnerID, "stored_name", blob.StoredName, "size", blob.Size)

		if !remove {
			return nil
		}

		err = s.storage.Delete(ctx, blob.OwnerID, blob.StoredName)
		if err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
			slog.Error("failed to remove orphan blob", "owner_id", blob.OwnerID, "stored_name", blob.StoredName, "error", err)
			return nil
		}
		report.Removed++
		return nil
	})
	if err != nil {
		return report, err
	}

	metrics.OrphanBlobsRemovedTotal.Add(float64(report.Removed))
	slog.Info("orphan sweep finished",
		"scanned", report.Scanned, "skipped", report.Skipped, "orphans", len(report.Orphans), "removed", report.Removed)

	return report, nil
}
