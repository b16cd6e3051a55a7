package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalStore keeps blobs on the local filesystem under root/ownerID/storedName.
type LocalStore struct {
	root string
}

// NewLocalStore returns a store rooted at root. Directories are created on first use.
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %q: %w", root, err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) EnsureOwnerDir(ctx context.Context, ownerID string) (string, error) {
	if err := checkKey(ownerID, "_"); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, ownerID)
	// MkdirAll treats an existing directory as success, so concurrent uploads may race here
	err := os.MkdirAll(dir, 0o750)
	if err != nil {
		return "", fmt.Errorf("failed to create owner directory: %w", err)
	}

	slog.Debug("owner directory ready", "owner_id", ownerID, "path", dir)
	return dir, nil
}

func (s *LocalStore) Write(ctx context.Context, ownerID, storedName string, content io.Reader) (int64, error) {
	if err := checkKey(ownerID, storedName); err != nil {
		return 0, err
	}

	path := s.Location(ownerID, storedName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("%w: %s", ErrBlobExists, storedName)
		}
		return 0, fmt.Errorf("failed to create blob: %w", err)
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: content})
	if err == nil {
		err = f.Sync()
	}
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Error("failed to remove partial blob", "error", rmErr, "path", path)
		}
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}

	return n, nil
}

func (s *LocalStore) Read(ctx context.Context, ownerID, storedName string) (io.ReadCloser, error) {
	if err := checkKey(ownerID, storedName); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Location(ownerID, storedName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, storedName)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, ownerID, storedName string) error {
	if err := checkKey(ownerID, storedName); err != nil {
		return err
	}

	err := os.Remove(s.Location(ownerID, storedName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, storedName)
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *LocalStore) Location(ownerID, storedName string) string {
	return filepath.Join(s.root, ownerID, storedName)
}

// Walk visits every blob under root. Entries that are not owner/blob pairs are skipped.
func (s *LocalStore) Walk(ctx context.Context, fn func(BlobInfo) error) error {
	owners, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read storage root: %w", err)
	}

	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}

		entries, err := os.ReadDir(filepath.Join(s.root, owner.Name()))
		if err != nil {
			return fmt.Errorf("failed to read owner directory: %w", err)
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !entry.Type().IsRegular() {
				continue
			}

			info, err := entry.Info()
			if errors.Is(err, fs.ErrNotExist) {
				// Deleted since ReadDir
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to stat blob: %w", err)
			}

			err = fn(BlobInfo{
				OwnerID:    owner.Name(),
				StoredName: entry.Name(),
				Size:       info.Size(),
				ModTime:    info.ModTime(),
			})
			if err != nil {
				return err
			}
		}
	}

	return nil
}
