package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nzoschke/studyvault/internal/validation"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBlobExists   = errors.New("blob already exists")
	ErrInvalidKey   = errors.New("invalid blob key")
)

// BlobStore keeps file content in one namespace per owner.
// Owner namespaces are created lazily and never removed.
type BlobStore interface {
	// EnsureOwnerDir provisions the owner's namespace and returns its location.
	// Safe to call concurrently; an existing namespace is not an error.
	EnsureOwnerDir(ctx context.Context, ownerID string) (string, error)

	// Write stores content under ownerID/storedName and returns the bytes written.
	// It fails with ErrBlobExists rather than overwrite an existing blob.
	Write(ctx context.Context, ownerID, storedName string, content io.Reader) (int64, error)

	// Read opens the blob. The caller closes the reader.
	Read(ctx context.Context, ownerID, storedName string) (io.ReadCloser, error)

	// Delete removes the blob. A missing blob yields ErrBlobNotFound.
	Delete(ctx context.Context, ownerID, storedName string) error

	// Location returns the fully resolved location recorded in metadata.
	Location(ownerID, storedName string) string
}

// BlobInfo describes one stored blob found by a walk.
type BlobInfo struct {
	OwnerID    string
	StoredName string
	Size       int64
	ModTime    time.Time
}

// BlobLister enumerates every blob of every owner.
type BlobLister interface {
	Walk(ctx context.Context, fn func(BlobInfo) error) error
}

// WalkableStore is a BlobStore that can also enumerate its blobs.
type WalkableStore interface {
	BlobStore
	BlobLister
}

// NewStoredName returns a random 128-bit token followed by the original extension.
func NewStoredName(originalFilename string) string {
	return uuid.New().String() + validation.Extension(originalFilename)
}

// checkKey rejects segments that could escape the owner namespace.
func checkKey(ownerID, storedName string) error {
	for _, segment := range []string{ownerID, storedName} {
		if segment == "" || segment == "." || segment == ".." || strings.ContainsAny(segment, `/\`) || strings.ContainsRune(segment, 0) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, segment)
		}
	}
	return nil
}

// ctxReader stops a copy once the request context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
