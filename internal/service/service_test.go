package service

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nzoschke/studyvault/internal/db"
	"github.com/nzoschke/studyvault/internal/model"
	"github.com/nzoschke/studyvault/internal/repository"
	"github.com/nzoschke/studyvault/internal/storage"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

type testEnv struct {
	svc   *FileService
	users repository.UserRepository
	files *faultyFiles
	blobs *faultyBlobs
	local *storage.LocalStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })
	require.NoError(t, db.RunMigrations(context.Background(), database.DB, "sqlite"))

	local, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	users := repository.NewUserRepository(database)
	files := &faultyFiles{FileRepository: repository.NewFileRepository(database)}
	blobs := &faultyBlobs{BlobStore: local}

	for _, name := range []string{"alice", "bob"} {
		now := time.Now().UTC()
		require.NoError(t, users.Create(context.Background(), &model.User{
			ID:           uuid.New().String(),
			Username:     name,
			PasswordHash: "hash",
			CreatedAt:    now,
			UpdatedAt:    now,
		}))
	}

	return &testEnv{
		svc:   NewFileService(files, blobs, NewOwnerResolver(users)),
		users: users,
		files: files,
		blobs: blobs,
		local: local,
	}
}

// blobCount counts regular files under the store root
func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(e.local.Root(), func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0
	}
	require.NoError(t, err)
	return count
}

func (e *testEnv) rootExists() bool {
	_, err := os.Stat(e.local.Root())
	return err == nil
}

// faultyFiles fails selected repository calls
type faultyFiles struct {
	repository.FileRepository
	createErr error
	updateErr error
	deleteErr error
	lookupErr error
}

func (f *faultyFiles) Create(ctx context.Context, file *model.File) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.FileRepository.Create(ctx, file)
}

func (f *faultyFiles) Update(ctx context.Context, file *model.File) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.FileRepository.Update(ctx, file)
}

func (f *faultyFiles) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.FileRepository.Delete(ctx, id)
}

func (f *faultyFiles) ByStoredName(ctx context.Context, storedName string) (*model.File, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.FileRepository.ByStoredName(ctx, storedName)
}

// faultyBlobs fails selected blob store calls
type faultyBlobs struct {
	storage.BlobStore
	ensureErr error
	writeErr  error
	readErr   error
	deleteErr error
}

func (b *faultyBlobs) EnsureOwnerDir(ctx context.Context, ownerID string) (string, error) {
	if b.ensureErr != nil {
		return "", b.ensureErr
	}
	return b.BlobStore.EnsureOwnerDir(ctx, ownerID)
}

func (b *faultyBlobs) Write(ctx context.Context, ownerID, storedName string, content io.Reader) (int64, error) {
	if b.writeErr != nil {
		return 0, b.writeErr
	}
	return b.BlobStore.Write(ctx, ownerID, storedName, content)
}

func (b *faultyBlobs) Read(ctx context.Context, ownerID, storedName string) (io.ReadCloser, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	return b.BlobStore.Read(ctx, ownerID, storedName)
}

func (b *faultyBlobs) Delete(ctx context.Context, ownerID, storedName string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.BlobStore.Delete(ctx, ownerID, storedName)
}
