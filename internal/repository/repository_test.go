package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nzoschke/studyvault/internal/db"
	"github.com/nzoschke/studyvault/internal/model"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })

	require.NoError(t, db.RunMigrations(context.Background(), database.DB, "sqlite"))
	return database
}

func createUser(t *testing.T, repo UserRepository, username string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func newFile(ownerID, storedName string, size int64) *model.File {
	now := time.Now().UTC()
	return &model.File{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		OriginalName: "notes.txt",
		StoredName:   storedName,
		SizeBytes:    size,
		UploadedAt:   now,
		StoragePath:  "/data/" + ownerID + "/" + storedName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
