package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/nzoschke/studyvault/internal/metrics"
	"github.com/nzoschke/studyvault/internal/model"
	"github.com/nzoschke/studyvault/internal/validation"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storedTxt = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.txt$`)

func storeText(t *testing.T, env *testEnv, user, name, content string) *model.File {
	t.Helper()
	file, err := env.svc.Store(context.Background(), user, name, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	return file
}

func readAll(t *testing.T, env *testEnv, user, storedName string) string {
	t.Helper()
	_, rc, err := env.svc.Open(context.Background(), user, storedName)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestStoreReadDeleteScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file := storeText(t, env, "alice", "notes.txt", "hello day")
	assert.Equal(t, "notes.txt", file.OriginalName)
	assert.Regexp(t, storedTxt, file.StoredName)
	assert.Equal(t, int64(9), file.SizeBytes)
	assert.Equal(t, env.local.Location(file.OwnerID, file.StoredName), file.StoragePath)

	assert.Equal(t, "hello day", readAll(t, env, "alice", file.StoredName))

	got, err := env.svc.Get(ctx, "alice", file.StoredName)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)

	require.NoError(t, env.svc.Delete(ctx, "alice", file.StoredName))

	_, _, err = env.svc.Open(ctx, "alice", file.StoredName)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, env.blobCount(t))
}

func TestStoreBinaryRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	content := make([]byte, 4096)
	for i := range content {
		content[i] = byte(i % 251)
	}

	file, err := env.svc.Store(context.Background(), "alice", "Paper.PDF", bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.StoredName, ".PDF"))
	assert.Equal(t, string(content), readAll(t, env, "alice", file.StoredName))
}

func TestStoreRejectedPerformsNoMutation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
	}{
		{"empty name", "", 3},
		{"blank name", "   ", 3},
		{"bad extension", "virus.exe", 3},
		{"no extension", "README", 3},
		{"negative size", "notes.txt", -1},
		{"over limit", "notes.txt", validation.MaxFileSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.svc.Store(context.Background(), "alice", tt.filename, strings.NewReader("abc"), tt.size)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.False(t, env.rootExists(), "no directory may be created")

			files, err := env.svc.List(context.Background(), "alice")
			require.NoError(t, err)
			assert.Empty(t, files)
		})
	}
}

func TestStoreUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	for _, identity := range []string{"mallory", "", "  "} {
		_, err := env.svc.Store(context.Background(), identity, "notes.txt", strings.NewReader("abc"), 3)
		assert.ErrorIs(t, err, ErrUserNotFound)
	}
	assert.False(t, env.rootExists())
}

func TestStoreSizeMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Store(ctx, "alice", "notes.txt", strings.NewReader("hello day"), 5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Store(ctx, "alice", "notes.txt", strings.NewReader("hi"), 5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, env.blobCount(t))
	files, err := env.svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStoreContentOverLimit(t *testing.T) {
	env := newTestEnv(t)

	content := strings.NewReader(strings.Repeat("a", int(validation.MaxFileSize)+1))
	_, err := env.svc.Store(context.Background(), "alice", "big.txt", content, validation.MaxFileSize)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "size", verr.Field)
	assert.Equal(t, 0, env.blobCount(t))
}

func TestStoreNormalizesOriginalName(t *testing.T) {
	env := newTestEnv(t)

	file := storeText(t, env, "alice", "cafe\u0301.txt", "abc")
	assert.Equal(t, "caf\u00e9.txt", file.OriginalName)
}

func TestStoreSameNameTwice(t *testing.T) {
	env := newTestEnv(t)

	first := storeText(t, env, "alice", "notes.txt", "one")
	second := storeText(t, env, "alice", "notes.txt", "two")

	assert.NotEqual(t, first.StoredName, second.StoredName)
	assert.NotEqual(t, first.ID, second.ID)

	files, err := env.svc.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, "one", readAll(t, env, "alice", first.StoredName))
	assert.Equal(t, "two", readAll(t, env, "alice", second.StoredName))
}

func TestDeleteTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file := storeText(t, env, "alice", "notes.txt", "hello day")

	require.NoError(t, env.svc.Delete(ctx, "alice", file.StoredName))
	assert.ErrorIs(t, env.svc.Delete(ctx, "alice", file.StoredName), ErrNotFound)
}

func TestOwnerIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file := storeText(t, env, "alice", "notes.txt", "secret")

	files, err := env.svc.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = env.svc.Get(ctx, "bob", file.StoredName)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = env.svc.Open(ctx, "bob", file.StoredName)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, env.svc.Delete(ctx, "bob", file.StoredName), ErrNotFound)

	_, err = env.svc.Replace(ctx, "bob", file.StoredName, strings.NewReader("pwned"), 5)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "secret", readAll(t, env, "alice", file.StoredName))
}

func TestStoreMetadataFailureRemovesBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.files.createErr = errInjected
	_, err := env.svc.Store(ctx, "alice", "notes.txt", strings.NewReader("hello day"), 9)
	assert.ErrorIs(t, err, ErrStorageInconsistency)
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.Equal(t, 0, env.blobCount(t))

	env.files.createErr = nil
	file := storeText(t, env, "alice", "other.txt", "still works")

	files, err := env.svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.ID, files[0].ID)
}

func TestStoreOrphanWhenCompensationFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	before := testutil.ToFloat64(metrics.OrphanBlobsTotal)

	env.files.createErr = errInjected
	env.blobs.deleteErr = errInjected
	_, err := env.svc.Store(ctx, "alice", "notes.txt", strings.NewReader("hello day"), 9)
	assert.ErrorIs(t, err, ErrStorageInconsistency)

	assert.Equal(t, 1, env.blobCount(t))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrphanBlobsTotal))

	env.files.createErr = nil
	env.blobs.deleteErr = nil
	file := storeText(t, env, "alice", "notes.txt", "hello again")

	files, err := env.svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.StoredName, files[0].StoredName)
	assert.Equal(t, 2, env.blobCount(t))
}

func TestStoreBlobFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.blobs.ensureErr = errInjected
	_, err := env.svc.Store(ctx, "alice", "notes.txt", strings.NewReader("abc"), 3)
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.NotErrorIs(t, err, ErrStorageInconsistency)
	env.blobs.ensureErr = nil

	env.blobs.writeErr = errInjected
	_, err = env.svc.Store(ctx, "alice", "notes.txt", strings.NewReader("abc"), 3)
	assert.ErrorIs(t, err, ErrStorageFailure)

	files, err := env.svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDeleteToleratesMissingBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file := storeText(t, env, "alice", "notes.txt", "hello day")
	require.NoError(t, os.Remove(file.StoragePath))

	require.NoError(t, env.svc.Delete(ctx, "alice", file.StoredName))

	files, err := env.svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDeleteMetadataFailureCanBeRetried(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file := storeText(t, env, "alice", "notes.txt", "hello day")

	env.files.deleteErr = errInjected
	err := env.svc.Delete(ctx, "alice", file.StoredName)
	assert.ErrorIs(t, err, ErrStorageInconsistency)

	// The record survived without its blob
	_, _, err = env.svc.Open(ctx, "alice", file.StoredName)
	assert.ErrorIs(t, err, ErrNotFound)

	env.files.deleteErr = nil
	require.NoError(t, env.svc.Delete(ctx, "alice", file.StoredName))
	assert.ErrorIs(t, env.svc.Delete(ctx, "alice", file.StoredName), ErrNotFound)
}

func TestDeleteBlobFailureKeepsRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file := storeText(t, env, "alice", "notes.txt", "hello day")

	env.blobs.deleteErr = errInjected
	err := env.svc.Delete(ctx, "alice", file.StoredName)
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.NotErrorIs(t, err, ErrStorageInconsistency)

	env.blobs.deleteErr = nil
	assert.Equal(t, "hello day", readAll(t, env, "alice", file.StoredName))
}

func TestLookupFailureIsNotNotFound(t *testing.T) {
	env := newTestEnv(t)

	env.files.lookupErr = errInjected
	_, _, err := env.svc.Open(context.Background(), "alice", "x.txt")
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestOpenBlobFailure(t *testing.T) {
	env := newTestEnv(t)

	file := storeText(t, env, "alice", "notes.txt", "hello day")

	env.blobs.readErr = errInjected
	_, _, err := env.svc.Open(context.Background(), "alice", file.StoredName)
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestReplace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	original := storeText(t, env, "alice", "notes.txt", "hello day")

	replaced, err := env.svc.Replace(ctx, "alice", original.StoredName, strings.NewReader("goodbye night"), 13)
	require.NoError(t, err)
	assert.Equal(t, original.ID, replaced.ID)
	assert.Equal(t, original.OriginalName, replaced.OriginalName)
	assert.NotEqual(t, original.StoredName, replaced.StoredName)
	assert.Regexp(t, storedTxt, replaced.StoredName)
	assert.Equal(t, int64(13), replaced.SizeBytes)

	assert.Equal(t, "goodbye night", readAll(t, env, "alice", replaced.StoredName))

	_, _, err = env.svc.Open(ctx, "alice", original.StoredName)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, env.blobCount(t))
}

func TestReplaceUpdateFailureKeepsOriginal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	original := storeText(t, env, "alice", "notes.txt", "hello day")

	env.files.updateErr = errInjected
	_, err := env.svc.Replace(ctx, "alice", original.StoredName, strings.NewReader("goodbye"), 7)
	assert.ErrorIs(t, err, ErrStorageInconsistency)

	assert.Equal(t, "hello day", readAll(t, env, "alice", original.StoredName))
	assert.Equal(t, 1, env.blobCount(t))
}

func TestReplaceRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	original := storeText(t, env, "alice", "notes.txt", "hello day")

	_, err := env.svc.Replace(ctx, "alice", original.StoredName, strings.NewReader("abc"), 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Replace(ctx, "alice", original.StoredName, strings.NewReader("abc"), -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, "hello day", readAll(t, env, "alice", original.StoredName))
	assert.Equal(t, 1, env.blobCount(t))
}

func TestResult(t *testing.T) {
	assert.Equal(t, metrics.ResultOK, result(nil))
	assert.Equal(t, metrics.ResultInvalid, result(validation.ValidateUpload("a.exe", 1)))
	assert.Equal(t, metrics.ResultNotFound, result(ErrNotFound))
	assert.Equal(t, metrics.ResultNotFound, result(ErrUserNotFound))
	assert.Equal(t, metrics.ResultError, result(ErrStorageInconsistency))
	assert.Equal(t, metrics.ResultError, result(storageFailure("x", errInjected)))
}
