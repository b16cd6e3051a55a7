package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nzoschke/studyvault/internal/model"
	"github.com/nzoschke/studyvault/internal/repository"
)

// UserDirectory looks users up by their external identity
type UserDirectory interface {
	ByUsername(ctx context.Context, username string) (*model.User, error)
}

// OwnerResolver maps an authenticated identity to the stable owner key.
// The key is the only value used for owner directories and FileRecord.OwnerID.
type OwnerResolver struct {
	users UserDirectory
}

func NewOwnerResolver(users UserDirectory) *OwnerResolver {
	return &OwnerResolver{users: users}
}

func (r *OwnerResolver) Resolve(ctx context.Context, identity string) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", ErrUserNotFound
	}

	user, err := r.users.ByUsername(ctx, identity)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", storageFailure("failed to resolve owner", err)
	}

	return user.ID, nil
}
