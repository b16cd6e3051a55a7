package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nzoschke/studyvault/internal/model"
	"github.com/nzoschke/studyvault/internal/repository"
	"github.com/nzoschke/studyvault/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
)

type AccountService struct {
	users    repository.UserRepository
	sessions SessionStore
	cost     int
}

func NewAccountService(users repository.UserRepository, sessions SessionStore) *AccountService {
	return &AccountService{
		users:    users,
		sessions: sessions,
		cost:     bcrypt.DefaultCost,
	}
}

func (s *AccountService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	err := validation.ValidateUsername(username)
	if err != nil {
		return nil, err
	}
	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks credentials and issues a session token with its expiry.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.authenticate(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return "", time.Time{}, err
	}

	token, expiresAt, err := s.sessions.Issue(ctx, user.Username)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue session: %w", err)
	}

	slog.Info("user logged in", "user_id", user.ID)
	return token, expiresAt, nil
}

func (s *AccountService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func (s *AccountService) ChangePassword(ctx context.Context, username, current, next string) error {
	user, err := s.authenticate(ctx, username, current)
	if err != nil {
		return err
	}

	err = validation.ValidatePassword(next)
	if err != nil {
		return err
	}

	hash, err := s.hashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.users.UpdatePassword(ctx, user.ID, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password changed", "user_id", user.ID)
	return nil
}

func (s *AccountService) authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *AccountService) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
