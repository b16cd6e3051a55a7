package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nzoschke/studyvault/internal/model"
	"github.com/nzoschke/studyvault/internal/repository"
)

var ErrInvalidSession = errors.New("invalid or expired session")

// SessionStore issues and checks the bearer tokens that carry a caller's identity.
type SessionStore interface {
	Issue(ctx context.Context, username string) (string, time.Time, error)
	Validate(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

// JWTSessionStore signs HS256 tokens with the username as subject.
// Each jti is recorded so a token can be revoked before it expires.
type JWTSessionStore struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	secret   []byte
	expiry   time.Duration
}

func NewJWTSessionStore(sessions repository.SessionRepository, users repository.UserRepository, secret string, expiry time.Duration) *JWTSessionStore {
	return &JWTSessionStore{
		sessions: sessions,
		users:    users,
		secret:   []byte(secret),
		expiry:   expiry,
	}
}

func (s *JWTSessionStore) Issue(ctx context.Context, username string) (string, time.Time, error) {
	user, err := s.users.ByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.expiry)
	jti := uuid.New().String()

	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	err = s.sessions.Create(ctx, &model.Session{
		UserID:    user.ID,
		Token:     jti,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

func (s *JWTSessionStore) Validate(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}

	_, err = s.sessions.ActiveByToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", ErrInvalidSession
		}
		return "", err
	}

	return claims.Subject, nil
}

func (s *JWTSessionStore) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	err = s.sessions.Revoke(ctx, claims.ID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return ErrInvalidSession
	}
	return err
}

func (s *JWTSessionStore) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// DBSessionStore hands out opaque random tokens backed by the sessions table.
type DBSessionStore struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	expiry   time.Duration
}

func NewDBSessionStore(sessions repository.SessionRepository, users repository.UserRepository, expiry time.Duration) *DBSessionStore {
	return &DBSessionStore{sessions: sessions, users: users, expiry: expiry}
}

func (s *DBSessionStore) Issue(ctx context.Context, username string) (string, time.Time, error) {
	user, err := s.users.ByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to get user: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().UTC().Add(s.expiry)
	err = s.sessions.Create(ctx, &model.Session{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

func (s *DBSessionStore) Validate(ctx context.Context, token string) (string, error) {
	session, err := s.sessions.ActiveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", ErrInvalidSession
		}
		return "", err
	}

	user, err := s.users.ByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidSession
		}
		return "", err
	}

	return user.Username, nil
}

func (s *DBSessionStore) Revoke(ctx context.Context, token string) error {
	err := s.sessions.Revoke(ctx, token)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return ErrInvalidSession
	}
	return err
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
