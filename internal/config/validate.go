package config

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSessionBackend = errors.New("unknown session backend")
	ErrUnknownStorageBackend = errors.New("unknown storage backend")
	ErrWeakJWTSecret         = errors.New("JWT_SECRET must be at least 32 bytes in production")
	ErrMissingS3Settings     = errors.New("S3_REGION, S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 backend")
)

// Validate checks backend selections and the settings each backend needs.
// Production additionally requires a strong JWT secret.
func (c *Config) Validate() error {
	switch c.SessionBackend {
	case SessionBackendJWT, SessionBackendDB:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSessionBackend, c.SessionBackend)
	}

	switch c.StorageBackend {
	case StorageBackendLocal:
		if c.StorageRoot == "" {
			return fmt.Errorf("STORAGE_ROOT is required for the local backend")
		}
	case StorageBackendS3:
		if c.S3Region == "" || c.S3Bucket == "" || c.S3AccessKey == "" || c.S3SecretKey == "" {
			return ErrMissingS3Settings
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageBackend, c.StorageBackend)
	}

	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return ErrWeakJWTSecret
	}

	return nil
}
