package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nzoschke/studyvault/internal/config"
	"github.com/nzoschke/studyvault/internal/db"
	"github.com/nzoschke/studyvault/internal/middleware"
	"github.com/nzoschke/studyvault/internal/repository"
	"github.com/nzoschke/studyvault/internal/service"
	"github.com/nzoschke/studyvault/internal/storage"
)

const (
	sessionCleanupInterval = time.Hour
	sessionRetention       = 24 * time.Hour
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	Blobs          storage.WalkableStore
	Sessions       service.SessionStore
	FileRepo       repository.FileRepository
	SessionRepo    repository.SessionRepository
	FileService    *service.FileService
	AccountService *service.AccountService
	LoginLimiter   *middleware.RateLimiter

	done chan struct{}
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.DBMigrate {
		err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
		if err != nil {
			_ = db.Close(database)
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	fileRepository := repository.NewFileRepository(database)
	sessionRepository := repository.NewSessionRepository(database)

	blobs, err := NewBlobStore(ctx, cfg)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	sessions, err := newSessionStore(cfg, sessionRepository, userRepository)
	if err != nil {
		_ = db.Close(database)
		return nil, err
	}

	// Services
	fileService := service.NewFileService(fileRepository, blobs, service.NewOwnerResolver(userRepository))
	accountService := service.NewAccountService(userRepository, sessions)

	slog.Info("app initialized",
		"db_driver", cfg.DBDriver,
		"storage", cfg.StorageBackend,
		"sessions", cfg.SessionBackend,
	)

	return &App{
		Cfg:            cfg,
		DB:             database,
		Blobs:          blobs,
		Sessions:       sessions,
		FileRepo:       fileRepository,
		SessionRepo:    sessionRepository,
		FileService:    fileService,
		AccountService: accountService,
		LoginLimiter:   middleware.NewRateLimiter(5, 15*time.Minute),
		done:           make(chan struct{}),
	}, nil
}

// NewBlobStore opens the blob backend selected by cfg.StorageBackend.
func NewBlobStore(ctx context.Context, cfg *config.Config) (storage.WalkableStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
	case config.StorageBackendLocal:
		return storage.NewLocalStore(cfg.StorageRoot)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageBackend, cfg.StorageBackend)
	}
}

func newSessionStore(cfg *config.Config, sessions repository.SessionRepository, users repository.UserRepository) (service.SessionStore, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendJWT:
		return service.NewJWTSessionStore(sessions, users, cfg.JWTSecret, cfg.SessionExpiry), nil
	case config.SessionBackendDB:
		return service.NewDBSessionStore(sessions, users, cfg.SessionExpiry), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownSessionBackend, cfg.SessionBackend)
	}
}

// StartBackground prunes rate limiter state and stale sessions until Close is called.
func (a *App) StartBackground() {
	go a.LoginLimiter.Run(a.done, 5*time.Minute)

	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-a.done:
				return
			case <-ticker.C:
				a.cleanupSessions()
			}
		}
	}()
}

func (a *App) cleanupSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := a.CleanupSessions(ctx, sessionRetention)
	if err != nil {
		slog.Error("failed to clean up sessions", "error", err)
	}
}

// CleanupSessions deletes sessions that expired more than olderThan ago.
func (a *App) CleanupSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	removed, err := a.SessionRepo.CleanupExpired(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		slog.Info("cleaned up sessions", "removed", removed)
	}
	return removed, nil
}

func (a *App) OrphanSweeper(grace time.Duration) *service.OrphanSweeper {
	return service.NewOrphanSweeper(a.FileRepo, a.Blobs, grace)
}

func (a *App) Close() error {
	select {
	case <-a.done:
	default:
		close(a.done)
	}

	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
