package backend

import (
	"context"
	"fmt"

	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/memory"
	"tally/internal/postgres"
	"tally/internal/storage"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}

	switch cfg.Type {
	case MemoryBackend:
		return f.createMemoryBackend()
	case SQLiteBackend:
		return f.createSQLiteBackend(cfg)
	case PostgresBackend:
		return f.createPostgresBackend(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.NewSeeded()
	f.logger.Info("Initialized memory backend")
	return &BackendResult{Backend: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(cfg Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", log.FieldBackend, "sqlite", "db_path", cfg.SQLiteDBPath)
	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(cfg Config) (*BackendResult, error) {
	repo, err := postgres.NewRepository(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("initialize Postgres repository: %w", err)
	}
	f.logger.Info("Initialized Postgres backend", log.FieldBackend, "postgres")
	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresURL:  appConfig.PostgresURL,
	}, nil
}
