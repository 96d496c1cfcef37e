package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/config"
	"github.com/mamadbah2/tracklog/internal/repository/kv"
	"github.com/mamadbah2/tracklog/internal/repository/mongodb"
)

// ClosableBackend is a Backend holding resources.
type ClosableBackend interface {
	Backend
	Close(ctx context.Context) error
}

// OpenBackend connects the backend selected by cfg.Store.Backend.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ClosableBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Store.Backend {
	case config.BackendMongo:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.MongoDB.Collection, logger.Named("repo.mongodb"))
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.BackendFile, "":
		fs, err := kv.NewFileStore(cfg.Store.Dir, logger.Named("repo.kv"))
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Open connects the configured backend and wraps it in a Store.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, ClosableBackend, error) {
	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", cfg.Store.Backend, err)
	}
	return New(backend, cfg.Store.CountsKey, cfg.Store.UserNameKey, logger), backend, nil
}
