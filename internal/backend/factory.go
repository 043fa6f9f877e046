package backend

import (
	"context"
	"fmt"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/game"
	applog "gastos/internal/log"
	"gastos/internal/storage"
)

const defaultGameTTL = 24 * time.Hour

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentStorage),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case FileBackend:
		return f.createFileBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	result := &BackendResult{Store: repo, Cleanup: repo.Close}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			result.Publisher = client
			result.Cleanup = func() error {
				client.Close()
				return repo.Close()
			}
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", result.Publisher != nil)

	return result, nil
}

func (f *DefaultFactory) createFileBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if config.AMQPURL != "" {
		f.logger.WarnContext(ctx, "AMQP_URL is ignored by the file backend")
	}
	store, err := storage.NewFileStore(config.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized file backend", "path", store.Path())
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	store := storage.NewMemoryStore()
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

// CreateGameStore opens Redis when configured and the in-memory store otherwise.
func (f *DefaultFactory) CreateGameStore(ctx context.Context, config Config) (game.Store, CleanupFunc, error) {
	if config.RedisAddr == "" {
		f.logger.InfoContext(ctx, "Game sessions kept in memory")
		return game.NewMemoryStore(), func() error { return nil }, nil
	}

	client, err := game.DialRedis(ctx, config.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	ttl := config.GameTTL
	if ttl <= 0 {
		ttl = defaultGameTTL
	}

	f.logger.InfoContext(ctx, "Game sessions stored in Redis", "addr", config.RedisAddr, "ttl", ttl)
	return game.NewRedisStore(client, ttl), client.Close, nil
}
