package backend

import (
	"context"
	"time"

	"gastos/internal/game"
	"gastos/internal/services"
	"gastos/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult is an opened storage backend. Publisher is nil when month
// changes are not announced to a sync worker.
type BackendResult struct {
	Store     storage.Store
	Publisher services.SyncPublisher
	Cleanup   CleanupFunc
}

// Factory opens the storage and game session backends named by Config.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateGameStore(ctx context.Context, config Config) (game.Store, CleanupFunc, error)
}

type Config struct {
	Type BackendType

	// file backend
	DataFile string

	// sqlite backend; AMQP is optional and only used with sqlite
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// game sessions; empty RedisAddr selects the in-memory store
	RedisAddr string
	GameTTL   time.Duration
}

type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
