package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gastos/internal/core"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// User is a registered account. PasswordHash holds the encoded scrypt hash.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"pass"`
	CreatedAt    time.Time `json:"created_at"`
}

// MonthStore persists ledger months per user.
type MonthStore interface {
	ListMonths(ctx context.Context, uid int64) (map[core.MonthKey]core.Month, error)
	GetMonth(ctx context.Context, uid int64, key core.MonthKey) (core.Month, error)
	// UpsertMonth replaces the month and returns its new version.
	UpsertMonth(ctx context.Context, uid int64, key core.MonthKey, m core.Month) (int64, error)
	// DeleteMonth removes the month. Deleting a missing month is not an
	// error and reports version 0.
	DeleteMonth(ctx context.Context, uid int64, key core.MonthKey) (int64, error)
}

// TemplateStore keeps the per-user form template as opaque JSON.
type TemplateStore interface {
	// GetTemplate returns nil when the user never saved one.
	GetTemplate(ctx context.Context, uid int64) (json.RawMessage, error)
	PutTemplate(ctx context.Context, uid int64, tpl json.RawMessage) error
}

type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
}

// ScoreStore keeps the best game score per user.
type ScoreStore interface {
	BestScore(ctx context.Context, uid int64) (int, error)
	// SaveBestScore raises the stored best to score if it is higher and
	// returns the resulting best.
	SaveBestScore(ctx context.Context, uid int64, score int) (int, error)
}

// Store is everything the web server needs from a backend.
type Store interface {
	MonthStore
	TemplateStore
	UserStore
	ScoreStore
	Ping(ctx context.Context) error
	Close() error
}

// PendingMonth is a month whose latest version has not reached the sheet.
type PendingMonth struct {
	UID     int64
	Key     core.MonthKey
	Version int64
	Deleted bool
}

// SyncMonth is a month row as the sync worker sees it, tombstones included.
type SyncMonth struct {
	UID           int64
	Key           core.MonthKey
	Month         core.Month
	Version       int64
	SyncedVersion int64
	Deleted       bool
}

// SyncStore is implemented by backends that track sync state.
type SyncStore interface {
	ListPendingSync(ctx context.Context, limit int) ([]PendingMonth, error)
	GetMonthForSync(ctx context.Context, uid int64, key core.MonthKey) (SyncMonth, error)
	MarkMonthSynced(ctx context.Context, uid int64, key core.MonthKey, version int64) error
	// PurgeMonth drops a tombstone once its deletion reached the sheet.
	PurgeMonth(ctx context.Context, uid int64, key core.MonthKey, version int64) error
}

func docKey(uid int64, key core.MonthKey) string {
	return fmt.Sprintf("%d:%s", uid, key)
}
