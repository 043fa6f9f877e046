package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gastos/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func monthFromRow(m MonthRow) core.Month {
	return core.Month{
		Internet: core.Money{Cents: m.InternetCents},
		Expensa:  core.Money{Cents: m.ExpensaCents},
		Agua:     core.Money{Cents: m.AguaCents},
		Gas:      core.Money{Cents: m.GasCents},
		Luz:      core.Money{Cents: m.LuzCents},
		Tarjeta:  core.Money{Cents: m.TarjetaCents},
		Auto:     core.Money{Cents: m.AutoCents},
		Cochera:  core.Money{Cents: m.CocheraCents},
		Catastro: core.Money{Cents: m.CatastroCents},
		Admin:    core.Money{Cents: m.AdminCents},
	}
}

// ListMonths implements MonthStore
func (r *SQLiteRepository) ListMonths(ctx context.Context, uid int64) (map[core.MonthKey]core.Month, error) {
	rows, err := r.queries.ListMonthsByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	out := make(map[core.MonthKey]core.Month, len(rows))
	for _, row := range rows {
		out[core.MonthKey(row.Mes)] = monthFromRow(row)
	}
	return out, nil
}

// GetMonth implements MonthStore
func (r *SQLiteRepository) GetMonth(ctx context.Context, uid int64, key core.MonthKey) (core.Month, error) {
	row, err := r.queries.GetMonth(ctx, uid, string(key))
	if errors.Is(err, sql.ErrNoRows) || (err == nil && row.Deleted) {
		return core.Month{}, fmt.Errorf("month %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get month: %w", err)
	}
	return monthFromRow(row), nil
}

// UpsertMonth implements MonthStore
func (r *SQLiteRepository) UpsertMonth(ctx context.Context, uid int64, key core.MonthKey, m core.Month) (int64, error) {
	version, err := r.queries.UpsertMonth(ctx, UpsertMonthParams{
		UID:           uid,
		Mes:           string(key),
		InternetCents: m.Internet.Cents,
		ExpensaCents:  m.Expensa.Cents,
		AguaCents:     m.Agua.Cents,
		GasCents:      m.Gas.Cents,
		LuzCents:      m.Luz.Cents,
		TarjetaCents:  m.Tarjeta.Cents,
		AutoCents:     m.Auto.Cents,
		CocheraCents:  m.Cochera.Cents,
		CatastroCents: m.Catastro.Cents,
		AdminCents:    m.Admin.Cents,
	})
	if err != nil {
		return 0, fmt.Errorf("upsert month: %w", err)
	}

	slog.DebugContext(ctx, "Month saved to SQLite",
		"uid", uid,
		"month", key,
		"version", version)

	return version, nil
}

// DeleteMonth leaves a tombstone so the deletion can reach the sheet.
func (r *SQLiteRepository) DeleteMonth(ctx context.Context, uid int64, key core.MonthKey) (int64, error) {
	version, err := r.queries.SoftDeleteMonth(ctx, uid, string(key))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("delete month: %w", err)
	}
	return version, nil
}

// GetTemplate implements TemplateStore
func (r *SQLiteRepository) GetTemplate(ctx context.Context, uid int64) (json.RawMessage, error) {
	data, err := r.queries.GetTemplate(ctx, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return json.RawMessage(data), nil
}

// PutTemplate implements TemplateStore
func (r *SQLiteRepository) PutTemplate(ctx context.Context, uid int64, tpl json.RawMessage) error {
	if err := r.queries.UpsertTemplate(ctx, uid, string(tpl)); err != nil {
		return fmt.Errorf("put template: %w", err)
	}
	return nil
}

// CreateUser implements UserStore
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	row, err := r.queries.CreateUser(ctx, email, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return userFromRow(row), nil
}

// UserByEmail implements UserStore
func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return userFromRow(row), nil
}

func userFromRow(row UserRow) User {
	return User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.Pass,
		CreatedAt:    parseTimestamp(row.CreatedAt),
	}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// BestScore implements ScoreStore
func (r *SQLiteRepository) BestScore(ctx context.Context, uid int64) (int, error) {
	score, err := r.queries.GetBestScore(ctx, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get best score: %w", err)
	}
	return int(score), nil
}

// SaveBestScore implements ScoreStore
func (r *SQLiteRepository) SaveBestScore(ctx context.Context, uid int64, score int) (int, error) {
	best, err := r.queries.RaiseBestScore(ctx, uid, int64(score))
	if err != nil {
		return 0, fmt.Errorf("save best score: %w", err)
	}
	return int(best), nil
}

// ListPendingSync returns months whose latest version has not been synced,
// oldest change first.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]PendingMonth, error) {
	rows, err := r.queries.GetPendingSyncMonths(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync months: %w", err)
	}
	out := make([]PendingMonth, len(rows))
	for i, row := range rows {
		out[i] = PendingMonth{
			UID:     row.UID,
			Key:     core.MonthKey(row.Mes),
			Version: row.Version,
			Deleted: row.Deleted,
		}
	}
	return out, nil
}

// GetMonthForSync implements SyncStore
func (r *SQLiteRepository) GetMonthForSync(ctx context.Context, uid int64, key core.MonthKey) (SyncMonth, error) {
	row, err := r.queries.GetMonth(ctx, uid, string(key))
	if errors.Is(err, sql.ErrNoRows) {
		return SyncMonth{}, fmt.Errorf("month %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return SyncMonth{}, fmt.Errorf("get month for sync: %w", err)
	}
	return SyncMonth{
		UID:           row.UID,
		Key:           core.MonthKey(row.Mes),
		Month:         monthFromRow(row),
		Version:       row.Version,
		SyncedVersion: row.SyncedVersion,
		Deleted:       row.Deleted,
	}, nil
}

// MarkMonthSynced implements SyncStore
func (r *SQLiteRepository) MarkMonthSynced(ctx context.Context, uid int64, key core.MonthKey, version int64) error {
	if err := r.queries.MarkMonthSynced(ctx, uid, string(key), version); err != nil {
		return fmt.Errorf("mark month synced: %w", err)
	}

	slog.InfoContext(ctx, "Month marked as synced", "uid", uid, "month", key, "version", version)
	return nil
}

// PurgeMonth implements SyncStore
func (r *SQLiteRepository) PurgeMonth(ctx context.Context, uid int64, key core.MonthKey, version int64) error {
	if err := r.queries.PurgeMonth(ctx, uid, string(key), version); err != nil {
		return fmt.Errorf("purge month: %w", err)
	}
	return nil
}
