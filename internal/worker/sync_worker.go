package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/sheets"
	"gastos/internal/storage"
)

// SyncWorker mirrors ledger months from SQLite into the spreadsheet.
type SyncWorker struct {
	storage   storage.SyncStore
	sheets    sheets.MonthWriter
	batchSize int
}

func NewSyncWorker(store storage.SyncStore, writer sheets.MonthWriter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   store,
		sheets:    writer,
		batchSize: batchSize,
	}
}

// HandleMonthSync processes a single month sync message from AMQP.
func (w *SyncWorker) HandleMonthSync(ctx context.Context, msg *amqp.MonthSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"uid", msg.UID,
		"month", msg.Month,
		"version", msg.Version,
		"deleted", msg.Deleted)

	return w.SyncMonth(ctx, msg.UID, msg.Key(), msg.Version)
}

// SyncMonth brings the sheet row for uid/key up to date with the stored row.
// version is the change that triggered the call; when the store already
// holds a newer one, that newer change will be handled on its own.
func (w *SyncWorker) SyncMonth(ctx context.Context, uid int64, key core.MonthKey, version int64) error {
	row, err := w.storage.GetMonthForSync(ctx, uid, key)
	if errors.Is(err, storage.ErrNotFound) {
		slog.DebugContext(ctx, "Month no longer stored, nothing to sync", "uid", uid, "month", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get month from storage: %w", err)
	}

	if version < row.Version {
		slog.DebugContext(ctx, "Skipping stale sync request",
			"uid", uid, "month", key, "requested", version, "current", row.Version)
		return nil
	}
	if row.SyncedVersion >= row.Version {
		slog.DebugContext(ctx, "Month already synced", "uid", uid, "month", key, "version", row.Version)
		return nil
	}

	if row.Deleted {
		return w.clearMonth(ctx, row)
	}
	return w.upsertMonth(ctx, row)
}

func (w *SyncWorker) upsertMonth(ctx context.Context, row storage.SyncMonth) error {
	ref, err := w.sheets.UpsertMonth(ctx, row.UID, row.Key, row.Month)
	if err != nil {
		return fmt.Errorf("upsert month in sheets: %w", err)
	}

	if err := w.storage.MarkMonthSynced(ctx, row.UID, row.Key, row.Version); err != nil {
		// The sheet is already correct; the next pass rewrites the same row.
		slog.ErrorContext(ctx, "Failed to mark month as synced",
			"uid", row.UID, "month", row.Key, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully synced month",
		"uid", row.UID,
		"month", row.Key,
		"version", row.Version,
		"sheets_ref", ref)
	return nil
}

func (w *SyncWorker) clearMonth(ctx context.Context, row storage.SyncMonth) error {
	if err := w.sheets.ClearMonth(ctx, row.UID, row.Key); err != nil {
		return fmt.Errorf("clear month in sheets: %w", err)
	}

	if err := w.storage.PurgeMonth(ctx, row.UID, row.Key, row.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to purge deleted month",
			"uid", row.UID, "month", row.Key, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully removed month from sheets",
		"uid", row.UID,
		"month", row.Key,
		"version", row.Version)
	return nil
}

// ProcessPending syncs up to one batch of months that still lag behind. It
// backs up AMQP delivery and reports how many months were synced.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck catches up on changes made while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced == 0 {
		slog.InfoContext(ctx, "No pending months found on startup")
	}
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.storage.ListPendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending months: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending months", "count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.SyncMonth(ctx, p.UID, p.Key, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to sync month",
				"uid", p.UID, "month", p.Key, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sync pass completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return synced, nil
}
