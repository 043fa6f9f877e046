package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/storage"
)

var ErrInvalidTemplate = errors.New("template must be a JSON object")

// SyncPublisher announces month changes to the sync worker.
type SyncPublisher interface {
	PublishMonthSync(ctx context.Context, uid int64, key core.MonthKey, version int64, deleted bool) error
}

// MonthService orchestrates ledger reads and writes across storage, the
// per-user cache and the sync publisher.
type MonthService struct {
	months    storage.MonthStore
	templates storage.TemplateStore
	cache     *cache.LRUCache[map[core.MonthKey]core.Month]
	publisher SyncPublisher

	// gens counts writes per user. List only fills the cache when no write
	// happened while it was reading from storage.
	mu   sync.Mutex
	gens map[int64]uint64
}

type MonthOption func(*MonthService)

// WithPublisher sends a sync event after every month write.
func WithPublisher(p SyncPublisher) MonthOption {
	return func(s *MonthService) { s.publisher = p }
}

// WithCache replaces the default month cache.
func WithCache(c *cache.LRUCache[map[core.MonthKey]core.Month]) MonthOption {
	return func(s *MonthService) { s.cache = c }
}

func NewMonthService(months storage.MonthStore, templates storage.TemplateStore, opts ...MonthOption) *MonthService {
	s := &MonthService{
		months:    months,
		templates: templates,
		cache:     cache.NewLRUCache[map[core.MonthKey]core.Month](256, 5*time.Minute),
		gens:      make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache exposes the month cache so it can be registered for cleanup.
func (s *MonthService) Cache() *cache.LRUCache[map[core.MonthKey]core.Month] {
	return s.cache
}

// List returns the caller's months. The returned map is a copy.
func (s *MonthService) List(ctx context.Context, uid int64) (map[core.MonthKey]core.Month, error) {
	key := cacheKey(uid)
	if months, ok := s.cache.Get(key); ok {
		return cloneMonths(months), nil
	}

	s.mu.Lock()
	gen := s.gens[uid]
	s.mu.Unlock()

	months, err := s.months.ListMonths(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}

	s.mu.Lock()
	if s.gens[uid] == gen {
		s.cache.Set(key, months)
	}
	s.mu.Unlock()
	return cloneMonths(months), nil
}

// Save stores the month and publishes a sync event. Publishing failures are
// logged; the write itself has already succeeded.
func (s *MonthService) Save(ctx context.Context, uid int64, key core.MonthKey, m core.Month) error {
	if err := m.Validate(); err != nil {
		return err
	}
	version, err := s.months.UpsertMonth(ctx, uid, key, m)
	if err != nil {
		return fmt.Errorf("save month: %w", err)
	}
	s.invalidate(uid)

	s.publish(ctx, uid, key, version, false)
	return nil
}

// Delete removes the month. Deleting a month that does not exist succeeds.
func (s *MonthService) Delete(ctx context.Context, uid int64, key core.MonthKey) error {
	version, err := s.months.DeleteMonth(ctx, uid, key)
	if err != nil {
		return fmt.Errorf("delete month: %w", err)
	}
	s.invalidate(uid)

	if version > 0 {
		s.publish(ctx, uid, key, version, true)
	}
	return nil
}

// Export writes the caller's months as CSV.
func (s *MonthService) Export(ctx context.Context, uid int64, w io.Writer) error {
	months, err := s.List(ctx, uid)
	if err != nil {
		return err
	}
	if err := core.WriteCSV(w, months); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Template returns the saved form template, or nil when there is none.
func (s *MonthService) Template(ctx context.Context, uid int64) (json.RawMessage, error) {
	tpl, err := s.templates.GetTemplate(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return tpl, nil
}

func (s *MonthService) SaveTemplate(ctx context.Context, uid int64, tpl json.RawMessage) error {
	var obj map[string]json.RawMessage
	if len(tpl) == 0 || json.Unmarshal(tpl, &obj) != nil || obj == nil {
		return ErrInvalidTemplate
	}
	if err := s.templates.PutTemplate(ctx, uid, tpl); err != nil {
		return fmt.Errorf("put template: %w", err)
	}
	return nil
}

func (s *MonthService) publish(ctx context.Context, uid int64, key core.MonthKey, version int64, deleted bool) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMonthSync(ctx, uid, key, version, deleted); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"uid", uid,
			"month", key,
			"version", version,
			"deleted", deleted,
			"error", err)
	}
}

func (s *MonthService) invalidate(uid int64) {
	s.mu.Lock()
	s.gens[uid]++
	s.cache.Delete(cacheKey(uid))
	s.mu.Unlock()
}

func cacheKey(uid int64) string {
	return "months:" + strconv.FormatInt(uid, 10)
}

func cloneMonths(in map[core.MonthKey]core.Month) map[core.MonthKey]core.Month {
	out := make(map[core.MonthKey]core.Month, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
