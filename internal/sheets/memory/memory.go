// Package memory is an in-process MonthWriter used by tests and by the
// worker when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gastos/internal/core"
	"gastos/internal/sheets"
)

var (
	_ sheets.MonthWriter = (*Store)(nil)
	_ sheets.MonthReader = (*Store)(nil)
)

type rowKey struct {
	uid int64
	key core.MonthKey
}

type Store struct {
	mu     sync.Mutex
	rows   map[rowKey]core.Month
	order  []rowKey
	writes int
}

func New() *Store {
	return &Store{rows: map[rowKey]core.Month{}}
}

// UpsertMonth stores the month and returns a synthetic row reference that
// stays stable for the same user and month.
func (s *Store) UpsertMonth(_ context.Context, uid int64, key core.MonthKey, m core.Month) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := rowKey{uid, key}
	if _, ok := s.rows[k]; !ok {
		s.order = append(s.order, k)
	}
	s.rows[k] = m
	s.writes++
	return fmt.Sprintf("mem:%d", s.indexOf(k)+2), nil
}

func (s *Store) ClearMonth(_ context.Context, uid int64, key core.MonthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := rowKey{uid, key}
	if _, ok := s.rows[k]; ok {
		delete(s.rows, k)
		s.writes++
	}
	return nil
}

func (s *Store) ReadMonths(_ context.Context, uid int64) (map[core.MonthKey]core.Month, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[core.MonthKey]core.Month{}
	for k, m := range s.rows {
		if k.uid == uid {
			out[k.key] = m
		}
	}
	return out, nil
}

// Keys lists stored rows as "<uid>:<month>", sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rows))
	for k := range s.rows {
		out = append(out, fmt.Sprintf("%d:%s", k.uid, k.key))
	}
	sort.Strings(out)
	return out
}

// Writes counts successful upserts and clears.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) indexOf(k rowKey) int {
	for i, o := range s.order {
		if o == k {
			return i
		}
	}
	return -1
}
