package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gastos/internal/core"
)

// document is the whole dataset of the memory and file backends. Month keys
// are "<uid>:<YYYY-MM>" so one map can hold every user.
type document struct {
	Months     map[string]core.Month      `json:"months"`
	Versions   map[string]int64           `json:"versions,omitempty"`
	Users      []User                     `json:"users"`
	Templates  map[string]json.RawMessage `json:"templates"`
	BestScores map[string]int             `json:"best_scores"`
}

func newDocument() *document {
	d := &document{}
	d.init()
	return d
}

func (d *document) init() {
	if d.Months == nil {
		d.Months = map[string]core.Month{}
	}
	if d.Versions == nil {
		d.Versions = map[string]int64{}
	}
	if d.Templates == nil {
		d.Templates = map[string]json.RawMessage{}
	}
	if d.BestScores == nil {
		d.BestScores = map[string]int{}
	}
}

func (d *document) clone() *document {
	c := &document{
		Months:     make(map[string]core.Month, len(d.Months)),
		Versions:   make(map[string]int64, len(d.Versions)),
		Users:      append([]User(nil), d.Users...),
		Templates:  make(map[string]json.RawMessage, len(d.Templates)),
		BestScores: make(map[string]int, len(d.BestScores)),
	}
	for k, v := range d.Months {
		c.Months[k] = v
	}
	for k, v := range d.Versions {
		c.Versions[k] = v
	}
	for k, v := range d.Templates {
		c.Templates[k] = v
	}
	for k, v := range d.BestScores {
		c.BestScores[k] = v
	}
	return c
}

// MemoryStore keeps everything in process memory. It is safe for concurrent
// use. The file backend reuses it with a persist hook.
type MemoryStore struct {
	mu      sync.RWMutex
	doc     *document
	persist func(*document) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: newDocument()}
}

// update applies fn to a copy of the document and swaps it in only when fn
// and the persist hook both succeed.
func (s *MemoryStore) update(fn func(d *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc.clone()
	if err := fn(next); err != nil {
		return err
	}
	if s.persist != nil {
		if err := s.persist(next); err != nil {
			return err
		}
	}
	s.doc = next
	return nil
}

func (s *MemoryStore) ListMonths(ctx context.Context, uid int64) (map[core.MonthKey]core.Month, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := strconv.FormatInt(uid, 10) + ":"
	out := make(map[core.MonthKey]core.Month)
	for k, m := range s.doc.Months {
		if strings.HasPrefix(k, prefix) {
			out[core.MonthKey(strings.TrimPrefix(k, prefix))] = m
		}
	}
	return out, nil
}

func (s *MemoryStore) GetMonth(ctx context.Context, uid int64, key core.MonthKey) (core.Month, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.doc.Months[docKey(uid, key)]
	if !ok {
		return core.Month{}, fmt.Errorf("month %s: %w", key, ErrNotFound)
	}
	return m, nil
}

func (s *MemoryStore) UpsertMonth(ctx context.Context, uid int64, key core.MonthKey, m core.Month) (int64, error) {
	var version int64
	err := s.update(func(d *document) error {
		k := docKey(uid, key)
		d.Months[k] = m
		d.Versions[k]++
		version = d.Versions[k]
		return nil
	})
	return version, err
}

func (s *MemoryStore) DeleteMonth(ctx context.Context, uid int64, key core.MonthKey) (int64, error) {
	var version int64
	err := s.update(func(d *document) error {
		k := docKey(uid, key)
		if _, ok := d.Months[k]; !ok {
			return nil
		}
		delete(d.Months, k)
		d.Versions[k]++
		version = d.Versions[k]
		return nil
	})
	return version, err
}

func (s *MemoryStore) GetTemplate(ctx context.Context, uid int64) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.doc.Templates[strconv.FormatInt(uid, 10)]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), tpl...), nil
}

func (s *MemoryStore) PutTemplate(ctx context.Context, uid int64, tpl json.RawMessage) error {
	stored := append(json.RawMessage(nil), tpl...)
	return s.update(func(d *document) error {
		d.Templates[strconv.FormatInt(uid, 10)] = stored
		return nil
	})
}

func (s *MemoryStore) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	var user User
	err := s.update(func(d *document) error {
		var lastID int64
		for _, u := range d.Users {
			if u.Email == email {
				return ErrEmailTaken
			}
			if u.ID > lastID {
				lastID = u.ID
			}
		}
		user = User{
			ID:           lastID + 1,
			Email:        email,
			PasswordHash: passwordHash,
			CreatedAt:    time.Now().UTC(),
		}
		d.Users = append(d.Users, user)
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.doc.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
}

func (s *MemoryStore) BestScore(ctx context.Context, uid int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.BestScores[strconv.FormatInt(uid, 10)], nil
}

func (s *MemoryStore) SaveBestScore(ctx context.Context, uid int64, score int) (int, error) {
	var best int
	err := s.update(func(d *document) error {
		k := strconv.FormatInt(uid, 10)
		if score > d.BestScores[k] {
			d.BestScores[k] = score
		}
		best = d.BestScores[k]
		return nil
	})
	return best, err
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
