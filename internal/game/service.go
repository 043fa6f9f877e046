package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gastos/internal/board"
	"gastos/internal/storage"
)

// Service drives sessions. Moves on one session are serialized: a second
// request arriving while one is in flight gets ErrBusy.
type Service struct {
	store  Store
	scores storage.ScoreStore
	size   int
	rng    board.Rand
	now    func() time.Time

	mu   sync.Mutex
	busy map[string]struct{}
}

type Option func(*Service)

// WithBoardSize sets the size of new boards.
func WithBoardSize(n int) Option {
	return func(s *Service) { s.size = n }
}

// WithRand makes tile spawns deterministic.
func WithRand(r board.Rand) Option {
	return func(s *Service) { s.rng = r }
}

func NewService(store Store, scores storage.ScoreStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		scores: scores,
		size:   board.DefaultSize,
		now:    time.Now,
		busy:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new game for uid with the two opening tiles in place.
func (s *Service) Start(ctx context.Context, uid int64) (Session, error) {
	id, err := newSessionID()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}
	best, err := s.scores.BestScore(ctx, uid)
	if err != nil {
		return Session{}, fmt.Errorf("load best score: %w", err)
	}

	e := board.New(s.size, s.rng)
	e.Reset()

	sess := Session{ID: id, UID: uid, State: e.Snapshot(), Best: best, UpdatedAt: s.now()}
	if err := s.store.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	slog.DebugContext(ctx, "Game started", "uid", uid, "game_id", id)
	return sess, nil
}

// Get returns the session. Sessions owned by another user are reported as
// not found.
func (s *Service) Get(ctx context.Context, uid int64, id string) (Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.UID != uid {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// Move applies one direction. A move that changes nothing, or an invalid
// direction, leaves the session untouched and reports Moved=false.
func (s *Service) Move(ctx context.Context, uid int64, id string, d board.Direction) (Session, board.Result, error) {
	release, err := s.acquire(id)
	if err != nil {
		return Session{}, board.Result{}, err
	}
	defer release()

	sess, e, err := s.load(ctx, uid, id)
	if err != nil {
		return Session{}, board.Result{}, err
	}

	res := e.Move(d)
	if !res.Moved {
		return sess, res, nil
	}

	sess.State = e.Snapshot()
	sess.UpdatedAt = s.now()
	if sess.State.Score > sess.Best {
		best, err := s.scores.SaveBestScore(ctx, uid, sess.State.Score)
		if err != nil {
			return Session{}, board.Result{}, fmt.Errorf("save best score: %w", err)
		}
		sess.Best = best
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return Session{}, board.Result{}, err
	}
	return sess, res, nil
}

// Reset starts the session over. Tile ids keep counting.
func (s *Service) Reset(ctx context.Context, uid int64, id string) (Session, error) {
	release, err := s.acquire(id)
	if err != nil {
		return Session{}, err
	}
	defer release()

	sess, e, err := s.load(ctx, uid, id)
	if err != nil {
		return Session{}, err
	}
	e.Reset()
	sess.State = e.Snapshot()
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// End discards the session. The best score is kept.
func (s *Service) End(ctx context.Context, uid int64, id string) error {
	release, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.Get(ctx, uid, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Game ended", "uid", uid, "game_id", id)
	return nil
}

func (s *Service) Best(ctx context.Context, uid int64) (int, error) {
	best, err := s.scores.BestScore(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("load best score: %w", err)
	}
	return best, nil
}

func (s *Service) load(ctx context.Context, uid int64, id string) (Session, *board.Engine, error) {
	sess, err := s.Get(ctx, uid, id)
	if err != nil {
		return Session{}, nil, err
	}
	e, err := board.FromState(sess.State, s.rng)
	if err != nil {
		return Session{}, nil, fmt.Errorf("restore board: %w", err)
	}
	return sess, e, nil
}

func (s *Service) acquire(id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[id]; ok {
		return nil, ErrBusy
	}
	s.busy[id] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.busy, id)
		s.mu.Unlock()
	}, nil
}
