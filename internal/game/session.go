// Package game runs merge-game sessions on the server on top of the board
// engine.
package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"gastos/internal/board"
)

var (
	ErrSessionNotFound = errors.New("game session not found")
	ErrBusy            = errors.New("game session is busy")
)

// Session is one game in progress.
type Session struct {
	ID        string      `json:"id"`
	UID       int64       `json:"uid"`
	State     board.State `json:"state"`
	Best      int         `json:"best"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type Store interface {
	Save(ctx context.Context, s Session) error
	// Get returns ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

func newSessionID() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
