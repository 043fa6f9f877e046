package board

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSize  = errors.New("invalid board size")
	ErrInvalidTile  = errors.New("invalid tile")
	ErrInvalidState = errors.New("invalid board state")
)

// State is the persistable form of an engine.
type State struct {
	Size   int    `json:"size"`
	Tiles  []Tile `json:"tiles"`
	NextID int    `json:"nextId"`
	Score  int    `json:"score"`
	Over   bool   `json:"over"`
}

// Snapshot captures the engine so it can be stored and restored later.
func (e *Engine) Snapshot() State {
	return State{
		Size:   e.size,
		Tiles:  e.Tiles(),
		NextID: e.nextID,
		Score:  e.score,
		Over:   e.phase == Terminal,
	}
}

// FromState returns a new engine restored from s.
func FromState(s State, rng Rand) (*Engine, error) {
	e := New(s.Size, rng)
	if err := e.Restore(s); err != nil {
		return nil, err
	}
	return e, nil
}

// Restore replaces the engine's board with a snapshot, checking that every
// tile sits on its own in-range cell with a power-of-two value and a positive
// unique id. On error the engine is left untouched.
//
// A board with no legal move is restored as Terminal even when s.Over is false.
func (e *Engine) Restore(s State) error {
	if s.Size < 2 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, s.Size)
	}
	if s.Score < 0 {
		return fmt.Errorf("%w: negative score %d", ErrInvalidState, s.Score)
	}
	grid, ids := newMatrix(s.Size), newMatrix(s.Size)
	seen := make(map[int]bool, len(s.Tiles))
	maxID := 0
	for _, t := range s.Tiles {
		if t.Row < 0 || t.Row >= s.Size || t.Col < 0 || t.Col >= s.Size {
			return fmt.Errorf("%w: tile %d out of range at (%d,%d)", ErrInvalidTile, t.ID, t.Row, t.Col)
		}
		if !isPowerOfTwo(t.Value) {
			return fmt.Errorf("%w: tile %d has value %d", ErrInvalidTile, t.ID, t.Value)
		}
		if t.ID <= 0 || seen[t.ID] {
			return fmt.Errorf("%w: tile id %d", ErrInvalidTile, t.ID)
		}
		if grid[t.Row][t.Col] != 0 {
			return fmt.Errorf("%w: two tiles at (%d,%d)", ErrInvalidTile, t.Row, t.Col)
		}
		seen[t.ID] = true
		maxID = max(maxID, t.ID)
		grid[t.Row][t.Col] = t.Value
		ids[t.Row][t.Col] = t.ID
	}

	e.size = s.Size
	e.grid = grid
	e.ids = ids
	e.nextID = max(s.NextID, maxID+1)
	e.score = s.Score
	e.phase = Idle
	if s.Over || !e.CanMove() {
		e.phase = Terminal
	}
	return nil
}

// FromGrid builds an engine from raw values, numbering tiles in row-major
// order. Zero cells are empty.
func FromGrid(grid [][]int, rng Rand) (*Engine, error) {
	size := len(grid)
	if size < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	e := New(size, rng)
	for r, row := range grid {
		if len(row) != size {
			return nil, fmt.Errorf("%w: row %d has %d cells", ErrInvalidSize, r, len(row))
		}
		for c, v := range row {
			if v == 0 {
				continue
			}
			if !isPowerOfTwo(v) {
				return nil, fmt.Errorf("%w: value %d at (%d,%d)", ErrInvalidTile, v, r, c)
			}
			e.grid[r][c] = v
			e.ids[r][c] = e.nextID
			e.nextID++
		}
	}
	return e, nil
}

func isPowerOfTwo(v int) bool {
	return v >= 2 && v&(v-1) == 0
}
