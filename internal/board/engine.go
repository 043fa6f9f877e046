// Package board implements the sliding-tile merge game engine.
//
// An Engine owns an N x N grid of power-of-two values together with the
// identity of every tile on it. Moves collapse each line toward the leading
// edge, merging equal neighbours once per move, then spawn a single new tile.
// The engine reports which tile ids were merged away and where every surviving
// id ended up, so a renderer can animate persistent identity.
package board

import (
	"math/rand/v2"
	"sync/atomic"
)

// DefaultSize is the classic 4x4 board.
const DefaultSize = 4

// Probability that a spawned tile is a 2 rather than a 4.
const spawnTwoProbability = 0.9

// Rand is the randomness the engine needs. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

func (globalRand) Float64() float64 { return rand.Float64() }

// Phase is the engine state machine position.
type Phase int

const (
	Idle Phase = iota
	Resolving
	Settled
	Terminal
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Settled:
		return "settled"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Tile is a value with a stable identity.
type Tile struct {
	ID    int `json:"id"`
	Value int `json:"value"`
	Row   int `json:"row"`
	Col   int `json:"col"`
}

// Merge describes one pair collapsing into a single tile during a move.
type Merge struct {
	Survivor int `json:"survivor"`
	Removed  int `json:"removed"`
	Value    int `json:"value"`
	Row      int `json:"row"`
	Col      int `json:"col"`
}

// Result is the per-move report.
type Result struct {
	Moved    bool    `json:"moved"`
	Rejected bool    `json:"rejected"`
	Gained   int     `json:"gained"`
	Merges   []Merge `json:"merges,omitempty"`
	Removed  []int   `json:"removed,omitempty"`
	// Tiles holds the final id positions at settle, before the spawn.
	Tiles   []Tile `json:"tiles,omitempty"`
	Spawned *Tile  `json:"spawned,omitempty"`
	Over    bool   `json:"over"`
}

// Engine owns all mutable board state. It is not safe for concurrent use
// beyond the busy flag, which turns overlapping moves into rejections.
type Engine struct {
	size   int
	grid   [][]int
	ids    [][]int
	nextID int
	score  int
	phase  Phase
	busy   atomic.Bool
	rng    Rand
}

type cell struct{ row, col int }

// New returns an empty engine. Call Reset to start a game.
// A size below 2 falls back to DefaultSize; a nil rng uses math/rand/v2.
func New(size int, rng Rand) *Engine {
	if size < 2 {
		size = DefaultSize
	}
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{
		size:   size,
		grid:   newMatrix(size),
		ids:    newMatrix(size),
		nextID: 1,
		rng:    rng,
	}
}

func newMatrix(size int) [][]int {
	m := make([][]int, size)
	for i := range m {
		m[i] = make([]int, size)
	}
	return m
}

// Reset clears the board and score and spawns the two opening tiles.
// Tile ids keep counting from where they were.
func (e *Engine) Reset() {
	e.grid = newMatrix(e.size)
	e.ids = newMatrix(e.size)
	e.score = 0
	e.phase = Idle
	e.SpawnRandom()
	e.SpawnRandom()
}

// SpawnRandom places a 2 (90%) or a 4 on a uniformly chosen empty cell.
// It returns false and leaves the board untouched when there is no room.
func (e *Engine) SpawnRandom() (Tile, bool) {
	var empty []cell
	for r := 0; r < e.size; r++ {
		for c := 0; c < e.size; c++ {
			if e.grid[r][c] == 0 {
				empty = append(empty, cell{r, c})
			}
		}
	}
	if len(empty) == 0 {
		return Tile{}, false
	}
	at := empty[e.rng.IntN(len(empty))]
	value := 4
	if e.rng.Float64() < spawnTwoProbability {
		value = 2
	}
	t := Tile{ID: e.nextID, Value: value, Row: at.row, Col: at.col}
	e.nextID++
	e.grid[at.row][at.col] = value
	e.ids[at.row][at.col] = t.ID
	return t, true
}

// Move slides every line toward d. When anything changed it spawns one tile
// and evaluates the terminal state; otherwise the engine is left untouched.
func (e *Engine) Move(d Direction) Result {
	if !d.Valid() {
		return Result{}
	}
	if e.phase == Terminal {
		return Result{Rejected: true, Over: true}
	}
	if !e.busy.CompareAndSwap(false, true) {
		return Result{Rejected: true}
	}
	defer e.busy.Store(false)

	e.phase = Resolving
	res := e.resolve(d)
	if !res.Moved {
		e.phase = Idle
		return res
	}

	e.phase = Settled
	res.Tiles = e.Tiles()
	if t, ok := e.SpawnRandom(); ok {
		res.Spawned = &t
	}
	if e.CanMove() {
		e.phase = Idle
	} else {
		e.phase = Terminal
		res.Over = true
	}
	return res
}

// resolve computes the collapsed board on copies and commits only if
// something changed.
func (e *Engine) resolve(d Direction) Result {
	grid := newMatrix(e.size)
	ids := newMatrix(e.size)
	var res Result

	type entry struct{ value, id int }
	for i := 0; i < e.size; i++ {
		cells := e.line(d, i)
		line := make([]entry, 0, e.size)
		for _, c := range cells {
			if v := e.grid[c.row][c.col]; v != 0 {
				line = append(line, entry{value: v, id: e.ids[c.row][c.col]})
			}
		}

		out := make([]entry, 0, len(line))
		for k := 0; k < len(line); {
			if k+1 < len(line) && line[k].value == line[k+1].value {
				merged := entry{value: line[k].value * 2, id: line[k].id}
				at := cells[len(out)]
				res.Merges = append(res.Merges, Merge{
					Survivor: line[k].id,
					Removed:  line[k+1].id,
					Value:    merged.value,
					Row:      at.row,
					Col:      at.col,
				})
				res.Removed = append(res.Removed, line[k+1].id)
				res.Gained += merged.value
				out = append(out, merged)
				k += 2
				continue
			}
			out = append(out, line[k])
			k++
		}

		for k, c := range cells {
			if k < len(out) {
				grid[c.row][c.col] = out[k].value
				ids[c.row][c.col] = out[k].id
			}
		}
	}

	for r := 0; r < e.size && !res.Moved; r++ {
		for c := 0; c < e.size; c++ {
			if grid[r][c] != e.grid[r][c] || ids[r][c] != e.ids[r][c] {
				res.Moved = true
				break
			}
		}
	}
	if !res.Moved {
		return Result{}
	}

	e.grid = grid
	e.ids = ids
	e.score += res.Gained
	return res
}

// line returns the cells of line i ordered from the edge d points at.
func (e *Engine) line(d Direction, i int) []cell {
	n := e.size
	cells := make([]cell, n)
	for j := 0; j < n; j++ {
		switch d {
		case Left:
			cells[j] = cell{i, j}
		case Right:
			cells[j] = cell{i, n - 1 - j}
		case Up:
			cells[j] = cell{j, i}
		case Down:
			cells[j] = cell{n - 1 - j, i}
		}
	}
	return cells
}

// CanMove reports whether an empty cell or an equal orthogonal pair exists.
func (e *Engine) CanMove() bool {
	for r := 0; r < e.size; r++ {
		for c := 0; c < e.size; c++ {
			v := e.grid[r][c]
			if v == 0 {
				return true
			}
			if r+1 < e.size && e.grid[r+1][c] == v {
				return true
			}
			if c+1 < e.size && e.grid[r][c+1] == v {
				return true
			}
		}
	}
	return false
}

// Tiles lists the tiles on the board in row-major order.
func (e *Engine) Tiles() []Tile {
	tiles := make([]Tile, 0, e.size*e.size)
	for r := 0; r < e.size; r++ {
		for c := 0; c < e.size; c++ {
			if v := e.grid[r][c]; v != 0 {
				tiles = append(tiles, Tile{ID: e.ids[r][c], Value: v, Row: r, Col: c})
			}
		}
	}
	return tiles
}

// Grid returns a copy of the cell values.
func (e *Engine) Grid() [][]int {
	out := newMatrix(e.size)
	for r := range e.grid {
		copy(out[r], e.grid[r])
	}
	return out
}

func (e *Engine) Size() int { return e.size }

func (e *Engine) Score() int { return e.score }

func (e *Engine) Phase() Phase { return e.phase }

// Over reports whether the engine reached the terminal state.
func (e *Engine) Over() bool { return e.phase == Terminal }

// Busy reports whether a move is being processed.
func (e *Engine) Busy() bool { return e.busy.Load() }
