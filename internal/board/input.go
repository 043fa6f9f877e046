package board

import (
	"math"
	"strings"
)

// Direction is one of the four move commands.
type Direction int

const (
	Left Direction = iota + 1
	Right
	Up
	Down
)

// Directions lists every valid direction.
var Directions = []Direction{Left, Right, Up, Down}

// MinSwipeDistance is the displacement below which a swipe is ignored.
const MinSwipeDistance = 20.0

func (d Direction) Valid() bool {
	return d >= Left && d <= Down
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return ""
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseKey maps a keyboard key name or a direction name to a Direction.
// Unknown input yields false and is meant to be ignored.
func ParseKey(key string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "arrowleft", "left":
		return Left, true
	case "arrowright", "right":
		return Right, true
	case "arrowup", "up":
		return Up, true
	case "arrowdown", "down":
		return Down, true
	}
	return 0, false
}

// ClassifySwipe turns a touch displacement into a direction. The dominant
// axis wins; ties go vertical. Short swipes are ignored.
func ClassifySwipe(dx, dy float64) (Direction, bool) {
	if math.IsNaN(dx) || math.IsNaN(dy) {
		return 0, false
	}
	absX, absY := math.Abs(dx), math.Abs(dy)
	if math.Max(absX, absY) < MinSwipeDistance {
		return 0, false
	}
	if absX > absY {
		if dx > 0 {
			return Right, true
		}
		return Left, true
	}
	if dy > 0 {
		return Down, true
	}
	return Up, true
}
