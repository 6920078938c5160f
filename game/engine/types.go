package engine

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Grid dimensions are fixed by design and not derived from the level text
	Width  = 10
	Height = 8

	MaxBulkMoves        = 200
	WebSocketBufferSize = 256
)

var (
	ErrInvalidCharacter  = errors.New("invalid character")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrUnknownDirection  = errors.New("unknown direction")
)

// Position represents x,y coordinates; X is the column and Y the row
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Index returns the flat grid index of the position
func (p Position) Index() int {
	return p.Y*Width + p.X
}

// InBounds reports whether the position lies on the grid
func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < Width && p.Y >= 0 && p.Y < Height
}

// Step returns the position one cell away in the given direction
func (p Position) Step(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// PositionOf converts a flat grid index into a position
func PositionOf(idx int) Position {
	return Position{X: idx % Width, Y: idx / Width}
}

// Direction is one of the four movement directions
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

// AllDirections returns the directions in a stable order
func AllDirections() []Direction {
	return []Direction{Left, Right, Up, Down}
}

// Delta returns the column and row offsets for this direction
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	default:
		return 0, 0
	}
}

// String returns the lowercase direction name used by the API
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
		return "unknown"
	}
}

// ParseDirection accepts direction names in any case
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// MoveOutcome classifies the result of a move attempt
type MoveOutcome string

const (
	Moved   MoveOutcome = "moved"
	Pushed  MoveOutcome = "pushed"
	Blocked MoveOutcome = "blocked"
)

// BlockReason explains why a move was rejected
type BlockReason string

const (
	BlockedBoundary BlockReason = "boundary"
	BlockedWall     BlockReason = "wall"
	BlockedUnset    BlockReason = "unset"
	BlockedPush     BlockReason = "blocked_push"
	BlockedPlayer   BlockReason = "player"
	BlockedNoPlayer BlockReason = "no_player"
	BlockedSolved   BlockReason = "solved"
)

// MoveResult describes a single move attempt. Rejected moves are not errors.
type MoveResult struct {
	Direction Direction   `json:"-"`
	Outcome   MoveOutcome `json:"outcome"`
	Reason    BlockReason `json:"reason,omitempty"`
	From      Position    `json:"from"`
	To        Position    `json:"to"`
}

// Accepted reports whether the grid changed
func (r MoveResult) Accepted() bool {
	return r.Outcome == Moved || r.Outcome == Pushed
}

// GameState is the serializable snapshot of a level in play
type GameState struct {
	LevelID   string   `json:"level_id"`
	LevelName string   `json:"level_name"`
	Rows      []string `json:"rows"`
	PlayerPos Position `json:"player_pos"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Blocks    int      `json:"blocks"`
	OnGoal    int      `json:"blocks_on_goal"`
	Solved    bool     `json:"solved"`
	Message   string   `json:"message"`

	TotalMoves  int                `json:"total_moves"`
	TotalPushes int                `json:"total_pushes"`
	MoveHistory []MoveHistoryEntry `json:"move_history"`

	// CurrentMoves covers only the moves since the last reset; MoveHistory is cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
	Resets            int                `json:"resets"`
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	Action       string      `json:"action"`
	FromPosition Position    `json:"from_position"`
	ToPosition   Position    `json:"to_position"`
	Outcome      MoveOutcome `json:"outcome"`
	Reason       BlockReason `json:"reason,omitempty"`
	Timestamp    int64       `json:"timestamp"`
	MoveNumber   int         `json:"move_number"`
}
