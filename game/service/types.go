package service

import (
	"time"

	"github.com/wricardo/mcp-training/sokoban/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	LevelID        string            `json:"level_id"`
	LevelName      string            `json:"level_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// MoveResult contains the result of a move or command
type MoveResult struct {
	Success     bool               `json:"success"`
	Outcome     engine.MoveOutcome `json:"outcome,omitempty"`
	GameState   *engine.GameState  `json:"game_state"`
	Message     string             `json:"message"`
	Events      []GameEvent        `json:"events,omitempty"`
	Step        *StepInfo          `json:"step,omitempty"`
	AttemptedTo *AttemptInfo       `json:"attempted_to,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // blocked_boundary|blocked_wall|blocked_unset|blocked_push|solved
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartPos engine.Position `json:"start_pos"`
	EndPos   engine.Position `json:"end_pos"`
	Pushes   int             `json:"pushes"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Failure diagnostics
	AttemptedTo *AttemptInfo `json:"attempted_to,omitempty"`

	// Final status aids
	Solved        bool     `json:"solved"`
	Message       string   `json:"message,omitempty"`
	PossibleMoves []string `json:"possible_moves,omitempty"`
}

// StepInfo is a compact record for each executed move
type StepInfo struct {
	Idx     int                `json:"idx"`
	Dir     string             `json:"dir"`
	From    engine.Position    `json:"from"`
	To      engine.Position    `json:"to"`
	Outcome engine.MoveOutcome `json:"outcome"`
	Solved  bool               `json:"solved,omitempty"`
}

// AttemptInfo details the cell a rejected move tried to enter
type AttemptInfo struct {
	X        int                `json:"x"`
	Y        int                `json:"y"`
	TileChar string             `json:"tile_char"`
	TileType string             `json:"tile_type"`
	Reason   engine.BlockReason `json:"reason"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"` // "move", "push", "blocked", "reset", "solved"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// HintResult suggests the next move of a shortest solution
type HintResult struct {
	Direction string `json:"direction"`
	Key       string `json:"key"`
	Remaining int    `json:"remaining_moves"`
	Solution  string `json:"solution"`
	Explored  int    `json:"explored_states"`
}
