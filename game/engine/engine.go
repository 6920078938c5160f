package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for game operations. Commands and
// the play loop drive a level through it.
type Engine interface {
	// Game state management
	GetState() *GameState
	Reset() (*GameState, error)
	IsSolved() bool
	GetPlayerPosition() Position

	// Movement operations
	Move(direction Direction) MoveResult
	CanMove(direction Direction) bool
	GetPossibleMoves() []Direction

	// Grid access
	Grid() *Grid
	Source() string

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

var _ Engine = (*GameEngine)(nil)

// GameEngine implements Engine on top of a Grid and its retained source text
type GameEngine struct {
	levelID   string
	levelName string
	source    string
	grid      *Grid
	state     *GameState
}

// NewEngine parses the source text and creates an engine ready to play
func NewEngine(levelID, levelName, source string) (*GameEngine, error) {
	grid, err := Parse(source)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", levelID, err)
	}

	e := &GameEngine{
		levelID:   levelID,
		levelName: levelName,
		source:    source,
		grid:      grid,
		state: &GameState{
			LevelID:      levelID,
			LevelName:    levelName,
			Width:        Width,
			Height:       Height,
			MoveHistory:  []MoveHistoryEntry{},
			CurrentMoves: []MoveHistoryEntry{},
		},
	}
	e.refresh()
	return e, nil
}

// Grid returns the live grid
func (e *GameEngine) Grid() *Grid {
	return e.grid
}

// Source returns the retained level source text
func (e *GameEngine) Source() string {
	return e.source
}

// LevelID returns the identifier of the level being played
func (e *GameEngine) LevelID() string {
	return e.levelID
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Snapshot returns a deep copy of the state that stays valid after further moves
func (e *GameEngine) Snapshot() *GameState {
	s := *e.state
	s.Rows = append([]string(nil), e.state.Rows...)
	s.MoveHistory = append([]MoveHistoryEntry{}, e.state.MoveHistory...)
	s.CurrentMoves = append([]MoveHistoryEntry{}, e.state.CurrentMoves...)
	return &s
}

// Reset restores the grid to a fresh parse of the source text.
// Cumulative history survives; only the current segment is cleared.
func (e *GameEngine) Reset() (*GameState, error) {
	if err := e.grid.Reset(e.source); err != nil {
		return e.state, fmt.Errorf("reset level %s: %w", e.levelID, err)
	}

	e.state.CurrentMoves = []MoveHistoryEntry{}
	e.state.CurrentMovesCount = 0
	e.state.Resets++
	e.state.Message = "Stage reset"
	e.refresh()
	return e.state, nil
}

// IsSolved reports whether every block rests on a goal
func (e *GameEngine) IsSolved() bool {
	return e.grid.CheckSolved()
}

// GetPlayerPosition returns the current player position
func (e *GameEngine) GetPlayerPosition() Position {
	pos, _ := e.grid.PlayerPosition()
	return pos
}

// Move applies a single move and records it in history. Once the stage is
// solved every move is rejected with BlockedSolved until Reset.
func (e *GameEngine) Move(direction Direction) MoveResult {
	if e.grid.CheckSolved() {
		pos := e.GetPlayerPosition()
		return MoveResult{Direction: direction, Outcome: Blocked, Reason: BlockedSolved, From: pos, To: pos}
	}

	result := e.grid.ApplyMove(direction)
	e.addMoveToHistory(result)

	switch result.Outcome {
	case Pushed:
		e.state.TotalPushes++
		e.state.Message = fmt.Sprintf("Pushed block %s", direction)
	case Moved:
		e.state.Message = fmt.Sprintf("Moved %s", direction)
	default:
		e.state.Message = fmt.Sprintf("Can't move %s: %s", direction, result.Reason)
	}

	e.refresh()
	if e.state.Solved {
		e.state.Message = "Stage clear!"
	}
	return result
}

// BulkMove applies moves in sequence and stops after the first rejected one.
// A solved stage rejects every move, so nothing runs past the solving move.
// onStep, if set, sees each result with its index before the next move.
func (e *GameEngine) BulkMove(moves []Direction, onStep func(i int, r MoveResult)) []MoveResult {
	results := make([]MoveResult, 0, len(moves))
	for i, d := range moves {
		r := e.Move(d)
		results = append(results, r)
		if onStep != nil {
			onStep(i, r)
		}
		if !r.Accepted() {
			break
		}
	}
	return results
}

// CanMove checks whether the player can move in the direction
func (e *GameEngine) CanMove(direction Direction) bool {
	if e.grid.CheckSolved() {
		return false
	}
	return e.grid.CanMove(direction)
}

// GetPossibleMoves returns all directions that would change the grid
func (e *GameEngine) GetPossibleMoves() []Direction {
	var possible []Direction
	for _, d := range AllDirections() {
		if e.CanMove(d) {
			possible = append(possible, d)
		}
	}
	return possible
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// refresh copies grid-derived fields into the state snapshot
func (e *GameEngine) refresh() {
	e.state.Rows = e.grid.Rows()
	e.state.PlayerPos = e.GetPlayerPosition()
	e.state.OnGoal = e.grid.Count(BlockOnGoal)
	e.state.Blocks = e.grid.Count(Block) + e.state.OnGoal
	e.state.Solved = e.grid.CheckSolved()
}

func (e *GameEngine) addMoveToHistory(result MoveResult) {
	entry := MoveHistoryEntry{
		Action:       result.Direction.String(),
		FromPosition: result.From,
		ToPosition:   result.To,
		Outcome:      result.Outcome,
		Reason:       result.Reason,
		Timestamp:    time.Now().Unix(),
		MoveNumber:   e.state.TotalMoves + 1,
	}
	// Cumulative history is never cleared by reset
	e.state.MoveHistory = append(e.state.MoveHistory, entry)
	e.state.TotalMoves++

	e.state.CurrentMoves = append(e.state.CurrentMoves, entry)
	e.state.CurrentMovesCount++
}
