package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/sokoban/game/command"
	"github.com/wricardo/mcp-training/sokoban/game/engine"
	"github.com/wricardo/mcp-training/sokoban/game/level"
	"github.com/wricardo/mcp-training/sokoban/game/solver"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	levels   LevelManager
	solver   *solver.Solver
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. maxHintStates bounds
// the hint search; zero selects the solver default.
func NewGameService(sessions SessionManager, levels LevelManager, maxHintStates int) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
		solver:   solver.New(maxHintStates),
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.Level.ID,
		LevelName:      sess.Level.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.Snapshot(),
	}
}

// CreateSession creates a new game session on a level; "" selects the first level
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lvl *level.Level
	var err error
	if levelID != "" {
		lvl, err = s.levels.LoadLevel(levelID)
		if err != nil {
			if errors.Is(err, level.ErrLevelNotFound) {
				// Provide helpful error message with available options
				available, listErr := s.levels.ListLevels()
				if listErr == nil && len(available) > 0 {
					var ids []string
					for _, info := range available {
						ids = append(ids, info.ID)
					}
					return nil, fmt.Errorf("level '%s': %w. Available levels: %v", levelID, err, ids)
				}
			}
			return nil, fmt.Errorf("failed to load level %s: %w", levelID, err)
		}
	} else {
		lvl, err = s.levels.First()
		if err != nil {
			return nil, fmt.Errorf("failed to load default level: %w", err)
		}
	}

	sess, err := s.sessions.Create("", lvl)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	if reset {
		if _, err := sess.Engine.Reset(); err != nil {
			return nil, err
		}
		events = append(events, resetEvent())
	}

	return s.applyMove(sess, dir, events), nil
}

// Command interprets a single terminal command character (a, s, w, z or r)
func (s *gameServiceImpl) Command(ctx context.Context, sessionID, input string) (*MoveResult, error) {
	cmd, err := command.Parse(input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if cmd.Kind == command.Reset {
		if _, err := command.Apply(sess.Engine, cmd); err != nil {
			return nil, err
		}
		state := sess.Engine.Snapshot()
		return &MoveResult{
			Success:   true,
			GameState: state,
			Message:   state.Message,
			Events:    []GameEvent{resetEvent()},
		}, nil
	}

	return s.applyMove(sess, cmd.Direction, []GameEvent{}), nil
}

// applyMove runs one move and builds its result; the caller holds the lock
func (s *gameServiceImpl) applyMove(sess *Session, dir engine.Direction, events []GameEvent) *MoveResult {
	moveResult := sess.Engine.Move(dir)
	state := sess.Engine.Snapshot()

	result := &MoveResult{
		Success:   moveResult.Accepted(),
		Outcome:   moveResult.Outcome,
		GameState: state,
		Message:   state.Message,
		Events:    append(events, moveEvents(moveResult, state)...),
	}

	if moveResult.Accepted() {
		result.Step = &StepInfo{
			Idx:     1,
			Dir:     dir.String(),
			From:    moveResult.From,
			To:      moveResult.To,
			Outcome: moveResult.Outcome,
			Solved:  state.Solved,
		}
	} else {
		result.AttemptedTo = attemptInfo(sess.Engine.Grid(), moveResult)
	}
	return result
}

// BulkMove executes moves in sequence through the engine. It stops at the
// first rejected move or once the level is solved.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	dirs := make([]engine.Direction, 0, len(moves))
	for i, m := range moves {
		d, err := engine.ParseDirection(m)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		dirs = append(dirs, d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		if _, err := sess.Engine.Reset(); err != nil {
			return nil, err
		}
		result.Events = append(result.Events, resetEvent())
	}

	startState := sess.Engine.GetState()
	result.StartPos = startState.PlayerPos
	startPushes := startState.TotalPushes

	// Limit moves to prevent abuse
	if len(dirs) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		dirs = dirs[:engine.MaxBulkMoves]
	}

	sess.Engine.BulkMove(dirs, func(i int, moveResult engine.MoveResult) {
		switch {
		case moveResult.Reason == engine.BlockedSolved:
			result.StoppedReason = "level already solved"
			result.StopReasonCode = "solved"
			result.StoppedOnMove = i + 1

		case !moveResult.Accepted():
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, moveResult.Direction)
			result.StopReasonCode = "blocked_" + string(moveResult.Reason)
			if moveResult.Reason == engine.BlockedPush {
				result.StopReasonCode = string(engine.BlockedPush)
			}
			result.StoppedOnMove = i + 1
			result.AttemptedTo = attemptInfo(sess.Engine.Grid(), moveResult)
			result.Events = append(result.Events, blockedEvent(moveResult))

		default:
			result.MovesExecuted++
			state := sess.Engine.GetState()
			result.Events = append(result.Events, moveEvents(moveResult, state)...)
			result.Steps = append(result.Steps, StepInfo{
				Idx:     i + 1,
				Dir:     moveResult.Direction.String(),
				From:    moveResult.From,
				To:      moveResult.To,
				Outcome: moveResult.Outcome,
				Solved:  state.Solved,
			})
		}
	})

	endState := sess.Engine.Snapshot()
	result.GameState = endState
	result.EndPos = endState.PlayerPos
	result.Pushes = endState.TotalPushes - startPushes
	result.Solved = endState.Solved
	result.Message = endState.Message
	if result.Solved && result.StopReasonCode == "" {
		result.StopReasonCode = "solved"
	}
	for _, d := range sess.Engine.GetPossibleMoves() {
		result.PossibleMoves = append(result.PossibleMoves, d.String())
	}

	return result, nil
}

// Reset resets a game session to its initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := sess.Engine.Reset(); err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// Hint searches for a shortest solution from the current grid
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string) (*HintResult, error) {
	s.mu.Lock()
	sess, err := s.session(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	grid := *sess.Engine.Grid()
	s.mu.Unlock()

	dir, sol, err := s.solver.Hint(ctx, &grid)
	if err != nil {
		return nil, err
	}

	return &HintResult{
		Direction: dir.String(),
		Key:       sol.Keys[:1],
		Remaining: len(sol.Moves),
		Solution:  sol.Keys,
		Explored:  sol.Explored,
	}, nil
}

// ListLevels returns the available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*level.Info, error) {
	return s.levels.ListLevels()
}

// GetLevel loads a level's source text
func (s *gameServiceImpl) GetLevel(ctx context.Context, levelID string) (*level.Level, error) {
	return s.levels.LoadLevel(levelID)
}

// RefreshLevels drops cached levels so edited files are re-read, then lists
// them again. Running sessions keep the level they started with.
func (s *gameServiceImpl) RefreshLevels(ctx context.Context) ([]*level.Info, error) {
	s.levels.RefreshCache()
	return s.levels.ListLevels()
}

// session fetches a session and marks it as accessed. Touching the access
// time is a write, so the caller holds s.mu exclusively.
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	// Fails only if the session was removed since Get, e.g. by idle cleanup
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sess, nil
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "Stage reset to initial state",
		Timestamp: time.Now(),
	}
}

func blockedEvent(r engine.MoveResult) GameEvent {
	return GameEvent{
		Type:      "blocked",
		Message:   fmt.Sprintf("Can't move %s: %s", r.Direction, r.Reason),
		Timestamp: time.Now(),
		Position:  r.From,
	}
}

// moveEvents generates events from a move. An accepted move always starts
// from an unsolved stage, so a solved state after it is the solving move.
func moveEvents(r engine.MoveResult, state *engine.GameState) []GameEvent {
	if !r.Accepted() {
		return []GameEvent{blockedEvent(r)}
	}

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Moved %s to (%d,%d)", r.Direction, r.To.X, r.To.Y),
		Timestamp: time.Now(),
		Position:  r.To,
	}}

	if r.Outcome == engine.Pushed {
		events = append(events, GameEvent{
			Type:      "push",
			Message:   fmt.Sprintf("Pushed block %s, %d/%d on goals", r.Direction, state.OnGoal, state.Blocks),
			Timestamp: time.Now(),
			Position:  r.To.Step(r.Direction),
		})
	}

	if state.Solved {
		events = append(events, GameEvent{
			Type:      "solved",
			Message:   "Stage clear!",
			Timestamp: time.Now(),
		})
	}
	return events
}

// attemptInfo describes the cell a rejected move tried to enter
func attemptInfo(g *engine.Grid, r engine.MoveResult) *AttemptInfo {
	target := r.From.Step(r.Direction)
	info := &AttemptInfo{X: target.X, Y: target.Y, Reason: r.Reason}
	if !target.InBounds() {
		info.TileType = "boundary"
		return info
	}
	tile := g.TileAt(target)
	info.TileChar = string(tile.Glyph())
	info.TileType = tile.String()
	return info
}
