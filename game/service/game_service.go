package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/sokoban/game/engine"
	"github.com/wricardo/mcp-training/sokoban/game/level"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error)
	Command(ctx context.Context, sessionID, input string) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	Hint(ctx context.Context, sessionID string) (*HintResult, error)

	// Levels
	ListLevels(ctx context.Context) ([]*level.Info, error)
	GetLevel(ctx context.Context, levelID string) (*level.Level, error)
	RefreshLevels(ctx context.Context) ([]*level.Info, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, lvl *level.Level) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// LevelManager handles level loading
type LevelManager interface {
	LoadLevel(id string) (*level.Level, error)
	ListLevels() ([]*level.Info, error)
	First() (*level.Level, error)
	RefreshCache()
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Level          *level.Level
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
