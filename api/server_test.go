package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	gorillaws "github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/sokoban/game/command"
	"github.com/wricardo/mcp-training/sokoban/game/engine"
	"github.com/wricardo/mcp-training/sokoban/game/level"
	"github.com/wricardo/mcp-training/sokoban/game/service"
	"github.com/wricardo/mcp-training/sokoban/game/session"
	"github.com/wricardo/mcp-training/sokoban/game/solver"
	"github.com/wricardo/mcp-training/sokoban/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, levelID string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	MoveFunc     func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error)
	CommandFunc  func(ctx context.Context, sessionID, input string) (*service.MoveResult, error)
	BulkMoveFunc func(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error)
	ResetFunc    func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameStateFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	HintFunc           func(ctx context.Context, sessionID string) (*service.HintResult, error)

	// Levels
	ListLevelsFunc    func(ctx context.Context) ([]*level.Info, error)
	GetLevelFunc      func(ctx context.Context, levelID string) (*level.Level, error)
	RefreshLevelsFunc func(ctx context.Context) ([]*level.Info, error)
}

func (m *MockGameService) CreateSession(ctx context.Context, levelID string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, levelID)
	}
	return &service.SessionInfo{ID: "test-session", LevelID: levelID, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, LevelID: "test-level", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, direction, reset)
	}
	return &service.MoveResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Command(ctx context.Context, sessionID, input string) (*service.MoveResult, error) {
	if m.CommandFunc != nil {
		return m.CommandFunc(ctx, sessionID, input)
	}
	return &service.MoveResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error) {
	if m.BulkMoveFunc != nil {
		return m.BulkMoveFunc(ctx, sessionID, moves, reset)
	}
	return &service.BulkMoveResult{MovesExecuted: len(moves), GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{}, Page: opts.Page, PageSize: opts.Limit}, nil
}

func (m *MockGameService) Hint(ctx context.Context, sessionID string) (*service.HintResult, error) {
	if m.HintFunc != nil {
		return m.HintFunc(ctx, sessionID)
	}
	return &service.HintResult{Direction: "right", Key: "s", Remaining: 1, Solution: "s"}, nil
}

func (m *MockGameService) ListLevels(ctx context.Context) ([]*level.Info, error) {
	if m.ListLevelsFunc != nil {
		return m.ListLevelsFunc(ctx)
	}
	return []*level.Info{}, nil
}

func (m *MockGameService) GetLevel(ctx context.Context, levelID string) (*level.Level, error) {
	if m.GetLevelFunc != nil {
		return m.GetLevelFunc(ctx, levelID)
	}
	return &level.Level{ID: levelID, Name: levelID, Source: "#p o.#"}, nil
}

func (m *MockGameService) RefreshLevels(ctx context.Context) ([]*level.Info, error) {
	if m.RefreshLevelsFunc != nil {
		return m.RefreshLevelsFunc(ctx)
	}
	return []*level.Info{}, nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub(nil)
	go hub.Run(ctx)
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		requestBody    map[string]string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Create session with default level",
			path: "/api/sessions",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					if levelID != "" {
						t.Errorf("Expected empty level ID, got %s", levelID)
					}
					return &service.SessionInfo{ID: "sess-123", LevelID: "01-warehouse"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "sess-123" {
					t.Errorf("Expected session ID sess-123, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with specific level",
			path:        "/api/sessions",
			requestBody: map[string]string{"level_id": "02-two-crates"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "sess-456", LevelID: levelID}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.LevelID != "02-two-crates" {
					t.Errorf("Expected level '02-two-crates', got %s", resp.LevelID)
				}
			},
		},
		{
			name: "Create session with level query parameter",
			path: "/api/sessions?level=03-corner",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "sess-789", LevelID: levelID}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.LevelID != "03-corner" {
					t.Errorf("Expected level '03-corner', got %s", resp.LevelID)
				}
			},
		},
		{
			name:        "Unknown level",
			path:        "/api/sessions",
			requestBody: map[string]string{"level_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("level '%s': %w", levelID, level.ErrLevelNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			path: "/api/sessions",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			var body interface{}
			if tt.requestBody != nil {
				body = tt.requestBody
			}
			server.ServeHTTP(w, makeRequest("POST", tt.path, body))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Hour)},
				{ID: "new", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now},
				{ID: "mid", CreatedAt: now.Add(-90 * time.Minute), LastAccessedAt: now.Add(-30 * time.Minute)},
			}, nil
		},
	}
	server := setupTestServer(t, mockService)

	tests := []struct {
		name      string
		query     string
		wantOrder []string
		wantTotal int
	}{
		{name: "default sort by access desc", query: "", wantOrder: []string{"new", "mid", "old"}, wantTotal: 3},
		{name: "created asc", query: "?sort=created&order=asc", wantOrder: []string{"old", "mid", "new"}, wantTotal: 3},
		{name: "limit", query: "?limit=1", wantOrder: []string{"new"}, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.wantTotal || resp.Count != len(tt.wantOrder) {
				t.Errorf("Expected count %d total %d, got %d/%d", len(tt.wantOrder), tt.wantTotal, resp.Count, resp.Total)
			}
			for i, id := range tt.wantOrder {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "missing" {
				return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return session.ErrSessionNotFound
			}
			return nil
		},
	}
	server := setupTestServer(t, mockService)

	tests := []struct {
		method         string
		path           string
		expectedStatus int
	}{
		{"GET", "/api/sessions/sess-1", http.StatusOK},
		{"GET", "/api/sessions/missing", http.StatusNotFound},
		{"DELETE", "/api/sessions/sess-1", http.StatusOK},
		{"DELETE", "/api/sessions/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestMove(t *testing.T) {
	tests := []struct {
		name           string
		sessionID      string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Valid move up",
			sessionID:   "sess-123",
			requestBody: map[string]interface{}{"direction": "up"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					if direction != "up" {
						t.Errorf("Expected direction 'up', got %s", direction)
					}
					return &service.MoveResult{
						Success:   true,
						Outcome:   engine.Moved,
						GameState: &engine.GameState{PlayerPos: engine.Position{X: 5, Y: 4}},
						Step:      &service.StepInfo{Idx: 1, Dir: "up", Outcome: engine.Moved},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if !resp.Success {
					t.Error("Expected success to be true")
				}
				if resp.GameState.PlayerPos.Y != 4 {
					t.Errorf("Expected Y position 4, got %d", resp.GameState.PlayerPos.Y)
				}
			},
		},
		{
			name:        "Move with reset",
			sessionID:   "sess-123",
			requestBody: map[string]interface{}{"direction": "right", "reset": true},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					if !reset {
						t.Error("Expected reset to be true")
					}
					return &service.MoveResult{Success: true, GameState: &engine.GameState{Resets: 1}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "Blocked move is not an error",
			sessionID:   "sess-123",
			requestBody: map[string]interface{}{"direction": "left"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					return &service.MoveResult{
						Outcome:     engine.Blocked,
						GameState:   &engine.GameState{},
						AttemptedTo: &service.AttemptInfo{X: 0, Y: 2, TileType: "wall", Reason: engine.BlockedWall},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if resp.Success || resp.AttemptedTo == nil || resp.AttemptedTo.Reason != engine.BlockedWall {
					t.Errorf("Expected blocked result, got %+v", resp)
				}
			},
		},
		{
			name:        "Unknown direction",
			sessionID:   "sess-123",
			requestBody: map[string]interface{}{"invalid": "field"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					_, err := engine.ParseDirection(direction)
					return nil, err
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid JSON",
			sessionID:      "sess-123",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Session not found",
			sessionID:   "nonexistent",
			requestBody: map[string]interface{}{"direction": "up"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrSessionNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			req := makeRequest("POST", "/api/sessions/"+tt.sessionID+"/move", tt.requestBody)
			req = mux.SetURLVars(req, map[string]string{"id": tt.sessionID})

			server.handleMove(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestCommand(t *testing.T) {
	mockService := &MockGameService{
		CommandFunc: func(ctx context.Context, sessionID, input string) (*service.MoveResult, error) {
			if _, err := command.Parse(input); err != nil {
				return nil, err
			}
			return &service.MoveResult{Success: true, GameState: &engine.GameState{TotalMoves: 1}}, nil
		},
	}
	server := setupTestServer(t, mockService)

	tests := []struct {
		input          string
		expectedStatus int
	}{
		{"s", http.StatusOK},
		{"r", http.StatusOK},
		{"x", http.StatusBadRequest},
		{"", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("input %q", tt.input), func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/sess-1/command", map[string]string{"input": tt.input}))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestBulkMove(t *testing.T) {
	mockService := &MockGameService{
		BulkMoveFunc: func(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error) {
			if len(moves) != 3 || !reset {
				t.Errorf("Unexpected request: %v reset=%v", moves, reset)
			}
			return &service.BulkMoveResult{
				MovesExecuted:  2,
				RequestedMoves: 3,
				StopReasonCode: "blocked_wall",
				StoppedOnMove:  3,
				GameState:      &engine.GameState{},
			}, nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	body := map[string]interface{}{"moves": []string{"up", "up", "up"}, "reset": true}
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/sess-1/bulk-move", body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.BulkMoveResult
	parseResponse(t, w, &resp)
	if resp.MovesExecuted != 2 || resp.StopReasonCode != "blocked_wall" {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestReset(t *testing.T) {
	mockService := &MockGameService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return &engine.GameState{Resets: 1, PlayerPos: engine.Position{X: 3, Y: 2}}, nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/sess-1/reset", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State == nil || resp.State.Resets != 1 {
		t.Errorf("Unexpected reset response: %+v", resp)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantOpts service.HistoryOptions
	}{
		{name: "defaults", query: "", wantOpts: service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{name: "explicit", query: "?page=2&limit=5&order=asc", wantOpts: service.HistoryOptions{Page: 2, Limit: 5, Order: "asc"}},
		{name: "invalid values ignored", query: "?page=-1&limit=abc&order=sideways", wantOpts: service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockGameService{
				GetMoveHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{}, nil
				},
			}
			server := setupTestServer(t, mockService)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/sess-1/history"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.wantOpts {
				t.Errorf("Expected options %+v, got %+v", tt.wantOpts, got)
			}
		})
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "hint found", expectedStatus: http.StatusOK},
		{name: "unsolvable", err: solver.ErrUnsolvable, expectedStatus: http.StatusUnprocessableEntity},
		{name: "search limit", err: solver.ErrSearchLimit, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.err != nil {
				err := tt.err
				mockService.HintFunc = func(ctx context.Context, sessionID string) (*service.HintResult, error) {
					return nil, err
				}
			}
			server := setupTestServer(t, mockService)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/sess-1/hint", nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestLevels(t *testing.T) {
	mockService := &MockGameService{
		ListLevelsFunc: func(ctx context.Context) ([]*level.Info, error) {
			return []*level.Info{{ID: "01-a", Name: "a", Blocks: 1, Goals: 1}}, nil
		},
		GetLevelFunc: func(ctx context.Context, levelID string) (*level.Level, error) {
			if levelID != "01-a" {
				return nil, level.ErrLevelNotFound
			}
			return &level.Level{ID: "01-a", Name: "a", Source: "#po.#"}, nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/levels", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var levels []level.Info
	parseResponse(t, w, &levels)
	if len(levels) != 1 || levels[0].ID != "01-a" {
		t.Errorf("Unexpected levels: %+v", levels)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/levels/01-a", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var lvl map[string]interface{}
	parseResponse(t, w, &lvl)
	if lvl["source"] != "#po.#" {
		t.Errorf("Unexpected level source: %v", lvl["source"])
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/levels/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRefreshLevels(t *testing.T) {
	refreshed := false
	mockService := &MockGameService{
		RefreshLevelsFunc: func(ctx context.Context) ([]*level.Info, error) {
			refreshed = true
			return []*level.Info{{ID: "01-a"}, {ID: "02-b"}}, nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/levels/refresh", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !refreshed {
		t.Error("Expected the level cache to be refreshed")
	}
	var levels []level.Info
	parseResponse(t, w, &levels)
	if len(levels) != 2 {
		t.Errorf("Unexpected levels: %+v", levels)
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, session.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)

			server.handleWebSocket(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

// TestEndToEnd plays an embedded level through the real service stack
func TestEndToEnd(t *testing.T) {
	svc := service.NewGameService(session.NewManager(), level.NewEmbeddedManager(), 0)
	ts := httptest.NewServer(NewServer(svc, nil))
	defer ts.Close()

	post := func(path string, body interface{}) *http.Response {
		t.Helper()
		data, _ := json.Marshal(body)
		resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		return resp
	}

	resp := post("/api/sessions", map[string]string{"level_id": "02-two-crates"})
	var info service.SessionInfo
	json.NewDecoder(resp.Body).Decode(&info)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || info.ID == "" {
		t.Fatalf("Create session failed: %d %+v", resp.StatusCode, info)
	}

	var last service.MoveResult
	for _, key := range strings.Split("sssaazz", "") {
		resp := post("/api/sessions/"+info.ID+"/command", map[string]string{"input": key})
		json.NewDecoder(resp.Body).Decode(&last)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Command %s failed: %d", key, resp.StatusCode)
		}
	}

	if !last.GameState.Solved {
		t.Errorf("Expected level solved, rows:\n%s", strings.Join(last.GameState.Rows, "\n"))
	}
}

// TestEndToEnd_SolvedEventBroadcast checks that watchers of a session hear
// about the solving move
func TestEndToEnd_SolvedEventBroadcast(t *testing.T) {
	svc := service.NewGameService(session.NewManager(), level.NewEmbeddedManager(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := websocket.NewHub(nil)
	go hub.Run(ctx)

	server := NewServer(svc, hub)
	ts := httptest.NewServer(server)
	defer ts.Close()

	info, err := svc.CreateSession(ctx, "02-two-crates")
	if err != nil {
		t.Fatal(err)
	}

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?session="+info.ID, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(info.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, key := range strings.Split("sssaazz", "") {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/"+info.ID+"/command", map[string]string{"input": key}))
		if w.Code != http.StatusOK {
			t.Fatalf("Command %s failed: %d", key, w.Code)
		}
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg websocket.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("No solved event received: %v", err)
		}
		if msg.Event == websocket.EventSolved {
			break
		}
	}
}
