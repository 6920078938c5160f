package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/sokoban/api"
	"github.com/wricardo/mcp-training/sokoban/game/render"
	"github.com/wricardo/mcp-training/sokoban/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Sokoban" {
		t.Errorf("Expected app name Sokoban, got %s", AppName)
	}
}

// runApp runs the command tree with captured output
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"sokoban"}, args...))
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	app := newApp()
	want := []string{"play", "levels", "validate", "serve", "mcp"}
	if len(app.Commands) != len(want) {
		t.Fatalf("Expected %d commands, got %d", len(want), len(app.Commands))
	}
	for i, name := range want {
		if app.Commands[i].Name != name {
			t.Errorf("Command %d: expected %s, got %s", i, name, app.Commands[i].Name)
		}
	}
}

func TestLevelsCommand(t *testing.T) {
	out, err := runApp(t, "", "levels")
	if err != nil {
		t.Fatalf("levels failed: %v", err)
	}
	for _, id := range []string{"01-warehouse", "02-two-crates", "03-corner"} {
		if !strings.Contains(out, id) {
			t.Errorf("Expected %s in output:\n%s", id, out)
		}
	}
}

func TestLevelsCommand_MissingDirectory(t *testing.T) {
	_, err := runApp(t, "", "--levels", "/non/existent/path", "levels")
	if err == nil {
		t.Error("Expected error for non-existent level directory")
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := runApp(t, "", "validate")
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "All levels are valid") {
		t.Errorf("Expected success report:\n%s", out)
	}
}

func TestValidateCommand_Solve(t *testing.T) {
	out, err := runApp(t, "", "validate", "--solve", "02-two-crates")
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Solvable in 7 moves (3 pushes)") {
		t.Errorf("Expected solver note for 02-two-crates:\n%s", out)
	}
}

func TestValidateCommand_SearchLimit(t *testing.T) {
	out, err := runApp(t, "", "validate", "--solve", "--max-states", "10", "03-corner")
	if err != errInvalidLevels {
		t.Fatalf("Expected errInvalidLevels, got %v", err)
	}
	if !strings.Contains(out, "search limit reached") {
		t.Errorf("Expected search limit error:\n%s", out)
	}
}

func TestValidateCommand_InvalidDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("#o.#"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runApp(t, "", "--levels", dir, "validate")
	if err != errInvalidLevels {
		t.Fatalf("Expected errInvalidLevels, got %v", err)
	}
	if !strings.Contains(out, "Expected exactly one player") {
		t.Errorf("Expected player error in report:\n%s", out)
	}
}

func TestValidateCommand_SelectedLevels(t *testing.T) {
	out, err := runApp(t, "", "validate", "02-two-crates", "missing")
	if err != errInvalidLevels {
		t.Fatalf("Expected errInvalidLevels, got %v", err)
	}
	if !strings.Contains(out, "02-two-crates") || !strings.Contains(out, "level not found") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestPlayCommand_SolvesLevel(t *testing.T) {
	keys := strings.Join(strings.Split("sssaazz", ""), "\n") + "\n"
	out, err := runApp(t, keys, "play", "--level", "02-two-crates")
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if !strings.HasSuffix(out, render.MsgStageClear+"\n") {
		t.Errorf("Expected stage clear at the end of output:\n%s", out)
	}
	if strings.Contains(out, "\x1b[3") {
		t.Error("Colour must be off when output is not a terminal")
	}
}

func TestPlayCommand_EOFIsCleanExit(t *testing.T) {
	out, err := runApp(t, "s\n")
	if err != nil {
		t.Fatalf("EOF should end play cleanly, got %v", err)
	}
	if !strings.Contains(out, render.ClearScreen) {
		t.Error("Expected at least one frame")
	}
}

func TestPlayCommand_Options(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "game.log")
	out, err := runApp(t, "x\n", "play", "--lang", "es", "--header", "--color", "never", "--log-file", logFile, "02-two-crates")
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if !strings.Contains(out, "¿Comando?") {
		t.Errorf("Expected Spanish prompt:\n%s", out)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "02-two-crates: unsolved") {
		t.Errorf("Expected result summary in log:\n%s", data)
	}
}

func TestPlayCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown level", []string{"play", "--level", "missing"}},
		{"bad colour", []string{"play", "--color", "rainbow"}},
		{"bad language", []string{"play", "--lang", "xx"}},
		{"raw without terminal", []string{"play", "--raw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runApp(t, "", tt.args...); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	for mode, want := range map[string]bool{"": false, "auto": false, "always": true, "never": false} {
		got, err := colorEnabled(mode, &buf)
		if err != nil {
			t.Errorf("colorEnabled(%q) error: %v", mode, err)
		}
		if got != want {
			t.Errorf("colorEnabled(%q) = %v, want %v", mode, got, want)
		}
	}
}

func TestFlagDefaults(t *testing.T) {
	var cfg serverConfig
	cmd := serveCommand()
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		cfg = readServerConfig(c)
		return nil
	}
	if err := cmd.Run(context.Background(), []string{"serve"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.Host != "localhost" {
		t.Errorf("Expected default host localhost, got %s", cfg.Host)
	}
	if cfg.addr() != "localhost:8080" {
		t.Errorf("unexpected addr %s", cfg.addr())
	}
}

func TestInitializeServices(t *testing.T) {
	gameService, sessions, err := initializeServices(serverConfig{})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if gameService == nil || sessions == nil {
		t.Fatal("Expected game service and session manager")
	}

	info, err := gameService.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sessions.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", sessions.Count())
	}
	if info.LevelID != "01-warehouse" {
		t.Errorf("Expected first embedded level, got %s", info.LevelID)
	}
}

func TestInitializeServices_InvalidLevelDir(t *testing.T) {
	if _, _, err := initializeServices(serverConfig{LevelDir: "/non/existent/path"}); err == nil {
		t.Error("Expected error for non-existent level directory")
	}
	if _, _, err := initializeServices(serverConfig{LevelDir: t.TempDir()}); err == nil {
		t.Error("Expected error for empty level directory")
	}
}

func TestRouter(t *testing.T) {
	gameService, _, err := initializeServices(serverConfig{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := newHub(gameService)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()
	mux.Handle("/", newRouter(api.NewServer(gameService, hub), mcp.NewClient(ts.URL)))

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/mcp")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /mcp: expected 405, got %d", resp.StatusCode)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	resp, err = http.Post(ts.URL+"/mcp", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var rpc struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, tool := range rpc.Result.Tools {
		if tool.Name == "bulk_move" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected bulk_move in tools list, got %+v", rpc.Result.Tools)
	}
}

func TestExternalAPIAvailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	if !externalAPIAvailable(context.Background(), ts.URL) {
		t.Error("Expected running server to be available")
	}
	ts.Close()

	if externalAPIAvailable(context.Background(), ts.URL) {
		t.Error("Expected closed server to be unavailable")
	}
}

func TestStartInternalServer(t *testing.T) {
	gameService, _, err := initializeServices(serverConfig{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	baseURL, httpServer, err := startInternalServer(ctx, gameService)
	if err != nil {
		t.Fatalf("startInternalServer failed: %v", err)
	}
	defer httpServer.Close()

	if !strings.HasPrefix(baseURL, "http://127.0.0.1:") {
		t.Errorf("unexpected base URL %s", baseURL)
	}
	if !externalAPIAvailable(ctx, baseURL) {
		t.Error("Expected internal server to answer health checks")
	}
}
