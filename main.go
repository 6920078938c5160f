// Command sokoban plays Sokoban stages in the terminal.
//
// Commands:
//  1. "play" (default) – plays every level (or one with --level) in the terminal
//  2. "levels" – lists the available levels
//  3. "validate" – checks level files, optionally solving each one
//  4. "serve" – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  5. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control the level directory, colours, language, host/port, debug
// logging, and optional ngrok tunneling for the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/sokoban/api"
	"github.com/wricardo/mcp-training/sokoban/game/engine"
	"github.com/wricardo/mcp-training/sokoban/game/input"
	"github.com/wricardo/mcp-training/sokoban/game/level"
	"github.com/wricardo/mcp-training/sokoban/game/play"
	"github.com/wricardo/mcp-training/sokoban/game/render"
	"github.com/wricardo/mcp-training/sokoban/game/service"
	"github.com/wricardo/mcp-training/sokoban/game/session"
	"github.com/wricardo/mcp-training/sokoban/game/solver"
	"github.com/wricardo/mcp-training/sokoban/transport/mcp"
	"github.com/wricardo/mcp-training/sokoban/transport/websocket"
	"github.com/wricardo/mcp-training/sokoban/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Sokoban"
)

const (
	sessionCleanupInterval = time.Hour
	sessionMaxAge          = 24 * time.Hour
)

var errInvalidLevels = errors.New("some levels have errors")

// main loads .env, builds the command tree and runs it
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%s: %v", AppName, err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "sokoban",
		Usage:   "push every block onto a goal",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "levels",
				Aliases: []string{"l"},
				Usage:   "level directory (embedded levels when empty)",
				Sources: cli.EnvVars("SOKOBAN_LEVEL_DIR"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// Setup logging
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		Action: runPlay,
		Commands: []*cli.Command{
			playCommand(),
			levelsCommand(),
			validateCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "play the levels in the terminal",
		ArgsUsage: "[level-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "level",
				Usage: "play a single level instead of the whole directory",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "read single key presses (arrow keys work) instead of lines",
			},
			&cli.StringFlag{
				Name:  "color",
				Usage: "colour glyphs: auto, always or never",
				Value: "auto",
			},
			&cli.StringFlag{
				Name:    "lang",
				Usage:   fmt.Sprintf("UI language %v", render.Languages()),
				Value:   "en",
				Sources: cli.EnvVars("SOKOBAN_LANG"),
			},
			&cli.BoolFlag{
				Name:  "header",
				Usage: "show a stage title above the grid",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "append game logs to this file (discarded otherwise)",
			},
		},
		Action: runPlay,
	}
}

// runPlay also serves as the root action, where the play-only flags read
// as their zero values.
func runPlay(ctx context.Context, cmd *cli.Command) error {
	root := cmd.Root()

	manager, err := level.NewManager(cmd.String("levels"))
	if err != nil {
		return err
	}

	levelID := cmd.String("level")
	if levelID == "" {
		levelID = cmd.Args().First()
	}

	var levels []*level.Level
	if levelID != "" {
		lvl, err := manager.LoadLevel(levelID)
		if err != nil {
			return err
		}
		levels = []*level.Level{lvl}
	} else {
		levels, err = manager.LoadAll()
		if err != nil {
			return err
		}
	}

	useColor, err := colorEnabled(cmd.String("color"), root.Writer)
	if err != nil {
		return err
	}
	renderer, err := render.New(root.Writer, render.Options{
		Color:    useColor,
		Language: cmd.String("lang"),
		Header:   cmd.Bool("header"),
	})
	if err != nil {
		return err
	}

	var source input.Source = input.NewLineReader(root.Reader)
	if cmd.Bool("raw") {
		f, ok := root.Reader.(*os.File)
		if !ok {
			return fmt.Errorf("--raw: %w", input.ErrNotTerminal)
		}
		keys, err := input.NewKeyReader(f)
		if err != nil {
			return err
		}
		source = keys
	}

	var logger *log.Logger
	if path := cmd.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger = log.New(f, "", log.Flags())
	}

	game := play.New(renderer, source, logger)
	results, err := game.Campaign(levels)
	if logger != nil {
		for _, result := range results {
			logger.Println(result.Summary())
		}
	}
	if errors.Is(err, play.ErrQuit) {
		return nil
	}
	return err
}

// colorEnabled resolves --color; auto colours only a terminal
func colorEnabled(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "", "auto":
		f, ok := w.(*os.File)
		return ok && render.IsTerminal(f), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color %q: use auto, always or never", mode)
	}
}

func levelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "levels",
		Usage: "list the available levels",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, err := level.NewManager(cmd.String("levels"))
			if err != nil {
				return err
			}
			infos, err := manager.ListLevels()
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			fmt.Fprintf(w, "%-20s %-20s %6s %6s\n", "ID", "NAME", "BLOCKS", "GOALS")
			for _, info := range infos {
				fmt.Fprintf(w, "%-20s %-20s %6d %6d\n", info.ID, info.Name, info.Blocks, info.Goals)
			}
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check level files for playability",
		ArgsUsage: "[level-id...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "solve",
				Usage: "also require the solver to find a solution",
			},
			&cli.IntFlag{
				Name:  "max-states",
				Usage: "solver search limit",
				Value: solver.DefaultMaxStates,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, err := level.NewManager(cmd.String("levels"))
			if err != nil {
				return err
			}

			var s *solver.Solver
			if cmd.Bool("solve") {
				s = solver.New(cmd.Int("max-states"))
			}

			var results []validate.Result
			if cmd.Args().Len() == 0 {
				results, err = validate.All(ctx, manager, s)
				if err != nil {
					return err
				}
			} else {
				for _, id := range cmd.Args().Slice() {
					lvl, err := manager.LoadLevel(id)
					if err != nil {
						results = append(results, validate.Result{Level: id, Errors: []string{err.Error()}})
						continue
					}
					results = append(results, validate.Level(ctx, lvl, s))
				}
			}

			if !validate.Report(cmd.Root().Writer, results) {
				return errInvalidLevels
			}
			return nil
		},
	}
}

// serverConfig holds the flags of the network front-ends
type serverConfig struct {
	Host          string
	Port          int
	LevelDir      string
	MaxHintStates int
	Ngrok         bool
	NgrokAuth     string
	NgrokDomain   string
	APIURL        string
}

func (c serverConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "HTTP server port",
			Value:   8080,
			Sources: cli.EnvVars("SOKOBAN_PORT"),
		},
		&cli.StringFlag{
			Name:    "host",
			Usage:   "HTTP server host",
			Value:   "localhost",
			Sources: cli.EnvVars("SOKOBAN_HOST"),
		},
		&cli.IntFlag{
			Name:  "max-hint-states",
			Usage: "solver search limit for hints",
			Value: solver.DefaultMaxStates,
		},
	}
}

func readServerConfig(cmd *cli.Command) serverConfig {
	return serverConfig{
		Host:          cmd.String("host"),
		Port:          cmd.Int("port"),
		LevelDir:      cmd.String("levels"),
		MaxHintStates: cmd.Int("max-hint-states"),
		Ngrok:         cmd.Bool("ngrok"),
		NgrokAuth:     cmd.String("ngrok-auth"),
		NgrokDomain:   cmd.String("ngrok-domain"),
		APIURL:        cmd.String("api-url"),
	}
}

func serveCommand() *cli.Command {
	flags := append(serverFlags(),
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server with API, WebSocket, and MCP endpoint",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := readServerConfig(cmd)
			log.Printf("Starting %s v%s (mode: serve)", AppName, Version)

			gameService, sessions, err := initializeServices(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize services: %w", err)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			go sessions.RunCleanup(ctx, sessionCleanupInterval, sessionMaxAge)
			return runHTTPServer(ctx, cfg, gameService)
		},
	}
}

func mcpCommand() *cli.Command {
	flags := append(serverFlags(),
		&cli.StringFlag{
			Name:  "api-url",
			Usage: "external API server to reuse when it is running",
			Value: "http://localhost:8080",
		},
	)

	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "run an MCP stdio server with an internal HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := readServerConfig(cmd)
			log.Printf("Starting %s v%s (mode: mcp)", AppName, Version)

			gameService, sessions, err := initializeServices(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize services: %w", err)
			}

			go sessions.RunCleanup(ctx, sessionCleanupInterval, sessionMaxAge)
			return runStdioMCPWithInternalServer(ctx, cfg, gameService)
		},
	}
}

// initializeServices wires the level and session managers into the game service
func initializeServices(cfg serverConfig) (service.GameService, *session.Manager, error) {
	levels, err := level.NewManager(cfg.LevelDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create level manager: %w", err)
	}
	if _, err := levels.First(); err != nil {
		return nil, nil, fmt.Errorf("no playable levels: %w", err)
	}

	sessions := session.NewManager()
	return service.NewGameService(sessions, levels, cfg.MaxHintStates), sessions, nil
}

// newHub creates a WebSocket hub whose command messages are applied through
// the game service. A solving command also queues a solved event.
func newHub(gameService service.GameService) *websocket.Hub {
	var hub *websocket.Hub
	hub = websocket.NewHub(func(ctx context.Context, sessionID, line string) (*engine.GameState, error) {
		res, err := gameService.Command(ctx, sessionID, line)
		if err != nil {
			return nil, err
		}
		for _, event := range res.Events {
			if event.Type == websocket.EventSolved {
				hub.BroadcastEvent(sessionID, websocket.EventSolved, event)
			}
		}
		return res.GameState, nil
	})
	return hub
}

// newRouter mounts the API at the root and the MCP JSON-RPC endpoint at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer serves the REST API, WebSocket hub, and /mcp endpoint until
// ctx is cancelled. If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cfg serverConfig, gameService service.GameService) error {
	hub := newHub(gameService)
	go hub.Run(ctx)

	apiServer := api.NewServer(gameService, hub)

	addr := cfg.addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cfg.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg, mainRouter)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err = <-serveErr:
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("HTTP server shutdown error: %v", shutdownErr)
	}

	wg.Wait()
	log.Println("Server stopped")
	return err
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends
func runNgrokTunnel(ctx context.Context, cfg serverConfig, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Printf("Using custom ngrok domain: %s", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// externalAPIAvailable reports whether an API server answers at baseURL
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := testClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// startInternalServer serves the API on a random loopback port and returns
// its base URL
func startInternalServer(ctx context.Context, gameService service.GameService) (string, *http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}
	internalAddr := listener.Addr().String()
	log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

	hub := newHub(gameService)
	go hub.Run(ctx)

	httpServer := &http.Server{
		Handler: api.NewServer(gameService, hub),
	}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Internal HTTP server error: %v", err)
		}
	}()

	return fmt.Sprintf("http://%s", internalAddr), httpServer, nil
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an
// external API at cfg.APIURL when one answers; otherwise it starts an
// internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cfg serverConfig, gameService service.GameService) error {
	baseURL := cfg.APIURL
	log.Printf("Checking for external API server at %s...", baseURL)

	if baseURL != "" && externalAPIAvailable(ctx, baseURL) {
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		internalURL, httpServer, err := startInternalServer(ctx, gameService)
		if err != nil {
			return err
		}
		defer httpServer.Close()
		baseURL = internalURL
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API at %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
