// Command autoplay drives a running game server over its REST API until the
// session's level is solved. Each turn it asks the server for a hint and
// plays the suggested move; with --bulk it sends the whole hinted solution
// through the bulk-move endpoint instead.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/sokoban/game/command"
	"github.com/wricardo/mcp-training/sokoban/game/engine"
	"github.com/wricardo/mcp-training/sokoban/game/service"
)

var errMoveLimit = errors.New("move limit reached")

// Client is a minimal REST client bound to one session
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// apiError is the body of a non-2xx response
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = string(data)
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

// CreateSession starts a new session; "" selects the server's first level
func (c *Client) CreateSession(ctx context.Context, levelID string) (*engine.GameState, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"level_id": levelID}, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return info.GameState, nil
}

// Continue binds the client to an existing session
func (c *Client) Continue(ctx context.Context, sessionID string) (*engine.GameState, error) {
	c.sessionID = sessionID
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodGet, c.sessionPath(""), nil, &info); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return info.GameState, nil
}

func (c *Client) Hint(ctx context.Context) (*service.HintResult, error) {
	var hint service.HintResult
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/hint"), nil, &hint); err != nil {
		return nil, fmt.Errorf("hint: %w", err)
	}
	return &hint, nil
}

func (c *Client) Move(ctx context.Context, direction string) (*service.MoveResult, error) {
	var result service.MoveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/move"), map[string]string{"direction": direction}, &result); err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}
	return &result, nil
}

func (c *Client) BulkMove(ctx context.Context, moves []string) (*service.BulkMoveResult, error) {
	var result service.BulkMoveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/bulk-move"), map[string][]string{"moves": moves}, &result); err != nil {
		return nil, fmt.Errorf("bulk move: %w", err)
	}
	return &result, nil
}

func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp struct {
		State *engine.GameState `json:"state"`
	}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

// options controls a solving run
type options struct {
	MaxMoves int
	Bulk     bool
	Delay    time.Duration
	Verbose  bool
}

// solve plays hinted moves until the level is solved or MaxMoves is spent
func solve(ctx context.Context, c *Client, state *engine.GameState, opts options) (*engine.GameState, error) {
	moves := 0
	for !state.Solved {
		if moves >= opts.MaxMoves {
			return state, fmt.Errorf("%w: %d", errMoveLimit, opts.MaxMoves)
		}

		hint, err := c.Hint(ctx)
		if err != nil {
			return state, err
		}
		if opts.Verbose {
			log.Printf("hint: %s (%d moves left, %d states explored)", hint.Direction, hint.Remaining, hint.Explored)
		}

		if opts.Bulk {
			directions, err := solutionDirections(hint.Solution)
			if err != nil {
				return state, err
			}
			if left := opts.MaxMoves - moves; len(directions) > left {
				directions = directions[:left]
			}
			if len(directions) > engine.MaxBulkMoves {
				directions = directions[:engine.MaxBulkMoves]
			}
			result, err := c.BulkMove(ctx, directions)
			if err != nil {
				return state, err
			}
			moves += result.MovesExecuted
			state = result.GameState
			if opts.Verbose {
				log.Printf("bulk: executed %d/%d moves", result.MovesExecuted, result.RequestedMoves)
			}
			if result.MovesExecuted == 0 {
				return state, fmt.Errorf("bulk move made no progress: %s", result.StoppedReason)
			}
			continue
		}

		result, err := c.Move(ctx, hint.Direction)
		if err != nil {
			return state, err
		}
		moves++
		state = result.GameState
		if opts.Verbose {
			log.Printf("move %d: %s -> %s (%d,%d)", moves, hint.Direction, result.Outcome, state.PlayerPos.X, state.PlayerPos.Y)
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return state, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}
	return state, nil
}

// solutionDirections converts command keys into direction names
func solutionDirections(keys string) ([]string, error) {
	directions := make([]string, 0, len(keys))
	for _, k := range keys {
		cmd, err := command.Parse(string(k))
		if err != nil {
			return nil, err
		}
		if cmd.Kind != command.Move {
			return nil, fmt.Errorf("%w: %q in solution", command.ErrInvalidInput, k)
		}
		directions = append(directions, cmd.Direction.String())
	}
	return directions, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	serverURL := cmd.String("url")
	log.Printf("Connecting to game server at %s", serverURL)
	client := NewClient(serverURL)

	var state *engine.GameState
	var err error
	if id := cmd.String("continue"); id != "" {
		state, err = client.Continue(ctx, id)
		if err == nil && cmd.Bool("reset") {
			state, err = client.Reset(ctx)
		}
	} else {
		state, err = client.CreateSession(ctx, cmd.String("level"))
	}
	if err != nil {
		return err
	}
	log.Printf("Session %s on %s", client.sessionID, state.LevelID)

	final, err := solve(ctx, client, state, options{
		MaxMoves: cmd.Int("max-moves"),
		Bulk:     cmd.Bool("bulk"),
		Delay:    time.Duration(cmd.Int("delay")) * time.Millisecond,
		Verbose:  cmd.Bool("v"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Solved %s in %d moves (%d pushes, %d resets)\n",
		final.LevelID, final.TotalMoves, final.TotalPushes, final.Resets)
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "solve a session through the REST API using server hints",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL"},
			&cli.StringFlag{Name: "level", Usage: "level for a new session (server default when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "resume an existing session by ID"},
			&cli.BoolFlag{Name: "reset", Usage: "reset a resumed session first"},
			&cli.IntFlag{Name: "max-moves", Value: 3000, Usage: "maximum moves before giving up"},
			&cli.BoolFlag{Name: "bulk", Usage: "send each hinted solution as one bulk move"},
			&cli.IntFlag{Name: "delay", Usage: "delay between moves in milliseconds"},
			&cli.BoolFlag{Name: "v", Usage: "verbose output"},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
