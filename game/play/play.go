package play

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/wricardo/mcp-training/sokoban/game/command"
	"github.com/wricardo/mcp-training/sokoban/game/engine"
	"github.com/wricardo/mcp-training/sokoban/game/input"
	"github.com/wricardo/mcp-training/sokoban/game/level"
	"github.com/wricardo/mcp-training/sokoban/game/render"
)

// ErrQuit reports that input ended before the stage was cleared
var ErrQuit = errors.New("input closed")

// Result summarises one played level
type Result struct {
	LevelID string
	Solved  bool
	Moves   int
	Pushes  int
	Resets  int
}

// Game ties the engine to a renderer and an input source
type Game struct {
	renderer *render.Renderer
	input    input.Source
	logger   *log.Logger
}

// New creates a game loop. A nil logger discards log output.
func New(r *render.Renderer, in input.Source, logger *log.Logger) *Game {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Game{renderer: r, input: in, logger: logger}
}

// Play runs a single level until it is solved. It returns ErrQuit when input
// ends first; load errors and read failures are returned wrapped.
func (g *Game) Play(lvl *level.Level) (Result, error) {
	return g.play(lvl, 0, 0)
}

// Campaign plays every level in order, each to completion
func (g *Game) Campaign(levels []*level.Level) ([]Result, error) {
	results := make([]Result, 0, len(levels))
	for i, lvl := range levels {
		result, err := g.play(lvl, i+1, len(levels))
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}

	if len(levels) > 1 {
		if err := g.renderer.AllClear(); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (g *Game) play(lvl *level.Level, stage, stages int) (Result, error) {
	result := Result{LevelID: lvl.ID}

	eng, err := lvl.NewEngine()
	if err != nil {
		return result, err
	}
	g.logger.Printf("[LEVEL] start %s (%s)", lvl.ID, lvl.Filename)

	status := ""
	for {
		state := eng.GetState()
		result.Solved = state.Solved
		result.Moves = state.TotalMoves
		result.Pushes = state.TotalPushes
		result.Resets = state.Resets

		frame := render.Frame{
			Grid:   eng.Grid(),
			Status: status,
			Solved: state.Solved,
			Stage:  stage,
			Stages: stages,
			Name:   lvl.Name,
		}
		if err := g.renderer.Draw(frame); err != nil {
			return result, fmt.Errorf("draw frame: %w", err)
		}
		if state.Solved {
			g.logger.Printf("[LEVEL] clear %s moves=%d pushes=%d resets=%d", lvl.ID, result.Moves, result.Pushes, result.Resets)
			return result, nil
		}

		line, err := g.input.Next()
		if errors.Is(err, io.EOF) {
			g.logger.Printf("[LEVEL] input closed during %s", lvl.ID)
			return result, ErrQuit
		}
		if err != nil {
			return result, fmt.Errorf("read input: %w", err)
		}

		status = ""
		cmd, err := command.Parse(line)
		if err != nil {
			g.logger.Printf("[INPUT] %v", err)
			status = g.renderer.InputError()
			continue
		}

		if _, err := command.Apply(eng, cmd); err != nil {
			return result, err
		}
		if cmd.Kind == command.Reset {
			g.logger.Printf("[RESET] %s", lvl.ID)
		} else if last := eng.GetLastMove(); last != nil {
			g.logger.Printf("[MOVE] %s #%d %s -> %s (%d,%d) remaining=%d", lvl.ID, last.MoveNumber, last.Action,
				last.Outcome, last.ToPosition.X, last.ToPosition.Y, engine.RemainingBlocks(eng.Grid()))
		}
	}
}

// Summary returns a one-line description of a result for logs and the CLI
func (r Result) Summary() string {
	status := "unsolved"
	if r.Solved {
		status = "solved"
	}
	return fmt.Sprintf("%s: %s in %d moves (%d pushes, %d resets)", r.LevelID, status, r.Moves, r.Pushes, r.Resets)
}
