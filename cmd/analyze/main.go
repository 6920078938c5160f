// Command analyze prints quick, human-readable statistics about the levels in
// a level directory (or the embedded set): tile counts, player position,
// the player's reachable region, dead squares and the total Manhattan
// distance from loose blocks to their nearest goals.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/sokoban/game/engine"
	"github.com/wricardo/mcp-training/sokoban/game/level"
	"github.com/wricardo/mcp-training/sokoban/validate"
)

// Stats is the analysis of one level
type Stats struct {
	ID           string
	Name         string
	Walls        int
	Floor        int
	Goals        int
	Blocks       int
	BlocksOnGoal int
	Player       engine.Position
	Reachable    int
	DeadSquares  []engine.Position
	Distance     int
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "print statistics for every level",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "levels",
				Aliases: []string{"l"},
				Usage:   "level directory (embedded levels when empty)",
				Sources: cli.EnvVars("SOKOBAN_LEVEL_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(os.Stdout, cmd.String("levels"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(w io.Writer, dir string) error {
	manager, err := level.NewManager(dir)
	if err != nil {
		return err
	}
	ids, err := manager.IDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", id)
		lvl, err := manager.LoadLevel(id)
		if err != nil {
			fmt.Fprintf(w, "Error loading level: %v\n", err)
			continue
		}
		stats, err := analyzeLevel(lvl)
		if err != nil {
			fmt.Fprintf(w, "Error parsing level: %v\n", err)
			continue
		}
		printStats(w, stats)
	}
	return nil
}

func analyzeLevel(lvl *level.Level) (*Stats, error) {
	g, err := engine.Parse(lvl.Source)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ID:           lvl.ID,
		Name:         lvl.Name,
		Walls:        g.Count(engine.Wall),
		Goals:        engine.CountGoals(g),
		Blocks:       g.Count(engine.Block) + g.Count(engine.BlockOnGoal),
		BlocksOnGoal: g.Count(engine.BlockOnGoal),
		Reachable:    len(validate.Reachable(g)),
	}
	stats.Floor = engine.Width*engine.Height - stats.Walls - g.Count(engine.Unset)
	stats.Player, _ = g.PlayerPosition()

	for _, p := range engine.FindTiles(g, engine.Empty, engine.Player) {
		if deadSquare(g, p) {
			stats.DeadSquares = append(stats.DeadSquares, p)
		}
	}

	goals := engine.FindTiles(g, engine.Goal, engine.PlayerOnGoal)
	for _, block := range engine.FindTiles(g, engine.Block) {
		best := -1
		for _, goal := range goals {
			if d := engine.ManhattanDistance(block, goal); best < 0 || d < best {
				best = d
			}
		}
		if best > 0 {
			stats.Distance += best
		}
	}
	return stats, nil
}

// deadSquare reports a non-goal floor cell in a corner; a block pushed there
// can never leave.
func deadSquare(g *engine.Grid, p engine.Position) bool {
	solid := func(d engine.Direction) bool {
		t := g.TileAt(p.Step(d))
		return t == engine.Wall || t == engine.Unset
	}
	return (solid(engine.Up) || solid(engine.Down)) && (solid(engine.Left) || solid(engine.Right))
}

func printStats(w io.Writer, s *Stats) {
	fmt.Fprintf(w, "Name: %s\n", s.Name)
	fmt.Fprintf(w, "Player Position: (%d, %d)\n", s.Player.X, s.Player.Y)
	fmt.Fprintf(w, "Walls: %d  Floor: %d  Reachable: %d\n", s.Walls, s.Floor, s.Reachable)
	fmt.Fprintf(w, "Blocks: %d (%d on goals)  Goals: %d\n", s.Blocks, s.BlocksOnGoal, s.Goals)
	fmt.Fprintf(w, "Block-to-goal distance: %d\n", s.Distance)

	if len(s.DeadSquares) == 0 {
		fmt.Fprintln(w, "✅ No dead squares")
		return
	}
	fmt.Fprintf(w, "⚠️  %d dead squares (blocks pushed here are stuck)\n", len(s.DeadSquares))
	for i, p := range s.DeadSquares {
		if i == 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(s.DeadSquares)-5)
			break
		}
		fmt.Fprintf(w, "   Dead: (%d, %d)\n", p.X, p.Y)
	}
}
