// Package validate checks level files before they are played. It checks:
//   - source text parses (known characters, at most 10x8)
//   - exactly one player (p or P)
//   - at least one block and no fewer goals than blocks
//   - connectivity: every block and goal lies in the player's region,
//     walking over anything that is not a wall or unset cell
//   - optionally, that the solver finds a solution
package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wricardo/mcp-training/sokoban/game/engine"
	"github.com/wricardo/mcp-training/sokoban/game/level"
	"github.com/wricardo/mcp-training/sokoban/game/solver"
)

// Result captures the outcome of validating a single level.
// Errors holds problems; Notes holds the passed checks.
type Result struct {
	Level    string           `json:"level"`
	Valid    bool             `json:"valid"`
	Errors   []string         `json:"errors,omitempty"`
	Notes    []string         `json:"notes,omitempty"`
	Solution *solver.Solution `json:"solution,omitempty"`
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) note(format string, args ...interface{}) {
	r.Notes = append(r.Notes, "✓ "+fmt.Sprintf(format, args...))
}

// Source validates raw level text. A nil solver skips the solvability check.
func Source(ctx context.Context, name, source string, s *solver.Solver) Result {
	result := Result{Level: name, Valid: true}

	g, err := engine.Parse(source)
	if err != nil {
		result.fail("Parse error: %v", err)
		return result
	}

	if err := engine.ValidateGrid(g); err != nil {
		var pe *engine.PlayabilityError
		if !errors.As(err, &pe) {
			result.fail("%v", err)
			return result
		}
		for _, problem := range pe.Problems {
			result.fail("%s", problem)
		}
	} else {
		blocks := g.Count(engine.Block) + g.Count(engine.BlockOnGoal)
		result.note("%d blocks, %d goals", blocks, engine.CountGoals(g))
	}

	if players := g.Count(engine.Player) + g.Count(engine.PlayerOnGoal); players == 1 {
		connectivity(g, &result)
	}

	if !result.Valid || s == nil {
		return result
	}

	solution, err := s.Solve(ctx, g)
	if err != nil {
		result.fail("Solver: %v", err)
		return result
	}
	result.Solution = solution
	result.note("Solvable in %d moves (%d pushes)", len(solution.Moves), solution.Pushes)
	return result
}

// Level validates a loaded level
func Level(ctx context.Context, lvl *level.Level, s *solver.Solver) Result {
	return Source(ctx, lvl.ID, lvl.Source, s)
}

// Reachable flood-fills from the player over every cell that is not a wall
// or unset. Blocks do not stop the fill.
func Reachable(g *engine.Grid) map[engine.Position]bool {
	visited := make(map[engine.Position]bool)
	start, ok := g.PlayerPosition()
	if !ok {
		return visited
	}

	passable := func(p engine.Position) bool {
		if !p.InBounds() {
			return false
		}
		t := g.TileAt(p)
		return t != engine.Wall && t != engine.Unset
	}

	queue := []engine.Position{start}
	visited[start] = true
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, d := range engine.AllDirections() {
			next := current.Step(d)
			if !visited[next] && passable(next) {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

func connectivity(g *engine.Grid, result *Result) {
	reachable := Reachable(g)

	var unreachable []string
	check := func(kind string, tiles ...engine.Tile) int {
		found := engine.FindTiles(g, tiles...)
		for _, p := range found {
			if !reachable[p] {
				unreachable = append(unreachable, fmt.Sprintf("%s at (%d,%d)", kind, p.X, p.Y))
			}
		}
		return len(found)
	}
	blocks := check("Block", engine.Block, engine.BlockOnGoal)
	goals := check("Goal", engine.Goal, engine.PlayerOnGoal)

	if len(unreachable) > 0 {
		result.fail("Connectivity failure: %d of %d blocks and goals outside the player's region", len(unreachable), blocks+goals)
		for _, u := range unreachable {
			result.fail("Unreachable: %s", u)
		}
		return
	}
	result.note("Connectivity: all %d blocks and %d goals reachable", blocks, goals)
}

// All validates every level a manager lists, in listing order. Files that
// fail to load are reported as invalid results rather than aborting the run.
func All(ctx context.Context, m *level.Manager, s *solver.Solver) ([]Result, error) {
	ids, err := m.IDs()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		lvl, err := m.LoadLevel(id)
		if err != nil {
			results = append(results, Result{Level: id, Errors: []string{err.Error()}})
			continue
		}
		results = append(results, Level(ctx, lvl, s))
	}
	return results, nil
}

// Report prints a concise report and returns whether every result is valid
func Report(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.Level)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Notes {
				fmt.Fprintln(w, "  "+info)
			}
			if result.Solution != nil {
				fmt.Fprintln(w, "  solution: "+result.Solution.Keys)
			}
			continue
		}

		allValid = false
		fmt.Fprintln(w, "❌ INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All levels are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some levels have errors")
	}
	return allValid
}
