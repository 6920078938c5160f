package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zyedidia/generic/mapset"

	"github.com/wricardo/mcp-training/sokoban/game/engine"
)

// DefaultMaxStates bounds the breadth-first search
const DefaultMaxStates = 250000

var (
	ErrSearchLimit = errors.New("search limit reached")
	ErrUnsolvable  = errors.New("level cannot be solved")
)

// Solution is a shortest move sequence from the starting grid to a solved one
type Solution struct {
	Moves    []engine.Direction `json:"-"`
	Keys     string             `json:"keys"`
	Pushes   int                `json:"pushes"`
	Explored int                `json:"explored"`
}

// Solver finds shortest solutions by breadth-first search over grid states
type Solver struct {
	maxStates int
}

// New creates a solver. maxStates <= 0 selects DefaultMaxStates.
func New(maxStates int) *Solver {
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}
	return &Solver{maxStates: maxStates}
}

type node struct {
	parent int
	dir    engine.Direction
	push   bool
}

type item struct {
	grid engine.Grid
	node int
}

// Solve searches from start, which is not modified. It fails with
// ErrSearchLimit once more than maxStates states were seen and with
// ErrUnsolvable when every reachable state has been explored.
func (s *Solver) Solve(ctx context.Context, start *engine.Grid) (*Solution, error) {
	if start.CheckSolved() {
		return &Solution{Moves: []engine.Direction{}}, nil
	}
	if _, ok := start.PlayerPosition(); !ok {
		return nil, fmt.Errorf("%w: no player", ErrUnsolvable)
	}

	visited := mapset.New[engine.Grid]()
	visited.Put(*start)
	nodes := []node{{parent: -1}}
	queue := []item{{grid: *start, node: 0}}

	for steps := 0; len(queue) > 0; steps++ {
		if steps%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		current := queue[0]
		queue = queue[1:]

		for _, d := range engine.AllDirections() {
			next := current.grid
			result := next.ApplyMove(d)
			if !result.Accepted() || visited.Has(next) {
				continue
			}
			pushed := result.Outcome == engine.Pushed
			if pushed && deadCorner(&next, result.To.Step(d)) {
				continue
			}

			visited.Put(next)
			nodes = append(nodes, node{parent: current.node, dir: d, push: pushed})
			idx := len(nodes) - 1

			if next.CheckSolved() {
				return buildSolution(nodes, idx, visited.Size()), nil
			}
			if visited.Size() >= s.maxStates {
				return nil, fmt.Errorf("%w: explored %d states", ErrSearchLimit, visited.Size())
			}
			queue = append(queue, item{grid: next, node: idx})
		}
	}

	return nil, fmt.Errorf("%w: explored %d states", ErrUnsolvable, visited.Size())
}

// Hint returns the first move of a shortest solution
func (s *Solver) Hint(ctx context.Context, g *engine.Grid) (engine.Direction, *Solution, error) {
	sol, err := s.Solve(ctx, g)
	if err != nil {
		return 0, nil, err
	}
	if len(sol.Moves) == 0 {
		return 0, sol, fmt.Errorf("%w: already solved", ErrUnsolvable)
	}
	return sol.Moves[0], sol, nil
}

func buildSolution(nodes []node, idx, explored int) *Solution {
	var moves []engine.Direction
	pushes := 0
	for i := idx; nodes[i].parent >= 0; i = nodes[i].parent {
		moves = append(moves, nodes[i].dir)
		if nodes[i].push {
			pushes++
		}
	}
	for l, r := 0, len(moves)-1; l < r; l, r = l+1, r-1 {
		moves[l], moves[r] = moves[r], moves[l]
	}
	return &Solution{Moves: moves, Keys: Keys(moves), Pushes: pushes, Explored: explored}
}

var directionKeys = map[engine.Direction]byte{
	engine.Left:  'a',
	engine.Right: 's',
	engine.Up:    'w',
	engine.Down:  'z',
}

// Keys encodes moves with the terminal command characters
func Keys(moves []engine.Direction) string {
	var b strings.Builder
	for _, d := range moves {
		b.WriteByte(directionKeys[d])
	}
	return b.String()
}

// deadCorner reports a block off a goal wedged against two perpendicular
// walls. Such a block can never move again.
func deadCorner(g *engine.Grid, p engine.Position) bool {
	if g.TileAt(p) != engine.Block {
		return false
	}
	solid := func(d engine.Direction) bool {
		t := g.TileAt(p.Step(d))
		return t == engine.Wall || t == engine.Unset
	}
	return (solid(engine.Up) || solid(engine.Down)) && (solid(engine.Left) || solid(engine.Right))
}
