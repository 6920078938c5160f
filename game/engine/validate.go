package engine

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnplayableLevel = errors.New("unplayable level")

// PlayabilityError lists every playability rule a parsed grid breaks.
// It matches ErrUnplayableLevel with errors.Is.
type PlayabilityError struct {
	Problems []string
}

func (e *PlayabilityError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnplayableLevel, strings.Join(e.Problems, "; "))
}

func (e *PlayabilityError) Unwrap() error {
	return ErrUnplayableLevel
}

// ValidateGrid checks the playability rules on an already parsed grid:
// exactly one player, at least one block, and no fewer goals than blocks.
// A failure is always a *PlayabilityError.
func ValidateGrid(g *Grid) error {
	var problems []string

	players := g.Count(Player) + g.Count(PlayerOnGoal)
	if players != 1 {
		problems = append(problems, fmt.Sprintf("Expected exactly one player, found %d", players))
	}

	blocks := g.Count(Block) + g.Count(BlockOnGoal)
	if blocks == 0 {
		problems = append(problems, "No blocks found")
	}

	if goals := CountGoals(g); goals < blocks {
		problems = append(problems, fmt.Sprintf("%d blocks but only %d goals", blocks, goals))
	}

	if len(problems) > 0 {
		return &PlayabilityError{Problems: problems}
	}
	return nil
}
