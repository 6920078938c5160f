package command

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/wricardo/mcp-training/sokoban/game/engine"
)

var ErrInvalidInput = errors.New("invalid input")

// Kind distinguishes moves from the reset command
type Kind int

const (
	Move Kind = iota
	Reset
)

// Command is one interpreted turn of player input
type Command struct {
	Kind      Kind
	Direction engine.Direction
	Key       rune
}

func (c Command) String() string {
	if c.Kind == Reset {
		return "reset"
	}
	return c.Direction.String()
}

var keys = map[rune]Command{
	'a': {Kind: Move, Direction: engine.Left, Key: 'a'},
	's': {Kind: Move, Direction: engine.Right, Key: 's'},
	'w': {Kind: Move, Direction: engine.Up, Key: 'w'},
	'z': {Kind: Move, Direction: engine.Down, Key: 'z'},
	'r': {Kind: Reset, Key: 'r'},
}

// Parse interprets a line of input. Only the first character is significant
// and matching is exact, so 'A' is not a command.
func Parse(line string) (Command, error) {
	if line == "" {
		return Command{}, fmt.Errorf("%w: empty line", ErrInvalidInput)
	}
	r, _ := utf8.DecodeRuneInString(line)
	c, ok := keys[r]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidInput, r)
	}
	return c, nil
}

// Keys returns the command characters in prompt order
func Keys() []rune {
	return []rune{'a', 's', 'w', 'z', 'r'}
}

// Apply runs the command against the engine
func Apply(e engine.Engine, c Command) (engine.MoveResult, error) {
	switch c.Kind {
	case Reset:
		_, err := e.Reset()
		return engine.MoveResult{}, err
	case Move:
		return e.Move(c.Direction), nil
	default:
		return engine.MoveResult{}, fmt.Errorf("%w: unknown command kind %d", ErrInvalidInput, c.Kind)
	}
}
