package engine

import "fmt"

// Tile is the external vocabulary for a single grid cell
type Tile int

const (
	Empty Tile = iota
	Wall
	Goal
	Block
	BlockOnGoal
	Player
	PlayerOnGoal
	Unset
)

// Occupant is what stands on a cell, independent of the goal marker
type Occupant uint8

const (
	None Occupant = iota
	WallOccupant
	BlockOccupant
	PlayerOccupant
	UnsetOccupant
)

// Cell is the internal cell model: one occupant plus the goal marker.
// Walls and unset cells never carry the goal bit.
type Cell struct {
	Occupant Occupant `json:"occupant"`
	Goal     bool     `json:"goal,omitempty"`
}

// tileNames is indexed by Tile
var tileNames = [...]string{
	Empty:        "empty",
	Wall:         "wall",
	Goal:         "goal",
	Block:        "block",
	BlockOnGoal:  "block_on_goal",
	Player:       "player",
	PlayerOnGoal: "player_on_goal",
	Unset:        "unset",
}

// charTiles maps level source characters to tiles
var charTiles = map[rune]Tile{
	' ': Empty,
	'#': Wall,
	'.': Goal,
	'o': Block,
	'O': BlockOnGoal,
	'p': Player,
	'P': PlayerOnGoal,
}

// tileGlyphs is indexed by Tile; Unset draws as blank space
var tileGlyphs = [...]rune{
	Empty:        ' ',
	Wall:         '#',
	Goal:         '.',
	Block:        'o',
	BlockOnGoal:  'O',
	Player:       'p',
	PlayerOnGoal: 'P',
	Unset:        ' ',
}

// String returns the snake_case name of the tile
func (t Tile) String() string {
	if t < Empty || t > Unset {
		return fmt.Sprintf("tile(%d)", int(t))
	}
	return tileNames[t]
}

// Glyph returns the display character for the tile
func (t Tile) Glyph() rune {
	if t < Empty || t > Unset {
		return '?'
	}
	return tileGlyphs[t]
}

// TileFromChar decodes a level source character
func TileFromChar(ch rune) (Tile, bool) {
	t, ok := charTiles[ch]
	return t, ok
}

// Cell splits a tile into its occupant and goal marker
func (t Tile) Cell() Cell {
	switch t {
	case Wall:
		return Cell{Occupant: WallOccupant}
	case Goal:
		return Cell{Goal: true}
	case Block:
		return Cell{Occupant: BlockOccupant}
	case BlockOnGoal:
		return Cell{Occupant: BlockOccupant, Goal: true}
	case Player:
		return Cell{Occupant: PlayerOccupant}
	case PlayerOnGoal:
		return Cell{Occupant: PlayerOccupant, Goal: true}
	case Unset:
		return Cell{Occupant: UnsetOccupant}
	default:
		return Cell{}
	}
}

// Tile combines the occupant and goal marker back into a tile
func (c Cell) Tile() Tile {
	switch c.Occupant {
	case WallOccupant:
		return Wall
	case UnsetOccupant:
		return Unset
	case BlockOccupant:
		if c.Goal {
			return BlockOnGoal
		}
		return Block
	case PlayerOccupant:
		if c.Goal {
			return PlayerOnGoal
		}
		return Player
	default:
		if c.Goal {
			return Goal
		}
		return Empty
	}
}

// Free reports whether a player or block may enter the cell
func (c Cell) Free() bool {
	return c.Occupant == None
}
