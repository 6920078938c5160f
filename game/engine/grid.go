package engine

import (
	"fmt"
	"strings"
)

// Grid is the fixed-size stage, stored row-major as row*Width+col.
// Grid values are comparable with ==.
type Grid struct {
	cells  [Width * Height]Cell
	player int
}

// Parse builds a grid from level source text. Cells the text does not cover stay Unset.
func Parse(source string) (*Grid, error) {
	g := &Grid{}
	if err := g.load(source); err != nil {
		return nil, err
	}
	return g, nil
}

// Reset re-parses the source text and replaces the grid contents entirely.
// On error the grid is left untouched.
func (g *Grid) Reset(source string) error {
	fresh, err := Parse(source)
	if err != nil {
		return err
	}
	*g = *fresh
	return nil
}

func (g *Grid) load(source string) error {
	for i := range g.cells {
		g.cells[i] = Cell{Occupant: UnsetOccupant}
	}
	g.player = -1

	rows := splitRows(source)
	if len(rows) > Height {
		return fmt.Errorf("%w: %d rows exceed height %d", ErrDimensionMismatch, len(rows), Height)
	}

	for y, row := range rows {
		x := 0
		for _, ch := range row {
			if x >= Width {
				return fmt.Errorf("%w: row %d is longer than width %d", ErrDimensionMismatch, y+1, Width)
			}
			tile, ok := TileFromChar(ch)
			if !ok {
				return fmt.Errorf("%w '%c' at row %d, col %d", ErrInvalidCharacter, ch, y+1, x+1)
			}
			idx := y*Width + x
			g.cells[idx] = tile.Cell()
			if tile == Player || tile == PlayerOnGoal {
				if g.player < 0 {
					g.player = idx
				}
			}
			x++
		}
	}
	return nil
}

// splitRows splits source text into rows, ignoring one trailing newline and CR line endings
func splitRows(source string) []string {
	if source == "" {
		return nil
	}
	source = strings.TrimSuffix(source, "\n")
	rows := strings.Split(source, "\n")
	for i, row := range rows {
		rows[i] = strings.TrimSuffix(row, "\r")
	}
	return rows
}

// CheckSolved reports whether no plain Block remains on the grid
func (g *Grid) CheckSolved() bool {
	for _, c := range g.cells {
		if c.Occupant == BlockOccupant && !c.Goal {
			return false
		}
	}
	return true
}

// TileAt returns the tile at a position; off-grid positions read as Unset
func (g *Grid) TileAt(p Position) Tile {
	if !p.InBounds() {
		return Unset
	}
	return g.cells[p.Index()].Tile()
}

// Tiles returns a copy of the grid in the seven-variant tile vocabulary
func (g *Grid) Tiles() [Width * Height]Tile {
	var tiles [Width * Height]Tile
	for i, c := range g.cells {
		tiles[i] = c.Tile()
	}
	return tiles
}

// PlayerPosition returns the active player position, or false when the grid has none
func (g *Grid) PlayerPosition() (Position, bool) {
	if g.player < 0 {
		return Position{}, false
	}
	return PositionOf(g.player), true
}

// Count returns the number of cells holding the given tile
func (g *Grid) Count(t Tile) int {
	n := 0
	for _, c := range g.cells {
		if c.Tile() == t {
			n++
		}
	}
	return n
}

// Rows renders the grid as Height strings of Width glyphs
func (g *Grid) Rows() []string {
	rows := make([]string, Height)
	var b strings.Builder
	for y := 0; y < Height; y++ {
		b.Reset()
		for x := 0; x < Width; x++ {
			b.WriteRune(g.cells[y*Width+x].Tile().Glyph())
		}
		rows[y] = b.String()
	}
	return rows
}

// String implements fmt.Stringer
func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n")
}
