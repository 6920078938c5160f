package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// FindTiles returns the positions holding any of the given tiles, in row-major order
func FindTiles(g *Grid, tiles ...Tile) []Position {
	var found []Position
	for i, c := range g.cells {
		t := c.Tile()
		for _, want := range tiles {
			if t == want {
				found = append(found, PositionOf(i))
				break
			}
		}
	}
	return found
}

// CountGoals counts goal cells, whether or not something stands on them
func CountGoals(g *Grid) int {
	n := 0
	for _, c := range g.cells {
		if c.Goal {
			n++
		}
	}
	return n
}

// RemainingBlocks returns how many blocks still sit off a goal
func RemainingBlocks(g *Grid) int {
	return g.Count(Block)
}
