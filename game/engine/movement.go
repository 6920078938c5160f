package engine

// ApplyMove moves the player one step, pushing a block when one is in the way.
// Rejected moves leave the grid unchanged; all affected cells update together or not at all.
func (g *Grid) ApplyMove(d Direction) MoveResult {
	result := MoveResult{Direction: d, Outcome: Blocked}

	from, ok := g.PlayerPosition()
	if !ok {
		result.Reason = BlockedNoPlayer
		return result
	}
	result.From, result.To = from, from

	dx, dy := d.Delta()
	if dx == 0 && dy == 0 {
		result.Reason = BlockedBoundary
		return result
	}

	target := from.Step(d)
	if !target.InBounds() {
		result.Reason = BlockedBoundary
		return result
	}

	origin := &g.cells[from.Index()]
	next := &g.cells[target.Index()]

	switch next.Occupant {
	case None:
		origin.Occupant = None
		next.Occupant = PlayerOccupant
		g.player = target.Index()
		result.Outcome = Moved

	case BlockOccupant:
		beyond := target.Step(d)
		if !beyond.InBounds() {
			result.Reason = BlockedBoundary
			return result
		}
		dest := &g.cells[beyond.Index()]
		if !dest.Free() {
			result.Reason = BlockedPush
			return result
		}
		dest.Occupant = BlockOccupant
		next.Occupant = PlayerOccupant
		origin.Occupant = None
		g.player = target.Index()
		result.Outcome = Pushed

	case WallOccupant:
		result.Reason = BlockedWall
		return result

	case PlayerOccupant:
		// Only reachable on grids parsed with more than one player
		result.Reason = BlockedPlayer
		return result

	default:
		result.Reason = BlockedUnset
		return result
	}

	result.To = target
	return result
}

// CanMove reports whether a move in the direction would be accepted, without changing the grid
func (g *Grid) CanMove(d Direction) bool {
	probe := *g
	return probe.ApplyMove(d).Accepted()
}
