// Package engine provides the core game logic for the Sokoban stage game.
//
// The engine package implements:
//   - Parsing level source text into a fixed 10x8 grid
//   - Single-step movement with block pushing
//   - The solved check (no block left off a goal)
//   - Full reset from the retained source text
//   - Move history for the current level
//
// Core Types:
//
// Grid holds the cells of a stage. Internally every cell is an Occupant plus
// a goal marker; the seven-variant Tile vocabulary (plus Unset) is produced
// only at the parse and render boundaries. GameEngine wraps a Grid with its
// source text, counters and history.
//
// Usage:
//
//	eng, err := engine.NewEngine("1", "First stage", source)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng.Move(engine.Left)
//	if eng.IsSolved() {
//		fmt.Println("STAGE CLEAR!")
//	}
//
// Rules:
//
// The player walks onto empty cells and goals. Walking into a block pushes it
// one cell further when that cell is empty or a goal. Walls, unset cells,
// the grid boundary and blocked pushes reject the move without changing
// anything; a rejected move is not an error.
package engine
