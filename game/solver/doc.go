// Package solver searches for the shortest move sequence that clears a
// stage. It backs level validation and the hint command.
package solver
