// Package input supplies player commands to the game loop, either one line
// per turn or one raw key press per turn on an interactive terminal.
package input
