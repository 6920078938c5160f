// Package play runs the terminal game loop: draw the stage, read a command,
// apply it, and repeat until the stage is clear.
//
// Campaign plays a list of levels in order. Input ending early stops the
// loop with ErrQuit, which callers treat as a clean exit.
package play
