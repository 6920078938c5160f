// Package level loads Sokoban stages from a directory or from the set
// embedded in the binary.
//
// Level files are plain text with one grid row per line and no header. Every
// regular, non-hidden file in the directory is a level; its ID is the
// filename without a .txt extension. Levels are listed in directory order.
//
// Usage:
//
//	manager, err := level.NewManager(dir) // "" selects the embedded stages
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	lvl, err := manager.LoadLevel("01-warehouse")
//	eng, err := lvl.NewEngine()
package level
