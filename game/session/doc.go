// Package session provides in-memory session management for the Sokoban
// server front end.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Short random session IDs derived from UUIDs
//   - Case-insensitive lookup
//   - Pruning of idle sessions
//
// Each Session owns its own engine, so sessions never share grid state.
// Nothing is written to disk; sessions end when the server stops.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", lvl)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	go manager.RunCleanup(ctx, time.Hour, 24*time.Hour)
package session
