// Package service provides the business logic layer for the Sokoban server.
//
// The service package implements:
//   - Multi-session game management
//   - Level lookup through a LevelManager
//   - Move, command and bulk move processing
//   - Move history pagination
//   - Solver backed hints
//
// Core Interfaces:
//
// GameService is the main service interface used by the HTTP, WebSocket and
// MCP transports. SessionManager stores sessions; LevelManager resolves level
// IDs to level sources.
//
// Every state returned by the service is a deep copy taken under the service
// lock, so callers may encode it while other requests keep playing.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	levelMgr := level.NewEmbeddedManager()
//	gameService := service.NewGameService(sessionMgr, levelMgr, 0)
//
//	info, err := gameService.CreateSession(ctx, "01-warehouse")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Command(ctx, info.ID, "s")
package service
