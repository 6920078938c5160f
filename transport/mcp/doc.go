// Package mcp exposes the Sokoban REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes one or two HTTP
// requests against a running server and the JSON reply is formatted as text
// for the agent. It can be served over stdio (the "mcp" command) or mounted
// on the HTTP server at /mcp.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - list_levels, get_level
//   - game_state, move, command, bulk_move, reset_game
//   - move_history, hint, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
