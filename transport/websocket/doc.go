// Package websocket provides WebSocket transport for the Sokoban server.
//
// The package uses a hub-and-spoke model where a central Hub tracks the
// clients watching each session. Every client runs a read pump and a write
// pump goroutine.
//
// Message Protocol:
//
//   - Incoming: {"command": "s"} plays one terminal command on the session
//   - Outgoing: {"session_id": "...", "event": "state_update", "game_state": {...}}
//   - Errors go only to the client that sent the command, with event "error"
//
// Clients pick their session with the ?session= query parameter. Session IDs
// are matched case-insensitively.
//
// Usage:
//
//	hub := websocket.NewHub(func(ctx context.Context, id, input string) (*engine.GameState, error) {
//		res, err := gameService.Command(ctx, id, input)
//		if err != nil {
//			return nil, err
//		}
//		return res.GameState, nil
//	})
//	go hub.Run(ctx)
package websocket
