// Package api provides HTTP REST API handlers for the Sokoban server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"level_id": "02-two-crates"} or ?level=)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/move - {"direction": "up", "reset": false}
//   - POST /api/sessions/{id}/command - {"input": "s"} using the terminal keys a/s/w/z/r
//   - POST /api/sessions/{id}/bulk-move - {"moves": ["up","left"], "reset": false}
//   - POST /api/sessions/{id}/reset - Restart the level
//   - GET /api/sessions/{id}/history - ?page=1&limit=20&order=desc
//   - GET /api/sessions/{id}/hint - Next move of a shortest solution
//
// Levels:
//   - GET /api/levels - List playable levels
//   - GET /api/levels/{id} - Level source text
//
// Other:
//   - GET /health - Liveness check
//   - GET /ws?session={id} - WebSocket state updates
//
// Error Handling:
//
// Errors are returned as JSON: {"error": "message"}. Unknown sessions and
// levels give 404, bad directions and commands give 400, an unsolvable
// position gives 422 on the hint endpoint. A blocked move is not an error;
// it returns 200 with success=false and an attempted_to description.
package api
