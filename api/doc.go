// Package api provides the HTTP REST API for Cell War.
//
// Endpoints:
//
// Games:
//   - POST /api/game - Create a game, returns the game view plus gameId (201)
//   - GET /api/game/{id} - Current game view
//   - POST /api/game/{id}/action - Apply a CAPTURE, BUILD_FARM or UPGRADE_DEFENSE
//   - POST /api/game/{id}/end_turn - Credit income and pass the turn
//   - GET /api/games - Summaries of every live game
//
// Map library:
//   - GET /api/maps - List saved maps
//   - GET /api/maps/{name} - Fetch one map
//   - POST /api/maps - Save a map ({id?, name, description?, rules?, cells})
//
// Other:
//   - GET /ws?game={id} - WebSocket stream of game updates
//   - GET / - Health text
//
// Create Game:
//
//	{
//	  "type": "standard|large|empty",   // size class, default standard
//	  "data": [[{"x":0,"y":0,"type":"plain"}, ...]], // imported grid, cells[x][y]
//	  "map": "twin_lakes",              // saved map, used when data is absent
//	  "rules": "standard|flat",
//	  "seed": 42,                       // reproducible terrain
//	  "seedStart": true                 // seed starting territory on imported grids
//	}
//
// Actions:
//
//	{"type": "CAPTURE", "playerId": "player1", "cell": {"x": 4, "y": 2}, "amount": 3}
//
// A rejected action (wrong turn, not enough gold, impassable terrain) still
// answers 200 with the unchanged view; the reason is in the X-Action-Result
// header.
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{"error": "Game not found"}
//
// 400 for malformed input, 404 for unknown games or maps, 500 otherwise.
package api
