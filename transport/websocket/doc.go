// Package websocket pushes live Cell War games to spectators.
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection has a reader and a writer
// goroutine; registration, broadcasting and cleanup all run on the hub's
// own goroutine, so the client maps need no locks.
//
// Message Protocol:
//
// Clients only listen. Every frame is one JSON message:
//
//	{"gameId": "...", "event": "state_update|action|turn_ended|game_over", "state": {...}, "data": ...}
//
// state is the same view returned by GET /api/game/{id}. data carries the
// action outcome or turn summary that caused the update.
//
// Game Subscriptions:
//
// Clients pick a game with the query parameter ?game=<id>. The current state
// is sent first, then every change to that game and nothing else.
//
// Usage:
//
//	hub := websocket.NewHub(log)
//	go hub.Run(ctx)
//
//	hub.ServeWS(w, r, gameID, state)
//	hub.BroadcastState(gameID, websocket.EventAction, version, newState)
//
// Every broadcast carries the game version it describes. Mutations of one game
// can finish in any order, so the hub drops a message whose version is older
// than one it already delivered for that game.
//
// Broadcasts never block the caller; when the hub falls behind, messages
// are dropped with a warning and slow clients are disconnected.
package websocket
