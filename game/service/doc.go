// Package service provides the business logic layer for Cell War.
//
// The service package implements:
//   - Game creation from generated maps, imported grids or saved templates
//   - Action and end-turn processing under a per-game lock
//   - Game listing for lobbies and dashboards
//   - Map library access
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// GameRepository stores live games (see package registry).
// MapLibrary loads and saves map templates (see package maps).
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Every live game owns one engine guarded by its own mutex;
// callers only ever receive cloned snapshots of the state, so a snapshot can
// be serialized while the game moves on.
//
// Usage:
//
//	games := registry.New()
//	library, _ := maps.NewManager("maps")
//	gameService := service.NewGameService(games, library, service.WithLogger(log))
//
//	info, err := gameService.CreateGame(ctx, service.CreateGameOptions{Type: engine.MapStandard})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := gameService.PerformAction(ctx, info.ID, engine.Capture{
//		PlayerID: "player1",
//		Cell:     engine.Position{X: 4, Y: 2},
//	})
//
// Rejected actions are not errors: the returned Outcome carries the reason
// and the state is unchanged. Errors are reserved for unknown games and
// malformed input (engine.ValidationError).
package service
