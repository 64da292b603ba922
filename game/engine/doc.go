// Package engine provides the core game logic for Cell War.
//
// The engine package implements the game mechanics including:
//   - Procedural map generation (mountains and a river) and map import
//   - Starting territory seeding, separate from terrain generation
//   - Capture, farm building and defense upgrades
//   - Turn rotation and farm income
//   - Elimination, which finishes the game
//
// Core Types:
//
// GameState holds players (in turn order), the square cell grid indexed
// cells[x][y], the current player, the turn number and the game status.
// Action is a closed set of player moves: Capture, BuildFarm and
// UpgradeDefense. Ruleset supplies costs and income; StandardRules is the
// default and FlatRules the fixed-price variant.
//
// Usage:
//
//	rng := engine.NewRand(42)
//	players := engine.DefaultPlayers()
//	grid, err := engine.BuildMap(engine.MapOptions{Type: engine.MapStandard},
//		engine.StandardRules{}, []string{"player1", "player2"}, rng)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng, _ := engine.NewEngine(engine.NewGameState(grid, players...), engine.StandardRules{})
//	outcome, err := eng.Apply(engine.Capture{PlayerID: "player1", Cell: engine.Position{X: 4, Y: 2}})
//	eng.EndTurn()
//
// Rule violations (acting out of turn, not enough gold, impassable terrain and
// so on) are not errors. Apply reports them through Outcome.Code and leaves the
// state untouched. Errors are reserved for malformed input such as coordinates
// outside the grid.
//
// The engine does no locking. Callers must serialize access to a GameState.
package engine
