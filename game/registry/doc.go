// Package registry keeps the live Cell War games of a process.
//
// Registry implements service.GameRepository. Games are keyed by UUID v4
// strings and are never removed; they live until the process exits.
//
// Concurrency:
//
// The registry map has its own read/write lock, held only while games are
// added or looked up. Every game carries a separate mutex (see
// service.Game.WithLock), so actions on one game never wait on another.
//
// Usage:
//
//	games := registry.New()
//	svc := service.NewGameService(games, nil)
//	info, err := svc.CreateGame(ctx, service.CreateGameOptions{Type: engine.MapStandard})
package registry
