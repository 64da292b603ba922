package service

import (
	"time"

	"github.com/wricardo/cellwar/game/engine"
)

// CreateGameOptions is the body of a create-game request. Data, Map and Type
// are alternative map sources, checked in that order.
type CreateGameOptions struct {
	Type      engine.MapType  `json:"type,omitempty"`
	Data      [][]engine.Cell `json:"data,omitempty"`
	Map       string          `json:"map,omitempty"`
	Rules     string          `json:"rules,omitempty"`
	Seed      *int64          `json:"seed,omitempty"`
	SeedStart bool            `json:"seedStart,omitempty"`
}

// GameInfo is returned when a game is created
type GameInfo struct {
	ID        string            `json:"gameId"`
	Rules     string            `json:"rules"`
	Seed      int64             `json:"seed"`
	CreatedAt time.Time         `json:"createdAt"`
	State     *engine.GameState `json:"state"`
}

// GameSummary describes a live game without its grid
type GameSummary struct {
	ID              string            `json:"gameId"`
	Rules           string            `json:"rules"`
	CreatedAt       time.Time         `json:"createdAt"`
	GridSize        int               `json:"gridSize"`
	CurrentPlayerID string            `json:"currentPlayerId"`
	TurnNumber      int               `json:"turnNumber"`
	GameStatus      engine.GameStatus `json:"gameStatus"`
	Territory       map[string]int    `json:"territory"`
}

// ActionResult contains the result of an action
// Version orders results of the same game; later mutations carry larger versions.
type ActionResult struct {
	GameID  string            `json:"gameId"`
	Version uint64            `json:"version"`
	Outcome engine.Outcome    `json:"outcome"`
	State   *engine.GameState `json:"state"`
}

// TurnResult contains the result of ending a turn
type TurnResult struct {
	GameID  string             `json:"gameId"`
	Version uint64             `json:"version"`
	Summary engine.TurnSummary `json:"summary"`
	State   *engine.GameState  `json:"state"`
}

// MapInfo provides information about a saved map
type MapInfo struct {
	Filename    string `json:"filename"`
	MapID       string `json:"map_id"` // The identifier to use for game creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Rules       string `json:"rules,omitempty"`
	GridSize    int    `json:"grid_size"`
}
