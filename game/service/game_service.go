package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/cellwar/game/engine"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrMapNotFound  = errors.New("map not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Games
	CreateGame(ctx context.Context, opts CreateGameOptions) (*GameInfo, error)
	GetGame(ctx context.Context, gameID string) (*engine.GameState, error)
	ListGames(ctx context.Context) ([]*GameSummary, error)

	// Game Operations
	PerformAction(ctx context.Context, gameID string, action engine.Action) (*ActionResult, error)
	EndTurn(ctx context.Context, gameID string) (*TurnResult, error)

	// Map library
	ListMaps(ctx context.Context) ([]*MapInfo, error)
	LoadMap(ctx context.Context, name string) (*engine.MapTemplate, error)
	SaveMap(ctx context.Context, name string, tmpl *engine.MapTemplate) error
}

// GameRepository stores live games. Implementations must be safe for concurrent use.
type GameRepository interface {
	Create(eng *engine.GameEngine) (*Game, error)
	Get(id string) (*Game, error)
	List() []*Game
}

// MapLibrary handles named map templates
type MapLibrary interface {
	Load(name string) (*engine.MapTemplate, error)
	List() ([]*MapInfo, error)
	Save(name string, tmpl *engine.MapTemplate) error
}

// Game is a live game. Its engine must only be touched through WithLock.
type Game struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	engine  *engine.GameEngine
	version uint64 // bumped under mu by every action and end of turn
}

// NewGame wraps an engine under the given id
func NewGame(id string, eng *engine.GameEngine) *Game {
	return &Game{ID: id, CreatedAt: time.Now(), engine: eng}
}

// WithLock runs fn while holding the game's lock
func (g *Game) WithLock(fn func(eng *engine.GameEngine) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.engine)
}
