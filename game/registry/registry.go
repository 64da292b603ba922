package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wricardo/cellwar/game/engine"
	"github.com/wricardo/cellwar/game/service"
)

// Registry owns the live games of the process. The map is guarded by its own
// lock; each game carries a separate lock, so games never contend with each other.
type Registry struct {
	games map[string]*service.Game
	newID func() string
	mu    sync.RWMutex
}

// New creates an empty registry that issues UUID v4 game ids
func New() *Registry {
	return &Registry{
		games: make(map[string]*service.Game),
		newID: func() string { return uuid.NewString() },
	}
}

// Create stores a new game under a fresh id
func (r *Registry) Create(eng *engine.GameEngine) (*service.Game, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	if _, exists := r.games[id]; exists {
		return nil, fmt.Errorf("duplicate game id %s", id)
	}

	game := service.NewGame(id, eng)
	r.games[id] = game
	return game, nil
}

// Get retrieves a game by id (case-insensitive)
func (r *Registry) Get(id string) (*service.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if game, ok := r.games[strings.ToLower(id)]; ok {
		return game, nil
	}
	return nil, fmt.Errorf("%w: %s", service.ErrGameNotFound, id)
}

// List returns all live games ordered by creation time
func (r *Registry) List() []*service.Game {
	r.mu.RLock()
	result := make([]*service.Game, 0, len(r.games))
	for _, game := range r.games {
		result = append(result, game)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Count returns the number of live games
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
