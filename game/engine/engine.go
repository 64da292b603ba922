package engine

import "fmt"

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Rules() Ruleset
	IsGameOver() bool

	// Actions and turns
	Apply(action Action) (Outcome, error)
	EndTurn() TurnSummary

	// Queries
	GetPlayer(id string) (*Player, bool)
	GetCell(x, y int) (*Cell, error)
	Territory(playerID string) int
}

// GameEngine implements the Engine interface over one GameState. It holds no
// lock; callers serialize access per game.
type GameEngine struct {
	state *GameState
	rules Ruleset
}

// NewEngine wraps state with the given ruleset
func NewEngine(state *GameState, rules Ruleset) (*GameEngine, error) {
	if state == nil {
		return nil, fmt.Errorf("state cannot be nil")
	}
	if rules == nil {
		rules = StandardRules{}
	}
	if _, ok := state.Players.Get(state.CurrentPlayerID); !ok {
		return nil, fmt.Errorf("current player %q is not in the roster", state.CurrentPlayerID)
	}
	return &GameEngine{state: state, rules: rules}, nil
}

// GetState returns the live game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState replaces the game state
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	e.state = state
	return nil
}

// Rules returns the ruleset in force
func (e *GameEngine) Rules() Ruleset {
	return e.rules
}

// IsGameOver returns whether the game has finished
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameStatus == StatusFinished
}

// Apply validates and applies a player action
func (e *GameEngine) Apply(action Action) (Outcome, error) {
	return Apply(e.state, e.rules, action)
}

// EndTurn resolves income and passes the turn
func (e *GameEngine) EndTurn() TurnSummary {
	return EndTurn(e.state, e.rules)
}

func (e *GameEngine) GetPlayer(id string) (*Player, bool) {
	return e.state.Players.Get(id)
}

func (e *GameEngine) GetCell(x, y int) (*Cell, error) {
	return e.state.CellAt(x, y)
}

// Territory returns the number of cells playerID owns
func (e *GameEngine) Territory(playerID string) int {
	return e.state.CountOwned(playerID)
}
