package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/cellwar/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	games        GameRepository
	maps         MapLibrary
	log          logrus.FieldLogger
	defaultRules string
	seedSource   func() int64
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithLogger sets the logger used for game events
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *gameServiceImpl) { s.log = log }
}

// WithDefaultRules sets the ruleset used when a request names none
func WithDefaultRules(name string) Option {
	return func(s *gameServiceImpl) { s.defaultRules = name }
}

// WithSeedSource sets where map seeds come from when a request carries none
func WithSeedSource(fn func() int64) Option {
	return func(s *gameServiceImpl) { s.seedSource = fn }
}

// NewGameService creates a new game service instance. maps may be nil, in
// which case map library operations report ErrMapNotFound.
func NewGameService(games GameRepository, maps MapLibrary, opts ...Option) GameService {
	s := &gameServiceImpl{
		games:        games,
		maps:         maps,
		log:          logrus.StandardLogger(),
		defaultRules: engine.RulesStandard,
		seedSource:   func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame builds the initial map, seats the two default players and stores the game
func (s *gameServiceImpl) CreateGame(ctx context.Context, opts CreateGameOptions) (*GameInfo, error) {
	mapOpts := engine.MapOptions{Type: opts.Type, Data: opts.Data, SeedStart: opts.SeedStart}
	rulesName := opts.Rules

	if mapOpts.Data == nil && opts.Map != "" {
		tmpl, err := s.LoadMap(ctx, opts.Map)
		if err != nil {
			return nil, err
		}
		mapOpts.Data = tmpl.Cells
		if rulesName == "" {
			rulesName = tmpl.Rules
		}
	}
	if rulesName == "" {
		rulesName = s.defaultRules
	}

	rules, err := engine.RulesByName(rulesName)
	if err != nil {
		return nil, err
	}

	seed := s.seedSource()
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	players := engine.DefaultPlayers()
	playerIDs := make([]string, len(players))
	for i, p := range players {
		playerIDs[i] = p.ID
	}

	grid, err := engine.BuildMap(mapOpts, rules, playerIDs, engine.NewRand(seed))
	if err != nil {
		return nil, fmt.Errorf("failed to build map: %w", err)
	}

	eng, err := engine.NewEngine(engine.NewGameState(grid, players...), rules)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	game, err := s.games.Create(eng)
	if err != nil {
		return nil, fmt.Errorf("failed to store game: %w", err)
	}

	info := &GameInfo{ID: game.ID, Rules: rules.Name(), Seed: seed, CreatedAt: game.CreatedAt}
	_ = game.WithLock(func(eng *engine.GameEngine) error {
		info.State = eng.GetState().Clone()
		return nil
	})

	s.log.WithFields(logrus.Fields{
		"game":     game.ID,
		"rules":    rules.Name(),
		"seed":     seed,
		"grid":     len(grid),
		"imported": mapOpts.Data != nil,
	}).Info("game created")

	return info, nil
}

// GetGame returns a snapshot of the game state
func (s *gameServiceImpl) GetGame(ctx context.Context, gameID string) (*engine.GameState, error) {
	game, err := s.games.Get(gameID)
	if err != nil {
		return nil, err
	}

	var state *engine.GameState
	_ = game.WithLock(func(eng *engine.GameEngine) error {
		state = eng.GetState().Clone()
		return nil
	})
	return state, nil
}

// ListGames summarizes every live game, oldest first
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameSummary, error) {
	games := s.games.List()
	result := make([]*GameSummary, 0, len(games))

	for _, game := range games {
		summary := &GameSummary{ID: game.ID, CreatedAt: game.CreatedAt, Territory: map[string]int{}}
		_ = game.WithLock(func(eng *engine.GameEngine) error {
			state := eng.GetState()
			summary.Rules = eng.Rules().Name()
			summary.GridSize = state.Size()
			summary.CurrentPlayerID = state.CurrentPlayerID
			summary.TurnNumber = state.TurnNumber
			summary.GameStatus = state.GameStatus
			for _, id := range state.Players.IDs() {
				summary.Territory[id] = state.CountOwned(id)
			}
			return nil
		})
		result = append(result, summary)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// PerformAction applies a player action under the game's lock
func (s *gameServiceImpl) PerformAction(ctx context.Context, gameID string, action engine.Action) (*ActionResult, error) {
	game, err := s.games.Get(gameID)
	if err != nil {
		return nil, err
	}

	result := &ActionResult{GameID: game.ID}
	err = game.WithLock(func(eng *engine.GameEngine) error {
		outcome, err := eng.Apply(action)
		if err != nil {
			return err
		}
		game.version++
		result.Outcome = outcome
		result.Version = game.version
		result.State = eng.GetState().Clone()
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"game": game.ID, "error": err}).Warn("action rejected as malformed")
		return nil, err
	}

	pos := action.Target()
	s.log.WithFields(logrus.Fields{
		"game":   game.ID,
		"player": action.Actor(),
		"action": action.Kind(),
		"cell":   fmt.Sprintf("(%d,%d)", pos.X, pos.Y),
		"result": result.Outcome.Code,
		"cost":   result.Outcome.Cost,
	}).Debug("action processed")

	return result, nil
}

// EndTurn resolves income for the current player and passes the turn
func (s *gameServiceImpl) EndTurn(ctx context.Context, gameID string) (*TurnResult, error) {
	game, err := s.games.Get(gameID)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{GameID: game.ID}
	_ = game.WithLock(func(eng *engine.GameEngine) error {
		result.Summary = eng.EndTurn()
		game.version++
		result.Version = game.version
		result.State = eng.GetState().Clone()
		return nil
	})

	s.log.WithFields(logrus.Fields{
		"game":   game.ID,
		"player": result.Summary.PlayerID,
		"income": result.Summary.Income,
		"next":   result.Summary.NextPlayerID,
		"turn":   result.State.TurnNumber,
	}).Debug("turn ended")

	return result, nil
}

// ListMaps returns the saved maps
func (s *gameServiceImpl) ListMaps(ctx context.Context) ([]*MapInfo, error) {
	if s.maps == nil {
		return []*MapInfo{}, nil
	}
	return s.maps.List()
}

// LoadMap returns a saved map by name
func (s *gameServiceImpl) LoadMap(ctx context.Context, name string) (*engine.MapTemplate, error) {
	if s.maps == nil {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, name)
	}
	tmpl, err := s.maps.Load(name)
	if err != nil {
		if errors.Is(err, ErrMapNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMapNotFound, name)
		}
		return nil, fmt.Errorf("failed to load map %s: %w", name, err)
	}
	return tmpl, nil
}

// SaveMap validates and stores a map under name
func (s *gameServiceImpl) SaveMap(ctx context.Context, name string, tmpl *engine.MapTemplate) error {
	if s.maps == nil {
		return fmt.Errorf("map library is not configured")
	}
	if tmpl == nil {
		return &engine.ValidationError{Field: "map", Reason: "is required"}
	}
	if tmpl.Rules != "" {
		if _, err := engine.RulesByName(tmpl.Rules); err != nil {
			return err
		}
	}
	if err := engine.ValidateGrid(tmpl.Cells, nil); err != nil {
		return err
	}
	if err := s.maps.Save(name, tmpl); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"map": name, "grid": len(tmpl.Cells)}).Info("map saved")
	return nil
}
