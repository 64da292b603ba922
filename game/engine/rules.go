package engine

import (
	"fmt"
	"sort"
)

const (
	RulesStandard = "standard"
	RulesFlat     = "flat"

	MinDefenseUpgrade = 1
	MaxDefenseUpgrade = 9
)

// Ruleset supplies the cost and income formulas of a game. Turn order, terrain
// and adjacency restrictions are shared by every ruleset.
type Ruleset interface {
	Name() string

	// CaptureCost is the gold needed for playerID to take cell
	CaptureCost(cell *Cell, playerID string) int

	// FarmCost is the gold needed for playerID to build its next farm
	FarmCost(gs *GameState, playerID string) int

	// DefenseUpgrade turns a requested amount into the applied amount and its cost
	DefenseUpgrade(requested int) (amount, cost int)

	// Income is the gold credited to playerID at the end of its turn
	Income(gs *GameState, playerID string) int

	// SeedStart grants starting territory to each player on a fresh grid
	SeedStart(grid [][]Cell, playerIDs []string) error
}

// StandardRules is the adjacency-gated, variable-cost economy
type StandardRules struct{}

func (StandardRules) Name() string { return RulesStandard }

// CaptureCost is 1, plus the cell's defense when an enemy holds it, plus 1 on hills
func (StandardRules) CaptureCost(cell *Cell, playerID string) int {
	cost := 1
	if cell.OwnerID != "" && cell.OwnerID != playerID {
		cost += cell.Defense
	}
	if cell.Type == Hill {
		cost++
	}
	return cost
}

// FarmCost grows by one for every ten farms already owned
func (StandardRules) FarmCost(gs *GameState, playerID string) int {
	return gs.CountFarms(playerID)/10 + 1
}

// DefenseUpgrade accepts amounts in [1, 9] at 1 gold each; anything else becomes 1
func (StandardRules) DefenseUpgrade(requested int) (int, int) {
	amount := requested
	if amount < MinDefenseUpgrade || amount > MaxDefenseUpgrade {
		amount = MinDefenseUpgrade
	}
	return amount, amount
}

// Income is one gold per owned farm
func (StandardRules) Income(gs *GameState, playerID string) int {
	return gs.CountFarms(playerID)
}

func (StandardRules) SeedStart(grid [][]Cell, playerIDs []string) error {
	return SeedBlocks(grid, playerIDs)
}

// FlatRules is a fixed-price economy: every capture, farm and defense point
// has one price. Players start from a single fortified capital.
type FlatRules struct{}

const (
	FlatCaptureCost = 10
	FlatFarmCost    = 25
	FlatDefenseCost = 15
)

func (FlatRules) Name() string { return RulesFlat }

func (FlatRules) CaptureCost(*Cell, string) int { return FlatCaptureCost }

func (FlatRules) FarmCost(*GameState, string) int { return FlatFarmCost }

// DefenseUpgrade always adds a single point
func (FlatRules) DefenseUpgrade(int) (int, int) { return 1, FlatDefenseCost }

func (FlatRules) Income(gs *GameState, playerID string) int {
	return gs.CountFarms(playerID)
}

func (FlatRules) SeedStart(grid [][]Cell, playerIDs []string) error {
	return SeedCapitals(grid, playerIDs)
}

var rulesets = map[string]Ruleset{
	RulesStandard: StandardRules{},
	RulesFlat:     FlatRules{},
}

// RulesByName looks up a ruleset; the empty name selects the standard rules
func RulesByName(name string) (Ruleset, error) {
	if name == "" {
		return StandardRules{}, nil
	}
	r, ok := rulesets[name]
	if !ok {
		return nil, &ValidationError{
			Field:  "rules",
			Reason: fmt.Sprintf("unknown ruleset %q (available: %v)", name, RuleNames()),
			Err:    ErrUnknownRule,
		}
	}
	return r, nil
}

// RuleNames lists the registered rulesets
func RuleNames() []string {
	names := make([]string, 0, len(rulesets))
	for name := range rulesets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
