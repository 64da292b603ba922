package engine

import "fmt"

// ResultCode explains what happened to an action. Rejections are not errors:
// the state is left exactly as it was.
type ResultCode string

const (
	ResultApplied          ResultCode = "applied"
	ResultGameOver         ResultCode = "game_over"
	ResultNotYourTurn      ResultCode = "not_your_turn"
	ResultImpassable       ResultCode = "impassable"
	ResultNotAdjacent      ResultCode = "not_adjacent"
	ResultAlreadyOwned     ResultCode = "already_owned"
	ResultNotOwned         ResultCode = "not_owned"
	ResultOccupied         ResultCode = "occupied"
	ResultInsufficientGold ResultCode = "insufficient_gold"
)

// Outcome is the advisory result of Apply
type Outcome struct {
	Action ActionType `json:"action"`
	Code   ResultCode `json:"code"`
	Cost   int        `json:"cost"`
}

// Applied reports whether the action changed the state
func (o Outcome) Applied() bool {
	return o.Code == ResultApplied
}

// Apply validates action against gs and, if every precondition holds, applies
// its full effect. Malformed input returns an error; rule violations return an
// Outcome with a rejection code and leave gs untouched.
func Apply(gs *GameState, rules Ruleset, action Action) (Outcome, error) {
	if action == nil {
		return Outcome{}, &ValidationError{Field: "action", Reason: "is required"}
	}
	out := Outcome{Action: action.Kind()}

	if gs.GameStatus != StatusActive {
		out.Code = ResultGameOver
		return out, nil
	}
	if action.Actor() != gs.CurrentPlayerID {
		out.Code = ResultNotYourTurn
		return out, nil
	}
	player, ok := gs.Players.Get(action.Actor())
	if !ok {
		return out, &ValidationError{Field: "playerId", Reason: fmt.Sprintf("unknown player %q", action.Actor())}
	}

	pos := action.Target()
	cell, err := gs.CellAt(pos.X, pos.Y)
	if err != nil {
		return out, err
	}

	switch a := action.(type) {
	case Capture:
		out.Code, out.Cost = applyCapture(gs, rules, player, cell)
	case BuildFarm:
		out.Code, out.Cost = applyBuildFarm(gs, rules, player, cell)
	case UpgradeDefense:
		out.Code, out.Cost = applyUpgradeDefense(rules, player, cell, a.Amount)
	default:
		return out, &ValidationError{Field: "type", Reason: fmt.Sprintf("unsupported action %T", action)}
	}
	return out, nil
}

func applyCapture(gs *GameState, rules Ruleset, player *Player, cell *Cell) (ResultCode, int) {
	if cell.Type.Impassable() {
		return ResultImpassable, 0
	}
	// Players with no territory may capture anywhere
	if gs.CountOwned(player.ID) > 0 && !gs.IsAdjacentToTerritory(cell.X, cell.Y, player.ID) {
		return ResultNotAdjacent, 0
	}

	cost := rules.CaptureCost(cell, player.ID)
	if cell.OwnedBy(player.ID) {
		return ResultAlreadyOwned, cost
	}
	if player.Gold < cost {
		return ResultInsufficientGold, cost
	}

	previous := cell.OwnerID
	player.Gold -= cost
	cell.OwnerID = player.ID

	// Taking an opponent's last cell eliminates them
	if previous != "" && gs.CountOwned(previous) == 0 {
		gs.GameStatus = StatusFinished
	}
	return ResultApplied, cost
}

func applyBuildFarm(gs *GameState, rules Ruleset, player *Player, cell *Cell) (ResultCode, int) {
	if !cell.OwnedBy(player.ID) {
		return ResultNotOwned, 0
	}
	if cell.Building != NoBuilding {
		return ResultOccupied, 0
	}
	cost := rules.FarmCost(gs, player.ID)
	if player.Gold < cost {
		return ResultInsufficientGold, cost
	}
	player.Gold -= cost
	cell.Building = Farm
	return ResultApplied, cost
}

func applyUpgradeDefense(rules Ruleset, player *Player, cell *Cell, requested int) (ResultCode, int) {
	if !cell.OwnedBy(player.ID) {
		return ResultNotOwned, 0
	}
	if cell.Building != NoBuilding {
		return ResultOccupied, 0
	}
	amount, cost := rules.DefenseUpgrade(requested)
	if player.Gold < cost {
		return ResultInsufficientGold, cost
	}
	player.Gold -= cost
	cell.Defense += amount
	return ResultApplied, cost
}
