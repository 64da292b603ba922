package engine

// TurnSummary records what EndTurn did
type TurnSummary struct {
	PlayerID     string `json:"playerId"`
	Income       int    `json:"income"`
	NextPlayerID string `json:"nextPlayerId"`
	NewRound     bool   `json:"newRound"`
}

// EndTurn credits the current player's income, passes the turn to the next
// player in roster order and bumps TurnNumber when the order wraps around.
// A finished game is left unchanged.
func EndTurn(gs *GameState, rules Ruleset) TurnSummary {
	summary := TurnSummary{PlayerID: gs.CurrentPlayerID, NextPlayerID: gs.CurrentPlayerID}
	if gs.GameStatus == StatusFinished || gs.Players.Len() == 0 {
		return summary
	}

	if player, ok := gs.CurrentPlayer(); ok {
		income := rules.Income(gs, player.ID)
		player.Gold += income
		player.Income = income
		summary.Income = income
	}

	next := (gs.Players.indexOf(gs.CurrentPlayerID) + 1) % gs.Players.Len()
	gs.CurrentPlayerID = gs.Players.order[next]
	if next == 0 {
		gs.TurnNumber++
		summary.NewRound = true
	}
	summary.NextPlayerID = gs.CurrentPlayerID
	return summary
}
