package engine

import (
	"encoding/json"
	"fmt"
)

// ActionType names an action kind on the wire
type ActionType string

const (
	ActionCapture        ActionType = "CAPTURE"
	ActionBuildFarm      ActionType = "BUILD_FARM"
	ActionUpgradeDefense ActionType = "UPGRADE_DEFENSE"
)

// Action is a player move. The set of implementations is closed: Capture,
// BuildFarm and UpgradeDefense.
type Action interface {
	Kind() ActionType
	Actor() string
	Target() Position
	action()
}

// Capture takes ownership of a cell
type Capture struct {
	PlayerID string
	Cell     Position
}

// BuildFarm places a farm on an owned, empty cell
type BuildFarm struct {
	PlayerID string
	Cell     Position
}

// UpgradeDefense fortifies an owned, empty cell. Amount is clamped by the ruleset.
type UpgradeDefense struct {
	PlayerID string
	Cell     Position
	Amount   int
}

func (a Capture) Kind() ActionType        { return ActionCapture }
func (a Capture) Actor() string           { return a.PlayerID }
func (a Capture) Target() Position        { return a.Cell }
func (Capture) action()                   {}
func (a BuildFarm) Kind() ActionType      { return ActionBuildFarm }
func (a BuildFarm) Actor() string         { return a.PlayerID }
func (a BuildFarm) Target() Position      { return a.Cell }
func (BuildFarm) action()                 {}
func (a UpgradeDefense) Kind() ActionType { return ActionUpgradeDefense }
func (a UpgradeDefense) Actor() string    { return a.PlayerID }
func (a UpgradeDefense) Target() Position { return a.Cell }
func (UpgradeDefense) action()            {}

// ActionRequest is the wire shape of an action:
//
//	{"type": "CAPTURE", "playerId": "player1", "cell": {"x": 4, "y": 2}, "amount": 3}
type ActionRequest struct {
	Type     ActionType `json:"type"`
	PlayerID string     `json:"playerId"`
	Cell     *CellRef   `json:"cell"`
	Amount   *int       `json:"amount,omitempty"`
}

// CellRef is the wire form of a target cell. Both coordinates must be present.
type CellRef struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// NewCellRef builds a CellRef pointing at (x, y)
func NewCellRef(x, y int) *CellRef {
	return &CellRef{X: &x, Y: &y}
}

// Decode turns the request into a typed Action. Missing type, playerId or cell
// and unknown types are ValidationErrors.
func (r ActionRequest) Decode() (Action, error) {
	if r.Type == "" {
		return nil, &ValidationError{Field: "type", Reason: "is required"}
	}
	if r.PlayerID == "" {
		return nil, &ValidationError{Field: "playerId", Reason: "is required"}
	}
	if r.Cell == nil {
		return nil, &ValidationError{Field: "cell", Reason: "is required"}
	}
	if r.Cell.X == nil || r.Cell.Y == nil {
		return nil, &ValidationError{Field: "cell", Reason: "x and y are required"}
	}
	pos := Position{X: *r.Cell.X, Y: *r.Cell.Y}

	switch r.Type {
	case ActionCapture:
		return Capture{PlayerID: r.PlayerID, Cell: pos}, nil
	case ActionBuildFarm:
		return BuildFarm{PlayerID: r.PlayerID, Cell: pos}, nil
	case ActionUpgradeDefense:
		amount := MinDefenseUpgrade
		if r.Amount != nil {
			amount = *r.Amount
		}
		return UpgradeDefense{PlayerID: r.PlayerID, Cell: pos, Amount: amount}, nil
	default:
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown action %q", r.Type)}
	}
}

// EncodeAction is the inverse of Decode
func EncodeAction(a Action) ActionRequest {
	cell := a.Target()
	req := ActionRequest{Type: a.Kind(), PlayerID: a.Actor(), Cell: NewCellRef(cell.X, cell.Y)}
	if up, ok := a.(UpgradeDefense); ok {
		amount := up.Amount
		req.Amount = &amount
	}
	return req
}

// DecodeAction parses a JSON action payload
func DecodeAction(data []byte) (Action, error) {
	var req ActionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &ValidationError{Field: "action", Reason: "malformed JSON", Err: err}
	}
	return req.Decode()
}
