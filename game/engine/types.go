package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CellType represents the terrain of a grid cell
type CellType string

const (
	Plain    CellType = "plain"
	Mountain CellType = "mountain"
	Water    CellType = "water"
	Hill     CellType = "hill"
)

// Impassable reports whether the terrain can never be captured
func (t CellType) Impassable() bool {
	return t == Mountain || t == Water
}

// Valid reports whether t is a known terrain type
func (t CellType) Valid() bool {
	switch t {
	case Plain, Mountain, Water, Hill:
		return true
	}
	return false
}

// BuildingType represents a structure placed on a cell
type BuildingType string

const (
	NoBuilding BuildingType = ""
	Farm       BuildingType = "farm"
)

// GameStatus is the lifecycle phase of a game
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusActive   GameStatus = "active"
	StatusFinished GameStatus = "finished"
)

const (
	StandardGridSize = 20
	LargeGridSize    = 30
	MaxGridSize      = 100
	StartingGold     = 10

	// Rivers need room for a start row in [5, N-6]
	MinRiverGridSize = 11
)

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Player is a participant in a game
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Gold   int    `json:"gold"`
	Income int    `json:"income"`
}

// Cell represents a single grid tile. OwnerID and Building are empty when unset
// and serialize as null.
type Cell struct {
	X        int
	Y        int
	OwnerID  string
	Type     CellType
	Building BuildingType
	Defense  int
}

// cellJSON is the wire shape of a cell
type cellJSON struct {
	X        *int          `json:"x"`
	Y        *int          `json:"y"`
	OwnerID  *string       `json:"ownerId"`
	Type     CellType      `json:"type"`
	Building *BuildingType `json:"building"`
	Defense  int           `json:"defense"`
}

// MarshalJSON implements json.Marshaler
func (c Cell) MarshalJSON() ([]byte, error) {
	x, y := c.X, c.Y
	out := cellJSON{X: &x, Y: &y, Type: c.Type, Defense: c.Defense}
	if out.Type == "" {
		out.Type = Plain
	}
	if c.OwnerID != "" {
		owner := c.OwnerID
		out.OwnerID = &owner
	}
	if c.Building != NoBuilding {
		b := c.Building
		out.Building = &b
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Only x and y are required;
// everything else takes the defaults of a fresh plain cell.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var in cellJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.X == nil || in.Y == nil {
		return &ValidationError{Field: "cell", Reason: "descriptor must include x and y"}
	}
	*c = Cell{X: *in.X, Y: *in.Y, Type: in.Type, Defense: in.Defense}
	if c.Type == "" {
		c.Type = Plain
	}
	if in.OwnerID != nil {
		c.OwnerID = *in.OwnerID
	}
	if in.Building != nil {
		c.Building = *in.Building
	}
	return nil
}

// OwnedBy reports whether the cell belongs to playerID
func (c *Cell) OwnedBy(playerID string) bool {
	return playerID != "" && c.OwnerID == playerID
}

// Roster holds the players of a game in turn order
type Roster struct {
	order []string
	byID  map[string]*Player
}

// NewRoster builds a roster with players in the given turn order
func NewRoster(players ...*Player) Roster {
	var r Roster
	for _, p := range players {
		r.Add(p)
	}
	return r
}

// Add appends a player to the turn order, or replaces an existing entry in place
func (r *Roster) Add(p *Player) {
	if r.byID == nil {
		r.byID = make(map[string]*Player)
	}
	if _, exists := r.byID[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.byID[p.ID] = p
}

// Get returns the player with the given ID
func (r *Roster) Get(id string) (*Player, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// IDs returns player IDs in turn order
func (r *Roster) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of players
func (r *Roster) Len() int {
	return len(r.order)
}

// indexOf returns the turn position of id, or -1
func (r *Roster) indexOf(id string) int {
	for i, pid := range r.order {
		if pid == id {
			return i
		}
	}
	return -1
}

// MarshalJSON writes players as an object keyed by ID, in turn order
func (r Roster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a players object, keeping the key order as turn order
func (r *Roster) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Roster{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("players: expected object, got %v", tok)
	}

	var out Roster
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("players: expected string key, got %v", tok)
		}
		var p Player
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("players[%s]: %w", key, err)
		}
		if p.ID == "" {
			p.ID = key
		}
		out.Add(&p)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}

// GameState represents the complete game state. Cells are indexed cells[x][y].
type GameState struct {
	Players         Roster     `json:"players"`
	Cells           [][]Cell   `json:"cells"`
	CurrentPlayerID string     `json:"currentPlayerId"`
	TurnNumber      int        `json:"turnNumber"`
	GameStatus      GameStatus `json:"gameStatus"`
}

// NewGameState assembles an active game over grid with players in turn order.
// The first player starts.
func NewGameState(grid [][]Cell, players ...*Player) *GameState {
	gs := &GameState{
		Players:    NewRoster(players...),
		Cells:      grid,
		GameStatus: StatusActive,
	}
	if len(players) > 0 {
		gs.CurrentPlayerID = players[0].ID
	}
	return gs
}

// CurrentPlayer returns the player whose turn it is
func (gs *GameState) CurrentPlayer() (*Player, bool) {
	return gs.Players.Get(gs.CurrentPlayerID)
}

// Clone returns a deep copy, safe to serialize outside the game's lock
func (gs *GameState) Clone() *GameState {
	out := &GameState{
		Cells:           CloneGrid(gs.Cells),
		CurrentPlayerID: gs.CurrentPlayerID,
		TurnNumber:      gs.TurnNumber,
		GameStatus:      gs.GameStatus,
	}
	for _, id := range gs.Players.order {
		p := *gs.Players.byID[id]
		out.Players.Add(&p)
	}
	return out
}

// MapTemplate is a named, reusable grid such as one produced by a map editor
type MapTemplate struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Rules       string   `json:"rules,omitempty"`
	Cells       [][]Cell `json:"cells"`
}

// DefaultPlayers returns the two players every new game starts with
func DefaultPlayers() []*Player {
	return []*Player{
		{ID: "player1", Name: "Player 1", Color: "blue", Gold: StartingGold},
		{ID: "player2", Name: "Player 2", Color: "red", Gold: StartingGold},
	}
}
