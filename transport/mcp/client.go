package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/cellwar/game/engine"
	"github.com/wricardo/cellwar/game/service"
)

// ServerName and ServerVersion identify the MCP server to clients
const (
	ServerName    = "Cell War"
	ServerVersion = "1.0.0"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Cell War - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Two players take turns spending gold to capture cells, build farms and fortify
territory on a square grid. Capture the opponent's last cell to win.

AVAILABLE TOOLS:
- create_game: Start a new game (size class, ruleset, saved map, seed)
- get_game: Current state with an ASCII map
- list_games: All live games
- perform_action: CAPTURE, BUILD_FARM or UPGRADE_DEFENSE - requires intent explanation
- end_turn: Collect income and pass the turn
- list_maps: Saved maps usable with create_game
- game_rules: Costs and rules for a ruleset
- describe_cell: Everything about one cell, including what it would cost you

NOTE: The 'intent' parameter on perform_action serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.NewTool("create_game",
		mcp.WithDescription("Create a new game. Players player1 and player2 start with 10 gold."),
		mcp.WithString("type", mcp.Description("Map size class: standard (20x20), large (30x30) or empty"), mcp.Enum("standard", "large", "empty")),
		mcp.WithString("rules", mcp.Description("Ruleset: standard or flat"), mcp.Enum(engine.RuleNames()...)),
		mcp.WithString("map", mcp.Description("Saved map id from list_maps (optional)")),
		mcp.WithNumber("seed", mcp.Description("Seed for reproducible terrain (optional)")),
	), c.handleCreateGame)

	c.mcpServer.AddTool(mcp.NewTool("get_game",
		mcp.WithDescription("Get the current state of a game with an ASCII map"),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game ID")),
	), c.handleGetGame)

	c.mcpServer.AddTool(mcp.NewTool("list_games",
		mcp.WithDescription("List all live games"),
	), c.handleListGames)

	c.mcpServer.AddTool(mcp.NewTool("perform_action",
		mcp.WithDescription("Perform an action for the current player. Rejected actions leave the game unchanged and report why."),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game ID")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Action type"),
			mcp.Enum(string(engine.ActionCapture), string(engine.ActionBuildFarm), string(engine.ActionUpgradeDefense))),
		mcp.WithString("player_id", mcp.Required(), mcp.Description("Acting player, must be the current player")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Cell column (0-based)")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Cell row (0-based)")),
		mcp.WithNumber("amount", mcp.Description("Defense points for UPGRADE_DEFENSE, 1-9 (default 1)")),
		mcp.WithString("intent", mcp.Description("Why you are taking this action")),
	), c.handlePerformAction)

	c.mcpServer.AddTool(mcp.NewTool("end_turn",
		mcp.WithDescription("End the current player's turn: credit farm income and pass to the next player"),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game ID")),
	), c.handleEndTurn)

	c.mcpServer.AddTool(mcp.NewTool("list_maps",
		mcp.WithDescription("List saved maps"),
	), c.handleListMaps)

	c.mcpServer.AddTool(mcp.NewTool("game_rules",
		mcp.WithDescription("Explain the rules and costs of a ruleset"),
		mcp.WithString("rules", mcp.Description("Ruleset name (default standard)"), mcp.Enum(engine.RuleNames()...)),
	), c.handleGameRules)

	c.mcpServer.AddTool(mcp.NewTool("describe_cell",
		mcp.WithDescription("Describe one cell: terrain, owner, defense, building and what the current player would pay to act on it"),
		mcp.WithString("game_id", mcp.Required(), mcp.Description("Game ID")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Cell column (0-based)")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Cell row (0-based)")),
	), c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	_, err := c.do(ctx, method, path, body, result)
	return err
}

// do performs a request and returns the response headers
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) (http.Header, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return resp.Header, fmt.Errorf("%s", msg)
		}
		return resp.Header, fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return resp.Header, json.NewDecoder(resp.Body).Decode(result)
	}

	return resp.Header, nil
}

// Argument helpers. JSON numbers arrive as float64.

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func requireCoords(args map[string]interface{}) (int, int, error) {
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return 0, 0, fmt.Errorf("x and y are required numbers")
	}
	return x, y, nil
}

// Tool handlers

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	opts := service.CreateGameOptions{
		Type:  engine.MapType(stringArg(args, "type")),
		Rules: stringArg(args, "rules"),
		Map:   stringArg(args, "map"),
	}
	if seed, ok := intArg(args, "seed"); ok {
		s := int64(seed)
		opts.Seed = &s
	}
	if opts.Map != "" {
		opts.SeedStart = true
	}

	var resp struct {
		engine.GameState
		GameID string `json:"gameId"`
		Rules  string `json:"rules"`
		Seed   int64  `json:"seed"`
	}
	if err := c.apiCall(ctx, "POST", "/api/game", opts, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created game: %s\nRules: %s | Seed: %d\n\n%s",
		resp.GameID, resp.Rules, resp.Seed, formatGameState(&resp.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID := stringArg(request.GetArguments(), "game_id")
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", "/api/game/"+gameID, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Game: %s\n%s", gameID, formatGameState(&state))), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                   `json:"count"`
		Games []service.GameSummary `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", "/api/games", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Live Games (%d):\n\n", response.Count)
	for _, g := range response.Games {
		fmt.Fprintf(&b, "- %s (%s rules, %dx%d, turn %d, %s, current %s, cells %s, created %s)\n",
			g.ID, g.Rules, g.GridSize, g.GridSize, g.TurnNumber, g.GameStatus, g.CurrentPlayerID,
			formatTerritory(g.Territory), g.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handlePerformAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	gameID := stringArg(args, "game_id")

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = stringArg(args, "intent")

	x, y, err := requireCoords(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := engine.ActionRequest{
		Type:     engine.ActionType(strings.ToUpper(stringArg(args, "type"))),
		PlayerID: stringArg(args, "player_id"),
		Cell:     engine.NewCellRef(x, y),
	}
	if amount, ok := intArg(args, "amount"); ok {
		body.Amount = &amount
	}

	var state engine.GameState
	header, err := c.do(ctx, "POST", "/api/game/"+gameID+"/action", body, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	code := engine.ResultCode(header.Get("X-Action-Result"))
	result := fmt.Sprintf("%s (%d,%d) by %s: %s\n%s\n\n%s",
		body.Type, x, y, body.PlayerID, code, explainResult(code), formatGameState(&state))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleEndTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID := stringArg(request.GetArguments(), "game_id")
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "POST", "/api/game/"+gameID+"/end_turn", nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Turn ended.\n\n" + formatGameState(&state)), nil
}

func (c *Client) handleListMaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var maps []service.MapInfo
	if err := c.apiCall(ctx, "GET", "/api/maps", nil, &maps); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(maps) == 0 {
		return mcp.NewToolResultText("No saved maps. Use create_game with type standard, large or empty."), nil
	}

	var b strings.Builder
	b.WriteString("Available maps:\n\n")
	for _, m := range maps {
		fmt.Fprintf(&b, "- %s: %s (%dx%d", m.MapID, m.Name, m.GridSize, m.GridSize)
		if m.Rules != "" {
			fmt.Fprintf(&b, ", %s rules", m.Rules)
		}
		b.WriteString(")")
		if m.Description != "" {
			fmt.Fprintf(&b, " - %s", m.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules, err := engine.RulesByName(stringArg(request.GetArguments(), "rules"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(describeRules(rules)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	gameID := stringArg(args, "game_id")

	x, y, err := requireCoords(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", "/api/game/"+gameID, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cell, err := state.CellAt(x, y)
	if err != nil {
		size := state.Size()
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid size is %dx%d (0-%d for both x and y)",
			x, y, size, size, size-1)), nil
	}

	rules := c.lookupRules(ctx, gameID)
	return mcp.NewToolResultText(describeCell(&state, rules, cell)), nil
}

// lookupRules finds the ruleset of a game through the listing, defaulting to standard
func (c *Client) lookupRules(ctx context.Context, gameID string) engine.Ruleset {
	var response struct {
		Games []service.GameSummary `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", "/api/games", nil, &response); err == nil {
		for _, g := range response.Games {
			if strings.EqualFold(g.ID, gameID) {
				if rules, err := engine.RulesByName(g.Rules); err == nil {
					return rules
				}
			}
		}
	}
	return engine.StandardRules{}
}

// Formatting

func formatTerritory(territory map[string]int) string {
	parts := make([]string, 0, len(territory))
	for _, id := range []string{"player1", "player2"} {
		if n, ok := territory[id]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", id, n))
		}
	}
	return strings.Join(parts, " ")
}

func formatGameState(state *engine.GameState) string {
	if state == nil || state.Size() == 0 {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turn: %d | Status: %s | Current player: %s\n\n", state.TurnNumber, state.GameStatus, state.CurrentPlayerID)

	b.WriteString("Players:\n")
	for i, id := range state.Players.IDs() {
		p, _ := state.Players.Get(id)
		fmt.Fprintf(&b, "  [%d] %s %s (%s): gold %d, income %d, cells %d, farms %d\n",
			i+1, p.ID, p.Name, p.Color, p.Gold, p.Income, state.CountOwned(id), state.CountFarms(id))
	}

	fmt.Fprintf(&b, "\nMap %dx%d (x across, y down):\n", state.Size(), state.Size())
	for y, row := range engine.RenderASCII(state) {
		fmt.Fprintf(&b, "%3d %s\n", y, row)
	}
	b.WriteString("Legend: " + engine.Legend())

	if state.GameStatus == engine.StatusFinished {
		b.WriteString("\n\nGAME OVER")
	}
	return b.String()
}

func explainResult(code engine.ResultCode) string {
	switch code {
	case engine.ResultApplied:
		return "Action applied."
	case engine.ResultNotYourTurn:
		return "Rejected: it is not this player's turn."
	case engine.ResultImpassable:
		return "Rejected: mountains and water cannot be captured."
	case engine.ResultNotAdjacent:
		return "Rejected: the cell must touch your territory (diagonals count)."
	case engine.ResultAlreadyOwned:
		return "Rejected: you already own this cell."
	case engine.ResultNotOwned:
		return "Rejected: you must own the cell."
	case engine.ResultOccupied:
		return "Rejected: the cell already has a building."
	case engine.ResultInsufficientGold:
		return "Rejected: not enough gold."
	case engine.ResultGameOver:
		return "Rejected: the game is over."
	}
	return "No result reported."
}

func describeRules(rules engine.Ruleset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell War rules (%s)\n\n", rules.Name())
	b.WriteString("Turns: players act in order (player1, then player2). An action by anyone other than the current player does nothing. end_turn credits income and passes the turn; the turn number grows after every full round.\n\n")
	b.WriteString("Terrain: plain and hill can be captured; mountain (^) and water (~) never.\n\n")

	switch rules.(type) {
	case engine.FlatRules:
		fmt.Fprintf(&b, "CAPTURE: %d gold regardless of terrain or owner. Targets must touch your territory (8 directions).\n", engine.FlatCaptureCost)
		fmt.Fprintf(&b, "BUILD_FARM: %d gold on an empty cell you own.\n", engine.FlatFarmCost)
		fmt.Fprintf(&b, "UPGRADE_DEFENSE: %d gold for +1 defense on an empty cell you own.\n", engine.FlatDefenseCost)
		b.WriteString("Start: one capital per player with defense 10.\n")
	default:
		b.WriteString("CAPTURE: 1 gold, +defense when the cell belongs to the opponent, +1 on hills. Targets must touch your territory (8 directions).\n")
		b.WriteString("BUILD_FARM: 1 gold, +1 for every 10 farms you already own. Empty cell you own.\n")
		fmt.Fprintf(&b, "UPGRADE_DEFENSE: amount %d-%d (anything else counts as 1), costs the amount. Empty cell you own.\n", engine.MinDefenseUpgrade, engine.MaxDefenseUpgrade)
		b.WriteString("Start: a 3x3 block per player.\n")
	}

	b.WriteString("Income: 1 gold per farm, paid when you end your turn.\n")
	b.WriteString("Victory: capture the opponent's last cell.\n")
	fmt.Fprintf(&b, "\nMap legend: %s", engine.Legend())
	return b.String()
}

func describeCell(state *engine.GameState, rules engine.Ruleset, cell *engine.Cell) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell (%d,%d)\n", cell.X, cell.Y)
	fmt.Fprintf(&b, "Terrain: %s (%c)\n", cell.Type, engine.TerrainGlyph(cell.Type))

	owner := "none"
	if cell.OwnerID != "" {
		owner = cell.OwnerID
	}
	fmt.Fprintf(&b, "Owner: %s\n", owner)
	fmt.Fprintf(&b, "Defense: %d\n", cell.Defense)
	building := "none"
	if cell.Building != engine.NoBuilding {
		building = string(cell.Building)
	}
	fmt.Fprintf(&b, "Building: %s\n", building)

	current := state.CurrentPlayerID
	player, ok := state.Players.Get(current)
	if !ok {
		return b.String()
	}

	fmt.Fprintf(&b, "\nFor %s (gold %d, %s rules):\n", current, player.Gold, rules.Name())
	switch {
	case cell.Type.Impassable():
		b.WriteString("- CAPTURE: impossible, terrain is impassable\n")
	case cell.OwnedBy(current):
		b.WriteString("- CAPTURE: you already own it\n")
	default:
		cost := rules.CaptureCost(cell, current)
		adjacent := state.CountOwned(current) == 0 || state.IsAdjacentToTerritory(cell.X, cell.Y, current)
		fmt.Fprintf(&b, "- CAPTURE: %d gold, adjacent to your territory: %t\n", cost, adjacent)
	}

	if cell.OwnedBy(current) && cell.Building == engine.NoBuilding {
		fmt.Fprintf(&b, "- BUILD_FARM: %d gold\n", rules.FarmCost(state, current))
		amount, cost := rules.DefenseUpgrade(1)
		fmt.Fprintf(&b, "- UPGRADE_DEFENSE: +%d for %d gold\n", amount, cost)
	}
	return b.String()
}
