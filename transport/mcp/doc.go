// Package mcp exposes Cell War to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, so an agent plays the same games a browser or a script does.
//
// MCP Tools:
//   - create_game: Start a game (type, rules, map, seed)
//   - get_game: Current state with an ASCII map and player economy
//   - list_games: All live games
//   - perform_action: CAPTURE, BUILD_FARM or UPGRADE_DEFENSE for the current player
//   - end_turn: Credit income and pass the turn
//   - list_maps: Saved maps
//   - game_rules: Costs and victory condition of a ruleset
//   - describe_cell: One cell plus what the current player would pay to act on it
//
// A rejected action is not a tool error. The result names the outcome code
// (not_your_turn, insufficient_gold, ...) and shows the unchanged state.
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the main server mounts the same MCP server at /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
