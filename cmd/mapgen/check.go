package main

import (
	"fmt"
	"path/filepath"

	"github.com/wricardo/cellwar/game/engine"
	"github.com/wricardo/cellwar/game/maps"
)

// CheckResult captures the outcome of checking a single map file.
// Notes holds informational lines when Valid, and the problems otherwise.
type CheckResult struct {
	File  string
	Valid bool
	Notes []string
}

func (r *CheckResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

func (r *CheckResult) info(format string, args ...interface{}) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// checkMapFile loads a map file and checks that a game started on it can be won
func checkMapFile(path string) CheckResult {
	result := CheckResult{File: filepath.Base(path), Valid: true}

	tmpl, err := maps.ReadFile(path)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	rules, err := engine.RulesByName(tmpl.Rules)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	ids := playerIDs()
	grid := tmpl.Cells
	state := engine.NewGameState(grid, engine.DefaultPlayers()...)
	seeded := false
	if state.CountOwned(ids[0]) == 0 && state.CountOwned(ids[1]) == 0 {
		grid = engine.CloneGrid(tmpl.Cells)
		if err := rules.SeedStart(grid, ids); err != nil {
			result.fail("cannot seed starting territory: %v", err)
			return result
		}
		state = engine.NewGameState(grid, engine.DefaultPlayers()...)
		seeded = true
	}

	for _, id := range ids {
		if state.CountOwned(id) == 0 {
			result.fail("%s starts without territory", id)
		}
	}
	if !result.Valid {
		return result
	}

	if !connected(state, ids[0], ids[1]) {
		result.fail("%s cannot reach %s over capturable terrain", ids[0], ids[1])
		return result
	}

	result.info("Name: %s", tmpl.Name)
	result.info("Grid: %dx%d", state.Size(), state.Size())
	result.info("Rules: %s", rules.Name())
	if seeded {
		result.info("Starting territory placed at game creation")
	}
	result.info("Connectivity: %s can reach %s", ids[0], ids[1])
	return result
}

// connected flood-fills from from's territory across capturable cells and
// reports whether it touches to's territory
func connected(state *engine.GameState, from, to string) bool {
	size := state.Size()
	visited := make([][]bool, size)
	for x := range visited {
		visited[x] = make([]bool, size)
	}

	var queue []*engine.Cell
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if state.Cells[x][y].OwnedBy(from) {
				visited[x][y] = true
				queue = append(queue, &state.Cells[x][y])
			}
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.OwnedBy(to) {
			return true
		}
		for _, n := range state.Neighbors(current.X, current.Y) {
			if visited[n.X][n.Y] || n.Type.Impassable() {
				continue
			}
			visited[n.X][n.Y] = true
			queue = append(queue, n)
		}
	}
	return false
}

func playerIDs() []string {
	players := engine.DefaultPlayers()
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

// MapStats summarizes the terrain and ownership of a grid
type MapStats struct {
	Size       int
	Terrain    map[engine.CellType]int
	Capturable int
	Owned      map[string]int
	Farms      map[string]int
}

func analyzeGrid(grid [][]engine.Cell) MapStats {
	state := engine.NewGameState(grid, engine.DefaultPlayers()...)
	stats := MapStats{
		Size:    state.Size(),
		Terrain: map[engine.CellType]int{},
		Owned:   map[string]int{},
		Farms:   map[string]int{},
	}
	for _, t := range []engine.CellType{engine.Plain, engine.Hill, engine.Mountain, engine.Water} {
		stats.Terrain[t] = engine.CountCellType(grid, t)
		if !t.Impassable() {
			stats.Capturable += stats.Terrain[t]
		}
	}
	for _, id := range playerIDs() {
		stats.Owned[id] = state.CountOwned(id)
		stats.Farms[id] = state.CountFarms(id)
	}
	return stats
}
