package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/cellwar/game/engine"
	"github.com/wricardo/cellwar/game/maps"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(&out)
	app.ErrWriter = &out
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}
	err := app.Run(context.Background(), append([]string{"mapgen"}, args...))
	return out.String(), err
}

func writeMap(t *testing.T, dir, name string, tmpl *engine.MapTemplate) string {
	t.Helper()
	data, err := json.Marshal(tmpl)
	if err != nil {
		t.Fatalf("marshal map: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write map: %v", err)
	}
	return path
}

func TestGenerate_Stdout(t *testing.T) {
	out, err := run(t, "generate", "--type", "empty", "--seed", "42")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	var tmpl engine.MapTemplate
	if err := json.Unmarshal([]byte(out), &tmpl); err != nil {
		t.Fatalf("output is not a map: %v\n%s", err, out)
	}
	if tmpl.Name != "empty-42" {
		t.Errorf("Expected default name empty-42, got %q", tmpl.Name)
	}
	if tmpl.Rules != engine.RulesStandard {
		t.Errorf("Expected standard rules, got %q", tmpl.Rules)
	}
	if len(tmpl.Cells) != engine.StandardGridSize {
		t.Fatalf("Expected %d columns, got %d", engine.StandardGridSize, len(tmpl.Cells))
	}

	state := engine.NewGameState(tmpl.Cells, engine.DefaultPlayers()...)
	if n := state.CountOwned("player1"); n != 9 {
		t.Errorf("Expected a 3x3 starting block, got %d cells", n)
	}
}

func TestGenerate_SeedIsReproducible(t *testing.T) {
	first, err := run(t, "generate", "--seed", "7")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	second, err := run(t, "generate", "--seed", "7")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if first != second {
		t.Error("Expected identical maps for the same seed")
	}
}

func TestGenerate_Errors(t *testing.T) {
	if _, err := run(t, "generate", "--type", "huge"); err == nil {
		t.Error("Expected error for unknown map type")
	}
	if _, err := run(t, "generate", "--rules", "chess"); err == nil {
		t.Error("Expected error for unknown rules")
	}
}

func TestGenerate_Save(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "generate", "--rules", "flat", "--seed", "3", "--save", "duel", "--maps-dir", dir, "--description", "two capitals")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.Contains(out, "saved duel (seed 3)") {
		t.Errorf("Expected save confirmation, got: %s", out)
	}

	library, err := maps.NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	tmpl, err := library.Load("duel")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tmpl.Rules != engine.RulesFlat || tmpl.Description != "two capitals" {
		t.Errorf("Unexpected saved map: rules %q, description %q", tmpl.Rules, tmpl.Description)
	}
	if c := tmpl.Cells[2][2]; c.OwnerID != "player1" || c.Defense != 10 {
		t.Errorf("Expected player1 capital at (2,2), got %+v", c)
	}
}

func TestGenerate_OutThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.json")

	if _, err := run(t, "generate", "--type", "empty", "--seed", "1", "--unseeded", "--out", path); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	tmpl, err := maps.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	state := engine.NewGameState(tmpl.Cells, engine.DefaultPlayers()...)
	if state.CountOwned("player1") != 0 || state.CountOwned("player2") != 0 {
		t.Error("Expected an unseeded grid")
	}

	out, err := run(t, "validate", path)
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	for _, want := range []string{"VALID", "Starting territory placed at game creation", "All maps are valid"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got: %s", want, out)
		}
	}
}

func TestValidate_SeparatedPlayers(t *testing.T) {
	dir := t.TempDir()
	grid := engine.NewGrid(10)
	for y := 0; y < 10; y++ {
		grid[5][y].Type = engine.Water
	}
	path := writeMap(t, dir, "moat.json", &engine.MapTemplate{Name: "moat", Cells: grid})

	out, err := run(t, "validate", path)
	if err == nil {
		t.Fatal("Expected validate to fail")
	}
	if !strings.Contains(out, "INVALID") || !strings.Contains(out, "player1 cannot reach player2") {
		t.Errorf("Expected connectivity failure, got: %s", out)
	}
}

func TestValidate_TooSmallToSeed(t *testing.T) {
	path := writeMap(t, t.TempDir(), "tiny.json", &engine.MapTemplate{Name: "tiny", Cells: engine.NewGrid(5)})

	out, err := run(t, "validate", path)
	if err == nil {
		t.Fatal("Expected validate to fail")
	}
	if !strings.Contains(out, "cannot seed starting territory") {
		t.Errorf("Expected seeding failure, got: %s", out)
	}
}

func TestValidate_MissingFile(t *testing.T) {
	out, err := run(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Expected validate to fail")
	}
	if !strings.Contains(out, "INVALID") {
		t.Errorf("Expected INVALID, got: %s", out)
	}
}

func TestRender(t *testing.T) {
	grid := engine.NewGrid(8)
	grid[0][0].Type = engine.Mountain
	grid[1][0].OwnerID = "player1"
	grid[1][0].Building = engine.Farm
	path := writeMap(t, t.TempDir(), "small.json", &engine.MapTemplate{Name: "small", Cells: grid})

	out, err := run(t, "render", path)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "small (8x8)" {
		t.Errorf("Expected header, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "^ 1F") {
		t.Errorf("Expected mountain then player1 farm in the first row, got %q", lines[1])
	}
	if lines[len(lines)-1] != engine.Legend() {
		t.Errorf("Expected legend last, got %q", lines[len(lines)-1])
	}

	if _, err := run(t, "render"); err == nil {
		t.Error("Expected error without a file")
	}
}

func TestAnalyze(t *testing.T) {
	grid := engine.NewGrid(10)
	grid[4][4].Type = engine.Water
	grid[5][5].Type = engine.Hill
	grid[1][1].OwnerID = "player2"
	path := writeMap(t, t.TempDir(), "stats.json", &engine.MapTemplate{Name: "stats", Cells: grid})

	out, err := run(t, "analyze", path)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	for _, want := range []string{"Name: stats", "Grid Size: 10 x 10", "Capturable: 99 of 100", "player2: 1 cells, 0 farms"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got: %s", want, out)
		}
	}
}

func TestAnalyzeGrid(t *testing.T) {
	grid := engine.NewGrid(8)
	grid[0][0].Type = engine.Mountain
	grid[2][3].OwnerID = "player1"
	grid[2][3].Building = engine.Farm

	stats := analyzeGrid(grid)
	if stats.Size != 8 {
		t.Errorf("Expected size 8, got %d", stats.Size)
	}
	if stats.Terrain[engine.Plain] != 63 || stats.Terrain[engine.Mountain] != 1 {
		t.Errorf("Unexpected terrain counts: %v", stats.Terrain)
	}
	if stats.Capturable != 63 {
		t.Errorf("Expected 63 capturable cells, got %d", stats.Capturable)
	}
	if stats.Owned["player1"] != 1 || stats.Farms["player1"] != 1 {
		t.Errorf("Unexpected ownership: %v %v", stats.Owned, stats.Farms)
	}
}
