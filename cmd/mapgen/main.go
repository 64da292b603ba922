// Command mapgen generates, renders and checks Cell War map files.
//
//	mapgen generate --type large --seed 42 --out maps/big.json
//	mapgen generate --rules flat --save duel --maps-dir maps
//	mapgen render maps/big.json
//	mapgen analyze maps/*.json
//	mapgen validate maps/*.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/cellwar/game/engine"
	"github.com/wricardo/cellwar/game/maps"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Fatal("mapgen failed")
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "mapgen",
		Usage:  "generate and check Cell War maps",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "generate a map and print, write or save it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: string(engine.MapStandard), Usage: "size class: standard, large or empty"},
					&cli.StringFlag{Name: "rules", Value: engine.RulesStandard, Usage: "ruleset that places the starting territory"},
					&cli.Int64Flag{Name: "seed", Usage: "terrain seed (default: current time)"},
					&cli.StringFlag{Name: "name", Usage: "map name"},
					&cli.StringFlag{Name: "description", Usage: "map description"},
					&cli.BoolFlag{Name: "unseeded", Usage: "leave the grid without starting territory"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write the map to this file"},
					&cli.StringFlag{Name: "save", Usage: "save the map under this id in the map library"},
					&cli.StringFlag{Name: "maps-dir", Value: "maps", Usage: "map library directory", Sources: cli.EnvVars("CELLWAR_MAPS_DIR")},
				},
				Action: runGenerate,
			},
			{
				Name:      "render",
				Usage:     "draw a map file as ASCII",
				ArgsUsage: "FILE",
				Action:    runRender,
			},
			{
				Name:      "analyze",
				Usage:     "print terrain and territory statistics",
				ArgsUsage: "FILE...",
				Action:    runAnalyze,
			},
			{
				Name:      "validate",
				Usage:     "check that map files load and that both players can reach each other",
				ArgsUsage: "FILE...",
				Action:    runValidate,
			},
		},
	}
}

func runGenerate(ctx context.Context, cmd *cli.Command) error {
	mapType := engine.MapType(cmd.String("type"))
	switch mapType {
	case engine.MapStandard, engine.MapLarge, engine.MapEmpty:
	default:
		return fmt.Errorf("unknown map type %q", mapType)
	}

	rules, err := engine.RulesByName(cmd.String("rules"))
	if err != nil {
		return err
	}

	seed := cmd.Int64("seed")
	if !cmd.IsSet("seed") {
		seed = time.Now().UnixNano()
	}

	grid, err := engine.BuildMap(engine.MapOptions{Type: mapType}, rules, playerIDs(), engine.NewRand(seed))
	if err != nil {
		return err
	}
	if cmd.Bool("unseeded") {
		for x := range grid {
			for y := range grid[x] {
				grid[x][y].OwnerID = ""
				grid[x][y].Defense = 0
			}
		}
	}

	name := cmd.String("name")
	if name == "" {
		name = fmt.Sprintf("%s-%d", mapType, seed)
	}
	tmpl := &engine.MapTemplate{
		Name:        name,
		Description: cmd.String("description"),
		Rules:       rules.Name(),
		Cells:       grid,
	}

	w := cmd.Root().Writer
	switch {
	case cmd.String("save") != "":
		library, err := maps.NewManager(cmd.String("maps-dir"))
		if err != nil {
			return err
		}
		if err := library.Save(cmd.String("save"), tmpl); err != nil {
			return err
		}
		fmt.Fprintf(w, "saved %s (seed %d) to %s\n", cmd.String("save"), seed, library.Dir())
		return nil

	case cmd.String("out") != "":
		data, err := json.MarshalIndent(tmpl, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(cmd.String("out"), data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %s (seed %d)\n", cmd.String("out"), seed)
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tmpl)
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("render needs a map file")
	}

	tmpl, err := maps.ReadFile(path)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	state := engine.NewGameState(tmpl.Cells, engine.DefaultPlayers()...)
	fmt.Fprintf(w, "%s (%dx%d)\n", tmpl.Name, state.Size(), state.Size())
	for _, row := range engine.RenderASCII(state) {
		fmt.Fprintln(w, row)
	}
	fmt.Fprintln(w, engine.Legend())
	return nil
}

func runAnalyze(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("analyze needs at least one map file")
	}

	w := cmd.Root().Writer
	for _, path := range paths {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", path)

		tmpl, err := maps.ReadFile(path)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			continue
		}

		stats := analyzeGrid(tmpl.Cells)
		total := stats.Size * stats.Size
		fmt.Fprintf(w, "Name: %s\n", tmpl.Name)
		fmt.Fprintf(w, "Grid Size: %d x %d\n", stats.Size, stats.Size)
		for _, t := range []engine.CellType{engine.Plain, engine.Hill, engine.Mountain, engine.Water} {
			fmt.Fprintf(w, "%-9s %4d (%.1f%%)\n", string(t)+":", stats.Terrain[t], percent(stats.Terrain[t], total))
		}
		fmt.Fprintf(w, "Capturable: %d of %d\n", stats.Capturable, total)
		for _, id := range playerIDs() {
			fmt.Fprintf(w, "%s: %d cells, %d farms\n", id, stats.Owned[id], stats.Farms[id])
		}
	}
	return nil
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("validate needs at least one map file")
	}

	w := cmd.Root().Writer
	invalid := 0
	for _, path := range paths {
		result := checkMapFile(path)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "VALID")
		} else {
			fmt.Fprintln(w, "INVALID")
			invalid++
		}
		for _, note := range result.Notes {
			fmt.Fprintln(w, "  "+note)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if invalid > 0 {
		return fmt.Errorf("%d of %d maps are invalid", invalid, len(paths))
	}
	fmt.Fprintln(w, "All maps are valid")
	return nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
