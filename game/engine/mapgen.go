package engine

import (
	"fmt"
	"math/rand/v2"
)

// MapType selects the size class of a generated map
type MapType string

const (
	MapStandard MapType = "standard"
	MapLarge    MapType = "large"
	MapEmpty    MapType = "empty"
)

const (
	mountainDensity  = 0.75
	riverShiftChance = 0.3

	capitalDefense = 10
)

// MapOptions describes where the initial grid comes from. Data, when set, is
// used verbatim and Type is ignored.
type MapOptions struct {
	Type MapType
	Data [][]Cell

	// SeedStart applies the ruleset's starting territory to imported data.
	// Generated maps are always seeded.
	SeedStart bool
}

// GridSizeFor returns the side length for a size class. Unknown classes get the standard size.
func GridSizeFor(t MapType) int {
	if t == MapLarge {
		return LargeGridSize
	}
	return StandardGridSize
}

// NewRand returns a generator whose sequence is fixed by seed
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

// GenerateTerrain builds a size x size grid with scattered mountains and one river
func GenerateTerrain(size int, rng *rand.Rand) [][]Cell {
	grid := NewGrid(size)
	PlaceMountains(grid, rng)
	CarveRiver(grid, rng)
	return grid
}

// PlaceMountains drops floor(0.75*N) mountains at random cells. Placements may
// land on the same cell, so the final count can be lower.
func PlaceMountains(grid [][]Cell, rng *rand.Rand) {
	size := len(grid)
	if size == 0 {
		return
	}
	n := int(mountainDensity * float64(size))
	for i := 0; i < n; i++ {
		x, y := rng.IntN(size), rng.IntN(size)
		grid[x][y].Type = Mountain
	}
}

// CarveRiver walks a meandering water channel across every column. Grids
// smaller than MinRiverGridSize get no river.
func CarveRiver(grid [][]Cell, rng *rand.Rand) {
	size := len(grid)
	if size < MinRiverGridSize {
		return
	}
	riverY := 5 + rng.IntN(size-10)
	for x := 0; x < size; x++ {
		if grid[x][riverY].Type == Plain {
			grid[x][riverY].Type = Water
		}
		if rng.Float64() < riverShiftChance {
			if rng.IntN(2) == 0 {
				riverY--
			} else {
				riverY++
			}
			riverY = max(0, min(size-1, riverY))
		}
	}
}

// SeedBlocks gives the first player the 3x3 block at (1,1) and the second the
// block at (N-4,N-4), clearing both to plain.
func SeedBlocks(grid [][]Cell, playerIDs []string) error {
	size := len(grid)
	if len(playerIDs) != 2 {
		return fmt.Errorf("%w: starting blocks need exactly 2 players, got %d", ErrInvalidMap, len(playerIDs))
	}
	if size < 8 {
		return fmt.Errorf("%w: starting blocks need a grid of at least 8, got %d", ErrInvalidMap, size)
	}
	corners := []int{1, size - 4}
	for i, id := range playerIDs {
		for dx := 0; dx < 3; dx++ {
			for dy := 0; dy < 3; dy++ {
				c := &grid[corners[i]+dx][corners[i]+dy]
				c.OwnerID = id
				c.Type = Plain
			}
		}
	}
	return nil
}

// SeedCapitals gives each player one plain capital with defense 10, at (2,2)
// and (N-3,N-3).
func SeedCapitals(grid [][]Cell, playerIDs []string) error {
	size := len(grid)
	if len(playerIDs) != 2 {
		return fmt.Errorf("%w: capitals need exactly 2 players, got %d", ErrInvalidMap, len(playerIDs))
	}
	if size < 6 {
		return fmt.Errorf("%w: capitals need a grid of at least 6, got %d", ErrInvalidMap, size)
	}
	spots := []int{2, size - 3}
	for i, id := range playerIDs {
		c := &grid[spots[i]][spots[i]]
		c.OwnerID = id
		c.Type = Plain
		c.Defense = capitalDefense
	}
	return nil
}

// BuildMap produces the starting grid for a new game: either the imported data
// (validated, seeded only on request) or a generated map seeded by rules.
func BuildMap(opts MapOptions, rules Ruleset, playerIDs []string, rng *rand.Rand) ([][]Cell, error) {
	if opts.Data != nil {
		grid := CloneGrid(opts.Data)
		if err := ValidateGrid(grid, playerIDs); err != nil {
			return nil, err
		}
		if opts.SeedStart {
			if err := rules.SeedStart(grid, playerIDs); err != nil {
				return nil, &ValidationError{Field: "data", Reason: "cannot seed starting territory", Err: err}
			}
		}
		return grid, nil
	}

	size := GridSizeFor(opts.Type)
	var grid [][]Cell
	if opts.Type == MapEmpty {
		grid = NewGrid(size)
	} else {
		grid = GenerateTerrain(size, rng)
	}
	if err := rules.SeedStart(grid, playerIDs); err != nil {
		return nil, err
	}
	return grid, nil
}

// ValidateGrid checks an imported grid: square, dense, coordinates matching
// positions, known terrain and buildings, and owners drawn from playerIDs.
// A nil playerIDs skips the owner check.
func ValidateGrid(grid [][]Cell, playerIDs []string) error {
	size := len(grid)
	if size == 0 {
		return invalidMap("grid is empty")
	}
	if size > MaxGridSize {
		return invalidMap(fmt.Sprintf("grid size %d exceeds %d", size, MaxGridSize))
	}

	known := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		known[id] = true
	}

	for x, col := range grid {
		if len(col) != size {
			return invalidMap(fmt.Sprintf("row %d has %d cells, want %d", x, len(col), size))
		}
		for y, c := range col {
			if c.X != x || c.Y != y {
				return invalidMap(fmt.Sprintf("cell at [%d][%d] claims coordinates (%d,%d)", x, y, c.X, c.Y))
			}
			if !c.Type.Valid() {
				return invalidMap(fmt.Sprintf("cell (%d,%d) has unknown type %q", x, y, c.Type))
			}
			if c.Building != NoBuilding && c.Building != Farm {
				return invalidMap(fmt.Sprintf("cell (%d,%d) has unknown building %q", x, y, c.Building))
			}
			if c.Defense < 0 {
				return invalidMap(fmt.Sprintf("cell (%d,%d) has negative defense", x, y))
			}
			if playerIDs != nil && c.OwnerID != "" && !known[c.OwnerID] {
				return invalidMap(fmt.Sprintf("cell (%d,%d) is owned by unknown player %q", x, y, c.OwnerID))
			}
		}
	}
	return nil
}

func invalidMap(reason string) error {
	return &ValidationError{Field: "data", Reason: reason, Err: ErrInvalidMap}
}
