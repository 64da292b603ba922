package engine

import "fmt"

// neighborOffsets lists the 8 surrounding directions
var neighborOffsets = []struct{ dx, dy int }{
	{0, -1},  // North
	{1, -1},  // North-East
	{1, 0},   // East
	{1, 1},   // South-East
	{0, 1},   // South
	{-1, 1},  // South-West
	{-1, 0},  // West
	{-1, -1}, // North-West
}

// NewGrid creates a dense size x size grid of plain cells
func NewGrid(size int) [][]Cell {
	grid := make([][]Cell, size)
	for x := 0; x < size; x++ {
		grid[x] = make([]Cell, size)
		for y := 0; y < size; y++ {
			grid[x][y] = Cell{X: x, Y: y, Type: Plain}
		}
	}
	return grid
}

// CloneGrid deep-copies a grid
func CloneGrid(grid [][]Cell) [][]Cell {
	if grid == nil {
		return nil
	}
	out := make([][]Cell, len(grid))
	for x := range grid {
		out[x] = make([]Cell, len(grid[x]))
		copy(out[x], grid[x])
	}
	return out
}

// Size returns the side length of the square grid
func (gs *GameState) Size() int {
	return len(gs.Cells)
}

// InBounds reports whether (x, y) addresses a cell
func (gs *GameState) InBounds(x, y int) bool {
	return x >= 0 && x < len(gs.Cells) && y >= 0 && y < len(gs.Cells[x])
}

// CellAt returns the cell at (x, y), or a ValidationError wrapping ErrOutOfBounds
func (gs *GameState) CellAt(x, y int) (*Cell, error) {
	if !gs.InBounds(x, y) {
		return nil, &ValidationError{
			Field:  "cell",
			Reason: fmt.Sprintf("(%d,%d) is outside the %dx%d grid", x, y, gs.Size(), gs.Size()),
			Err:    ErrOutOfBounds,
		}
	}
	return &gs.Cells[x][y], nil
}

// Neighbors returns the in-bounds cells surrounding (x, y)
func (gs *GameState) Neighbors(x, y int) []*Cell {
	out := make([]*Cell, 0, len(neighborOffsets))
	for _, d := range neighborOffsets {
		nx, ny := x+d.dx, y+d.dy
		if gs.InBounds(nx, ny) {
			out = append(out, &gs.Cells[nx][ny])
		}
	}
	return out
}

// IsAdjacentToTerritory reports whether any of the 8 neighbors of (x, y) is owned by playerID
func (gs *GameState) IsAdjacentToTerritory(x, y int, playerID string) bool {
	for _, c := range gs.Neighbors(x, y) {
		if c.OwnedBy(playerID) {
			return true
		}
	}
	return false
}

// CountOwned counts the cells owned by playerID
func (gs *GameState) CountOwned(playerID string) int {
	count := 0
	for _, col := range gs.Cells {
		for i := range col {
			if col[i].OwnedBy(playerID) {
				count++
			}
		}
	}
	return count
}

// CountFarms counts the cells owned by playerID that carry a farm
func (gs *GameState) CountFarms(playerID string) int {
	count := 0
	for _, col := range gs.Cells {
		for i := range col {
			if col[i].OwnedBy(playerID) && col[i].Building == Farm {
				count++
			}
		}
	}
	return count
}

// CountCellType counts the total number of cells of a specific type in the grid
func CountCellType(grid [][]Cell, cellType CellType) int {
	count := 0
	for _, col := range grid {
		for _, cell := range col {
			if cell.Type == cellType {
				count++
			}
		}
	}
	return count
}
