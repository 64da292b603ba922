package engine

import (
	"fmt"
	"strings"
)

// Terrain glyphs used by RenderASCII
const (
	GlyphPlain    = '.'
	GlyphMountain = '^'
	GlyphWater    = '~'
	GlyphHill     = 'n'
	GlyphFarm     = 'F'
)

// TerrainGlyph maps a terrain type to its map character
func TerrainGlyph(t CellType) rune {
	switch t {
	case Mountain:
		return GlyphMountain
	case Water:
		return GlyphWater
	case Hill:
		return GlyphHill
	default:
		return GlyphPlain
	}
}

// RenderASCII draws the grid with y as the row and x as the column. Each cell
// takes two characters: the owner's turn number (or the terrain glyph when
// neutral) followed by F for a farm, the defense digit, or a space.
func RenderASCII(gs *GameState) []string {
	size := gs.Size()
	ownerIndex := make(map[string]int, gs.Players.Len())
	for i, id := range gs.Players.IDs() {
		ownerIndex[id] = i + 1
	}

	rows := make([]string, 0, size)
	for y := 0; y < size; y++ {
		var b strings.Builder
		for x := 0; x < size; x++ {
			c := gs.Cells[x][y]
			if idx, ok := ownerIndex[c.OwnerID]; ok {
				b.WriteString(fmt.Sprintf("%d", idx%10))
			} else {
				b.WriteRune(TerrainGlyph(c.Type))
			}
			switch {
			case c.Building == Farm:
				b.WriteRune(GlyphFarm)
			case c.Defense > 9:
				b.WriteRune('+')
			case c.Defense > 0:
				b.WriteString(fmt.Sprintf("%d", c.Defense))
			default:
				b.WriteRune(' ')
			}
		}
		rows = append(rows, strings.TrimRight(b.String(), " "))
	}
	return rows
}

// Legend explains the glyphs of RenderASCII
func Legend() string {
	return fmt.Sprintf("%c plain, %c mountain, %c water, %c hill, digit = owner turn number, second char: %c farm, digit/+ defense",
		GlyphPlain, GlyphMountain, GlyphWater, GlyphHill, GlyphFarm)
}
