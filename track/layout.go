package track

import (
	"fmt"
	"strings"
)

// Layout tokens, one per cell, whitespace separated:
//
//	.  Empty        H  StraightH    V  StraightV    SP SpawnPoint
//	NW CornerNW     NE CornerNE     SW CornerSW     SE CornerSE
//	TN TJunctionN   TS TJunctionS   TE TJunctionE   TW TJunctionW
//	X  Crossroads
var layoutTokens = map[string]Tile{
	".":  Empty,
	"H":  StraightH,
	"V":  StraightV,
	"NW": CornerNW,
	"NE": CornerNE,
	"SW": CornerSW,
	"SE": CornerSE,
	"TN": TJunctionN,
	"TS": TJunctionS,
	"TE": TJunctionE,
	"TW": TJunctionW,
	"X":  Crossroads,
	"SP": SpawnPoint,
}

// ParseLayout converts text rows into a tile array. It rejects unknown
// tokens, ragged rows, and layouts without exactly one SpawnPoint.
func ParseLayout(rows []string) ([][]Tile, error) {
	tiles := make([][]Tile, 0, len(rows))
	spawns := 0
	for r, line := range rows {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, fmt.Errorf("track: layout row %d is empty", r)
		}
		row := make([]Tile, len(fields))
		for c, tok := range fields {
			tile, ok := layoutTokens[strings.ToUpper(tok)]
			if !ok {
				return nil, fmt.Errorf("track: layout row %d col %d: unknown token %q", r, c, tok)
			}
			if tile == SpawnPoint {
				spawns++
			}
			row[c] = tile
		}
		if len(tiles) > 0 && len(row) != len(tiles[0]) {
			return nil, fmt.Errorf("track: layout row %d has %d cells, want %d", r, len(row), len(tiles[0]))
		}
		tiles = append(tiles, row)
	}
	if len(tiles) == 0 {
		return nil, ErrEmptyGrid
	}
	if spawns != 1 {
		return nil, fmt.Errorf("track: layout has %d spawn points, want exactly 1", spawns)
	}
	return tiles, nil
}

// Sepang is a 14x9 circuit loosely based on the Malaysian Grand Prix layout:
// a long main straight with the spawn, cascading S-curves down the right,
// a back straight, and a central serpentine. It compiles from the spawn
// heading east.
var Sepang = []string{
	".  .  .  .  .  .  .  .  .  .  .  .  .  .",
	". NW  H  H SP  H  H  H  H  H  H  H NE  .",
	".  V NW  H NE NW  H  H  H NE NW  H SE  .",
	". SW SE NW SE SW  H  H NE  V SW  H NE  .",
	". NW NE  V NW NE NW NE  V  V NW  H SE  .",
	".  V  V SW SE SW SE  V  V  V SW  H NE  .",
	".  V SW  H  H  H  H SE  V  V NW NE  V  .",
	". SW  H  H  H  H  H  H SE SW SE SW SE  .",
	".  .  .  .  .  .  .  .  .  .  .  .  .  .",
}

// Oval is a small 4x6 loop used for quick runs and tests.
var Oval = []string{
	"NW  H SP  H  H NE",
	" V  .  .  .  .  V",
	" V  .  .  .  .  V",
	"SW  H  H  H  H SE",
}

// builtins maps layout names accepted by config to their rows.
var builtins = map[string][]string{
	"sepang": Sepang,
	"oval":   Oval,
}

// Builtin returns a copy of a named built-in layout.
func Builtin(name string) ([]string, bool) {
	rows, ok := builtins[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), rows...), true
}
