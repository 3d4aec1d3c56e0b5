package track

import "testing"

func TestParseLayoutSepang(t *testing.T) {
	tiles, err := ParseLayout(Sepang)
	if err != nil {
		t.Fatalf("ParseLayout(Sepang): %v", err)
	}
	if len(tiles) != 9 || len(tiles[0]) != 14 {
		t.Fatalf("Sepang is %dx%d, want 9 rows x 14 cols", len(tiles), len(tiles[0]))
	}
	if tiles[1][4] != SpawnPoint {
		t.Errorf("tiles[1][4] = %s, want SpawnPoint", tiles[1][4])
	}
	if tiles[1][1] != CornerNW || tiles[7][12] != CornerSE {
		t.Errorf("unexpected corners: %s, %s", tiles[1][1], tiles[7][12])
	}
}

func TestParseLayoutErrors(t *testing.T) {
	tests := []struct {
		name string
		rows []string
	}{
		{"no rows", nil},
		{"blank row", []string{"SP H", "  "}},
		{"unknown token", []string{"SP Q"}},
		{"ragged", []string{"SP H H", "H H"}},
		{"no spawn", []string{"H H"}},
		{"two spawns", []string{"SP SP"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLayout(tt.rows); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseLayoutCaseInsensitive(t *testing.T) {
	tiles, err := ParseLayout([]string{"nw h sp", "x tn ."})
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	want := [][]Tile{{CornerNW, StraightH, SpawnPoint}, {Crossroads, TJunctionN, Empty}}
	for r := range want {
		for c := range want[r] {
			if tiles[r][c] != want[r][c] {
				t.Errorf("tiles[%d][%d] = %s, want %s", r, c, tiles[r][c], want[r][c])
			}
		}
	}
}

func TestBuiltin(t *testing.T) {
	rows, ok := Builtin("Sepang")
	if !ok || len(rows) != len(Sepang) {
		t.Fatalf("Builtin(Sepang) = %d rows, %v", len(rows), ok)
	}
	rows[0] = "mutated"
	if Sepang[0] == "mutated" {
		t.Error("Builtin returned the shared slice")
	}
	if _, ok := Builtin("monza"); ok {
		t.Error("unknown layout should not resolve")
	}
}
