package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/track"
)

// corridor returns a 1x3 StraightH strip with top-left at the world origin.
// Road spans x in (0, 300) and y in [-97.5, -2.5] for a wall of 5.
func corridor(t testing.TB) *track.Grid {
	t.Helper()
	g, err := track.NewGrid([][]track.Tile{{track.StraightH, track.StraightH, track.StraightH}}, 100, r2.Vec{}, 5)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestFootprintCorners(t *testing.T) {
	s := components.KinematicState{Position: r2.Vec{X: 10, Y: 20}, Heading: math.Pi / 2}
	corners := FootprintCorners(s, 12, 6)

	// Heading north: length runs along Y, width along X.
	for _, c := range corners {
		if math.Abs(math.Abs(c.Y-20)-6) > 1e-9 || math.Abs(math.Abs(c.X-10)-3) > 1e-9 {
			t.Errorf("corner %v not on the rotated 12x6 rectangle", c)
		}
	}
}

func TestFootprintOffRoad(t *testing.T) {
	g := corridor(t)

	tests := []struct {
		name    string
		pos     r2.Vec
		heading float64
		want    bool
	}{
		{"centre", r2.Vec{X: 150, Y: -50}, 0, false},
		{"near wall along corridor", r2.Vec{X: 150, Y: -8}, 0, false},
		{"corners cross north wall", r2.Vec{X: 150, Y: -5}, 0, true},
		{"rotated into north wall", r2.Vec{X: 150, Y: -8}, math.Pi / 2, true},
		{"nose off grid", r2.Vec{X: 296, Y: -50}, 0, true},
		{"tail off grid", r2.Vec{X: 4, Y: -50}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := components.KinematicState{Position: tt.pos, Heading: tt.heading}
			if got := FootprintOffRoad(g, s, 12, 6); got != tt.want {
				t.Errorf("FootprintOffRoad = %v, want %v", got, tt.want)
			}
		})
	}
}
