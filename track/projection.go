package track

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// minSegmentLength2 is the squared length below which a segment is skipped
// during projection.
const minSegmentLength2 = 1e-8

// Projection is the nearest point on the centerline to a query point.
type Projection struct {
	ClosestPoint r2.Vec
	Tangent      r2.Vec  // unit direction of travel at ClosestPoint
	S            float64 // arc length from point 0
	Fraction     float64 // S / TotalLength, clamped to [0, 1]
	Distance     float64
}

// Project returns the nearest-point projection of p onto the loop.
// Ties keep the first segment in polyline order.
func (c *Centerline) Project(p r2.Vec) Projection {
	n := len(c.points)
	best := Projection{Distance: math.Inf(1)}
	found := false

	for i := 0; i < n; i++ {
		a := c.points[i]
		seg := r2.Sub(c.points[(i+1)%n], a)
		len2 := r2.Norm2(seg)
		if len2 <= minSegmentLength2 {
			continue
		}

		t := r2.Dot(r2.Sub(p, a), seg) / len2
		t = math.Max(0, math.Min(1, t))
		q := r2.Add(a, r2.Scale(t, seg))
		d := r2.Norm(r2.Sub(p, q))
		if d < best.Distance {
			segLen := math.Sqrt(len2)
			best = Projection{
				ClosestPoint: q,
				Tangent:      r2.Scale(1/segLen, seg),
				S:            c.cumulative[i] + t*segLen,
				Distance:     d,
			}
			found = true
		}
	}

	if !found {
		return Projection{ClosestPoint: p}
	}
	if c.total > 0 {
		best.Fraction = math.Max(0, math.Min(1, best.S/c.total))
	}
	return best
}

// PointAt returns the point and unit tangent at arc length s, wrapped onto
// the loop.
func (c *Centerline) PointAt(s float64) (r2.Vec, r2.Vec) {
	n := len(c.points)
	s = math.Mod(s, c.total)
	if s < 0 {
		s += c.total
	}

	// Last segment whose start is at or before s.
	i := sort.Search(n, func(i int) bool { return c.cumulative[i] > s }) - 1
	if i < 0 {
		i = 0
	}

	a := c.points[i]
	seg := r2.Sub(c.points[(i+1)%n], a)
	segLen := r2.Norm(seg)
	if segLen == 0 {
		return a, r2.Vec{}
	}
	t := (s - c.cumulative[i]) / segLen
	return r2.Add(a, r2.Scale(t, seg)), r2.Scale(1/segLen, seg)
}

// WrapFractionDelta returns cur - prev unwrapped across the lap boundary,
// in (-0.5, 0.5].
func WrapFractionDelta(prev, cur float64) float64 {
	d := cur - prev
	for d > 0.5 {
		d--
	}
	for d <= -0.5 {
		d++
	}
	return d
}
