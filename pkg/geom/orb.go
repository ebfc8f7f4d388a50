package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidSpacing is returned when a discretization spacing is not positive.
var ErrInvalidSpacing = errors.New("geom: discretization spacing must be positive")

// FromOrb converts a planar orb geometry. Points map to Point. Areal and
// linear geometries become a Block discretized on a regular grid of the given
// spacing: polygons keep the grid cell centers that fall inside them, lines
// are resampled along their length.
func FromOrb(g orb.Geometry, spacing float64) (Geometry, error) {
	if p, ok := g.(orb.Point); ok {
		return Point{p[0], p[1]}, nil
	}
	if spacing <= 0 {
		return nil, ErrInvalidSpacing
	}

	var pts []Point
	switch g := g.(type) {
	case orb.MultiPoint:
		for _, p := range g {
			pts = append(pts, Point{p[0], p[1]})
		}
	case orb.LineString:
		pts = resampleLine(g, spacing)
	case orb.MultiLineString:
		for _, ls := range g {
			pts = append(pts, resampleLine(ls, spacing)...)
		}
	case orb.Ring:
		pts = gridInside(g.Bound(), spacing, func(p orb.Point) bool { return planar.RingContains(g, p) })
	case orb.Polygon:
		pts = gridInside(g.Bound(), spacing, func(p orb.Point) bool { return planar.PolygonContains(g, p) })
	case orb.MultiPolygon:
		pts = gridInside(g.Bound(), spacing, func(p orb.Point) bool { return planar.MultiPolygonContains(g, p) })
	case orb.Bound:
		pts = gridInside(g, spacing, func(orb.Point) bool { return true })
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}

	if len(pts) == 0 {
		// Smaller than one grid cell: fall back to the centroid.
		c, _ := planar.CentroidArea(g)
		pts = []Point{{c[0], c[1]}}
	}
	return NewBlock(pts)
}

// ToOrb returns the first two coordinates of p as an orb point.
func ToOrb(p Point) orb.Point {
	return orb.Point{coord(p, 0), coord(p, 1)}
}

func gridInside(b orb.Bound, spacing float64, inside func(orb.Point) bool) []Point {
	nx := int(math.Ceil((b.Max[0] - b.Min[0]) / spacing))
	ny := int(math.Ceil((b.Max[1] - b.Min[1]) / spacing))
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}
	dx := (b.Max[0] - b.Min[0]) / float64(nx)
	dy := (b.Max[1] - b.Min[1]) / float64(ny)

	pts := make([]Point, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			p := orb.Point{b.Min[0] + (float64(i)+0.5)*dx, b.Min[1] + (float64(j)+0.5)*dy}
			if inside(p) {
				pts = append(pts, Point{p[0], p[1]})
			}
		}
	}
	return pts
}

func resampleLine(ls orb.LineString, spacing float64) []Point {
	if len(ls) == 0 {
		return nil
	}
	pts := []Point{{ls[0][0], ls[0][1]}}
	carry := 0.0
	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		seg := planar.Distance(a, b)
		if seg == 0 {
			continue
		}
		t := spacing - carry
		for ; t <= seg; t += spacing {
			f := t / seg
			pts = append(pts, Point{a[0] + f*(b[0]-a[0]), a[1] + f*(b[1]-a[1])})
		}
		carry = seg - (t - spacing)
	}
	return pts
}
