// Package geom provides the geometries that samples and prediction targets
// live on: n-dimensional points, extended blocks made of support points, and
// CRS-tagged wrappers used for reprojection.
package geom

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when coordinates of different
	// dimensionality are combined.
	ErrDimensionMismatch = errors.New("geom: dimension mismatch")

	// ErrUnsupportedGeometry is returned for geometry types that cannot be
	// converted or transformed.
	ErrUnsupportedGeometry = errors.New("geom: unsupported geometry")

	// ErrEmptyGeometry is returned when a block is built without points.
	ErrEmptyGeometry = errors.New("geom: empty geometry")
)

// Geometry is anything a correlation function can be evaluated on.
type Geometry interface {
	// Centroid returns the representative point of the geometry. Drift
	// functions and neighbor searches use it.
	Centroid() Point

	// Support returns the points the geometry is discretized into. A point
	// is its own support.
	Support() []Point
}

// Point is a location given by its coordinates.
type Point []float64

// NewPoint returns a point with the given coordinates.
func NewPoint(coords ...float64) Point {
	p := make(Point, len(coords))
	copy(p, coords)
	return p
}

// Dim returns the number of coordinates.
func (p Point) Dim() int { return len(p) }

// Centroid returns p.
func (p Point) Centroid() Point { return p }

// Support returns p as a single-point support.
func (p Point) Support() []Point { return []Point{p} }

// Equal reports whether p and q have identical coordinates.
func (p Point) Equal(q Point) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Add returns p translated by v.
func (p Point) Add(v Point) Point {
	out := make(Point, len(p))
	for i := range p {
		if i < len(v) {
			out[i] = p[i] + v[i]
		} else {
			out[i] = p[i]
		}
	}
	return out
}

// Distance returns the Euclidean distance between p and q. Missing trailing
// coordinates of the shorter point are taken as zero.
func Distance(p, q Point) float64 {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := coord(p, i) - coord(q, i)
		sum += d * d
	}
	return math.Sqrt(sum)
}

func coord(p Point, i int) float64 {
	if i < len(p) {
		return p[i]
	}
	return 0
}

// Block is an extended geometry represented by a finite set of support points,
// e.g. the discretization of a polygon or a voxel.
type Block struct {
	center Point
	points []Point
}

// NewBlock returns a block discretized by points. The centroid is the mean of
// the points.
func NewBlock(points []Point) (*Block, error) {
	if len(points) == 0 {
		return nil, ErrEmptyGeometry
	}
	dim := points[0].Dim()
	center := make(Point, dim)
	pts := make([]Point, len(points))
	for i, p := range points {
		if p.Dim() != dim {
			return nil, fmt.Errorf("%w: point %d has %d coordinates, want %d", ErrDimensionMismatch, i, p.Dim(), dim)
		}
		pts[i] = NewPoint(p...)
		for j, v := range p {
			center[j] += v
		}
	}
	for j := range center {
		center[j] /= float64(len(points))
	}
	return &Block{center: center, points: pts}, nil
}

// Centroid returns the mean of the support points.
func (b *Block) Centroid() Point { return b.center }

// Support returns the support points of the block.
func (b *Block) Support() []Point { return b.points }

// Len returns the number of support points.
func (b *Block) Len() int { return len(b.points) }

// Referenced tags a geometry with the coordinate reference system its
// coordinates are expressed in, as a proj4 definition string.
type Referenced struct {
	Geometry
	CRS string
}

// InCRS returns g tagged with crs.
func InCRS(g Geometry, crs string) *Referenced {
	return &Referenced{Geometry: g, CRS: crs}
}

// Translate returns g moved by the vector v.
func Translate(g Geometry, v Point) (Geometry, error) {
	switch g := g.(type) {
	case Point:
		return g.Add(v), nil
	case *Block:
		pts := make([]Point, len(g.points))
		for i, p := range g.points {
			pts[i] = p.Add(v)
		}
		return NewBlock(pts)
	case *Referenced:
		inner, err := Translate(g.Geometry, v)
		if err != nil {
			return nil, err
		}
		return InCRS(inner, g.CRS), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}
}
