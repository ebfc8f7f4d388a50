package models

import (
	"errors"
	"fmt"
	"math"

	"geokriging/pkg/geom"
)

// ErrInvalidGrid is returned by Grid.Validate.
var ErrInvalidGrid = errors.New("models: invalid grid")

// Grid is a regular lattice of prediction targets in one to three
// dimensions.
type Grid struct {
	// Origin is the position of the first node
	Origin []float64

	// Spacing is the distance between nodes along each axis
	Spacing []float64

	// Size is the number of nodes along each axis
	Size []int

	// CRS is the proj4 definition the nodes are expressed in, if any
	CRS string
}

// Validate checks that the grid is well formed.
func (g Grid) Validate() error {
	d := len(g.Size)
	if d < 1 || d > 3 {
		return fmt.Errorf("%w: %d dimensions, want 1 to 3", ErrInvalidGrid, d)
	}
	if len(g.Origin) != d || len(g.Spacing) != d {
		return fmt.Errorf("%w: origin, spacing and size must have the same length", ErrInvalidGrid)
	}
	for i := 0; i < d; i++ {
		if g.Size[i] < 1 {
			return fmt.Errorf("%w: size along axis %d is %d", ErrInvalidGrid, i, g.Size[i])
		}
		if g.Spacing[i] <= 0 || math.IsInf(g.Spacing[i], 0) {
			return fmt.Errorf("%w: spacing along axis %d is %g", ErrInvalidGrid, i, g.Spacing[i])
		}
	}
	return nil
}

// Dims returns the number of axes.
func (g Grid) Dims() int { return len(g.Size) }

// Len returns the number of nodes.
func (g Grid) Len() int {
	n := 1
	for _, s := range g.Size {
		n *= s
	}
	return n
}

// Point returns node i. Nodes are numbered with the first axis varying
// fastest, so in 3D i = z·nx·ny + y·nx + x.
func (g Grid) Point(i int) geom.Point {
	p := make(geom.Point, len(g.Size))
	for a, s := range g.Size {
		p[a] = g.Origin[a] + float64(i%s)*g.Spacing[a]
		i /= s
	}
	return p
}

// Targets returns every node, tagged with the grid CRS when it has one.
func (g Grid) Targets() []geom.Geometry {
	out := make([]geom.Geometry, g.Len())
	for i := range out {
		var t geom.Geometry = g.Point(i)
		if g.CRS != "" {
			t = geom.InCRS(t, g.CRS)
		}
		out[i] = t
	}
	return out
}

// Estimate is the result of a prediction at one target.
type Estimate struct {
	// Target is the geometry the estimate was made at
	Target geom.Geometry

	// Mean and Variance hold one value per variable. Both are NaN when
	// the target had too few neighbors.
	Mean     []float64
	Variance []float64

	// Neighbors is the number of samples used
	Neighbors int

	// Status is false when the kriging system could not be factorized
	// reliably or no system was built at all.
	Status bool
}

// Missing reports whether the estimate has no value.
func (e Estimate) Missing() bool {
	return len(e.Mean) == 0 || math.IsNaN(e.Mean[0])
}

// MissingEstimate returns an estimate with NaN values for k variables.
func MissingEstimate(target geom.Geometry, k, neighbors int) Estimate {
	e := Estimate{
		Target:    target,
		Mean:      make([]float64, k),
		Variance:  make([]float64, k),
		Neighbors: neighbors,
	}
	for i := 0; i < k; i++ {
		e.Mean[i] = math.NaN()
		e.Variance[i] = math.NaN()
	}
	return e
}
