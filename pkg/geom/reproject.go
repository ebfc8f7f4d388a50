package geom

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ctessum/geom/proj"
)

// ErrProjection is returned when a coordinate transform cannot be built or
// applied.
var ErrProjection = errors.New("geom: projection failed")

// Reprojector moves geometries between coordinate reference systems given as
// proj4 strings. Transforms are cached per (source, destination) pair, so a
// single Reprojector can be shared between goroutines.
type Reprojector struct {
	mu    sync.Mutex
	cache map[[2]string]proj.Transformer
}

// NewReprojector returns an empty Reprojector.
func NewReprojector() *Reprojector {
	return &Reprojector{cache: make(map[[2]string]proj.Transformer)}
}

// Transform returns g expressed in the CRS to. Only the first two coordinates
// are transformed; any further coordinates are carried over unchanged.
func (r *Reprojector) Transform(g Geometry, from, to string) (Geometry, error) {
	if from == "" || to == "" || from == to {
		return g, nil
	}
	t, err := r.transformer(from, to)
	if err != nil {
		return nil, err
	}

	switch g := g.(type) {
	case Point:
		return transformPoint(t, g)
	case *Block:
		pts := make([]Point, len(g.points))
		for i, p := range g.points {
			if pts[i], err = transformPoint(t, p); err != nil {
				return nil, err
			}
		}
		return NewBlock(pts)
	case *Referenced:
		return r.Transform(g.Geometry, g.CRS, to)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}
}

func (r *Reprojector) transformer(from, to string) (proj.Transformer, error) {
	key := [2]string{from, to}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.cache[key]; ok {
		return t, nil
	}

	src, err := proj.Parse(from)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing source CRS: %v", ErrProjection, err)
	}
	dst, err := proj.Parse(to)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing destination CRS: %v", ErrProjection, err)
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("%w: creating transform: %v", ErrProjection, err)
	}
	r.cache[key] = t
	return t, nil
}

func transformPoint(t proj.Transformer, p Point) (Point, error) {
	if p.Dim() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 coordinates, got %d", ErrDimensionMismatch, p.Dim())
	}
	x, y, err := t(p[0], p[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjection, err)
	}
	out := NewPoint(p...)
	out[0], out[1] = x, y
	return out, nil
}
