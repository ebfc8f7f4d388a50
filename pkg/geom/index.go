package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// indexed is a centroid stored in the k-d tree together with the position of
// its geometry in the indexed slice.
type indexed struct {
	p   Point
	idx int
}

// Compare implements the kdtree.Comparable interface
func (a indexed) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	b := c.(indexed)
	return coord(a.p, int(d)) - coord(b.p, int(d))
}

// Dims returns the number of dimensions for the KD-tree
func (a indexed) Dims() int { return len(a.p) }

// Distance returns the squared Euclidean distance between two points
func (a indexed) Distance(c kdtree.Comparable) float64 {
	d := Distance(a.p, c.(indexed).p)
	return d * d
}

// indexedPoints is a collection of indexed that satisfies kdtree.Interface
type indexedPoints []indexed

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{indexedPoints: p, Dim: d}, kdtree.MedianOfRandoms(plane{indexedPoints: p, Dim: d}, 100))
}

// plane implements sort.Interface and kdtree.SortSlicer for indexedPoints
type plane struct {
	indexedPoints
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return coord(p.indexedPoints[i].p, int(p.Dim)) < coord(p.indexedPoints[j].p, int(p.Dim))
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{indexedPoints: p.indexedPoints[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// Neighbor is a search result: the position of a geometry in the indexed
// slice and its centroid distance to the query.
type Neighbor struct {
	Index    int
	Distance float64
}

// Index answers nearest-neighbor queries over the centroids of a set of
// geometries. It is read-only after construction and safe for concurrent use.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// NewIndex builds a k-d tree over the centroids of geoms.
func NewIndex(geoms []Geometry) *Index {
	pts := make(indexedPoints, len(geoms))
	for i, g := range geoms {
		pts[i] = indexed{p: g.Centroid(), idx: i}
	}
	idx := &Index{n: len(pts)}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, true)
	}
	return idx
}

// Len returns the number of indexed geometries.
func (x *Index) Len() int { return x.n }

// Nearest returns up to k neighbors of q within maxDist, closest first. A
// non-positive maxDist means no distance limit.
func (x *Index) Nearest(q Point, k int, maxDist float64) []Neighbor {
	if x.tree == nil || k <= 0 {
		return nil
	}
	if k > x.n {
		k = x.n
	}
	keeper := kdtree.NewNKeeper(k)
	x.tree.NearestSet(keeper, indexed{p: q, idx: -1})

	out := make([]Neighbor, 0, keeper.Len())
	for _, c := range keeper.Heap {
		if c.Comparable == nil {
			continue
		}
		d := math.Sqrt(c.Dist)
		if maxDist > 0 && d > maxDist {
			continue
		}
		out = append(out, Neighbor{Index: c.Comparable.(indexed).idx, Distance: d})
	}
	return out
}
