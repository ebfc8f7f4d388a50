package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestBlockCentroid(t *testing.T) {
	b, err := NewBlock([]Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}})
	require.NoError(t, err)
	require.Equal(t, Point{1, 1}, b.Centroid())
	require.Equal(t, 4, b.Len())

	_, err = NewBlock(nil)
	require.ErrorIs(t, err, ErrEmptyGeometry)

	_, err = NewBlock([]Point{{0, 0}, {1, 1, 1}})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDistance(t *testing.T) {
	testCases := []struct {
		p, q     Point
		expected float64
	}{
		{Point{0, 0}, Point{3, 4}, 5},
		{Point{1, 1, 1}, Point{1, 1, 1}, 0},
		{Point{0, 0, 0}, Point{0, 0, 4}, 4},
		{Point{1}, Point{1, 2}, 2},
	}
	for i, tc := range testCases {
		if d := Distance(tc.p, tc.q); math.Abs(d-tc.expected) > 1e-12 {
			t.Errorf("Case %d: Expected distance %.3f, got %.3f", i, tc.expected, d)
		}
	}
}

func TestTranslate(t *testing.T) {
	v := Point{10, -5}

	g, err := Translate(Point{1, 2}, v)
	require.NoError(t, err)
	require.Equal(t, Point{11, -3}, g)

	b, err := NewBlock([]Point{{0, 0}, {2, 2}})
	require.NoError(t, err)
	g, err = Translate(b, v)
	require.NoError(t, err)
	require.Equal(t, Point{11, -4}, g.Centroid())

	g, err = Translate(InCRS(Point{0, 0}, "crs"), v)
	require.NoError(t, err)
	ref, ok := g.(*Referenced)
	require.True(t, ok)
	require.Equal(t, "crs", ref.CRS)
	require.Equal(t, Point{10, -5}, ref.Centroid())
}

func TestFromOrb(t *testing.T) {
	g, err := FromOrb(orb.Point{3, 4}, 0)
	require.NoError(t, err)
	require.Equal(t, Point{3, 4}, g)

	square := orb.Polygon{orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	g, err = FromOrb(square, 1)
	require.NoError(t, err)
	b, ok := g.(*Block)
	require.True(t, ok)
	require.Equal(t, 100, b.Len())
	require.InDelta(t, 5, b.Centroid()[0], 1e-12)
	require.InDelta(t, 5, b.Centroid()[1], 1e-12)

	line := orb.LineString{{0, 0}, {3, 0}, {3, 2}}
	g, err = FromOrb(line, 1)
	require.NoError(t, err)
	require.Len(t, g.Support(), 6)

	tiny := orb.Polygon{orb.Ring{{0, 0}, {0.1, 0}, {0.1, 0.1}, {0, 0.1}, {0, 0}}}
	g, err = FromOrb(tiny, 1)
	require.NoError(t, err)
	require.Len(t, g.Support(), 1)

	_, err = FromOrb(square, 0)
	require.True(t, errors.Is(err, ErrInvalidSpacing))
}

func TestIndexNearest(t *testing.T) {
	var geoms []Geometry
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			geoms = append(geoms, Point{float64(x), float64(y)})
		}
	}
	idx := NewIndex(geoms)
	require.Equal(t, 25, idx.Len())

	nb := idx.Nearest(Point{2.1, 2.1}, 3, 0)
	require.Len(t, nb, 3)
	require.Equal(t, 12, nb[0].Index)
	require.InDelta(t, math.Sqrt(0.02), nb[0].Distance, 1e-12)
	for i := 1; i < len(nb); i++ {
		require.LessOrEqual(t, nb[i-1].Distance, nb[i].Distance)
	}

	nb = idx.Nearest(Point{2, 2}, 25, 1.0)
	require.Len(t, nb, 5)

	require.Empty(t, NewIndex(nil).Nearest(Point{0, 0}, 3, 0))
}

func TestReprojectorIdentity(t *testing.T) {
	r := NewReprojector()
	g, err := r.Transform(Point{1, 2}, "", "+proj=longlat")
	require.NoError(t, err)
	require.Equal(t, Point{1, 2}, g)

	const merc = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
	g, err = r.Transform(Point{0, 0, 7}, "+proj=longlat +datum=WGS84 +no_defs", merc)
	require.NoError(t, err)
	p := g.(Point)
	require.InDelta(t, 0, p[0], 1e-6)
	require.InDelta(t, 0, p[1], 1e-6)
	require.Equal(t, 7.0, p[2])
}
