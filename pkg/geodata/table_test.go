package geodata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"geokriging/pkg/geom"
)

func newTestTable(t *testing.T) *Table {
	tab := New([]geom.Geometry{geom.Point{0, 0}, geom.Point{1, 0}, geom.Point{0, 1}})
	require.NoError(t, tab.AddColumn("a", []float64{1, 2, 3}))
	require.NoError(t, tab.AddColumn("b", []float64{4, math.NaN(), 6}))
	return tab
}

func TestTableColumns(t *testing.T) {
	tab := newTestTable(t)
	require.Equal(t, 3, tab.Len())
	require.Equal(t, 2, tab.NumColumns())
	require.Equal(t, []string{"a", "b"}, tab.Names())

	v, ok := tab.Value("a", 1)
	require.True(t, ok)
	require.Equal(t, 2.0, v)

	_, ok = tab.Value("b", 1)
	require.False(t, ok, "NaN entries are missing")

	require.NoError(t, tab.SetMissing("a", 0))
	_, ok = tab.Value("a", 0)
	require.False(t, ok)

	col, err := tab.Column("a")
	require.NoError(t, err)
	require.True(t, math.IsNaN(col[0]))
	require.Equal(t, []float64{2, 3}, col[1:])

	require.ErrorIs(t, tab.AddColumn("a", []float64{1, 2, 3}), ErrDuplicateColumn)
	require.ErrorIs(t, tab.AddColumn("c", []float64{1}), ErrLengthMismatch)
	require.ErrorIs(t, tab.SetMissing("zz", 0), ErrUnknownColumn)
	require.ErrorIs(t, tab.SetMissing("a", 9), ErrIndexOutOfRange)
	_, err = tab.Column("zz")
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestTableSubset(t *testing.T) {
	tab := newTestTable(t)
	tab.SetCRS("+proj=longlat")

	s, err := tab.Subset([]int{2, 1})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	require.Equal(t, geom.Point{0, 1}, s.Geometry(0))
	require.Equal(t, "+proj=longlat", s.CRS())

	v, ok := s.Value("b", 0)
	require.True(t, ok)
	require.Equal(t, 6.0, v)
	_, ok = s.Value("b", 1)
	require.False(t, ok)

	_, err = tab.Subset([]int{5})
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestTableMapAndTranslate(t *testing.T) {
	tab := newTestTable(t)

	m := tab.Map(func(_ string, i int, v float64) float64 { return v + float64(i) })
	v, _ := m.Value("a", 2)
	require.Equal(t, 5.0, v)
	_, ok := m.Value("b", 1)
	require.False(t, ok)
	v, _ = tab.Value("a", 2)
	require.Equal(t, 3.0, v, "original table is untouched")

	tr, err := tab.Translate(geom.Point{10, 10})
	require.NoError(t, err)
	require.Equal(t, geom.Point{11, 10}, tr.Geometry(1))
	require.Equal(t, geom.Point{1, 0}, tab.Geometry(1))
}
