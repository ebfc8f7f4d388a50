package estimation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"geokriging/internal/models"
	"geokriging/pkg/geodata"
	"geokriging/pkg/geom"
	"geokriging/pkg/geostat"
	"geokriging/pkg/kriging"
)

func gridTable(t *testing.T, fn func(x, y float64) float64) *geodata.Table {
	t.Helper()
	var geoms []geom.Geometry
	var values []float64
	for y := 0.0; y < 5; y++ {
		for x := 0.0; x < 5; x++ {
			// Jitter keeps the layout irregular.
			px, py := 10*x+float64(int(y)%2), 10*y+float64(int(x)%3)
			geoms = append(geoms, geom.Point{px, py})
			values = append(values, fn(px, py))
		}
	}
	tab := geodata.New(geoms)
	require.NoError(t, tab.AddColumn("z", values))
	return tab
}

func wave(x, y float64) float64 { return x*0.05 + y*y*0.001 + 3 }

func variogram() geostat.Function {
	return geostat.MustVariogram(geostat.Params{Range: 30, Sill: 1, Nugget: 0, Model: geostat.Exponential})
}

func TestEstimateAllSamplesMatchesGlobalFit(t *testing.T) {
	tab := gridTable(t, wave)
	model := kriging.NewOrdinary(variogram())

	global, err := kriging.Fit(model, tab)
	require.NoError(t, err)

	est, err := NewEstimator(model, tab, &Params{NumCores: 3})
	require.NoError(t, err)

	grid := models.Grid{Origin: []float64{-5, -5}, Spacing: []float64{7, 7}, Size: []int{8, 8}}
	targets := grid.Targets()
	results, err := est.Estimate(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, results, len(targets))

	for i, r := range results {
		mean, cov, err := global.MeanVariance([]string{"z"}, targets[i])
		require.NoError(t, err)
		require.True(t, r.Status)
		require.Equal(t, tab.Len(), r.Neighbors)
		require.InDelta(t, mean[0], r.Mean[0], 1e-9)
		require.InDelta(t, cov.At(0, 0), r.Variance[0], 1e-9)
	}
}

func TestEstimateLocalNeighborhood(t *testing.T) {
	tab := gridTable(t, wave)
	est, err := NewEstimator(kriging.NewOrdinary(variogram()), tab, &Params{Neighbors: 6, MinNeighbors: 3, NumCores: 2})
	require.NoError(t, err)

	results, err := est.Estimate(context.Background(), tab.Geometries())
	require.NoError(t, err)
	for i, r := range results {
		z, _ := tab.Value("z", i)
		require.Equal(t, 6, r.Neighbors)
		require.InDelta(t, z, r.Mean[0], 1e-8, "sample %d is reproduced", i)
	}
}

func TestInsufficientNeighbors(t *testing.T) {
	tab := gridTable(t, wave)
	est, err := NewEstimator(kriging.NewOrdinary(variogram()), tab, &Params{Neighbors: 5, MinNeighbors: 3, MaxDistance: 15, NumCores: 1})
	require.NoError(t, err)

	results, err := est.Estimate(context.Background(), []geom.Geometry{
		geom.Point{500, 500},
		geom.Point{20, 20},
	})
	require.NoError(t, err)

	require.True(t, results[0].Missing())
	require.False(t, results[0].Status)
	require.Equal(t, 0, results[0].Neighbors)

	require.False(t, results[1].Missing())
	require.True(t, results[1].Status)
}

func TestCrossValidateLinearTrend(t *testing.T) {
	tab := gridTable(t, func(x, y float64) float64 { return 2*x - y + 7 })
	model, err := kriging.NewUniversal(variogram(), 1, 2)
	require.NoError(t, err)

	est, err := NewEstimator(model, tab, nil)
	require.NoError(t, err)

	metrics, err := est.CrossValidate(context.Background())
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	m := metrics[0]
	require.Equal(t, "z", m.Variable)
	require.Equal(t, tab.Len(), m.Count)
	// A linear field lies in the drift space and is reproduced exactly.
	require.InDelta(t, 0, m.RMSE, 1e-7)
	require.InDelta(t, 0, m.MeanError, 1e-7)
}

func TestCrossValidateOrdinary(t *testing.T) {
	tab := gridTable(t, wave)
	est, err := NewEstimator(kriging.NewOrdinary(variogram()), tab, &Params{Neighbors: 8, NumCores: 4})
	require.NoError(t, err)

	metrics, err := est.CrossValidate(context.Background())
	require.NoError(t, err)
	require.Equal(t, tab.Len(), metrics[0].Count)
	require.Greater(t, metrics[0].RMSE, 0.0)
	require.Greater(t, metrics[0].MSSE, 0.0)
}

func TestProgressAndCancel(t *testing.T) {
	tab := gridTable(t, wave)

	core, logs := observer.New(zapcore.InfoLevel)
	var mu sync.Mutex
	calls, last := 0, 0
	est, err := NewEstimator(kriging.NewOrdinary(variogram()), tab, &Params{Neighbors: 4, NumCores: 3},
		WithLogger(zap.New(core)),
		WithProgress(func(completed, total int, _ string) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if completed > last {
				last = completed
			}
		}))
	require.NoError(t, err)

	targets := tab.Geometries()
	_, err = est.Estimate(context.Background(), targets)
	require.NoError(t, err)
	require.Equal(t, len(targets), calls)
	require.Equal(t, len(targets), last)

	// 25 targets log every second one plus the last.
	require.Equal(t, 13, logs.FilterMessage("progress").Len())
	require.Equal(t, 1, logs.FilterMessage("estimation finished").Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = est.Estimate(ctx, targets)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewEstimatorErrors(t *testing.T) {
	tab := gridTable(t, wave)
	v := variogram()

	_, err := NewEstimator(kriging.NewOrdinary(v), geodata.New(nil), nil)
	require.ErrorIs(t, err, ErrNoSamples)

	_, err = NewEstimator(kriging.NewOrdinary(v), tab, &Params{Neighbors: 2, MinNeighbors: 3})
	require.ErrorIs(t, err, ErrInvalidParams)

	two := geodata.New(tab.Geometries())
	require.NoError(t, two.AddColumn("a", make([]float64, tab.Len())))
	require.NoError(t, two.AddColumn("b", make([]float64, tab.Len())))
	_, err = NewEstimator(kriging.NewOrdinary(v), two, nil)
	require.ErrorIs(t, err, kriging.ErrArityMismatch)
}

func TestProgressStep(t *testing.T) {
	testCases := []struct {
		total    int
		expected int
	}{
		{0, 1},
		{7, 1},
		{10, 1},
		{25, 2},
		{1000, 100},
	}
	for i, tc := range testCases {
		if got := progressStep(tc.total); got != tc.expected {
			t.Errorf("Case %d: expected step %d for %d targets, got %d", i, tc.expected, tc.total, got)
		}
	}
}
