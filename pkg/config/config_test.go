package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"geokriging/pkg/geom"
	"geokriging/pkg/geostat"
	"geokriging/pkg/kriging"
	"geokriging/pkg/linalg"
)

const jobYAML = `
processing:
  numCores: 2
  neighbors: 8
variogram:
  model: exponential
  range: 5
  sill: 2
  nugget: 0.5
kriging:
  flavor: universal
  degree: 1
  dimension: 2
  solver: lu
data:
  variables: [z]
  spacing: 0.5
  samples:
    - coords: [0, 0]
      values: [1.5]
    - coords: [3, 1]
      values: [null]
    - polygon: [[0, 0], [2, 0], [2, 2], [0, 2]]
      values: [4]
grid:
  origin: [0, 0]
  spacing: [1, 1]
  size: [3, 2]
`

func TestDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "job.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processing: [unterminated"), 0644))
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestBuildFromYAML(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, yaml.Unmarshal([]byte(jobYAML), cfg))
	require.Equal(t, 3, cfg.Processing.MinNeighbors, "unset fields keep defaults")

	fn, err := cfg.Function()
	require.NoError(t, err)
	v, ok := fn.(*geostat.StationaryVariogram)
	require.True(t, ok)
	require.Equal(t, geostat.Exponential, v.Params().Model)
	require.Equal(t, 2.0, v.Params().Sill)

	model, err := cfg.Model()
	require.NoError(t, err)
	uk, ok := model.(*kriging.Universal)
	require.True(t, ok)
	require.Len(t, uk.Exponents(), 3)

	solver, err := cfg.Solver()
	require.NoError(t, err)
	require.Equal(t, linalg.LUMethod, solver)

	tab, err := cfg.Table()
	require.NoError(t, err)
	require.Equal(t, 3, tab.Len())
	require.Equal(t, []string{"z"}, tab.Names())

	val, ok := tab.Value("z", 0)
	require.True(t, ok)
	require.Equal(t, 1.5, val)
	_, ok = tab.Value("z", 1)
	require.False(t, ok, "null values are missing")

	block, ok := tab.Geometry(2).(*geom.Block)
	require.True(t, ok)
	require.Equal(t, 16, block.Len())
	require.InDelta(t, 1, block.Centroid()[0], 1e-12)

	grid, err := cfg.PredictionGrid()
	require.NoError(t, err)
	require.Equal(t, 6, grid.Len())

	params := cfg.EstimationParams()
	require.Equal(t, 8, params.Neighbors)
	require.Equal(t, 2, params.NumCores)
}

func TestBuildVariants(t *testing.T) {
	testCases := []struct {
		name  string
		edit  func(*Config)
		check func(*testing.T, geostat.Function, kriging.Model)
	}{
		{
			name: "simple with covariance",
			edit: func(c *Config) {
				c.Kriging.Flavor = "simple"
				c.Kriging.Mean = []float64{3}
				c.Variogram.Covariance = true
			},
			check: func(t *testing.T, fn geostat.Function, m kriging.Model) {
				require.Equal(t, geostat.Covariance, fn.Kind())
				s, ok := m.(*kriging.Simple)
				require.True(t, ok)
				require.Equal(t, 3.0, s.Mean(0))
			},
		},
		{
			name: "power variogram",
			edit: func(c *Config) { c.Variogram.Model = "power" },
			check: func(t *testing.T, fn geostat.Function, _ kriging.Model) {
				require.False(t, fn.Stationary())
			},
		},
		{
			name: "coregionalization",
			edit: func(c *Config) {
				c.Variogram.Coregionalization = [][]float64{{1, 0.5}, {0.5, 1}}
			},
			check: func(t *testing.T, fn geostat.Function, _ kriging.Model) {
				require.Equal(t, 2, fn.Arity())
			},
		},
		{
			name: "transiogram",
			edit: func(c *Config) {
				c.Variogram.Transiogram.Lengths = []float64{2, 3}
				c.Variogram.Transiogram.Proportions = []float64{0.4, 0.6}
			},
			check: func(t *testing.T, fn geostat.Function, _ kriging.Model) {
				require.Equal(t, geostat.Transiogram, fn.Kind())
				require.Equal(t, 2, fn.Arity())
			},
		},
		{
			name: "external drift",
			edit: func(c *Config) {
				c.Kriging.Flavor = "external"
				c.Kriging.Drifts = []string{"1", "x", "y"}
			},
			check: func(t *testing.T, _ geostat.Function, m kriging.Model) {
				_, ok := m.(*kriging.ExternalDrift)
				require.True(t, ok)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.edit(cfg)
			fn, err := cfg.Function()
			require.NoError(t, err)
			m, err := cfg.Model()
			require.NoError(t, err)
			tc.check(t, fn, m)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	testCases := []struct {
		name     string
		edit     func(*Config)
		expected error
	}{
		{"model", func(c *Config) { c.Variogram.Model = "cubic" }, ErrUnknownModel},
		{"flavor", func(c *Config) { c.Kriging.Flavor = "fancy" }, ErrUnknownFlavor},
		{"drift", func(c *Config) { c.Kriging.Flavor = "external"; c.Kriging.Drifts = []string{"w"} }, ErrUnknownDrift},
		{"sill", func(c *Config) { c.Variogram.Nugget = 5 }, geostat.ErrInvalidParameter},
		{"asymmetric", func(c *Config) { c.Variogram.Coregionalization = [][]float64{{1, 0.2}, {0.3, 1}} }, geostat.ErrInvalidParameter},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.edit(cfg)
			_, err := cfg.Model()
			require.ErrorIs(t, err, tc.expected)
		})
	}

	cfg := DefaultConfig()
	cfg.Kriging.Solver = "cholesky"
	_, err := cfg.Solver()
	require.ErrorIs(t, err, ErrUnknownSolver)

	cfg = DefaultConfig()
	cfg.Data.Samples = []Sample{{Coords: []float64{0, 0}}}
	_, err = cfg.Table()
	require.ErrorIs(t, err, ErrInvalidSample)

	cfg.Data.Samples = []Sample{{Values: []*float64{nil}}}
	_, err = cfg.Table()
	require.ErrorIs(t, err, ErrInvalidSample)

	one := 1.0
	cfg.Data.Samples = []Sample{{Polygon: [][]float64{{0, 0, 0}, {1, 0}, {1, 1}}, Values: []*float64{&one}}}
	_, err = cfg.Table()
	require.ErrorIs(t, err, ErrInvalidSample)
}
