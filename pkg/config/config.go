// Package config provides configuration loading and management for geokrig.
// A job file describes the correlation model, the kriging flavor, the
// samples and the prediction grid; missing fields keep their defaults.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"geokriging/internal/models"
	"geokriging/pkg/estimation"
	"geokriging/pkg/geodata"
	"geokriging/pkg/geom"
	"geokriging/pkg/geostat"
	"geokriging/pkg/kriging"
	"geokriging/pkg/linalg"
)

var (
	// ErrUnknownModel is returned for an unknown variogram model name.
	ErrUnknownModel = errors.New("config: unknown variogram model")

	// ErrUnknownFlavor is returned for an unknown kriging flavor.
	ErrUnknownFlavor = errors.New("config: unknown kriging flavor")

	// ErrUnknownSolver is returned for an unknown factorization name.
	ErrUnknownSolver = errors.New("config: unknown solver")

	// ErrUnknownDrift is returned for an unknown external drift name.
	ErrUnknownDrift = errors.New("config: unknown drift")

	// ErrInvalidSample is returned for malformed samples.
	ErrInvalidSample = errors.New("config: invalid sample")
)

// Sample is one observation. Its geometry is either a point (Coords) or a
// polygon (Polygon, outer ring first) discretized at Data.Spacing. Null
// values are missing.
type Sample struct {
	Coords  []float64   `yaml:"coords,omitempty"`
	Polygon [][]float64 `yaml:"polygon,omitempty,flow"`
	Values  []*float64  `yaml:"values,flow"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`

		// Neighbors is the number of nearest samples per target, 0 for all
		Neighbors int `yaml:"neighbors"`

		// MinNeighbors is the least number of samples needed for a prediction
		MinNeighbors int `yaml:"minNeighbors"`

		// MaxDistance limits the neighbor search, 0 for no limit
		MaxDistance float64 `yaml:"maxDistance"`
	} `yaml:"processing"`

	// Correlation model parameters
	Variogram struct {
		// Model is spherical, exponential, gaussian, nugget or power
		Model string `yaml:"model"`

		Range  float64 `yaml:"range"`
		Sill   float64 `yaml:"sill"`
		Nugget float64 `yaml:"nugget"`

		// Scaling and Exponent are used by the power model
		Scaling  float64 `yaml:"scaling"`
		Exponent float64 `yaml:"exponent"`

		Anisotropy struct {
			Ratio     float64 `yaml:"ratio"`
			Direction float64 `yaml:"direction"`
		} `yaml:"anisotropy"`

		// Covariance poses the model as a covariance instead of a variogram
		Covariance bool `yaml:"covariance"`

		// Coregionalization is the K×K matrix of a multivariate model
		Coregionalization [][]float64 `yaml:"coregionalization,omitempty,flow"`

		// Transiogram replaces the variogram by a Markov transiogram over
		// categorical indicator variables
		Transiogram struct {
			Lengths     []float64 `yaml:"lengths,omitempty,flow"`
			Proportions []float64 `yaml:"proportions,omitempty,flow"`
		} `yaml:"transiogram,omitempty"`
	} `yaml:"variogram"`

	// Kriging flavor
	Kriging struct {
		// Flavor is simple, ordinary, universal or external
		Flavor string `yaml:"flavor"`

		// Mean is the known mean of simple kriging, one value or one per variable
		Mean []float64 `yaml:"mean,omitempty,flow"`

		// Degree and Dimension define the polynomial drift of universal kriging
		Degree    int `yaml:"degree"`
		Dimension int `yaml:"dimension"`

		// Drifts lists external drift terms: 1, x, y or z
		Drifts []string `yaml:"drifts,omitempty,flow"`

		// Solver forces a factorization: auto, bunch-kaufman, lu or svd
		Solver string `yaml:"solver"`
	} `yaml:"kriging"`

	// Sample data
	Data struct {
		// CRS is the proj4 definition of the sample coordinates
		CRS string `yaml:"crs,omitempty"`

		// Variables names the value columns, in order
		Variables []string `yaml:"variables,flow"`

		// Spacing discretizes polygon samples into support points
		Spacing float64 `yaml:"spacing"`

		Samples []Sample `yaml:"samples,omitempty"`
	} `yaml:"data"`

	// Prediction grid
	Grid struct {
		Origin  []float64 `yaml:"origin,flow"`
		Spacing []float64 `yaml:"spacing,flow"`
		Size    []int     `yaml:"size,flow"`
		CRS     string    `yaml:"crs,omitempty"`
	} `yaml:"grid"`

	// Output parameters
	Output struct {
		// File is the CSV file estimates are written to, stdout when empty
		File string `yaml:"file"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Neighbors = 16
	cfg.Processing.MinNeighbors = 3

	cfg.Variogram.Model = "spherical"
	cfg.Variogram.Range = 10
	cfg.Variogram.Sill = 1
	cfg.Variogram.Exponent = 1.5
	cfg.Variogram.Scaling = 1

	cfg.Kriging.Flavor = "ordinary"
	cfg.Kriging.Degree = 1
	cfg.Kriging.Dimension = 2
	cfg.Kriging.Solver = "auto"

	cfg.Data.Variables = []string{"z"}
	cfg.Data.Spacing = 1

	cfg.Grid.Origin = []float64{0, 0}
	cfg.Grid.Spacing = []float64{1, 1}
	cfg.Grid.Size = []int{10, 10}

	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Function builds the spatial correlation function.
func (c *Config) Function() (geostat.Function, error) {
	v := c.Variogram
	if len(v.Transiogram.Lengths) > 0 {
		return geostat.NewTransiogram(v.Transiogram.Lengths, v.Transiogram.Proportions)
	}

	var (
		fn  geostat.Function
		err error
	)
	switch strings.ToLower(v.Model) {
	case "power":
		fn, err = geostat.NewPower(v.Scaling, v.Exponent, v.Nugget)
	default:
		model, ok := variogramModels[strings.ToLower(v.Model)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModel, v.Model)
		}
		fn, err = geostat.NewVariogram(geostat.Params{
			Range:  v.Range,
			Sill:   v.Sill,
			Nugget: v.Nugget,
			Model:  model,
			Anisotropy: geostat.Anisotropy{
				Ratio:     v.Anisotropy.Ratio,
				Direction: v.Anisotropy.Direction,
			},
		})
	}
	if err != nil {
		return nil, err
	}

	if len(v.Coregionalization) > 0 {
		coef, err := symmetric(v.Coregionalization)
		if err != nil {
			return nil, err
		}
		fn, err = geostat.NewCoregionalization(geostat.Structure{Variogram: fn, Coef: coef})
		if err != nil {
			return nil, err
		}
	}
	if v.Covariance {
		return geostat.NewCovariance(fn)
	}
	return fn, nil
}

var variogramModels = map[string]geostat.VariogramModel{
	"spherical":   geostat.Spherical,
	"exponential": geostat.Exponential,
	"gaussian":    geostat.Gaussian,
	"nugget":      geostat.NuggetEffect,
}

func symmetric(rows [][]float64) (*mat.SymDense, error) {
	k := len(rows)
	s := mat.NewSymDense(k, nil)
	for i, row := range rows {
		if len(row) != k {
			return nil, fmt.Errorf("%w: coregionalization matrix is not square", geostat.ErrInvalidParameter)
		}
		for j := i; j < k; j++ {
			if row[j] != rows[j][i] {
				return nil, fmt.Errorf("%w: coregionalization matrix is not symmetric", geostat.ErrInvalidParameter)
			}
			s.SetSym(i, j, row[j])
		}
	}
	return s, nil
}

// Model builds the kriging model.
func (c *Config) Model() (kriging.Model, error) {
	fn, err := c.Function()
	if err != nil {
		return nil, err
	}
	k := c.Kriging
	switch strings.ToLower(k.Flavor) {
	case "simple":
		mean := k.Mean
		if len(mean) == 0 {
			mean = []float64{0}
		}
		return kriging.NewSimple(fn, mean...)
	case "", "ordinary":
		return kriging.NewOrdinary(fn), nil
	case "universal":
		return kriging.NewUniversal(fn, k.Degree, k.Dimension)
	case "external":
		drifts, err := coordinateDrifts(k.Drifts)
		if err != nil {
			return nil, err
		}
		return kriging.NewExternalDrift(fn, drifts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlavor, k.Flavor)
	}
}

func coordinateDrifts(names []string) ([]kriging.Drift, error) {
	drifts := make([]kriging.Drift, len(names))
	for i, name := range names {
		switch strings.ToLower(name) {
		case "1", "const", "constant":
			drifts[i] = kriging.Constant
		case "x":
			drifts[i] = kriging.Monomial(1)
		case "y":
			drifts[i] = kriging.Monomial(0, 1)
		case "z":
			drifts[i] = kriging.Monomial(0, 0, 1)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownDrift, name)
		}
	}
	return drifts, nil
}

// Solver returns the configured factorization method.
func (c *Config) Solver() (linalg.Method, error) {
	m, ok := linalg.ParseMethod(strings.ToLower(c.Kriging.Solver))
	if !ok {
		return linalg.Auto, fmt.Errorf("%w: %q", ErrUnknownSolver, c.Kriging.Solver)
	}
	return m, nil
}

// Table builds the sample table.
func (c *Config) Table() (*geodata.Table, error) {
	d := c.Data
	geoms := make([]geom.Geometry, len(d.Samples))
	columns := make([][]float64, len(d.Variables))
	for v := range columns {
		columns[v] = make([]float64, len(d.Samples))
	}

	for i, s := range d.Samples {
		g, err := s.geometry(d.Spacing)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		geoms[i] = g
		if len(s.Values) != len(d.Variables) {
			return nil, fmt.Errorf("%w: sample %d has %d values for %d variables", ErrInvalidSample, i, len(s.Values), len(d.Variables))
		}
		for v, val := range s.Values {
			if val == nil {
				columns[v][i] = math.NaN()
			} else {
				columns[v][i] = *val
			}
		}
	}

	tab := geodata.New(geoms)
	for v, name := range d.Variables {
		if err := tab.AddColumn(name, columns[v]); err != nil {
			return nil, err
		}
	}
	tab.SetCRS(d.CRS)
	return tab, nil
}

func (s Sample) geometry(spacing float64) (geom.Geometry, error) {
	switch {
	case len(s.Polygon) > 0:
		ring := make(orb.Ring, len(s.Polygon))
		for i, p := range s.Polygon {
			if len(p) != 2 {
				return nil, fmt.Errorf("%w: polygon vertex %d has %d coordinates", ErrInvalidSample, i, len(p))
			}
			ring[i] = orb.Point{p[0], p[1]}
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		return geom.FromOrb(orb.Polygon{ring}, spacing)
	case len(s.Coords) > 0:
		return geom.NewPoint(s.Coords...), nil
	default:
		return nil, fmt.Errorf("%w: no coordinates or polygon", ErrInvalidSample)
	}
}

// PredictionGrid returns the prediction grid.
func (c *Config) PredictionGrid() (models.Grid, error) {
	g := models.Grid{
		Origin:  c.Grid.Origin,
		Spacing: c.Grid.Spacing,
		Size:    c.Grid.Size,
		CRS:     c.Grid.CRS,
	}
	return g, g.Validate()
}

// EstimationParams returns the neighborhood and worker pool settings.
func (c *Config) EstimationParams() *estimation.Params {
	return &estimation.Params{
		Neighbors:    c.Processing.Neighbors,
		MinNeighbors: c.Processing.MinNeighbors,
		MaxDistance:  c.Processing.MaxDistance,
		NumCores:     c.Processing.NumCores,
	}
}
