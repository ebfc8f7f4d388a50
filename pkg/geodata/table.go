// Package geodata holds sample datasets: an ordered set of geometries with
// named numeric columns, any entry of which may be missing.
package geodata

import (
	"errors"
	"fmt"
	"math"

	"geokriging/pkg/geom"
)

var (
	// ErrUnknownColumn is returned when a column name is not in the table.
	ErrUnknownColumn = errors.New("geodata: unknown column")

	// ErrLengthMismatch is returned when a column length differs from the
	// number of geometries.
	ErrLengthMismatch = errors.New("geodata: column length mismatch")

	// ErrDuplicateColumn is returned when a column name is added twice.
	ErrDuplicateColumn = errors.New("geodata: duplicate column")

	// ErrIndexOutOfRange is returned for row indices outside the table.
	ErrIndexOutOfRange = errors.New("geodata: row index out of range")
)

type column struct {
	values  []float64
	missing []bool
}

// Table is a column-oriented sample dataset. Geometries are fixed at
// construction; columns are appended in order and that order defines the
// variable order seen by multivariate models.
type Table struct {
	geoms []geom.Geometry
	names []string
	cols  map[string]*column
	crs   string
}

// New returns a table over geoms with no columns.
func New(geoms []geom.Geometry) *Table {
	g := make([]geom.Geometry, len(geoms))
	copy(g, geoms)
	return &Table{geoms: g, cols: make(map[string]*column)}
}

// AddColumn appends a named column. NaN entries are recorded as missing.
func (t *Table) AddColumn(name string, values []float64) error {
	if _, ok := t.cols[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(values) != len(t.geoms) {
		return fmt.Errorf("%w: column %q has %d values, table has %d rows", ErrLengthMismatch, name, len(values), len(t.geoms))
	}
	c := &column{
		values:  make([]float64, len(values)),
		missing: make([]bool, len(values)),
	}
	for i, v := range values {
		c.values[i] = v
		c.missing[i] = math.IsNaN(v)
	}
	t.cols[name] = c
	t.names = append(t.names, name)
	return nil
}

// SetMissing marks row i of column name as missing.
func (t *Table) SetMissing(name string, i int) error {
	c, ok := t.cols[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if i < 0 || i >= len(c.values) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	c.missing[i] = true
	return nil
}

// SetCRS records the proj4 definition the geometries are expressed in.
func (t *Table) SetCRS(crs string) { t.crs = crs }

// CRS returns the proj4 definition of the table geometries, or "" when
// unknown.
func (t *Table) CRS() string { return t.crs }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.geoms) }

// NumColumns returns the number of variable columns.
func (t *Table) NumColumns() int { return len(t.names) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Geometry returns the geometry of row i.
func (t *Table) Geometry(i int) geom.Geometry { return t.geoms[i] }

// Geometries returns the row geometries. The returned slice must not be
// modified.
func (t *Table) Geometries() []geom.Geometry { return t.geoms }

// Value returns the entry of column name at row i. ok is false when the
// entry is missing or the column does not exist.
func (t *Table) Value(name string, i int) (v float64, ok bool) {
	c, found := t.cols[name]
	if !found || i < 0 || i >= len(c.values) || c.missing[i] {
		return math.NaN(), false
	}
	return c.values[i], true
}

// Column returns a copy of column name with missing entries set to NaN.
func (t *Table) Column(name string) ([]float64, error) {
	c, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	out := make([]float64, len(c.values))
	for i, v := range c.values {
		if c.missing[i] {
			out[i] = math.NaN()
		} else {
			out[i] = v
		}
	}
	return out, nil
}

// Subset returns a new table with the given rows, in the given order.
func (t *Table) Subset(rows []int) (*Table, error) {
	s := &Table{
		geoms: make([]geom.Geometry, len(rows)),
		names: t.Names(),
		cols:  make(map[string]*column, len(t.cols)),
		crs:   t.crs,
	}
	for k, i := range rows {
		if i < 0 || i >= len(t.geoms) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
		}
		s.geoms[k] = t.geoms[i]
	}
	for name, c := range t.cols {
		sc := &column{
			values:  make([]float64, len(rows)),
			missing: make([]bool, len(rows)),
		}
		for k, i := range rows {
			sc.values[k] = c.values[i]
			sc.missing[k] = c.missing[i]
		}
		s.cols[name] = sc
	}
	return s, nil
}

// Map returns a copy of the table with every present entry replaced by
// fn(column, row, value). Missing entries stay missing.
func (t *Table) Map(fn func(name string, i int, v float64) float64) *Table {
	s, _ := t.Subset(seq(len(t.geoms)))
	for _, name := range s.names {
		c := s.cols[name]
		for i := range c.values {
			if !c.missing[i] {
				c.values[i] = fn(name, i, c.values[i])
			}
		}
	}
	return s
}

// Translate returns a copy of the table with every geometry moved by v.
func (t *Table) Translate(v geom.Point) (*Table, error) {
	s, _ := t.Subset(seq(len(t.geoms)))
	for i, g := range s.geoms {
		moved, err := geom.Translate(g, v)
		if err != nil {
			return nil, err
		}
		s.geoms[i] = moved
	}
	return s, nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
