// Package kriging builds and solves kriging systems for one or several
// spatially correlated variables.
//
// A Model (Simple, Ordinary, Universal or ExternalDrift) and a sample table
// are fitted once with Fit. The resulting Fitted value factorizes the
// system and answers any number of predictions:
//
//	v := geostat.MustVariogram(geostat.Params{Range: 35, Sill: 1, Model: geostat.Spherical})
//	fitted, err := kriging.Fit(kriging.NewOrdinary(v), table)
//	if err != nil {
//		return err
//	}
//	if !fitted.Status() {
//		// the system could not be factorized reliably
//	}
//	mean, err := fitted.Predict("z", geom.Point{50, 50})
//
// Numerical failures are not errors; they are reported by Status.
package kriging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geodata"
	"geokriging/pkg/geom"
	"geokriging/pkg/geostat"
	"geokriging/pkg/linalg"
)

// Option configures Fit.
type Option func(*Fitted)

// WithLogger sets the logger used by the fitted model.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fitted) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithSolver forces a factorization method instead of choosing one from
// the properties of the correlation function.
func WithSolver(m linalg.Method) Option {
	return func(f *Fitted) { f.forced = m }
}

// WithCapacity reserves storage for up to n samples so that Refit can be
// called with larger tables than the first one.
func WithCapacity(n int) Option {
	return func(f *Fitted) { f.capN = n }
}

// WithReprojector sets the reprojector used for targets given in another
// coordinate reference system than the table.
func WithReprojector(r *geom.Reprojector) Option {
	return func(f *Fitted) { f.reproj = r }
}

// Fitted is a kriging model fitted to a sample table. Predictions may be
// made from several goroutines at once. Refit must not run concurrently
// with predictions.
type Fitted struct {
	model  Model
	fn     geostat.Function
	logger *zap.Logger
	reproj *geom.Reprojector
	forced linalg.Method

	names []string
	index map[string]int

	table  *geodata.Table
	geoms  []geom.Geometry
	values []float64 // n·k sample values, NaN when missing
	miss   []int     // missing indices into values

	k, n, c int
	capN    int

	// covForm is false for non-stationary variograms, whose systems stay in
	// variogram form. convert is true when the pairwise values are turned
	// into covariances as sill − γ.
	covForm bool
	convert bool
	sill    *mat.Dense

	lhs  *mat.Dense // (capN·k+c)² arena, the active system is its leading block
	fact linalg.Factorization
	pool sync.Pool
}

// Fit builds and factorizes the kriging system of model for the samples of
// table. Columns of table are the variables, in order; their number must
// equal the arity of the model's correlation function.
func Fit(model Model, table *geodata.Table, opts ...Option) (*Fitted, error) {
	fn := model.Function()
	f := &Fitted{
		model:  model,
		fn:     fn,
		logger: zap.NewNop(),
		k:      fn.Arity(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.check(table); err != nil {
		return nil, err
	}
	if f.capN < table.Len() {
		f.capN = table.Len()
	}
	if f.reproj == nil {
		f.reproj = geom.NewReprojector()
	}

	f.c = model.constraints(f.k)
	f.covForm = !(fn.Kind() == geostat.Variogram && !fn.Stationary())
	f.convert = fn.Kind() == geostat.Variogram && fn.Stationary()
	if fn.Stationary() {
		f.sill = fn.Sill()
	}

	f.names = table.Names()
	f.index = make(map[string]int, len(f.names))
	for i, name := range f.names {
		f.index[name] = i
	}

	size := f.capN*f.k + f.c
	f.lhs = mat.NewDense(size, size, nil)
	k := f.k
	f.pool.New = func() any {
		return &workspace{
			rhs: mat.NewDense(size, k, nil),
			sol: mat.NewDense(size, k, nil),
			blk: mat.NewDense(k, k, nil),
		}
	}

	f.build(table)
	return f, nil
}

// Refit rebuilds the system in place for a new table with the same
// variables. The table must not have more rows than the capacity reserved
// by Fit.
func (f *Fitted) Refit(table *geodata.Table) error {
	if err := f.check(table); err != nil {
		return err
	}
	if table.Len() > f.capN {
		return fmt.Errorf("%w: %d samples, capacity %d", ErrCapacityExceeded, table.Len(), f.capN)
	}
	f.build(table)
	return nil
}

func (f *Fitted) check(table *geodata.Table) error {
	if table.Len() == 0 {
		return ErrEmptyData
	}
	if table.NumColumns() != f.k {
		return fmt.Errorf("%w: table has %d columns, model arity is %d", ErrArityMismatch, table.NumColumns(), f.k)
	}
	if f.names != nil {
		for i, name := range table.Names() {
			if name != f.names[i] {
				return fmt.Errorf("%w: column %d is %q, fitted with %q", ErrArityMismatch, i, name, f.names[i])
			}
		}
	}
	return nil
}

// Status reports whether the factorization of the system succeeded.
// Predictions from a model with a false status are unreliable.
func (f *Fitted) Status() bool { return f.fact.Success() }

// Method returns the factorization method used for the system.
func (f *Fitted) Method() linalg.Method { return f.fact.Method() }

// Variables returns the variable names, in system order.
func (f *Fitted) Variables() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Len returns the number of samples in the active system.
func (f *Fitted) Len() int { return f.n }

// Capacity returns the largest number of samples Refit accepts.
func (f *Fitted) Capacity() int { return f.capN }

// Model returns the fitted model.
func (f *Fitted) Model() Model { return f.model }

// Table returns the sample table of the last fit.
func (f *Fitted) Table() *geodata.Table { return f.table }
