// Package estimation runs kriging over many prediction targets. Each target
// gets its own neighborhood of samples and its own small kriging system;
// targets are spread over a pool of workers that each reuse one fitted
// model.
package estimation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"geokriging/internal/models"
	"geokriging/pkg/geodata"
	"geokriging/pkg/geom"
	"geokriging/pkg/kriging"
)

var (
	// ErrNoSamples is returned when the sample table is empty.
	ErrNoSamples = errors.New("estimation: no samples")

	// ErrInvalidParams is returned for inconsistent neighborhood settings.
	ErrInvalidParams = errors.New("estimation: invalid parameters")
)

// ProgressCallback reports progress. completed and total count targets; a
// non-empty message with total == 0 is informational.
type ProgressCallback func(completed, total int, message string)

// Params controls the neighborhood search and the worker pool.
type Params struct {
	// Neighbors is the number of nearest samples used per target. Zero or
	// a value at least the number of samples uses every sample.
	Neighbors int

	// MinNeighbors is the least number of samples needed to krige a
	// target. Targets with fewer get a missing estimate.
	MinNeighbors int

	// MaxDistance limits the search radius. Zero means no limit.
	MaxDistance float64

	// NumCores is the number of workers. Zero uses every CPU.
	NumCores int
}

// DefaultParams returns parameters that use every sample and every CPU.
func DefaultParams() *Params {
	return &Params{MinNeighbors: 1, NumCores: runtime.NumCPU()}
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger. The fitted models of the workers log to it too.
func WithLogger(l *zap.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(e *Estimator) { e.progress = cb }
}

// WithFitOptions adds options passed to every kriging fit.
func WithFitOptions(opts ...kriging.Option) Option {
	return func(e *Estimator) { e.fitOpts = append(e.fitOpts, opts...) }
}

// Estimator predicts every variable of a sample table at arbitrary targets
// using local kriging neighborhoods.
type Estimator struct {
	model  kriging.Model
	table  *geodata.Table
	params Params
	names  []string

	index    *geom.Index
	reproj   *geom.Reprojector
	capacity int

	logger   *zap.Logger
	progress ProgressCallback
	fitOpts  []kriging.Option
}

// NewEstimator returns an estimator for model over table. A nil params uses
// DefaultParams.
func NewEstimator(model kriging.Model, table *geodata.Table, params *Params, opts ...Option) (*Estimator, error) {
	if table.Len() == 0 {
		return nil, ErrNoSamples
	}
	if params == nil {
		params = DefaultParams()
	}
	if k := model.Function().Arity(); k != table.NumColumns() {
		return nil, fmt.Errorf("%w: table has %d columns, model arity is %d", kriging.ErrArityMismatch, table.NumColumns(), k)
	}
	if params.MinNeighbors < 0 || params.Neighbors < 0 || params.MaxDistance < 0 {
		return nil, fmt.Errorf("%w: negative neighborhood setting", ErrInvalidParams)
	}
	if params.Neighbors > 0 && params.MinNeighbors > params.Neighbors {
		return nil, fmt.Errorf("%w: minNeighbors %d exceeds neighbors %d", ErrInvalidParams, params.MinNeighbors, params.Neighbors)
	}

	e := &Estimator{
		model:  model,
		table:  table,
		params: *params,
		names:  table.Names(),
		index:  geom.NewIndex(table.Geometries()),
		reproj: geom.NewReprojector(),
		logger: zap.NewNop(),
	}
	if e.params.NumCores < 1 {
		e.params.NumCores = runtime.NumCPU()
	}
	if e.params.MinNeighbors < 1 {
		e.params.MinNeighbors = 1
	}
	e.capacity = e.neighbors()
	for _, opt := range opts {
		opt(e)
	}
	e.fitOpts = append([]kriging.Option{
		kriging.WithLogger(e.logger),
		kriging.WithReprojector(e.reproj),
	}, e.fitOpts...)
	return e, nil
}

// SetProgressCallback sets the function called after each target.
func (e *Estimator) SetProgressCallback(cb ProgressCallback) {
	e.progress = cb
}

// Variables returns the names of the estimated variables.
func (e *Estimator) Variables() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// neighbors returns the effective neighborhood size.
func (e *Estimator) neighbors() int {
	n := e.table.Len()
	if e.params.Neighbors <= 0 || e.params.Neighbors >= n {
		return n
	}
	return e.params.Neighbors
}

// Estimate predicts every variable at each target. The context is checked
// between targets.
func (e *Estimator) Estimate(ctx context.Context, targets []geom.Geometry) ([]models.Estimate, error) {
	start := time.Now()
	results := make([]models.Estimate, len(targets))

	err := e.run(ctx, len(targets), func(w *worker, i int) error {
		est, err := w.estimate(targets[i], -1)
		if err != nil {
			return err
		}
		results[i] = est
		return nil
	})
	if err != nil {
		return nil, err
	}

	missing, failed := 0, 0
	for _, r := range results {
		switch {
		case r.Missing():
			missing++
		case !r.Status:
			failed++
		}
	}
	e.logger.Info("estimation finished",
		zap.Int("targets", len(targets)),
		zap.Int("missing", missing),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

// run calls fn for every index in [0, total), spreading contiguous chunks
// over the worker pool. The first error stops the remaining workers.
func (e *Estimator) run(ctx context.Context, total int, fn func(w *worker, i int) error) error {
	if total == 0 {
		return ctx.Err()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numCores := e.params.NumCores
	perCore := (total + numCores - 1) / numCores
	step := progressStep(total)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		completed int
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for c := 0; c < numCores; c++ {
		startIdx := c * perCore
		if startIdx >= total {
			break
		}
		endIdx := startIdx + perCore
		if endIdx > total {
			endIdx = total
		}

		wg.Add(1)
		go func(startIdx, endIdx int) {
			defer wg.Done()
			w := &worker{e: e}
			for i := startIdx; i < endIdx; i++ {
				if err := ctx.Err(); err != nil {
					fail(err)
					return
				}
				if err := fn(w, i); err != nil {
					fail(err)
					return
				}
				mu.Lock()
				completed++
				if completed%step == 0 || completed == total {
					e.logger.Info("progress", zap.Int("completed", completed), zap.Int("total", total))
				}
				e.reportProgress(completed, total, "")
				mu.Unlock()
			}
		}(startIdx, endIdx)
	}
	wg.Wait()
	return firstErr
}

// progressStep is the number of targets between two progress log lines.
func progressStep(total int) int {
	if step := total / 10; step > 0 {
		return step
	}
	return 1
}

func (e *Estimator) reportProgress(completed, total int, message string) {
	if e.progress != nil {
		e.progress(completed, total, message)
	}
}

// worker owns one fitted model, refitted for each neighborhood.
type worker struct {
	e      *Estimator
	fitted *kriging.Fitted
	rows   []int
}

// estimate kriges target from its neighborhood. Sample exclude, if not
// negative, is left out of the neighborhood.
func (w *worker) estimate(target geom.Geometry, exclude int) (models.Estimate, error) {
	e := w.e
	local, err := e.localize(target)
	if err != nil {
		return models.Estimate{}, err
	}

	k := e.neighbors()
	want := k
	if exclude >= 0 && want < e.table.Len() {
		want++
	}
	rows := make([]int, 0, want)
	for _, nb := range e.index.Nearest(local.Centroid(), want, e.params.MaxDistance) {
		if nb.Index != exclude {
			rows = append(rows, nb.Index)
		}
	}
	if len(rows) > k {
		rows = rows[:k]
	}
	if len(rows) < e.params.MinNeighbors {
		return models.MissingEstimate(target, len(e.names), len(rows)), nil
	}

	if err := w.fit(rows); err != nil {
		return models.Estimate{}, err
	}
	mean, cov, err := w.fitted.MeanVariance(e.names, local)
	if err != nil {
		return models.Estimate{}, err
	}

	est := models.Estimate{
		Target:    target,
		Mean:      mean,
		Variance:  make([]float64, len(mean)),
		Neighbors: len(rows),
		Status:    w.fitted.Status(),
	}
	for i := range mean {
		est.Variance[i] = cov.At(i, i)
	}
	return est, nil
}

// fit makes the worker model fitted to the given sample rows. The system is
// only rebuilt when the neighborhood changed.
func (w *worker) fit(rows []int) error {
	sort.Ints(rows)
	if w.fitted != nil && equalRows(rows, w.rows) {
		return nil
	}
	sub, err := w.e.table.Subset(rows)
	if err != nil {
		return err
	}
	if w.fitted == nil {
		opts := append([]kriging.Option{kriging.WithCapacity(w.e.capacity)}, w.e.fitOpts...)
		w.fitted, err = kriging.Fit(w.e.model, sub, opts...)
	} else {
		err = w.fitted.Refit(sub)
	}
	if err != nil {
		w.fitted, w.rows = nil, nil
		return err
	}
	w.rows = append(w.rows[:0], rows...)
	return nil
}

func equalRows(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// localize expresses target in the CRS of the sample table.
func (e *Estimator) localize(target geom.Geometry) (geom.Geometry, error) {
	ref, ok := target.(*geom.Referenced)
	if !ok {
		return target, nil
	}
	g, err := e.reproj.Transform(ref.Geometry, ref.CRS, e.table.CRS())
	if err != nil {
		return nil, fmt.Errorf("reprojecting target: %w", err)
	}
	if r, ok := g.(*geom.Referenced); ok {
		return r.Geometry, nil
	}
	return g, nil
}
