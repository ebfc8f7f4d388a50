package estimation

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// ValidationMetrics summarizes leave-one-out prediction errors of one
// variable.
type ValidationMetrics struct {
	Variable string

	// Count is the number of samples that could be predicted from the
	// others.
	Count int

	// RMSE is the root mean square error.
	RMSE float64

	// MeanError is the mean of observed minus predicted values. Values far
	// from zero indicate a biased model.
	MeanError float64

	// MSSE is the mean of squared errors divided by the predicted
	// variances. It is close to one when the variances are realistic.
	MSSE float64
}

// CrossValidate predicts every sample from its neighborhood without itself
// and reports error statistics per variable.
func (e *Estimator) CrossValidate(ctx context.Context) ([]ValidationMetrics, error) {
	start := time.Now()
	n, k := e.table.Len(), len(e.names)
	errs := make([][]float64, n)
	stds := make([][]float64, n)

	err := e.run(ctx, n, func(w *worker, i int) error {
		errs[i] = make([]float64, k)
		stds[i] = make([]float64, k)
		est, err := w.estimate(e.table.Geometry(i), i)
		if err != nil {
			return err
		}
		for v, name := range e.names {
			errs[i][v], stds[i][v] = math.NaN(), math.NaN()
			z, ok := e.table.Value(name, i)
			if !ok || est.Missing() || !est.Status {
				continue
			}
			d := z - est.Mean[v]
			errs[i][v] = d
			if est.Variance[v] > 0 {
				stds[i][v] = d * d / est.Variance[v]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]ValidationMetrics, k)
	for v, name := range e.names {
		var d, sq, ss []float64
		for i := 0; i < n; i++ {
			if math.IsNaN(errs[i][v]) {
				continue
			}
			d = append(d, errs[i][v])
			sq = append(sq, errs[i][v]*errs[i][v])
			if !math.IsNaN(stds[i][v]) {
				ss = append(ss, stds[i][v])
			}
		}

		m := ValidationMetrics{Variable: name, Count: len(d)}
		m.RMSE, m.MeanError, m.MSSE = math.NaN(), math.NaN(), math.NaN()
		if len(d) > 0 {
			m.RMSE = math.Sqrt(stat.Mean(sq, nil))
			m.MeanError = stat.Mean(d, nil)
		}
		if len(ss) > 0 {
			m.MSSE = stat.Mean(ss, nil)
		}
		out[v] = m

		e.logger.Info("cross validation",
			zap.String("variable", name),
			zap.Int("count", m.Count),
			zap.Float64("rmse", m.RMSE),
			zap.Float64("meanError", m.MeanError),
			zap.Float64("msse", m.MSSE),
		)
	}
	e.logger.Debug("cross validation finished", zap.Duration("elapsed", time.Since(start)))
	return out, nil
}
