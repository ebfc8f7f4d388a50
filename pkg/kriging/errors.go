package kriging

import "errors"

// Configuration errors. They are returned by Fit, Refit and the model
// constructors before any matrix work is done.
var (
	ErrArityMismatch    = errors.New("kriging: number of data columns does not match model arity")
	ErrCapacityExceeded = errors.New("kriging: sample count exceeds fitted capacity")
	ErrEmptyData        = errors.New("kriging: no samples")
	ErrInvalidDegree    = errors.New("kriging: drift degree must not be negative")
	ErrInvalidDimension = errors.New("kriging: drift dimension must be positive")
	ErrMeanLength       = errors.New("kriging: mean vector length must be 1 or the model arity")
	ErrNoDrift          = errors.New("kriging: at least one drift function is required")
)

// Prediction errors.
var (
	ErrUnknownVariable     = errors.New("kriging: unknown variable")
	ErrNotPositiveDefinite = errors.New("kriging: predictive covariance is not positive definite")
)
