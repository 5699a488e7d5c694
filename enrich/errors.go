package enrich

import "errors"

var (
	// ErrConfig reports an invalid option combination. Configuration
	// errors abort the whole computation with no partial result.
	ErrConfig = errors.New("invalid configuration")

	// ErrInvalidWindow reports unusable window splitting parameters.
	ErrInvalidWindow = errors.New("invalid window parameters")

	// ErrShapeMismatch reports that target regions produced differing
	// window counts and cannot share matrix columns.
	ErrShapeMismatch = errors.New("window counts differ across target regions")

	// ErrMapping reports a signal-to-target mapping restriction that
	// cannot be evaluated.
	ErrMapping = errors.New("invalid mapping restriction")

	// ErrNoColumns reports a configuration under which the matrix would
	// have zero columns.
	ErrNoColumns = errors.New("matrix would have no columns")
)
