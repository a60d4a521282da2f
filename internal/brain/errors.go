package brain

import "errors"

var (
	ErrMissingDocumentRef = errors.New("missing document reference")
	ErrMaxIterations      = errors.New("agent network exceeded max iterations")
	ErrNoExtractedData    = errors.New("extracted data not present in state")
)

// RunError classifies a failed network run for the worker: retryable runs
// are requeued, fatal ones go to the dead letter queue.
type RunError struct {
	Err       error
	Retryable bool
}

func (e *RunError) Error() string {
	return e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error) *RunError {
	return &RunError{Err: err, Retryable: true}
}

func NewFatalError(err error) *RunError {
	return &RunError{Err: err, Retryable: false}
}

// IsRetryable reports whether err should be retried. Unclassified errors
// are retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Retryable
	}
	return true
}
