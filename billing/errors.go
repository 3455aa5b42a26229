package billing

import "errors"

/* Error taxonomy for handler failures. Transient failures (timeouts,
 * store outages) tell the provider's delivery system to retry via a
 * 500; permanent ones (missing referenced entities, malformed
 * payloads) get a 400 and no automatic retry.
 */

// ErrNotFound is returned by stores for missing records.
var ErrNotFound = errors.New("not found")

type processError struct {
	err   error
	retry bool
}

func (e *processError) Error() string { return e.err.Error() }
func (e *processError) Unwrap() error { return e.err }

// Transient wraps an error as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &processError{err: err, retry: true}
}

// Permanent wraps an error as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &processError{err: err, retry: false}
}

/* IsRetryable reports whether the delivery system should retry.
 * Unclassified errors default to retryable: infrastructure faults are
 * the common unwrapped case and retrying a permanent failure is
 * cheaper than dropping a transient one.
 */
func IsRetryable(err error) bool {
	var pe *processError
	if errors.As(err, &pe) {
		return pe.retry
	}
	return true
}
