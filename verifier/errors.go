package verifier

import "errors"

// Stage failures. A Result never returns these as call errors; Result.Err
// exposes the one that halted the pipeline so callers can use errors.Is.
var (
	ErrFormat            = errors.New("email format invalid")
	ErrDisposableDomain  = errors.New("disposable/temporary email rejected")
	ErrNoMXRecord        = errors.New("domain cannot receive mail")
	ErrSMTPVerification  = errors.New("mailbox does not appear to exist")
	ErrNXDomain          = errors.New("domain does not exist")
	ErrNoUsableExchanger = errors.New("no usable mail exchanger")
)

// stageError ties a stage sentinel to the detail that produced it.
type stageError struct {
	err    error
	detail string
}

func (e *stageError) Error() string {
	if e.detail == "" {
		return e.err.Error()
	}
	return e.err.Error() + ": " + e.detail
}

func (e *stageError) Unwrap() error { return e.err }
