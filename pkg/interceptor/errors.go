package interceptor

import "fmt"

// ViewError is the 500-class error surfaced to the application when a
// diverted query fails against the sorted-set service. Name is always
// "supercouch_error"; Reason is "keys_query_failed" or "range_query_failed".
type ViewError struct {
	Name   string
	Reason string
	cause  error
}

func (e *ViewError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Name, e.Reason, e.cause)
}

func (e *ViewError) Unwrap() error { return e.cause }

func newKeysQueryFailedError(cause error) error {
	return &ViewError{Name: "supercouch_error", Reason: "keys_query_failed", cause: cause}
}

func newRangeQueryFailedError(cause error) error {
	return &ViewError{Name: "supercouch_error", Reason: "range_query_failed", cause: cause}
}
